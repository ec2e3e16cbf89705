package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"underwriting-bot/internal/domain/entity"
)

func TestMemoryUserRepository_GetCreatesOnce(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	u1, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	u2, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Same(t, u1, u2)
	require.Equal(t, entity.StateMainMenu, u1.State)
}

func TestMemoryUserRepository_SaveDelete(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	u := entity.NewUser(5, 50)
	u.AttachReport(&entity.ReportAnalysis{Text: "Year Built: 1970"})
	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.Get(ctx, 5, 50)
	require.NoError(t, err)
	require.Same(t, u, got)
	require.Equal(t, entity.StateAwaitingImage, got.State)

	require.NoError(t, repo.Delete(ctx, 5))

	fresh, err := repo.Get(ctx, 5, 50)
	require.NoError(t, err)
	require.NotSame(t, u, fresh)
	require.Nil(t, fresh.Report)
	require.Equal(t, entity.StateMainMenu, fresh.State)

	// удаление неизвестного пользователя не ошибка
	require.NoError(t, repo.Delete(ctx, 404))
}

func TestMemoryUserRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Get(ctx, 1, 1)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, repo.Save(ctx, entity.NewUser(1, 1)), context.Canceled)
	require.ErrorIs(t, repo.Delete(ctx, 1), context.Canceled)
}

func TestMemoryUserRepository_ConcurrentGet(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	users := make([]*entity.User, 20)
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			users[i], _ = repo.Get(ctx, 7, 70)
		}()
	}
	wg.Wait()

	for _, u := range users {
		require.Same(t, users[0], u)
	}
}
