package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/infrastructure/storage"
)

func TestUserService_Reset(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.Get(ctx, 1, 10)
	require.NoError(t, err)
	user.AttachImage(&entity.ImageLabel{Label: "crack"})
	user.AttachReport(&entity.ReportAnalysis{Fields: entity.ExtractedFields{entity.FieldYearBuilt: 1900}})
	require.NoError(t, svc.Save(ctx, user))
	require.Equal(t, entity.StateReady, user.State)

	reset, err := svc.Reset(ctx, 1, 10)
	require.NoError(t, err)
	require.NotSame(t, user, reset)
	require.Equal(t, entity.StateMainMenu, reset.State)
	require.Nil(t, reset.Image)
	require.Nil(t, reset.Report)

	// следующий Get видит уже пустую сессию
	again, err := svc.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Same(t, reset, again)
}

func TestUserService_ResetUnknownUser(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())

	user, err := svc.Reset(context.Background(), 2, 20)
	require.NoError(t, err)
	require.Equal(t, int64(20), user.ChatID)
	require.Equal(t, entity.StateMainMenu, user.State)
}
