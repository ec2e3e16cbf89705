package port

import (
	"context"

	"underwriting-bot/internal/domain/entity"
)

// UserRepository интерфейс хранилища пользователей и их сессий
type UserRepository interface {
	// Get возвращает пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет состояние пользователя
	Save(ctx context.Context, user *entity.User) error

	// Delete удаляет пользователя вместе с сессией
	Delete(ctx context.Context, userID int64) error
}
