package app

import (
	"context"

	"underwriting-bot/internal/domain/entity"
	"underwriting-bot/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) Save(ctx context.Context, user *entity.User) error {
	return s.repo.Save(ctx, user)
}

// Reset удаляет сессию целиком и возвращает пустую
func (s *UserService) Reset(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, chatID)
}
