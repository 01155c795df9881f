package service

import (
	"context"
	"errors"
	"fmt"

	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/storage"
)

// UserService 用户服务
type UserService struct {
	repo storage.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo storage.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return user, nil
}
