package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/storage"
)

// RoleService 角色服务
type RoleService struct {
	repo storage.RoleRepository
}

// NewRoleService 创建角色服务
func NewRoleService(repo storage.RoleRepository) *RoleService {
	return &RoleService{repo: repo}
}

// GetByID 根据ID获取角色
func (s *RoleService) GetByID(ctx context.Context, roleID int64) (*domain.Role, error) {
	role, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, storage.ErrRoleNotFound) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role %d: %w", roleID, err)
	}
	return role, nil
}

// DomainAllowed 判断角色是否可以在邮箱所在域名下添加账户。
//
// 空列表表示不限制；列表项忽略大小写，允许带前导 @。
func (s *RoleService) DomainAllowed(availDomain []string, email string) bool {
	if len(availDomain) == 0 {
		return true
	}

	emailDomain := domain.EmailDomain(email)
	for _, d := range availDomain {
		d = strings.TrimPrefix(strings.TrimSpace(d), "@")
		if strings.EqualFold(d, emailDomain) {
			return true
		}
	}
	return false
}
