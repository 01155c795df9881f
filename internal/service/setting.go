package service

import (
	"context"
	"fmt"
	"time"

	"mailworker/backend/internal/cache"
	"mailworker/backend/internal/domain"
	"mailworker/backend/internal/storage"
)

const settingCacheKey = "setting"

// SettingService 系统设置服务，读取结果缓存在进程内
type SettingService struct {
	repo  storage.SettingRepository
	cache *cache.LocalCache
	ttl   time.Duration
}

// NewSettingService 创建设置服务；cache 为 nil 时每次都读存储
func NewSettingService(repo storage.SettingRepository, c *cache.LocalCache, ttl time.Duration) *SettingService {
	return &SettingService{
		repo:  repo,
		cache: c,
		ttl:   ttl,
	}
}

// Get 获取系统设置
func (s *SettingService) Get(ctx context.Context) (*domain.Setting, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(settingCacheKey); ok {
			setting := *v.(*domain.Setting)
			return &setting, nil
		}
	}

	setting, err := s.repo.GetSetting(ctx)
	if err != nil {
		return nil, fmt.Errorf("load setting: %w", err)
	}

	if s.cache != nil {
		cached := *setting
		s.cache.Set(settingCacheKey, &cached, s.ttl)
	}
	return setting, nil
}

// IsAddEmailEnabled 是否允许用户添加邮箱账户
func (s *SettingService) IsAddEmailEnabled(ctx context.Context) (bool, error) {
	setting, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return setting.AddEmail, nil
}

// IsAddEmailVerifyRequired 添加邮箱账户是否需要人机验证
func (s *SettingService) IsAddEmailVerifyRequired(ctx context.Context) (bool, error) {
	setting, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return setting.AddEmailVerify, nil
}

// Update 保存系统设置并使缓存失效
func (s *SettingService) Update(ctx context.Context, setting *domain.Setting) error {
	if err := s.repo.SaveSetting(ctx, setting); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	s.Refresh()
	return nil
}

// Refresh 丢弃缓存，下次读取时重新加载
func (s *SettingService) Refresh() {
	if s.cache != nil {
		s.cache.Delete(settingCacheKey)
	}
}
