// Package app 负责按配置装配存储、服务与清理任务，供各个命令行入口共用。
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mailworker/backend/internal/cache"
	"mailworker/backend/internal/config"
	"mailworker/backend/internal/monitoring"
	"mailworker/backend/internal/service"
	"mailworker/backend/internal/storage"
	"mailworker/backend/internal/storage/memory"
	"mailworker/backend/internal/storage/postgres"
	redisstore "mailworker/backend/internal/storage/redis"
)

// App 装配完成的组件
type App struct {
	Store    storage.Store
	Redis    *redisstore.Client // 未启用时为 nil
	Settings *service.SettingService
	Accounts *service.AccountService
	Purge    *service.PurgeJob

	settingsCache *cache.LocalCache
	log           *zap.Logger
}

// New 根据配置创建存储、Redis 客户端、服务层与清理任务
func New(cfg *config.Config, metrics *monitoring.Metrics, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store, err := OpenStore(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	a := &App{Store: store, log: log}

	var locker service.Locker
	if cfg.Redis.Enabled {
		client, err := redisstore.New(&cfg.Redis, log)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.Redis = client
		locker = client.PurgeLock(cfg.Purge.LockTTL)
		log.Info("using redis purge lock", zap.Duration("ttl", cfg.Purge.LockTTL))
	}

	if cfg.Settings.CacheTTL > 0 {
		a.settingsCache = cache.NewLocalCache(cfg.Settings.CacheTTL)
	}
	a.Settings = service.NewSettingService(store, a.settingsCache, cfg.Settings.CacheTTL)

	a.Accounts = service.NewAccountService(store, service.AccountServiceDeps{
		Settings: a.Settings,
		Users:    service.NewUserService(store),
		Roles:    service.NewRoleService(store),
		Verifier: service.NewTurnstileVerifier(cfg.Turnstile, log.Named("turnstile")),
		Emails:   service.NewEmailService(store, log.Named("email")),
		Metrics:  metrics,
		Logger:   log.Named("account"),
	}, &cfg.Account)

	a.Purge = service.NewPurgeJob(a.Accounts, locker, metrics, log.Named("purge"))

	return a, nil
}

// OpenStore 配置了数据库时使用 SQL 存储，否则使用内存存储
func OpenStore(cfg *config.DatabaseConfig, log *zap.Logger) (storage.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Type == "" || cfg.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	store, err := postgres.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("init database storage: %w", err)
	}
	log.Info("using database storage", zap.String("type", cfg.Type))
	return store, nil
}

// Ping 检查存储与 Redis 是否可用
func (a *App) Ping(ctx context.Context) error {
	if err := a.Store.Health(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close 释放全部资源
func (a *App) Close() error {
	if a.settingsCache != nil {
		a.settingsCache.Close()
	}

	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
