package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mailworker/backend/internal/app"
	"mailworker/backend/internal/config"
	"mailworker/backend/internal/logger"
	"mailworker/backend/internal/monitoring"
	"mailworker/backend/internal/service"
)

// main 执行一次已删除账户的物理清理，供 cron 等外部调度器调用。
//
// 退出码: 0 成功或锁被其他实例持有，1 失败。
func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "单次清理的最长执行时间")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, log, *timeout))
}

func run(cfg *config.Config, log *zap.Logger, timeout time.Duration) int {
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components, err := app.New(cfg, monitoring.NewDefaultMetrics(), log)
	if err != nil {
		log.Error("failed to initialize application", zap.Error(err))
		return 1
	}
	defer func() { _ = components.Close() }()

	if err := components.Ping(ctx); err != nil {
		log.Error("dependency check failed", zap.Error(err))
		return 1
	}

	purged, err := components.Purge.Run(ctx)
	switch {
	case errors.Is(err, service.ErrPurgeRunning):
		log.Info("another instance is purging, nothing to do")
		return 0
	case err != nil:
		log.Error("purge failed", zap.Int("purged", purged), zap.Error(err))
		return 1
	}

	log.Info("purge completed", zap.Int("purged", purged))
	return 0
}
