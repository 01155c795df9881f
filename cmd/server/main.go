package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailworker/backend/internal/app"
	jwtpkg "mailworker/backend/internal/auth/jwt"
	"mailworker/backend/internal/config"
	"mailworker/backend/internal/health"
	"mailworker/backend/internal/logger"
	"mailworker/backend/internal/monitoring"
	httptransport "mailworker/backend/internal/transport/http"
)

// main 启动 HTTP API，并在进程内定时清理已删除账户。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting mailworker server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.Strings("domains", cfg.Account.Domains),
	)

	metrics := monitoring.NewDefaultMetrics()

	components, err := app.New(cfg, metrics, log)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()

	var redisPinger health.Pinger
	if components.Redis != nil {
		redisPinger = components.Redis
	}
	healthChecker := health.NewHealthChecker(components.Store, redisPinger, log.Named("health"))

	jwtManager := jwtpkg.NewManagerFromConfig(&cfg.JWT)
	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
	)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		AccountService: components.Accounts,
		Tokens:         jwtManager,
		Metrics:        metrics,
		Health:         healthChecker,
		Logger:         log.Named("http"),
	})

	httpAddr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	if cfg.Purge.Enabled {
		group.Go(func() error {
			log.Info("starting account purge task", zap.Duration("interval", cfg.Purge.Interval))
			components.Purge.Schedule(groupCtx, cfg.Purge.Interval)
			log.Info("account purge task stopped")
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}
