package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Pinger 可探测的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealth 存储层健康检查接口
type StoreHealth interface {
	Health() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器；redis 为 nil 时不注册 Redis 检查
func NewHealthChecker(store StoreHealth, redis Pinger, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		logger: logger,
	}

	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))

	hc.health.AddReadinessCheck("database", hc.logged("database", store.Health))

	if redis != nil {
		hc.health.AddReadinessCheck("redis", hc.logged("redis", RedisHealthCheck(redis, 2*time.Second)))
	}

	return hc
}

func (hc *HealthChecker) logged(name string, check healthcheck.Check) healthcheck.Check {
	return func() error {
		if err := check(); err != nil {
			hc.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			return err
		}
		return nil
	}
}

// Handler 返回完整健康检查处理器（/live 与 /ready）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活探针
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪探针
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}

// RedisHealthCheck Redis 健康检查
func RedisHealthCheck(p Pinger, timeout time.Duration) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		return p.Ping(ctx)
	}
}
