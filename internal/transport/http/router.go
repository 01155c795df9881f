package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailworker/backend/internal/config"
	"mailworker/backend/internal/health"
	"mailworker/backend/internal/middleware"
	"mailworker/backend/internal/monitoring"
	"mailworker/backend/internal/service"
)

// 请求体上限，账户接口只接收很小的 JSON
const maxBodyBytes = 64 * 1024

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	AccountService *service.AccountService
	Tokens         middleware.TokenValidator
	Metrics        *monitoring.Metrics   // 可为 nil
	Health         *health.HealthChecker // 可为 nil
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, log)
	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(maxBodyBytes))
	router.Use(gincors.New(corsConfig(deps.Config.CORS)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	accounts := NewAccountHandler(deps.AccountService, log)
	jwtAuth := middleware.NewJWTAuth(deps.Tokens, log)
	addLimit := middleware.NewUserRateLimiter(deps.Config.RateLimit.AddPerMinute, deps.Metrics)

	v1 := router.Group("/v1", jwtAuth.RequireAuth())
	{
		accountRoutes := v1.Group("/account")
		accountRoutes.POST("/add", addLimit.Middleware("account_add"), accounts.add)
		accountRoutes.GET("/list", accounts.list)
		accountRoutes.DELETE("/delete", accounts.delete)
		accountRoutes.PUT("/setName", accounts.setName)
	}

	return router
}

func corsConfig(cfg config.CORSConfig) gincors.Config {
	c := gincors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 允许所有来源时不能携带凭证
	for _, origin := range c.AllowOrigins {
		if origin == "*" {
			c.AllowOrigins = nil
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			break
		}
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	}
	return c
}
