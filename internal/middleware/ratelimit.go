package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"mailworker/backend/internal/monitoring"
)

// UserRateLimiter 按用户的令牌桶限流器。
//
// 每个用户一个 rate.Limiter，空闲超过 idleTTL 的条目在访问时顺带清理。
type UserRateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	metrics *monitoring.Metrics

	mu       sync.Mutex
	limiters map[int64]*userLimiter
	lastGC   time.Time
	now      func() time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter 创建每分钟 perMinute 次的用户限流器；perMinute <= 0 表示不限流
func NewUserRateLimiter(perMinute int, metrics *monitoring.Metrics) *UserRateLimiter {
	l := &UserRateLimiter{
		limit:    rate.Inf,
		burst:    1,
		idleTTL:  10 * time.Minute,
		metrics:  metrics,
		limiters: make(map[int64]*userLimiter),
		now:      time.Now,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

// Allow 判断用户本次请求是否放行
func (l *UserRateLimiter) Allow(userID int64) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastGC) > l.idleTTL {
		for id, ul := range l.limiters {
			if now.Sub(ul.lastSeen) > l.idleTTL {
				delete(l.limiters, id)
			}
		}
		l.lastGC = now
	}

	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = ul
	}
	ul.lastSeen = now
	l.mu.Unlock()

	return ul.limiter.AllowN(now, 1)
}

// Middleware 返回 gin 中间件，需挂在认证之后
func (l *UserRateLimiter) Middleware(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := UserID(c)
		if l.Allow(userID) {
			c.Next()
			return
		}

		l.metrics.RecordRateLimitBlock(endpoint)
		c.Header("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code": http.StatusTooManyRequests,
			"msg":  "操作过于频繁，请稍后再试",
		})
	}
}
