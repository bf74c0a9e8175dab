package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"intramail/backend/internal/cache"
	"intramail/backend/internal/storage"
)

// SendRateLimiter 按用户限制发信速率
//
// 每个用户一个令牌桶，桶放在本地 TTL 缓存里，
// 长时间不活跃的用户由缓存自动回收。
type SendRateLimiter struct {
	mu       sync.Mutex
	limiters *cache.LocalCache
	rate     rate.Limit
	burst    int
	log      *zap.Logger
}

// NewSendRateLimiter 创建发信限流器
//
// perMinute <= 0 表示不限流。
func NewSendRateLimiter(perMinute, burst int, log *zap.Logger) *SendRateLimiter {
	if burst < 1 {
		burst = 1
	}

	return &SendRateLimiter{
		limiters: cache.NewLocalCache(10000, 30*time.Minute),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		log:      log,
	}
}

// Limit 发信限流中间件，挂在认证之后
func (l *SendRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rate <= 0 {
			c.Next()
			return
		}

		userID := c.GetString("userID")
		if userID == "" {
			c.Next()
			return
		}

		if !l.allow(userID) {
			l.log.Warn("send rate limited",
				zap.String("user_id", userID),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"detail": "发送过于频繁，请稍后重试"},
			})
			return
		}

		c.Next()
	}
}

// allow 判断该用户当前是否放行
func (l *SendRateLimiter) allow(userID string) bool {
	var limiter *rate.Limiter
	if val, ok := l.limiters.Get(userID); ok {
		limiter = val.(*rate.Limiter)
	} else {
		// 加锁做双重检查，避免并发创建两个桶
		l.mu.Lock()
		if val, ok := l.limiters.Get(userID); ok {
			limiter = val.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(l.rate, l.burst)
		}
		l.limiters.Set(userID, limiter, 0)
		l.mu.Unlock()
		return limiter.Allow()
	}

	// 刷新 TTL，活跃用户的桶不被回收
	l.limiters.Set(userID, limiter, 0)
	return limiter.Allow()
}

// AuthRateLimit 认证端点按 IP 限流
//
// 计数走存储层（Redis 部署下多实例共享），防止暴力撞库。
func AuthRateLimit(store storage.RateLimitRepository, log *zap.Logger, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "auth:" + c.ClientIP()

		count, err := store.IncrementRateLimit(key, window)
		if err != nil {
			// 限流器故障时放行，不让它挡住登录
			log.Error("rate limit store failure", zap.Error(err))
			c.Next()
			return
		}

		if count > max {
			log.Warn("auth rate limited",
				zap.String("ip", c.ClientIP()),
				zap.Int64("count", count),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"detail": "操作过于频繁，请稍后重试"},
			})
			return
		}

		c.Next()
	}
}
