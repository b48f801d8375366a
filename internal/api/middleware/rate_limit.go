package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/contest-communication/pkg/response"
)

const defaultMaxTokens = 10000

// TokenLimiter 按路径中的 token 限流；只保留最近访问的 maxTokens 个 token 的桶
type TokenLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	every    rate.Limit
	burst    int
}

// NewTokenLimiter allows perMinute requests per token with the given burst.
// A non-positive perMinute disables limiting. At most maxTokens buckets are
// kept; an evicted token starts again with a full bucket.
func NewTokenLimiter(perMinute float64, burst, maxTokens int) *TokenLimiter {
	if burst <= 0 {
		burst = 1
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	l := rate.Inf
	if perMinute > 0 {
		l = rate.Every(time.Duration(float64(time.Minute) / perMinute))
	}
	// lru.New 只在 size <= 0 时返回错误
	limiters, _ := lru.New[string, *rate.Limiter](maxTokens)
	return &TokenLimiter{limiters: limiters, every: l, burst: burst}
}

func (t *TokenLimiter) get(token string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters.Get(token)
	if !ok {
		l = rate.NewLimiter(t.every, t.burst)
		t.limiters.Add(token, l)
	}
	return l
}

// Len 当前跟踪的 token 数
func (t *TokenLimiter) Len() int { return t.limiters.Len() }

// Allow reports whether one more request for token may proceed now.
func (t *TokenLimiter) Allow(token string) bool { return t.get(token).Allow() }

// Middleware 读取路由参数 token
func (t *TokenLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.Allow(c.Param("token")) {
			response.TooManyRequests(c, "too many questions, slow down")
			return
		}
		c.Next()
	}
}
