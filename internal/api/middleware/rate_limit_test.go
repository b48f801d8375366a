package middleware

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenLimiterPerToken(t *testing.T) {
	l := NewTokenLimiter(1, 2, 16)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	// other tokens have their own bucket
	assert.True(t, l.Allow("b"))
}

func TestTokenLimiterDisabled(t *testing.T) {
	l := NewTokenLimiter(0, 1, 16)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}

func TestTokenLimiterBoundsTrackedTokens(t *testing.T) {
	l := NewTokenLimiter(1, 1, 4)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(fmt.Sprintf("token-%d", i)))
	}
	assert.Equal(t, 4, l.Len())

	// 最近访问的 token 仍受限；被淘汰的 token 重新获得完整的桶
	assert.False(t, l.Allow("token-99"))
	assert.True(t, l.Allow("token-0"))
	assert.Equal(t, 4, l.Len())
}

func TestTokenLimiterDefaultCapacity(t *testing.T) {
	l := NewTokenLimiter(1, 1, 0)
	assert.True(t, l.Allow("a"))
	assert.Equal(t, 1, l.Len())
}
