package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_RateLimiter_BlocksOverLimit(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		req.True(rl.Allow("client-a"))
	}
	req.False(rl.Allow("client-a"))

	// Independent keys have independent windows.
	req.True(rl.Allow("client-b"))
}

func Test_RateLimiter_WindowSlides(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(2, 50*time.Millisecond)

	req.True(rl.Allow("client-a"))
	req.True(rl.Allow("client-a"))
	req.False(rl.Allow("client-a"))

	time.Sleep(60 * time.Millisecond)
	req.True(rl.Allow("client-a"))
}
