package verification

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultResendWindow is the minimum gap between OTP emails per address.
const DefaultResendWindow = time.Minute

// RedisLimiter rate-limits OTP sends with a per-email SETNX lock.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
}

// NewRedisLimiter creates a resend limiter.
func NewRedisLimiter(client *redis.Client, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = DefaultResendWindow
	}
	return &RedisLimiter{client: client, window: window}
}

// Allow reports whether an OTP may be sent to email right now.
func (l *RedisLimiter) Allow(ctx context.Context, email string) (bool, error) {
	return l.client.SetNX(ctx, "otp:resend:"+email, 1, l.window).Result()
}
