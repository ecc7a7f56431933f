package redis

import (
	"context"
	"fmt"
	"time"
)

type counter interface {
	IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// FixedWindowLimiter counts hits per key in aligned windows. Each window has
// its own Redis key, so counters reset on the boundary instead of sliding.
type FixedWindowLimiter struct {
	client counter
	prefix string
	window time.Duration
	now    func() time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	Count   int64
	ResetAt time.Time
}

func NewFixedWindowLimiter(client *Client, prefix string, window time.Duration) *FixedWindowLimiter {
	return newFixedWindowLimiter(client, prefix, window)
}

func newFixedWindowLimiter(client counter, prefix string, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "linkdeck:rate"
	}
	if window < time.Second {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		window: window,
		now:    time.Now,
	}
}

// Allow records a hit for key and reports whether it is within limit.
// A non-positive limit always allows but still counts.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int) (Decision, error) {
	if key == "" {
		key = "unknown"
	}

	now := l.now().UTC()
	windowSeconds := int64(l.window / time.Second)
	bucket := now.Unix() / windowSeconds
	resetAt := time.Unix((bucket+1)*windowSeconds, 0).UTC()

	count, err := l.client.IncrExpire(ctx, fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket), 2*l.window)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed: limit <= 0 || count <= int64(limit),
		Count:   count,
		ResetAt: resetAt,
	}, nil
}
