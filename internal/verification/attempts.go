package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"certiva/pkg/requestcontext"
)

// AttemptLimiter throttles owner confirmation attempts per ID number. The
// OTP is a 6-digit code, so an unthrottled confirm endpoint invites brute
// force; the limiter bounds failures inside a sliding window. A successful
// confirm clears the counter.
type AttemptLimiter interface {
	// Allow reports whether another confirm attempt may proceed.
	Allow(ctx context.Context, idNo string) (bool, error)
	RecordFailure(ctx context.Context, idNo string) error
	Clear(ctx context.Context, idNo string) error
}

// NopLimiter never throttles. Wired when throttling is disabled.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (NopLimiter) RecordFailure(context.Context, string) error { return nil }
func (NopLimiter) Clear(context.Context, string) error         { return nil }

// InMemoryLimiter counts failures in process memory.
type InMemoryLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	failures map[string][]time.Time
}

func NewInMemoryLimiter(limit int, window time.Duration) *InMemoryLimiter {
	return &InMemoryLimiter{
		limit:    limit,
		window:   window,
		failures: make(map[string][]time.Time),
	}
}

func (l *InMemoryLimiter) Allow(ctx context.Context, idNo string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(idNo, requestcontext.Now(ctx))) < l.limit, nil
}

func (l *InMemoryLimiter) RecordFailure(ctx context.Context, idNo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := requestcontext.Now(ctx)
	l.failures[idNo] = append(l.prune(idNo, now), now)
	return nil
}

func (l *InMemoryLimiter) Clear(_ context.Context, idNo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, idNo)
	return nil
}

// prune drops failures that fell out of the window. Caller holds the lock.
func (l *InMemoryLimiter) prune(idNo string, now time.Time) []time.Time {
	kept := l.failures[idNo][:0]
	for _, t := range l.failures[idNo] {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, idNo)
		return nil
	}
	l.failures[idNo] = kept
	return kept
}

// RedisLimiter counts failures in Redis so the throttle holds across
// replicas. Uses a counter with the window as its TTL; the window is fixed
// rather than sliding, which is close enough for a brute-force bound.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func attemptKey(idNo string) string {
	return "certiva:confirm-attempts:" + idNo
}

func (l *RedisLimiter) Allow(ctx context.Context, idNo string) (bool, error) {
	count, err := l.client.Get(ctx, attemptKey(idNo)).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get confirm attempts: %w", err)
	}
	return count < l.limit, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, idNo string) error {
	key := attemptKey(idNo)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record confirm attempt: %w", err)
	}
	return nil
}

func (l *RedisLimiter) Clear(ctx context.Context, idNo string) error {
	if err := l.client.Del(ctx, attemptKey(idNo)).Err(); err != nil {
		return fmt.Errorf("clear confirm attempts: %w", err)
	}
	return nil
}
