package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards the singleton sweep: only one pass may run at a time, whether
// triggered by the interval loop or by the operator endpoint.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock returns a lease-based lock shared across instances. The TTL
// bounds how long a crashed holder can block the next sweep.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) Locker {
	return &redisLock{client: client, key: key, ttl: ttl}
}

func (l *redisLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

func (l *redisLock) Release(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}

type localLock struct {
	mu   sync.Mutex
	held bool
}

// NewLocalLock returns an in-process lock for single-instance deployments
// without Redis configured.
func NewLocalLock() Locker {
	return &localLock{}
}

func (l *localLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *localLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
