package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hiring-pipeline/pkg/utils"
)

// Locker serialises read-modify-write sequences per key.
// Lock blocks until the key is free or ctx is done. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex is an in-process Locker. Different keys never contend.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: map[string]*slot{}}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.drop(key, s)
		})
	}, nil
}

func (k *KeyedMutex) drop(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// ErrLockTimeout is returned when a distributed lock could not be taken before ctx ended.
var ErrLockTimeout = errors.New("workflow: lock not acquired")

// RedisLocker is a Locker shared across API instances.
// A holder that outlives TTL loses the lock; keep TTL above the slowest store round trip.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: "hiring:lock:", ttl: ttl, poll: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := utils.AcquireLock(ctx, l.rdb, fullKey, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("workflow: acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even if the request context is already cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, _ = utils.ReleaseLock(rctx, l.rdb, fullKey, token)
		})
	}, nil
}
