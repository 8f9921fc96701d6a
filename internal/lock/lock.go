// Package lock provides per-key mutual exclusion for flight and booking
// mutations, either across processes via Redis or within one process.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func FlightKey(id int64) string {
	return fmt.Sprintf("flight:%d", id)
}

func BookingKey(reference string) string {
	return "booking:" + reference
}

func PaymentKey(transactionID string) string {
	return "payment:" + transactionID
}

// Acquire takes keys in the given order and releases them in reverse. A nil
// Locker acquires nothing.
func Acquire(ctx context.Context, l Locker, keys ...string) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

type RedisLocker struct {
	rs     *redsync.Redsync
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		logger: logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	m := l.rs.NewMutex("lock:"+key, redsync.WithExpiry(l.ttl), redsync.WithTries(64))
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return func() {
		if _, err := m.UnlockContext(context.Background()); err != nil {
			l.logger.Warn("release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// KeyedLocker is the single-process Locker.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyed
}

type keyed struct {
	sem  chan struct{}
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyed)}
}

func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	k, ok := l.locks[key]
	if !ok {
		k = &keyed{sem: make(chan struct{}, 1)}
		l.locks[key] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.sem <- struct{}{}:
	case <-ctx.Done():
		l.forget(key, k)
		return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-k.sem
			l.forget(key, k)
		})
	}, nil
}

func (l *KeyedLocker) forget(key string, k *keyed) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, key)
	}
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*KeyedLocker)(nil)
)
