package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
)

var (
	errClientMissing = errors.New("lock client not configured")
	errEmptyKey      = errors.New("lock key is empty")
	errInvalidTTL    = errors.New("lock ttl must be positive")
)

// RedisLocker holds locks across processes. Obtained leases are kept in
// memory until released by the run that took them.
type RedisLocker struct {
	client *redislock.Client

	mu   sync.Mutex
	held map[string]*redislock.Lock
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	if client == nil {
		return nil
	}
	return &RedisLocker{
		client: redislock.New(client),
		held:   make(map[string]*redislock.Lock),
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errClientMissing
	}
	if err := checkArgs(key, ttl); err != nil {
		return "", false, err
	}

	lease, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	token := lease.Token()
	l.mu.Lock()
	l.held[heldKey(key, token)] = lease
	l.mu.Unlock()
	return token, true, nil
}

func (l *RedisLocker) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return false, errClientMissing
	}
	if err := checkArgs(key, ttl); err != nil {
		return false, err
	}

	l.mu.Lock()
	lease, ok := l.held[heldKey(key, token)]
	l.mu.Unlock()
	if !ok {
		return false, nil
	}

	err := lease.Refresh(ctx, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release frees a lease taken by this process. Unknown or expired leases are ignored.
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}

	l.mu.Lock()
	lease, ok := l.held[heldKey(key, token)]
	delete(l.held, heldKey(key, token))
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := lease.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return err
	}
	return nil
}

func heldKey(key, token string) string {
	return key + "\x00" + token
}

func checkArgs(key string, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if ttl <= 0 {
		return errInvalidTTL
	}
	return nil
}
