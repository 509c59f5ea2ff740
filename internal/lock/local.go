package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type localEntry struct {
	token     string
	expiresAt time.Time
}

// LocalLocker is the in-process fallback used when no Redis is configured.
// Entries expire after their ttl like the Redis keys do.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	nowFn func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held:  map[string]localEntry{},
		nowFn: time.Now,
	}
}

func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := checkArgs(key, ttl); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLocker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.held[key]; ok && entry.token == token {
		delete(l.held, key)
	}
	return nil
}

// Refresh extends a lease still held with token. It reports false once the
// lease expired or was taken over.
func (l *LocalLocker) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if err := checkArgs(key, ttl); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	entry, ok := l.held[key]
	if !ok || entry.token != token || !now.Before(entry.expiresAt) {
		return false, nil
	}
	entry.expiresAt = now.Add(ttl)
	l.held[key] = entry
	return true, nil
}
