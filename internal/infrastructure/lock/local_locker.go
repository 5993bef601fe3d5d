package lock

import (
	"context"
	"sync"
	"time"

	"github.com/mgallardo/gamestore/internal/domain/settlement"
)

// LocalLocker is the single-instance fallback used when no Redis address
// is configured. Keys are tracked in process memory, so it only protects
// against concurrent settlements inside this one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (settlement.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, settlement.ErrInFlight
	}
	l.held[key] = struct{}{}
	return &localLock{locker: l, key: key}, nil
}

type localLock struct {
	locker *LocalLocker
	key    string
	once   sync.Once
}

func (l *localLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		delete(l.locker.held, l.key)
		l.locker.mu.Unlock()
	})
	return nil
}
