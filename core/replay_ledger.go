package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultDeliveryTTL        = 10 * time.Minute
	defaultDeliveryMaxEntries = 4096
)

// MemoryReplayLedger remembers webhook delivery keys for a bounded time so a
// retried callback is acknowledged without being dispatched twice. Entries
// beyond MaxEntries are evicted oldest first.
type MemoryReplayLedger struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	expires    map[string]time.Time
	order      []string
	Now        func() time.Time
}

func NewMemoryReplayLedger(ttl time.Duration, maxEntries int) *MemoryReplayLedger {
	if ttl <= 0 {
		ttl = defaultDeliveryTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultDeliveryMaxEntries
	}
	return &MemoryReplayLedger{
		ttl:        ttl,
		maxEntries: maxEntries,
		expires:    map[string]time.Time{},
	}
}

// Claim returns true the first time key is seen within its ttl.
func (l *MemoryReplayLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("core: replay ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("core: replay key is required")
	}
	if ttl <= 0 {
		ttl = l.ttl
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.dropExpiredLocked(now)
	if expiresAt, ok := l.expires[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	for len(l.order) >= l.maxEntries {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.expires, oldest)
	}
	l.expires[key] = now.Add(ttl)
	l.order = append(l.order, key)
	return true, nil
}

// Release forgets key so a redelivery is processed again.
func (l *MemoryReplayLedger) Release(_ context.Context, key string) error {
	if l == nil {
		return fmt.Errorf("core: replay ledger is not configured")
	}
	key = strings.TrimSpace(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, key)
	for i, candidate := range l.order {
		if candidate == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

func (l *MemoryReplayLedger) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.expires)
}

func (l *MemoryReplayLedger) dropExpiredLocked(now time.Time) {
	kept := l.order[:0]
	for _, key := range l.order {
		expiresAt, ok := l.expires[key]
		if !ok {
			continue
		}
		if !now.Before(expiresAt) {
			delete(l.expires, key)
			continue
		}
		kept = append(kept, key)
	}
	l.order = kept
}

func (l *MemoryReplayLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

var (
	_ ReplayLedger   = (*MemoryReplayLedger)(nil)
	_ ReplayReleaser = (*MemoryReplayLedger)(nil)
)
