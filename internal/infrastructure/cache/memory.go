package cache

import (
	"context"
	"sync"
	"time"

	"change-approval/pkg/clock"
)

// MemoryKV is an in-process expiring key-value store. Expiry follows the
// injected clock.
type MemoryKV struct {
	clock clock.Clock
	mu    sync.Mutex
	items map[string]memItem
}

type memItem struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryKV(c clock.Clock) *MemoryKV {
	return &MemoryKV{clock: c, items: map[string]memItem{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !it.expiresAt.IsZero() && !m.clock.Now().Before(it.expiresAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	return it.value, true, nil
}

// Set stores value; ttl <= 0 means no expiry.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	it := memItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = m.clock.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}
