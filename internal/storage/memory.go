package storage

import (
	"context"
	"math"
	"strings"
	"sync"
)

// Memory is an in-memory Engine implementation, grounded on the teacher's
// in-process map-backed store. It keeps no data past process lifetime and
// is used for tests and for backends whose storage type is not "badger".
type Memory struct {
	mu    sync.RWMutex
	kv    map[string]string
	lists map[string][]string
	clock uint64
}

// NewMemory creates an empty in-memory engine.
func NewMemory() *Memory {
	return &Memory{
		kv:    make(map[string]string),
		lists: make(map[string][]string),
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *Memory) Keys(ctx context.Context, prefix, suffix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.kv {
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, suffix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *Memory) ListGet(ctx context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.lists[key]))
	copy(out, m.lists[key])
	return out, nil
}

func (m *Memory) ListAppend(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], value)
	return nil
}

func (m *Memory) ListRemove(ctx context.Context, key, value string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.lists[key]
	if len(cur) == 0 {
		return 0, nil
	}
	kept := cur[:0:0]
	removed := 0
	for _, v := range cur {
		if v == value {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	m.lists[key] = kept
	return removed, nil
}

func (m *Memory) ListKeys(ctx context.Context, prefix, suffix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.lists {
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, suffix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Clock advances the engine's monotonic clock to max(prev+1, atLeast),
// saturating at math.MaxUint64 rather than wrapping (spec.md §3).
func (m *Memory) Clock(ctx context.Context, atLeast uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.clock
	if next < math.MaxUint64 {
		next++
	}
	if atLeast > next {
		next = atLeast
	}
	m.clock = next
	return m.clock, nil
}

func (m *Memory) Close() error { return nil }
