package binview

import (
	"context"

	"github.com/neogan74/tribbler/internal/backend"
	"github.com/neogan74/tribbler/internal/storage"
)

// memoryBackendClient adapts a storage.Memory engine to
// replicated.BackendClient for tests, avoiding a dependency on real
// net/rpc plumbing just to exercise the bin-scoping adapter.
type memoryBackendClient struct {
	engine *storage.Memory
}

func newMemoryBackendClient() *memoryBackendClient {
	return &memoryBackendClient{engine: storage.NewMemory()}
}

func (m *memoryBackendClient) Get(ctx context.Context, key string) (string, error) {
	v, ok, err := m.engine.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", backend.ErrNotFound
	}
	return v, nil
}

func (m *memoryBackendClient) Set(ctx context.Context, key, value string) error {
	return m.engine.Set(ctx, key, value)
}

func (m *memoryBackendClient) Keys(ctx context.Context, prefix, suffix string) ([]string, error) {
	return m.engine.Keys(ctx, prefix, suffix)
}

func (m *memoryBackendClient) ListGet(ctx context.Context, key string) ([]string, error) {
	return m.engine.ListGet(ctx, key)
}

func (m *memoryBackendClient) ListAppend(ctx context.Context, key, value string) error {
	return m.engine.ListAppend(ctx, key, value)
}

func (m *memoryBackendClient) ListRemove(ctx context.Context, key, value string) (int, error) {
	return m.engine.ListRemove(ctx, key, value)
}

func (m *memoryBackendClient) ListKeys(ctx context.Context, prefix, suffix string) ([]string, error) {
	return m.engine.ListKeys(ctx, prefix, suffix)
}

func (m *memoryBackendClient) Clock(ctx context.Context, atLeast uint64) (uint64, error) {
	return m.engine.Clock(ctx, atLeast)
}
