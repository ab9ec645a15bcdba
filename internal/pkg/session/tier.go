package session

import (
	"context"
	"sync"

	xerrors "swiftel-client/internal/pkg/errors"
)

// Tier is one storage lifetime for the session token.
type Tier interface {
	// Get returns xerrors.ErrNoToken when nothing is stored under key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, token string) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// MemoryTier is the tab-scoped tier: it lives exactly as long as the process.
type MemoryTier struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryTier() *MemoryTier {
	return &MemoryTier{values: make(map[string]string)}
}

func (m *MemoryTier) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", xerrors.ErrNoToken
	}
	return v, nil
}

func (m *MemoryTier) Set(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = token
	return nil
}

func (m *MemoryTier) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
