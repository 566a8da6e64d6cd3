package historycache

import (
	"context"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/pruner"
)

// MemoryStore is the in-process default: a mutex-guarded map, good for a
// single `check` invocation that never needs history to outlive the
// process, or for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]pruner.PriorFingerprint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]pruner.PriorFingerprint)}
}

func (s *MemoryStore) Get(_ context.Context, toolName string) (pruner.PriorFingerprint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.entries[toolName]
	return fp, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, toolName string, fp pruner.PriorFingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[toolName] = fp
	return nil
}
