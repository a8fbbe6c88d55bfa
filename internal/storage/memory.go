// Package storage provides narration history implementations.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Compile-time interface check.
var _ domain.NarrationStore = (*MemoryStore)(nil)

// DefaultCapacity bounds how many narrations are remembered.
const DefaultCapacity = 32

// MemoryStore is an in-memory narration history, oldest first. Safe for
// concurrent access.
type MemoryStore struct {
	mu         sync.RWMutex
	narrations []*domain.Narration
	capacity   int
	log        *logger.Logger
}

// NewMemoryStore creates an empty store holding at most capacity entries
// (DefaultCapacity if capacity <= 0).
func NewMemoryStore(capacity int, log *logger.Logger) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity, log: log}
}

// Save appends a narration, assigning an ID and timestamp when missing.
// The oldest entry is dropped once the store is full.
func (s *MemoryStore) Save(ctx context.Context, n *domain.Narration) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.SpokenAt.IsZero() {
		n.SpokenAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.narrations = append(s.narrations, n)
	if over := len(s.narrations) - s.capacity; over > 0 {
		s.narrations = s.narrations[over:]
	}
	s.log.Debug("saved narration %s (source=%s, count=%d)", n.ID, n.Source, len(s.narrations))
	return nil
}

// Latest returns the most recent narration.
func (s *MemoryStore) Latest(ctx context.Context) (*domain.Narration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.narrations) == 0 {
		return nil, domain.ErrNotFound
	}
	return s.narrations[len(s.narrations)-1], nil
}

// List returns every remembered narration, oldest first.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.Narration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Narration, len(s.narrations))
	copy(out, s.narrations)
	return out, nil
}
