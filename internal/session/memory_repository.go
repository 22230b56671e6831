package session

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Fields
}

// NewMemoryRepository builds an in-memory session store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{sessions: make(map[string]Fields)}
}

func (r *memoryRepository) Load(_ context.Context, clientID string) (Fields, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.sessions[clientID]
	if !ok {
		return Fields{}, ErrNotFound
	}
	return f, nil
}

func (r *memoryRepository) Save(_ context.Context, clientID string, fields Fields) error {
	if !fields.Complete() {
		return ErrIncomplete
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = fields
	return nil
}

func (r *memoryRepository) Clear(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, clientID)
	return nil
}
