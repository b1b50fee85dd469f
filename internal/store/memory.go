package store

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.Mutex
	value int
}

func NewMemoryStore(initial int) *MemoryStore {
	return &MemoryStore{value: initial}
}

func (s *MemoryStore) Load(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *MemoryStore) Save(_ context.Context, value int) error {
	if value < 0 {
		return ErrNegative
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
