// Package memory provides an in-memory challenge store for development and
// tests. Expired entries are dropped lazily on Consume.
package memory

import (
	"context"
	"sync"

	"nexus/internal/challenge/models"
	"nexus/internal/challenge/store"
)

type Store struct {
	mu   sync.Mutex
	byID map[string]models.Challenge
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{byID: make(map[string]models.Challenge)}
}

func (s *Store) Save(_ context.Context, ch models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[ch.ID] = ch
	return nil
}

func (s *Store) Consume(_ context.Context, id string) (models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.byID[id]
	if !ok {
		return models.Challenge{}, store.ErrNotFound
	}
	delete(s.byID, id)
	return ch, nil
}
