// Package memory provides the in-memory identity store used in development
// and tests. It favors clarity over performance: one RWMutex guards the whole
// table, which trivially gives atomic check-then-insert and at-most-one-writer
// semantics per username.
package memory

import (
	"context"
	"sync"

	"nexus/internal/identity/models"
	"nexus/internal/identity/store"
	"nexus/pkg/email"
)

type Store struct {
	mu         sync.RWMutex
	byUsername map[string]models.Identity
}

func New() *Store {
	return &Store{byUsername: make(map[string]models.Identity)}
}

func (s *Store) Create(_ context.Context, identity models.Identity) (models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[identity.Username]; exists {
		return models.Identity{}, store.ErrUsernameTaken
	}
	// Email uniqueness only binds human identities; AI placeholder addresses
	// are excluded from the check.
	if identity.Kind == models.KindHuman {
		for _, other := range s.byUsername {
			if other.Kind == models.KindHuman && other.Email == identity.Email {
				return models.Identity{}, store.ErrEmailTaken
			}
		}
	}

	s.byUsername[identity.Username] = identity.Clone()
	return identity.Clone(), nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.byUsername[username]; ok {
		return identity.Clone(), nil
	}
	return models.Identity{}, store.ErrNotFound
}

func (s *Store) FindByLogin(_ context.Context, emailOrUsername string) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.byUsername[emailOrUsername]; ok {
		return identity.Clone(), nil
	}
	// Stored emails are normalized at registration, so the email side of the
	// lookup normalizes too.
	addr := email.Normalize(emailOrUsername)
	for _, identity := range s.byUsername {
		if identity.Email == addr {
			return identity.Clone(), nil
		}
	}
	return models.Identity{}, store.ErrNotFound
}

func (s *Store) Update(_ context.Context, username string, mutate func(*models.Identity) error) (models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byUsername[username]
	if !ok {
		return models.Identity{}, store.ErrNotFound
	}
	if current.Sealed {
		return models.Identity{}, store.ErrSealed
	}

	working := current.Clone()
	if err := mutate(&working); err != nil {
		return models.Identity{}, err
	}

	// Identity metadata is immutable regardless of what the mutator did.
	working.ID = current.ID
	working.Username = current.Username
	working.Kind = current.Kind
	working.CreatedAt = current.CreatedAt

	s.byUsername[username] = working
	return working.Clone(), nil
}
