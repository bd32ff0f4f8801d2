// Package store defines the identity repository contract. Implementations
// must make Create atomic with its uniqueness checks and serialize Update per
// username, re-checking the sealed invariant under the same exclusion.
package store

import (
	"context"
	"fmt"

	"nexus/internal/identity/models"
	"nexus/pkg/platform/sentinel"
)

var (
	// ErrNotFound is returned when no identity matches the lookup key.
	ErrNotFound = sentinel.ErrNotFound

	// ErrSealed is returned by Update when the stored identity is sealed.
	ErrSealed = sentinel.ErrSealed

	// ErrUsernameTaken and ErrEmailTaken distinguish which uniqueness check
	// failed during Create. Both unwrap to sentinel.ErrConflict.
	ErrUsernameTaken = fmt.Errorf("username taken: %w", sentinel.ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email taken: %w", sentinel.ErrConflict)
)

// Store is the authoritative repository of identity records.
//
// Update applies the mutator to a copy of the stored record and persists the
// result; it never hands out a mutable reference to stored state. The sealed
// check and the write happen under the same per-username exclusion, so a
// concurrent seal and profile update cannot interleave.
//
// FindByLogin matches the key against usernames exactly and against emails
// after normalization (emails are stored normalized); a username match wins
// when a key could be either.
type Store interface {
	Create(ctx context.Context, identity models.Identity) (models.Identity, error)
	FindByUsername(ctx context.Context, username string) (models.Identity, error)
	FindByLogin(ctx context.Context, emailOrUsername string) (models.Identity, error)
	Update(ctx context.Context, username string, mutate func(*models.Identity) error) (models.Identity, error)
}
