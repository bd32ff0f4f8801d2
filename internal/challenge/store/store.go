package store

import (
	"context"

	"nexus/internal/challenge/models"
	"nexus/pkg/platform/sentinel"
)

// ErrNotFound is returned when a challenge does not exist or was already
// consumed.
var ErrNotFound = sentinel.ErrNotFound

// Store holds issued challenges until they are validated or expire.
type Store interface {
	// Save records a freshly issued challenge.
	Save(ctx context.Context, ch models.Challenge) error

	// Consume removes the challenge and returns it. Each challenge can be
	// consumed exactly once; a second call returns ErrNotFound.
	Consume(ctx context.Context, id string) (models.Challenge, error)
}
