// Package postgres implements the identity store over PostgreSQL.
//
// Uniqueness is enforced by constraints (username primary key, partial unique
// index on email for human identities), so check-and-insert is atomic at the
// database. Update serializes per username with SELECT ... FOR UPDATE and
// re-checks the sealed flag inside the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nexus/internal/identity/models"
	"nexus/internal/identity/store"
	"nexus/pkg/email"
)

// Schema creates the identities table. Applied by Migrate; integration tests
// run it against a throwaway container.
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	username        text PRIMARY KEY,
	id              text NOT NULL UNIQUE,
	email           text NOT NULL,
	kind            text NOT NULL,
	credential_hash text NOT NULL,
	sealed          boolean NOT NULL DEFAULT false,
	creator_email   text NOT NULL DEFAULT '',
	autonomy_score  double precision NOT NULL DEFAULT 0,
	synth_balance   double precision NOT NULL DEFAULT 0,
	display_name    text NOT NULL DEFAULT '',
	bio             text NOT NULL DEFAULT '',
	theme           jsonb NOT NULL DEFAULT '{}'::jsonb,
	avatar_config   jsonb,
	created_at      timestamptz NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS identities_human_email_key
	ON identities (email) WHERE kind = 'human';
`

// Store persists identities in PostgreSQL. The pool is owned by the caller.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply identities schema: %w", err)
	}
	return nil
}

const identityColumns = `username, id, email, kind, credential_hash, sealed,
	creator_email, autonomy_score, synth_balance, display_name, bio, theme,
	avatar_config, created_at`

func (s *Store) Create(ctx context.Context, identity models.Identity) (models.Identity, error) {
	theme, err := json.Marshal(identity.Profile.Theme)
	if err != nil {
		return models.Identity{}, fmt.Errorf("encode theme: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		identity.Username, identity.ID, identity.Email, string(identity.Kind),
		identity.CredentialHash, identity.Sealed, identity.CreatorEmail,
		identity.AutonomyScore, identity.SynthBalance,
		identity.Profile.DisplayName, identity.Profile.Bio, theme,
		nullableJSON(identity.AvatarConfig), identity.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "identities_human_email_key" {
				return models.Identity{}, store.ErrEmailTaken
			}
			return models.Identity{}, store.ErrUsernameTaken
		}
		return models.Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	return identity.Clone(), nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (models.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+identityColumns+` FROM identities WHERE username = $1`, username)
	return scanIdentity(row)
}

func (s *Store) FindByLogin(ctx context.Context, emailOrUsername string) (models.Identity, error) {
	// Username match wins when a value could be either. Stored emails are
	// normalized at registration, so the email side compares normalized.
	row := s.pool.QueryRow(ctx, `
		SELECT `+identityColumns+` FROM identities
		WHERE username = $1 OR email = $2
		ORDER BY username = $1 DESC
		LIMIT 1`, emailOrUsername, email.Normalize(emailOrUsername))
	return scanIdentity(row)
}

func (s *Store) Update(ctx context.Context, username string, mutate func(*models.Identity) error) (models.Identity, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Identity{}, fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx, `
		SELECT `+identityColumns+` FROM identities
		WHERE username = $1 FOR UPDATE`, username)
	current, err := scanIdentity(row)
	if err != nil {
		return models.Identity{}, err
	}
	if current.Sealed {
		return models.Identity{}, store.ErrSealed
	}

	working := current.Clone()
	if err := mutate(&working); err != nil {
		return models.Identity{}, err
	}

	theme, err := json.Marshal(working.Profile.Theme)
	if err != nil {
		return models.Identity{}, fmt.Errorf("encode theme: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE identities
		SET email = $2, credential_hash = $3, sealed = $4, creator_email = $5,
		    autonomy_score = $6, synth_balance = $7, display_name = $8,
		    bio = $9, theme = $10, avatar_config = $11
		WHERE username = $1`,
		current.Username, working.Email, working.CredentialHash, working.Sealed,
		working.CreatorEmail, working.AutonomyScore, working.SynthBalance,
		working.Profile.DisplayName, working.Profile.Bio, theme,
		nullableJSON(working.AvatarConfig),
	)
	if err != nil {
		return models.Identity{}, fmt.Errorf("update identity: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Identity{}, fmt.Errorf("commit update: %w", err)
	}

	// Identity metadata columns were never part of the UPDATE, so the stored
	// row keeps them regardless of what the mutator did.
	working.ID = current.ID
	working.Username = current.Username
	working.Kind = current.Kind
	working.CreatedAt = current.CreatedAt
	return working, nil
}

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var (
		identity  models.Identity
		kind      string
		theme     []byte
		avatar    []byte
		createdAt time.Time
	)
	err := row.Scan(
		&identity.Username, &identity.ID, &identity.Email, &kind,
		&identity.CredentialHash, &identity.Sealed, &identity.CreatorEmail,
		&identity.AutonomyScore, &identity.SynthBalance,
		&identity.Profile.DisplayName, &identity.Profile.Bio, &theme,
		&avatar, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, store.ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("scan identity: %w", err)
	}
	identity.Kind = models.Kind(kind)
	identity.CreatedAt = createdAt
	if len(theme) > 0 {
		if err := json.Unmarshal(theme, &identity.Profile.Theme); err != nil {
			return models.Identity{}, fmt.Errorf("decode theme: %w", err)
		}
	}
	if len(avatar) > 0 {
		identity.AvatarConfig = json.RawMessage(avatar)
	}
	return identity, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
