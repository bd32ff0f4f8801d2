package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nexus/internal/challenge/metrics"
	"nexus/internal/challenge/models"
	"nexus/internal/challenge/store"
)

const (
	humanPrompt = "Move your cursor naturally to the target. Pause occasionally. Be human."

	// The score reported for a passed computational challenge. There is only
	// one difficulty tier today, so the score is flat.
	passingAutonomyScore = 0.95

	aiTimeLimitMS = 5000
	aiDifficulty  = 1
)

// Service issues and validates verification challenges for both account
// kinds. Challenges are single use; validation consumes them regardless of
// outcome.
type Service struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides challenge ID generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHumanChallenge issues a behavioral challenge with a five minute window.
func (s *Service) NewHumanChallenge(ctx context.Context) (models.HumanChallenge, error) {
	ch := models.Challenge{
		ID:        s.newID(),
		Kind:      models.KindHuman,
		ExpiresAt: s.now().Add(models.HumanTTL),
	}
	if err := s.store.Save(ctx, ch); err != nil {
		return models.HumanChallenge{}, fmt.Errorf("save human challenge: %w", err)
	}

	s.metrics.RecordIssued(string(models.KindHuman))
	s.logger.InfoContext(ctx, "human challenge issued", "challenge_id", ch.ID)

	return models.HumanChallenge{
		ID:        ch.ID,
		Type:      "behavioral",
		Prompt:    humanPrompt,
		ExpiresAt: ch.ExpiresAt,
	}, nil
}

// NewAIChallenge issues a computational challenge with a one minute window.
// The expected answer is derived from the challenge ID and stored alongside
// it so validation does not have to re-derive the payload.
func (s *Service) NewAIChallenge(ctx context.Context) (models.AIChallenge, error) {
	id := s.newID()
	if len(id) < 8 {
		return models.AIChallenge{}, fmt.Errorf("challenge id too short: %q", id)
	}
	seed := id[:8]

	ch := models.Challenge{
		ID:        id,
		Kind:      models.KindAI,
		Answer:    solutionFor(seed),
		ExpiresAt: s.now().Add(models.AITTL),
	}
	if err := s.store.Save(ctx, ch); err != nil {
		return models.AIChallenge{}, fmt.Errorf("save ai challenge: %w", err)
	}

	s.metrics.RecordIssued(string(models.KindAI))
	s.logger.InfoContext(ctx, "ai challenge issued", "challenge_id", ch.ID)

	return models.AIChallenge{
		ID:         id,
		Type:       "computational",
		Difficulty: aiDifficulty,
		Payload:    fmt.Sprintf("Compute SHA-256 of '%s' and return the first 8 hex chars", seed),
		TimeLimit:  aiTimeLimitMS,
		ExpiresAt:  ch.ExpiresAt,
	}, nil
}

// ValidateHuman consumes a behavioral challenge. Any response within the
// window passes; the behavioral scoring itself happens client side.
func (s *Service) ValidateHuman(ctx context.Context, challengeID string) (models.ValidationResult, error) {
	ch, err := s.consume(ctx, challengeID, models.KindHuman)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.RecordValidation(string(models.KindHuman), false)
			return models.ValidationResult{Message: "Challenge not found or expired"}, nil
		}
		return models.ValidationResult{}, err
	}

	if ch.Expired(s.now()) {
		s.metrics.RecordValidation(string(models.KindHuman), false)
		return models.ValidationResult{Message: "Challenge expired"}, nil
	}

	s.metrics.RecordValidation(string(models.KindHuman), true)
	return models.ValidationResult{Valid: true, Message: "Human verification passed"}, nil
}

// ValidateAI consumes a computational challenge and checks the solution.
func (s *Service) ValidateAI(ctx context.Context, challengeID, solution string) (models.AIValidationResult, error) {
	ch, err := s.consume(ctx, challengeID, models.KindAI)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.RecordValidation(string(models.KindAI), false)
			return models.AIValidationResult{Message: "Challenge not found or expired"}, nil
		}
		return models.AIValidationResult{}, err
	}

	if ch.Expired(s.now()) {
		s.metrics.RecordValidation(string(models.KindAI), false)
		return models.AIValidationResult{Message: "Challenge expired"}, nil
	}

	if solution != ch.Answer {
		s.metrics.RecordValidation(string(models.KindAI), false)
		s.logger.InfoContext(ctx, "ai challenge failed", "challenge_id", challengeID)
		return models.AIValidationResult{Message: "Incorrect solution"}, nil
	}

	s.metrics.RecordValidation(string(models.KindAI), true)
	return models.AIValidationResult{
		Valid:         true,
		AutonomyScore: passingAutonomyScore,
		Message:       "AI verification passed - autonomy confirmed",
	}, nil
}

// consume fetches and deletes the challenge, rejecting cross-track use so a
// behavioral ID cannot be replayed against the computational endpoint.
func (s *Service) consume(ctx context.Context, id string, kind models.Kind) (models.Challenge, error) {
	ch, err := s.store.Consume(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Challenge{}, err
		}
		return models.Challenge{}, fmt.Errorf("consume challenge: %w", err)
	}
	if ch.Kind != kind {
		return models.Challenge{}, store.ErrNotFound
	}
	return ch, nil
}

func solutionFor(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:8]
}
