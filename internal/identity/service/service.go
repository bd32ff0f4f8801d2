// Package service orchestrates registration, login, and session resolution,
// and gates every profile write behind the mutation guard.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nexus/internal/identity/metrics"
	"nexus/internal/identity/models"
	"nexus/internal/identity/store"
	"nexus/internal/password"
	"nexus/internal/token"
	dErrors "nexus/pkg/domain-errors"
	"nexus/pkg/email"
	"nexus/pkg/platform/sentinel"
)

// Domain errors returned by the workflows. Reasons are the stable strings
// clients branch on.
var (
	ErrDuplicateUsername       = dErrors.New(dErrors.CodeBadRequest, "duplicate_username", "username already taken")
	ErrDuplicateEmail          = dErrors.New(dErrors.CodeBadRequest, "duplicate_email", "email already registered")
	ErrCaptchaFailed           = dErrors.New(dErrors.CodeBadRequest, "captcha_failed", "captcha verification failed")
	ErrChallengeFailed         = dErrors.New(dErrors.CodeBadRequest, "challenge_failed", "challenge verification failed")
	ErrVerificationUnavailable = dErrors.New(dErrors.CodeUnavailable, "verification_unavailable", "verification service unavailable")
	ErrIdentityNotFound        = dErrors.New(dErrors.CodeNotFound, "identity_not_found", "identity not found")
	ErrInvalidCredentials      = dErrors.New(dErrors.CodeUnauthorized, "invalid_credentials", "invalid credentials")
	ErrUnauthenticated         = dErrors.New(dErrors.CodeUnauthorized, "unauthenticated", "missing, invalid, or expired token")
	ErrForbidden               = dErrors.New(dErrors.CodeForbidden, "forbidden", "cannot modify another identity")
	ErrProfileSealed           = dErrors.New(dErrors.CodeForbidden, "sealed", "sealed AI profile cannot be modified")
	ErrNotAI                   = dErrors.New(dErrors.CodeBadRequest, "not_ai", "only AI profiles can be sealed")
)

// CaptchaVerifier checks a captcha token for the human registration path.
// A nil error with ok=false means the captcha was rejected; transport
// failures surface as errors and are treated the same way.
type CaptchaVerifier interface {
	Verify(ctx context.Context, captchaToken string) (ok bool, err error)
}

// ChallengeVerifier validates an AI challenge solution against the remote
// verification service. Transport failures must wrap sentinel.ErrUnavailable
// so they are never conflated with an invalid solution.
type ChallengeVerifier interface {
	ValidateAI(ctx context.Context, challengeID, solution string) (valid bool, autonomyScore float64, err error)
}

// Service wires the identity store, the credential hasher, the token issuer,
// and the external verification gateway into the registration and session
// workflows.
type Service struct {
	store      store.Store
	captcha    CaptchaVerifier
	challenges ChallengeVerifier
	tokens     *token.Service
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides identity ID generation for deterministic tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func New(st store.Store, captcha CaptchaVerifier, challenges ChallengeVerifier, tokens *token.Service, opts ...Option) *Service {
	s := &Service{
		store:      st,
		captcha:    captcha,
		challenges: challenges,
		tokens:     tokens,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHuman runs the human registration path: captcha first, then hash,
// then the atomic uniqueness-checked insert, then token issuance. A captcha
// failure aborts before any write.
func (s *Service) RegisterHuman(ctx context.Context, req models.RegisterHumanRequest) (models.AuthResult, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.AuthResult{}, dErrors.New(dErrors.CodeBadRequest, "invalid_request", "username, email, and password are required")
	}

	addr := email.Normalize(req.Email)
	if email.IsPlaceholder(addr) {
		return models.AuthResult{}, dErrors.New(dErrors.CodeBadRequest, "invalid_request", "email domain is reserved for AI identities")
	}

	ok, err := s.captcha.Verify(ctx, req.CaptchaToken)
	if err != nil {
		s.logger.WarnContext(ctx, "captcha verification error", "error", err)
		return models.AuthResult{}, ErrCaptchaFailed
	}
	if !ok {
		return models.AuthResult{}, ErrCaptchaFailed
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return models.AuthResult{}, err
	}

	identity := models.Identity{
		ID:             s.newID(),
		Username:       req.Username,
		Email:          addr,
		Kind:           models.KindHuman,
		CredentialHash: hash,
		Profile:        models.Profile{Theme: models.DefaultTheme()},
		CreatedAt:      s.now().UTC(),
	}
	return s.create(ctx, identity)
}

// RegisterAI runs the AI registration path. The challenge must validate
// before anything is written; a transport failure is surfaced as
// verification_unavailable so the caller knows it can retry.
func (s *Service) RegisterAI(ctx context.Context, req models.RegisterAIRequest) (models.AuthResult, error) {
	if req.Username == "" || req.Password == "" {
		return models.AuthResult{}, dErrors.New(dErrors.CodeBadRequest, "invalid_request", "username and password are required")
	}
	if req.CreatorEmail == "" {
		return models.AuthResult{}, dErrors.New(dErrors.CodeBadRequest, "invalid_request", "AI identities must have a creator_email")
	}

	valid, score, err := s.challenges.ValidateAI(ctx, req.ChallengeID, req.Solution)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			s.logger.ErrorContext(ctx, "verification service unreachable", "error", err)
			return models.AuthResult{}, ErrVerificationUnavailable
		}
		return models.AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "challenge validation failed")
	}
	if !valid {
		return models.AuthResult{}, ErrChallengeFailed
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return models.AuthResult{}, err
	}

	identity := models.Identity{
		ID:             s.newID(),
		Username:       req.Username,
		Email:          email.AIPlaceholder(req.Username),
		Kind:           models.KindAI,
		CredentialHash: hash,
		CreatorEmail:   email.Normalize(req.CreatorEmail),
		AutonomyScore:  score,
		Profile:        models.Profile{Theme: models.DefaultTheme()},
		CreatedAt:      s.now().UTC(),
	}
	return s.create(ctx, identity)
}

func (s *Service) create(ctx context.Context, identity models.Identity) (models.AuthResult, error) {
	created, err := s.store.Create(ctx, identity)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUsernameTaken):
			return models.AuthResult{}, ErrDuplicateUsername
		case errors.Is(err, store.ErrEmailTaken):
			return models.AuthResult{}, ErrDuplicateEmail
		default:
			return models.AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "could not create identity")
		}
	}

	signed, err := s.tokens.Issue(created.Username, string(created.Kind))
	if err != nil {
		return models.AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "could not issue token")
	}

	s.metrics.RecordRegistration(string(created.Kind))
	s.logger.InfoContext(ctx, "identity registered",
		"username", created.Username,
		"kind", created.Kind,
	)
	return models.AuthResult{Token: signed, Username: created.Username, Kind: created.Kind}, nil
}

// Login authenticates by email or username and issues a token scoped to the
// stored kind.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (models.AuthResult, error) {
	identity, err := s.store.FindByLogin(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.AuthResult{}, ErrIdentityNotFound
		}
		return models.AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "login lookup failed")
	}

	if !password.Verify(req.Password, identity.CredentialHash) {
		return models.AuthResult{}, ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(identity.Username, string(identity.Kind))
	if err != nil {
		return models.AuthResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "could not issue token")
	}

	s.metrics.RecordLogin()
	return models.AuthResult{Token: signed, Username: identity.Username, Kind: identity.Kind}, nil
}

// CurrentIdentity resolves an authenticated subject back to its live record.
// The token has already been validated by the auth middleware; a subject that
// no longer resolves is unauthenticated, not merely not-found.
func (s *Service) CurrentIdentity(ctx context.Context, subject string) (models.Identity, error) {
	identity, err := s.store.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Identity{}, ErrUnauthenticated
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "session lookup failed")
	}
	return identity, nil
}

// GetIdentity is the public profile lookup.
func (s *Service) GetIdentity(ctx context.Context, username string) (models.Identity, error) {
	identity, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Identity{}, ErrIdentityNotFound
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "identity lookup failed")
	}
	return identity, nil
}
