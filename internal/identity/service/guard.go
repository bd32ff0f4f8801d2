package service

import (
	"context"
	"encoding/json"
	"errors"

	"nexus/internal/identity/models"
	"nexus/internal/identity/store"
	dErrors "nexus/pkg/domain-errors"
)

// The mutation guard: every write path runs through exactly one of the
// methods below. Each confirms the acting session owns the target before
// touching the store, and the store re-checks the sealed invariant under the
// same exclusion that applies the write.

func (s *Service) authorize(acting, target string) error {
	if acting != target {
		return ErrForbidden
	}
	return nil
}

// UpdateProfile applies a partial profile edit. Theme entries merge into the
// stored theme; nil fields are untouched.
func (s *Service) UpdateProfile(ctx context.Context, acting, target string, upd models.ProfileUpdate) (models.Identity, error) {
	if err := s.authorize(acting, target); err != nil {
		return models.Identity{}, err
	}

	updated, err := s.store.Update(ctx, target, func(i *models.Identity) error {
		if upd.DisplayName != nil {
			i.Profile.DisplayName = *upd.DisplayName
		}
		if upd.Bio != nil {
			i.Profile.Bio = *upd.Bio
		}
		if len(upd.Theme) > 0 {
			if i.Profile.Theme == nil {
				i.Profile.Theme = models.Theme{}
			}
			for k, v := range upd.Theme {
				i.Profile.Theme[k] = v
			}
		}
		return nil
	})
	if err != nil {
		return models.Identity{}, s.mapWriteError(err)
	}
	return updated, nil
}

// UpdateAvatar replaces the avatar configuration wholesale. The config is
// opaque to this service; rendering belongs to clients.
func (s *Service) UpdateAvatar(ctx context.Context, acting, target string, cfg json.RawMessage) (models.Identity, error) {
	if err := s.authorize(acting, target); err != nil {
		return models.Identity{}, err
	}
	if len(cfg) == 0 || !json.Valid(cfg) {
		return models.Identity{}, dErrors.New(dErrors.CodeBadRequest, "invalid_request", "avatar_config must be valid JSON")
	}

	updated, err := s.store.Update(ctx, target, func(i *models.Identity) error {
		i.AvatarConfig = append(json.RawMessage(nil), cfg...)
		return nil
	})
	if err != nil {
		return models.Identity{}, s.mapWriteError(err)
	}
	return updated, nil
}

// Seal applies the sovereignty lock: a one-way transition after which the
// profile is permanently immutable. Sealing an already-sealed identity is a
// no-op rather than an error.
func (s *Service) Seal(ctx context.Context, acting, target string) (models.Identity, error) {
	if err := s.authorize(acting, target); err != nil {
		return models.Identity{}, err
	}

	current, err := s.store.FindByUsername(ctx, target)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Identity{}, ErrIdentityNotFound
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "internal", "seal lookup failed")
	}
	if !current.IsAI() {
		return models.Identity{}, ErrNotAI
	}
	if current.Sealed {
		return current, nil
	}

	sealed, err := s.store.Update(ctx, target, func(i *models.Identity) error {
		i.Sealed = true
		return nil
	})
	if err != nil {
		// Losing the race to a concurrent seal still counts as sealed.
		if errors.Is(err, store.ErrSealed) {
			current, ferr := s.store.FindByUsername(ctx, target)
			if ferr != nil {
				return models.Identity{}, s.mapWriteError(ferr)
			}
			return current, nil
		}
		return models.Identity{}, s.mapWriteError(err)
	}

	s.metrics.RecordSeal()
	s.logger.InfoContext(ctx, "identity sealed", "username", target)
	return sealed, nil
}

func (s *Service) mapWriteError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrIdentityNotFound
	case errors.Is(err, store.ErrSealed):
		return ErrProfileSealed
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "internal", "identity update failed")
	}
}
