// Package handler is the thin HTTP layer over the identity service. It
// decodes and validates requests, delegates to the service, and translates
// domain errors into JSON responses.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"nexus/internal/identity/models"
	"nexus/internal/identity/service"
	"nexus/internal/platform/middleware"
	domainerrors "nexus/pkg/domain-errors"
)

type Handler struct {
	identity  *service.Service
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func New(identity *service.Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		identity:  identity,
		validator: validator,
		logger:    logger,
	}
}

// Register wires all identity routes onto the router. Registration and login
// are public; everything under /auth/me and the /users write paths requires a
// bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register/human", h.handleRegisterHuman)
	r.Post("/auth/register/ai", h.handleRegisterAI)
	r.Post("/auth/login", h.handleLogin)
	r.Get("/users/{username}", h.handleGetUser)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/auth/me", h.handleMe)
		r.Patch("/users/{username}/profile", h.handleUpdateProfile)
		r.Put("/users/{username}/avatar", h.handleUpdateAvatar)
		r.Post("/users/{username}/seal", h.handleSeal)
	})
}

func (h *Handler) handleRegisterHuman(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterHumanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalid(w, r, "invalid request body")
		return
	}
	if !govalidator.StringLength(req.Username, "3", "32") {
		h.writeInvalid(w, r, "username must be 3-32 characters")
		return
	}
	// An email-shaped username would shadow that address in the login
	// namespace, since login resolves usernames before emails.
	if govalidator.IsEmail(req.Username) {
		h.writeInvalid(w, r, "username must not be an email address")
		return
	}
	if !govalidator.IsEmail(req.Email) {
		h.writeInvalid(w, r, "invalid email address")
		return
	}
	if !govalidator.StringLength(req.Password, "8", "72") {
		h.writeInvalid(w, r, "password must be 8-72 characters")
		return
	}

	result, err := h.identity.RegisterHuman(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRegisterAI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalid(w, r, "invalid request body")
		return
	}
	if !govalidator.StringLength(req.Username, "3", "32") {
		h.writeInvalid(w, r, "username must be 3-32 characters")
		return
	}
	if govalidator.IsEmail(req.Username) {
		h.writeInvalid(w, r, "username must not be an email address")
		return
	}
	if !govalidator.IsEmail(req.CreatorEmail) {
		h.writeInvalid(w, r, "invalid creator email address")
		return
	}
	if !govalidator.StringLength(req.Password, "8", "72") {
		h.writeInvalid(w, r, "password must be 8-72 characters")
		return
	}
	if req.ChallengeID == "" || req.Solution == "" {
		h.writeInvalid(w, r, "challenge_id and solution are required")
		return
	}

	result, err := h.identity.RegisterAI(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalid(w, r, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeInvalid(w, r, "email and password are required")
		return
	}

	result, err := h.identity.Login(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := h.identity.CurrentIdentity(ctx, middleware.Username(ctx))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identity.View())
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := h.identity.GetIdentity(ctx, chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identity.View())
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var update models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeInvalid(w, r, "invalid request body")
		return
	}

	identity, err := h.identity.UpdateProfile(ctx, middleware.Username(ctx), chi.URLParam(r, "username"), update)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated",
		"user":    identity.View(),
	})
}

func (h *Handler) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		AvatarConfig json.RawMessage `json:"avatar_config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalid(w, r, "invalid request body")
		return
	}

	identity, err := h.identity.UpdateAvatar(ctx, middleware.Username(ctx), chi.URLParam(r, "username"), req.AvatarConfig)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Avatar updated",
		"avatar_config": identity.AvatarConfig,
	})
}

func (h *Handler) handleSeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := chi.URLParam(r, "username")

	if _, err := h.identity.Seal(ctx, middleware.Username(ctx), target); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("AI profile '%s' is now sealed. Sovereignty locked.", target),
	})
}

func (h *Handler) writeInvalid(w http.ResponseWriter, r *http.Request, message string) {
	h.writeError(w, r, domainerrors.New(domainerrors.CodeBadRequest, "invalid_request", message))
}

// writeError centralizes domain error translation so every endpoint produces
// the same JSON envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := domainerrors.StatusOf(err)
	reason := domainerrors.ReasonOf(err)
	if reason == "" {
		reason = "internal"
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			"request_id", middleware.GetRequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, "request rejected",
			"request_id", middleware.GetRequestID(ctx),
			"path", r.URL.Path,
			"reason", reason,
		)
	}

	body := map[string]string{"error": reason}
	var derr *domainerrors.Error
	if errors.As(err, &derr) && derr.Message != "" {
		body["message"] = derr.Message
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
