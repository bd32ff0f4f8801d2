// Package handler exposes the verification service's HTTP API. Validation
// outcomes are always 200 with a valid flag; only malformed requests and
// store failures produce error statuses.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nexus/internal/challenge/models"
	"nexus/internal/challenge/service"
	"nexus/internal/platform/middleware"
)

type Handler struct {
	challenges *service.Service
	logger     *slog.Logger
}

func New(challenges *service.Service, logger *slog.Logger) *Handler {
	return &Handler{challenges: challenges, logger: logger}
}

// Register wires the verification routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1/verify", func(r chi.Router) {
		r.Post("/human/challenge", h.handleHumanChallenge)
		r.Post("/human/validate", h.handleHumanValidate)
		r.Post("/ai/challenge", h.handleAIChallenge)
		r.Post("/ai/validate", h.handleAIValidate)
	})
}

func (h *Handler) handleHumanChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.challenges.NewHumanChallenge(r.Context())
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *Handler) handleHumanValidate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	result, err := h.challenges.ValidateHuman(r.Context(), req.ChallengeID)
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAIChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.challenges.NewAIChallenge(r.Context())
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *Handler) handleAIValidate(w http.ResponseWriter, r *http.Request) {
	var req models.AIValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	result, err := h.challenges.ValidateAI(r.Context(), req.ChallengeID, req.Solution)
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "challenge operation failed",
		"request_id", middleware.GetRequestID(r.Context()),
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
