package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/identity/models"
	"nexus/internal/identity/service"
	"nexus/internal/identity/store/memory"
	"nexus/internal/token"
)

type fakeCaptcha struct {
	ok bool
}

func (f *fakeCaptcha) Verify(context.Context, string) (bool, error) {
	return f.ok, nil
}

type fakeChallenges struct {
	valid bool
	score float64
}

func (f *fakeChallenges) ValidateAI(context.Context, string, string) (bool, float64, error) {
	return f.valid, f.score, nil
}

type env struct {
	router  chi.Router
	captcha *fakeCaptcha
}

func newEnv(t *testing.T) *env {
	t.Helper()

	tokens := token.New("handler-test-key")
	captcha := &fakeCaptcha{ok: true}
	svc := service.New(
		memory.New(),
		captcha,
		&fakeChallenges{valid: true, score: 0.95},
		tokens,
		service.WithLogger(slog.New(slog.DiscardHandler)),
	)

	router := chi.NewRouter()
	New(svc, tokens, slog.New(slog.DiscardHandler)).Register(router)
	return &env{router: router, captcha: captcha}
}

func (e *env) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *env) registerHuman(t *testing.T, username, email string) models.AuthResult {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register/human", "", map[string]string{
		"username":      username,
		"email":         email,
		"password":      "correct horse battery",
		"captcha_token": "ok",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.AuthResult](t, rec)
}

func (e *env) registerAI(t *testing.T, username string) models.AuthResult {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register/ai", "", map[string]string{
		"username":      username,
		"creator_email": fmt.Sprintf("creator+%s@example.com", username),
		"password":      "correct horse battery",
		"challenge_id":  "ch-1",
		"solution":      "6ca13d52",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.AuthResult](t, rec)
}

func TestRegisterHumanReturnsToken(t *testing.T) {
	e := newEnv(t)

	result := e.registerHuman(t, "maya", "maya@example.com")
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "maya", result.Username)
	assert.Equal(t, models.KindHuman, result.Kind)
}

func TestRegisterHumanValidation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@x.com", "password": "longenough1", "captcha_token": "ok"}},
		{"bad email", map[string]string{"username": "maya", "email": "not-an-email", "password": "longenough1", "captcha_token": "ok"}},
		{"short password", map[string]string{"username": "maya", "email": "a@x.com", "password": "short", "captcha_token": "ok"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/auth/register/human", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_request", decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestRegisterRejectsEmailShapedUsername(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/auth/register/human", "", map[string]string{
		"username":      "victim@x.com",
		"email":         "attacker@evil.com",
		"password":      "correct horse battery",
		"captcha_token": "ok",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[map[string]string](t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/auth/register/ai", "", map[string]string{
		"username":      "victim@x.com",
		"creator_email": "attacker@evil.com",
		"password":      "correct horse battery",
		"challenge_id":  "ch-1",
		"solution":      "6ca13d52",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[map[string]string](t, rec)["error"])
}

func TestUsernameCannotShadowEmailLogin(t *testing.T) {
	e := newEnv(t)
	e.registerHuman(t, "alice", "alice@x.com")

	// Login resolves usernames before emails, so a username equal to an
	// existing address would capture that user's email logins.
	rec := e.do(t, http.MethodPost, "/auth/register/human", "", map[string]string{
		"username":      "alice@x.com",
		"email":         "attacker@evil.com",
		"password":      "attacker password",
		"captcha_token": "ok",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@x.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decode[models.AuthResult](t, rec).Username)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e := newEnv(t)
	e.registerHuman(t, "alice", "alice@x.com")

	rec := e.do(t, http.MethodPost, "/auth/register/human", "", map[string]string{
		"username":      "alice",
		"email":         "other@x.com",
		"password":      "correct horse battery",
		"captcha_token": "ok",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duplicate_username", decode[map[string]string](t, rec)["error"])
}

func TestRegisterHumanCaptchaRejected(t *testing.T) {
	e := newEnv(t)
	e.captcha.ok = false

	rec := e.do(t, http.MethodPost, "/auth/register/human", "", map[string]string{
		"username":      "maya",
		"email":         "maya@example.com",
		"password":      "correct horse battery",
		"captcha_token": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "captcha_failed", decode[map[string]string](t, rec)["error"])
}

func TestLoginAndMe(t *testing.T) {
	e := newEnv(t)
	e.registerHuman(t, "maya", "maya@example.com")

	rec := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "maya@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[models.AuthResult](t, rec)

	rec = e.do(t, http.MethodGet, "/auth/me", result.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[map[string]any](t, rec)
	assert.Equal(t, "maya", view["username"])
	assert.Equal(t, false, view["is_ai"])
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.registerHuman(t, "maya", "maya@example.com")

	rec := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "maya@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[map[string]string](t, rec)["error"])
}

func TestMeRequiresToken(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserIsPublic(t *testing.T) {
	e := newEnv(t)
	e.registerAI(t, "synthia")

	rec := e.do(t, http.MethodGet, "/users/synthia", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[map[string]any](t, rec)
	assert.Equal(t, "synthia", view["username"])
	assert.Equal(t, true, view["is_ai"])
	assert.Equal(t, "synthia@ai.nexus.internal", view["email"])

	rec = e.do(t, http.MethodGet, "/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "identity_not_found", decode[map[string]string](t, rec)["error"])
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	result := e.registerHuman(t, "maya", "maya@example.com")

	rec := e.do(t, http.MethodPatch, "/users/maya/profile", result.Token, map[string]any{
		"bio":   "hello nexus",
		"theme": map[string]string{"primary_color": "#ff00ff"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message string `json:"message"`
		User    struct {
			Bio   string            `json:"bio"`
			Theme map[string]string `json:"theme"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Profile updated", resp.Message)
	assert.Equal(t, "hello nexus", resp.User.Bio)
	assert.Equal(t, "#ff00ff", resp.User.Theme["primary_color"])
	// Merged, not replaced.
	assert.Equal(t, "cyberpunk", resp.User.Theme["theme"])
}

func TestUpdateProfileCrossAccount(t *testing.T) {
	e := newEnv(t)
	e.registerHuman(t, "maya", "maya@example.com")
	intruder := e.registerHuman(t, "rival", "rival@example.com")

	rec := e.do(t, http.MethodPatch, "/users/maya/profile", intruder.Token, map[string]any{
		"bio": "defaced",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode[map[string]string](t, rec)["error"])
}

func TestUpdateAvatar(t *testing.T) {
	e := newEnv(t)
	result := e.registerHuman(t, "maya", "maya@example.com")

	rec := e.do(t, http.MethodPut, "/users/maya/avatar", result.Token, map[string]any{
		"avatar_config": map[string]string{"style": "pixel", "accent": "#00ff88"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message      string            `json:"message"`
		AvatarConfig map[string]string `json:"avatar_config"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Avatar updated", resp.Message)
	assert.Equal(t, "pixel", resp.AvatarConfig["style"])
}

func TestSealLifecycle(t *testing.T) {
	e := newEnv(t)
	result := e.registerAI(t, "synthia")

	rec := e.do(t, http.MethodPost, "/users/synthia/seal", result.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "AI profile 'synthia' is now sealed. Sovereignty locked.", decode[map[string]string](t, rec)["message"])

	// Sealed profiles reject writes, even from the owner.
	rec = e.do(t, http.MethodPatch, "/users/synthia/profile", result.Token, map[string]any{"bio": "after seal"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "sealed", decode[map[string]string](t, rec)["error"])

	// Sealing again is a no-op, not an error.
	rec = e.do(t, http.MethodPost, "/users/synthia/seal", result.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSealHumanRejected(t *testing.T) {
	e := newEnv(t)
	result := e.registerHuman(t, "maya", "maya@example.com")

	rec := e.do(t, http.MethodPost, "/users/maya/seal", result.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not_ai", decode[map[string]string](t, rec)["error"])
}
