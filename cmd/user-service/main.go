// The user service owns identity registration, login, and profile
// management for The Nexus. It talks to the verification service for
// captcha-equivalent checks on AI registrations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"nexus/internal/identity/handler"
	"nexus/internal/identity/metrics"
	"nexus/internal/identity/service"
	"nexus/internal/identity/store"
	"nexus/internal/identity/store/memory"
	"nexus/internal/identity/store/postgres"
	"nexus/internal/platform/config"
	"nexus/internal/platform/httpserver"
	"nexus/internal/platform/logger"
	"nexus/internal/platform/middleware"
	"nexus/internal/token"
	"nexus/internal/verification"
)

func main() {
	cfg := config.UserServiceFromEnv()
	log := logger.New("user-service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := newStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store; identities will not survive a restart")
	}

	captchaOpts := []verification.CaptchaOption{}
	if cfg.CaptchaVerifyURL != "" {
		captchaOpts = append(captchaOpts, verification.WithCaptchaVerifyURL(cfg.CaptchaVerifyURL))
	}
	captcha := verification.NewCaptchaVerifier(cfg.CaptchaSecret, log, captchaOpts...)
	challenges := verification.NewChallengeClient(cfg.VerificationServiceURL)
	tokens := token.New(cfg.JWTSigningKey)

	identity := service.New(st, captcha, challenges, tokens,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
	)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Get("/health", healthHandler("user"))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.New(identity, tokens, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("user service listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("user service exited", "error", err)
		os.Exit(1)
	}
	log.Info("user service stopped")
}

// newStore picks Postgres when configured and falls back to the in-memory
// store for local development.
func newStore(ctx context.Context, databaseURL string) (store.Store, func(), error) {
	if databaseURL == "" {
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := postgres.New(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

func healthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": service})
	}
}
