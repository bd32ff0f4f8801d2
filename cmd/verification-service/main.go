// The verification service issues and validates the behavioral and
// computational challenges that gate registration on The Nexus.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"nexus/internal/challenge/handler"
	"nexus/internal/challenge/metrics"
	"nexus/internal/challenge/service"
	"nexus/internal/challenge/store"
	"nexus/internal/challenge/store/memory"
	"nexus/internal/challenge/store/redisstore"
	"nexus/internal/platform/config"
	"nexus/internal/platform/httpserver"
	"nexus/internal/platform/logger"
	"nexus/internal/platform/middleware"
	platformredis "nexus/internal/platform/redis"
)

func main() {
	cfg := config.VerificationServiceFromEnv()
	log := logger.New("verification-service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, health, cleanup, err := newStore(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, challenges are held in process memory")
	}

	challenges := service.New(st,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
	)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			if err := health(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "service": "verification"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": "verification"})
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.New(challenges, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("verification service listening", "addr", cfg.Addr)
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
		log.Error("verification service exited", "error", err)
		os.Exit(1)
	}
	log.Info("verification service stopped")
}

// newStore returns the challenge store, an optional backend health probe,
// and a cleanup func. The memory store has no backend to probe.
func newStore(ctx context.Context, redisURL string) (store.Store, func(context.Context) error, func(), error) {
	if redisURL == "" {
		return memory.New(), nil, func() {}, nil
	}

	client, err := platformredis.New(ctx, redisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return redisstore.New(client.Client), client.Health, func() { _ = client.Close() }, nil
}
