package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	importhandler "github.com/FACorreiaa/statement-importer/internal/domain/import/handler"
	"github.com/FACorreiaa/statement-importer/pkg/config"
	"github.com/FACorreiaa/statement-importer/pkg/middleware"
)

// pinger reports whether the database is reachable.
type pinger func(ctx context.Context) error

func newRouter(cfg config.ServerConfig, importHandler *importhandler.ImportHandler, ping pinger, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if err := ping(ctx); err != nil {
			logger.Warn("health check failed", slog.Any("error", err))
			status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst).Handler)
		importHandler.Routes(r)
	})

	return r
}
