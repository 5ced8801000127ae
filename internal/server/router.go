package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/resumeqa/internal/api"
	"github.com/cloo-solutions/resumeqa/internal/api/handlers"
	"github.com/cloo-solutions/resumeqa/internal/api/middleware"
)

type RouterConfig struct {
	Logger        *slog.Logger
	APIToken      string
	AnswerHandler *handlers.AnswerHandler
	IngestHandler *handlers.IngestHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerToken(cfg.APIToken))

		r.Post("/answer", cfg.AnswerHandler.Answer)
		r.Get("/ingest/status", cfg.IngestHandler.Status)
	})

	return r
}
