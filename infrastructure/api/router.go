// Package api exposes the HTTP surface of the hub: the WebSocket endpoint,
// credential issuance, health and metrics.
package api

import (
	"chat-hub/auth"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodySize = 8 * 1024

// NewRouter mounts the routes. The WebSocket endpoint and /api/users/me sit
// behind the auth gate.
func NewRouter(log *slog.Logger, h *Handler, gate *auth.Gate, ws http.Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(chimw.RequestSize(maxBodySize))
		r.Post("/api/auth/register", h.Register)
		r.Post("/api/auth/login", h.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)
		r.Get("/api/users/me", h.Me)
		r.Handle("/ws", ws)
	})

	return r
}
