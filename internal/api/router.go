package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/notely/internal/authservice"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/ratelimit"
)

// NewRouter creates a chi router with all API routes mounted.
// limiter, if non-nil, throttles signup and login per client IP.
func NewRouter(auth *authservice.Service, notes *noteservice.Service, verifier Verifier, limiter *ratelimit.Limiter) chi.Router {
	h := NewHandler(auth, notes)
	gate := RequireAuth(verifier)

	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(limiter))
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
		})
		r.With(gate).Get("/whoami", h.Whoami)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Use(gate)
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/{id}", h.GetNote)
		r.Put("/{id}", h.UpdateNote)
		r.Delete("/{id}", h.DeleteNote)
	})

	return r
}
