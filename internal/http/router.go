package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stallworks/marketplace/internal/idempotency"
	"github.com/stallworks/marketplace/internal/observability"
	"github.com/stallworks/marketplace/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)
		r.Use(RateLimitMiddleware(rl))
		r.Use(IdempotencyMiddleware(idemp))

		r.Post("/v1/listings", h.CreateListing)
		r.Get("/v1/listings/{id}", h.GetListing)
		r.Get("/v1/listings/{id}/revenue", h.ListingRevenue)

		r.Post("/v1/negotiations", h.CreateNegotiation)
		r.Post("/v1/negotiations/{id}/decision", h.DecideNegotiation)
		r.Get("/v1/negotiations", h.ListNegotiations)
		r.Get("/v1/organizers/me/revenue", h.OrganizerRevenue)
		r.Get("/v1/organizers/me/listings", h.ListMyListings)

		r.Get("/v1/conversations/{peer}/messages", h.ConversationHistory)
		r.Post("/v1/conversations/{peer}/messages", h.SendMessage)
		r.Get("/v1/conversations/{peer}/stream", h.StreamConversation)

		r.Get("/v1/profiles/{id}", h.GetProfile)
		r.Put("/v1/profiles/me", h.UpsertProfile)
	})

	return r
}
