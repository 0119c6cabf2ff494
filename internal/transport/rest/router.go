package rest

import (
	"net/http"

	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	// Cache is optional; without it rate limiting stays in-process.
	Cache     domain.CacheRepository
	Handler   *Handler
	Preview   *Preview
	RateLimit RateLimitOptions
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Preview == nil {
		panic("rest.NewRouter: nil preview")
	}

	r := chi.NewRouter()

	// Request ID + structured access log
	r.Use(RequestID)
	r.Use(HTTPLogger)

	// Panic recovery
	r.Use(middleware.Recoverer)

	r.Get("/healthz", d.Handler.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(d.Cache, d.RateLimit))
		r.Use(SecurityHeaders)

		r.Get("/invite/{eventID}", d.Preview.Invite)

		r.Route("/api/v1/events", func(r chi.Router) {
			r.Post("/", d.Handler.CreateEvent)

			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", d.Handler.GetEvent)
				r.Patch("/", d.Handler.UpdateEvent)
				r.Post("/cancel", d.Handler.CancelEvent)
				r.Get("/stats", d.Handler.Stats)

				r.Get("/rsvps", d.Handler.ListRSVPs)
				r.Get("/rsvps/public", d.Handler.ListPublicRSVPs)
				r.Post("/rsvps", d.Handler.Respond)
				r.Delete("/rsvps/{rsvpID}", d.Handler.RemoveGuest)

				r.Get("/waitlist", d.Handler.ListWaitlist)
				r.Post("/waitlist", d.Handler.JoinWaitlist)
				r.Delete("/waitlist/{entryID}", d.Handler.RemoveWaitlistEntry)
			})
		})
	})

	return r
}
