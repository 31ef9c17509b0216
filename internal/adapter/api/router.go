package api

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/floor-sync/internal/adapter/api/handler"
	"github.com/V4T54L/floor-sync/internal/adapter/api/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the public endpoint handlers.
type Handlers struct {
	FloorPlans *handler.FloorPlanHandler
	Bookings   *handler.BookingHandler
	LiveFeed   *handler.LiveFeedHandler
}

// NewRouter creates and configures the public HTTP router. Every route requires
// a valid access token.
func NewRouter(logger *slog.Logger, auth *middleware.Authenticator, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/floorplans", func(r chi.Router) {
				r.With(middleware.RequireAdmin).Post("/", h.FloorPlans.Create)
				r.Get("/", h.FloorPlans.List)
				r.Post("/update", h.FloorPlans.Update)

				r.Route("/{floorPlanID}", func(r chi.Router) {
					r.Get("/", h.FloorPlans.Get)
					r.Get("/status", h.FloorPlans.Status)
					r.Get("/versions", h.FloorPlans.Versions)
					r.Get("/events", h.LiveFeed.ServeSSE)
					r.With(middleware.RequireAdmin).Post("/restore", h.FloorPlans.Restore)
				})
			})
			r.Post("/sync/commit-changes", h.FloorPlans.Update)
			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", h.Bookings.Book)
				r.Get("/mine", h.Bookings.Mine)
				r.With(middleware.RequireAdmin).Get("/", h.Bookings.Upcoming)
			})
		})

		r.Route("/ws/live-feed", func(r chi.Router) {
			r.With(middleware.RequireAdmin).Get("/company", h.LiveFeed.CompanySocket)
			r.Get("/{floorPlanID}", h.LiveFeed.FloorPlanSocket)
		})
	})

	return r
}
