package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/V4T54L/floor-sync/internal/usecase"
)

// Booker reserves rooms and lists reservations.
type Booker interface {
	Book(ctx context.Context, p domain.Principal, in usecase.BookingInput) (*domain.Booking, error)
	Mine(ctx context.Context, p domain.Principal) ([]domain.BookingListing, error)
	Upcoming(ctx context.Context, p domain.Principal) ([]domain.BookingListing, error)
}

// BookingHandler serves room reservations.
type BookingHandler struct {
	booker Booker
	logger *slog.Logger
}

func NewBookingHandler(booker Booker, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{booker: booker, logger: logger}
}

// Book reserves a room for the caller.
// POST /api/v1/bookings
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	var in usecase.BookingInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}

	b, err := h.booker.Book(r.Context(), p, in)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusCreated, b)
}

// Mine lists the caller's current and future bookings.
// GET /api/v1/bookings/mine
func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.booker.Mine)
}

// Upcoming lists every current and future booking of the caller's company.
// GET /api/v1/bookings
func (h *BookingHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.booker.Upcoming)
}

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, domain.Principal) ([]domain.BookingListing, error)) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	bookings, err := fetch(r.Context(), p)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, bookings)
}
