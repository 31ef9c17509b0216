package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// FloorPlanSyncer is the write side of floor plans.
type FloorPlanSyncer interface {
	Create(ctx context.Context, p domain.Principal, in domain.CreateFloorPlanInput) (*domain.FloorPlan, error)
	Update(ctx context.Context, p domain.Principal, req domain.EditRequest) (*domain.FloorPlan, error)
	Restore(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlan, error)
}

// FloorPlanReader is the cached read side of floor plans.
type FloorPlanReader interface {
	Get(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlan, error)
	List(ctx context.Context, p domain.Principal) ([]domain.FloorPlan, error)
	Versions(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) ([]domain.VersionSummary, error)
}

// StatusReader assembles live occupancy.
type StatusReader interface {
	Get(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlanStatus, error)
}

// FloorPlanHandler serves the floor plan endpoints.
type FloorPlanHandler struct {
	syncer FloorPlanSyncer
	reader FloorPlanReader
	status StatusReader
	logger *slog.Logger
}

func NewFloorPlanHandler(syncer FloorPlanSyncer, reader FloorPlanReader, status StatusReader, logger *slog.Logger) *FloorPlanHandler {
	return &FloorPlanHandler{syncer: syncer, reader: reader, status: status, logger: logger}
}

// Create stores an uploaded floor plan.
// POST /api/v1/floorplans
func (h *FloorPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	var in domain.CreateFloorPlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}

	fp, err := h.syncer.Create(r.Context(), p, in)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusCreated, fp)
}

// List returns the caller's floor plans.
// GET /api/v1/floorplans
func (h *FloorPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	plans, err := h.reader.List(r.Context(), p)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, plans)
}

// Get returns one floor plan with its rooms.
// GET /api/v1/floorplans/{floorPlanID}
func (h *FloorPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	id, ok := floorPlanIDParam(h.logger, w, r)
	if !ok {
		return
	}
	fp, err := h.reader.Get(r.Context(), p, id)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, fp)
}

// Status returns the live occupancy of a floor plan.
// GET /api/v1/floorplans/{floorPlanID}/status
func (h *FloorPlanHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	id, ok := floorPlanIDParam(h.logger, w, r)
	if !ok {
		return
	}
	status, err := h.status.Get(r.Context(), p, id)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, status)
}

// Update applies an edit batch. Offline editors replay their queued batch
// through the same path.
// POST /api/v1/floorplans/update
// POST /api/v1/sync/commit-changes
func (h *FloorPlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	var req domain.EditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	if req.ClientLastModifiedAt.IsZero() {
		respondWithError(h.logger, w, http.StatusBadRequest, "validation_error", "client_last_modified_at is required")
		return
	}

	fp, err := h.syncer.Update(r.Context(), p, req)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, fp)
}

// Versions lists the version history, newest first.
// GET /api/v1/floorplans/{floorPlanID}/versions
func (h *FloorPlanHandler) Versions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	id, ok := floorPlanIDParam(h.logger, w, r)
	if !ok {
		return
	}
	versions, err := h.reader.Versions(r.Context(), p, id)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, versions)
}

// Restore replaces the floor plan with its latest disk snapshot.
// POST /api/v1/floorplans/{floorPlanID}/restore
func (h *FloorPlanHandler) Restore(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return
	}
	id, ok := floorPlanIDParam(h.logger, w, r)
	if !ok {
		return
	}
	fp, err := h.syncer.Restore(r.Context(), p, id)
	if err != nil {
		respondWithDomainError(h.logger, w, r, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, fp)
}
