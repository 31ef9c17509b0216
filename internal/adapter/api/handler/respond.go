package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies; map_data can carry an inline floor plan image.
const maxBodyBytes = 8 << 20

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func respondWithJSON(logger *slog.Logger, w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(logger *slog.Logger, w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(logger, w, status, errorResponse{Code: code, Error: message})
}

// respondWithDomainError maps use case errors to status codes. Unknown errors
// are logged and reported without detail.
func respondWithDomainError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		respondWithError(logger, w, http.StatusConflict, "conflict", conflict.Reason)
	case errors.Is(err, domain.ErrValidation):
		respondWithError(logger, w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(logger, w, http.StatusNotFound, "not_found", domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrNoBackup):
		respondWithError(logger, w, http.StatusNotFound, "no_backup", domain.ErrNoBackup.Error())
	case errors.Is(err, domain.ErrSlotTaken):
		respondWithError(logger, w, http.StatusConflict, "slot_taken", domain.ErrSlotTaken.Error())
	case errors.Is(err, domain.ErrTransientStore):
		logger.Warn("store unavailable", "path", r.URL.Path, "error", err)
		respondWithError(logger, w, http.StatusServiceUnavailable, "store_unavailable", "The store is busy, please retry")
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(logger, w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// decodeJSON reads a JSON body of at most maxBodyBytes into dest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return domain.NewValidationError("invalid request body: %v", err)
	}
	return nil
}

// principal returns the authenticated caller, writing a 401 when absent.
func principal(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := domain.PrincipalFrom(r.Context())
	if !ok {
		respondWithError(logger, w, http.StatusUnauthorized, "unauthorized", "Could not validate credentials")
	}
	return p, ok
}

// floorPlanIDParam parses the {floorPlanID} route parameter, writing a 400 when malformed.
func floorPlanIDParam(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "floorPlanID"))
	if err != nil {
		respondWithError(logger, w, http.StatusBadRequest, "validation_error", "floor plan id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
