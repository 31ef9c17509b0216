package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/V4T54L/floor-sync/internal/livefeed"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultKeepAlive = 15 * time.Second

// FloorPlanAccess checks that a caller may watch a floor plan.
type FloorPlanAccess interface {
	Get(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlan, error)
}

// LiveFeedHandler streams live events to browsers over SSE or WebSocket.
// Connections are registered with the process registry and fed by the hub.
type LiveFeedHandler struct {
	registry  *livefeed.Registry
	access    FloorPlanAccess
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	keepAlive time.Duration
	buffer    int
}

func NewLiveFeedHandler(registry *livefeed.Registry, access FloorPlanAccess, logger *slog.Logger, keepAlive time.Duration, buffer int) *LiveFeedHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &LiveFeedHandler{
		registry: registry,
		access:   access,
		logger:   logger.With("component", "live_feed_handler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		keepAlive: keepAlive,
		buffer:    buffer,
	}
}

// ServeSSE streams the events of one floor plan as Server-Sent Events.
// GET /api/v1/floorplans/{floorPlanID}/events
func (h *LiveFeedHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	client, ok := h.register(w, r, false)
	if !ok {
		return
	}
	defer h.registry.Remove(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg := <-client.Messages():
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// register builds a client for the caller and adds it to the registry. A
// company-wide feed needs the administrator role; a floor plan feed needs
// read access to the plan. Failures are written to w.
func (h *LiveFeedHandler) register(w http.ResponseWriter, r *http.Request, companyWide bool) (*livefeed.Client, bool) {
	p, ok := principal(h.logger, w, r)
	if !ok {
		return nil, false
	}

	scope := livefeed.Scope{TenantID: p.TenantID}
	if companyWide {
		if !p.IsAdmin() {
			respondWithError(h.logger, w, http.StatusForbidden, "forbidden", "The user does not have administrative privileges")
			return nil, false
		}
	} else {
		id, ok := floorPlanIDParam(h.logger, w, r)
		if !ok {
			return nil, false
		}
		if _, err := h.access.Get(r.Context(), p, id); err != nil {
			respondWithDomainError(h.logger, w, r, err)
			return nil, false
		}
		scope.FloorPlanID = id
	}

	client := livefeed.NewClient(p.UserID, scope, h.buffer)
	if err := h.registry.Add(client); err != nil {
		respondWithError(h.logger, w, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down")
		return nil, false
	}
	return client, true
}
