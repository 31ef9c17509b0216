package livefeed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/domain"
)

// EventSource is a subscription to the cross-process live event channel.
type EventSource interface {
	Run(ctx context.Context, handler func(domain.LiveEvent))
}

// Hub delivers broker events to the matching clients of the registry.
type Hub struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *metrics.SyncMetrics
}

func NewHub(registry *Registry, logger *slog.Logger, m *metrics.SyncMetrics) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger.With("component", "live_feed_hub"),
		metrics:  m,
	}
}

// Run consumes source until ctx is done.
func (h *Hub) Run(ctx context.Context, source EventSource) {
	h.logger.Info("Live feed hub started")
	source.Run(ctx, func(event domain.LiveEvent) {
		h.Broadcast(event)
	})
	h.logger.Info("Live feed hub stopped")
}

// Broadcast sends event to every client whose scope matches it and returns the
// number of clients that accepted it. Slow clients miss the event.
func (h *Hub) Broadcast(event domain.LiveEvent) int {
	candidates := append(h.registry.FloorPlanClients(event.FloorPlanID), h.registry.TenantClients(event.TenantID)...)
	if len(candidates) == 0 {
		return 0
	}

	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal live event", "error", err)
		return 0
	}

	delivered, dropped := 0, 0
	for _, c := range candidates {
		if !c.scope.Matches(event) {
			continue
		}
		if c.deliver(msg) {
			delivered++
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		h.logger.Warn("Dropped live event for slow clients", "floor_plan_id", event.FloorPlanID, "event", event.Event, "dropped", dropped)
	}
	if h.metrics != nil {
		h.metrics.LiveFeedDelivered.Add(float64(delivered))
		h.metrics.LiveFeedDropped.Add(float64(dropped))
	}
	return delivered
}
