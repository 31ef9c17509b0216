package handler

import (
	"context"
	"log/slog"
	"net/http"

	redisrepo "github.com/V4T54L/floor-sync/internal/adapter/repository/redis"
	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/V4T54L/floor-sync/internal/livefeed"
	"github.com/google/uuid"
)

// Pinger reports whether the primary store answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CacheProbe reports whether the cache is currently usable.
type CacheProbe interface {
	Available() bool
}

// SnapshotLister lists the disk snapshots of a floor plan.
type SnapshotLister interface {
	List(ctx context.Context, floorPlanID uuid.UUID) ([]domain.SnapshotFile, error)
}

// BrokerInspector reports on the live event channel.
type BrokerInspector interface {
	Info(ctx context.Context) (*redisrepo.BrokerInfo, error)
}

// FeedStats reports the live feed connections of this process.
type FeedStats interface {
	Stats() livefeed.Stats
}

// AdminHandler serves the operator endpoints of the ops server. It is not
// exposed on the public listener.
type AdminHandler struct {
	db        Pinger
	cache     CacheProbe
	snapshots SnapshotLister
	broker    BrokerInspector
	feed      FeedStats
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db Pinger, cache CacheProbe, snapshots SnapshotLister, broker BrokerInspector, feed FeedStats, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		db:        db,
		cache:     cache,
		snapshots: snapshots,
		broker:    broker,
		feed:      feed,
		logger:    logger,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// HealthCheck reports 200 while the database answers. A missing cache only
// degrades the status.
// GET /health
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "up", Cache: "up"}
	code := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Warn("database health check failed", "error", err)
		resp.Status, resp.Database = "unavailable", "down"
		code = http.StatusServiceUnavailable
	}
	if !h.cache.Available() {
		resp.Cache = "down"
		if code == http.StatusOK {
			resp.Status = "degraded"
		}
	}
	respondWithJSON(h.logger, w, code, resp)
}

// LiveFeedStats lists the live feed connections of this process.
// GET /admin/live-feed
func (h *AdminHandler) LiveFeedStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(h.logger, w, http.StatusOK, h.feed.Stats())
}

// Snapshots lists the disk snapshots of a floor plan, newest first.
// GET /admin/snapshots/{floorPlanID}
func (h *AdminHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("floorPlanID"))
	if err != nil {
		http.Error(w, "floorPlanID must be a UUID", http.StatusBadRequest)
		return
	}

	files, err := h.snapshots.List(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list snapshots", "floor_plan_id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, files)
}

// BrokerInfo reports subscribers on the live event channel and cached key counts.
// GET /admin/broker
func (h *AdminHandler) BrokerInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.broker.Info(r.Context())
	if err != nil {
		h.logger.Error("failed to get broker info", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, info)
}
