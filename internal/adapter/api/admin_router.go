package api

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/floor-sync/internal/adapter/api/handler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewAdminRouter creates the router of the ops server: metrics, health and
// read-only diagnostics. It must not be exposed publicly.
func NewAdminRouter(adminHandler *handler.AdminHandler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError)}))
	mux.HandleFunc("GET /health", adminHandler.HealthCheck)

	mux.HandleFunc("GET /admin/live-feed", adminHandler.LiveFeedStats)
	mux.HandleFunc("GET /admin/snapshots/{floorPlanID}", adminHandler.Snapshots)
	mux.HandleFunc("GET /admin/broker", adminHandler.BrokerInfo)

	return mux
}
