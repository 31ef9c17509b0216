package livefeed

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/google/uuid"
)

// ErrRegistryClosed is returned by Add after CloseAll.
var ErrRegistryClosed = errors.New("live feed registry is closed")

// Stats is a point-in-time view of the registry.
type Stats struct {
	Clients            int            `json:"clients"`
	FloorPlanClients   map[string]int `json:"floor_plan_clients"`
	CompanyWideClients map[string]int `json:"company_wide_clients"`
}

// Registry tracks the live feed connections of this process, indexed by floor
// plan for floor-scoped clients and by tenant for company-wide clients.
type Registry struct {
	mu          sync.RWMutex
	byFloorPlan map[uuid.UUID]map[*Client]struct{}
	byTenant    map[uuid.UUID]map[*Client]struct{}
	count       int
	closed      bool

	logger  *slog.Logger
	metrics *metrics.SyncMetrics
}

func NewRegistry(logger *slog.Logger, m *metrics.SyncMetrics) *Registry {
	return &Registry{
		byFloorPlan: make(map[uuid.UUID]map[*Client]struct{}),
		byTenant:    make(map[uuid.UUID]map[*Client]struct{}),
		logger:      logger.With("component", "live_feed_registry"),
		metrics:     m,
	}
}

// Add registers c. After CloseAll it closes c and returns ErrRegistryClosed.
func (r *Registry) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		c.close()
		return ErrRegistryClosed
	}

	index, key := r.indexFor(c)
	set, ok := index[key]
	if !ok {
		set = make(map[*Client]struct{})
		index[key] = set
	}
	if _, dup := set[c]; dup {
		return nil
	}
	set[c] = struct{}{}
	r.count++
	r.setGauge()

	r.logger.Info("Live feed client connected",
		"client_id", c.ID,
		"company_id", c.scope.TenantID,
		"floor_plan_id", c.scope.FloorPlanID,
		"total", r.count)
	return nil
}

// Remove evicts c and closes it. Removing an unknown client only closes it.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer c.close()

	index, key := r.indexFor(c)
	set, ok := index[key]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(index, key)
	}
	r.count--
	r.setGauge()
	r.logger.Info("Live feed client disconnected", "client_id", c.ID, "remaining", r.count)
}

// FloorPlanClients returns the clients watching one floor plan.
func (r *Registry) FloorPlanClients(floorPlanID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return members(r.byFloorPlan[floorPlanID])
}

// TenantClients returns the company-wide clients of a tenant.
func (r *Registry) TenantClients(tenantID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return members(r.byTenant[tenantID])
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{
		Clients:            r.count,
		FloorPlanClients:   make(map[string]int, len(r.byFloorPlan)),
		CompanyWideClients: make(map[string]int, len(r.byTenant)),
	}
	for id, set := range r.byFloorPlan {
		s.FloorPlanClients[id.String()] = len(set)
	}
	for id, set := range r.byTenant {
		s.CompanyWideClients[id.String()] = len(set)
	}
	return s
}

// CloseAll evicts and closes every client and rejects later registrations.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, index := range []map[uuid.UUID]map[*Client]struct{}{r.byFloorPlan, r.byTenant} {
		for key, set := range index {
			for c := range set {
				c.close()
			}
			delete(index, key)
		}
	}
	r.logger.Info("Live feed registry closed", "evicted", r.count)
	r.count = 0
	r.closed = true
	r.setGauge()
}

func (r *Registry) indexFor(c *Client) (map[uuid.UUID]map[*Client]struct{}, uuid.UUID) {
	if c.scope.CompanyWide() {
		return r.byTenant, c.scope.TenantID
	}
	return r.byFloorPlan, c.scope.FloorPlanID
}

func (r *Registry) setGauge() {
	if r.metrics != nil {
		r.metrics.LiveFeedClients.Set(float64(r.count))
	}
}

func members(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
