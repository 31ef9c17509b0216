package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

type roleEntry struct {
	role      domain.Role
	expiresAt time.Time
}

// CommitterRoleCache resolves the role of a version's committer from PostgreSQL
// and keeps the answer in an in-memory, time-based cache. Versions are immutable,
// so an entry only goes stale when the committer's role changes.
type CommitterRoleCache struct {
	db      *sql.DB
	logger  *slog.Logger
	ttl     time.Duration
	metrics *metrics.SyncMetrics

	mu        sync.RWMutex
	entries   map[uuid.UUID]roleEntry
	nextSweep time.Time
	now       func() time.Time
}

// NewCommitterRoleCache creates a role resolver. A zero ttl disables caching.
func NewCommitterRoleCache(db *sql.DB, logger *slog.Logger, ttl time.Duration, m *metrics.SyncMetrics) *CommitterRoleCache {
	return &CommitterRoleCache{
		db:      db,
		logger:  logger,
		ttl:     ttl,
		metrics: m,
		entries: make(map[uuid.UUID]roleEntry),
		now:     time.Now,
	}
}

// CommitterRole returns the role of the user who committed versionID. Unknown
// versions and deleted users yield an empty role.
func (c *CommitterRoleCache) CommitterRole(ctx context.Context, versionID uuid.UUID) (domain.Role, error) {
	c.mu.RLock()
	entry, found := c.entries[versionID]
	c.mu.RUnlock()

	if found && c.now().Before(entry.expiresAt) {
		if c.metrics != nil {
			c.metrics.RoleCacheHits.Inc()
		}
		return entry.role, nil
	}
	if c.metrics != nil {
		c.metrics.RoleCacheMisses.Inc()
	}

	var role string
	query := `SELECT u.role FROM fp_versions v JOIN users u ON u.id = v.committer_id WHERE v.id = $1`
	err := c.db.QueryRowContext(ctx, query, versionID).Scan(&role)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.logger.Error("failed to look up committer role", "version_id", versionID, "error", err)
		return "", classify(err)
	}

	if c.ttl > 0 {
		c.store(versionID, domain.Role(role))
	}
	return domain.Role(role), nil
}

// store caches role and, at most once per ttl, drops every expired entry.
func (c *CommitterRoleCache) store(versionID uuid.UUID, role domain.Role) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.Before(c.nextSweep) {
		for id, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, id)
			}
		}
		c.nextSweep = now.Add(c.ttl)
	}
	c.entries[versionID] = roleEntry{role: role, expiresAt: now.Add(c.ttl)}
}

func (c *CommitterRoleCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
