package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
)

// ConflictResolution is the outcome of checking an edit against the stored state.
type ConflictResolution struct {
	Allow bool
	// Overridden is set when the edit was based on a stale view but won on priority.
	Overridden bool
	Reason     string
	PriorRole  domain.Role
}

// Resolve decides whether an edit made against clientTS may replace the state
// last modified at stored. Stale edits win only when the incoming role ranks at
// least as high as the role of the last committer.
func Resolve(stored, clientTS time.Time, incoming, prior domain.Role) ConflictResolution {
	if !clientTS.Before(stored) {
		return ConflictResolution{Allow: true, PriorRole: prior}
	}
	if incoming.Priority() >= prior.Priority() {
		return ConflictResolution{
			Allow:      true,
			Overridden: true,
			PriorRole:  prior,
			Reason: fmt.Sprintf("Incoming change applied because the author has equal or higher priority. Last update role: %s, incoming role: %s.",
				prior, incoming),
		}
	}
	return ConflictResolution{
		Allow:     false,
		PriorRole: prior,
		Reason: fmt.Sprintf("Conflict detected with a higher-priority update. Last update role: %s, incoming role: %s.",
			prior, incoming),
	}
}

// ConflictResolver looks up who made the last change before calling Resolve.
type ConflictResolver struct {
	repo   domain.FloorPlanRepository
	logger *slog.Logger
}

func NewConflictResolver(repo domain.FloorPlanRepository, logger *slog.Logger) *ConflictResolver {
	return &ConflictResolver{repo: repo, logger: logger}
}

// Check resolves an edit against fp. The committer lookup is skipped when the
// client saw the latest state.
func (r *ConflictResolver) Check(ctx context.Context, fp *domain.FloorPlan, clientTS time.Time, incoming domain.Role) (ConflictResolution, error) {
	if !clientTS.Before(fp.LastModifiedAt) {
		return Resolve(fp.LastModifiedAt, clientTS, incoming, ""), nil
	}

	var prior domain.Role
	if fp.CurrentVersionID != nil {
		role, err := r.repo.CommitterRole(ctx, *fp.CurrentVersionID)
		if err != nil {
			return ConflictResolution{}, fmt.Errorf("failed to look up last committer: %w", err)
		}
		prior = role
	}

	res := Resolve(fp.LastModifiedAt, clientTS, incoming, prior)
	r.logger.Info("stale edit detected",
		"floor_plan_id", fp.ID,
		"stored_last_modified_at", fp.LastModifiedAt,
		"client_last_modified_at", clientTS,
		"prior_role", prior.String(),
		"incoming_role", incoming.String(),
		"allowed", res.Allow)
	return res, nil
}
