package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// VersionManager turns floor plan states into immutable versions.
type VersionManager struct{}

func NewVersionManager() *VersionManager {
	return &VersionManager{}
}

// Capture builds a self-contained snapshot of fp and its rooms, rooms ordered by id.
func (vm *VersionManager) Capture(fp *domain.FloorPlan, meta *domain.SnapshotMeta) domain.Snapshot {
	rooms := make([]domain.SnapshotRoom, len(fp.Rooms))
	for i, r := range fp.Rooms {
		features := make([]string, len(r.Features))
		copy(features, r.Features)
		rooms[i] = domain.SnapshotRoom{
			ID:       r.ID.String(),
			Name:     r.Name,
			Capacity: r.Capacity,
			Features: features,
			X:        r.X,
			Y:        r.Y,
			Width:    r.Width,
			Height:   r.Height,
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	mapData := append([]byte(nil), fp.MapData...)
	return domain.Snapshot{
		FloorPlan: domain.SnapshotFloorPlan{
			ID:      fp.ID.String(),
			Name:    fp.Name,
			Width:   fp.Width,
			Height:  fp.Height,
			MapData: mapData,
		},
		Rooms: rooms,
		Meta:  meta,
	}
}

// Commit appends a version holding snap and moves the floor plan head to it,
// stamping fp.LastModifiedAt with ts. Both writes go through the caller's transaction.
func (vm *VersionManager) Commit(ctx context.Context, tx domain.FloorPlanTx, fp *domain.FloorPlan, snap domain.Snapshot, committerID uuid.UUID, ts time.Time) (*domain.FloorPlanVersion, error) {
	v := &domain.FloorPlanVersion{
		ID:          uuid.New(),
		FloorPlanID: fp.ID,
		Snapshot:    snap,
		CommitterID: committerID,
		Timestamp:   ts,
	}
	if err := tx.InsertVersion(ctx, v); err != nil {
		return nil, err
	}

	fp.LastModifiedAt = ts
	fp.CurrentVersionID = &v.ID
	if err := tx.UpdateFloorPlan(ctx, fp); err != nil {
		return nil, fmt.Errorf("failed to advance floor plan head: %w", err)
	}
	return v, nil
}

// nextTimestamp returns now at the store's precision, kept strictly after prev
// so version history stays totally ordered under clock skew.
func nextTimestamp(now, prev time.Time) time.Time {
	ts := now.UTC().Truncate(time.Microsecond)
	if !ts.After(prev) {
		ts = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return ts
}
