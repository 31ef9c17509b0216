package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// SyncEngine owns every mutation of a floor plan: conflict check, apply,
// version commit, then cache invalidation and the post-commit side effects.
type SyncEngine struct {
	repo      domain.FloorPlanRepository
	snapshots domain.SnapshotRepository
	cache     domain.Cache
	effects   *SideEffectQueue
	resolver  *ConflictResolver
	versions  *VersionManager
	retry     RetryPolicy
	logger    *slog.Logger
	metrics   *metrics.SyncMetrics
	now       func() time.Time
}

// NewSyncEngine creates the synchronization engine.
func NewSyncEngine(
	repo domain.FloorPlanRepository,
	snapshots domain.SnapshotRepository,
	cache domain.Cache,
	effects *SideEffectQueue,
	retry RetryPolicy,
	logger *slog.Logger,
	m *metrics.SyncMetrics,
) *SyncEngine {
	return &SyncEngine{
		repo:      repo,
		snapshots: snapshots,
		cache:     cache,
		effects:   effects,
		resolver:  NewConflictResolver(repo, logger),
		versions:  NewVersionManager(),
		retry:     retry,
		logger:    logger.With("component", "sync_engine"),
		metrics:   m,
		now:       time.Now,
	}
}

// Update applies an edit batch. Stale edits go through conflict resolution; the
// accepted batch replaces the room set and produces exactly one new version.
func (e *SyncEngine) Update(ctx context.Context, p domain.Principal, req domain.EditRequest) (*domain.FloorPlan, error) {
	var (
		result *domain.FloorPlan
		snap   domain.Snapshot
	)
	started := time.Now()
	err := e.retry.do(ctx, e.logger, e.metrics, func() error {
		return e.repo.InTx(ctx, func(tx domain.FloorPlanTx) error {
			fp, err := tx.LockFloorPlan(ctx, p.TenantID, req.FloorPlanID)
			if err != nil {
				return err
			}

			res, err := e.resolver.Check(ctx, fp, req.ClientLastModifiedAt, p.Role)
			if err != nil {
				return err
			}
			if !res.Allow {
				return &domain.ConflictError{Reason: res.Reason, PriorRole: res.PriorRole}
			}
			if err := req.Validate(); err != nil {
				return err
			}

			rooms, err := applyRoomUpdates(ctx, tx, fp, req.RoomUpdates)
			if err != nil {
				return err
			}
			fp.Rooms = rooms

			var meta *domain.SnapshotMeta
			if res.Overridden {
				meta = &domain.SnapshotMeta{ConflictResolution: res.Reason}
			}
			snap = e.versions.Capture(fp, meta)
			if _, err := e.versions.Commit(ctx, tx, fp, snap, p.UserID, nextTimestamp(e.now(), fp.LastModifiedAt)); err != nil {
				return err
			}
			result = fp
			return nil
		})
	})
	e.observe("update", started, err)
	if err != nil {
		return nil, err
	}

	e.logger.Info("floor plan updated", "floor_plan_id", result.ID, "version_id", result.CurrentVersionID, "rooms", len(result.Rooms))
	e.afterCommit(ctx, result, &snap, domain.EventFloorPlanChanged)
	return result, nil
}

// Create stores a new floor plan, its rooms and its first version in one transaction.
func (e *SyncEngine) Create(ctx context.Context, p domain.Principal, in domain.CreateFloorPlanInput) (*domain.FloorPlan, error) {
	if err := in.Validate(); err != nil {
		e.observe("create", time.Now(), err)
		return nil, err
	}

	var (
		result *domain.FloorPlan
		snap   domain.Snapshot
	)
	started := time.Now()
	err := e.retry.do(ctx, e.logger, e.metrics, func() error {
		return e.repo.InTx(ctx, func(tx domain.FloorPlanTx) error {
			ts := nextTimestamp(e.now(), time.Time{})
			fp := &domain.FloorPlan{
				ID:             uuid.New(),
				TenantID:       p.TenantID,
				Name:           in.Name,
				Width:          in.Width,
				Height:         in.Height,
				MapData:        in.MapData,
				LastModifiedAt: ts,
			}
			if err := tx.CreateFloorPlan(ctx, fp); err != nil {
				return err
			}

			fp.Rooms = make([]domain.Room, 0, len(in.Rooms))
			for _, r := range in.Rooms {
				room := newRoomFromInput(fp.ID, r)
				if err := tx.InsertRoom(ctx, room); err != nil {
					return err
				}
				fp.Rooms = append(fp.Rooms, room)
			}
			sortRooms(fp.Rooms)

			snap = e.versions.Capture(fp, nil)
			if _, err := e.versions.Commit(ctx, tx, fp, snap, p.UserID, ts); err != nil {
				return err
			}
			result = fp
			return nil
		})
	})
	e.observe("create", started, err)
	if err != nil {
		return nil, err
	}

	e.logger.Info("floor plan created", "floor_plan_id", result.ID, "company_id", result.TenantID, "rooms", len(result.Rooms))
	e.afterCommit(ctx, result, &snap, domain.EventFloorPlanChanged)
	return result, nil
}

// Restore replaces the floor plan with its newest disk snapshot and records the
// result as a new version. Without a readable snapshot nothing is written.
func (e *SyncEngine) Restore(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlan, error) {
	started := time.Now()
	if _, err := e.repo.GetFloorPlan(ctx, p.TenantID, floorPlanID); err != nil {
		e.observe("restore", started, err)
		return nil, err
	}

	backup, err := e.snapshots.Latest(ctx, floorPlanID)
	if err != nil {
		e.observe("restore", started, err)
		return nil, err
	}
	rooms, err := roomsFromSnapshot(floorPlanID, backup)
	if err != nil {
		e.logger.Error("latest snapshot is unusable", "floor_plan_id", floorPlanID, "error", err)
		e.observe("restore", started, domain.ErrNoBackup)
		return nil, domain.ErrNoBackup
	}

	var (
		result *domain.FloorPlan
		snap   domain.Snapshot
	)
	err = e.retry.do(ctx, e.logger, e.metrics, func() error {
		return e.repo.InTx(ctx, func(tx domain.FloorPlanTx) error {
			fp, err := tx.LockFloorPlan(ctx, p.TenantID, floorPlanID)
			if err != nil {
				return err
			}
			fp.Name = backup.FloorPlan.Name
			fp.Width = backup.FloorPlan.Width
			fp.Height = backup.FloorPlan.Height
			fp.MapData = backup.FloorPlan.MapData

			if err := tx.DeleteAllRooms(ctx, floorPlanID); err != nil {
				return err
			}
			for _, room := range rooms {
				if err := tx.InsertRoom(ctx, room); err != nil {
					return err
				}
			}
			fp.Rooms = rooms

			snap = e.versions.Capture(fp, &domain.SnapshotMeta{RestoredFromBackup: true})
			if _, err := e.versions.Commit(ctx, tx, fp, snap, p.UserID, nextTimestamp(e.now(), fp.LastModifiedAt)); err != nil {
				return err
			}
			result = fp
			return nil
		})
	})
	e.observe("restore", started, err)
	if err != nil {
		return nil, err
	}

	e.logger.Info("floor plan restored from backup", "floor_plan_id", result.ID, "version_id", result.CurrentVersionID, "rooms", len(result.Rooms))
	e.afterCommit(ctx, result, &snap, domain.EventFloorPlanRestored)
	return result, nil
}

// afterCommit drops every cached view of fp, then queues the snapshot and event.
func (e *SyncEngine) afterCommit(ctx context.Context, fp *domain.FloorPlan, snap *domain.Snapshot, event domain.EventType) {
	e.cache.Delete(ctx,
		domain.FloorPlanCacheKey(fp.ID),
		domain.FloorPlanListCacheKey(fp.TenantID),
		domain.FloorPlanStatusCacheKey(fp.ID),
	)
	e.effects.Dispatch(ctx, SideEffect{
		FloorPlanID: fp.ID,
		Snapshot:    snap,
		Event:       domain.LiveEvent{FloorPlanID: fp.ID, TenantID: fp.TenantID, Event: event},
	})
}

func (e *SyncEngine) observe(op string, started time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.EditsTotal.WithLabelValues(op, outcome(err)).Inc()
	if err == nil {
		e.metrics.CommitDuration.Observe(time.Since(started).Seconds())
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNoBackup):
		return "no_backup"
	default:
		return "error"
	}
}

// applyRoomUpdates makes the stored room set match the batch: listed rooms are
// updated or inserted, unlisted rooms are deleted. It returns the new room set.
func applyRoomUpdates(ctx context.Context, tx domain.FloorPlanTx, fp *domain.FloorPlan, updates []domain.RoomUpdate) ([]domain.Room, error) {
	existing := make(map[uuid.UUID]domain.Room, len(fp.Rooms))
	for _, r := range fp.Rooms {
		existing[r.ID] = r
	}

	rooms := make([]domain.Room, 0, len(updates))
	for _, u := range updates {
		if room, ok := existing[u.RoomID]; ok {
			u.ApplyTo(&room)
			if err := tx.UpdateRoom(ctx, room); err != nil {
				return nil, err
			}
			delete(existing, u.RoomID)
			rooms = append(rooms, room)
			continue
		}

		room, err := u.NewRoom(fp.ID)
		if err != nil {
			return nil, err
		}
		if err := tx.InsertRoom(ctx, room); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if len(existing) > 0 {
		stale := make([]uuid.UUID, 0, len(existing))
		for id := range existing {
			stale = append(stale, id)
		}
		if err := tx.DeleteRooms(ctx, fp.ID, stale); err != nil {
			return nil, err
		}
	}

	sortRooms(rooms)
	return rooms, nil
}

func newRoomFromInput(floorPlanID uuid.UUID, in domain.NewRoomInput) domain.Room {
	room := domain.Room{
		ID:          uuid.New(),
		FloorPlanID: floorPlanID,
		Name:        in.Name,
		Capacity:    in.Capacity,
		Features:    in.Features,
		X:           in.X,
		Y:           in.Y,
		Width:       in.Width,
		Height:      in.Height,
	}
	if room.Features == nil {
		room.Features = []string{}
	}
	if room.Width <= 0 {
		room.Width = domain.DefaultRoomWidth
	}
	if room.Height <= 0 {
		room.Height = domain.DefaultRoomHeight
	}
	return room
}

func roomsFromSnapshot(floorPlanID uuid.UUID, snap *domain.Snapshot) ([]domain.Room, error) {
	rooms := make([]domain.Room, 0, len(snap.Rooms))
	for _, r := range snap.Rooms {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot room id %q: %w", r.ID, err)
		}
		features := r.Features
		if features == nil {
			features = []string{}
		}
		rooms = append(rooms, domain.Room{
			ID:          id,
			FloorPlanID: floorPlanID,
			Name:        r.Name,
			Capacity:    r.Capacity,
			Features:    features,
			X:           r.X,
			Y:           r.Y,
			Width:       r.Width,
			Height:      r.Height,
		})
	}
	sortRooms(rooms)
	return rooms, nil
}

func sortRooms(rooms []domain.Room) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID.String() < rooms[j].ID.String() })
}
