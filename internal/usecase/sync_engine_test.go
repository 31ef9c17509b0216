package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/V4T54L/floor-sync/internal/domain/mocks"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type engineFixture struct {
	store    *mocks.MockFloorPlanStore
	snaps    *mocks.MockSnapshotStore
	cache    *mocks.MockCache
	pub      *mocks.MockPublisher
	journal  *mocks.Journal
	metrics  *metrics.SyncMetrics
	engine   *SyncEngine
	admin    domain.Principal
	standard domain.Principal
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		store:   mocks.NewMockFloorPlanStore(),
		journal: &mocks.Journal{},
		metrics: metrics.NewSyncMetrics(prometheus.NewRegistry()),
	}
	f.snaps = mocks.NewMockSnapshotStore(f.journal)
	f.cache = mocks.NewMockCache(f.journal)
	f.pub = &mocks.MockPublisher{Journal: f.journal}

	tenant := uuid.New()
	f.admin = domain.Principal{UserID: uuid.New(), TenantID: tenant, Role: domain.RoleAdmin, Email: "admin@example.com"}
	f.standard = domain.Principal{UserID: uuid.New(), TenantID: tenant, Role: domain.RoleStandard, Email: "user@example.com"}
	f.store.Roles[f.admin.UserID] = domain.RoleAdmin
	f.store.Roles[f.standard.UserID] = domain.RoleStandard

	effects := NewSideEffectQueue(f.snaps, f.pub, testLogger(), f.metrics, 0)
	f.engine = NewSyncEngine(f.store, f.snaps, f.cache, effects, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, testLogger(), f.metrics)

	var mu sync.Mutex
	tick := 0
	f.engine.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return baseTime.Add(time.Duration(tick) * time.Minute)
	}
	return f
}

// seed stores a floor plan last committed by committer at baseTime.
func (f *engineFixture) seed(committer domain.Principal, rooms ...domain.Room) domain.FloorPlan {
	fp := domain.FloorPlan{
		ID:             uuid.New(),
		TenantID:       committer.TenantID,
		Name:           "HQ",
		Width:          1000,
		Height:         800,
		LastModifiedAt: baseTime,
	}
	for _, r := range rooms {
		r.FloorPlanID = fp.ID
		fp.Rooms = append(fp.Rooms, r)
	}
	sortRooms(fp.Rooms)
	v := domain.FloorPlanVersion{
		ID:          uuid.New(),
		FloorPlanID: fp.ID,
		Snapshot:    NewVersionManager().Capture(&fp, nil),
		CommitterID: committer.UserID,
		Timestamp:   baseTime,
	}
	f.store.Seed(fp, v)
	fp.CurrentVersionID = &v.ID
	return fp
}

func room(name, capacity string, x, y float64) domain.Room {
	return domain.Room{ID: uuid.New(), Name: name, Capacity: capacity, Features: []string{}, X: x, Y: y, Width: 100, Height: 50}
}

func TestSyncEngine_ScenarioA_MoveAndOmit(t *testing.T) {
	f := newEngineFixture(t)
	r1, r2 := room("Room 1", "4", 10, 10), room("Room 2", "10", 200, 10)
	fp := f.seed(f.admin, r1, r2)

	updated, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: fp.LastModifiedAt,
		RoomUpdates: []domain.RoomUpdate{
			{RoomID: r1.ID, X: domain.Some(50.0), Y: domain.Some(60.0)},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Rooms, 1)
	assert.Equal(t, r1.ID, updated.Rooms[0].ID)
	assert.Equal(t, 50.0, updated.Rooms[0].X)
	assert.Equal(t, 60.0, updated.Rooms[0].Y)
	assert.Equal(t, "4", updated.Rooms[0].Capacity)

	stored, _ := f.store.FloorPlan(fp.ID)
	require.Len(t, stored.Rooms, 1)
	assert.Equal(t, r1.ID, stored.Rooms[0].ID)

	versions := f.store.Versions(fp.ID)
	require.Len(t, versions, 2)
	assert.Equal(t, versions[1].ID, *stored.CurrentVersionID)
	assert.True(t, stored.LastModifiedAt.After(fp.LastModifiedAt))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EditsTotal.WithLabelValues("update", "committed")))
}

func TestSyncEngine_ScenarioB_StaleStandardEditRejected(t *testing.T) {
	f := newEngineFixture(t)
	r1 := room("Room 1", "4", 10, 10)
	fp := f.seed(f.standard, r1)

	// Admin commits on top of the standard user's version.
	adminResult, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: fp.LastModifiedAt,
		RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID, Name: domain.Some("Boardroom")}},
	})
	require.NoError(t, err)
	before, _ := f.store.FloorPlan(fp.ID)
	versionsBefore := len(f.store.Versions(fp.ID))
	eventsBefore := len(f.pub.Published())

	// The standard user still holds the original timestamp.
	_, err = f.engine.Update(context.Background(), f.standard, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: fp.LastModifiedAt,
		RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID, Name: domain.Some("Huddle")}},
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.RoleAdmin, conflict.PriorRole)
	assert.Contains(t, conflict.Reason, "incoming role: standard")

	after, _ := f.store.FloorPlan(fp.ID)
	assert.Equal(t, before, after)
	assert.Len(t, f.store.Versions(fp.ID), versionsBefore)
	assert.Len(t, f.pub.Published(), eventsBefore)

	// Re-submitting with the refreshed timestamp succeeds.
	_, err = f.engine.Update(context.Background(), f.standard, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: adminResult.LastModifiedAt,
		RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID, Name: domain.Some("Huddle")}},
	})
	require.NoError(t, err)
	final, _ := f.store.FloorPlan(fp.ID)
	assert.Equal(t, "Huddle", final.Rooms[0].Name)
	assert.Len(t, f.store.Versions(fp.ID), versionsBefore+1)
}

func TestSyncEngine_StaleOverrideIsAudited(t *testing.T) {
	f := newEngineFixture(t)
	r1 := room("Room 1", "4", 10, 10)
	fp := f.seed(f.standard, r1)

	_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: fp.LastModifiedAt.Add(-time.Hour),
		RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID}},
	})
	require.NoError(t, err)

	versions := f.store.Versions(fp.ID)
	meta := versions[len(versions)-1].Snapshot.Meta
	require.NotNil(t, meta)
	assert.Contains(t, meta.ConflictResolution, "equal or higher priority")
	assert.False(t, meta.RestoredFromBackup)
}

func TestSyncEngine_FreshTimestampNeverConflicts(t *testing.T) {
	f := newEngineFixture(t)
	r1 := room("Room 1", "4", 10, 10)
	fp := f.seed(f.admin, r1)

	// Equal to the stored timestamp, then ahead of it.
	for _, ts := range []time.Time{fp.LastModifiedAt, fp.LastModifiedAt.Add(time.Hour)} {
		_, err := f.engine.Update(context.Background(), f.standard, domain.EditRequest{
			FloorPlanID:          fp.ID,
			ClientLastModifiedAt: ts,
			RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID}},
		})
		require.NoError(t, err)
	}
	meta := f.store.Versions(fp.ID)[2].Snapshot.Meta
	assert.Nil(t, meta)
}

func TestSyncEngine_EveryCommitAddsOneVersion(t *testing.T) {
	f := newEngineFixture(t)
	r1 := room("Room 1", "4", 10, 10)
	fp := f.seed(f.admin, r1)

	newRoomID := uuid.New()
	for i := 0; i < 3; i++ {
		current, _ := f.store.FloorPlan(fp.ID)
		updates := []domain.RoomUpdate{{RoomID: r1.ID, X: domain.Some(float64(i))}}
		if i == 1 {
			updates = append(updates, domain.RoomUpdate{
				RoomID:   newRoomID,
				Name:     domain.Some("New"),
				Capacity: domain.Some("2"),
				X:        domain.Some(1.0),
				Y:        domain.Some(2.0),
			})
		}
		result, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
			FloorPlanID:          fp.ID,
			ClientLastModifiedAt: current.LastModifiedAt,
			RoomUpdates:          updates,
		})
		require.NoError(t, err)

		versions := f.store.Versions(fp.ID)
		require.Len(t, versions, i+2)
		head := versions[len(versions)-1]
		assert.Equal(t, head.ID, *result.CurrentVersionID)
		assert.Equal(t, result.LastModifiedAt, head.Timestamp)
		assert.Len(t, head.Snapshot.Rooms, len(result.Rooms))

		written := f.snaps.Written(fp.ID)
		assert.Equal(t, head.Snapshot, written[len(written)-1])
	}

	final, _ := f.store.FloorPlan(fp.ID)
	assert.Len(t, final.Rooms, 1, "the room added in the second batch is omitted from the third")
}

func TestSyncEngine_NewRoomDefaultsAndValidation(t *testing.T) {
	f := newEngineFixture(t)
	fp := f.seed(f.admin)

	t.Run("defaults geometry", func(t *testing.T) {
		id := uuid.New()
		result, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
			FloorPlanID:          fp.ID,
			ClientLastModifiedAt: fp.LastModifiedAt,
			RoomUpdates: []domain.RoomUpdate{
				{RoomID: id, Name: domain.Some("Pod"), Capacity: domain.Some("1"), X: domain.Some(5.0), Y: domain.Some(6.0)},
			},
		})
		require.NoError(t, err)
		require.Len(t, result.Rooms, 1)
		assert.Equal(t, id, result.Rooms[0].ID)
		assert.Equal(t, domain.DefaultRoomWidth, result.Rooms[0].Width)
		assert.Equal(t, domain.DefaultRoomHeight, result.Rooms[0].Height)
	})

	invalid := []struct {
		name    string
		updates []domain.RoomUpdate
	}{
		{"new room without capacity", []domain.RoomUpdate{{RoomID: uuid.New(), Name: domain.Some("X"), X: domain.Some(1.0), Y: domain.Some(1.0)}}},
		{"missing room id", []domain.RoomUpdate{{Name: domain.Some("X")}}},
		{"duplicate room id", func() []domain.RoomUpdate {
			id := uuid.New()
			u := domain.RoomUpdate{RoomID: id, Name: domain.Some("X"), Capacity: domain.Some("1"), X: domain.Some(1.0), Y: domain.Some(1.0)}
			return []domain.RoomUpdate{u, u}
		}()},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			current, _ := f.store.FloorPlan(fp.ID)
			versions := len(f.store.Versions(fp.ID))

			_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
				FloorPlanID:          fp.ID,
				ClientLastModifiedAt: current.LastModifiedAt,
				RoomUpdates:          tt.updates,
			})
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Len(t, f.store.Versions(fp.ID), versions)
		})
	}
}

func TestSyncEngine_OtherTenantIsNotFound(t *testing.T) {
	f := newEngineFixture(t)
	fp := f.seed(f.admin, room("Room 1", "4", 0, 0))

	outsider := domain.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: domain.RoleAdmin}
	_, err := f.engine.Update(context.Background(), outsider, domain.EditRequest{FloorPlanID: fp.ID, ClientLastModifiedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.Restore(context.Background(), outsider, fp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, f.store.Versions(fp.ID), 1)
}

func TestSyncEngine_RelistingUnchangedRoomsIsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	r1, r2 := room("A", "4", 1, 2), room("B", "10", 3, 4)
	r1.Features = []string{"tv"}
	fp := f.seed(f.admin, r1, r2)

	_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: fp.LastModifiedAt,
		RoomUpdates:          []domain.RoomUpdate{{RoomID: r2.ID}, {RoomID: r1.ID}},
	})
	require.NoError(t, err)

	versions := f.store.Versions(fp.ID)
	require.Len(t, versions, 2)
	assert.Equal(t, versions[0].Snapshot, versions[1].Snapshot)
}

func TestSyncEngine_CacheInvalidatedBeforeSideEffects(t *testing.T) {
	f := newEngineFixture(t)
	r1 := room("Room 1", "4", 10, 10)
	fp := f.seed(f.admin, r1)
	ctx := context.Background()

	query := NewFloorPlanQueryUseCase(f.store, f.cache, time.Hour, time.Hour, testLogger())
	cached, err := query.Get(ctx, f.admin, fp.ID)
	require.NoError(t, err)
	_, err = query.List(ctx, f.admin)
	require.NoError(t, err)
	f.cache.Set(ctx, domain.FloorPlanStatusCacheKey(fp.ID), domain.FloorPlanStatus{ID: fp.ID, TenantID: fp.TenantID}, time.Minute)

	_, err = f.engine.Update(ctx, f.admin, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: cached.LastModifiedAt,
		RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID, Name: domain.Some("Renamed")}},
	})
	require.NoError(t, err)

	assert.False(t, f.cache.Has(domain.FloorPlanCacheKey(fp.ID)))
	assert.False(t, f.cache.Has(domain.FloorPlanListCacheKey(fp.TenantID)))
	assert.False(t, f.cache.Has(domain.FloorPlanStatusCacheKey(fp.ID)))

	fresh, err := query.Get(ctx, f.admin, fp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Rooms[0].Name)

	entries := f.journal.Entries()
	require.Len(t, entries, 5)
	for _, e := range entries[:3] {
		assert.True(t, strings.HasPrefix(e, "cache.delete "), e)
	}
	assert.Equal(t, "snapshot.write "+fp.ID.String(), entries[3])
	assert.Equal(t, fmt.Sprintf("publish %s %s", domain.EventFloorPlanChanged, fp.ID), entries[4])
}

func TestSyncEngine_TransientFailuresAreRetried(t *testing.T) {
	transient := fmt.Errorf("%w: serialization failure", domain.ErrTransientStore)

	t.Run("succeeds within the ceiling", func(t *testing.T) {
		f := newEngineFixture(t)
		r1 := room("Room 1", "4", 10, 10)
		fp := f.seed(f.admin, r1)
		f.store.CommitErrs = []error{transient, transient}

		_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
			FloorPlanID:          fp.ID,
			ClientLastModifiedAt: fp.LastModifiedAt,
			RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID}},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, f.store.TxCalls)
		assert.Len(t, f.store.Versions(fp.ID), 2)
		assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CommitRetries))
	})

	t.Run("escalates after the ceiling", func(t *testing.T) {
		f := newEngineFixture(t)
		r1 := room("Room 1", "4", 10, 10)
		fp := f.seed(f.admin, r1)
		f.store.CommitErrs = []error{transient, transient, transient}

		_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
			FloorPlanID:          fp.ID,
			ClientLastModifiedAt: fp.LastModifiedAt,
			RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID}},
		})
		assert.ErrorIs(t, err, domain.ErrTransientStore)
		assert.Equal(t, 3, f.store.TxCalls)
		assert.Len(t, f.store.Versions(fp.ID), 1)
		assert.Empty(t, f.pub.Published())
		assert.Empty(t, f.journal.Entries())
	})

	t.Run("permanent failures are not retried", func(t *testing.T) {
		f := newEngineFixture(t)
		r1 := room("Room 1", "4", 10, 10)
		fp := f.seed(f.admin, r1)
		f.store.CommitErrs = []error{errors.New("disk full")}

		_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
			FloorPlanID:          fp.ID,
			ClientLastModifiedAt: fp.LastModifiedAt,
			RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID}},
		})
		assert.EqualError(t, err, "disk full")
		assert.Equal(t, 1, f.store.TxCalls)
	})

	t.Run("retries re-run conflict resolution", func(t *testing.T) {
		f := newEngineFixture(t)
		r1 := room("Room 1", "4", 10, 10)
		fp := f.seed(f.standard, r1)
		f.store.CommitErrs = []error{transient}

		// An admin commit lands between the first attempt and the retry.
		calls := 0
		f.store.BeforeTx = func() {
			calls++
			if calls != 2 {
				return
			}
			_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
				FloorPlanID:          fp.ID,
				ClientLastModifiedAt: fp.LastModifiedAt,
				RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID, Name: domain.Some("Boardroom")}},
			})
			require.NoError(t, err)
		}

		_, err := f.engine.Update(context.Background(), f.standard, domain.EditRequest{
			FloorPlanID:          fp.ID,
			ClientLastModifiedAt: fp.LastModifiedAt,
			RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID, Name: domain.Some("Huddle")}},
		})
		require.ErrorIs(t, err, domain.ErrConflict)

		final, _ := f.store.FloorPlan(fp.ID)
		assert.Equal(t, "Boardroom", final.Rooms[0].Name)
		assert.Len(t, f.store.Versions(fp.ID), 2)
	})
}

func TestSyncEngine_BestEffortFailuresAreAbsorbed(t *testing.T) {
	f := newEngineFixture(t)
	r1 := room("Room 1", "4", 10, 10)
	fp := f.seed(f.admin, r1)
	f.snaps.WriteErr = errors.New("disk unavailable")
	f.pub.Err = errors.New("broker unavailable")

	_, err := f.engine.Update(context.Background(), f.admin, domain.EditRequest{
		FloorPlanID:          fp.ID,
		ClientLastModifiedAt: fp.LastModifiedAt,
		RoomUpdates:          []domain.RoomUpdate{{RoomID: r1.ID}},
	})
	require.NoError(t, err)
	assert.Len(t, f.store.Versions(fp.ID), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SnapshotWrites.WithLabelValues("error")))
}

func TestSyncEngine_Create(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.cache.Set(ctx, domain.FloorPlanListCacheKey(f.admin.TenantID), []domain.FloorPlan{}, time.Hour)

	fp, err := f.engine.Create(ctx, f.admin, domain.CreateFloorPlanInput{
		Name:   "Annex",
		Width:  500,
		Height: 400,
		Rooms: []domain.NewRoomInput{
			{Name: "A", Capacity: "4", X: 1, Y: 1},
			{Name: "B", Capacity: "8", X: 200, Y: 1, Width: 150, Height: 80},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, f.admin.TenantID, fp.TenantID)
	require.Len(t, fp.Rooms, 2)
	versions := f.store.Versions(fp.ID)
	require.Len(t, versions, 1)
	assert.Equal(t, versions[0].ID, *fp.CurrentVersionID)
	assert.Equal(t, f.admin.UserID, versions[0].CommitterID)
	assert.False(t, f.cache.Has(domain.FloorPlanListCacheKey(f.admin.TenantID)))
	assert.Len(t, f.snaps.Written(fp.ID), 1)
	assert.Equal(t, []domain.LiveEvent{{FloorPlanID: fp.ID, TenantID: fp.TenantID, Event: domain.EventFloorPlanChanged}}, f.pub.Published())

	for _, r := range fp.Rooms {
		if r.Name == "A" {
			assert.Equal(t, domain.DefaultRoomWidth, r.Width)
		}
	}

	_, err = f.engine.Create(ctx, f.admin, domain.CreateFloorPlanInput{Name: "", Width: 1, Height: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSyncEngine_RestoreRoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	created, err := f.engine.Create(ctx, f.admin, domain.CreateFloorPlanInput{
		Name:   "Main",
		Width:  900,
		Height: 700,
		Rooms: []domain.NewRoomInput{
			{Name: "A", Capacity: "4", Features: []string{"tv"}, X: 1, Y: 1},
			{Name: "B", Capacity: "10", X: 300, Y: 1},
		},
	})
	require.NoError(t, err)
	backup := f.snaps.Written(created.ID)[0]

	// Edit while the archive is down, so the backup stays at the created state.
	f.snaps.WriteErr = errors.New("disk unavailable")
	_, err = f.engine.Update(ctx, f.admin, domain.EditRequest{
		FloorPlanID:          created.ID,
		ClientLastModifiedAt: created.LastModifiedAt,
		RoomUpdates:          []domain.RoomUpdate{{RoomID: created.Rooms[0].ID, Name: domain.Some("Changed"), X: domain.Some(42.0)}},
	})
	require.NoError(t, err)
	f.snaps.WriteErr = nil

	restored, err := f.engine.Restore(ctx, f.admin, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.Rooms, restored.Rooms)
	versions := f.store.Versions(created.ID)
	require.Len(t, versions, 3)
	head := versions[2]
	require.NotNil(t, head.Snapshot.Meta)
	assert.True(t, head.Snapshot.Meta.RestoredFromBackup)
	assert.Equal(t, backup.Rooms, head.Snapshot.Rooms)
	assert.Equal(t, backup.FloorPlan, head.Snapshot.FloorPlan)
	assert.True(t, head.Timestamp.After(versions[1].Timestamp))

	events := f.pub.Published()
	assert.Equal(t, domain.EventFloorPlanRestored, events[len(events)-1].Event)
}

func TestSyncEngine_ScenarioC_RestoreWithoutBackup(t *testing.T) {
	f := newEngineFixture(t)
	fp := f.seed(f.admin, room("Room 1", "4", 0, 0))

	_, err := f.engine.Restore(context.Background(), f.admin, fp.ID)
	assert.ErrorIs(t, err, domain.ErrNoBackup)
	assert.Len(t, f.store.Versions(fp.ID), 1)
	assert.Equal(t, 0, f.store.TxCalls)
	assert.Empty(t, f.pub.Published())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EditsTotal.WithLabelValues("restore", "no_backup")))
}
