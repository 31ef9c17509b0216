package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// Journal records side effects across fakes in the order they happened.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *Journal) record(format string, args ...any) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of everything recorded so far.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}

// MockFloorPlanStore is an in-memory domain.FloorPlanRepository. Each InTx works on
// a private copy of the state that replaces the shared state only on commit.
type MockFloorPlanStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	plans    map[uuid.UUID]domain.FloorPlan
	versions map[uuid.UUID][]domain.FloorPlanVersion

	// Roles maps user ids to the role reported by CommitterRole.
	Roles map[uuid.UUID]domain.Role
	// CommitErrs are returned by successive InTx calls after fn succeeds, discarding its writes.
	CommitErrs []error
	GetErr     error
	RoleErr    error
	TxCalls    int
	// BeforeTx runs at the start of every InTx call, before the store is locked.
	BeforeTx func()
}

func NewMockFloorPlanStore() *MockFloorPlanStore {
	return &MockFloorPlanStore{
		plans:    make(map[uuid.UUID]domain.FloorPlan),
		versions: make(map[uuid.UUID][]domain.FloorPlanVersion),
		Roles:    make(map[uuid.UUID]domain.Role),
	}
}

// Seed stores a floor plan together with its head version.
func (m *MockFloorPlanStore) Seed(fp domain.FloorPlan, v domain.FloorPlanVersion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp.CurrentVersionID = &v.ID
	m.plans[fp.ID] = clonePlan(fp)
	m.versions[fp.ID] = append(m.versions[fp.ID], v)
}

// FloorPlan returns the committed state of a floor plan regardless of tenant.
func (m *MockFloorPlanStore) FloorPlan(id uuid.UUID) (domain.FloorPlan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, ok := m.plans[id]
	return clonePlan(fp), ok
}

// Versions returns the committed versions of a floor plan in insertion order.
func (m *MockFloorPlanStore) Versions(floorPlanID uuid.UUID) []domain.FloorPlanVersion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.versions[floorPlanID])
}

func (m *MockFloorPlanStore) GetFloorPlan(ctx context.Context, tenantID, floorPlanID uuid.UUID) (*domain.FloorPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	fp, ok := m.plans[floorPlanID]
	if !ok || fp.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	out := clonePlan(fp)
	return &out, nil
}

func (m *MockFloorPlanStore) ListFloorPlans(ctx context.Context, tenantID uuid.UUID) ([]domain.FloorPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	out := []domain.FloorPlan{}
	for _, fp := range m.plans {
		if fp.TenantID == tenantID {
			out = append(out, clonePlan(fp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockFloorPlanStore) ListVersions(ctx context.Context, tenantID, floorPlanID uuid.UUID) ([]domain.VersionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, ok := m.plans[floorPlanID]
	if !ok || fp.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	vs := m.versions[floorPlanID]
	out := make([]domain.VersionSummary, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		out = append(out, domain.VersionSummary{ID: vs[i].ID, CommitterID: vs[i].CommitterID, Timestamp: vs[i].Timestamp})
	}
	return out, nil
}

func (m *MockFloorPlanStore) CommitterRole(ctx context.Context, versionID uuid.UUID) (domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RoleErr != nil {
		return "", m.RoleErr
	}
	for _, vs := range m.versions {
		for _, v := range vs {
			if v.ID == versionID {
				return m.Roles[v.CommitterID], nil
			}
		}
	}
	return "", nil
}

func (m *MockFloorPlanStore) InTx(ctx context.Context, fn func(tx domain.FloorPlanTx) error) error {
	if m.BeforeTx != nil {
		m.BeforeTx()
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.TxCalls++
	tx := &mockTx{
		plans:    make(map[uuid.UUID]domain.FloorPlan, len(m.plans)),
		versions: make(map[uuid.UUID][]domain.FloorPlanVersion, len(m.versions)),
	}
	for id, fp := range m.plans {
		tx.plans[id] = clonePlan(fp)
	}
	for id, vs := range m.versions {
		tx.versions[id] = slices.Clone(vs)
	}
	m.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CommitErrs) > 0 {
		err := m.CommitErrs[0]
		m.CommitErrs = m.CommitErrs[1:]
		if err != nil {
			return err
		}
	}
	m.plans = tx.plans
	m.versions = tx.versions
	return nil
}

type mockTx struct {
	plans    map[uuid.UUID]domain.FloorPlan
	versions map[uuid.UUID][]domain.FloorPlanVersion
}

func (t *mockTx) LockFloorPlan(ctx context.Context, tenantID, floorPlanID uuid.UUID) (*domain.FloorPlan, error) {
	fp, ok := t.plans[floorPlanID]
	if !ok || fp.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	out := clonePlan(fp)
	return &out, nil
}

func (t *mockTx) CreateFloorPlan(ctx context.Context, fp *domain.FloorPlan) error {
	if _, ok := t.plans[fp.ID]; ok {
		return fmt.Errorf("floor plan %s already exists", fp.ID)
	}
	stored := clonePlan(*fp)
	stored.Rooms = nil
	t.plans[fp.ID] = stored
	return nil
}

func (t *mockTx) UpdateFloorPlan(ctx context.Context, fp *domain.FloorPlan) error {
	stored, ok := t.plans[fp.ID]
	if !ok {
		return domain.ErrNotFound
	}
	rooms := stored.Rooms
	stored = clonePlan(*fp)
	stored.Rooms = rooms
	t.plans[fp.ID] = stored
	return nil
}

func (t *mockTx) InsertRoom(ctx context.Context, room domain.Room) error {
	fp, ok := t.plans[room.FloorPlanID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, r := range fp.Rooms {
		if r.ID == room.ID {
			return fmt.Errorf("room %s already exists", room.ID)
		}
	}
	fp.Rooms = append(fp.Rooms, cloneRoom(room))
	t.plans[fp.ID] = fp
	return nil
}

func (t *mockTx) UpdateRoom(ctx context.Context, room domain.Room) error {
	fp, ok := t.plans[room.FloorPlanID]
	if !ok {
		return domain.ErrNotFound
	}
	for i, r := range fp.Rooms {
		if r.ID == room.ID {
			fp.Rooms[i] = cloneRoom(room)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (t *mockTx) DeleteRooms(ctx context.Context, floorPlanID uuid.UUID, roomIDs []uuid.UUID) error {
	fp, ok := t.plans[floorPlanID]
	if !ok {
		return domain.ErrNotFound
	}
	fp.Rooms = slices.DeleteFunc(fp.Rooms, func(r domain.Room) bool {
		return slices.Contains(roomIDs, r.ID)
	})
	t.plans[floorPlanID] = fp
	return nil
}

func (t *mockTx) DeleteAllRooms(ctx context.Context, floorPlanID uuid.UUID) error {
	fp, ok := t.plans[floorPlanID]
	if !ok {
		return domain.ErrNotFound
	}
	fp.Rooms = nil
	t.plans[floorPlanID] = fp
	return nil
}

func (t *mockTx) InsertVersion(ctx context.Context, v *domain.FloorPlanVersion) error {
	t.versions[v.FloorPlanID] = append(t.versions[v.FloorPlanID], *v)
	return nil
}

func clonePlan(fp domain.FloorPlan) domain.FloorPlan {
	out := fp
	if fp.CurrentVersionID != nil {
		id := *fp.CurrentVersionID
		out.CurrentVersionID = &id
	}
	out.MapData = slices.Clone(fp.MapData)
	out.Rooms = make([]domain.Room, len(fp.Rooms))
	for i, r := range fp.Rooms {
		out.Rooms[i] = cloneRoom(r)
	}
	return out
}

func cloneRoom(r domain.Room) domain.Room {
	r.Features = slices.Clone(r.Features)
	return r
}

// MockBookingStore is an in-memory domain.BookingRepository.
type MockBookingStore struct {
	mu sync.Mutex
	// Bookings are the stored reservations; RoomPlans maps each room to its floor plan
	// and RoomTenants to its owning tenant. Listings mirror Bookings for UpcomingBookings.
	Bookings    []domain.ActiveBooking
	Listings    []domain.BookingListing
	RoomPlans   map[uuid.UUID]uuid.UUID
	RoomTenants map[uuid.UUID]uuid.UUID
	ActiveErr   error
	ActiveCalls int
}

func NewMockBookingStore() *MockBookingStore {
	return &MockBookingStore{
		RoomPlans:   make(map[uuid.UUID]uuid.UUID),
		RoomTenants: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *MockBookingStore) ActiveBookings(ctx context.Context, roomIDs []uuid.UUID, at time.Time) ([]domain.ActiveBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActiveCalls++
	if m.ActiveErr != nil {
		return nil, m.ActiveErr
	}
	var out []domain.ActiveBooking
	for _, b := range m.Bookings {
		if slices.Contains(roomIDs, b.RoomID) && !b.StartTime.After(at) && at.Before(b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockBookingStore) CreateBooking(ctx context.Context, tenantID uuid.UUID, b *domain.Booking) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RoomTenants[b.RoomID] != tenantID {
		return uuid.Nil, domain.ErrNotFound
	}
	for _, existing := range m.Bookings {
		if existing.RoomID == b.RoomID && existing.StartTime.Before(b.EndTime) && b.StartTime.Before(existing.EndTime) {
			return uuid.Nil, domain.ErrSlotTaken
		}
	}
	m.Bookings = append(m.Bookings, domain.ActiveBooking{
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
	})
	m.Listings = append(m.Listings, domain.BookingListing{Booking: *b, FloorPlanID: m.RoomPlans[b.RoomID]})
	return m.RoomPlans[b.RoomID], nil
}

func (m *MockBookingStore) UpcomingBookings(ctx context.Context, tenantID, userID uuid.UUID, after time.Time) ([]domain.BookingListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.BookingListing{}
	for _, b := range m.Listings {
		if m.RoomTenants[b.RoomID] != tenantID || !b.EndTime.After(after) {
			continue
		}
		if userID != uuid.Nil && b.UserID != userID {
			continue
		}
		out = append(out, b)
	}
	slices.SortStableFunc(out, func(a, b domain.BookingListing) int { return a.StartTime.Compare(b.StartTime) })
	return out, nil
}

// MockCache is an in-memory domain.Cache that round-trips values through JSON
// like the Redis implementation.
type MockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	Journal *Journal
	Hits    int
	Misses  int
}

func NewMockCache(j *Journal) *MockCache {
	return &MockCache{data: make(map[string][]byte), Journal: j}
}

func (m *MockCache) Get(ctx context.Context, key string, dest any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok || json.Unmarshal(raw, dest) != nil {
		m.Misses++
		return false
	}
	m.Hits++
	return true
}

func (m *MockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
		m.Journal.record("cache.delete %s", k)
	}
}

// Has reports whether key is currently cached.
func (m *MockCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// MockSnapshotStore is an in-memory domain.SnapshotRepository.
type MockSnapshotStore struct {
	mu       sync.Mutex
	snaps    map[uuid.UUID][]domain.Snapshot
	Journal  *Journal
	WriteErr error
}

func NewMockSnapshotStore(j *Journal) *MockSnapshotStore {
	return &MockSnapshotStore{snaps: make(map[uuid.UUID][]domain.Snapshot), Journal: j}
}

func (m *MockSnapshotStore) Write(ctx context.Context, floorPlanID uuid.UUID, snap domain.Snapshot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return "", m.WriteErr
	}
	m.snaps[floorPlanID] = append(m.snaps[floorPlanID], snap)
	m.Journal.record("snapshot.write %s", floorPlanID)
	return fmt.Sprintf("%s/%d.json", floorPlanID, len(m.snaps[floorPlanID])), nil
}

func (m *MockSnapshotStore) Latest(ctx context.Context, floorPlanID uuid.UUID) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps := m.snaps[floorPlanID]
	if len(snaps) == 0 {
		return nil, domain.ErrNoBackup
	}
	snap := snaps[len(snaps)-1]
	return &snap, nil
}

func (m *MockSnapshotStore) List(ctx context.Context, floorPlanID uuid.UUID) ([]domain.SnapshotFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps := m.snaps[floorPlanID]
	out := make([]domain.SnapshotFile, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		out = append(out, domain.SnapshotFile{Name: fmt.Sprintf("%d.json", i+1)})
	}
	return out, nil
}

// Written returns every snapshot written for a floor plan, oldest first.
func (m *MockSnapshotStore) Written(floorPlanID uuid.UUID) []domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.snaps[floorPlanID])
}

// MockPublisher is an in-memory domain.EventPublisher.
type MockPublisher struct {
	mu      sync.Mutex
	Events  []domain.LiveEvent
	Journal *Journal
	Err     error
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.LiveEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	m.Journal.record("publish %s %s", event.Event, event.FloorPlanID)
	return nil
}

// Published returns a copy of every event published so far.
func (m *MockPublisher) Published() []domain.LiveEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Events)
}
