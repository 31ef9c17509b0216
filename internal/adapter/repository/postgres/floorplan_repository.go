package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	floorPlanColumns = `id, company_id, name, width, height, map_data, last_modified_at, current_version_id`
	roomColumns      = `id, floor_plan_id, name, capacity, features, x_coord, y_coord, width, height`
)

// querier is the subset of *sql.DB and *sql.Tx used by the row helpers.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FloorPlanRepository implements domain.FloorPlanRepository for PostgreSQL.
type FloorPlanRepository struct {
	db     *sql.DB
	logger *slog.Logger
	roles  *CommitterRoleCache
}

// NewFloorPlanRepository creates a new PostgreSQL floor plan repository.
func NewFloorPlanRepository(db *sql.DB, roles *CommitterRoleCache, logger *slog.Logger) *FloorPlanRepository {
	return &FloorPlanRepository{
		db:     db,
		logger: logger.With("component", "postgres_floor_plans"),
		roles:  roles,
	}
}

func (r *FloorPlanRepository) GetFloorPlan(ctx context.Context, tenantID, floorPlanID uuid.UUID) (*domain.FloorPlan, error) {
	query := `SELECT ` + floorPlanColumns + ` FROM floor_plans WHERE id = $1 AND company_id = $2`
	fp, err := scanFloorPlan(r.db.QueryRowContext(ctx, query, floorPlanID, tenantID))
	if err != nil {
		return nil, err
	}
	if fp.Rooms, err = loadRooms(ctx, r.db, floorPlanID); err != nil {
		return nil, err
	}
	return fp, nil
}

func (r *FloorPlanRepository) ListFloorPlans(ctx context.Context, tenantID uuid.UUID) ([]domain.FloorPlan, error) {
	query := `SELECT ` + floorPlanColumns + ` FROM floor_plans WHERE company_id = $1 ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list floor plans: %w", err))
	}
	defer rows.Close()

	plans := []domain.FloorPlan{}
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		fp, err := scanFloorPlan(rows)
		if err != nil {
			return nil, err
		}
		fp.Rooms = []domain.Room{}
		index[fp.ID] = len(plans)
		plans = append(plans, *fp)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate floor plans: %w", err))
	}
	if len(plans) == 0 {
		return plans, nil
	}

	ids := make([]string, len(plans))
	for i, fp := range plans {
		ids[i] = fp.ID.String()
	}
	roomRows, err := r.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE floor_plan_id = ANY($1::uuid[]) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list rooms: %w", err))
	}
	defer roomRows.Close()

	for roomRows.Next() {
		room, err := scanRoom(roomRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[room.FloorPlanID]; ok {
			plans[i].Rooms = append(plans[i].Rooms, room)
		}
	}
	if err := roomRows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate rooms: %w", err))
	}
	return plans, nil
}

func (r *FloorPlanRepository) ListVersions(ctx context.Context, tenantID, floorPlanID uuid.UUID) ([]domain.VersionSummary, error) {
	query := `SELECT v.id, v.committer_id, v.timestamp
		FROM fp_versions v JOIN floor_plans f ON f.id = v.floor_plan_id
		WHERE v.floor_plan_id = $1 AND f.company_id = $2
		ORDER BY v.timestamp DESC`
	rows, err := r.db.QueryContext(ctx, query, floorPlanID, tenantID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list versions: %w", err))
	}
	defer rows.Close()

	var versions []domain.VersionSummary
	for rows.Next() {
		var v domain.VersionSummary
		if err := rows.Scan(&v.ID, &v.CommitterID, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate versions: %w", err))
	}
	// Every floor plan has at least its creation version.
	if len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	return versions, nil
}

func (r *FloorPlanRepository) CommitterRole(ctx context.Context, versionID uuid.UUID) (domain.Role, error) {
	return r.roles.CommitterRole(ctx, versionID)
}

// InTx runs fn in a read-committed transaction. Row locks taken through
// LockFloorPlan serialize concurrent writers of the same floor plan.
func (r *FloorPlanRepository) InTx(ctx context.Context, fn func(tx domain.FloorPlanTx) error) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	if err := fn(&floorPlanTx{tx: txn}); err != nil {
		return classify(err)
	}
	if err := txn.Commit(); err != nil {
		r.logger.Warn("transaction commit failed", "error", err)
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

type floorPlanTx struct {
	tx *sql.Tx
}

func (t *floorPlanTx) LockFloorPlan(ctx context.Context, tenantID, floorPlanID uuid.UUID) (*domain.FloorPlan, error) {
	query := `SELECT ` + floorPlanColumns + ` FROM floor_plans WHERE id = $1 AND company_id = $2 FOR UPDATE`
	fp, err := scanFloorPlan(t.tx.QueryRowContext(ctx, query, floorPlanID, tenantID))
	if err != nil {
		return nil, err
	}
	if fp.Rooms, err = loadRooms(ctx, t.tx, floorPlanID); err != nil {
		return nil, err
	}
	return fp, nil
}

func (t *floorPlanTx) CreateFloorPlan(ctx context.Context, fp *domain.FloorPlan) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO floor_plans (`+floorPlanColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fp.ID, fp.TenantID, fp.Name, fp.Width, fp.Height, nullJSON(fp.MapData), fp.LastModifiedAt, nullUUID(fp.CurrentVersionID))
	if err != nil {
		return fmt.Errorf("failed to insert floor plan: %w", err)
	}
	return nil
}

func (t *floorPlanTx) UpdateFloorPlan(ctx context.Context, fp *domain.FloorPlan) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE floor_plans SET name = $2, width = $3, height = $4, map_data = $5, last_modified_at = $6, current_version_id = $7 WHERE id = $1`,
		fp.ID, fp.Name, fp.Width, fp.Height, nullJSON(fp.MapData), fp.LastModifiedAt, nullUUID(fp.CurrentVersionID))
	if err != nil {
		return fmt.Errorf("failed to update floor plan: %w", err)
	}
	return expectAffected(res)
}

func (t *floorPlanTx) InsertRoom(ctx context.Context, room domain.Room) error {
	features, err := encodeFeatures(room.Features)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		room.ID, room.FloorPlanID, room.Name, room.Capacity, features, room.X, room.Y, room.Width, room.Height)
	if err != nil {
		return fmt.Errorf("failed to insert room %s: %w", room.ID, err)
	}
	return nil
}

func (t *floorPlanTx) UpdateRoom(ctx context.Context, room domain.Room) error {
	features, err := encodeFeatures(room.Features)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE rooms SET name = $3, capacity = $4, features = $5, x_coord = $6, y_coord = $7, width = $8, height = $9
		WHERE id = $1 AND floor_plan_id = $2`,
		room.ID, room.FloorPlanID, room.Name, room.Capacity, features, room.X, room.Y, room.Width, room.Height)
	if err != nil {
		return fmt.Errorf("failed to update room %s: %w", room.ID, err)
	}
	return expectAffected(res)
}

func (t *floorPlanTx) DeleteRooms(ctx context.Context, floorPlanID uuid.UUID, roomIDs []uuid.UUID) error {
	if len(roomIDs) == 0 {
		return nil
	}
	ids := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		ids[i] = id.String()
	}
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM rooms WHERE floor_plan_id = $1 AND id = ANY($2::uuid[])`, floorPlanID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to delete rooms: %w", err)
	}
	return nil
}

func (t *floorPlanTx) DeleteAllRooms(ctx context.Context, floorPlanID uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM rooms WHERE floor_plan_id = $1`, floorPlanID); err != nil {
		return fmt.Errorf("failed to clear rooms: %w", err)
	}
	return nil
}

func (t *floorPlanTx) InsertVersion(ctx context.Context, v *domain.FloorPlanVersion) error {
	snapshot, err := json.Marshal(v.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal version snapshot: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO fp_versions (id, floor_plan_id, data_snapshot, committer_id, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.FloorPlanID, string(snapshot), v.CommitterID, v.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFloorPlan(row rowScanner) (*domain.FloorPlan, error) {
	var (
		fp        domain.FloorPlan
		mapData   []byte
		versionID uuid.NullUUID
	)
	err := row.Scan(&fp.ID, &fp.TenantID, &fp.Name, &fp.Width, &fp.Height, &mapData, &fp.LastModifiedAt, &versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to scan floor plan: %w", err))
	}
	if len(mapData) > 0 {
		fp.MapData = json.RawMessage(mapData)
	}
	if versionID.Valid {
		fp.CurrentVersionID = &versionID.UUID
	}
	fp.LastModifiedAt = fp.LastModifiedAt.UTC()
	return &fp, nil
}

func loadRooms(ctx context.Context, q querier, floorPlanID uuid.UUID) ([]domain.Room, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE floor_plan_id = $1 ORDER BY id`, floorPlanID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to load rooms: %w", err))
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate rooms: %w", err))
	}
	return rooms, nil
}

func scanRoom(row rowScanner) (domain.Room, error) {
	var (
		room     domain.Room
		features []byte
	)
	if err := row.Scan(&room.ID, &room.FloorPlanID, &room.Name, &room.Capacity, &features, &room.X, &room.Y, &room.Width, &room.Height); err != nil {
		return domain.Room{}, fmt.Errorf("failed to scan room: %w", err)
	}
	room.Features = []string{}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &room.Features); err != nil {
			return domain.Room{}, fmt.Errorf("failed to decode features of room %s: %w", room.ID, err)
		}
	}
	return room, nil
}

func encodeFeatures(features []string) (string, error) {
	if features == nil {
		features = []string{}
	}
	b, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("failed to marshal room features: %w", err)
	}
	return string(b), nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
