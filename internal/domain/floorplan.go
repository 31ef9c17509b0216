package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Default geometry for rooms created without explicit dimensions.
const (
	DefaultRoomWidth  = 100.0
	DefaultRoomHeight = 50.0
)

// FloorPlan is a tenant-owned layout document together with its rooms.
type FloorPlan struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"company_id"`
	Name             string          `json:"name"`
	Width            float64         `json:"width"`
	Height           float64         `json:"height"`
	MapData          json.RawMessage `json:"map_data,omitempty"`
	LastModifiedAt   time.Time       `json:"last_modified_at"`
	CurrentVersionID *uuid.UUID      `json:"current_version_id,omitempty"`
	Rooms            []Room          `json:"rooms"`
}

// Room is a bookable rectangle on a floor plan.
type Room struct {
	ID          uuid.UUID `json:"id"`
	FloorPlanID uuid.UUID `json:"floor_plan_id"`
	Name        string    `json:"name"`
	Capacity    string    `json:"capacity"`
	Features    []string  `json:"features"`
	X           float64   `json:"x_coord"`
	Y           float64   `json:"y_coord"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
}

// RoomIDs returns the ids of every room on the plan.
func (fp *FloorPlan) RoomIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(fp.Rooms))
	for i, r := range fp.Rooms {
		ids[i] = r.ID
	}
	return ids
}

// FloorPlanVersion is an immutable record of a committed floor plan state.
type FloorPlanVersion struct {
	ID          uuid.UUID `json:"version_id"`
	FloorPlanID uuid.UUID `json:"floor_plan_id"`
	Snapshot    Snapshot  `json:"data_snapshot"`
	CommitterID uuid.UUID `json:"committer_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// VersionSummary is a version without its payload, used for history listings.
type VersionSummary struct {
	ID          uuid.UUID `json:"version_id"`
	CommitterID uuid.UUID `json:"committer_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// Snapshot is the self-contained serialized state of a floor plan.
// The same document is stored on the version row and written to disk.
type Snapshot struct {
	FloorPlan SnapshotFloorPlan `json:"floor_plan"`
	Rooms     []SnapshotRoom    `json:"rooms"`
	Meta      *SnapshotMeta     `json:"meta,omitempty"`
}

type SnapshotFloorPlan struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Width   float64         `json:"width"`
	Height  float64         `json:"height"`
	MapData json.RawMessage `json:"map_data"`
}

type SnapshotRoom struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Capacity string   `json:"capacity"`
	Features []string `json:"features"`
	X        float64  `json:"x_coord"`
	Y        float64  `json:"y_coord"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
}

// SnapshotMeta records how a version came to be.
type SnapshotMeta struct {
	ConflictResolution string `json:"conflict_resolution,omitempty"`
	RestoredFromBackup bool   `json:"restored_from_backup,omitempty"`
}

// SnapshotFile describes one backup file on disk.
type SnapshotFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	WrittenAt time.Time `json:"written_at"`
	Size      int64     `json:"size"`
}

// RoomUpdate is one entry of an edit batch. Only fields marked present are applied.
// The identity is the only mandatory field; it cannot be changed by an update.
type RoomUpdate struct {
	RoomID   uuid.UUID          `json:"room_id"`
	Name     Optional[string]   `json:"name,omitzero"`
	Capacity Optional[string]   `json:"capacity,omitzero"`
	Features Optional[[]string] `json:"features,omitzero"`
	X        Optional[float64]  `json:"x_coord,omitzero"`
	Y        Optional[float64]  `json:"y_coord,omitzero"`
	Width    Optional[float64]  `json:"width,omitzero"`
	Height   Optional[float64]  `json:"height,omitzero"`
}

// ApplyTo mutates room with every present field of the update.
func (u RoomUpdate) ApplyTo(room *Room) {
	if u.Name.Present {
		room.Name = u.Name.Value
	}
	if u.Capacity.Present {
		room.Capacity = u.Capacity.Value
	}
	if u.Features.Present {
		room.Features = u.Features.Value
	}
	if u.X.Present {
		room.X = u.X.Value
	}
	if u.Y.Present {
		room.Y = u.Y.Value
	}
	if u.Width.Present {
		room.Width = u.Width.Value
	}
	if u.Height.Present {
		room.Height = u.Height.Value
	}
}

// NewRoom builds a room from an update that introduces a new identity.
func (u RoomUpdate) NewRoom(floorPlanID uuid.UUID) (Room, error) {
	if !u.Name.Present || !u.Capacity.Present || !u.X.Present || !u.Y.Present {
		return Room{}, NewValidationError("new room %s must carry name, capacity, x_coord and y_coord", u.RoomID)
	}
	room := Room{
		ID:          u.RoomID,
		FloorPlanID: floorPlanID,
		Width:       DefaultRoomWidth,
		Height:      DefaultRoomHeight,
	}
	u.ApplyTo(&room)
	return room, nil
}

// EditRequest is an editor's batch of room changes against a floor plan.
type EditRequest struct {
	FloorPlanID          uuid.UUID    `json:"floor_plan_id"`
	ClientLastModifiedAt time.Time    `json:"client_last_modified_at"`
	RoomUpdates          []RoomUpdate `json:"room_updates"`
}

// Validate checks the batch shape before any store access.
func (r EditRequest) Validate() error {
	if r.FloorPlanID == uuid.Nil {
		return NewValidationError("floor_plan_id is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(r.RoomUpdates))
	for i, u := range r.RoomUpdates {
		if u.RoomID == uuid.Nil {
			return NewValidationError("room_updates[%d] is missing room_id", i)
		}
		if _, dup := seen[u.RoomID]; dup {
			return NewValidationError("room %s appears more than once in the batch", u.RoomID)
		}
		seen[u.RoomID] = struct{}{}
	}
	return nil
}

// NewRoomInput is a room supplied at floor plan creation.
type NewRoomInput struct {
	Name     string   `json:"name"`
	Capacity string   `json:"capacity"`
	Features []string `json:"features"`
	X        float64  `json:"x_coord"`
	Y        float64  `json:"y_coord"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
}

// CreateFloorPlanInput is the upload payload for a new floor plan.
type CreateFloorPlanInput struct {
	Name    string          `json:"name"`
	MapData json.RawMessage `json:"map_data,omitempty"`
	Width   float64         `json:"width"`
	Height  float64         `json:"height"`
	Rooms   []NewRoomInput  `json:"rooms"`
}

// Validate checks the upload payload.
func (in CreateFloorPlanInput) Validate() error {
	if in.Name == "" {
		return NewValidationError("name is required")
	}
	if in.Width <= 0 || in.Height <= 0 {
		return NewValidationError("width and height must be positive")
	}
	for i, r := range in.Rooms {
		if r.Name == "" || r.Capacity == "" {
			return NewValidationError("rooms[%d] must carry name and capacity", i)
		}
	}
	return nil
}
