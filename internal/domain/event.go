package domain

import "github.com/google/uuid"

// EventType names a change broadcast on the live feed.
type EventType string

const (
	EventBookingChanged    EventType = "BOOKING_CHANGED"
	EventFloorPlanChanged  EventType = "FLOOR_PLAN_CHANGED"
	EventFloorPlanRestored EventType = "FLOOR_PLAN_RESTORED"
)

// LiveEvent is the message exchanged between server processes through the broker.
type LiveEvent struct {
	FloorPlanID uuid.UUID `json:"floor_plan_id"`
	TenantID    uuid.UUID `json:"company_id"`
	Event       EventType `json:"event"`
}
