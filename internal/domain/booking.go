package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room status values exposed by the live view.
const (
	StatusAvailable = "Available"
	StatusBooked    = "Booked"
)

// Booking is a reservation of a room for a time window.
type Booking struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	UserID       uuid.UUID `json:"user_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Participants int       `json:"participants"`
}

// BookingListing is a booking with the room and user it belongs to.
type BookingListing struct {
	Booking
	FloorPlanID uuid.UUID `json:"floor_plan_id"`
	RoomName    string    `json:"room_name"`
	UserEmail   string    `json:"user_email"`
}

// ActiveBooking is a booking whose window contains the observation instant.
type ActiveBooking struct {
	RoomID    uuid.UUID
	UserID    uuid.UUID
	UserEmail string
	StartTime time.Time
	EndTime   time.Time
}

// BookingDetails describes who holds a room right now.
type BookingDetails struct {
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email,omitempty"`
	EndTime   time.Time `json:"end_time"`
}

// RoomStatus is a room annotated with its live occupancy.
type RoomStatus struct {
	Room
	CurrentStatus  string          `json:"current_status"`
	CurrentBooking *BookingDetails `json:"current_booking_details"`
}

// FloorPlanStatus is the live occupancy view of a floor plan.
type FloorPlanStatus struct {
	ID               uuid.UUID    `json:"id"`
	TenantID         uuid.UUID    `json:"company_id"`
	Name             string       `json:"name"`
	Width            float64      `json:"width"`
	Height           float64      `json:"height"`
	LastModifiedAt   time.Time    `json:"last_modified_at"`
	CurrentVersionID *uuid.UUID   `json:"current_version_id"`
	Rooms            []RoomStatus `json:"rooms"`
}
