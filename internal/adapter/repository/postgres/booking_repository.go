package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BookingRepository implements domain.BookingRepository for PostgreSQL.
type BookingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB, logger *slog.Logger) *BookingRepository {
	return &BookingRepository{db: db, logger: logger.With("component", "postgres_bookings")}
}

// ActiveBookings returns the bookings of roomIDs whose window contains at,
// joined with the booking user's e-mail.
func (r *BookingRepository) ActiveBookings(ctx context.Context, roomIDs []uuid.UUID, at time.Time) ([]domain.ActiveBooking, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		ids[i] = id.String()
	}

	query := `SELECT b.room_id, b.user_id, COALESCE(u.email, ''), b.start_time, b.end_time
		FROM bookings b LEFT JOIN users u ON u.id = b.user_id
		WHERE b.room_id = ANY($1::uuid[]) AND b.start_time <= $2 AND b.end_time > $2
		ORDER BY b.start_time`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids), at)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query active bookings: %w", err))
	}
	defer rows.Close()

	var bookings []domain.ActiveBooking
	for rows.Next() {
		var b domain.ActiveBooking
		if err := rows.Scan(&b.RoomID, &b.UserID, &b.UserEmail, &b.StartTime, &b.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.StartTime = b.StartTime.UTC()
		b.EndTime = b.EndTime.UTC()
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate bookings: %w", err))
	}
	return bookings, nil
}

// CreateBooking locks the room, then inserts the booking only if no existing
// booking overlaps the requested window.
func (r *BookingRepository) CreateBooking(ctx context.Context, tenantID uuid.UUID, b *domain.Booking) (uuid.UUID, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer txn.Rollback()

	var floorPlanID uuid.UUID
	err = txn.QueryRowContext(ctx,
		`SELECT r.floor_plan_id FROM rooms r JOIN floor_plans f ON f.id = r.floor_plan_id
		WHERE r.id = $1 AND f.company_id = $2 FOR UPDATE OF r`,
		b.RoomID, tenantID).Scan(&floorPlanID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, domain.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, classify(fmt.Errorf("failed to lock room: %w", err))
	}

	res, err := txn.ExecContext(ctx,
		`INSERT INTO bookings (id, room_id, user_id, start_time, end_time, participants)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings WHERE room_id = $2 AND start_time < $5 AND end_time > $4
		)`,
		b.ID, b.RoomID, b.UserID, b.StartTime, b.EndTime, b.Participants)
	if err != nil {
		return uuid.Nil, classify(fmt.Errorf("failed to insert booking: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return uuid.Nil, domain.ErrSlotTaken
	}

	if err := txn.Commit(); err != nil {
		return uuid.Nil, classify(fmt.Errorf("failed to commit booking: %w", err))
	}
	r.logger.Info("booking created", "booking_id", b.ID, "room_id", b.RoomID)
	return floorPlanID, nil
}

// UpcomingBookings lists the tenant's bookings that have not ended yet.
func (r *BookingRepository) UpcomingBookings(ctx context.Context, tenantID, userID uuid.UUID, after time.Time) ([]domain.BookingListing, error) {
	var user any
	if userID != uuid.Nil {
		user = userID
	}

	query := `SELECT b.id, b.room_id, b.user_id, b.start_time, b.end_time, b.participants,
			r.floor_plan_id, r.name, COALESCE(u.email, '')
		FROM bookings b
		JOIN rooms r ON r.id = b.room_id
		JOIN floor_plans f ON f.id = r.floor_plan_id
		LEFT JOIN users u ON u.id = b.user_id
		WHERE f.company_id = $1 AND ($2::uuid IS NULL OR b.user_id = $2::uuid) AND b.end_time > $3
		ORDER BY b.start_time`
	rows, err := r.db.QueryContext(ctx, query, tenantID, user, after)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query upcoming bookings: %w", err))
	}
	defer rows.Close()

	bookings := []domain.BookingListing{}
	for rows.Next() {
		var b domain.BookingListing
		if err := rows.Scan(&b.ID, &b.RoomID, &b.UserID, &b.StartTime, &b.EndTime, &b.Participants,
			&b.FloorPlanID, &b.RoomName, &b.UserEmail); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.StartTime = b.StartTime.UTC()
		b.EndTime = b.EndTime.UTC()
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate bookings: %w", err))
	}
	return bookings, nil
}
