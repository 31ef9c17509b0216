package pii

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/V4T54L/floor-sync/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks personal data in live status views served to non-admin viewers.
type Redactor struct {
	fieldsToRedact map[string]struct{}
	logger         *slog.Logger
}

// NewRedactor creates a Redactor masking the given booking detail fields
// (JSON names, e.g. "user_email").
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field != "" {
			fieldSet[field] = struct{}{}
		}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// RedactStatus replaces the configured string fields of every current booking
// with RedactedPlaceholder, in place. It returns the number of bookings touched.
func (r *Redactor) RedactStatus(status *domain.FloorPlanStatus) (int, error) {
	if len(r.fieldsToRedact) == 0 {
		return 0, nil
	}

	redacted := 0
	for i := range status.Rooms {
		details := status.Rooms[i].CurrentBooking
		if details == nil {
			continue
		}
		changed, err := r.redactDetails(details)
		if err != nil {
			r.logger.Error("failed to redact booking details", "error", err, "room_id", status.Rooms[i].ID)
			return redacted, err
		}
		if changed {
			redacted++
		}
	}
	return redacted, nil
}

func (r *Redactor) redactDetails(details *domain.BookingDetails) (bool, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return false, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, err
	}

	changed := false
	for field := range r.fieldsToRedact {
		v, ok := fields[field]
		if !ok {
			continue
		}
		if _, isString := v.(string); !isString {
			r.logger.Warn("skipping redaction of non-string field", "field", field)
			continue
		}
		fields[field] = RedactedPlaceholder
		changed = true
	}
	if !changed {
		return false, nil
	}

	modified, err := json.Marshal(fields)
	if err != nil {
		return false, err
	}
	var out domain.BookingDetails
	if err := json.Unmarshal(modified, &out); err != nil {
		return false, fmt.Errorf("failed to decode redacted booking details: %w", err)
	}
	*details = out
	return true, nil
}
