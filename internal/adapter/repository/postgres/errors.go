package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/lib/pq"
)

// SQLSTATE codes a transaction may succeed on when retried from scratch.
var transientCodes = map[pq.ErrorCode]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// classify tags driver errors that are worth retrying with domain.ErrTransientStore.
func classify(err error) error {
	if err == nil || errors.Is(err, domain.ErrTransientStore) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransientStore, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		_, ok := transientCodes[pqErr.Code]
		return ok
	}
	return false
}
