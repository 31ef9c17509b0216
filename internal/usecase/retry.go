package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/V4T54L/floor-sync/internal/adapter/metrics"
	"github.com/V4T54L/floor-sync/internal/domain"
)

const (
	defaultCommitAttempts = 3
	defaultCommitBackoff  = 200 * time.Millisecond
)

// RetryPolicy retries transient store failures with a linear backoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultCommitAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = defaultCommitBackoff
	}
	return p
}

// do runs fn until it succeeds, fails with an error that is not
// domain.ErrTransientStore, or the attempt ceiling is reached. The last error is returned.
func (p RetryPolicy) do(ctx context.Context, logger *slog.Logger, m *metrics.SyncMetrics, fn func() error) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, domain.ErrTransientStore) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		logger.Warn("transient store failure, retrying", "attempt", attempt, "error", lastErr)
		if m != nil {
			m.CommitRetries.Inc()
		}
		select {
		case <-time.After(p.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
