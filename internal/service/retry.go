package service

import (
	"context"
	"errors"
	"time"

	"github.com/supstonad/be-utbetaling/internal/client"
)

// withRetry runs fn up to maxAttempts times with exponential backoff, but only
// while the failure is a plain transport error. An ambiguous outcome or a
// business rejection aborts immediately: resending on an unknown outcome is
// exactly what the predecessor chain exists to prevent.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, client.ErrTransport) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base << (attempt - 1)):
		}
	}
	return err
}
