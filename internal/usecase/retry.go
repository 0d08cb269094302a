package usecase

import (
	"context"
	"errors"

	"github.com/akashdesaidev/Threadspire/internal/domain"
	"github.com/akashdesaidev/Threadspire/internal/metrics"
)

const maxSaveAttempts = 5

// retryStale runs a read-modify-write cycle until it stops losing version
// races. fn must re-read the documents it saves on every call.
func retryStale(ctx context.Context, operation string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, domain.ErrStaleWrite) {
			return err
		}
		if attempt == maxSaveAttempts {
			return domain.ConflictError{Reason: "document is being modified concurrently, please retry"}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		metrics.StaleWriteRetries.WithLabelValues(operation).Inc()
	}
}
