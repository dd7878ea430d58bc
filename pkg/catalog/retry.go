package catalog

import (
	"context"
	"errors"
	"log"

	"github.com/stashdb/stashdb/pkg/domain"
)

// WriteConflictRetry runs fn, re-running it from scratch whenever it fails
// with a transient write conflict. fn must rebuild any accumulator on every
// attempt; nothing carries over between attempts. Retries are unbounded and
// stop only when fn succeeds, fails with a non-transient error, or ctx is
// cancelled.
func WriteConflictRetry(ctx context.Context, op, ns string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrWriteConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt%100 == 0 {
			log.Printf("WARN: %s on %s retried %d times after write conflicts", op, ns, attempt)
		}
	}
}
