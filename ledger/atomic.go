package ledger

import (
	"context"
	"errors"
)

// =============================================================================
// ATOMIC RUNNER - Bounded retry over optimistic conflicts
// =============================================================================

// DefaultMaxAttempts bounds how many times an atomic unit is retried
// after an optimistic conflict before ErrConcurrentModification surfaces.
const DefaultMaxAttempts = 3

// runAtomic executes fn as an account-scoped atomic unit, retrying the
// whole read-modify-write cycle on optimistic conflicts. Every attempt
// starts from a fresh read; a unit never commits partially, so an
// abandoned or conflicted attempt is equivalent to "never happened".
func runAtomic(ctx context.Context, store AtomicStore, id AccountID, attempts int, fn func(tx AccountTx) error) error {
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = store.InAccount(ctx, id, fn)
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}
	}
	return err
}
