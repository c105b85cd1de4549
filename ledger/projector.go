/*
projector.go - Balance reconstruction and consistency checks

PURPOSE:
  Account.Balance is a materialized view. The append-only entry log is
  the source of truth, so the balance can always be recomputed
  independently and compared against both the account row and the sum
  of active batch remainders. At every quiescent point the three agree:

    Balance == Σ Entry.Amount == Σ Remaining over Active batches

  A disagreement means a bug or out-of-band data damage; the report
  makes it visible instead of letting reads silently diverge.

SEE ALSO:
  - engine.go: The operations that maintain the materialized view
*/
package ledger

import "context"

// =============================================================================
// CONSISTENCY REPORT
// =============================================================================

// ConsistencyReport compares the three balance views for one account.
type ConsistencyReport struct {
	AccountID AccountID

	// Balance is the materialized account row.
	Balance Points

	// LedgerSum is the signed sum of all entries (replay of the log).
	LedgerSum Points

	// ActiveRemainders is the sum of Remaining over Active batches.
	ActiveRemainders Points

	Consistent bool
}

// =============================================================================
// PROJECTOR
// =============================================================================

// RebuildBalance recomputes the balance by replaying the entry log,
// ignoring the materialized account row entirely.
func (e *Engine) RebuildBalance(ctx context.Context, id AccountID) (Points, error) {
	// Existence check first so an empty log is distinguishable from a
	// missing account.
	if _, err := e.store.GetAccount(ctx, id); err != nil {
		return 0, err
	}
	entries, err := e.store.Entries(ctx, id)
	if err != nil {
		return 0, err
	}
	var sum Points
	for _, entry := range entries {
		sum += entry.Amount
	}
	return sum, nil
}

// CheckConsistency reads the three balance views and reports whether
// they agree. Meaningful at quiescent points; a report taken while a
// mutation is in flight on another node may transiently disagree.
func (e *Engine) CheckConsistency(ctx context.Context, id AccountID) (ConsistencyReport, error) {
	account, err := e.store.GetAccount(ctx, id)
	if err != nil {
		return ConsistencyReport{}, err
	}

	ledgerSum, err := e.RebuildBalance(ctx, id)
	if err != nil {
		return ConsistencyReport{}, err
	}

	batches, err := e.store.ActiveBatches(ctx, id)
	if err != nil {
		return ConsistencyReport{}, err
	}
	var remainders Points
	for _, b := range batches {
		remainders += b.Remaining
	}

	return ConsistencyReport{
		AccountID:        id,
		Balance:          account.Balance,
		LedgerSum:        ledgerSum,
		ActiveRemainders: remainders,
		Consistent:       account.Balance == ledgerSum && account.Balance == remainders,
	}, nil
}
