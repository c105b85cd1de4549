/*
sweep.go - Expiration sweep of lapsed batches

PURPOSE:
  Finds active batches whose expiration has passed with a positive
  remainder, zeroes them, and debits the balance by the total swept.
  One debit entry with reason "expiration" documents the whole sweep.

IDEMPOTENCE:
  A batch already Expired or Consumed is excluded from the scan, so
  re-running the sweep is a true no-op: zero expired, no entry written.

ORDERING WITH REDEMPTION:
  Sweep runs under the same account-scoped atomic unit as Redeem, so a
  batch can never be consumed by a redemption and zeroed by a sweep for
  overlapping amounts - one of the two conflicts and retries.
*/
package ledger

import "context"

// =============================================================================
// SWEEP
// =============================================================================

// Sweep expires every active batch whose ExpiresAt has passed, debiting
// the account by the total remainder swept. Called on session start, on
// a schedule, or on demand; safe to retry wholesale.
func (e *Engine) Sweep(ctx context.Context, accountID AccountID) (SweepResult, error) {
	now := e.now().UTC()

	var result SweepResult
	err := e.inAccount(ctx, accountID, func(tx AccountTx) error {
		batches, err := tx.ActiveBatches(ctx)
		if err != nil {
			return err
		}

		var expired Points
		var batchIDs []BatchID
		var draws []BatchDraw
		for _, b := range batches {
			if !b.Expired(now) {
				continue
			}
			amount := b.Remaining
			b.Remaining = 0
			b.Status = BatchExpired
			if err := tx.PutBatch(ctx, b); err != nil {
				return err
			}
			expired += amount
			batchIDs = append(batchIDs, b.ID)
			draws = append(draws, BatchDraw{
				BatchID:  b.ID,
				Amount:   amount,
				Original: b.Original,
				IssuedAt: b.IssuedAt,
			})
		}

		if expired.IsZero() {
			result = SweepResult{BalanceAfter: tx.Account().Balance}
			return nil
		}

		balanceAfter := tx.Account().Balance - expired
		entry := Entry{
			ID:           NewEntryID(),
			AccountID:    accountID,
			Kind:         EntryDebit,
			Amount:       -expired,
			Reason:       ReasonExpiration,
			Draws:        draws,
			BalanceAfter: balanceAfter,
			Timestamp:    now,
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return err
		}

		tx.SetBalance(balanceAfter)
		result = SweepResult{
			ExpiredPoints: expired,
			BatchIDs:      batchIDs,
			EntryID:       entry.ID,
			BalanceAfter:  balanceAfter,
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}
	return result, nil
}
