/*
redeem.go - FIFO redemption against expiring batches

PURPOSE:
  Consumes points from active batches in earliest-expiration-first order
  so customers lose as little as possible to expiry. The whole
  redemption is one atomic unit: either the debit entry, every batch
  decrement and the balance decrement commit together, or nothing does.

ORDERING:
  Batches are walked ascending by ExpiresAt, ties broken by IssuedAt,
  then by ID, so the draw order is deterministic for equal expiries.

FAIL-CLOSED:
  If the batch walk exhausts the list before the request is satisfied -
  possible only on a stale read that slipped past the precondition - the
  unit aborts with ErrConcurrentModification and the runner retries from
  a fresh read. A partial debit is never written.
*/
package ledger

import "context"

// =============================================================================
// REDEEM
// =============================================================================

// Redeem consumes pointsNeeded from the account's active batches in FIFO
// order. The concept is audit text describing what was redeemed; side
// effects outside the ledger (prize stock, notifications) belong to the
// caller. Returns ErrInvalidAmount for non-positive amounts and
// ErrInsufficientBalance when active remainders cannot cover the request.
func (e *Engine) Redeem(ctx context.Context, accountID AccountID, pointsNeeded Points, concept string) (RedemptionResult, error) {
	if !pointsNeeded.IsPositive() {
		return RedemptionResult{}, ErrInvalidAmount
	}

	now := e.now().UTC()

	var result RedemptionResult
	err := e.inAccount(ctx, accountID, func(tx AccountTx) error {
		all, err := tx.ActiveBatches(ctx)
		if err != nil {
			return err
		}

		// Lapsed batches the sweeper has not visited yet are not
		// spendable. They stay untouched here; Sweep books them.
		batches := make([]CreditBatch, 0, len(all))
		var available Points
		for _, b := range all {
			if b.Expired(now) {
				continue
			}
			batches = append(batches, b)
			available += b.Remaining
		}
		if available < pointsNeeded {
			return &InsufficientBalanceError{
				AccountID: accountID,
				Available: available,
				Requested: pointsNeeded,
			}
		}

		needed := pointsNeeded
		draws := make([]BatchDraw, 0, len(batches))
		for _, b := range batches {
			if needed.IsZero() {
				break
			}
			take := b.Remaining.Min(needed)
			b.Remaining -= take
			if b.Remaining.IsZero() {
				b.Status = BatchConsumed
			}
			if err := tx.PutBatch(ctx, b); err != nil {
				return err
			}
			draws = append(draws, BatchDraw{
				BatchID:  b.ID,
				Amount:   take,
				Original: b.Original,
				IssuedAt: b.IssuedAt,
			})
			needed -= take
		}
		if needed.IsPositive() {
			// The precondition passed on a snapshot the walk contradicted.
			// Abort; the runner retries the whole redemption on fresh state.
			return ErrConcurrentModification
		}

		balanceAfter := tx.Account().Balance - pointsNeeded
		entry := Entry{
			ID:           NewEntryID(),
			AccountID:    accountID,
			Kind:         EntryDebit,
			Amount:       -pointsNeeded,
			Reason:       ReasonRedemption,
			Concept:      concept,
			Draws:        draws,
			BalanceAfter: balanceAfter,
			Timestamp:    now,
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return err
		}

		tx.SetBalance(balanceAfter)
		result = RedemptionResult{
			EntryID:      entry.ID,
			BalanceAfter: balanceAfter,
			Breakdown:    draws,
		}
		return nil
	})
	if err != nil {
		return RedemptionResult{}, err
	}
	return result, nil
}
