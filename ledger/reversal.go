/*
reversal.go - Administrative corrections via compensating entries

PURPOSE:
  The ledger log is append-only: an entry is never deleted, even by an
  admin. A mistake is corrected by appending a compensating entry that
  reverses the original signed amount and adjusts the balance in the
  same atomic unit. Both the original and the reversal remain in the
  log, so history always explains the current balance.

RULES:
  - Reversing a credit entry requires its batch untouched (Remaining ==
    Original, still Active). The reversal executes as a debit draw
    against that batch alone, driving it to Consumed - the batch state
    machine stays Active -> {Consumed | Expired}. A partially consumed
    batch cannot be reversed directly: the consuming debits must be
    reversed first (ErrCorrectionRequiresReversal).
  - Reversing a debit entry re-credits the amount as a fresh batch. Its
    expiry is the furthest expiry among the batches the debit drew from;
    closed-out batch rows keep their ExpiresAt, so this is always
    resolvable. The drawn batches themselves stay terminal - no batch
    resurrects.
  - An entry is reversed at most once.
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// REVERSE
// =============================================================================

// Reverse appends a compensating entry for the given entry and adjusts
// batches and balance accordingly. The concept is audit text explaining
// the correction.
func (e *Engine) Reverse(ctx context.Context, accountID AccountID, entryID EntryID, concept string) (ReversalResult, error) {
	var result ReversalResult
	err := e.inAccount(ctx, accountID, func(tx AccountTx) error {
		original, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if original.AccountID != accountID {
			return ErrEntryNotFound
		}
		reversed, err := tx.IsReversed(ctx, entryID)
		if err != nil {
			return err
		}
		if reversed {
			return ErrAlreadyReversed
		}

		switch original.Kind {
		case EntryCredit:
			return e.reverseCredit(ctx, tx, original, concept, &result)
		default:
			return e.reverseDebit(ctx, tx, original, concept, &result)
		}
	})
	if err != nil {
		return ReversalResult{}, err
	}
	return result, nil
}

// DeleteEntry is the unsupported destructive path. It exists so callers
// reaching for a raw delete get a typed refusal pointing at Reverse.
func (e *Engine) DeleteEntry(ctx context.Context, accountID AccountID, entryID EntryID) error {
	return ErrCorrectionRequiresReversal
}

func (e *Engine) reverseCredit(ctx context.Context, tx AccountTx, original Entry, concept string, result *ReversalResult) error {
	batch, err := tx.GetBatch(ctx, original.BatchID)
	if err != nil {
		return err
	}
	if batch.Status != BatchActive || batch.Remaining != batch.Original {
		return ErrCorrectionRequiresReversal
	}

	batch.Remaining = 0
	batch.Status = BatchConsumed
	if err := tx.PutBatch(ctx, batch); err != nil {
		return err
	}

	balanceAfter := tx.Account().Balance - original.Amount
	entry := Entry{
		ID:         NewEntryID(),
		AccountID:  original.AccountID,
		Kind:       EntryDebit,
		Amount:     -original.Amount,
		Reason:     ReasonReversal,
		Concept:    concept,
		ReversesID: original.ID,
		Draws: []BatchDraw{{
			BatchID:  batch.ID,
			Amount:   original.Amount,
			Original: batch.Original,
			IssuedAt: batch.IssuedAt,
		}},
		BalanceAfter: balanceAfter,
		Timestamp:    e.now().UTC(),
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return err
	}

	tx.SetBalance(balanceAfter)
	*result = ReversalResult{EntryID: entry.ID, BalanceAfter: balanceAfter}
	return nil
}

func (e *Engine) reverseDebit(ctx context.Context, tx AccountTx, original Entry, concept string, result *ReversalResult) error {
	amount := -original.Amount // debit amounts are negative
	if !amount.IsPositive() {
		return ErrCorrectionRequiresReversal
	}

	// Restore the furthest expiry among the drawn batches. If none lies in
	// the future (reversing an expiration sweep), fall back to the default
	// lifetime rather than minting an already-expired batch.
	now := e.now().UTC()
	var furthest time.Time
	for _, draw := range original.Draws {
		drawn, err := tx.GetBatch(ctx, draw.BatchID)
		if err != nil {
			return err
		}
		if drawn.ExpiresAt.After(furthest) {
			furthest = drawn.ExpiresAt
		}
	}
	expiresAt := furthest
	if !expiresAt.After(now) {
		expiresAt = e.defaultTTL.ExpiresAt(now)
	}

	batch := CreditBatch{
		ID:        NewBatchID(),
		AccountID: original.AccountID,
		Original:  amount,
		Remaining: amount,
		Reason:    ReasonReversal,
		Status:    BatchActive,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}
	if err := tx.PutBatch(ctx, batch); err != nil {
		return err
	}

	balanceAfter := tx.Account().Balance + amount
	entry := Entry{
		ID:           NewEntryID(),
		AccountID:    original.AccountID,
		Kind:         EntryCredit,
		Amount:       amount,
		Reason:       ReasonReversal,
		Concept:      concept,
		BatchID:      batch.ID,
		ReversesID:   original.ID,
		BalanceAfter: balanceAfter,
		Timestamp:    now,
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return err
	}

	tx.SetBalance(balanceAfter)
	*result = ReversalResult{EntryID: entry.ID, BatchID: batch.ID, BalanceAfter: balanceAfter}
	return nil
}
