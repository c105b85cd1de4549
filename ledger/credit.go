/*
credit.go - Credit issuance with the award-once idempotency guard

PURPOSE:
  Credits points to an account as a new expiring batch. One atomic unit
  writes the batch, the credit entry, the balance increment and - for
  award-once reasons - the issuance marker, so a crash or conflict can
  never leave a batch without its entry or a marker without its points.

IDEMPOTENCY:
  Award-once reasons (welcome_signup, profile_address) check the
  issuance marker before writing; a second attempt fails with
  ErrAlreadyAwarded and mutates nothing. Callers treat that as a benign
  no-op. Repeatable reasons (purchase_credit) skip the guard entirely;
  deduplicating the same purchase is the caller's responsibility via a
  caller-side idempotency key.

SEE ALSO:
  - policy.go: Expiry resolution
  - loyalty/reasons.go: Which reasons are award-once
*/
package ledger

import "context"

// =============================================================================
// CREDIT
// =============================================================================

// CreditInput describes one credit request.
type CreditInput struct {
	AccountID AccountID
	Amount    Points
	Reason    ReasonKey
	Concept   string // optional audit text for the entry

	// Expiry resolves the batch lifetime; nil selects the engine default.
	// Policy lives with the caller: different reasons, different lifetimes.
	Expiry ExpiryPolicy

	// AwardOnce engages the issuance guard for this (account, reason).
	AwardOnce bool
}

// Credit issues a new Active batch and its credit entry, incrementing the
// account balance. Returns ErrInvalidAmount for non-positive amounts and
// ErrAlreadyAwarded when an award-once reason was already issued; neither
// performs any mutation.
func (e *Engine) Credit(ctx context.Context, in CreditInput) (CreditResult, error) {
	if !in.Amount.IsPositive() {
		return CreditResult{}, ErrInvalidAmount
	}

	expiry := in.Expiry
	if expiry == nil {
		expiry = e.defaultTTL
	}

	var result CreditResult
	err := e.inAccount(ctx, in.AccountID, func(tx AccountTx) error {
		if in.AwardOnce {
			issued, err := tx.HasIssuance(ctx, in.Reason)
			if err != nil {
				return err
			}
			if issued {
				return &AlreadyAwardedError{AccountID: in.AccountID, Reason: in.Reason}
			}
		}

		now := e.now().UTC()
		batch := CreditBatch{
			ID:        NewBatchID(),
			AccountID: in.AccountID,
			Original:  in.Amount,
			Remaining: in.Amount,
			Reason:    in.Reason,
			Status:    BatchActive,
			IssuedAt:  now,
			ExpiresAt: expiry.ExpiresAt(now),
		}
		if err := tx.PutBatch(ctx, batch); err != nil {
			return err
		}

		balanceAfter := tx.Account().Balance + in.Amount
		entry := Entry{
			ID:           NewEntryID(),
			AccountID:    in.AccountID,
			Kind:         EntryCredit,
			Amount:       in.Amount,
			Reason:       in.Reason,
			Concept:      in.Concept,
			BatchID:      batch.ID,
			BalanceAfter: balanceAfter,
			Timestamp:    now,
		}
		if err := tx.AppendEntry(ctx, entry); err != nil {
			return err
		}

		if in.AwardOnce {
			if err := tx.PutIssuance(ctx, Issuance{
				AccountID: in.AccountID,
				Reason:    in.Reason,
				IssuedAt:  now,
			}); err != nil {
				return err
			}
		}

		tx.SetBalance(balanceAfter)
		result = CreditResult{
			BatchID:      batch.ID,
			EntryID:      entry.ID,
			Amount:       in.Amount,
			BalanceAfter: balanceAfter,
		}
		return nil
	})
	if err != nil {
		return CreditResult{}, err
	}
	return result, nil
}
