/*
history.go - Read model for account history

PURPOSE:
  Derived, read-only view over the entry log for UI history screens:
  entries newest-first, credit entries annotated with their batch's
  remaining/original so the UI can render "20 of 50 still active".
  Not part of the mutating contract.
*/
package ledger

import "context"

// =============================================================================
// HISTORY READ MODEL
// =============================================================================

// HistoryEntry is one entry with optional batch annotation. The
// annotation is present for credit entries whose batch row still exists.
type HistoryEntry struct {
	Entry

	// BatchRemaining/BatchOriginal describe the created batch's current
	// state for credit entries; nil for debits.
	BatchRemaining *Points
	BatchOriginal  *Points
	BatchStatus    BatchStatus
}

// History returns the account's entries ordered by timestamp descending.
// limit <= 0 returns the full log.
func (e *Engine) History(ctx context.Context, id AccountID, limit int) ([]HistoryEntry, error) {
	if _, err := e.store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	entries, err := e.store.Entries(ctx, id)
	if err != nil {
		return nil, err
	}

	batches, err := e.store.Batches(ctx, id)
	if err != nil {
		return nil, err
	}
	byID := make(map[BatchID]CreditBatch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}

	// Entries come back in replay order; walk backwards for newest-first.
	history := make([]HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		h := HistoryEntry{Entry: entries[i]}
		if entries[i].Kind == EntryCredit {
			if b, ok := byID[entries[i].BatchID]; ok {
				remaining, original := b.Remaining, b.Original
				h.BatchRemaining = &remaining
				h.BatchOriginal = &original
				h.BatchStatus = b.Status
			}
		}
		history = append(history, h)
		if limit > 0 && len(history) == limit {
			break
		}
	}
	return history, nil
}
