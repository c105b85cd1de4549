/*
statement.go - Customer-facing activity statement

PURPOSE:
  Renders the account history the way the loyalty UI shows it: newest
  entry first, each credit annotated with how much of its batch is still
  active, each debit carrying its FIFO breakdown text.
*/
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/points-engine/ledger"
)

// StatementLine is one rendered history row.
type StatementLine struct {
	EntryID      ledger.EntryID   `json:"entryId"`
	Kind         ledger.EntryKind `json:"kind"`
	Amount       ledger.Points    `json:"amount"`
	Reason       ledger.ReasonKey `json:"reason"`
	Concept      string           `json:"concept,omitempty"`
	BalanceAfter ledger.Points    `json:"balanceAfter"`
	Timestamp    time.Time        `json:"timestamp"`

	// Activity is human-readable annotation text. For credits:
	// "20 of 50 still active". For debits: one line per batch drawn.
	Activity []string `json:"activity,omitempty"`
}

// Statement is the assembled newest-first view.
type Statement struct {
	AccountID ledger.AccountID `json:"accountId"`
	Balance   ledger.Points    `json:"balance"`
	Lines     []StatementLine  `json:"lines"`
}

// BuildStatement renders the account's history. limit <= 0 returns the
// full log.
func BuildStatement(ctx context.Context, engine *ledger.Engine, id ledger.AccountID, limit int) (Statement, error) {
	account, err := engine.GetAccount(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	history, err := engine.History(ctx, id, limit)
	if err != nil {
		return Statement{}, err
	}

	st := Statement{
		AccountID: id,
		Balance:   account.Balance,
		Lines:     make([]StatementLine, 0, len(history)),
	}
	for _, h := range history {
		line := StatementLine{
			EntryID:      h.ID,
			Kind:         h.Kind,
			Amount:       h.Amount,
			Reason:       h.Reason,
			Concept:      h.Concept,
			BalanceAfter: h.BalanceAfter,
			Timestamp:    h.Timestamp,
		}
		switch h.Kind {
		case ledger.EntryCredit:
			if h.BatchRemaining != nil && h.BatchOriginal != nil {
				line.Activity = []string{creditAnnotation(*h.BatchRemaining, *h.BatchOriginal, h.BatchStatus)}
			}
		case ledger.EntryDebit:
			for _, d := range h.Draws {
				line.Activity = append(line.Activity,
					fmt.Sprintf("%d pts from batch issued %s", d.Amount, d.IssuedAt.Format("2006-01-02")))
			}
		}
		st.Lines = append(st.Lines, line)
	}
	return st, nil
}

func creditAnnotation(remaining, original ledger.Points, status ledger.BatchStatus) string {
	switch status {
	case ledger.BatchExpired:
		return fmt.Sprintf("expired, 0 of %d still active", original)
	case ledger.BatchConsumed:
		return fmt.Sprintf("fully used, 0 of %d still active", original)
	default:
		return fmt.Sprintf("%d of %d still active", remaining, original)
	}
}
