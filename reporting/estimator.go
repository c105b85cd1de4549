/*
Package reporting provides read-only views over the points ledger.

PURPOSE:
  Assembles customer-facing statements and marketing estimates from
  ledger data. Nothing in this package writes to the ledger; money
  figures here are derived approximations, never booked values. The
  ledger itself holds whole points only.

COMPONENTS:
  Estimator: Back-estimates money spent from purchase credit entries
             using the program's earn rate.
  Statement: Newest-first activity view with "X of Y still active"
             annotations on credit lines.
*/
package reporting

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/points-engine/ledger"
)

// Estimator converts points to approximate currency amounts.
//
// The conversion inverts the earn rate (points granted per currency
// unit). Because crediting floors fractional points, the estimate is a
// lower bound on actual spend.
type Estimator struct {
	engine   *ledger.Engine
	earnRate decimal.Decimal
	reason   ledger.ReasonKey
}

// NewEstimator creates an estimator for entries earned under the given
// reason at the given earn rate.
func NewEstimator(engine *ledger.Engine, earnRate decimal.Decimal, reason ledger.ReasonKey) *Estimator {
	return &Estimator{engine: engine, earnRate: earnRate, reason: reason}
}

// EstimateValue converts a point amount to currency, rounded to two
// decimal places.
func (e *Estimator) EstimateValue(points ledger.Points) decimal.Decimal {
	return decimal.NewFromInt(int64(points)).Div(e.earnRate).Round(2)
}

// SpendEstimate summarizes back-estimated purchase spend for one account.
type SpendEstimate struct {
	AccountID      ledger.AccountID `json:"accountId"`
	PurchasePoints ledger.Points    `json:"purchasePoints"`
	Orders         int              `json:"orders"`
	EstimatedSpend decimal.Decimal  `json:"estimatedSpend"`
}

// EstimateSpend sums the account's purchase credits and back-estimates
// the money spent to earn them.
func (e *Estimator) EstimateSpend(ctx context.Context, id ledger.AccountID) (SpendEstimate, error) {
	if _, err := e.engine.GetAccount(ctx, id); err != nil {
		return SpendEstimate{}, err
	}
	entries, err := e.engine.Store().Entries(ctx, id)
	if err != nil {
		return SpendEstimate{}, err
	}

	est := SpendEstimate{AccountID: id}
	for _, entry := range entries {
		if entry.Kind != ledger.EntryCredit || entry.Reason != e.reason {
			continue
		}
		est.PurchasePoints += entry.Amount
		est.Orders++
	}
	est.EstimatedSpend = e.EstimateValue(est.PurchasePoints)
	return est, nil
}
