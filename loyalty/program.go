/*
program.go - Retail loyalty program service

PURPOSE:
  Orchestrates the ledger engine for the retail program's flows. The
  engine knows nothing about signups or orders; this service maps
  program events onto credits, redemptions and sweeps using the reason
  catalog.

FLOWS:
  Signup:          create account + welcome bonus (award-once)
  CompleteProfile: one-time address bonus (award-once)
  RecordPurchase:  repeatable credit proportional to money spent
  RedeemPrize:     all-or-nothing debit against the oldest points
  Login sweep:     expire lapsed batches before showing a balance

PURCHASE MATH:
  points = floor(orderTotal * earnRate)
  The ledger holds whole points only; the fractional remainder is
  forfeited, never banked.

USAGE:
  program := loyalty.NewProgram(engine, loyalty.DefaultCatalog())
  if err := program.Signup(ctx, "cust-42"); err != nil { ... }
  res, err := program.RecordPurchase(ctx, "cust-42",
      decimal.NewFromFloat(23.90), "order-1017")

SEE ALSO:
  - reasons.go: Reason definitions
  - ledger/engine.go: The underlying operations
*/
package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/points-engine/ledger"
)

// Program applies loyalty flows to the points ledger.
type Program struct {
	engine  *ledger.Engine
	catalog Catalog
}

// NewProgram creates a program service over an engine.
func NewProgram(engine *ledger.Engine, catalog Catalog) *Program {
	return &Program{engine: engine, catalog: catalog}
}

// Engine exposes the underlying ledger engine for read models.
func (p *Program) Engine() *ledger.Engine { return p.engine }

// Catalog returns the program's reason catalog.
func (p *Program) Catalog() Catalog { return p.catalog }

// Signup creates the customer's account and grants the welcome bonus.
// Calling it again for an existing account re-attempts the bonus only,
// which the award-once guard turns into a no-op.
func (p *Program) Signup(ctx context.Context, id ledger.AccountID) (ledger.CreditResult, error) {
	if _, err := p.engine.CreateAccount(ctx, id); err != nil && !errors.Is(err, ledger.ErrAccountExists) {
		return ledger.CreditResult{}, err
	}
	return p.grant(ctx, id, ReasonWelcomeSignup, "signup bonus")
}

// CompleteProfile grants the one-time profile completion bonus.
func (p *Program) CompleteProfile(ctx context.Context, id ledger.AccountID) (ledger.CreditResult, error) {
	return p.grant(ctx, id, ReasonProfileAddress, "profile completed")
}

func (p *Program) grant(ctx context.Context, id ledger.AccountID, key ledger.ReasonKey, concept string) (ledger.CreditResult, error) {
	reason, ok := p.catalog.Reason(key)
	if !ok {
		return ledger.CreditResult{}, fmt.Errorf("reason %q not in catalog", key)
	}
	return p.engine.Credit(ctx, ledger.CreditInput{
		AccountID: id,
		Amount:    reason.Points,
		Reason:    reason.Key,
		Concept:   concept,
		Expiry:    reason.Expiry(),
		AwardOnce: reason.AwardOnce,
	})
}

// RecordPurchase credits points for an order. The grant is repeatable;
// two identical orders earn twice.
func (p *Program) RecordPurchase(ctx context.Context, id ledger.AccountID, orderTotal decimal.Decimal, orderRef string) (ledger.CreditResult, error) {
	if orderTotal.Sign() <= 0 {
		return ledger.CreditResult{}, ledger.ErrInvalidAmount
	}
	reason, ok := p.catalog.Reason(ReasonPurchaseCredit)
	if !ok {
		return ledger.CreditResult{}, fmt.Errorf("reason %q not in catalog", ReasonPurchaseCredit)
	}

	points := ledger.Points(orderTotal.Mul(p.catalog.EarnRate).Floor().IntPart())
	if !points.IsPositive() {
		// Order too small to earn a whole point.
		return ledger.CreditResult{}, ledger.ErrInvalidAmount
	}

	return p.engine.Credit(ctx, ledger.CreditInput{
		AccountID: id,
		Amount:    points,
		Reason:    reason.Key,
		Concept:   "order " + orderRef,
		Expiry:    reason.Expiry(),
		AwardOnce: false,
	})
}

// RedeemPrize spends points on a prize. All-or-nothing: if the account
// cannot cover the cost, nothing is recorded.
func (p *Program) RedeemPrize(ctx context.Context, id ledger.AccountID, cost ledger.Points, prize string) (ledger.RedemptionResult, error) {
	return p.engine.Redeem(ctx, id, cost, prize)
}

// SweepOnLogin expires lapsed batches so the balance shown to the
// customer is already net of expiry.
func (p *Program) SweepOnLogin(ctx context.Context, id ledger.AccountID) (ledger.SweepResult, error) {
	return p.engine.Sweep(ctx, id)
}

// SweepAll sweeps every account. Used by the background scheduler;
// errors are collected per account so one bad account does not stop
// the pass.
func (p *Program) SweepAll(ctx context.Context) (SweepSummary, error) {
	ids, err := p.engine.Store().ListAccountIDs(ctx)
	if err != nil {
		return SweepSummary{}, err
	}

	var summary SweepSummary
	for _, id := range ids {
		res, err := p.engine.Sweep(ctx, id)
		if err != nil {
			summary.Failures = append(summary.Failures, SweepFailure{AccountID: id, Err: err})
			continue
		}
		summary.Accounts++
		if res.ExpiredPoints.IsPositive() {
			summary.AccountsExpired++
			summary.PointsExpired += res.ExpiredPoints
		}
	}
	return summary, nil
}

// SweepSummary reports one pass of SweepAll.
type SweepSummary struct {
	Accounts        int
	AccountsExpired int
	PointsExpired   ledger.Points
	Failures        []SweepFailure
}

// SweepFailure records a per-account sweep error.
type SweepFailure struct {
	AccountID ledger.AccountID
	Err       error
}
