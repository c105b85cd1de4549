package loyalty_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/ledger/store"
	"github.com/warp/points-engine/loyalty"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestProgram(t *testing.T) (*loyalty.Program, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)}
	engine := ledger.NewEngine(store.NewMemory(), ledger.Options{Now: clk.Now})
	return loyalty.NewProgram(engine, loyalty.DefaultCatalog()), clk
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// SIGNUP / PROFILE FLOWS
// =============================================================================

func TestProgram_Signup_GrantsWelcomeBonusOnce(t *testing.T) {
	// GIVEN: A new customer
	// WHEN: Signing up, then retrying the signup call
	// THEN: The welcome bonus is granted exactly once

	program, _ := newTestProgram(t)
	ctx := context.Background()

	res, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, res.BalanceAfter)

	_, err = program.Signup(ctx, "cust-1")
	assert.ErrorIs(t, err, ledger.ErrAlreadyAwarded)

	account, err := program.Engine().GetAccount(ctx, "cust-1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, account.Balance, "retried signup must not double-grant")
}

func TestProgram_CompleteProfile_OneTimeBonus(t *testing.T) {
	program, _ := newTestProgram(t)
	ctx := context.Background()

	_, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)

	res, err := program.CompleteProfile(ctx, "cust-1")
	require.NoError(t, err)
	assert.EqualValues(t, 150, res.BalanceAfter)

	_, err = program.CompleteProfile(ctx, "cust-1")
	assert.ErrorIs(t, err, ledger.ErrAlreadyAwarded)
}

func TestProgram_WelcomeBonus_ExpiresAfterCatalogTTL(t *testing.T) {
	program, _ := newTestProgram(t)
	ctx := context.Background()

	_, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)

	batches, err := program.Engine().Store().ActiveBatches(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, batches[0].IssuedAt.AddDate(0, 0, 365), batches[0].ExpiresAt)
}

// =============================================================================
// PURCHASE FLOW
// =============================================================================

func TestProgram_RecordPurchase_FloorsFractionalPoints(t *testing.T) {
	// GIVEN: Earn rate of 1.5 points per currency unit
	// WHEN: Recording a 23.90 order
	// THEN: 35.85 floors to 35 whole points

	catalog := loyalty.DefaultCatalog()
	catalog.EarnRate = money("1.5")
	engine := ledger.NewEngine(store.NewMemory(), ledger.Options{})
	program := loyalty.NewProgram(engine, catalog)
	ctx := context.Background()

	_, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)

	res, err := program.RecordPurchase(ctx, "cust-1", money("23.90"), "order-1017")
	require.NoError(t, err)
	assert.EqualValues(t, 35, res.Amount)
	assert.EqualValues(t, 135, res.BalanceAfter)
}

func TestProgram_RecordPurchase_Repeatable(t *testing.T) {
	program, _ := newTestProgram(t)
	ctx := context.Background()
	_, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)

	// Two identical orders are two separate credits.
	_, err = program.RecordPurchase(ctx, "cust-1", money("20"), "order-1")
	require.NoError(t, err)
	_, err = program.RecordPurchase(ctx, "cust-1", money("20"), "order-2")
	require.NoError(t, err)

	account, _ := program.Engine().GetAccount(ctx, "cust-1")
	assert.EqualValues(t, 140, account.Balance)
}

func TestProgram_RecordPurchase_TooSmallOrRejected(t *testing.T) {
	program, _ := newTestProgram(t)
	ctx := context.Background()
	_, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)

	for _, total := range []string{"0", "-5", "0.40"} {
		_, err := program.RecordPurchase(ctx, "cust-1", money(total), "order-x")
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "total %s", total)
	}
}

// =============================================================================
// REDEMPTION / SWEEP FLOWS
// =============================================================================

func TestProgram_RedeemPrize_AllOrNothing(t *testing.T) {
	program, _ := newTestProgram(t)
	ctx := context.Background()
	_, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)

	_, err = program.RedeemPrize(ctx, "cust-1", 250, "wireless earbuds")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	res, err := program.RedeemPrize(ctx, "cust-1", 80, "tote bag")
	require.NoError(t, err)
	assert.EqualValues(t, 20, res.BalanceAfter)
}

func TestProgram_SweepAll_SummarizesPass(t *testing.T) {
	// GIVEN: Two customers, one with lapsed points
	// WHEN: Running a scheduler pass
	// THEN: The summary reports only the account that expired

	program, clk := newTestProgram(t)
	ctx := context.Background()

	_, err := program.Signup(ctx, "cust-1")
	require.NoError(t, err)
	_, err = program.Signup(ctx, "cust-2")
	require.NoError(t, err)

	_, err = program.Engine().Credit(ctx, ledger.CreditInput{
		AccountID: "cust-1", Amount: 30, Reason: "purchase_credit",
		Expiry: ledger.FixedExpiry{At: clk.now.AddDate(0, 0, 5)},
	})
	require.NoError(t, err)

	clk.now = clk.now.AddDate(0, 0, 10)
	summary, err := program.SweepAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, 1, summary.AccountsExpired)
	assert.EqualValues(t, 30, summary.PointsExpired)
	assert.Empty(t, summary.Failures)

	account, _ := program.Engine().GetAccount(ctx, "cust-1")
	assert.EqualValues(t, 100, account.Balance, "welcome bonus still active")
}
