package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// clock is a mutable test clock injected via Options.Now.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func jan(day int) time.Time {
	return time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T) (*ledger.Engine, *clock) {
	t.Helper()
	clk := &clock{now: jan(1)}
	engine := ledger.NewEngine(store.NewMemory(), ledger.Options{Now: clk.Now})
	return engine, clk
}

func mustCreate(t *testing.T, engine *ledger.Engine, id ledger.AccountID) {
	t.Helper()
	if _, err := engine.CreateAccount(context.Background(), id); err != nil {
		t.Fatalf("CreateAccount(%s): %v", id, err)
	}
}

func mustCredit(t *testing.T, engine *ledger.Engine, id ledger.AccountID, amount ledger.Points, expiresAt time.Time) ledger.CreditResult {
	t.Helper()
	res, err := engine.Credit(context.Background(), ledger.CreditInput{
		AccountID: id,
		Amount:    amount,
		Reason:    "purchase_credit",
		Expiry:    ledger.FixedExpiry{At: expiresAt},
	})
	if err != nil {
		t.Fatalf("Credit(%d): %v", amount, err)
	}
	return res
}

func checkBalance(t *testing.T, engine *ledger.Engine, id ledger.AccountID, want ledger.Points) {
	t.Helper()
	account, err := engine.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if account.Balance != want {
		t.Errorf("balance = %d, want %d", account.Balance, want)
	}
}

func checkConsistent(t *testing.T, engine *ledger.Engine, id ledger.AccountID) {
	t.Helper()
	report, err := engine.CheckConsistency(context.Background(), id)
	if err != nil {
		t.Fatalf("CheckConsistency: %v", err)
	}
	if !report.Consistent {
		t.Errorf("account inconsistent: balance=%d ledgerSum=%d activeRemainders=%d",
			report.Balance, report.LedgerSum, report.ActiveRemainders)
	}
}

// =============================================================================
// CREDIT TESTS
// =============================================================================

func TestCredit_PositiveAmount_CreatesBatchAndEntry(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	res, err := engine.Credit(ctx, ledger.CreditInput{
		AccountID: "acct-1",
		Amount:    100,
		Reason:    "welcome_signup",
		Concept:   "signup bonus",
		Expiry:    ledger.ExpireAfterDays(30),
	})
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if res.BalanceAfter != 100 {
		t.Errorf("BalanceAfter = %d, want 100", res.BalanceAfter)
	}
	if res.Amount != 100 {
		t.Errorf("Amount = %d, want 100", res.Amount)
	}

	batches, err := engine.Store().ActiveBatches(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ActiveBatches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	b := batches[0]
	if b.Original != 100 || b.Remaining != 100 {
		t.Errorf("batch = %d/%d, want 100/100", b.Remaining, b.Original)
	}
	if got, want := b.ExpiresAt, jan(31); !got.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got, want)
	}

	entries, err := engine.Store().Entries(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Amount != 100 || entries[0].BalanceAfter != 100 {
		t.Errorf("entry amount/balanceAfter = %d/%d, want 100/100",
			entries[0].Amount, entries[0].BalanceAfter)
	}
	if entries[0].BatchID != b.ID {
		t.Errorf("entry batch = %s, want %s", entries[0].BatchID, b.ID)
	}
}

func TestCredit_NonPositiveAmount_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	for _, amount := range []ledger.Points{0, -50} {
		_, err := engine.Credit(ctx, ledger.CreditInput{
			AccountID: "acct-1",
			Amount:    amount,
			Reason:    "purchase_credit",
		})
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Errorf("Credit(%d) = %v, want ErrInvalidAmount", amount, err)
		}
	}

	entries, _ := engine.Store().Entries(ctx, "acct-1")
	if len(entries) != 0 {
		t.Errorf("rejected credits must not write entries, got %d", len(entries))
	}
}

func TestCredit_UnknownAccount_NotFound(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Credit(context.Background(), ledger.CreditInput{
		AccountID: "ghost",
		Amount:    10,
		Reason:    "purchase_credit",
	})
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Errorf("Credit = %v, want ErrAccountNotFound", err)
	}
}

func TestCredit_AwardOnce_SecondGrantRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	grant := ledger.CreditInput{
		AccountID: "acct-1",
		Amount:    100,
		Reason:    "welcome_signup",
		AwardOnce: true,
	}
	if _, err := engine.Credit(ctx, grant); err != nil {
		t.Fatalf("first grant: %v", err)
	}

	_, err := engine.Credit(ctx, grant)
	if !errors.Is(err, ledger.ErrAlreadyAwarded) {
		t.Fatalf("second grant = %v, want ErrAlreadyAwarded", err)
	}
	var aaErr *ledger.AlreadyAwardedError
	if !errors.As(err, &aaErr) {
		t.Fatalf("want *AlreadyAwardedError, got %T", err)
	}
	if aaErr.Reason != "welcome_signup" {
		t.Errorf("error reason = %s, want welcome_signup", aaErr.Reason)
	}

	checkBalance(t, engine, "acct-1", 100)
	entries, _ := engine.Store().Entries(ctx, "acct-1")
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestCredit_Repeatable_SameReasonTwice(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	in := ledger.CreditInput{AccountID: "acct-1", Amount: 24, Reason: "purchase_credit"}
	if _, err := engine.Credit(ctx, in); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := engine.Credit(ctx, in); err != nil {
		t.Fatalf("second: %v", err)
	}
	checkBalance(t, engine, "acct-1", 48)
}

// =============================================================================
// REDEMPTION TESTS
// =============================================================================

func TestRedeem_SingleBatch_PartialDraw(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 50, jan(30))

	res, err := engine.Redeem(ctx, "acct-1", 20, "coffee voucher")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.BalanceAfter != 30 {
		t.Errorf("BalanceAfter = %d, want 30", res.BalanceAfter)
	}
	if len(res.Breakdown) != 1 || res.Breakdown[0].Amount != 20 {
		t.Fatalf("breakdown = %+v, want single draw of 20", res.Breakdown)
	}

	batches, _ := engine.Store().ActiveBatches(ctx, "acct-1")
	if len(batches) != 1 || batches[0].Remaining != 30 {
		t.Errorf("batch remaining = %+v, want 30", batches)
	}
	checkConsistent(t, engine, "acct-1")
}

func TestRedeem_FIFO_EarliestExpiryFirst(t *testing.T) {
	// Batches credited out of expiry order; redemption must drain the
	// one that expires first regardless of insertion order.
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	late := mustCredit(t, engine, "acct-1", 100, jan(20))
	early := mustCredit(t, engine, "acct-1", 40, jan(10))

	res, err := engine.Redeem(ctx, "acct-1", 60, "gift card")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if len(res.Breakdown) != 2 {
		t.Fatalf("got %d draws, want 2", len(res.Breakdown))
	}
	if res.Breakdown[0].BatchID != early.BatchID || res.Breakdown[0].Amount != 40 {
		t.Errorf("first draw = %+v, want 40 from earliest-expiring batch", res.Breakdown[0])
	}
	if res.Breakdown[1].BatchID != late.BatchID || res.Breakdown[1].Amount != 20 {
		t.Errorf("second draw = %+v, want 20 from later batch", res.Breakdown[1])
	}

	// The drained batch is consumed, the other partially drawn.
	batches, _ := engine.Store().ActiveBatches(ctx, "acct-1")
	if len(batches) != 1 || batches[0].ID != late.BatchID || batches[0].Remaining != 80 {
		t.Errorf("active batches = %+v, want late batch with 80 remaining", batches)
	}
	checkBalance(t, engine, "acct-1", 80)
	checkConsistent(t, engine, "acct-1")
}

func TestRedeem_TiedExpiry_OlderIssueFirst(t *testing.T) {
	engine, clk := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	first := mustCredit(t, engine, "acct-1", 30, jan(15))
	clk.Advance(time.Hour)
	second := mustCredit(t, engine, "acct-1", 30, jan(15))

	res, err := engine.Redeem(ctx, "acct-1", 40, "")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Breakdown[0].BatchID != first.BatchID || res.Breakdown[0].Amount != 30 {
		t.Errorf("first draw = %+v, want full 30 from older issue", res.Breakdown[0])
	}
	if res.Breakdown[1].BatchID != second.BatchID || res.Breakdown[1].Amount != 10 {
		t.Errorf("second draw = %+v, want 10 from newer issue", res.Breakdown[1])
	}
}

func TestRedeem_InsufficientBalance_NoTrace(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 30, jan(30))

	_, err := engine.Redeem(ctx, "acct-1", 50, "too expensive")
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("Redeem = %v, want ErrInsufficientBalance", err)
	}
	var ibErr *ledger.InsufficientBalanceError
	if !errors.As(err, &ibErr) {
		t.Fatalf("want *InsufficientBalanceError, got %T", err)
	}
	if ibErr.Available != 30 || ibErr.Requested != 50 {
		t.Errorf("error = available %d requested %d, want 30/50", ibErr.Available, ibErr.Requested)
	}

	// All-or-nothing: the failed attempt left no partial draws.
	checkBalance(t, engine, "acct-1", 30)
	batches, _ := engine.Store().ActiveBatches(ctx, "acct-1")
	if batches[0].Remaining != 30 {
		t.Errorf("batch remaining = %d, want untouched 30", batches[0].Remaining)
	}
	entries, _ := engine.Store().Entries(ctx, "acct-1")
	if len(entries) != 1 {
		t.Errorf("got %d entries, want only the credit", len(entries))
	}
}

func TestRedeem_LapsedUnsweptBatch_NotSpendable(t *testing.T) {
	// Points past their expiry are unusable even before a sweep has
	// booked the expiration.
	engine, clk := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 50, jan(10))
	mustCredit(t, engine, "acct-1", 20, jan(30))

	clk.now = jan(15)
	_, err := engine.Redeem(ctx, "acct-1", 40, "")
	var ibErr *ledger.InsufficientBalanceError
	if !errors.As(err, &ibErr) {
		t.Fatalf("Redeem = %v, want InsufficientBalanceError", err)
	}
	if ibErr.Available != 20 {
		t.Errorf("available = %d, want 20 (lapsed batch excluded)", ibErr.Available)
	}

	if _, err := engine.Redeem(ctx, "acct-1", 20, ""); err != nil {
		t.Fatalf("redeeming unexpired points: %v", err)
	}
}

func TestRedeem_NonPositiveAmount_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	mustCreate(t, engine, "acct-1")

	for _, amount := range []ledger.Points{0, -10} {
		_, err := engine.Redeem(context.Background(), "acct-1", amount, "")
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Errorf("Redeem(%d) = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestRedeem_DebitEntry_NegativeAmountWithDraws(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 100, jan(30))

	res, err := engine.Redeem(ctx, "acct-1", 35, "movie ticket")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	entry, err := engine.Store().GetEntry(ctx, res.EntryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Kind != ledger.EntryDebit {
		t.Errorf("kind = %s, want debit", entry.Kind)
	}
	if entry.Amount != -35 {
		t.Errorf("amount = %d, want -35", entry.Amount)
	}
	if entry.Reason != ledger.ReasonRedemption {
		t.Errorf("reason = %s, want %s", entry.Reason, ledger.ReasonRedemption)
	}
	if entry.Concept != "movie ticket" {
		t.Errorf("concept = %q", entry.Concept)
	}
	if len(entry.Draws) != 1 || entry.Draws[0].Amount != 35 {
		t.Errorf("draws = %+v, want one draw of 35", entry.Draws)
	}
	if entry.BalanceAfter != 65 {
		t.Errorf("balanceAfter = %d, want 65", entry.BalanceAfter)
	}
}

// =============================================================================
// SWEEP TESTS
// =============================================================================

func TestSweep_ExpiredBatches_ZeroedWithSingleEntry(t *testing.T) {
	engine, clk := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	mustCredit(t, engine, "acct-1", 50, jan(10))
	mustCredit(t, engine, "acct-1", 30, jan(12))
	keep := mustCredit(t, engine, "acct-1", 70, jan(20))

	clk.now = jan(15)
	res, err := engine.Sweep(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.ExpiredPoints != 80 {
		t.Errorf("ExpiredPoints = %d, want 80", res.ExpiredPoints)
	}
	if len(res.BatchIDs) != 2 {
		t.Errorf("swept %d batches, want 2", len(res.BatchIDs))
	}
	checkBalance(t, engine, "acct-1", 70)

	// One debit entry for the whole sweep.
	entries, _ := engine.Store().Entries(ctx, "acct-1")
	last := entries[len(entries)-1]
	if last.Kind != ledger.EntryDebit || last.Amount != -80 || last.Reason != ledger.ReasonExpiration {
		t.Errorf("sweep entry = %+v, want -80 expiration debit", last)
	}
	if len(last.Draws) != 2 {
		t.Errorf("sweep draws = %d, want 2", len(last.Draws))
	}

	batches, _ := engine.Store().ActiveBatches(ctx, "acct-1")
	if len(batches) != 1 || batches[0].ID != keep.BatchID {
		t.Errorf("active batches = %+v, want only the unexpired one", batches)
	}
	checkConsistent(t, engine, "acct-1")
}

func TestSweep_Idempotent_SecondRunWritesNothing(t *testing.T) {
	engine, clk := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 50, jan(10))

	clk.now = jan(11)
	if _, err := engine.Sweep(ctx, "acct-1"); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	before, _ := engine.Store().Entries(ctx, "acct-1")

	res, err := engine.Sweep(ctx, "acct-1")
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.ExpiredPoints != 0 {
		t.Errorf("second sweep expired %d, want 0", res.ExpiredPoints)
	}

	after, _ := engine.Store().Entries(ctx, "acct-1")
	if len(after) != len(before) {
		t.Errorf("second sweep appended entries: %d -> %d", len(before), len(after))
	}
	checkBalance(t, engine, "acct-1", 0)
}

func TestSweep_NothingExpired_NoEntry(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 50, jan(30))

	res, err := engine.Sweep(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.ExpiredPoints != 0 {
		t.Errorf("ExpiredPoints = %d, want 0", res.ExpiredPoints)
	}
	entries, _ := engine.Store().Entries(ctx, "acct-1")
	if len(entries) != 1 {
		t.Errorf("got %d entries, want only the credit", len(entries))
	}
}

func TestSweep_ExactExpiryInstant_Expired(t *testing.T) {
	// The expiry instant is inclusive: a batch expiring at T is gone at T.
	engine, clk := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 50, jan(10))

	clk.now = jan(10)
	res, err := engine.Sweep(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.ExpiredPoints != 50 {
		t.Errorf("ExpiredPoints = %d, want 50", res.ExpiredPoints)
	}
	checkBalance(t, engine, "acct-1", 0)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

// flakyStore wraps the memory store and fails InAccount with a
// conflict a fixed number of times before letting it through.
type flakyStore struct {
	*store.Memory
	failures int
	calls    int
}

func (f *flakyStore) InAccount(ctx context.Context, id ledger.AccountID, fn func(tx ledger.AccountTx) error) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return ledger.ErrConcurrentModification
	}
	return f.Memory.InAccount(ctx, id, fn)
}

func TestCredit_ConflictRetry_SucceedsWithinBudget(t *testing.T) {
	flaky := &flakyStore{Memory: store.NewMemory(), failures: 2}
	engine := ledger.NewEngine(flaky, ledger.Options{MaxAttempts: 3})
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")
	flaky.calls = 0

	_, err := engine.Credit(ctx, ledger.CreditInput{
		AccountID: "acct-1", Amount: 10, Reason: "purchase_credit",
	})
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("attempts = %d, want 3 (two conflicts + success)", flaky.calls)
	}
	checkBalance(t, engine, "acct-1", 10)
}

func TestCredit_ConflictRetry_ExhaustionSurfaces(t *testing.T) {
	flaky := &flakyStore{Memory: store.NewMemory(), failures: 10}
	engine := ledger.NewEngine(flaky, ledger.Options{MaxAttempts: 3})
	ctx := context.Background()

	if _, err := ledger.NewEngine(flaky.Memory, ledger.Options{}).CreateAccount(ctx, "acct-1"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	_, err := engine.Credit(ctx, ledger.CreditInput{
		AccountID: "acct-1", Amount: 10, Reason: "purchase_credit",
	})
	if !errors.Is(err, ledger.ErrConcurrentModification) {
		t.Fatalf("Credit = %v, want ErrConcurrentModification", err)
	}
	if !ledger.IsRetryable(err) {
		t.Errorf("exhausted conflict should stay retryable for the caller")
	}
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestScenario_CreditRedeemExpire(t *testing.T) {
	// Credit 100 expiring soon, credit 50 expiring later, redeem 120,
	// expire the remainder: balance 0, four entries, every invariant
	// holding at each step.
	engine, clk := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	soon := mustCredit(t, engine, "acct-1", 100, jan(10))
	later := mustCredit(t, engine, "acct-1", 50, jan(20))
	checkBalance(t, engine, "acct-1", 150)

	res, err := engine.Redeem(ctx, "acct-1", 120, "headphones")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.Breakdown[0].BatchID != soon.BatchID || res.Breakdown[0].Amount != 100 {
		t.Errorf("first draw = %+v, want 100 from soon-expiring batch", res.Breakdown[0])
	}
	if res.Breakdown[1].BatchID != later.BatchID || res.Breakdown[1].Amount != 20 {
		t.Errorf("second draw = %+v, want 20 from later batch", res.Breakdown[1])
	}
	checkBalance(t, engine, "acct-1", 30)
	checkConsistent(t, engine, "acct-1")

	clk.now = jan(25)
	sweep, err := engine.Sweep(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if sweep.ExpiredPoints != 30 {
		t.Errorf("expired %d, want 30", sweep.ExpiredPoints)
	}
	checkBalance(t, engine, "acct-1", 0)
	checkConsistent(t, engine, "acct-1")

	entries, _ := engine.Store().Entries(ctx, "acct-1")
	if len(entries) != 4 {
		t.Errorf("got %d entries, want 4", len(entries))
	}

	// Ledger replay reproduces the final balance.
	rebuilt, err := engine.RebuildBalance(ctx, "acct-1")
	if err != nil {
		t.Fatalf("RebuildBalance: %v", err)
	}
	if rebuilt != 0 {
		t.Errorf("rebuilt balance = %d, want 0", rebuilt)
	}
}

// =============================================================================
// HISTORY READ MODEL
// =============================================================================

func TestHistory_NewestFirstWithBatchAnnotation(t *testing.T) {
	engine, clk := newTestEngine(t)
	ctx := context.Background()
	mustCreate(t, engine, "acct-1")

	mustCredit(t, engine, "acct-1", 50, jan(30))
	clk.Advance(time.Hour)
	if _, err := engine.Redeem(ctx, "acct-1", 30, "mug"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	history, err := engine.History(ctx, "acct-1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d history rows, want 2", len(history))
	}
	if history[0].Kind != ledger.EntryDebit {
		t.Errorf("newest entry should be the redemption")
	}

	credit := history[1]
	if credit.BatchRemaining == nil || credit.BatchOriginal == nil {
		t.Fatalf("credit row missing batch annotation")
	}
	if *credit.BatchRemaining != 20 || *credit.BatchOriginal != 50 {
		t.Errorf("annotation = %d of %d, want 20 of 50", *credit.BatchRemaining, *credit.BatchOriginal)
	}
	if credit.BatchStatus != ledger.BatchActive {
		t.Errorf("annotation status = %s, want active", credit.BatchStatus)
	}
}

func TestHistory_LimitTruncatesFromNewest(t *testing.T) {
	engine, _ := newTestEngine(t)
	mustCreate(t, engine, "acct-1")
	mustCredit(t, engine, "acct-1", 10, jan(10))
	mustCredit(t, engine, "acct-1", 20, jan(20))
	mustCredit(t, engine, "acct-1", 30, jan(30))

	history, err := engine.History(context.Background(), "acct-1", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d rows, want 2", len(history))
	}
	if history[0].Amount != 30 || history[1].Amount != 20 {
		t.Errorf("rows = %d,%d want newest two (30,20)", history[0].Amount, history[1].Amount)
	}
}
