/*
engine.go - The points ledger engine

PURPOSE:
  Engine is the single entry point for every ledger mutation: Credit,
  Redeem, Sweep and Reverse. Each operation runs as one account-scoped
  atomic unit (store.go) with bounded retry on optimistic conflicts
  (atomic.go), so the global invariant holds at every quiescent point:

    Account.Balance == Σ Remaining over Active batches
                    == Σ Entry.Amount over the account's log

  The engine holds no process-wide mutable state; everything it needs is
  injected at construction.

SEE ALSO:
  - credit.go / redeem.go / sweep.go / reversal.go: The operations
  - projector.go: Balance reconstruction and consistency checks
  - history.go: The read model for UI history
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine executes ledger operations against an AtomicStore.
type Engine struct {
	store       AtomicStore
	now         func() time.Time
	maxAttempts int
	defaultTTL  ExpiryPolicy
}

// Options configures an Engine. Zero values select sane defaults.
type Options struct {
	// Now overrides the clock, used by tests and the sweep scheduler.
	Now func() time.Time

	// MaxAttempts bounds optimistic-conflict retries (default 3).
	MaxAttempts int

	// DefaultExpiry applies when a credit supplies no policy
	// (default: issue + 365 days).
	DefaultExpiry ExpiryPolicy
}

// NewEngine creates an engine over the given store.
func NewEngine(store AtomicStore, opts Options) *Engine {
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	ttl := opts.DefaultExpiry
	if ttl == nil {
		ttl = ExpireAfterDays(365)
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	return &Engine{
		store:       store,
		now:         nowFn,
		maxAttempts: attempts,
		defaultTTL:  ttl,
	}
}

// Store exposes the read surface for collaborators (history, reporting).
func (e *Engine) Store() Store { return e.store }

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

// CreateAccount registers a zero-balance account, called on customer
// signup. Accounts are never hard-deleted while the customer exists.
func (e *Engine) CreateAccount(ctx context.Context, id AccountID) (Account, error) {
	account := Account{
		ID:        id,
		Balance:   0,
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.CreateAccount(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// GetAccount returns the current account row.
func (e *Engine) GetAccount(ctx context.Context, id AccountID) (Account, error) {
	return e.store.GetAccount(ctx, id)
}

// inAccount runs fn as one atomic unit with the engine's retry bound.
func (e *Engine) inAccount(ctx context.Context, id AccountID, fn func(tx AccountTx) error) error {
	return runAtomic(ctx, e.store, id, e.maxAttempts, fn)
}
