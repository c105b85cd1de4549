/*
store.go - Persistence interfaces for accounts, batches, entries, issuances

PURPOSE:
  Defines the interface between the engine and the database. The ledger
  log is append-only; batches and the account balance are the only
  mutable state, and they mutate only inside an account-scoped atomic
  unit with optimistic concurrency.

KEY INTERFACES:
  Store:       Read surface + account creation
  AccountTx:   Mutation surface available inside one atomic unit
  AtomicStore: Store that can run an account-scoped atomic unit

APPEND-ONLY CONTRACT:
  Entries have AppendEntry and reads. No update, no delete. Corrections
  are compensating reversal entries written by the engine.

ATOMIC UNITS:
  InAccount(ctx, id, fn) runs fn against a transactional view of one
  account. All reads inside fn observe a consistent snapshot; all writes
  commit together or not at all. The commit is conditioned on the account
  version observed at the start: if another mutation committed in
  between, InAccount returns ErrConcurrentModification and nothing is
  applied. Operations on different accounts never conflict.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite store
  - ledger/store/memory.go: In-memory store for testing

SEE ALSO:
  - atomic.go: Bounded-retry runner over InAccount
  - engine.go: The operations that run inside atomic units
*/
package ledger

import "context"

// =============================================================================
// STORE - Read surface and account lifecycle
// =============================================================================

// Store is the read/query surface plus account creation. All ledger
// mutations go through AtomicStore.InAccount instead.
type Store interface {
	// CreateAccount registers a new account. Returns ErrAccountExists if
	// the ID is already taken.
	CreateAccount(ctx context.Context, account Account) error

	// GetAccount returns the account row. Returns ErrAccountNotFound.
	GetAccount(ctx context.Context, id AccountID) (Account, error)

	// ListAccountIDs returns all account IDs. Used by the sweep scheduler.
	ListAccountIDs(ctx context.Context) ([]AccountID, error)

	// ActiveBatches returns the account's batches with status Active,
	// ordered ascending by ExpiresAt, ties broken by IssuedAt then ID.
	ActiveBatches(ctx context.Context, id AccountID) ([]CreditBatch, error)

	// Batches returns all batches for the account regardless of status.
	Batches(ctx context.Context, id AccountID) ([]CreditBatch, error)

	// Entries returns the account's ledger log ordered oldest-first
	// (replay order). Read-only; the log is append-only.
	Entries(ctx context.Context, id AccountID) ([]Entry, error)

	// GetEntry returns one entry by ID. Returns ErrEntryNotFound.
	GetEntry(ctx context.Context, id EntryID) (Entry, error)

	// HasIssuance checks the award-once marker for (account, reason).
	HasIssuance(ctx context.Context, id AccountID, reason ReasonKey) (bool, error)
}

// =============================================================================
// ACCOUNT TX - Mutation surface inside one atomic unit
// =============================================================================

// AccountTx is the view of a single account inside an atomic unit. Reads
// observe the snapshot taken when the unit began plus this unit's own
// writes. Writes are applied only if the unit commits.
type AccountTx interface {
	// Account returns the account as of the start of the unit.
	Account() Account

	// ActiveBatches returns active batches in FIFO order (see
	// Store.ActiveBatches), including this unit's own writes.
	ActiveBatches(ctx context.Context) ([]CreditBatch, error)

	// GetBatch returns one of the account's batches regardless of status.
	// Returns ErrBatchNotFound.
	GetBatch(ctx context.Context, id BatchID) (CreditBatch, error)

	// GetEntry returns one of the account's entries. Returns ErrEntryNotFound.
	GetEntry(ctx context.Context, id EntryID) (Entry, error)

	// IsReversed reports whether a reversal entry referencing the given
	// entry has already been appended.
	IsReversed(ctx context.Context, id EntryID) (bool, error)

	// HasIssuance checks the award-once marker for this account.
	HasIssuance(ctx context.Context, reason ReasonKey) (bool, error)

	// PutBatch inserts or updates a batch owned by this account.
	PutBatch(ctx context.Context, batch CreditBatch) error

	// AppendEntry appends one immutable ledger entry.
	AppendEntry(ctx context.Context, entry Entry) error

	// PutIssuance writes the award-once marker.
	PutIssuance(ctx context.Context, issuance Issuance) error

	// SetBalance stages the new account balance, committed with the unit.
	SetBalance(balance Points)
}

// =============================================================================
// ATOMIC STORE - Account-scoped serializable units
// =============================================================================

// AtomicStore runs account-scoped atomic units with optimistic
// concurrency. One conflicting commit wins; the other observes
// ErrConcurrentModification and may retry with a fresh read.
type AtomicStore interface {
	Store

	// InAccount runs fn against a transactional view of the account.
	// If fn returns an error the unit is aborted and nothing is applied.
	// Returns ErrAccountNotFound if the account does not exist and
	// ErrConcurrentModification on a version conflict at commit.
	InAccount(ctx context.Context, id AccountID, fn func(tx AccountTx) error) error
}
