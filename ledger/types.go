/*
Package ledger provides the core points ledger engine.

PURPOSE:
  This package contains the entity model and algorithms for a loyalty
  points ledger: crediting points in expiring batches, consuming them on
  redemption (earliest-expiry-first), sweeping expired remainders, and
  guarding rule-based rewards against duplicate issuance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Points: An integer point quantity (points never fractionalize)
  - Account: The materialized balance for one customer
  - CreditBatch: One chunk of points with its own expiration and remainder
  - Entry: An immutable ledger record of one credit or debit event
  - Issuance: The award-once marker for a (account, reason) pair

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, only reversed
  2. Auditability: Every debit records exactly which batches it drew from
  3. Terminal states: A closed batch (Consumed/Expired) never resurrects
  4. Conservation: Account balance always equals the sum of active
     batch remainders, and equals the signed sum of all entries

SEE ALSO:
  - store.go: Persistence interfaces
  - engine.go: Credit / Redeem / Sweep operations
  - projector.go: Balance reconstruction and consistency checks
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// POINTS - Integer point quantity
// =============================================================================

// Points is a whole-number point amount. Credits and redemptions are
// always positive; Entry.Amount carries the sign.
type Points int64

func (p Points) IsPositive() bool { return p > 0 }
func (p Points) IsZero() bool     { return p == 0 }

// Min returns the smaller of two amounts.
func (p Points) Min(other Points) Points {
	if p < other {
		return p
	}
	return other
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type BatchID string
type EntryID string

// ReasonKey tags why points were credited or debited, e.g. "welcome_signup",
// "purchase_credit", "expiration".
type ReasonKey string

// Reasons written by the engine itself. Credit reasons are supplied by
// callers; these tag the debit side.
const (
	ReasonRedemption ReasonKey = "redemption"
	ReasonExpiration ReasonKey = "expiration"
	ReasonReversal   ReasonKey = "reversal"
)

// NewBatchID mints a fresh batch identifier.
func NewBatchID() BatchID { return BatchID(uuid.NewString()) }

// NewEntryID mints a fresh entry identifier.
func NewEntryID() EntryID { return EntryID(uuid.NewString()) }

// =============================================================================
// ACCOUNT - Materialized balance, owned exclusively by the engine
// =============================================================================

// Account holds the aggregate balance for one customer. The balance is a
// materialized view: it is mutated only by Credit, Redeem, Sweep and
// Reverse, always inside the same atomic unit as the batch and entry
// writes that explain it.
//
// Version implements optimistic concurrency: every committed mutation
// increments it, and a commit conditioned on a stale version fails with
// ErrConcurrentModification.
type Account struct {
	ID        AccountID
	Balance   Points
	Version   int64
	CreatedAt time.Time
}

// =============================================================================
// CREDIT BATCH - One credit event with its own expiration
// =============================================================================

type BatchStatus string

const (
	// BatchActive holds a positive remainder available for redemption.
	BatchActive BatchStatus = "active"
	// BatchConsumed was driven to zero by redemption. Terminal.
	BatchConsumed BatchStatus = "consumed"
	// BatchExpired was zeroed by the sweeper after ExpiresAt passed. Terminal.
	BatchExpired BatchStatus = "expired"
)

// CreditBatch is a single chunk of points issued at one time, tracked
// independently so redemption can drain the earliest-expiring batch first.
//
// INVARIANTS:
//   - 0 <= Remaining <= Original
//   - Status transitions: Active -> Consumed (redemption, possibly in
//     several partial steps) or Active -> Expired (sweep, single step).
//     Both are terminal.
type CreditBatch struct {
	ID        BatchID
	AccountID AccountID
	Original  Points
	Remaining Points
	Reason    ReasonKey
	Status    BatchStatus
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the batch's lifetime has lapsed at the given instant.
func (b CreditBatch) Expired(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

// =============================================================================
// LEDGER ENTRY - Append-only record of one economic event
// =============================================================================

type EntryKind string

const (
	EntryCredit EntryKind = "credit"
	EntryDebit  EntryKind = "debit"
)

// BatchDraw records how much a debit took from one batch. The slice of
// draws on a debit entry is the FIFO breakdown used for audit text like
// "80 pts from batch issued 2024-01-05".
type BatchDraw struct {
	BatchID  BatchID   `json:"batch_id"`
	Amount   Points    `json:"amount"`
	Original Points    `json:"original"`
	IssuedAt time.Time `json:"issued_at"`
}

// Entry is one immutable row in the append-only ledger log. Amount is
// signed: positive for credits, negative for debits. BalanceAfter is the
// account balance snapshot taken in the same atomic unit, kept for audit.
//
// Entries are never updated or deleted. Administrative corrections are
// compensating entries appended by Engine.Reverse.
type Entry struct {
	ID           EntryID
	AccountID    AccountID
	Kind         EntryKind
	Amount       Points
	Reason       ReasonKey
	Concept      string // free-form audit text supplied by the caller
	BatchID      BatchID // for credits: the batch this entry created
	Draws        []BatchDraw
	ReversesID   EntryID // for reversal entries: the entry being compensated
	BalanceAfter Points
	Timestamp    time.Time
}

// =============================================================================
// REWARD ISSUANCE - Award-once idempotency marker
// =============================================================================

// Issuance marks that an award-once reason has been issued to an account.
// One per (AccountID, ReasonKey); repeatable reasons never write one.
type Issuance struct {
	AccountID AccountID
	Reason    ReasonKey
	IssuedAt  time.Time
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// CreditResult reports a successful credit.
type CreditResult struct {
	BatchID      BatchID
	EntryID      EntryID
	Amount       Points
	BalanceAfter Points
}

// RedemptionResult reports a successful redemption with its FIFO breakdown.
type RedemptionResult struct {
	EntryID      EntryID
	BalanceAfter Points
	Breakdown    []BatchDraw
}

// SweepResult reports what a sweep expired. A sweep that found nothing
// to expire returns ExpiredPoints == 0 and writes no entry.
type SweepResult struct {
	ExpiredPoints Points
	BatchIDs      []BatchID
	EntryID       EntryID // zero value when nothing expired
	BalanceAfter  Points
}

// ReversalResult reports a compensating correction.
type ReversalResult struct {
	EntryID      EntryID
	BatchID      BatchID // set when reversing a debit mints a new batch
	BalanceAfter Points
}
