/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (loyalty package, HTTP layer) branch on these with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - caller bugs, rejected before any mutation
  2. Business outcomes - insufficient balance, already awarded
  3. Concurrency - optimistic conflicts, retried internally first

PROPAGATION POLICY:
  Every error except ErrConcurrentModification is terminal and returned
  with no partial state change. ErrConcurrentModification is retried a
  bounded number of times by the engine before it surfaces.

SEE ALSO:
  - engine.go: Where these are returned
  - atomic.go: Retry discipline for ErrConcurrentModification
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for a non-positive credit or redemption
	// amount. Caller bug; nothing is written.
	ErrInvalidAmount = errors.New("invalid amount: must be a positive integer")

	// ErrInsufficientBalance is returned when a redemption exceeds the sum
	// of active batch remainders. No mutation is performed.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAlreadyAwarded is returned when an award-once reason has already
	// been issued to the account. Callers treat this as a benign no-op,
	// not a user-facing failure.
	ErrAlreadyAwarded = errors.New("reward already awarded")

	// ErrAccountNotFound is returned when the target account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating an account that already exists.
	ErrAccountExists = errors.New("account already exists")

	// ErrConcurrentModification is returned when optimistic concurrency
	// detects a conflicting mutation on the same account after retries
	// are exhausted. Safe for the caller to retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrCorrectionRequiresReversal is returned when a destructive entry
	// delete is attempted, or when a credit entry cannot be compensated
	// because its batch has already been partially consumed. The supported
	// correction path is a compensating reversal entry.
	ErrCorrectionRequiresReversal = errors.New("correction requires a compensating reversal entry")

	// ErrEntryNotFound is returned when a reversal targets an unknown entry.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrBatchNotFound is returned when a referenced batch does not exist.
	ErrBatchNotFound = errors.New("credit batch not found")

	// ErrAlreadyReversed is returned when reversing an entry that already
	// has a compensating entry. Reversals never stack.
	ErrAlreadyReversed = errors.New("entry already reversed")

	// ErrDuplicateEntry is returned by stores when an entry ID is appended
	// twice. Indicates a bug in the engine, never expected in operation.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage.
type InsufficientBalanceError struct {
	AccountID AccountID
	Available Points
	Requested Points
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: account %s has %d points, %d requested",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// AlreadyAwardedError details a duplicate award-once attempt.
type AlreadyAwardedError struct {
	AccountID AccountID
	Reason    ReasonKey
}

func (e *AlreadyAwardedError) Error() string {
	return fmt.Sprintf("reward %q already awarded to account %s", e.Reason, e.AccountID)
}

func (e *AlreadyAwardedError) Unwrap() error { return ErrAlreadyAwarded }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input
// or a business-rule outcome rather than an engine fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAlreadyAwarded) ||
		errors.Is(err, ErrCorrectionRequiresReversal)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrEntryNotFound)
}
