/*
policy.go - Expiry policies for credited batches

PURPOSE:
  Resolves a credit's expiration instant. The engine never hardcodes
  lifetimes: the caller supplies a policy so different reasons carry
  different lifetimes (a welcome bonus and a purchase credit need not
  expire together).

SEE ALSO:
  - engine.go: Credit applies the policy at issue time
  - loyalty/reasons.go: Per-reason policy configuration
*/
package ledger

import "time"

// =============================================================================
// EXPIRY POLICY
// =============================================================================

// ExpiryPolicy resolves the expiration instant for a batch issued at the
// given time.
type ExpiryPolicy interface {
	ExpiresAt(issuedAt time.Time) time.Time
}

// TTL expires a batch a fixed duration after issue. The common retail
// configuration is ExpireAfterDays(365).
type TTL struct {
	Lifetime time.Duration
}

func (p TTL) ExpiresAt(issuedAt time.Time) time.Time { return issuedAt.Add(p.Lifetime) }

// ExpireAfterDays is shorthand for the usual "issuedAt + N days" policy.
func ExpireAfterDays(days int) TTL {
	return TTL{Lifetime: time.Duration(days) * 24 * time.Hour}
}

// FixedExpiry pins the expiration to a known instant regardless of issue
// time, e.g. a promotion that ends on a calendar date.
type FixedExpiry struct {
	At time.Time
}

func (p FixedExpiry) ExpiresAt(time.Time) time.Time { return p.At }
