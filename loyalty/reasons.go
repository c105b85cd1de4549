/*
reasons.go - Built-in earn reason definitions

PURPOSE:
  Defines the earn reasons a retail loyalty program starts with. Each
  reason carries the number of points it grants, how long those points
  live, and whether the reward may be granted more than once per
  customer.

BUILT-IN REASONS:
  welcome_signup:
    - One-time signup bonus
    - Award-once (a retried signup call must not double-grant)

  profile_address:
    - One-time bonus for completing the profile with a street address
    - Award-once

  purchase_credit:
    - Earned on every order, proportional to money spent
    - Repeatable (two identical orders are two separate credits)

AWARD-ONCE vs REPEATABLE:
  Award-once reasons write a RewardIssuance marker inside the same
  atomic unit as the credit. Repeatable reasons never consult the
  marker table.

SEE ALSO:
  - catalog.go: JSON-defined reason catalogs for operators
  - program.go: The service that applies these reasons
*/
package loyalty

import (
	"github.com/warp/points-engine/ledger"
)

// Reason keys for the built-in program.
const (
	ReasonWelcomeSignup  ledger.ReasonKey = "welcome_signup"
	ReasonProfileAddress ledger.ReasonKey = "profile_address"
	ReasonPurchaseCredit ledger.ReasonKey = "purchase_credit"
)

// Reason describes one way a customer earns points.
type Reason struct {
	Key       ledger.ReasonKey
	Name      string
	Points    ledger.Points // fixed grant; 0 means amount is computed by the caller
	AwardOnce bool
	TTLDays   int
}

// Expiry returns the expiry policy for points earned under this reason.
func (r Reason) Expiry() ledger.ExpiryPolicy {
	return ledger.ExpireAfterDays(r.TTLDays)
}

// defaultTTLDays applies when a catalog entry omits ttl_days.
const defaultTTLDays = 365

func builtinReasons() []Reason {
	return []Reason{
		{
			Key:       ReasonWelcomeSignup,
			Name:      "Welcome signup bonus",
			Points:    100,
			AwardOnce: true,
			TTLDays:   defaultTTLDays,
		},
		{
			Key:       ReasonProfileAddress,
			Name:      "Profile address completed",
			Points:    50,
			AwardOnce: true,
			TTLDays:   defaultTTLDays,
		},
		{
			Key:       ReasonPurchaseCredit,
			Name:      "Purchase credit",
			Points:    0, // computed from order total
			AwardOnce: false,
			TTLDays:   defaultTTLDays,
		},
	}
}
