/*
catalog.go - JSON to Go reason catalog conversion

PURPOSE:
  Converts JSON reason definitions into a Catalog of Reason values.
  This enables program configuration without code changes - marketing
  can define earn reasons in JSON, and the catalog creates the proper
  Go structs.

WHY JSON?
  - Non-developers can add or retune earn reasons
  - Easy integration with an admin UI
  - Version control for program definitions

JSON SCHEMA:
  {
    "earn_rate": "1.5",
    "reasons": [
      {
        "key": "welcome_signup",
        "name": "Welcome signup bonus",
        "points": 100,
        "award_once": true,
        "ttl_days": 365
      },
      {
        "key": "purchase_credit",
        "name": "Purchase credit",
        "award_once": false
      }
    ]
  }

KEY FEATURES:
  - Validates keys and point amounts
  - Sets sensible defaults (ttl_days defaults to 365)
  - earn_rate is a decimal string: points granted per unit of currency
    spent on a purchase

USAGE:
  catalog, err := loyalty.ParseCatalog(jsonString)
  if err != nil {
      log.Fatal(err)
  }
  program := loyalty.NewProgram(engine, catalog)

SEE ALSO:
  - reasons.go: Built-in reason definitions
  - program.go: The service consuming the catalog
*/
package loyalty

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/points-engine/ledger"
)

// Catalog holds the program's earn reasons and purchase earn rate.
type Catalog struct {
	EarnRate decimal.Decimal // points per currency unit spent
	reasons  map[ledger.ReasonKey]Reason
	order    []ledger.ReasonKey
}

// DefaultCatalog returns the built-in reasons with an earn rate of one
// point per currency unit.
func DefaultCatalog() Catalog {
	c := Catalog{
		EarnRate: decimal.NewFromInt(1),
		reasons:  make(map[ledger.ReasonKey]Reason),
	}
	for _, r := range builtinReasons() {
		c.reasons[r.Key] = r
		c.order = append(c.order, r.Key)
	}
	return c
}

// Reason looks up a reason by key.
func (c Catalog) Reason(key ledger.ReasonKey) (Reason, bool) {
	r, ok := c.reasons[key]
	return r, ok
}

// Reasons returns all reasons in definition order.
func (c Catalog) Reasons() []Reason {
	out := make([]Reason, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.reasons[key])
	}
	return out
}

type catalogJSON struct {
	EarnRate string       `json:"earn_rate"`
	Reasons  []reasonJSON `json:"reasons"`
}

type reasonJSON struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Points    int64  `json:"points"`
	AwardOnce bool   `json:"award_once"`
	TTLDays   int    `json:"ttl_days"`
}

// ParseCatalog parses a JSON catalog definition.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw catalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(raw.Reasons) == 0 {
		return Catalog{}, fmt.Errorf("catalog defines no reasons")
	}

	c := Catalog{
		EarnRate: decimal.NewFromInt(1),
		reasons:  make(map[ledger.ReasonKey]Reason),
	}
	if raw.EarnRate != "" {
		rate, err := decimal.NewFromString(raw.EarnRate)
		if err != nil {
			return Catalog{}, fmt.Errorf("invalid earn_rate %q: %w", raw.EarnRate, err)
		}
		if rate.Sign() <= 0 {
			return Catalog{}, fmt.Errorf("earn_rate must be positive, got %s", rate)
		}
		c.EarnRate = rate
	}

	for _, rj := range raw.Reasons {
		if rj.Key == "" {
			return Catalog{}, fmt.Errorf("reason with empty key")
		}
		key := ledger.ReasonKey(rj.Key)
		if _, exists := c.reasons[key]; exists {
			return Catalog{}, fmt.Errorf("duplicate reason key %q", rj.Key)
		}
		if rj.Points < 0 {
			return Catalog{}, fmt.Errorf("reason %q: points must not be negative", rj.Key)
		}
		ttl := rj.TTLDays
		if ttl == 0 {
			ttl = defaultTTLDays
		}
		if ttl < 0 {
			return Catalog{}, fmt.Errorf("reason %q: ttl_days must be positive", rj.Key)
		}
		c.reasons[key] = Reason{
			Key:       key,
			Name:      rj.Name,
			Points:    ledger.Points(rj.Points),
			AwardOnce: rj.AwardOnce,
			TTLDays:   ttl,
		}
		c.order = append(c.order, key)
	}
	return c, nil
}
