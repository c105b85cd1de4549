/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID        string        `json:"id"`
	Balance   ledger.Points `json:"balance"`
	CreatedAt string        `json:"created_at,omitempty"`
}

// SignupRequest creates an account and grants the welcome bonus.
type SignupRequest struct {
	ID string `json:"id"`
}

// PurchaseRequest records an order for purchase credit.
type PurchaseRequest struct {
	Total    string `json:"total"` // decimal string, e.g. "23.90"
	OrderRef string `json:"order_ref"`
}

// RedeemRequest spends points on a prize.
type RedeemRequest struct {
	Points int64  `json:"points"`
	Prize  string `json:"prize"`
}

// AdminCreditRequest books a manual credit (support compensations,
// campaign grants).
type AdminCreditRequest struct {
	AccountID string `json:"account_id"`
	Points    int64  `json:"points"`
	Reason    string `json:"reason"`
	Concept   string `json:"concept"`
	TTLDays   int    `json:"ttl_days"`
	AwardOnce bool   `json:"award_once"`
}

// ReversalRequest appends a compensating entry for a booked entry.
type ReversalRequest struct {
	AccountID string `json:"account_id"`
	EntryID   string `json:"entry_id"`
	Concept   string `json:"concept"`
}

// CreditResponse reports a booked credit.
type CreditResponse struct {
	BatchID        string        `json:"batch_id,omitempty"`
	EntryID        string        `json:"entry_id,omitempty"`
	Balance        ledger.Points `json:"balance"`
	AlreadyAwarded bool          `json:"already_awarded,omitempty"`
}

// DrawDTO is one line of a redemption's FIFO breakdown.
type DrawDTO struct {
	BatchID  string        `json:"batch_id"`
	Amount   ledger.Points `json:"amount"`
	Original ledger.Points `json:"original"`
	IssuedAt time.Time     `json:"issued_at"`
}

// RedeemResponse reports a successful redemption.
type RedeemResponse struct {
	EntryID   string        `json:"entry_id"`
	Balance   ledger.Points `json:"balance"`
	Breakdown []DrawDTO     `json:"breakdown"`
}

// SweepResponse reports one account sweep.
type SweepResponse struct {
	ExpiredPoints ledger.Points `json:"expired_points"`
	BatchCount    int           `json:"batch_count"`
	Balance       ledger.Points `json:"balance"`
}

// SweepAllResponse reports a full scheduler-style pass.
type SweepAllResponse struct {
	Accounts        int           `json:"accounts"`
	AccountsExpired int           `json:"accounts_expired"`
	PointsExpired   ledger.Points `json:"points_expired"`
	Failures        int           `json:"failures"`
}

// ReversalResponse reports a compensating correction.
type ReversalResponse struct {
	EntryID string        `json:"entry_id"`
	BatchID string        `json:"batch_id,omitempty"`
	Balance ledger.Points `json:"balance"`
}

// ReasonDTO describes one earn reason from the catalog.
type ReasonDTO struct {
	Key       string        `json:"key"`
	Name      string        `json:"name"`
	Points    ledger.Points `json:"points"`
	AwardOnce bool          `json:"award_once"`
	TTLDays   int           `json:"ttl_days"`
}

// ConsistencyDTO reports the three balance views for an account.
type ConsistencyDTO struct {
	AccountID        string        `json:"account_id"`
	Balance          ledger.Points `json:"balance"`
	LedgerSum        ledger.Points `json:"ledger_sum"`
	ActiveRemainders ledger.Points `json:"active_remainders"`
	Consistent       bool          `json:"consistent"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
