/*
handlers.go - HTTP API handlers for the loyalty points service

PURPOSE:
  Exposes the points ledger engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                        Signup (account + welcome bonus)
    GET    /api/accounts/{id}                   Account with current balance
    POST   /api/accounts/{id}/profile-complete  One-time profile bonus
    POST   /api/accounts/{id}/purchases         Purchase credit
    POST   /api/accounts/{id}/redemptions       Spend points on a prize
    POST   /api/accounts/{id}/sweep             Expire lapsed batches now
    GET    /api/accounts/{id}/history           Newest-first statement
    GET    /api/accounts/{id}/consistency       Balance vs ledger replay
    GET    /api/accounts/{id}/spend-estimate    Back-estimated purchase spend
    DELETE /api/accounts/{id}/entries/{entryID} Always refused (append-only)

  Admin:
    POST   /api/admin/credits                   Manual credit
    POST   /api/admin/reversals                 Compensating correction
    POST   /api/admin/sweep                     Sweep every account

  Catalog:
    GET    /api/reasons                         Earn reason catalog

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amounts
  - 404: Account/entry not found
  - 409: Insufficient balance, append-only refusals, duplicates
  - 503: Optimistic retries exhausted (client should retry)
  - 500: Internal errors
  A repeated award-once grant is not an error for the caller: the
  response is 200 with already_awarded=true and the current balance.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/loyalty"
	"github.com/warp/points-engine/reporting"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Program   *loyalty.Program
	Estimator *reporting.Estimator
	Metrics   *Metrics
	Logger    *zap.Logger
}

// NewHandler creates a new handler over the program service.
func NewHandler(program *loyalty.Program, estimator *reporting.Estimator, metrics *Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Program:   program,
		Estimator: estimator,
		Metrics:   metrics,
		Logger:    logger,
	}
}

func (h *Handler) engine() *ledger.Engine { return h.Program.Engine() }

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// Signup creates an account and grants the welcome bonus.
// POST /api/accounts
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}

	res, err := h.Program.Signup(r.Context(), ledger.AccountID(req.ID))
	if errors.Is(err, ledger.ErrAlreadyAwarded) {
		h.writeAlreadyAwarded(w, r, ledger.AccountID(req.ID))
		return
	}
	if err != nil {
		h.writeLedgerError(w, "Signup failed", err)
		return
	}

	h.Logger.Info("account signed up", zap.String("account", req.ID))
	h.countCredit(loyalty.ReasonWelcomeSignup, res)
	writeJSON(w, http.StatusCreated, creditResponse(res))
}

// GetAccount returns the account with its current balance.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	account, err := h.engine().GetAccount(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, AccountDTO{
		ID:        string(account.ID),
		Balance:   account.Balance,
		CreatedAt: account.CreatedAt.Format("2006-01-02"),
	})
}

// CompleteProfile grants the one-time profile completion bonus.
// POST /api/accounts/{id}/profile-complete
func (h *Handler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	res, err := h.Program.CompleteProfile(r.Context(), id)
	if errors.Is(err, ledger.ErrAlreadyAwarded) {
		h.writeAlreadyAwarded(w, r, id)
		return
	}
	if err != nil {
		h.writeLedgerError(w, "Profile bonus failed", err)
		return
	}

	h.countCredit(loyalty.ReasonProfileAddress, res)
	writeJSON(w, http.StatusOK, creditResponse(res))
}

// RecordPurchase credits points for an order.
// POST /api/accounts/{id}/purchases
func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order total", err)
		return
	}

	res, err := h.Program.RecordPurchase(r.Context(), id, total, req.OrderRef)
	if err != nil {
		h.writeLedgerError(w, "Purchase credit failed", err)
		return
	}

	h.Logger.Info("purchase credited",
		zap.String("account", string(id)),
		zap.String("order", req.OrderRef),
		zap.Int64("balance", int64(res.BalanceAfter)))
	h.countCredit(loyalty.ReasonPurchaseCredit, res)
	writeJSON(w, http.StatusOK, creditResponse(res))
}

// RedeemPrize spends points on a prize, all-or-nothing.
// POST /api/accounts/{id}/redemptions
func (h *Handler) RedeemPrize(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Program.RedeemPrize(r.Context(), id, ledger.Points(req.Points), req.Prize)
	if err != nil {
		h.writeLedgerError(w, "Redemption failed", err)
		return
	}

	h.Logger.Info("prize redeemed",
		zap.String("account", string(id)),
		zap.String("prize", req.Prize),
		zap.Int64("points", req.Points))
	if h.Metrics != nil {
		h.Metrics.Redemptions.Inc()
		h.Metrics.Redeemed.Add(float64(req.Points))
	}

	breakdown := make([]DrawDTO, len(res.Breakdown))
	for i, d := range res.Breakdown {
		breakdown[i] = DrawDTO{
			BatchID:  string(d.BatchID),
			Amount:   d.Amount,
			Original: d.Original,
			IssuedAt: d.IssuedAt,
		}
	}
	writeJSON(w, http.StatusOK, RedeemResponse{
		EntryID:   string(res.EntryID),
		Balance:   res.BalanceAfter,
		Breakdown: breakdown,
	})
}

// SweepAccount expires the account's lapsed batches now.
// POST /api/accounts/{id}/sweep
func (h *Handler) SweepAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	res, err := h.Program.SweepOnLogin(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Sweep failed", err)
		return
	}
	if h.Metrics != nil && res.ExpiredPoints.IsPositive() {
		h.Metrics.Expired.Add(float64(res.ExpiredPoints))
	}
	writeJSON(w, http.StatusOK, SweepResponse{
		ExpiredPoints: res.ExpiredPoints,
		BatchCount:    len(res.BatchIDs),
		Balance:       res.BalanceAfter,
	})
}

// GetHistory returns the newest-first statement.
// GET /api/accounts/{id}/history?limit=N
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	statement, err := reporting.BuildStatement(r.Context(), h.engine(), id, limit)
	if err != nil {
		h.writeLedgerError(w, "Failed to build history", err)
		return
	}
	writeJSON(w, http.StatusOK, statement)
}

// GetConsistency compares the materialized balance against a full
// ledger replay and the sum of active batch remainders.
// GET /api/accounts/{id}/consistency
func (h *Handler) GetConsistency(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	report, err := h.engine().CheckConsistency(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Consistency check failed", err)
		return
	}
	if !report.Consistent {
		h.Logger.Error("account inconsistent",
			zap.String("account", string(id)),
			zap.Int64("balance", int64(report.Balance)),
			zap.Int64("ledger_sum", int64(report.LedgerSum)),
			zap.Int64("active_remainders", int64(report.ActiveRemainders)))
	}
	writeJSON(w, http.StatusOK, ConsistencyDTO{
		AccountID:        string(report.AccountID),
		Balance:          report.Balance,
		LedgerSum:        report.LedgerSum,
		ActiveRemainders: report.ActiveRemainders,
		Consistent:       report.Consistent,
	})
}

// GetSpendEstimate back-estimates money spent from purchase credits.
// GET /api/accounts/{id}/spend-estimate
func (h *Handler) GetSpendEstimate(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	est, err := h.Estimator.EstimateSpend(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Spend estimate failed", err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// DeleteEntry refuses to delete ledger entries. The log is append-only;
// the response points the caller at the reversal endpoint.
// DELETE /api/accounts/{id}/entries/{entryID}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))
	entryID := ledger.EntryID(chi.URLParam(r, "entryID"))

	err := h.engine().DeleteEntry(r.Context(), id, entryID)
	h.writeLedgerError(w, "Ledger entries cannot be deleted; POST /api/admin/reversals instead", err)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// AdminCredit books a manual credit outside the catalog flows.
// POST /api/admin/credits
func (h *Handler) AdminCredit(w http.ResponseWriter, r *http.Request) {
	var req AdminCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.AccountID == "" || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "account_id and reason are required", nil)
		return
	}
	ttl := req.TTLDays
	if ttl <= 0 {
		ttl = 365
	}

	res, err := h.engine().Credit(r.Context(), ledger.CreditInput{
		AccountID: ledger.AccountID(req.AccountID),
		Amount:    ledger.Points(req.Points),
		Reason:    ledger.ReasonKey(req.Reason),
		Concept:   req.Concept,
		Expiry:    ledger.ExpireAfterDays(ttl),
		AwardOnce: req.AwardOnce,
	})
	if errors.Is(err, ledger.ErrAlreadyAwarded) {
		h.writeAlreadyAwarded(w, r, ledger.AccountID(req.AccountID))
		return
	}
	if err != nil {
		h.writeLedgerError(w, "Credit failed", err)
		return
	}

	h.Logger.Info("manual credit booked",
		zap.String("account", req.AccountID),
		zap.String("reason", req.Reason),
		zap.Int64("points", req.Points))
	h.countCredit(ledger.ReasonKey(req.Reason), res)
	writeJSON(w, http.StatusCreated, creditResponse(res))
}

// AdminReverse appends a compensating entry for a booked entry.
// POST /api/admin/reversals
func (h *Handler) AdminReverse(w http.ResponseWriter, r *http.Request) {
	var req ReversalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.engine().Reverse(r.Context(),
		ledger.AccountID(req.AccountID), ledger.EntryID(req.EntryID), req.Concept)
	if err != nil {
		h.writeLedgerError(w, "Reversal failed", err)
		return
	}

	h.Logger.Info("entry reversed",
		zap.String("account", req.AccountID),
		zap.String("entry", req.EntryID))
	if h.Metrics != nil {
		h.Metrics.Reversals.Inc()
	}
	writeJSON(w, http.StatusOK, ReversalResponse{
		EntryID: string(res.EntryID),
		BatchID: string(res.BatchID),
		Balance: res.BalanceAfter,
	})
}

// AdminSweepAll sweeps every account.
// POST /api/admin/sweep
func (h *Handler) AdminSweepAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Program.SweepAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep pass failed", err)
		return
	}
	if h.Metrics != nil && summary.PointsExpired.IsPositive() {
		h.Metrics.Expired.Add(float64(summary.PointsExpired))
	}
	for _, f := range summary.Failures {
		h.Logger.Warn("sweep failed for account",
			zap.String("account", string(f.AccountID)), zap.Error(f.Err))
	}
	writeJSON(w, http.StatusOK, SweepAllResponse{
		Accounts:        summary.Accounts,
		AccountsExpired: summary.AccountsExpired,
		PointsExpired:   summary.PointsExpired,
		Failures:        len(summary.Failures),
	})
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListReasons returns the program's earn reason catalog.
// GET /api/reasons
func (h *Handler) ListReasons(w http.ResponseWriter, r *http.Request) {
	reasons := h.Program.Catalog().Reasons()
	dtos := make([]ReasonDTO, len(reasons))
	for i, reason := range reasons {
		dtos[i] = ReasonDTO{
			Key:       string(reason.Key),
			Name:      reason.Name,
			Points:    reason.Points,
			AwardOnce: reason.AwardOnce,
			TTLDays:   reason.TTLDays,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func creditResponse(res ledger.CreditResult) CreditResponse {
	return CreditResponse{
		BatchID: string(res.BatchID),
		EntryID: string(res.EntryID),
		Balance: res.BalanceAfter,
	}
}

func (h *Handler) countCredit(reason ledger.ReasonKey, res ledger.CreditResult) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.Credits.WithLabelValues(string(reason)).Inc()
	h.Metrics.Credited.WithLabelValues(string(reason)).Add(float64(res.Amount))
}

// writeAlreadyAwarded answers a repeated award-once grant with the
// current balance instead of an error.
func (h *Handler) writeAlreadyAwarded(w http.ResponseWriter, r *http.Request, id ledger.AccountID) {
	account, err := h.engine().GetAccount(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, CreditResponse{
		Balance:        account.Balance,
		AlreadyAwarded: true,
	})
}

// writeLedgerError maps domain errors to HTTP status codes.
func (h *Handler) writeLedgerError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusBadRequest
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrCorrectionRequiresReversal),
		errors.Is(err, ledger.ErrAlreadyReversed),
		errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, ledger.ErrDuplicateEntry):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrConcurrentModification):
		// Retry budget exhausted; the request is safe to repeat.
		status = http.StatusServiceUnavailable
		if h.Metrics != nil {
			h.Metrics.Conflicts.Inc()
		}
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
