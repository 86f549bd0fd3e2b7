package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/internal/production/service"
	"github.com/brauwerk/brauwerk-backend/pkg/httputil"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
)

// LedgerHandler handles inventory ledger endpoints
type LedgerHandler struct {
	ledger    *service.LedgerService
	deduction *service.DeductionService
	logger    *logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledger *service.LedgerService, deduction *service.DeductionService, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		deduction: deduction,
		logger:    log,
	}
}

// adjustRequest is the body of a manual stock movement
type adjustRequest struct {
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	EntryType string          `json:"entry_type" validate:"required,oneof=PURCHASE RETURN ADJUSTMENT_ADD ADJUSTMENT_REMOVE"`
	Notes     *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// GetBalance returns the item's current cached balance
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.ledger.GetBalance(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"item_id": id,
		"balance": balance,
	})
}

// GetHistory lists the item's ledger entries, most recent first
func (h *LedgerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.ledger.GetHistory(r.Context(), id, limit, offset)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// Adjust records a manual stock movement against the item
func (h *LedgerHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req adjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.deduction.Adjust(r.Context(), service.AdjustInput{
		ItemID:    id,
		Quantity:  req.Quantity,
		EntryType: repository.LedgerEntryType(req.EntryType),
		Notes:     req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, result)
}
