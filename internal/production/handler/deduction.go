package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/internal/production/service"
	"github.com/brauwerk/brauwerk-backend/pkg/httputil"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
)

// DeductionHandler handles stock deduction endpoints
type DeductionHandler struct {
	deduction *service.DeductionService
	logger    *logger.Logger
}

// NewDeductionHandler creates a new deduction handler
func NewDeductionHandler(deduction *service.DeductionService, log *logger.Logger) *DeductionHandler {
	return &DeductionHandler{
		deduction: deduction,
		logger:    log,
	}
}

// deductRequest identifies the item either by ID or by category plus a free
// text hint, and carries the quantity to remove
type deductRequest struct {
	ItemID   *string         `json:"item_id,omitempty" validate:"omitempty,uuid"`
	Category string          `json:"category" validate:"required,oneof=RAW_MATERIAL PACKAGING CONSUMABLE MERCHANDISE"`
	TypeHint string          `json:"type_hint,omitempty" validate:"omitempty,max=200"`
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	BatchID  *string         `json:"batch_id,omitempty" validate:"omitempty,uuid"`
	Notes    *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// Deduct removes stock from the resolved item
func (h *DeductionHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	var req deductRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.deduction.Deduct(r.Context(), service.DeductInput{
		ItemID:   req.ItemID,
		Category: repository.ItemCategory(req.Category),
		TypeHint: req.TypeHint,
		Quantity: req.Quantity,
		BatchID:  req.BatchID,
		Notes:    req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}
