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

// ProductionHandler handles batch transition and lot query endpoints
type ProductionHandler struct {
	transitions *service.TransitionService
	lots        *service.LotQueryService
	logger      *logger.Logger
}

// NewProductionHandler creates a new production handler
func NewProductionHandler(transitions *service.TransitionService, lots *service.LotQueryService, log *logger.Logger) *ProductionHandler {
	return &ProductionHandler{
		transitions: transitions,
		lots:        lots,
		logger:      log,
	}
}

// startPackagingRequest is the body of a packaging start
type startPackagingRequest struct {
	PackageType string           `json:"package_type" validate:"required,max=100"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// StartPackaging transitions the batch and its blend siblings to packaging
func (h *ProductionHandler) StartPackaging(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req startPackagingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.transitions.StartPackaging(r.Context(), service.StartPackagingInput{
		BatchID:     id,
		PackageType: req.PackageType,
		Quantity:    req.Quantity,
		Notes:       req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// GetTimeline lists a batch's timeline events
func (h *ProductionHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.transitions.GetTimeline(r.Context(), id, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, events)
}

// ListActiveLots lists lots currently holding liquid in the given phase
func (h *ProductionHandler) ListActiveLots(w http.ResponseWriter, r *http.Request) {
	phase := r.URL.Query().Get("phase")
	if phase == "" {
		phase = string(repository.PhaseFermentation)
	}

	summaries, err := h.lots.ListActiveLots(r.Context(), repository.LotPhase(phase))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summaries)
}
