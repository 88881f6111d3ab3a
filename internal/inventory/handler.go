package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mealgrid/mealgrid-rms/internal/platform/httpx"
)

// Handler exposes inventory endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/items", h.createItem)
	r.Get("/items", h.listItems)
	r.Get("/items/{id}", h.getItem)
	r.Post("/waste", h.recordWaste)
	r.Post("/adjustments", h.recordAdjustment)
}

type createItemRequest struct {
	OutletID     int64            `json:"outlet_id" validate:"required"`
	SKU          string           `json:"sku"`
	Name         string           `json:"name" validate:"required"`
	Unit         string           `json:"unit" validate:"required"`
	ReorderPoint *decimal.Decimal `json:"reorder_point"`
	TrackBatch   bool             `json:"track_batch"`
}

type itemResponse struct {
	ID           int64            `json:"id"`
	OutletID     int64            `json:"outlet_id"`
	SKU          string           `json:"sku"`
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	CurrentStock decimal.Decimal  `json:"current_stock"`
	AverageCost  decimal.Decimal  `json:"average_cost"`
	LastCost     decimal.Decimal  `json:"last_cost"`
	ReorderPoint *decimal.Decimal `json:"reorder_point,omitempty"`
	TrackBatch   bool             `json:"track_batch"`
	CreatedAt    time.Time        `json:"created_at"`
}

type wasteRequest struct {
	ItemID      int64           `json:"item_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	Reason      string          `json:"reason"`
	PerformedBy int64           `json:"performed_by" validate:"required"`
}

type adjustmentRequest struct {
	ItemID      int64           `json:"item_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Note        string          `json:"note"`
	PerformedBy int64           `json:"performed_by" validate:"required"`
}

type movementResponse struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	Type      MovementType    `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateItemInput{
		OutletID:   req.OutletID,
		SKU:        req.SKU,
		Name:       req.Name,
		Unit:       req.Unit,
		TrackBatch: req.TrackBatch,
	}
	if req.ReorderPoint != nil {
		input.ReorderPoint = decimal.NullDecimal{Decimal: *req.ReorderPoint, Valid: true}
	}
	item, err := h.service.CreateItem(r.Context(), input)
	if err != nil {
		h.respondError(w, r, "create item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	outletID, _ := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if outletID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "outlet_id is required")
		return
	}
	items, err := h.service.ListItems(r.Context(), outletID)
	if err != nil {
		h.respondError(w, r, "list items", err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) recordWaste(w http.ResponseWriter, r *http.Request) {
	var req wasteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	movement, err := h.service.RecordWaste(r.Context(), WasteInput{
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		PerformedBy: req.PerformedBy,
	})
	if err != nil {
		h.respondError(w, r, "record waste", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(movement))
}

func (h *Handler) recordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	movement, err := h.service.RecordAdjustment(r.Context(), AdjustmentInput{
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		Note:        req.Note,
		PerformedBy: req.PerformedBy,
	})
	if err != nil {
		h.respondError(w, r, "record adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(movement))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost), errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNegativeStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func toItemResponse(item Item) itemResponse {
	resp := itemResponse{
		ID:           item.ID,
		OutletID:     item.OutletID,
		SKU:          item.SKU,
		Name:         item.Name,
		Unit:         item.Unit,
		CurrentStock: item.CurrentStock,
		AverageCost:  item.AverageCost,
		LastCost:     item.LastCost,
		TrackBatch:   item.TrackBatch,
		CreatedAt:    item.CreatedAt,
	}
	if item.ReorderPoint.Valid {
		rp := item.ReorderPoint.Decimal
		resp.ReorderPoint = &rp
	}
	return resp
}

func toMovementResponse(m StockMovement) movementResponse {
	return movementResponse{
		ID:        m.ID,
		ItemID:    m.ItemID,
		Type:      m.Type,
		Quantity:  m.Quantity,
		UnitCost:  m.UnitCost,
		TotalCost: m.TotalCost,
		Note:      m.Note,
		CreatedAt: m.CreatedAt,
	}
}
