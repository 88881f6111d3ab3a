package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mealgrid/mealgrid-rms/internal/platform/httpx"
	"github.com/mealgrid/mealgrid-rms/internal/shared"
)

// Handler manages procurement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/pos", h.createPO)
	r.Get("/pos/{id}", h.getPO)
	r.Post("/pos/{id}/submit", h.submitPO)
	r.Post("/pos/{id}/approve", h.approvePO)
	r.Post("/pos/{id}/send", h.sendPO)
	r.Post("/pos/{id}/cancel", h.cancelPO)
	r.Post("/pos/{id}/receipts", h.receiveGoods)
}

type createPORequest struct {
	SupplierID int64                 `json:"supplier_id" validate:"required"`
	OutletID   int64                 `json:"outlet_id" validate:"required"`
	EmployeeID int64                 `json:"employee_id"`
	Notes      string                `json:"notes"`
	Items      []createPOItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createPOItemRequest struct {
	ItemID    int64           `json:"item_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

type actionRequest struct {
	EmployeeID int64 `json:"employee_id"`
}

type receiveGoodsRequest struct {
	EmployeeID     int64                `json:"employee_id" validate:"required"`
	Notes          string               `json:"notes"`
	IdempotencyKey string               `json:"idempotency_key"`
	Items          []receiveLineRequest `json:"items" validate:"required,min=1,dive"`
}

type receiveLineRequest struct {
	POItemID    int64           `json:"po_item_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	BatchNumber string          `json:"batch_number"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreatePOInput{
		SupplierID: req.SupplierID,
		OutletID:   req.OutletID,
		CreatedBy:  req.EmployeeID,
		Notes:      req.Notes,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, POItemInput{
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			TaxRate:   line.TaxRate,
		})
	}
	po, err := h.service.CreatePO(r.Context(), input)
	if err != nil {
		h.respondError(w, "create PO", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	result, err := h.service.GetPOWithReceipts(r.Context(), id)
	if err != nil {
		h.respondError(w, "get PO", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) submitPO(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.SubmitPO, "submit PO")
}

func (h *Handler) approvePO(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.ApprovePO, "approve PO")
}

func (h *Handler) sendPO(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.SendPO, "send PO")
}

func (h *Handler) cancelPO(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.CancelPO, "cancel PO")
}

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, poID, employeeID int64) (PurchaseOrder, error), name string) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req actionRequest
	_ = httpx.DecodeJSON(r, &req)
	po, err := op(r.Context(), id, req.EmployeeID)
	if err != nil {
		h.respondError(w, name, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) receiveGoods(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req receiveGoodsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}
	input := ReceiveGoodsInput{
		POID:           id,
		ReceivedBy:     req.EmployeeID,
		Notes:          req.Notes,
		IdempotencyKey: key,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, ReceiveLineInput{
			POItemID:    line.POItemID,
			Quantity:    line.Quantity,
			BatchNumber: line.BatchNumber,
			ExpiryDate:  line.ExpiryDate,
		})
	}
	grn, err := h.service.ReceiveGoods(r.Context(), input)
	if err != nil {
		h.respondError(w, "receive goods", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grn)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Line Not Found", err.Error())
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidPOState), errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrOverReceipt):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Over Receipt", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
