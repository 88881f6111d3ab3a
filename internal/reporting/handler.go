package reporting

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mealgrid/mealgrid-rms/internal/platform/httpx"
)

// Handler exposes reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers reporting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/valuation", h.valuation)
	r.Get("/movements", h.movements)
	r.Get("/waste", h.wasteSummary)
}

func (h *Handler) valuation(w http.ResponseWriter, r *http.Request) {
	outletID, err := queryInt64(r, "outlet_id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "outlet_id must be a positive integer")
		return
	}
	report, err := h.service.Valuation(r.Context(), outletID)
	if err != nil {
		h.logger.Error("valuation report failed", slog.Int64("outlet_id", outletID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	itemID, err := queryInt64(r, "item_id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "item_id must be a positive integer")
		return
	}
	from, to, err := queryRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	rows, err := h.service.Movements(r.Context(), itemID, from, to)
	if err != nil {
		h.logger.Error("movement report failed", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID, "from": from, "to": to, "movements": rows})
}

func (h *Handler) wasteSummary(w http.ResponseWriter, r *http.Request) {
	outletID, err := queryInt64(r, "outlet_id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "outlet_id must be a positive integer")
		return
	}
	from, to, err := queryRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	report, err := h.service.WasteSummary(r.Context(), outletID, from, to)
	if err != nil {
		h.logger.Error("waste report failed", slog.Int64("outlet_id", outletID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func queryInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// queryRange parses from/to date parameters, defaulting to the last 30 days.
// Dates are accepted as RFC 3339 timestamps or plain YYYY-MM-DD.
func queryRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = parseDate(raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = parseDate(raw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}
