package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/events"
)

// AdminHandler serves administrative order mutations.
type AdminHandler struct {
	Store Store
	Bus   *events.Bus
	Log   zerolog.Logger
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an order to a later status. The new status must be in
// the closed set and must not regress; the local view changes only after the
// store confirms the write.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderId")
	var payload updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	target, err := ParseStatus(payload.Status)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown order status", map[string]string{"status": payload.Status})
		return
	}

	current, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		h.Log.Error().Err(err).Str("order", id).Msg("order lookup failed")
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "orders temporarily unavailable", nil)
		return
	}
	if !CanTransition(current.Status, target) {
		common.JSONError(w, http.StatusConflict, "STATUS_REGRESSION", "order status cannot move backwards",
			map[string]string{"from": string(current.Status), "to": string(target)})
		return
	}

	updated, err := h.Store.UpdateStatus(r.Context(), id, target)
	if err != nil {
		h.Log.Error().Err(err).Str("order", id).Msg("order status update failed")
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "order status update failed", nil)
		return
	}
	if h.Bus != nil {
		h.Bus.Emit(r.Context(), events.TopicOrderStatusChanged, events.OrderStatusChanged{
			OrderID:       updated.ID,
			CustomerName:  updated.Customer.FullName,
			CustomerEmail: updated.Customer.Email,
			OldStatus:     string(current.Status),
			NewStatus:     string(updated.Status),
		})
	}
	common.JSONData(w, http.StatusOK, updated)
}
