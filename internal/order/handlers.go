package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/common"
)

// Handler serves the customer-facing order surface.
type Handler struct {
	Store Store
	Log   zerolog.Logger
}

// List returns the authenticated customer's order history, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	email, ok := common.UserEmail(r.Context())
	if !ok || email == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in to view orders", nil)
		return
	}
	orders, err := h.Store.ListForCustomer(r.Context(), email)
	if err != nil {
		h.Log.Error().Err(err).Msg("order history lookup failed")
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "orders temporarily unavailable", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	page, perPage := common.ParsePagination(r, 20)
	total := len(orders)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders[start:end],
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
		},
	})
}

// Get returns a single order, the confirmation view after checkout. Guests
// reach it by order id; authenticated customers only see their own orders.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderId")
	o, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		h.Log.Error().Err(err).Str("order", id).Msg("order lookup failed")
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "orders temporarily unavailable", nil)
		return
	}
	if email, ok := common.UserEmail(r.Context()); ok && email != "" && o.Customer.Email != email {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	common.JSONData(w, http.StatusOK, o)
}
