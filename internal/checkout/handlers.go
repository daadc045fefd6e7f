package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/order"
)

// Handler wires the checkout service to HTTP. The cart key is resolved the
// same way as for the cart surface.
type Handler struct {
	Svc     *Service
	CartKey func(r *http.Request) string
}

// sessionView is the session as shown to clients. Card fields never leave
// the server.
type sessionView struct {
	State     State        `json:"state"`
	Shipping  ShippingForm `json:"shipping"`
	Method    string       `json:"paymentMethod,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	Order     *order.Order `json:"order,omitempty"`
	LastError string       `json:"lastError,omitempty"`
}

func viewOf(sess Session) sessionView {
	return sessionView{
		State:     sess.State,
		Shipping:  sess.Shipping,
		Method:    sess.Payment.Method,
		Notes:     sess.Payment.Notes,
		Order:     sess.Order,
		LastError: sess.LastError,
	}
}

// Start opens a checkout session.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.Start(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, viewOf(sess))
}

// Current returns the session state.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.Current(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, viewOf(sess))
}

// SubmitShipping handles the shipping step.
func (h *Handler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	var form ShippingForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	sess, fieldErrs, err := h.Svc.SubmitShipping(r.Context(), key, form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "shipping details are invalid", fieldErrs)
		return
	}
	common.JSONData(w, http.StatusOK, viewOf(sess))
}

// SubmitPayment handles the payment step.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	var form PaymentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	sess, fieldErrs, err := h.Svc.SubmitPayment(r.Context(), key, form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "payment details are invalid", fieldErrs)
		return
	}
	common.JSONData(w, http.StatusOK, viewOf(sess))
}

// Confirm submits the order. A failed submission leaves the session in the
// failed state and reports 502 so the client can offer a retry.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.Confirm(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if sess.State == StateFailed {
		common.JSONError(w, http.StatusBadGateway, "SUBMISSION_FAILED", "order submission failed, please retry",
			map[string]string{"state": string(sess.State)})
		return
	}
	common.JSONData(w, http.StatusOK, viewOf(sess))
}

// Abandon discards the session.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	h.Svc.Abandon(key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := ""
	if h.CartKey != nil {
		key = h.CartKey(r)
	}
	if key == "" {
		common.JSONError(w, http.StatusBadRequest, "MISSING_CART_KEY", "cart key header is required", nil)
		return "", false
	}
	return key, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stateErr *StateError
	switch {
	case errors.Is(err, ErrCartEmpty):
		common.JSONError(w, http.StatusConflict, "CART_EMPTY", "cart is empty, leave checkout", nil)
	case errors.Is(err, ErrNoSession):
		common.JSONError(w, http.StatusNotFound, "NO_SESSION", "no active checkout session", nil)
	case errors.Is(err, ErrSubmitting):
		common.JSONError(w, http.StatusConflict, "SUBMISSION_IN_PROGRESS", "order submission already in progress", nil)
	case errors.As(err, &stateErr):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "operation not allowed in current checkout state",
			map[string]string{"state": string(stateErr.Current)})
	default:
		common.WriteError(w, err)
	}
}
