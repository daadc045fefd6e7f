package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopease/storefront/internal/catalog"
	"github.com/shopease/storefront/internal/common"
)

// CartKeyHeader carries the guest cart identifier issued by Create.
const CartKeyHeader = "X-Cart-Key"

// ProductResolver looks up catalog products when items enter the cart.
type ProductResolver interface {
	ProductByID(ctx context.Context, id string) (catalog.Product, error)
}

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc     *Service
	Catalog ProductResolver
}

// Key resolves the cart key for a request: the authenticated customer id
// when present, otherwise the guest key header.
func Key(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok && userID != "" {
		return "user:" + userID
	}
	return strings.TrimSpace(r.Header.Get(CartKeyHeader))
}

// Create issues a guest cart key. Authenticated customers receive their
// stable per-account key instead.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	key := Key(r)
	if key == "" {
		key = uuid.NewString()
	}
	common.JSONData(w, http.StatusCreated, map[string]string{"cartKey": key})
}

// Get returns the current snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}
	common.JSONData(w, http.StatusOK, h.Svc.Snapshot(r.Context(), key))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddItem resolves the product reference and adds it to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog resolver not configured", nil)
		return
	}
	var payload addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Quantity < 1 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "quantity must be at least 1", nil)
		return
	}
	product, err := h.Catalog.ProductByID(r.Context(), payload.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "catalog temporarily unavailable", nil)
		return
	}
	if !product.InStock {
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "product is out of stock", nil)
		return
	}
	snapshot, err := h.Svc.AddItem(r.Context(), key, toCartProduct(product), payload.Quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, snapshot)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetQuantity replaces an entry's quantity; zero or less removes the entry.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}
	var payload setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	productID := chi.URLParam(r, "productId")
	snapshot := h.Svc.SetQuantity(r.Context(), key, productID, payload.Quantity)
	common.JSONData(w, http.StatusOK, snapshot)
}

// RemoveItem deletes an entry. Removing an absent entry succeeds.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productId")
	snapshot := h.Svc.RemoveItem(r.Context(), key, productID)
	common.JSONData(w, http.StatusOK, snapshot)
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}
	h.Svc.Clear(r.Context(), key)
	common.JSONData(w, http.StatusOK, h.Svc.Snapshot(r.Context(), key))
}

func (h *Handler) requireKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return "", false
	}
	key := Key(r)
	if key == "" {
		common.JSONError(w, http.StatusBadRequest, "MISSING_CART_KEY", "cart key header is required", nil)
		return "", false
	}
	return key, true
}

func toCartProduct(p catalog.Product) Product {
	thumbnail := ""
	if len(p.Images) > 0 {
		thumbnail = p.Images[0]
	}
	return Product{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		UnitPrice:       p.Price,
		DiscountPercent: p.DiscountPercent,
		Thumbnail:       thumbnail,
	}
}
