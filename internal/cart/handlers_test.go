package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/shopease/storefront/internal/catalog"
	"github.com/shopease/storefront/internal/common"
)

type stubResolver struct {
	products map[string]catalog.Product
	err      error
}

func (s *stubResolver) ProductByID(_ context.Context, id string) (catalog.Product, error) {
	if s.err != nil {
		return catalog.Product{}, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func newCartRouter(t *testing.T, resolver ProductResolver) http.Handler {
	t.Helper()
	svc, _ := newTestService(t)
	h := &Handler{Svc: svc, Catalog: resolver}
	r := chi.NewRouter()
	r.Post("/cart", h.Create)
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{productId}", h.SetQuantity)
	r.Delete("/cart/items/{productId}", h.RemoveItem)
	return r
}

func doCart(router http.Handler, method, path, key, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set(CartKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) Snapshot {
	t.Helper()
	var body struct {
		Data Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

func TestCreateIssuesGuestKey(t *testing.T) {
	router := newCartRouter(t, &stubResolver{})

	rec := doCart(router, http.MethodPost, "/cart", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data["cartKey"])
}

func TestCreateKeepsExistingKey(t *testing.T) {
	router := newCartRouter(t, &stubResolver{})

	rec := doCart(router, http.MethodPost, "/cart", "guest-42", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "guest-42")
}

func TestCreatePrefersAccountKey(t *testing.T) {
	svc, _ := newTestService(t)
	h := &Handler{Svc: svc, Catalog: &stubResolver{}}

	req := httptest.NewRequest(http.MethodPost, "/cart", nil)
	req = req.WithContext(common.WithUserID(req.Context(), "u-7"))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "user:u-7")
}

func TestAddItemHappyPath(t *testing.T) {
	resolver := &stubResolver{products: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Widget", Slug: "widget", Price: 250_00, InStock: true, Images: []string{"https://cdn/img.png"}},
	}}
	router := newCartRouter(t, resolver)

	rec := doCart(router, http.MethodPost, "/cart/items", "k1", `{"productId":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	require.Equal(t, 2, snap.TotalItems)
	require.Len(t, snap.Entries, 1)
	require.Equal(t, "https://cdn/img.png", snap.Entries[0].Product.Thumbnail)
}

func TestAddItemRequiresKey(t *testing.T) {
	router := newCartRouter(t, &stubResolver{})

	rec := doCart(router, http.MethodPost, "/cart/items", "", `{"productId":"p1","quantity":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "MISSING_CART_KEY")
}

func TestAddItemUnknownProduct(t *testing.T) {
	router := newCartRouter(t, &stubResolver{})

	rec := doCart(router, http.MethodPost, "/cart/items", "k1", `{"productId":"ghost","quantity":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestAddItemOutOfStock(t *testing.T) {
	resolver := &stubResolver{products: map[string]catalog.Product{
		"p1": {ID: "p1", Price: 100_00, InStock: false},
	}}
	router := newCartRouter(t, resolver)

	rec := doCart(router, http.MethodPost, "/cart/items", "k1", `{"productId":"p1","quantity":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "OUT_OF_STOCK")
}

func TestAddItemUpstreamDown(t *testing.T) {
	router := newCartRouter(t, &stubResolver{err: errors.New("content store down")})

	rec := doCart(router, http.MethodPost, "/cart/items", "k1", `{"productId":"p1","quantity":1}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "UPSTREAM_UNAVAILABLE")
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	router := newCartRouter(t, &stubResolver{})

	rec := doCart(router, http.MethodPost, "/cart/items", "k1", `{"productId":"p1","quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doCart(router, http.MethodPost, "/cart/items", "k1", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetQuantityAndRemoveOverHTTP(t *testing.T) {
	resolver := &stubResolver{products: map[string]catalog.Product{
		"p1": {ID: "p1", Price: 100_00, InStock: true},
	}}
	router := newCartRouter(t, resolver)

	doCart(router, http.MethodPost, "/cart/items", "k1", `{"productId":"p1","quantity":1}`)

	rec := doCart(router, http.MethodPatch, "/cart/items/p1", "k1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, decodeSnapshot(t, rec).TotalItems)

	rec = doCart(router, http.MethodDelete, "/cart/items/p1", "k1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, decodeSnapshot(t, rec).TotalItems)
}

func TestClearOverHTTP(t *testing.T) {
	resolver := &stubResolver{products: map[string]catalog.Product{
		"p1": {ID: "p1", Price: 100_00, InStock: true},
	}}
	router := newCartRouter(t, resolver)

	doCart(router, http.MethodPost, "/cart/items", "k1", `{"productId":"p1","quantity":3}`)

	rec := doCart(router, http.MethodDelete, "/cart", "k1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, decodeSnapshot(t, rec).TotalItems)

	rec = doCart(router, http.MethodGet, "/cart", "k1", "")
	require.Zero(t, decodeSnapshot(t, rec).TotalItems)
}
