package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	products []Product
	featured []Product
	bySlug   map[string]Product
	banners  []Banner
	err      error
}

func (s *stubSource) Products(context.Context) ([]Product, error) {
	return s.products, s.err
}

func (s *stubSource) FeaturedProducts(context.Context) ([]Product, error) {
	return s.featured, s.err
}

func (s *stubSource) ProductBySlug(_ context.Context, slug string) (Product, error) {
	if s.err != nil {
		return Product{}, s.err
	}
	p, ok := s.bySlug[slug]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *stubSource) Categories(context.Context) ([]Category, error) {
	return nil, s.err
}

func (s *stubSource) Banners(context.Context) ([]Banner, error) {
	return s.banners, s.err
}

func newCatalogRouter(src Source) http.Handler {
	h := &Handler{Source: src, Log: zerolog.Nop()}
	r := chi.NewRouter()
	r.Get("/products", h.ListProducts)
	r.Get("/products/{slug}", h.GetProduct)
	r.Get("/categories", h.ListCategories)
	r.Get("/banners", h.ListBanners)
	return r
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListProducts(t *testing.T) {
	src := &stubSource{
		products: []Product{{ID: "p1", Slug: "widget"}, {ID: "p2", Slug: "gadget"}},
		featured: []Product{{ID: "p1", Slug: "widget"}},
	}
	router := newCatalogRouter(src)

	rec := get(t, router, "/products")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)

	rec = get(t, router, "/products?featured=true")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
}

func TestListProductsFailsSoft(t *testing.T) {
	router := newCatalogRouter(&stubSource{err: errors.New("content store down")})

	rec := get(t, router, "/products")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Data)
}

func TestGetProduct(t *testing.T) {
	src := &stubSource{bySlug: map[string]Product{"widget": {ID: "p1", Slug: "widget"}}}
	router := newCatalogRouter(src)

	rec := get(t, router, "/products/widget")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/products/ghost")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestGetProductUpstreamDown(t *testing.T) {
	router := newCatalogRouter(&stubSource{err: errors.New("content store down")})

	rec := get(t, router, "/products/widget")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "UPSTREAM_UNAVAILABLE")
}

func TestListCategoriesAndBannersFailSoft(t *testing.T) {
	router := newCatalogRouter(&stubSource{err: errors.New("content store down")})

	rec := get(t, router, "/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = get(t, router, "/banners")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":[]}`, rec.Body.String())
}
