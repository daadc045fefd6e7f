package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/common"
)

// Source abstracts the content-store client for handlers and tests.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
	FeaturedProducts(ctx context.Context) ([]Product, error)
	ProductBySlug(ctx context.Context, slug string) (Product, error)
	Categories(ctx context.Context) ([]Category, error)
	Banners(ctx context.Context) ([]Banner, error)
}

// Handler exposes the read-only catalog browse endpoints.
//
// List endpoints fail soft: a fetch failure renders the same empty-state as
// an empty catalog, never an error page.
type Handler struct {
	Source Source
	Log    zerolog.Logger
}

// ListProducts renders all published products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog source not configured", nil)
		return
	}
	var (
		products []Product
		err      error
	)
	if r.URL.Query().Get("featured") == "true" {
		products, err = h.Source.FeaturedProducts(r.Context())
	} else {
		products, err = h.Source.Products(r.Context())
	}
	if err != nil {
		h.Log.Warn().Err(err).Msg("list products failed, rendering empty state")
		products = nil
	}
	if products == nil {
		products = []Product{}
	}
	common.JSONData(w, http.StatusOK, products)
}

// GetProduct renders a single product detail by slug.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog source not configured", nil)
		return
	}
	slug := chi.URLParam(r, "slug")
	product, err := h.Source.ProductBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		h.Log.Error().Err(err).Str("slug", slug).Msg("load product failed")
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "catalog temporarily unavailable", nil)
		return
	}
	common.JSONData(w, http.StatusOK, product)
}

// ListCategories renders all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog source not configured", nil)
		return
	}
	categories, err := h.Source.Categories(r.Context())
	if err != nil {
		h.Log.Warn().Err(err).Msg("list categories failed, rendering empty state")
		categories = nil
	}
	if categories == nil {
		categories = []Category{}
	}
	common.JSONData(w, http.StatusOK, categories)
}

// ListBanners renders active promotional banners.
func (h *Handler) ListBanners(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog source not configured", nil)
		return
	}
	banners, err := h.Source.Banners(r.Context())
	if err != nil {
		h.Log.Warn().Err(err).Msg("list banners failed, rendering empty state")
		banners = nil
	}
	if banners == nil {
		banners = []Banner{}
	}
	common.JSONData(w, http.StatusOK, banners)
}
