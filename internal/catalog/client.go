package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/resilience"
)

// ErrNotFound indicates the requested catalog document does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Client reads products, categories, and banners from the headless content
// store. All access is read-only; the storefront never mutates catalog data.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *resilience.HTTPClient
	Cache   *Cache
	Log     zerolog.Logger
}

// Products returns the full published product list.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.fetch(ctx, "/v1/products", "products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FeaturedProducts returns products flagged for the storefront home page.
func (c *Client) FeaturedProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.fetch(ctx, "/v1/products?featured=true", "products:featured", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductBySlug resolves a single product for the detail page.
func (c *Client) ProductBySlug(ctx context.Context, slug string) (Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Product{}, ErrNotFound
	}
	var out Product
	key := "product:slug:" + slug
	if err := c.fetch(ctx, "/v1/products/slug/"+url.PathEscape(slug), key, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

// ProductByID resolves a product reference, used when items enter the cart.
func (c *Client) ProductByID(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrNotFound
	}
	var out Product
	key := "product:" + id
	if err := c.fetch(ctx, "/v1/products/"+url.PathEscape(id), key, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

// Categories returns all catalog categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.fetch(ctx, "/v1/categories", "categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Banners returns active promotional banners.
func (c *Client) Banners(ctx context.Context) ([]Banner, error) {
	var out []Banner
	if err := c.fetch(ctx, "/v1/banners?active=true", "banners", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, path, cacheKey string, dst any) error {
	if c == nil || c.HTTP == nil {
		return errors.New("catalog: client not configured")
	}
	if hit, err := c.Cache.GetJSON(ctx, cacheKey, dst); err != nil {
		c.Log.Warn().Err(err).Str("key", cacheKey).Msg("catalog cache read failed")
	} else if hit {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("catalog: fetch %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("catalog: fetch %s: unexpected status %s", path, resp.Status)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	if err := json.Unmarshal(envelope.Result, dst); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	if err := c.Cache.SetJSON(ctx, cacheKey, dst); err != nil {
		c.Log.Warn().Err(err).Str("key", cacheKey).Msg("catalog cache write failed")
	}
	return nil
}
