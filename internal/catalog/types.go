package catalog

import "github.com/shopease/storefront/internal/pricing"

// Product is the read-only catalog entry owned by the external content store.
type Product struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	Price           pricing.Money `json:"price"`
	DiscountPercent int           `json:"discountPercent,omitempty"`
	Description     string        `json:"description,omitempty"`
	Categories      []string      `json:"categories,omitempty"`
	Images          []string      `json:"images,omitempty"`
	InStock         bool          `json:"inStock"`
	Featured        bool          `json:"featured,omitempty"`
}

// Category represents the public category payload.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Banner is a promotional entry rendered on the storefront home page.
type Banner struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Image      string `json:"image,omitempty"`
	ButtonText string `json:"buttonText,omitempty"`
	ButtonLink string `json:"buttonLink,omitempty"`
	IsActive   bool   `json:"isActive"`
}
