package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/pricing"
)

// Service is the single source of truth for cart line items. The in-memory
// state is authoritative for the session; every mutation mirrors it into
// durable storage so a returning client restores its cart. Storage failures
// degrade to memory-only operation and are never surfaced to the caller.
//
// A cart key has one writer at a time (one browser tab); when storage is
// shared across concurrent writers the last write wins.
type Service struct {
	Storage Storage
	Rates   pricing.Rates
	Log     zerolog.Logger

	mu     sync.Mutex
	carts  map[string][]Entry
	loaded map[string]bool
}

// NewService constructs a cart service on top of the provided storage.
func NewService(storage Storage, rates pricing.Rates, log zerolog.Logger) *Service {
	return &Service{
		Storage: storage,
		Rates:   rates,
		Log:     log,
		carts:   make(map[string][]Entry),
		loaded:  make(map[string]bool),
	}
}

// AddItem inserts a new entry or accumulates quantity onto an existing one.
func (s *Service) AddItem(ctx context.Context, key string, product Product, qty int) (Snapshot, error) {
	if qty < 1 {
		return Snapshot{}, fmt.Errorf("add %q: %w", product.ID, ErrInvalidQuantity)
	}
	if strings.TrimSpace(product.ID) == "" {
		return Snapshot{}, fmt.Errorf("cart: product id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entriesLocked(ctx, key)
	replaced := false
	for i := range entries {
		if entries[i].Product.ID == product.ID {
			entries[i].Quantity += qty
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, Entry{Product: product, Quantity: qty})
	}
	s.commitLocked(ctx, key, entries)
	return buildSnapshot(entries, s.Rates), nil
}

// RemoveItem deletes the entry for the product. Removing an absent product is
// not an error.
func (s *Service) RemoveItem(ctx context.Context, key, productID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entriesLocked(ctx, key)
	kept := entries[:0]
	for _, e := range entries {
		if e.Product.ID != productID {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(entries) {
		s.commitLocked(ctx, key, kept)
	}
	return buildSnapshot(kept, s.Rates)
}

// SetQuantity replaces an entry's quantity. A quantity of zero or less
// behaves as RemoveItem. Setting quantity for an absent product is a no-op.
func (s *Service) SetQuantity(ctx context.Context, key, productID string, qty int) Snapshot {
	if qty <= 0 {
		return s.RemoveItem(ctx, key, productID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.entriesLocked(ctx, key)
	for i := range entries {
		if entries[i].Product.ID == productID {
			if entries[i].Quantity != qty {
				entries[i].Quantity = qty
				s.commitLocked(ctx, key, entries)
			}
			break
		}
	}
	return buildSnapshot(entries, s.Rates)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[key] = nil
	s.loaded[key] = true
	if err := s.Storage.Clear(ctx, key); err != nil {
		s.Log.Warn().Err(err).Str("cart", key).Msg("cart storage clear failed, continuing in memory")
	}
}

// Snapshot returns the entry list plus freshly derived totals.
func (s *Service) Snapshot(ctx context.Context, key string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildSnapshot(s.entriesLocked(ctx, key), s.Rates)
}

// IsInCart reports whether the product has an entry.
func (s *Service) IsInCart(ctx context.Context, key, productID string) bool {
	return s.QuantityOf(ctx, key, productID) > 0
}

// QuantityOf returns the entry quantity for the product, zero when absent.
func (s *Service) QuantityOf(ctx context.Context, key, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entriesLocked(ctx, key) {
		if e.Product.ID == productID {
			return e.Quantity
		}
	}
	return 0
}

// entriesLocked returns the live entry list for the key, restoring it from
// durable storage on first touch. A missing, unreadable, or corrupted stored
// value resets to an empty cart rather than failing.
func (s *Service) entriesLocked(ctx context.Context, key string) []Entry {
	if s.loaded[key] {
		return s.carts[key]
	}
	s.loaded[key] = true
	entries, found, err := s.Storage.Load(ctx, key)
	if err != nil {
		s.Log.Warn().Err(err).Str("cart", key).Msg("cart restore failed, resetting to empty")
		s.carts[key] = nil
		return nil
	}
	if !found {
		s.carts[key] = nil
		return nil
	}
	// Stored state passes through the same invariants as live mutations:
	// positive quantities only, one entry per product.
	sanitized := make([]Entry, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.Quantity <= 0 || e.Product.ID == "" {
			continue
		}
		if idx, dup := seen[e.Product.ID]; dup {
			sanitized[idx].Quantity += e.Quantity
			continue
		}
		seen[e.Product.ID] = len(sanitized)
		sanitized = append(sanitized, e)
	}
	s.carts[key] = sanitized
	return sanitized
}

// commitLocked stores the new entry list and mirrors it to durable storage.
// The storage write is best-effort: failures are logged and the in-memory
// state stays authoritative.
func (s *Service) commitLocked(ctx context.Context, key string, entries []Entry) {
	s.carts[key] = entries
	if err := s.Storage.Save(ctx, key, entries); err != nil {
		s.Log.Warn().Err(err).Str("cart", key).Msg("cart storage write failed, continuing in memory")
	}
}
