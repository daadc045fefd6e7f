package cart

import (
	"net/http"

	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/pricing"
)

// ErrInvalidQuantity is returned when a mutation asks for a non-positive quantity.
var ErrInvalidQuantity = common.NewAppError("INVALID_QUANTITY", "quantity must be positive", http.StatusBadRequest, nil)

// Product is the catalog snapshot carried by a cart entry. It is captured
// when the item enters the cart so that pricing stays stable for the session.
type Product struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	UnitPrice       pricing.Money `json:"unitPrice"`
	DiscountPercent int           `json:"discountPercent,omitempty"`
	Thumbnail       string        `json:"thumbnail,omitempty"`
}

// Entry pairs a product snapshot with a positive quantity. At most one entry
// exists per product identifier.
type Entry struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Snapshot is the cart state handed to consumers: the ordered entry list and
// totals derived freshly from it.
type Snapshot struct {
	Entries    []Entry        `json:"entries"`
	TotalItems int            `json:"totalItems"`
	Totals     pricing.Totals `json:"totals"`
}

// Empty reports whether the snapshot holds no entries.
func (s Snapshot) Empty() bool { return len(s.Entries) == 0 }

func buildSnapshot(entries []Entry, rates pricing.Rates) Snapshot {
	items := make([]pricing.Item, 0, len(entries))
	totalItems := 0
	for _, e := range entries {
		items = append(items, pricing.Item{
			Qty:             e.Quantity,
			UnitPrice:       e.Product.UnitPrice,
			DiscountPercent: e.Product.DiscountPercent,
		})
		totalItems += e.Quantity
	}
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	totals := pricing.Totals{}
	if len(entries) > 0 {
		totals = pricing.Compute(items, rates)
	}
	return Snapshot{Entries: copied, TotalItems: totalItems, Totals: totals}
}
