package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a cart line used for totals calculation.
type Item struct {
	Qty             int
	UnitPrice       Money
	DiscountPercent int
}

// Rates carries the storefront pricing policy. Amounts are minor units,
// percentages are basis points.
type Rates struct {
	TaxBps           int
	FlatShippingFee  Money
	FreeShippingOver Money
	BulkDiscountBps  int
	BulkDiscountOver Money
}

// Totals aggregates the derived pricing components of a cart.
type Totals struct {
	Subtotal     Money `json:"subtotal"`
	Tax          Money `json:"tax"`
	Shipping     Money `json:"shipping"`
	BulkDiscount Money `json:"bulkDiscount"`
	Total        Money `json:"total"`
}

// EffectiveUnitPrice applies a product's percentage discount to its unit
// price. Discounts outside [0,100] are clamped. The result is never negative.
func EffectiveUnitPrice(unitPrice Money, discountPercent int) Money {
	if unitPrice < 0 {
		unitPrice = 0
	}
	if discountPercent <= 0 {
		return unitPrice
	}
	if discountPercent > 100 {
		discountPercent = 100
	}
	return (unitPrice * Money(100-discountPercent)) / 100
}

// Compute calculates cart totals from the provided lines. It is a pure
// function of its inputs. Both shipping and bulk-discount thresholds are
// strict: a subtotal exactly at the threshold pays the fee and gets no
// discount.
func Compute(items []Item, rates Rates) Totals {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += EffectiveUnitPrice(it.UnitPrice, it.DiscountPercent) * Money(it.Qty)
	}
	tax := (subtotal * Money(rates.TaxBps)) / 10000
	shipping := rates.FlatShippingFee
	if subtotal > rates.FreeShippingOver {
		shipping = 0
	}
	var bulk Money
	if subtotal > rates.BulkDiscountOver {
		bulk = (subtotal * Money(rates.BulkDiscountBps)) / 10000
	}
	return Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		Shipping:     shipping,
		BulkDiscount: bulk,
		Total:        subtotal + tax + shipping - bulk,
	}
}
