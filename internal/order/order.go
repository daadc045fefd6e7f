package order

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopease/storefront/internal/pricing"
)

// ErrNotFound is returned when the order store has no record for an id.
var ErrNotFound = errors.New("order: not found")

// Status is the fulfilment state of an order. The set is closed; external
// input is parsed at the boundary and rejected when unknown.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus maps an external string onto the closed status set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("order: unknown status %q", s)
}

// rank orders statuses for the no-regression rule on administrative updates.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	case StatusCancelled:
		return 4
	}
	return -1
}

// CanTransition reports whether an administrative update from one status to
// another is allowed. Transitions never regress.
func CanTransition(from, to Status) bool {
	return to.rank() > from.rank()
}

// PaymentMethod is how the customer pays. The set is closed.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
)

// ParsePaymentMethod maps an external string onto the closed method set.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCashOnDelivery, PaymentCreditCard, PaymentBankTransfer:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("order: unknown payment method %q", s)
}

// PaymentStatus tracks the payment lifecycle independently of Status.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// ParsePaymentStatus maps an external string onto the closed set.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("order: unknown payment status %q", s)
}

// DefaultPaymentStatus is the initial payment status for a new order. Cash on
// delivery starts pending; electronic methods start processing.
func DefaultPaymentStatus(m PaymentMethod) PaymentStatus {
	if m == PaymentCashOnDelivery {
		return PaymentStatusPending
	}
	return PaymentStatusProcessing
}

// Customer is the identity snapshot captured at submission.
type Customer struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	AccountID string `json:"accountId,omitempty"`
}

// Address is the shipping destination snapshot.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// LineItem is one purchased product, priced at the moment of submission.
type LineItem struct {
	ProductID       string        `json:"productId"`
	Name            string        `json:"name"`
	Quantity        int           `json:"quantity"`
	UnitPrice       pricing.Money `json:"unitPrice"`
	DiscountPercent int           `json:"discountPercent,omitempty"`
	FinalPrice      pricing.Money `json:"finalPrice"`
}

// Order is the immutable record produced by a confirmed checkout. Once
// created it is owned by the order store; the checkout keeps a transient copy
// for display only.
type Order struct {
	ID            string        `json:"id"`
	Customer      Customer      `json:"customer"`
	Address       Address       `json:"address"`
	Items         []LineItem    `json:"items"`
	TotalAmount   pricing.Money `json:"totalAmount"`
	Currency      string        `json:"currency"`
	Status        Status        `json:"status"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// NewID builds an order identifier from the creation time plus a random
// suffix. Uniqueness is probabilistic, sized for expected order volume.
func NewID(now time.Time, suffix int) string {
	return fmt.Sprintf("ORD-%d-%03d", now.UnixMilli(), suffix%1000)
}

// RandomSuffix returns a suffix for NewID.
func RandomSuffix() int {
	return rand.Intn(1000)
}
