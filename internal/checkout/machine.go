package checkout

import (
	"fmt"

	"github.com/shopease/storefront/internal/order"
)

// State is a step of the checkout flow. Transitions are strictly linear:
// shipping_info, payment_info, confirmation, submitting, then succeeded or
// failed. The only backward edge is failed to confirmation, the retry path.
type State string

const (
	StateShippingInfo State = "shipping_info"
	StatePaymentInfo  State = "payment_info"
	StateConfirmation State = "confirmation"
	StateSubmitting   State = "submitting"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Session is one in-progress checkout, keyed by cart key. It is transient:
// never persisted, discarded on success or abandonment.
type Session struct {
	State     State
	Shipping  ShippingForm
	Payment   PaymentForm
	Order     *order.Order
	LastError string
}

// StateError reports an operation attempted from the wrong state.
type StateError struct {
	Current State
	Wanted  []State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("checkout: operation not allowed in state %q", e.Current)
}

func allows(current State, wanted ...State) error {
	for _, w := range wanted {
		if current == w {
			return nil
		}
	}
	return &StateError{Current: current, Wanted: wanted}
}
