package checkout

import (
	"context"
	"errors"
	"sync"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/cart"
	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/order"
	"github.com/shopease/storefront/internal/pricing"
)

var (
	// ErrCartEmpty is the redirect side channel: the cart emptied while the
	// flow was still collecting input, so the caller must leave checkout.
	ErrCartEmpty = errors.New("checkout: cart is empty")

	// ErrNoSession is returned when no checkout has been started for the key.
	ErrNoSession = errors.New("checkout: no active session")

	// ErrSubmitting guards against duplicate confirmation triggers while a
	// submission is in flight.
	ErrSubmitting = errors.New("checkout: submission already in progress")
)

// CartAccess is the slice of the cart service the checkout flow needs.
type CartAccess interface {
	Snapshot(ctx context.Context, key string) cart.Snapshot
	Clear(ctx context.Context, key string)
}

// OrderSubmitter finalizes a draft order. Implemented by order.Submitter.
type OrderSubmitter interface {
	Submit(ctx context.Context, draft order.Order) (order.Order, error)
}

// Service drives checkout sessions. One session per cart key; sessions live
// in memory only and die with the process.
type Service struct {
	Carts    CartAccess
	Orders   OrderSubmitter
	Validate *validator.Validate
	Log      zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(carts CartAccess, orders OrderSubmitter, v *validator.Validate, log zerolog.Logger) *Service {
	return &Service{
		Carts:    carts,
		Orders:   orders,
		Validate: v,
		Log:      log,
		sessions: make(map[string]*Session),
	}
}

// Start opens a checkout session for the key, or returns the existing one.
// A non-empty cart is required to enter the flow.
func (s *Service) Start(ctx context.Context, key string) (Session, error) {
	if s.Carts.Snapshot(ctx, key).Empty() {
		return Session{}, ErrCartEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return *sess, nil
	}
	sess := &Session{State: StateShippingInfo}
	s.sessions[key] = sess
	return *sess, nil
}

// Current returns the session for the key. While input is still being
// collected an emptied cart aborts the flow.
func (s *Service) Current(ctx context.Context, key string) (Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrNoSession
	}
	snapshot := *sess
	s.mu.Unlock()

	if err := s.guardCart(ctx, key, snapshot.State); err != nil {
		return Session{}, err
	}
	return snapshot, nil
}

// SubmitShipping validates the shipping step and advances to payment_info.
// Validation failure keeps the state and reports per-field errors.
func (s *Service) SubmitShipping(ctx context.Context, key string, form ShippingForm) (Session, FieldErrors, error) {
	form.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return Session{}, nil, ErrNoSession
	}
	if err := allows(sess.State, StateShippingInfo); err != nil {
		return *sess, nil, err
	}
	if err := s.guardCartLocked(ctx, key, sess.State); err != nil {
		return Session{}, nil, err
	}
	if fieldErrs := validateForm(s.Validate, form); len(fieldErrs) > 0 {
		return *sess, fieldErrs, nil
	}
	sess.Shipping = form
	sess.State = StatePaymentInfo
	return *sess, nil, nil
}

// SubmitPayment validates the payment step and advances to confirmation.
func (s *Service) SubmitPayment(ctx context.Context, key string, form PaymentForm) (Session, FieldErrors, error) {
	form.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return Session{}, nil, ErrNoSession
	}
	if err := allows(sess.State, StatePaymentInfo); err != nil {
		return *sess, nil, err
	}
	if err := s.guardCartLocked(ctx, key, sess.State); err != nil {
		return Session{}, nil, err
	}
	if fieldErrs := validateForm(s.Validate, form); len(fieldErrs) > 0 {
		return *sess, fieldErrs, nil
	}
	sess.Payment = form
	sess.State = StateConfirmation
	return *sess, nil, nil
}

// Confirm materializes the order from the live cart snapshot plus the
// collected forms and submits it. Success clears the cart and ends the flow;
// any submission error lands in failed, from which Confirm may be retried
// with the draft and cart intact.
func (s *Service) Confirm(ctx context.Context, key string) (Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrNoSession
	}
	if sess.State == StateSubmitting {
		snapshot := *sess
		s.mu.Unlock()
		return snapshot, ErrSubmitting
	}
	if err := allows(sess.State, StateConfirmation, StateFailed); err != nil {
		snapshot := *sess
		s.mu.Unlock()
		return snapshot, err
	}
	snapshot := s.Carts.Snapshot(ctx, key)
	if snapshot.Empty() {
		delete(s.sessions, key)
		s.mu.Unlock()
		return Session{}, ErrCartEmpty
	}
	draft := buildDraft(ctx, *sess, snapshot)
	sess.State = StateSubmitting
	sess.LastError = ""
	s.mu.Unlock()

	created, err := s.Orders.Submit(ctx, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	// The session may only be in submitting here; the flow rejects every
	// concurrent mutation for the key while the call is in flight.
	if err != nil {
		sess.State = StateFailed
		sess.LastError = err.Error()
		s.Log.Warn().Err(err).Str("cart", key).Msg("order submission failed, checkout retryable")
		return *sess, nil
	}
	sess.State = StateSucceeded
	sess.Order = &created
	s.Carts.Clear(ctx, key)
	s.Log.Info().Str("cart", key).Str("order", created.ID).Msg("order submitted")
	return *sess, nil
}

// Abandon discards the session, if any.
func (s *Service) Abandon(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// guardCart aborts the flow when the cart empties during input collection.
func (s *Service) guardCart(ctx context.Context, key string, state State) error {
	if state != StateShippingInfo && state != StatePaymentInfo {
		return nil
	}
	if !s.Carts.Snapshot(ctx, key).Empty() {
		return nil
	}
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return ErrCartEmpty
}

func (s *Service) guardCartLocked(ctx context.Context, key string, state State) error {
	if state != StateShippingInfo && state != StatePaymentInfo {
		return nil
	}
	if !s.Carts.Snapshot(ctx, key).Empty() {
		return nil
	}
	delete(s.sessions, key)
	return ErrCartEmpty
}

func buildDraft(ctx context.Context, sess Session, snapshot cart.Snapshot) order.Order {
	items := make([]order.LineItem, 0, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		unit := pricing.EffectiveUnitPrice(e.Product.UnitPrice, e.Product.DiscountPercent)
		items = append(items, order.LineItem{
			ProductID:       e.Product.ID,
			Name:            e.Product.Name,
			Quantity:        e.Quantity,
			UnitPrice:       e.Product.UnitPrice,
			DiscountPercent: e.Product.DiscountPercent,
			FinalPrice:      unit * pricing.Money(e.Quantity),
		})
	}
	method, _ := order.ParsePaymentMethod(sess.Payment.Method)
	customer := order.Customer{
		FullName: sess.Shipping.FullName,
		Email:    sess.Shipping.Email,
		Phone:    sess.Shipping.Phone,
	}
	if accountID, ok := common.UserID(ctx); ok {
		customer.AccountID = accountID
	}
	return order.Order{
		Customer: customer,
		Address: order.Address{
			Street: sess.Shipping.Address,
			City:   sess.Shipping.City,
			State:  sess.Shipping.State,
			Zip:    sess.Shipping.Zip,
		},
		Items:         items,
		TotalAmount:   snapshot.Totals.Total,
		PaymentMethod: method,
		Notes:         sess.Payment.Notes,
	}
}
