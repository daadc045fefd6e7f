package order

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/events"
	"github.com/shopease/storefront/internal/obs"
)

// Store persists orders. The production implementation talks to the headless
// content store; tests use the in-memory implementation.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	ListForCustomer(ctx context.Context, email string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Order, error)
}

// SubmissionError reports a failed hand-off to the order store. The cart and
// checkout draft are untouched when it is returned, so the caller may retry.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Submitter finalizes a draft and hands it to the order store. Success is
// at-most-once: the created event fires only after the store confirms.
type Submitter struct {
	Store    Store
	Bus      *events.Bus
	Metrics  *obs.OrderMetrics
	Currency string
	Log      zerolog.Logger

	// Now and Suffix are swappable for tests.
	Now    func() time.Time
	Suffix func() int
}

// Submit assigns any absent defaults on the draft, creates the order through
// the store, and emits the created event. On store failure it returns a
// *SubmissionError and mutates nothing.
func (s *Submitter) Submit(ctx context.Context, draft Order) (Order, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if draft.ID == "" {
		suffix := RandomSuffix()
		if s.Suffix != nil {
			suffix = s.Suffix()
		}
		draft.ID = NewID(now, suffix)
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now.UTC()
	}
	if draft.Status == "" {
		draft.Status = StatusPending
	}
	if draft.PaymentStatus == "" {
		draft.PaymentStatus = DefaultPaymentStatus(draft.PaymentMethod)
	}
	if draft.Currency == "" {
		draft.Currency = s.Currency
	}

	created, err := s.Store.Create(ctx, draft)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.Submitted.WithLabelValues("failed").Inc()
		}
		return Order{}, &SubmissionError{Err: err}
	}
	if s.Metrics != nil {
		s.Metrics.Submitted.WithLabelValues("succeeded").Inc()
	}
	if s.Bus != nil {
		s.Bus.Emit(ctx, events.TopicOrderCreated, events.OrderCreated{
			OrderID:       created.ID,
			CustomerName:  created.Customer.FullName,
			CustomerEmail: created.Customer.Email,
			TotalAmount:   int64(created.TotalAmount),
			Currency:      created.Currency,
		})
	}
	return created, nil
}
