package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shopease/storefront/internal/events"
)

var fixedNow = time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)

func newTestSubmitter(store Store, bus *events.Bus) *Submitter {
	return &Submitter{
		Store:    store,
		Bus:      bus,
		Currency: "USD",
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
		Suffix:   func() int { return 42 },
	}
}

func draftOrder() Order {
	return Order{
		Customer: Customer{FullName: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0100"},
		Address:  Address{Street: "1 Analytical Way", City: "London", State: "LDN", Zip: "E1 6AN"},
		Items: []LineItem{
			{ProductID: "p1", Name: "Widget", Quantity: 2, UnitPrice: 450_00, DiscountPercent: 10, FinalPrice: 810_00},
		},
		TotalAmount:   991_00,
		PaymentMethod: PaymentCashOnDelivery,
	}
}

func TestSubmitAssignsDefaults(t *testing.T) {
	store := NewMemoryStore()
	sub := newTestSubmitter(store, nil)

	created, err := sub.Submit(context.Background(), draftOrder())
	require.NoError(t, err)

	require.Equal(t, NewID(fixedNow, 42), created.ID)
	require.Regexp(t, regexp.MustCompile(`^ORD-\d+-\d{3}$`), created.ID)
	require.Equal(t, fixedNow, created.CreatedAt)
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, PaymentStatusPending, created.PaymentStatus)
	require.Equal(t, "USD", created.Currency)

	stored, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created, stored)
}

func TestSubmitPaymentStatusFollowsMethod(t *testing.T) {
	cases := []struct {
		method PaymentMethod
		want   PaymentStatus
	}{
		{PaymentCashOnDelivery, PaymentStatusPending},
		{PaymentCreditCard, PaymentStatusProcessing},
		{PaymentBankTransfer, PaymentStatusProcessing},
	}
	for _, tc := range cases {
		t.Run(string(tc.method), func(t *testing.T) {
			sub := newTestSubmitter(NewMemoryStore(), nil)
			draft := draftOrder()
			draft.PaymentMethod = tc.method
			created, err := sub.Submit(context.Background(), draft)
			require.NoError(t, err)
			require.Equal(t, tc.want, created.PaymentStatus)
		})
	}
}

func TestSubmitKeepsExistingFields(t *testing.T) {
	sub := newTestSubmitter(NewMemoryStore(), nil)
	draft := draftOrder()
	draft.ID = "ORD-123-456"
	draft.Status = StatusProcessing
	draft.PaymentStatus = PaymentStatusPaid
	earlier := fixedNow.Add(-time.Hour)
	draft.CreatedAt = earlier

	created, err := sub.Submit(context.Background(), draft)
	require.NoError(t, err)
	require.Equal(t, "ORD-123-456", created.ID)
	require.Equal(t, StatusProcessing, created.Status)
	require.Equal(t, PaymentStatusPaid, created.PaymentStatus)
	require.Equal(t, earlier, created.CreatedAt)
}

func TestSubmitFailureReturnsSubmissionError(t *testing.T) {
	store := NewMemoryStore()
	store.CreateErr = errors.New("upstream down")
	captured := &capturingNotifier{}
	sub := newTestSubmitter(store, events.NewBus(zerolog.Nop(), captured))

	_, err := sub.Submit(context.Background(), draftOrder())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.Empty(t, captured.events)
}

func TestSubmitEmitsCreatedEvent(t *testing.T) {
	captured := &capturingNotifier{}
	sub := newTestSubmitter(NewMemoryStore(), events.NewBus(zerolog.Nop(), captured))

	created, err := sub.Submit(context.Background(), draftOrder())
	require.NoError(t, err)

	require.Len(t, captured.events, 1)
	require.Equal(t, events.TopicOrderCreated, captured.events[0].Topic)
	require.Contains(t, string(captured.events[0].Payload), created.ID)
	require.Contains(t, string(captured.events[0].Payload), "ada@example.com")
}

type capturingNotifier struct {
	events []events.Event
}

func (n *capturingNotifier) Notify(_ context.Context, ev events.Event) error {
	n.events = append(n.events, ev)
	return nil
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	_, err := ParseStatus("on_hold")
	require.Error(t, err)
	s, err := ParseStatus("shipped")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, s)
}

func TestParsePaymentMethodRejectsUnknown(t *testing.T) {
	_, err := ParsePaymentMethod("crypto")
	require.Error(t, err)
	m, err := ParsePaymentMethod("bank_transfer")
	require.NoError(t, err)
	require.Equal(t, PaymentBankTransfer, m)
}

func TestCanTransitionNeverRegresses(t *testing.T) {
	require.True(t, CanTransition(StatusPending, StatusProcessing))
	require.True(t, CanTransition(StatusProcessing, StatusDelivered))
	require.False(t, CanTransition(StatusShipped, StatusProcessing))
	require.False(t, CanTransition(StatusDelivered, StatusPending))
	require.False(t, CanTransition(StatusPending, StatusPending))
}
