package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/events"
	"github.com/shopease/storefront/internal/order"
	"github.com/shopease/storefront/internal/queue"
)

// JobKindEmail is the queue kind consumed by the delivery worker.
const JobKindEmail = "email"

// Message is the rendered email carried through the queue.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailNotifier turns order events into queued email deliveries. It
// implements events.Notifier; enqueue failures surface to the bus, which
// logs and moves on.
type EmailNotifier struct {
	Queue   queue.Enqueuer
	Enabled bool
	Log     zerolog.Logger
}

func (n *EmailNotifier) Notify(ctx context.Context, ev events.Event) error {
	if !n.Enabled {
		return nil
	}
	var msg Message
	switch ev.Topic {
	case events.TopicOrderCreated:
		var payload events.OrderCreated
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("notify: decode %s: %w", ev.Topic, err)
		}
		msg = renderOrderCreated(payload)
	case events.TopicOrderStatusChanged:
		var payload events.OrderStatusChanged
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("notify: decode %s: %w", ev.Topic, err)
		}
		msg = renderStatusChanged(payload)
	default:
		return nil
	}
	if msg.To == "" {
		n.Log.Debug().Str("topic", ev.Topic).Msg("event has no recipient, skipping email")
		return nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}
	return n.Queue.Enqueue(ctx, queue.Job{
		Kind:    JobKindEmail,
		Payload: raw,
		Dedup:   ev.ID,
	})
}

// Mailer is the worker-side handler delivering queued messages.
type Mailer struct {
	Sender common.EmailSender
	From   string
	Log    zerolog.Logger
}

// Deliver sends one queued message. Returning an error triggers the queue's
// retry, then the dead letter list.
func (m *Mailer) Deliver(ctx context.Context, job queue.Job) error {
	var msg Message
	if err := json.Unmarshal(job.Payload, &msg); err != nil {
		m.Log.Error().Err(err).Msg("dropping undecodable email job")
		return nil
	}
	if err := m.Sender.Send(ctx, m.From, msg.To, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("notify: send to %s: %w", msg.To, err)
	}
	m.Log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivered")
	return nil
}

func renderOrderCreated(p events.OrderCreated) Message {
	name := p.CustomerName
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Thank you for shopping with ShopEase! Your order %s has been placed and is currently pending.\n\n", p.OrderID)
	fmt.Fprintf(&b, "Order total: %s\n\n", formatAmount(p.TotalAmount, p.Currency))
	b.WriteString("We will email you again as soon as your order status changes.\n\nThe ShopEase Team\n")
	return Message{
		To:      p.CustomerEmail,
		Subject: fmt.Sprintf("Order %s Confirmation", p.OrderID),
		Body:    b.String(),
	}
}

// statusLines mirror the storefront's customer-facing status wording.
var statusLines = map[order.Status]string{
	order.StatusPending:    "Your order has been placed and is currently pending.",
	order.StatusProcessing: "Your order is now being processed and prepared for shipping.",
	order.StatusShipped:    "Your order has been shipped and is on its way to you!",
	order.StatusDelivered:  "Your order has been delivered successfully!",
	order.StatusCancelled:  "Your order has been cancelled as requested.",
}

func renderStatusChanged(p events.OrderStatusChanged) Message {
	name := p.CustomerName
	if name == "" {
		name = "there"
	}
	line, ok := statusLines[order.Status(p.NewStatus)]
	if !ok {
		line = "Your order status has been updated."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "%s\n\n", line)
	fmt.Fprintf(&b, "Order: %s\nStatus: %s\n\nThe ShopEase Team\n", p.OrderID, titleCase(p.NewStatus))
	return Message{
		To:      p.CustomerEmail,
		Subject: fmt.Sprintf("Order %s Status Update - %s", p.OrderID, titleCase(p.NewStatus)),
		Body:    b.String(),
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatAmount(minor int64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %d.%02d", currency, minor/100, minor%100)
}
