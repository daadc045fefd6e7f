package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shopease/storefront/internal/common"
	"github.com/shopease/storefront/internal/events"
	"github.com/shopease/storefront/internal/queue"
)

func newNotifier(t *testing.T) (*EmailNotifier, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &EmailNotifier{
		Queue:   queue.Enqueuer{R: client, Prefix: "storefront"},
		Enabled: true,
		Log:     zerolog.Nop(),
	}, client
}

func poppedMessage(t *testing.T, client *redis.Client) Message {
	t.Helper()
	res, err := client.ZPopMin(context.Background(), "storefront:jobs:email", 1).Result()
	require.NoError(t, err)
	require.Len(t, res, 1)

	var job struct {
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(res[0].Member.(string)), &job))
	var msg Message
	require.NoError(t, json.Unmarshal(job.Payload, &msg))
	return msg
}

func createdEvent(t *testing.T) events.Event {
	t.Helper()
	payload, err := json.Marshal(events.OrderCreated{
		OrderID:       "ORD-1-001",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		TotalAmount:   1155_00,
		Currency:      "USD",
	})
	require.NoError(t, err)
	return events.Event{ID: "ev-1", Topic: events.TopicOrderCreated, Payload: payload}
}

func TestNotifyEnqueuesOrderCreatedEmail(t *testing.T) {
	n, client := newNotifier(t)

	require.NoError(t, n.Notify(context.Background(), createdEvent(t)))

	msg := poppedMessage(t, client)
	require.Equal(t, "ada@example.com", msg.To)
	require.Equal(t, "Order ORD-1-001 Confirmation", msg.Subject)
	require.Contains(t, msg.Body, "Hi Ada Lovelace")
	require.Contains(t, msg.Body, "USD 1155.00")
}

func TestNotifyEnqueuesStatusChangedEmail(t *testing.T) {
	n, client := newNotifier(t)

	payload, err := json.Marshal(events.OrderStatusChanged{
		OrderID:       "ORD-1-001",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		OldStatus:     "processing",
		NewStatus:     "shipped",
	})
	require.NoError(t, err)
	ev := events.Event{ID: "ev-2", Topic: events.TopicOrderStatusChanged, Payload: payload}

	require.NoError(t, n.Notify(context.Background(), ev))

	msg := poppedMessage(t, client)
	require.Equal(t, "Order ORD-1-001 Status Update - Shipped", msg.Subject)
	require.Contains(t, msg.Body, "shipped and is on its way")
}

func TestNotifyDeduplicatesByEventID(t *testing.T) {
	n, client := newNotifier(t)
	ev := createdEvent(t)

	require.NoError(t, n.Notify(context.Background(), ev))
	require.NoError(t, n.Notify(context.Background(), ev))

	count, err := client.ZCard(context.Background(), "storefront:jobs:email").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestNotifyDisabledIsNoop(t *testing.T) {
	n, client := newNotifier(t)
	n.Enabled = false

	require.NoError(t, n.Notify(context.Background(), createdEvent(t)))

	count, err := client.ZCard(context.Background(), "storefront:jobs:email").Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestMailerDelivers(t *testing.T) {
	sender := &common.InMemoryEmail{}
	mailer := &Mailer{Sender: sender, From: "orders@shopease.example", Log: zerolog.Nop()}

	payload, err := json.Marshal(Message{To: "ada@example.com", Subject: "Hello", Body: "Hi"})
	require.NoError(t, err)

	require.NoError(t, mailer.Deliver(context.Background(), queue.Job{Kind: JobKindEmail, Payload: payload}))

	outbox := sender.Outbox()
	require.Len(t, outbox, 1)
	require.Equal(t, "orders@shopease.example", outbox[0].From)
	require.Equal(t, "ada@example.com", outbox[0].To)
}

func TestMailerDropsUndecodableJob(t *testing.T) {
	mailer := &Mailer{Sender: &common.InMemoryEmail{}, Log: zerolog.Nop()}
	err := mailer.Deliver(context.Background(), queue.Job{Kind: JobKindEmail, Payload: json.RawMessage("{bad")})
	require.NoError(t, err)
}
