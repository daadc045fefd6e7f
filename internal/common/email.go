package common

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender delivers a rendered plain-text email.
type EmailSender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Email is a captured outgoing message.
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// InMemoryEmail records messages instead of sending them. Tests inspect the
// outbox.
type InMemoryEmail struct {
	mu     sync.Mutex
	outbox []Email
}

func (m *InMemoryEmail) Send(_ context.Context, from, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, Email{From: from, To: to, Subject: subject, Body: body})
	return nil
}

// Outbox returns a copy of the captured messages.
func (m *InMemoryEmail) Outbox() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.outbox))
	copy(out, m.outbox)
	return out
}

// LogEmailSender writes outgoing mail to the log. It stands in for a real
// provider in development, where delivery details still need to be visible.
type LogEmailSender struct {
	Log zerolog.Logger
}

func (s LogEmailSender) Send(_ context.Context, from, to, subject, _ string) error {
	s.Log.Info().Str("from", from).Str("to", to).Str("subject", subject).Msg("email (log delivery)")
	return nil
}
