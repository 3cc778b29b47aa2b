package mailer

import (
	"context"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a message and returns the provider message id used to
// correlate delivery-status webhooks. Implementations are injected so tests
// can substitute a fake.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
