package mailer

import (
	"context"
	"fmt"
	"log"
	"time"
)

// StubSender logs instead of sending; used in development when no provider
// key is configured.
type StubSender struct{}

func (s *StubSender) Send(ctx context.Context, msg Message) (string, error) {
	id := fmt.Sprintf("stub_%d", time.Now().UnixNano())
	log.Printf("[mailer] stub send to=%s subject=%q id=%s", msg.To, msg.Subject, id)
	return id, nil
}
