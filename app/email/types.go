package email

import (
	"context"
)

// Message is a fully composed email ready for delivery.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers composed messages. The digest pipeline depends on this
// interface so delivery can be mocked in tests.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
