package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Kind classifies a notification.
type Kind string

const (
	KindInvitation Kind = "invitation"
	KindAssignment Kind = "assignment"
	KindStatus     Kind = "status"
)

// Message is a single notification addressed to one person.
type Message struct {
	Kind      Kind
	Recipient string // email address
	Subject   string
	Text      string
	Link      string
}

// Notifier delivers a Message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the structured log. It is the
// fallback channel when nothing else is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("kind", string(msg.Kind)).
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Str("link", msg.Link).
		Msg(msg.Text)
	return nil
}
