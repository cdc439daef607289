// Package notifier delivers alerts over Telegram, e-mail or the log.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Message is a transport-neutral alert. An empty Recipient means the
// channel's configured default destination.
type Message struct {
	Subject   string
	Body      string
	Recipient string
}

// Notifier delivers messages over one channel.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Multi fans a message out to several notifiers. Every notifier is tried;
// failures are reported to OnError and returned joined.
type Multi struct {
	Notifiers []Notifier
	OnError   func(channel string, err error)
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m.Notifiers {
		if err := n.Send(ctx, msg); err != nil {
			if m.OnError != nil {
				m.OnError(n.Name(), err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes messages to the log. It is the fallback when no
// delivery channel is configured.
type LogNotifier struct {
	Log zerolog.Logger
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Send(_ context.Context, msg Message) error {
	l.Log.Info().
		Str("subject", msg.Subject).
		Str("recipient", msg.Recipient).
		Str("body", msg.Body).
		Msg("alert")
	return nil
}
