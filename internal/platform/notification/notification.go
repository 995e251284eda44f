// Package notification delivers supervisor-facing messages raised by the
// screening engine. Delivery is best-effort: the engine never rolls back a
// transition because a notification failed.
package notification

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Message is a single outbound notification.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Category  string `json:"category,omitempty"`
}

// Notifier sends messages to supervisors and staff.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the structured log. Used until a real
// delivery channel (email/SMS gateway) is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info().
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Str("category", msg.Category).
		Msg("notification")
	return nil
}

// MemoryNotifier records sent messages. Test helper.
type MemoryNotifier struct {
	mu   sync.Mutex
	sent []Message
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) Send(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

// Sent returns a copy of all recorded messages.
func (n *MemoryNotifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.sent))
	copy(out, n.sent)
	return out
}
