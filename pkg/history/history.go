// Package history is the ordered conversation log shared by the text and
// voice paths. Every mutation persists synchronously so an abrupt page
// termination never loses the most recent message.
package history

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Roles for conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one conversational turn. IDs are unique within a store
// instance; insertion order is the only ordering semantic.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Text    string `json:"text"`
	Partial bool   `json:"partial,omitempty"`
}

// NewMessageID returns a fresh monotonic message identifier.
func NewMessageID() string {
	return ulid.Make().String()
}

// NewMessage builds a message with a fresh ID.
func NewMessage(role, text string) Message {
	return Message{
		ID:   NewMessageID(),
		Role: role,
		Text: text,
	}
}

// Greeting returns the synthesized opening message for the given display
// language. It seeds empty stores and replaces history after Clear.
func Greeting(language string) Message {
	text := "¡Hola! Soy Sage, la asistente virtual de Sagepoint. ¿En qué puedo ayudarte hoy?"
	if language == "en" {
		text = "Hi! I'm Sage, Sagepoint's virtual assistant. How can I help you today?"
	}
	return Message{
		ID:   NewMessageID(),
		Role: RoleAssistant,
		Text: text,
	}
}

// Store is the durable ordered message log.
type Store interface {
	// Append adds a message and persists the full sequence before returning.
	Append(ctx context.Context, msg Message) error

	// All returns the messages in insertion order.
	All(ctx context.Context) ([]Message, error)

	// Clear erases durable storage and resets the log to a single greeting
	// in the active language.
	Clear(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
