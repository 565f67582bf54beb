// Package transport defines the platform-neutral event model and the
// contract every messaging transport implements, plus the manager that
// routes outbound sends to the transport owning a platform.
package transport

import (
	"context"
	"time"
)

// Platform identifiers for the built-in transports.
const (
	PlatformWhatsApp = "whatsapp"
	PlatformIMessage = "imessage"
	PlatformDiscord  = "discord"
)

// QuotedMessage carries reply context when a message quotes an earlier one.
type QuotedMessage struct {
	SenderID string `json:"senderId"`
	Text     string `json:"text,omitempty"`
}

// Event is the unified message record emitted by every transport. Fields
// set by the transport are never mutated downstream.
type Event struct {
	ChatID     string
	SenderID   string
	SenderName string
	Text       string
	Timestamp  time.Time
	Platform   string
	IsGroup    bool
	IsSelf     bool
	Quoted     *QuotedMessage
}

// IsDM reports whether the event belongs to a direct conversation.
func (e Event) IsDM() bool { return !e.IsGroup }

// Handler receives inbound events. Transports invoke it synchronously from
// their receive loop, so events from one transport arrive in order.
type Handler func(ctx context.Context, ev Event)

// Transport is a pluggable source/sink for one messaging platform.
type Transport interface {
	// Platform returns the platform tag this transport handles.
	Platform() string

	// Start begins producing events. It blocks until the transport shuts
	// down: a nil return means a clean stop, a non-nil return means the
	// transport failed and is now offline.
	Start(ctx context.Context) error

	// Stop tears the transport down gracefully. Idempotent.
	Stop(ctx context.Context) error

	// Send delivers text to a chat on this platform.
	Send(ctx context.Context, chatID, text string) error

	// SetHandler registers the inbound event callback. Must be called
	// before Start.
	SetHandler(h Handler)

	// IsRunning reports whether the transport is currently active.
	IsRunning() bool
}
