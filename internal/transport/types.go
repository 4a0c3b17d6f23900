package transport

import (
	"context"
	"errors"
)

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	FromName     string
	Text         string
	IsGroup      bool
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Member is a channel member visible to the gateway at session start.
type Member struct {
	ID    int64
	Name  string
	IsBot bool
}

// ErrDeliveryForbidden reports that a private message could not be delivered
// because the participant blocked the bot or never opened a private chat.
// Callers fall back to a public reminder.
var ErrDeliveryForbidden = errors.New("private delivery forbidden")

// IsDeliveryForbidden reports whether err is, or wraps, ErrDeliveryForbidden.
func IsDeliveryForbidden(err error) bool {
	return errors.Is(err, ErrDeliveryForbidden)
}

// Gateway is the narrow chat-platform surface the competition core calls
// through. Everything here is fire-and-forget from the core's perspective:
// the core never waits on delivery confirmation to advance its own state.
type Gateway interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// Announce posts a message to a channel.
	Announce(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)

	// DirectMessage sends a private message to a participant.
	// Returns ErrDeliveryForbidden when the platform refuses private delivery.
	DirectMessage(ctx context.Context, userID int64, text string, opt *SendOptions) error

	// DeleteMessage removes a previously posted message (best-effort).
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// LockChannel restricts posting by regular members while a session runs;
	// UnlockChannel restores normal posting.
	LockChannel(ctx context.Context, chatID int64) error
	UnlockChannel(ctx context.Context, chatID int64) error

	// ChannelMembers lists the members the platform exposes for a channel.
	// Telegram only enumerates administrators for large groups, so the list
	// may be partial; the core registers whatever it gets.
	ChannelMembers(ctx context.Context, chatID int64) ([]Member, error)

	// IsChannelAdmin reports whether a user may manage sessions in a channel.
	IsChannelAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}
