// Package transport is the outbound messaging contract used by the dispatcher.
package transport

import (
	"context"
	"errors"
)

// ErrUnreachable marks a recipient that cannot receive messages at all
// (blocked the bot, chat deleted). Retrying does not help.
var ErrUnreachable = errors.New("recipient unreachable")

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

// Sender delivers one text message to one chat.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Closer is implemented by senders that hold resources.
type Closer interface {
	Close(ctx context.Context) error
}
