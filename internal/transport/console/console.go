// Package console is a sender that writes messages to the log instead of a chat.
package console

import (
	"context"
	"sync"
	"sync/atomic"

	"healthwatch/internal/transport"
	logx "healthwatch/pkg/logx"
)

type Message struct {
	To   transport.ChatTarget
	Text string
}

// Sender logs every message and keeps the last ones for inspection.
type Sender struct {
	log  logx.Logger
	next atomic.Int64

	mu   sync.Mutex
	sent []Message
	keep int
}

// New returns a console sender that remembers up to keep messages (0 = none).
func New(log logx.Logger, keep int) *Sender {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{log: log.With(logx.String("comp", "console")), keep: keep}
}

func (s *Sender) SendText(ctx context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return transport.MessageRef{}, err
	}
	id := s.next.Add(1)
	s.log.Info("message", logx.Int64("chat_id", to.ChatID), logx.String("text", text))
	if s.keep > 0 {
		s.mu.Lock()
		s.sent = append(s.sent, Message{To: to, Text: text})
		if len(s.sent) > s.keep {
			s.sent = s.sent[len(s.sent)-s.keep:]
		}
		s.mu.Unlock()
	}
	return transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: int(id)}, nil
}

// Sent returns a copy of the remembered messages, oldest first.
func (s *Sender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
