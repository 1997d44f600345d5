package controller

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// ChatService is the part of the backend the assistant page uses.
type ChatService interface {
	SendChat(ctx context.Context, message string) (domain.ChatReply, error)
}

// ErrChatBusy rejects a message sent while the previous one awaits its reply.
var ErrChatBusy = errors.New("Please wait for the previous reply")

const chatUnavailable = "Sorry, I couldn't reach the assistant. Please try again."

// Chat keeps the assistant transcript.
type Chat struct {
	svc        ChatService
	deps       Deps
	transcript *domain.Transcript
	busy       atomic.Bool
	m          *machine[domain.ChatMessage]
}

// NewChat creates the assistant controller with a transcript that opens with
// the greeting.
func NewChat(svc ChatService, deps Deps) *Chat {
	return &Chat{
		svc:        svc,
		deps:       deps,
		transcript: domain.NewTranscript(),
		m:          newMachine[domain.ChatMessage](domain.CapabilityChat, deps),
	}
}

// Messages returns the transcript in order.
func (c *Chat) Messages() []domain.ChatMessage { return c.transcript.Messages() }

// Busy reports whether a reply is pending.
func (c *Chat) Busy() bool { return c.busy.Load() }

func (c *Chat) Last() Outcome[domain.ChatMessage] { return c.m.Last() }

// Send appends the user's message, asks the assistant and appends its reply.
// Blank messages and messages sent while a reply is pending are rejected.
// When the assistant is unreachable the degraded outcome carries no reply
// unless simulation mode supplies a labelled one.
func (c *Chat) Send(ctx context.Context, text string) Outcome[domain.ChatMessage] {
	if strings.TrimSpace(text) == "" {
		return c.m.reject([]string{"Message is required"})
	}
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome[domain.ChatMessage]{Status: StatusRejected, Errors: []string{ErrChatBusy.Error()}}
	}
	defer c.busy.Store(false)

	c.transcript.Append(domain.ChatMessage{Text: text, IsUser: true})

	out := c.m.run(ctx,
		func(ctx context.Context) (domain.ChatMessage, error) {
			reply, err := c.svc.SendChat(ctx, text)
			if err != nil {
				return domain.ChatMessage{}, err
			}
			return domain.ChatMessage{Text: reply.Text()}, nil
		},
		func() domain.ChatMessage {
			return domain.ChatMessage{Text: c.deps.Simulator.ChatReply(), Simulated: true}
		})

	switch {
	case out.HasResult:
		out.Result = c.transcript.Append(out.Result)
	case out.Status == StatusDegraded:
		c.transcript.Append(domain.ChatMessage{Text: chatUnavailable})
	}
	return out
}
