package domain

import (
	"sync"
	"time"
)

// Greeting is the first assistant message of every transcript.
const Greeting = "Hello! I'm your Smart Agri AI Assistant. I can help you with:\n\n" +
	"• Crop selection and recommendations\n" +
	"• Soil management tips\n" +
	"• Pest and disease identification\n" +
	"• Weather-related advice\n" +
	"• Fertilizer recommendations\n" +
	"• General farming queries\n\n" +
	"How can I assist you today?"

// ChatMessage is one transcript entry.
type ChatMessage struct {
	Text      string
	IsUser    bool
	Simulated bool
	Timestamp time.Time
}

// Transcript is an append-only, in-memory conversation.
type Transcript struct {
	mu       sync.RWMutex
	messages []ChatMessage
}

// NewTranscript returns a transcript seeded with the assistant greeting.
func NewTranscript() *Transcript {
	return &Transcript{
		messages: []ChatMessage{{Text: Greeting, Timestamp: clock.Now()}},
	}
}

// Append adds a message stamped with the current time.
func (t *Transcript) Append(m ChatMessage) ChatMessage {
	if m.Timestamp.IsZero() {
		m.Timestamp = clock.Now()
	}
	t.mu.Lock()
	t.messages = append(t.messages, m)
	t.mu.Unlock()
	return m
}

// Messages returns a copy of the transcript in order.
func (t *Transcript) Messages() []ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
