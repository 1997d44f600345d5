package domain

import (
	"context"
	"time"
)

// OutcomeEvent describes one finished submit cycle of a page controller.
type OutcomeEvent struct {
	ID         string     `json:"id"`
	Capability Capability `json:"capability"`
	Status     string     `json:"status"`
	Simulated  bool       `json:"simulated"`
	Reason     string     `json:"reason,omitempty"`
	ElapsedMS  int64      `json:"elapsed_ms"`
	At         time.Time  `json:"at"`
}

// OutcomeJournal records submit outcomes somewhere durable.
type OutcomeJournal interface {
	Record(ctx context.Context, event OutcomeEvent) error
}
