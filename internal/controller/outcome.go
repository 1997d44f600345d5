// Package controller holds one page controller per dashboard capability.
//
// Every controller follows the same cycle: build a form (prefilled from the
// shared environmental snapshot), validate it locally, call the backend and
// report an explicit Outcome. A failed call is never disguised as a result:
// it yields a degraded outcome with a reason, plus a placeholder result
// labelled as simulated only when simulation mode is on.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/backend"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
	"github.com/couchcryptid/agri-dashboard/internal/validate"
)

// Status is a controller's position in its submit cycle.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusDegraded   Status = "degraded"
	// StatusRejected means the input failed local checks and nothing was sent.
	StatusRejected Status = "rejected"
)

// Outcome is the result of one submit.
type Outcome[T any] struct {
	Status    Status
	Result    T
	HasResult bool
	// Reason explains a degraded outcome.
	Reason string
	// Errors lists the local validation failures of a rejected outcome.
	Errors    []string
	Simulated bool
	// Stale is set when a newer submit or a reset superseded this one. Stale
	// outcomes are not stored as the controller's last outcome.
	Stale   bool
	Elapsed time.Duration
}

// OK reports whether the outcome carries a real backend result.
func (o Outcome[T]) OK() bool { return o.Status == StatusSuccess }

// Deps are the collaborators shared by every controller.
type Deps struct {
	Relay     *relay.Relay
	Journal   domain.OutcomeJournal // optional
	Simulator *Simulator            // nil unless simulation mode is on
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

var formValidator = validate.New()

// check validates a form struct and returns the user-facing messages.
func check(form any) []string {
	if err := formValidator.Struct(form); err != nil {
		return validate.Messages(err)
	}
	return nil
}

// unsuccessfulError is a 2xx answer whose body reports failure.
type unsuccessfulError struct{ message string }

func (e *unsuccessfulError) Error() string { return e.message }

// Reason turns a failure into the text shown on a degraded banner.
func Reason(err error) string {
	var unsuccessful *unsuccessfulError
	if errors.As(err, &unsuccessful) {
		return unsuccessful.message
	}
	if msg, ok := backend.UserMessage(err); ok {
		return msg
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Kind == backend.KindDecode:
			return "The server sent a response that could not be read."
		case apiErr.Status != 0:
			return fmt.Sprintf("The server could not complete the request (status %d).", apiErr.Status)
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// machine runs the idle → submitting → success|degraded cycle for one
// capability. A generation counter discards results that arrive after a
// newer submit or a reset.
type machine[T any] struct {
	capability domain.Capability
	deps       Deps

	mu   sync.Mutex
	gen  uint64
	last Outcome[T]
}

func newMachine[T any](capability domain.Capability, deps Deps) *machine[T] {
	return &machine[T]{capability: capability, deps: deps, last: Outcome[T]{Status: StatusIdle}}
}

// Last returns the most recent non-stale outcome.
func (m *machine[T]) Last() Outcome[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *machine[T]) reset() {
	m.mu.Lock()
	m.gen++
	m.last = Outcome[T]{Status: StatusIdle}
	m.mu.Unlock()
}

func (m *machine[T]) reject(msgs []string) Outcome[T] {
	out := Outcome[T]{Status: StatusRejected, Errors: msgs}
	m.mu.Lock()
	m.gen++
	m.last = out
	m.mu.Unlock()
	return out
}

// run performs call and settles the outcome. simulate may be nil when the
// capability has no offline placeholder.
func (m *machine[T]) run(ctx context.Context, call func(context.Context) (T, error), simulate func() T) Outcome[T] {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.last = Outcome[T]{Status: StatusSubmitting}
	m.mu.Unlock()

	clock := domain.Clock()
	start := clock.Now()
	res, err := call(ctx)
	elapsed := clock.Since(start)

	out := Outcome[T]{Status: StatusSuccess, Result: res, HasResult: true, Elapsed: elapsed}
	if err != nil {
		out = Outcome[T]{Status: StatusDegraded, Reason: Reason(err), Elapsed: elapsed}
		m.deps.Logger.Warn("submit degraded", "capability", m.capability, "error", err)
		if m.deps.Simulator != nil && simulate != nil {
			out.Result, out.HasResult, out.Simulated = simulate(), true, true
			if m.deps.Metrics != nil {
				m.deps.Metrics.SimulatedResults.WithLabelValues(string(m.capability)).Inc()
			}
		}
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		out.Stale = true
		m.deps.Logger.Debug("discarding stale outcome", "capability", m.capability)
		if m.deps.Metrics != nil {
			m.deps.Metrics.StaleResults.WithLabelValues(string(m.capability)).Inc()
		}
		return out
	}
	m.last = out
	m.mu.Unlock()

	m.record(ctx, out.Status, out.Simulated, out.Reason, elapsed)
	return out
}

func (m *machine[T]) record(ctx context.Context, status Status, simulated bool, reason string, elapsed time.Duration) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.SubmitOutcomes.WithLabelValues(string(m.capability), string(status)).Inc()
	}
	if m.deps.Journal == nil {
		return
	}
	event := domain.OutcomeEvent{
		ID:         uuid.NewString(),
		Capability: m.capability,
		Status:     string(status),
		Simulated:  simulated,
		Reason:     reason,
		ElapsedMS:  elapsed.Milliseconds(),
		At:         domain.Clock().Now().UTC(),
	}
	if err := m.deps.Journal.Record(context.WithoutCancel(ctx), event); err != nil {
		m.deps.Logger.Warn("journal outcome", "capability", m.capability, "error", err)
	}
}

// Snapshot describes the shared environmental record a form was built from.
type Snapshot struct {
	Record  relay.Record
	Present bool
	Stale   bool
}

// readSnapshot loads the relay and returns its prefill values.
func (d Deps) readSnapshot(ctx context.Context) (Snapshot, map[string]string) {
	if d.Relay == nil {
		return Snapshot{}, map[string]string{}
	}
	rec, ok := d.Relay.Read(ctx)
	if !ok {
		return Snapshot{}, map[string]string{}
	}
	return Snapshot{Record: rec, Present: true, Stale: d.Relay.IsStale(rec)}, relay.Prefill(rec.Snapshot)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
