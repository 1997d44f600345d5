// Package search coordinates search-as-you-type place lookups.
//
// A Debouncer coalesces a burst of keystrokes into one geocoder call for the
// last query typed. Results are delivered in typing order: when an older call
// resolves after a newer one has already been delivered, the older result is
// dropped.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
)

// MinQueryLength is the shortest query, in runes, that triggers a search.
const MinQueryLength = 3

var (
	// ErrSuperseded is delivered to a caller whose query was replaced by a
	// newer one before its results could be shown.
	ErrSuperseded = errors.New("search superseded by a newer query")
	// ErrClosed is delivered to callers still waiting when the Debouncer closes.
	ErrClosed = errors.New("search debouncer closed")
)

// Result is the outcome of one debounced query.
type Result struct {
	Query  string
	Places []domain.Place
	Err    error
}

type waiter struct {
	seq uint64
	ch  chan Result
}

// Debouncer delays searches until typing pauses for the configured window.
type Debouncer struct {
	searcher domain.PlaceSearcher
	delay    time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	seq           uint64
	query         string
	timer         clockwork.Timer
	pending       []waiter // waiting for the timer that has not fired yet
	lastDelivered uint64
	closed        bool
}

// NewDebouncer creates a Debouncer. A nil clock uses real time.
func NewDebouncer(searcher domain.PlaceSearcher, delay time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		searcher: searcher,
		delay:    delay,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Type records a keystroke. The returned channel receives exactly one Result:
// the places for query, ErrSuperseded if another query replaced it, or
// ErrClosed. Queries shorter than MinQueryLength resolve at once with no
// places and cancel any pending search.
func (d *Debouncer) Type(query string) <-chan Result {
	query = strings.TrimSpace(query)
	ch := make(chan Result, 1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		ch <- Result{Query: query, Err: ErrClosed}
		return ch
	}

	d.seq++
	d.supersedePendingLocked()

	if utf8.RuneCountInString(query) < MinQueryLength {
		// Anything still in flight is older than this keystroke.
		d.lastDelivered = d.seq
		ch <- Result{Query: query}
		return ch
	}

	d.query = query
	d.pending = append(d.pending, waiter{seq: d.seq, ch: ch})
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(seq) })
	return ch
}

// Search types query and blocks until its result is known or ctx is done.
func (d *Debouncer) Search(ctx context.Context, query string) ([]domain.Place, error) {
	select {
	case res := <-d.Type(query):
		return res.Places, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the pending timer, cancels any in-flight search and waits for
// it to return.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	for _, w := range d.pending {
		w.ch <- Result{Query: d.query, Err: ErrClosed}
	}
	d.pending = nil
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

func (d *Debouncer) supersedePendingLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	for _, w := range d.pending {
		w.ch <- Result{Query: d.query, Err: ErrSuperseded}
		if d.metrics != nil {
			d.metrics.SearchCoalesced.Inc()
		}
	}
	d.pending = nil
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A timer stopped too late can still fire; only the newest keystroke searches.
	if d.closed || seq != d.seq || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	query, waiters := d.query, d.pending
	d.pending = nil
	d.timer = nil
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()

	places, err := d.searcher.Search(d.ctx, query)

	d.mu.Lock()
	defer d.mu.Unlock()
	res := Result{Query: query, Places: places, Err: err}
	if seq < d.lastDelivered {
		d.logger.Debug("discarding stale search result", "query", query)
		res = Result{Query: query, Err: ErrSuperseded}
	} else {
		d.lastDelivered = seq
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("place search failed", "query", query, "error", err)
	}
	for _, w := range waiters {
		w.ch <- res
	}
}
