// Package relay shares the current environmental snapshot between pages.
//
// The dashboard publishes a weather reading for the selected location; each
// prediction page reads it once when mounted and prefills its overlapping
// form fields. The record lives in durable storage under a single key and is
// overwritten on every publish. It is never removed automatically.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// Record is a published snapshot plus its envelope.
type Record struct {
	// Version increases by one on every publish. Legacy records without an
	// envelope read as version 0.
	Version     int64
	PublishedAt time.Time
	Snapshot    domain.EnvironmentalSnapshot
}

type envelope struct {
	Version     int64      `json:"version"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	domain.EnvironmentalSnapshot
}

// Relay reads and writes the shared snapshot.
type Relay struct {
	store  domain.KeyValueStore
	maxAge time.Duration
	logger *slog.Logger
}

// New creates a relay over store. Records older than maxAge report as stale.
func New(store domain.KeyValueStore, maxAge time.Duration, logger *slog.Logger) *Relay {
	return &Relay{store: store, maxAge: maxAge, logger: logger}
}

// Publish overwrites the slot with snap, bumping the version.
func (r *Relay) Publish(ctx context.Context, snap domain.EnvironmentalSnapshot) (Record, error) {
	var next int64 = 1
	if prev, ok := r.Read(ctx); ok {
		next = prev.Version + 1
	}

	now := domain.Clock().Now().UTC()
	data, err := json.Marshal(envelope{Version: next, PublishedAt: &now, EnvironmentalSnapshot: snap})
	if err != nil {
		return Record{}, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.store.Set(ctx, domain.KeyWeather, string(data)); err != nil {
		return Record{}, fmt.Errorf("publish snapshot: %w", err)
	}

	r.logger.Debug("snapshot published", "version", next, "description", snap.Description)
	return Record{Version: next, PublishedAt: now, Snapshot: snap}, nil
}

// Read returns the last published record. A missing key, a storage failure and
// an unparseable value all read as absent.
func (r *Relay) Read(ctx context.Context) (Record, bool) {
	raw, ok, err := r.store.Get(ctx, domain.KeyWeather)
	if err != nil {
		r.logger.Debug("snapshot unreadable", "error", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	rec, err := decode(raw)
	if err != nil {
		r.logger.Debug("snapshot corrupted", "error", err)
		return Record{}, false
	}
	return rec, true
}

func decode(raw string) (Record, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Record{}, fmt.Errorf("snapshot is not a JSON object")
	}
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return Record{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version < 0 {
		return Record{}, fmt.Errorf("negative snapshot version %d", env.Version)
	}
	rec := Record{Version: env.Version, Snapshot: env.EnvironmentalSnapshot}
	if env.PublishedAt != nil {
		rec.PublishedAt = *env.PublishedAt
	}
	return rec, nil
}

// Clear removes the slot.
func (r *Relay) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, domain.KeyWeather); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Age returns how long ago rec was published. Legacy records have no
// timestamp and report zero.
func (r *Relay) Age(rec Record) time.Duration {
	if rec.PublishedAt.IsZero() {
		return 0
	}
	return domain.Clock().Since(rec.PublishedAt)
}

// IsStale reports whether rec is older than the configured maximum age.
// Records without a timestamp are always stale.
func (r *Relay) IsStale(rec Record) bool {
	if rec.PublishedAt.IsZero() {
		return true
	}
	return r.Age(rec) > r.maxAge
}

// Form field names shared by every page that accepts weather input.
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldRainfall    = "rainfall"
	FieldWindSpeed   = "windSpeed"
	FieldLat         = "lat"
	FieldLng         = "lng"
)

// Prefill maps the snapshot's overlapping fields to form values. Absent
// numbers are left out so the caller's form keeps its own value.
func Prefill(snap domain.EnvironmentalSnapshot) map[string]string {
	out := make(map[string]string, 6)
	set := func(field string, v *float64) {
		if v != nil {
			out[field] = domain.FormatFloat(v)
		}
	}
	set(FieldTemperature, snap.Temperature)
	set(FieldHumidity, snap.Humidity)
	set(FieldRainfall, snap.Rainfall)
	set(FieldWindSpeed, snap.WindSpeed)
	set(FieldLat, snap.Lat)
	set(FieldLng, snap.Lng)
	return out
}

// Merge copies prefilled values into form, leaving every other field alone.
func Merge(form map[string]string, snap domain.EnvironmentalSnapshot) map[string]string {
	if form == nil {
		form = make(map[string]string)
	}
	for k, v := range Prefill(snap) {
		form[k] = v
	}
	return form
}
