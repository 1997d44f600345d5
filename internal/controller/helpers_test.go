package controller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/kvstore"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
)

var testNow = time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)

type memJournal struct {
	mu     sync.Mutex
	events []domain.OutcomeEvent
}

func (j *memJournal) Record(_ context.Context, e domain.OutcomeEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

func (j *memJournal) all() []domain.OutcomeEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.OutcomeEvent(nil), j.events...)
}

type testEnv struct {
	deps    Deps
	store   *kvstore.Memory
	journal *memJournal
	metrics *observability.Metrics
	clock   *clockwork.FakeClock
}

func newTestEnv(t *testing.T, simulate bool) *testEnv {
	t.Helper()
	clk := clockwork.NewFakeClockAt(testNow)
	domain.SetClock(clk)
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.NewMemory()
	env := &testEnv{
		store:   store,
		journal: &memJournal{},
		metrics: observability.NewMetricsForTesting(),
		clock:   clk,
	}
	env.deps = Deps{
		Relay:   relay.New(store, 6*time.Hour, logger),
		Journal: env.journal,
		Logger:  logger,
		Metrics: env.metrics,
	}
	if simulate {
		env.deps.Simulator = NewSimulator(42)
	}
	return env
}

func (e *testEnv) publish(t *testing.T, snap domain.EnvironmentalSnapshot) relay.Record {
	t.Helper()
	rec, err := e.deps.Relay.Publish(context.Background(), snap)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return rec
}

func puneSnapshot() domain.EnvironmentalSnapshot {
	return domain.EnvironmentalSnapshot{
		Temperature: domain.Float(31.5),
		Humidity:    domain.Float(70),
		Rainfall:    domain.Float(0),
		WindSpeed:   domain.Float(8.2),
		Lat:         domain.Float(18.52),
		Lng:         domain.Float(73.85),
		Description: "Pune, Maharashtra, India",
	}
}

// fakeBackend implements every page's service interface. Unset hooks fail
// the call with errOffline.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	weather      func(lat, lon float64) (domain.WeatherReading, error)
	crop         func(domain.CropInput) (domain.CropResult, error)
	cropLocation func(domain.CropLocationInput) (domain.CropResult, error)
	locationData func(lat, lon float64) (domain.LocationData, error)
	yield        func(domain.YieldInput) (domain.YieldResult, error)
	stress       func(domain.StressInput) (domain.StressResult, error)
	fertilizer   func(domain.FertilizerInput) (domain.FertilizerResult, error)
	spray        func(domain.SprayInput) (domain.SprayResult, error)
	fruit        func(domain.Image) (domain.DiseaseResult, error)
	leaf         func(domain.Image) (domain.DiseaseResult, error)
	chat         func(string) (domain.ChatReply, error)
}

type offlineError struct{}

func (offlineError) Error() string { return "dial tcp 127.0.0.1:8000: connect: connection refused" }

var errOffline error = offlineError{}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func call[I, O any](f *fakeBackend, name string, fn func(I) (O, error), in I) (O, error) {
	f.hit(name)
	if fn == nil {
		var zero O
		return zero, errOffline
	}
	return fn(in)
}

func (f *fakeBackend) Weather(_ context.Context, lat, lon float64) (domain.WeatherReading, error) {
	f.hit("weather")
	if f.weather == nil {
		return domain.WeatherReading{}, errOffline
	}
	return f.weather(lat, lon)
}

func (f *fakeBackend) LocationData(_ context.Context, lat, lon float64) (domain.LocationData, error) {
	f.hit("location")
	if f.locationData == nil {
		return domain.LocationData{}, errOffline
	}
	return f.locationData(lat, lon)
}

func (f *fakeBackend) RecommendCrop(_ context.Context, in domain.CropInput) (domain.CropResult, error) {
	return call(f, "crop", f.crop, in)
}

func (f *fakeBackend) RecommendCropByLocation(_ context.Context, in domain.CropLocationInput) (domain.CropResult, error) {
	return call(f, "cropLocation", f.cropLocation, in)
}

func (f *fakeBackend) PredictYield(_ context.Context, in domain.YieldInput) (domain.YieldResult, error) {
	return call(f, "yield", f.yield, in)
}

func (f *fakeBackend) PredictStress(_ context.Context, in domain.StressInput) (domain.StressResult, error) {
	return call(f, "stress", f.stress, in)
}

func (f *fakeBackend) RecommendFertilizer(_ context.Context, in domain.FertilizerInput) (domain.FertilizerResult, error) {
	return call(f, "fertilizer", f.fertilizer, in)
}

func (f *fakeBackend) RecommendSpray(_ context.Context, in domain.SprayInput) (domain.SprayResult, error) {
	return call(f, "spray", f.spray, in)
}

func (f *fakeBackend) ClassifyFruit(_ context.Context, img domain.Image) (domain.DiseaseResult, error) {
	return call(f, "fruit", f.fruit, img)
}

func (f *fakeBackend) DetectLeaf(_ context.Context, img domain.Image) (domain.DiseaseResult, error) {
	return call(f, "leaf", f.leaf, img)
}

func (f *fakeBackend) SendChat(_ context.Context, message string) (domain.ChatReply, error) {
	return call(f, "chat", f.chat, message)
}
