package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

type stubSearcher struct {
	places []domain.Place
	err    error
	got    string
}

func (s *stubSearcher) Search(_ context.Context, q string) ([]domain.Place, error) {
	s.got = q
	return s.places, s.err
}

func reading() func(lat, lon float64) (domain.WeatherReading, error) {
	return func(lat, lon float64) (domain.WeatherReading, error) {
		return domain.WeatherReading{Temp: domain.Float(31.5), Humidity: domain.Float(70), Wind: domain.Float(8.2)}, nil
	}
}

func TestDashboard_SelectPlacePublishesWithName(t *testing.T) {
	env := newTestEnv(t, false)
	d := NewDashboard(&fakeBackend{weather: reading()}, nil, env.deps)

	out := d.SelectPlace(context.Background(), domain.Place{Lat: 18.52, Lon: 73.85, DisplayName: "Pune, Maharashtra, India"})

	require.True(t, out.OK())
	assert.Equal(t, int64(1), out.Result.Version)
	cur := d.Current(context.Background())
	require.True(t, cur.Present)
	assert.Equal(t, "Pune, Maharashtra, India", cur.Record.Snapshot.Description)
	assert.InDelta(t, 0, *cur.Record.Snapshot.Rainfall, 0, "missing readings become 0")
}

func TestDashboard_FetchWeatherDescribesCoordinates(t *testing.T) {
	env := newTestEnv(t, false)
	d := NewDashboard(&fakeBackend{weather: reading()}, nil, env.deps)

	out := d.FetchWeather(context.Background(), 12.97159, 77.59456)

	require.True(t, out.OK())
	assert.Equal(t, "Current conditions at 12.9716, 77.5946", out.Result.Snapshot.Description)
}

func TestDashboard_FailureLeavesRelayUntouched(t *testing.T) {
	env := newTestEnv(t, false)
	prev := env.publish(t, puneSnapshot())
	d := NewDashboard(&fakeBackend{}, nil, env.deps)

	out := d.FetchWeather(context.Background(), 10, 10)

	assert.Equal(t, StatusDegraded, out.Status)
	assert.NotEmpty(t, out.Reason)
	rec, ok := env.deps.Relay.Read(context.Background())
	require.True(t, ok)
	assert.Equal(t, prev, rec)
}

func TestDashboard_SimulatedFailurePublishesDemoData(t *testing.T) {
	env := newTestEnv(t, true)
	d := NewDashboard(&fakeBackend{}, nil, env.deps)

	out := d.FetchWeather(context.Background(), 10, 20)

	require.True(t, out.Simulated)
	rec, ok := env.deps.Relay.Read(context.Background())
	require.True(t, ok)
	assert.Equal(t, DemoDescription, rec.Snapshot.Description)
	assert.InDelta(t, 28, *rec.Snapshot.Temperature, 0)
	assert.InDelta(t, 12, *rec.Snapshot.WindSpeed, 0)
	assert.InDelta(t, 10, *rec.Snapshot.Lat, 0)
}

func TestDashboard_RejectsInvalidCoordinates(t *testing.T) {
	env := newTestEnv(t, true)
	fb := &fakeBackend{weather: reading()}
	d := NewDashboard(fb, nil, env.deps)

	out := d.FetchWeather(context.Background(), 95, 200)

	assert.Equal(t, StatusRejected, out.Status)
	assert.Len(t, out.Errors, 2)
	assert.Zero(t, fb.count("weather"))
}

func TestDashboard_Search(t *testing.T) {
	env := newTestEnv(t, false)
	s := &stubSearcher{places: []domain.Place{{Lat: 1, Lon: 2, DisplayName: "Nashik"}}}
	d := NewDashboard(&fakeBackend{}, s, env.deps)

	places, err := d.Search(context.Background(), "Nashik")

	require.NoError(t, err)
	assert.Len(t, places, 1)
	assert.Equal(t, "Nashik", s.got)

	s.err = errors.New("rate limited")
	_, err = d.Search(context.Background(), "Nashik")
	require.ErrorContains(t, err, "rate limited")
}

func TestDashboard_SearchNotConfigured(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := NewDashboard(&fakeBackend{}, nil, env.deps).Search(context.Background(), "Pune")

	require.Error(t, err)
}

func TestDashboard_Clear(t *testing.T) {
	env := newTestEnv(t, false)
	env.publish(t, puneSnapshot())
	d := NewDashboard(&fakeBackend{}, nil, env.deps)

	require.NoError(t, d.Clear(context.Background()))

	assert.False(t, d.Current(context.Background()).Present)
	assert.Equal(t, StatusIdle, d.Last().Status)
}
