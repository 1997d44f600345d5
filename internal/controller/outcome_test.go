package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/backend"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// receive fails the test instead of hanging when ch stays silent.
func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting on channel")
		var zero T
		return zero
	}
}

// hold blocks a fake backend call until release closes or the wait times out.
func hold(release <-chan struct{}) {
	select {
	case <-release:
	case <-time.After(time.Second):
	}
}

func validStress() domain.StressInput {
	return domain.StressInput{SoilMoisture: "0.15", Temperature: "38", Humidity: "25", Rainfall: "0", WindSpeed: "12", ManualWeather: true}
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unsuccessful", &unsuccessfulError{message: "Model not loaded"}, "Model not loaded"},
		{"backend detail", &backend.APIError{Kind: backend.KindBusiness, Status: 500, Detail: "Weather API key missing"}, "Weather API key missing"},
		{"decode", &backend.APIError{Kind: backend.KindDecode, Status: 200, Err: errors.New("bad json")}, "The server sent a response that could not be read."},
		{"status only", &backend.APIError{Kind: backend.KindBusiness, Status: 502}, "The server could not complete the request (status 502)."},
		{"wrapped unsuccessful", fmt.Errorf("crop: %w", &unsuccessfulError{message: "No data"}), "No data"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.err))
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	env := newTestEnv(t, false)
	fb := &fakeBackend{stress: func(in domain.StressInput) (domain.StressResult, error) {
		return domain.StressResult{Level: "High", Factors: []string{"Extreme temperature"}}, nil
	}}
	s := NewStress(fb, env.deps)

	out := s.Submit(context.Background(), validStress())

	require.True(t, out.OK())
	assert.True(t, out.HasResult)
	assert.False(t, out.Simulated)
	assert.Equal(t, "High", out.Result.Level)
	assert.Equal(t, out, s.Last())

	events := env.journal.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.CapabilityStress, events[0].Capability)
	assert.Equal(t, string(StatusSuccess), events[0].Status)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, testNow, events[0].At)
	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.SubmitOutcomes.WithLabelValues("stress", "success")), 0)
}

func TestSubmit_FailureIsDegradedWithoutSimulation(t *testing.T) {
	env := newTestEnv(t, false)
	fb := &fakeBackend{}
	s := NewStress(fb, env.deps)

	out := s.Submit(context.Background(), validStress())

	assert.Equal(t, StatusDegraded, out.Status)
	assert.False(t, out.HasResult)
	assert.False(t, out.Simulated)
	assert.Equal(t, domain.StressResult{}, out.Result)
	assert.Contains(t, out.Reason, "connection refused")
	assert.Equal(t, 1, fb.count("stress"))
	assert.InDelta(t, 0, testutil.ToFloat64(env.metrics.SimulatedResults.WithLabelValues("stress")), 0)
}

func TestSubmit_FailureIsLabelledWhenSimulated(t *testing.T) {
	env := newTestEnv(t, true)
	s := NewStress(&fakeBackend{}, env.deps)

	out := s.Submit(context.Background(), validStress())

	assert.Equal(t, StatusDegraded, out.Status)
	require.True(t, out.HasResult)
	assert.True(t, out.Simulated)
	assert.NotEmpty(t, out.Reason)
	assert.Equal(t, "High", out.Result.Level)
	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.SimulatedResults.WithLabelValues("stress")), 0)

	events := env.journal.all()
	require.Len(t, events, 1)
	assert.True(t, events[0].Simulated)
	assert.Equal(t, string(StatusDegraded), events[0].Status)
}

func TestSubmit_InvalidInputIsRejectedWithoutCall(t *testing.T) {
	env := newTestEnv(t, true)
	fb := &fakeBackend{}
	s := NewStress(fb, env.deps)

	out := s.Submit(context.Background(), domain.StressInput{ManualWeather: true, Temperature: "hot"})

	assert.Equal(t, StatusRejected, out.Status)
	assert.NotEmpty(t, out.Errors)
	assert.False(t, out.HasResult)
	assert.Zero(t, fb.count("stress"))
	assert.Empty(t, env.journal.all())
}

func TestSubmit_ResultAfterResetIsDiscarded(t *testing.T) {
	env := newTestEnv(t, false)
	started := make(chan struct{})
	release := make(chan struct{})
	fb := &fakeBackend{stress: func(domain.StressInput) (domain.StressResult, error) {
		close(started)
		hold(release)
		return domain.StressResult{Level: "Low"}, nil
	}}
	s := NewStress(fb, env.deps)

	done := make(chan Outcome[domain.StressResult], 1)
	go func() { done <- s.Submit(context.Background(), validStress()) }()

	receive(t, started)
	assert.Equal(t, StatusSubmitting, s.Last().Status)
	s.Reset(context.Background())
	close(release)
	out := receive(t, done)

	assert.True(t, out.Stale)
	assert.Equal(t, StatusIdle, s.Last().Status)
	assert.Empty(t, env.journal.all())
	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.StaleResults.WithLabelValues("stress")), 0)
}

func TestSubmit_OlderSubmitDoesNotOverwriteNewer(t *testing.T) {
	env := newTestEnv(t, false)
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	fb := &fakeBackend{stress: func(in domain.StressInput) (domain.StressResult, error) {
		if first {
			first = false
			close(started)
			hold(release)
			return domain.StressResult{Level: "old"}, nil
		}
		return domain.StressResult{Level: "new"}, nil
	}}
	s := NewStress(fb, env.deps)

	done := make(chan Outcome[domain.StressResult], 1)
	go func() { done <- s.Submit(context.Background(), validStress()) }()
	receive(t, started)

	newer := s.Submit(context.Background(), validStress())
	close(release)
	older := receive(t, done)

	assert.False(t, newer.Stale)
	assert.True(t, older.Stale)
	assert.Equal(t, "new", s.Last().Result.Level)
}
