package controller

import (
	"context"
	"fmt"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
)

// SprayService is the part of the backend the spray page uses.
type SprayService interface {
	RecommendSpray(ctx context.Context, in domain.SprayInput) (domain.SprayResult, error)
	WeatherSource
}

// SprayForm is the spray page state.
type SprayForm struct {
	Input    domain.SprayInput
	Snapshot Snapshot
}

// Spray judges whether conditions allow pesticide spraying.
type Spray struct {
	svc  SprayService
	deps Deps
	m    *machine[domain.SprayResult]
}

func NewSpray(svc SprayService, deps Deps) *Spray {
	return &Spray{svc: svc, deps: deps, m: newMachine[domain.SprayResult](domain.CapabilitySpray, deps)}
}

// Form returns a fresh form prefilled from the shared snapshot.
func (s *Spray) Form(ctx context.Context) SprayForm {
	snap, values := s.deps.readSnapshot(ctx)
	return SprayForm{Snapshot: snap, Input: sprayInputFrom(values, "")}
}

func sprayInputFrom(values map[string]string, timeOfDay string) domain.SprayInput {
	return domain.SprayInput{
		Temperature: values[relay.FieldTemperature],
		Humidity:    values[relay.FieldHumidity],
		WindSpeed:   values[relay.FieldWindSpeed],
		Rainfall:    values[relay.FieldRainfall],
		TimeOfDay:   timeOfDay,
	}
}

func (s *Spray) Last() Outcome[domain.SprayResult] { return s.m.Last() }

// Reset discards any result and rebuilds the form from the shared snapshot.
func (s *Spray) Reset(ctx context.Context) SprayForm {
	s.m.reset()
	return s.Form(ctx)
}

// UseCurrentWeather fetches conditions at a point, publishes them as the
// shared snapshot and returns the form filled from them. The time of day
// already typed is kept.
func (s *Spray) UseCurrentWeather(ctx context.Context, lat, lng float64, timeOfDay string) (SprayForm, error) {
	if msgs := checkCoordinates(lat, lng); len(msgs) > 0 {
		return SprayForm{}, fmt.Errorf("%s", msgs[0])
	}
	reading, err := s.svc.Weather(ctx, lat, lng)
	if err != nil {
		return SprayForm{}, fmt.Errorf("failed to fetch weather data, please enter manually: %w", err)
	}
	snap := reading.Snapshot(lat, lng, fmt.Sprintf("Current conditions at %.4f, %.4f", lat, lng))
	rec, err := s.deps.Relay.Publish(ctx, snap)
	if err != nil {
		return SprayForm{}, err
	}
	return SprayForm{
		Input:    sprayInputFrom(relay.Prefill(snap), timeOfDay),
		Snapshot: Snapshot{Record: rec, Present: true},
	}, nil
}

// Submit validates and sends the spray request.
func (s *Spray) Submit(ctx context.Context, in domain.SprayInput) Outcome[domain.SprayResult] {
	if msgs := check(in); len(msgs) > 0 {
		return s.m.reject(msgs)
	}
	return s.m.run(ctx,
		func(ctx context.Context) (domain.SprayResult, error) { return s.svc.RecommendSpray(ctx, in) },
		func() domain.SprayResult { return s.deps.Simulator.Spray(in) })
}
