package controller

import (
	"context"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
)

// StressService is the part of the backend the stress page uses.
type StressService interface {
	PredictStress(ctx context.Context, in domain.StressInput) (domain.StressResult, error)
}

// StressForm is the stress page state.
type StressForm struct {
	Input    domain.StressInput
	Snapshot Snapshot
}

// Stress scores environmental stress on a crop.
type Stress struct {
	svc  StressService
	deps Deps
	m    *machine[domain.StressResult]
}

func NewStress(svc StressService, deps Deps) *Stress {
	return &Stress{svc: svc, deps: deps, m: newMachine[domain.StressResult](domain.CapabilityStress, deps)}
}

// Form returns a fresh form prefilled from the shared snapshot.
func (s *Stress) Form(ctx context.Context) StressForm {
	snap, values := s.deps.readSnapshot(ctx)
	return StressForm{
		Snapshot: snap,
		Input: domain.StressInput{
			Temperature: values[relay.FieldTemperature],
			Humidity:    values[relay.FieldHumidity],
			Rainfall:    values[relay.FieldRainfall],
			WindSpeed:   values[relay.FieldWindSpeed],
			Lat:         values[relay.FieldLat],
			Lng:         values[relay.FieldLng],
		},
	}
}

func (s *Stress) Last() Outcome[domain.StressResult] { return s.m.Last() }

// Reset discards any result and rebuilds the form from the shared snapshot.
func (s *Stress) Reset(ctx context.Context) StressForm {
	s.m.reset()
	return s.Form(ctx)
}

// Submit validates and sends the stress request.
func (s *Stress) Submit(ctx context.Context, in domain.StressInput) Outcome[domain.StressResult] {
	if msgs := check(in); len(msgs) > 0 {
		return s.m.reject(msgs)
	}
	return s.m.run(ctx,
		func(ctx context.Context) (domain.StressResult, error) { return s.svc.PredictStress(ctx, in) },
		func() domain.StressResult { return s.deps.Simulator.Stress(in) })
}
