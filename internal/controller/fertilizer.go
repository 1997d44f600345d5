package controller

import (
	"context"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
)

// FertilizerService is the part of the backend the fertilizer page uses.
type FertilizerService interface {
	RecommendFertilizer(ctx context.Context, in domain.FertilizerInput) (domain.FertilizerResult, error)
}

// FertilizerForm is the fertilizer page state.
type FertilizerForm struct {
	Input    domain.FertilizerInput
	Snapshot Snapshot
}

// Fertilizer recommends a fertilizer for soil nutrient levels.
type Fertilizer struct {
	svc  FertilizerService
	deps Deps
	m    *machine[domain.FertilizerResult]
}

func NewFertilizer(svc FertilizerService, deps Deps) *Fertilizer {
	return &Fertilizer{svc: svc, deps: deps, m: newMachine[domain.FertilizerResult](domain.CapabilityFertilizer, deps)}
}

// Form returns a fresh form prefilled from the shared snapshot.
func (f *Fertilizer) Form(ctx context.Context) FertilizerForm {
	snap, values := f.deps.readSnapshot(ctx)
	return FertilizerForm{
		Snapshot: snap,
		Input: domain.FertilizerInput{
			Temperature: values[relay.FieldTemperature],
			Humidity:    values[relay.FieldHumidity],
			Rainfall:    values[relay.FieldRainfall],
			Lat:         values[relay.FieldLat],
			Lng:         values[relay.FieldLng],
		},
	}
}

func (f *Fertilizer) Last() Outcome[domain.FertilizerResult] { return f.m.Last() }

// Reset discards any result and rebuilds the form from the shared snapshot.
func (f *Fertilizer) Reset(ctx context.Context) FertilizerForm {
	f.m.reset()
	return f.Form(ctx)
}

// Submit validates and sends the fertilizer request.
func (f *Fertilizer) Submit(ctx context.Context, in domain.FertilizerInput) Outcome[domain.FertilizerResult] {
	if msgs := check(in); len(msgs) > 0 {
		return f.m.reject(msgs)
	}
	return f.m.run(ctx,
		func(ctx context.Context) (domain.FertilizerResult, error) { return f.svc.RecommendFertilizer(ctx, in) },
		func() domain.FertilizerResult { return f.deps.Simulator.Fertilizer(in) })
}
