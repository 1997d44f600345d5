package controller

import (
	"context"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
)

// YieldService is the part of the backend the yield page uses.
type YieldService interface {
	PredictYield(ctx context.Context, in domain.YieldInput) (domain.YieldResult, error)
}

// YieldForm is the yield page state.
type YieldForm struct {
	Input    domain.YieldInput
	Snapshot Snapshot
}

// Yield estimates harvest for a field.
type Yield struct {
	svc  YieldService
	deps Deps
	m    *machine[domain.YieldResult]
}

func NewYield(svc YieldService, deps Deps) *Yield {
	return &Yield{svc: svc, deps: deps, m: newMachine[domain.YieldResult](domain.CapabilityYield, deps)}
}

// Form returns a fresh form prefilled from the shared snapshot.
func (y *Yield) Form(ctx context.Context) YieldForm {
	snap, values := y.deps.readSnapshot(ctx)
	return YieldForm{
		Snapshot: snap,
		Input: domain.YieldInput{
			Temperature: values[relay.FieldTemperature],
			Humidity:    values[relay.FieldHumidity],
			Rainfall:    values[relay.FieldRainfall],
			Lat:         values[relay.FieldLat],
			Lng:         values[relay.FieldLng],
		},
	}
}

func (y *Yield) Last() Outcome[domain.YieldResult] { return y.m.Last() }

// Reset discards any result and rebuilds the form from the shared snapshot.
func (y *Yield) Reset(ctx context.Context) YieldForm {
	y.m.reset()
	return y.Form(ctx)
}

// Submit validates and sends the yield request.
func (y *Yield) Submit(ctx context.Context, in domain.YieldInput) Outcome[domain.YieldResult] {
	if msgs := check(in); len(msgs) > 0 {
		return y.m.reject(msgs)
	}
	return y.m.run(ctx,
		func(ctx context.Context) (domain.YieldResult, error) { return y.svc.PredictYield(ctx, in) },
		func() domain.YieldResult {
			res := y.deps.Simulator.Yield(in)
			res.WeatherUsed = map[string]any{
				"temperature": in.Temperature, "humidity": in.Humidity, "rainfall": in.Rainfall,
			}
			return res
		})
}
