package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
)

// WeatherSource fetches current conditions for a point.
type WeatherSource interface {
	Weather(ctx context.Context, lat, lon float64) (domain.WeatherReading, error)
}

// Dashboard resolves a location, fetches its weather and publishes it as the
// shared snapshot every prediction page prefills from.
type Dashboard struct {
	weather  WeatherSource
	searcher domain.PlaceSearcher
	deps     Deps
	m        *machine[relay.Record]
}

// NewDashboard creates the dashboard controller. searcher may be nil when
// place search is not offered.
func NewDashboard(weather WeatherSource, searcher domain.PlaceSearcher, deps Deps) *Dashboard {
	return &Dashboard{
		weather:  weather,
		searcher: searcher,
		deps:     deps,
		m:        newMachine[relay.Record](domain.CapabilityWeather, deps),
	}
}

// Current returns the published snapshot, if any.
func (d *Dashboard) Current(ctx context.Context) Snapshot {
	snap, _ := d.deps.readSnapshot(ctx)
	return snap
}

// Last returns the most recent fetch outcome.
func (d *Dashboard) Last() Outcome[relay.Record] { return d.m.Last() }

// FetchWeather publishes the conditions at raw coordinates, such as a map
// click or the device position.
func (d *Dashboard) FetchWeather(ctx context.Context, lat, lng float64) Outcome[relay.Record] {
	return d.fetch(ctx, lat, lng, fmt.Sprintf("Current conditions at %.4f, %.4f", lat, lng))
}

// SelectPlace publishes the conditions at a search hit, described by its name.
func (d *Dashboard) SelectPlace(ctx context.Context, place domain.Place) Outcome[relay.Record] {
	return d.fetch(ctx, place.Lat, place.Lon, place.DisplayName)
}

func (d *Dashboard) fetch(ctx context.Context, lat, lng float64, description string) Outcome[relay.Record] {
	if msgs := checkCoordinates(lat, lng); len(msgs) > 0 {
		return d.m.reject(msgs)
	}

	call := func(ctx context.Context) (relay.Record, error) {
		reading, err := d.weather.Weather(ctx, lat, lng)
		if err != nil {
			return relay.Record{}, err
		}
		return d.deps.Relay.Publish(ctx, reading.Snapshot(lat, lng, description))
	}
	simulate := func() relay.Record {
		rec, err := d.deps.Relay.Publish(ctx, d.deps.Simulator.Weather(lat, lng))
		if err != nil {
			d.deps.Logger.Warn("publish demo weather", "error", err)
			return relay.Record{Snapshot: d.deps.Simulator.Weather(lat, lng)}
		}
		return rec
	}
	return d.m.run(ctx, call, simulate)
}

// Search looks up places for the query.
func (d *Dashboard) Search(ctx context.Context, query string) ([]domain.Place, error) {
	if d.searcher == nil {
		return nil, errors.New("place search is not configured")
	}
	places, err := d.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	return places, nil
}

// Clear removes the shared snapshot.
func (d *Dashboard) Clear(ctx context.Context) error {
	d.m.reset()
	return d.deps.Relay.Clear(ctx)
}

func checkCoordinates(lat, lng float64) []string {
	var msgs []string
	if lat < -90 || lat > 90 {
		msgs = append(msgs, "Latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		msgs = append(msgs, "Longitude must be between -180 and 180")
	}
	return msgs
}
