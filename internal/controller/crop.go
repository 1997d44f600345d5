package controller

import (
	"context"
	"fmt"
	"strconv"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
)

// CropService is the part of the backend the crop page uses.
type CropService interface {
	RecommendCrop(ctx context.Context, in domain.CropInput) (domain.CropResult, error)
	RecommendCropByLocation(ctx context.Context, in domain.CropLocationInput) (domain.CropResult, error)
	LocationData(ctx context.Context, lat, lon float64) (domain.LocationData, error)
}

// CropMode selects how the crop page collects its input.
type CropMode string

const (
	CropModeManual CropMode = "manual"
	CropModeMap    CropMode = "map"
)

// CropForm is the crop page state.
type CropForm struct {
	Mode     CropMode
	Manual   domain.CropInput
	Location domain.CropLocationInput
	Snapshot Snapshot
}

// Crop recommends a crop from soil and weather readings, typed by hand or
// estimated for a map point.
type Crop struct {
	svc  CropService
	deps Deps
	m    *machine[domain.CropResult]
}

func NewCrop(svc CropService, deps Deps) *Crop {
	return &Crop{svc: svc, deps: deps, m: newMachine[domain.CropResult](domain.CapabilityCrop, deps)}
}

// Form returns a fresh form prefilled from the shared snapshot.
func (c *Crop) Form(ctx context.Context) CropForm {
	snap, values := c.deps.readSnapshot(ctx)
	form := CropForm{Mode: CropModeManual, Snapshot: snap}
	form.Manual.Temperature = values[relay.FieldTemperature]
	form.Manual.Humidity = values[relay.FieldHumidity]
	form.Manual.Rainfall = values[relay.FieldRainfall]
	form.Location.Latitude = values[relay.FieldLat]
	form.Location.Longitude = values[relay.FieldLng]
	form.Location.Temperature = values[relay.FieldTemperature]
	form.Location.Humidity = values[relay.FieldHumidity]
	form.Location.Rainfall = values[relay.FieldRainfall]
	return form
}

// Last returns the most recent submit outcome.
func (c *Crop) Last() Outcome[domain.CropResult] { return c.m.Last() }

// Reset discards any result and rebuilds the form from the shared snapshot.
func (c *Crop) Reset(ctx context.Context) CropForm {
	c.m.reset()
	return c.Form(ctx)
}

// SelectLocation sets the map point and fills soil and weather fields from
// the backend's estimate for it. When the estimate is unavailable the
// coordinates are still set and the error explains that values must be
// typed by hand.
func (c *Crop) SelectLocation(ctx context.Context, lat, lng float64) (domain.CropLocationInput, error) {
	in := domain.CropLocationInput{
		Latitude:  strconv.FormatFloat(lat, 'f', 4, 64),
		Longitude: strconv.FormatFloat(lng, 'f', 4, 64),
	}
	if msgs := checkCoordinates(lat, lng); len(msgs) > 0 {
		return in, fmt.Errorf("%s", msgs[0])
	}

	data, err := c.svc.LocationData(ctx, lat, lng)
	if err != nil {
		c.deps.Logger.Warn("location data unavailable", "lat", lat, "lng", lng, "error", err)
		return in, fmt.Errorf("failed to fetch location data, please enter values manually: %w", err)
	}
	if !data.Success {
		return in, fmt.Errorf("no soil data for this location, please enter values manually")
	}

	in.Nitrogen = fixed2(data.Nitrogen)
	in.Phosphorus = fixed2(data.Phosphorus)
	in.Potassium = fixed2(data.Potassium)
	in.Temperature = fixed2(data.Temperature)
	in.Humidity = fixed2(data.Humidity)
	in.PH = fixed2(data.PH)
	in.Rainfall = fixed2(data.Rainfall)
	in.Ozone = fixed2(data.Ozone)
	return in, nil
}

// Submit validates the form for its mode and asks for a recommendation.
// A response with success=false is reported as degraded with its message.
func (c *Crop) Submit(ctx context.Context, form CropForm) Outcome[domain.CropResult] {
	switch form.Mode {
	case CropModeMap:
		if blank(form.Location.Latitude) || blank(form.Location.Longitude) {
			return c.m.reject([]string{"Please select a location on the map first"})
		}
		if msgs := check(form.Location); len(msgs) > 0 {
			return c.m.reject(msgs)
		}
		return c.m.run(ctx, func(ctx context.Context) (domain.CropResult, error) {
			return successful(c.svc.RecommendCropByLocation(ctx, form.Location))
		}, nil)
	default:
		if msgs := check(form.Manual); len(msgs) > 0 {
			return c.m.reject(msgs)
		}
		return c.m.run(ctx, func(ctx context.Context) (domain.CropResult, error) {
			return successful(c.svc.RecommendCrop(ctx, form.Manual))
		}, nil)
	}
}

func successful(res domain.CropResult, err error) (domain.CropResult, error) {
	if err != nil {
		return res, err
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "Prediction failed"
		}
		return res, &unsuccessfulError{message: msg}
	}
	return res, nil
}

func fixed2(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
