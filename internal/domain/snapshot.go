package domain

import "strconv"

// Well-known keys of the durable key/value storage.
const (
	KeyUser    = "user"
	KeyToken   = "token"
	KeyWeather = "currentWeather"
)

// EnvironmentalSnapshot is the weather reading shared across pages.
// All numeric fields are optional.
type EnvironmentalSnapshot struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Rainfall    *float64 `json:"rainfall,omitempty"`
	WindSpeed   *float64 `json:"wind_speed,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Description string   `json:"description,omitempty"`
}

// WeatherReading is the body returned by GET /api/weather.
type WeatherReading struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Rain     *float64 `json:"rain"`
	Wind     *float64 `json:"wind"`
}

// Snapshot maps a backend reading onto a snapshot for the given point.
// Missing readings become 0, matching what the dashboard has always shown.
func (w WeatherReading) Snapshot(lat, lng float64, description string) EnvironmentalSnapshot {
	return EnvironmentalSnapshot{
		Temperature: Float(ValueOr(w.Temp, 0)),
		Humidity:    Float(ValueOr(w.Humidity, 0)),
		Rainfall:    Float(ValueOr(w.Rain, 0)),
		WindSpeed:   Float(ValueOr(w.Wind, 0)),
		Lat:         Float(lat),
		Lng:         Float(lng),
		Description: description,
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// ValueOr dereferences p, returning def when p is nil.
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// FormatFloat renders an optional number for a form field. Nil renders empty.
func FormatFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
