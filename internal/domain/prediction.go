package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Capability names a prediction feature of the backend.
type Capability string

const (
	CapabilityWeather      Capability = "weather"
	CapabilityCrop         Capability = "crop"
	CapabilityYield        Capability = "yield"
	CapabilityFertilizer   Capability = "fertilizer"
	CapabilityStress       Capability = "stress"
	CapabilitySpray        Capability = "spray"
	CapabilityFruitDisease Capability = "fruit_disease"
	CapabilityLeafDisease  Capability = "leaf_disease"
	CapabilityChat         Capability = "chat"
)

// Default coordinates sent when a form has no location (centre of India).
const (
	DefaultLat = 20.5937
	DefaultLng = 78.9629
)

// CropInput is the manual crop recommendation form.
type CropInput struct {
	Nitrogen    string `validate:"required,numeric,within=0~200"`
	Phosphorus  string `validate:"required,numeric,within=0~200"`
	Potassium   string `validate:"required,numeric,within=0~200"`
	Temperature string `validate:"required,numeric,within=-10~60"`
	Humidity    string `validate:"required,numeric,within=0~100"`
	PH          string `validate:"required,numeric,within=3~10"`
	Rainfall    string `validate:"required,numeric,within=0~500"`
	Ozone       string `validate:"omitempty,numeric,within=0~100"`
}

// CropLocationInput is the map-mode crop form. Soil and weather values are
// optional; the backend fills gaps from the location.
type CropLocationInput struct {
	Latitude    string `validate:"required,numeric,within=-90~90"`
	Longitude   string `validate:"required,numeric,within=-180~180"`
	Nitrogen    string `validate:"omitempty,numeric,within=0~200"`
	Phosphorus  string `validate:"omitempty,numeric,within=0~200"`
	Potassium   string `validate:"omitempty,numeric,within=0~200"`
	Temperature string `validate:"omitempty,numeric,within=-10~60"`
	Humidity    string `validate:"omitempty,numeric,within=0~100"`
	PH          string `validate:"omitempty,numeric,within=3~10"`
	Rainfall    string `validate:"omitempty,numeric,within=0~500"`
	Ozone       string `validate:"omitempty,numeric,within=0~100"`
}

// CropResult is the body of /predict/manual and /predict/location.
type CropResult struct {
	Success     bool           `json:"success"`
	Crop        string         `json:"crop"`
	Confidence  *float64       `json:"confidence,omitempty"`
	InputValues map[string]any `json:"input_values,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// LocationData is the body of /api/location-data.
type LocationData struct {
	Success     bool     `json:"success"`
	Nitrogen    *float64 `json:"nitrogen,omitempty"`
	Phosphorus  *float64 `json:"phosphorus,omitempty"`
	Potassium   *float64 `json:"potassium,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	PH          *float64 `json:"ph,omitempty"`
	Rainfall    *float64 `json:"rainfall,omitempty"`
	Ozone       *float64 `json:"ozone,omitempty"`
}

// YieldInput is the yield prediction form. Weather fields are only sent when
// ManualWeather is set; otherwise the backend looks them up for Lat/Lng.
type YieldInput struct {
	Crop          string `validate:"required"`
	Area          string `validate:"required,numeric,within=0~100000"`
	SoilMoisture  string `validate:"required,numeric"`
	Ozone         string `validate:"omitempty,numeric"`
	Temperature   string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Humidity      string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Rainfall      string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Lat           string `validate:"omitempty,numeric"`
	Lng           string `validate:"omitempty,numeric"`
	ManualWeather bool
}

// YieldResult is the body of /yield/predict.
type YieldResult struct {
	Yield       string         `json:"yield"`
	Value       *float64       `json:"value,omitempty"`
	Crop        string         `json:"crop,omitempty"`
	Area        *float64       `json:"area,omitempty"`
	WeatherUsed map[string]any `json:"weather_used,omitempty"`
}

// StressInput is the crop stress form.
type StressInput struct {
	SoilMoisture  string `validate:"required,numeric"`
	Ozone         string `validate:"omitempty,numeric"`
	Temperature   string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Humidity      string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Rainfall      string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	WindSpeed     string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Lat           string `validate:"omitempty,numeric"`
	Lng           string `validate:"omitempty,numeric"`
	ManualWeather bool
}

// StressResult is the body of /stress/predict.
type StressResult struct {
	Level       string         `json:"level"`
	Factors     []string       `json:"factors,omitempty"`
	Score       *float64       `json:"score,omitempty"`
	WeatherUsed map[string]any `json:"weather_used,omitempty"`
}

// SprayInput is the spray timing form.
type SprayInput struct {
	Temperature string `validate:"required,numeric"`
	Humidity    string `validate:"required,numeric"`
	WindSpeed   string `validate:"required,numeric"`
	Rainfall    string `validate:"required,numeric"`
	TimeOfDay   string `validate:"omitempty,timeslot"`
}

// SprayTimeSlots are the preferred spraying windows offered on the spray form.
var SprayTimeSlots = []string{
	"Early Morning (6-8 AM)",
	"Morning (8-10 AM)",
	"Late Morning (10-12 PM)",
	"Afternoon (12-3 PM)",
	"Late Afternoon (3-5 PM)",
	"Evening (5-7 PM)",
}

// IsSprayTimeSlot reports whether s names one of SprayTimeSlots, either in
// full or by the words before the hours ("late morning"), ignoring case.
func IsSprayTimeSlot(s string) bool {
	s = strings.TrimSpace(s)
	for _, slot := range SprayTimeSlots {
		name, _, _ := strings.Cut(slot, " (")
		if strings.EqualFold(s, slot) || strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// SprayResult is the body of /spray/recommend.
type SprayResult struct {
	IsSafe         bool              `json:"is_safe"`
	Recommendation string            `json:"recommendation"`
	BestTime       string            `json:"best_time,omitempty"`
	Factors        map[string]string `json:"factors,omitempty"`
}

// FertilizerInput is the fertilizer recommendation form.
type FertilizerInput struct {
	Nitrogen      string `validate:"required,numeric,within=0~200"`
	Phosphorus    string `validate:"required,numeric,within=0~200"`
	Potassium     string `validate:"required,numeric,within=0~200"`
	Crop          string `validate:"required"`
	SoilMoisture  string `validate:"required,numeric"`
	Temperature   string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Humidity      string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Rainfall      string `validate:"required_if=ManualWeather true,omitempty,numeric"`
	Lat           string `validate:"omitempty,numeric"`
	Lng           string `validate:"omitempty,numeric"`
	ManualWeather bool
}

// FertilizerResult is the body of /fertilizer/recommend.
type FertilizerResult struct {
	Fertilizer      string         `json:"fertilizer"`
	Recommendations []string       `json:"recommendations,omitempty"`
	NPKStatus       map[string]any `json:"npk_status,omitempty"`
	WeatherUsed     map[string]any `json:"weather_used,omitempty"`
}

// Image is an uploaded photo for disease classification.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DiseaseResult is the body of /disease/fruit and /disease/leaf.
type DiseaseResult struct {
	Disease    string     `json:"disease"`
	Crop       string     `json:"crop,omitempty"`
	Confidence Confidence `json:"confidence"`
	Severity   string     `json:"severity,omitempty"`
	Treatment  string     `json:"treatment,omitempty"`
}

// Confidence is a percentage that the backend sends either as a number
// (95.5) or as a string ("95.5%").
type Confidence struct {
	Value float64
	Known bool
}

// UnmarshalJSON accepts numbers, numeric strings with an optional % suffix and null.
func (c *Confidence) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*c = Confidence{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(str), "%")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable confidence is treated as unknown, not as a decode failure.
		*c = Confidence{}
		return nil //nolint:nilerr // tolerant decode
	}
	*c = Confidence{Value: v, Known: true}
	return nil
}

// MarshalJSON writes the numeric value or null.
func (c Confidence) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// String renders the confidence as a percentage, or empty when unknown.
func (c Confidence) String() string {
	if !c.Known {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64) + "%"
}

// ChatReply is the body of /chatbot/message.
type ChatReply struct {
	Message  string `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
}

// Text returns whichever reply field the backend populated.
func (r ChatReply) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Response
}
