package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// Backend endpoint paths.
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathWeather        = "/api/weather"
	PathLocationData   = "/api/location-data"
	PathCropManual     = "/predict/manual"
	PathCropLocation   = "/predict/location"
	PathYield          = "/yield/predict"
	PathStress         = "/stress/predict"
	PathSpray          = "/spray/recommend"
	PathFertilizer     = "/fertilizer/recommend"
	PathFruitDisease   = "/disease/fruit"
	PathLeafDisease    = "/disease/leaf"
	PathChatbotMessage = "/chatbot/message"
)

// Login posts credentials and returns the signed-in user.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.postJSON(ctx, PathLogin, creds, &out); err != nil {
		return domain.AuthResponse{}, fmt.Errorf("login: %w", err)
	}
	return out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.postJSON(ctx, PathRegister, reg, &out); err != nil {
		return domain.AuthResponse{}, fmt.Errorf("register: %w", err)
	}
	return out, nil
}

// Weather fetches current conditions at a point.
func (c *Client) Weather(ctx context.Context, lat, lon float64) (domain.WeatherReading, error) {
	q := url.Values{"lat": {formatCoord(lat)}, "lon": {formatCoord(lon)}}
	var out domain.WeatherReading
	if err := c.getJSON(ctx, PathWeather, q, &out); err != nil {
		return domain.WeatherReading{}, fmt.Errorf("weather: %w", err)
	}
	return out, nil
}

// LocationData fetches soil and weather estimates for a point.
func (c *Client) LocationData(ctx context.Context, lat, lon float64) (domain.LocationData, error) {
	q := url.Values{"latitude": {formatCoord(lat)}, "longitude": {formatCoord(lon)}}
	var out domain.LocationData
	if err := c.getJSON(ctx, PathLocationData, q, &out); err != nil {
		return domain.LocationData{}, fmt.Errorf("location data: %w", err)
	}
	return out, nil
}

type cropManualPayload struct {
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
	Ozone       float64 `json:"ozone"`
}

// RecommendCrop asks for a crop from manual readings. Missing numbers are sent as 0.
func (c *Client) RecommendCrop(ctx context.Context, in domain.CropInput) (domain.CropResult, error) {
	payload := cropManualPayload{
		Nitrogen:    zeroIfMissing(in.Nitrogen),
		Phosphorus:  zeroIfMissing(in.Phosphorus),
		Potassium:   zeroIfMissing(in.Potassium),
		Temperature: zeroIfMissing(in.Temperature),
		Humidity:    zeroIfMissing(in.Humidity),
		PH:          zeroIfMissing(in.PH),
		Rainfall:    zeroIfMissing(in.Rainfall),
		Ozone:       zeroIfMissing(in.Ozone),
	}
	var out domain.CropResult
	if err := c.postJSON(ctx, PathCropManual, payload, &out); err != nil {
		return domain.CropResult{}, fmt.Errorf("recommend crop: %w", err)
	}
	return out, nil
}

type cropLocationPayload struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Nitrogen    *float64 `json:"nitrogen"`
	Phosphorus  *float64 `json:"phosphorus"`
	Potassium   *float64 `json:"potassium"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	PH          *float64 `json:"ph"`
	Rainfall    *float64 `json:"rainfall"`
	Ozone       *float64 `json:"ozone"`
}

// RecommendCropByLocation asks for a crop at a map point. Missing numbers are
// sent as null so the backend fills them from the location.
func (c *Client) RecommendCropByLocation(ctx context.Context, in domain.CropLocationInput) (domain.CropResult, error) {
	lat, okLat := parse(in.Latitude)
	lon, okLon := parse(in.Longitude)
	if !okLat || !okLon {
		return domain.CropResult{}, fmt.Errorf("recommend crop by location: latitude and longitude are required")
	}
	payload := cropLocationPayload{
		Latitude:    lat,
		Longitude:   lon,
		Nitrogen:    nullIfMissing(in.Nitrogen),
		Phosphorus:  nullIfMissing(in.Phosphorus),
		Potassium:   nullIfMissing(in.Potassium),
		Temperature: nullIfMissing(in.Temperature),
		Humidity:    nullIfMissing(in.Humidity),
		PH:          nullIfMissing(in.PH),
		Rainfall:    nullIfMissing(in.Rainfall),
		Ozone:       nullIfMissing(in.Ozone),
	}
	var out domain.CropResult
	if err := c.postJSON(ctx, PathCropLocation, payload, &out); err != nil {
		return domain.CropResult{}, fmt.Errorf("recommend crop by location: %w", err)
	}
	return out, nil
}

type yieldPayload struct {
	Crop         string   `json:"crop"`
	Area         *float64 `json:"area"`
	SoilMoisture *float64 `json:"soilMoisture"`
	Ozone        *float64 `json:"ozone"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Rainfall     *float64 `json:"rainfall,omitempty"`
}

// PredictYield estimates harvest for an area. Weather is only sent when the
// user overrides it; otherwise the backend looks it up for the location.
func (c *Client) PredictYield(ctx context.Context, in domain.YieldInput) (domain.YieldResult, error) {
	payload := yieldPayload{
		Crop:         strings.TrimSpace(in.Crop),
		Area:         nullIfMissing(in.Area),
		SoilMoisture: nullIfMissing(in.SoilMoisture),
		Ozone:        nullIfMissing(in.Ozone),
		Lat:          orDefault(in.Lat, domain.DefaultLat),
		Lng:          orDefault(in.Lng, domain.DefaultLng),
	}
	if in.ManualWeather {
		payload.Temperature = nullIfMissing(in.Temperature)
		payload.Humidity = nullIfMissing(in.Humidity)
		payload.Rainfall = nullIfMissing(in.Rainfall)
	}
	var out domain.YieldResult
	if err := c.postJSON(ctx, PathYield, payload, &out); err != nil {
		return domain.YieldResult{}, fmt.Errorf("predict yield: %w", err)
	}
	return out, nil
}

type stressPayload struct {
	SoilMoisture *float64 `json:"soilMoisture"`
	Ozone        *float64 `json:"ozone"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Rainfall     *float64 `json:"rainfall,omitempty"`
	WindSpeed    *float64 `json:"windSpeed,omitempty"`
}

// PredictStress scores crop stress at a location.
func (c *Client) PredictStress(ctx context.Context, in domain.StressInput) (domain.StressResult, error) {
	payload := stressPayload{
		SoilMoisture: nullIfMissing(in.SoilMoisture),
		Ozone:        nullIfMissing(in.Ozone),
		Lat:          orDefault(in.Lat, domain.DefaultLat),
		Lng:          orDefault(in.Lng, domain.DefaultLng),
	}
	if in.ManualWeather {
		payload.Temperature = nullIfMissing(in.Temperature)
		payload.Humidity = nullIfMissing(in.Humidity)
		payload.Rainfall = nullIfMissing(in.Rainfall)
		payload.WindSpeed = nullIfMissing(in.WindSpeed)
	}
	var out domain.StressResult
	if err := c.postJSON(ctx, PathStress, payload, &out); err != nil {
		return domain.StressResult{}, fmt.Errorf("predict stress: %w", err)
	}
	return out, nil
}

type sprayPayload struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Rainfall    float64 `json:"rainfall"`
	TimeOfDay   string  `json:"timeOfDay"`
}

// RecommendSpray judges whether current conditions are safe for spraying.
func (c *Client) RecommendSpray(ctx context.Context, in domain.SprayInput) (domain.SprayResult, error) {
	payload := sprayPayload{
		Temperature: zeroIfMissing(in.Temperature),
		Humidity:    zeroIfMissing(in.Humidity),
		WindSpeed:   zeroIfMissing(in.WindSpeed),
		Rainfall:    zeroIfMissing(in.Rainfall),
		TimeOfDay:   in.TimeOfDay,
	}
	var out domain.SprayResult
	if err := c.postJSON(ctx, PathSpray, payload, &out); err != nil {
		return domain.SprayResult{}, fmt.Errorf("recommend spray: %w", err)
	}
	return out, nil
}

type fertilizerPayload struct {
	N            *float64 `json:"N"`
	P            *float64 `json:"P"`
	K            *float64 `json:"K"`
	Crop         string   `json:"crop"`
	SoilMoisture *float64 `json:"soilMoisture"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Rainfall     *float64 `json:"rainfall,omitempty"`
}

// RecommendFertilizer suggests a fertilizer for the soil's NPK levels.
func (c *Client) RecommendFertilizer(ctx context.Context, in domain.FertilizerInput) (domain.FertilizerResult, error) {
	payload := fertilizerPayload{
		N:            nullIfMissing(in.Nitrogen),
		P:            nullIfMissing(in.Phosphorus),
		K:            nullIfMissing(in.Potassium),
		Crop:         strings.TrimSpace(in.Crop),
		SoilMoisture: nullIfMissing(in.SoilMoisture),
		Lat:          orDefault(in.Lat, domain.DefaultLat),
		Lng:          orDefault(in.Lng, domain.DefaultLng),
	}
	if in.ManualWeather {
		payload.Temperature = nullIfMissing(in.Temperature)
		payload.Humidity = nullIfMissing(in.Humidity)
		payload.Rainfall = nullIfMissing(in.Rainfall)
	}
	var out domain.FertilizerResult
	if err := c.postJSON(ctx, PathFertilizer, payload, &out); err != nil {
		return domain.FertilizerResult{}, fmt.Errorf("recommend fertilizer: %w", err)
	}
	return out, nil
}

// ClassifyFruit uploads a fruit photo for disease classification.
func (c *Client) ClassifyFruit(ctx context.Context, img domain.Image) (domain.DiseaseResult, error) {
	out, err := c.uploadImage(ctx, PathFruitDisease, img)
	if err != nil {
		return domain.DiseaseResult{}, fmt.Errorf("classify fruit: %w", err)
	}
	return out, nil
}

// DetectLeaf uploads a leaf photo for disease detection.
func (c *Client) DetectLeaf(ctx context.Context, img domain.Image) (domain.DiseaseResult, error) {
	out, err := c.uploadImage(ctx, PathLeafDisease, img)
	if err != nil {
		return domain.DiseaseResult{}, fmt.Errorf("detect leaf disease: %w", err)
	}
	return out, nil
}

func (c *Client) uploadImage(ctx context.Context, path string, img domain.Image) (domain.DiseaseResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := img.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return domain.DiseaseResult{}, fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return domain.DiseaseResult{}, fmt.Errorf("write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return domain.DiseaseResult{}, fmt.Errorf("close multipart body: %w", err)
	}

	var out domain.DiseaseResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return domain.DiseaseResult{}, err
	}
	return out, nil
}

// SendChat sends one message to the assistant.
func (c *Client) SendChat(ctx context.Context, message string) (domain.ChatReply, error) {
	var out domain.ChatReply
	if err := c.postJSON(ctx, PathChatbotMessage, map[string]string{"message": message}, &out); err != nil {
		return domain.ChatReply{}, fmt.Errorf("send chat: %w", err)
	}
	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
