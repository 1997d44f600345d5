package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/backend"
	"github.com/couchcryptid/agri-dashboard/internal/controller"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// mock holds the registered accounts and the answer generator.
type mock struct {
	sim     *controller.Simulator
	failing []string
	latency time.Duration

	mu    sync.Mutex
	users map[string]account
}

type account struct {
	user     domain.User
	password string
}

func newMock(seed int64, failing []string, latency time.Duration) *mock {
	return &mock{
		sim:     controller.NewSimulator(seed),
		failing: failing,
		latency: latency,
		users:   map[string]account{},
	}
}

func newRouter(m *mock, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Debug("mock request", "method", req.Method, "path", req.URL.Path)
			if m.latency > 0 {
				time.Sleep(m.latency)
			}
			if slices.Contains(m.failing, req.URL.Path) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Model temporarily unavailable"})
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Post(backend.PathRegister, m.register)
	r.Post(backend.PathLogin, m.login)
	r.Get(backend.PathWeather, m.weather)
	r.Get(backend.PathLocationData, m.locationData)
	r.Post(backend.PathCropManual, m.cropManual)
	r.Post(backend.PathCropLocation, m.cropLocation)
	r.Post(backend.PathYield, m.yield)
	r.Post(backend.PathStress, m.stress)
	r.Post(backend.PathSpray, m.spray)
	r.Post(backend.PathFertilizer, m.fertilizer)
	r.Post(backend.PathFruitDisease, m.disease(m.sim.FruitDisease))
	r.Post(backend.PathLeafDisease, m.disease(m.sim.LeafDisease))
	r.Post(backend.PathChatbotMessage, m.chat)
	return r
}

func (m *mock) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" || reg.Password == "" || reg.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Name, email and password are required")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	m.users[email] = account{
		user:     domain.User{ID: uuid.NewString(), Name: reg.Name, Email: email, Role: "farmer"},
		password: reg.Password,
	}
	writeJSON(w, http.StatusOK, domain.AuthResponse{Message: "User registered successfully"})
}

func (m *mock) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	m.mu.Lock()
	acct, ok := m.users[strings.ToLower(strings.TrimSpace(creds.Email))]
	m.mu.Unlock()
	if !ok || acct.password != creds.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	user := acct.user
	writeJSON(w, http.StatusOK, domain.AuthResponse{Message: "Login successful", User: &user})
}

// weather varies gently with latitude so different places look different.
func (m *mock) weather(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	_, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "lat and lon are required")
		return
	}
	temp := round2(34 - abs(lat)*0.4)
	writeJSON(w, http.StatusOK, domain.WeatherReading{
		Temp:     domain.Float(temp),
		Humidity: domain.Float(round2(55 + abs(lat)*0.3)),
		Rain:     domain.Float(2.5),
		Wind:     domain.Float(12),
	})
}

func (m *mock) locationData(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	_, errLon := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if errLat != nil || errLon != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "latitude and longitude are required")
		return
	}
	writeJSON(w, http.StatusOK, domain.LocationData{
		Success:     true,
		Nitrogen:    domain.Float(90),
		Phosphorus:  domain.Float(42),
		Potassium:   domain.Float(43),
		Temperature: domain.Float(round2(34 - abs(lat)*0.4)),
		Humidity:    domain.Float(82),
		PH:          domain.Float(6.5),
		Rainfall:    domain.Float(202.94),
		Ozone:       domain.Float(40),
	})
}

func (m *mock) cropManual(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, recommendCrop(p))
}

func (m *mock) cropLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	if _, has := p.number("latitude"); !has {
		writeJSON(w, http.StatusOK, domain.CropResult{Success: false, Message: "Location is required"})
		return
	}
	writeJSON(w, http.StatusOK, recommendCrop(p))
}

// recommendCrop picks a crop from rainfall and temperature bands.
func recommendCrop(p payload) domain.CropResult {
	rain, _ := p.number("rainfall")
	temp, _ := p.number("temperature")
	crop, confidence := "maize", 78.4
	switch {
	case rain > 150:
		crop, confidence = "rice", 91.2
	case temp > 30:
		crop, confidence = "cotton", 84.7
	case temp < 18:
		crop, confidence = "wheat", 86.1
	}
	return domain.CropResult{Success: true, Crop: crop, Confidence: domain.Float(confidence), InputValues: p}
}

func (m *mock) yield(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	in := domain.YieldInput{Crop: p.text("crop"), Area: p.str("area"), SoilMoisture: p.str("soilMoisture")}
	res := m.sim.Yield(in)
	res.WeatherUsed = p.weather("temperature", "humidity", "rainfall")
	writeJSON(w, http.StatusOK, res)
}

func (m *mock) stress(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.sim.Stress(domain.StressInput{
		SoilMoisture: p.str("soilMoisture"),
		Ozone:        p.str("ozone"),
		Temperature:  p.str("temperature"),
		Humidity:     p.str("humidity"),
		Rainfall:     p.str("rainfall"),
		WindSpeed:    p.str("windSpeed"),
	}))
}

func (m *mock) spray(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.sim.Spray(domain.SprayInput{
		Temperature: p.str("temperature"),
		Humidity:    p.str("humidity"),
		WindSpeed:   p.str("windSpeed"),
		Rainfall:    p.str("rainfall"),
		TimeOfDay:   p.text("timeOfDay"),
	}))
}

func (m *mock) fertilizer(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePayload(w, r)
	if !ok {
		return
	}
	res := m.sim.Fertilizer(domain.FertilizerInput{
		Nitrogen:     p.str("N"),
		Phosphorus:   p.str("P"),
		Potassium:    p.str("K"),
		Crop:         p.text("crop"),
		SoilMoisture: p.str("soilMoisture"),
		Temperature:  p.str("temperature"),
		Humidity:     p.str("humidity"),
		Rainfall:     p.str("rainfall"),
	})
	res.WeatherUsed = p.weather("temperature", "humidity", "rainfall")
	writeJSON(w, http.StatusOK, res)
}

func (m *mock) disease(pick func() domain.DiseaseResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(controller.MaxImageBytes); err != nil {
			writeDetail(w, http.StatusBadRequest, "Expected a multipart image upload")
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "image field is required")
			return
		}
		defer f.Close()
		ct := hdr.Header.Get("Content-Type")
		if ct != "image/png" && ct != "image/jpeg" {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Unsupported image type %q", ct))
			return
		}
		writeJSON(w, http.StatusOK, pick())
	}
}

func (m *mock) chat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Message) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "message is required")
		return
	}
	writeJSON(w, http.StatusOK, domain.ChatReply{Response: m.sim.ChatReply()})
}

// payload is a decoded JSON request body.
type payload map[string]any

func decodePayload(w http.ResponseWriter, r *http.Request) (payload, bool) {
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return p, true
}

func (p payload) number(key string) (float64, bool) {
	v, ok := p[key].(float64)
	return v, ok
}

// str renders a number field the way a form would hold it; null is empty.
func (p payload) str(key string) string {
	v, ok := p.number(key)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (p payload) text(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p payload) weather(keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := p.number(k); ok {
			out[k] = v
		} else {
			out[k] = 25.0
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
