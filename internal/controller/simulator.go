package controller

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// DemoDescription labels the placeholder weather published in simulation mode.
const DemoDescription = "Demo data - API unavailable"

// Simulator produces placeholder results when the backend cannot be reached.
// Rule-based capabilities reuse the backend's published thresholds; the rest
// pick from fixed lists with a seeded generator so runs are reproducible.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator. A zero seed derives one from the clock.
func NewSimulator(seed int64) *Simulator {
	s := uint64(seed)
	if seed == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return &Simulator{rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Simulator) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Weather returns the demo reading for a point.
func (s *Simulator) Weather(lat, lng float64) domain.EnvironmentalSnapshot {
	return domain.EnvironmentalSnapshot{
		Temperature: domain.Float(28),
		Humidity:    domain.Float(65),
		Rainfall:    domain.Float(2.5),
		WindSpeed:   domain.Float(12),
		Lat:         domain.Float(lat),
		Lng:         domain.Float(lng),
		Description: DemoDescription,
	}
}

// Spray applies the wind, temperature and rain safety rules.
func (s *Simulator) Spray(in domain.SprayInput) domain.SprayResult {
	wind, temp, rain := num(in.WindSpeed, 0), num(in.Temperature, 0), num(in.Rainfall, 0)
	safe := wind < 15 && temp < 35 && rain < 1

	res := domain.SprayResult{
		IsSafe:         safe,
		Recommendation: "Not recommended - wait for better conditions",
		BestTime:       "Early morning (6-8 AM) or late evening (5-7 PM)",
		Factors: map[string]string{
			"wind":        pick(wind < 15, "Favorable", "Too high"),
			"temperature": pick(temp < 35, "Optimal", "Too high"),
			"rainfall":    pick(rain < 1, "No rain", "Rain expected"),
		},
	}
	if safe {
		res.Recommendation = "Safe to spray - conditions are favorable"
		if !blank(in.TimeOfDay) {
			res.BestTime = in.TimeOfDay
		}
	}
	return res
}

// Stress scores environmental stress factors.
func (s *Simulator) Stress(in domain.StressInput) domain.StressResult {
	temp, humidity := num(in.Temperature, 25), num(in.Humidity, 60)
	rainfall, wind := num(in.Rainfall, 0), num(in.WindSpeed, 10)
	soil, ozone := num(in.SoilMoisture, 0.5), num(in.Ozone, 40)

	score := 0.0
	var factors []string
	add := func(cond bool, points float64, factor string) {
		if cond {
			score += points
			factors = append(factors, factor)
		}
	}
	add(temp > 35 || temp < 10, 2, "Extreme temperature")
	add(humidity < 30 || humidity > 90, 1, "Humidity stress")
	add(soil < 0.2, 2, "Low soil moisture")
	add(rainfall > 100, 1, "Excessive rainfall")
	add(wind > 40, 1, "High wind speed")
	add(ozone > 80, 1, "High ozone levels")

	level := "Low"
	switch {
	case score >= 4:
		level = "High"
	case score >= 2:
		level = "Moderate"
	}
	if len(factors) == 0 {
		factors = []string{"Optimal conditions"}
	}
	return domain.StressResult{
		Level:   level,
		Factors: factors,
		Score:   domain.Float(score),
		WeatherUsed: map[string]any{
			"temperature": temp, "humidity": humidity, "rainfall": rainfall,
			"windSpeed": wind, "soilMoisture": soil, "ozone": ozone,
		},
	}
}

// Fertilizer applies the NPK thresholds and weather notes.
func (s *Simulator) Fertilizer(in domain.FertilizerInput) domain.FertilizerResult {
	n, p, k := num(in.Nitrogen, 0), num(in.Phosphorus, 0), num(in.Potassium, 0)
	temp, rainfall, soil := num(in.Temperature, 25), num(in.Rainfall, 0), num(in.SoilMoisture, 0.5)

	var fertilizers, notes []string
	switch {
	case n < 50:
		fertilizers = append(fertilizers, "Urea (Nitrogen)")
		notes = append(notes, fmt.Sprintf("Apply 50-100 kg/ha Urea to increase Nitrogen (Current: %g)", n))
	case n > 100:
		notes = append(notes, fmt.Sprintf("Nitrogen levels are high (%g). Reduce nitrogen fertilizer use.", n))
	}
	switch {
	case p < 30:
		fertilizers = append(fertilizers, "DAP (Phosphorus)")
		notes = append(notes, fmt.Sprintf("Apply 40-60 kg/ha DAP to increase Phosphorus (Current: %g)", p))
	case p > 80:
		notes = append(notes, fmt.Sprintf("Phosphorus levels are sufficient (%g). Maintain current practices.", p))
	}
	switch {
	case k < 40:
		fertilizers = append(fertilizers, "MOP (Potassium)")
		notes = append(notes, fmt.Sprintf("Apply 30-50 kg/ha MOP to increase Potassium (Current: %g)", k))
	case k > 100:
		notes = append(notes, fmt.Sprintf("Potassium levels are high (%g). No additional potash needed.", k))
	}

	if rainfall > 100 {
		notes = append(notes, "High rainfall: Apply fertilizer in split doses to prevent leaching")
	}
	if temp > 35 {
		notes = append(notes, "High temperature: Consider foliar application for better absorption")
	}
	if soil < 0.3 {
		notes = append(notes, "Low soil moisture: Irrigate before fertilizer application")
	}
	if len(fertilizers) == 0 {
		fertilizers = append(fertilizers, "Balanced NPK (19-19-19)")
		notes = append(notes, "Soil nutrient levels are balanced. Use maintenance dose of NPK.")
	}

	return domain.FertilizerResult{
		Fertilizer:      strings.Join(fertilizers, ", "),
		Recommendations: notes,
		NPKStatus:       map[string]any{"nitrogen": n, "phosphorus": p, "potassium": k},
	}
}

// Yield produces a random estimate scaled by area.
func (s *Simulator) Yield(in domain.YieldInput) domain.YieldResult {
	area := num(in.Area, 0)
	value := area*s.float()*50 + 100
	value, _ = strconv.ParseFloat(strconv.FormatFloat(value, 'f', 2, 64), 64)
	return domain.YieldResult{
		Yield: fmt.Sprintf("%.2f tonnes/hectare", value),
		Value: domain.Float(value),
		Crop:  in.Crop,
		Area:  domain.Float(area),
	}
}

type diseaseCandidate struct {
	name       string
	crop       string
	confidence float64
	severity   string
}

var fruitDiseases = []diseaseCandidate{
	{"Apple Scab", "", 92.5, "Moderate"},
	{"Black Rot", "", 87.3, "High"},
	{"Cedar Apple Rust", "", 78.9, "Low"},
	{"Healthy", "", 95.2, "None"},
}

var leafDiseases = []diseaseCandidate{
	{"Bacterial Blight", "Rice", 91.8, "High"},
	{"Early Blight", "Tomato", 88.4, "Moderate"},
	{"Leaf Spot", "Wheat", 85.7, "Moderate"},
	{"Powdery Mildew", "Grape", 82.3, "Low"},
	{"Healthy Leaf", "General", 96.5, "None"},
}

// FruitDisease picks a fruit diagnosis.
func (s *Simulator) FruitDisease() domain.DiseaseResult {
	c := fruitDiseases[s.intn(len(fruitDiseases))]
	return domain.DiseaseResult{
		Disease:    c.name,
		Confidence: domain.Confidence{Value: c.confidence, Known: true},
		Severity:   c.severity,
		Treatment: pick(c.name == "Healthy",
			"No treatment needed. Maintain good practices.",
			"Apply appropriate fungicide. Remove infected parts."),
	}
}

// LeafDisease picks a leaf diagnosis.
func (s *Simulator) LeafDisease() domain.DiseaseResult {
	c := leafDiseases[s.intn(len(leafDiseases))]
	return domain.DiseaseResult{
		Disease:    c.name,
		Crop:       c.crop,
		Confidence: domain.Confidence{Value: c.confidence, Known: true},
		Severity:   c.severity,
		Treatment: pick(c.name == "Healthy Leaf",
			"Leaf is healthy. Continue regular care.",
			"Apply fungicide or bactericide. Remove infected leaves. Improve air circulation."),
	}
}

var chatReplies = []string{
	"Based on your query, I recommend consulting with local agricultural experts for specific guidance tailored to your region.",
	"That's a great question! For optimal results, consider factors like soil type, climate, and water availability in your area.",
	"I suggest monitoring your crops regularly and maintaining proper irrigation. Would you like more specific advice?",
	"Agriculture is complex and depends on many factors. Let me help you break down your question into manageable parts.",
	"Based on common agricultural practices, here are some general recommendations that might help with your situation.",
}

// ChatReply picks a generic assistant reply.
func (s *Simulator) ChatReply() string {
	return chatReplies[s.intn(len(chatReplies))]
}

func num(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
