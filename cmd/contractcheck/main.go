// Command contractcheck exercises a running prediction backend with sample
// requests and checks that every answer carries the fields the dashboard
// renders. It registers a throwaway account for the auth phase.
//
// Usage:
//
//	go run ./cmd/contractcheck -backend http://localhost:8000
//	go run ./cmd/contractcheck -backend http://localhost:8000 -skip-auth
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/backend"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	baseURL := flag.String("backend", "http://localhost:8000", "prediction backend base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "per-request timeout")
	skipAuth := flag.Bool("skip-auth", false, "skip the registration and login phase")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := backend.NewClient(*baseURL, *timeout, logger, observability.NewMetrics())

	os.Exit(run(context.Background(), os.Stdout, client, *skipAuth))
}

func run(ctx context.Context, w io.Writer, client *backend.Client, skipAuth bool) int {
	fmt.Fprintln(w, "=== Prediction Backend Contract Check ===")
	fmt.Fprintln(w)

	var phases []*phase
	if !skipAuth {
		phases = append(phases, checkAuth(ctx, client))
	}
	phases = append(phases,
		checkEnvironment(ctx, client),
		checkPredictions(ctx, client),
		checkDiseaseAndChat(ctx, client),
	)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll checks passed.")
		return 0
	}
	fmt.Fprintln(w, "\nContract check FAILED.")
	return 1
}

// ── Phase 1: Auth ──

func checkAuth(ctx context.Context, c *backend.Client) *phase {
	p := &phase{name: "Phase 1: Auth (register, login)"}

	email := "contract-" + uuid.NewString()[:8] + "@example.com"
	reg := domain.Registration{Name: "Contract Check", Email: email, Password: "contract-check"}
	if _, err := c.Register(ctx, reg); err != nil {
		p.errorf("register: %v", err)
		return p
	}

	resp, err := c.Login(ctx, domain.Credentials{Email: email, Password: reg.Password})
	switch {
	case err != nil:
		p.errorf("login: %v", err)
	case resp.User == nil:
		p.errorf("login: response has no user")
	case !resp.User.Complete():
		p.errorf("login: user is missing name or email: %+v", *resp.User)
	}

	_, err = c.Login(ctx, domain.Credentials{Email: email, Password: "wrong-password"})
	if err == nil {
		p.errorf("login with a wrong password succeeded")
	} else if _, ok := backend.DetailOf(err); !ok {
		p.errorf("rejected login carries no detail message: %v", err)
	}
	return p
}

// ── Phase 2: Environment ──

const sampleLat, sampleLng = 18.5204, 73.8567

func checkEnvironment(ctx context.Context, c *backend.Client) *phase {
	p := &phase{name: "Phase 2: Environment (weather, soil)"}

	reading, err := c.Weather(ctx, sampleLat, sampleLng)
	if err != nil {
		p.errorf("weather: %v", err)
	} else {
		requireNumbers(p, "weather", map[string]*float64{
			"temp": reading.Temp, "humidity": reading.Humidity, "rain": reading.Rain, "wind": reading.Wind,
		})
	}

	data, err := c.LocationData(ctx, sampleLat, sampleLng)
	switch {
	case err != nil:
		p.errorf("location data: %v", err)
	case !data.Success:
		p.errorf("location data: success=false for a land point")
	default:
		requireNumbers(p, "location data", map[string]*float64{
			"nitrogen": data.Nitrogen, "phosphorus": data.Phosphorus, "potassium": data.Potassium,
			"ph": data.PH, "rainfall": data.Rainfall,
		})
	}
	return p
}

// ── Phase 3: Predictions ──

var stressLevels = []string{"Low", "Moderate", "High"}

func checkPredictions(ctx context.Context, c *backend.Client) *phase {
	p := &phase{name: "Phase 3: Predictions (crop, yield, stress, ...)"}

	crop, err := c.RecommendCrop(ctx, domain.CropInput{
		Nitrogen: "90", Phosphorus: "42", Potassium: "43", Temperature: "21",
		Humidity: "82", PH: "6.5", Rainfall: "203", Ozone: "40",
	})
	switch {
	case err != nil:
		p.errorf("crop (manual): %v", err)
	case !crop.Success || crop.Crop == "":
		p.errorf("crop (manual): no crop in answer: %+v", crop)
	}

	crop, err = c.RecommendCropByLocation(ctx, domain.CropLocationInput{Latitude: "18.5204", Longitude: "73.8567"})
	switch {
	case err != nil:
		p.errorf("crop (location): %v", err)
	case crop.Success && crop.Crop == "":
		p.errorf("crop (location): success without a crop")
	case !crop.Success && crop.Message == "":
		p.errorf("crop (location): failure without a message")
	}

	yield, err := c.PredictYield(ctx, domain.YieldInput{
		Crop: "rice", Area: "2", SoilMoisture: "0.4", Lat: "18.5204", Lng: "73.8567",
	})
	if err != nil {
		p.errorf("yield: %v", err)
	} else if yield.Yield == "" {
		p.errorf("yield: empty yield")
	}

	stress, err := c.PredictStress(ctx, domain.StressInput{SoilMoisture: "0.4", Lat: "18.5204", Lng: "73.8567"})
	if err != nil {
		p.errorf("stress: %v", err)
	} else if !slices.Contains(stressLevels, stress.Level) {
		p.errorf("stress: level %q not in %v", stress.Level, stressLevels)
	}

	spray, err := c.RecommendSpray(ctx, domain.SprayInput{Temperature: "25", Humidity: "60", WindSpeed: "8", Rainfall: "0"})
	if err != nil {
		p.errorf("spray: %v", err)
	} else if spray.Recommendation == "" {
		p.errorf("spray: empty recommendation")
	}

	fert, err := c.RecommendFertilizer(ctx, domain.FertilizerInput{
		Nitrogen: "40", Phosphorus: "20", Potassium: "30", Crop: "rice", SoilMoisture: "0.4",
		Lat: "18.5204", Lng: "73.8567",
	})
	if err != nil {
		p.errorf("fertilizer: %v", err)
	} else if fert.Fertilizer == "" {
		p.errorf("fertilizer: empty fertilizer")
	}
	return p
}

// ── Phase 4: Disease and chat ──

func checkDiseaseAndChat(ctx context.Context, c *backend.Client) *phase {
	p := &phase{name: "Phase 4: Disease detection and assistant"}

	img, err := samplePNG()
	if err != nil {
		p.errorf("build sample image: %v", err)
		return p
	}
	for name, classify := range map[string]func(context.Context, domain.Image) (domain.DiseaseResult, error){
		"fruit": c.ClassifyFruit,
		"leaf":  c.DetectLeaf,
	} {
		res, err := classify(ctx, img)
		switch {
		case err != nil:
			p.errorf("%s disease: %v", name, err)
		case res.Disease == "":
			p.errorf("%s disease: empty diagnosis", name)
		case !res.Confidence.Known:
			p.errorf("%s disease: confidence missing", name)
		}
	}

	reply, err := c.SendChat(ctx, "What crop suits clay soil?")
	if err != nil {
		p.errorf("chat: %v", err)
	} else if reply.Text() == "" {
		p.errorf("chat: empty reply (neither message nor response set)")
	}
	return p
}

// ── Helpers ──

func requireNumbers(p *phase, what string, fields map[string]*float64) {
	for name, v := range fields {
		if v == nil {
			p.errorf("%s: %s missing", what, name)
		}
	}
}

// samplePNG renders a small green square.
func samplePNG() (domain.Image, error) {
	m := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			m.Set(x, y, color.RGBA{G: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return domain.Image{}, err
	}
	return domain.Image{Filename: "sample.png", ContentType: "image/png", Data: buf.Bytes()}, nil
}
