package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/backend"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
)

func answers() map[string]any {
	return map[string]any{
		backend.PathWeather:        map[string]float64{"temp": 28, "humidity": 65, "rain": 2.5, "wind": 12},
		backend.PathLocationData:   map[string]any{"success": true, "nitrogen": 90, "phosphorus": 42, "potassium": 43, "ph": 6.5, "rainfall": 203},
		backend.PathCropManual:     map[string]any{"success": true, "crop": "rice", "confidence": 91.2},
		backend.PathCropLocation:   map[string]any{"success": true, "crop": "maize"},
		backend.PathYield:          map[string]any{"yield": "3.20 tonnes/hectare"},
		backend.PathStress:         map[string]any{"level": "Moderate"},
		backend.PathSpray:          map[string]any{"is_safe": true, "recommendation": "Safe to spray"},
		backend.PathFertilizer:     map[string]any{"fertilizer": "Urea (Nitrogen)"},
		backend.PathFruitDisease:   map[string]any{"disease": "Apple Scab", "confidence": 92.5},
		backend.PathLeafDisease:    map[string]any{"disease": "Leaf Spot", "confidence": "85.7%"},
		backend.PathChatbotMessage: map[string]any{"response": "Rice grows well in clay."},
	}
}

func newStubClient(t *testing.T, routes map[string]any) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return backend.NewClient(srv.URL, 5*time.Second, logger, observability.NewMetricsForTesting())
}

func TestRun_ConformingBackendPasses(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), &out, newStubClient(t, answers()), true)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All checks passed.")
}

func TestRun_ReportsMissingFields(t *testing.T) {
	routes := answers()
	routes[backend.PathStress] = map[string]any{"level": "Unknown"}
	routes[backend.PathChatbotMessage] = map[string]any{}
	delete(routes, backend.PathYield)

	var out bytes.Buffer
	code := run(context.Background(), &out, newStubClient(t, routes), true)

	require.Equal(t, 1, code)
	assert.Contains(t, out.String(), `stress: level "Unknown"`)
	assert.Contains(t, out.String(), "chat: empty reply")
	assert.Contains(t, out.String(), "yield:")
	assert.Contains(t, out.String(), "Contract check FAILED.")
}

func TestCheckAuth_LoginWithoutUserFails(t *testing.T) {
	routes := answers()
	routes[backend.PathRegister] = map[string]any{"message": "ok"}
	routes[backend.PathLogin] = map[string]any{"message": "Login successful"}

	p := checkAuth(context.Background(), newStubClient(t, routes))
	require.False(t, p.passed())
	assert.Contains(t, p.errors[0], "response has no user")
}

func TestSamplePNG_IsAPNG(t *testing.T) {
	img, err := samplePNG()
	require.NoError(t, err)
	assert.Equal(t, "image/png", http.DetectContentType(img.Data))
}
