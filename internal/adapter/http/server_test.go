package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/agri-dashboard/internal/adapter/backend"
	httpadapter "github.com/couchcryptid/agri-dashboard/internal/adapter/http"
	"github.com/couchcryptid/agri-dashboard/internal/adapter/kvstore"
	"github.com/couchcryptid/agri-dashboard/internal/controller"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
	"github.com/couchcryptid/agri-dashboard/internal/session"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, readyErr error) *httpadapter.Server {
	t.Helper()
	srv, err := httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, discardLogger())
	require.NoError(t, err)
	return srv
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, fmt.Errorf("backend circuit open"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "backend circuit open", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// fakeBackend serves canned prediction API answers and counts hits per path.
type fakeBackend struct {
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]http.HandlerFunc
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{hits: map[string]int{}, routes: map[string]http.HandlerFunc{}}
}

func (f *fakeBackend) reply(path string, status int, body any) {
	f.routes[path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	h, ok := f.routes[r.URL.Path]
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"detail":"Not Found"}`, http.StatusNotFound)
		return
	}
	h(w, r)
}

type harness struct {
	srv     *httpadapter.Server
	backend *fakeBackend
	session *session.Store
	store   *kvstore.Memory
}

func newHarness(t *testing.T, rehydrate bool) *harness {
	t.Helper()
	fb := newFakeBackend()
	api := httptest.NewServer(fb)
	t.Cleanup(api.Close)

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	client := backend.NewClient(api.URL, 5*time.Second, logger, metrics)
	store := kvstore.NewMemory()
	sess := session.NewStore(client, store, backend.UserMessage, logger, metrics)
	if rehydrate {
		sess.Rehydrate(context.Background())
	}

	deps := controller.Deps{Relay: relay.New(store, time.Hour, logger), Logger: logger, Metrics: metrics}
	pages := &httpadapter.Pages{
		Session:      sess,
		Dashboard:    controller.NewDashboard(client, nil, deps),
		Crop:         controller.NewCrop(client, deps),
		Yield:        controller.NewYield(client, deps),
		Stress:       controller.NewStress(client, deps),
		Fertilizer:   controller.NewFertilizer(client, deps),
		Spray:        controller.NewSpray(client, deps),
		FruitDisease: controller.NewFruitDisease(client, deps),
		LeafDisease:  controller.NewLeafDisease(client, deps),
		Chat:         controller.NewChat(client, deps),
	}
	srv, err := httpadapter.NewServer(":0", client, pages, logger)
	require.NoError(t, err)
	return &harness{srv: srv, backend: fb, session: sess, store: store}
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	user, err := json.Marshal(domain.User{ID: "665f", Name: "Asha Patil", Email: "asha@farm.in"})
	require.NoError(t, err)
	require.NoError(t, h.store.Set(context.Background(), domain.KeyUser, string(user)))
	h.session.Rehydrate(context.Background())
	require.True(t, h.session.IsAuthenticated())
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (h *harness) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

var protectedPaths = []string{
	"/dashboard", "/crop", "/yield", "/fertilizer", "/stress", "/spray",
	"/fruit-disease", "/leaf-disease", "/chat",
}

func TestRootRedirectsToLogin(t *testing.T) {
	h := newHarness(t, true)

	rec := h.get("/")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestProtectedRoutes_AnonymousRedirectsToLogin(t *testing.T) {
	h := newHarness(t, true)

	for _, path := range protectedPaths {
		t.Run(path, func(t *testing.T) {
			rec := h.get(path)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
			assert.NotContains(t, rec.Body.String(), "<form")
		})
	}
}

func TestProtectedRoutes_WaitForRehydration(t *testing.T) {
	h := newHarness(t, false)

	rec := h.get("/dashboard")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestLogin_SuccessOpensDashboard(t *testing.T) {
	h := newHarness(t, true)
	h.backend.reply(backend.PathLogin, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    map[string]any{"id": "665f", "name": "Asha Patil", "email": "asha@farm.in"},
	})

	rec := h.post("/login", url.Values{"email": {"asha@farm.in"}, "password": {"secret1"}})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	user, ok := h.session.CurrentUser(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Asha Patil", user.Name)

	page := h.get("/dashboard")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Asha Patil")
}

func TestLogin_InvalidCredentialsShowMessage(t *testing.T) {
	h := newHarness(t, true)
	h.backend.reply(backend.PathLogin, http.StatusUnauthorized, map[string]any{"detail": "Invalid email or password"})

	rec := h.post("/login", url.Values{"email": {"asha@farm.in"}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.False(t, h.session.IsAuthenticated())
}

func TestRegister_RedirectsToLoginWithNotice(t *testing.T) {
	h := newHarness(t, true)
	h.backend.reply(backend.PathRegister, http.StatusOK, map[string]any{"message": "Registered. Please login to continue."})

	rec := h.post("/register", url.Values{
		"name": {"Asha Patil"}, "email": {"asha@farm.in"},
		"password": {"secret1"}, "confirmPassword": {"secret1"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "Registered. Please login to continue.", loc.Query().Get("notice"))
	assert.False(t, h.session.IsAuthenticated())
}

func TestRegister_PasswordMismatchMakesNoCall(t *testing.T) {
	h := newHarness(t, true)

	rec := h.post("/register", url.Values{
		"name": {"Asha"}, "email": {"asha@farm.in"},
		"password": {"secret1"}, "confirmPassword": {"secret2"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")
	assert.Zero(t, h.backend.count(backend.PathRegister))
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)

	rec := h.post("/logout", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, h.session.IsAuthenticated())
	assert.Equal(t, http.StatusSeeOther, h.get("/dashboard").Code)
}

func TestDashboard_FetchWeatherRendersCardAndPrefillsPages(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)
	h.backend.reply(backend.PathWeather, http.StatusOK, map[string]any{"temp": 31.5, "humidity": 70, "rain": 0, "wind": 8.2})

	rec := h.post("/dashboard/weather", url.Values{"lat": {"18.52"}, "lng": {"73.85"}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Current conditions at 18.5200, 73.8500")
	assert.Contains(t, body, "31.5")
	assert.Contains(t, body, "openstreetmap.org")

	yield := h.get("/yield").Body.String()
	assert.Contains(t, yield, `name="temperature" value="31.5"`)
	assert.Contains(t, yield, `name="humidity" value="70"`)
	assert.Contains(t, yield, `name="crop" value=""`)
}

func TestDashboard_BadCoordinatesAlert(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)

	rec := h.post("/dashboard/weather", url.Values{"lat": {"north"}, "lng": {"73.85"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Latitude must be a number")
	assert.Zero(t, h.backend.count(backend.PathWeather))
}

func TestSpray_RendersResult(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)
	h.backend.reply(backend.PathSpray, http.StatusOK, map[string]any{
		"is_safe": true, "recommendation": "Safe to spray - conditions are favorable",
		"best_time": "Early morning", "factors": map[string]string{"wind": "Favorable"},
	})

	rec := h.post("/spray", url.Values{
		"temperature": {"28"}, "humidity": {"60"}, "windSpeed": {"8"}, "rainfall": {"0"}, "timeOfDay": {"Early morning"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Safe to spray - conditions are favorable")
	assert.Contains(t, body, "wind: Favorable")
	assert.NotContains(t, body, "Service unavailable")
}

func TestSpray_TimeOfDaySelect(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)
	h.backend.reply(backend.PathSpray, http.StatusOK, map[string]any{"is_safe": true, "recommendation": "ok"})
	readings := url.Values{"temperature": {"22.5"}, "humidity": {"64"}, "windSpeed": {"7.5"}, "rainfall": {"0"}}

	readings.Set("timeOfDay", "Evening (5-7 PM)")
	rec := h.post("/spray", readings)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="Evening (5-7 PM)" selected>Evening (5-7 PM)</option>`)
	assert.Equal(t, 1, h.backend.count(backend.PathSpray))

	readings.Set("timeOfDay", "midnight")
	rec = h.post("/spray", readings)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "TimeOfDay must be one of")
	assert.Equal(t, 1, h.backend.count(backend.PathSpray))
}

func TestStress_BackendFailureShowsDegradedBanner(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)
	h.backend.reply(backend.PathStress, http.StatusInternalServerError, map[string]any{"detail": "Model not loaded"})

	rec := h.post("/stress", url.Values{"soilMoisture": {"0.3"}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Service unavailable")
	assert.Contains(t, body, "Model not loaded")
	assert.NotContains(t, body, "Stress level:")
}

func TestYield_ValidationErrorsMakeNoCall(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)

	rec := h.post("/yield", url.Values{"crop": {"rice"}, "area": {"-4"}, "soilMoisture": {"0.3"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Area must be between 0 and 100000")
	assert.Zero(t, h.backend.count(backend.PathYield))
}

func TestCrop_UnsuccessfulResponseIsShown(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)
	h.backend.reply(backend.PathCropManual, http.StatusOK, map[string]any{"success": false, "message": "Model not loaded"})

	rec := h.post("/crop", url.Values{
		"mode": {"manual"}, "nitrogen": {"90"}, "phosphorus": {"42"}, "potassium": {"43"},
		"temperature": {"20.8"}, "humidity": {"82"}, "ph": {"6.5"}, "rainfall": {"202.9"},
	})

	body := rec.Body.String()
	assert.Contains(t, body, "Model not loaded")
	assert.NotContains(t, body, "Recommended crop:")
}

func multipartUpload(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDisease_WithoutImageRejectedLocally(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)

	rec := h.do(multipartUpload(t, "/leaf-disease", "", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload an image")
	assert.Zero(t, h.backend.count(backend.PathLeafDisease))
}

func TestDisease_UploadRendersDiagnosis(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)
	h.backend.routes[backend.PathFruitDisease] = func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("image")
		if assert.NoError(t, err) {
			defer file.Close()
			assert.Equal(t, "apple.png", header.Filename)
			assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"disease":"Apple Scab","confidence":"92.5%","severity":"Moderate"}`)
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	rec := h.do(multipartUpload(t, "/fruit-disease", "apple.png", png))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Apple Scab")
	assert.Contains(t, body, "Severity: Moderate")
}

func TestChat_SendShowsTranscript(t *testing.T) {
	h := newHarness(t, true)
	h.signIn(t)
	h.backend.reply(backend.PathChatbotMessage, http.StatusOK, map[string]any{"response": "Rotate with legumes."})

	rec := h.post("/chat", url.Values{"message": {"How do I restore nitrogen?"}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "How do I restore nitrogen?")
	assert.Contains(t, body, "Rotate with legumes.")
	assert.Contains(t, body, "Smart Agri AI Assistant")
}
