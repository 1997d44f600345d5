package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/agri-dashboard/internal/controller"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/relay"
	"github.com/couchcryptid/agri-dashboard/internal/search"
)

type handlers struct {
	pages  *Pages
	views  *renderer
	logger *slog.Logger
}

func (h *handlers) mount(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	r.Get("/login", h.loginPage)
	r.Post("/login", h.login)
	r.Get("/register", h.registerPage)
	r.Post("/register", h.register)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/dashboard", h.dashboard)
		r.Post("/dashboard/weather", h.fetchWeather)
		r.Get("/dashboard/search", h.search)
		r.Post("/dashboard/select", h.selectPlace)
		r.Post("/relay/clear", h.clearRelay)

		r.Get("/crop", h.cropPage)
		r.Post("/crop", h.cropSubmit)
		r.Get("/yield", h.yieldPage)
		r.Post("/yield", h.yieldSubmit)
		r.Get("/stress", h.stressPage)
		r.Post("/stress", h.stressSubmit)
		r.Get("/fertilizer", h.fertilizerPage)
		r.Post("/fertilizer", h.fertilizerSubmit)
		r.Get("/spray", h.sprayPage)
		r.Post("/spray", h.spraySubmit)
		r.Get("/fruit-disease", h.diseasePage(h.pages.FruitDisease))
		r.Post("/fruit-disease", h.diseaseSubmit(h.pages.FruitDisease))
		r.Get("/leaf-disease", h.diseasePage(h.pages.LeafDisease))
		r.Post("/leaf-disease", h.diseaseSubmit(h.pages.LeafDisease))
		r.Get("/chat", h.chatPage)
		r.Post("/chat", h.chatSend)
	})
}

// requireSession guards the dashboard pages. While the session is still
// being restored the request is refused; once it is known to be anonymous
// the visitor is sent to the login page without any page content.
func (h *handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := h.pages.Session
		if s.Loading() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "session is loading", http.StatusServiceUnavailable)
			return
		}
		if !s.IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handlers) show(w http.ResponseWriter, r *http.Request, status int, v view) {
	if u, ok := h.pages.Session.User(); ok {
		v.User = &u
	}
	if v.Notice == "" {
		v.Notice = r.URL.Query().Get("notice")
	}
	if err := h.views.render(w, status, v); err != nil {
		h.logger.Error("render page", "page", v.Page, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func seeOther(w http.ResponseWriter, r *http.Request, path, notice string) {
	if notice != "" {
		path += "?" + url.Values{"notice": {notice}}.Encode()
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

func checked(r *http.Request, key string) bool {
	switch r.PostFormValue(key) {
	case "on", "true", "1":
		return true
	}
	return false
}

func parseCoords(r *http.Request, latKey, lngKey string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(formValue(r, latKey), 64)
	if err != nil {
		return 0, 0, errors.New("Latitude must be a number")
	}
	lng, err := strconv.ParseFloat(formValue(r, lngKey), 64)
	if err != nil {
		return 0, 0, errors.New("Longitude must be a number")
	}
	return lat, lng, nil
}

// --- session ---

type authData struct {
	Email  string
	Name   string
	Errors []string
}

func (h *handlers) loginPage(w http.ResponseWriter, r *http.Request) {
	if h.pages.Session.IsAuthenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.show(w, r, http.StatusOK, view{Title: "Login", Page: "login", Data: authData{}})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	creds := domain.Credentials{Email: formValue(r, "email"), Password: r.PostFormValue("password")}
	res := h.pages.Session.Login(r.Context(), creds)
	if res.Success {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.show(w, r, http.StatusUnauthorized, view{
		Title: "Login", Page: "login", Alert: res.Message,
		Data: authData{Email: creds.Email},
	})
}

func (h *handlers) registerPage(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, http.StatusOK, view{Title: "Register", Page: "register", Data: authData{}})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	data := authData{Name: formValue(r, "name"), Email: formValue(r, "email")}
	password := r.PostFormValue("password")
	if password != r.PostFormValue("confirmPassword") {
		data.Errors = []string{"Passwords do not match"}
		h.show(w, r, http.StatusUnprocessableEntity, view{Title: "Register", Page: "register", Data: data})
		return
	}
	res := h.pages.Session.Register(r.Context(), domain.Registration{Name: data.Name, Email: data.Email, Password: password})
	if res.Success {
		seeOther(w, r, "/login", res.Message)
		return
	}
	h.show(w, r, http.StatusUnprocessableEntity, view{Title: "Register", Page: "register", Alert: res.Message, Data: data})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.pages.Session.Logout(r.Context()); err != nil {
		h.logger.Warn("logout", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// --- dashboard ---

type dashboardData struct {
	Snapshot controller.Snapshot
	Outcome  controller.Outcome[relay.Record]
	Query    string
	Places   []domain.Place
	Searched bool
}

func (h *handlers) dashboardView(r *http.Request, data dashboardData) view {
	data.Snapshot = h.pages.Dashboard.Current(r.Context())
	return view{Title: "Dashboard", Page: "dashboard", Data: data}
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, http.StatusOK, h.dashboardView(r, dashboardData{Outcome: h.pages.Dashboard.Last()}))
}

func (h *handlers) fetchWeather(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseCoords(r, "lat", "lng")
	if err != nil {
		v := h.dashboardView(r, dashboardData{Outcome: h.pages.Dashboard.Last()})
		v.Alert = err.Error()
		h.show(w, r, http.StatusUnprocessableEntity, v)
		return
	}
	out := h.pages.Dashboard.FetchWeather(r.Context(), lat, lng)
	h.show(w, r, http.StatusOK, h.dashboardView(r, dashboardData{Outcome: out}))
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	places, err := h.pages.Dashboard.Search(r.Context(), q)
	if errors.Is(err, search.ErrSuperseded) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	data := dashboardData{Outcome: h.pages.Dashboard.Last(), Query: q, Places: places, Searched: true}
	v := h.dashboardView(r, data)
	switch {
	case err != nil:
		h.logger.Warn("place search", "query", q, "error", err)
		v.Alert = "Location search failed. Please try again."
	case len([]rune(q)) < search.MinQueryLength:
		v.Notice = "Type at least 3 characters to search"
	}
	h.show(w, r, http.StatusOK, v)
}

func (h *handlers) selectPlace(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseCoords(r, "lat", "lon")
	if err != nil {
		v := h.dashboardView(r, dashboardData{Outcome: h.pages.Dashboard.Last()})
		v.Alert = err.Error()
		h.show(w, r, http.StatusUnprocessableEntity, v)
		return
	}
	out := h.pages.Dashboard.SelectPlace(r.Context(), domain.Place{Lat: lat, Lon: lng, DisplayName: formValue(r, "name")})
	h.show(w, r, http.StatusOK, h.dashboardView(r, dashboardData{Outcome: out}))
}

func (h *handlers) clearRelay(w http.ResponseWriter, r *http.Request) {
	if err := h.pages.Dashboard.Clear(r.Context()); err != nil {
		h.logger.Warn("clear snapshot", "error", err)
		v := h.dashboardView(r, dashboardData{})
		v.Alert = "Could not clear the saved weather."
		h.show(w, r, http.StatusInternalServerError, v)
		return
	}
	seeOther(w, r, "/dashboard", "Saved weather cleared")
}
