package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"login", "register", "dashboard", "crop", "yield", "stress",
	"fertilizer", "spray", "disease", "chat",
}

var funcs = template.FuncMap{
	"num": domain.FormatFloat,
	"mapURL": func(lat, lng *float64) string {
		if lat == nil || lng == nil {
			return ""
		}
		return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.4f&mlon=%.4f#map=12/%.4f/%.4f", *lat, *lng, *lat, *lng)
	},
	"timeSlots": func() []string { return domain.SprayTimeSlots },
	"fixed":     func(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) },
	"field": func(name, label, value string) fieldView {
		return fieldView{Name: name, Label: label, Value: value, Type: "text"}
	},
	"dict": dict,
}

type fieldView struct {
	Name  string
	Label string
	Value string
	Type  string
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		out[key] = kv[i+1]
	}
	return out, nil
}

// renderer holds one parsed template set per page: layout, shared
// components and the page body.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/components.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s.html: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// view is the data every page template receives.
type view struct {
	Title  string
	Page   string
	User   *domain.User
	Notice string
	Alert  string
	Data   any
}

func (r *renderer) render(w http.ResponseWriter, status int, v view) error {
	t, ok := r.pages[v.Page]
	if !ok {
		return fmt.Errorf("no template for page %q", v.Page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return fmt.Errorf("render %s: %w", v.Page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
