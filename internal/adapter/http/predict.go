package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/agri-dashboard/internal/controller"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// formPage is the view data of a prediction page.
type formPage[F, T any] struct {
	Form     F
	Snapshot controller.Snapshot
	Outcome  controller.Outcome[T]
	Alert    string
}

func isReset(r *http.Request) bool { return r.PostFormValue("action") == "reset" }

// --- crop ---

func (h *handlers) cropView(form controller.CropForm, out controller.Outcome[domain.CropResult]) view {
	return view{Title: "Crop Recommendation", Page: "crop", Data: formPage[controller.CropForm, domain.CropResult]{
		Form: form, Snapshot: form.Snapshot, Outcome: out,
	}}
}

func (h *handlers) cropPage(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, http.StatusOK, h.cropView(h.pages.Crop.Form(r.Context()), h.pages.Crop.Last()))
}

func parseCropForm(r *http.Request) controller.CropForm {
	form := controller.CropForm{Mode: controller.CropModeManual}
	if controller.CropMode(r.PostFormValue("mode")) == controller.CropModeMap {
		form.Mode = controller.CropModeMap
	}
	form.Manual = domain.CropInput{
		Nitrogen: formValue(r, "nitrogen"), Phosphorus: formValue(r, "phosphorus"),
		Potassium: formValue(r, "potassium"), Temperature: formValue(r, "temperature"),
		Humidity: formValue(r, "humidity"), PH: formValue(r, "ph"),
		Rainfall: formValue(r, "rainfall"), Ozone: formValue(r, "ozone"),
	}
	form.Location = domain.CropLocationInput{
		Latitude: formValue(r, "latitude"), Longitude: formValue(r, "longitude"),
		Nitrogen: form.Manual.Nitrogen, Phosphorus: form.Manual.Phosphorus,
		Potassium: form.Manual.Potassium, Temperature: form.Manual.Temperature,
		Humidity: form.Manual.Humidity, PH: form.Manual.PH,
		Rainfall: form.Manual.Rainfall, Ozone: form.Manual.Ozone,
	}
	return form
}

func (h *handlers) cropSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if isReset(r) {
		h.show(w, r, http.StatusOK, h.cropView(h.pages.Crop.Reset(ctx), h.pages.Crop.Last()))
		return
	}
	form := parseCropForm(r)
	form.Snapshot = h.pages.Crop.Form(ctx).Snapshot

	if r.PostFormValue("action") == "locate" {
		lat, lng, err := parseCoords(r, "latitude", "longitude")
		if err == nil {
			var loc domain.CropLocationInput
			loc, err = h.pages.Crop.SelectLocation(ctx, lat, lng)
			form.Location = loc
		}
		form.Mode = controller.CropModeMap
		v := h.cropView(form, h.pages.Crop.Last())
		if err != nil {
			v.Alert = err.Error()
		}
		h.show(w, r, http.StatusOK, v)
		return
	}

	out := h.pages.Crop.Submit(ctx, form)
	h.show(w, r, outcomeStatus(out.Status), h.cropView(form, out))
}

// --- yield ---

func (h *handlers) yieldPage(w http.ResponseWriter, r *http.Request) {
	form := h.pages.Yield.Form(r.Context())
	h.show(w, r, http.StatusOK, view{Title: "Yield Prediction", Page: "yield",
		Data: formPage[domain.YieldInput, domain.YieldResult]{Form: form.Input, Snapshot: form.Snapshot, Outcome: h.pages.Yield.Last()}})
}

func (h *handlers) yieldSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if isReset(r) {
		form := h.pages.Yield.Reset(ctx)
		h.show(w, r, http.StatusOK, view{Title: "Yield Prediction", Page: "yield",
			Data: formPage[domain.YieldInput, domain.YieldResult]{Form: form.Input, Snapshot: form.Snapshot, Outcome: h.pages.Yield.Last()}})
		return
	}
	in := domain.YieldInput{
		Crop: formValue(r, "crop"), Area: formValue(r, "area"),
		SoilMoisture: formValue(r, "soilMoisture"), Ozone: formValue(r, "ozone"),
		Temperature: formValue(r, "temperature"), Humidity: formValue(r, "humidity"),
		Rainfall: formValue(r, "rainfall"), Lat: formValue(r, "lat"), Lng: formValue(r, "lng"),
		ManualWeather: checked(r, "manualWeather"),
	}
	out := h.pages.Yield.Submit(ctx, in)
	h.show(w, r, outcomeStatus(out.Status), view{Title: "Yield Prediction", Page: "yield",
		Data: formPage[domain.YieldInput, domain.YieldResult]{Form: in, Snapshot: h.pages.Yield.Form(ctx).Snapshot, Outcome: out}})
}

// --- stress ---

func (h *handlers) stressPage(w http.ResponseWriter, r *http.Request) {
	form := h.pages.Stress.Form(r.Context())
	h.show(w, r, http.StatusOK, view{Title: "Crop Stress", Page: "stress",
		Data: formPage[domain.StressInput, domain.StressResult]{Form: form.Input, Snapshot: form.Snapshot, Outcome: h.pages.Stress.Last()}})
}

func (h *handlers) stressSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if isReset(r) {
		form := h.pages.Stress.Reset(ctx)
		h.show(w, r, http.StatusOK, view{Title: "Crop Stress", Page: "stress",
			Data: formPage[domain.StressInput, domain.StressResult]{Form: form.Input, Snapshot: form.Snapshot, Outcome: h.pages.Stress.Last()}})
		return
	}
	in := domain.StressInput{
		SoilMoisture: formValue(r, "soilMoisture"), Ozone: formValue(r, "ozone"),
		Temperature: formValue(r, "temperature"), Humidity: formValue(r, "humidity"),
		Rainfall: formValue(r, "rainfall"), WindSpeed: formValue(r, "windSpeed"),
		Lat: formValue(r, "lat"), Lng: formValue(r, "lng"),
		ManualWeather: checked(r, "manualWeather"),
	}
	out := h.pages.Stress.Submit(ctx, in)
	h.show(w, r, outcomeStatus(out.Status), view{Title: "Crop Stress", Page: "stress",
		Data: formPage[domain.StressInput, domain.StressResult]{Form: in, Snapshot: h.pages.Stress.Form(ctx).Snapshot, Outcome: out}})
}

// --- fertilizer ---

func (h *handlers) fertilizerPage(w http.ResponseWriter, r *http.Request) {
	form := h.pages.Fertilizer.Form(r.Context())
	h.show(w, r, http.StatusOK, view{Title: "Fertilizer Recommendation", Page: "fertilizer",
		Data: formPage[domain.FertilizerInput, domain.FertilizerResult]{Form: form.Input, Snapshot: form.Snapshot, Outcome: h.pages.Fertilizer.Last()}})
}

func (h *handlers) fertilizerSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if isReset(r) {
		form := h.pages.Fertilizer.Reset(ctx)
		h.show(w, r, http.StatusOK, view{Title: "Fertilizer Recommendation", Page: "fertilizer",
			Data: formPage[domain.FertilizerInput, domain.FertilizerResult]{Form: form.Input, Snapshot: form.Snapshot, Outcome: h.pages.Fertilizer.Last()}})
		return
	}
	in := domain.FertilizerInput{
		Nitrogen: formValue(r, "nitrogen"), Phosphorus: formValue(r, "phosphorus"),
		Potassium: formValue(r, "potassium"), Crop: formValue(r, "crop"),
		SoilMoisture: formValue(r, "soilMoisture"), Temperature: formValue(r, "temperature"),
		Humidity: formValue(r, "humidity"), Rainfall: formValue(r, "rainfall"),
		Lat: formValue(r, "lat"), Lng: formValue(r, "lng"),
		ManualWeather: checked(r, "manualWeather"),
	}
	out := h.pages.Fertilizer.Submit(ctx, in)
	h.show(w, r, outcomeStatus(out.Status), view{Title: "Fertilizer Recommendation", Page: "fertilizer",
		Data: formPage[domain.FertilizerInput, domain.FertilizerResult]{Form: in, Snapshot: h.pages.Fertilizer.Form(ctx).Snapshot, Outcome: out}})
}

// --- spray ---

func (h *handlers) sprayView(form controller.SprayForm, out controller.Outcome[domain.SprayResult], alert string) view {
	return view{Title: "Spray Timing", Page: "spray", Data: formPage[domain.SprayInput, domain.SprayResult]{
		Form: form.Input, Snapshot: form.Snapshot, Outcome: out, Alert: alert,
	}}
}

func (h *handlers) sprayPage(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, http.StatusOK, h.sprayView(h.pages.Spray.Form(r.Context()), h.pages.Spray.Last(), ""))
}

func (h *handlers) spraySubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.PostFormValue("action") {
	case "reset":
		h.show(w, r, http.StatusOK, h.sprayView(h.pages.Spray.Reset(ctx), h.pages.Spray.Last(), ""))
		return
	case "weather":
		lat, lng, err := parseCoords(r, "lat", "lng")
		form := controller.SprayForm{}
		if err == nil {
			form, err = h.pages.Spray.UseCurrentWeather(ctx, lat, lng, formValue(r, "timeOfDay"))
		}
		if err != nil {
			form = h.pages.Spray.Form(ctx)
			h.show(w, r, http.StatusOK, h.sprayView(form, h.pages.Spray.Last(), err.Error()))
			return
		}
		h.show(w, r, http.StatusOK, h.sprayView(form, h.pages.Spray.Last(), ""))
		return
	}
	in := domain.SprayInput{
		Temperature: formValue(r, "temperature"), Humidity: formValue(r, "humidity"),
		WindSpeed: formValue(r, "windSpeed"), Rainfall: formValue(r, "rainfall"),
		TimeOfDay: formValue(r, "timeOfDay"),
	}
	out := h.pages.Spray.Submit(ctx, in)
	form := controller.SprayForm{Input: in, Snapshot: h.pages.Spray.Form(ctx).Snapshot}
	h.show(w, r, outcomeStatus(out.Status), h.sprayView(form, out, ""))
}

// --- disease ---

type diseaseData struct {
	Heading string
	Action  string
	Outcome controller.Outcome[domain.DiseaseResult]
}

func diseaseView(d *controller.Disease, out controller.Outcome[domain.DiseaseResult]) view {
	data := diseaseData{Heading: "Fruit Disease Detection", Action: "/fruit-disease", Outcome: out}
	if d.Capability() == domain.CapabilityLeafDisease {
		data.Heading, data.Action = "Leaf Disease Detection", "/leaf-disease"
	}
	return view{Title: data.Heading, Page: "disease", Data: data}
}

func (h *handlers) diseasePage(d *controller.Disease) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.show(w, r, http.StatusOK, diseaseView(d, d.Last()))
	}
}

func (h *handlers) diseaseSubmit(d *controller.Disease) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, controller.MaxImageBytes+1<<20)
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			h.logger.Warn("parse upload", "error", err)
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			v := diseaseView(d, d.Last())
			v.Alert = "Could not read the upload. Images must be PNG or JPEG, 10 MB or smaller."
			h.show(w, r, status, v)
			return
		}
		if r.PostFormValue("action") == "reset" {
			d.Reset()
			h.show(w, r, http.StatusOK, diseaseView(d, d.Last()))
			return
		}
		img, err := readImage(r)
		if err != nil {
			h.logger.Warn("read upload", "error", err)
		}
		out := d.Submit(r.Context(), img)
		h.show(w, r, outcomeStatus(out.Status), diseaseView(d, out))
	}
}

// readImage returns the uploaded photo, or nil when none was attached.
func readImage(r *http.Request) (*domain.Image, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, controller.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	ct := header.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &domain.Image{Filename: header.Filename, ContentType: ct, Data: data}, nil
}

// --- chat ---

type chatData struct {
	Messages []domain.ChatMessage
	Outcome  controller.Outcome[domain.ChatMessage]
}

func (h *handlers) chatPage(w http.ResponseWriter, r *http.Request) {
	c := h.pages.Chat
	h.show(w, r, http.StatusOK, view{Title: "AI Assistant", Page: "chat", Data: chatData{Messages: c.Messages(), Outcome: c.Last()}})
}

func (h *handlers) chatSend(w http.ResponseWriter, r *http.Request) {
	c := h.pages.Chat
	out := c.Send(r.Context(), r.PostFormValue("message"))
	status := http.StatusOK
	if out.Status == controller.StatusRejected && len(out.Errors) > 0 && out.Errors[0] == controller.ErrChatBusy.Error() {
		status = http.StatusConflict
	}
	h.show(w, r, status, view{Title: "AI Assistant", Page: "chat", Data: chatData{Messages: c.Messages(), Outcome: out}})
}

// outcomeStatus maps a submit outcome to the response code. Degraded pages
// still render normally.
func outcomeStatus(s controller.Status) int {
	if s == controller.StatusRejected {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
