package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// MaxImageBytes bounds an uploaded photo.
const MaxImageBytes = 10 << 20

var (
	// ErrImageRequired rejects a submit without a photo.
	ErrImageRequired = errors.New("Please upload an image")
	// ErrImageTooLarge rejects photos over MaxImageBytes.
	ErrImageTooLarge = errors.New("Image must be 10 MB or smaller")
	// ErrNotAnImage rejects uploads that are not PNG or JPEG.
	ErrNotAnImage = errors.New("Only PNG and JPEG images are supported")
)

// DiseaseService is the part of the backend the disease pages use.
type DiseaseService interface {
	ClassifyFruit(ctx context.Context, img domain.Image) (domain.DiseaseResult, error)
	DetectLeaf(ctx context.Context, img domain.Image) (domain.DiseaseResult, error)
}

// Disease classifies a fruit or leaf photo. One controller serves each page.
type Disease struct {
	capability domain.Capability
	classify   func(context.Context, domain.Image) (domain.DiseaseResult, error)
	simulate   func() domain.DiseaseResult
	m          *machine[domain.DiseaseResult]
}

// NewFruitDisease creates the fruit disease page controller.
func NewFruitDisease(svc DiseaseService, deps Deps) *Disease {
	d := &Disease{
		capability: domain.CapabilityFruitDisease,
		classify:   svc.ClassifyFruit,
		m:          newMachine[domain.DiseaseResult](domain.CapabilityFruitDisease, deps),
	}
	if deps.Simulator != nil {
		d.simulate = deps.Simulator.FruitDisease
	}
	return d
}

// NewLeafDisease creates the leaf disease page controller.
func NewLeafDisease(svc DiseaseService, deps Deps) *Disease {
	d := &Disease{
		capability: domain.CapabilityLeafDisease,
		classify:   svc.DetectLeaf,
		m:          newMachine[domain.DiseaseResult](domain.CapabilityLeafDisease, deps),
	}
	if deps.Simulator != nil {
		d.simulate = deps.Simulator.LeafDisease
	}
	return d
}

// Capability reports which page this controller serves.
func (d *Disease) Capability() domain.Capability { return d.capability }

func (d *Disease) Last() Outcome[domain.DiseaseResult] { return d.m.Last() }

// Reset clears the selected photo's result.
func (d *Disease) Reset() { d.m.reset() }

// CheckImage validates an upload before anything is sent.
func CheckImage(img *domain.Image) error {
	if img == nil || len(img.Data) == 0 {
		return ErrImageRequired
	}
	if len(img.Data) > MaxImageBytes {
		return ErrImageTooLarge
	}
	ct := img.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(img.Data)
	}
	ct = strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	switch ct {
	case "image/png", "image/jpeg", "image/jpg":
		return nil
	default:
		return ErrNotAnImage
	}
}

// Submit classifies img. A missing or unusable image is rejected locally
// before any network call.
func (d *Disease) Submit(ctx context.Context, img *domain.Image) Outcome[domain.DiseaseResult] {
	if err := CheckImage(img); err != nil {
		return d.m.reject([]string{err.Error()})
	}
	photo := *img
	return d.m.run(ctx,
		func(ctx context.Context) (domain.DiseaseResult, error) { return d.classify(ctx, photo) },
		d.simulate)
}
