package domain

import "context"

// Place is a geocoding search hit.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// PlaceSearcher resolves free-text queries to candidate places.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) ([]Place, error)
}
