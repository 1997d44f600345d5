package nominatim

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// RateLimitedSearcher spaces out calls to a PlaceSearcher. The public
// Nominatim instance allows one request per second.
type RateLimitedSearcher struct {
	inner   domain.PlaceSearcher
	limiter *rate.Limiter
}

// NewRateLimitedSearcher allows rps requests per second with a burst of one.
func NewRateLimitedSearcher(inner domain.PlaceSearcher, rps float64) *RateLimitedSearcher {
	return &RateLimitedSearcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (r *RateLimitedSearcher) Search(ctx context.Context, query string) ([]domain.Place, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("place search rate limit: %w", err)
	}
	return r.inner.Search(ctx, query)
}

// New assembles the production searcher: cache in front of the rate limiter
// in front of the HTTP client, so cache hits never wait for a token.
func New(client *Client, rps float64, cacheSize int) *CachedSearcher {
	return NewCachedSearcher(NewRateLimitedSearcher(client, rps), cacheSize, client.metrics)
}
