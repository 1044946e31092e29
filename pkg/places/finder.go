package places

import (
	"context"
	"strconv"
	"strings"

	"github.com/kass/go-resource-finder/pkg/cache"
	"github.com/kass/go-resource-finder/pkg/models"
)

const (
	// MinRadius and MaxRadius bound the search radius in meters.
	MinRadius = 1
	MaxRadius = 10000

	// DefaultRadius is used when the caller supplies none.
	DefaultRadius = 5000
	// DefaultCategory is used when the caller supplies none.
	DefaultCategory = "community services"
)

// categoryTypes maps the human support categories to provider type codes.
// An unrecognized category maps to no filter.
var categoryTypes = map[string]string{
	"food":               "restaurant",
	"shelter":            "lodging",
	"health":             "hospital",
	"education":          "school",
	"legal":              "courthouse",
	"community services": "",
}

// Categories lists the recognized human category names.
func Categories() []string {
	return []string{"food", "shelter", "health", "education", "legal", "community services"}
}

// ResolveCategory maps a human category to the provider type code, empty
// string meaning no filter.
func ResolveCategory(category string) string {
	return categoryTypes[strings.ToLower(strings.TrimSpace(category))]
}

// ClampRadius bounds a radius to the provider's accepted range.
func ClampRadius(radius int) int {
	if radius < MinRadius {
		return MinRadius
	}
	if radius > MaxRadius {
		return MaxRadius
	}
	return radius
}

// Fingerprint derives the cache key for a search. Any parameter difference,
// including a location change, produces a different fingerprint.
func Fingerprint(query string, radius int, placeType string, loc models.Coordinate) string {
	return strings.Join([]string{
		query,
		strconv.Itoa(radius),
		placeType,
		formatFloat(loc.Lat),
		formatFloat(loc.Lng),
	}, "_")
}

// Result is a search outcome. FromCache distinguishes a cache hit from a
// fresh fetch so callers can render the cache status.
type Result struct {
	Places    []models.Place
	FromCache bool
}

// Finder runs searches through the cache and, on a miss, against the
// provider.
type Finder struct {
	client *Client
	cache  *cache.Cache
	creds  *Credentials
}

// NewFinder wires a client, cache and credential surface into a search
// orchestrator.
func NewFinder(client *Client, c *cache.Cache, creds *Credentials) *Finder {
	return &Finder{client: client, cache: c, creds: creds}
}

// Search resolves the category, clamps the radius, and returns the cached
// result set when one is still valid. On a miss it requires a stored API
// key, performs exactly one provider request, caches a successful response
// and returns it. Failures return an empty result with the error; nothing
// is cached on failure.
func (f *Finder) Search(ctx context.Context, query string, radius int, category string, loc models.Coordinate) (Result, error) {
	radius = ClampRadius(radius)
	placeType := ResolveCategory(category)
	fp := Fingerprint(query, radius, placeType, loc)

	if data, ok := f.cache.Read(fp); ok {
		return Result{Places: data, FromCache: true}, nil
	}

	apiKey, ok := f.creds.Get()
	if !ok {
		return Result{Places: []models.Place{}}, ErrMissingAPIKey
	}

	results, err := f.client.FindNearby(ctx, apiKey, loc, radius, placeType)
	if err != nil {
		return Result{Places: []models.Place{}}, err
	}

	if err := f.cache.Write(fp, results); err != nil {
		return Result{Places: results}, err
	}
	return Result{Places: results}, nil
}
