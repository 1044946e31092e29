// Package places talks to the remote place-lookup provider and orchestrates
// searches through the expiring cache: identical searches within the cache
// window never reach the network.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/storage"
)

const (
	// DefaultBaseURL is the TrueWay Places nearby-search endpoint.
	DefaultBaseURL = "https://trueway-places.p.rapidapi.com/FindPlacesNearby"
	// DefaultHost is the RapidAPI host header value for the endpoint.
	DefaultHost = "trueway-places.p.rapidapi.com"

	// APIKeyKey is the persisted-state key holding the credential.
	APIKeyKey = "truewayApiKey"
)

// ErrMissingAPIKey is returned when a search reaches the network step with
// no stored credential. No request is attempted.
var ErrMissingAPIKey = errors.New("missing API key")

// ErrFetchFailed wraps transport failures and non-success responses from
// the provider.
var ErrFetchFailed = errors.New("fetch failed")

// Client issues nearby-search requests against the provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
}

// NewClient returns a client for the given endpoint. Empty arguments fall
// back to the TrueWay defaults.
func NewClient(baseURL, host string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		host:       host,
	}
}

// FindNearby performs one GET against the provider and returns the raw
// place records. A missing results field decodes as an empty list.
func (c *Client) FindNearby(ctx context.Context, apiKey string, loc models.Coordinate, radius int, placeType string) ([]models.Place, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("location", formatFloat(loc.Lat)+","+formatFloat(loc.Lng))
	q.Set("radius", strconv.Itoa(radius))
	if placeType != "" {
		q.Set("type", placeType)
	}
	q.Set("language", "en")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var payload struct {
		Results []models.Place `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if payload.Results == nil {
		payload.Results = []models.Place{}
	}
	return payload.Results, nil
}

// Credentials is the credential surface exposed to the UI: one opaque key,
// persisted standalone, validated only for non-emptiness.
type Credentials struct {
	store storage.Store
}

// NewCredentials returns the credential surface over the given store.
func NewCredentials(store storage.Store) *Credentials {
	return &Credentials{store: store}
}

// Set stores the API key. An empty key is rejected.
func (c *Credentials) Set(key string) error {
	if key == "" {
		return errors.New("API key cannot be empty")
	}
	return c.store.Set(APIKeyKey, key)
}

// Get returns the stored API key, if any.
func (c *Credentials) Get() (string, bool) {
	key, ok := c.store.Get(APIKeyKey)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Clear deletes the stored API key.
func (c *Credentials) Clear() error {
	return c.store.Delete(APIKeyKey)
}

// formatFloat renders a coordinate the way fingerprints and query strings
// expect: shortest representation that round-trips.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
