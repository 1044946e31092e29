// Package location holds the single current search origin, persisted across
// sessions with a fixed fallback when nothing valid is stored.
package location

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/storage"
)

// Key is the persisted-state key for the current coordinate.
const Key = "community_location"

// Default is used when no valid coordinate has been persisted. It is never
// written to the store on its own.
var Default = models.Coordinate{Lat: 37.783366, Lng: -122.402325}

// State reads and writes the current search origin.
type State struct {
	store storage.Store
}

// New returns location state backed by the given store.
func New(store storage.Store) *State {
	return &State{store: store}
}

// Load returns the persisted coordinate if present and structurally valid,
// otherwise Default. The default is applied in memory only.
func (s *State) Load() models.Coordinate {
	raw, ok := s.store.Get(Key)
	if !ok {
		return Default
	}

	// Pointer fields distinguish a missing field from a zero value.
	var stored struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.Lat == nil || stored.Lng == nil {
		return Default
	}
	return models.Coordinate{Lat: *stored.Lat, Lng: *stored.Lng}
}

// Save persists the coordinate and returns it. Values are stored as given;
// callers validate with Validate before calling.
func (s *State) Save(lat, lng float64) (models.Coordinate, error) {
	coord := models.Coordinate{Lat: lat, Lng: lng}
	raw, err := json.Marshal(coord)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to encode location: %w", err)
	}
	if err := s.store.Set(Key, string(raw)); err != nil {
		return models.Coordinate{}, err
	}
	return coord, nil
}

// Validate rejects out-of-range coordinates. Callers run it before Save so
// invalid input never reaches the persisted state.
func Validate(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", lng)
	}
	return nil
}

// presets are well-known origins selectable by name instead of coordinates.
var presets = map[string]models.Coordinate{
	"san-francisco": {Lat: 37.783366, Lng: -122.402325},
	"oakland":       {Lat: 37.804363, Lng: -122.271111},
	"san-jose":      {Lat: 37.338208, Lng: -121.886329},
	"new-york":      {Lat: 40.712776, Lng: -74.005974},
	"chicago":       {Lat: 41.878113, Lng: -87.629799},
	"los-angeles":   {Lat: 34.052235, Lng: -118.243683},
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset looks up a preset coordinate by name.
func Preset(name string) (models.Coordinate, bool) {
	c, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Parse reads either a preset name or the "lat,lng" input format and
// validates the result.
func Parse(input string) (lat, lng float64, err error) {
	if c, ok := Preset(input); ok {
		return c.Lat, c.Lng, nil
	}

	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid format %q, expected lat,lng or a preset name", input)
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", parts[0])
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", parts[1])
	}

	if err := Validate(lat, lng); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}
