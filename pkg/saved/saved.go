// Package saved maintains the user's durable shortlist of resources. The
// list is persisted whole under one key, ordered by save time, unique by
// place id.
package saved

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/storage"
)

// Key is the persisted-state key for the saved-resource list.
const Key = "savedResources"

// Store is the saved-resource list. Mutations rewrite the whole persisted
// list; counts are recomputed from it on every call so they cannot drift.
type Store struct {
	kv storage.Store
	mu sync.Mutex
}

// New returns a saved-resource store backed by the given key-value store.
func New(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// List returns the saved resources in save order. A missing or malformed
// persisted list reads as empty.
func (s *Store) List() []models.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() []models.Resource {
	raw, ok := s.kv.Get(Key)
	if !ok {
		return []models.Resource{}
	}
	var list []models.Resource
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []models.Resource{}
	}
	return list
}

func (s *Store) persist(list []models.Resource) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode saved list: %w", err)
	}
	return s.kv.Set(Key, string(raw))
}

// Contains reports whether a place id is already saved.
func (s *Store) Contains(placeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.load() {
		if r.PlaceID == placeID {
			return true
		}
	}
	return false
}

// Count returns the number of saved resources, recomputed from the
// persisted list.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load())
}

// Save looks the place id up among the given search results, normalizes it
// and appends it to the list. Saving an id that is not in the results is a
// no-op reported through ok=false; saving an already-present id is a silent
// no-op that returns the stored record.
func (s *Store) Save(placeID string, results []models.Place) (rec models.Resource, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var source *models.Place
	for i := range results {
		if results[i].PlaceID == placeID {
			source = &results[i]
			break
		}
	}
	if source == nil {
		return models.Resource{}, false, nil
	}

	list := s.load()
	for _, r := range list {
		if r.PlaceID == placeID {
			return r, true, nil
		}
	}

	rec = models.Normalize(*source)
	list = append(list, rec)
	if err := s.persist(list); err != nil {
		return models.Resource{}, false, err
	}
	return rec, true, nil
}

// Remove filters the place id out of the list and persists the result.
// Removing an absent id leaves the list untouched.
func (s *Store) Remove(placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	filtered := make([]models.Resource, 0, len(list))
	for _, r := range list {
		if r.PlaceID != placeID {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == len(list) {
		return nil
	}
	return s.persist(filtered)
}
