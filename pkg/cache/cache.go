// Package cache implements the time-bounded search result cache. Entries are
// keyed by search fingerprint and evicted lazily: an expired entry is deleted
// the next time it is read, there is no background sweep.
package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kass/go-resource-finder/pkg/models"
	"github.com/kass/go-resource-finder/pkg/storage"
)

const (
	// Prefix namespaces cache entries from the other persisted keys.
	Prefix = "communityCache_"

	// TTL is how long a cached result set stays valid.
	TTL = 30 * time.Minute
)

type entry struct {
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
	Data      []models.Place `json:"data"`
}

// Cache maps search fingerprints to result sets with a fixed time-to-live.
type Cache struct {
	store storage.Store
	now   func() time.Time
}

// New returns a cache over the given store using the wall clock.
func New(store storage.Store) *Cache {
	return NewWithClock(store, time.Now)
}

// NewWithClock returns a cache with an injected clock, used by tests to
// control expiry.
func NewWithClock(store storage.Store, now func() time.Time) *Cache {
	return &Cache{store: store, now: now}
}

// Read returns the cached result set for the fingerprint, or false on a
// miss. An entry past its TTL is deleted and reported as a miss; a stored
// value that fails to parse is treated the same way.
func (c *Cache) Read(fingerprint string) ([]models.Place, bool) {
	raw, ok := c.store.Get(Prefix + fingerprint)
	if !ok {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false
	}

	if c.expired(e) {
		c.store.Delete(Prefix + fingerprint)
		return nil, false
	}
	return e.Data, true
}

// Write stores the result set under the fingerprint, stamped with the
// current time, overwriting any prior entry.
func (c *Cache) Write(fingerprint string, data []models.Place) error {
	e := entry{
		Timestamp: c.now().UnixMilli(),
		Data:      data,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.store.Set(Prefix+fingerprint, string(raw))
}

// Purge walks every cache entry and deletes the expired ones, returning how
// many were removed. Lazy eviction only reaps entries that get read again,
// so long-running setups can call this to reclaim space.
func (c *Cache) Purge() (int, error) {
	keys, err := c.store.Keys()
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, Prefix) {
			continue
		}
		raw, ok := c.store.Get(key)
		if !ok {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || c.expired(e) {
			if err := c.store.Delete(key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (c *Cache) expired(e entry) bool {
	age := c.now().UnixMilli() - e.Timestamp
	return age > TTL.Milliseconds()
}
