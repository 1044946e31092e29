// Package geoindex provides an R-Tree index over saved resources for
// nearby filtering and nearest-first listings.
package geoindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/go-resource-finder/pkg/models"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// spatialItem wraps a resource to implement rtreego.Spatial
type spatialItem struct {
	resource models.Resource
	rect     *rtreego.Rect
}

func (si *spatialItem) Bounds() *rtreego.Rect {
	return si.rect
}

// Index is a thread-safe R-Tree over saved resources.
type Index struct {
	tree *rtreego.Rtree
	mu   sync.RWMutex
	size int
}

// New creates an empty index.
func New() *Index {
	return &Index{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// Build creates an index holding the given resources. Resources without a
// coordinate are skipped.
func Build(resources []models.Resource) *Index {
	idx := New()
	idx.Insert(resources)
	return idx
}

// Insert adds resources to the index, skipping ones without a coordinate.
func (idx *Index) Insert(resources []models.Resource) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, r := range resources {
		if r.Lat == 0 && r.Lng == 0 {
			continue
		}
		p := rtreego.Point{r.Lat, r.Lng}
		idx.tree.Insert(&spatialItem{resource: r, rect: p.ToRect(tolerance)})
		idx.size++
	}
}

// Size returns the number of indexed resources.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.size
}

// Hit is a resource with its distance from the query center.
type Hit struct {
	Resource   models.Resource
	DistanceKm float64
}

// Near returns the resources within radiusKm of the center, nearest first.
func (idx *Index) Near(center models.Coordinate, radiusKm float64) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// Convert radius to degrees (approximation) for the initial box filter.
	deg := (radiusKm / earthRadius) * (180 / math.Pi)
	bounds, err := rtreego.NewRect(
		rtreego.Point{center.Lat - deg, center.Lng - deg},
		[]float64{2 * deg, 2 * deg},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid radius search: %w", err)
	}

	results := idx.tree.SearchIntersect(bounds)

	// Filter by actual distance.
	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok {
			continue
		}
		dist := Distance(center.Lat, center.Lng, item.resource.Lat, item.resource.Lng)
		if dist <= radiusKm {
			hits = append(hits, Hit{Resource: item.resource, DistanceKm: dist})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].DistanceKm < hits[j].DistanceKm })
	return hits, nil
}

// Nearest returns the n resources closest to the center, nearest first.
func (idx *Index) Nearest(center models.Coordinate, n int) []Hit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryPoint := rtreego.Point{center.Lat, center.Lng}
	results := idx.tree.NearestNeighbors(n, queryPoint)

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			Resource:   item.resource,
			DistanceKm: Distance(center.Lat, center.Lng, item.resource.Lat, item.resource.Lng),
		})
	}
	return hits
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lng1Rad := lng1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lng2Rad := lng2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLng := lng2Rad - lng1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
