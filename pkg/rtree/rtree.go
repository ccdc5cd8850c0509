// Package rtree indexes hotspots in an R-Tree so that the grid generator only
// visits the hotspots whose radius of influence can reach a sample point.
package rtree

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/s2"

	"github.com/1F47E/earthgrid/pkg/models"
)

const (
	tolerance   = 1e-9
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// spatialHotspot wraps a hotspot to implement rtreego.Spatial interface.
// order is the hotspot's position in the input slice.
type spatialHotspot struct {
	order int
	rect  *rtreego.Rect
}

func (sh *spatialHotspot) Bounds() *rtreego.Rect {
	return sh.rect
}

// HotspotIndex is a thread-safe R-Tree over an ordered list of hotspots
type HotspotIndex struct {
	tree      *rtreego.Rtree
	hotspots  []models.Hotspot
	mu        sync.RWMutex
	itemCount atomic.Int64
}

// NewHotspotIndex creates an index and indexes the given hotspots in order
func NewHotspotIndex(hotspots []models.Hotspot) (*HotspotIndex, error) {
	idx := &HotspotIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
	if err := idx.IndexHotspots(hotspots); err != nil {
		return nil, err
	}
	return idx, nil
}

// IndexHotspots appends hotspots to the index. Input order is preserved and
// later lookups report candidates in that order.
func (h *HotspotIndex) IndexHotspots(hotspots []models.Hotspot) error {
	for _, hs := range hotspots {
		if err := hs.Validate(); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, hs := range hotspots {
		p := rtreego.Point{hs.Lat, hs.Lon}
		h.tree.Insert(&spatialHotspot{order: len(h.hotspots), rect: p.ToRect(tolerance)})
		h.hotspots = append(h.hotspots, hs)
	}
	h.itemCount.Store(int64(len(h.hotspots)))
	return nil
}

// Within returns the indexes (ascending, i.e. input order) of the hotspots whose
// euclidean degree distance to (lat, lon) is strictly less than radius.
func (h *HotspotIndex) Within(lat, lon, radius float64) []int {
	if radius <= 0 {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.hotspots) == 0 {
		return nil
	}

	bounds, err := rtreego.NewRect(
		rtreego.Point{lat - radius, lon - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return nil
	}

	results := h.tree.SearchIntersect(bounds)
	orders := make([]int, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialHotspot)
		if !ok {
			continue
		}
		hs := h.hotspots[item.order]
		if EuclideanDistance(lat, lon, hs.Lat, hs.Lon) < radius {
			orders = append(orders, item.order)
		}
	}
	sort.Ints(orders)
	return orders
}

// At returns the hotspot at the given input position
func (h *HotspotIndex) At(i int) models.Hotspot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hotspots[i]
}

// QueryBox returns the hotspots inside the viewport, in input order
func (h *HotspotIndex) QueryBox(vp models.Viewport) ([]models.Hotspot, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	bounds, err := rtreego.NewRect(
		rtreego.Point{vp.South, vp.West},
		[]float64{vp.Height(), vp.Width()},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	results := h.tree.SearchIntersect(bounds)
	orders := make([]int, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialHotspot)
		if !ok {
			continue
		}
		// Strict boundary check
		hs := h.hotspots[item.order]
		if vp.Contains(hs.Lat, hs.Lon) {
			orders = append(orders, item.order)
		}
	}
	sort.Ints(orders)

	hotspots := make([]models.Hotspot, len(orders))
	for i, o := range orders {
		hotspots[i] = h.hotspots[o]
	}
	return hotspots, nil
}

// Hotspots returns a copy of the indexed hotspots in input order
func (h *HotspotIndex) Hotspots() []models.Hotspot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Hotspot, len(h.hotspots))
	copy(out, h.hotspots)
	return out
}

// Count returns the number of indexed hotspots
func (h *HotspotIndex) Count() int64 {
	return h.itemCount.Load()
}

// Clear removes all hotspots from the index
func (h *HotspotIndex) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	h.hotspots = nil
	h.itemCount.Store(0)
}

// EuclideanDistance is the planar distance in degree units. It is used for
// hotspot influence, which is deliberately not geodesic.
func EuclideanDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return math.Hypot(lat1-lat2, lon1-lon2)
}

// Distance calculates the great-circle distance between two points in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadius
}
