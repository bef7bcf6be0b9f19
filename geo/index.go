package geo

import (
	"regexp"
	"sort"
	"sync"
)

// Located is implemented by anything SpatialIndex can place on the map:
// domain.Camera and domain.WeatherStation both satisfy it.
type Located interface {
	Lat() float64
	Lon() float64
	Label() string
}

// roadTokenRE extracts road-number-like tokens from a camera name, per
// spec.md §4.3's road-affinity heuristic.
var roadTokenRE = regexp.MustCompile(`\b(E\d+|RV\d+|LV\d+|VÄG\d+|LÄN\d+)\b`)

// Index is an in-memory snapshot of cameras or weather stations. The whole
// slice is swapped atomically on each sync (spec.md §5's "Shared mutable
// state" rule), so readers never observe a torn update.
type Index[T Located] struct {
	mu    sync.RWMutex
	items []T
}

// NewIndex returns an empty index.
func NewIndex[T Located]() *Index[T] {
	return &Index[T]{}
}

// Replace swaps the entire candidate set in one atomic step.
func (idx *Index[T]) Replace(items []T) {
	idx.mu.Lock()
	idx.items = items
	idx.mu.Unlock()
}

// Snapshot returns a copy of the current candidate slice.
func (idx *Index[T]) Snapshot() []T {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]T, len(idx.items))
	copy(out, idx.items)
	return out
}

type candidate[T Located] struct {
	item     T
	distance float64
}

// Nearby implements spec.md §4.3: filter to distance <= maxKM, apply the
// camera-only road-affinity heuristic when targetRoad is non-empty, sort
// ascending by distance (stable among ties), and take limit results.
//
// roadAffinity should be true only when called for cameras; weather
// stations have no road-token filtering.
func (idx *Index[T]) Nearby(lat, lon float64, targetRoad string, roadAffinity bool, maxKM float64, limit int) []T {
	items := idx.Snapshot()

	candidates := make([]candidate[T], 0, len(items))
	for _, item := range items {
		d := HaversineKM(lat, lon, item.Lat(), item.Lon())
		if d > maxKM {
			continue
		}
		if roadAffinity && targetRoad != "" && !roadAffinityOK(item.Label(), targetRoad) {
			continue
		}
		candidates = append(candidates, candidate[T]{item: item, distance: d})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]T, len(candidates))
	for i, c := range candidates {
		out[i] = c.item
	}
	return out
}

// roadAffinityOK implements: if the candidate mentions road tokens and none
// of them equals target, reject; candidates mentioning no road tokens are
// kept.
func roadAffinityOK(label, target string) bool {
	tokens := roadTokenRE.FindAllString(label, -1)
	if len(tokens) == 0 {
		return true
	}
	for _, t := range tokens {
		if t == target {
			return true
		}
	}
	return false
}
