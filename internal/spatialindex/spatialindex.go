// Package spatialindex implements the fixed-radius 2D search structure
// used to turn scattered LiDAR returns into neighbourhood queries: a
// hashed-cell grid keyed by floor(x/r), floor(y/r) with a pluggable
// distance metric.
package spatialindex

import (
	"math"
	"sort"
)

// Metric selects how distance between two (x,y) points is measured.
type Metric int

const (
	SquaredEuclidean Metric = iota
	Haversine
)

const earthRadiusMeters = 6371000.0

// degreesPerMeter approximates how many degrees of latitude/longitude
// correspond to one meter at the equator, used only to size buckets for
// the Haversine metric (whose coordinates are lon/lat degrees but whose
// configured radius is a ground distance in meters); the final
// inclusion test always uses the exact Haversine distance regardless.
const degreesPerMeter = 1.0 / 111320.0

// Entry is one inserted point: its coordinates, an optional third
// ordinate for consumers that layer a z/time filter on top of the 2D
// candidate set, and a payload.
type Entry struct {
	X, Y, Z float64
	Payload any
}

// Result pairs a matched Entry with the squared distance (per the
// configured metric) from the query point.
type Result struct {
	Entry
	SquaredDistance float64
}

type bucketKey struct{ bx, by int64 }

// Index is the append-only hashed-cell spatial index. It must be fully
// built (every Insert complete) before concurrent readers call
// Search/KNNSearch; it performs no internal locking.
type Index struct {
	radius  float64
	metric  Metric
	buckets map[bucketKey][]Entry
}

// New creates an index with the given search radius and distance metric.
func New(radius float64, metric Metric) *Index {
	return &Index{radius: radius, metric: metric, buckets: make(map[bucketKey][]Entry)}
}

func (idx *Index) bucketSize() float64 {
	if idx.metric == Haversine {
		return idx.radius * degreesPerMeter
	}
	return idx.radius
}

func (idx *Index) bucketFor(x, y float64) bucketKey {
	size := idx.bucketSize()
	return bucketKey{
		bx: int64(math.Floor(x / size)),
		by: int64(math.Floor(y / size)),
	}
}

// Insert adds a 2D point with payload.
func (idx *Index) Insert(x, y float64, payload any) {
	idx.InsertZ(x, y, 0, payload)
}

// InsertZ adds a point carrying an optional third ordinate (see Entry.Z).
func (idx *Index) InsertZ(x, y, z float64, payload any) {
	key := idx.bucketFor(x, y)
	idx.buckets[key] = append(idx.buckets[key], Entry{X: x, Y: y, Z: z, Payload: payload})
}

func (idx *Index) squaredDistance(x1, y1, x2, y2 float64) float64 {
	if idx.metric == Haversine {
		d := haversineMeters(x1, y1, x2, y2)
		return d * d
	}
	dx, dy := x2-x1, y2-y1
	return dx*dx + dy*dy
}

func haversineMeters(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// neighborEntries gathers every entry in the 9 buckets surrounding (x,y).
func (idx *Index) neighborEntries(x, y float64) []Entry {
	center := idx.bucketFor(x, y)
	var out []Entry
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			out = append(out, idx.buckets[bucketKey{bx: center.bx + dx, by: center.by + dy}]...)
		}
	}
	return out
}

// Search returns every entry within the configured radius of (x,y), with
// its squared distance under the configured metric.
func (idx *Index) Search(x, y float64) []Result {
	threshold := idx.radius * idx.radius
	var results []Result
	for _, e := range idx.neighborEntries(x, y) {
		d2 := idx.squaredDistance(x, y, e.X, e.Y)
		if d2 <= threshold {
			results = append(results, Result{Entry: e, SquaredDistance: d2})
		}
	}
	return results
}

// KNNSearch scans the 9 buckets surrounding (x,y) and returns the k
// closest entries by distance, regardless of the configured radius.
func (idx *Index) KNNSearch(x, y float64, k int) []Result {
	candidates := idx.neighborEntries(x, y)
	results := make([]Result, len(candidates))
	for i, e := range candidates {
		results[i] = Result{Entry: e, SquaredDistance: idx.squaredDistance(x, y, e.X, e.Y)}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SquaredDistance < results[j].SquaredDistance })
	if k < len(results) {
		results = results[:k]
	}
	return results
}
