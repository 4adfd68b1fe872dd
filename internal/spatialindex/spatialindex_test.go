package spatialindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchFixedRadiusWorkedExample(t *testing.T) {
	idx := New(1.0, SquaredEuclidean)
	idx.Insert(0, 0, "a")
	idx.Insert(0.5, 0.5, "b")
	idx.Insert(2, 2, "c")

	got := idx.Search(0, 0)
	payloads := map[string]bool{}
	for _, r := range got {
		payloads[r.Payload.(string)] = true
	}
	require.True(t, payloads["a"])
	require.True(t, payloads["b"])
	require.False(t, payloads["c"])
	require.Len(t, got, 2)
}

func TestSearchMembershipMatchesDistanceThreshold(t *testing.T) {
	idx := New(2.5, SquaredEuclidean)
	points := [][2]float64{{0, 0}, {1, 1}, {3, 0}, {-2, -2}, {0.1, 2.4}}
	for i, p := range points {
		idx.Insert(p[0], p[1], i)
	}
	query := [2]float64{0, 0}
	got := idx.Search(query[0], query[1])
	matched := map[int]bool{}
	for _, r := range got {
		matched[r.Payload.(int)] = true
	}
	for i, p := range points {
		dx, dy := p[0]-query[0], p[1]-query[1]
		within := dx*dx+dy*dy <= 2.5*2.5
		require.Equal(t, within, matched[i], "point %d membership mismatch", i)
	}
}

func TestKNNSearchReturnsClosestK(t *testing.T) {
	idx := New(5.0, SquaredEuclidean)
	idx.Insert(0, 0, "origin")
	idx.Insert(1, 0, "near")
	idx.Insert(3, 0, "far")
	idx.Insert(0, 4, "farther")

	got := idx.KNNSearch(0, 0, 2)
	require.Len(t, got, 2)
	require.Equal(t, "origin", got[0].Payload)
	require.Equal(t, "near", got[1].Payload)
}

func TestHaversineMetricUsesGreatCircleDistance(t *testing.T) {
	idx := New(200000, Haversine) // 200km radius
	idx.Insert(-122.42, 37.77, "sf")  // San Francisco
	idx.Insert(-122.27, 37.80, "oak") // Oakland, ~13km away
	idx.Insert(2.35, 48.86, "paris")  // far away

	got := idx.Search(-122.42, 37.77)
	payloads := map[string]bool{}
	for _, r := range got {
		payloads[r.Payload.(string)] = true
	}
	require.True(t, payloads["sf"])
	require.True(t, payloads["oak"])
	require.False(t, payloads["paris"])
}
