package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClockNow(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	got := clock.Now()
	after := time.Now()
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestRealClockSince(t *testing.T) {
	clock := RealClock{}
	start := time.Now().Add(-time.Second)
	assert.GreaterOrEqual(t, clock.Since(start), time.Second)
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := NewMockClock(start)
	require.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())
	assert.Equal(t, 90*time.Second, clock.Since(start))
}

func TestMockClockSet(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	pinned := time.Unix(1_700_000_000, 0)
	clock.Set(pinned)
	assert.Equal(t, pinned, clock.Now())
}

func TestMockClockIsAClock(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = NewMockClock(time.Time{})
}
