package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterPrintsEachPercentOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "Slope", 200, true)
	for i := 0; i < 200; i++ {
		r.Tick()
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// One line per integer percentage 0..100, no repeats.
	require.Len(t, lines, 101)
	assert.Equal(t, "Slope: 0%", lines[0])
	assert.Equal(t, "Slope: 100%", lines[100])
	assert.Equal(t, 200, r.Done())
}

func TestReporterQuietWhenNotVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "Slope", 10, false)
	for i := 0; i < 10; i++ {
		r.Tick()
	}
	r.Println("never shown")
	assert.Empty(t, buf.String())
	assert.Equal(t, 10, r.Done())
}

func TestReporterPrintln(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "Slope", 10, true)
	r.Println("reading input")
	assert.Equal(t, "reading input\n", buf.String())
}
