package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldane-gis/geocore/internal/raster"
)

func writeTestDEM(t *testing.T, dir string) {
	t.Helper()
	cfg := raster.NewDefaultConfigs()
	cfg.Rows, cfg.Columns = 4, 4
	cfg.ResolutionX, cfg.ResolutionY = 1, 1
	cfg.West, cfg.East = 0, 4
	cfg.South, cfg.North = 0, 4
	r, err := raster.New(cfg)
	require.NoError(t, err)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			r.SetValue(row, col, float64(row*4+col))
		}
	}
	require.NoError(t, raster.Write(r, filepath.Join(dir, "dem.tif")))
}

func TestRunSlopeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeTestDEM(t, dir)

	err := run([]string{"-r=Slope", "--wd=" + dir, "--dem=dem.tif", "--output=slope.tif", "--report=summary"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "slope.tif"))
	assert.NoError(t, err, "output raster written")
	_, err = os.Stat(filepath.Join(dir, "geocore.runlog.db"))
	assert.NoError(t, err, "run ledger created")
	_, err = os.Stat(filepath.Join(dir, "summary.html"))
	assert.NoError(t, err, "run summary written")
}

func TestRunUnknownTool(t *testing.T) {
	err := run([]string{"-r=NoSuchTool", "--wd=" + t.TempDir()})
	require.Error(t, err)
}

func TestRunNoToolNamed(t *testing.T) {
	err := run([]string{"--wd=" + t.TempDir()})
	require.Error(t, err)
}

func TestRunVersionAndListTools(t *testing.T) {
	require.NoError(t, run([]string{"-version"}))
	require.NoError(t, run([]string{"--listtools"}))
	require.NoError(t, run([]string{"--toolhelp=Slope"}))
}

func TestRunToolFailureRecordedInLedger(t *testing.T) {
	dir := t.TempDir()
	// Missing --dem: the tool fails but the ledger row still lands.
	err := run([]string{"-r=Slope", "--wd=" + dir, "--output=slope.tif"})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "geocore.runlog.db"))
	assert.NoError(t, statErr)
	// No partial output file on failure.
	_, statErr = os.Stat(filepath.Join(dir, "slope.tif"))
	assert.True(t, os.IsNotExist(statErr))
}
