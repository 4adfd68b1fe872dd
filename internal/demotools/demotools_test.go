package demotools

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldane-gis/geocore/internal/gcerr"
	"github.com/haldane-gis/geocore/internal/lidar"
	"github.com/haldane-gis/geocore/internal/raster"
	"github.com/haldane-gis/geocore/internal/toolshell"
)

// writeRaster persists a small grid to dir/name and returns its path.
func writeRaster(t *testing.T, dir, name string, rows [][]float64, nodata float64) string {
	t.Helper()
	cfg := raster.NewDefaultConfigs()
	cfg.Rows, cfg.Columns = len(rows), len(rows[0])
	cfg.ResolutionX, cfg.ResolutionY = 1, 1
	cfg.West, cfg.East = 0, float64(cfg.Columns)
	cfg.South, cfg.North = 0, float64(cfg.Rows)
	cfg.NoData = nodata
	r, err := raster.New(cfg)
	require.NoError(t, err)
	for i, row := range rows {
		require.NoError(t, r.SetRowData(i, row))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, raster.Write(r, path))
	return path
}

func TestConditionalEvaluation(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "in.tif", [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}, -32768)

	args := toolshell.ParseArgs([]string{
		"--input=in.tif", "--statement=value > 4", "--true=1", "--false=0", "--output=out.tif",
	})
	require.NoError(t, ConditionalEvaluation{}.Run(args, dir, false))

	out, err := raster.Open(filepath.Join(dir, "out.tif"), raster.ModeReadFull)
	require.NoError(t, err)
	want := [][]float64{
		{0, 0, 0},
		{0, 1, 1},
		{1, 1, 1},
	}
	for i, row := range want {
		assert.Equal(t, row, out.RowData(i), "row %d", i)
	}
}

func TestConditionalEvaluationSkipsNoData(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "in.tif", [][]float64{
		{-32768, 10},
		{10, -32768},
	}, -32768)

	args := toolshell.ParseArgs([]string{
		"-i=in.tif", "--statement=value > 4", "--true=1", "--false=0", "-o=out.tif",
	})
	require.NoError(t, ConditionalEvaluation{}.Run(args, dir, false))

	out, err := raster.Open(filepath.Join(dir, "out.tif"), raster.ModeReadFull)
	require.NoError(t, err)
	assert.Equal(t, []float64{-32768, 1}, out.RowData(0))
	assert.Equal(t, []float64{1, -32768}, out.RowData(1))
}

func TestConditionalEvaluationBadStatement(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "in.tif", [][]float64{{1}}, -32768)
	args := toolshell.ParseArgs([]string{"-i=in.tif", "--statement=value >", "-o=out.tif"})
	err := ConditionalEvaluation{}.Run(args, dir, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gcerr.ErrInvalidInput))
}

func TestSlopeFlatDEMIsZero(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "dem.tif", [][]float64{
		{5, 5, 5, 5},
		{5, 5, 5, 5},
		{5, 5, 5, 5},
	}, -32768)

	args := toolshell.ParseArgs([]string{"--dem=dem.tif", "--output", "slope"})
	require.NoError(t, Slope{}.Run(args, dir, false))

	out, err := raster.Open(filepath.Join(dir, "slope.tif"), raster.ModeReadFull)
	require.NoError(t, err)
	for row := 0; row < out.Rows(); row++ {
		for col := 0; col < out.Columns(); col++ {
			assert.InDelta(t, 0, out.Value(row, col), 1e-12)
		}
	}
	assert.NotEmpty(t, out.Configs.Metadata)
}

func TestSlopeMissingInput(t *testing.T) {
	err := Slope{}.Run(toolshell.ParseArgs([]string{"--output=slope.tif"}), t.TempDir(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gcerr.ErrInvalidInput))
}

func TestMeanFilterMatchesNaive(t *testing.T) {
	dir := t.TempDir()
	nodata := -1.0
	rows := [][]float64{
		{1, 1, 1},
		{1, nodata, 1},
		{1, 1, 1},
	}
	writeRaster(t, dir, "in.tif", rows, nodata)

	args := toolshell.ParseArgs([]string{"-i=in.tif", "-o=out.tif", "--filterx=3", "--filtery=3"})
	require.NoError(t, MeanFilter{}.Run(args, dir, false))

	out, err := raster.Open(filepath.Join(dir, "out.tif"), raster.ModeReadFull)
	require.NoError(t, err)
	// Every valid cell's 3x3 window means exactly 1.0 (the NoData cell
	// contributes nothing); the NoData centre stays NoData.
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if row == 1 && col == 1 {
				assert.Equal(t, nodata, out.Value(row, col))
				continue
			}
			assert.InDelta(t, 1.0, out.Value(row, col), 1e-12)
		}
	}
}

func TestMeanFilterRejectsEvenKernel(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "in.tif", [][]float64{{1}}, -32768)
	args := toolshell.ParseArgs([]string{"-i=in.tif", "-o=out.tif", "--filterx=4"})
	err := MeanFilter{}.Run(args, dir, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gcerr.ErrInvalidInput))
}

func TestRasterCalculatorDifference(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "a.tif", [][]float64{{10, 20}, {30, 40}}, -32768)
	writeRaster(t, dir, "b.tif", [][]float64{{1, 2}, {3, -32768}}, -32768)

	args := toolshell.ParseArgs([]string{
		"--inputs=a.tif;b.tif", "--statement=value0 - value1", "-o=diff.tif",
	})
	require.NoError(t, RasterCalculator{}.Run(args, dir, false))

	out, err := raster.Open(filepath.Join(dir, "diff.tif"), raster.ModeReadFull)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 18}, out.RowData(0))
	// NoData in either input propagates.
	assert.Equal(t, []float64{27, -32768}, out.RowData(1))
}

func TestRasterCalculatorDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "a.tif", [][]float64{{1, 2}}, -32768)
	writeRaster(t, dir, "b.tif", [][]float64{{1}}, -32768)
	args := toolshell.ParseArgs([]string{"--inputs=a.tif;b.tif", "--statement=value0+value1", "-o=out.tif"})
	err := RasterCalculator{}.Run(args, dir, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gcerr.ErrInvalidInput))
}

// writeLASTile persists points (x, y, z, classification) to dir/name.
func writeLASTile(t *testing.T, dir, name string, points [][4]float64) string {
	t.Helper()
	f := lidar.InitializeUsingFile(&lidar.File{Header: lidar.NewHeader(lidar.Format1)})
	for i, p := range points {
		rec := lidar.Record{
			Format:          lidar.Format1,
			Intensity:       uint16(i),
			ReturnNumber:    1,
			NumberOfReturns: 1,
			Classification:  uint8(p[3]),
			GPSTime:         float64(i),
		}
		require.NoError(t, f.AddPointRecord(rec, p[0], p[1], p[2]))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.Write(path))
	return path
}

func TestFilterLidarNoiseRemovesClassifiedNoise(t *testing.T) {
	dir := t.TempDir()
	points := make([][4]float64, 0, 10)
	for i := 0; i < 10; i++ {
		class := 2.0
		if i == 3 || i == 7 {
			class = 7 // low noise
		}
		points = append(points, [4]float64{float64(i), float64(i), 10 + float64(i), class})
	}
	writeLASTile(t, dir, "tile.las", points)

	args := toolshell.ParseArgs([]string{"-i=tile.las", "-o=clean.las"})
	require.NoError(t, FilterLidarNoise{}.Run(args, dir, false))

	out, err := lidar.Open(filepath.Join(dir, "clean.las"), lidar.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, 8, out.NumberOfPoints())
	assert.Equal(t, uint32(8), out.Header.NumberOfPoints)
	assert.Equal(t, lidar.Format1, out.Header.PointFormat)
	// z-bounds reflect the survivors: points 3 and 7 were interior, so
	// the extremes (z=10 and z=19) survive.
	assert.InDelta(t, 10, out.Header.MinZ, 1e-6)
	assert.InDelta(t, 19, out.Header.MaxZ, 1e-6)
}

func TestFilterLidarNoiseRemovesIsolatedPoints(t *testing.T) {
	dir := t.TempDir()
	writeLASTile(t, dir, "tile.las", [][4]float64{
		{0, 0, 1, 2},
		{0.5, 0.5, 1, 2},
		{100, 100, 1, 2}, // no neighbour within 2.0
	})

	args := toolshell.ParseArgs([]string{"-i=tile.las", "-o=clean.las", "--radius=2.0"})
	require.NoError(t, FilterLidarNoise{}.Run(args, dir, false))

	out, err := lidar.Open(filepath.Join(dir, "clean.las"), lidar.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumberOfPoints())
}

func TestRegisterAll(t *testing.T) {
	reg := toolshell.NewRegistry()
	RegisterAll(reg)
	assert.Equal(t, []string{
		"ConditionalEvaluation", "FilterLidarNoise", "MeanFilter", "RasterCalculator", "Slope",
	}, reg.Names())
}
