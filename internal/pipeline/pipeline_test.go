package pipeline

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldane-gis/geocore/internal/gcerr"
	"github.com/haldane-gis/geocore/internal/raster"
	"github.com/haldane-gis/geocore/internal/timeutil"
)

func demRaster(t *testing.T, rows, cols int) *raster.Raster {
	t.Helper()
	cfg := raster.NewDefaultConfigs()
	cfg.Rows, cfg.Columns = rows, cols
	cfg.ResolutionX, cfg.ResolutionY = 1, 1
	cfg.West, cfg.East = 0, float64(cols)
	cfg.South, cfg.North = 0, float64(rows)
	cfg.NoData = -9999
	r, err := raster.New(cfg)
	require.NoError(t, err)
	n := 0.0
	for row := 0; row < rows; row++ {
		vals := make([]float64, cols)
		for col := range vals {
			vals[col] = n
			n += 0.5
		}
		require.NoError(t, r.SetRowData(row, vals))
	}
	return r
}

// neighbourSum is a pure per-row computation:
// out(r,c) = sum of the 8 neighbours of (r,c), NoData-excluded.
func neighbourSum(in *raster.Raster) RowFunc {
	nodata := in.NoData()
	return func(row int) ([]float64, error) {
		out := make([]float64, in.Columns())
		for col := range out {
			sum := 0.0
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					if v := in.Value(row+dr, col+dc); v != nodata {
						sum += v
					}
				}
			}
			out[col] = sum
		}
		return out, nil
	}
}

func TestRunDeterministicAcrossWorkerCounts(t *testing.T) {
	in := demRaster(t, 37, 23)

	outputs := make([]*raster.Raster, 0, 2)
	for _, workers := range []int{1, runtime.NumCPU()} {
		out, err := raster.InitializeUsingFile(in)
		require.NoError(t, err)
		require.NoError(t, RunRaster(Config{Workers: workers}, out, neighbourSum(in)))
		outputs = append(outputs, out)
	}

	for row := 0; row < in.Rows(); row++ {
		assert.Equal(t, outputs[0].RowData(row), outputs[1].RowData(row), "row %d", row)
	}
}

func TestRunLandsEveryRowExactlyOnce(t *testing.T) {
	const rows = 101
	seen := make([]int, rows)
	_, err := Run(Config{Workers: 7}, rows, func(row int) ([]float64, error) {
		return []float64{float64(row)}, nil
	}, func(row int, data []float64) error {
		seen[row]++
		require.Equal(t, float64(row), data[0])
		return nil
	})
	require.NoError(t, err)
	for row, n := range seen {
		assert.Equal(t, 1, n, "row %d", row)
	}
}

func TestRunPropagatesRowError(t *testing.T) {
	rowErr := gcerr.New(gcerr.Numeric, "test", "bad row")
	_, err := Run(Config{Workers: 4}, 50, func(row int) ([]float64, error) {
		if row == 31 {
			return nil, rowErr
		}
		return []float64{0}, nil
	}, func(int, []float64) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, gcerr.ErrNumeric))
}

func TestRunRecoversWorkerPanic(t *testing.T) {
	_, err := Run(Config{Workers: 2}, 10, func(row int) ([]float64, error) {
		if row == 5 {
			panic("worker blew up")
		}
		return []float64{0}, nil
	}, func(int, []float64) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, gcerr.ErrInternal))
}

func TestRunRasterAppendsElapsedMetadata(t *testing.T) {
	in := demRaster(t, 4, 4)
	out, err := raster.InitializeUsingFile(in)
	require.NoError(t, err)

	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	require.NoError(t, RunRaster(Config{Workers: 2, Clock: clock}, out, neighbourSum(in)))
	require.NotEmpty(t, out.Configs.Metadata)
	assert.Contains(t, out.Configs.Metadata[len(out.Configs.Metadata)-1], "Elapsed time")
}

func TestRunZeroRowsIsNoOp(t *testing.T) {
	_, err := Run(Config{}, 0, func(int) ([]float64, error) {
		t.Fatal("row func should never run")
		return nil, nil
	}, func(int, []float64) error { return nil })
	require.NoError(t, err)
}
