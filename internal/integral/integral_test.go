package integral

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/haldane-gis/geocore/internal/raster"
)

func newRaster(t *testing.T, rows, cols int, nodata float64, vals []float64) *raster.Raster {
	t.Helper()
	cfg := raster.NewDefaultConfigs()
	cfg.Rows, cfg.Columns = rows, cols
	cfg.ResolutionX, cfg.ResolutionY = 1, 1
	cfg.West, cfg.East = 0, float64(cols)
	cfg.North, cfg.South = float64(rows), 0
	cfg.NoData = nodata
	r, err := raster.New(cfg)
	require.NoError(t, err)
	for row := 0; row < rows; row++ {
		require.NoError(t, r.SetRowData(row, vals[row*cols:(row+1)*cols]))
	}
	return r
}

func TestRectangleSumWorkedExample(t *testing.T) {
	nodata := -1.0
	r := newRaster(t, 3, 3, nodata, []float64{
		1, 1, 1,
		1, nodata, 1,
		1, 1, 1,
	})
	img := Build(r, nil)

	require.Equal(t, 8.0, img.RectangleSum(0, 0, 2, 2))
	require.Equal(t, 8, img.RectangleCount(0, 0, 2, 2))
	require.Equal(t, 1.0, img.RectangleMean(0, 0, 2, 2, nodata))
}

func TestRectangleSumMatchesNaiveSum(t *testing.T) {
	nodata := -9999.0
	vals := []float64{
		1, 2, 3, 4,
		5, nodata, 7, 8,
		9, 10, nodata, 12,
		13, 14, 15, 16,
	}
	r := newRaster(t, 4, 4, nodata, vals)
	img := Build(r, nil)

	for r1 := 0; r1 < 4; r1++ {
		for c1 := 0; c1 < 4; c1++ {
			for r2 := r1; r2 < 4; r2++ {
				for c2 := c1; c2 < 4; c2++ {
					var wantSum float64
					var wantCount int
					for i := r1; i <= r2; i++ {
						for j := c1; j <= c2; j++ {
							v := vals[i*4+j]
							if v != nodata {
								wantSum += v
								wantCount++
							}
						}
					}
					require.Equal(t, wantSum, img.RectangleSum(r1, c1, r2, c2))
					require.Equal(t, wantCount, img.RectangleCount(r1, c1, r2, c2))
				}
			}
		}
	}
}

func TestRectangleMeanIsNoDataWhenEmpty(t *testing.T) {
	nodata := -1.0
	r := newRaster(t, 2, 2, nodata, []float64{nodata, nodata, nodata, nodata})
	img := Build(r, nil)
	require.Equal(t, nodata, img.RectangleMean(0, 0, 1, 1, nodata))
	require.Equal(t, nodata, img.RectangleVariance(0, 0, 1, 1, nodata))
}

func TestRectangleVarianceNonNegative(t *testing.T) {
	nodata := -1.0
	r := newRaster(t, 2, 2, nodata, []float64{2, 2, 2, 2})
	img := Build(r, nil)
	require.Equal(t, 0.0, img.RectangleVariance(0, 0, 1, 1, nodata))
}

func TestBuildWithMaskExcludesMaskedCells(t *testing.T) {
	nodata := -1.0
	r := newRaster(t, 2, 2, nodata, []float64{1, 1, 1, 1})
	maskNodata := -1.0
	mask := newRaster(t, 2, 2, maskNodata, []float64{1, maskNodata, 1, 1})
	img := Build(r, mask)
	require.Equal(t, 3.0, img.RectangleSum(0, 0, 1, 1))
	require.Equal(t, 3, img.RectangleCount(0, 0, 1, 1))
}

// Cross-check RectangleMean and RectangleVariance against gonum/stat
// over the valid cells of a full-raster rectangle.
func TestRectangleStatsMatchGonum(t *testing.T) {
	nodata := -9999.0
	vals := []float64{
		3, 1, 4, 1,
		5, nodata, 2, 6,
		5, 3, 5, nodata,
	}
	r := newRaster(t, 3, 4, nodata, vals)
	img := Build(r, nil)

	valid := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v != nodata {
			valid = append(valid, v)
		}
	}
	wantMean := stat.Mean(valid, nil)
	require.InDelta(t, wantMean, img.RectangleMean(0, 0, 2, 3, nodata), 1e-12)

	// Ours is the population variance; gonum's Variance is the sample
	// estimator, so rescale by (n-1)/n.
	n := float64(len(valid))
	wantVar := stat.Variance(valid, nil) * (n - 1) / n
	require.InDelta(t, wantVar, img.RectangleVariance(0, 0, 2, 3, nodata), 1e-12)
}
