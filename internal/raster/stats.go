package raster

import (
	"gonum.org/v1/gonum/floats"
)

// updateMinMax scans cells for the NoData-excluded min/max. Raster
// cells need the NoData exclusion gonum's generic reducers don't know
// about, so the valid values are filtered into a scratch buffer first
// and floats.Min/floats.Max do the reduction.
func updateMinMax(cells []float64, nodata float64) (min, max float64) {
	valid := make([]float64, 0, len(cells))
	for _, v := range cells {
		if v != nodata {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0, 0
	}
	return floats.Min(valid), floats.Max(valid)
}

// Mean returns the NoData-excluded arithmetic mean of every cell in r.
func Mean(r *Raster) float64 {
	valid := make([]float64, 0, len(r.cells))
	for _, v := range r.cells {
		if v != r.Configs.NoData {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return r.Configs.NoData
	}
	return floats.Sum(valid) / float64(len(valid))
}
