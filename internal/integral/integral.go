// Package integral implements the integral-image (summed-area table)
// primitives behind multi-scale neighbourhood statistics: three running
// images (sum, sum-of-squares, count) over a raster's non-NoData cells,
// supporting constant-time rectangle sum/mean/variance queries via the
// inclusion-exclusion identity.
package integral

import "github.com/haldane-gis/geocore/internal/raster"

// Image holds the three padded cumulative tables. Each has (rows+1)
// rows and (columns+1) columns; table[i][j] is the reduction over the
// half-open rectangle [0,i) x [0,j), so a plain corner-difference
// query handles row1==0/col1==0 without a special case — the usual
// corner-difference identity with an implicit zero row/column. Query
// bounds outside the grid are clamped to it by rectangleSums.
type Image struct {
	rows, cols int
	sum        []float64
	sumSq      []float64
	count      []int
}

func idx(cols int, i, j int) int { return i*(cols+1) + j }

// Build sweeps r top-to-bottom, left-to-right, accumulating running
// (sum, sum^2, count). When mask is non-nil, a cell is additionally
// excluded (contributes 0 to every table) wherever the mask raster
// reads NoData at the same (row,col), so statistics can be restricted
// to a gated sub-region.
func Build(r *raster.Raster, mask *raster.Raster) *Image {
	rows, cols := r.Rows(), r.Columns()
	img := &Image{
		rows:  rows,
		cols:  cols,
		sum:   make([]float64, (rows+1)*(cols+1)),
		sumSq: make([]float64, (rows+1)*(cols+1)),
		count: make([]int, (rows+1)*(cols+1)),
	}
	nodata := r.NoData()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := r.Value(i, j)
			valid := v != nodata
			if valid && mask != nil {
				valid = mask.Value(i, j) != mask.NoData()
			}
			var s, sq float64
			var c int
			if valid {
				s, sq, c = v, v*v, 1
			}
			above := idx(cols, i, j+1)
			left := idx(cols, i+1, j)
			diag := idx(cols, i, j)
			cur := idx(cols, i+1, j+1)
			img.sum[cur] = s + img.sum[above] + img.sum[left] - img.sum[diag]
			img.sumSq[cur] = sq + img.sumSq[above] + img.sumSq[left] - img.sumSq[diag]
			img.count[cur] = c + img.count[above] + img.count[left] - img.count[diag]
		}
	}
	return img
}

func clampRow(r int, rows int) int {
	if r < 0 {
		return 0
	}
	if r > rows {
		return rows
	}
	return r
}

func clampCol(c int, cols int) int {
	if c < 0 {
		return 0
	}
	if c > cols {
		return cols
	}
	return c
}

// rectangleSums returns the raw (sum, sumSq, count) triple over the
// inclusive rectangle [r1,r2] x [c1,c2], clamped to the raster bounds.
func (img *Image) rectangleSums(r1, c1, r2, c2 int) (float64, float64, int) {
	r1, r2 = clampRow(r1, img.rows), clampRow(r2+1, img.rows)
	c1, c2 = clampCol(c1, img.cols), clampCol(c2+1, img.cols)
	if r1 >= r2 || c1 >= c2 {
		return 0, 0, 0
	}
	sum := img.sum[idx(img.cols, r2, c2)] - img.sum[idx(img.cols, r1, c2)] -
		img.sum[idx(img.cols, r2, c1)] + img.sum[idx(img.cols, r1, c1)]
	sumSq := img.sumSq[idx(img.cols, r2, c2)] - img.sumSq[idx(img.cols, r1, c2)] -
		img.sumSq[idx(img.cols, r2, c1)] + img.sumSq[idx(img.cols, r1, c1)]
	count := img.count[idx(img.cols, r2, c2)] - img.count[idx(img.cols, r1, c2)] -
		img.count[idx(img.cols, r2, c1)] + img.count[idx(img.cols, r1, c1)]
	return sum, sumSq, count
}

// RectangleSum returns Σz over the inclusive rectangle [r1,r2] x [c1,c2],
// excluding NoData (and masked-out) cells.
func (img *Image) RectangleSum(r1, c1, r2, c2 int) float64 {
	sum, _, _ := img.rectangleSums(r1, c1, r2, c2)
	return sum
}

// RectangleCount returns the number of valid (non-NoData, unmasked)
// cells in the rectangle.
func (img *Image) RectangleCount(r1, c1, r2, c2 int) int {
	_, _, count := img.rectangleSums(r1, c1, r2, c2)
	return count
}

// RectangleMean returns sum/count, or nodata if the rectangle has no
// valid cells.
func (img *Image) RectangleMean(r1, c1, r2, c2 int, nodata float64) float64 {
	sum, _, count := img.rectangleSums(r1, c1, r2, c2)
	if count == 0 {
		return nodata
	}
	return sum / float64(count)
}

// RectangleVariance returns (sumsq - sum^2/count) / count, clamped at
// zero to tolerate floating-point cancellation, or nodata when the
// rectangle has no valid cells.
func (img *Image) RectangleVariance(r1, c1, r2, c2 int, nodata float64) float64 {
	sum, sumSq, count := img.rectangleSums(r1, c1, r2, c2)
	if count == 0 {
		return nodata
	}
	n := float64(count)
	v := (sumSq - sum*sum/n) / n
	if v < 0 {
		v = 0
	}
	return v
}
