package raster

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/haldane-gis/geocore/internal/gcerr"
)

// Raster is the tuple (configs, cells). Cells are stored row-major;
// reads and writes funnel through Value/SetValue so the sentinel-based
// NoData handling lives in exactly one place.
//
// A Raster is safe for concurrent reads once built — workers share it
// behind a reference and never copy the backing slice — but SetValue is
// not safe for concurrent callers; only the aggregator thread mutates
// an output raster, which is why no lock protects it.
type Raster struct {
	Configs *Configs
	cells   []float64

	statMu sync.Mutex // guards Configs.Min/Max during UpdateMinMax
}

// New allocates a Raster of the given Configs, with every cell set to
// NoData.
func New(cfg *Configs) (*Raster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, gcerr.Wrap(gcerr.InvalidInput, "raster.New", "invalid configs", err)
	}
	cells := make([]float64, cfg.Rows*cfg.Columns)
	for i := range cells {
		cells[i] = cfg.NoData
	}
	return &Raster{Configs: cfg, cells: cells}, nil
}

// InitializeUsingFile creates an empty raster whose configs mirror an
// existing template raster, cells defaulted
// to NoData.
func InitializeUsingFile(template *Raster) (*Raster, error) {
	return New(InitializeUsingConfig(template.Configs))
}

// Rows returns the number of rows.
func (r *Raster) Rows() int { return r.Configs.Rows }

// Columns returns the number of columns.
func (r *Raster) Columns() int { return r.Configs.Columns }

// NoData returns the configured NoData sentinel.
func (r *Raster) NoData() float64 { return r.Configs.NoData }

func (r *Raster) inBounds(row, col int) bool {
	return row >= 0 && row < r.Configs.Rows && col >= 0 && col < r.Configs.Columns
}

// Value returns the cell at (row,col), or NoData if either index is out
// of range. Out-of-range reads return NoData rather than panicking so
// n×n stencil code (slope, aspect, curvature, …) can index past an edge
// without special-casing it.
func (r *Raster) Value(row, col int) float64 {
	if !r.inBounds(row, col) {
		return r.Configs.NoData
	}
	return r.cells[row*r.Configs.Columns+col]
}

// SetValue sets the cell at (row,col). Out-of-range indices are
// silently ignored; there is nothing to grow into, so the set is a
// no-op.
func (r *Raster) SetValue(row, col int, z float64) {
	if !r.inBounds(row, col) {
		return
	}
	r.cells[row*r.Configs.Columns+col] = z
}

// RowData returns a copy of row r's cells.
func (r *Raster) RowData(row int) []float64 {
	if row < 0 || row >= r.Configs.Rows {
		out := make([]float64, r.Configs.Columns)
		for i := range out {
			out[i] = r.Configs.NoData
		}
		return out
	}
	cols := r.Configs.Columns
	out := make([]float64, cols)
	copy(out, r.cells[row*cols:(row+1)*cols])
	return out
}

// SetRowData bulk-writes an entire row, used by every
// row-pipeline worker to land its computed row in one call instead of
// cols separate SetValue calls.
func (r *Raster) SetRowData(row int, data []float64) error {
	if row < 0 || row >= r.Configs.Rows {
		return gcerr.New(gcerr.InvalidInput, "raster.SetRowData", "row out of range")
	}
	if len(data) != r.Configs.Columns {
		return gcerr.New(gcerr.InvalidInput, "raster.SetRowData", "row length mismatch")
	}
	copy(r.cells[row*r.Configs.Columns:(row+1)*r.Configs.Columns], data)
	return nil
}

// GetXFromColumn maps a column index to the x-coordinate of its cell
// centre, using the affine transform anchored at West with ResolutionX.
func (r *Raster) GetXFromColumn(col int) float64 {
	return r.Configs.West + (float64(col)+0.5)*r.Configs.ResolutionX
}

// GetYFromRow maps a row index to the y-coordinate of its cell centre.
// Row 0 is the northern edge, so y decreases as row increases.
func (r *Raster) GetYFromRow(row int) float64 {
	return r.Configs.North - (float64(row)+0.5)*r.Configs.ResolutionY
}

// GetColumnFromX inverts GetXFromColumn.
func (r *Raster) GetColumnFromX(x float64) int {
	return int((x - r.Configs.West) / r.Configs.ResolutionX)
}

// GetRowFromY inverts GetYFromRow.
func (r *Raster) GetRowFromY(y float64) int {
	return int((r.Configs.North - y) / r.Configs.ResolutionY)
}

// AddMetadataEntry appends an audit-trail line: input file names,
// parameters, elapsed time.
func (r *Raster) AddMetadataEntry(s string) {
	r.Configs.Metadata = append(r.Configs.Metadata, s)
}

// UpdateMinMax scans every non-NoData cell and updates Configs.Min/Max.
// Safe to call from a single thread only.
func (r *Raster) UpdateMinMax() {
	r.statMu.Lock()
	defer r.statMu.Unlock()
	min, max := updateMinMax(r.cells, r.Configs.NoData)
	r.Configs.Min = min
	r.Configs.Max = max
}

// Extension returns the lowercased file extension (without the dot) of
// path, the key every writer/reader dispatches on.
func Extension(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
