package raster

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/haldane-gis/geocore/internal/gcerr"
)

// asciiGridCodec implements the plain-text auxiliary grid format:
// six header lines (ncols, nrows, xllcorner, yllcorner, cellsize,
// NODATA_value) followed by whitespace-separated row-major values,
// north row first. This is the common ESRI ASCII grid convention and
// carries no data type, palette, or projection information of its own
// — round-tripping through it always lands back at DTFloat64/grey.pal,
// which is why geocore keeps the GeoTIFF-like and paired-header codecs
// alongside it for anything that needs to retain those fields.
type asciiGridCodec struct{}

func init() { registerCodec("asc", asciiGridCodec{}) }

func (asciiGridCodec) Read(path string, mode Mode) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.NotFound, "raster.asciigrid.Read", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	header := map[string]string{}
	for len(header) < 6 && sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			return nil, gcerr.New(gcerr.Corrupt, "raster.asciigrid.Read", "malformed header line: "+sc.Text())
		}
		header[strings.ToLower(fields[0])] = fields[1]
	}
	ncols, err := strconv.Atoi(header["ncols"])
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.asciigrid.Read", "ncols", err)
	}
	nrows, err := strconv.Atoi(header["nrows"])
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.asciigrid.Read", "nrows", err)
	}
	xll, err := strconv.ParseFloat(header["xllcorner"], 64)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.asciigrid.Read", "xllcorner", err)
	}
	yll, err := strconv.ParseFloat(header["yllcorner"], 64)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.asciigrid.Read", "yllcorner", err)
	}
	cellsize, err := strconv.ParseFloat(header["cellsize"], 64)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.asciigrid.Read", "cellsize", err)
	}
	nodata := -32768.0
	if s, ok := header["nodata_value"]; ok {
		nodata, _ = strconv.ParseFloat(s, 64)
	}

	cfg := NewDefaultConfigs()
	cfg.Rows, cfg.Columns = nrows, ncols
	cfg.ResolutionX, cfg.ResolutionY = cellsize, cellsize
	cfg.West = xll
	cfg.South = yll
	cfg.East = xll + float64(ncols)*cellsize
	cfg.North = yll + float64(nrows)*cellsize
	cfg.NoData = nodata

	if mode == ModeReadHeader {
		return New(cfg)
	}

	rast, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for row := 0; row < nrows; row++ {
		if !sc.Scan() {
			return nil, gcerr.New(gcerr.Corrupt, "raster.asciigrid.Read", fmt.Sprintf("expected %d data rows, ran out at row %d", nrows, row))
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != ncols {
			return nil, gcerr.New(gcerr.Corrupt, "raster.asciigrid.Read", fmt.Sprintf("row %d has %d values, want %d", row, len(fields), ncols))
		}
		vals := make([]float64, ncols)
		for col, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, gcerr.Wrap(gcerr.Corrupt, "raster.asciigrid.Read", fmt.Sprintf("row %d col %d", row, col), err)
			}
			vals[col] = v
		}
		_ = rast.SetRowData(row, vals)
	}
	return rast, nil
}

func (asciiGridCodec) Write(r *Raster, path string) error {
	cfg := r.Configs
	var sb strings.Builder
	fmt.Fprintf(&sb, "ncols %d\n", cfg.Columns)
	fmt.Fprintf(&sb, "nrows %d\n", cfg.Rows)
	fmt.Fprintf(&sb, "xllcorner %v\n", cfg.West)
	fmt.Fprintf(&sb, "yllcorner %v\n", cfg.South)
	fmt.Fprintf(&sb, "cellsize %v\n", cfg.ResolutionX)
	fmt.Fprintf(&sb, "NODATA_value %v\n", cfg.NoData)
	for row := 0; row < cfg.Rows; row++ {
		vals := r.RowData(row)
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		sb.WriteString(strings.Join(parts, " "))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "raster.asciigrid.Write", path, err)
	}
	return nil
}
