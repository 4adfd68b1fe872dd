package raster

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/haldane-gis/geocore/internal/bor"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

// gridPairCodec is the paired header + binary data format alongside
// the self-describing GeoTIFF-like codec: a plain key=value
// text header (extension ".ghd") naming a sibling binary file
// (extension ".gbn") that holds nothing but the row-major float64 cell
// stream. Two files instead of one IFD-addressed blob is the same
// split the native raster grid formats in this domain use (a small
// text header plus a flat binary companion) rather than anything TIFF
// specific, so this codec is registered separately from tiffCodec.
type gridPairCodec struct{}

func init() {
	registerCodec("ghd", gridPairCodec{})
	registerCodec("gbn", gridPairCodec{})
}

func dataFilePath(headerPath string) string {
	ext := filepath.Ext(headerPath)
	return strings.TrimSuffix(headerPath, ext) + ".gbn"
}

func (gridPairCodec) Read(path string, mode Mode) (*Raster, error) {
	headerPath := path
	if Extension(path) == "gbn" {
		ext := filepath.Ext(path)
		headerPath = strings.TrimSuffix(path, ext) + ".ghd"
	}
	f, err := os.Open(headerPath)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.NotFound, "raster.gridpair.Read", headerPath, err)
	}
	defer f.Close()

	cfg := NewDefaultConfigs()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if err := applyHeaderField(cfg, key, val); err != nil {
			return nil, gcerr.Wrap(gcerr.Corrupt, "raster.gridpair.Read", headerPath, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.gridpair.Read", headerPath, err)
	}

	if mode == ModeReadHeader {
		return New(cfg)
	}

	rast, err := New(cfg)
	if err != nil {
		return nil, err
	}
	dataPath := dataFilePath(headerPath)
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.NotFound, "raster.gridpair.Read", dataPath, err)
	}
	want := cfg.Rows * cfg.Columns * 8
	if len(data) < want {
		return nil, gcerr.New(gcerr.Corrupt, "raster.gridpair.Read", "binary data shorter than rows*columns*8 bytes")
	}
	r := bor.NewReader(data)
	for row := 0; row < cfg.Rows; row++ {
		vals := make([]float64, cfg.Columns)
		for col := 0; col < cfg.Columns; col++ {
			v, err := r.F64()
			if err != nil {
				return nil, gcerr.Wrap(gcerr.Corrupt, "raster.gridpair.Read", dataPath, err)
			}
			vals[col] = v
		}
		_ = rast.SetRowData(row, vals)
	}
	return rast, nil
}

func applyHeaderField(cfg *Configs, key, val string) error {
	var err error
	switch strings.ToLower(key) {
	case "rows":
		cfg.Rows, err = strconv.Atoi(val)
	case "columns":
		cfg.Columns, err = strconv.Atoi(val)
	case "north":
		cfg.North, err = strconv.ParseFloat(val, 64)
	case "south":
		cfg.South, err = strconv.ParseFloat(val, 64)
	case "east":
		cfg.East, err = strconv.ParseFloat(val, 64)
	case "west":
		cfg.West, err = strconv.ParseFloat(val, 64)
	case "resolutionx":
		cfg.ResolutionX, err = strconv.ParseFloat(val, 64)
	case "resolutiony":
		cfg.ResolutionY, err = strconv.ParseFloat(val, 64)
	case "nodata":
		cfg.NoData, err = strconv.ParseFloat(val, 64)
	case "min":
		cfg.Min, err = strconv.ParseFloat(val, 64)
	case "max":
		cfg.Max, err = strconv.ParseFloat(val, 64)
	case "datatype":
		dt, convErr := strconv.Atoi(val)
		if convErr == nil {
			cfg.DataType = DataType(dt)
		}
		err = convErr
	case "photometricinterp":
		pi, convErr := strconv.Atoi(val)
		if convErr == nil {
			cfg.PhotometricInterp = PhotometricInterp(pi)
		}
		err = convErr
	case "palette":
		cfg.Palette = val
	case "projectionwkt":
		cfg.ProjectionWKT = val
	case "metadataentry":
		cfg.Metadata = append(cfg.Metadata, val)
	default:
		return nil
	}
	return err
}

func (gridPairCodec) Write(rast *Raster, path string) error {
	headerPath := path
	if Extension(path) == "gbn" {
		ext := filepath.Ext(path)
		headerPath = strings.TrimSuffix(path, ext) + ".ghd"
	}
	cfg := rast.Configs

	var sb strings.Builder
	fmt.Fprintf(&sb, "rows=%d\n", cfg.Rows)
	fmt.Fprintf(&sb, "columns=%d\n", cfg.Columns)
	fmt.Fprintf(&sb, "north=%v\n", cfg.North)
	fmt.Fprintf(&sb, "south=%v\n", cfg.South)
	fmt.Fprintf(&sb, "east=%v\n", cfg.East)
	fmt.Fprintf(&sb, "west=%v\n", cfg.West)
	fmt.Fprintf(&sb, "resolutionx=%v\n", cfg.ResolutionX)
	fmt.Fprintf(&sb, "resolutiony=%v\n", cfg.ResolutionY)
	fmt.Fprintf(&sb, "nodata=%v\n", cfg.NoData)
	fmt.Fprintf(&sb, "min=%v\n", cfg.Min)
	fmt.Fprintf(&sb, "max=%v\n", cfg.Max)
	fmt.Fprintf(&sb, "datatype=%d\n", int(cfg.DataType))
	fmt.Fprintf(&sb, "photometricinterp=%d\n", int(cfg.PhotometricInterp))
	fmt.Fprintf(&sb, "palette=%s\n", cfg.Palette)
	fmt.Fprintf(&sb, "projectionwkt=%s\n", cfg.ProjectionWKT)
	for _, m := range cfg.Metadata {
		fmt.Fprintf(&sb, "metadataentry=%s\n", m)
	}

	if err := os.WriteFile(headerPath, []byte(sb.String()), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "raster.gridpair.Write", headerPath, err)
	}

	w := bor.NewWriter()
	for row := 0; row < cfg.Rows; row++ {
		for _, v := range rast.RowData(row) {
			w.WriteF64(v)
		}
	}
	dataPath := dataFilePath(headerPath)
	if err := os.WriteFile(dataPath, w.Bytes(), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "raster.gridpair.Write", dataPath, err)
	}
	return nil
}
