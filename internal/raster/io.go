package raster

import (
	"os"

	"github.com/haldane-gis/geocore/internal/gcerr"
)

// Mode selects how Open reads a raster.
type Mode int

const (
	// ModeReadFull reads header and cells.
	ModeReadFull Mode = iota
	// ModeReadHeader reads only the configs; every cell of the returned
	// raster is NoData (used by tools that only need dimensions/extent
	// up front).
	ModeReadHeader
)

// Open reads a raster from path, dispatching on file extension.
func Open(path string, mode Mode) (*Raster, error) {
	ext := Extension(path)
	codec, ok := codecs[ext]
	if !ok {
		return nil, gcerr.New(gcerr.InvalidInput, "raster.Open", "unrecognized raster extension: "+ext)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, gcerr.Wrap(gcerr.NotFound, "raster.Open", path, err)
	}
	return codec.Read(path, mode)
}

// Write persists r to path, dispatching on extension. How much of
// r.Configs is stored depends on the codec: .tif does not store Metadata
// or a Categorical/Boolean PhotometricInterp, and .asc stores only the
// grid geometry and NoData.
func Write(r *Raster, path string) error {
	ext := Extension(path)
	codec, ok := codecs[ext]
	if !ok {
		return gcerr.New(gcerr.InvalidInput, "raster.Write", "unrecognized raster extension: "+ext)
	}
	return codec.Write(r, path)
}

// codec is a per-format encode/decode pair.
type codec interface {
	Read(path string, mode Mode) (*Raster, error)
	Write(r *Raster, path string) error
}

// codecs maps a lowercase file extension to its codec. Registered by each
// format's init().
var codecs = map[string]codec{}

func registerCodec(ext string, c codec) { codecs[ext] = c }
