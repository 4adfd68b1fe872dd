package vector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/haldane-gis/geocore/internal/bor"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

const (
	fileCode    = 9994
	shapefileVersion = 1000
	mainHeaderSize   = 100
)

// Mode selects how a Shapefile is opened.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// File is the in-memory Shapefile container: header fields, the
// geometry sequence, and the attribute table.
type File struct {
	Path      string
	ShapeType ShapeType

	MinX, MinY, MaxX, MaxY float64
	MinZ, MaxZ             float64
	MinM, MaxM             float64

	Records  []Geometry
	Table    *AttributeTable

	mode Mode
}

// New opens a Shapefile for write with the given shape type.
func New(path string, shapeType ShapeType) (*File, error) {
	if _, err := validateShapeType(int32(shapeType)); err != nil {
		return nil, err
	}
	return &File{Path: path, ShapeType: shapeType, Table: NewAttributeTable(), mode: ModeWrite}, nil
}

// Read opens and fully decodes an existing Shapefile's .shp geometry
// stream and its sibling .dbf attribute table. The .shx
// index is not required for a full sequential read (geocore always
// decodes record-by-record) but is regenerated on Write for ESRI
// compatibility.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.NotFound, "vector.Read", path, err)
	}
	r := bor.NewReader(data)
	r.SetOrder(bor.BigEndian)
	code, err := r.I32()
	if err != nil || code != fileCode {
		return nil, gcerr.New(gcerr.Corrupt, "vector.Read", "bad Shapefile file code")
	}
	if err := r.Seek(24); err != nil {
		return nil, err
	}
	fileLen32, err := r.I32() // in 16-bit words
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "vector.Read", "file length", err)
	}
	fileLenBytes := int(fileLen32) * 2

	r.SetOrder(bor.LittleEndian)
	version, err := r.I32()
	if err != nil || version != shapefileVersion {
		return nil, gcerr.New(gcerr.Corrupt, "vector.Read", "unexpected Shapefile version")
	}
	shapeTypeCode, err := r.I32()
	if err != nil {
		return nil, err
	}
	shapeType, err := validateShapeType(shapeTypeCode)
	if err != nil {
		return nil, err
	}
	f := &File{Path: path, ShapeType: shapeType, mode: ModeRead}
	f.MinX, _ = r.F64()
	f.MinY, _ = r.F64()
	f.MaxX, _ = r.F64()
	f.MaxY, _ = r.F64()
	f.MinZ, _ = r.F64()
	f.MaxZ, _ = r.F64()
	f.MinM, _ = r.F64()
	f.MaxM, _ = r.F64()

	if err := r.Seek(mainHeaderSize); err != nil {
		return nil, err
	}

	for r.Pos() < fileLenBytes && r.Len() > 0 {
		geom, err := readRecord(r)
		if err != nil {
			return nil, gcerr.Wrapf(gcerr.Corrupt, "vector.Read", err, "record at byte %d", r.Pos())
		}
		if err := checkTypeConsistency(f.ShapeType, geom.Type); err != nil {
			return nil, err
		}
		f.Records = append(f.Records, geom)
	}

	dbfPath := siblingPath(path, ".dbf")
	table, err := readAttributeTable(dbfPath)
	if err != nil {
		if gcerr.KindOf(err) != gcerr.NotFound {
			return nil, err
		}
		table = NewAttributeTable()
	}
	f.Table = table
	return f, nil
}

// AddRecord appends a geometry for an output file.
func (f *File) AddRecord(g Geometry) error {
	if err := checkTypeConsistency(f.ShapeType, g.Type); err != nil {
		return err
	}
	g.computeBounds()
	f.Records = append(f.Records, g)
	f.expandBounds(g)
	return nil
}

func (f *File) expandBounds(g Geometry) {
	if len(g.Points) == 0 {
		return
	}
	if len(f.Records) == 1 {
		f.MinX, f.MinY, f.MaxX, f.MaxY = g.MinX, g.MinY, g.MaxX, g.MaxY
		f.MinZ, f.MaxZ, f.MinM, f.MaxM = g.MinZ, g.MaxZ, g.MinM, g.MaxM
		return
	}
	if g.MinX < f.MinX {
		f.MinX = g.MinX
	}
	if g.MinY < f.MinY {
		f.MinY = g.MinY
	}
	if g.MaxX > f.MaxX {
		f.MaxX = g.MaxX
	}
	if g.MaxY > f.MaxY {
		f.MaxY = g.MaxY
	}
	if g.MaxZ > f.MaxZ {
		f.MaxZ = g.MaxZ
	}
	if g.MaxM > f.MaxM {
		f.MaxM = g.MaxM
	}
}

// GetRecord reads a single record by index.
func (f *File) GetRecord(i int) (Geometry, error) {
	if i < 0 || i >= len(f.Records) {
		return Geometry{}, gcerr.New(gcerr.InvalidInput, "vector.GetRecord", "index out of range")
	}
	return f.Records[i], nil
}

// Write emits the .shp, .shx, and .dbf trio for f.
func (f *File) Write(path string) error {
	shp := bor.NewWriter()
	writeMainHeader(shp, f, contentLengthWords(f))

	shx := bor.NewWriter()
	writeMainHeader(shx, f, 50+4*len(f.Records))

	offset := mainHeaderSize / 2 // in 16-bit words
	for i, g := range f.Records {
		recBytes := writeRecord(shp, i+1, g)
		shx.SetOrder(bor.BigEndian)
		shx.WriteI32(int32(offset))
		shx.WriteI32(int32(recBytes / 2))
		offset += 4 + recBytes/2
	}

	if err := os.WriteFile(path, shp.Bytes(), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "vector.Write", path, err)
	}
	if err := os.WriteFile(siblingPath(path, ".shx"), shx.Bytes(), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "vector.Write", path, err)
	}
	if f.Table != nil {
		if err := writeAttributeTable(f.Table, siblingPath(path, ".dbf")); err != nil {
			return err
		}
	}
	return nil
}

func contentLengthWords(f *File) int {
	total := mainHeaderSize / 2
	for i, g := range f.Records {
		total += 4 + recordContentWords(g)
		_ = i
	}
	return total
}

func siblingPath(path, ext string) string {
	trimmed := strings.TrimSuffix(path, filepath.Ext(path))
	return trimmed + ext
}
