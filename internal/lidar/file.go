package lidar

import (
	"math"
	"os"
	"strconv"

	"github.com/haldane-gis/geocore/internal/bor"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

// state is the LAS file lifecycle:
// Uninitialized -> HeaderRead -> (PointsRead | PointsWriting) -> Closed.
type state int

const (
	stateUninitialized state = iota
	stateHeaderRead
	statePointsRead
	statePointsWriting
	stateClosed
)

// Mode selects how Open loads a LAS file.
type Mode int

const (
	// ModeRead loads the header and every point record into memory.
	ModeRead Mode = iota
	// ModeHeaderOnly loads only the header.
	ModeHeaderOnly
)

// File is the in-memory LAS container: a header plus a point-record
// sequence in insertion order.
type File struct {
	Header  Header
	Records []Record

	state state
	path  string // set once Write/Open has been called, for error messages
}

// Open reads a LAS file from path per mode.
func Open(path string, mode Mode) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.NotFound, "lidar.Open", path, err)
	}
	r := bor.NewReader(data)
	header, err := readHeader(r)
	compressed := err != nil && gcerr.KindOf(err) == gcerr.Unsupported
	if err != nil && !compressed {
		return nil, err
	}

	f := &File{Header: header, state: stateHeaderRead, path: path}
	if mode == ModeHeaderOnly {
		return f, nil
	}
	if compressed {
		// The compressed variant is header-read only.
		return nil, err
	}

	if header.PointFormat > Format10 {
		return nil, gcerr.New(gcerr.Corrupt, "lidar.Open", "point format out of range 0..10")
	}

	recs := make([]Record, 0, header.NumberOfPoints)
	for i := uint32(0); i < header.NumberOfPoints; i++ {
		rec, err := readRecord(r, header.PointFormat)
		if err != nil {
			return nil, gcerr.Wrapf(gcerr.Corrupt, "lidar.Open", err, "reading point record %d of %d", i, header.NumberOfPoints)
		}
		recs = append(recs, rec)
	}
	f.Records = recs
	f.state = statePointsRead
	return f, nil
}

// InitializeUsingFile clones template's header for a derived output
// file, overwriting the system id to
// "EXTRACTION" and resetting the point count/records to empty so the
// caller can append filtered/classified points.
func InitializeUsingFile(template *File) *File {
	h := template.Header
	h.SystemID = "EXTRACTION"
	h.NumberOfPoints = 0
	h.NumPointsByReturn = [5]uint32{}
	h.MinX, h.MinY, h.MinZ = math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	h.MaxX, h.MaxY, h.MaxZ = -math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
	return &File{Header: h, state: statePointsWriting}
}

// GetRecord returns the i'th point record.
func (f *File) GetRecord(i int) (Record, error) {
	if i < 0 || i >= len(f.Records) {
		return Record{}, gcerr.New(gcerr.InvalidInput, "lidar.GetRecord", "index out of range")
	}
	return f.Records[i], nil
}

// NumberOfPoints returns the number of point records currently held.
func (f *File) NumberOfPoints() int { return len(f.Records) }

// TransformedCoords applies the header's per-file scale/offset to a raw
// record's integer coordinates:
// coord_world = coord_raw * scale + offset.
func (f *File) TransformedCoords(rec Record) (x, y, z float64) {
	h := f.Header
	x = float64(rec.RawX)*h.ScaleX + h.OffsetX
	y = float64(rec.RawY)*h.ScaleY + h.OffsetY
	z = float64(rec.RawZ)*h.ScaleZ + h.OffsetZ
	return
}

// GetTransformedCoords is the index-addressed counterpart of
// TransformedCoords.
func (f *File) GetTransformedCoords(i int) (x, y, z float64, err error) {
	rec, err := f.GetRecord(i)
	if err != nil {
		return 0, 0, 0, err
	}
	x, y, z = f.TransformedCoords(rec)
	return x, y, z, nil
}

// rawFromWorld inverts TransformedCoords: world -> per-file scaled integer.
func (f *File) rawFromWorld(x, y, z float64) (int32, int32, int32) {
	h := f.Header
	return int32(math.Round((x - h.OffsetX) / h.ScaleX)),
		int32(math.Round((y - h.OffsetY) / h.ScaleY)),
		int32(math.Round((z - h.OffsetZ) / h.ScaleZ))
}

// AddPointRecord appends rec for an output file, updating the running
// min/max z bounds and point count. Writing to a file opened for read
// is forbidden.
func (f *File) AddPointRecord(rec Record, x, y, z float64) error {
	if f.state == statePointsRead || f.state == stateClosed {
		return gcerr.New(gcerr.InvalidInput, "lidar.AddPointRecord", "file was opened for reading, not writing")
	}
	if rec.Format != f.Header.PointFormat {
		return gcerr.New(gcerr.InvalidInput, "lidar.AddPointRecord", "record format does not match file's point format")
	}
	rec.RawX, rec.RawY, rec.RawZ = f.rawFromWorld(x, y, z)

	f.state = statePointsWriting
	f.Records = append(f.Records, rec)
	f.Header.NumberOfPoints = uint32(len(f.Records))

	h := &f.Header
	if x < h.MinX {
		h.MinX = x
	}
	if y < h.MinY {
		h.MinY = y
	}
	if z < h.MinZ {
		h.MinZ = z
	}
	if x > h.MaxX {
		h.MaxX = x
	}
	if y > h.MaxY {
		h.MaxY = y
	}
	if z > h.MaxZ {
		h.MaxZ = z
	}
	if rec.ReturnNumber >= 1 && int(rec.ReturnNumber) <= len(h.NumPointsByReturn) {
		h.NumPointsByReturn[rec.ReturnNumber-1]++
	}
	return nil
}

// Write emits the header followed by every point record in insertion
// order.
func (f *File) Write(path string) error {
	if f.state == stateClosed {
		return gcerr.New(gcerr.InvalidInput, "lidar.Write", "file is closed")
	}
	if err := RequireGPSTimeIfNeeded(f); err != nil {
		return err
	}
	w := bor.NewWriter()
	writeHeader(w, f.Header)
	for _, rec := range f.Records {
		writeRecord(w, rec)
	}
	if err := os.WriteFile(path, w.Bytes(), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "lidar.Write", path, err)
	}
	f.path = path
	f.state = stateClosed
	return nil
}

// RequireGPSTimeIfNeeded guards the point-format failure policy: a
// tool writing a GPS-time-bearing format whose records were
// never given a real GPS time would silently emit zeros, so callers
// that need GPS time must check Format.HasGPSTime() themselves; this
// only guards the structural invariant that every record in the file
// actually matches the file's declared point format.
func RequireGPSTimeIfNeeded(f *File) error {
	for i, rec := range f.Records {
		if rec.Format != f.Header.PointFormat {
			return gcerr.New(gcerr.Unsupported, "lidar.Write",
				"record "+strconv.Itoa(i)+" has a different point format than the file header declares")
		}
	}
	return nil
}
