// Package lidar implements the LAS point model and LAS file container:
// a bit-packed tagged-variant point record over the eleven LAS point
// formats, and a header + point-sequence file type with sequential
// read/append. All eleven formats share one Record type; the codec
// dispatches on the format tag.
package lidar

import "github.com/haldane-gis/geocore/internal/gcerr"

// PointFormat is the LAS point-record format code (0..10).
type PointFormat uint8

const (
	Format0  PointFormat = 0  // base: coords, intensity, flags, class, scan angle
	Format1  PointFormat = 1  // Format0 + GPS time
	Format2  PointFormat = 2  // Format0 + colour
	Format3  PointFormat = 3  // Format0 + GPS time + colour
	Format4  PointFormat = 4  // Format1 + waveform packet
	Format5  PointFormat = 5  // Format3 + waveform packet
	Format6  PointFormat = 6  // 64-bit layout base + GPS time
	Format7  PointFormat = 7  // Format6 + colour
	Format8  PointFormat = 8  // Format6 + colour + NIR
	Format9  PointFormat = 9  // Format6 + waveform packet
	Format10 PointFormat = 10 // Format8 + waveform packet
)

// HasGPSTime reports whether f's record carries a GPS time field.
func (f PointFormat) HasGPSTime() bool { return f != Format0 && f != Format2 }

// HasColor reports whether f's record carries RGB colour.
func (f PointFormat) HasColor() bool {
	switch f {
	case Format2, Format3, Format5, Format7, Format8, Format10:
		return true
	default:
		return false
	}
}

// HasNIR reports whether f's record carries a near-infrared channel.
func (f PointFormat) HasNIR() bool { return f == Format8 || f == Format10 }

// HasWaveform reports whether f's record carries waveform packet fields.
func (f PointFormat) HasWaveform() bool {
	switch f {
	case Format4, Format5, Format9, Format10:
		return true
	default:
		return false
	}
}

// Is64BitLayout reports whether f uses the extended (LAS 1.4) bit-packed
// flag layout rather than the legacy 32-bit layout.
func (f PointFormat) Is64BitLayout() bool { return f >= Format6 }

// RecordLength returns the on-disk byte length of a point record in
// format f, excluding any extra bytes.
func (f PointFormat) RecordLength() int {
	base := 20
	if f.Is64BitLayout() {
		base = 22
	}
	if f.HasGPSTime() {
		base += 8
	}
	if f.HasColor() {
		base += 6
	}
	if f.HasNIR() {
		base += 2
	}
	if f.HasWaveform() {
		base += 29
	}
	return base
}

// Waveform holds the optional waveform packet descriptor fields present
// in formats 4, 5, 9, and 10.
type Waveform struct {
	DescriptorIndex      uint8
	ByteOffsetToData     uint64
	PacketSizeInBytes    uint32
	ReturnPointWaveLoc   float32
	Xt, Yt, Zt           float32
}

// Record is the tagged-variant LAS point: a shared mechanical core
// plus the optional trailing fields particular point formats add.
// Accessors dispatch on Format rather than allocating eleven distinct
// Go types, keeping per-point storage heap-free.
type Record struct {
	Format PointFormat

	RawX, RawY, RawZ int32 // scaled integer coordinates as stored on disk
	Intensity        uint16

	ReturnNumber       uint8
	NumberOfReturns    uint8
	ScanDirectionFlag  bool
	EdgeOfFlightLine   bool
	Classification     uint8
	Synthetic          bool
	KeyPoint           bool
	Withheld           bool
	Overlap            bool // 64-bit layout only; always false for 32-bit records
	ScannerChannel     uint8 // 64-bit layout only; always 0 for 32-bit records

	ScanAngle  int16 // degrees for 32-bit layout, hundredths of a degree for 64-bit
	UserData   uint8
	PointSourceID uint16

	GPSTime float64 // valid iff Format.HasGPSTime()

	R, G, B uint16 // valid iff Format.HasColor()
	NIR     uint16 // valid iff Format.HasNIR()

	Waveform Waveform // valid iff Format.HasWaveform()
}

// PointData is the bare-mechanical-fields view of a point:
// coordinates, intensity, classification, and return information
// without the GPS/colour/waveform extras, useful to tools (e.g. ground
// classification, ASPRS class filters) that never touch the optional
// trailing fields and would otherwise pay for decoding them.
type PointData struct {
	X, Y, Z         float64
	Intensity       uint16
	ReturnNumber    uint8
	NumberOfReturns uint8
	Classification  uint8
	ScanAngle       int16
}

// PointInfo extracts a Record's bare mechanical fields, applying the
// scale/offset transform via the owning File so PointInfo and
// TransformedCoords never disagree on world coordinates.
func (f *File) PointInfo(i int) (PointData, error) {
	rec, err := f.GetRecord(i)
	if err != nil {
		return PointData{}, err
	}
	x, y, z := f.TransformedCoords(rec)
	return PointData{
		X: x, Y: y, Z: z,
		Intensity:       rec.Intensity,
		ReturnNumber:    rec.ReturnNumber,
		NumberOfReturns: rec.NumberOfReturns,
		Classification:  rec.Classification,
		ScanAngle:       rec.ScanAngle,
	}, nil
}

// As32BitLayout maps a 64-bit-layout record's bit-packed fields back
// to their 32-bit-layout equivalents. The mapping is lossy: return
// numbers and classes keep only the bits the 32-bit layout has room
// for (3 for return number, 5 for classification), so out-of-range
// values are truncated, not saturated.
func (r Record) As32BitLayout() Record {
	out := r
	out.ReturnNumber = r.ReturnNumber & 0x07
	out.NumberOfReturns = r.NumberOfReturns & 0x07
	out.Classification = r.Classification & 0x1f
	out.Overlap = false
	out.ScannerChannel = 0
	return out
}

func validateFormat(f PointFormat) error {
	if f > Format10 {
		return gcerr.New(gcerr.InvalidInput, "lidar.validateFormat", "point format must be 0..10")
	}
	return nil
}
