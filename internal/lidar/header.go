package lidar

import (
	"time"

	"github.com/haldane-gis/geocore/internal/bor"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

const headerSize = 227 // LAS 1.2 header length

// Header mirrors the LAS 1.2 header fields: bounding box, point count,
// scale/offset, point-format code, system id, project id, and VLR
// count.
type Header struct {
	FileSourceID    uint16
	GlobalEncoding  uint16
	ProjectID       [16]byte
	VersionMajor    uint8
	VersionMinor    uint8
	SystemID        string
	GeneratingSW    string
	FileCreationDay uint16
	FileCreationYr  uint16
	PointFormat     PointFormat
	PointRecordLen  uint16
	NumberOfPoints  uint32
	NumPointsByReturn [5]uint32

	ScaleX, ScaleY, ScaleZ    float64
	OffsetX, OffsetY, OffsetZ float64
	MaxX, MaxY, MaxZ          float64
	MinX, MinY, MinZ          float64

	VLRs []VariableLengthRecord
}

// VariableLengthRecord is a LAS VLR: user ID, record ID, and an opaque
// payload. geocore round-trips VLRs byte-for-byte without interpreting
// any particular VLR's contents (e.g. GeoKeys); nothing here needs
// projection parameters beyond WKT pass-through.
type VariableLengthRecord struct {
	UserID       string // 16 bytes on disk
	RecordID     uint16
	Description  string // 32 bytes on disk
	Data         []byte
}

// NewHeader returns a Header with the defaults a freshly-initialized
// output file should carry: LAS 1.2, 0.001 scale, and the "EXTRACTION"
// system id marking a derived output.
func NewHeader(format PointFormat) Header {
	return Header{
		VersionMajor:   1,
		VersionMinor:   2,
		SystemID:       "EXTRACTION",
		GeneratingSW:   "geocore",
		GlobalEncoding: 1, // Adjusted Standard GPS Time
		PointFormat:    format,
		PointRecordLen: uint16(format.RecordLength()),
		ScaleX:         0.001,
		ScaleY:         0.001,
		ScaleZ:         0.001,
	}
}

func readHeader(r *bor.Reader) (Header, error) {
	r.SetOrder(bor.LittleEndian)
	sig, err := r.Bytes(4)
	if err != nil {
		return Header{}, err
	}
	if string(sig) != "LASF" {
		return Header{}, gcerr.New(gcerr.Corrupt, "lidar.readHeader", "missing LASF signature")
	}

	var h Header
	h.FileSourceID, _ = r.U16()
	h.GlobalEncoding, _ = r.U16()
	guid, err := r.Bytes(16)
	if err != nil {
		return Header{}, err
	}
	copy(h.ProjectID[:], guid)
	major, _ := r.U8()
	minor, _ := r.U8()
	h.VersionMajor, h.VersionMinor = major, minor

	sysID, err := r.Bytes(32)
	if err != nil {
		return Header{}, err
	}
	h.SystemID = trimNulString(sysID)
	genSW, err := r.Bytes(32)
	if err != nil {
		return Header{}, err
	}
	h.GeneratingSW = trimNulString(genSW)

	h.FileCreationDay, _ = r.U16()
	h.FileCreationYr, _ = r.U16()
	headerSz, err := r.U16()
	if err != nil {
		return Header{}, err
	}
	offsetToPoints, err := r.U32()
	if err != nil {
		return Header{}, err
	}
	numVLRs, err := r.U32()
	if err != nil {
		return Header{}, err
	}
	fmtByte, err := r.U8()
	if err != nil {
		return Header{}, err
	}
	h.PointFormat = PointFormat(fmtByte & 0x7f) // high bit marks compressed (LAZ)
	compressed := fmtByte&0x80 != 0
	h.PointRecordLen, err = r.U16()
	if err != nil {
		return Header{}, err
	}
	h.NumberOfPoints, err = r.U32()
	if err != nil {
		return Header{}, err
	}
	for i := range h.NumPointsByReturn {
		h.NumPointsByReturn[i], _ = r.U32()
	}
	h.ScaleX, _ = r.F64()
	h.ScaleY, _ = r.F64()
	h.ScaleZ, _ = r.F64()
	h.OffsetX, _ = r.F64()
	h.OffsetY, _ = r.F64()
	h.OffsetZ, _ = r.F64()
	h.MaxX, _ = r.F64()
	h.MinX, _ = r.F64()
	h.MaxY, _ = r.F64()
	h.MinY, _ = r.F64()
	h.MaxZ, _ = r.F64()
	h.MinZ, _ = r.F64()

	if int(headerSz) > headerSize {
		if err := r.Seek(int(headerSz)); err != nil {
			return Header{}, err
		}
	}

	for i := uint32(0); i < numVLRs; i++ {
		vlr, err := readVLR(r)
		if err != nil {
			return Header{}, err
		}
		h.VLRs = append(h.VLRs, vlr)
	}

	if int(r.Pos()) != int(offsetToPoints) {
		if err := r.Seek(int(offsetToPoints)); err != nil {
			return Header{}, gcerr.Wrap(gcerr.Corrupt, "lidar.readHeader", "offset to point data", err)
		}
	}

	if compressed {
		return h, gcerr.New(gcerr.Unsupported, "lidar.readHeader", "LAZ (compressed LAS) point data is header-readable only")
	}
	return h, nil
}

func readVLR(r *bor.Reader) (VariableLengthRecord, error) {
	if _, err := r.U16(); err != nil { // reserved
		return VariableLengthRecord{}, err
	}
	userID, err := r.Bytes(16)
	if err != nil {
		return VariableLengthRecord{}, err
	}
	recordID, err := r.U16()
	if err != nil {
		return VariableLengthRecord{}, err
	}
	length, err := r.U16()
	if err != nil {
		return VariableLengthRecord{}, err
	}
	desc, err := r.Bytes(32)
	if err != nil {
		return VariableLengthRecord{}, err
	}
	data, err := r.Bytes(int(length))
	if err != nil {
		return VariableLengthRecord{}, err
	}
	return VariableLengthRecord{
		UserID:      trimNulString(userID),
		RecordID:    recordID,
		Description: trimNulString(desc),
		Data:        append([]byte(nil), data...),
	}, nil
}

func writeVLR(w *bor.Writer, vlr VariableLengthRecord) {
	w.WriteU16(0)
	w.WriteFixedString(vlr.UserID, 16)
	w.WriteU16(vlr.RecordID)
	w.WriteU16(uint16(len(vlr.Data)))
	w.WriteFixedString(vlr.Description, 32)
	w.WriteBytes(vlr.Data)
}

func vlrBlockSize(vlrs []VariableLengthRecord) int {
	total := 0
	for _, v := range vlrs {
		total += 54 + len(v.Data)
	}
	return total
}

func writeHeader(w *bor.Writer, h Header) {
	w.SetOrder(bor.LittleEndian)
	w.WriteBytes([]byte("LASF"))
	w.WriteU16(h.FileSourceID)
	w.WriteU16(h.GlobalEncoding)
	w.WriteBytes(h.ProjectID[:])
	w.WriteU8(h.VersionMajor)
	w.WriteU8(h.VersionMinor)
	w.WriteFixedString(h.SystemID, 32)
	w.WriteFixedString(h.GeneratingSW, 32)

	now := time.Now()
	w.WriteU16(uint16(now.YearDay()))
	w.WriteU16(uint16(now.Year()))

	w.WriteU16(headerSize)
	offsetToPoints := headerSize + vlrBlockSize(h.VLRs)
	w.WriteU32(uint32(offsetToPoints))
	w.WriteU32(uint32(len(h.VLRs)))
	w.WriteU8(uint8(h.PointFormat))
	w.WriteU16(uint16(h.PointFormat.RecordLength()))
	w.WriteU32(h.NumberOfPoints)
	for _, n := range h.NumPointsByReturn {
		w.WriteU32(n)
	}
	w.WriteF64(h.ScaleX)
	w.WriteF64(h.ScaleY)
	w.WriteF64(h.ScaleZ)
	w.WriteF64(h.OffsetX)
	w.WriteF64(h.OffsetY)
	w.WriteF64(h.OffsetZ)
	w.WriteF64(h.MaxX)
	w.WriteF64(h.MinX)
	w.WriteF64(h.MaxY)
	w.WriteF64(h.MinY)
	w.WriteF64(h.MaxZ)
	w.WriteF64(h.MinZ)

	for _, vlr := range h.VLRs {
		writeVLR(w, vlr)
	}
}

func trimNulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
