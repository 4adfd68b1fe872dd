package raster

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/haldane-gis/geocore/internal/bor"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

// GeoTIFF-like codec: a single self-describing binary file, extension
// ".tif", structured as a baseline-TIFF Image File Directory plus a
// handful of the real GeoTIFF georeferencing tags (ModelPixelScale,
// ModelTiepoint) and one GDAL-style private ASCII tag for NoData
// (tag 42113, "GDAL_NODATA" in the wild). The IFD entry layout is the
// TIFF 6.0 one (2-byte tag, 2-byte type, 4-byte count, 4-byte
// value/offset); the codec does not attempt tiled images, compression,
// or multiple IFDs, since geocore rasters are always fully in-memory
// single-band grids.
type tiffField uint16

const (
	fieldByte     tiffField = 1
	fieldASCII    tiffField = 2
	fieldShort    tiffField = 3
	fieldLong     tiffField = 4
	fieldRational tiffField = 5
	fieldSByte    tiffField = 6
	fieldSShort   tiffField = 8
	fieldSLong    tiffField = 9
	fieldFloat    tiffField = 11
	fieldDouble   tiffField = 12
)

func (f tiffField) size() uint32 {
	switch f {
	case fieldByte, fieldASCII, fieldSByte:
		return 1
	case fieldShort, fieldSShort:
		return 2
	case fieldLong, fieldSLong, fieldFloat:
		return 4
	case fieldRational, fieldDouble:
		return 8
	default:
		return 0
	}
}

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGDALNoData      = 42113 // GDAL's private ASCII NoData tag, adopted as-is.

	// geocore private tags, in the TIFF private-use range (>= 32768 is
	// reserved for exactly this).
	tagGeocorePalette  = 65000
	tagGeocoreWKT      = 65001
	tagGeocoreMinMax   = 65002
	tagGeocoreDataType = 65003
)

const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

func init() { registerCodec("tif", tiffCodec{}); registerCodec("tiff", tiffCodec{}) }

type tiffCodec struct{}

type ifdEntry struct {
	tag      uint16
	typ      tiffField
	count    uint32
	valueRaw []byte // exactly 4 bytes; either the value itself or an offset
}

func (tiffCodec) Read(path string, mode Mode) (*Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.NotFound, "raster.tiff.Read", path, err)
	}
	if len(data) < 8 {
		return nil, gcerr.New(gcerr.Corrupt, "raster.tiff.Read", "file too short for a TIFF header")
	}
	r := bor.NewReader(data)
	magic, _ := r.Bytes(2)
	switch string(magic) {
	case "II":
		r.SetOrder(bor.LittleEndian)
	case "MM":
		r.SetOrder(bor.BigEndian)
	default:
		return nil, gcerr.New(gcerr.Corrupt, "raster.tiff.Read", "bad byte-order mark")
	}
	magicNum, err := r.U16()
	if err != nil || magicNum != 42 {
		return nil, gcerr.New(gcerr.Corrupt, "raster.tiff.Read", "bad TIFF magic number")
	}
	ifdOffset, err := r.U32()
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.tiff.Read", "IFD offset", err)
	}
	if err := r.Seek(int(ifdOffset)); err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.tiff.Read", "seek to IFD", err)
	}
	count, err := r.U16()
	if err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.tiff.Read", "IFD entry count", err)
	}
	entries := make(map[uint16]ifdEntry, count)
	for i := 0; i < int(count); i++ {
		tag, _ := r.U16()
		typ, _ := r.U16()
		cnt, _ := r.U32()
		raw, err := r.Bytes(4)
		if err != nil {
			return nil, gcerr.Wrap(gcerr.Corrupt, "raster.tiff.Read", "IFD entry", err)
		}
		entries[tag] = ifdEntry{tag: tag, typ: tiffField(typ), count: cnt, valueRaw: append([]byte(nil), raw...)}
	}

	order := r.Order()
	longAt := func(e ifdEntry) uint32 { return orderU32(order, e.valueRaw) }

	widthEntry, ok := entries[tagImageWidth]
	if !ok {
		return nil, gcerr.New(gcerr.Corrupt, "raster.tiff.Read", "missing ImageWidth tag")
	}
	heightEntry, ok := entries[tagImageLength]
	if !ok {
		return nil, gcerr.New(gcerr.Corrupt, "raster.tiff.Read", "missing ImageLength tag")
	}
	width := int(longAt(widthEntry))
	height := int(longAt(heightEntry))
	if width <= 0 || height <= 0 {
		return nil, gcerr.New(gcerr.Corrupt, "raster.tiff.Read", "non-positive image dimensions")
	}

	dt := DTFloat64
	if e, ok := entries[tagGeocoreDataType]; ok {
		dt = DataType(longAt(e))
	}

	cfg := NewDefaultConfigs()
	cfg.Rows, cfg.Columns = height, width
	cfg.DataType = dt

	if e, ok := entries[tagModelPixelScale]; ok {
		vals, err := readDoubles(data, order, e, 3)
		if err == nil && len(vals) >= 2 {
			cfg.ResolutionX, cfg.ResolutionY = vals[0], vals[1]
		}
	}
	var west, north float64
	if e, ok := entries[tagModelTiepoint]; ok {
		vals, err := readDoubles(data, order, e, 6)
		if err == nil && len(vals) >= 5 {
			west, north = vals[3], vals[4]
		}
	}
	cfg.West, cfg.North = west, north
	cfg.East = west + float64(width)*cfg.ResolutionX
	cfg.South = north - float64(height)*cfg.ResolutionY

	if e, ok := entries[tagGDALNoData]; ok {
		if f, err := parseASCIIFloat(data, order, e); err == nil {
			cfg.NoData = f
		}
	}
	if e, ok := entries[tagGeocorePalette]; ok {
		cfg.Palette = readASCIIString(data, order, e)
	}
	if e, ok := entries[tagGeocoreWKT]; ok {
		cfg.ProjectionWKT = readASCIIString(data, order, e)
	}
	if e, ok := entries[tagGeocoreMinMax]; ok {
		vals, err := readDoubles(data, order, e, 2)
		if err == nil && len(vals) == 2 {
			cfg.Min, cfg.Max = vals[0], vals[1]
		}
	}
	if e, ok := entries[tagPhotometric]; ok {
		if longAt(e) == 2 {
			cfg.PhotometricInterp = RGB
		}
	}

	if mode == ModeReadHeader {
		return New(cfg)
	}

	stripOffsetEntry, ok := entries[tagStripOffsets]
	if !ok {
		return nil, gcerr.New(gcerr.Corrupt, "raster.tiff.Read", "missing StripOffsets tag")
	}
	stripOffset := longAt(stripOffsetEntry)
	bitsPerSample := uint32(64)
	if e, ok := entries[tagBitsPerSample]; ok {
		bitsPerSample = longAt(e)
	}
	sampleFormat := uint32(sampleFormatFloat)
	if e, ok := entries[tagSampleFormat]; ok {
		sampleFormat = longAt(e)
	}
	samplesPerPixel := uint32(1)
	if e, ok := entries[tagSamplesPerPixel]; ok {
		samplesPerPixel = longAt(e)
	}

	rast, err := New(cfg)
	if err != nil {
		return nil, err
	}
	sr := bor.NewReader(data)
	sr.SetOrder(order)
	if err := sr.Seek(int(stripOffset)); err != nil {
		return nil, gcerr.Wrap(gcerr.Corrupt, "raster.tiff.Read", "seek to pixel data", err)
	}
	for row := 0; row < height; row++ {
		rowVals := make([]float64, width)
		for col := 0; col < width; col++ {
			v, err := readSample(sr, bitsPerSample, sampleFormat, int(samplesPerPixel))
			if err != nil {
				return nil, gcerr.Wrap(gcerr.Corrupt, "raster.tiff.Read", "pixel data truncated", err)
			}
			rowVals[col] = v
		}
		_ = rast.SetRowData(row, rowVals)
	}
	return rast, nil
}

func readSample(r *bor.Reader, bits, format uint32, samples int) (float64, error) {
	if samples == 3 {
		// Packed RGB24: three 8-bit channels -> one packed float64.
		rr, err := r.U8()
		if err != nil {
			return 0, err
		}
		gg, err := r.U8()
		if err != nil {
			return 0, err
		}
		bb, err := r.U8()
		if err != nil {
			return 0, err
		}
		return float64(uint32(rr)<<16 | uint32(gg)<<8 | uint32(bb)), nil
	}
	switch {
	case format == sampleFormatFloat && bits == 64:
		return r.F64()
	case format == sampleFormatFloat && bits == 32:
		v, err := r.F32()
		return float64(v), err
	case format == sampleFormatInt && bits == 32:
		v, err := r.I32()
		return float64(v), err
	case format == sampleFormatInt && bits == 16:
		v, err := r.I16()
		return float64(v), err
	case format == sampleFormatUint && bits == 8:
		v, err := r.U8()
		return float64(v), err
	default:
		v, err := r.F64()
		return v, err
	}
}

func writeSample(w *bor.Writer, v float64, dt DataType) {
	switch dt {
	case DTFloat32:
		w.WriteF32(float32(v))
	case DTInt64:
		w.WriteI64(int64(v))
	case DTInt32:
		w.WriteI32(int32(v))
	case DTInt16:
		w.WriteI16(int16(v))
	case DTInt8:
		w.WriteI8(int8(v))
	case DTUint8:
		w.WriteU8(uint8(v))
	case DTRGB24, DTRGBA32, DTRGB48:
		packed := uint32(v)
		w.WriteU8(uint8(packed >> 16))
		w.WriteU8(uint8(packed >> 8))
		w.WriteU8(uint8(packed))
	default:
		w.WriteF64(v)
	}
}

func sampleLayout(dt DataType) (bits, format uint32, samplesPerPixel int) {
	switch dt {
	case DTFloat32:
		return 32, sampleFormatFloat, 1
	case DTInt64:
		return 64, sampleFormatInt, 1
	case DTInt32:
		return 32, sampleFormatInt, 1
	case DTInt16:
		return 16, sampleFormatInt, 1
	case DTInt8:
		return 8, sampleFormatInt, 1
	case DTUint8:
		return 8, sampleFormatUint, 1
	case DTRGB24, DTRGBA32, DTRGB48:
		return 8, sampleFormatUint, 3
	default:
		return 64, sampleFormatFloat, 1
	}
}

func readDoubles(data []byte, order bor.Order, e ifdEntry, want int) ([]float64, error) {
	off := orderU32(order, e.valueRaw)
	r := bor.NewReader(data)
	r.SetOrder(order)
	if err := r.Seek(int(off)); err != nil {
		return nil, err
	}
	out := make([]float64, 0, want)
	for i := 0; i < int(e.count) && i < want+3; i++ {
		v, err := r.F64()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readASCIIString(data []byte, order bor.Order, e ifdEntry) string {
	if e.count <= 4 {
		return string(trimNul(e.valueRaw[:e.count]))
	}
	off := orderU32(order, e.valueRaw)
	if int(off)+int(e.count) > len(data) {
		return ""
	}
	return string(trimNul(data[off : off+e.count]))
}

func parseASCIIFloat(data []byte, order bor.Order, e ifdEntry) (float64, error) {
	s := readASCIIString(data, order, e)
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// orderU32 decodes a 4-byte IFD value/offset field in the given byte
// order. bor.Reader already does this internally for the typed reads
// above; this small helper covers the handful of places the IFD parser
// needs to interpret a raw 4-byte entry field directly, without seeking
// a Reader over it.
func orderU32(o bor.Order, b []byte) uint32 {
	if o == bor.BigEndian {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}

func writeTiff(rast *Raster, path string) error {
	cfg := rast.Configs
	w := bor.NewWriter()
	w.SetOrder(bor.LittleEndian)
	w.WriteBytes([]byte("II"))
	w.WriteU16(42)

	bits, format, samplesPerPixel := sampleLayout(cfg.DataType)
	rowBytes := samplesPerPixel * int(bits/8) * cfg.Columns
	pixelDataSize := rowBytes * cfg.Rows

	type entry struct {
		tag   uint16
		typ   tiffField
		count uint32
		value []byte // either <=4 raw bytes, or an external blob to place after the IFD
		inline bool
	}

	var external [][]byte
	addExternal := func(b []byte) uint32 {
		// placeholder offsets resolved in a second pass
		external = append(external, b)
		return uint32(len(external) - 1)
	}

	u32le := func(v uint32) []byte {
		b := make([]byte, 4)
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		return b
	}

	var entries []entry
	addShort := func(tag uint16, v uint32) {
		entries = append(entries, entry{tag: tag, typ: fieldShort, count: 1, value: u32le(v), inline: true})
	}
	addLong := func(tag uint16, v uint32) {
		entries = append(entries, entry{tag: tag, typ: fieldLong, count: 1, value: u32le(v), inline: true})
	}
	addExternalEntry := func(tag uint16, typ tiffField, count uint32, blob []byte) {
		if len(blob) <= 4 {
			// TIFF keeps a value of 4 bytes or fewer in the entry itself.
			v := make([]byte, 4)
			copy(v, blob)
			entries = append(entries, entry{tag: tag, typ: typ, count: count, value: v, inline: true})
			return
		}
		idx := addExternal(blob)
		entries = append(entries, entry{tag: tag, typ: typ, count: count, value: u32le(idx), inline: false})
	}

	addLong(tagImageWidth, uint32(cfg.Columns))
	addLong(tagImageLength, uint32(cfg.Rows))
	addShort(tagBitsPerSample, bits)
	addShort(tagCompression, 1)
	photometric := uint32(1)
	if cfg.PhotometricInterp == RGB {
		photometric = 2
	}
	addShort(tagPhotometric, photometric)
	addShort(tagSamplesPerPixel, uint32(samplesPerPixel))
	addLong(tagRowsPerStrip, uint32(cfg.Rows))
	addLong(tagStripByteCounts, uint32(pixelDataSize))
	addShort(tagSampleFormat, format)
	addLong(tagGeocoreDataType, uint32(cfg.DataType))

	pixelScale := make([]byte, 24)
	putDoubles(pixelScale, []float64{cfg.ResolutionX, cfg.ResolutionY, 0})
	addExternalEntry(tagModelPixelScale, fieldDouble, 3, pixelScale)

	tiepoint := make([]byte, 48)
	putDoubles(tiepoint, []float64{0, 0, 0, cfg.West, cfg.North, 0})
	addExternalEntry(tagModelTiepoint, fieldDouble, 6, tiepoint)

	nodataStr := fmt.Sprintf("%v", cfg.NoData)
	addExternalEntry(tagGDALNoData, fieldASCII, uint32(len(nodataStr)+1), append([]byte(nodataStr), 0))

	if cfg.Palette != "" {
		addExternalEntry(tagGeocorePalette, fieldASCII, uint32(len(cfg.Palette)+1), append([]byte(cfg.Palette), 0))
	}
	if cfg.ProjectionWKT != "" {
		addExternalEntry(tagGeocoreWKT, fieldASCII, uint32(len(cfg.ProjectionWKT)+1), append([]byte(cfg.ProjectionWKT), 0))
	}
	minMax := make([]byte, 16)
	putDoubles(minMax, []float64{cfg.Min, cfg.Max})
	addExternalEntry(tagGeocoreMinMax, fieldDouble, 2, minMax)

	// StripOffsets is resolved last, once we know the final layout.
	stripOffsetEntryIdx := len(entries)
	addLong(tagStripOffsets, 0)

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
	// stripOffsetEntryIdx is now stale after sort; find it again.
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			stripOffsetEntryIdx = i
		}
	}

	headerLen := 8
	ifdLen := 2 + 12*len(entries) + 4
	ifdOffset := headerLen
	externalOffset := ifdOffset + ifdLen
	externalOffsets := make([]uint32, len(external))
	cursor := uint32(externalOffset)
	for i, blob := range external {
		externalOffsets[i] = cursor
		cursor += uint32(len(blob))
	}
	pixelDataOffset := cursor

	resolveOffset := func(e entry) uint32 {
		if e.inline {
			return 0
		}
		idx := u32le2idx(e.value)
		return externalOffsets[idx]
	}

	entries[stripOffsetEntryIdx].value = u32le(pixelDataOffset)
	entries[stripOffsetEntryIdx].inline = true

	w.WriteU32(uint32(ifdOffset))
	w.WriteU16(uint16(len(entries)))
	for _, e := range entries {
		w.WriteU16(e.tag)
		w.WriteU16(uint16(e.typ))
		w.WriteU32(e.count)
		if e.inline {
			w.WriteBytes(e.value)
		} else {
			w.WriteU32(resolveOffset(e))
		}
	}
	w.WriteU32(0) // no next IFD

	for _, blob := range external {
		w.WriteBytes(blob)
	}

	for row := 0; row < cfg.Rows; row++ {
		vals := rast.RowData(row)
		for _, v := range vals {
			writeSample(w, v, cfg.DataType)
		}
	}

	if err := os.WriteFile(path, w.Bytes(), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "raster.tiff.Write", path, err)
	}
	return nil
}

func u32le2idx(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putDoubles(dst []byte, vals []float64) {
	for i, v := range vals {
		bits := math.Float64bits(v)
		for j := 0; j < 8; j++ {
			dst[i*8+j] = byte(bits >> (8 * j))
		}
	}
}

func (tiffCodec) Write(r *Raster, path string) error { return writeTiff(r, path) }
