// Package bor implements the mixed-endian binary cursor used by every
// geocore codec: a stateful reader/writer that advances automatically
// as typed values are consumed and can flip endianness mid-stream,
// which the Shapefile format (big-endian record headers, little-endian
// payloads) requires.
package bor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/haldane-gis/geocore/internal/gcerr"
)

// Order selects the byte order used for subsequent reads/writes.
type Order int

const (
	LittleEndian Order = iota
	BigEndian
)

func (o Order) impl() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Reader is a monotonic cursor over an in-memory buffer with switchable
// endianness. It never re-reads a byte once consumed within a read pass.
type Reader struct {
	buf   []byte
	pos   int
	order Order
}

// NewReader wraps buf for reading, starting in little-endian mode (the
// common case for LAS and the native raster grid format).
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, order: LittleEndian}
}

// SetOrder switches the endianness used by subsequent reads.
func (r *Reader) SetOrder(o Order) { r.order = o }

// Order returns the current endianness.
func (r *Reader) Order() Order { return r.order }

// Pos returns the current byte offset.
func (r *Reader) Pos() int { return r.pos }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.buf) {
		return gcerr.New(gcerr.Corrupt, "bor.Seek", fmt.Sprintf("offset %d out of range [0,%d]", pos, len(r.buf)))
	}
	r.pos = pos
	return nil
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, gcerr.New(gcerr.Corrupt, "bor.read", "unexpected end of buffer")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Bytes reads n raw bytes and advances the cursor.
func (r *Reader) Bytes(n int) ([]byte, error) { return r.take(n) }

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// I8 reads a signed byte.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// U16 reads an unsigned 16-bit value in the current byte order.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.impl().Uint16(b), nil
}

// I16 reads a signed 16-bit value.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads an unsigned 32-bit value.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.impl().Uint32(b), nil
}

// I32 reads a signed 32-bit value.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads an unsigned 64-bit value.
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.order.impl().Uint64(b), nil
}

// I64 reads a signed 64-bit value.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads an IEEE-754 32-bit float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F64 reads an IEEE-754 64-bit float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Writer is the append-only counterpart of Reader. Every codec that
// writes a binary format (native raster grid, LAS, Shapefile) grows its
// output into a Writer's buffer, then takes Bytes() once at the end.
type Writer struct {
	buf   []byte
	order Order
}

// NewWriter creates an empty little-endian Writer.
func NewWriter() *Writer { return &Writer{order: LittleEndian} }

// SetOrder switches the endianness used by subsequent writes.
func (w *Writer) SetOrder(o Order) { w.order = o }

// Order returns the current endianness.
func (w *Writer) Order() Order { return w.order }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

// WriteI8 appends a signed byte.
func (w *Writer) WriteI8(v int8) { w.WriteU8(uint8(v)) }

// WriteU16 appends an unsigned 16-bit value.
func (w *Writer) WriteU16(v uint16) {
	b := make([]byte, 2)
	w.order.impl().PutUint16(b, v)
	w.buf = append(w.buf, b...)
}

// WriteI16 appends a signed 16-bit value.
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

// WriteU32 appends an unsigned 32-bit value.
func (w *Writer) WriteU32(v uint32) {
	b := make([]byte, 4)
	w.order.impl().PutUint32(b, v)
	w.buf = append(w.buf, b...)
}

// WriteI32 appends a signed 32-bit value.
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

// WriteU64 appends an unsigned 64-bit value.
func (w *Writer) WriteU64(v uint64) {
	b := make([]byte, 8)
	w.order.impl().PutUint64(b, v)
	w.buf = append(w.buf, b...)
}

// WriteI64 appends a signed 64-bit value.
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteF32 appends an IEEE-754 32-bit float.
func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

// WriteF64 appends an IEEE-754 64-bit float.
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteFixedString writes s left-justified in a fixed-width, NUL-padded
// field of n bytes (the convention LAS uses for System Identifier and
// Generating Software, and Shapefile/DBF use for text fields). s is
// truncated if longer than n.
func (w *Writer) WriteFixedString(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf = append(w.buf, b...)
}
