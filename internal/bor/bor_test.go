package bor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU16(0xEEFF)
	w.WriteI32(-12345)
	w.WriteF64(3.14159265)
	w.SetOrder(BigEndian)
	w.WriteU32(0xCAFEBABE)
	w.WriteFixedString("LASF", 8)

	r := NewReader(w.Bytes())
	u16, err := r.U16()
	require.NoError(t, err)
	require.Equal(t, uint16(0xEEFF), u16)

	i32, err := r.I32()
	require.NoError(t, err)
	require.Equal(t, int32(-12345), i32)

	f64, err := r.F64()
	require.NoError(t, err)
	require.InDelta(t, 3.14159265, f64, 1e-12)

	r.SetOrder(BigEndian)
	u32, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), u32)

	raw, err := r.Bytes(8)
	require.NoError(t, err)
	require.Equal(t, "LASF\x00\x00\x00\x00", string(raw))
}

func TestReaderUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_, err := r.U32()
	require.Error(t, err)
}

func TestSeekOutOfRange(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	require.Error(t, r.Seek(10))
	require.NoError(t, r.Seek(2))
	require.Equal(t, 2, r.Pos())
}

func TestMixedEndianShapefileStyle(t *testing.T) {
	// Shapefile headers mix big-endian file-level fields with
	// little-endian geometry fields within the same 100-byte header.
	w := NewWriter()
	w.SetOrder(BigEndian)
	w.WriteI32(9994) // file code, big-endian
	w.SetOrder(LittleEndian)
	w.WriteI32(1000) // version, little-endian

	r := NewReader(w.Bytes())
	r.SetOrder(BigEndian)
	fc, err := r.I32()
	require.NoError(t, err)
	require.Equal(t, int32(9994), fc)
	r.SetOrder(LittleEndian)
	ver, err := r.I32()
	require.NoError(t, err)
	require.Equal(t, int32(1000), ver)
}
