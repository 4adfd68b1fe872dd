package lidar

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func writeSampleFile(t *testing.T, format PointFormat, points int) (*File, string) {
	t.Helper()
	f := InitializeUsingFile(&File{Header: NewHeader(format)})
	for i := 0; i < points; i++ {
		rec := Record{
			Format:          format,
			Intensity:       uint16(100 + i),
			ReturnNumber:    1,
			NumberOfReturns: 1,
			Classification:  2,
			ScanAngle:       5,
		}
		if format.HasGPSTime() {
			rec.GPSTime = float64(i) * 0.01
		}
		if format.HasColor() {
			rec.R, rec.G, rec.B = 100, 150, 200
		}
		x := float64(i) * 1.5
		y := float64(i) * 2.5
		z := 10.0 + float64(i)
		require.NoError(t, f.AddPointRecord(rec, x, y, z))
	}
	path := filepath.Join(t.TempDir(), "points.las")
	require.NoError(t, f.Write(path))
	return f, path
}

func TestLASRoundTripFormat3(t *testing.T) {
	original, path := writeSampleFile(t, Format3, 10)

	back, err := Open(path, ModeRead)
	require.NoError(t, err)
	require.Equal(t, original.Header.PointFormat, back.Header.PointFormat)
	require.Equal(t, len(original.Records), back.NumberOfPoints())
	require.Equal(t, original.Header.MinX, back.Header.MinX)
	require.Equal(t, original.Header.MaxZ, back.Header.MaxZ)

	for i := range original.Records {
		ox, oy, oz := original.TransformedCoords(original.Records[i])
		bx, by, bz := back.TransformedCoords(back.Records[i])
		require.InDelta(t, ox, bx, 1e-6)
		require.InDelta(t, oy, by, 1e-6)
		require.InDelta(t, oz, bz, 1e-6)
		require.Equal(t, original.Records[i].Classification, back.Records[i].Classification)
		require.Equal(t, original.Records[i].R, back.Records[i].R)
	}
}

func TestLASRoundTripFormat0NoGPSNoColor(t *testing.T) {
	_, path := writeSampleFile(t, Format0, 5)
	back, err := Open(path, ModeRead)
	require.NoError(t, err)
	require.Equal(t, 5, back.NumberOfPoints())
	require.Equal(t, Format0, back.Header.PointFormat)
}

func TestLASRoundTripFormat6ExtendedLayout(t *testing.T) {
	original, path := writeSampleFile(t, Format6, 8)
	back, err := Open(path, ModeRead)
	require.NoError(t, err)
	for i := range original.Records {
		require.Equal(t, original.Records[i].Classification, back.Records[i].Classification)
		require.Equal(t, original.Records[i].ReturnNumber, back.Records[i].ReturnNumber)
		require.InDelta(t, original.Records[i].GPSTime, back.Records[i].GPSTime, 1e-9)
	}
}

func TestHeaderOnlyModeSkipsPoints(t *testing.T) {
	_, path := writeSampleFile(t, Format3, 10)
	f, err := Open(path, ModeHeaderOnly)
	require.NoError(t, err)
	require.Equal(t, 0, f.NumberOfPoints())
	require.Equal(t, uint32(10), f.Header.NumberOfPoints)
}

// TestLASFilterRoundTrip covers the noise-filtering flow: a file with
// 10 points, two marked class=7 (noise), filtered down to 8 in the
// source's point format.
func TestLASFilterRoundTrip(t *testing.T) {
	original, path := writeSampleFile(t, Format1, 10)
	src, err := Open(path, ModeRead)
	require.NoError(t, err)

	// Mark two points as noise in the source records directly (simulating
	// what a classification tool would have written before this test).
	src.Records[3].Classification = 7
	src.Records[7].Classification = 7

	out := InitializeUsingFile(src)
	require.Equal(t, "EXTRACTION", out.Header.SystemID)
	for i, rec := range src.Records {
		if rec.Classification == 7 {
			continue
		}
		x, y, z := src.TransformedCoords(rec)
		require.NoError(t, out.AddPointRecord(rec, x, y, z))
		_ = i
	}
	require.Equal(t, 8, out.NumberOfPoints())
	require.Equal(t, original.Header.PointFormat, out.Header.PointFormat)

	outPath := filepath.Join(t.TempDir(), "filtered.las")
	require.NoError(t, out.Write(outPath))
	reloaded, err := Open(outPath, ModeRead)
	require.NoError(t, err)
	require.Equal(t, 8, reloaded.NumberOfPoints())
}

func TestPointInfoAndAs32BitLayout(t *testing.T) {
	_, path := writeSampleFile(t, Format7, 4)
	f, err := Open(path, ModeRead)
	require.NoError(t, err)

	info, err := f.PointInfo(0)
	require.NoError(t, err)
	require.Equal(t, uint8(2), info.Classification)

	rec := f.Records[0]
	rec.ReturnNumber = 9
	rec.Classification = 40
	mapped := rec.As32BitLayout()
	require.Equal(t, uint8(1), mapped.ReturnNumber)    // 9 & 0x07
	require.Equal(t, uint8(8), mapped.Classification)  // 40 & 0x1f
}

// TestLASHeaderRoundTripStructEqual compares the full decoded header
// against the written one field-for-field; only the file-creation date
// is excluded, since the writer stamps it at write time.
func TestLASHeaderRoundTripStructEqual(t *testing.T) {
	original, path := writeSampleFile(t, Format3, 6)
	back, err := Open(path, ModeRead)
	require.NoError(t, err)

	diff := cmp.Diff(original.Header, back.Header,
		cmpopts.IgnoreFields(Header{}, "FileCreationDay", "FileCreationYr"))
	require.Empty(t, diff, "header mismatch (-want +got)")
}
