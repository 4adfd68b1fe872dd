package vector

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShapefileRoundTripPolygon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parcels.shp")

	f, err := New(path, ShapePolygon)
	require.NoError(t, err)
	require.NoError(t, f.Table.AddField(AttributeField{Name: "NAME", Type: FieldText, Width: 20}))
	require.NoError(t, f.Table.AddField(AttributeField{Name: "AREA", Type: FieldReal, Width: 12, Decimals: 2}))

	outer := []Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}}
	require.NoError(t, f.AddRecord(Geometry{Type: ShapePolygon, Parts: []int32{0}, Points: outer}))
	require.NoError(t, f.Table.AddRecord([]any{"parcel-1", 100.0}))

	require.NoError(t, f.Write(path))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, ShapePolygon, got.ShapeType)
	require.Len(t, got.Records, 1)
	require.Equal(t, outer, got.Records[0].Points)
	require.Equal(t, 0.0, got.Records[0].MinX)
	require.Equal(t, 10.0, got.Records[0].MaxY)

	require.NotNil(t, got.Table)
	require.Len(t, got.Table.Records, 1)
	require.Equal(t, "parcel-1", got.Table.Records[0][0])
	require.Equal(t, 100.0, got.Table.Records[0][1])
}

func TestShapefileRoundTripPointZ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "towers.shp")

	f, err := New(path, ShapePointZ)
	require.NoError(t, err)
	g := Geometry{Type: ShapePointZ, Points: []Point2D{{X: 5, Y: 6}}, Z: []float64{42.5}, M: []float64{1}}
	require.NoError(t, f.AddRecord(g))
	require.NoError(t, f.Write(path))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	require.Equal(t, 42.5, got.Records[0].Z[0])
	require.Equal(t, 1.0, got.Records[0].M[0])
}

func TestShapefileRoundTripMultiPoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stations.shp")

	f, err := New(path, ShapeMultiPoint)
	require.NoError(t, err)
	pts := []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: -1}}
	require.NoError(t, f.AddRecord(Geometry{Type: ShapeMultiPoint, Points: pts}))
	require.NoError(t, f.Write(path))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, pts, got.Records[0].Points)
}

func TestShapefileRejectsMismatchedShapeType(t *testing.T) {
	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "x.shp"), ShapePolygon)
	require.NoError(t, err)
	err = f.AddRecord(Geometry{Type: ShapePoint, Points: []Point2D{{X: 0, Y: 0}}})
	require.Error(t, err)
}

func TestShapefileAllowsNullRecordInTypedFile(t *testing.T) {
	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "x.shp"), ShapePolygon)
	require.NoError(t, err)
	require.NoError(t, f.AddRecord(Geometry{Type: ShapeNull}))
}

func TestAttributeTableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attrs.dbf")

	table := NewAttributeTable()
	require.NoError(t, table.AddField(AttributeField{Name: "ID", Type: FieldInt, Width: 8}))
	require.NoError(t, table.AddField(AttributeField{Name: "LABEL", Type: FieldText, Width: 16}))
	require.NoError(t, table.AddField(AttributeField{Name: "FLAG", Type: FieldBool, Width: 1}))
	require.NoError(t, table.AddField(AttributeField{Name: "WHEN", Type: FieldDate, Width: 8}))

	when := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, table.AddRecord([]any{int64(7), "sample", true, when}))
	require.NoError(t, table.AddRecord([]any{int64(8), "other", false, time.Time{}}))

	require.NoError(t, writeAttributeTable(table, path))
	got, err := readAttributeTable(path)
	require.NoError(t, err)
	require.Len(t, got.Records, 2)
	require.Equal(t, int64(7), got.Records[0][0])
	require.Equal(t, "sample", got.Records[0][1])
	require.Equal(t, true, got.Records[0][2])
	require.True(t, when.Equal(got.Records[0][3].(time.Time)))
	require.Equal(t, int64(8), got.Records[1][0])
	require.Equal(t, false, got.Records[1][2])
}

func TestIsHoleConvexWorkedExample(t *testing.T) {
	ring := []Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}}
	g := &Geometry{Type: ShapePolygon, Parts: []int32{0}, Points: ring}
	require.False(t, IsHole(g, 0))

	reversed := make([]Point2D, len(ring))
	for i, p := range ring {
		reversed[len(ring)-1-i] = p
	}
	g2 := &Geometry{Type: ShapePolygon, Parts: []int32{0}, Points: reversed}
	require.True(t, IsHole(g2, 0))
}

func TestIsHoleDegenerateRingIsNotAHole(t *testing.T) {
	g := &Geometry{Type: ShapePolygon, Parts: []int32{0}, Points: []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	require.False(t, IsHole(g, 0))
}

// An L-shaped ring has disagreeing cross-product signs, forcing the
// signed-area fallback; its classification must still flip when the
// vertex order is reversed.
func TestIsHoleConcaveRingUsesSignedAreaFallback(t *testing.T) {
	ring := []Point2D{
		{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 1},
		{X: 1, Y: 1}, {X: 1, Y: 4}, {X: 0, Y: 4}, {X: 0, Y: 0},
	}
	g := &Geometry{Type: ShapePolygon, Parts: []int32{0}, Points: ring}
	require.False(t, IsHole(g, 0))

	reversed := make([]Point2D, len(ring))
	for i, p := range ring {
		reversed[len(ring)-1-i] = p
	}
	g2 := &Geometry{Type: ShapePolygon, Parts: []int32{0}, Points: reversed}
	require.True(t, IsHole(g2, 0))
}
