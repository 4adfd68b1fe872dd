// Package vector implements ESRI Shapefile I/O: a reader/writer for
// Null/Point/PolyLine/Polygon/MultiPoint geometries in 2D, Z, and M
// flavours, polygon hole detection, and a typed DBF-style attribute
// table.
//
// The mixed-endian layout (big-endian file code, file length, and
// record-header fields mixed with little-endian shape-type and payload
// fields) is exactly the scenario
// internal/bor's switchable Order exists for; this package is the
// reason that cursor supports mid-stream endianness switches at all.
package vector

import "github.com/haldane-gis/geocore/internal/gcerr"

// ShapeType is the ESRI Shapefile shape-type code.
type ShapeType int32

const (
	ShapeNull        ShapeType = 0
	ShapePoint       ShapeType = 1
	ShapePolyLine    ShapeType = 3
	ShapePolygon     ShapeType = 5
	ShapeMultiPoint  ShapeType = 8
	ShapePointZ      ShapeType = 11
	ShapePolyLineZ   ShapeType = 13
	ShapePolygonZ    ShapeType = 15
	ShapeMultiPointZ ShapeType = 18
	ShapePointM      ShapeType = 21
	ShapePolyLineM   ShapeType = 23
	ShapePolygonM    ShapeType = 25
	ShapeMultiPointM ShapeType = 28
)

func (s ShapeType) String() string {
	switch s {
	case ShapeNull:
		return "Null"
	case ShapePoint:
		return "Point"
	case ShapePolyLine:
		return "PolyLine"
	case ShapePolygon:
		return "Polygon"
	case ShapeMultiPoint:
		return "MultiPoint"
	case ShapePointZ:
		return "PointZ"
	case ShapePolyLineZ:
		return "PolyLineZ"
	case ShapePolygonZ:
		return "PolygonZ"
	case ShapeMultiPointZ:
		return "MultiPointZ"
	case ShapePointM:
		return "PointM"
	case ShapePolyLineM:
		return "PolyLineM"
	case ShapePolygonM:
		return "PolygonM"
	case ShapeMultiPointM:
		return "MultiPointM"
	default:
		return "Unknown"
	}
}

// HasZ reports whether s carries a Z ordinate array.
func (s ShapeType) HasZ() bool {
	switch s {
	case ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ:
		return true
	default:
		return false
	}
}

// HasM reports whether s carries an M (measure) ordinate array. Shapes
// with Z also carry M in the ESRI convention (the Z record includes a
// trailing M block), so this is true for both the Z and M families.
func (s ShapeType) HasM() bool {
	switch s {
	case ShapePointM, ShapePolyLineM, ShapePolygonM, ShapeMultiPointM,
		ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ:
		return true
	default:
		return false
	}
}

// IsPoly reports whether s is a PolyLine or Polygon family shape (it
// carries Parts as well as Points).
func (s ShapeType) IsPoly() bool {
	switch s {
	case ShapePolyLine, ShapePolygon, ShapePolyLineZ, ShapePolygonZ, ShapePolyLineM, ShapePolygonM:
		return true
	default:
		return false
	}
}

func validateShapeType(code int32) (ShapeType, error) {
	switch ShapeType(code) {
	case ShapeNull, ShapePoint, ShapePolyLine, ShapePolygon, ShapeMultiPoint,
		ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ,
		ShapePointM, ShapePolyLineM, ShapePolygonM, ShapeMultiPointM:
		return ShapeType(code), nil
	default:
		return 0, gcerr.New(gcerr.InvalidInput, "vector.validateShapeType", "unknown shape-type code")
	}
}

// Point2D is a bare x,y coordinate.
type Point2D struct{ X, Y float64 }

// Geometry is a single Shapefile record's geometry: shape type,
// bounding rectangle, part offsets for poly shapes, point coordinates,
// and optional z/m arrays.
type Geometry struct {
	Type ShapeType

	MinX, MinY, MaxX, MaxY float64

	// Parts holds the starting point index of each ring/part for
	// PolyLine and Polygon shapes; nil for Point/MultiPoint.
	Parts  []int32
	Points []Point2D

	Z []float64 // len == len(Points) iff Type.HasZ()
	M []float64 // len == len(Points) iff Type.HasM()

	MinZ, MaxZ float64
	MinM, MaxM float64
}

// NumParts returns the number of rings/parts, treating a non-poly
// geometry as a single implicit part.
func (g *Geometry) NumParts() int {
	if g.Type.IsPoly() {
		return len(g.Parts)
	}
	return 1
}

// PartRange returns the half-open [start, end) point index range of
// part i, excluding nothing (callers wanting the ring without its
// duplicate closing vertex, as the hole-detection code does, should
// drop the last index themselves).
func (g *Geometry) PartRange(i int) (start, end int) {
	if !g.Type.IsPoly() {
		return 0, len(g.Points)
	}
	start = int(g.Parts[i])
	if i+1 < len(g.Parts) {
		end = int(g.Parts[i+1])
	} else {
		end = len(g.Points)
	}
	return start, end
}

// computeBounds derives MinX/MinY/MaxX/MaxY (and MinZ/MaxZ, MinM/MaxM
// when present) from Points/Z/M, for geometries built programmatically
// by a tool rather than read from disk.
func (g *Geometry) computeBounds() {
	if len(g.Points) == 0 {
		return
	}
	g.MinX, g.MaxX = g.Points[0].X, g.Points[0].X
	g.MinY, g.MaxY = g.Points[0].Y, g.Points[0].Y
	for _, p := range g.Points[1:] {
		if p.X < g.MinX {
			g.MinX = p.X
		}
		if p.X > g.MaxX {
			g.MaxX = p.X
		}
		if p.Y < g.MinY {
			g.MinY = p.Y
		}
		if p.Y > g.MaxY {
			g.MaxY = p.Y
		}
	}
	if len(g.Z) > 0 {
		g.MinZ, g.MaxZ = g.Z[0], g.Z[0]
		for _, z := range g.Z[1:] {
			if z < g.MinZ {
				g.MinZ = z
			}
			if z > g.MaxZ {
				g.MaxZ = z
			}
		}
	}
	if len(g.M) > 0 {
		g.MinM, g.MaxM = g.M[0], g.M[0]
		for _, m := range g.M[1:] {
			if m < g.MinM {
				g.MinM = m
			}
			if m > g.MaxM {
				g.MaxM = m
			}
		}
	}
}

// checkTypeConsistency: a Shapefile's header declares one shape type,
// and every record must either match it or be Null (ESRI's documented
// escape hatch for "missing" features in an otherwise-typed file).
// Mismatches are a common corruption signal.
func checkTypeConsistency(fileType ShapeType, recordType ShapeType) error {
	if recordType == ShapeNull || recordType == fileType {
		return nil
	}
	return gcerr.New(gcerr.InvalidInput, "vector.checkTypeConsistency",
		"record shape type "+recordType.String()+" does not match file shape type "+fileType.String())
}
