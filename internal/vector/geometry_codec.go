package vector

import (
	"github.com/haldane-gis/geocore/internal/bor"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

func writeMainHeader(w *bor.Writer, f *File, fileLengthWords int) {
	w.SetOrder(bor.BigEndian)
	w.WriteI32(fileCode)
	for i := 0; i < 5; i++ {
		w.WriteI32(0)
	}
	w.WriteI32(int32(fileLengthWords))

	w.SetOrder(bor.LittleEndian)
	w.WriteI32(shapefileVersion)
	w.WriteI32(int32(f.ShapeType))
	w.WriteF64(f.MinX)
	w.WriteF64(f.MinY)
	w.WriteF64(f.MaxX)
	w.WriteF64(f.MaxY)
	w.WriteF64(f.MinZ)
	w.WriteF64(f.MaxZ)
	w.WriteF64(f.MinM)
	w.WriteF64(f.MaxM)
}

// recordContentWords returns the content length of g in 16-bit words,
// excluding the 8-byte record header (matching the Shapefile convention
// the .shx index and record headers both use).
func recordContentWords(g Geometry) int {
	return contentBytes(g) / 2
}

func contentBytes(g Geometry) int {
	if g.Type == ShapeNull {
		return 4
	}
	n := len(g.Points)
	switch {
	case g.Type == ShapePoint:
		return 4 + 16
	case g.Type == ShapePointZ:
		return 4 + 16 + 8 + 8 // X,Y,Z,M
	case g.Type == ShapePointM:
		return 4 + 16 + 8
	case g.Type == ShapeMultiPoint, g.Type == ShapeMultiPointZ, g.Type == ShapeMultiPointM:
		size := 4 + 32 + 4 + 16*n
		if g.Type.HasZ() {
			size += 16 + 8*n
		}
		if g.Type.HasM() {
			size += 16 + 8*n
		}
		return size
	case g.Type.IsPoly():
		size := 4 + 32 + 4 + 4 + 4*len(g.Parts) + 16*n
		if g.Type.HasZ() {
			size += 16 + 8*n
		}
		if g.Type.HasM() {
			size += 16 + 8*n
		}
		return size
	default:
		return 4
	}
}

func readRecord(r *bor.Reader) (Geometry, error) {
	r.SetOrder(bor.BigEndian)
	if _, err := r.I32(); err != nil { // record number, unused
		return Geometry{}, err
	}
	if _, err := r.I32(); err != nil { // content length in words, unused (shape type drives decode)
		return Geometry{}, err
	}

	r.SetOrder(bor.LittleEndian)
	code, err := r.I32()
	if err != nil {
		return Geometry{}, err
	}
	shapeType, err := validateShapeType(code)
	if err != nil {
		return Geometry{}, err
	}
	g := Geometry{Type: shapeType}
	if shapeType == ShapeNull {
		return g, nil
	}

	switch {
	case shapeType == ShapePoint || shapeType == ShapePointZ || shapeType == ShapePointM:
		x, err := r.F64()
		if err != nil {
			return g, err
		}
		y, err := r.F64()
		if err != nil {
			return g, err
		}
		g.Points = []Point2D{{X: x, Y: y}}
		if shapeType.HasZ() {
			z, err := r.F64()
			if err != nil {
				return g, err
			}
			g.Z = []float64{z}
		}
		if shapeType.HasM() {
			m, err := r.F64()
			if err != nil {
				return g, err
			}
			g.M = []float64{m}
		}
		g.computeBounds()
		return g, nil

	case shapeType == ShapeMultiPoint || shapeType == ShapeMultiPointZ || shapeType == ShapeMultiPointM:
		if err := readBox(r, &g); err != nil {
			return g, err
		}
		numPoints, err := r.I32()
		if err != nil {
			return g, err
		}
		pts, err := readPoints(r, int(numPoints))
		if err != nil {
			return g, err
		}
		g.Points = pts
		if shapeType.HasZ() {
			if err := readZArray(r, &g, int(numPoints)); err != nil {
				return g, err
			}
		}
		if shapeType.HasM() {
			if err := readMArray(r, &g, int(numPoints)); err != nil {
				return g, err
			}
		}
		return g, nil

	case shapeType.IsPoly():
		if err := readBox(r, &g); err != nil {
			return g, err
		}
		numParts, err := r.I32()
		if err != nil {
			return g, err
		}
		numPoints, err := r.I32()
		if err != nil {
			return g, err
		}
		parts := make([]int32, numParts)
		for i := range parts {
			parts[i], err = r.I32()
			if err != nil {
				return g, err
			}
		}
		g.Parts = parts
		pts, err := readPoints(r, int(numPoints))
		if err != nil {
			return g, err
		}
		g.Points = pts
		if shapeType.HasZ() {
			if err := readZArray(r, &g, int(numPoints)); err != nil {
				return g, err
			}
		}
		if shapeType.HasM() {
			if err := readMArray(r, &g, int(numPoints)); err != nil {
				return g, err
			}
		}
		return g, nil

	default:
		return g, gcerr.New(gcerr.InvalidInput, "vector.readRecord", "unsupported shape type")
	}
}

func readBox(r *bor.Reader, g *Geometry) error {
	var err error
	if g.MinX, err = r.F64(); err != nil {
		return err
	}
	if g.MinY, err = r.F64(); err != nil {
		return err
	}
	if g.MaxX, err = r.F64(); err != nil {
		return err
	}
	if g.MaxY, err = r.F64(); err != nil {
		return err
	}
	return nil
}

func readPoints(r *bor.Reader, n int) ([]Point2D, error) {
	pts := make([]Point2D, n)
	for i := range pts {
		x, err := r.F64()
		if err != nil {
			return nil, err
		}
		y, err := r.F64()
		if err != nil {
			return nil, err
		}
		pts[i] = Point2D{X: x, Y: y}
	}
	return pts, nil
}

func readZArray(r *bor.Reader, g *Geometry, n int) error {
	if _, err := r.F64(); err != nil { // Zmin, recomputed on demand
		return err
	}
	if _, err := r.F64(); err != nil { // Zmax
		return err
	}
	z := make([]float64, n)
	for i := range z {
		v, err := r.F64()
		if err != nil {
			return err
		}
		z[i] = v
	}
	g.Z = z
	g.computeBounds()
	return nil
}

func readMArray(r *bor.Reader, g *Geometry, n int) error {
	if _, err := r.F64(); err != nil { // Mmin
		return err
	}
	if _, err := r.F64(); err != nil { // Mmax
		return err
	}
	m := make([]float64, n)
	for i := range m {
		v, err := r.F64()
		if err != nil {
			return err
		}
		m[i] = v
	}
	g.M = m
	g.computeBounds()
	return nil
}

// writeRecord appends record i's header and content to w and returns the
// content length in bytes (for the sibling .shx index).
func writeRecord(w *bor.Writer, recordNumber int, g Geometry) int {
	content := contentBytes(g)
	w.SetOrder(bor.BigEndian)
	w.WriteI32(int32(recordNumber))
	w.WriteI32(int32(content / 2))

	w.SetOrder(bor.LittleEndian)
	w.WriteI32(int32(g.Type))
	if g.Type == ShapeNull {
		return content
	}

	switch {
	case g.Type == ShapePoint || g.Type == ShapePointZ || g.Type == ShapePointM:
		p := g.Points[0]
		w.WriteF64(p.X)
		w.WriteF64(p.Y)
		if g.Type.HasZ() {
			w.WriteF64(g.Z[0])
		}
		if g.Type.HasM() {
			w.WriteF64(g.M[0])
		}

	case g.Type == ShapeMultiPoint || g.Type == ShapeMultiPointZ || g.Type == ShapeMultiPointM:
		writeBox(w, g)
		w.WriteI32(int32(len(g.Points)))
		writePoints(w, g.Points)
		if g.Type.HasZ() {
			writeOrdinateArray(w, g.Z)
		}
		if g.Type.HasM() {
			writeOrdinateArray(w, g.M)
		}

	case g.Type.IsPoly():
		writeBox(w, g)
		w.WriteI32(int32(len(g.Parts)))
		w.WriteI32(int32(len(g.Points)))
		for _, p := range g.Parts {
			w.WriteI32(p)
		}
		writePoints(w, g.Points)
		if g.Type.HasZ() {
			writeOrdinateArray(w, g.Z)
		}
		if g.Type.HasM() {
			writeOrdinateArray(w, g.M)
		}
	}
	return content
}

func writeBox(w *bor.Writer, g Geometry) {
	w.WriteF64(g.MinX)
	w.WriteF64(g.MinY)
	w.WriteF64(g.MaxX)
	w.WriteF64(g.MaxY)
}

func writePoints(w *bor.Writer, pts []Point2D) {
	for _, p := range pts {
		w.WriteF64(p.X)
		w.WriteF64(p.Y)
	}
}

func writeOrdinateArray(w *bor.Writer, vals []float64) {
	min, max := 0.0, 0.0
	if len(vals) > 0 {
		min, max = vals[0], vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	w.WriteF64(min)
	w.WriteF64(max)
	for _, v := range vals {
		w.WriteF64(v)
	}
}
