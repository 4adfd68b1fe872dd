package vector

// IsHole classifies the ring orientation of part i of g:
//  1. Build cross-product samples across adjacent edges of the ring
//     (excluding the duplicate closing vertex).
//  2. If every sample agrees in sign, the ring is convex: a negative
//     first non-zero sample is clockwise (a hole); a positive one is
//     counter-clockwise (the outer ring).
//  3. Otherwise fall back to the signed-area test: negative area is
//     clockwise (a hole); positive is counter-clockwise (the outer
//     ring). Both branches are kept rather than picking one: concave
//     rings are common enough in real polygon data that the convexity
//     short-circuit alone would misclassify them.
func IsHole(g *Geometry, part int) bool {
	start, end := g.PartRange(part)
	ring := g.Points[start:end]
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return false
	}

	allPositive, allNegative := true, true
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		c := ring[(i+2)%len(ring)]
		cross := crossProduct(a, b, c)
		if cross > 0 {
			allNegative = false
		} else if cross < 0 {
			allPositive = false
		}
	}

	if allPositive || allNegative {
		// Convex: use the first non-zero sample to disambiguate.
		for i := range ring {
			a := ring[i]
			b := ring[(i+1)%len(ring)]
			c := ring[(i+2)%len(ring)]
			cross := crossProduct(a, b, c)
			if cross != 0 {
				return cross < 0 // negative sample => clockwise => hole
			}
		}
		return false
	}

	// Sign convention: matches the convex branch above on the same ring
	// orientation — a simple ring's per-edge cross products and its
	// signed area share a sign, convex or not.
	area := signedArea(ring)
	return area < 0
}

func crossProduct(a, b, c Point2D) float64 {
	ux, uy := b.X-a.X, b.Y-a.Y
	vx, vy := c.X-b.X, c.Y-b.Y
	return ux*vy - uy*vx
}

// signedArea computes the shoelace sum over the open ring; the caller
// has already dropped the duplicate closing vertex.
func signedArea(ring []Point2D) float64 {
	sum := 0.0
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}
