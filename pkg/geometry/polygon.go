package geometry

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of a set of points using Graham scan.
// Returns the hull in counter-clockwise order (y up) without repeating the
// first point.
func ConvexHull(points []Point2D) []Point2D {
	if len(points) < 3 {
		out := make([]Point2D, len(points))
		copy(out, points)
		return out
	}

	pts := make([]Point2D, len(points))
	copy(pts, points)

	// Lowest y (leftmost if tied) is the pivot
	lowest := 0
	for i := 1; i < len(pts); i++ {
		if pts[i].Y < pts[lowest].Y ||
			(pts[i].Y == pts[lowest].Y && pts[i].X < pts[lowest].X) {
			lowest = i
		}
	}
	pts[0], pts[lowest] = pts[lowest], pts[0]
	pivot := pts[0]

	rest := pts[1:]
	sort.Slice(rest, func(i, j int) bool {
		cross := crossProduct(pivot, rest[i], rest[j])
		if cross == 0 {
			return distSq(pivot, rest[i]) < distSq(pivot, rest[j])
		}
		return cross > 0
	})

	hull := []Point2D{pivot}
	for _, p := range rest {
		for len(hull) > 1 && crossProduct(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting).
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int
	for i := 0; i < n; i++ {
		cross := crossProduct(polygon[i], polygon[(i+1)%n], polygon[(i+2)%n])
		if cross == 0 {
			continue
		}
		current := 1
		if cross < 0 {
			current = -1
		}
		if sign == 0 {
			sign = current
		} else if current != sign {
			return false
		}
	}
	return sign != 0
}

// PolygonArea returns the unsigned area of a simple polygon (shoelace formula).
func PolygonArea(polygon []Point2D) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += polygon[i].X*polygon[j].Y - polygon[j].X*polygon[i].Y
	}
	return math.Abs(sum) / 2
}

// InteriorAngles returns the angle in degrees at each vertex of the polygon,
// measured between the edges to its neighbours.
func InteriorAngles(polygon []Point2D) []float64 {
	n := len(polygon)
	if n < 3 {
		return nil
	}
	angles := make([]float64, n)
	for i := 0; i < n; i++ {
		prev := polygon[(i+n-1)%n].Sub(polygon[i])
		next := polygon[(i+1)%n].Sub(polygon[i])
		la := math.Hypot(prev.X, prev.Y)
		lb := math.Hypot(next.X, next.Y)
		if la == 0 || lb == 0 {
			angles[i] = 0
			continue
		}
		cos := (prev.X*next.X + prev.Y*next.Y) / (la * lb)
		cos = math.Max(-1, math.Min(1, cos))
		angles[i] = math.Acos(cos) * 180 / math.Pi
	}
	return angles
}

// RotatedRect is a rectangle of arbitrary orientation.
type RotatedRect struct {
	Center Point2D
	Width  float64
	Height float64
	// Angle of the Width side from the x axis, degrees.
	Angle float64
}

// MinAreaRect returns the minimum-area enclosing rectangle of the points.
// One side of the optimal rectangle is always collinear with a hull edge, so
// only hull edge directions are tried.
func MinAreaRect(points []Point2D) RotatedRect {
	hull := ConvexHull(points)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: hull[0]}
	case 2:
		return RotatedRect{
			Center: Centroid(hull),
			Width:  hull[0].Distance(hull[1]),
			Angle:  math.Atan2(hull[1].Y-hull[0].Y, hull[1].X-hull[0].X) * 180 / math.Pi,
		}
	}

	best := RotatedRect{}
	bestArea := math.Inf(1)
	n := len(hull)
	for i := 0; i < n; i++ {
		edge := hull[(i+1)%n].Sub(hull[i])
		length := math.Hypot(edge.X, edge.Y)
		if length == 0 {
			continue
		}
		ux, uy := edge.X/length, edge.Y/length
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u := p.X*ux + p.Y*uy
			v := -p.X*uy + p.Y*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				Center: Point2D{X: cu*ux - cv*uy, Y: cu*uy + cv*ux},
				Width:  maxU - minU,
				Height: maxV - minV,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}
	return best
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// distSq computes the squared distance between two points.
func distSq(a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}
