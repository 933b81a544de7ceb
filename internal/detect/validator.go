package detect

import (
	"math"
	"sort"

	"docscan/pkg/geometry"
)

// Validator assigns corner roles to document outlines and checks that a
// quadrilateral is close enough to a rectangle to be a page.
type Validator struct {
	AngleToleranceDeg  float64
	SideRatioTolerance float64
}

// OrderCorners assigns roles to exactly four points: the two with the
// smallest y form the top pair, and each pair is split by x.
func (v *Validator) OrderCorners(pts []geometry.Point2D) (geometry.CornerSet, bool) {
	if len(pts) != 4 {
		return geometry.CornerSet{}, false
	}
	sorted := make([]geometry.Point2D, 4)
	copy(sorted, pts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y == sorted[j].Y {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	top := sorted[:2]
	bottom := sorted[2:]
	if top[0].X > top[1].X {
		top[0], top[1] = top[1], top[0]
	}
	if bottom[0].X > bottom[1].X {
		bottom[0], bottom[1] = bottom[1], bottom[0]
	}

	return geometry.CornerSet{
		TopLeft:     top[0],
		TopRight:    top[1],
		BottomLeft:  bottom[0],
		BottomRight: bottom[1],
	}, true
}

// CornersFromContour assigns roles for an arbitrary contour. Points are
// bucketed into quadrants around the center of the contour's minimum-area
// rectangle and the point farthest from the center wins each quadrant.
// Returns false if any quadrant is empty.
func (v *Validator) CornersFromContour(contour []geometry.Point2D) (geometry.CornerSet, bool) {
	if len(contour) == 4 {
		return v.OrderCorners(contour)
	}
	if len(contour) < 4 {
		return geometry.CornerSet{}, false
	}

	center := geometry.MinAreaRect(contour).Center

	var best [4]geometry.Point2D
	var bestDist [4]float64
	for i := range bestDist {
		bestDist[i] = -1
	}

	for _, p := range contour {
		q := quadrant(p, center)
		if q < 0 {
			continue
		}
		d := p.Distance(center)
		if d > bestDist[q] {
			bestDist[q] = d
			best[q] = p
		}
	}

	for _, d := range bestDist {
		if d < 0 {
			return geometry.CornerSet{}, false
		}
	}

	return geometry.CornerSet{
		TopLeft:     best[0],
		TopRight:    best[1],
		BottomRight: best[2],
		BottomLeft:  best[3],
	}, true
}

// quadrant returns 0=TL, 1=TR, 2=BR, 3=BL, or -1 for a point on an axis.
func quadrant(p, c geometry.Point2D) int {
	switch {
	case p.X < c.X && p.Y < c.Y:
		return 0
	case p.X > c.X && p.Y < c.Y:
		return 1
	case p.X > c.X && p.Y > c.Y:
		return 2
	case p.X < c.X && p.Y > c.Y:
		return 3
	}
	return -1
}

// CheckAngles reports whether every interior angle of the polygon is within
// the tolerance of 90 degrees.
func (v *Validator) CheckAngles(quad []geometry.Point2D) bool {
	if len(quad) != 4 {
		return false
	}
	for _, a := range geometry.InteriorAngles(quad) {
		if math.Abs(a-90) > v.AngleToleranceDeg {
			return false
		}
	}
	return true
}

// CheckSideRatios reports whether both pairs of opposite sides have lengths
// within the relative tolerance of each other. The polygon must be in
// perimeter order.
func (v *Validator) CheckSideRatios(quad []geometry.Point2D) bool {
	if len(quad) != 4 {
		return false
	}
	sides := [4]float64{}
	for i := 0; i < 4; i++ {
		sides[i] = quad[i].Distance(quad[(i+1)%4])
	}
	return sideRatioOK(sides[0], sides[2], v.SideRatioTolerance) &&
		sideRatioOK(sides[1], sides[3], v.SideRatioTolerance)
}

// Validate runs both shape checks.
func (v *Validator) Validate(quad []geometry.Point2D) bool {
	return v.CheckAngles(quad) && v.CheckSideRatios(quad)
}

func sideRatioOK(a, b, tolerance float64) bool {
	longer := math.Max(a, b)
	if longer == 0 {
		return false
	}
	return math.Abs(a-b)/longer <= tolerance
}
