package geometry

import "math"

// CornerSet is a role-assigned quadrilateral. The top pair has smaller y than
// the bottom pair, and within each pair left has smaller x.
type CornerSet struct {
	TopLeft     Point2D `json:"topLeft"`
	TopRight    Point2D `json:"topRight"`
	BottomRight Point2D `json:"bottomRight"`
	BottomLeft  Point2D `json:"bottomLeft"`
}

// Points returns the corners in clockwise order starting at top-left.
func (c CornerSet) Points() []Point2D {
	return []Point2D{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// TopWidth is the length of the top edge.
func (c CornerSet) TopWidth() float64 { return c.TopLeft.Distance(c.TopRight) }

// BottomWidth is the length of the bottom edge.
func (c CornerSet) BottomWidth() float64 { return c.BottomLeft.Distance(c.BottomRight) }

// LeftHeight is the length of the left edge.
func (c CornerSet) LeftHeight() float64 { return c.TopLeft.Distance(c.BottomLeft) }

// RightHeight is the length of the right edge.
func (c CornerSet) RightHeight() float64 { return c.TopRight.Distance(c.BottomRight) }

// Width returns the longer of the two horizontal edges.
func (c CornerSet) Width() float64 { return math.Max(c.TopWidth(), c.BottomWidth()) }

// Height returns the longer of the two vertical edges.
func (c CornerSet) Height() float64 { return math.Max(c.LeftHeight(), c.RightHeight()) }

// Area returns the polygon area.
func (c CornerSet) Area() float64 { return PolygonArea(c.Points()) }

// Bounds returns the axis-aligned bounding box.
func (c CornerSet) Bounds() Rect { return BoundingBox(c.Points()) }

// Transform maps every corner through t.
func (c CornerSet) Transform(t AffineTransform) CornerSet {
	return CornerSet{
		TopLeft:     t.Apply(c.TopLeft),
		TopRight:    t.Apply(c.TopRight),
		BottomRight: t.Apply(c.BottomRight),
		BottomLeft:  t.Apply(c.BottomLeft),
	}
}

// RectCorners returns the CornerSet of an axis-aligned rectangle.
func RectCorners(r Rect) CornerSet {
	return CornerSet{
		TopLeft:     Point2D{X: r.X, Y: r.Y},
		TopRight:    Point2D{X: r.X + r.Width, Y: r.Y},
		BottomRight: Point2D{X: r.X + r.Width, Y: r.Y + r.Height},
		BottomLeft:  Point2D{X: r.X, Y: r.Y + r.Height},
	}
}
