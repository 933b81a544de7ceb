package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonArea(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.InDelta(t, 100.0, PolygonArea(square), 1e-9)

	// Orientation does not change the unsigned area
	reversed := []Point2D{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	assert.InDelta(t, 100.0, PolygonArea(reversed), 1e-9)

	assert.Zero(t, PolygonArea(square[:2]))
}

func TestIsConvex(t *testing.T) {
	assert.True(t, IsConvex([]Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}))
	// Dart shape
	assert.False(t, IsConvex([]Point2D{{0, 0}, {10, 5}, {0, 10}, {3, 5}}))
	// Collinear points are not a polygon
	assert.False(t, IsConvex([]Point2D{{0, 0}, {1, 1}, {2, 2}}))
}

func TestInteriorAngles(t *testing.T) {
	angles := InteriorAngles([]Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	require.Len(t, angles, 4)
	for _, a := range angles {
		assert.InDelta(t, 90.0, a, 1e-9)
	}

	// Parallelogram with 60/120 degree corners
	para := []Point2D{{0, 0}, {10, 0}, {15, 8.660254}, {5, 8.660254}}
	angles = InteriorAngles(para)
	assert.InDelta(t, 60.0, angles[0], 0.01)
	assert.InDelta(t, 120.0, angles[1], 0.01)
}

func TestConvexHull(t *testing.T) {
	pts := []Point2D{{0, 0}, {5, 5}, {10, 0}, {10, 10}, {0, 10}, {3, 7}}
	hull := ConvexHull(pts)
	assert.Len(t, hull, 4)
	assert.InDelta(t, 100.0, PolygonArea(hull), 1e-9)
}

func TestMinAreaRect_Rotated(t *testing.T) {
	// 40x20 rectangle rotated by 30 degrees around (100, 100)
	rot := RotationAbout(Pt(100, 100), 30)
	base := RectCorners(Rect{X: 80, Y: 90, Width: 40, Height: 20})
	rotated := base.Transform(rot).Points()
	rotated = append(rotated, Pt(100, 100), Pt(95, 102))

	r := MinAreaRect(rotated)
	assert.InDelta(t, 100.0, r.Center.X, 1e-6)
	assert.InDelta(t, 100.0, r.Center.Y, 1e-6)
	assert.InDelta(t, 800.0, r.Width*r.Height, 1e-6)
}

func TestAffineInverse(t *testing.T) {
	tr := RotationAbout(Pt(50, 20), 17).Compose(Scale(2, 3))
	inv, ok := tr.Inverse()
	require.True(t, ok)

	p := Pt(12.5, -4)
	back := inv.Apply(tr.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	_, ok = Scale(0, 1).Inverse()
	assert.False(t, ok)
}

func TestComputeHomography(t *testing.T) {
	src := [4]Point2D{{110, 95}, {820, 130}, {870, 1010}, {60, 980}}
	dst := [4]Point2D{{0, 0}, {699, 0}, {699, 989}, {0, 989}}

	h, err := ComputeHomography(src, dst)
	require.NoError(t, err)
	for i := range src {
		got := h.Apply(src[i])
		assert.InDelta(t, dst[i].X, got.X, 1e-6)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6)
	}
}

func TestComputeHomography_Degenerate(t *testing.T) {
	src := [4]Point2D{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	dst := [4]Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	_, err := ComputeHomography(src, dst)
	assert.Error(t, err)
}

func TestCornerSetMeasures(t *testing.T) {
	c := RectCorners(Rect{X: 10, Y: 20, Width: 300, Height: 400})
	assert.Equal(t, 300.0, c.Width())
	assert.Equal(t, 400.0, c.Height())
	assert.Equal(t, 120000.0, c.Area())
	assert.True(t, math.Abs(c.Bounds().Center().X-160) < 1e-9)
}
