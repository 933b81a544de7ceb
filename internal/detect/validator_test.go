package detect

import (
	"math/rand"
	"testing"

	"docscan/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCorners_Shuffled(t *testing.T) {
	v := DefaultParams().Validator()
	pts := []geometry.Point2D{{810, 990}, {100, 90}, {80, 1000}, {800, 110}}

	c, ok := v.OrderCorners(pts)
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(100, 90), c.TopLeft)
	assert.Equal(t, geometry.Pt(800, 110), c.TopRight)
	assert.Equal(t, geometry.Pt(810, 990), c.BottomRight)
	assert.Equal(t, geometry.Pt(80, 1000), c.BottomLeft)
}

func TestOrderCorners_WrongCount(t *testing.T) {
	v := DefaultParams().Validator()
	_, ok := v.OrderCorners([]geometry.Point2D{{0, 0}, {1, 0}, {1, 1}})
	assert.False(t, ok)
}

// Every convex quad that passes the shape checks gets consistent roles.
func TestOrderCorners_RoleInvariants(t *testing.T) {
	v := DefaultParams().Validator()
	rng := rand.New(rand.NewSource(7))

	checked := 0
	for i := 0; i < 2000; i++ {
		w := 200 + rng.Float64()*600
		h := 200 + rng.Float64()*600
		angle := rng.Float64()*40 - 20
		center := geometry.Pt(500, 500)
		rect := geometry.RectCorners(geometry.Rect{X: center.X - w/2, Y: center.Y - h/2, Width: w, Height: h})
		quad := rect.Transform(geometry.RotationAbout(center, angle)).Points()
		for j := range quad {
			quad[j] = quad[j].Add(geometry.Pt(rng.Float64()*30-15, rng.Float64()*30-15))
		}
		if !geometry.IsConvex(quad) || !v.Validate(quad) {
			continue
		}
		checked++

		rng.Shuffle(len(quad), func(a, b int) { quad[a], quad[b] = quad[b], quad[a] })
		c, ok := v.OrderCorners(quad)
		require.True(t, ok)
		assert.LessOrEqual(t, c.TopLeft.X, c.TopRight.X)
		assert.LessOrEqual(t, c.BottomLeft.X, c.BottomRight.X)
		assert.LessOrEqual(t, c.TopLeft.Y, c.BottomLeft.Y)
		assert.LessOrEqual(t, c.TopRight.Y, c.BottomRight.Y)
	}
	assert.Greater(t, checked, 100)
}

func TestCornersFromContour_DenseOutline(t *testing.T) {
	v := DefaultParams().Validator()

	// Outline of a rectangle sampled every 10 px
	var contour []geometry.Point2D
	for x := 100.0; x < 700; x += 10 {
		contour = append(contour, geometry.Pt(x, 50))
	}
	for y := 50.0; y < 900; y += 10 {
		contour = append(contour, geometry.Pt(700, y))
	}
	for x := 700.0; x > 100; x -= 10 {
		contour = append(contour, geometry.Pt(x, 900))
	}
	for y := 900.0; y > 50; y -= 10 {
		contour = append(contour, geometry.Pt(100, y))
	}

	c, ok := v.CornersFromContour(contour)
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(100, 50), c.TopLeft)
	assert.Equal(t, geometry.Pt(700, 50), c.TopRight)
	assert.Equal(t, geometry.Pt(700, 900), c.BottomRight)
	assert.Equal(t, geometry.Pt(100, 900), c.BottomLeft)
}

func TestCornersFromContour_TooFewPoints(t *testing.T) {
	v := DefaultParams().Validator()
	_, ok := v.CornersFromContour([]geometry.Point2D{{0, 0}, {100, 0}, {100, 100}})
	assert.False(t, ok)
}

func TestCheckAngles(t *testing.T) {
	v := DefaultParams().Validator()
	assert.True(t, v.CheckAngles([]geometry.Point2D{{0, 0}, {100, 5}, {98, 140}, {-3, 138}}))
	// Parallelogram with 60 degree corners
	assert.False(t, v.CheckAngles([]geometry.Point2D{{0, 0}, {100, 0}, {150, 86.6}, {50, 86.6}}))
}

func TestCheckSideRatios(t *testing.T) {
	v := DefaultParams().Validator()
	assert.True(t, v.CheckSideRatios([]geometry.Point2D{{0, 0}, {100, 0}, {110, 100}, {-10, 100}}))
	// Top edge 100, bottom edge 200: 50% difference
	assert.False(t, v.CheckSideRatios([]geometry.Point2D{{50, 0}, {150, 0}, {200, 100}, {0, 100}}))
}
