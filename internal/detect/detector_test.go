package detect

import (
	"image"
	"image/color"
	"math"
	"testing"

	"docscan/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var white = color.RGBA{255, 255, 255, 0}

// darkFrame returns a dark BGR frame with the given filled bright rectangles.
func darkFrame(w, h int, rects ...image.Rectangle) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(30, 30, 30, 0), h, w, gocv.MatTypeCV8UC3)
	for _, r := range rects {
		gocv.Rectangle(&frame, r, white, -1)
	}
	return frame
}

func TestDetect_CenteredPage(t *testing.T) {
	// 900x667 is 60% of the frame; margins of 50 and 166 px
	frame := darkFrame(1000, 1000, image.Rect(50, 166, 950, 833))
	defer frame.Close()

	d := NewDetector(DefaultParams())
	cand, err := d.Detect(frame)
	require.NoError(t, err)
	require.NotNil(t, cand)

	assert.Len(t, cand.Contour, 4)
	assert.InEpsilon(t, 600000.0, cand.Area, 0.05)
	assert.Less(t, cand.Corners.TopLeft.X, cand.Corners.TopRight.X)
	assert.Less(t, cand.Corners.TopLeft.Y, cand.Corners.BottomLeft.Y)
}

func TestDetect_SmallBlockRejected(t *testing.T) {
	frame := darkFrame(1000, 1000, image.Rect(475, 475, 525, 525))
	defer frame.Close()

	d := NewDetector(DefaultParams())
	cand, evals, err := d.Trace(frame)
	require.NoError(t, err)
	assert.Nil(t, cand)
	require.NotEmpty(t, evals)
	for _, e := range evals {
		assert.Equal(t, "area below minimum", e.Rejected)
	}
}

func TestDetect_EmptyFrame(t *testing.T) {
	frame := gocv.NewMat()
	defer frame.Close()

	_, err := NewDetector(DefaultParams()).Detect(frame)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestDetect_NarrowStripRejectedByAspect(t *testing.T) {
	// 900x300 strip: aspect 3.0, large enough by area
	frame := darkFrame(1000, 1000, image.Rect(50, 350, 950, 650))
	defer frame.Close()

	cand, err := NewDetector(DefaultParams().WithAreaRange(0.1, 0.98)).Detect(frame)
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestDetect_PrefersPageTouchingEdges(t *testing.T) {
	// A large page plus a separate interior card
	frame := darkFrame(1000, 1000,
		image.Rect(20, 20, 560, 980),
		image.Rect(640, 300, 940, 700),
	)
	defer frame.Close()

	d := NewDetector(DefaultParams().WithAreaRange(0.1, 0.98))
	cand, err := d.Detect(frame)
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Less(t, cand.Corners.TopLeft.X, 100.0)
}

func TestOutranks_TieBreak(t *testing.T) {
	a := &Candidate{Score: 0.5, Area: 100}
	b := &Candidate{Score: 0.5, Area: 200}
	assert.True(t, outranks(b, a))

	c := &Candidate{Score: 0.5, Area: 100}
	c.Corners.TopLeft.Y = 5
	a.Corners.TopLeft.Y = 10
	assert.True(t, outranks(c, a))
	assert.False(t, outranks(a, c))

	var acc bestCandidate
	acc.offer(a)
	acc.offer(b)
	acc.offer(c)
	assert.Same(t, b, acc.best)
}

// roundedOutline traces a rectangle whose corners are quarter circles of
// radius r, clockwise from the top edge.
func roundedOutline(r image.Rectangle, radius float64) []image.Point {
	centers := []geometry.Point2D{
		geometry.Pt(float64(r.Max.X)-radius, float64(r.Min.Y)+radius),
		geometry.Pt(float64(r.Max.X)-radius, float64(r.Max.Y)-radius),
		geometry.Pt(float64(r.Min.X)+radius, float64(r.Max.Y)-radius),
		geometry.Pt(float64(r.Min.X)+radius, float64(r.Min.Y)+radius),
	}
	var pts []image.Point
	for i, c := range centers {
		start := -math.Pi/2 + float64(i)*math.Pi/2
		for step := 0; step <= 12; step++ {
			a := start + float64(step)*math.Pi/24
			pts = append(pts, geometry.Pt(c.X+radius*math.Cos(a), c.Y+radius*math.Sin(a)).ImagePoint())
		}
	}
	return pts
}

func circleOutline(center geometry.Point2D, radius float64) []image.Point {
	var pts []image.Point
	for step := 0; step < 72; step++ {
		a := float64(step) * math.Pi / 36
		pts = append(pts, geometry.Pt(center.X+radius*math.Cos(a), center.Y+radius*math.Sin(a)).ImagePoint())
	}
	return pts
}

func TestApproximateQuad_RoundedCornersUseHull(t *testing.T) {
	params := DefaultParams()
	params.ApproxEpsilons = []float64{0.001}
	d := NewDetector(params)

	pv := gocv.NewPointVectorFromPoints(roundedOutline(image.Rect(100, 50, 400, 450), 30))
	defer pv.Close()

	quad := d.approximateQuad(pv)
	require.Len(t, quad, 4)
	corners, ok := d.validator.OrderCorners(quad)
	require.True(t, ok)
	// The hull corner sits on the arc, at most r(1-1/sqrt2) in from the
	// rectangle corner along each axis.
	assert.InDelta(t, 100, corners.TopLeft.X, 12)
	assert.InDelta(t, 50, corners.TopLeft.Y, 12)
	assert.InDelta(t, 400, corners.BottomRight.X, 12)
	assert.InDelta(t, 450, corners.BottomRight.Y, 12)
	assert.True(t, d.validator.Validate(quad))
}

func TestApproximateQuad_RoundBlobRejected(t *testing.T) {
	params := DefaultParams()
	params.ApproxEpsilons = []float64{0.001}
	d := NewDetector(params)

	pv := gocv.NewPointVectorFromPoints(circleOutline(geometry.Pt(300, 300), 150))
	defer pv.Close()

	assert.Nil(t, d.approximateQuad(pv))
}

func TestApproximateQuad_FallbackDisabled(t *testing.T) {
	params := DefaultParams()
	params.ApproxEpsilons = []float64{0.001}
	params.MinCornerFill = 0
	d := NewDetector(params)

	pv := gocv.NewPointVectorFromPoints(roundedOutline(image.Rect(100, 50, 400, 450), 30))
	defer pv.Close()

	assert.Nil(t, d.approximateQuad(pv))
}
