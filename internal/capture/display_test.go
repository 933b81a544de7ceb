package capture

import (
	"image"
	"math"
	"testing"

	"docscan/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func TestComputeMapping_Letterbox(t *testing.T) {
	m := ComputeMapping(image.Pt(1920, 1080), image.Pt(1280, 1280))

	assert.InDelta(t, 2.0/3.0, m.Scale, 1e-9)
	assert.InDelta(t, 1280, m.ScaledWidth, 1e-9)
	assert.InDelta(t, 720, m.ScaledHeight, 1e-9)
	assert.InDelta(t, 0, m.OffsetX, 1e-9)
	assert.InDelta(t, 280, m.OffsetY, 1e-9)
}

func TestComputeMapping_Pillarbox(t *testing.T) {
	m := ComputeMapping(image.Pt(1080, 1920), image.Pt(1280, 720))

	assert.InDelta(t, 0.375, m.Scale, 1e-9)
	assert.InDelta(t, 405, m.ScaledWidth, 1e-9)
	assert.InDelta(t, (1280-405)/2.0, m.OffsetX, 1e-9)
	assert.InDelta(t, 0, m.OffsetY, 1e-9)
}

func TestDisplayMapping_RoundTrip(t *testing.T) {
	m := ComputeMapping(image.Pt(1920, 1080), image.Pt(800, 800))

	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 1919, Y: 1079}, {X: 960, Y: 540}, {X: 13.5, Y: 700}} {
		back := m.ToSource(m.ToDisplay(p))
		assert.InDelta(t, p.X, back.X, 1e-6)
		assert.InDelta(t, p.Y, back.Y, 1e-6)
	}

	topLeft := m.ToDisplay(geometry.Pt(0, 0))
	assert.InDelta(t, m.OffsetX, topLeft.X, 1e-9)
	assert.InDelta(t, m.OffsetY, topLeft.Y, 1e-9)
}

func TestGuideRect_FitsScaledFrame(t *testing.T) {
	m := ComputeMapping(image.Pt(1920, 1080), image.Pt(1280, 1280))
	aspect := 1 / math.Sqrt2
	g := m.GuideRect(aspect, 0.8)

	assert.InDelta(t, aspect, g.AspectRatio(), 1e-9)
	assert.InDelta(t, 720*0.8, g.Height, 1e-9)
	assert.InDelta(t, m.OffsetX+m.ScaledWidth/2, g.Center().X, 1e-9)
	assert.InDelta(t, m.OffsetY+m.ScaledHeight/2, g.Center().Y, 1e-9)
}

func TestGuideRect_MapsBackToSourceResolution(t *testing.T) {
	// The same guide selects the same source region whatever the display size.
	src := image.Pt(1920, 1080)
	var regions []image.Rectangle
	for _, display := range []image.Point{{X: 640, Y: 360}, {X: 1280, Y: 1280}, {X: 300, Y: 900}} {
		m := ComputeMapping(src, display)
		r := m.RectToSource(m.GuideRect(1/math.Sqrt2, 0.8))
		regions = append(regions, r.ImageRect(image.Rect(0, 0, src.X, src.Y)))
	}
	for _, r := range regions[1:] {
		assert.InDelta(t, regions[0].Min.X, r.Min.X, 1)
		assert.InDelta(t, regions[0].Max.Y, r.Max.Y, 1)
	}
	assert.InDelta(t, 864, regions[0].Dy(), 1)
}
