package capture

import (
	"image"
	"math"

	"docscan/pkg/geometry"
)

// DisplayMapping maps source frame coordinates onto a letterboxed display
// area and back. It is valid for one frame only.
type DisplayMapping struct {
	OffsetX      float64
	OffsetY      float64
	Scale        float64
	ScaledWidth  float64
	ScaledHeight float64
}

// ComputeMapping fits a source of the given size into display, preserving
// aspect ratio and centering it.
func ComputeMapping(source, display image.Point) DisplayMapping {
	if source.X <= 0 || source.Y <= 0 || display.X <= 0 || display.Y <= 0 {
		return DisplayMapping{Scale: 1}
	}
	scale := math.Min(float64(display.X)/float64(source.X), float64(display.Y)/float64(source.Y))
	w := float64(source.X) * scale
	h := float64(source.Y) * scale
	return DisplayMapping{
		OffsetX:      (float64(display.X) - w) / 2,
		OffsetY:      (float64(display.Y) - h) / 2,
		Scale:        scale,
		ScaledWidth:  w,
		ScaledHeight: h,
	}
}

// Transform returns the source-to-display transform.
func (m DisplayMapping) Transform() geometry.AffineTransform {
	return geometry.Translation(m.OffsetX, m.OffsetY).Compose(geometry.Scale(m.Scale, m.Scale))
}

// ToDisplay maps a source point to display coordinates.
func (m DisplayMapping) ToDisplay(p geometry.Point2D) geometry.Point2D {
	return m.Transform().Apply(p)
}

// ToSource maps a display point back to source coordinates.
func (m DisplayMapping) ToSource(p geometry.Point2D) geometry.Point2D {
	inv, ok := m.Transform().Inverse()
	if !ok {
		return p
	}
	return inv.Apply(p)
}

// RectToSource maps an axis-aligned display rectangle to source coordinates.
func (m DisplayMapping) RectToSource(r geometry.Rect) geometry.Rect {
	tl := m.ToSource(geometry.Pt(r.X, r.Y))
	br := m.ToSource(geometry.Pt(r.X+r.Width, r.Y+r.Height))
	return geometry.Rect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

// GuideRect returns the guide region in display coordinates: the largest
// rectangle of the given width/height aspect that fits within fill times the
// scaled frame, centered on it.
func (m DisplayMapping) GuideRect(aspect, fill float64) geometry.Rect {
	if aspect <= 0 {
		aspect = 1 / math.Sqrt2
	}
	if fill <= 0 || fill > 1 {
		fill = 1
	}
	maxW := m.ScaledWidth * fill
	maxH := m.ScaledHeight * fill

	w := maxW
	h := w / aspect
	if h > maxH {
		h = maxH
		w = h * aspect
	}
	return geometry.Rect{
		X:      m.OffsetX + (m.ScaledWidth-w)/2,
		Y:      m.OffsetY + (m.ScaledHeight-h)/2,
		Width:  w,
		Height: h,
	}
}
