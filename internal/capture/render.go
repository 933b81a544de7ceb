package capture

import (
	"image"
	"image/color"
	"math"

	"docscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// View is one frame of the live preview. Canvas is only valid during
// Surface.Present.
type View struct {
	Canvas   gocv.Mat
	Phase    Phase
	Aligned  bool
	Progress float64
	// Guide in display coordinates
	Guide image.Rectangle
}

// Surface is the host's presentation target.
type Surface interface {
	Present(v View) error
}

var (
	guideAligned   = color.RGBA{R: 40, G: 200, B: 80, A: 255}
	guideUnaligned = color.RGBA{R: 230, G: 60, B: 50, A: 255}
	progressColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ComposeView letterboxes frame into a display-sized canvas and draws the
// guide, green when aligned and red otherwise, with a progress bar along its
// bottom edge. The caller owns the result.
func ComposeView(frame gocv.Mat, m DisplayMapping, display image.Point, guide geometry.Rect, aligned bool, progress float64) gocv.Mat {
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), display.Y, display.X, gocv.MatTypeCV8UC3)

	src := frame
	if frame.Channels() != 3 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		if frame.Channels() == 4 {
			gocv.CvtColor(frame, &bgr, gocv.ColorBGRAToBGR)
		} else {
			gocv.CvtColor(frame, &bgr, gocv.ColorGrayToBGR)
		}
		src = bgr
	}

	ox := int(math.Round(m.OffsetX))
	oy := int(math.Round(m.OffsetY))
	w := min(int(math.Round(m.ScaledWidth)), display.X-ox)
	h := min(int(math.Round(m.ScaledHeight)), display.Y-oy)
	if w > 0 && h > 0 && !src.Empty() {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(src, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationArea)

		roi := canvas.Region(image.Rect(ox, oy, ox+w, oy+h))
		resized.CopyTo(&roi)
		roi.Close()
	}

	g := guide.ImageRect(image.Rect(0, 0, display.X, display.Y))
	col := guideUnaligned
	if aligned {
		col = guideAligned
	}
	gocv.Rectangle(&canvas, g, col, 3)

	if progress > 0 {
		barW := int(float64(g.Dx()) * math.Min(progress, 1))
		bar := image.Rect(g.Min.X, g.Max.Y-8, g.Min.X+barW, g.Max.Y)
		gocv.Rectangle(&canvas, bar, progressColor, -1)
	}
	return canvas
}
