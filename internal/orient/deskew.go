package orient

import (
	"image"
	"image/color"
	"math"
	"sort"

	"docscan/internal/imageio"
	"docscan/pkg/geometry"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// segment is one probabilistic Hough line segment.
type segment struct {
	x1, y1, x2, y2 float64
}

// angle returns the segment direction in degrees, normalized to (-90, 90].
func (s segment) angle() float64 {
	a := math.Atan2(s.y2-s.y1, s.x2-s.x1) * 180 / math.Pi
	if a > 90 {
		a -= 180
	} else if a <= -90 {
		a += 180
	}
	return a
}

func lineSegments(edges gocv.Mat, threshold int, minLength float64, maxGap float32) []segment {
	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, math.Pi/180, threshold, float32(minLength), maxGap)

	segs := make([]segment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		if len(v) < 4 {
			continue
		}
		segs = append(segs, segment{
			x1: float64(v[0]), y1: float64(v[1]),
			x2: float64(v[2]), y2: float64(v[3]),
		})
	}
	return segs
}

// ResidualSkew returns the median angle of near-horizontal line segments in
// img, and false when there are none.
func (c *Corrector) ResidualSkew(img gocv.Mat) (float64, bool) {
	gray := c.analysisGray(img)
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, c.params.CannyLow, c.params.CannyHigh)

	minLen := c.params.DeskewMinLineLengthRatio * float64(gray.Cols())
	// Collect a little beyond the correction range so the median is not
	// clipped at the boundary
	limit := c.params.DeskewMaxDeg + c.params.LineAngleToleranceDeg

	var angles []float64
	for _, s := range lineSegments(edges, c.params.HoughThreshold, minLen, c.params.MaxLineGap) {
		if a := s.angle(); math.Abs(a) <= limit {
			angles = append(angles, a)
		}
	}
	if len(angles) == 0 {
		return 0, false
	}
	sort.Float64s(angles)
	return stat.Quantile(0.5, stat.Empirical, angles, nil), true
}

// Deskew removes a residual tilt between DeskewMinDeg and DeskewMaxDeg by
// rotating about the image center, filling the exposed border with white.
// Larger tilts are assumed to be handled by perspective rectification and are
// left alone. Returns the corrected image (caller owns it) and the tilt that
// was removed. On error the returned Mat is the zero value.
func (c *Corrector) Deskew(img gocv.Mat) (gocv.Mat, float64, error) {
	if img.Empty() {
		return gocv.Mat{}, 0, imageio.ErrEmptyImage
	}

	angle, ok := c.ResidualSkew(img)
	if !ok || math.Abs(angle) < c.params.DeskewMinDeg || math.Abs(angle) > c.params.DeskewMaxDeg {
		return img.Clone(), 0, nil
	}

	center := geometry.Pt(float64(img.Cols())/2, float64(img.Rows())/2)
	t := geometry.RotationAbout(center, -angle)

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	m.SetDoubleAt(0, 0, t.A)
	m.SetDoubleAt(0, 1, t.B)
	m.SetDoubleAt(0, 2, t.TX)
	m.SetDoubleAt(1, 0, t.C)
	m.SetDoubleAt(1, 1, t.D)
	m.SetDoubleAt(1, 2, t.TY)

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &dst, m, image.Pt(img.Cols(), img.Rows()),
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	c.log.WithFields(logrus.Fields{"angle": angle}).Debug("residual skew removed")
	return dst, angle, nil
}
