// Package rectify flattens a detected document quadrilateral into an
// upright canonical raster.
package rectify

import (
	"errors"
	"fmt"
	"image"
	"math"

	"docscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// ISOAspectRatio is the long/short side ratio of ISO 216 paper (A4 etc).
var ISOAspectRatio = math.Sqrt2

// ErrDegenerateCorners is returned when the corners cannot define a
// projective transform.
var ErrDegenerateCorners = errors.New("rectify: degenerate corners")

// Params configures the output raster.
type Params struct {
	// AspectRatio is long side / short side of the output.
	AspectRatio float64 `yaml:"aspect_ratio"`
	// MinSide is the smallest allowed output dimension.
	MinSide int `yaml:"min_side"`
	// MaxWidth and MaxHeight bound the output; zero means unbounded.
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
}

// DefaultParams returns an A-series page bounded to 2480x3508 (A4 at 300dpi).
func DefaultParams() Params {
	return Params{
		AspectRatio: ISOAspectRatio,
		MinSide:     100,
		MaxWidth:    3508,
		MaxHeight:   3508,
	}
}

// Rectifier warps corner sets onto a fixed-aspect rectangle.
type Rectifier struct {
	params Params
}

// New creates a rectifier.
func New(params Params) *Rectifier {
	if params.AspectRatio < 1 {
		params.AspectRatio = ISOAspectRatio
	}
	if params.MinSide < 1 {
		params.MinSide = 1
	}
	return &Rectifier{params: params}
}

// OutputSize returns the output dimensions for a corner set. Portrait versus
// landscape follows the detected width and height, but the proportions are
// always the configured aspect ratio so small corner errors never distort the
// page.
func (r *Rectifier) OutputSize(c geometry.CornerSet) image.Point {
	detectedW, detectedH := c.Width(), c.Height()
	landscape := detectedW > detectedH
	ratio := r.params.AspectRatio

	long := math.Max(detectedW, detectedH)
	short := long / ratio

	// Fit inside the caller's bounds
	maxLong, maxShort := float64(r.params.MaxHeight), float64(r.params.MaxWidth)
	if landscape {
		maxLong, maxShort = float64(r.params.MaxWidth), float64(r.params.MaxHeight)
	}
	if maxLong > 0 && long > maxLong {
		long, short = maxLong, maxLong/ratio
	}
	if maxShort > 0 && short > maxShort {
		long, short = maxShort*ratio, maxShort
	}

	// Never smaller than the minimum
	if minSide := float64(r.params.MinSide); short < minSide {
		long, short = minSide*ratio, minSide
	}

	longPx := int(math.Round(long))
	shortPx := int(math.Round(float64(longPx) / ratio))
	if landscape {
		return image.Pt(longPx, shortPx)
	}
	return image.Pt(shortPx, longPx)
}

// Homography returns the transform mapping the corners onto an output
// raster of the given size.
func Homography(c geometry.CornerSet, size image.Point) (geometry.Homography, error) {
	w, h := float64(size.X-1), float64(size.Y-1)
	src := [4]geometry.Point2D{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
	dst := [4]geometry.Point2D{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
	hm, err := geometry.ComputeHomography(src, dst)
	if err != nil {
		return geometry.Homography{}, fmt.Errorf("%w: %v", ErrDegenerateCorners, err)
	}
	return hm, nil
}

// Rectify warps the document inside corners to a canonical image. The caller
// owns the returned Mat. On error nothing is allocated and the returned Mat
// is the zero value, which must not be used.
func (r *Rectifier) Rectify(src gocv.Mat, c geometry.CornerSet) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.Mat{}, errors.New("rectify: empty source")
	}
	if c.Area() < 1 {
		return gocv.Mat{}, ErrDegenerateCorners
	}

	size := r.OutputSize(c)
	hm, err := Homography(c, size)
	if err != nil {
		return gocv.Mat{}, err
	}

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.SetDoubleAt(row, col, hm[row][col])
		}
	}

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, m, size)
	return dst, nil
}
