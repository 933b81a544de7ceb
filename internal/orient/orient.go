// Package orient restores the upright orientation of a rectified document.
package orient

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"docscan/internal/imageio"
	"docscan/internal/logger"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Rotation is a clockwise quarter-turn in degrees.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Rotations lists the candidates in evaluation order.
var Rotations = [4]Rotation{Rotate0, Rotate90, Rotate180, Rotate270}

// Result describes the orientation decision for one image.
type Result struct {
	// Rotation is the clockwise turn that makes the input upright.
	Rotation Rotation `json:"rotation"`
	// Confidence is (best - second best) / best, in [0,1].
	Confidence float64 `json:"confidence"`
	// Applied is true when Confidence exceeded the threshold and the
	// rotation was performed.
	Applied bool `json:"applied"`
	// ResidualSkewDegrees is the small tilt removed before the quarter-turn
	// test, 0 if none.
	ResidualSkewDegrees float64 `json:"residualSkewDegrees"`
	// Scores holds the upright score of each candidate rotation.
	Scores [4]float64 `json:"-"`
}

// Corrector scores quarter-turn rotations and straightens residual tilt.
type Corrector struct {
	params Params
	log    *logrus.Entry
}

// New creates a corrector.
func New(params Params) *Corrector {
	return &Corrector{params: params, log: logger.For("orient")}
}

// Correct deskews the image, then rotates it by the detected quarter-turn
// when confident enough. A failed deskew passes its input through. The caller
// owns the returned Mat; on error it is the zero value.
func (c *Corrector) Correct(img gocv.Mat) (gocv.Mat, Result, error) {
	if img.Empty() {
		return gocv.Mat{}, Result{}, imageio.ErrEmptyImage
	}

	deskewed, angle, err := c.Deskew(img)
	if err != nil {
		c.log.WithError(err).Warn("deskew failed, keeping input")
		deskewed = img.Clone()
		angle = 0
	}

	res, err := c.Detect(deskewed)
	if err != nil {
		return deskewed, Result{ResidualSkewDegrees: angle}, nil
	}
	res.ResidualSkewDegrees = angle

	if res.Rotation == Rotate0 || res.Confidence <= c.params.ConfidenceThreshold {
		return deskewed, res, nil
	}

	rotated := Rotate(deskewed, res.Rotation)
	deskewed.Close()
	res.Applied = true

	c.log.WithFields(logrus.Fields{
		"rotation":   res.Rotation,
		"confidence": res.Confidence,
	}).Info("orientation corrected")
	return rotated, res, nil
}

// Detect scores the four quarter-turns of img and returns the most upright.
func (c *Corrector) Detect(img gocv.Mat) (Result, error) {
	if img.Empty() {
		return Result{}, imageio.ErrEmptyImage
	}

	gray := c.analysisGray(img)
	defer gray.Close()

	var res Result
	for i, r := range Rotations {
		rotated := Rotate(gray, r)
		score, err := c.uprightScore(rotated)
		rotated.Close()
		if err != nil {
			return Result{}, fmt.Errorf("score rotation %d: %w", r, err)
		}
		res.Scores[i] = score
	}

	best := 0
	for i := 1; i < len(res.Scores); i++ {
		if res.Scores[i] > res.Scores[best] {
			best = i
		}
	}
	res.Rotation = Rotations[best]
	res.Confidence = confidence(res.Scores)

	c.log.WithFields(logrus.Fields{
		"scores":     res.Scores,
		"rotation":   res.Rotation,
		"confidence": res.Confidence,
	}).Debug("orientation scored")
	return res, nil
}

// confidence is the relative margin between the best and second best score.
func confidence(scores [4]float64) float64 {
	sorted := scores
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted[:])))
	if sorted[0] <= 0 {
		return 0
	}
	conf := (sorted[0] - sorted[1]) / sorted[0]
	return math.Max(0, math.Min(1, conf))
}

// analysisGray returns a grayscale copy no larger than AnalysisMaxSide.
func (c *Corrector) analysisGray(img gocv.Mat) gocv.Mat {
	gray := imageio.ToGray(img)
	maxSide := c.params.AnalysisMaxSide
	long := max(gray.Cols(), gray.Rows())
	if maxSide <= 0 || long <= maxSide {
		return gray
	}
	scale := float64(maxSide) / float64(long)
	small := gocv.NewMat()
	gocv.Resize(gray, &small, image.Point{}, scale, scale, gocv.InterpolationArea)
	gray.Close()
	return small
}

// uprightScore is higher when gray looks like an upright page with
// horizontal text lines and more structure near the top.
func (c *Corrector) uprightScore(gray gocv.Mat) (float64, error) {
	if gray.Rows() < 3 || gray.Cols() < 3 {
		return 0, errors.New("image too small")
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, c.params.CannyLow, c.params.CannyHigh)

	asym := edgeAsymmetry(edges)
	grad := horizontalEdgeRatio(gray)

	minLen := c.params.MinLineLengthRatio * float64(min(gray.Cols(), gray.Rows()))
	segs := lineSegments(edges, c.params.HoughThreshold, minLen, c.params.MaxLineGap)
	lines := horizontalLineRatio(segs, c.params.LineAngleToleranceDeg)

	return c.params.EdgeWeight*asym +
		c.params.GradientWeight*grad +
		c.params.LineWeight*lines, nil
}

// edgeAsymmetry returns top / (top + bottom) edge pixel counts over the top
// and bottom thirds, 0.5 when there are none.
func edgeAsymmetry(edges gocv.Mat) float64 {
	rows, cols := edges.Rows(), edges.Cols()
	third := rows / 3
	if third == 0 {
		return 0.5
	}

	topRegion := edges.Region(image.Rect(0, 0, cols, third))
	top := gocv.CountNonZero(topRegion)
	topRegion.Close()

	bottomRegion := edges.Region(image.Rect(0, rows-third, cols, rows))
	bottom := gocv.CountNonZero(bottomRegion)
	bottomRegion.Close()

	if top+bottom == 0 {
		return 0.5
	}
	return float64(top) / float64(top+bottom)
}

// horizontalEdgeRatio returns |d/dy| / (|d/dx| + |d/dy|). Rows of text
// produce mostly vertical intensity change.
func horizontalEdgeRatio(gray gocv.Mat) float64 {
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(gray, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	nx := gocv.Norm(gx, gocv.NormL1)
	ny := gocv.Norm(gy, gocv.NormL1)
	if nx+ny == 0 {
		return 0.5
	}
	return ny / (nx + ny)
}

// horizontalLineRatio returns the share of near-horizontal segments among
// segments near either axis, 0.5 when there are none.
func horizontalLineRatio(segs []segment, toleranceDeg float64) float64 {
	var horizontal, vertical int
	for _, s := range segs {
		a := math.Abs(s.angle())
		switch {
		case a <= toleranceDeg:
			horizontal++
		case a >= 90-toleranceDeg:
			vertical++
		}
	}
	if horizontal+vertical == 0 {
		return 0.5
	}
	return float64(horizontal) / float64(horizontal+vertical)
}

// Rotate turns img clockwise by r. The caller owns the result.
func Rotate(img gocv.Mat, r Rotation) gocv.Mat {
	dst := gocv.NewMat()

	switch r {
	case Rotate90:
		gocv.Rotate(img, &dst, gocv.Rotate90Clockwise)
	case Rotate180:
		gocv.Rotate(img, &dst, gocv.Rotate180Clockwise)
	case Rotate270:
		gocv.Rotate(img, &dst, gocv.Rotate90CounterClockwise)
	default:
		img.CopyTo(&dst)
	}
	return dst
}
