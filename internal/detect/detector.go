// Package detect finds the outline of a sheet of paper in a camera frame.
package detect

import (
	"errors"
	"image"
	"math"

	"docscan/internal/imageio"
	"docscan/internal/logger"
	"docscan/pkg/geometry"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when Detect is given an empty matrix.
var ErrEmptyFrame = errors.New("detect: empty frame")

// Strategy identifies how the binary image fed to contour extraction was made.
type Strategy string

const (
	// StrategyEdges uses Canny edges bridged by morphological closing.
	StrategyEdges Strategy = "edges"
	// StrategyThreshold uses an Otsu global threshold isolating bright regions.
	StrategyThreshold Strategy = "threshold"
)

// Candidate is a quadrilateral that passed every shape check.
type Candidate struct {
	// Contour holds the four vertices in perimeter order.
	Contour  []geometry.Point2D
	Corners  geometry.CornerSet
	Area     float64
	Score    float64
	Strategy Strategy
}

// Evaluation records the outcome for one raw contour, for diagnostics.
type Evaluation struct {
	Strategy Strategy
	Area     float64
	Vertices int
	Score    float64
	Rejected string
}

// Detector finds the best document-shaped contour in a frame.
type Detector struct {
	params    Params
	validator *Validator
	log       *logrus.Entry
}

// NewDetector creates a detector with the given parameters.
func NewDetector(params Params) *Detector {
	return &Detector{
		params:    params,
		validator: params.Validator(),
		log:       logger.For("detect"),
	}
}

// Params returns the detector's configuration.
func (d *Detector) Params() Params {
	return d.params
}

// Detect returns the highest scoring document candidate, or nil if no
// credible quadrilateral was found. The edge strategy runs first and the
// threshold strategy only when it finds nothing.
func (d *Detector) Detect(frame gocv.Mat) (*Candidate, error) {
	return d.run(frame, nil)
}

// Trace is like Detect but also returns the evaluation of every raw contour.
func (d *Detector) Trace(frame gocv.Mat) (*Candidate, []Evaluation, error) {
	var evals []Evaluation
	best, err := d.run(frame, &evals)
	return best, evals, err
}

func (d *Detector) run(frame gocv.Mat, trace *[]Evaluation) (*Candidate, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	gray := imageio.ToGray(frame)
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := oddKernel(d.params.BlurKernel)
	gocv.GaussianBlur(gray, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	for _, strategy := range []Strategy{StrategyEdges, StrategyThreshold} {
		best := d.detectWith(strategy, blurred, trace)
		if best != nil {
			d.log.WithFields(logrus.Fields{
				"strategy": strategy,
				"score":    best.Score,
				"area":     best.Area,
			}).Debug("document candidate found")
			return best, nil
		}
	}
	return nil, nil
}

func (d *Detector) detectWith(strategy Strategy, blurred gocv.Mat, trace *[]Evaluation) *Candidate {
	binary := d.binarize(strategy, blurred)
	defer binary.Close()

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var acc bestCandidate
	for i := 0; i < contours.Size(); i++ {
		cand, eval := d.evaluate(contours.At(i), blurred.Cols(), blurred.Rows())
		eval.Strategy = strategy
		if trace != nil {
			*trace = append(*trace, eval)
		}
		if cand != nil {
			cand.Strategy = strategy
			acc.offer(cand)
		}
	}
	return acc.best
}

// binarize produces the image contours are extracted from. Both strategies
// finish with a closing (dilate then erode) to bridge broken outlines.
func (d *Detector) binarize(strategy Strategy, blurred gocv.Mat) gocv.Mat {
	binary := gocv.NewMat()
	switch strategy {
	case StrategyEdges:
		gocv.Canny(blurred, &binary, d.params.CannyLow, d.params.CannyHigh)
	case StrategyThreshold:
		gocv.Threshold(blurred, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	}

	k := oddKernel(d.params.CloseKernel)
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k, k))
	defer kernel.Close()

	iterations := max(1, d.params.CloseIterations)
	for i := 0; i < iterations; i++ {
		gocv.Dilate(binary, &binary, kernel)
	}
	for i := 0; i < iterations; i++ {
		gocv.Erode(binary, &binary, kernel)
	}
	return binary
}

// evaluate runs the area, polygon, aspect and shape checks on one contour.
func (d *Detector) evaluate(contour gocv.PointVector, width, height int) (*Candidate, Evaluation) {
	frameArea := float64(width * height)
	area := gocv.ContourArea(contour)
	eval := Evaluation{Area: area}

	ratio := area / frameArea
	if ratio < d.params.MinAreaRatio {
		eval.Rejected = "area below minimum"
		return nil, eval
	}
	if ratio > d.params.MaxAreaRatio {
		eval.Rejected = "area above maximum"
		return nil, eval
	}

	quad := d.approximateQuad(contour)
	eval.Vertices = len(quad)
	if len(quad) != 4 {
		eval.Rejected = "no convex 4-vertex approximation"
		return nil, eval
	}

	aspect := geometry.BoundingBox(quad).AspectRatio()
	if aspect < d.params.MinAspectRatio || aspect > d.params.MaxAspectRatio {
		eval.Rejected = "aspect ratio out of range"
		return nil, eval
	}
	if !d.validator.CheckAngles(quad) {
		eval.Rejected = "corner angle too far from 90 degrees"
		return nil, eval
	}
	if !d.validator.CheckSideRatios(quad) {
		eval.Rejected = "opposite sides differ too much"
		return nil, eval
	}

	corners, ok := d.validator.OrderCorners(quad)
	if !ok {
		eval.Rejected = "corner roles unassigned"
		return nil, eval
	}

	cand := &Candidate{
		Contour: quad,
		Corners: corners,
		Area:    geometry.PolygonArea(quad),
	}
	cand.Score = d.score(cand, width, height)
	eval.Score = cand.Score
	return cand, eval
}

// approximateQuad loosens the approximation tolerance until the contour
// collapses to four convex vertices. A contour still dense at the loosest
// tolerance falls back to cornersFromHull. Returns nil otherwise.
func (d *Detector) approximateQuad(contour gocv.PointVector) []geometry.Point2D {
	perimeter := gocv.ArcLength(contour, true)
	dense := false
	for _, eps := range d.params.ApproxEpsilons {
		approx := gocv.ApproxPolyDP(contour, eps*perimeter, true)
		n := approx.Size()
		pts := pointsOf(approx)
		approx.Close()

		if n == 4 && geometry.IsConvex(pts) {
			return pts
		}
		if n < 4 {
			// Looser tolerances only remove vertices
			return nil
		}
		dense = n > 4
	}
	if !dense {
		return nil
	}
	return d.cornersFromHull(pointsOf(contour))
}

// cornersFromHull picks one corner per quadrant of the contour's convex hull,
// for outlines with curled or rounded corners. The quad must keep at least
// MinCornerFill of the hull area, which rules out round blobs.
func (d *Detector) cornersFromHull(contour []geometry.Point2D) []geometry.Point2D {
	if d.params.MinCornerFill <= 0 {
		return nil
	}
	hull := geometry.ConvexHull(contour)
	corners, ok := d.validator.CornersFromContour(hull)
	if !ok {
		return nil
	}
	quad := corners.Points()
	hullArea := geometry.PolygonArea(hull)
	if !geometry.IsConvex(quad) || hullArea <= 0 ||
		geometry.PolygonArea(quad) < d.params.MinCornerFill*hullArea {
		return nil
	}
	return quad
}

// score weighs edge proximity, normalized area and corner spread.
func (d *Detector) score(c *Candidate, width, height int) float64 {
	w, h := float64(width), float64(height)
	margin := d.params.EdgeMarginRatio * math.Min(w, h)
	center := geometry.Pt(w/2, h/2)
	halfDiag := math.Hypot(w, h) / 2

	var touching, spread float64
	for _, p := range c.Contour {
		border := math.Min(math.Min(p.X, w-p.X), math.Min(p.Y, h-p.Y))
		if border <= margin {
			touching++
		}
		spread += p.Distance(center)
	}
	edgeFraction := touching / 4
	spread = spread / 4 / halfDiag

	return d.params.EdgeWeight*edgeFraction +
		d.params.AreaWeight*(c.Area/(w*h)) +
		d.params.SpreadWeight*spread
}

// bestCandidate is the running winner while scoring the contours of one
// binary image.
type bestCandidate struct {
	best *Candidate
}

func (b *bestCandidate) offer(c *Candidate) {
	if b.best == nil || outranks(c, b.best) {
		b.best = c
	}
}

// outranks orders candidates by score, then area, then the top-left corner
// (topmost, then leftmost), so the result never depends on contour order.
func outranks(a, b *Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Area != b.Area {
		return a.Area > b.Area
	}
	if a.Corners.TopLeft.Y != b.Corners.TopLeft.Y {
		return a.Corners.TopLeft.Y < b.Corners.TopLeft.Y
	}
	return a.Corners.TopLeft.X < b.Corners.TopLeft.X
}

func pointsOf(pv gocv.PointVector) []geometry.Point2D {
	pts := make([]geometry.Point2D, pv.Size())
	for i := range pts {
		pts[i] = geometry.FromImagePoint(pv.At(i))
	}
	return pts
}
