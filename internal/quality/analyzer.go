package quality

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"docscan/internal/imageio"
	"docscan/internal/logger"
	"docscan/pkg/geometry"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Analyzer computes quality metrics for a frame.
type Analyzer struct {
	th  Thresholds
	log *logrus.Entry
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(th Thresholds) *Analyzer {
	return &Analyzer{th: th, log: logger.For("quality")}
}

// Thresholds returns the analyzer's cutoffs.
func (a *Analyzer) Thresholds() Thresholds {
	return a.th
}

// Analyze computes every applicable metric. corners may be nil when no
// document outline was found; corner-based metrics are then skipped and an
// incomplete warning is raised instead. All warnings are collected, none
// short-circuits the others.
func (a *Analyzer) Analyze(frame gocv.Mat, corners *geometry.CornerSet) (Report, error) {
	if frame.Empty() {
		return Report{}, imageio.ErrEmptyImage
	}

	gray := imageio.ToGray(frame)
	defer gray.Close()

	report := Report{Warnings: []Warning{}}
	width, height := frame.Cols(), frame.Rows()

	var region image.Rectangle
	if corners != nil {
		region = corners.Bounds().ImageRect(image.Rect(0, 0, width, height))
	}
	report.BlurScore = BlurScore(gray, region)
	report.Warnings = append(report.Warnings, a.blurWarnings(report.BlurScore)...)

	glare, err := GlarePercentage(gray, corners, a.th.GlareCutoff)
	if err != nil {
		return Report{}, fmt.Errorf("glare: %w", err)
	}
	report.GlarePercentage = glare
	report.Warnings = append(report.Warnings, a.glareWarnings(glare)...)

	if corners == nil {
		report.Warnings = append(report.Warnings, Warning{
			Type:     WarningIncomplete,
			Severity: SeverityWarning,
			Message:  "Document edges not detected. Make sure the whole page is visible.",
		})
	} else {
		report.SkewAngleDegrees = SkewAngle(*corners)
		report.Warnings = append(report.Warnings, a.skewWarnings(report.SkewAngleDegrees)...)

		report.IsComplete = IsComplete(*corners, width, height, a.th.CompletenessMarginPx)
		if !report.IsComplete {
			report.Warnings = append(report.Warnings, Warning{
				Type:     WarningIncomplete,
				Severity: SeverityWarning,
				Message:  "Document corners are at the frame edge and may be cut off.",
			})
		}

		report.DocumentCoveragePercentage = Coverage(*corners, width, height)
		if report.DocumentCoveragePercentage < a.th.MinCoveragePct {
			report.Warnings = append(report.Warnings, Warning{
				Type:     WarningTooSmall,
				Severity: SeverityWarning,
				Message:  "Document is small in the frame. Move closer.",
			})
		}
	}

	a.log.WithFields(logrus.Fields{
		"blur":       report.BlurScore,
		"skew":       report.SkewAngleDegrees,
		"glare":      report.GlarePercentage,
		"coverage":   report.DocumentCoveragePercentage,
		"warnings":   len(report.Warnings),
		"acceptable": report.IsAcceptable(),
	}).Debug("quality analysed")

	return report, nil
}

func (a *Analyzer) blurWarnings(score float64) []Warning {
	switch {
	case score < a.th.BlurError:
		return []Warning{{Type: WarningBlur, Severity: SeverityError, Message: "Image is too blurry. Hold the camera steady."}}
	case score < a.th.BlurWarning:
		return []Warning{{Type: WarningBlur, Severity: SeverityWarning, Message: "Image may be slightly blurry."}}
	}
	return nil
}

func (a *Analyzer) skewWarnings(angle float64) []Warning {
	abs := math.Abs(angle)
	switch {
	case abs > a.th.SkewErrorDeg:
		return []Warning{{Type: WarningSkew, Severity: SeverityError, Message: fmt.Sprintf("Document is tilted %.0f°. Straighten the camera.", abs)}}
	case abs > a.th.SkewWarningDeg:
		return []Warning{{Type: WarningSkew, Severity: SeverityWarning, Message: fmt.Sprintf("Document is tilted %.0f°.", abs)}}
	}
	return nil
}

func (a *Analyzer) glareWarnings(pct float64) []Warning {
	switch {
	case pct > a.th.GlareErrorPct:
		return []Warning{{Type: WarningGlare, Severity: SeverityError, Message: "Strong glare on the document. Change the lighting angle."}}
	case pct > a.th.GlareWarningPct:
		return []Warning{{Type: WarningGlare, Severity: SeverityWarning, Message: "Some glare detected on the document."}}
	}
	return nil
}

// BlurScore returns the variance of the Laplacian of a grayscale image,
// restricted to region when it is non-empty. Higher is sharper.
func BlurScore(gray gocv.Mat, region image.Rectangle) float64 {
	src := gray
	if !region.Empty() {
		src = gray.Region(region)
		defer src.Close()
	}

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(src, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	return sd * sd
}

// SkewAngle returns the mean of the top and bottom edge angles from the
// horizontal, in degrees. Positive means the page is rotated clockwise.
func SkewAngle(c geometry.CornerSet) float64 {
	top := math.Atan2(c.TopRight.Y-c.TopLeft.Y, c.TopRight.X-c.TopLeft.X)
	bottom := math.Atan2(c.BottomRight.Y-c.BottomLeft.Y, c.BottomRight.X-c.BottomLeft.X)
	return (top + bottom) / 2 * 180 / math.Pi
}

// GlarePercentage returns the percentage of pixels brighter than cutoff,
// counted only inside the document polygon when corners are known.
func GlarePercentage(gray gocv.Mat, corners *geometry.CornerSet, cutoff float64) (float64, error) {
	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, float32(cutoff), 255, gocv.ThresholdBinary)

	if corners == nil {
		total := gray.Rows() * gray.Cols()
		if total == 0 {
			return 0, nil
		}
		return 100 * float64(gocv.CountNonZero(bright)) / float64(total), nil
	}

	mask := PolygonMask(gray.Rows(), gray.Cols(), *corners)
	defer mask.Close()

	inside := gocv.CountNonZero(mask)
	if inside == 0 {
		return 0, nil
	}

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.BitwiseAnd(bright, mask, &masked)
	return 100 * float64(gocv.CountNonZero(masked)) / float64(inside), nil
}

// PolygonMask returns an 8-bit mask with the corner polygon filled with 255.
// The caller owns the result.
func PolygonMask(rows, cols int, c geometry.CornerSet) gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)

	pts := make([]image.Point, 0, 4)
	for _, p := range c.Points() {
		pts = append(pts, p.ImagePoint())
	}
	poly := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer poly.Close()
	gocv.FillPoly(&mask, poly, color.RGBA{255, 255, 255, 0})
	return mask
}

// IsComplete reports whether every corner lies at least margin pixels inside
// the frame.
func IsComplete(c geometry.CornerSet, width, height int, margin float64) bool {
	w, h := float64(width), float64(height)
	for _, p := range c.Points() {
		if p.X < margin || p.Y < margin || p.X > w-margin || p.Y > h-margin {
			return false
		}
	}
	return true
}

// Coverage returns the document polygon area as a percentage of the frame.
func Coverage(c geometry.CornerSet, width, height int) float64 {
	frameArea := float64(width * height)
	if frameArea == 0 {
		return 0
	}
	return 100 * c.Area() / frameArea
}
