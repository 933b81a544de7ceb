package capture

import (
	"image"

	"docscan/internal/detect"
	"docscan/internal/imageio"
	"docscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// Aligner decides whether the document sits inside the guide region of a
// source-resolution frame.
type Aligner func(frame gocv.Mat, guide image.Rectangle) bool

// AlignParams configures the brightness heuristic.
type AlignParams struct {
	// Mean gray level the guide region must exceed
	MinInsideBrightness float64 `yaml:"min_inside_brightness"`
	// Required difference between the guide and the frame corners
	ContrastMargin float64 `yaml:"contrast_margin"`
	// Corner sample size as a fraction of the shorter frame side
	CornerPatchRatio float64 `yaml:"corner_patch_ratio"`
}

// DefaultAlignParams returns the standard heuristic settings.
func DefaultAlignParams() AlignParams {
	return AlignParams{
		MinInsideBrightness: 110,
		ContrastMargin:      25,
		CornerPatchRatio:    0.08,
	}
}

// BrightnessAligner compares the mean brightness inside the guide with the
// four frame corners. Paper is brighter than what surrounds it.
func BrightnessAligner(p AlignParams) Aligner {
	return func(frame gocv.Mat, guide image.Rectangle) bool {
		if frame.Empty() || guide.Empty() {
			return false
		}
		gray := imageio.ToGray(frame)
		defer gray.Close()

		inside := imageio.MeanGray(gray, guide)
		if inside <= p.MinInsideBrightness {
			return false
		}
		outside := cornerBrightness(gray, p.CornerPatchRatio)
		return inside-outside > p.ContrastMargin
	}
}

// cornerBrightness averages square patches at the four frame corners.
func cornerBrightness(gray gocv.Mat, ratio float64) float64 {
	w, h := gray.Cols(), gray.Rows()
	size := int(ratio * float64(min(w, h)))
	if size < 1 {
		size = 1
	}
	patches := []image.Rectangle{
		image.Rect(0, 0, size, size),
		image.Rect(w-size, 0, w, size),
		image.Rect(w-size, h-size, w, h),
		image.Rect(0, h-size, size, h),
	}
	var sum float64
	for _, r := range patches {
		sum += imageio.MeanGray(gray, r)
	}
	return sum / float64(len(patches))
}

// DetectionAligner runs full quadrilateral detection on every frame. It
// reports alignment when the detected outline lies within the guide grown by
// slack (a fraction of the guide size) on each side, and covers at least half
// of the guide.
func DetectionAligner(d *detect.Detector, slack float64) Aligner {
	return func(frame gocv.Mat, guide image.Rectangle) bool {
		if guide.Empty() {
			return false
		}
		cand, err := d.Detect(frame)
		if err != nil || cand == nil {
			return false
		}

		dx := slack * float64(guide.Dx())
		dy := slack * float64(guide.Dy())
		bounds := geometry.Rect{
			X:      float64(guide.Min.X) - dx,
			Y:      float64(guide.Min.Y) - dy,
			Width:  float64(guide.Dx()) + 2*dx,
			Height: float64(guide.Dy()) + 2*dy,
		}
		for _, p := range cand.Corners.Points() {
			if !bounds.Contains(p) {
				return false
			}
		}
		return cand.Area >= 0.5*float64(guide.Dx()*guide.Dy())
	}
}
