package detect

// Params holds the contour detection and candidate validation thresholds.
type Params struct {
	// Candidate area bounds as a fraction of the frame area
	MinAreaRatio float64 `yaml:"min_area_ratio"`
	MaxAreaRatio float64 `yaml:"max_area_ratio"`

	// Bounding-box width/height bounds
	MinAspectRatio float64 `yaml:"min_aspect_ratio"`
	MaxAspectRatio float64 `yaml:"max_aspect_ratio"`

	// Max deviation of each interior angle from 90 degrees
	AngleToleranceDeg float64 `yaml:"angle_tolerance_deg"`
	// Max relative difference between opposite side lengths
	SideRatioTolerance float64 `yaml:"side_ratio_tolerance"`

	// Polygon approximation tolerances as fractions of the contour perimeter,
	// tried tightest first
	ApproxEpsilons []float64 `yaml:"approx_epsilons"`
	// Outlines that never reduce to four vertices may still be taken by
	// their hull corners if that quad covers this fraction of the hull.
	// Zero disables the fallback.
	MinCornerFill float64 `yaml:"min_corner_fill"`

	// Preprocessing
	BlurKernel      int     `yaml:"blur_kernel"`
	CannyLow        float32 `yaml:"canny_low"`
	CannyHigh       float32 `yaml:"canny_high"`
	CloseKernel     int     `yaml:"close_kernel"`
	CloseIterations int     `yaml:"close_iterations"`

	// A corner within EdgeMarginRatio * min(width, height) of the frame border
	// counts as touching the edge
	EdgeMarginRatio float64 `yaml:"edge_margin_ratio"`

	// Score weights
	EdgeWeight   float64 `yaml:"edge_weight"`
	AreaWeight   float64 `yaml:"area_weight"`
	SpreadWeight float64 `yaml:"spread_weight"`
}

// DefaultParams returns detection parameters tuned for a hand-held phone or
// webcam looking down at a sheet of paper.
func DefaultParams() Params {
	return Params{
		MinAreaRatio: 0.15,
		MaxAreaRatio: 0.98,

		MinAspectRatio: 0.4,
		MaxAspectRatio: 2.5,

		AngleToleranceDeg:  25,
		SideRatioTolerance: 0.30,

		ApproxEpsilons: []float64{0.02, 0.03, 0.04, 0.05, 0.06, 0.08},
		MinCornerFill:  0.85,

		BlurKernel:      5,
		CannyLow:        50,
		CannyHigh:       150,
		CloseKernel:     5,
		CloseIterations: 2,

		EdgeMarginRatio: 0.12,

		// Paper that fills the view reaches the frame edges; small objects
		// inside it do not, so edge proximity dominates.
		EdgeWeight:   0.6,
		AreaWeight:   0.25,
		SpreadWeight: 0.15,
	}
}

// WithAreaRange returns a copy of params with a custom area window.
func (p Params) WithAreaRange(minRatio, maxRatio float64) Params {
	p.MinAreaRatio = minRatio
	p.MaxAreaRatio = maxRatio
	return p
}

// Validator returns the geometry validator configured from these params.
func (p Params) Validator() *Validator {
	return &Validator{
		AngleToleranceDeg:  p.AngleToleranceDeg,
		SideRatioTolerance: p.SideRatioTolerance,
	}
}

func oddKernel(k int) int {
	if k < 1 {
		return 1
	}
	if k%2 == 0 {
		return k + 1
	}
	return k
}
