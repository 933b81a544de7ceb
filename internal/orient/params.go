package orient

// Params configures orientation scoring and residual deskew.
type Params struct {
	// A rotation is applied only when confidence exceeds this
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// Score weights: top/bottom edge asymmetry, gradient direction ratio and
	// line segment direction ratio
	EdgeWeight     float64 `yaml:"edge_weight"`
	GradientWeight float64 `yaml:"gradient_weight"`
	LineWeight     float64 `yaml:"line_weight"`

	CannyLow  float32 `yaml:"canny_low"`
	CannyHigh float32 `yaml:"canny_high"`

	// Probabilistic Hough settings; lengths are fractions of the shorter
	// image side
	HoughThreshold     int     `yaml:"hough_threshold"`
	MinLineLengthRatio float64 `yaml:"min_line_length_ratio"`
	MaxLineGap         float32 `yaml:"max_line_gap"`
	// Segments within this many degrees of an axis count as aligned with it
	LineAngleToleranceDeg float64 `yaml:"line_angle_tolerance_deg"`

	// Residual tilt outside [DeskewMinDeg, DeskewMaxDeg] is left alone
	DeskewMinDeg             float64 `yaml:"deskew_min_deg"`
	DeskewMaxDeg             float64 `yaml:"deskew_max_deg"`
	DeskewMinLineLengthRatio float64 `yaml:"deskew_min_line_length_ratio"`

	// Images are downscaled so the longer side is at most this before scoring
	AnalysisMaxSide int `yaml:"analysis_max_side"`
}

// DefaultParams returns the standard orientation settings.
func DefaultParams() Params {
	return Params{
		ConfidenceThreshold: 0.6,

		EdgeWeight:     0.3,
		GradientWeight: 0.4,
		LineWeight:     0.3,

		CannyLow:  50,
		CannyHigh: 150,

		HoughThreshold:        50,
		MinLineLengthRatio:    0.05,
		MaxLineGap:            10,
		LineAngleToleranceDeg: 15,

		DeskewMinDeg:             0.5,
		DeskewMaxDeg:             15,
		DeskewMinLineLengthRatio: 0.25,

		AnalysisMaxSide: 1000,
	}
}
