package quality

// Thresholds holds the warning and error cutoffs for every metric.
type Thresholds struct {
	// Laplacian variance below which the image is blurry
	BlurWarning float64 `yaml:"blur_warning"`
	BlurError   float64 `yaml:"blur_error"`

	// Mean edge tilt in degrees
	SkewWarningDeg float64 `yaml:"skew_warning_deg"`
	SkewErrorDeg   float64 `yaml:"skew_error_deg"`

	// Pixel intensity above which a pixel counts as glare, and the
	// percentage of glare pixels that raises a warning or error
	GlareCutoff     float64 `yaml:"glare_cutoff"`
	GlareWarningPct float64 `yaml:"glare_warning_pct"`
	GlareErrorPct   float64 `yaml:"glare_error_pct"`

	// Corners closer than this to the frame border may be cropped
	CompletenessMarginPx float64 `yaml:"completeness_margin_px"`

	// Document area below this percentage of the frame asks the user to move
	// closer
	MinCoveragePct float64 `yaml:"min_coverage_pct"`
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BlurWarning: 100,
		BlurError:   50,

		SkewWarningDeg: 15,
		SkewErrorDeg:   25,

		GlareCutoff:     240,
		GlareWarningPct: 5,
		GlareErrorPct:   15,

		CompletenessMarginPx: 10,

		MinCoveragePct: 20,
	}
}
