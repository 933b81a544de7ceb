package preview

import (
	"fmt"
	"io"

	"docscan/internal/orient"
	"docscan/internal/quality"

	"github.com/fatih/color"
)

// PrintReport writes a human-readable quality summary. Errors are red,
// warnings yellow and an acceptable capture green.
func PrintReport(w io.Writer, r quality.Report, o orient.Result, noColor bool) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	if noColor {
		green.DisableColor()
		yellow.DisableColor()
		red.DisableColor()
	}

	if r.IsAcceptable() {
		green.Fprintln(w, "✓ capture acceptable")
	} else {
		red.Fprintln(w, "✗ capture has quality errors")
	}

	fmt.Fprintf(w, "  blur score     %.1f\n", r.BlurScore)
	fmt.Fprintf(w, "  skew           %.1f°\n", r.SkewAngleDegrees)
	fmt.Fprintf(w, "  glare          %.1f%%\n", r.GlarePercentage)
	fmt.Fprintf(w, "  coverage       %.1f%%\n", r.DocumentCoveragePercentage)
	fmt.Fprintf(w, "  complete       %t\n", r.IsComplete)
	if r.TextConfidence != nil {
		fmt.Fprintf(w, "  text conf.     %.2f\n", *r.TextConfidence)
	}
	rot := fmt.Sprintf("%d° (confidence %.2f)", o.Rotation, o.Confidence)
	if !o.Applied {
		rot += ", not applied"
	}
	fmt.Fprintf(w, "  orientation    %s\n", rot)

	for _, warn := range r.Warnings {
		c := yellow
		if warn.Severity == quality.SeverityError {
			c = red
		}
		c.Fprintf(w, "  ⚠ [%s/%s] %s\n", warn.Type, warn.Severity, warn.Message)
	}
}
