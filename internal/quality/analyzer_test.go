package quality

import (
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"docscan/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// checkerFrame returns a gray frame with a sharp black/white checkerboard
// inside r and mid-gray elsewhere.
func checkerFrame(w, h int, r image.Rectangle, cell int) gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), h, w, gocv.MatTypeCV8UC3)
	for y := r.Min.Y; y < r.Max.Y; y += cell {
		for x := r.Min.X; x < r.Max.X; x += cell {
			c := color.RGBA{20, 20, 20, 0}
			if ((x-r.Min.X)/cell+(y-r.Min.Y)/cell)%2 == 0 {
				c = color.RGBA{200, 200, 200, 0}
			}
			gocv.Rectangle(&frame, image.Rect(x, y, x+cell-1, y+cell-1), c, -1)
		}
	}
	return frame
}

func TestIsAcceptable(t *testing.T) {
	tests := []struct {
		name     string
		warnings []Warning
		want     bool
	}{
		{"no warnings", nil, true},
		{"warnings only", []Warning{{Type: WarningBlur, Severity: SeverityWarning}, {Type: WarningTooSmall, Severity: SeverityWarning}}, true},
		{"one error", []Warning{{Type: WarningGlare, Severity: SeverityError}}, false},
		{"mixed", []Warning{{Type: WarningSkew, Severity: SeverityWarning}, {Type: WarningBlur, Severity: SeverityError}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Report{Warnings: tt.warnings}.IsAcceptable())
		})
	}
}

func TestReportJSON_IncludesAcceptable(t *testing.T) {
	data, err := json.Marshal(Report{Warnings: []Warning{{Type: WarningBlur, Severity: SeverityError}}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["isAcceptable"])
	assert.Contains(t, decoded, "blurScore")
}

func TestAnalyze_SharpCenteredPage(t *testing.T) {
	// Page covering 60% of a 1000x1000 frame
	page := image.Rect(50, 166, 950, 833)
	frame := checkerFrame(1000, 1000, page, 20)
	defer frame.Close()

	corners := geometry.RectCorners(geometry.Rect{X: 50, Y: 166, Width: 900, Height: 667})
	report, err := NewAnalyzer(DefaultThresholds()).Analyze(frame, &corners)
	require.NoError(t, err)

	assert.InDelta(t, 60.0, report.DocumentCoveragePercentage, 1.0)
	assert.False(t, report.HasWarning(WarningTooSmall))
	assert.False(t, report.HasWarning(WarningBlur))
	assert.True(t, report.IsComplete)
	assert.InDelta(t, 0.0, report.SkewAngleDegrees, 1e-9)
	assert.True(t, report.IsAcceptable())
}

func TestAnalyze_BlankFrameIsBlurry(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 400, 300, gocv.MatTypeCV8UC3)
	defer frame.Close()

	report, err := NewAnalyzer(DefaultThresholds()).Analyze(frame, nil)
	require.NoError(t, err)

	assert.Less(t, report.BlurScore, 1.0)
	assert.True(t, report.HasWarning(WarningBlur))
	assert.True(t, report.HasWarning(WarningIncomplete))
	assert.False(t, report.IsAcceptable())
}

func TestAnalyze_CollectsAllWarnings(t *testing.T) {
	// Blank bright frame: blurry and full of glare, small tilted document
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(250, 250, 250, 0), 500, 500, gocv.MatTypeCV8UC3)
	defer frame.Close()

	corners := geometry.CornerSet{
		TopLeft:     geometry.Pt(0, 100),
		TopRight:    geometry.Pt(150, 20),
		BottomRight: geometry.Pt(190, 110),
		BottomLeft:  geometry.Pt(40, 190),
	}
	report, err := NewAnalyzer(DefaultThresholds()).Analyze(frame, &corners)
	require.NoError(t, err)

	for _, wt := range []WarningType{WarningBlur, WarningGlare, WarningSkew, WarningIncomplete, WarningTooSmall} {
		assert.True(t, report.HasWarning(wt), "missing %s warning", wt)
	}
	assert.False(t, report.IsAcceptable())
}

func TestGlarePercentage_MaskedToDocument(t *testing.T) {
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 0, 0, 0), 200, 200, gocv.MatTypeCV8U)
	defer gray.Close()
	// Glare patch covering a quarter of the document, outside pixels all dark
	gocv.Rectangle(&gray, image.Rect(50, 50, 99, 99), color.RGBA{255, 255, 255, 0}, -1)

	corners := geometry.RectCorners(geometry.Rect{X: 50, Y: 50, Width: 100, Height: 100})
	pct, err := GlarePercentage(gray, &corners, 240)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, pct, 3.0)

	whole, err := GlarePercentage(gray, nil, 240)
	require.NoError(t, err)
	assert.InDelta(t, 6.25, whole, 1.0)
}

func TestSkewAngle(t *testing.T) {
	rot := geometry.RotationAbout(geometry.Pt(500, 500), 20)
	c := geometry.RectCorners(geometry.Rect{X: 300, Y: 200, Width: 400, Height: 600}).Transform(rot)
	// Rotated corners keep their roles for a 20 degree turn
	assert.InDelta(t, 20.0, SkewAngle(c), 1e-6)

	a := NewAnalyzer(DefaultThresholds())
	require.Len(t, a.skewWarnings(20), 1)
	assert.Equal(t, SeverityWarning, a.skewWarnings(20)[0].Severity)
	assert.Equal(t, SeverityError, a.skewWarnings(-30)[0].Severity)
	assert.Empty(t, a.skewWarnings(5))
}

func TestIsComplete(t *testing.T) {
	inside := geometry.RectCorners(geometry.Rect{X: 20, Y: 20, Width: 100, Height: 100})
	assert.True(t, IsComplete(inside, 200, 200, 10))

	touching := geometry.RectCorners(geometry.Rect{X: 5, Y: 20, Width: 100, Height: 100})
	assert.False(t, IsComplete(touching, 200, 200, 10))
}

func TestBlurThresholds(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds())
	assert.Equal(t, SeverityError, a.blurWarnings(40)[0].Severity)
	assert.Equal(t, SeverityWarning, a.blurWarnings(75)[0].Severity)
	assert.Empty(t, a.blurWarnings(150))
}
