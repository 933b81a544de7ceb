package preview

import (
	"bytes"
	"image"
	"testing"

	"docscan/internal/capture"
	"docscan/internal/orient"
	"docscan/internal/quality"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	conf := 0.81
	PrintReport(&buf, quality.Report{
		BlurScore:      42,
		TextConfidence: &conf,
		Warnings: []quality.Warning{
			{Type: quality.WarningBlur, Severity: quality.SeverityError, Message: "Image is too blurry"},
		},
	}, orient.Result{Rotation: orient.Rotate180, Confidence: 0.4}, true)

	out := buf.String()
	assert.Contains(t, out, "capture has quality errors")
	assert.Contains(t, out, "blur score     42.0")
	assert.Contains(t, out, "text conf.     0.81")
	assert.Contains(t, out, "180° (confidence 0.40), not applied")
	assert.Contains(t, out, "[blur/error] Image is too blurry")
	assert.NotContains(t, out, "\x1b[")
}

func TestTerminalSurface(t *testing.T) {
	var buf bytes.Buffer
	surface := NewTerminalSurface(&buf)
	canvas := gocv.NewMat()
	defer canvas.Close()

	require.NoError(t, surface.Present(capture.View{Canvas: canvas, Phase: capture.PhaseScanning}))
	require.NoError(t, surface.Present(capture.View{Canvas: canvas, Phase: capture.PhaseScanning, Aligned: true, Progress: 0.5}))
	assert.Contains(t, buf.String(), "hold still")
	assert.Equal(t, 50, surface.last)
}

func TestBannerText(t *testing.T) {
	assert.Equal(t, "Processing...", bannerText(capture.View{Phase: capture.PhaseProcessing}))
	assert.Equal(t, "Hold still", bannerText(capture.View{Phase: capture.PhaseScanning, Aligned: true}))
	assert.Empty(t, bannerText(capture.View{Phase: capture.PhaseCaptured, Guide: image.Rect(0, 0, 1, 1)}))
}

func TestKeyAction(t *testing.T) {
	assert.Equal(t, ActionCapture, keyAction(' '))
	assert.Equal(t, ActionCapture, keyAction('C'))
	assert.Equal(t, ActionConfirm, keyAction(keyEnter))
	assert.Equal(t, ActionRetake, keyAction('r'))
	assert.Equal(t, ActionQuit, keyAction(keyEscape))
	assert.Equal(t, ActionNone, keyAction(-1))

	assert.Equal(t, ActionConfirm, reviewAction(ActionNone))
	assert.Equal(t, ActionConfirm, reviewAction(ActionCapture))
	assert.Equal(t, ActionRetake, reviewAction(ActionRetake))
}

func TestFyneSurface_Present(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()
	s := NewFyneSurface(a, "docscan")
	defer s.Close()

	// pure blue in BGR
	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer canvas.Close()

	require.NoError(t, s.Present(capture.View{Canvas: canvas, Phase: capture.PhaseScanning, Aligned: true}))
	require.NotNil(t, s.image.Image)
	assert.Equal(t, image.Rect(0, 0, 160, 120), s.image.Image.Bounds())
	r, g, b, _ := s.image.Image.At(10, 10).RGBA()
	assert.Equal(t, []uint32{0, 0, 0xffff}, []uint32{r, g, b})
	assert.Equal(t, "Hold still", s.status.Text)
}

func TestFyneSurface_KeysBecomeActions(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()
	s := NewFyneSurface(a, "docscan")

	typeKey := s.win.Canvas().OnTypedKey()
	assert.Equal(t, ActionNone, s.Poll())

	typeKey(&fyne.KeyEvent{Name: fyne.KeySpace})
	typeKey(&fyne.KeyEvent{Name: fyne.KeyF1})
	assert.Equal(t, ActionCapture, s.Poll())
	assert.Equal(t, ActionNone, s.Poll())

	shot := gocv.NewMatWithSize(40, 30, gocv.MatTypeCV8UC3)
	defer shot.Close()

	typeKey(&fyne.KeyEvent{Name: fyne.KeyR})
	assert.Equal(t, ActionRetake, s.Review(shot))
	assert.Equal(t, reviewPrompt, s.status.Text)

	typeKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	assert.Equal(t, ActionConfirm, s.Review(shot))

	assert.True(t, s.IsOpen())
	require.NoError(t, s.Close())
	assert.False(t, s.IsOpen())
	assert.Equal(t, ActionQuit, s.Review(shot))
}
