// Package preview presents the live capture preview to the user.
package preview

import (
	"image"
	"image/color"

	"docscan/internal/capture"

	"gocv.io/x/gocv"
)

// WindowSurface shows the preview in an OpenCV highgui window and polls the
// keyboard after each frame.
type WindowSurface struct {
	win     *gocv.Window
	lastKey int
}

// NewWindowSurface opens a window with the given title.
func NewWindowSurface(title string) *WindowSurface {
	return &WindowSurface{win: gocv.NewWindow(title), lastKey: -1}
}

// Present draws the phase banner onto the canvas and shows it.
func (w *WindowSurface) Present(v capture.View) error {
	label := bannerText(v)
	if label != "" {
		gocv.PutText(&v.Canvas, label, image.Pt(v.Guide.Min.X, max(24, v.Guide.Min.Y-12)),
			gocv.FontHersheySimplex, 0.8, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 2)
	}
	w.win.IMShow(v.Canvas)
	w.lastKey = w.win.WaitKey(1)
	return nil
}

// Poll pumps the window event loop without drawing and returns the action
// for the key pressed since the last frame.
func (w *WindowSurface) Poll() Action {
	key := w.lastKey
	w.lastKey = -1
	if key < 0 {
		key = w.win.WaitKey(1)
	}
	return keyAction(key)
}

// Review shows a capture until a key is pressed. R retakes, Q or escape
// quits, and any other key keeps it.
func (w *WindowSurface) Review(img gocv.Mat) Action {
	return reviewAction(keyAction(w.Show(img)))
}

// Show displays a still image until a key is pressed and returns the key.
func (w *WindowSurface) Show(img gocv.Mat) int {
	w.win.IMShow(img)
	return w.win.WaitKey(0)
}

// IsOpen reports whether the user has not closed the window.
func (w *WindowSurface) IsOpen() bool {
	return w.win.IsOpen()
}

func (w *WindowSurface) Close() error {
	return w.win.Close()
}

func bannerText(v capture.View) string {
	switch v.Phase {
	case capture.PhaseProcessing:
		return "Processing..."
	case capture.PhaseScanning:
		if v.Aligned {
			return "Hold still"
		}
		return "Align the page with the frame"
	}
	return ""
}
