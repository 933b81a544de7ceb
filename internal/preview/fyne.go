package preview

import (
	"fmt"
	"image"
	"sync"

	"docscan/internal/capture"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"gocv.io/x/gocv"
)

const reviewPrompt = "Enter to keep, R to retake, Q to quit"

// FyneSurface shows the preview in a fyne window. The capture loop runs off
// the UI goroutine; key presses are queued as actions for it to poll.
type FyneSurface struct {
	win    fyne.Window
	image  *fynecanvas.Image
	status *widget.Label

	actions chan Action
	done    chan struct{}
	once    sync.Once
}

// NewFyneSurface creates the preview window. Call ShowAndRun from the main
// goroutine to display it.
func NewFyneSurface(a fyne.App, title string) *FyneSurface {
	s := &FyneSurface{
		win:     a.NewWindow(title),
		image:   fynecanvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1))),
		status:  widget.NewLabel("Starting camera..."),
		actions: make(chan Action, 8),
		done:    make(chan struct{}),
	}
	s.image.FillMode = fynecanvas.ImageFillContain
	s.image.ScaleMode = fynecanvas.ImageScaleFastest

	s.win.SetContent(container.NewBorder(
		nil,                           // top
		container.NewPadded(s.status), // bottom
		nil,                           // left
		nil,                           // right
		s.image,                       // center
	))
	s.win.Canvas().SetOnTypedKey(s.onKey)
	s.win.SetOnClosed(s.markClosed)
	s.win.SetMaster()
	s.win.Resize(fyne.NewSize(1280, 760))
	return s
}

// Present converts the composed frame and refreshes the window.
func (s *FyneSurface) Present(v capture.View) error {
	return s.show(v.Canvas, bannerText(v))
}

func (s *FyneSurface) show(m gocv.Mat, text string) error {
	img, err := m.ToImage()
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	s.image.Image = img
	s.image.Refresh()
	s.status.SetText(text)
	return nil
}

// Poll returns the next queued action, or ActionNone.
func (s *FyneSurface) Poll() Action {
	select {
	case a := <-s.actions:
		return a
	default:
		return ActionNone
	}
}

// Review shows a capture and blocks until the user keeps it, retakes or
// quits. Closing the window quits.
func (s *FyneSurface) Review(img gocv.Mat) Action {
	if err := s.show(img, reviewPrompt); err != nil {
		return ActionConfirm
	}
	for {
		select {
		case a := <-s.actions:
			return reviewAction(a)
		case <-s.done:
			return ActionQuit
		}
	}
}

// IsOpen reports whether the window has not been closed.
func (s *FyneSurface) IsOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// ShowAndRun shows the window and runs the fyne event loop until the window
// closes. It must be called from the main goroutine.
func (s *FyneSurface) ShowAndRun() {
	s.win.ShowAndRun()
}

func (s *FyneSurface) Close() error {
	s.markClosed()
	s.win.Close()
	return nil
}

func (s *FyneSurface) markClosed() {
	s.once.Do(func() { close(s.done) })
}

func (s *FyneSurface) onKey(ev *fyne.KeyEvent) {
	a := fyneKeyAction(ev.Name)
	if a == ActionNone {
		return
	}
	select {
	case s.actions <- a:
	default:
		// the loop is behind; drop the key
	}
}

func fyneKeyAction(name fyne.KeyName) Action {
	switch name {
	case fyne.KeySpace, fyne.KeyC:
		return ActionCapture
	case fyne.KeyReturn, fyne.KeyEnter:
		return ActionConfirm
	case fyne.KeyR:
		return ActionRetake
	case fyne.KeyQ, fyne.KeyEscape:
		return ActionQuit
	}
	return ActionNone
}
