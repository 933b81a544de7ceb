package preview

import (
	"fmt"
	"io"
	"os"

	"docscan/internal/capture"

	"github.com/schollz/progressbar/v3"
)

// TerminalSurface reports auto-capture progress on a terminal progress bar
// for headless runs. The canvas is ignored.
type TerminalSurface struct {
	bar     *progressbar.ProgressBar
	aligned bool
	last    int
}

// NewTerminalSurface writes the progress bar to w, or stderr if nil.
func NewTerminalSurface(w io.Writer) *TerminalSurface {
	if w == nil {
		w = os.Stderr
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("align the page"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &TerminalSurface{bar: bar, last: -1}
}

// Present updates the bar to the current progress.
func (t *TerminalSurface) Present(v capture.View) error {
	if v.Aligned != t.aligned {
		t.aligned = v.Aligned
		if v.Aligned {
			t.bar.Describe("hold still")
		} else {
			t.bar.Describe("align the page")
		}
	}
	pct := int(v.Progress * 100)
	if pct == t.last {
		return nil
	}
	t.last = pct
	return t.bar.Set(pct)
}

// Finish completes the bar.
func (t *TerminalSurface) Finish() error {
	return t.bar.Finish()
}
