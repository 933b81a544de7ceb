package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"

	"docscan/internal/imageio"

	"gocv.io/x/gocv"
)

// StillSource serves the same frame on every read. It backs still-image
// scanning and tests.
type StillSource struct {
	frame  gocv.Mat
	closed bool
}

// NewStillSource copies frame into a new source.
func NewStillSource(frame gocv.Mat) *StillSource {
	return &StillSource{frame: frame.Clone()}
}

// LoadStill decodes an image file into a source.
func LoadStill(path string) (*StillSource, error) {
	m, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}
	return &StillSource{frame: m}, nil
}

func (s *StillSource) Read(dst *gocv.Mat) error {
	if s.closed || s.frame.Empty() {
		return ErrNoFrame
	}
	s.frame.CopyTo(dst)
	return nil
}

func (s *StillSource) Resolution() image.Point {
	if s.closed {
		return image.Point{}
	}
	return image.Pt(s.frame.Cols(), s.frame.Rows())
}

func (s *StillSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.frame.Close()
}

// StillAcquirer opens an image file as a frame source. Constraints are
// ignored since a file has exactly one resolution.
type StillAcquirer struct {
	Path string
}

func (a StillAcquirer) Acquire(ctx context.Context, _ Constraints) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := LoadStill(a.Path)
	switch {
	case err == nil:
		return src, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%s: %w", a.Path, ErrPermissionDenied)
	default:
		return nil, fmt.Errorf("%s: %v: %w", a.Path, err, ErrNoDevice)
	}
}
