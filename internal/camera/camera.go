// Package camera acquires frame sources through an ordered fallback chain of
// capability constraints.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"docscan/internal/logger"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Facing selects which way a camera points.
type Facing string

const (
	FacingAny   Facing = "any"
	FacingRear  Facing = "rear"
	FacingFront Facing = "front"
)

// Constraints is one rung of the acquisition fallback chain. Zero Width and
// Height accept any resolution.
type Constraints struct {
	Facing Facing `yaml:"facing"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

func (c Constraints) String() string {
	facing := c.Facing
	if facing == "" {
		facing = FacingAny
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Sprintf("%s camera, any resolution", facing)
	}
	return fmt.Sprintf("%s camera, %dx%d", facing, c.Width, c.Height)
}

// Matches reports whether a camera facing f satisfies the constraint. Facing
// is a preference: a camera of unknown facing satisfies any of them, so the
// resolution of a rear rung is still requested from it.
func (c Constraints) Matches(f Facing) bool {
	if c.Facing == "" || c.Facing == FacingAny || f == "" || f == FacingAny {
		return true
	}
	return c.Facing == f
}

// DefaultChain prefers the rear camera at 1080p, then the rear camera at any
// resolution, then any camera.
func DefaultChain() []Constraints {
	return []Constraints{
		{Facing: FacingRear, Width: 1920, Height: 1080},
		{Facing: FacingRear},
		{Facing: FacingAny},
	}
}

// Source delivers frames at a fixed native resolution.
type Source interface {
	// Read copies the current frame into dst.
	Read(dst *gocv.Mat) error
	Resolution() image.Point
	Close() error
}

// Acquirer opens a frame source satisfying the given constraints.
type Acquirer interface {
	Acquire(ctx context.Context, c Constraints) (Source, error)
}

// Acquisition failure causes. Acquirers wrap one of these so AcquireFirst can
// classify the outcome.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device")
	// ErrUnsatisfied means a device exists but cannot meet the constraints.
	ErrUnsatisfied = errors.New("constraints not satisfiable")
	// ErrNoFrame is returned by Source.Read when no frame is available.
	ErrNoFrame = errors.New("no frame available")
)

// Reason classifies a failed acquisition for the user.
type Reason int

const (
	ReasonDeviceUnavailable Reason = iota
	ReasonPermissionDenied
)

func (r Reason) String() string {
	if r == ReasonPermissionDenied {
		return "permission denied"
	}
	return "device unavailable"
}

// Attempt records one failed rung of the chain.
type Attempt struct {
	Constraints Constraints
	Err         error
}

// AcquisitionError is returned when every rung of the chain failed.
type AcquisitionError struct {
	Reason   Reason
	Attempts []Attempt
}

func (e *AcquisitionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Constraints, a.Err))
	}
	return fmt.Sprintf("camera acquisition failed (%s): %s", e.Reason, strings.Join(parts, "; "))
}

// Unwrap exposes the per-attempt errors to errors.Is and errors.As.
func (e *AcquisitionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// UserMessage is the text shown in the error phase.
func (e *AcquisitionError) UserMessage() string {
	if e.Reason == ReasonPermissionDenied {
		return "Camera access was denied. Allow camera access and start again."
	}
	return "No usable camera was found. Connect a camera and start again."
}

// AcquireFirst tries each constraint set in order and returns the first
// source that opens. Permission denial on any rung wins over other failures
// when classifying the final error. There is no retry.
func AcquireFirst(ctx context.Context, acq Acquirer, chain []Constraints) (Source, error) {
	log := logger.For("camera")
	if len(chain) == 0 {
		chain = DefaultChain()
	}

	acqErr := &AcquisitionError{Reason: ReasonDeviceUnavailable}
	for _, c := range chain {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("camera acquisition: %w", err)
		}

		src, err := acq.Acquire(ctx, c)
		if err == nil {
			res := src.Resolution()
			log.WithFields(logrus.Fields{
				"constraints": c.String(),
				"width":       res.X,
				"height":      res.Y,
			}).Info("camera acquired")
			return src, nil
		}

		log.WithFields(logrus.Fields{"constraints": c.String()}).WithError(err).Info("camera constraints failed")
		acqErr.Attempts = append(acqErr.Attempts, Attempt{Constraints: c, Err: err})
		if errors.Is(err, ErrPermissionDenied) {
			acqErr.Reason = ReasonPermissionDenied
		}
	}
	return nil, acqErr
}
