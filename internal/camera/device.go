package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// Device describes a local video capture device.
type Device struct {
	ID     int    `yaml:"id"`
	Facing Facing `yaml:"facing"`
}

// DeviceAcquirer opens local cameras through OpenCV's VideoCapture.
type DeviceAcquirer struct {
	Devices []Device
	// PathFormat locates the device node used to tell a missing device from
	// a permission problem. Only consulted on Linux.
	PathFormat string

	// openDevice replaces open in tests.
	openDevice func(d Device, c Constraints) (Source, error)
}

// NewDeviceAcquirer returns an acquirer for the given devices. With none, it
// uses device 0 with unknown facing.
func NewDeviceAcquirer(devices ...Device) *DeviceAcquirer {
	if len(devices) == 0 {
		devices = []Device{{ID: 0, Facing: FacingAny}}
	}
	return &DeviceAcquirer{Devices: devices, PathFormat: "/dev/video%d"}
}

// Acquire opens the first listed device matching c.
func (a *DeviceAcquirer) Acquire(ctx context.Context, c Constraints) (Source, error) {
	var errs []error
	for _, d := range a.Devices {
		if !c.Matches(d.Facing) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		open := a.open
		if a.openDevice != nil {
			open = a.openDevice
		}
		src, err := open(d, c)
		if err == nil {
			return src, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no %s camera: %w", c.Facing, ErrNoDevice)
	}
	return nil, errors.Join(errs...)
}

func (a *DeviceAcquirer) open(d Device, c Constraints) (Source, error) {
	if err := a.checkNode(d.ID); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(d.ID)
	if err != nil {
		return nil, fmt.Errorf("device %d: %v: %w", d.ID, err, ErrNoDevice)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d not opened: %w", d.ID, ErrNoDevice)
	}

	if c.Width > 0 && c.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}
	res := image.Pt(int(vc.Get(gocv.VideoCaptureFrameWidth)), int(vc.Get(gocv.VideoCaptureFrameHeight)))
	if c.Width > 0 && c.Height > 0 && (res.X != c.Width || res.Y != c.Height) {
		vc.Close()
		return nil, fmt.Errorf("device %d gives %dx%d, want %dx%d: %w",
			d.ID, res.X, res.Y, c.Width, c.Height, ErrUnsatisfied)
	}

	return &deviceSource{vc: vc, res: res}, nil
}

// checkNode distinguishes a missing device node from one we may not open.
func (a *DeviceAcquirer) checkNode(id int) error {
	if runtime.GOOS != "linux" || a.PathFormat == "" {
		return nil
	}
	path := fmt.Sprintf(a.PathFormat, id)
	f, err := os.Open(path)
	switch {
	case err == nil:
		f.Close()
		return nil
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w", path, ErrPermissionDenied)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", path, ErrNoDevice)
	default:
		return fmt.Errorf("%s: %v: %w", path, err, ErrNoDevice)
	}
}

type deviceSource struct {
	mu  sync.Mutex
	vc  *gocv.VideoCapture
	res image.Point
}

func (s *deviceSource) Read(dst *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vc == nil {
		return ErrNoFrame
	}
	if ok := s.vc.Read(dst); !ok || dst.Empty() {
		return ErrNoFrame
	}
	return nil
}

func (s *deviceSource) Resolution() image.Point {
	return s.res
}

func (s *deviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vc == nil {
		return nil
	}
	err := s.vc.Close()
	s.vc = nil
	return err
}
