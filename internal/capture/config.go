package capture

import (
	"math"
	"time"

	"docscan/internal/camera"
	"docscan/internal/imageio"
)

// Config holds the session tunables.
type Config struct {
	// Uninterrupted alignment needed before auto-capture
	AutoCaptureDelay time.Duration `yaml:"auto_capture_delay"`
	// Minimum time between processed frames
	FrameInterval time.Duration `yaml:"frame_interval"`
	// Pause between entering processing and running finalization, so the
	// host can show a processing indicator first
	ProcessingPause time.Duration `yaml:"processing_pause"`

	// Guide width/height and its size relative to the visible frame
	GuideAspect float64 `yaml:"guide_aspect"`
	GuideFill   float64 `yaml:"guide_fill"`

	// Display area the preview is letterboxed into; zero uses the frame size
	DisplayWidth  int `yaml:"display_width"`
	DisplayHeight int `yaml:"display_height"`

	Align AlignParams `yaml:"align"`
	// Run full quadrilateral detection per frame instead of the brightness
	// heuristic
	FullDetectionEveryFrame bool    `yaml:"full_detection_every_frame"`
	DetectionSlack          float64 `yaml:"detection_slack"`

	JPEGQuality int                  `yaml:"jpeg_quality"`
	Chain       []camera.Constraints `yaml:"camera_chain"`
}

// DefaultConfig returns a 30 Hz loop with a 3 s auto-capture delay and a
// portrait A-series guide.
func DefaultConfig() Config {
	return Config{
		AutoCaptureDelay: 3 * time.Second,
		FrameInterval:    33 * time.Millisecond,
		ProcessingPause:  100 * time.Millisecond,

		GuideAspect: 1 / math.Sqrt2,
		GuideFill:   0.8,

		DisplayWidth:  1280,
		DisplayHeight: 720,

		Align:          DefaultAlignParams(),
		DetectionSlack: 0.1,

		JPEGQuality: imageio.DefaultJPEGQuality,
		Chain:       camera.DefaultChain(),
	}
}
