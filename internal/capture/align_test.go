package capture

import (
	"image"
	"image/color"
	"testing"

	"docscan/internal/detect"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func pageFrame(background, page uint8, r image.Rectangle) gocv.Mat {
	bg := float64(background)
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(bg, bg, bg, 0), 480, 640, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, r, color.RGBA{R: page, G: page, B: page, A: 0}, -1)
	return frame
}

var testGuide = image.Rect(184, 48, 456, 432)

func TestBrightnessAligner(t *testing.T) {
	align := BrightnessAligner(DefaultAlignParams())

	tests := []struct {
		name       string
		background uint8
		page       uint8
		want       bool
	}{
		{"bright page on dark desk", 30, 230, true},
		{"dim page", 30, 90, false},
		{"no contrast", 220, 230, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := pageFrame(tt.background, tt.page, image.Rect(200, 60, 440, 420))
			defer frame.Close()
			assert.Equal(t, tt.want, align(frame, testGuide))
		})
	}
}

func TestBrightnessAligner_EmptyGuide(t *testing.T) {
	frame := pageFrame(30, 230, image.Rect(200, 60, 440, 420))
	defer frame.Close()

	assert.False(t, BrightnessAligner(DefaultAlignParams())(frame, image.Rectangle{}))
}

func TestDetectionAligner(t *testing.T) {
	align := DetectionAligner(detect.NewDetector(detect.DefaultParams()), 0.1)

	inside := pageFrame(30, 230, image.Rect(200, 60, 440, 420))
	defer inside.Close()
	assert.True(t, align(inside, testGuide))

	offset := pageFrame(30, 230, image.Rect(20, 60, 260, 420))
	defer offset.Close()
	assert.False(t, align(offset, testGuide))
}
