package imageio

import (
	"image"

	"gocv.io/x/gocv"
)

// ToGray returns a single-channel copy of frame. The caller owns the result.
func ToGray(frame gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 4:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}
	return gray
}

// Crop copies the part of frame inside r, clipped to the frame bounds. The
// caller owns the result.
func Crop(frame gocv.Mat, r image.Rectangle) gocv.Mat {
	r = r.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if r.Empty() {
		return gocv.NewMat()
	}
	region := frame.Region(r)
	defer region.Close()
	return region.Clone()
}

// MeanGray returns the mean intensity (0..255) of a grayscale region of
// frame, clipped to its bounds. An empty region yields 0.
func MeanGray(gray gocv.Mat, r image.Rectangle) float64 {
	r = r.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if r.Empty() {
		return 0
	}
	region := gray.Region(r)
	defer region.Close()
	return region.Mean().Val1
}
