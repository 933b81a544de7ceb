// Package imageio loads still images into gocv matrices and encodes captured
// documents for hand-off.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is the encoder quality used for confirmed captures.
const DefaultJPEGQuality = 95

// ErrEmptyImage is returned when an operation receives an empty matrix.
var ErrEmptyImage = errors.New("empty image")

// Load decodes an image file (JPEG, PNG, TIFF, BMP or WebP) into a BGR Mat.
// The caller owns the returned Mat. On error the returned Mat is the zero
// value and nothing needs closing.
func Load(path string) (gocv.Mat, error) {
	file, err := os.Open(path)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img)
}

// FromImage converts a Go image into a 3-channel BGR Mat. Like Load, it
// allocates nothing on error.
func FromImage(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.Mat{}, ErrEmptyImage
	}
	m, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image: %w", err)
	}
	return m, nil
}

// EncodeJPEG encodes a Mat as JPEG with the given quality (1..100).
func EncodeJPEG(m gocv.Mat, quality int) ([]byte, error) {
	if m.Empty() {
		return nil, ErrEmptyImage
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory, copy before the buffer is released
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// EncodePNG encodes a Mat as PNG.
func EncodePNG(m gocv.Mat) ([]byte, error) {
	if m.Empty() {
		return nil, ErrEmptyImage
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Save writes a Mat to disk, choosing the encoder from the file extension.
func Save(path string, m gocv.Mat, jpegQuality int) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		data, err = EncodePNG(m)
	case ".jpg", ".jpeg":
		data, err = EncodeJPEG(m, jpegQuality)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
