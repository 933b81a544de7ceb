// Package ocr estimates how readable a captured page is to Tesseract.
package ocr

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"docscan/internal/imageio"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Word is one recognized word with Tesseract's 0..100 confidence.
type Word struct {
	Text       string
	Confidence float64
}

// Engine runs the readability probe. It is safe for concurrent use; calls are
// serialized on the underlying client.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates a probe engine for the given Tesseract language.
func NewEngine(language string) (*Engine, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()

	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// Probe returns the mean word confidence of img in 0..1. A page with no
// recognizable words scores 0.
func (e *Engine) Probe(img gocv.Mat) (float64, error) {
	words, err := e.Words(img)
	if err != nil {
		return 0, err
	}
	return MeanConfidence(words), nil
}

// Words runs word-level recognition on img.
func (e *Engine) Words(img gocv.Mat) ([]Word, error) {
	if img.Empty() {
		return nil, imageio.ErrEmptyImage
	}

	processed := Preprocess(img)
	defer processed.Close()

	data, err := imageio.EncodePNG(processed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, errors.New("ocr engine closed")
	}

	if err := e.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, Word{Text: strings.TrimSpace(box.Word), Confidence: box.Confidence})
	}
	return words, nil
}

// MeanConfidence averages the confidence of non-empty words, scaled to 0..1.
func MeanConfidence(words []Word) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Text == "" {
			continue
		}
		sum += w.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n) / 100
	return min(1, max(0, mean))
}

// Preprocess converts to grayscale and binarizes with Otsu, which is what
// Tesseract reads best. The caller owns the result.
func Preprocess(img gocv.Mat) gocv.Mat {
	gray := imageio.ToGray(img)
	defer gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	return binary
}
