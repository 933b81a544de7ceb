// Package sink hands confirmed captures to their destination.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docscan/internal/logger"
	"docscan/internal/orient"
	"docscan/internal/quality"

	"github.com/sirupsen/logrus"
)

// Artifact is the encoded still image and its report, the single output of a
// confirmed capture.
type Artifact struct {
	Name        string         `json:"name"`
	ContentType string         `json:"contentType"`
	Image       []byte         `json:"-"`
	Report      quality.Report `json:"report"`
	Orientation orient.Result  `json:"orientation"`
	SessionID   string         `json:"sessionId"`
	CapturedAt  time.Time      `json:"capturedAt"`
	Source      ArtifactSource `json:"source"`
}

// ArtifactSource records how the output raster was produced.
type ArtifactSource string

const (
	// SourceRectified means a document outline was found and flattened.
	SourceRectified ArtifactSource = "rectified"
	// SourceGuideCrop means no outline was found and the guide region was
	// cropped as is.
	SourceGuideCrop ArtifactSource = "guideCrop"
)

// ReportName is the name of the JSON sidecar stored next to the image.
func (a Artifact) ReportName() string {
	return strings.TrimSuffix(a.Name, filepath.Ext(a.Name)) + ".json"
}

// ReportJSON encodes the artifact metadata.
func (a Artifact) ReportJSON() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// Sink stores artifacts and returns a locator for the stored image.
type Sink interface {
	Store(ctx context.Context, a Artifact) (string, error)
}

// FileSink writes the image and a JSON sidecar into a directory.
type FileSink struct {
	Dir string
	log *logrus.Entry
}

// NewFileSink creates a sink writing to dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{Dir: dir, log: logger.For("sink")}, nil
}

// Store writes <name> and <name>.json. It returns the image path.
func (s *FileSink) Store(ctx context.Context, a Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.Name == "" || len(a.Image) == 0 {
		return "", fmt.Errorf("store artifact: missing name or image data")
	}

	imagePath := filepath.Join(s.Dir, filepath.Base(a.Name))
	if err := os.WriteFile(imagePath, a.Image, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	meta, err := a.ReportJSON()
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, filepath.Base(a.ReportName())), meta, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"path":       imagePath,
		"bytes":      len(a.Image),
		"acceptable": a.Report.IsAcceptable(),
	}).Info("artifact stored")
	return imagePath, nil
}
