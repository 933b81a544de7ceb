// Package config loads capture profiles from built-in presets, YAML files and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"docscan/internal/camera"
	"docscan/internal/capture"
	"docscan/internal/detect"
	"docscan/internal/orient"
	"docscan/internal/quality"
	"docscan/internal/rectify"
	"docscan/internal/sink"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Profile composes every tunable of the capture pipeline.
type Profile struct {
	Name    string             `yaml:"name"`
	Detect  detect.Params      `yaml:"detect"`
	Quality quality.Thresholds `yaml:"quality"`
	Rectify rectify.Params     `yaml:"rectify"`
	Orient  orient.Params      `yaml:"orient"`
	Capture capture.Config     `yaml:"capture"`
	Camera  CameraConfig       `yaml:"camera"`
	Output  OutputConfig       `yaml:"output"`
	Log     LogConfig          `yaml:"log"`
}

// CameraConfig lists the local devices to try.
type CameraConfig struct {
	Devices []camera.Device `yaml:"devices"`
}

// OutputConfig selects where confirmed captures go.
type OutputConfig struct {
	Dir   string           `yaml:"dir"`
	Azure sink.AzureConfig `yaml:"azure"`
	OCR   bool             `yaml:"ocr"`
	// Tesseract language for the readability probe
	OCRLanguage string `yaml:"ocr_language"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default is the general purpose profile for letter and A4 pages.
func Default() Profile {
	return Profile{
		Name:    "default",
		Detect:  detect.DefaultParams(),
		Quality: quality.DefaultThresholds(),
		Rectify: rectify.DefaultParams(),
		Orient:  orient.DefaultParams(),
		Capture: capture.DefaultConfig(),
		Camera: CameraConfig{
			Devices: []camera.Device{{ID: 0, Facing: camera.FacingAny}},
		},
		Output: OutputConfig{
			Dir:         "captures",
			OCRLanguage: "eng",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Receipt accepts small, long and narrow slips.
func Receipt() Profile {
	p := Default()
	p.Name = "receipt"
	p.Detect = p.Detect.WithAreaRange(0.10, p.Detect.MaxAreaRatio)
	p.Detect.MinAspectRatio = 1 / 3.5
	p.Detect.MaxAspectRatio = 3.5
	p.Quality.MinCoveragePct = 10
	p.Capture.AutoCaptureDelay = 2 * time.Second
	p.Capture.GuideAspect = 1.0 / 2.5
	return p
}

// Strict requires a larger, steadier page.
func Strict() Profile {
	p := Default()
	p.Name = "strict"
	p.Detect = p.Detect.WithAreaRange(0.25, p.Detect.MaxAreaRatio)
	p.Detect.AngleToleranceDeg = 15
	p.Detect.SideRatioTolerance = 0.2
	p.Capture.AutoCaptureDelay = 4 * time.Second
	p.Orient.ConfidenceThreshold = 0.7
	return p
}

var builtins = map[string]func() Profile{
	"default": Default,
	"receipt": Receipt,
	"strict":  Strict,
}

// Builtin returns the named built-in profile.
func Builtin(name string) (Profile, bool) {
	fn, ok := builtins[name]
	if !ok {
		return Profile{}, false
	}
	return fn(), true
}

// Names lists the built-in profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load starts from the named built-in profile (default when empty), overlays
// the YAML file at path if given, then .env and DOCSCAN_* environment
// overrides, and validates the result.
func Load(path, profile string) (*Profile, error) {
	if profile == "" {
		profile = "default"
	}
	p, ok := Builtin(profile)
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (have %v)", profile, Names())
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	_ = godotenv.Load() // .env is optional

	if err := applyEnvOverrides(&p, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &p, nil
}

// applyEnvOverrides applies DOCSCAN_* variables.
func applyEnvOverrides(p *Profile, lookup func(string) (string, bool)) error {
	if v, ok := lookup("DOCSCAN_AUTO_CAPTURE_DELAY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOCSCAN_AUTO_CAPTURE_DELAY: %w", err)
		}
		p.Capture.AutoCaptureDelay = d
	}

	if v, ok := lookup("DOCSCAN_CAMERA_DEVICE"); ok && v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOCSCAN_CAMERA_DEVICE: %w", err)
		}
		p.Camera.Devices = []camera.Device{{ID: id, Facing: camera.FacingAny}}
	}

	if v, ok := lookup("DOCSCAN_OUTPUT_DIR"); ok && v != "" {
		p.Output.Dir = v
	}

	if v, ok := lookup("DOCSCAN_LOG_LEVEL"); ok && v != "" {
		p.Log.Level = v
	}

	if v, ok := lookup("DOCSCAN_OCR"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOCSCAN_OCR: %w", err)
		}
		p.Output.OCR = enabled
	}

	if v, ok := lookup("DOCSCAN_AZURE_ACCOUNT"); ok && v != "" {
		p.Output.Azure.AccountName = v
	}
	if v, ok := lookup("DOCSCAN_AZURE_KEY"); ok && v != "" {
		p.Output.Azure.AccountKey = v
	}
	if v, ok := lookup("DOCSCAN_AZURE_CONTAINER"); ok && v != "" {
		p.Output.Azure.Container = v
	}
	return nil
}

// Validate rejects inconsistent settings.
func (p *Profile) Validate() error {
	var errs []error

	d := p.Detect
	if d.MinAreaRatio <= 0 || d.MinAreaRatio >= d.MaxAreaRatio || d.MaxAreaRatio > 1 {
		errs = append(errs, fmt.Errorf("detect area range [%g, %g] must satisfy 0 < min < max <= 1", d.MinAreaRatio, d.MaxAreaRatio))
	}
	if d.MinAspectRatio <= 0 || d.MinAspectRatio >= d.MaxAspectRatio {
		errs = append(errs, fmt.Errorf("detect aspect range [%g, %g] is empty", d.MinAspectRatio, d.MaxAspectRatio))
	}
	if len(d.ApproxEpsilons) == 0 {
		errs = append(errs, errors.New("detect approx_epsilons must not be empty"))
	}
	if d.MinCornerFill < 0 || d.MinCornerFill > 1 {
		errs = append(errs, fmt.Errorf("detect min_corner_fill %g outside [0,1]", d.MinCornerFill))
	}

	if p.Quality.BlurError > p.Quality.BlurWarning {
		errs = append(errs, errors.New("quality blur_error must not exceed blur_warning"))
	}
	if p.Quality.SkewErrorDeg < p.Quality.SkewWarningDeg || p.Quality.GlareErrorPct < p.Quality.GlareWarningPct {
		errs = append(errs, errors.New("quality error thresholds must be at least as strict as warnings"))
	}

	if p.Rectify.AspectRatio < 1 {
		errs = append(errs, fmt.Errorf("rectify aspect_ratio %g must be >= 1", p.Rectify.AspectRatio))
	}

	if t := p.Orient.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("orient confidence_threshold %g outside [0,1]", t))
	}

	c := p.Capture
	if c.AutoCaptureDelay <= 0 {
		errs = append(errs, errors.New("capture auto_capture_delay must be positive"))
	}
	if c.FrameInterval < 0 || c.ProcessingPause < 0 {
		errs = append(errs, errors.New("capture intervals must not be negative"))
	}
	if c.GuideFill <= 0 || c.GuideFill > 1 {
		errs = append(errs, fmt.Errorf("capture guide_fill %g outside (0,1]", c.GuideFill))
	}
	if c.GuideAspect <= 0 {
		errs = append(errs, errors.New("capture guide_aspect must be positive"))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("capture jpeg_quality %d outside 1..100", c.JPEGQuality))
	}

	if p.Output.Dir == "" && !p.Output.Azure.Enabled() {
		errs = append(errs, errors.New("output needs a directory or Azure settings"))
	}

	return errors.Join(errs...)
}

// Pipeline builds the capture pipeline from the profile.
func (p *Profile) Pipeline() *capture.Pipeline {
	return capture.NewPipeline(
		detect.NewDetector(p.Detect),
		quality.NewAnalyzer(p.Quality),
		rectify.New(p.Rectify),
		orient.New(p.Orient),
	)
}
