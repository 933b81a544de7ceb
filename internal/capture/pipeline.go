package capture

import (
	"fmt"
	"time"

	"docscan/internal/detect"
	"docscan/internal/imageio"
	"docscan/internal/logger"
	"docscan/internal/orient"
	"docscan/internal/quality"
	"docscan/internal/rectify"
	"docscan/internal/sink"
	"docscan/pkg/geometry"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Prober scores how readable a final image is, in 0..1.
type Prober interface {
	Probe(img gocv.Mat) (float64, error)
}

// Result is a finalized capture.
type Result struct {
	Image       gocv.Mat
	Report      quality.Report
	Orientation orient.Result
	// Corners of the detected outline in crop coordinates, nil if none
	Corners    *geometry.CornerSet
	Source     sink.ArtifactSource
	CapturedAt time.Time
}

// Close releases the image.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	return r.Image.Close()
}

// Pipeline turns a captured crop into a flattened, scored, upright image.
type Pipeline struct {
	Detector  *detect.Detector
	Analyzer  *quality.Analyzer
	Rectifier *rectify.Rectifier
	Corrector *orient.Corrector
	// Prober is optional
	Prober Prober

	log *logrus.Entry
}

// NewPipeline assembles a pipeline from its stages.
func NewPipeline(d *detect.Detector, a *quality.Analyzer, r *rectify.Rectifier, c *orient.Corrector) *Pipeline {
	return &Pipeline{
		Detector:  d,
		Analyzer:  a,
		Rectifier: r,
		Corrector: c,
		log:       logger.For("pipeline"),
	}
}

// DefaultPipeline uses default parameters for every stage.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		detect.NewDetector(detect.DefaultParams()),
		quality.NewAnalyzer(quality.DefaultThresholds()),
		rectify.New(rectify.DefaultParams()),
		orient.New(orient.DefaultParams()),
	)
}

// Process runs detection, quality scoring, rectification, orientation and the
// optional readability probe on crop. A failing step is logged and its input
// passed through, so only an empty crop is an error. The caller owns the
// result.
func (p *Pipeline) Process(crop gocv.Mat) (*Result, error) {
	if crop.Empty() {
		return nil, imageio.ErrEmptyImage
	}

	res := &Result{
		Source: sink.SourceGuideCrop,
		Report: quality.Report{Warnings: []quality.Warning{}},
	}

	p.guard("detect", func() error {
		cand, err := p.Detector.Detect(crop)
		if cand != nil {
			corners := cand.Corners
			res.Corners = &corners
		}
		return err
	})

	p.guard("quality", func() error {
		report, err := p.Analyzer.Analyze(crop, res.Corners)
		if err != nil {
			return err
		}
		res.Report = report
		return nil
	})

	out := crop.Clone()
	if res.Corners != nil {
		p.guard("rectify", func() error {
			warped, err := p.Rectifier.Rectify(crop, *res.Corners)
			if err != nil {
				return err
			}
			out.Close()
			out = warped
			res.Source = sink.SourceRectified
			return nil
		})
	}

	p.guard("orient", func() error {
		corrected, o, err := p.Corrector.Correct(out)
		if err != nil {
			return err
		}
		out.Close()
		out = corrected
		res.Orientation = o
		return nil
	})

	if p.Prober != nil {
		p.guard("ocr", func() error {
			conf, err := p.Prober.Probe(out)
			if err != nil {
				return err
			}
			res.Report.TextConfidence = &conf
			return nil
		})
	}

	res.Image = out
	p.logger().WithFields(logrus.Fields{
		"source":     res.Source,
		"width":      out.Cols(),
		"height":     out.Rows(),
		"acceptable": res.Report.IsAcceptable(),
		"warnings":   len(res.Report.Warnings),
		"rotation":   res.Orientation.Rotation,
	}).Info("capture processed")
	return res, nil
}

// guard runs one step, turning a panic from native code into an error. A
// failed step is logged and otherwise ignored.
func (p *Pipeline) guard(step string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		p.logger().WithError(err).WithField("step", step).Warn("step failed, passing input through")
	}
}

func (p *Pipeline) logger() *logrus.Entry {
	if p.log == nil {
		p.log = logger.For("pipeline")
	}
	return p.log
}
