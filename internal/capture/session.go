// Package capture drives a document capture session: frame source lifecycle,
// the per-frame alignment loop, automatic or manual capture, and
// finalization of the captured frame.
package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"docscan/internal/camera"
	"docscan/internal/imageio"
	"docscan/internal/logger"
	"docscan/internal/sink"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Option customizes a Session.
type Option func(*Session)

// WithClock replaces time.Now for manual captures.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSurface sets the preview target. Without one nothing is drawn.
func WithSurface(surface Surface) Option {
	return func(s *Session) { s.surface = surface }
}

// WithSink sets where Confirm delivers artifacts.
func WithSink(dst sink.Sink) Option {
	return func(s *Session) { s.sink = dst }
}

// WithAligner replaces the per-frame alignment check.
func WithAligner(a Aligner) Option {
	return func(s *Session) { s.aligner = a }
}

// Session is one capture session. The host calls Start once, then Tick from
// its frame callback, and the lifecycle operations in response to the user.
// It owns its frame source exclusively.
type Session struct {
	mu sync.Mutex

	id       string
	cfg      Config
	acquirer camera.Acquirer
	pipeline *Pipeline
	aligner  Aligner
	surface  Surface
	sink     sink.Sink
	now      func() time.Time
	log      *logrus.Entry

	phase    Phase
	starting bool
	// generation increments on every cleanup so a Start that raced one
	// can tell its acquisition is stale.
	generation uint64
	err        error
	source     camera.Source
	frame      *gocv.Mat
	hasFrame   bool

	display image.Point
	mapping DisplayMapping
	guide   image.Rectangle

	lastTick        time.Time
	alignedSince    time.Time
	progress        float64
	crop            *gocv.Mat
	processingSince time.Time
	result          *Result

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
	pending   []event
}

// NewSession creates a session in the initializing phase.
func NewSession(cfg Config, acq camera.Acquirer, pipeline *Pipeline, opts ...Option) *Session {
	id := uuid.NewString()
	s := &Session{
		id:        id,
		cfg:       cfg,
		acquirer:  acq,
		pipeline:  pipeline,
		now:       time.Now,
		display:   image.Pt(cfg.DisplayWidth, cfg.DisplayHeight),
		listeners: make(map[EventType][]EventListener),
		log:       logger.For("capture").WithField("session", id),
	}
	if pipeline == nil {
		s.pipeline = DefaultPipeline()
	}
	if cfg.FullDetectionEveryFrame {
		s.aligner = DetectionAligner(s.pipeline.Detector, cfg.DetectionSlack)
	} else {
		s.aligner = BrightnessAligner(cfg.Align)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// On registers an event listener.
func (s *Session) On(kind EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[kind] = append(s.listeners[kind], listener)
}

// emit queues an event; it is delivered once the session lock is released.
func (s *Session) emit(kind EventType, data interface{}) {
	s.pending = append(s.pending, event{kind: kind, data: data})
}

// unlock releases the session lock and delivers queued events.
func (s *Session) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ev := range pending {
		s.lmu.RLock()
		listeners := s.listeners[ev.kind]
		s.lmu.RUnlock()
		for _, l := range listeners {
			l(ev.data)
		}
	}
}

func (s *Session) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.log.WithFields(logrus.Fields{"from": s.phase, "to": p}).Info("phase changed")
	s.phase = p
	s.emit(EventPhaseChanged, p)
}

func (s *Session) setProgress(p float64) {
	if s.progress == p {
		return
	}
	s.progress = p
	s.emit(EventProgress, p)
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Progress returns the auto-capture progress in [0,1].
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Err returns the error that put the session into the error phase.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the finalized capture while in the captured phase. It stays
// owned by the session and is released on Retake, Confirm or Cleanup.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SetDisplaySize updates the display area the preview is letterboxed into.
func (s *Session) SetDisplaySize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = image.Pt(width, height)
}

// Start acquires a frame source and enters scanning. On failure the session
// enters the error phase and the *camera.AcquisitionError is returned. Start
// is allowed from initializing and from error. A Cleanup that lands while the
// source is being acquired wins: the new source is closed and Start returns
// ErrWrongPhase.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if (s.phase != PhaseInitializing && s.phase != PhaseError) || s.starting {
		s.unlock()
		return fmt.Errorf("start in %s: %w", s.phase, ErrWrongPhase)
	}
	s.starting = true
	s.err = nil
	s.release()
	gen := s.generation
	s.unlock()

	src, err := camera.AcquireFirst(ctx, s.acquirer, s.cfg.Chain)

	s.mu.Lock()
	defer s.unlock()
	s.starting = false

	if gen != s.generation {
		if src != nil {
			if cerr := src.Close(); cerr != nil {
				s.log.WithError(cerr).Warn("failed to close frame source")
			}
		}
		return fmt.Errorf("start interrupted by cleanup: %w", ErrWrongPhase)
	}
	if err != nil {
		s.err = err
		s.setPhase(PhaseError)
		return err
	}

	s.source = src
	frame := gocv.NewMat()
	s.frame = &frame
	s.hasFrame = false
	s.resetAlignment()
	s.lastTick = time.Time{}
	s.setPhase(PhaseScanning)
	return nil
}

// Tick runs one iteration of the session loop at time now. While scanning it
// reads a frame, checks alignment, advances auto-capture progress and renders
// the preview, at most once per frame interval. While processing it
// finalizes the capture once the processing pause has elapsed.
func (s *Session) Tick(now time.Time) error {
	s.mu.Lock()
	defer s.unlock()

	switch s.phase {
	case PhaseProcessing:
		if now.Sub(s.processingSince) >= s.cfg.ProcessingPause {
			return s.finalize(now)
		}
		return nil
	case PhaseScanning:
	default:
		return nil
	}

	if !s.lastTick.IsZero() && now.Sub(s.lastTick) < s.cfg.FrameInterval {
		return nil
	}
	s.lastTick = now

	if err := s.grab(); err != nil {
		s.log.WithError(err).Debug("frame unavailable")
		return nil
	}

	aligned := s.aligner(*s.frame, s.guide)
	s.advance(now, aligned)
	if s.progress >= 1 {
		s.trigger(now, "auto")
	}
	s.render(aligned)
	return nil
}

// grab reads a frame and recomputes the display mapping and guide region.
func (s *Session) grab() error {
	if err := s.source.Read(s.frame); err != nil {
		return err
	}
	s.hasFrame = true

	res := image.Pt(s.frame.Cols(), s.frame.Rows())
	s.mapping = ComputeMapping(res, s.displaySize(res))
	guide := s.mapping.GuideRect(s.cfg.GuideAspect, s.cfg.GuideFill)
	s.guide = s.mapping.RectToSource(guide).ImageRect(image.Rect(0, 0, res.X, res.Y))
	return nil
}

func (s *Session) displaySize(source image.Point) image.Point {
	if s.display.X <= 0 || s.display.Y <= 0 {
		return source
	}
	return s.display
}

// advance accumulates uninterrupted alignment time. Losing alignment resets
// progress to zero.
func (s *Session) advance(now time.Time, aligned bool) {
	if !aligned {
		s.alignedSince = time.Time{}
		s.setProgress(0)
		return
	}
	if s.alignedSince.IsZero() {
		s.alignedSince = now
	}
	p := 1.0
	if s.cfg.AutoCaptureDelay > 0 {
		p = min(1, float64(now.Sub(s.alignedSince))/float64(s.cfg.AutoCaptureDelay))
	}
	s.setProgress(p)
}

func (s *Session) resetAlignment() {
	s.alignedSince = time.Time{}
	s.setProgress(0)
}

// CaptureManual captures immediately, bypassing the auto-capture timer.
func (s *Session) CaptureManual() error {
	s.mu.Lock()
	defer s.unlock()

	if s.phase != PhaseScanning {
		return fmt.Errorf("capture in %s: %w", s.phase, ErrWrongPhase)
	}
	if !s.hasFrame {
		if err := s.grab(); err != nil {
			return fmt.Errorf("capture: %w", err)
		}
	}
	s.trigger(s.now(), "manual")
	return nil
}

// trigger crops the guide region from the full-resolution frame and enters
// processing.
func (s *Session) trigger(now time.Time, reason string) {
	crop := imageio.Crop(*s.frame, s.guide)
	if crop.Empty() {
		crop.Close()
		crop = s.frame.Clone()
	}
	s.crop = &crop
	s.processingSince = now
	s.log.WithFields(logrus.Fields{
		"reason": reason,
		"guide":  s.guide.String(),
	}).Info("capture triggered")
	s.setPhase(PhaseProcessing)
}

func (s *Session) finalize(now time.Time) error {
	crop := s.crop
	s.crop = nil
	defer crop.Close()

	res, err := s.pipeline.Process(*crop)
	if err != nil {
		s.err = err
		s.setPhase(PhaseError)
		return fmt.Errorf("finalize: %w", err)
	}
	res.CapturedAt = now
	s.result = res
	s.setPhase(PhaseCaptured)
	s.emit(EventCaptured, res)
	return nil
}

// Retake discards the captured result and resumes scanning.
func (s *Session) Retake() error {
	s.mu.Lock()
	defer s.unlock()

	if s.phase != PhaseCaptured {
		return fmt.Errorf("retake in %s: %w", s.phase, ErrWrongPhase)
	}
	s.result.Close()
	s.result = nil
	s.lastTick = time.Time{}
	s.resetAlignment()
	s.setPhase(PhaseScanning)
	return nil
}

// Confirm encodes the captured image, hands it to the sink and ends the
// session. It returns the artifact and the sink's locator. If the sink fails
// the session stays captured so Confirm can be retried.
func (s *Session) Confirm(ctx context.Context) (*sink.Artifact, string, error) {
	s.mu.Lock()
	defer s.unlock()

	if s.phase != PhaseCaptured {
		return nil, "", fmt.Errorf("confirm in %s: %w", s.phase, ErrWrongPhase)
	}

	data, err := imageio.EncodeJPEG(s.result.Image, s.cfg.JPEGQuality)
	if err != nil {
		return nil, "", fmt.Errorf("confirm: %w", err)
	}
	art := &sink.Artifact{
		Name:        fmt.Sprintf("document-%s.jpg", uuid.NewString()),
		ContentType: "image/jpeg",
		Image:       data,
		Report:      s.result.Report,
		Orientation: s.result.Orientation,
		SessionID:   s.id,
		CapturedAt:  s.result.CapturedAt,
		Source:      s.result.Source,
	}

	var location string
	if s.sink != nil {
		location, err = s.sink.Store(ctx, *art)
		if err != nil {
			return nil, "", fmt.Errorf("confirm: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{"artifact": art.Name, "location": location}).Info("capture confirmed")
	s.cleanup()
	return art, location, nil
}

// Cleanup stops the frame source, releases session resources and returns to
// initializing. It is safe to call in any phase and more than once.
func (s *Session) Cleanup() {
	s.mu.Lock()
	defer s.unlock()
	s.cleanup()
}

func (s *Session) cleanup() {
	s.release()
	s.generation++
	s.hasFrame = false
	s.lastTick = time.Time{}
	s.resetAlignment()
	s.setPhase(PhaseInitializing)
}

// release closes the frame source and frees every native buffer the session
// holds. The phase is left alone.
func (s *Session) release() {
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.log.WithError(err).Warn("failed to close frame source")
		}
		s.source = nil
	}
	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
	if s.crop != nil {
		s.crop.Close()
		s.crop = nil
	}
	if s.result != nil {
		s.result.Close()
		s.result = nil
	}
	s.hasFrame = false
}

func (s *Session) render(aligned bool) {
	if s.surface == nil || !s.hasFrame {
		return
	}
	display := s.displaySize(image.Pt(s.frame.Cols(), s.frame.Rows()))
	guide := s.mapping.GuideRect(s.cfg.GuideAspect, s.cfg.GuideFill)

	canvas := ComposeView(*s.frame, s.mapping, display, guide, aligned, s.progress)
	defer canvas.Close()

	err := s.surface.Present(View{
		Canvas:   canvas,
		Phase:    s.phase,
		Aligned:  aligned,
		Progress: s.progress,
		Guide:    guide.ImageRect(image.Rect(0, 0, display.X, display.Y)),
	})
	if err != nil {
		s.log.WithError(err).Debug("preview failed")
	}
}
