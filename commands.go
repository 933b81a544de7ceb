package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"docscan/internal/camera"
	"docscan/internal/capture"
	"docscan/internal/config"
	"docscan/internal/imageio"
	"docscan/internal/logger"
	"docscan/internal/preview"
	"docscan/internal/sink"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
	"gopkg.in/yaml.v3"
)

// Preview front ends for the capture command.
const (
	uiWindow = "window"
	uiFyne   = "fyne"
)

// interactive is a preview the user drives from the keyboard.
type interactive interface {
	capture.Surface
	Poll() preview.Action
	Review(img gocv.Mat) preview.Action
	IsOpen() bool
}

type captureOptions struct {
	headless bool
	manual   bool
	ui       string
}

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var (
		device int
		co     captureOptions
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a document from a live camera",
		Long: `Opens the camera and shows a live preview with a guide frame. Hold the
page inside the guide until it captures automatically, or press space to
capture now. On the review screen press enter to keep the capture or r to
retake. Press q or escape to quit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.loadProfile()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				p.Camera.Devices = []camera.Device{{ID: device, Facing: camera.FacingAny}}
			}
			return runCapture(cmd.Context(), p, co, opts.noColor)
		},
	}

	cmd.Flags().IntVarP(&device, "device", "d", 0, "camera device index")
	cmd.Flags().BoolVar(&co.headless, "headless", false, "no preview window; show progress in the terminal and confirm automatically")
	cmd.Flags().BoolVar(&co.manual, "manual", false, "capture the first frame immediately (headless only)")
	cmd.Flags().StringVar(&co.ui, "ui", uiWindow, "preview front end: window (OpenCV) or fyne")
	return cmd
}

func runCapture(ctx context.Context, p *config.Profile, co captureOptions, noColor bool) error {
	pipe := p.Pipeline()
	release, err := enableProbe(p, pipe)
	if err != nil {
		return err
	}
	defer release()

	dst, err := buildSink(p)
	if err != nil {
		return err
	}

	newSession := func(surface capture.Surface) *capture.Session {
		return capture.NewSession(p.Capture, camera.NewDeviceAcquirer(p.Camera.Devices...), pipe,
			capture.WithSurface(surface), capture.WithSink(dst))
	}

	if co.headless {
		terminal := preview.NewTerminalSurface(os.Stderr)
		sess := newSession(terminal)
		defer sess.Cleanup()
		return captureLoop(ctx, sess, p, nil, terminal, co.manual, noColor)
	}

	switch co.ui {
	case uiWindow, "":
		window := preview.NewWindowSurface("docscan")
		defer window.Close()
		sess := newSession(window)
		defer sess.Cleanup()
		return captureLoop(ctx, sess, p, window, nil, false, noColor)

	case uiFyne:
		// fyne owns the main goroutine; the session loop runs beside it
		surface := preview.NewFyneSurface(fyneapp.NewWithID("docscan"), "docscan")
		sess := newSession(surface)
		defer sess.Cleanup()

		loopCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		errCh := make(chan error, 1)
		go func() {
			errCh <- captureLoop(loopCtx, sess, p, surface, nil, false, noColor)
			surface.Close()
		}()
		surface.ShowAndRun()

		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil

	default:
		return fmt.Errorf("unknown preview %q (want %s or %s)", co.ui, uiWindow, uiFyne)
	}
}

// captureLoop starts the session and ticks it until a capture is confirmed
// or the user quits. ui is nil in headless mode, where captures are kept
// automatically.
func captureLoop(ctx context.Context, sess *capture.Session, p *config.Profile, ui interactive,
	terminal *preview.TerminalSurface, manual, noColor bool) error {
	log := logger.For("main")
	sess.On(capture.EventPhaseChanged, func(data interface{}) {
		log.WithField("phase", data).Debug("session phase")
	})

	if err := sess.Start(ctx); err != nil {
		return err
	}
	if ui == nil && manual {
		if err := sess.CaptureManual(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(p.Capture.FrameInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := sess.Tick(now); err != nil {
				return err
			}
		}

		if sess.Phase() == capture.PhaseCaptured {
			res := sess.Result()
			preview.PrintReport(os.Stdout, res.Report, res.Orientation, noColor)

			action := preview.ActionConfirm
			if ui != nil {
				action = ui.Review(res.Image)
			} else if terminal != nil {
				terminal.Finish()
			}

			switch action {
			case preview.ActionQuit:
				return nil
			case preview.ActionRetake:
				if err := sess.Retake(); err != nil {
					return err
				}
				continue
			}

			art, location, err := sess.Confirm(ctx)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("✓ saved %s to %s\n", art.Name, location)
			return nil
		}

		if ui != nil {
			if !ui.IsOpen() {
				return nil
			}
			switch ui.Poll() {
			case preview.ActionCapture, preview.ActionConfirm:
				if err := sess.CaptureManual(); err != nil {
					log.WithError(err).Debug("manual capture ignored")
				}
			case preview.ActionQuit:
				return nil
			}
		}
	}
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "scan <image>...",
		Short: "Flatten, score and orient document photos or scans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.loadProfile()
			if err != nil {
				return err
			}
			pipe := p.Pipeline()
			release, err := enableProbe(p, pipe)
			if err != nil {
				return err
			}
			defer release()

			dst, err := buildSink(p)
			if err != nil {
				return err
			}

			var window *preview.WindowSurface
			if show {
				window = preview.NewWindowSurface("docscan")
				defer window.Close()
			}

			for _, path := range args {
				if err := scanFile(cmd.Context(), path, p, pipe, dst, window, opts.noColor); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "display each result until a key is pressed")
	return cmd
}

func scanFile(ctx context.Context, path string, p *config.Profile, pipe *capture.Pipeline, dst sink.Sink, window *preview.WindowSurface, noColor bool) error {
	src, err := camera.LoadStill(path)
	if err != nil {
		return err
	}
	defer src.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	if err := src.Read(&frame); err != nil {
		return err
	}

	res, err := pipe.Process(frame)
	if err != nil {
		return err
	}
	defer res.Close()
	res.CapturedAt = time.Now()

	data, err := imageio.EncodeJPEG(res.Image, p.Capture.JPEGQuality)
	if err != nil {
		return err
	}

	art := sink.Artifact{
		Name:        fmt.Sprintf("document-%s.jpg", uuid.NewString()),
		ContentType: "image/jpeg",
		Image:       data,
		Report:      res.Report,
		Orientation: res.Orientation,
		SessionID:   uuid.NewString(),
		CapturedAt:  res.CapturedAt,
		Source:      res.Source,
	}
	location, err := dst.Store(ctx, art)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", path)
	preview.PrintReport(os.Stdout, res.Report, res.Orientation, noColor)
	color.New(color.FgGreen).Printf("✓ saved %s\n", location)

	if window != nil {
		window.Show(res.Image)
	}
	return nil
}

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List built-in capture profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range config.Names() {
				p, _ := config.Builtin(name)
				fmt.Fprintf(out, "%-8s min area %.0f%%  aspect %.2f-%.2f  delay %s\n",
					name, p.Detect.MinAreaRatio*100, p.Detect.MinAspectRatio, p.Detect.MaxAspectRatio,
					p.Capture.AutoCaptureDelay)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a profile as YAML, ready to edit and pass with --config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := config.Builtin(args[0])
			if !ok {
				return fmt.Errorf("unknown profile %q", args[0])
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(p)
		},
	})
	return cmd
}
