// Package main provides the docscan command: live document capture from a
// camera, still-image scanning, and profile inspection.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docscan/internal/camera"
	"docscan/internal/capture"
	"docscan/internal/config"
	"docscan/internal/logger"
	"docscan/internal/ocr"
	"docscan/internal/sink"
	"docscan/internal/version"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	profile    string
	logLevel   string
	logFormat  string
	outDir     string
	ocr        bool
	noColor    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var acqErr *camera.AcquisitionError
		if errors.As(err, &acqErr) {
			color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", acqErr.UserMessage())
		} else {
			color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "docscan",
		Short:         "Capture flat, upright document images from a camera or photo",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file overlaying the profile")
	flags.StringVarP(&opts.profile, "profile", "p", "default", "built-in profile (default, receipt, strict)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	flags.StringVarP(&opts.outDir, "out", "o", "", "output directory for confirmed captures")
	flags.BoolVar(&opts.ocr, "ocr", false, "record a Tesseract readability score in the report")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newCaptureCmd(opts),
		newScanCmd(opts),
		newProfilesCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)
	return root
}

// loadProfile resolves the profile and applies flag overrides.
func (o *rootOptions) loadProfile() (*config.Profile, error) {
	p, err := config.Load(o.configPath, o.profile)
	if err != nil {
		return nil, err
	}
	if o.outDir != "" {
		p.Output.Dir = o.outDir
	}
	if o.ocr {
		p.Output.OCR = true
	}
	if o.logLevel != "" {
		p.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		p.Log.Format = o.logFormat
	}
	logger.Configure(p.Log.Level, p.Log.Format, nil)
	if o.noColor {
		color.NoColor = true
	}
	return p, nil
}

// buildSink prefers Azure when configured, otherwise the output directory.
func buildSink(p *config.Profile) (sink.Sink, error) {
	if p.Output.Azure.Enabled() {
		return sink.NewAzureBlobSink(p.Output.Azure)
	}
	return sink.NewFileSink(p.Output.Dir)
}

// enableProbe attaches the readability probe if requested. The returned
// function releases it.
func enableProbe(p *config.Profile, pipe *capture.Pipeline) (func(), error) {
	if !p.Output.OCR {
		return func() {}, nil
	}
	engine, err := ocr.NewEngine(p.Output.OCRLanguage)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	pipe.Prober = engine
	return func() { engine.Close() }, nil
}
