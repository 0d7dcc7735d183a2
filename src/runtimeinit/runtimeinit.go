// Package runtimeinit wires configuration into a ready-to-run pipeline.
package runtimeinit

import (
	"fmt"
	"log"
	"time"

	"screen-capture-ocr/src/capture"
	"screen-capture-ocr/src/clipboard"
	"screen-capture-ocr/src/config"
	"screen-capture-ocr/src/cpuvendor"
	"screen-capture-ocr/src/delivery"
	"screen-capture-ocr/src/imagefile"
	"screen-capture-ocr/src/logutil"
	"screen-capture-ocr/src/notification"
	"screen-capture-ocr/src/ocr"
	"screen-capture-ocr/src/pipeline"
)

type Options struct {
	LoadOptions config.LoadOptions
	// SetupLogging is called with the loaded config before anything logs.
	SetupLogging func(*config.Config)
	// Vendor replaces CPU detection; nil detects lazily on first OCR run.
	Vendor *cpuvendor.Cache
	// Sink replaces the clipboard as the host text target.
	Sink delivery.TextSink
	// Focus replaces the host window activation.
	Focus delivery.Focuser
	// GOOS overrides the platform probe.
	GOOS string
}

// Runtime is everything an entry point needs for capture_or_recognize.
type Runtime struct {
	Config   *config.Config
	Pipeline pipeline.Pipeline
	Router   *delivery.Router
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg)
	} else {
		logutil.Setup(logutil.Options{EnableFileLogging: cfg.EnableFileLogging})
	}

	kind, err := pipeline.ParseKind(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	format := imagefile.Format("")
	if cfg.OutputFormat != "" {
		if format, err = imagefile.ParseFormat(cfg.OutputFormat); err != nil {
			return nil, err
		}
	}

	vendor := opts.Vendor
	if vendor == nil {
		if cfg.CPUVendor != "" {
			vendor = cpuvendor.Fixed(cpuvendor.Parse(cfg.CPUVendor))
		} else {
			vendor = cpuvendor.NewCache(cpuvendor.Detect)
		}
	}

	sink := opts.Sink
	if sink == nil {
		sink = clipboard.Sink{}
	}
	focus := opts.Focus
	if focus == nil {
		focus = notification.Focuser{AppName: cfg.HostAppName}
	}
	router := &delivery.Router{Sink: sink, Focus: focus}

	backend := cfg.CaptureBackend
	capturePipeline := &pipeline.CapturePipeline{
		Open: func() (capture.Device, error) { return capture.Open(backend) },
		Policy: capture.Policy{
			Interval:    time.Duration(cfg.CaptureIntervalMs) * time.Millisecond,
			MaxAttempts: cfg.CaptureMaxAttempts,
		},
		OutputPath: cfg.OutputPath,
		Format:     format,
		Unique:     cfg.OutputUnique,
		Deadline:   time.Duration(cfg.CaptureDeadlineSec) * time.Second,
	}
	recognizePipeline := &pipeline.RecognizePipeline{
		OCR: &ocr.Dispatcher{
			Vendor:   vendor,
			Resolver: ocr.DirResolver{Base: cfg.OCRResourceDir},
			Language: cfg.OCRLanguage,
			Timeout:  time.Duration(cfg.OCRDeadlineSec) * time.Second,
		},
		Router: router,
	}

	var p pipeline.Pipeline
	if opts.GOOS != "" {
		p, err = pipeline.Select(kind, opts.GOOS, capturePipeline, recognizePipeline)
	} else {
		p, err = pipeline.SelectForHost(kind, capturePipeline, recognizePipeline)
	}
	if err != nil {
		return nil, err
	}
	output := capturePipeline.OutputPath
	if capturePipeline.Unique {
		output += " (unique per run)"
	}
	log.Printf("runtimeinit: pipeline=%s output=%s backend=%s", p.Name(), output, backend)

	return &Runtime{Config: cfg, Pipeline: p, Router: router}, nil
}
