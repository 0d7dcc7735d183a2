// Package pipeline implements capture_or_recognize: either capture the
// primary display to an image file, or run the bundled OCR binary and route
// its text to the host.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"screen-capture-ocr/src/delivery"
)

// Kind selects a pipeline.
type Kind string

const (
	Auto      Kind = "auto"
	Capture   Kind = "capture"
	Recognize Kind = "ocr"
)

// ParseKind accepts auto, capture, ocr/recognize. Empty means Auto.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "capture", "screenshot":
		return Capture, nil
	case "ocr", "recognize":
		return Recognize, nil
	default:
		return "", fmt.Errorf("unknown pipeline %q (want auto, capture or ocr)", s)
	}
}

// Probe picks the pipeline a platform supports: macOS delegates to the
// bundled OCR binary, every other platform captures directly.
func Probe(goos string) Kind {
	if goos == "darwin" {
		return Recognize
	}
	return Capture
}

// Result is the outcome of one invocation. Path is set by the capture
// pipeline, Text by the OCR pipeline.
type Result struct {
	Path string
	Text string
}

// Pipeline is one implementation of capture_or_recognize.
type Pipeline interface {
	Name() string
	// Run performs one invocation. router receives recognized text; the
	// capture pipeline ignores it.
	Run(ctx context.Context, router *delivery.Router) (Result, error)
}

// Select resolves kind for goos and returns the matching pipeline.
func Select(kind Kind, goos string, capture, recognize Pipeline) (Pipeline, error) {
	if kind == Auto || kind == "" {
		kind = Probe(goos)
	}
	var p Pipeline
	switch kind {
	case Capture:
		p = capture
	case Recognize:
		p = recognize
	default:
		return nil, fmt.Errorf("unknown pipeline %q", kind)
	}
	if p == nil {
		return nil, fmt.Errorf("pipeline %q is not configured", kind)
	}
	return p, nil
}

// SelectForHost is Select for the running platform.
func SelectForHost(kind Kind, capture, recognize Pipeline) (Pipeline, error) {
	return Select(kind, runtime.GOOS, capture, recognize)
}

// CaptureOrRecognize runs p once and logs the outcome.
func CaptureOrRecognize(ctx context.Context, p Pipeline, router *delivery.Router) (Result, error) {
	start := time.Now()
	res, err := p.Run(ctx, router)
	if err != nil {
		log.Printf("pipeline %s failed after %v: %v", p.Name(), time.Since(start), err)
		return Result{}, err
	}
	log.Printf("pipeline %s completed in %v", p.Name(), time.Since(start))
	return res, nil
}
