package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"screen-capture-ocr/src/capture"
	"screen-capture-ocr/src/delivery"
	"screen-capture-ocr/src/frame"
	"screen-capture-ocr/src/imagefile"
)

// CapturePipeline grabs one frame, converts it and writes it to OutputPath.
type CapturePipeline struct {
	Open       capture.Opener
	Policy     capture.Policy
	OutputPath string
	Format     imagefile.Format
	// Unique appends a timestamp to OutputPath so concurrent or repeated
	// invocations never overwrite each other.
	Unique bool
	// Deadline bounds the whole acquisition; zero means Policy alone bounds it.
	Deadline time.Duration
	Now      func() time.Time
}

func (p *CapturePipeline) Name() string { return string(Capture) }

func (p *CapturePipeline) Run(ctx context.Context, _ *delivery.Router) (Result, error) {
	open := p.Open
	if open == nil {
		open = func() (capture.Device, error) { return capture.Open(capture.DefaultBackend) }
	}
	dev, err := open()
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin capture: %w", err)
	}
	defer dev.Close()

	if p.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Deadline)
		defer cancel()
	}

	buf, err := capture.Acquire(ctx, dev, p.Policy)
	if err != nil {
		return Result{}, fmt.Errorf("failed to capture frame: %w", err)
	}
	log.Printf("Captured %dx%d frame (%s, stride %d). Saving...", buf.Width, buf.Height, buf.Order, buf.Stride)

	img, err := frame.Convert(buf)
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert frame: %w", err)
	}

	path := p.outputPath()
	format := p.Format
	if format == "" {
		format = imagefile.FormatFromPath(path)
	}
	if err := imagefile.Write(img, path, format); err != nil {
		return Result{}, err
	}
	log.Printf("Image saved to %s", path)
	return Result{Path: path}, nil
}

func (p *CapturePipeline) outputPath() string {
	path := p.OutputPath
	if path == "" {
		path = imagefile.DefaultPath
	}
	if !p.Unique {
		return path
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ext := filepath.Ext(path)
	stamp := now().Format("20060102-150405.000")
	return strings.TrimSuffix(path, ext) + "-" + stamp + ext
}
