package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"screen-capture-ocr/src/frame"
)

func init() {
	Register(DefaultBackend, openPrimaryDisplay)
}

// displayDevice captures display 0 through kbinani/screenshot.
type displayDevice struct {
	bounds image.Rectangle
	last   *image.RGBA
}

func openPrimaryDisplay() (Device, error) {
	bounds, err := PrimaryDisplayBounds()
	if err != nil {
		return nil, err
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: primary display has empty bounds", ErrNoDisplay)
	}
	return &displayDevice{bounds: bounds}, nil
}

// PrimaryDisplayBounds returns the bounds of display 0.
func PrimaryDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	return screenshot.GetDisplayBounds(0), nil
}

func (d *displayDevice) Width() int { return d.bounds.Dx() }
func (d *displayDevice) Height() int { return d.bounds.Dy() }

func (d *displayDevice) Frame() (frame.Buffer, error) {
	img, err := screenshot.CaptureRect(d.bounds)
	if err != nil {
		return frame.Buffer{}, err
	}
	d.last = img
	return rgbaBuffer(img), nil
}

func (d *displayDevice) Close() error {
	d.last = nil
	return nil
}

// rgbaBuffer exposes an image.RGBA as a frame buffer without copying.
func rgbaBuffer(img *image.RGBA) frame.Buffer {
	b := img.Bounds()
	return frame.Buffer{
		Pix:    img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
		Stride: img.Stride,
		Width:  b.Dx(),
		Height: b.Dy(),
		Order:  frame.RGBA,
	}
}
