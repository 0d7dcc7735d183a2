// Package frame holds the raw capture buffer and the converted RGBA image
// produced from it.
package frame

import (
	"errors"
	"fmt"
	"image"
)

// ChannelOrder names the byte layout of one 4-byte source pixel.
type ChannelOrder int

const (
	// BGRA is what raw desktop duplication / X11 capturers hand out.
	BGRA ChannelOrder = iota
	ABGR
	ARGB
	// RGBA is the layout of image.RGBA, used by the kbinani/screenshot device.
	RGBA
)

func (o ChannelOrder) String() string {
	switch o {
	case BGRA:
		return "BGRA"
	case ABGR:
		return "ABGR"
	case ARGB:
		return "ARGB"
	case RGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("ChannelOrder(%d)", int(o))
	}
}

var ErrInvalidBuffer = errors.New("invalid frame buffer")

// Buffer is one captured frame in the device's native channel order.
// Pix is owned by the device and is only valid until the next Frame call.
type Buffer struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
	Order  ChannelOrder
}

// Validate checks that every pixel of the frame addressable through Stride
// lies inside Pix.
func (b Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBuffer, b.Width, b.Height)
	}
	if b.Stride < 4*b.Width {
		return fmt.Errorf("%w: stride %d < %d", ErrInvalidBuffer, b.Stride, 4*b.Width)
	}
	if need := b.Stride*(b.Height-1) + 4*b.Width; len(b.Pix) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrInvalidBuffer, len(b.Pix), need)
	}
	if _, ok := channelOffsets[b.Order]; !ok {
		return fmt.Errorf("%w: unknown channel order %v", ErrInvalidBuffer, b.Order)
	}
	return nil
}

// Image is a tightly packed RGBA image with opaque alpha.
// len(Pix) == 4*Width*Height.
type Image struct {
	Pix    []byte
	Width  int
	Height int
}

// RGBA wraps the image as *image.RGBA without copying.
func (m *Image) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    m.Pix,
		Stride: 4 * m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

// Len is the byte length a packed image of the given size must have.
func Len(width, height int) int { return 4 * width * height }
