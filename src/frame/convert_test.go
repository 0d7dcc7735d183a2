package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestConvertOutputLength(t *testing.T) {
	for _, w := range []int{1, 2, 3, 7, 16} {
		for _, h := range []int{1, 2, 5} {
			for _, pad := range []int{0, 4, 12, 3} {
				stride := 4*w + pad
				buf := Buffer{Pix: make([]byte, stride*h), Stride: stride, Width: w, Height: h, Order: BGRA}
				img, err := Convert(buf)
				if err != nil {
					t.Fatalf("Convert(%dx%d stride=%d) failed: %v", w, h, stride, err)
				}
				if len(img.Pix) != 4*w*h {
					t.Errorf("Convert(%dx%d stride=%d): len=%d, want %d", w, h, stride, len(img.Pix), 4*w*h)
				}
			}
		}
	}
}

func TestConvertABGRForcesOpaqueAlpha(t *testing.T) {
	buf := Buffer{Pix: []byte{10, 20, 30, 40}, Stride: 4, Width: 1, Height: 1, Order: ABGR}
	img, err := Convert(buf)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	want := []byte{40, 30, 20, 255}
	if !bytes.Equal(img.Pix, want) {
		t.Errorf("Expected %v, got %v", want, img.Pix)
	}
}

func TestConvertChannelOrders(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	tests := []struct {
		order ChannelOrder
		want  []byte
	}{
		{BGRA, []byte{3, 2, 1, 255}},
		{ABGR, []byte{4, 3, 2, 255}},
		{ARGB, []byte{2, 3, 4, 255}},
		{RGBA, []byte{1, 2, 3, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.order.String(), func(t *testing.T) {
			img, err := Convert(Buffer{Pix: src, Stride: 4, Width: 1, Height: 1, Order: tt.order})
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if !bytes.Equal(img.Pix, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, img.Pix)
			}
		})
	}
}

func TestConvertIgnoresRowPadding(t *testing.T) {
	const w, h, stride = 2, 3, 12
	pix := make([]byte, stride*h)
	for i := range pix {
		pix[i] = byte(i)
	}
	first, err := Convert(Buffer{Pix: pix, Stride: stride, Width: w, Height: h, Order: BGRA})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	padded := append([]byte(nil), pix...)
	for y := 0; y < h; y++ {
		for i := 4 * w; i < stride; i++ {
			padded[stride*y+i] = 0xEE
		}
	}
	second, err := Convert(Buffer{Pix: padded, Stride: stride, Width: w, Height: h, Order: BGRA})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Errorf("padding bytes leaked into output:\n%v\n%v", first.Pix, second.Pix)
	}
	for i := 0; i < len(second.Pix); i += 4 {
		if second.Pix[i] == 0xEE || second.Pix[i+1] == 0xEE || second.Pix[i+2] == 0xEE {
			t.Fatalf("pixel %d carries a padding byte: %v", i/4, second.Pix[i:i+4])
		}
	}
}

func TestConvertKeepsRowOrder(t *testing.T) {
	pix := []byte{
		1, 1, 1, 0,
		9, 9, 9, 0,
	}
	img, err := Convert(Buffer{Pix: pix, Stride: 4, Width: 1, Height: 2, Order: BGRA})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if img.Pix[0] != 1 || img.Pix[4] != 9 {
		t.Errorf("rows flipped: %v", img.Pix)
	}
}

func TestConvertTwoByTwoFrame(t *testing.T) {
	pix := []byte{10, 20, 30, 0, 10, 20, 30, 0, 10, 20, 30, 0, 10, 20, 30, 0}
	img, err := Convert(Buffer{Pix: pix, Stride: 8, Width: 2, Height: 2, Order: BGRA})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	want := bytes.Repeat([]byte{30, 20, 10, 255}, 4)
	if !bytes.Equal(img.Pix, want) {
		t.Errorf("Expected %v, got %v", want, img.Pix)
	}
	rgba := img.RGBA()
	if rgba.Bounds().Dx() != 2 || rgba.Bounds().Dy() != 2 {
		t.Errorf("unexpected bounds %v", rgba.Bounds())
	}
}

func TestConvertRejectsInvalidBuffers(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
	}{
		{"zero width", Buffer{Pix: make([]byte, 16), Stride: 4, Width: 0, Height: 1}},
		{"short stride", Buffer{Pix: make([]byte, 16), Stride: 4, Width: 2, Height: 2}},
		{"short pixels", Buffer{Pix: make([]byte, 10), Stride: 8, Width: 2, Height: 2}},
		{"unknown order", Buffer{Pix: make([]byte, 4), Stride: 4, Width: 1, Height: 1, Order: ChannelOrder(42)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.buf)
			if !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("Expected ErrInvalidBuffer, got %v", err)
			}
		})
	}
}

func TestConvertAcceptsUnpaddedLastRow(t *testing.T) {
	// The final row may end right after its last pixel.
	buf := Buffer{Pix: make([]byte, 12+8), Stride: 12, Width: 2, Height: 2, Order: BGRA}
	if _, err := Convert(buf); err != nil {
		t.Errorf("Convert failed: %v", err)
	}
}
