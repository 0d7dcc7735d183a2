// Package imagefile encodes converted frames and writes them to disk
// atomically.
package imagefile

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"screen-capture-ocr/src/frame"
)

// Format is an output raster format.
type Format string

const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// DefaultPath is the well-known output file.
const DefaultPath = "screenshot.png"

var ErrImageSize = errors.New("pixel data does not match image dimensions")

// ParseFormat accepts png, bmp, tiff/tif (case-insensitive). Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tiff", "tif":
		return TIFF, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// FormatFromPath picks the format from the file extension, defaulting to PNG.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return PNG
	}
	return f
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img *frame.Image, format Format) error {
	if len(img.Pix) != frame.Len(img.Width, img.Height) {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrImageSize, len(img.Pix), img.Width, img.Height)
	}
	rgba := img.RGBA()
	switch format {
	case PNG, "":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		return enc.Encode(w, rgba)
	case BMP:
		return bmp.Encode(w, rgba)
	case TIFF:
		return tiff.Encode(w, rgba, &tiff.Options{Compression: tiff.Uncompressed})
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}

// WritePNG writes img to path as PNG.
func WritePNG(img *frame.Image, path string) error {
	return Write(img, path, PNG)
}

// Write encodes img into a temporary file next to path and renames it into
// place. On failure the temporary file is removed and path is untouched.
func Write(img *frame.Image, path string, format Format) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = Encode(tmp, img, format); err != nil {
		return fmt.Errorf("failed to encode %s image: %w", format, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move image into %s: %w", path, err)
	}
	return nil
}
