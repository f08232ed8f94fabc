package facebluring

import (
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// FormatFromName picks the output format from a file name's extension.
// A name without an extension is encoded as JPEG.
func FormatFromName(name string) (imaging.Format, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return imaging.JPEG, nil
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return 0, fmt.Errorf("unsupported image format %q: %w", ext, err)
	}
	return format, nil
}

// ContentType returns the MIME type for format.
func ContentType(format imaging.Format) string {
	switch format {
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	default:
		return "image/jpeg"
	}
}

// Extension returns the canonical file extension for format, with the dot.
func Extension(format imaging.Format) string {
	switch format {
	case imaging.PNG:
		return ".png"
	case imaging.GIF:
		return ".gif"
	case imaging.TIFF:
		return ".tiff"
	case imaging.BMP:
		return ".bmp"
	default:
		return ".jpg"
	}
}

// Encode writes img to w. quality only applies to JPEG.
func Encode(w io.Writer, img image.Image, format imaging.Format, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 100
	}
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}
