package exif

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	goexif "github.com/rwcarlsen/goexif/exif"
)

// Orientation reads the EXIF orientation tag from an encoded image.
// Images without EXIF data, or with an invalid value, report 1 (upright).
func Orientation(data []byte) int {
	meta, err := goexif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}

	tag, err := meta.Get(goexif.Orientation)
	if err != nil {
		return 1
	}

	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// Apply returns img transformed so that it displays upright for the given
// EXIF orientation.
func Apply(img image.Image, orientation int) *image.NRGBA {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}
