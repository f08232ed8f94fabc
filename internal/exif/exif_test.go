package exif

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// pair is a 2x1 image: red on the left, blue on the right.
func pair() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, red)
	img.SetNRGBA(1, 0, blue)
	return img
}

func TestOrientationWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, pair()))

	assert.Equal(t, 1, Orientation(buf.Bytes()))
	assert.Equal(t, 1, Orientation(nil))
	assert.Equal(t, 1, Orientation([]byte("not an image")))
}

func TestApply(t *testing.T) {
	tests := []struct {
		orientation int
		size        image.Point
		first       color.NRGBA
	}{
		{1, image.Pt(2, 1), red},
		{2, image.Pt(2, 1), blue},
		{3, image.Pt(2, 1), blue},
		{4, image.Pt(2, 1), red},
		{5, image.Pt(1, 2), red},
		{6, image.Pt(1, 2), red},
		{7, image.Pt(1, 2), blue},
		{8, image.Pt(1, 2), blue},
		{0, image.Pt(2, 1), red},
		{9, image.Pt(2, 1), red},
	}

	for _, tt := range tests {
		out := Apply(pair(), tt.orientation)
		assert.Equal(t, tt.size, out.Bounds().Size(), "orientation %d", tt.orientation)
		assert.Equal(t, tt.first, out.NRGBAAt(0, 0), "orientation %d", tt.orientation)
	}
}

// withOrientation prefixes a JPEG with an APP1 segment holding a single
// big-endian IFD0 entry for the orientation tag.
func withOrientation(t *testing.T, img image.Image, orientation byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	encoded := buf.Bytes()

	tiff := []byte{
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	size := len(payload) + 2

	out := []byte{0xff, 0xd8, 0xff, 0xe1, byte(size >> 8), byte(size)}
	out = append(out, payload...)
	return append(out, encoded[2:]...)
}

func TestOrientationFromJPEG(t *testing.T) {
	for _, o := range []byte{3, 6, 8} {
		data := withOrientation(t, pair(), o)
		assert.Equal(t, int(o), Orientation(data))

		_, err := jpeg.Decode(bytes.NewReader(data))
		assert.NoError(t, err)
	}
}
