package facebluring

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAndPixelsRoundTrip(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)
	tests := []image.Rectangle{
		image.Rect(0, 0, 640, 480),
		image.Rect(10, 20, 110, 120),
		image.Rect(30, 30, 60, 60),
		image.Rect(639, 479, 640, 480),
	}

	for _, px := range tests {
		t.Run(px.String(), func(t *testing.T) {
			box := Normalize(px, bounds)
			assert.Equal(t, px, box.Pixels(bounds))
		})
	}
}

func TestNormalizeClipsToBounds(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	box := Normalize(image.Rect(-20, -20, 20, 20), bounds)
	assert.InDelta(t, 0, box.X, 1e-12)
	assert.InDelta(t, 0, box.Y, 1e-12)
	assert.InDelta(t, 0.2, box.W, 1e-12)
	assert.InDelta(t, 0.2, box.H, 1e-12)

	assert.True(t, Normalize(image.Rect(200, 200, 300, 300), bounds).Empty())
	assert.True(t, Normalize(image.Rect(0, 0, 10, 10), image.Rectangle{}).Empty())
}

func TestPixelsNonZeroOrigin(t *testing.T) {
	bounds := image.Rect(100, 50, 300, 150)
	box := Rect{X: 0.5, Y: 0.5, W: 0.25, H: 0.5}
	assert.Equal(t, image.Rect(200, 100, 250, 150), box.Pixels(bounds))
}

func TestPixelsRoundsOutward(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 10)
	box := Rect{X: 0.15, Y: 0.15, W: 0.1, H: 0.1}
	assert.Equal(t, image.Rect(1, 1, 3, 3), box.Pixels(bounds))
}

func TestPixelsOutsideImage(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 10)
	assert.True(t, Rect{X: 1.2, Y: 0, W: 0.5, H: 0.5}.Pixels(bounds).Empty())
	assert.True(t, Rect{}.Pixels(bounds).Empty())
}

func TestFromBottomLeft(t *testing.T) {
	box := FromBottomLeft(0.1, 0.2, 0.3, 0.4)
	assert.InDelta(t, 0.1, box.X, 1e-12)
	assert.InDelta(t, 0.4, box.Y, 1e-12)
	assert.InDelta(t, 0.3, box.W, 1e-12)
	assert.InDelta(t, 0.4, box.H, 1e-12)

	x, y, w, h := box.BottomLeft()
	assert.InDelta(t, 0.1, x, 1e-12)
	assert.InDelta(t, 0.2, y, 1e-12)
	assert.InDelta(t, 0.3, w, 1e-12)
	assert.InDelta(t, 0.4, h, 1e-12)
}

func TestClamp(t *testing.T) {
	box := Rect{X: -0.5, Y: 0.5, W: 1, H: 1}.Clamp()
	assert.Equal(t, Rect{X: 0, Y: 0.5, W: 0.5, H: 0.5}, box)
	assert.True(t, Rect{X: 2, Y: 2, W: 1, H: 1}.Clamp().Empty())
}

func TestSetAllAndFlagged(t *testing.T) {
	faces := make([]Face, 3)
	assert.Equal(t, 0, Flagged(faces))

	SetAll(faces, true)
	assert.Equal(t, 3, Flagged(faces))

	faces[1].Blur = false
	assert.Equal(t, 2, Flagged(faces))
}

func TestSortFaces(t *testing.T) {
	faces := []Face{
		{Box: Rect{X: 0.6, Y: 0.5, W: 0.1, H: 0.1}},
		{Box: Rect{X: 0.2, Y: 0.5, W: 0.1, H: 0.1}},
		{Box: Rect{X: 0.9, Y: 0.1, W: 0.1, H: 0.1}},
	}
	SortFaces(faces)
	assert.Equal(t, 0.9, faces[0].Box.X)
	assert.Equal(t, 0.2, faces[1].Box.X)
	assert.Equal(t, 0.6, faces[2].Box.X)
}
