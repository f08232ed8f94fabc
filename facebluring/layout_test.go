package facebluring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAspectFit(t *testing.T) {
	tests := []struct {
		name  string
		img   Size
		view  Size
		scale float64
		frame Frame
	}{
		{"same aspect", Size{200, 100}, Size{400, 200}, 2, Frame{0, 0, 400, 200}},
		{"pillarbox", Size{100, 100}, Size{300, 200}, 2, Frame{50, 0, 200, 200}},
		{"letterbox", Size{400, 200}, Size{200, 200}, 0.5, Frame{0, 50, 200, 100}},
		{"degenerate image", Size{0, 100}, Size{200, 200}, 0, Frame{}},
		{"degenerate view", Size{100, 100}, Size{0, 0}, 0, Frame{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := AspectFit(tt.img, tt.view)
			assert.InDelta(t, tt.scale, l.Scale, 1e-12)
			assert.InDelta(t, tt.frame.X, l.Frame.X, 1e-9)
			assert.InDelta(t, tt.frame.Y, l.Frame.Y, 1e-9)
			assert.InDelta(t, tt.frame.W, l.Frame.W, 1e-9)
			assert.InDelta(t, tt.frame.H, l.Frame.H, 1e-9)
		})
	}
}

func TestProjectAndUnproject(t *testing.T) {
	l := AspectFit(Size{100, 100}, Size{300, 200})
	f := l.Project(Rect{X: 0.25, Y: 0.5, W: 0.5, H: 0.25})

	assert.InDelta(t, 100, f.X, 1e-9)
	assert.InDelta(t, 100, f.Y, 1e-9)
	assert.InDelta(t, 100, f.W, 1e-9)
	assert.InDelta(t, 50, f.H, 1e-9)

	x, y, ok := l.Unproject(Point{X: 150, Y: 50})
	assert.True(t, ok)
	assert.InDelta(t, 0.5, x, 1e-9)
	assert.InDelta(t, 0.25, y, 1e-9)

	_, _, ok = l.Unproject(Point{X: 10, Y: 50})
	assert.False(t, ok, "point in the letterbox")
}

func TestHitTest(t *testing.T) {
	faces := []Face{
		{Box: Rect{X: 0, Y: 0, W: 0.5, H: 0.5}},
		{Box: Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}},
		{Box: Rect{X: 0.8, Y: 0.8, W: 0.1, H: 0.1}},
	}
	l := AspectFit(Size{100, 100}, Size{100, 100})

	assert.Equal(t, 0, HitTest(faces, l, Point{10, 10}))
	assert.Equal(t, 1, HitTest(faces, l, Point{40, 40}), "topmost face wins on overlap")
	assert.Equal(t, 2, HitTest(faces, l, Point{85, 85}))
	assert.Equal(t, -1, HitTest(faces, l, Point{95, 5}))
	assert.Equal(t, -1, HitTest(nil, l, Point{10, 10}))
}
