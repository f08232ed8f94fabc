package facebluring

import "math"

// Size is a width and height in arbitrary units (pixels or view points).
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Point is a location in view space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is a rectangle in view space.
type Frame struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Contains reports whether p lies inside the frame.
func (f Frame) Contains(p Point) bool {
	return p.X >= f.X && p.X < f.X+f.W && p.Y >= f.Y && p.Y < f.Y+f.H
}

// Layout describes where an aspect-fitted image sits inside a view.
type Layout struct {
	Scale float64
	Frame Frame
}

// AspectFit scales an image of size img to fit inside view without
// distortion and centers it. A degenerate image or view yields a zero Layout.
func AspectFit(img, view Size) Layout {
	if img.W <= 0 || img.H <= 0 || view.W <= 0 || view.H <= 0 {
		return Layout{}
	}

	scale := math.Min(view.W/img.W, view.H/img.H)
	w, h := img.W*scale, img.H*scale
	return Layout{
		Scale: scale,
		Frame: Frame{
			X: (view.W - w) / 2,
			Y: (view.H - h) / 2,
			W: w,
			H: h,
		},
	}
}

// Project maps a normalized face box into view space.
func (l Layout) Project(r Rect) Frame {
	return Frame{
		X: r.X*l.Frame.W + l.Frame.X,
		Y: r.Y*l.Frame.H + l.Frame.Y,
		W: r.W * l.Frame.W,
		H: r.H * l.Frame.H,
	}
}

// Unproject maps a view point to normalized image coordinates. ok is false
// when the point falls in the letterbox around the image.
func (l Layout) Unproject(p Point) (x, y float64, ok bool) {
	if l.Frame.W <= 0 || l.Frame.H <= 0 || !l.Frame.Contains(p) {
		return 0, 0, false
	}
	return (p.X - l.Frame.X) / l.Frame.W, (p.Y - l.Frame.Y) / l.Frame.H, true
}

// HitTest returns the index of the face under p, or -1. Faces later in the
// slice are drawn on top, so they win when boxes overlap.
func HitTest(faces []Face, l Layout, p Point) int {
	for i := len(faces) - 1; i >= 0; i-- {
		if l.Project(faces[i].Box).Contains(p) {
			return i
		}
	}
	return -1
}
