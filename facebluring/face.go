package facebluring

import (
	"image"
	"math"
)

// eps absorbs float noise so that a box normalized from whole pixels maps
// back onto the same pixels.
const eps = 1e-9

// Rect is a box in normalized image coordinates: X and Y locate the
// top-left corner, all values are fractions of the image width or height.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Face is a detected face and whether it should be obscured.
type Face struct {
	Box     Rect    `json:"box"`
	Blur    bool    `json:"blur"`
	Quality float32 `json:"quality"`
}

// Empty reports whether the box covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Contains reports whether the normalized point lies inside the box.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Clamp clips the box to the unit square.
func (r Rect) Clamp() Rect {
	x0 := clamp01(r.X)
	y0 := clamp01(r.Y)
	x1 := clamp01(r.X + r.W)
	y1 := clamp01(r.Y + r.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// FromBottomLeft converts a normalized box whose origin is the bottom-left
// corner of the image, as many vision APIs report it.
func FromBottomLeft(x, y, w, h float64) Rect {
	return Rect{X: x, Y: 1 - y - h, W: w, H: h}.Clamp()
}

// BottomLeft returns the box with its origin moved to the bottom-left corner.
func (r Rect) BottomLeft() (x, y, w, h float64) {
	return r.X, 1 - r.Y - r.H, r.W, r.H
}

// Normalize maps a pixel rectangle inside bounds to normalized coordinates.
// Parts of p outside bounds are dropped.
func Normalize(p, bounds image.Rectangle) Rect {
	if bounds.Empty() {
		return Rect{}
	}
	p = p.Intersect(bounds)
	if p.Empty() {
		return Rect{}
	}

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	return Rect{
		X: float64(p.Min.X-bounds.Min.X) / w,
		Y: float64(p.Min.Y-bounds.Min.Y) / h,
		W: float64(p.Dx()) / w,
		H: float64(p.Dy()) / h,
	}
}

// Pixels maps the box onto bounds, rounding outward so partially covered
// pixels are included. The result is clipped to bounds.
func (r Rect) Pixels(bounds image.Rectangle) image.Rectangle {
	if r.Empty() || bounds.Empty() {
		return image.Rectangle{}
	}

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	x0 := int(math.Floor(r.X*w+eps)) + bounds.Min.X
	y0 := int(math.Floor(r.Y*h+eps)) + bounds.Min.Y
	x1 := int(math.Ceil((r.X+r.W)*w-eps)) + bounds.Min.X
	y1 := int(math.Ceil((r.Y+r.H)*h-eps)) + bounds.Min.Y

	return image.Rect(x0, y0, x1, y1).Intersect(bounds)
}

// SetAll sets the blur flag of every face.
func SetAll(faces []Face, blur bool) {
	for i := range faces {
		faces[i].Blur = blur
	}
}

// Flagged counts the faces marked for obscuring.
func Flagged(faces []Face) int {
	n := 0
	for _, face := range faces {
		if face.Blur {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
