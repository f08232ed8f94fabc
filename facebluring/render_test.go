package facebluring

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkerboard alternates black and white pixels so any averaging shows.
func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{A: 255}
			if (x+y)%2 == 0 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestRenderWithoutFlaggedFacesIsUnchanged(t *testing.T) {
	src := checkerboard(100, 100)
	r := NewRenderer(Config{})

	faces := []Face{{Box: Rect{X: 0.2, Y: 0.2, W: 0.4, H: 0.4}}}
	out := r.Render(src, faces)

	assert.Equal(t, src.Pix, out.Pix)
	assert.NotSame(t, src, out)
}

func TestRenderObscuresOnlyFlaggedFaces(t *testing.T) {
	for _, mode := range []Mode{ModePixelate, ModeBlur} {
		t.Run(string(mode), func(t *testing.T) {
			src := checkerboard(100, 100)
			r := NewRenderer(Config{Mode: mode})

			faces := []Face{
				{Box: Rect{X: 0.2, Y: 0.2, W: 0.3, H: 0.3}, Blur: true},
				{Box: Rect{X: 0.6, Y: 0.6, W: 0.3, H: 0.3}},
			}
			out := r.Render(src, faces)
			zone := faces[0].Box.Pixels(src.Bounds())
			require.Equal(t, image.Rect(20, 20, 50, 50), zone)

			changed := 0
			for y := 0; y < 100; y++ {
				for x := 0; x < 100; x++ {
					pt := image.Pt(x, y)
					if pt.In(zone) {
						if out.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
							changed++
						}
						continue
					}
					require.Equal(t, src.NRGBAAt(x, y), out.NRGBAAt(x, y), "pixel %v outside a flagged face changed", pt)
				}
			}
			assert.Greater(t, changed, zone.Dx()*zone.Dy()/4)
		})
	}
}

func TestRenderKeepsSourceIntact(t *testing.T) {
	src := checkerboard(40, 40)
	before := imaging.Clone(src)

	r := NewRenderer(Config{})
	r.Render(src, []Face{{Box: Rect{W: 1, H: 1}, Blur: true}})

	assert.Equal(t, before.Pix, src.Pix)
}

func TestPixelateProducesFlatBlocks(t *testing.T) {
	src := checkerboard(100, 100)
	r := NewRenderer(Config{PixelDivisions: 10})
	require.Equal(t, 10, r.BlockSize(src.Bounds()))

	out := r.Render(src, []Face{{Box: Rect{W: 1, H: 1}, Blur: true}})
	first := out.NRGBAAt(0, 0)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			assert.Equal(t, first, out.NRGBAAt(x, y))
		}
	}
}

func TestPixelateCellsFollowImageGrid(t *testing.T) {
	// 1010 wide with 20 divisions gives 50px cells and a 10px remainder.
	src := image.NewNRGBA(image.Rect(0, 0, 1010, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 1010; x++ {
			c := color.NRGBA{A: 255}
			if x >= 950 && (x < 1000 || x >= 1005) {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			src.SetNRGBA(x, y, c)
		}
	}

	r := NewRenderer(Config{})
	require.Equal(t, 50, r.BlockSize(src.Bounds()))
	out := r.Render(src, []Face{{Box: Rect{W: 1, H: 1}, Blur: true}})

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.NRGBA{A: 255}
	for _, x := range []int{950, 975, 999} {
		assert.Equal(t, white, out.NRGBAAt(x, 5), "x=%d", x)
	}
	for _, x := range []int{0, 925, 949} {
		assert.Equal(t, black, out.NRGBAAt(x, 5), "x=%d", x)
	}

	// The partial last cell averages its own ten pixels, half of them white.
	edge := out.NRGBAAt(1000, 0)
	assert.InDelta(t, 128, int(edge.R), 1)
	assert.Equal(t, edge, out.NRGBAAt(1009, 9))
}

func TestBlockSize(t *testing.T) {
	r := NewRenderer(Config{})
	assert.Equal(t, 32, r.BlockSize(image.Rect(0, 0, 640, 480)))
	assert.Equal(t, 32, r.BlockSize(image.Rect(0, 0, 480, 640)))
	assert.Equal(t, 1, r.BlockSize(image.Rect(0, 0, 10, 10)))
}

func TestOutline(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	r := NewRenderer(Config{})
	out := r.Outline(src, []Face{{Box: Rect{X: 0.2, Y: 0.2, W: 0.4, H: 0.4}}})

	red, g, b, _ := out.At(20, 40).RGBA()
	assert.Greater(t, red>>8, uint32(200))
	assert.Less(t, g>>8, uint32(60))
	assert.Less(t, b>>8, uint32(60))

	red, g, b, _ = out.At(40, 40).RGBA()
	assert.Equal(t, uint32(255), red>>8)
	assert.Equal(t, uint32(255), g>>8)
	assert.Equal(t, uint32(255), b>>8)
}
