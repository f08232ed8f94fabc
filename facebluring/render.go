package facebluring

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Renderer composites obscured pixels over the faces flagged for blurring.
type Renderer struct {
	mode      Mode
	divisions int
	sigma     float64
}

// NewRenderer returns a renderer for the render half of cfg.
func NewRenderer(config Config) *Renderer {
	cfg := config.withDefaults()
	return &Renderer{
		mode:      cfg.Mode,
		divisions: cfg.PixelDivisions,
		sigma:     cfg.BlurSigma,
	}
}

// BlockSize is the pixelation cell size used for an image of the given
// bounds: the longer side divided into the configured number of cells.
func (r *Renderer) BlockSize(bounds image.Rectangle) int {
	longest := bounds.Dx()
	if bounds.Dy() > longest {
		longest = bounds.Dy()
	}
	block := longest / r.divisions
	if block < 1 {
		block = 1
	}
	return block
}

// Render returns a copy of img in which every flagged face is obscured.
// Pixels outside flagged faces are left untouched.
func (r *Renderer) Render(img image.Image, faces []Face) *image.NRGBA {
	dst := imaging.Clone(img)

	var zones []image.Rectangle
	for _, face := range faces {
		if !face.Blur {
			continue
		}
		zone := face.Box.Pixels(dst.Bounds())
		if zone.Empty() {
			continue
		}
		zones = append(zones, zone)
	}
	if len(zones) == 0 {
		return dst
	}

	obscured := r.obscure(dst)
	for _, zone := range zones {
		draw.Draw(dst, zone, obscured, zone.Min, draw.Src)
	}
	return dst
}

func (r *Renderer) obscure(img *image.NRGBA) *image.NRGBA {
	if r.mode == ModeBlur {
		return imaging.Blur(img, r.sigma)
	}
	return r.pixelate(img)
}

// pixelate paints every block x block cell of img with the average of its
// own pixels. Cells on the right and bottom edges may be narrower.
func (r *Renderer) pixelate(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	block := r.BlockSize(bounds)
	if block == 1 {
		return imaging.Clone(img)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for _, xs := range cellSpans(bounds.Dx(), block) {
		for _, ys := range cellSpans(bounds.Dy(), block) {
			region := image.Rect(xs.lo, ys.lo, xs.hi, ys.hi)
			tile := imaging.Crop(img, region.Add(bounds.Min))
			// Box at an integer ratio averages exactly the pixels of each cell.
			small := imaging.Resize(tile, xs.cells, ys.cells, imaging.Box)
			cells := imaging.Resize(small, region.Dx(), region.Dy(), imaging.NearestNeighbor)
			draw.Draw(dst, region, cells, image.Point{}, draw.Src)
		}
	}
	return dst
}

// span is a run of whole cells, or the partial cell left at the end.
type span struct {
	lo, hi int
	cells  int
}

func cellSpans(n, block int) []span {
	full := n / block * block
	var spans []span
	if full > 0 {
		spans = append(spans, span{lo: 0, hi: full, cells: full / block})
	}
	if full < n {
		spans = append(spans, span{lo: full, hi: n, cells: 1})
	}
	return spans
}

// Outline draws a red frame around every face, the way faces are marked on
// screen before the user picks which ones to hide.
func (r *Renderer) Outline(img image.Image, faces []Face) image.Image {
	dc := gg.NewContextForImage(img)
	bounds := img.Bounds()

	width := math.Max(2, float64(max(bounds.Dx(), bounds.Dy()))/300)
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(width)
	for _, face := range faces {
		zone := face.Box.Pixels(bounds)
		if zone.Empty() {
			continue
		}
		zone = zone.Sub(bounds.Min)
		dc.DrawRectangle(
			float64(zone.Min.X)+width/2,
			float64(zone.Min.Y)+width/2,
			float64(zone.Dx())-width,
			float64(zone.Dy())-width,
		)
		dc.Stroke()
	}
	return dc.Image()
}
