package facebluring

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// Mode selects how a flagged face is obscured.
type Mode string

const (
	ModePixelate Mode = "pixelate"
	ModeBlur     Mode = "blur"
)

// Config config
type Config struct {
	Angle        float64 `yaml:"angle" validate:"gte=0,lte=1"`
	CascadeFile  string  `yaml:"cascade_file"`
	MinSize      int     `yaml:"min_size" validate:"gte=0"`
	MaxSize      int     `yaml:"max_size" validate:"gte=0"`
	ShiftFactor  float64 `yaml:"shift_factor" validate:"gte=0,lt=1"`
	ScaleFactor  float64 `yaml:"scale_factor" validate:"gte=0"`
	IouThreshold float64 `yaml:"iou_threshold" validate:"gte=0,lte=1"`
	MinQuality   float32 `yaml:"min_quality"`

	Mode           Mode    `yaml:"mode" validate:"omitempty,oneof=pixelate blur"`
	PixelDivisions int     `yaml:"pixel_divisions" validate:"gte=0"`
	BlurSigma      float64 `yaml:"blur_sigma" validate:"gte=0"`
	JPEGQuality    int     `yaml:"jpeg_quality" validate:"gte=0,lte=100"`
}

func (c *Config) withDefaults() Config {
	var cfg Config
	if c != nil {
		cfg = *c
	}

	if cfg.MinSize == 0 {
		cfg.MinSize = 20
	}

	if cfg.MaxSize == 0 {
		cfg.MaxSize = 1000
	}

	if cfg.ShiftFactor == 0 {
		cfg.ShiftFactor = 0.1
	}

	if cfg.ScaleFactor == 0 {
		cfg.ScaleFactor = 1.1
	}

	if cfg.IouThreshold == 0 {
		cfg.IouThreshold = 0.2
	}

	if cfg.Mode == "" {
		cfg.Mode = ModePixelate
	}

	if cfg.PixelDivisions == 0 {
		cfg.PixelDivisions = 20
	}

	if cfg.BlurSigma == 0 {
		cfg.BlurSigma = 5.0
	}

	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = 100
	}

	return cfg
}

// FaceBluring bundles a face detector with the renderer that obscures the
// faces it finds. It holds no per-image state and is safe for concurrent use.
type FaceBluring struct {
	fd       Config
	detector Detector
	renderer *Renderer
}

// New init
func New(config *Config) (*FaceBluring, error) {
	cfg := config.withDefaults()

	detector, err := NewPigoDetector(cfg)
	if err != nil {
		return nil, err
	}

	return NewWithDetector(&cfg, detector), nil
}

// NewWithDetector builds a FaceBluring around an already constructed detector.
func NewWithDetector(config *Config, detector Detector) *FaceBluring {
	cfg := config.withDefaults()
	return &FaceBluring{
		fd:       cfg,
		detector: detector,
		renderer: NewRenderer(cfg),
	}
}

// Config returns the effective configuration with defaults applied.
func (f *FaceBluring) Config() Config {
	return f.fd
}

// Renderer renderer
func (f *FaceBluring) Renderer() *Renderer {
	return f.renderer
}

// DetectFaces runs the detector over img. Every returned face starts unflagged.
func (f *FaceBluring) DetectFaces(ctx context.Context, img image.Image) ([]Face, error) {
	faces, err := f.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	for i := range faces {
		faces[i].Blur = false
	}
	return faces, nil
}

func (f *FaceBluring) encodeImage(dst io.Writer, img image.Image) error {
	format := imaging.JPEG
	if file, ok := dst.(*os.File); ok {
		var err error
		format, err = FormatFromName(file.Name())
		if err != nil {
			return err
		}
	}
	return Encode(dst, img, format, f.fd.JPEGQuality)
}

// BlurFaces blur faces
func (f *FaceBluring) BlurFaces(source string, dst io.Writer) error {
	src, err := imaging.Open(source, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("can not open %s: %w", source, err)
	}

	faces, err := f.DetectFaces(context.Background(), src)
	if err != nil {
		return err
	}
	SetAll(faces, true)

	return f.encodeImage(dst, f.renderer.Render(src, faces))
}
