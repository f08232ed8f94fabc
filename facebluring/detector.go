package facebluring

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
)

// ErrNoCascade is returned when no cascade file is configured.
var ErrNoCascade = errors.New("no cascade file configured")

// Detector finds faces in an image. Returned boxes are normalized to the
// image bounds and sorted top-to-bottom, left-to-right.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Face, error)
}

// PigoDetector detects faces with a pigo pixel-intensity cascade.
type PigoDetector struct {
	classifier *pigo.Pigo
	fd         Config
}

// NewPigoDetector reads and unpacks the cascade named by config.CascadeFile.
func NewPigoDetector(config Config) (*PigoDetector, error) {
	if config.CascadeFile == "" {
		return nil, ErrNoCascade
	}

	cascadeFile, err := os.ReadFile(config.CascadeFile)
	if err != nil {
		return nil, fmt.Errorf("can not open cascade file %s: %w", config.CascadeFile, err)
	}

	return NewPigoDetectorFromBytes(cascadeFile, config)
}

// NewPigoDetectorFromBytes unpacks an in-memory cascade.
func NewPigoDetectorFromBytes(cascade []byte, config Config) (*PigoDetector, error) {
	p := pigo.NewPigo()
	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := p.Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade file: %w", err)
	}

	return &PigoDetector{
		classifier: classifier,
		fd:         config.withDefaults(),
	}, nil
}

// Detect implements Detector.
func (d *PigoDetector) Detect(ctx context.Context, img image.Image) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	cParams := pigo.CascadeParams{
		MinSize:     d.fd.MinSize,
		MaxSize:     d.fd.MaxSize,
		ShiftFactor: d.fd.ShiftFactor,
		ScaleFactor: d.fd.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(cParams, d.fd.Angle)

	// Calculate the intersection over union (IoU) of two clusters.
	dets = d.classifier.ClusterDetections(dets, d.fd.IouThreshold)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return facesFromDetections(dets, image.Rect(0, 0, cols, rows), d.fd.MinQuality), nil
}

// facesFromDetections turns pigo's centre/scale squares into normalized boxes
// clipped to bounds, dropping detections scored below minQ and squares that
// fall outside the image.
func facesFromDetections(dets []pigo.Detection, bounds image.Rectangle, minQ float32) []Face {
	faces := make([]Face, 0, len(dets))
	for _, det := range dets {
		if det.Q < minQ {
			continue
		}
		square := image.Rect(
			det.Col-det.Scale/2,
			det.Row-det.Scale/2,
			det.Col+det.Scale/2,
			det.Row+det.Scale/2,
		)
		box := Normalize(square, bounds)
		if box.Empty() {
			continue
		}
		faces = append(faces, Face{Box: box, Quality: det.Q})
	}

	SortFaces(faces)
	return faces
}

// SortFaces orders faces in reading order so indices are stable across
// detection passes over the same image.
func SortFaces(faces []Face) {
	sort.SliceStable(faces, func(i, j int) bool {
		if faces[i].Box.Y != faces[j].Box.Y {
			return faces[i].Box.Y < faces[j].Box.Y
		}
		return faces[i].Box.X < faces[j].Box.X
	})
}
