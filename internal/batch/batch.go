package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"thaitanloi365/picture-protector/facebluring"
)

var ErrNoImages = errors.New("no images found")

type Options struct {
	InputDir  string
	OutputDir string
	Workers   int
}

// Result describes one processed file.
type Result struct {
	Name  string `json:"name"`
	Faces int    `json:"faces"`
}

type Report struct {
	Results []Result `json:"results"`
}

// Faces sums the faces blurred across all files.
func (r *Report) Faces() int {
	total := 0
	for _, res := range r.Results {
		total += res.Faces
	}
	return total
}

// ListImages returns the jpg, jpeg and png files directly inside dir, sorted.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Run blurs every face in every image of opts.InputDir and writes the
// results under the same names into opts.OutputDir. The first failure
// cancels the remaining work.
func Run(ctx context.Context, fb *facebluring.FaceBluring, opts Options) (*Report, error) {
	paths, err := ListImages(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", opts.InputDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, opts.InputDir)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", opts.OutputDir, err)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			n, err := process(ctx, fb, path, filepath.Join(opts.OutputDir, filepath.Base(path)))
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			results[i] = Result{Name: filepath.Base(path), Faces: n}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{Results: results}, nil
}

func process(ctx context.Context, fb *facebluring.FaceBluring, src, dst string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return 0, err
	}

	faces, err := fb.DetectFaces(ctx, img)
	if err != nil {
		return 0, err
	}
	facebluring.SetAll(faces, true)

	out := fb.Renderer().Render(img, faces)
	if err := imaging.Save(out, dst, imaging.JPEGQuality(fb.Config().JPEGQuality)); err != nil {
		return 0, err
	}
	return len(faces), nil
}
