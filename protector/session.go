// Package protector holds the state of one photo being prepared for
// sharing: the imported image, the faces found in it and which of them the
// user wants hidden.
package protector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"thaitanloi365/picture-protector/facebluring"
	"thaitanloi365/picture-protector/internal/exif"
)

// Sharer publishes an encoded image and returns where it can be fetched.
type Sharer interface {
	Share(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Session is safe for concurrent use.
type Session struct {
	id        string
	engine    *facebluring.FaceBluring
	createdAt time.Time

	mu          sync.Mutex
	name        string
	img         *image.NRGBA
	orientation int
	faces       []facebluring.Face
	location    string
	updatedAt   time.Time
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Orientation int                `json:"orientation"`
	Faces       []facebluring.Face `json:"faces"`
	Location    string             `json:"location,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewSession returns an empty session that detects and renders with engine.
func NewSession(id string, engine *facebluring.FaceBluring) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		engine:    engine,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Name:        s.name,
		Orientation: s.orientation,
		Faces:       append([]facebluring.Face{}, s.faces...),
		Location:    s.location,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}
	if s.img != nil {
		snap.Width = s.img.Bounds().Dx()
		snap.Height = s.img.Bounds().Dy()
	}
	return snap
}

// UpdatedAt reports the last time the session changed.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Import replaces the session image with the one read from r, rotated
// upright according to its EXIF orientation, and runs face detection on it.
// Faces from any previous image are discarded.
func (s *Session) Import(ctx context.Context, name string, r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read image: %w", err)
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	orientation := exif.Orientation(data)
	upright := exif.Apply(src, orientation)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.name = filepath.Base(name)
	s.img = upright
	s.orientation = orientation
	s.faces = nil
	s.location = ""
	s.touch()

	if err := s.detect(ctx); err != nil {
		return s.snapshot(), err
	}
	return s.snapshot(), nil
}

// Detect runs face detection again, replacing every face and clearing all
// blur flags.
func (s *Session) Detect(ctx context.Context) ([]facebluring.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.detect(ctx); err != nil {
		return nil, err
	}
	return append([]facebluring.Face{}, s.faces...), nil
}

func (s *Session) detect(ctx context.Context) error {
	if s.img == nil {
		return ErrNoImage
	}
	faces, err := s.engine.DetectFaces(ctx, s.img)
	if err != nil {
		return err
	}
	s.faces = faces
	s.touch()
	return nil
}

// Faces returns a copy of the detected faces.
func (s *Session) Faces() []facebluring.Face {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]facebluring.Face{}, s.faces...)
}

// Toggle flips the blur flag of face i and returns the updated face.
func (s *Session) Toggle(i int) (facebluring.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.faces) {
		return facebluring.Face{}, fmt.Errorf("%w: %d", ErrFaceIndex, i)
	}
	s.faces[i].Blur = !s.faces[i].Blur
	s.touch()
	return s.faces[i], nil
}

// SetBlur sets the blur flag of face i and returns the updated face.
func (s *Session) SetBlur(i int, blur bool) (facebluring.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.faces) {
		return facebluring.Face{}, fmt.Errorf("%w: %d", ErrFaceIndex, i)
	}
	s.faces[i].Blur = blur
	s.touch()
	return s.faces[i], nil
}

// SetAll sets the blur flag of every face.
func (s *Session) SetAll(blur bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	facebluring.SetAll(s.faces, blur)
	s.touch()
}

// Tap toggles the face under pt, where pt is in the coordinate space of a
// view of the given size showing the image aspect-fitted. It returns the
// index of the toggled face and its updated state.
func (s *Session) Tap(pt facebluring.Point, view facebluring.Size) (int, facebluring.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		return -1, facebluring.Face{}, ErrNoImage
	}

	layout := facebluring.AspectFit(imageSize(s.img), view)
	i := facebluring.HitTest(s.faces, layout, pt)
	if i < 0 {
		return -1, facebluring.Face{}, ErrNoFaceAtPoint
	}
	s.faces[i].Blur = !s.faces[i].Blur
	s.touch()
	return i, s.faces[i], nil
}

// Render returns the image with every flagged face obscured.
func (s *Session) Render() (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		return nil, ErrNoImage
	}
	return s.engine.Renderer().Render(s.img, s.faces), nil
}

// Preview renders the image with face frames drawn on it, scaled to fit a
// view of the given size and letterboxed in black.
func (s *Session) Preview(view facebluring.Size) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		return nil, ErrNoImage
	}
	if view.W < 1 || view.H < 1 {
		view = imageSize(s.img)
	}

	renderer := s.engine.Renderer()
	outlined := renderer.Outline(renderer.Render(s.img, s.faces), s.faces)

	canvas := image.NewNRGBA(image.Rect(0, 0, int(math.Round(view.W)), int(math.Round(view.H))))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	frame := facebluring.AspectFit(imageSize(s.img), view).Frame
	dr := image.Rect(
		int(math.Round(frame.X)),
		int(math.Round(frame.Y)),
		int(math.Round(frame.X+frame.W)),
		int(math.Round(frame.Y+frame.H)),
	)
	draw.ApproxBiLinear.Scale(canvas, dr, outlined, outlined.Bounds(), draw.Over, nil)
	return canvas, nil
}

// Share encodes the rendered image in format and hands it to sharer.
// The returned location is remembered for later lookups.
func (s *Session) Share(ctx context.Context, sharer Sharer, format imaging.Format) (string, error) {
	img, err := s.Render()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := facebluring.Encode(&buf, img, format, s.engine.Config().JPEGQuality); err != nil {
		return "", err
	}

	s.mu.Lock()
	name := s.name
	s.mu.Unlock()

	location, err := sharer.Share(ctx, shareKey(name, format), facebluring.ContentType(format), buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("share: %w", err)
	}

	s.mu.Lock()
	s.location = location
	s.touch()
	s.mu.Unlock()
	return location, nil
}

// Location returns where the session was last shared.
func (s *Session) Location() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location == "" {
		return "", ErrNotShared
	}
	return s.location, nil
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

func imageSize(img image.Image) facebluring.Size {
	b := img.Bounds()
	return facebluring.Size{W: float64(b.Dx()), H: float64(b.Dy())}
}

// shareKey names a shared object "<ulid>-<base>.<ext>".
func shareKey(name string, format imaging.Format) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." || base == "/" {
		base = "photo"
	}
	return fmt.Sprintf("%s-%s%s", ulid.Make().String(), base, facebluring.Extension(format))
}
