package share

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSharer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sharer := NewLocalSharer(dir)

	location, err := sharer.Share(context.Background(), "../escape.png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.png"), location)

	got, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
}

func TestLocalSharerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalSharer(t.TempDir()).Share(ctx, "a.png", "image/png", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	s, err := New(Config{Driver: DriverLocal, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalSharer{}, s)

	s, err = New(Config{Driver: DriverS3, Bucket: "b", Region: "us-east-1", AccessKeyID: "id", SecretAccessKey: "secret"})
	require.NoError(t, err)
	assert.IsType(t, &S3Sharer{}, s)

	_, err = New(Config{Driver: "ftp"})
	assert.Error(t, err)
}

func TestQRCode(t *testing.T) {
	data, err := QRCode("https://example.com/photo.jpg", 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	_, err = QRCode("", 128)
	assert.ErrorIs(t, err, ErrEmptyLocation)
}

func TestS3Sharer(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
		ctype  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path, ctype = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sharer, err := NewS3Sharer(Config{
		Bucket:          "photos",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	location, err := sharer.Share(context.Background(), "abc-photo.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/photos/abc-photo.jpg", path)
	assert.Equal(t, "image/jpeg", ctype)
	assert.Equal(t, []byte("jpeg"), body)

	assert.True(t, strings.HasPrefix(location, srv.URL+"/photos/abc-photo.jpg?"), location)
	assert.Contains(t, location, "X-Amz-Signature=")
	assert.Contains(t, location, "X-Amz-Expires=900")
}
