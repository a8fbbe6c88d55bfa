package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func writeFile(t *testing.T, path string, data []byte, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// published reads the controller's photo under its lock.
func (c *Controller) published() *domain.PhotoHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.photo
}

func TestCaptureFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.jpg")
	writeFile(t, path, fakeJPEG, time.Now())

	c := NewController(NewFileCamera(path), logger.New(logger.LevelOff, nil))
	photo, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if photo.URI != path || len(photo.Data) != len(fakeJPEG) {
		t.Fatalf("unexpected photo %s (%d bytes)", photo.URI, len(photo.Data))
	}

	if current := c.published(); current == nil || current.URI != path {
		t.Fatal("captured photo was not published")
	}

	c.Retake()
	if c.published() != nil {
		t.Fatal("retake should discard the published photo")
	}
}

func TestCaptureNewestInDirectory(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(dir, "a.jpg"), fakeJPEG, old)
	writeFile(t, filepath.Join(dir, "b.JPEG"), fakeJPEG, time.Now())
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("hi"), time.Now().Add(time.Hour))

	cam := NewFileCamera(dir)
	photo, err := cam.TakePicture(context.Background())
	if err != nil {
		t.Fatalf("take picture: %v", err)
	}
	if filepath.Base(photo.URI) != "b.JPEG" {
		t.Fatalf("expected newest jpeg, got %s", photo.URI)
	}
}

func TestCaptureUnavailable(t *testing.T) {
	c := NewController(NewFileCamera(filepath.Join(t.TempDir(), "missing")), logger.New(logger.LevelOff, nil))

	_, err := c.Capture(context.Background())
	if !errors.Is(err, domain.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if c.published() != nil {
		t.Fatal("nothing should be published")
	}
}

func TestCaptureRejects(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "shot.jpg")
	writeFile(t, png, []byte{0x89, 'P', 'N', 'G'}, time.Now())
	empty := filepath.Join(dir, "empty")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		source string
		is     error
	}{
		{"not a jpeg", png, ErrNotJPEG},
		{"empty directory", empty, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(NewFileCamera(tt.source), logger.New(logger.LevelOff, nil))
			_, err := c.Capture(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
			if errors.Is(err, domain.ErrCaptureUnavailable) {
				t.Fatal("a ready camera that fails is not an unavailable camera")
			}
		})
	}
}

func TestProbe(t *testing.T) {
	if err := NewFileCamera("").Probe(context.Background()); err == nil {
		t.Fatal("empty source should fail probe")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.jpg"), fakeJPEG, time.Now())
	if err := NewFileCamera(dir).Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
}
