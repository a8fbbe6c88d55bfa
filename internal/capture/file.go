package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hammamikhairi/concierge/internal/domain"
)

// Compile-time interface check.
var _ domain.Camera = (*FileCamera)(nil)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// ErrNotJPEG is returned for a source file that is not a JPEG image.
var ErrNotJPEG = errors.New("capture: not a jpeg image")

// FileCamera is the desktop stand-in for a device camera. Its source is
// either a JPEG file, or a directory whose newest JPEG is taken on each
// capture (point it at a phone sync folder or a webcam snapshot dir).
type FileCamera struct {
	source string
}

// NewFileCamera creates a camera reading from source.
func NewFileCamera(source string) *FileCamera {
	return &FileCamera{source: source}
}

// Ready reports whether the source exists.
func (c *FileCamera) Ready() bool {
	if c.source == "" {
		return false
	}
	_, err := os.Stat(c.source)
	return err == nil
}

// Probe checks that a picture could be taken right now.
func (c *FileCamera) Probe(ctx context.Context) error {
	if c.source == "" {
		return errors.New("capture: no camera source configured")
	}
	_, err := c.resolve()
	return err
}

// TakePicture reads the current image from the source.
func (c *FileCamera) TakePicture(ctx context.Context) (domain.PhotoHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.PhotoHandle{}, err
	}
	path, err := c.resolve()
	if err != nil {
		return domain.PhotoHandle{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.PhotoHandle{}, fmt.Errorf("capture: reading %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, jpegMagic) {
		return domain.PhotoHandle{}, fmt.Errorf("%w: %s", ErrNotJPEG, path)
	}
	return domain.PhotoHandle{Data: data, URI: path}, nil
}

// resolve returns the file to read for one capture.
func (c *FileCamera) resolve() (string, error) {
	info, err := os.Stat(c.source)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	if !info.IsDir() {
		return c.source, nil
	}

	entries, err := os.ReadDir(c.source)
	if err != nil {
		return "", fmt.Errorf("capture: listing %s: %w", c.source, err)
	}

	var newest string
	var newestMod int64
	for _, e := range entries {
		if e.IsDir() || !isJPEGName(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if mod := fi.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = filepath.Join(c.source, e.Name())
			newestMod = mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("capture: no jpeg in %s", c.source)
	}
	return newest, nil
}

func isJPEGName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}
