// Package capture wraps the camera: it takes a picture when the device is
// ready and publishes the latest handle for display.
package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Controller publishes at most one photo at a time.
type Controller struct {
	camera domain.Camera
	log    *logger.Logger

	mu    sync.Mutex
	photo *domain.PhotoHandle
}

// NewController creates a capture controller.
func NewController(camera domain.Camera, log *logger.Logger) *Controller {
	return &Controller{camera: camera, log: log}
}

// Capture takes a picture and publishes it. When the camera is not ready
// it returns domain.ErrCaptureUnavailable and leaves the published photo
// untouched.
func (c *Controller) Capture(ctx context.Context) (domain.PhotoHandle, error) {
	if c.camera == nil || !c.camera.Ready() {
		c.log.Debug("capture skipped: camera not ready")
		return domain.PhotoHandle{}, domain.ErrCaptureUnavailable
	}

	photo, err := c.camera.TakePicture(ctx)
	if err != nil {
		return domain.PhotoHandle{}, fmt.Errorf("capture: %w", err)
	}

	c.mu.Lock()
	c.photo = &photo
	c.mu.Unlock()

	c.log.Info("captured %s (%d bytes)", photo.URI, len(photo.Data))
	return photo, nil
}

// Retake discards the published photo.
func (c *Controller) Retake() {
	c.mu.Lock()
	c.photo = nil
	c.mu.Unlock()
	c.log.Debug("photo discarded")
}
