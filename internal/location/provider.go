// Package location keeps the client's current position. A fix is taken
// once at startup and replaced wholesale on every refresh.
package location

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Provider holds the latest LocationFix.
type Provider struct {
	locator domain.Locator
	log     *logger.Logger

	mu  sync.RWMutex
	fix domain.LocationFix
	ok  bool
}

// NewProvider creates a provider with no fix yet.
func NewProvider(locator domain.Locator, log *logger.Logger) *Provider {
	return &Provider{locator: locator, log: log}
}

// Refresh takes one reading. On failure the previous state is kept and
// domain.ErrLocationUnavailable is returned.
func (p *Provider) Refresh(ctx context.Context) error {
	fix, err := p.locator.CurrentPosition(ctx)
	if err != nil {
		p.log.Warn("location fix failed: %v", err)
		return fmt.Errorf("location: %w: %w", domain.ErrLocationUnavailable, err)
	}

	p.mu.Lock()
	p.fix = fix
	p.ok = true
	p.mu.Unlock()

	p.log.Info("location fix %.5f,%.5f", fix.Latitude, fix.Longitude)
	return nil
}

// Current returns a copy of the latest fix and whether one exists.
func (p *Provider) Current() (domain.LocationFix, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fix, p.ok
}
