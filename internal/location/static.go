package location

import (
	"context"
	"time"

	"github.com/hammamikhairi/concierge/internal/domain"
)

// Compile-time interface check.
var _ domain.Locator = (*Static)(nil)

// Static reports fixed coordinates, typically from configuration.
type Static struct {
	Latitude  float64
	Longitude float64
	now       func() time.Time
}

// NewStatic creates a locator for the given coordinates.
func NewStatic(lat, lon float64) *Static {
	return &Static{Latitude: lat, Longitude: lon, now: time.Now}
}

// CurrentPosition returns the configured coordinates stamped with the
// current time.
func (s *Static) CurrentPosition(ctx context.Context) (domain.LocationFix, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocationFix{}, err
	}
	return domain.LocationFix{
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		CapturedAt: s.now(),
	}, nil
}
