package permission

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/concierge/internal/domain"
)

// Compile-time interface check.
var _ domain.PermissionRequester = Checks(nil)

// Check probes whether the host can provide one capability.
type Check func(ctx context.Context) error

// Checks is a desktop requester: a permission is granted when its probe
// succeeds. A missing probe is a denial.
type Checks map[domain.Permission]Check

// Request runs the probe for p.
func (c Checks) Request(ctx context.Context, p domain.Permission) (domain.PermissionState, error) {
	check, ok := c[p]
	if !ok {
		return domain.PermissionDenied, nil
	}
	if err := check(ctx); err != nil {
		return domain.PermissionDenied, fmt.Errorf("%s: %w", p, err)
	}
	return domain.PermissionGranted, nil
}
