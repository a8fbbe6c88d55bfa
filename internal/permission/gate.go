// Package permission implements the startup permission gate: camera,
// location and audio are requested together, and the client only
// proceeds when all three are granted.
package permission

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Required lists the permissions the client cannot run without.
var Required = []domain.Permission{
	domain.PermissionCamera,
	domain.PermissionLocation,
	domain.PermissionAudio,
}

// Gate resolves once. Later calls to Resolve return the memoised status;
// there is no re-request flow.
type Gate struct {
	requester domain.PermissionRequester
	log       *logger.Logger

	once    sync.Once
	mu      sync.RWMutex
	status  domain.GateStatus
	results map[domain.Permission]domain.PermissionState
}

// NewGate creates a gate over the given requester.
func NewGate(requester domain.PermissionRequester, log *logger.Logger) *Gate {
	return &Gate{
		requester: requester,
		log:       log,
		results:   make(map[domain.Permission]domain.PermissionState),
	}
}

// Resolve requests every required permission concurrently and waits for
// all of them. A request that errors counts as denied. The first denial
// or error cancels the context of the requests still pending, since the
// gate cannot open any more.
func (g *Gate) Resolve(ctx context.Context) domain.GateStatus {
	g.once.Do(func() {
		states := make([]domain.PermissionState, len(Required))

		eg, egCtx := errgroup.WithContext(ctx)
		for i, p := range Required {
			eg.Go(func() error {
				st, err := g.requester.Request(egCtx, p)
				if err != nil {
					states[i] = domain.PermissionDenied
					return fmt.Errorf("permission: %s request: %w", p, err)
				}
				states[i] = st
				if st != domain.PermissionGranted {
					return fmt.Errorf("permission: %s %s: %w", p, st, domain.ErrPermissionDenied)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			g.log.Warn("%v", err)
		}

		status := domain.GateGranted
		g.mu.Lock()
		for i, p := range Required {
			g.results[p] = states[i]
			if states[i] != domain.PermissionGranted {
				status = domain.GateDenied
			}
		}
		g.status = status
		g.mu.Unlock()

		g.log.Info("permissions %s (camera=%s, location=%s, audio=%s)", status,
			states[0], states[1], states[2])
	})
	return g.Status()
}

// Status returns Pending until Resolve has finished.
func (g *Gate) Status() domain.GateStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// State returns the recorded outcome for one permission.
func (g *Gate) State(p domain.Permission) domain.PermissionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.results[p]
}
