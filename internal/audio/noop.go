package audio

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/concierge/internal/logger"
)

// Compile-time interface check.
var _ Device = (*NoOp)(nil)

// NoOp is a silent device. Used when audio output is disabled; each clip
// "plays" for a fixed duration so the playback state still moves through
// Playing and back to Idle.
type NoOp struct {
	log      *logger.Logger
	duration time.Duration
}

// NewNoOp creates a silent device whose clips last d.
func NewNoOp(d time.Duration, log *logger.Logger) *NoOp {
	return &NoOp{log: log, duration: d}
}

// Load accepts any payload.
func (n *NoOp) Load(ctx context.Context, data []byte) (Sound, error) {
	n.log.Debug("no-op device: would play %d bytes (%s)", len(data), Sniff(data))
	return &silentSound{d: n.duration, stop: make(chan struct{})}, nil
}

type silentSound struct {
	d    time.Duration
	once sync.Once
	stop chan struct{}
}

func (s *silentSound) Play(onFinish func()) error {
	go func() {
		select {
		case <-time.After(s.d):
			if onFinish != nil {
				onFinish()
			}
		case <-s.stop:
		}
	}()
	return nil
}

func (s *silentSound) Release() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
