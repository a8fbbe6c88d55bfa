// Package audio owns narration playback: decoding synthesized speech,
// driving the system audio device, and enforcing that at most one
// playback session is alive at any time.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Compile-time interface check.
var _ domain.Speaker = (*Manager)(nil)

var errReleased = errors.New("audio: sound already released")

// Device loads encoded audio into a playable Sound.
type Device interface {
	Load(ctx context.Context, data []byte) (Sound, error)
}

// Sound is one loaded clip. Play must not block and must not invoke
// onFinish synchronously. Release stops playback and frees the clip; it
// is safe to call more than once.
type Sound interface {
	Play(onFinish func()) error
	Release() error
}

// Option configures the Manager.
type Option func(*Manager)

// WithOnChange registers an observer for the isPlaying flag. It is called
// without the manager's lock held.
func WithOnChange(fn func(playing bool)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// Manager is the playback state machine:
//
//	Idle -> Loading -> Playing -> Idle
//
// Each Play call opens a new session and releases the previous one first.
// A session that is superseded while still loading is released as soon
// as its load completes, so two sessions are never live together.
type Manager struct {
	synth    domain.Synthesizer
	device   Device
	log      *logger.Logger
	onChange func(bool)

	mu      sync.Mutex
	state   domain.PlaybackState
	session uint64 // incremented by every Play and Stop
	active  Sound
	text    string
}

// NewManager creates a playback manager.
func NewManager(synth domain.Synthesizer, device Device, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		synth:  synth,
		device: device,
		log:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Play synthesizes text and starts playing it, replacing any current
// session. It returns once playback has started. Failures leave the
// manager Idle and are returned wrapped in domain.ErrPlayback; callers
// are expected to log them rather than surface them.
func (m *Manager) Play(ctx context.Context, text string) error {
	m.mu.Lock()
	wasPlaying := m.releaseLocked()
	m.session++
	id := m.session
	m.state = domain.PlaybackLoading
	m.text = text
	m.mu.Unlock()
	if wasPlaying {
		m.notify(false)
	}

	m.log.Debug("session %d: loading %q", id, truncate(text, 60))

	data, err := m.synth.Synthesize(ctx, text)
	if err != nil {
		m.fail(id)
		m.log.Error("session %d: synthesis failed: %v", id, err)
		return fmt.Errorf("audio: synthesize: %w: %w", domain.ErrPlayback, err)
	}

	snd, err := m.device.Load(ctx, data)
	if err != nil {
		m.fail(id)
		m.log.Error("session %d: load failed: %v", id, err)
		return fmt.Errorf("audio: load: %w: %w", domain.ErrPlayback, err)
	}

	m.mu.Lock()
	if m.session != id {
		// Superseded while loading. The newer session owns the device.
		m.mu.Unlock()
		snd.Release()
		m.log.Debug("session %d: superseded during load, released", id)
		return nil
	}
	if err := snd.Play(func() { m.finished(id) }); err != nil {
		m.state = domain.PlaybackIdle
		m.mu.Unlock()
		snd.Release()
		m.log.Error("session %d: play failed: %v", id, err)
		return fmt.Errorf("audio: play: %w: %w", domain.ErrPlayback, err)
	}
	m.active = snd
	m.state = domain.PlaybackPlaying
	m.mu.Unlock()

	m.notify(true)
	m.log.Debug("session %d: playing", id)
	return nil
}

// Stop releases the active session, if any, and abandons one that is
// still loading.
func (m *Manager) Stop() {
	m.mu.Lock()
	wasPlaying := m.releaseLocked()
	m.session++
	m.state = domain.PlaybackIdle
	m.mu.Unlock()
	if wasPlaying {
		m.notify(false)
		m.log.Debug("stopped")
	}
}

// IsPlaying reports whether a session is currently Playing.
func (m *Manager) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == domain.PlaybackPlaying
}

// State returns the current playback state.
func (m *Manager) State() domain.PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NowPlaying returns the text of the current or loading session.
func (m *Manager) NowPlaying() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == domain.PlaybackIdle {
		return ""
	}
	return m.text
}

// releaseLocked frees the active sound and reports whether one was
// playing. Must be called with m.mu held.
func (m *Manager) releaseLocked() bool {
	if m.active == nil {
		return false
	}
	if err := m.active.Release(); err != nil {
		m.log.Warn("release failed: %v", err)
	}
	m.active = nil
	wasPlaying := m.state == domain.PlaybackPlaying
	m.state = domain.PlaybackIdle
	return wasPlaying
}

// finished is the device's completion callback for session id.
func (m *Manager) finished(id uint64) {
	m.mu.Lock()
	if m.session != id || m.active == nil {
		m.mu.Unlock()
		return
	}
	m.releaseLocked()
	m.mu.Unlock()

	m.notify(false)
	m.log.Debug("session %d: finished", id)
}

// fail returns a still-current loading session to Idle.
func (m *Manager) fail(id uint64) {
	m.mu.Lock()
	if m.session == id {
		m.state = domain.PlaybackIdle
	}
	m.mu.Unlock()
}

func (m *Manager) notify(playing bool) {
	if m.onChange != nil {
		m.onChange(playing)
	}
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
