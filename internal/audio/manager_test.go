package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// ── fakes ────────────────────────────────────────────────────────

type fakeSynth struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	fail  map[string]error
	calls []string
	// onCall runs at the start of every Synthesize call.
	onCall func(text string)
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{gates: map[string]chan struct{}{}, fail: map[string]error{}}
}

func (f *fakeSynth) gate(text string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[text] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	gate := f.gates[text]
	err := f.fail[text]
	onCall := f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall(text)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

type fakeSound struct {
	dev      *fakeDevice
	text     string
	mu       sync.Mutex
	playing  bool
	released bool
	finish   func()
}

func (s *fakeSound) Play(onFinish func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return errReleased
	}
	s.playing = true
	s.finish = onFinish
	s.dev.adjust(1)
	return nil
}

func (s *fakeSound) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	if s.playing {
		s.playing = false
		s.dev.adjust(-1)
	}
	return nil
}

// complete simulates the device reaching the end of the clip.
func (s *fakeSound) complete() {
	s.mu.Lock()
	fn := s.finish
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeDevice struct {
	mu      sync.Mutex
	live    int
	maxLive int
	sounds  []*fakeSound
	failOn  string
}

func (d *fakeDevice) Load(ctx context.Context, data []byte) (Sound, error) {
	if string(data) == d.failOn {
		return nil, errors.New("corrupt audio")
	}
	s := &fakeSound{dev: d, text: string(data)}
	d.mu.Lock()
	d.sounds = append(d.sounds, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDevice) adjust(n int) {
	d.mu.Lock()
	d.live += n
	if d.live > d.maxLive {
		d.maxLive = d.live
	}
	d.mu.Unlock()
}

func (d *fakeDevice) liveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *fakeDevice) last() *fakeSound {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sounds[len(d.sounds)-1]
}

func (d *fakeDevice) find(text string) *fakeSound {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sounds {
		if s.text == text {
			return s
		}
	}
	return nil
}

type changeLog struct {
	mu  sync.Mutex
	got []bool
}

func (c *changeLog) record(v bool) {
	c.mu.Lock()
	c.got = append(c.got, v)
	c.mu.Unlock()
}

func (c *changeLog) values() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.got...)
}

func setupManager(t *testing.T) (*Manager, *fakeSynth, *fakeDevice, *changeLog) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	synth := newFakeSynth()
	dev := &fakeDevice{}
	changes := &changeLog{}
	m := NewManager(synth, dev, log, WithOnChange(changes.record))
	return m, synth, dev, changes
}

// ── tests ────────────────────────────────────────────────────────

func TestPlayLifecycle(t *testing.T) {
	m, _, dev, changes := setupManager(t)
	ctx := context.Background()

	if m.State() != domain.PlaybackIdle {
		t.Fatalf("expected idle, got %s", m.State())
	}

	if err := m.Play(ctx, "hello"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !m.IsPlaying() {
		t.Fatal("expected playing after Play returned")
	}
	if m.NowPlaying() != "hello" {
		t.Fatalf("expected now playing %q, got %q", "hello", m.NowPlaying())
	}

	dev.last().complete()

	if m.IsPlaying() {
		t.Fatal("expected idle after completion")
	}
	if dev.liveCount() != 0 {
		t.Fatalf("expected no live sounds, got %d", dev.liveCount())
	}
	got := changes.values()
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("unexpected change sequence %v", got)
	}
}

func TestPlayReleasesPreviousBeforeLoading(t *testing.T) {
	m, synth, dev, _ := setupManager(t)
	ctx := context.Background()

	if err := m.Play(ctx, "first"); err != nil {
		t.Fatalf("play first: %v", err)
	}

	var liveAtSecondLoad int
	synth.onCall = func(text string) {
		if text == "second" {
			liveAtSecondLoad = dev.liveCount()
		}
	}

	if err := m.Play(ctx, "second"); err != nil {
		t.Fatalf("play second: %v", err)
	}
	if liveAtSecondLoad != 0 {
		t.Fatalf("previous session still live when new one started loading (%d)", liveAtSecondLoad)
	}
	if !dev.find("first").released {
		t.Fatal("first session was not released")
	}
	if dev.liveCount() != 1 || m.NowPlaying() != "second" {
		t.Fatalf("expected only the second session live, live=%d now=%q", dev.liveCount(), m.NowPlaying())
	}

	// A late completion from the released session must not flip state.
	dev.find("first").complete()
	if !m.IsPlaying() {
		t.Fatal("stale completion stopped the active session")
	}
}

func TestSupersededDuringLoad(t *testing.T) {
	m, synth, dev, _ := setupManager(t)
	ctx := context.Background()

	gate := synth.gate("slow")
	done := make(chan error, 1)
	go func() { done <- m.Play(ctx, "slow") }()

	// Wait for the slow session to reach Loading.
	deadline := time.Now().Add(time.Second)
	for m.State() != domain.PlaybackLoading {
		if time.Now().After(deadline) {
			t.Fatal("slow session never started loading")
		}
		time.Sleep(time.Millisecond)
	}

	if err := m.Play(ctx, "fast"); err != nil {
		t.Fatalf("play fast: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("superseded play returned %v", err)
	}

	if s := dev.find("slow"); s == nil || !s.released {
		t.Fatal("superseded session was not released")
	}
	if dev.liveCount() != 1 || m.NowPlaying() != "fast" {
		t.Fatalf("expected fast to be the only live session, live=%d now=%q", dev.liveCount(), m.NowPlaying())
	}
}

func TestConcurrentPlayKeepsOneSession(t *testing.T) {
	m, _, dev, _ := setupManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Play(ctx, fmt.Sprintf("clip-%d", i))
		}(i)
	}
	wg.Wait()

	if dev.liveCount() != 1 {
		t.Fatalf("expected exactly one live session, got %d", dev.liveCount())
	}
	if dev.maxLive > 1 {
		t.Fatalf("sessions overlapped: max live = %d", dev.maxLive)
	}
	if !m.IsPlaying() {
		t.Fatal("expected a session to be playing")
	}
}

func TestPlayFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeSynth, *fakeDevice)
	}{
		{"synthesis error", func(s *fakeSynth, d *fakeDevice) { s.fail["broken"] = domain.ErrBackend }},
		{"load error", func(s *fakeSynth, d *fakeDevice) { d.failOn = "broken" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, synth, dev, _ := setupManager(t)
			ctx := context.Background()
			tt.setup(synth, dev)

			if err := m.Play(ctx, "ok"); err != nil {
				t.Fatalf("play ok: %v", err)
			}

			err := m.Play(ctx, "broken")
			if !errors.Is(err, domain.ErrPlayback) {
				t.Fatalf("expected ErrPlayback, got %v", err)
			}
			if m.State() != domain.PlaybackIdle {
				t.Fatalf("expected idle after failure, got %s", m.State())
			}
			if dev.liveCount() != 0 {
				t.Fatalf("previous session should have been released, live=%d", dev.liveCount())
			}
		})
	}
}

func TestStop(t *testing.T) {
	m, _, dev, changes := setupManager(t)
	ctx := context.Background()

	m.Stop() // nothing playing: no-op
	if len(changes.values()) != 0 {
		t.Fatal("stop on idle manager should not notify")
	}

	if err := m.Play(ctx, "story"); err != nil {
		t.Fatalf("play: %v", err)
	}
	snd := dev.last()
	m.Stop()

	if m.IsPlaying() || dev.liveCount() != 0 || !snd.released {
		t.Fatal("stop did not release the session")
	}
	snd.complete()
	if m.State() != domain.PlaybackIdle {
		t.Fatalf("expected idle, got %s", m.State())
	}
}

func TestNoOpDeviceFinishes(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	done := make(chan bool, 4)
	m := NewManager(newFakeSynth(), NewNoOp(5*time.Millisecond, log), log,
		WithOnChange(func(p bool) { done <- p }))

	if err := m.Play(context.Background(), "quiet"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if v := <-done; v != true {
		t.Fatal("expected playing notification first")
	}
	select {
	case v := <-done:
		if v {
			t.Fatal("expected finished notification")
		}
	case <-time.After(time.Second):
		t.Fatal("no-op sound never finished")
	}
	if m.IsPlaying() {
		t.Fatal("expected idle")
	}
}
