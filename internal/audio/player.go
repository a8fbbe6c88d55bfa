package audio

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/concierge/internal/logger"
)

// Compile-time interface check.
var _ Device = (*Player)(nil)

// pollInterval is how often a playing sound checks for completion.
const pollInterval = 10 * time.Millisecond

// Player is the system audio device, backed by oto.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	log        *logger.Logger
}

// NewPlayer initializes the system audio context at the given sample
// rate (DefaultSampleRate if zero). Returns an error if the audio device
// is unavailable. oto allows one context per process.
func NewPlayer(sampleRate int, log *logger.Logger) (*Player, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("initialized (rate=%d, channels=%d)", sampleRate, ChannelCount)
	return &Player{ctx: ctx, sampleRate: sampleRate, log: log}, nil
}

// Load decodes WAV or MP3 audio into a paused oto player.
func (p *Player) Load(ctx context.Context, data []byte) (Sound, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pcm, err := DecodePCM(data, p.sampleRate)
	if err != nil {
		return nil, err
	}
	p.log.Debug("loaded %d bytes of PCM (%s)", len(pcm), Sniff(data))
	return &otoSound{
		player: p.ctx.NewPlayer(bytes.NewReader(pcm)),
		log:    p.log,
		done:   make(chan struct{}),
	}, nil
}

// otoSound is one loaded clip. It is released at most once.
type otoSound struct {
	player *oto.Player
	log    *logger.Logger

	mu       sync.Mutex
	released bool
	done     chan struct{}
}

// Play starts playback and returns immediately. onFinish runs on a
// separate goroutine when the clip plays to the end, never after
// Release.
func (s *otoSound) Play(onFinish func()) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return errReleased
	}
	s.player.Play()
	s.mu.Unlock()

	go s.watch(onFinish)
	return nil
}

func (s *otoSound) watch(onFinish func()) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.released {
			s.mu.Unlock()
			return
		}
		playing := s.player.IsPlaying()
		s.mu.Unlock()

		if !playing {
			if onFinish != nil {
				onFinish()
			}
			return
		}
	}
}

// Release stops playback and frees the oto player.
func (s *otoSound) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	close(s.done)
	s.player.Pause()
	return s.player.Close()
}
