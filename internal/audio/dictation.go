package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// ErrNothingHeard is returned when a recording produced no usable text.
var ErrNothingHeard = errors.New("audio: nothing heard")

// DictationOption configures Dictation.
type DictationOption func(*Dictation)

// WithRecordDuration sets how long one dictation recording lasts.
func WithRecordDuration(d time.Duration) DictationOption {
	return func(dc *Dictation) { dc.duration = d }
}

// WithTempDir sets where the transcriber writes its recordings.
func WithTempDir(dir string) DictationOption {
	return func(dc *Dictation) { dc.tempDir = dir }
}

// recordFunc records for d and returns the raw transcription.
type recordFunc func(ctx context.Context, d time.Duration) (string, error)

// Dictation turns one short microphone recording into text using a local
// Whisper model. It fills free-text fields such as the menu taste
// preference. Narration is stopped while recording so the microphone
// does not pick it up.
type Dictation struct {
	whisperBin string
	modelPath  string
	tempDir    string
	duration   time.Duration
	speaker    domain.Speaker
	log        *logger.Logger
	record     recordFunc

	mu   sync.Mutex
	busy bool
}

// NewDictation creates a dictation helper.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
//   - speaker:    optional; stopped before recording
func NewDictation(whisperBin, modelPath string, speaker domain.Speaker, log *logger.Logger, opts ...DictationOption) *Dictation {
	d := &Dictation{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		tempDir:    ".concierge-stt",
		duration:   4 * time.Second,
		speaker:    speaker,
		log:        log,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.record = d.recordWhisper

	if _, err := exec.LookPath(d.whisperBin); err != nil {
		log.Warn("whisper binary %q not found in PATH: %v", d.whisperBin, err)
	}
	return d
}

// Listen records once and returns the cleaned transcription. Only one
// recording runs at a time; a concurrent call returns an error.
func (d *Dictation) Listen(ctx context.Context) (string, error) {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return "", errors.New("audio: dictation already in progress")
	}
	d.busy = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}()

	if d.speaker != nil && d.speaker.IsPlaying() {
		d.speaker.Stop()
	}

	d.log.Debug("dictation: recording %s", d.duration)
	raw, err := d.record(ctx, d.duration)
	if err != nil {
		return "", err
	}

	text := cleanTranscription(raw)
	if text == "" {
		return "", ErrNothingHeard
	}
	d.log.Info("dictation: heard %q", text)
	return text, nil
}

// recordWhisper does one recording cycle with the whisper transcriber.
func (d *Dictation) recordWhisper(ctx context.Context, duration time.Duration) (string, error) {
	if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
		return "", err
	}

	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := d.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		d.whisperBin,
		d.modelPath,
		d.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		return "", err
	}

	if err := t.Start(); err != nil {
		return "", err
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}

	t.Stop()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return result, nil
}

// annotation matches whisper annotations like "(keyboard clicking)",
// "[BLANK_AUDIO]" or "[Music]".
var annotation = regexp.MustCompile(`[\(\[][a-zA-Z_][a-zA-Z_\s]*[\)\]]`)

// timestamp matches whisper segment prefixes like "[00:00:00.000 --> 00:00:05.000]".
var timestamp = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3} --> \d{2}:\d{2}:\d{2}\.\d{3}\]`)

// hallucinations are whole transcriptions whisper produces on silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
}

// cleanTranscription normalizes whitespace and strips whisper artifacts.
func cleanTranscription(s string) string {
	s = timestamp.ReplaceAllString(s, " ")
	s = annotation.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}
