package domain

import "context"

// PermissionRequester asks the device for one capability.
// Implementations may block while the user answers a prompt.
type PermissionRequester interface {
	Request(ctx context.Context, p Permission) (PermissionState, error)
}

// Locator returns a single current-position reading.
type Locator interface {
	CurrentPosition(ctx context.Context) (LocationFix, error)
}

// Camera is the device capture API. Ready reports whether a capture
// device is attached.
type Camera interface {
	Ready() bool
	TakePicture(ctx context.Context) (PhotoHandle, error)
}

// Synthesizer turns text into a playable audio stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Backend is the remote concierge service. Every call is single-attempt.
type Backend interface {
	Synthesizer
	AnalyzePhoto(ctx context.Context, photo PhotoHandle) (string, error)
	AnalyzeLocation(ctx context.Context, fix LocationFix) (string, error)
	GenerateMenu(ctx context.Context, params MenuParameters, photo *PhotoHandle) (string, error)
}

// Speaker plays narration text. Play replaces whatever is currently
// playing. Stop releases the active session, if any.
type Speaker interface {
	Play(ctx context.Context, text string) error
	Stop()
	IsPlaying() bool
}

// Alerter shows a blocking, user-facing message. Implementations can
// print to a terminal, raise a dialog, or record alerts in tests.
type Alerter interface {
	Alert(ctx context.Context, title, message string) error
}

// NarrationStore keeps narrations that were spoken so they can be
// replayed.
type NarrationStore interface {
	Save(ctx context.Context, n *Narration) error
	Latest(ctx context.Context) (*Narration, error)
	List(ctx context.Context) ([]*Narration, error)
}
