// Package domain defines the core types and interfaces for the concierge
// client. All other packages depend on domain; domain depends on nothing.
package domain

import "time"

// PermissionState is the outcome of a single device permission request.
type PermissionState int

const (
	PermissionUnknown PermissionState = iota
	PermissionGranted
	PermissionDenied
)

// String returns a human-readable permission state.
func (p PermissionState) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Permission names a device capability the client needs.
type Permission int

const (
	PermissionCamera Permission = iota
	PermissionLocation
	PermissionAudio
)

// String returns a human-readable permission name.
func (p Permission) String() string {
	switch p {
	case PermissionCamera:
		return "camera"
	case PermissionLocation:
		return "location"
	case PermissionAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// GateStatus is the single status exposed by the permission gate.
type GateStatus int

const (
	GatePending GateStatus = iota
	GateGranted
	GateDenied
)

// String returns a human-readable gate status.
func (g GateStatus) String() string {
	switch g {
	case GateGranted:
		return "granted"
	case GateDenied:
		return "denied"
	default:
		return "pending"
	}
}

// LocationFix is one geodetic reading. It is a value type: consumers get
// a copy and a refresh replaces it wholesale.
type LocationFix struct {
	Latitude   float64
	Longitude  float64
	CapturedAt time.Time
}

// PhotoHandle references a captured JPEG and the local path it can be
// displayed from.
type PhotoHandle struct {
	Data []byte
	URI  string
}

// Mode selects which backend call a captured photo is routed to.
type Mode int

const (
	ModeExplore Mode = iota
	ModeMenu
)

// String returns a human-readable mode.
func (m Mode) String() string {
	switch m {
	case ModeExplore:
		return "explore"
	case ModeMenu:
		return "menu"
	default:
		return "unknown"
	}
}

// MenuParameters is the restaurant-menu form. Values are kept as the
// user typed them and forwarded verbatim.
type MenuParameters struct {
	People string `validate:"required"`
	Budget string `validate:"required"`
	Taste  string `validate:"required"`
}

// ResultKind tags a ResultPayload.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultStory
	ResultMenu
)

// String returns a human-readable result kind.
func (k ResultKind) String() string {
	switch k {
	case ResultStory:
		return "story"
	case ResultMenu:
		return "menu"
	default:
		return "none"
	}
}

// ResultPayload holds at most one of a story or a menu. Build it with
// StoryResult or MenuResult so the two never coexist.
type ResultPayload struct {
	Kind ResultKind
	Text string
}

// StoryResult returns a payload carrying narration text.
func StoryResult(text string) ResultPayload {
	return ResultPayload{Kind: ResultStory, Text: text}
}

// MenuResult returns a payload carrying a generated menu.
func MenuResult(text string) ResultPayload {
	return ResultPayload{Kind: ResultMenu, Text: text}
}

// IsNone reports whether the payload is empty.
func (r ResultPayload) IsNone() bool { return r.Kind == ResultNone }

// PlaybackState tracks the single audio session.
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackLoading
	PlaybackPlaying
)

// String returns a human-readable playback state.
func (s PlaybackState) String() string {
	switch s {
	case PlaybackLoading:
		return "loading"
	case PlaybackPlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Narration is one spoken result kept for replay.
type Narration struct {
	ID       string
	Text     string
	Source   Mode
	SpokenAt time.Time
}
