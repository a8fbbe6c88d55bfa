package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrLocationUnavailable = errors.New("no location fix available")
	ErrCaptureUnavailable  = errors.New("camera not ready")
	ErrBackend             = errors.New("backend request failed")
	ErrPlayback            = errors.New("playback failed")
	ErrInvalidMenu         = errors.New("invalid menu parameters")
	ErrStale               = errors.New("response superseded by a newer action")
	ErrWrongMode           = errors.New("action not available in the current mode")
)
