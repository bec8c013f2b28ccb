// Package media owns the locally captured track set and the rules for
// switching between camera and screen without disturbing negotiation.
package media

import (
	"errors"

	"github.com/pion/webrtc/v4"
)

var (
	// ErrDeviceUnavailable means a capture device could not be acquired.
	// Recoverable: the manager falls back or continues without the source.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrUserCancelled means the user dismissed the screen-share prompt.
	ErrUserCancelled = errors.New("screen capture cancelled")
)

// Source is one local capture device feeding one outgoing track.
type Source interface {
	// Track is the outgoing track attached to every peer session.
	Track() webrtc.TrackLocal

	// SetEnabled mutes or unmutes the source without detaching the track,
	// preserving the negotiated sender.
	SetEnabled(enabled bool)
	Enabled() bool

	// Stop releases the underlying device. Idempotent.
	Stop()

	// OnEnded registers a callback for external termination, e.g. the user
	// stopping a screen share through the OS control surface.
	OnEnded(fn func())
}

// Capturer is the external capture collaborator. Implementations report
// ErrDeviceUnavailable or ErrUserCancelled; everything else is fatal to the
// single acquisition, never to the room.
type Capturer interface {
	// CameraAndMic acquires the combined camera and microphone pair.
	CameraAndMic() (audio Source, video Source, err error)

	// Mic acquires audio only, the fallback when CameraAndMic fails.
	Mic() (Source, error)

	// Camera acquires camera video only, used to fall back from a screen
	// share that ended.
	Camera() (Source, error)

	// Screen acquires a screen-share video source.
	Screen() (Source, error)
}
