// Package rtc wraps the WebRTC engine behind a small transport surface so
// the negotiation machinery can be driven against fakes in tests.
package rtc

import (
	"github.com/pion/webrtc/v4"
)

// Transport is one peer's media session. Implementations must tolerate
// Close being called at any point, including concurrently with callbacks.
type Transport interface {
	// AddTrack attaches an outgoing track before negotiation.
	AddTrack(track webrtc.TrackLocal) error

	// ReplaceVideoTrack swaps the outgoing video track on the live session
	// without a new offer/answer round-trip.
	ReplaceVideoTrack(track webrtc.TrackLocal) error

	// CreateOffer synthesizes an offer and sets it as the local description.
	CreateOffer() (webrtc.SessionDescription, error)

	// CreateAnswer synthesizes an answer to the current remote description
	// and sets it as the local description.
	CreateAnswer() (webrtc.SessionDescription, error)

	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(init webrtc.ICECandidateInit) error

	// SignalingState reports whether the session is mid-negotiation.
	SignalingState() webrtc.SignalingState

	// OpenControl creates the peer-state data channel. Only the offering
	// side calls this; the answering side adopts the inbound channel.
	OpenControl() error

	// SendControl ships a state message to the peer. Loss is acceptable;
	// the latest message is retried when the channel opens.
	SendControl(msg ControlMessage) error

	OnICECandidate(fn func(webrtc.ICECandidateInit))
	OnTrack(fn func(track *webrtc.TrackRemote))
	OnConnectionStateChange(fn func(state webrtc.PeerConnectionState))
	OnControl(fn func(msg ControlMessage))

	Close() error
}
