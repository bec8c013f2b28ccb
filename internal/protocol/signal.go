package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// sdp is the wire shape of an offer or answer payload, matching what
// browser clients put in the "signal" field.
type sdp struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// MarshalDescription encodes a session description as a signal payload.
func MarshalDescription(desc webrtc.SessionDescription) (json.RawMessage, error) {
	return json.Marshal(sdp{Type: desc.Type.String(), SDP: desc.SDP})
}

// UnmarshalDescription decodes a signal payload into a session description,
// validating that the type matches the envelope's signal kind.
func UnmarshalDescription(raw json.RawMessage, signalType string) (webrtc.SessionDescription, error) {
	var s sdp
	if err := json.Unmarshal(raw, &s); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("parse sdp payload: %w", err)
	}
	if s.Type != signalType {
		return webrtc.SessionDescription{}, fmt.Errorf("sdp type %q does not match signal type %q", s.Type, signalType)
	}

	var t webrtc.SDPType
	switch s.Type {
	case SignalOffer:
		t = webrtc.SDPTypeOffer
	case SignalAnswer:
		t = webrtc.SDPTypeAnswer
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", s.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: s.SDP}, nil
}

// MarshalCandidate encodes a trickled ICE candidate as a signal payload.
func MarshalCandidate(init webrtc.ICECandidateInit) (json.RawMessage, error) {
	return json.Marshal(init)
}

// UnmarshalCandidate decodes a candidate signal payload.
func UnmarshalCandidate(raw json.RawMessage) (webrtc.ICECandidateInit, error) {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &init); err != nil {
		return webrtc.ICECandidateInit{}, fmt.Errorf("parse ICE candidate: %w", err)
	}
	return init, nil
}
