package room

import (
	"github.com/pion/webrtc/v4"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
)

// Events is the notification sink the session feeds. The terminal UI
// implements it; a rendering surface would too. Callbacks run on the
// session's event loop and must not block.
type Events interface {
	// RoomJoined fires once the relay confirms membership, with the roster
	// of participants already present.
	RoomJoined(roomID string, participants []protocol.User)

	UserJoined(id, username string)
	UserLeft(id, username string)

	// Chat delivers a sanitized chat line.
	Chat(from, username, text, timestamp string)

	// PeerState reports a remote participant's mute/source flags.
	PeerState(id string, state rtc.ControlMessage)

	// RemoteTrack hands an inbound media track to the rendering
	// collaborator.
	RemoteTrack(peerID string, track *webrtc.TrackRemote)

	// Status surfaces non-blocking notices: device degradation, peer
	// connectivity, and the like.
	Status(message string)
}

// NopEvents discards every notification.
type NopEvents struct{}

func (NopEvents) RoomJoined(string, []protocol.User)      {}
func (NopEvents) UserJoined(string, string)               {}
func (NopEvents) UserLeft(string, string)                 {}
func (NopEvents) Chat(string, string, string, string)     {}
func (NopEvents) PeerState(string, rtc.ControlMessage)    {}
func (NopEvents) RemoteTrack(string, *webrtc.TrackRemote) {}
func (NopEvents) Status(string)                           {}
