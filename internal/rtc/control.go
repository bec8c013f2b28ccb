package rtc

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Control message kinds.
const (
	ControlKindState = "state"
)

// Video source labels carried in state messages.
const (
	SourceCamera = "camera"
	SourceScreen = "screen"
	SourceNone   = "none"
)

// ControlMessage is the peer-to-peer state unit exchanged over the control
// data channel, msgpack-encoded. It lets remotes render mute and
// screen-share indicators without touching negotiation.
type ControlMessage struct {
	Kind        string `msgpack:"kind"`
	AudioMuted  bool   `msgpack:"audio_muted"`
	VideoMuted  bool   `msgpack:"video_muted"`
	VideoSource string `msgpack:"video_source"`
}

// EncodeControl serializes a control message for the data channel.
func EncodeControl(msg ControlMessage) ([]byte, error) {
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode control message: %w", err)
	}
	return data, nil
}

// DecodeControl parses a control message off the data channel.
func DecodeControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("decode control message: %w", err)
	}
	return msg, nil
}
