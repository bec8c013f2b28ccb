package protocol

import (
	"encoding/json"
	"time"
)

// Envelope is the single message unit exchanged over the signaling channel,
// in both directions. The wire shape follows the relay's JSON protocol; most
// fields are only meaningful for some types.
type Envelope struct {
	Type string `json:"type"`

	RoomID   string `json:"room_id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`

	// Signal routing. A client sets To when sending; the relay stamps From
	// before delivery.
	To         string          `json:"to,omitempty"`
	From       string          `json:"from,omitempty"`
	Signal     json.RawMessage `json:"signal,omitempty"`
	SignalType string          `json:"signal_type,omitempty"`

	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`

	ExistingUsers []User `json:"existing_users,omitempty"`
}

// User identifies one participant in roster and membership messages.
type User struct {
	ClientID string `json:"client_id"`
	Username string `json:"username"`
}

// Envelope types.
const (
	TypeJoin       = "join"
	TypeRoomJoined = "room_joined"
	TypeUserJoined = "user_joined"
	TypeUserLeft   = "user_left"
	TypeSignal     = "signal"
	TypeChat       = "chat"
	TypePing       = "ping"
	TypePong       = "pong"
)

// Signal kinds carried by TypeSignal envelopes.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// NewJoin builds the envelope a client sends first on every (re)connection.
func NewJoin(roomID, username, clientID string) *Envelope {
	return &Envelope{
		Type:     TypeJoin,
		RoomID:   roomID,
		Username: username,
		ClientID: clientID,
	}
}

// NewSignal builds a negotiation envelope addressed to a single peer.
func NewSignal(to, signalType string, signal json.RawMessage) *Envelope {
	return &Envelope{
		Type:       TypeSignal,
		To:         to,
		Signal:     signal,
		SignalType: signalType,
	}
}

// NewChat builds a chat envelope. The relay fills in the sender's username
// and the timestamp before broadcasting.
func NewChat(message string) *Envelope {
	return &Envelope{Type: TypeChat, Message: message}
}

// NewPing builds a keep-alive envelope.
func NewPing() *Envelope {
	return &Envelope{Type: TypePing}
}

// NewPong builds the relay's reply to a ping.
func NewPong() *Envelope {
	return &Envelope{Type: TypePong, Timestamp: Now()}
}

// Now formats the current time the way the relay stamps envelopes.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
