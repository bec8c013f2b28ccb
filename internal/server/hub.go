package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
)

// inbound pairs an envelope with the connection it arrived on.
type inbound struct {
	client *Client
	env    *protocol.Envelope
}

// Hub is the central brain of the signaling relay. It owns every room and
// every connected client, and all of that state is touched only from the
// single goroutine running Run.
type Hub struct {
	logger *zap.Logger

	rooms map[string]*Room
	// clients indexes every joined client by id, across rooms.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	snapshots  chan chan map[string]RoomInfo
}

// RoomInfo is the discovery endpoint's view of one room.
type RoomInfo struct {
	UserCount int             `json:"user_count"`
	Users     []protocol.User `json:"users"`
}

// NewHub creates a new Hub instance.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		rooms:      make(map[string]*Room),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 64),
		snapshots:  make(chan chan map[string]RoomInfo),
	}
}

// Snapshot returns the active rooms and their participants. Safe to call
// from any goroutine; the hub loop services the request.
func (h *Hub) Snapshot() map[string]RoomInfo {
	reply := make(chan map[string]RoomInfo, 1)
	h.snapshots <- reply
	return <-reply
}

// Run starts the hub's main processing loop. This is the single goroutine
// that manages all rooms and clients.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.logger.Debug("client connected", zap.String("client", client.ID))

		case client := <-h.unregister:
			h.dropClient(client)

		case in := <-h.inbound:
			h.dispatch(in.client, in.env)

		case reply := <-h.snapshots:
			reply <- h.snapshot()
		}
	}
}

func (h *Hub) dispatch(c *Client, env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeJoin:
		h.handleJoin(c, env)
	case protocol.TypeSignal:
		h.handleSignal(c, env)
	case protocol.TypeChat:
		h.handleChat(c, env)
	case protocol.TypePing:
		c.deliver(protocol.NewPong())
	default:
		h.logger.Debug("ignoring envelope", zap.String("type", env.Type), zap.String("client", c.ID))
	}
}

// handleJoin places the client in a room and replays the roster. A repeated
// join for an already-known client id (the client resyncing after a
// reconnect) replaces the stale connection without announcing the user a
// second time.
func (h *Hub) handleJoin(c *Client, env *protocol.Envelope) {
	roomID := env.RoomID
	if roomID == "" {
		roomID = "default"
	}
	username := env.Username
	if username == "" {
		username = fmt.Sprintf("User_%s", shortID(c.ID))
	}
	c.Username = username

	room, ok := h.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		h.rooms[roomID] = room
		h.logger.Info("room created", zap.String("room", roomID))
	}

	prev, rejoin := room.clients[c.ID]
	if rejoin && prev != c {
		prev.closeSend()
	}
	room.clients[c.ID] = c
	c.RoomID = roomID
	h.clients[c.ID] = c

	if !rejoin {
		room.broadcast(&protocol.Envelope{
			Type:      protocol.TypeUserJoined,
			ClientID:  c.ID,
			Username:  username,
			Timestamp: protocol.Now(),
		}, c.ID)
	}

	c.deliver(&protocol.Envelope{
		Type:          protocol.TypeRoomJoined,
		RoomID:        roomID,
		ClientID:      c.ID,
		ExistingUsers: room.roster(c.ID),
		Timestamp:     protocol.Now(),
	})

	h.logger.Info("client joined room",
		zap.String("client", c.ID),
		zap.String("room", roomID),
		zap.String("username", username),
		zap.Bool("rejoin", rejoin))
}

// handleSignal relays a negotiation envelope to its addressee, stamping the
// sender. Signals never cross room boundaries.
func (h *Hub) handleSignal(c *Client, env *protocol.Envelope) {
	room, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}
	target, ok := room.clients[env.To]
	if !ok {
		h.logger.Debug("signal for unknown peer dropped",
			zap.String("from", c.ID), zap.String("to", env.To))
		return
	}
	target.deliver(&protocol.Envelope{
		Type:       protocol.TypeSignal,
		From:       c.ID,
		Signal:     env.Signal,
		SignalType: env.SignalType,
	})
}

// handleChat broadcasts a chat line to the whole room, sender included.
func (h *Hub) handleChat(c *Client, env *protocol.Envelope) {
	room, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}
	room.broadcast(&protocol.Envelope{
		Type:      protocol.TypeChat,
		From:      c.ID,
		Username:  c.Username,
		Message:   env.Message,
		Timestamp: protocol.Now(),
	}, "")
}

// dropClient removes a disconnected client, tells the room, and deletes the
// room once it empties.
func (h *Hub) dropClient(c *Client) {
	defer c.closeSend()

	if c.RoomID == "" {
		return
	}
	room, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}
	// A resync may have replaced this entry with a fresh connection for the
	// same id; only the current occupant tears down membership.
	if room.clients[c.ID] != c {
		return
	}

	delete(room.clients, c.ID)
	delete(h.clients, c.ID)

	if len(room.clients) == 0 {
		delete(h.rooms, room.ID)
		h.logger.Info("room deleted", zap.String("room", room.ID))
		return
	}

	room.broadcast(&protocol.Envelope{
		Type:      protocol.TypeUserLeft,
		ClientID:  c.ID,
		Username:  c.Username,
		Timestamp: protocol.Now(),
	}, "")
	h.logger.Info("client left room", zap.String("client", c.ID), zap.String("room", room.ID))
}

func (h *Hub) snapshot() map[string]RoomInfo {
	out := make(map[string]RoomInfo, len(h.rooms))
	for id, room := range h.rooms {
		out[id] = RoomInfo{
			UserCount: len(room.clients),
			Users:     room.roster(""),
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
