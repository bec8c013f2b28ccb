package server

import (
	"sort"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
)

// Room groups the clients sharing one room key. Only the hub loop touches
// its fields.
type Room struct {
	ID      string
	clients map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		clients: make(map[string]*Client),
	}
}

// broadcast delivers env to every client in the room except excludeID.
func (r *Room) broadcast(env *protocol.Envelope, excludeID string) {
	for id, c := range r.clients {
		if id == excludeID {
			continue
		}
		c.deliver(env)
	}
}

// roster lists the room's members except excludeID, in stable order.
func (r *Room) roster(excludeID string) []protocol.User {
	users := make([]protocol.User, 0, len(r.clients))
	for id, c := range r.clients {
		if id == excludeID {
			continue
		}
		users = append(users, protocol.User{ClientID: id, Username: c.Username})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ClientID < users[j].ClientID })
	return users
}
