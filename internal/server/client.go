package server

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers stay well under
	// this.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection to one participant.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// ID comes from the /ws/{client_id} path and is chosen by the
	// participant before connecting.
	ID       string
	Username string
	RoomID   string

	// send is the buffered outbound queue drained by writePump.
	send chan *protocol.Envelope

	// sendClosed guards against a double close: a replaced connection is
	// closed by handleJoin and again by dropClient when its readPump exits.
	// Only the hub loop touches it.
	sendClosed bool

	logger *zap.Logger
}

// deliver queues env for the client, dropping it if the client is too slow
// to drain its queue. Only the hub loop calls this.
func (c *Client) deliver(env *protocol.Envelope) {
	if c.sendClosed {
		return
	}
	select {
	case c.send <- env:
	default:
		c.logger.Warn("outbound queue full, dropping envelope",
			zap.String("client", c.ID), zap.String("type", env.Type))
	}
}

// closeSend stops the writePump. Only the hub loop calls this. Idempotent:
// a stale connection replaced during a resync is closed at replacement time
// and again when its readPump unregisters.
func (c *Client) closeSend() {
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

// readPump pumps envelopes from the websocket connection to the hub.
//
// One readPump goroutine runs per connection; all reads happen here so
// there is at most one reader on the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}
		c.hub.inbound <- inbound{client: c, env: &env}
	}
}

// writePump pumps envelopes from the hub to the websocket connection and
// keeps the transport alive with websocket-level pings.
//
// One writePump goroutine runs per connection; all writes happen here so
// there is at most one writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Debug("write error", zap.String("client", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
