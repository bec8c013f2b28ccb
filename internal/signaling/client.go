package signaling

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 64 * 1024

	// keepAlivePeriod is how often an application-level ping envelope goes
	// out while the channel is open.
	keepAlivePeriod = 20 * time.Second

	// reconnectDelay is the fixed backoff between redial attempts after an
	// unexpected closure.
	reconnectDelay = 3 * time.Second
)

// ErrChannelClosed is returned by Send when no connection is up.
var ErrChannelClosed = errors.New("signaling channel closed")

// Client manages the websocket connection to the signaling relay. It
// redials with a fixed backoff after unexpected closures and replays the
// owner's join envelope on every new connection so the relay can rebuild
// this participant's presence.
type Client struct {
	serverURL string
	logger    *zap.Logger

	// joinEnvelope produces the envelope sent first on every connection.
	joinEnvelope func() *protocol.Envelope

	// shouldReconnect is consulted before each redial attempt; returning
	// false ends the incoming sequence instead of reconnecting. The owner
	// uses it to stop redials racing a completed leave.
	shouldReconnect func() bool

	incoming chan *protocol.Envelope
	done     chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	lastPong  time.Time
}

// NewClient creates a signaling client for one participant.
func NewClient(serverURL string, joinEnvelope func() *protocol.Envelope, shouldReconnect func() bool, logger *zap.Logger) *Client {
	return &Client{
		serverURL:       serverURL,
		logger:          logger,
		joinEnvelope:    joinEnvelope,
		shouldReconnect: shouldReconnect,
		incoming:        make(chan *protocol.Envelope, 32),
		done:            make(chan struct{}),
	}
}

// Connect establishes the websocket connection, sends the join envelope,
// and starts the read and keep-alive loops. The incoming sequence ends
// only when the client is closed or reconnection is declined; it survives
// transient connection losses.
func (c *Client) Connect() error {
	if _, err := url.Parse(c.serverURL); err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if err := c.dial(); err != nil {
		return err
	}

	go c.readLoop()
	go c.keepAliveLoop()
	return nil
}

// dial opens a fresh connection and replays the join envelope.
func (c *Client) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("connect signaling relay: %w", err)
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.Send(c.joinEnvelope()); err != nil {
		c.dropConn()
		return err
	}
	return nil
}

// Send writes an envelope to the relay. It fails with ErrChannelClosed
// while no connection is up; senders treat that as fire-and-forget loss.
func (c *Client) Send(env *protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.connected {
		return ErrChannelClosed
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s envelope: %w", env.Type, err)
	}
	return nil
}

// Incoming returns the channel of inbound envelopes. It is closed once,
// when the client shuts down for good.
func (c *Client) Incoming() <-chan *protocol.Envelope {
	return c.incoming
}

// Connected reports whether a connection is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// LastPong returns when the relay last answered a keep-alive.
func (c *Client) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// Close shuts the client down. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.connected = false
	c.mu.Unlock()

	close(c.done)
	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
	}
}

func (c *Client) dropConn() {
	c.mu.Lock()
	conn := c.conn
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// readLoop reads envelopes for the life of the client, redialing after
// unexpected closures.
func (c *Client) readLoop() {
	defer close(c.incoming)

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		for {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			var env protocol.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				break
			}

			if env.Type == protocol.TypePong {
				c.mu.Lock()
				c.lastPong = time.Now()
				c.mu.Unlock()
				continue
			}

			select {
			case c.incoming <- &env:
			case <-c.done:
				return
			}
		}

		c.dropConn()

		if !c.reconnect() {
			return
		}
	}
}

// reconnect redials until it succeeds, the client closes, or the owner
// declines. Reports whether a new connection is up.
func (c *Client) reconnect() bool {
	for {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed || !c.shouldReconnect() {
			return false
		}

		c.logger.Warn("signaling channel lost, reconnecting",
			zap.Duration("backoff", reconnectDelay))

		select {
		case <-time.After(reconnectDelay):
		case <-c.done:
			return false
		}

		c.mu.Lock()
		closed = c.closed
		c.mu.Unlock()
		if closed || !c.shouldReconnect() {
			return false
		}

		if err := c.dial(); err != nil {
			c.logger.Warn("reconnect attempt failed", zap.Error(err))
			continue
		}
		c.logger.Info("signaling channel reestablished")
		return true
	}
}

// keepAliveLoop sends an application-level ping on a fixed interval while
// the channel is open. A missing pong is observed via LastPong, not acted
// on; transport liveness is the websocket layer's job.
func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Send(protocol.NewPing()); err != nil && !errors.Is(err, ErrChannelClosed) {
				c.logger.Debug("keep-alive send failed", zap.Error(err))
			}
		case <-c.done:
			return
		}
	}
}
