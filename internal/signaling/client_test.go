package signaling

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// flakyRelay accepts websocket connections, records each join envelope, and
// drops the first n connections right after their join to force the client
// through its reconnect path.
type flakyRelay struct {
	dropFirst int32
	conns     int32
	joins     chan *protocol.Envelope
}

func (f *flakyRelay) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	n := atomic.AddInt32(&f.conns, 1)

	var join protocol.Envelope
	if err := conn.ReadJSON(&join); err != nil {
		conn.Close()
		return
	}
	f.joins <- &join

	if n <= atomic.LoadInt32(&f.dropFirst) {
		conn.Close()
		return
	}

	conn.WriteJSON(&protocol.Envelope{
		Type:     protocol.TypeRoomJoined,
		RoomID:   join.RoomID,
		ClientID: join.ClientID,
	})
	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			conn.Close()
			return
		}
		if env.Type == protocol.TypePing {
			conn.WriteJSON(protocol.NewPong())
		}
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, reconnect func() bool) *Client {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/c1"
	join := func() *protocol.Envelope { return protocol.NewJoin("r1", "Alice", "c1") }
	if reconnect == nil {
		reconnect = func() bool { return true }
	}
	c := NewClient(wsURL, join, reconnect, zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

func TestConnectSendsJoinAndDeliversIncoming(t *testing.T) {
	relay := &flakyRelay{joins: make(chan *protocol.Envelope, 4)}
	srv := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	join := <-relay.joins
	if join.Type != protocol.TypeJoin || join.RoomID != "r1" || join.ClientID != "c1" {
		t.Fatalf("join=%+v, want join for r1/c1", join)
	}

	select {
	case env := <-c.Incoming():
		if env.Type != protocol.TypeRoomJoined {
			t.Fatalf("incoming=%+v, want room_joined", env)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no incoming envelope")
	}
}

func TestReconnectReplaysJoin(t *testing.T) {
	relay := &flakyRelay{dropFirst: 1, joins: make(chan *protocol.Envelope, 4)}
	srv := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	<-relay.joins // first connection's join, then the relay drops it

	select {
	case join := <-relay.joins:
		if join.Type != protocol.TypeJoin {
			t.Fatalf("replayed envelope=%+v, want join", join)
		}
	case <-time.After(2 * reconnectDelay * 3):
		t.Fatal("no join replay within the backoff window")
	}

	// The incoming sequence survives the blip.
	select {
	case env := <-c.Incoming():
		if env.Type != protocol.TypeRoomJoined {
			t.Fatalf("incoming=%+v, want room_joined after resync", env)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no incoming envelope after resync")
	}
}

func TestReconnectDeclinedEndsIncoming(t *testing.T) {
	relay := &flakyRelay{dropFirst: 99, joins: make(chan *protocol.Envelope, 4)}
	srv := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer srv.Close()

	c := newTestClient(t, srv, func() bool { return false })
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	<-relay.joins

	select {
	case _, ok := <-c.Incoming():
		if ok {
			t.Fatal("expected closed incoming channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("incoming not closed after declined reconnect")
	}
}

func TestSendAfterCloseFailsWithChannelClosed(t *testing.T) {
	relay := &flakyRelay{joins: make(chan *protocol.Envelope, 4)}
	srv := httptest.NewServer(http.HandlerFunc(relay.handler))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.Close()

	if err := c.Send(protocol.NewChat("late")); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("Send after Close=%v, want ErrChannelClosed", err)
	}
}
