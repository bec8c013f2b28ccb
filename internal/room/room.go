// Package room holds the session coordinator and the per-peer negotiation
// state machines forming the media mesh.
//
// Concurrency model: one event loop per session. Inbound envelopes,
// transport callbacks and timer firings all hop onto the loop as discrete
// tasks, so no two handlers for the same session ever run concurrently and
// the peer map needs no lock.
package room

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/media"
	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
)

// LifecycleState is the session's coarse state.
type LifecycleState int32

const (
	Idle LifecycleState = iota
	Joining
	Active
	Leaving
)

// teardownGrace is how long a degraded peer connection may linger before
// its teardown, giving transient ICE wobbles a chance to recover.
const teardownGrace = 2 * time.Second

// Channel is the signaling channel surface the session drives.
type Channel interface {
	Connect() error
	Send(env *protocol.Envelope) error
	Incoming() <-chan *protocol.Envelope
	Close()
}

// ChannelFactory builds the signaling channel for one join. The session
// supplies the join envelope replayed on every reconnect and the guard
// consulted before redials.
type ChannelFactory func(joinEnvelope func() *protocol.Envelope, shouldReconnect func() bool) Channel

// TransportFactory builds one peer's media transport.
type TransportFactory func() (rtc.Transport, error)

// Session coordinates one participant's presence in one room: membership,
// the peer mesh, chat, and local media fan-out.
type Session struct {
	clientID string
	media    *media.Manager
	events   Events

	newTransport TransportFactory
	newChannel   ChannelFactory
	logger       *zap.Logger
	grace        time.Duration

	state atomic.Int32

	// Everything below is owned by the event loop.
	roomKey  string
	username string
	channel  Channel
	peers    map[string]*Peer

	// mediaReady gates peer creation: membership and signal envelopes that
	// beat the local media acquisition are parked and replayed once the
	// track set is known.
	mediaReady bool
	deferred   []*protocol.Envelope

	tasks    chan func()
	loopDone chan struct{}
}

// NewSession wires the coordinator. Join starts it.
func NewSession(clientID string, mediaMgr *media.Manager, events Events, transports TransportFactory, channels ChannelFactory, logger *zap.Logger) *Session {
	if events == nil {
		events = NopEvents{}
	}
	s := &Session{
		clientID:     clientID,
		media:        mediaMgr,
		events:       events,
		newTransport: transports,
		newChannel:   channels,
		logger:       logger,
		grace:        teardownGrace,
		peers:        make(map[string]*Peer),
		tasks:        make(chan func(), 64),
		loopDone:     make(chan struct{}),
	}

	// Local media changes fan out to every peer from the loop.
	mediaMgr.OnVideoSwitched(func(track webrtc.TrackLocal, kind string) {
		s.post(func() {
			for _, p := range s.peers {
				p.replaceVideoTrack(track)
			}
		})
	})
	mediaMgr.OnStateChanged(func(state rtc.ControlMessage) {
		s.post(func() {
			for _, p := range s.peers {
				p.sendState(state)
			}
		})
	})

	return s
}

// State returns the session lifecycle state. Safe from any goroutine.
func (s *Session) State() LifecycleState {
	return LifecycleState(s.state.Load())
}

// Join opens the signaling channel, announces this participant, and starts
// acquiring local media alongside the handshake. Device failures degrade
// the session but never fail the join; only a channel that cannot be
// opened at all does.
func (s *Session) Join(roomKey, displayName string) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Joining)) {
		return errors.New("already in a room")
	}
	s.roomKey = roomKey
	s.username = displayName

	s.channel = s.newChannel(
		func() *protocol.Envelope {
			return protocol.NewJoin(s.roomKey, s.username, s.clientID)
		},
		func() bool {
			st := s.State()
			return st == Joining || st == Active
		},
	)

	if err := s.channel.Connect(); err != nil {
		s.state.Store(int32(Idle))
		return fmt.Errorf("join room %q: %w", roomKey, err)
	}

	// Acquisition runs alongside the membership handshake; the loop parks
	// membership envelopes until the local track set is known. Starting it
	// only after Connect means a failed join never leaves devices open.
	go func() {
		notice := s.media.Acquire()
		s.post(func() {
			s.mediaReady = true
			if notice != "" {
				s.events.Status(notice)
			}
			s.replayDeferred()
		})
	}()

	go s.run()
	return nil
}

// Leave tears down every peer, releases local media, closes the channel,
// and returns the session to Idle. Safe to call once per Join.
func (s *Session) Leave() {
	st := s.State()
	if st != Joining && st != Active {
		return
	}
	s.state.Store(int32(Leaving))

	done := make(chan struct{})
	s.post(func() {
		for id, p := range s.peers {
			p.close()
			delete(s.peers, id)
		}
		s.media.Release()
		s.channel.Close()
		s.state.Store(int32(Idle))
		close(done)
	})
	select {
	case <-done:
	case <-s.loopDone:
	}
}

// SendChat ships a chat line; the relay broadcasts it back to the whole
// room, ourselves included.
func (s *Session) SendChat(text string) error {
	return s.channel.Send(protocol.NewChat(text))
}

// Media exposes the source manager for mute/screen-share controls.
func (s *Session) Media() *media.Manager { return s.media }

// Done is closed when the event loop exits for good.
func (s *Session) Done() <-chan struct{} { return s.loopDone }

// post hands a task to the event loop, dropping it if the loop is gone.
func (s *Session) post(task func()) {
	select {
	case s.tasks <- task:
	case <-s.loopDone:
	}
}

// run is the session's event loop: the only goroutine that touches peers.
func (s *Session) run() {
	defer close(s.loopDone)

	for {
		select {
		case env, ok := <-s.channel.Incoming():
			if !ok {
				// The channel ends only after Leave or a declined
				// reconnect; either way the session is over.
				return
			}
			s.handleEnvelope(env)

		case task := <-s.tasks:
			task()
		}
	}
}

func (s *Session) handleEnvelope(env *protocol.Envelope) {
	switch env.Type {
	case protocol.TypeRoomJoined, protocol.TypeUserJoined, protocol.TypeUserLeft, protocol.TypeSignal:
		// Membership and negotiation wait for the local track set so peers
		// are created with the right media attached, and in order.
		if !s.mediaReady {
			s.deferred = append(s.deferred, env)
			return
		}
	}

	switch env.Type {
	case protocol.TypeRoomJoined:
		s.handleRoomJoined(env)

	case protocol.TypeUserJoined:
		// The newcomer received us in its roster and will offer; creating
		// the peer here as answerer keeps exactly one initiator per pair.
		s.events.UserJoined(env.ClientID, env.Username)
		s.discover(env.ClientID, env.Username, false)

	case protocol.TypeUserLeft:
		s.events.UserLeft(env.ClientID, env.Username)
		if p, ok := s.peers[env.ClientID]; ok {
			p.close()
			delete(s.peers, env.ClientID)
		}

	case protocol.TypeSignal:
		s.handlePeerSignal(env)

	case protocol.TypeChat:
		s.events.Chat(env.From, env.Username, protocol.SanitizeChat(env.Message), env.Timestamp)

	default:
		s.logger.Debug("unhandled envelope", zap.String("type", env.Type))
	}
}

// handleRoomJoined processes the roster and offers to everyone on it: the
// joining side always initiates, existing members always answer. Re-delivery
// after a reconnect is idempotent: discover is a no-op for every
// already-known identity.
func (s *Session) handleRoomJoined(env *protocol.Envelope) {
	s.state.Store(int32(Active))
	s.events.RoomJoined(env.RoomID, env.ExistingUsers)
	for _, u := range env.ExistingUsers {
		s.discover(u.ClientID, u.Username, true)
	}
}

// handlePeerSignal routes a negotiation envelope, lazily creating the peer
// as answerer when the remote's offer outran our roster notification. The
// signal is then processed against the fresh peer directly, no re-entry.
func (s *Session) handlePeerSignal(env *protocol.Envelope) {
	p, ok := s.peers[env.From]
	if !ok {
		p = s.discover(env.From, "", false)
		if p == nil {
			return
		}
	}
	p.handleSignal(env)
}

// discover creates the peer for a newly known identity. A second discovery
// of a known identity is a no-op: at most one peer exists per remote.
func (s *Session) discover(id, username string, initiate bool) *Peer {
	if p, ok := s.peers[id]; ok {
		return p
	}

	transport, err := s.newTransport()
	if err != nil {
		s.logger.Warn("create transport", zap.String("peer", id), zap.Error(err))
		s.events.Status(fmt.Sprintf("could not connect to %s", id))
		return nil
	}

	p := newPeer(id, username, transport, s.media.Tracks(), initiate, peerDeps{
		send: func(env *protocol.Envelope) {
			if err := s.channel.Send(env); err != nil {
				s.logger.Warn("send signal", zap.String("peer", id), zap.Error(err))
			}
		},
		schedule: s.post,
		remove: func() {
			delete(s.peers, id)
		},
		events:        s.events,
		logger:        s.logger,
		teardownGrace: s.grace,
	})

	// Offer synthesis can fail synchronously; a closed peer must not be
	// resurrected into the map.
	if p.State() == StateClosed {
		return nil
	}
	s.peers[id] = p

	// Park the current mute/source state; the transport flushes it once
	// the control channel opens.
	p.sendState(s.media.State())
	return p
}

// replayDeferred drains envelopes parked while media acquisition was still
// in flight.
func (s *Session) replayDeferred() {
	deferred := s.deferred
	s.deferred = nil
	for _, env := range deferred {
		s.handleEnvelope(env)
	}
}

// PeerCount reports the mesh size. Loop-owned data; callers outside the
// loop go through Snapshot instead.
func (s *Session) PeerCount() int { return len(s.peers) }

// Snapshot returns the peer ids and negotiation states, serviced by the
// event loop so any goroutine may call it.
func (s *Session) Snapshot() map[string]NegotiationState {
	out := make(chan map[string]NegotiationState, 1)
	s.post(func() {
		m := make(map[string]NegotiationState, len(s.peers))
		for id, p := range s.peers {
			m[id] = p.State()
		}
		out <- m
	})
	select {
	case m := <-out:
		return m
	case <-s.loopDone:
		return nil
	}
}
