package room

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
)

// NegotiationState tracks one peer's progress through the offer/answer
// exchange.
type NegotiationState int

const (
	StateNew NegotiationState = iota
	StateOfferSent
	StateAnswerSent
	StateStable
	StateClosed
)

func (s NegotiationState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOfferSent:
		return "offer_sent"
	case StateAnswerSent:
		return "answer_sent"
	case StateStable:
		return "stable"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// peerDeps is everything a Peer borrows from its owning session.
type peerDeps struct {
	// send ships an envelope over the signaling channel; losses are logged
	// and tolerated.
	send func(env *protocol.Envelope)

	// schedule posts a task onto the session's event loop. Transport
	// callbacks arrive on engine goroutines and must hop onto the loop
	// before touching peer state.
	schedule func(task func())

	// remove drops the peer from the session's map after a fatal failure
	// or teardown, so a later discovery can re-create it.
	remove func()

	events        Events
	logger        *zap.Logger
	teardownGrace time.Duration
}

// Peer is the negotiation state machine for one remote participant and the
// owner of that participant's transport session. All fields are touched
// only from the session's event loop.
type Peer struct {
	id       string
	username string

	transport rtc.Transport
	deps      peerDeps

	state         NegotiationState
	remoteDescSet bool

	// pendingCandidates buffers remote candidates that arrived before the
	// remote description; applying them early is a transport error.
	pendingCandidates []webrtc.ICECandidateInit

	// lastConnState and lastConnChange track the transport's connection
	// state for the grace-delay teardown logic.
	lastConnState  webrtc.PeerConnectionState
	lastConnChange time.Time

	// teardown is the pending grace-delay close, cancelled if the
	// connection recovers before it fires.
	teardown *time.Timer
}

// newPeer creates the state machine and registers transport hooks. When
// initiate is set (this side discovered the remote) and the transport is
// not already mid-negotiation, it synthesizes and sends the offer.
func newPeer(id, username string, transport rtc.Transport, tracks []webrtc.TrackLocal, initiate bool, deps peerDeps) *Peer {
	p := &Peer{
		id:        id,
		username:  username,
		transport: transport,
		deps:      deps,
		state:     StateNew,
	}

	for _, track := range tracks {
		if err := transport.AddTrack(track); err != nil {
			deps.logger.Warn("attach local track", zap.String("peer", id), zap.Error(err))
		}
	}

	transport.OnICECandidate(func(init webrtc.ICECandidateInit) {
		deps.schedule(func() { p.onLocalCandidate(init) })
	})
	transport.OnTrack(func(track *webrtc.TrackRemote) {
		deps.schedule(func() {
			if p.state == StateClosed {
				return
			}
			deps.events.RemoteTrack(p.id, track)
		})
	})
	transport.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		deps.schedule(func() { p.onConnectionStateChange(state) })
	})
	transport.OnControl(func(msg rtc.ControlMessage) {
		deps.schedule(func() {
			if p.state == StateClosed {
				return
			}
			deps.events.PeerState(p.id, msg)
		})
	})

	if initiate && transport.SignalingState() == webrtc.SignalingStateStable {
		p.sendOffer()
	}

	return p
}

func (p *Peer) sendOffer() {
	if err := p.transport.OpenControl(); err != nil {
		p.deps.logger.Warn("open control channel", zap.String("peer", p.id), zap.Error(err))
	}

	offer, err := p.transport.CreateOffer()
	if err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	raw, err := protocol.MarshalDescription(offer)
	if err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	p.state = StateOfferSent
	p.deps.send(protocol.NewSignal(p.id, protocol.SignalOffer, raw))
}

// handleSignal routes one negotiation envelope. Failures tear the peer
// down; they never propagate to the session.
func (p *Peer) handleSignal(env *protocol.Envelope) {
	if p.state == StateClosed {
		return
	}

	switch env.SignalType {
	case protocol.SignalOffer:
		p.handleOffer(env)
	case protocol.SignalAnswer:
		p.handleAnswer(env)
	case protocol.SignalCandidate:
		p.handleCandidate(env)
	default:
		p.deps.logger.Debug("unknown signal type",
			zap.String("peer", p.id), zap.String("signal_type", env.SignalType))
	}
}

func (p *Peer) handleOffer(env *protocol.Envelope) {
	desc, err := protocol.UnmarshalDescription(env.Signal, protocol.SignalOffer)
	if err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	if err := p.transport.SetRemoteDescription(desc); err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	p.remoteDescSet = true

	answer, err := p.transport.CreateAnswer()
	if err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	raw, err := protocol.MarshalDescription(answer)
	if err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	p.state = StateAnswerSent
	p.deps.send(protocol.NewSignal(p.id, protocol.SignalAnswer, raw))

	p.flushCandidates()
	p.state = StateStable
}

func (p *Peer) handleAnswer(env *protocol.Envelope) {
	desc, err := protocol.UnmarshalDescription(env.Signal, protocol.SignalAnswer)
	if err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	if err := p.transport.SetRemoteDescription(desc); err != nil {
		p.fail(fmt.Errorf("%w: %v", ErrNegotiationFailed, err))
		return
	}
	p.remoteDescSet = true
	p.flushCandidates()
	p.state = StateStable
}

func (p *Peer) handleCandidate(env *protocol.Envelope) {
	init, err := protocol.UnmarshalCandidate(env.Signal)
	if err != nil {
		p.deps.logger.Warn("malformed candidate", zap.String("peer", p.id), zap.Error(err))
		return
	}
	if !p.remoteDescSet {
		p.pendingCandidates = append(p.pendingCandidates, init)
		return
	}
	if err := p.transport.AddICECandidate(init); err != nil {
		p.deps.logger.Warn("apply candidate", zap.String("peer", p.id), zap.Error(err))
	}
}

// flushCandidates applies every candidate buffered before the remote
// description existed.
func (p *Peer) flushCandidates() {
	for _, init := range p.pendingCandidates {
		if err := p.transport.AddICECandidate(init); err != nil {
			p.deps.logger.Warn("apply buffered candidate", zap.String("peer", p.id), zap.Error(err))
		}
	}
	p.pendingCandidates = nil
}

// onLocalCandidate trickles a locally gathered candidate to the remote.
// Nothing is emitted once the peer is closed.
func (p *Peer) onLocalCandidate(init webrtc.ICECandidateInit) {
	if p.state == StateClosed {
		return
	}
	raw, err := protocol.MarshalCandidate(init)
	if err != nil {
		p.deps.logger.Warn("encode candidate", zap.String("peer", p.id), zap.Error(err))
		return
	}
	p.deps.send(protocol.NewSignal(p.id, protocol.SignalCandidate, raw))
}

// onConnectionStateChange schedules teardown after a grace delay when the
// transport degrades. Transient ICE renegotiation can pass through
// disconnected and come back, so the pending teardown is cancelled on
// recovery instead of racing a second close.
func (p *Peer) onConnectionStateChange(state webrtc.PeerConnectionState) {
	if p.state == StateClosed {
		return
	}
	p.lastConnState = state
	p.lastConnChange = time.Now()

	switch state {
	case webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateDisconnected,
		webrtc.PeerConnectionStateClosed:
		if p.teardown == nil {
			p.deps.logger.Info("peer connection degraded",
				zap.String("peer", p.id), zap.String("state", state.String()),
				zap.Duration("grace", p.deps.teardownGrace))
			p.teardown = time.AfterFunc(p.deps.teardownGrace, func() {
				p.deps.schedule(p.graceExpired)
			})
		}

	case webrtc.PeerConnectionStateConnected:
		if p.teardown != nil {
			p.teardown.Stop()
			p.teardown = nil
			p.deps.logger.Info("peer connection recovered", zap.String("peer", p.id))
		}
	}
}

// graceExpired runs on the loop after the teardown delay. The state is
// re-checked: a recovery that raced the timer wins.
func (p *Peer) graceExpired() {
	if p.state == StateClosed || p.teardown == nil {
		return
	}
	switch p.lastConnState {
	case webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateDisconnected,
		webrtc.PeerConnectionStateClosed:
		p.deps.logger.Info("peer did not recover, tearing down", zap.String("peer", p.id))
		p.close()
		p.deps.remove()
	default:
		p.teardown = nil
	}
}

// replaceVideoTrack swaps the outgoing video on the live session. Failure
// is a warning, not a teardown: the peer keeps receiving the old track.
func (p *Peer) replaceVideoTrack(track webrtc.TrackLocal) {
	if p.state == StateClosed {
		return
	}
	if err := p.transport.ReplaceVideoTrack(track); err != nil {
		p.deps.logger.Warn("replace video track", zap.String("peer", p.id), zap.Error(err))
	}
}

// sendState ships the local mute/source state over the control channel.
func (p *Peer) sendState(msg rtc.ControlMessage) {
	if p.state == StateClosed {
		return
	}
	if err := p.transport.SendControl(msg); err != nil {
		p.deps.logger.Debug("send control state", zap.String("peer", p.id), zap.Error(err))
	}
}

// fail logs a terminal negotiation error and tears the peer down.
func (p *Peer) fail(err error) {
	p.deps.logger.Warn("peer negotiation failed", zap.String("peer", p.id), zap.Error(err))
	p.close()
	p.deps.remove()
}

// close releases the transport session. Idempotent; late async completions
// find state Closed and give up.
func (p *Peer) close() {
	if p.state == StateClosed {
		return
	}
	p.state = StateClosed
	if p.teardown != nil {
		p.teardown.Stop()
		p.teardown = nil
	}
	if err := p.transport.Close(); err != nil {
		p.deps.logger.Debug("close transport", zap.String("peer", p.id), zap.Error(err))
	}
}

// State exposes the negotiation state for tests and status surfaces.
func (p *Peer) State() NegotiationState { return p.state }
