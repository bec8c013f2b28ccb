package rtc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/config"
)

const controlChannelLabel = "control"

// ErrNoVideoSender is returned by ReplaceVideoTrack when the session never
// negotiated an outgoing video track.
var ErrNoVideoSender = errors.New("no outgoing video track on session")

// Pion is the production Transport backed by a pion PeerConnection.
type Pion struct {
	pc     *webrtc.PeerConnection
	logger *zap.Logger

	mu        sync.Mutex
	control   *webrtc.DataChannel
	pending   *ControlMessage
	onControl func(msg ControlMessage)

	// videoSender is remembered when the video track is added. Looking it
	// up by the sender's current track would lose it after a replace with
	// nil (video source gone).
	videoSender *webrtc.RTPSender
}

// NewPion creates a peer connection with the configured ICE servers.
func NewPion(cfg *config.Config, logger *zap.Logger) (*Pion, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: ICEServers(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Pion{pc: pc, logger: logger}

	// The answering side adopts the offerer's control channel.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != controlChannelLabel {
			return
		}
		p.attachControl(dc)
	})

	return p, nil
}

func (p *Pion) AddTrack(track webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return fmt.Errorf("add %s track: %w", track.Kind(), err)
	}
	if track.Kind() == webrtc.RTPCodecTypeVideo {
		p.mu.Lock()
		p.videoSender = sender
		p.mu.Unlock()
	}
	return nil
}

func (p *Pion) ReplaceVideoTrack(track webrtc.TrackLocal) error {
	p.mu.Lock()
	sender := p.videoSender
	p.mu.Unlock()
	if sender == nil {
		return ErrNoVideoSender
	}
	if err := sender.ReplaceTrack(track); err != nil {
		return fmt.Errorf("replace video track: %w", err)
	}
	return nil
}

func (p *Pion) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return *p.pc.LocalDescription(), nil
}

func (p *Pion) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return *p.pc.LocalDescription(), nil
}

func (p *Pion) SetRemoteDescription(desc webrtc.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (p *Pion) AddICECandidate(init webrtc.ICECandidateInit) error {
	if err := p.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}
	return nil
}

func (p *Pion) SignalingState() webrtc.SignalingState {
	return p.pc.SignalingState()
}

// OpenControl creates the control channel. Must run before CreateOffer so
// the SCTP association lands in the SDP.
func (p *Pion) OpenControl() error {
	ordered := true
	dc, err := p.pc.CreateDataChannel(controlChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return fmt.Errorf("create control channel: %w", err)
	}
	p.attachControl(dc)
	return nil
}

func (p *Pion) attachControl(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.control = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		p.mu.Lock()
		pending := p.pending
		p.pending = nil
		p.mu.Unlock()
		if pending != nil {
			if err := p.SendControl(*pending); err != nil {
				p.logger.Debug("flush pending control message", zap.Error(err))
			}
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		decoded, err := DecodeControl(msg.Data)
		if err != nil {
			p.logger.Debug("bad control message", zap.Error(err))
			return
		}
		p.mu.Lock()
		fn := p.onControl
		p.mu.Unlock()
		if fn != nil {
			fn(decoded)
		}
	})
}

// SendControl ships the message if the channel is open, otherwise parks it
// to be flushed on open. Only the latest parked message survives.
func (p *Pion) SendControl(msg ControlMessage) error {
	p.mu.Lock()
	dc := p.control
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		p.pending = &msg
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	data, err := EncodeControl(msg)
	if err != nil {
		return err
	}
	if err := dc.Send(data); err != nil {
		return fmt.Errorf("send control message: %w", err)
	}
	return nil
}

func (p *Pion) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		fn(c.ToJSON())
	})
}

func (p *Pion) OnTrack(fn func(track *webrtc.TrackRemote)) {
	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(track)
	})
}

func (p *Pion) OnConnectionStateChange(fn func(state webrtc.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(fn)
}

func (p *Pion) OnControl(fn func(msg ControlMessage)) {
	p.mu.Lock()
	p.onControl = fn
	p.mu.Unlock()
}

func (p *Pion) Close() error {
	return p.pc.Close()
}
