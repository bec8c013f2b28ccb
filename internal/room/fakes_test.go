package room

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/media"
	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
)

// fakeTransport records every operation and enforces the engine's rule
// that candidates need a remote description first.
type fakeTransport struct {
	mu sync.Mutex

	tracks     []webrtc.TrackLocal
	replaced   []webrtc.TrackLocal
	localSet   bool
	remoteSet  bool
	applied    []webrtc.ICECandidateInit
	controlLog []rtc.ControlMessage
	closed     bool

	remoteErr error

	onCandidate func(webrtc.ICECandidateInit)
	onTrack     func(*webrtc.TrackRemote)
	onConnState func(webrtc.PeerConnectionState)
	onControl   func(rtc.ControlMessage)
}

func (f *fakeTransport) AddTrack(track webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, track)
	return nil
}

func (f *fakeTransport) ReplaceVideoTrack(track webrtc.TrackLocal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, track)
	return nil
}

func (f *fakeTransport) CreateOffer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localSet = true
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 fake offer\r\n"}, nil
}

func (f *fakeTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localSet = true
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 fake answer\r\n"}, nil
}

// SetRemoteDescription enforces the engine's signaling-state contract: a
// remote offer is rejected while a local offer is outstanding, and an
// answer makes no sense without one.
func (f *fakeTransport) SetRemoteDescription(desc webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remoteErr != nil {
		return f.remoteErr
	}
	if desc.Type == webrtc.SDPTypeOffer && f.localSet && !f.remoteSet {
		return errors.New("remote offer in have-local-offer state")
	}
	if desc.Type == webrtc.SDPTypeAnswer && !f.localSet {
		return errors.New("answer without a local offer")
	}
	f.remoteSet = true
	return nil
}

func (f *fakeTransport) AddICECandidate(init webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.remoteSet {
		return errors.New("candidate before remote description")
	}
	f.applied = append(f.applied, init)
	return nil
}

func (f *fakeTransport) SignalingState() webrtc.SignalingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.localSet && !f.remoteSet:
		return webrtc.SignalingStateHaveLocalOffer
	case f.remoteSet && !f.localSet:
		return webrtc.SignalingStateHaveRemoteOffer
	default:
		return webrtc.SignalingStateStable
	}
}

func (f *fakeTransport) OpenControl() error { return nil }

func (f *fakeTransport) SendControl(msg rtc.ControlMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controlLog = append(f.controlLog, msg)
	return nil
}

func (f *fakeTransport) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	f.mu.Lock()
	f.onCandidate = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnTrack(fn func(*webrtc.TrackRemote)) {
	f.mu.Lock()
	f.onTrack = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	f.mu.Lock()
	f.onConnState = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnControl(fn func(rtc.ControlMessage)) {
	f.mu.Lock()
	f.onControl = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) fireConnState(state webrtc.PeerConnectionState) {
	f.mu.Lock()
	fn := f.onConnState
	f.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

func (f *fakeTransport) fireCandidate(init webrtc.ICECandidateInit) {
	f.mu.Lock()
	fn := f.onCandidate
	f.mu.Unlock()
	if fn != nil {
		fn(init)
	}
}

func (f *fakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) AppliedCandidates() []webrtc.ICECandidateInit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), f.applied...)
}

func (f *fakeTransport) Replaced() []webrtc.TrackLocal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.TrackLocal(nil), f.replaced...)
}

// transportRegistry hands out fake transports in creation order.
type transportRegistry struct {
	mu      sync.Mutex
	created []*fakeTransport
}

func (r *transportRegistry) factory() (rtc.Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ft := &fakeTransport{}
	r.created = append(r.created, ft)
	return ft, nil
}

func (r *transportRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

func (r *transportRegistry) at(i int) *fakeTransport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created[i]
}

// fakeChannel is an in-memory signaling channel.
type fakeChannel struct {
	incoming chan *protocol.Envelope
	sent     chan *protocol.Envelope

	connectErr error

	mu     sync.Mutex
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		incoming: make(chan *protocol.Envelope, 64),
		sent:     make(chan *protocol.Envelope, 64),
	}
}

func (c *fakeChannel) Connect() error { return c.connectErr }

func (c *fakeChannel) Send(env *protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	c.sent <- env
	return nil
}

func (c *fakeChannel) Incoming() <-chan *protocol.Envelope { return c.incoming }

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.incoming)
}

func (c *fakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) push(env *protocol.Envelope) { c.incoming <- env }

// countingCapturer wraps the synthetic capturer and counts acquisitions.
type countingCapturer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCapturer) bump() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingCapturer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingCapturer) CameraAndMic() (media.Source, media.Source, error) {
	c.bump()
	return media.SyntheticCapturer{}.CameraAndMic()
}

func (c *countingCapturer) Mic() (media.Source, error) {
	c.bump()
	return media.SyntheticCapturer{}.Mic()
}

func (c *countingCapturer) Camera() (media.Source, error) {
	c.bump()
	return media.SyntheticCapturer{}.Camera()
}

func (c *countingCapturer) Screen() (media.Source, error) {
	c.bump()
	return media.SyntheticCapturer{}.Screen()
}

// recorder captures session events for assertions.
type recorder struct {
	mu       sync.Mutex
	joined   []string
	left     []string
	chats    []string
	statuses []string
	states   map[string]rtc.ControlMessage
}

func newRecorder() *recorder {
	return &recorder{states: make(map[string]rtc.ControlMessage)}
}

func (r *recorder) RoomJoined(string, []protocol.User) {}

func (r *recorder) UserJoined(id, _ string) {
	r.mu.Lock()
	r.joined = append(r.joined, id)
	r.mu.Unlock()
}

func (r *recorder) UserLeft(id, _ string) {
	r.mu.Lock()
	r.left = append(r.left, id)
	r.mu.Unlock()
}

func (r *recorder) Chat(_, _, text, _ string) {
	r.mu.Lock()
	r.chats = append(r.chats, text)
	r.mu.Unlock()
}

func (r *recorder) PeerState(id string, state rtc.ControlMessage) {
	r.mu.Lock()
	r.states[id] = state
	r.mu.Unlock()
}

func (r *recorder) RemoteTrack(string, *webrtc.TrackRemote) {}

func (r *recorder) Status(message string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, message)
	r.mu.Unlock()
}

func (r *recorder) lastChat() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.chats) == 0 {
		return ""
	}
	return r.chats[len(r.chats)-1]
}

// testSession builds a session over fakes and joins room r1.
func testSession(t *testing.T, clientID string) (*Session, *fakeChannel, *transportRegistry, *recorder) {
	t.Helper()

	reg := &transportRegistry{}
	ch := newFakeChannel()
	rec := newRecorder()
	mgr := media.NewManager(media.SyntheticCapturer{}, zap.NewNop())

	s := NewSession(clientID, mgr, rec, reg.factory,
		func(func() *protocol.Envelope, func() bool) Channel { return ch },
		zap.NewNop())
	s.grace = 50 * time.Millisecond

	if err := s.Join("r1", "User "+clientID); err != nil {
		t.Fatalf("Join: %v", err)
	}
	t.Cleanup(s.Leave)
	return s, ch, reg, rec
}

// awaitSent pulls the next envelope of the wanted type, skipping chatter
// like parked control state, and failing after two seconds.
func awaitSent(t *testing.T, ch *fakeChannel, envType, signalType string) *protocol.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-ch.sent:
			if env.Type != envType {
				continue
			}
			if signalType != "" && env.SignalType != signalType {
				continue
			}
			return env
		case <-deadline:
			t.Fatalf("no %s/%s envelope sent", envType, signalType)
		}
	}
}

// expectNoSignal asserts no signal envelope goes out within the window.
func expectNoSignal(t *testing.T, ch *fakeChannel, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case env := <-ch.sent:
			if env.Type == protocol.TypeSignal {
				t.Fatalf("unexpected signal envelope: %+v", env)
			}
		case <-deadline:
			return
		}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
