package media

import (
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
)

type fakeSource struct {
	track *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	enabled bool
	stopped bool
	onEnded func()
}

func newFakeSource(t *testing.T, kind webrtc.RTPCodecType, id string) *fakeSource {
	t.Helper()
	mime := webrtc.MimeTypeVP8
	if kind == webrtc.RTPCodecTypeAudio {
		mime = webrtc.MimeTypeOpus
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime, ClockRate: 48000, Channels: 2}, id, "fake")
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	return &fakeSource{track: track, enabled: true}
}

func (f *fakeSource) Track() webrtc.TrackLocal { return f.track }

func (f *fakeSource) SetEnabled(enabled bool) {
	f.mu.Lock()
	f.enabled = enabled
	f.mu.Unlock()
}

func (f *fakeSource) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeSource) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeSource) OnEnded(fn func()) {
	f.mu.Lock()
	f.onEnded = fn
	f.mu.Unlock()
}

func (f *fakeSource) endExternally() {
	f.Stop()
	f.mu.Lock()
	fn := f.onEnded
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeCapturer struct {
	t *testing.T

	camMicErr error
	micErr    error
	cameraErr error
	screenErr error

	cameras int
	screens []*fakeSource
}

func (f *fakeCapturer) CameraAndMic() (Source, Source, error) {
	if f.camMicErr != nil {
		return nil, nil, f.camMicErr
	}
	f.cameras++
	return newFakeSource(f.t, webrtc.RTPCodecTypeAudio, "mic"),
		newFakeSource(f.t, webrtc.RTPCodecTypeVideo, "cam"), nil
}

func (f *fakeCapturer) Mic() (Source, error) {
	if f.micErr != nil {
		return nil, f.micErr
	}
	return newFakeSource(f.t, webrtc.RTPCodecTypeAudio, "mic"), nil
}

func (f *fakeCapturer) Camera() (Source, error) {
	if f.cameraErr != nil {
		return nil, f.cameraErr
	}
	f.cameras++
	return newFakeSource(f.t, webrtc.RTPCodecTypeVideo, "cam"), nil
}

func (f *fakeCapturer) Screen() (Source, error) {
	if f.screenErr != nil {
		return nil, f.screenErr
	}
	s := newFakeSource(f.t, webrtc.RTPCodecTypeVideo, "screen")
	f.screens = append(f.screens, s)
	return s, nil
}

func TestAcquireFallsBackToAudioOnly(t *testing.T) {
	cap := &fakeCapturer{t: t, camMicErr: ErrDeviceUnavailable}
	m := NewManager(cap, zap.NewNop())

	notice := m.Acquire()
	if notice == "" {
		t.Fatal("expected a degradation notice")
	}
	tracks := m.Tracks()
	if len(tracks) != 1 || tracks[0].Kind() != webrtc.RTPCodecTypeAudio {
		t.Fatalf("tracks=%v, want exactly one audio track", tracks)
	}
}

func TestAcquireNeverBlocksJoinWithoutDevices(t *testing.T) {
	cap := &fakeCapturer{t: t, camMicErr: ErrDeviceUnavailable, micErr: ErrDeviceUnavailable}
	m := NewManager(cap, zap.NewNop())

	if notice := m.Acquire(); notice == "" {
		t.Fatal("expected a degradation notice")
	}
	if tracks := m.Tracks(); len(tracks) != 0 {
		t.Fatalf("tracks=%v, want none", tracks)
	}
	if got := m.State().VideoSource; got != rtc.SourceNone {
		t.Fatalf("video source=%q, want none", got)
	}
}

func TestToggleAudioMutesWithoutRemoving(t *testing.T) {
	cap := &fakeCapturer{t: t}
	m := NewManager(cap, zap.NewNop())
	m.Acquire()

	var states []rtc.ControlMessage
	m.OnStateChanged(func(state rtc.ControlMessage) {
		states = append(states, state)
	})

	if enabled := m.ToggleAudio(); enabled {
		t.Fatal("first toggle should mute")
	}
	if len(m.Tracks()) != 2 {
		t.Fatal("mute removed a track")
	}
	if len(states) != 1 || !states[0].AudioMuted {
		t.Fatalf("states=%v, want one with AudioMuted", states)
	}

	if enabled := m.ToggleAudio(); !enabled {
		t.Fatal("second toggle should unmute")
	}
}

func TestScreenShareSwitchIsAtomicAndReleasesCamera(t *testing.T) {
	cap := &fakeCapturer{t: t}
	m := NewManager(cap, zap.NewNop())
	m.Acquire()

	camera := m.video.(*fakeSource)

	var switchedKind string
	var cameraStoppedAtSwitch bool
	m.OnVideoSwitched(func(track webrtc.TrackLocal, kind string) {
		switchedKind = kind
		if track == nil {
			t.Fatal("switch published a nil track")
		}
		// The old device is released only after the replacement is
		// published; observers never see a video gap.
		cameraStoppedAtSwitch = camera.Stopped()
	})

	if err := m.StartScreenShare(); err != nil {
		t.Fatalf("StartScreenShare: %v", err)
	}
	if switchedKind != rtc.SourceScreen {
		t.Fatalf("switched kind=%q, want screen", switchedKind)
	}
	if cameraStoppedAtSwitch {
		t.Fatal("camera was stopped before the replacement was published")
	}
	if !camera.Stopped() {
		t.Fatal("camera not released after the swap")
	}
	if got := m.State().VideoSource; got != rtc.SourceScreen {
		t.Fatalf("state source=%q, want screen", got)
	}
}

func TestScreenShareCancelledLeavesCameraUntouched(t *testing.T) {
	cap := &fakeCapturer{t: t, screenErr: ErrUserCancelled}
	m := NewManager(cap, zap.NewNop())
	m.Acquire()

	if err := m.StartScreenShare(); !errors.Is(err, ErrUserCancelled) {
		t.Fatalf("StartScreenShare=%v, want ErrUserCancelled", err)
	}
	if got := m.State().VideoSource; got != rtc.SourceCamera {
		t.Fatalf("state source=%q, want camera", got)
	}
}

func TestExternalScreenEndRevertsToCamera(t *testing.T) {
	cap := &fakeCapturer{t: t}
	m := NewManager(cap, zap.NewNop())
	m.Acquire()

	if err := m.StartScreenShare(); err != nil {
		t.Fatalf("StartScreenShare: %v", err)
	}
	before := cap.cameras

	cap.screens[0].endExternally()

	if cap.cameras != before+1 {
		t.Fatal("camera not reacquired after external screen end")
	}
	if got := m.State().VideoSource; got != rtc.SourceCamera {
		t.Fatalf("state source=%q, want camera", got)
	}
}

func TestReleaseStopsEverySource(t *testing.T) {
	cap := &fakeCapturer{t: t}
	m := NewManager(cap, zap.NewNop())
	m.Acquire()

	audio := m.audio.(*fakeSource)
	video := m.video.(*fakeSource)

	m.Release()
	if !audio.Stopped() || !video.Stopped() {
		t.Fatal("sources survived Release")
	}
	if tracks := m.Tracks(); len(tracks) != 0 {
		t.Fatalf("tracks=%v, want none after Release", tracks)
	}
}
