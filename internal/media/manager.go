package media

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
)

// Manager owns the local outgoing track set: at most one audio source and
// at most one video-producing source (camera or screen) at a time.
type Manager struct {
	capturer Capturer
	logger   *zap.Logger

	mu          sync.Mutex
	audio       Source
	video       Source
	videoKind   string // rtc.SourceCamera, rtc.SourceScreen or rtc.SourceNone
	hadCamera   bool
	onSwitched  func(track webrtc.TrackLocal, kind string)
	onStateSent func(state rtc.ControlMessage)
}

// NewManager wires the capture collaborator.
func NewManager(capturer Capturer, logger *zap.Logger) *Manager {
	return &Manager{
		capturer:  capturer,
		logger:    logger,
		videoKind: rtc.SourceNone,
	}
}

// OnVideoSwitched registers the fan-out hook the room coordinator uses to
// propagate a replaced video track to every peer.
func (m *Manager) OnVideoSwitched(fn func(track webrtc.TrackLocal, kind string)) {
	m.mu.Lock()
	m.onSwitched = fn
	m.mu.Unlock()
}

// OnStateChanged registers the hook for broadcasting mute/source state to
// peers over their control channels.
func (m *Manager) OnStateChanged(fn func(state rtc.ControlMessage)) {
	m.mu.Lock()
	m.onStateSent = fn
	m.mu.Unlock()
}

// Acquire grabs camera and microphone, falling back to audio-only and then
// to no local source at all. It never returns an error: a device failure
// must not prevent the room join from completing. The returned string
// describes the degradation for a one-time user notice, empty when the full
// pair was acquired.
func (m *Manager) Acquire() string {
	audio, video, err := m.capturer.CameraAndMic()
	if err == nil {
		m.mu.Lock()
		m.audio = audio
		m.video = video
		m.videoKind = rtc.SourceCamera
		m.hadCamera = true
		m.mu.Unlock()
		return ""
	}
	m.logger.Warn("camera acquisition failed, trying audio only", zap.Error(err))

	audio, micErr := m.capturer.Mic()
	if micErr == nil {
		m.mu.Lock()
		m.audio = audio
		m.videoKind = rtc.SourceNone
		m.mu.Unlock()
		return "camera unavailable, joined with audio only"
	}
	m.logger.Warn("microphone acquisition failed, joining without local media", zap.Error(micErr))
	return "no capture devices available, joined without local media"
}

// Tracks returns the current outgoing tracks for attaching to a new peer
// session.
func (m *Manager) Tracks() []webrtc.TrackLocal {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tracks []webrtc.TrackLocal
	if m.audio != nil {
		tracks = append(tracks, m.audio.Track())
	}
	if m.video != nil {
		tracks = append(tracks, m.video.Track())
	}
	return tracks
}

// ToggleAudio flips the microphone's enabled flag and reports the new
// state. Mute, not remove: the track stays attached to every peer.
func (m *Manager) ToggleAudio() bool {
	return m.toggle(func() Source {
		return m.audio
	})
}

// ToggleVideo flips the video source's enabled flag and reports the new
// state.
func (m *Manager) ToggleVideo() bool {
	return m.toggle(func() Source {
		return m.video
	})
}

func (m *Manager) toggle(pick func() Source) bool {
	m.mu.Lock()
	src := pick()
	if src == nil {
		m.mu.Unlock()
		return false
	}
	enabled := !src.Enabled()
	src.SetEnabled(enabled)
	m.mu.Unlock()

	m.notifyState()
	return enabled
}

// StartScreenShare acquires a screen source and atomically switches the
// outgoing video to it. ErrUserCancelled aborts the switch with the camera
// untouched.
func (m *Manager) StartScreenShare() error {
	screen, err := m.capturer.Screen()
	if err != nil {
		if errors.Is(err, ErrUserCancelled) {
			return ErrUserCancelled
		}
		return fmt.Errorf("acquire screen: %w", err)
	}

	// External termination (browser/OS stop button) reverts to the camera.
	screen.OnEnded(func() {
		m.logger.Info("screen share ended externally, reverting to camera")
		m.StopScreenShare()
	})

	m.switchVideo(screen, rtc.SourceScreen)
	return nil
}

// StopScreenShare reverts to a camera source when one was ever available,
// otherwise to no video.
func (m *Manager) StopScreenShare() {
	m.mu.Lock()
	if m.videoKind != rtc.SourceScreen {
		m.mu.Unlock()
		return
	}
	hadCamera := m.hadCamera
	m.mu.Unlock()

	if !hadCamera {
		m.switchVideo(nil, rtc.SourceNone)
		return
	}

	camera, err := m.capturer.Camera()
	if err != nil {
		m.logger.Warn("camera reacquisition failed after screen share", zap.Error(err))
		m.switchVideo(nil, rtc.SourceNone)
		return
	}
	m.switchVideo(camera, rtc.SourceCamera)
}

// switchVideo replaces the active video source. The new source is published
// to peers before the old device is released, so observers never see two
// advertised video tracks, and never a gap.
func (m *Manager) switchVideo(next Source, kind string) {
	m.mu.Lock()
	prev := m.video
	m.video = next
	m.videoKind = kind
	fn := m.onSwitched
	m.mu.Unlock()

	if fn != nil {
		var track webrtc.TrackLocal
		if next != nil {
			track = next.Track()
		}
		fn(track, kind)
	}

	if prev != nil && prev != next {
		prev.Stop()
	}

	m.notifyState()
}

// State summarizes the local mute/source flags for the peer control
// channel.
func (m *Manager) State() rtc.ControlMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := rtc.ControlMessage{
		Kind:        rtc.ControlKindState,
		VideoSource: m.videoKind,
	}
	if m.audio != nil {
		msg.AudioMuted = !m.audio.Enabled()
	}
	if m.video != nil {
		msg.VideoMuted = !m.video.Enabled()
	} else {
		msg.VideoSource = rtc.SourceNone
	}
	return msg
}

func (m *Manager) notifyState() {
	m.mu.Lock()
	fn := m.onStateSent
	m.mu.Unlock()
	if fn != nil {
		fn(m.State())
	}
}

// Release stops every source. Called on leave.
func (m *Manager) Release() {
	m.mu.Lock()
	audio, video := m.audio, m.video
	m.audio, m.video = nil, nil
	m.videoKind = rtc.SourceNone
	m.mu.Unlock()

	if audio != nil {
		audio.Stop()
	}
	if video != nil {
		video.Stop()
	}
}
