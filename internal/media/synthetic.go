package media

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Synthetic media parameters.
const (
	toneFrequency  = 440.0
	toneSampleRate = 8000
	toneAmplitude  = 8000
	frameDuration  = 100 * time.Millisecond
)

// generateSineWave produces a sine wave at the given frequency and duration
// as mono int16 PCM samples.
func generateSineWave(durationSec, frequency float64) []int16 {
	numSamples := int(durationSec * toneSampleRate)
	samples := make([]int16, numSamples)
	for i := range samples {
		t := float64(i) / toneSampleRate
		samples[i] = int16(toneAmplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return samples
}

// syntheticSource is a generated stand-in for a real capture device. The
// CLI runs headless, so camera/mic/screen are simulated: an audio source
// loops a test tone and video sources emit empty frames on a timer. The
// negotiation, mute and switching paths are identical to real capture.
type syntheticSource struct {
	track *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	enabled bool
	stopped bool
	onEnded func()
	stop    chan struct{}
}

func newSyntheticSource(codec webrtc.RTPCodecCapability, id, stream string, payload func() []byte) (*syntheticSource, error) {
	track, err := webrtc.NewTrackLocalStaticSample(codec, id, stream)
	if err != nil {
		return nil, err
	}
	s := &syntheticSource{
		track:   track,
		enabled: true,
		stop:    make(chan struct{}),
	}
	go s.feed(payload)
	return s, nil
}

// feed writes one sample per frame interval while the source is enabled.
func (s *syntheticSource) feed(payload func() []byte) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.Enabled() {
				continue
			}
			s.track.WriteSample(media.Sample{
				Data:     payload(),
				Duration: frameDuration,
			})
		}
	}
}

func (s *syntheticSource) Track() webrtc.TrackLocal { return s.track }

func (s *syntheticSource) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *syntheticSource) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *syntheticSource) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stop)
}

func (s *syntheticSource) OnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

// EndExternally simulates the user stopping the share through a control
// surface outside the application.
func (s *syntheticSource) EndExternally() {
	s.Stop()
	s.mu.Lock()
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SyntheticCapturer fabricates sources for headless operation and tests.
type SyntheticCapturer struct{}

func (SyntheticCapturer) CameraAndMic() (Source, Source, error) {
	audio, err := SyntheticCapturer{}.Mic()
	if err != nil {
		return nil, nil, err
	}
	video, err := SyntheticCapturer{}.Camera()
	if err != nil {
		audio.Stop()
		return nil, nil, err
	}
	return audio, video, nil
}

func (SyntheticCapturer) Mic() (Source, error) {
	tone := generateSineWave(frameDuration.Seconds(), toneFrequency)
	pcm := make([]byte, len(tone)*2)
	for i, sample := range tone {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}
	return newSyntheticSource(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMU, ClockRate: toneSampleRate},
		"audio", "synthetic",
		func() []byte { return pcm })
}

func (SyntheticCapturer) Camera() (Source, error) {
	return newSyntheticSource(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"camera", "synthetic",
		func() []byte { return []byte{0} })
}

func (SyntheticCapturer) Screen() (Source, error) {
	return newSyntheticSource(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"screen", "synthetic",
		func() []byte { return []byte{0} })
}
