// Package sink is the PortAudio-backed host audio sink: the out-of-
// scope "host audio device" collaborator from spec.md §2/§6,
// implemented concretely here using the teacher's own PortAudio
// wiring, adapted from an input-capture device to an output stream
// that the mixer drives via FrameCallback.
package sink

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/jsm174/libaltsound/internal/mixer"
)

// Device describes one PortAudio device, mirroring the teacher's
// device listing shape but reporting only the fields relevant to
// choosing an output device.
type Device struct {
	ID                int
	Name              string
	MaxOutputChannels int
	DefaultSampleRate float64
}

// Initialize sets up the PortAudio subsystem. Must be paired with a
// Terminate call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("sink: initialize portaudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("sink: terminate portaudio: %w", err)
	}
	return nil
}

// Devices lists every PortAudio device that exposes at least one
// output channel.
func Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("sink: list devices: %w", err)
	}
	var out []Device
	for i, info := range infos {
		if info.MaxOutputChannels == 0 {
			continue
		}
		out = append(out, Device{
			ID:                i,
			Name:              info.Name,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	return out, nil
}

// outputDevice resolves deviceID to a *portaudio.DeviceInfo, or the
// system default output device when deviceID is negative.
func outputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID < 0 {
		return portaudio.DefaultOutputDevice()
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID >= len(infos) {
		return nil, fmt.Errorf("sink: invalid device ID: %d", deviceID)
	}
	return infos[deviceID], nil
}

// Stream owns a live PortAudio output stream fed by the mixer.
type Stream struct {
	stream     *portaudio.Stream
	channels   int
	sampleRate int

	mu     sync.Mutex
	latest []float32
}

// Open starts a PortAudio output stream for deviceID (-1 for the
// system default) at the given rate/channels/buffer geometry. The
// returned Stream's FrameCallback should be installed on the mixer
// via Mixer.SetDeliveryCallback: each mix tick's buffer is stashed and
// copied into the PortAudio output buffer on the next pull.
func Open(deviceID, sampleRate, channels, bufferFrames int) (*Stream, error) {
	device, err := outputDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("sink: resolve output device: %w", err)
	}

	s := &Stream{channels: channels, sampleRate: sampleRate}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  device.DefaultLowOutputLatency,
		},
		FramesPerBuffer: bufferFrames,
		SampleRate:      float64(sampleRate),
	}

	stream, err := portaudio.OpenStream(params, s.writeNextBuffer)
	if err != nil {
		return nil, fmt.Errorf("sink: open stream: %w", err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		return nil, fmt.Errorf("sink: start stream: %w", err)
	}

	return s, nil
}

// writeNextBuffer is the PortAudio output callback: it copies
// whatever was last delivered by FrameCallback, or silence if nothing
// has arrived yet.
func (s *Stream) writeNextBuffer(out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latest) == len(out) {
		copy(out, s.latest)
	} else {
		for i := range out {
			out[i] = 0
		}
	}
}

// FrameCallback returns a mixer.FrameCallback suitable for
// Mixer.SetDeliveryCallback: it stashes the mixed buffer so the next
// PortAudio pull sees it.
func (s *Stream) FrameCallback() mixer.FrameCallback {
	return func(samples []float32, frameCount, sampleRate, channels int, user any) {
		s.mu.Lock()
		if cap(s.latest) < len(samples) {
			s.latest = make([]float32, len(samples))
		}
		s.latest = s.latest[:len(samples)]
		copy(s.latest, samples)
		s.mu.Unlock()
	}
}

// Close stops and releases the PortAudio stream.
func (s *Stream) Close() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return err
	}
	return s.stream.Close()
}
