// Package padevice adapts github.com/gordonklaus/portaudio to the
// player.Device/player.Stream interfaces. It is the only package in this
// module that imports portaudio directly; the player package itself stays
// free of CGo so it can be unit tested with fakes (see player/fakes_test.go).
//
// Grounded on the teacher's audio.go, which opens PortAudio streams against
// a resolved device index and reports devices via portaudio.Devices(), and
// on the callback-style portaudio.OpenDefaultStream usage pattern found in
// the retrieval pack's livekit-agents-go PortAudio adapter. The teacher
// itself uses the blocking Read/Write style; this player needs per-callback
// DAC time and status flags, which only the callback style exposes.
package padevice

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/OHF-Voice/linux-voice-assistant/player"
)

// DeviceInfo describes one enumerable output device (adapted from the
// teacher's AudioDevice/listDevices).
type DeviceInfo struct {
	Index int
	Name  string
}

// ListOutputDevices returns every device with at least one output channel.
func ListOutputDevices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	var out []DeviceInfo
	for i, d := range devices {
		if d.MaxOutputChannels > 0 {
			out = append(out, DeviceInfo{Index: i, Name: d.Name})
		}
	}
	return out, nil
}

// Device opens real PortAudio output streams. deviceIndex selects a device
// by the index ListOutputDevices reports; nil selects the system default.
type Device struct {
	deviceIndex *int
}

// New returns a Device bound to the given device index (nil for default).
func New(deviceIndex *int) *Device {
	return &Device{deviceIndex: deviceIndex}
}

// OpenOutputStream implements player.Device.
func (d *Device) OpenOutputStream(sampleRate, channels, blockSizeFrames int, callback player.StreamCallback) (player.Stream, error) {
	outputDev, err := d.resolveDevice()
	if err != nil {
		return nil, fmt.Errorf("resolve output device: %w", err)
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outputDev,
			Channels: channels,
			Latency:  outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: blockSizeFrames,
	}

	paCallback := func(out []int16, timeInfo portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		buf := int16SliceAsBytes(out)
		callback(buf, player.Timing{
			OutputBufferDacUs: int64(timeInfo.OutputBufferDacTime * 1e6),
			HasDacTime:        timeInfo.OutputBufferDacTime > 0,
			Status:            translateStatus(flags),
		})
	}

	stream, err := portaudio.OpenStream(params, paCallback)
	if err != nil {
		return nil, fmt.Errorf("open portaudio output stream: %w", err)
	}
	return &Stream{stream: stream}, nil
}

func (d *Device) resolveDevice() (*portaudio.DeviceInfo, error) {
	if d.deviceIndex == nil {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	idx := *d.deviceIndex
	if idx < 0 || idx >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (have %d devices)", idx, len(devices))
	}
	return devices[idx], nil
}

func translateStatus(flags portaudio.StreamCallbackFlags) player.StatusFlags {
	var s player.StatusFlags
	if flags&portaudio.OutputUnderflow != 0 {
		s |= player.StatusOutputUnderflow
	}
	if flags&portaudio.OutputOverflow != 0 {
		s |= player.StatusOutputOverflow
	}
	if flags&portaudio.InputUnderflow != 0 {
		s |= player.StatusInputUnderflow
	}
	if flags&portaudio.InputOverflow != 0 {
		s |= player.StatusInputOverflow
	}
	return s
}

// int16SliceAsBytes reinterprets a PortAudio int16 output buffer as the
// little-endian byte buffer the player package operates on, without
// allocating or copying (spec invariant I5).
func int16SliceAsBytes(s []int16) []byte {
	return unsafeInt16ToBytes(s)
}

// Stream wraps a *portaudio.Stream to satisfy player.Stream.
type Stream struct {
	stream *portaudio.Stream
}

func (s *Stream) Start() error { return s.stream.Start() }
func (s *Stream) Stop() error  { return s.stream.Stop() }
func (s *Stream) Close() error { return s.stream.Close() }
