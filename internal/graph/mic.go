// SPDX-License-Identifier: MIT
package graph

import (
	"github.com/gordonklaus/portaudio"

	"stemscope/internal/analyzer"
	applog "stemscope/internal/log"
)

// micCapture wraps the live input stream. The microphone routes into its
// analyzer only; it never joins the output mix, which would otherwise feed
// the capture back through the speakers.
type micCapture struct {
	stream *portaudio.Stream
	anlz   *analyzer.Analyzer
	gate   float64   // amplitude threshold below which frames are dropped, 0 disables
	mono   []float64 // scratch conversion buffer
}

// StartMicrophone opens a raw capture stream on the configured input device
// and binds an analyzer to it. PortAudio delivers the unprocessed device
// signal, so measured features reflect the raw input with no echo
// cancellation, noise suppression, or automatic gain.
//
// Returns false on permission or device failure; the caller treats that as
// "no microphone this session", not a fatal condition.
func (m *Manager) StartMicrophone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	if m.mic != nil {
		return true
	}

	a, err := analyzer.New(analyzer.RoleMicrophone, m.cfg.Audio.SampleRate, m.cfg.Analysis)
	if err != nil {
		applog.Errorf("Graph: microphone analyzer: %v", err)
		return false
	}

	mic := &micCapture{
		anlz: a,
		gate: m.cfg.Audio.MicGate,
		mono: make([]float64, m.cfg.Audio.FramesPerBuffer),
	}

	device, err := InputDevice(m.cfg.Audio.InputDevice)
	if err != nil {
		applog.Warnf("Graph: microphone unavailable: %v", err)
		return false
	}

	latency := device.DefaultHighInputLatency
	if m.cfg.Audio.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  latency,
		},
		SampleRate:      m.cfg.Audio.SampleRate,
		FramesPerBuffer: m.cfg.Audio.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, mic.capture)
	if err != nil {
		applog.Warnf("Graph: failed to open microphone stream: %v", err)
		return false
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		applog.Warnf("Graph: failed to start microphone stream: %v", err)
		return false
	}

	mic.stream = stream
	m.mic = mic
	m.analyzers[analyzer.RoleMicrophone] = a
	applog.Infof("Graph: microphone capture started on %q", device.Name)
	return true
}

// capture is the input-stream callback: gate out near-silent frames, widen
// to float64, and feed the analyzer taps (same signal on both channels).
func (c *micCapture) capture(in []float32) {
	if c.gate > 0 {
		var peak float32
		for _, s := range in {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
		if float64(peak) <= c.gate {
			return
		}
	}

	n := len(in)
	if n > len(c.mono) {
		n = len(c.mono)
	}
	for i := 0; i < n; i++ {
		c.mono[i] = float64(in[i])
	}
	c.anlz.Feed(c.mono[:n], c.mono[:n])
}

// StopMicrophone stops and releases the capture stream and removes its
// analyzer. Safe to call when no microphone is active.
func (m *Manager) StopMicrophone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopMicLocked()
}

func (m *Manager) stopMicLocked() {
	if m.mic == nil {
		return
	}
	if m.mic.stream != nil {
		if err := m.mic.stream.Stop(); err != nil {
			applog.Debugf("Graph: microphone stream stop: %v", err)
		}
		if err := m.mic.stream.Close(); err != nil {
			applog.Debugf("Graph: microphone stream close: %v", err)
		}
	}
	m.mic = nil
	delete(m.analyzers, analyzer.RoleMicrophone)
	applog.Infof("Graph: microphone capture stopped")
}
