// SPDX-License-Identifier: MIT
/*
Package graph owns the audio processing graph: decoded stem sources, the
live microphone source, the shared playback output stream, and the
per-source analyzers.

Routing:
  - stem source -> gain -> output mix (audible playback)
  - stem source -> analyzer taps (inspection)
  - microphone  -> analyzer taps only, never the output mix

All stem sources are mixed from a single global sample cursor, so sources
started together stay sample-aligned. The scheduler only reads analyzers;
the graph is the sole owner of streams and source buffers. Shutdown
contract: cancel the scheduler first, then call Cleanup.
*/
package graph

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"stemscope/internal/analyzer"
	"stemscope/internal/config"
	applog "stemscope/internal/log"
)

// source is one stem wired into the graph: its decoded samples, its gain,
// and the cursor position it started at.
type source struct {
	role  analyzer.Role
	left  []float64
	right []float64
	gain  float64 // 0 (muted) or 1

	// startedAt is the global cursor value when playback first began.
	// -1 until started; identical across sources started together.
	startedAt int64

	// Per-source scratch frames reused by the mix callback.
	frameL []float64
	frameR []float64
}

// Manager owns the audio graph. All exported methods are safe for
// concurrent use and degrade to no-ops after Cleanup.
type Manager struct {
	cfg *config.Config

	mu        sync.Mutex
	sources   map[analyzer.Role]*source
	analyzers map[analyzer.Role]*analyzer.Analyzer

	output  *portaudio.Stream
	started bool  // playback has begun at least once
	playing bool  // currently advancing the cursor
	cursor  int64 // global sample clock shared by every stem source

	mic *micCapture

	closed bool
}

// NewManager creates an empty graph manager. Sources are added by
// LoadStems and StartMicrophone.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:       cfg,
		sources:   make(map[analyzer.Role]*source),
		analyzers: make(map[analyzer.Role]*analyzer.Analyzer),
	}
}

// Analyzers returns the current role->analyzer view for the scheduler.
// The returned map is a copy; the analyzers themselves are shared.
func (m *Manager) Analyzers() map[analyzer.Role]*analyzer.Analyzer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[analyzer.Role]*analyzer.Analyzer, len(m.analyzers))
	for role, a := range m.analyzers {
		out[role] = a
	}
	return out
}

// SetMuted sets the source's gain to 0 or 1. Muting never removes the
// analyzer: feature extraction continues so consumers can keep showing
// history for muted stems. Unknown roles are ignored.
func (m *Manager) SetMuted(role analyzer.Role, muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	src, ok := m.sources[role]
	if !ok {
		return
	}
	if muted {
		src.gain = 0
	} else {
		src.gain = 1
	}
}

// Play starts (or resumes) synchronized playback of all stem sources. The
// first call opens the output stream and stamps every not-yet-started
// source with the same cursor position, so all stems join sample-accurately.
func (m *Manager) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	if m.output == nil {
		stream, err := portaudio.OpenDefaultStream(
			0, 2, m.cfg.Audio.SampleRate, m.cfg.Audio.FramesPerBuffer, m.mixCallback)
		if err != nil {
			return err
		}
		m.output = stream
		if err := stream.Start(); err != nil {
			stream.Close()
			m.output = nil
			return err
		}
	}

	m.beginPlayback()
	return nil
}

// beginPlayback does the clock bookkeeping for Play, separated from the
// stream plumbing so the synchronization contract is testable offline.
// Every unstamped source joins at the current cursor, so a batch loaded
// together shares one timestamp and a stem loaded after playback began gets
// a defined join point on the next Play. Stamped sources are never restamped.
func (m *Manager) beginPlayback() {
	joined := 0
	for _, src := range m.sources {
		if src.startedAt < 0 {
			src.startedAt = m.cursor
			joined++
		}
	}
	if joined > 0 {
		applog.Infof("Graph: %d sources joined playback at sample %d", joined, m.cursor)
	}
	m.started = true
	m.playing = true
}

// Pause stops advancing the global cursor. The output stream stays open
// and emits silence so a later Play resumes without re-priming the device.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

// Playing reports whether the cursor is currently advancing.
func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// mixCallback is the portaudio output callback: mix every audible stem at
// its gain from the shared cursor, feed every stem analyzer its own frame,
// and advance the clock. Runs on the audio thread; no allocations.
func (m *Manager) mixCallback(out [][]float32) {
	if len(out) == 0 {
		return
	}
	for ch := range out {
		for i := range out[ch] {
			out[ch][i] = 0
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.playing {
		return
	}

	frames := len(out[0])
	m.mixInto(out, frames)
	m.cursor += int64(frames)
}

// mixInto renders one buffer of playback from the current cursor. Callers
// hold m.mu.
func (m *Manager) mixInto(out [][]float32, frames int) {
	stereo := len(out) >= 2
	for _, src := range m.sources {
		if src.startedAt < 0 {
			continue // loaded but not yet joined to the clock
		}
		pos := m.cursor - src.startedAt
		for i := 0; i < frames; i++ {
			var l, r float64
			idx := pos + int64(i)
			if idx >= 0 && idx < int64(len(src.left)) {
				l = src.left[idx]
				r = src.right[idx]
			}
			src.frameL[i] = l
			src.frameR[i] = r
			if stereo {
				out[0][i] += float32(l * src.gain)
				out[1][i] += float32(r * src.gain)
			}
		}

		// Analyzer taps see the frame regardless of gain: muted sources
		// keep producing features.
		if a := m.analyzers[src.role]; a != nil {
			a.Feed(src.frameL[:frames], src.frameR[:frames])
		}
	}
}

// Cleanup tears the whole graph down: release the microphone, stop and
// close the output stream (tolerating already-stopped streams), drop all
// sources and analyzers. Idempotent and callable from any state; the
// scheduler must already be cancelled per the shutdown contract.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.playing = false

	m.stopMicLocked()

	if m.output != nil {
		// Stop can fail when the stream is already stopped; that is a
		// legitimate state during teardown, not an error.
		if err := m.output.Stop(); err != nil {
			applog.Debugf("Graph: output stream stop during cleanup: %v", err)
		}
		if err := m.output.Close(); err != nil {
			applog.Debugf("Graph: output stream close during cleanup: %v", err)
		}
		m.output = nil
	}

	m.sources = make(map[analyzer.Role]*source)
	m.analyzers = make(map[analyzer.Role]*analyzer.Analyzer)
	applog.Infof("Graph: cleaned up")
}

// SourceCount returns the number of live sources (stems plus microphone).
func (m *Manager) SourceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.analyzers)
}
