// SPDX-License-Identifier: MIT
package graph

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"stemscope/internal/analyzer"
	"stemscope/internal/config"
	"stemscope/pkg/utils"
)

// writeTestWAV encodes a 16-bit WAV file with the given per-channel samples
// and returns an open read handle positioned at the start.
func writeTestWAV(t *testing.T, channels int, samples []float64) *os.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stem.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp wav: %v", err)
	}

	enc := wav.NewEncoder(f, config.DefaultSampleRate, 16, channels, 1)
	data := make([]int, len(samples)*channels)
	for i, s := range samples {
		v := int(s * 32767)
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: config.DefaultSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write wav data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}

	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen wav: %v", err)
	}
	t.Cleanup(func() { rf.Close() })
	return rf
}

// writeGarbageFile returns an open handle to a file that is not a WAV.
func writeGarbageFile(t *testing.T) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0644); err != nil {
		t.Fatalf("failed to write garbage file: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open garbage file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func newTestManager() *Manager {
	return NewManager(config.NewConfig())
}

func TestLoadStemsPartialSuccess(t *testing.T) {
	m := newTestManager()

	sine := utils.GenerateSineWave(config.DefaultSampleRate/10, config.DefaultSampleRate, 220)
	result := m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
		analyzer.RoleDrums:  writeGarbageFile(t),
	})

	if !result.Ok() {
		t.Fatal("expected partial success, got total failure")
	}
	if len(result.Loaded) != 1 || result.Loaded[0] != analyzer.RoleVocals {
		t.Errorf("loaded = %v, want [vocals]", result.Loaded)
	}
	if _, ok := result.Failed[analyzer.RoleDrums]; !ok {
		t.Error("expected drums in failed set")
	}
	if m.SourceCount() != 1 {
		t.Errorf("source count = %d, want exactly 1 active analyzer", m.SourceCount())
	}
	if _, ok := m.Analyzers()[analyzer.RoleVocals]; !ok {
		t.Error("expected an analyzer bound to the loaded stem")
	}
}

func TestLoadStemsOneAnalyzerPerSource(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(4096, config.DefaultSampleRate, 220)

	result := m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
		analyzer.RoleBass:   writeTestWAV(t, 1, sine),
		analyzer.RoleOther:  writeTestWAV(t, 2, sine),
	})

	if len(result.Loaded) != 3 {
		t.Fatalf("loaded %d stems, want 3 (failures: %v)", len(result.Loaded), result.Failed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sources) != len(m.analyzers) {
		t.Errorf("sources (%d) and analyzers (%d) out of step", len(m.sources), len(m.analyzers))
	}
	for role := range m.sources {
		if m.analyzers[role] == nil {
			t.Errorf("source %q has no analyzer", role)
		}
	}
}

func TestSynchronizedStart(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(4096, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
		analyzer.RoleBass:   writeTestWAV(t, 1, sine),
		analyzer.RoleDrums:  writeTestWAV(t, 2, sine),
	})

	m.mu.Lock()
	for role, src := range m.sources {
		if src.startedAt != -1 {
			t.Errorf("source %q started before Play (startedAt=%d)", role, src.startedAt)
		}
	}
	m.beginPlayback()

	var stamps []int64
	for _, src := range m.sources {
		stamps = append(stamps, src.startedAt)
	}
	m.mu.Unlock()

	if len(stamps) != 3 {
		t.Fatalf("expected 3 start timestamps, got %d", len(stamps))
	}
	for _, s := range stamps {
		if s != stamps[0] {
			t.Fatalf("start timestamps differ: %v", stamps)
		}
	}
}

func TestStartedAtMostOnce(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(4096, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
	})

	m.mu.Lock()
	m.beginPlayback()
	first := m.sources[analyzer.RoleVocals].startedAt
	m.cursor += 4096 // simulate elapsed playback
	m.playing = false
	m.beginPlayback() // resume must not restamp
	second := m.sources[analyzer.RoleVocals].startedAt
	m.mu.Unlock()

	if first != second {
		t.Errorf("source restamped on resume: %d then %d", first, second)
	}
}

func TestLateLoadedStemJoinsOnResume(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(4096, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
	})

	m.mu.Lock()
	m.beginPlayback()
	first := m.sources[analyzer.RoleVocals].startedAt
	m.cursor += 1000
	m.mu.Unlock()

	// A stem arriving after playback began has no timestamp yet.
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleDrums: writeTestWAV(t, 2, sine),
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if got := m.sources[analyzer.RoleDrums].startedAt; got != -1 {
		t.Fatalf("late stem stamped at %d before joining, want -1", got)
	}

	// The next Play gives it a defined join point at the current cursor
	// without restamping the earlier stem.
	m.beginPlayback()
	if got := m.sources[analyzer.RoleDrums].startedAt; got != 1000 {
		t.Errorf("late stem joined at %d, want 1000", got)
	}
	if got := m.sources[analyzer.RoleVocals].startedAt; got != first {
		t.Errorf("earlier stem restamped: %d then %d", first, got)
	}
}

func TestMixSkipsUnjoinedSource(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(8192, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
	})

	frames := m.cfg.Audio.FramesPerBuffer
	out := [][]float32{make([]float32, frames), make([]float32, frames)}

	// Mixing before any Play must not read from an unstamped source.
	m.mu.Lock()
	m.mixInto(out, frames)
	m.mu.Unlock()

	for i := range out[0] {
		if out[0][i] != 0 || out[1][i] != 0 {
			t.Fatal("unjoined source leaked into the output mix")
		}
	}
}

func TestMixToleratesNonStereoOutput(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(8192, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
	})

	frames := m.cfg.Audio.FramesPerBuffer
	mono := [][]float32{make([]float32, frames)}

	m.mu.Lock()
	m.beginPlayback()
	// One channel, then no channels at all: no write, no panic.
	m.mixInto(mono, frames)
	m.mixInto(nil, frames)
	m.mu.Unlock()

	// The analyzer taps are fed either way.
	snap := m.Analyzers()[analyzer.RoleVocals].Snapshot()
	if snap.Energy == 0 {
		t.Error("analyzer not fed when output is not stereo")
	}
}

func TestSetMutedKeepsAnalyzer(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(4096, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
	})

	m.SetMuted(analyzer.RoleVocals, true)
	m.mu.Lock()
	gain := m.sources[analyzer.RoleVocals].gain
	m.mu.Unlock()
	if gain != 0 {
		t.Errorf("muted gain = %g, want 0", gain)
	}
	if _, ok := m.Analyzers()[analyzer.RoleVocals]; !ok {
		t.Error("mute removed the analyzer; feature extraction must continue")
	}

	m.SetMuted(analyzer.RoleVocals, false)
	m.mu.Lock()
	gain = m.sources[analyzer.RoleVocals].gain
	m.mu.Unlock()
	if gain != 1 {
		t.Errorf("unmuted gain = %g, want 1", gain)
	}

	// Unknown role is a no-op, not a panic.
	m.SetMuted(analyzer.Role("unknown"), true)
}

func TestMixRespectsGainButFeedsAnalyzer(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(8192, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
	})
	m.SetMuted(analyzer.RoleVocals, true)

	frames := m.cfg.Audio.FramesPerBuffer
	out := [][]float32{make([]float32, frames), make([]float32, frames)}

	m.mu.Lock()
	m.beginPlayback()
	m.mixInto(out, frames)
	m.cursor += int64(frames)
	m.mu.Unlock()

	for i := range out[0] {
		if out[0][i] != 0 || out[1][i] != 0 {
			t.Fatal("muted source leaked into the output mix")
		}
	}

	// The analyzer still saw the frame: a snapshot carries real energy.
	snap := m.Analyzers()[analyzer.RoleVocals].Snapshot()
	if snap.Energy == 0 {
		t.Error("muted source produced zero energy; analyzer was not fed")
	}
}

func TestMixPastEndOfStemIsSilence(t *testing.T) {
	m := newTestManager()
	short := utils.GenerateSineWave(64, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleBass: writeTestWAV(t, 1, short),
	})

	frames := m.cfg.Audio.FramesPerBuffer
	out := [][]float32{make([]float32, frames), make([]float32, frames)}

	m.mu.Lock()
	m.beginPlayback()
	m.cursor = 1 << 20 // far past the stem's end
	m.mixInto(out, frames)
	m.mu.Unlock()

	for i := range out[0] {
		if out[0][i] != 0 {
			t.Fatal("expected silence past the end of the stem buffer")
		}
	}
}

func TestCleanupIdempotent(t *testing.T) {
	m := newTestManager()

	// Cleanup before anything was loaded.
	m.Cleanup()
	if m.SourceCount() != 0 {
		t.Errorf("source count after cleanup = %d, want 0", m.SourceCount())
	}

	// Twice in a row.
	m.Cleanup()
	m.Cleanup()
	if m.SourceCount() != 0 {
		t.Errorf("source count after repeated cleanup = %d, want 0", m.SourceCount())
	}
}

func TestOperationsAfterCleanupAreNoOps(t *testing.T) {
	m := newTestManager()
	sine := utils.GenerateSineWave(4096, config.DefaultSampleRate, 220)
	m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleVocals: writeTestWAV(t, 2, sine),
	})
	m.Cleanup()

	// Lifecycle misuse after teardown degrades to no-ops.
	m.SetMuted(analyzer.RoleVocals, true)
	m.Pause()
	if err := m.Play(); err != nil {
		t.Errorf("Play after cleanup returned error %v, want nil no-op", err)
	}
	if m.StartMicrophone() {
		t.Error("StartMicrophone after cleanup = true, want false")
	}
	m.StopMicrophone()

	result := m.LoadStems(map[analyzer.Role]io.ReadSeeker{
		analyzer.RoleDrums: writeTestWAV(t, 2, sine),
	})
	if result.Ok() {
		t.Error("LoadStems after cleanup reported success")
	}
	if m.SourceCount() != 0 {
		t.Errorf("source count = %d, want 0 after cleanup", m.SourceCount())
	}
}

func TestDecodeStemRejectsRateMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rate.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 22050, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 22050},
		Data:           make([]int, 256),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	enc.Close()
	f.Close()

	rf, _ := os.Open(path)
	defer rf.Close()
	if _, _, err := decodeStem(rf, config.DefaultSampleRate); err == nil {
		t.Error("expected error for sample-rate mismatch, got nil")
	}
}

func TestDecodeStemNormalization(t *testing.T) {
	// A full-scale 16-bit sine should decode to roughly unit amplitude.
	sine := utils.GenerateSineWave(4096, config.DefaultSampleRate, 220)
	f := writeTestWAV(t, 2, sine)

	left, right, err := decodeStem(f, config.DefaultSampleRate)
	if err != nil {
		t.Fatalf("decodeStem failed: %v", err)
	}
	if len(left) != len(sine) || len(right) != len(sine) {
		t.Fatalf("decoded %d/%d frames, want %d", len(left), len(right), len(sine))
	}

	var peak float64
	for _, s := range left {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < 0.85 || peak > 1.0 {
		t.Errorf("decoded peak = %.3f, want close to the 0.9 source amplitude", peak)
	}
}
