// SPDX-License-Identifier: MIT
package graph

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"

	"stemscope/internal/analyzer"
	applog "stemscope/internal/log"
)

// LoadResult reports the per-role outcome of one LoadStems call. A failed
// role never blocks its siblings; partial success is the normal case when
// the separation service produced an incomplete stem set.
type LoadResult struct {
	Loaded []analyzer.Role
	Failed map[analyzer.Role]error
}

// Ok reports whether at least one stem loaded.
func (r LoadResult) Ok() bool {
	return len(r.Loaded) > 0
}

// LoadStems decodes one WAV stream per role and wires each success into the
// graph as a source with gain 1 and a bound analyzer. Decode failures are
// isolated per role and reported in the result, never returned as an error
// for the whole batch.
func (m *Manager) LoadStems(stems map[analyzer.Role]io.ReadSeeker) LoadResult {
	result := LoadResult{Failed: make(map[analyzer.Role]error)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		for role := range stems {
			result.Failed[role] = fmt.Errorf("graph is closed")
		}
		return result
	}

	for role, rs := range stems {
		left, right, err := decodeStem(rs, m.cfg.Audio.SampleRate)
		if err != nil {
			applog.Warnf("Graph: stem %q failed to decode: %v", role, err)
			result.Failed[role] = err
			continue
		}

		a, err := analyzer.New(role, m.cfg.Audio.SampleRate, m.cfg.Analysis)
		if err != nil {
			result.Failed[role] = err
			continue
		}

		m.sources[role] = &source{
			role:      role,
			left:      left,
			right:     right,
			gain:      1,
			startedAt: -1,
			frameL:    make([]float64, m.cfg.Audio.FramesPerBuffer),
			frameR:    make([]float64, m.cfg.Audio.FramesPerBuffer),
		}
		m.analyzers[role] = a
		result.Loaded = append(result.Loaded, role)
		applog.Infof("Graph: loaded stem %q (%d samples)", role, len(left))
	}

	return result
}

// LoadStemDir loads the standard stem set (<role>.wav per stem role) from a
// directory, the layout the separation service writes its output in. Missing
// files are per-role failures like any other; the error return covers only
// an unreadable directory.
func (m *Manager) LoadStemDir(dir string) (LoadResult, error) {
	if _, err := os.Stat(dir); err != nil {
		return LoadResult{}, fmt.Errorf("stem directory %q: %w", dir, err)
	}

	stems := make(map[analyzer.Role]io.ReadSeeker, len(analyzer.StemRoles))
	openErrs := make(map[analyzer.Role]error)
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, role := range analyzer.StemRoles {
		f, err := os.Open(filepath.Join(dir, string(role)+".wav"))
		if err != nil {
			openErrs[role] = err
			continue
		}
		files = append(files, f)
		stems[role] = f
	}

	result := m.LoadStems(stems)
	for role, err := range openErrs {
		result.Failed[role] = err
	}
	return result, nil
}

// decodeStem decodes a WAV stream into normalized float64 left/right
// channels. Mono files duplicate their channel. The file's sample rate must
// match the engine's; resampling is out of scope.
func decodeStem(rs io.ReadSeeker, wantRate float64) (left, right []float64, err error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, nil, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode PCM data: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, nil, fmt.Errorf("missing PCM format information")
	}
	if float64(buf.Format.SampleRate) != wantRate {
		return nil, nil, fmt.Errorf("sample rate %d does not match engine rate %.0f",
			buf.Format.SampleRate, wantRate)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth == 0 {
		return nil, nil, fmt.Errorf("unknown bit depth")
	}
	scale := float64(int64(1) << (bitDepth - 1))

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	left = make([]float64, frames)
	right = make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := float64(buf.Data[i*channels]) / scale
		r := l
		if channels > 1 {
			r = float64(buf.Data[i*channels+1]) / scale
		}
		left[i] = l
		right[i] = r
	}
	return left, right, nil
}
