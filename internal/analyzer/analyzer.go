// SPDX-License-Identifier: MIT
// Package analyzer implements the per-source feature analyzer. Each
// analyzer is bound 1:1 to one audio source, owns left/right/mono
// frequency-domain taps, and turns the most recent window of samples into
// an immutable FeatureSnapshot once per scheduler tick.
package analyzer

import (
	"sync"

	"stemscope/internal/config"
	"stemscope/internal/dsp"
	"stemscope/internal/fft"
)

// Role identifies one audio source: a separated stem or the live microphone.
type Role string

// The stem roles emitted by the separation service, plus the microphone.
const (
	RoleDrums      Role = "drums"
	RoleBass       Role = "bass"
	RoleVocals     Role = "vocals"
	RoleOther      Role = "other"
	RoleMicrophone Role = "microphone"
)

// StemRoles lists the roles that arrive as decodable stem files, in a fixed
// order. The microphone is handled separately.
var StemRoles = []Role{RoleDrums, RoleBass, RoleVocals, RoleOther}

// FeatureSnapshot holds every feature extracted from one source at one tick.
type FeatureSnapshot struct {
	FrequencyMagnitudes []float64  `json:"frequencyMagnitudes"` // per-bin amplitude, [0,1]
	StereoPositions     []float64  `json:"stereoPositions"`     // per-bin position, [-1,1]
	Pitch               *dsp.Pitch `json:"pitch,omitempty"`     // nil when quiet or ambiguous
	Energy              float64    `json:"energy"`              // RMS, [0,1]
	SpectralCentroid    float64    `json:"spectralCentroid"`    // normalized, [0,1]
	BassEnergy          float64    `json:"bassEnergy"`          // [0,1]
	TrebleEnergy        float64    `json:"trebleEnergy"`        // [0,1]
	Flux                float64    `json:"flux"`                // >= 0, 0 on the first frame
}

// AggregatedSnapshot maps each live source to its snapshot for one tick.
type AggregatedSnapshot map[Role]FeatureSnapshot

// Analyzer extracts features for a single source. The audio path feeds
// samples through Feed; the scheduler reads through Snapshot. Feed and
// Snapshot may run on different goroutines; everything else is owned by
// the snapshot path.
type Analyzer struct {
	role       Role
	sampleRate float64
	cfg        config.AnalysisConfig

	left  *fft.Tap
	right *fft.Tap
	mono  *fft.Tap

	// Rolling sample window written by the audio callback.
	mu   sync.Mutex
	winL []float64
	winR []float64

	// prevSpectrum is the explicit flux state: the previous frame's mono
	// magnitude spectrum. nil until the first snapshot; tests may seed it.
	prevSpectrum []float64

	// Scratch buffers reused across snapshots.
	snapL, snapR, monoBuf []float64
	dbBuf                 []float64
	byteL, byteR, byteM   []byte
	curSpectrum           []float64
}

// New creates an analyzer for one source.
func New(role Role, sampleRate float64, cfg config.AnalysisConfig) (*Analyzer, error) {
	left, err := fft.NewTap(cfg.FFTSize, sampleRate, cfg.Window)
	if err != nil {
		return nil, err
	}
	right, err := fft.NewTap(cfg.FFTSize, sampleRate, cfg.Window)
	if err != nil {
		return nil, err
	}
	mono, err := fft.NewTap(cfg.FFTSize, sampleRate, cfg.Window)
	if err != nil {
		return nil, err
	}

	bins := mono.Bins()
	return &Analyzer{
		role:        role,
		sampleRate:  sampleRate,
		cfg:         cfg,
		left:        left,
		right:       right,
		mono:        mono,
		winL:        make([]float64, cfg.FFTSize),
		winR:        make([]float64, cfg.FFTSize),
		snapL:       make([]float64, cfg.FFTSize),
		snapR:       make([]float64, cfg.FFTSize),
		monoBuf:     make([]float64, cfg.FFTSize),
		dbBuf:       make([]float64, bins),
		byteL:       make([]byte, bins),
		byteR:       make([]byte, bins),
		byteM:       make([]byte, bins),
		curSpectrum: make([]float64, bins),
	}, nil
}

// Role returns the source this analyzer is bound to.
func (a *Analyzer) Role() Role {
	return a.role
}

// Feed appends the latest stereo samples to the rolling analysis window.
// Mono sources pass the same slice for both channels. Called from the
// audio callback; must stay cheap.
func (a *Analyzer) Feed(left, right []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	shiftIn(a.winL, left)
	shiftIn(a.winR, right)
}

// shiftIn slides win left by len(src) and copies src into the tail. Inputs
// longer than the window keep only the most recent samples.
func shiftIn(win, src []float64) {
	n := len(src)
	if n >= len(win) {
		copy(win, src[n-len(win):])
		return
	}
	copy(win, win[n:])
	copy(win[len(win)-n:], src)
}

// Snapshot computes all features over the current window and advances the
// flux state. The contract is at most one call per scheduler tick; the only
// mutation is the analyzer's own previous-spectrum history. The returned
// snapshot owns its slices and never aliases analyzer state.
func (a *Analyzer) Snapshot() FeatureSnapshot {
	a.mu.Lock()
	copy(a.snapL, a.winL)
	copy(a.snapR, a.winR)
	a.mu.Unlock()

	for i := range a.monoBuf {
		a.monoBuf[i] = (a.snapL[i] + a.snapR[i]) / 2
	}

	a.left.Process(a.snapL)
	a.right.Process(a.snapR)
	a.mono.Process(a.monoBuf)

	a.left.ByteMagnitudes(a.byteL)
	a.right.ByteMagnitudes(a.byteR)
	a.mono.ByteMagnitudes(a.byteM)
	a.mono.MagnitudesDB(a.dbBuf)
	copy(a.curSpectrum, a.mono.Magnitudes())

	bins := a.mono.Bins()
	mags := make([]float64, bins)
	positions := make([]float64, bins)
	for i := 0; i < bins; i++ {
		mags[i] = dsp.BinAmplitude(a.byteL[i], a.byteR[i])
		positions[i] = dsp.StereoPosition(a.byteL[i], a.byteR[i])
	}

	snap := FeatureSnapshot{
		FrequencyMagnitudes: mags,
		StereoPositions:     positions,
		Energy:              dsp.RMS(a.monoBuf),
		SpectralCentroid: dsp.SpectralCentroid(
			a.dbBuf, a.sampleRate, a.cfg.FFTSize, a.cfg.CentroidMaxHz),
		BassEnergy: dsp.BandEnergy(
			a.byteM, a.sampleRate, a.cfg.FFTSize, 0, a.cfg.BassHighHz),
		TrebleEnergy: dsp.BandEnergy(
			a.byteM, a.sampleRate, a.cfg.FFTSize, a.cfg.TrebleLowHz, a.sampleRate),
		Flux: dsp.SpectralFlux(a.curSpectrum, a.prevSpectrum),
	}

	if pitch, ok := dsp.DetectPitch(a.monoBuf, a.sampleRate, dsp.PitchConfig{
		MinHz:          a.cfg.PitchMinHz,
		MaxHz:          a.cfg.PitchMaxHz,
		SilenceRMS:     a.cfg.SilenceRMS,
		MinCorrelation: a.cfg.MinCorrelation,
	}); ok {
		p := pitch
		snap.Pitch = &p
	}

	// Advance the flux history to this frame.
	if a.prevSpectrum == nil {
		a.prevSpectrum = make([]float64, bins)
	}
	copy(a.prevSpectrum, a.curSpectrum)

	return snap
}
