// SPDX-License-Identifier: MIT
// Package dsp implements the pure feature extractors: autocorrelation pitch
// detection, RMS energy, spectral centroid, band energies, spectral flux,
// and per-bin stereo position. All functions are stateless; flux takes its
// previous-frame input from the caller.
package dsp

import "math"

// PitchConfig bounds the autocorrelation search. The defaults target the
// vocal/melodic band; widen them for other material.
type PitchConfig struct {
	MinHz          float64 // lowest detectable fundamental
	MaxHz          float64 // highest detectable fundamental
	SilenceRMS     float64 // buffers quieter than this report no pitch
	MinCorrelation float64 // best correlations below this are ambiguous
}

// DefaultPitchConfig returns the vocal-band defaults (80-1000 Hz).
func DefaultPitchConfig() PitchConfig {
	return PitchConfig{
		MinHz:          80,
		MaxHz:          1000,
		SilenceRMS:     0.01,
		MinCorrelation: 0.01,
	}
}

// Pitch is a detected fundamental frequency estimate.
type Pitch struct {
	FrequencyHz float64 `json:"frequencyHz"`
	Confidence  float64 `json:"confidence"` // best normalized autocorrelation
	MIDINote    float64 `json:"midiNote"`   // 69 + 12*log2(f/440), fractional
	Normalized  float64 `json:"normalized"` // position within [MinHz, MaxHz], clamped to [0,1]
}

// DetectPitch estimates the fundamental frequency of a mono time-domain
// buffer by normalized autocorrelation over candidate periods. It returns
// false when the buffer is too quiet or no period correlates convincingly;
// those are signal-quality conditions, not errors.
//
// Cost is O(N * (maxPeriod - minPeriod)), which bounds usable buffer sizes.
func DetectPitch(buf []float64, sampleRate float64, cfg PitchConfig) (Pitch, bool) {
	n := len(buf)
	if n == 0 || sampleRate <= 0 {
		return Pitch{}, false
	}

	rms := RMS(buf)
	if rms < cfg.SilenceRMS {
		return Pitch{}, false
	}
	meanSquare := rms * rms

	minPeriod := int(sampleRate / cfg.MaxHz)
	maxPeriod := int(sampleRate / cfg.MinHz)
	if minPeriod < 1 {
		minPeriod = 1
	}
	if maxPeriod >= n {
		maxPeriod = n - 1
	}
	if minPeriod > maxPeriod {
		return Pitch{}, false
	}

	bestPeriod := 0
	bestCorrelation := 0.0
	for period := minPeriod; period <= maxPeriod; period++ {
		var sum float64
		limit := n - period
		for i := 0; i < limit; i++ {
			sum += buf[i] * buf[i+period]
		}
		correlation := sum / float64(limit)
		if correlation > bestCorrelation {
			bestCorrelation = correlation
			bestPeriod = period
		}
	}

	if bestPeriod == 0 || bestCorrelation < cfg.MinCorrelation {
		return Pitch{}, false
	}

	freq := sampleRate / float64(bestPeriod)

	// Confidence is the peak correlation relative to the zero-lag energy,
	// so a pure periodic signal scores near 1 regardless of amplitude.
	return Pitch{
		FrequencyHz: freq,
		Confidence:  clamp(bestCorrelation/meanSquare, 0, 1),
		MIDINote:    69 + 12*math.Log2(freq/440),
		Normalized:  clamp((freq-cfg.MinHz)/(cfg.MaxHz-cfg.MinHz), 0, 1),
	}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
