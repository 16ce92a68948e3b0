// SPDX-License-Identifier: MIT
// Package fft implements the frequency-domain tap used by the per-source
// analyzers. A Tap owns pre-allocated FFT buffers and converts a time-domain
// window into normalized, decibel, and byte magnitude views without
// allocating in the hot path.
package fft

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"stemscope/pkg/bitint"
)

// Floor for nonzero magnitudes when converting to decibels. True zeros map
// to -Inf so downstream linear conversions recover an exact 0 and a silent
// spectrum keeps zero total magnitude.
const minDB = -100.0

// workspace holds the pre-allocated buffers for one tap.
type workspace struct {
	input     []float64    // windowed input samples
	coeffs    []complex128 // FFT complex output
	magnitude []float64    // normalized [0,1] magnitudes
	window    []float64    // window coefficients
}

// Tap performs FFT analysis over one channel of one source. It is not safe
// for concurrent use; the owning analyzer serializes access.
type Tap struct {
	fftSize    int
	sampleRate float64
	fftCalc    *fourier.FFT
	scale      float64 // magnitude normalization factor, precomputed
	ws         workspace
}

// NewTap creates a tap with all buffers pre-allocated and the named window
// function pre-computed. fftSize must be a power of 2.
func NewTap(fftSize int, sampleRate float64, windowName string) (*Tap, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs, err := windowCoefficients(windowName, fftSize)
	if err != nil {
		return nil, err
	}

	outputSize := fftSize/2 + 1
	return &Tap{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		fftCalc:    fourier.NewFFT(fftSize),
		scale:      2 / (float64(fftSize) * coherentGain(coeffs)),
		ws: workspace{
			input:     make([]float64, fftSize),
			coeffs:    make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    coeffs,
		},
	}, nil
}

// Process runs the FFT over buf and updates the magnitude view. Buffers
// shorter than the FFT size are zero-padded; longer ones use the first
// fftSize samples. Samples are expected in [-1, 1].
func (t *Tap) Process(buf []float64) {
	for i := range t.fftSize {
		if i < len(buf) {
			t.ws.input[i] = buf[i] * t.ws.window[i]
		} else {
			t.ws.input[i] = 0
		}
	}

	_ = t.fftCalc.Coefficients(t.ws.coeffs, t.ws.input)

	// Normalize so a full-scale sine lands near 1.0. The factor 2/N folds
	// the negative-frequency half back in; the coherent gain compensates
	// for the window's attenuation.
	for i := range t.ws.coeffs {
		m := cmplx.Abs(t.ws.coeffs[i]) * t.scale
		if m > 1 {
			m = 1
		}
		t.ws.magnitude[i] = m
	}
}

// Magnitudes returns the normalized [0,1] magnitude view from the last
// Process call. The returned slice is owned by the tap; callers must copy
// if they need to hold it across frames.
func (t *Tap) Magnitudes() []float64 {
	return t.ws.magnitude
}

// MagnitudesDB writes the decibel view (20*log10(mag), floored at -100 dB
// for nonzero magnitudes, -Inf for zero) into dst and returns it. dst must
// have length Bins().
func (t *Tap) MagnitudesDB(dst []float64) []float64 {
	for i, m := range t.ws.magnitude {
		if m <= 0 {
			dst[i] = math.Inf(-1)
			continue
		}
		db := 20 * math.Log10(m)
		if db < minDB {
			db = minDB
		}
		dst[i] = db
	}
	return dst
}

// ByteMagnitudes writes the 0-255 byte view into dst and returns it.
// dst must have length Bins().
func (t *Tap) ByteMagnitudes(dst []byte) []byte {
	for i, m := range t.ws.magnitude {
		dst[i] = byte(m * 255)
	}
	return dst
}

// Bins returns the number of magnitude bins (fftSize/2 + 1).
func (t *Tap) Bins() int {
	return len(t.ws.magnitude)
}

// FFTSize returns the analysis window size in samples.
func (t *Tap) FFTSize() int {
	return t.fftSize
}

// SampleRate returns the sample rate the tap was created with.
func (t *Tap) SampleRate() float64 {
	return t.sampleRate
}

// FrequencyForBin returns the center frequency in Hz for a magnitude bin.
func (t *Tap) FrequencyForBin(i int) float64 {
	if i < 0 || i >= len(t.ws.coeffs) {
		return 0
	}
	return t.fftCalc.Freq(i) * t.sampleRate
}

// windowCoefficients builds the coefficient table for the named window
// function using gonum's implementations.
func windowCoefficients(name string, size int) ([]float64, error) {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1
	}

	switch name {
	case "", "hann":
		window.Hann(coeffs)
	case "hamming":
		window.Hamming(coeffs)
	case "blackman":
		window.Blackman(coeffs)
	case "blackmannuttall":
		window.BlackmanNuttall(coeffs)
	case "nuttall":
		window.Nuttall(coeffs)
	case "bartletthann":
		window.BartlettHann(coeffs)
	case "lanczos":
		window.Lanczos(coeffs)
	case "rectangular":
		// All ones; nothing to apply.
	default:
		return nil, fmt.Errorf("unknown window function %q", name)
	}
	return coeffs, nil
}

// coherentGain returns the mean of the window coefficients, the factor by
// which a windowed sine's spectral peak is attenuated.
func coherentGain(w []float64) float64 {
	var sum float64
	for _, c := range w {
		sum += c
	}
	if sum == 0 {
		return 1
	}
	return sum / float64(len(w))
}
