// SPDX-License-Identifier: MIT
package dsp

import "math"

// RMS returns the root-mean-square energy of a time-domain buffer.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sumSquare float64
	for _, s := range buf {
		sumSquare += s * s
	}
	return math.Sqrt(sumSquare / float64(len(buf)))
}

// SpectralCentroid computes the magnitude-weighted mean frequency from a
// decibel spectrum, normalized by maxHz and clamped to [0,1]. A silent
// spectrum (zero total magnitude) yields 0.
func SpectralCentroid(dbMags []float64, sampleRate float64, fftSize int, maxHz float64) float64 {
	if len(dbMags) == 0 || fftSize <= 0 || maxHz <= 0 {
		return 0
	}

	var weighted, total float64
	for i, db := range dbMags {
		mag := math.Pow(10, db/20)
		freq := float64(i) * sampleRate / float64(fftSize)
		weighted += freq * mag
		total += mag
	}
	if total == 0 {
		return 0
	}
	return clamp(weighted/total/maxHz, 0, 1)
}

// BandEnergy sums byte magnitudes for bins whose center frequency falls in
// [lowHz, highHz) and normalizes by the bin count times 255, yielding a
// value in [0,1]. An empty band yields 0.
func BandEnergy(byteMags []byte, sampleRate float64, fftSize int, lowHz, highHz float64) float64 {
	if len(byteMags) == 0 || fftSize <= 0 || highHz <= lowHz {
		return 0
	}

	var sum float64
	count := 0
	for i, m := range byteMags {
		freq := float64(i) * sampleRate / float64(fftSize)
		if freq >= lowHz && freq < highHz {
			sum += float64(m)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / (float64(count) * 255)
}

// SpectralFlux sums the positive frame-to-frame increases between two
// normalized magnitude spectra and divides by the bin count. A nil or
// empty previous spectrum yields 0: flux is only meaningful relative to
// the same source's immediately preceding frame.
func SpectralFlux(cur, prev []float64) float64 {
	if len(prev) == 0 || len(cur) == 0 {
		return 0
	}

	n := len(cur)
	if len(prev) < n {
		n = len(prev)
	}
	var sum float64
	for i := 0; i < n; i++ {
		if d := cur[i] - prev[i]; d > 0 {
			sum += d
		}
	}
	return sum / float64(n)
}

// StereoPosition maps left/right byte magnitudes for one bin onto [-1, 1]:
// -1 is fully left, +1 fully right, 0 centered or silent.
func StereoPosition(l, r byte) float64 {
	total := float64(l) + float64(r)
	if total == 0 {
		return 0
	}
	return (float64(r) - float64(l)) / total
}

// BinAmplitude returns the mean of left/right byte magnitudes for one bin,
// normalized to [0,1].
func BinAmplitude(l, r byte) float64 {
	return (float64(l) + float64(r)) / 2 / 255
}
