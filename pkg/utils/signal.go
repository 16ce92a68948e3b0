// SPDX-License-Identifier: MIT
// Package utils provides shared test helpers: synthetic signal generators
// and a mock snapshot sink for exercising transports without a network.
package utils

import (
	"math"
	"sync"
)

// GenerateSineWave returns a mono float64 buffer holding a sine wave at the
// given frequency, amplitude 0.9 to stay clear of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental plus two harmonics,
// useful for exercising spectral features with a known dominant pitch.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return buffer
}

// GenerateStereoSine returns left/right buffers with the same sine wave at
// independent amplitudes, for stereo-position assertions.
func GenerateStereoSine(size int, sampleRate, frequency, leftAmp, rightAmp float64) (left, right []float64) {
	left = make([]float64, size)
	right = make([]float64, size)
	for i := range left {
		t := float64(i) / sampleRate
		s := math.Sin(2 * math.Pi * frequency * t)
		left[i] = s * leftAmp
		right[i] = s * rightAmp
	}
	return left, right
}

// Silence returns an all-zero buffer.
func Silence(size int) []float64 {
	return make([]float64, size)
}

// MockSink implements the transport Send/Close contract and records
// everything it receives for later inspection.
type MockSink struct {
	mu       sync.Mutex
	Received []any
	Closed   bool
}

func (m *MockSink) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Received = append(m.Received, data)
	return nil
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Count returns the number of payloads received so far.
func (m *MockSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Received)
}
