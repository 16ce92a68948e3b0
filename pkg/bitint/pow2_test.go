// SPDX-License-Identifier: MIT
package bitint

import "testing"

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{-8, 1}, // Negative input
		{0, 1},  // Zero input
		{1, 1},  // Smallest power
		{2, 2},  // Already a power
		{3, 4},  // Round up
		{512, 512},
		{513, 1024},
		{1000, 1024}, // Typical analysis window request
		{4096, 4096},
	}

	for _, tt := range tests {
		if got := NextPowerOfTwo(tt.input); got != tt.expected {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		input    int
		expected bool
	}{
		{-4, false},
		{0, false},
		{1, true},
		{2, true},
		{3, false},
		{1024, true},
		{1023, false},
		{2048, true},
	}

	for _, tt := range tests {
		if got := IsPowerOfTwo(tt.input); got != tt.expected {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNextPowerOfTwoZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = NextPowerOfTwo(1000)
		_ = IsPowerOfTwo(1024)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}
