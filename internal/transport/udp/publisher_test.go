// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"math"
	"testing"

	"stemscope/internal/analyzer"
	"stemscope/internal/dsp"
)

// memorySink captures packets in memory.
type memorySink struct {
	packets [][]byte
	closed  bool
}

func (m *memorySink) Send(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.packets = append(m.packets, buf)
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func testFrame() analyzer.AggregatedSnapshot {
	return analyzer.AggregatedSnapshot{
		analyzer.RoleVocals: {
			Energy:           0.5,
			SpectralCentroid: 0.25,
			BassEnergy:       0.1,
			TrebleEnergy:     0.2,
			Flux:             0.05,
			Pitch:            &dsp.Pitch{FrequencyHz: 440, Confidence: 0.9},
		},
		analyzer.RoleDrums: {
			Energy: 0.8,
			Flux:   0.4,
		},
	}
}

func TestPublisherPacketLayout(t *testing.T) {
	sink := &memorySink{}
	p := NewPublisher(sink)

	if err := p.Send(testFrame()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(sink.packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(sink.packets))
	}

	pkt := sink.packets[0]
	const perSource = 1 + 1 + 7*4
	if want := 4 + 1 + 2*perSource; len(pkt) != want {
		t.Fatalf("packet length = %d, want %d", len(pkt), want)
	}

	if seq := binary.LittleEndian.Uint32(pkt[0:4]); seq != 0 {
		t.Errorf("first sequence number = %d, want 0", seq)
	}
	if pkt[4] != 2 {
		t.Errorf("source count = %d, want 2", pkt[4])
	}

	// Sources are ordered by role ID: drums (0) before vocals (2).
	drums := pkt[5 : 5+perSource]
	if drums[0] != 0 {
		t.Errorf("first role ID = %d, want 0 (drums)", drums[0])
	}
	if drums[1] != 0 {
		t.Errorf("drums pitch flag = %d, want 0", drums[1])
	}
	if energy := math.Float32frombits(binary.LittleEndian.Uint32(drums[2:6])); energy != 0.8 {
		t.Errorf("drums energy = %g, want 0.8", energy)
	}

	vocals := pkt[5+perSource:]
	if vocals[0] != 2 {
		t.Errorf("second role ID = %d, want 2 (vocals)", vocals[0])
	}
	if vocals[1] != 1 {
		t.Errorf("vocals pitch flag = %d, want 1", vocals[1])
	}
	pitchHz := math.Float32frombits(binary.LittleEndian.Uint32(vocals[2+5*4 : 2+6*4]))
	if pitchHz != 440 {
		t.Errorf("vocals pitch = %g Hz, want 440", pitchHz)
	}
}

func TestPublisherSequenceAdvances(t *testing.T) {
	sink := &memorySink{}
	p := NewPublisher(sink)

	for i := 0; i < 3; i++ {
		if err := p.Send(testFrame()); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}

	for i, pkt := range sink.packets {
		if seq := binary.LittleEndian.Uint32(pkt[0:4]); seq != uint32(i) {
			t.Errorf("packet %d sequence = %d, want %d", i, seq, i)
		}
	}
}

func TestPublisherIgnoresOtherPayloads(t *testing.T) {
	sink := &memorySink{}
	p := NewPublisher(sink)

	if err := p.Send("not a frame"); err != nil {
		t.Errorf("Send of foreign payload failed: %v", err)
	}
	if len(sink.packets) != 0 {
		t.Errorf("foreign payload produced %d packets, want 0", len(sink.packets))
	}
}

func TestPublisherCloseIdempotent(t *testing.T) {
	sink := &memorySink{}
	p := NewPublisher(sink)

	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if !sink.closed {
		t.Error("sink not closed")
	}

	// Sends after close are dropped silently.
	if err := p.Send(testFrame()); err != nil {
		t.Errorf("Send after close returned %v, want nil", err)
	}
	if len(sink.packets) != 0 {
		t.Error("packet sent after close")
	}
}
