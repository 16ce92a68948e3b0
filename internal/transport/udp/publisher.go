// SPDX-License-Identifier: MIT
// Package udp publishes feature snapshots as compact binary packets for
// low-latency local consumers that do not want JSON framing.
package udp

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"stemscope/internal/analyzer"
	applog "stemscope/internal/log"
)

// ByteSink is the destination for packed snapshot packets. Sender
// implements it; tests substitute an in-memory sink.
type ByteSink interface {
	Send(data []byte) error
	Close() error
}

// Role identifiers on the wire. Unknown roles are skipped.
var roleIDs = map[analyzer.Role]uint8{
	analyzer.RoleDrums:      0,
	analyzer.RoleBass:       1,
	analyzer.RoleVocals:     2,
	analyzer.RoleOther:      3,
	analyzer.RoleMicrophone: 4,
}

// Publisher packs aggregated snapshots into sequence-numbered binary
// packets and hands them to a ByteSink.
//
// Packet layout (little-endian):
//
//	uint32  sequence number
//	uint8   source count
//	per source, ordered by role ID:
//	  uint8     role ID
//	  uint8     pitch present (0/1)
//	  float32x7 energy, centroid, bass, treble, flux, pitchHz, pitchConfidence
type Publisher struct {
	sink ByteSink

	mu          sync.Mutex
	sequenceNum uint32
	packet      bytes.Buffer // reused across frames
	closed      bool
}

// NewPublisher creates a publisher writing to sink.
func NewPublisher(sink ByteSink) *Publisher {
	applog.Infof("UDP publisher: initialized")
	return &Publisher{sink: sink}
}

// Send packs one analyzer.AggregatedSnapshot and transmits it. Other
// payload types are ignored so the publisher can share a consumer fan-out
// with JSON transports.
func (p *Publisher) Send(data any) error {
	frame, ok := data.(analyzer.AggregatedSnapshot)
	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}

	roles := make([]analyzer.Role, 0, len(frame))
	for role := range frame {
		if _, known := roleIDs[role]; known {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool {
		return roleIDs[roles[i]] < roleIDs[roles[j]]
	})

	p.packet.Reset()
	binary.Write(&p.packet, binary.LittleEndian, p.sequenceNum)
	p.packet.WriteByte(uint8(len(roles)))

	for _, role := range roles {
		snap := frame[role]
		p.packet.WriteByte(roleIDs[role])

		var hasPitch uint8
		var pitchHz, pitchConf float32
		if snap.Pitch != nil {
			hasPitch = 1
			pitchHz = float32(snap.Pitch.FrequencyHz)
			pitchConf = float32(snap.Pitch.Confidence)
		}
		p.packet.WriteByte(hasPitch)

		for _, v := range [7]float32{
			float32(snap.Energy),
			float32(snap.SpectralCentroid),
			float32(snap.BassEnergy),
			float32(snap.TrebleEnergy),
			float32(snap.Flux),
			pitchHz,
			pitchConf,
		} {
			binary.Write(&p.packet, binary.LittleEndian, v)
		}
	}

	p.sequenceNum++
	return p.sink.Send(p.packet.Bytes())
}

// Close releases the underlying sink. Safe to call repeatedly.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.sink.Close()
}
