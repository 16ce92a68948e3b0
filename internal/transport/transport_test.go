// SPDX-License-Identifier: MIT
package transport

import (
	"testing"

	"stemscope/internal/analyzer"
	"stemscope/pkg/utils"
)

// MockSink stands in for a transport in fan-out tests.
var _ Transport = (*utils.MockSink)(nil)

func TestLoggingTransportNeverFails(t *testing.T) {
	lt := NewLoggingTransport()

	if err := lt.Send(analyzer.AggregatedSnapshot{}); err != nil {
		t.Errorf("Send failed: %v", err)
	}
	if err := lt.Send(nil); err != nil {
		t.Errorf("Send of nil failed: %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestFanOutDeliversToEverySink(t *testing.T) {
	sinks := []*utils.MockSink{{}, {}, {}}
	transports := make([]Transport, len(sinks))
	for i, s := range sinks {
		transports[i] = s
	}

	frame := analyzer.AggregatedSnapshot{
		analyzer.RoleDrums: {Energy: 0.5},
	}
	for _, tr := range transports {
		if err := tr.Send(frame); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	for i, s := range sinks {
		if s.Count() != 1 {
			t.Errorf("sink %d received %d frames, want 1", i, s.Count())
		}
	}
}
