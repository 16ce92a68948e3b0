// SPDX-License-Identifier: MIT
// Package transport delivers aggregated feature snapshots to external
// consumers. The rendering layer is the primary subscriber; transports
// must never block the analysis loop.
package transport

// Transport defines a generic interface for publishing snapshot data.
// Implementations must be thread-safe and drop rather than block when a
// consumer cannot keep up.
type Transport interface {
	Send(data any) error
	Close() error
}
