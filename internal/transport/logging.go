// SPDX-License-Identifier: MIT
package transport

import (
	applog "stemscope/internal/log"
)

// LoggingTransport implements Transport by logging frame summaries at
// debug level. Useful when running without a renderer attached.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received frame at debug level and never fails.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("LoggingTransport: frame %T", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
