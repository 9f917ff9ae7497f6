// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"fmt"
	"log"
)

// Logger defines an interface for writing log messages. Infof receives
// informational messages and Warningf receives warnings; both are called
// synchronously from the goroutine doing the work.
type Logger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

var _ Logger = DefaultLogger{}

// Infof implements the Logger.Infof interface.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}

// Warningf implements the Logger.Warningf interface.
func (DefaultLogger) Warningf(format string, args ...interface{}) {
	_ = log.Output(2, "WARNING: "+fmt.Sprintf(format, args...))
}

// NoopLogger discards all messages.
type NoopLogger struct{}

var _ Logger = NoopLogger{}

// Infof implements the Logger.Infof interface.
func (NoopLogger) Infof(format string, args ...interface{}) {}

// Warningf implements the Logger.Warningf interface.
func (NoopLogger) Warningf(format string, args ...interface{}) {}

// LoggerFuncs adapts a pair of message sinks to the Logger interface. Either
// field may be nil, in which case the corresponding messages are dropped.
type LoggerFuncs struct {
	OnLog     func(msg string)
	OnWarning func(msg string)
}

var _ Logger = LoggerFuncs{}

// Infof implements the Logger.Infof interface.
func (l LoggerFuncs) Infof(format string, args ...interface{}) {
	if l.OnLog != nil {
		l.OnLog(fmt.Sprintf(format, args...))
	}
}

// Warningf implements the Logger.Warningf interface.
func (l LoggerFuncs) Warningf(format string, args ...interface{}) {
	if l.OnWarning != nil {
		l.OnWarning(fmt.Sprintf(format, args...))
	}
}
