// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"time"

	"github.com/grailbio/base/log"
)

// RunLog prefixes log messages with the time elapsed since the start of one
// run. Each run creates its own RunLog; there is no process-wide start time.
type RunLog struct {
	start   time.Time
	verbose bool
}

// NewRunLog creates a RunLog whose clock starts now. If verbose is false,
// Verbosef messages are dropped.
func NewRunLog(verbose bool) *RunLog {
	return &RunLog{start: time.Now(), verbose: verbose}
}

// Elapsed returns the time since the run started.
func (l *RunLog) Elapsed() time.Duration { return time.Since(l.start) }

// Verbose reports whether per-record messages are enabled.
func (l *RunLog) Verbose() bool { return l.verbose }

// Printf logs a progress message.
func (l *RunLog) Printf(format string, args ...interface{}) {
	log.Printf("%v\t%s", l.Elapsed(), fmt.Sprintf(format, args...))
}

// Verbosef logs a per-record diagnostic if verbose logging is enabled.
func (l *RunLog) Verbosef(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	log.Printf("%v\t\t%s", l.Elapsed(), fmt.Sprintf(format, args...))
}
