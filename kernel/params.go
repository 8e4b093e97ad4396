//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"io"

	"github.com/markkurossi/rvos/ramfs"
	"go.uber.org/zap"
)

// Default parameter values.
const (
	DefaultQuantum  = 10000
	DefaultInitProc = "initproc"
)

// Params define kernel parameters.
type Params struct {
	Trace    bool
	TraceOut io.Writer
	Verbose  bool

	// LogLevel sets the kernel log level: TRACE, DEBUG, INFO, WARN,
	// or ERROR. If unset, the level is read from the LOG environment
	// variable and logging is disabled if neither is set.
	LogLevel string
	Logger   *zap.Logger

	MemorySize uint64

	// Quantum is the number of user instructions a task runs before
	// the timer preempts it.
	Quantum int

	Clock    Clock
	Console  Console
	FS       *ramfs.FS
	InitProc string
}
