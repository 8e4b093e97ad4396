//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"io"

	"github.com/markkurossi/rvos/mm"
	"github.com/markkurossi/rvos/ramfs"
	"go.uber.org/zap"
)

// Kernel implements the rvos kernel. It owns the physical memory,
// the kernel address space, the task table and the scheduler state
// of the single hart.
type Kernel struct {
	params  Params
	log     *zap.Logger
	mem     *mm.Memory
	space   *mm.MemorySet
	fs      *ramfs.FS
	console Console
	clock   Clock

	stdin  *FD
	stdout *FD

	pids    RecycleAllocator
	tasks   map[PID]*Task
	manager Manager
	proc    Processor
	init    *Task
	halted  *halt
}

// New creates a new kernel.
func New(params *Params) (*Kernel, error) {
	kern := &Kernel{
		tasks: make(map[PID]*Task),
	}
	if params != nil {
		kern.params = *params
	}
	if kern.params.MemorySize == 0 {
		kern.params.MemorySize = mm.DefaultMemorySize
	}
	if kern.params.Quantum <= 0 {
		kern.params.Quantum = DefaultQuantum
	}
	if len(kern.params.InitProc) == 0 {
		kern.params.InitProc = DefaultInitProc
	}
	if kern.params.TraceOut == nil {
		kern.params.TraceOut = io.Discard
	}

	log, err := newLogger(&kern.params)
	if err != nil {
		return nil, err
	}
	kern.log = log

	kern.mem = mm.NewMemory(kern.params.MemorySize)
	kern.space, err = mm.NewKernel(kern.mem)
	if err != nil {
		return nil, err
	}

	kern.fs = kern.params.FS
	if kern.fs == nil {
		kern.fs = ramfs.New()
	}
	kern.clock = kern.params.Clock
	if kern.clock == nil {
		kern.clock = NewWallClock()
	}
	kern.console = kern.params.Console
	if kern.console != nil {
		kern.stdin = NewFD(&FDStdin{
			console: kern.console,
		})
		kern.stdout = NewFD(&FDStdout{
			console: kern.console,
		})
	} else {
		kern.stdin = NewDevNullFD()
		kern.stdout = NewDevNullFD()
	}

	kern.log.Debug("kernel created",
		zap.Uint64("memory", kern.params.MemorySize),
		zap.Int("free-frames", kern.mem.FreeFrames()),
		zap.Int("quantum", kern.params.Quantum))

	return kern, nil
}

// Boot loads the init process and adds it to the ready queue.
func (kern *Kernel) Boot() error {
	if kern.init != nil {
		return fmt.Errorf("kernel already booted")
	}
	name := kern.params.InitProc
	data, err := kern.fs.ReadFile(name)
	if err != nil {
		return fmt.Errorf("init process: %w", err)
	}
	task, err := kern.NewTask(name, data)
	if err != nil {
		return fmt.Errorf("init process %s: %w", name, err)
	}
	kern.init = task
	kern.manager.Add(task)

	kern.log.Info("init process loaded", zap.Stringer("task", task))

	return nil
}

// Init returns the init process.
func (kern *Kernel) Init() *Task {
	return kern.init
}

// Task returns the task with the process ID.
func (kern *Kernel) Task(pid PID) (*Task, bool) {
	task, ok := kern.tasks[pid]
	return task, ok
}

// Memory returns the physical memory of the machine.
func (kern *Kernel) Memory() *mm.Memory {
	return kern.mem
}

// FS returns the kernel filesystem.
func (kern *Kernel) FS() *ramfs.FS {
	return kern.fs
}
