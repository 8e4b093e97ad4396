//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"errors"
	"fmt"
	"time"

	"github.com/markkurossi/rvos/hart"
)

// ErrShutdown is returned when the kernel shuts down because of a
// failure.
var ErrShutdown = errors.New("kernel shutdown")

// Manager implements the FIFO ready queue.
type Manager struct {
	ready []*Task
}

// Add appends the task to the ready queue.
func (m *Manager) Add(task *Task) {
	m.ready = append(m.ready, task)
}

// Fetch removes the first task from the ready queue. It returns nil
// if the queue is empty.
func (m *Manager) Fetch() *Task {
	if len(m.ready) == 0 {
		return nil
	}
	task := m.ready[0]
	m.ready[0] = nil
	m.ready = m.ready[1:]
	return task
}

// Len returns the number of tasks in the ready queue.
func (m *Manager) Len() int {
	return len(m.ready)
}

// Processor holds the state of the hart: the running task, the idle
// context and the context the hart is currently executing.
type Processor struct {
	current *Task
	idleCx  TaskContext
	cpu     TaskContext
	stamp   time.Duration

	// slice is the number of instructions the current task may run
	// before the timer preempts it.
	slice int
}

// Current returns the running task.
func (p *Processor) Current() *Task {
	return p.current
}

func (p *Processor) takeCurrent() *Task {
	task := p.current
	p.current = nil
	return task
}

type halt struct {
	code int32
	err  error
}

// Run runs tasks until the kernel shuts down. It returns the exit
// code of the init process, or an error if the init process failed.
func (kern *Kernel) Run() (int32, error) {
	if kern.init == nil {
		return 0, errors.New("kernel not booted")
	}
	kern.proc.cpu = TaskContext{
		RA: idleEntry,
	}
	for kern.halted == nil {
		switch kern.proc.cpu.RA {
		case idleEntry:
			kern.runIdle()

		case trapReturnEntry:
			kern.trapReturn()

		default:
			panic(fmt.Sprintf("invalid task context: %v", kern.proc.cpu))
		}
	}
	return kern.halted.code, kern.halted.err
}

func (kern *Kernel) shutdown(code int32, err error) {
	kern.halted = &halt{
		code: code,
		err:  err,
	}
}

// runIdle dispatches the next ready task.
func (kern *Kernel) runIdle() {
	task := kern.manager.Fetch()
	if task == nil {
		kern.log.Info("all applications completed")
		kern.shutdown(0, nil)
		return
	}
	now := kern.clock.Now()

	task.m.Lock()
	task.status = Running
	if !task.dispatched {
		task.dispatched = true
		task.started = now
	}
	cx := &task.taskCx
	task.m.Unlock()

	kern.proc.current = task
	kern.proc.stamp = now
	kern.proc.slice = kern.params.Quantum
	kern.switchContext(&kern.proc.idleCx, cx)
}

// switchContext saves the running context to save and continues the
// execution from load.
func (kern *Kernel) switchContext(save, load *TaskContext) {
	*save = kern.proc.cpu
	kern.proc.cpu = *load
}

// schedule switches from the task context to the idle context.
func (kern *Kernel) schedule(switched *TaskContext) {
	kern.switchContext(switched, &kern.proc.idleCx)
}

// trapReturn runs the current task in user mode until it traps.
func (kern *Kernel) trapReturn() {
	task := kern.proc.current
	if task == nil {
		panic("trap return without current task")
	}
	kern.accountKernel(task)

	if kern.proc.slice <= 0 {
		kern.suspendCurrentAndRunNext()
		return
	}

	tc := task.TrapContext()
	tr := hart.Run(tc, kern.mem.MMU(task.Token()), kern.proc.slice)
	task.setTrapContext(tc)
	kern.proc.slice -= max(tr.Retired, 1)

	now := kern.clock.Now()
	task.rusage.Utime += now - kern.proc.stamp
	kern.proc.stamp = now

	kern.trapHandler(task, tr)
}

// accountKernel adds the time since the last accounting boundary to
// the task's kernel time.
func (kern *Kernel) accountKernel(task *Task) {
	now := kern.clock.Now()
	task.rusage.Stime += now - kern.proc.stamp
	kern.proc.stamp = now
}

func (kern *Kernel) suspendCurrentAndRunNext() {
	task := kern.proc.takeCurrent()
	kern.accountKernel(task)

	task.m.Lock()
	task.status = Ready
	cx := &task.taskCx
	task.m.Unlock()

	kern.manager.Add(task)
	kern.schedule(cx)
}

func (kern *Kernel) exitCurrentAndRunNext(code int32) {
	task := kern.proc.takeCurrent()
	kern.accountKernel(task)

	if task == kern.init {
		task.m.Lock()
		task.status = Zombie
		task.exitCode = code
		task.m.Unlock()
		kern.ktraceExit(task)

		if code != 0 {
			kern.log.Sugar().Errorf("init process exited with code %d", code)
			kern.shutdown(code,
				fmt.Errorf("init process exited with code %d: %w",
					code, ErrShutdown))
		} else {
			kern.log.Info("init process exited")
			kern.shutdown(0, nil)
		}
		return
	}

	task.exit(code, kern.init)
	kern.ktraceExit(task)

	var unused TaskContext
	kern.schedule(&unused)
}
