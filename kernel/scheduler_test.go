//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"testing"
)

func TestManager(t *testing.T) {
	var m Manager
	if m.Fetch() != nil {
		t.Errorf("Fetch from empty queue")
	}
	tasks := []*Task{
		{pid: 1},
		{pid: 2},
		{pid: 3},
	}
	for _, task := range tasks {
		m.Add(task)
	}
	if m.Len() != len(tasks) {
		t.Errorf("Len %v, expected %v", m.Len(), len(tasks))
	}
	for idx, task := range tasks {
		got := m.Fetch()
		if got != task {
			t.Errorf("test-%v: Fetch returned %v, expected %v", idx, got, task)
		}
	}
	if m.Len() != 0 {
		t.Errorf("Len %v after draining the queue", m.Len())
	}
}

func TestSwitchContext(t *testing.T) {
	kern := &Kernel{}
	kern.proc.cpu = TaskContext{
		RA: idleEntry,
	}
	taskCx := GotoTrapReturn(0x1000)

	kern.switchContext(&kern.proc.idleCx, &taskCx)
	if kern.proc.cpu != taskCx {
		t.Errorf("cpu %v, expected %v", kern.proc.cpu, taskCx)
	}
	if kern.proc.idleCx.RA != idleEntry {
		t.Errorf("idle context %v", kern.proc.idleCx)
	}

	var saved TaskContext
	kern.schedule(&saved)
	if saved != taskCx {
		t.Errorf("saved context %v, expected %v", saved, taskCx)
	}
	if kern.proc.cpu.RA != idleEntry {
		t.Errorf("schedule did not switch to idle: %v", kern.proc.cpu)
	}
}

func TestSchedule(t *testing.T) {
	kern, _ := newTestKernel(t, &Params{
		InitProc: "hello",
	}, "")
	initTask := kern.Init()
	child, err := initTask.Fork()
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}
	kern.manager.Add(child)

	kern.proc.cpu = TaskContext{
		RA: idleEntry,
	}
	kern.runIdle()
	if kern.proc.Current() != initTask {
		t.Fatalf("dispatched %v, expected init", kern.proc.Current())
	}
	if initTask.Status() != Running || child.Status() != Ready {
		t.Errorf("status init=%v, child=%v", initTask.Status(), child.Status())
	}
	if kern.proc.cpu.RA != trapReturnEntry {
		t.Errorf("cpu %v", kern.proc.cpu)
	}

	kern.suspendCurrentAndRunNext()
	if kern.proc.Current() != nil {
		t.Errorf("current task after suspend")
	}
	if initTask.Status() != Ready || kern.manager.Len() != 2 {
		t.Errorf("suspend: status %v, queue %v", initTask.Status(),
			kern.manager.Len())
	}
	if kern.proc.cpu.RA != idleEntry {
		t.Errorf("suspend did not switch to idle: %v", kern.proc.cpu)
	}

	kern.runIdle()
	if kern.proc.Current() != child {
		t.Errorf("dispatched %v, expected child", kern.proc.Current())
	}
	kern.exitCurrentAndRunNext(3)
	if child.Status() != Zombie || child.ExitCode() != 3 {
		t.Errorf("exit: status %v, code %v", child.Status(), child.ExitCode())
	}
	if kern.manager.Len() != 1 {
		t.Errorf("exited task in ready queue")
	}
	if kern.halted != nil {
		t.Errorf("child exit halted the kernel")
	}

	kern.runIdle()
	kern.exitCurrentAndRunNext(0)
	if kern.halted == nil || kern.halted.code != 0 || kern.halted.err != nil {
		t.Errorf("init exit did not shut down: %v", kern.halted)
	}
}

func TestAllCompleted(t *testing.T) {
	kern, _ := newTestKernel(t, &Params{
		InitProc: "hello",
	}, "")
	kern.manager.Fetch()

	code, err := kern.Run()
	if err != nil || code != 0 {
		t.Errorf("Run: code %v, err %v", code, err)
	}
}

func TestTimeAccounting(t *testing.T) {
	kern, _ := newTestKernel(t, &Params{
		InitProc: "hello",
	}, "")
	initTask := kern.Init()

	kern.proc.cpu = TaskContext{
		RA: idleEntry,
	}
	kern.runIdle()
	if kern.proc.Current() != initTask {
		t.Fatalf("dispatched %v, expected init", kern.proc.Current())
	}

	// The first trap return runs the task until its write syscall.
	kern.trapReturn()
	r1 := initTask.RUsage()
	if r1.Utime <= 0 || r1.Stime <= 0 {
		t.Errorf("first round trip: %v", r1)
	}
	if initTask.syscalls[SysWrite] != 1 {
		t.Errorf("write count %v", initTask.syscalls[SysWrite])
	}
	if kern.proc.Current() != initTask {
		t.Fatalf("write switched task")
	}

	kern.trapReturn()
	r2 := initTask.RUsage()
	if r2.Utime <= r1.Utime {
		t.Errorf("utime did not grow: %v => %v", r1.Utime, r2.Utime)
	}
	if r2.Stime <= r1.Stime {
		t.Errorf("stime did not grow: %v => %v", r1.Stime, r2.Stime)
	}
	if initTask.Status() != Zombie {
		t.Errorf("status %v after exit", initTask.Status())
	}
}
