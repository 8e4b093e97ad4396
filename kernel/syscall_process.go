//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"slices"
	"time"

	"github.com/markkurossi/rvos/hart"
	"github.com/markkurossi/rvos/mm"
)

func (kern *Kernel) sysFork(task *Task, sys *syscall) (int64, error) {
	child, err := task.Fork()
	if err != nil {
		return -1, err
	}
	// The child returns 0 from fork.
	tc := child.TrapContext()
	tc.X[hart.RegA0] = 0
	child.setTrapContext(tc)

	kern.manager.Add(child)
	return int64(child.pid), nil
}

func (kern *Kernel) sysExec(task *Task, sys *syscall) (int64, error) {
	path, err := task.userString(mm.VirtAddr(sys.arg0))
	if err != nil {
		return -1, err
	}
	data, err := kern.fs.ReadFile(path)
	if err != nil {
		return -1, err
	}
	err = task.Exec(path, data)
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (kern *Kernel) sysSpawn(task *Task, sys *syscall) (int64, error) {
	path, err := task.userString(mm.VirtAddr(sys.arg0))
	if err != nil {
		return -1, err
	}
	data, err := kern.fs.ReadFile(path)
	if err != nil {
		return -1, err
	}
	child, err := task.Spawn(path, data)
	if err != nil {
		return -1, err
	}
	kern.manager.Add(child)
	return int64(child.pid), nil
}

// sysWaitpid reaps a zombie child. It returns -1 if the task has no
// matching child and -2 if no matching child has exited yet.
func (kern *Kernel) sysWaitpid(task *Task, sys *syscall) (int64, error) {
	pid := int64(sys.arg0)

	task.m.Lock()
	var found bool
	idx := -1
	for i, child := range task.children {
		if pid != -1 && int64(child.pid) != pid {
			continue
		}
		found = true
		if child.Status() == Zombie {
			idx = i
			break
		}
	}
	if !found {
		task.m.Unlock()
		return -1, ECHILD
	}
	if idx < 0 {
		task.m.Unlock()
		return -2, nil
	}
	child := task.children[idx]
	task.m.Unlock()

	if ptr := mm.VirtAddr(sys.arg1); ptr != 0 {
		err := task.storeInt32(ptr, child.exitCode)
		if err != nil {
			return -1, err
		}
	}

	task.m.Lock()
	task.children = slices.Delete(task.children, idx, idx+1)
	task.m.Unlock()

	pid = int64(child.pid)
	child.release()
	kern.ktraceReap(task, child)

	return pid, nil
}

func (kern *Kernel) sysGetTime(task *Task, sys *syscall) (int64, error) {
	err := task.copyOut(mm.VirtAddr(sys.arg0), NewTimeVal(kern.clock.Now()))
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (kern *Kernel) sysTaskInfo(task *Task, sys *syscall) (int64, error) {
	info := TaskInfo{
		Status:       Running,
		SyscallTimes: task.syscalls,
		Time:         uint64((kern.clock.Now() - task.started) / time.Millisecond),
	}
	err := task.copyOut(mm.VirtAddr(sys.arg0), info)
	if err != nil {
		return -1, err
	}
	return 0, nil
}
