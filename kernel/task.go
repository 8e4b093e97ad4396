//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"time"
	"weak"

	"github.com/hashicorp/go-multierror"
	"github.com/markkurossi/rvos/hart"
	"github.com/markkurossi/rvos/mm"
)

// TaskStatus defines task states.
type TaskStatus uint32

// Task states.
const (
	UnInit TaskStatus = iota
	Ready
	Running
	Zombie
)

var statusNames = map[TaskStatus]string{
	UnInit:  "uninit",
	Ready:   "ready",
	Running: "run",
	Zombie:  "zomb",
}

func (st TaskStatus) String() string {
	name, ok := statusNames[st]
	if ok {
		return name
	}
	return fmt.Sprintf("{TaskStatus %d}", st)
}

// RUsage provides task resource usage information.
type RUsage struct {
	Utime time.Duration
	Stime time.Duration
}

func (rusage RUsage) String() string {
	return fmt.Sprintf("utime=%v, stime=%v", rusage.Utime, rusage.Stime)
}

// Task implements the task control block.
type Task struct {
	m      exclusive
	kern   *Kernel
	name   string
	pid    PID
	kstack *KernelStack

	status     TaskStatus
	taskCx     TaskContext
	trapCxPPN  mm.PhysPageNum
	memSet     *mm.MemorySet
	baseSize   mm.VirtAddr
	heapBottom mm.VirtAddr
	programBrk mm.VirtAddr

	parent   weak.Pointer[Task]
	children []*Task
	exitCode int32

	fds        []*FD
	syscalls   [MaxSyscallNum]uint32
	rusage     RUsage
	started    time.Duration
	dispatched bool
}

// NewTask creates a task for the ELF program.
func (kern *Kernel) NewTask(name string, elf []byte) (*Task, error) {
	ms, sp, entry, err := mm.FromELF(kern.mem, elf)
	if err != nil {
		return nil, err
	}
	task := &Task{
		kern:   kern,
		name:   name,
		status: UnInit,
	}
	err = task.setup()
	if err != nil {
		ms.Release()
		return nil, err
	}
	task.fds = []*FD{
		kern.stdin.Copy(),
		kern.stdout.Copy(),
		kern.stdout.Copy(),
	}
	task.setMemorySet(ms, sp)
	task.setTrapContext(hart.AppInitContext(entry, uint64(sp),
		kern.space.Token(), uint64(task.kstack.Top()), trapHandlerEntry))
	task.status = Ready

	kern.tasks[task.pid] = task
	return task, nil
}

// setup allocates the task's pid and kernel stack.
func (task *Task) setup() error {
	kern := task.kern
	task.pid = PID(kern.pids.Alloc())
	kstack, err := newKernelStack(kern.space, task.pid)
	if err != nil {
		kern.pids.Dealloc(int(task.pid))
		return err
	}
	task.kstack = kstack
	task.taskCx = GotoTrapReturn(kstack.Top())
	return nil
}

func (task *Task) setMemorySet(ms *mm.MemorySet, sp mm.VirtAddr) {
	pte, ok := ms.Translate(mm.Floor(mm.TrapContextBase))
	if !ok {
		panic("trap context not mapped")
	}
	task.memSet = ms
	task.trapCxPPN = pte.PPN()
	task.baseSize = sp
	task.heapBottom = ms.HeapBottom()
	task.programBrk = task.heapBottom
}

// PID returns the task's process ID.
func (task *Task) PID() PID {
	return task.pid
}

// Name returns the name of the task's program.
func (task *Task) Name() string {
	return task.name
}

// Status returns the task status.
func (task *Task) Status() TaskStatus {
	task.m.Lock()
	defer task.m.Unlock()
	return task.status
}

// ExitCode returns the task's exit code. It is valid once the task
// is a zombie.
func (task *Task) ExitCode() int32 {
	return task.exitCode
}

// Parent returns the task's parent or nil if the parent is gone.
func (task *Task) Parent() *Task {
	return task.parent.Value()
}

// Children returns the task's children.
func (task *Task) Children() []*Task {
	task.m.Lock()
	defer task.m.Unlock()
	return append([]*Task(nil), task.children...)
}

// RUsage returns the task's resource usage.
func (task *Task) RUsage() RUsage {
	return task.rusage
}

// Token returns the page table token of the task's address space.
func (task *Task) Token() uint64 {
	return task.memSet.Token()
}

// TrapContext returns a copy of the task's trap context.
func (task *Task) TrapContext() *hart.TrapContext {
	tc := new(hart.TrapContext)
	tc.Load(task.kern.mem.Page(task.trapCxPPN))
	return tc
}

func (task *Task) setTrapContext(tc *hart.TrapContext) {
	tc.Store(task.kern.mem.Page(task.trapCxPPN))
}

func (task *Task) String() string {
	return fmt.Sprintf("%s[%s]", task.name, task.pid)
}

// Fork creates a child task with a copy of the task's address space
// and shared file descriptors. The child returns to user mode at the
// same point as the parent.
func (task *Task) Fork() (*Task, error) {
	task.m.Lock()
	defer task.m.Unlock()

	kern := task.kern
	ms, err := mm.FromExistedUser(task.memSet)
	if err != nil {
		return nil, err
	}
	child := &Task{
		kern:   kern,
		name:   task.name,
		status: UnInit,
		parent: weak.Make(task),
	}
	err = child.setup()
	if err != nil {
		ms.Release()
		return nil, err
	}
	child.setMemorySet(ms, task.baseSize)
	child.programBrk = task.programBrk

	for _, fd := range task.fds {
		if fd != nil {
			fd = fd.Copy()
		}
		child.fds = append(child.fds, fd)
	}

	tc := child.TrapContext()
	tc.KernelSP = uint64(child.kstack.Top())
	child.setTrapContext(tc)
	child.status = Ready

	task.children = append(task.children, child)
	kern.tasks[child.pid] = child
	return child, nil
}

// Exec replaces the task's program with the ELF program. The pid,
// the process tree links, and the file descriptors are preserved. On
// error the task is not modified.
func (task *Task) Exec(name string, elf []byte) error {
	ms, sp, entry, err := mm.FromELF(task.kern.mem, elf)
	if err != nil {
		return err
	}
	task.m.Lock()
	old := task.memSet
	task.name = name
	task.setMemorySet(ms, sp)
	task.setTrapContext(hart.AppInitContext(entry, uint64(sp),
		task.kern.space.Token(), uint64(task.kstack.Top()), trapHandlerEntry))
	task.m.Unlock()

	old.Release()
	return nil
}

// Spawn creates a child task running the ELF program.
func (task *Task) Spawn(name string, elf []byte) (*Task, error) {
	child, err := task.kern.NewTask(name, elf)
	if err != nil {
		return nil, err
	}
	child.parent = weak.Make(task)

	task.m.Lock()
	task.children = append(task.children, child)
	task.m.Unlock()

	return child, nil
}

// AllocFD allocates the lowest free file descriptor for the FD.
func (task *Task) AllocFD(fd *FD) int {
	task.m.Lock()
	defer task.m.Unlock()

	for idx, slot := range task.fds {
		if slot == nil {
			task.fds[idx] = fd
			return idx
		}
	}
	task.fds = append(task.fds, fd)
	return len(task.fds) - 1
}

// GetFD returns the FD of the file descriptor.
func (task *Task) GetFD(fd int64) (*FD, error) {
	task.m.Lock()
	defer task.m.Unlock()

	if fd < 0 || fd >= int64(len(task.fds)) || task.fds[fd] == nil {
		return nil, EBADF
	}
	return task.fds[fd], nil
}

// FreeFD frees the file descriptor and closes its FD.
func (task *Task) FreeFD(fd int64) error {
	task.m.Lock()
	if fd < 0 || fd >= int64(len(task.fds)) || task.fds[fd] == nil {
		task.m.Unlock()
		return EBADF
	}
	f := task.fds[fd]
	task.fds[fd] = nil
	task.m.Unlock()

	return f.Close()
}

func (task *Task) closeFDs() error {
	task.m.Lock()
	fds := task.fds
	task.fds = nil
	task.m.Unlock()

	var result error
	for idx, fd := range fds {
		if fd == nil {
			continue
		}
		if err := fd.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("fd %d: %w", idx, err))
		}
	}
	return result
}

// exit turns the task into a zombie. The task's children are
// reparented to init and its data pages and files are released.
func (task *Task) exit(code int32, reaper *Task) {
	task.m.Lock()
	task.status = Zombie
	task.exitCode = code
	children := task.children
	task.children = nil
	task.m.Unlock()

	if len(children) > 0 {
		reaper.m.Lock()
		for _, child := range children {
			child.parent = weak.Make(reaper)
			reaper.children = append(reaper.children, child)
		}
		reaper.m.Unlock()
	}

	task.memSet.RecycleDataPages()
	if err := task.closeFDs(); err != nil {
		task.kern.log.Sugar().Warnw("closing files failed",
			"task", task.String(), "error", err)
	}
}

// release frees the zombie task's address space, kernel stack, and
// process ID.
func (task *Task) release() {
	kern := task.kern
	task.memSet.Release()
	task.kstack.release()
	kern.pids.Dealloc(int(task.pid))
	delete(kern.tasks, task.pid)
}
