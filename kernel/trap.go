//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"errors"

	"github.com/markkurossi/rvos/hart"
	"github.com/markkurossi/rvos/mm"
	"go.uber.org/zap"
	"gvisor.dev/gvisor/pkg/hostarch"
)

// Exit codes of tasks killed by the kernel.
const (
	ExitPageFault          int32 = -2
	ExitIllegalInstruction int32 = -3
)

type syscall struct {
	call Syscall
	arg0 uint64
	arg1 uint64
	arg2 uint64
	ret  int64
	err  error
}

// trapHandler handles the trap of the current task.
func (kern *Kernel) trapHandler(task *Task, tr hart.Trap) {
	switch {
	case tr.Cause == hart.UserEnvCall:
		kern.userEnvCall(task)

	case tr.Cause == hart.SupervisorTimer:
		kern.suspendCurrentAndRunNext()

	case tr.Cause.IsPageFault(), tr.Cause == hart.InstructionMisaligned:
		kern.log.Warn("memory fault in application",
			zap.Stringer("task", task), zap.Stringer("cause", tr.Cause),
			zap.Uint64("stval", tr.Tval),
			zap.Uint64("sepc", task.TrapContext().Sepc))
		kern.exitCurrentAndRunNext(ExitPageFault)

	default:
		kern.log.Warn("illegal instruction in application",
			zap.Stringer("task", task), zap.Stringer("cause", tr.Cause),
			zap.Uint64("stval", tr.Tval))
		kern.exitCurrentAndRunNext(ExitIllegalInstruction)
	}
}

// userEnvCall dispatches the system call of the task.
func (kern *Kernel) userEnvCall(task *Task) {
	tc := task.TrapContext()
	tc.Sepc += 4
	task.setTrapContext(tc)

	sys := &syscall{
		call: Syscall(tc.X[hart.RegA7]),
		arg0: tc.X[hart.RegA0],
		arg1: tc.X[hart.RegA1],
		arg2: tc.X[hart.RegA2],
	}
	counted := sys.call < MaxSyscallNum
	if counted {
		task.syscalls[sys.call]++
	}
	kern.ktraceCall(task, sys)

	sys.ret, sys.err = kern.syscall(task, sys)
	if errors.Is(sys.err, errRestart) {
		if counted {
			task.syscalls[sys.call]--
		}
		tc = task.TrapContext()
		tc.Sepc -= 4
		task.setTrapContext(tc)
		kern.suspendCurrentAndRunNext()
		return
	}
	if sys.err != nil {
		sys.ret = -1
	}
	if task.Status() == Zombie {
		return
	}
	kern.ktraceRet(task, sys)

	tc = task.TrapContext()
	tc.X[hart.RegA0] = uint64(sys.ret)
	task.setTrapContext(tc)
}

func (kern *Kernel) syscall(task *Task, sys *syscall) (int64, error) {
	switch sys.call {
	case SysOpen:
		return kern.sysOpen(task, sys)
	case SysClose:
		return kern.sysClose(task, sys)
	case SysRead:
		return kern.sysRead(task, sys)
	case SysWrite:
		return kern.sysWrite(task, sys)
	case SysExit:
		kern.exitCurrentAndRunNext(int32(sys.arg0))
		return 0, nil
	case SysYield:
		kern.suspendCurrentAndRunNext()
		return 0, nil
	case SysGetTime:
		return kern.sysGetTime(task, sys)
	case SysGetpid:
		return int64(task.pid), nil
	case SysSbrk:
		return kern.sysSbrk(task, sys)
	case SysMmap:
		return kern.sysMmap(task, sys)
	case SysMunmap:
		return kern.sysMunmap(task, sys)
	case SysFork:
		return kern.sysFork(task, sys)
	case SysExec:
		return kern.sysExec(task, sys)
	case SysWaitpid:
		return kern.sysWaitpid(task, sys)
	case SysTaskInfo:
		return kern.sysTaskInfo(task, sys)
	case SysSpawn:
		return kern.sysSpawn(task, sys)
	case SysFstat:
		return kern.sysFstat(task, sys)
	case SysLinkat:
		return kern.sysLinkat(task, sys)
	case SysUnlinkat:
		return kern.sysUnlinkat(task, sys)
	default:
		kern.log.Warn("unsupported syscall",
			zap.Stringer("task", task), zap.Uint64("id", uint64(sys.call)))
		return -1, ENOSYS
	}
}

// userBuffer validates the user buffer against the task's areas and
// returns its kernel views.
func (task *Task) userBuffer(ptr mm.VirtAddr, length uint64,
	access hostarch.AccessType) (*mm.UserBuffer, error) {

	err := task.memSet.CheckRange(ptr, length, access)
	if err != nil {
		return nil, err
	}
	bufs, err := task.kern.mem.TranslatedByteBuffer(task.Token(), ptr,
		length, access)
	if err != nil {
		return nil, err
	}
	return mm.NewUserBuffer(bufs), nil
}

// copyOut copies the record to user space.
func (task *Task) copyOut(ptr mm.VirtAddr, v any) error {
	data := Marshal(v)
	err := task.memSet.CheckRange(ptr, uint64(len(data)), hostarch.Write)
	if err != nil {
		return err
	}
	return task.kern.mem.CopyOut(task.Token(), ptr, data)
}

// storeInt32 stores the value to user space. Values within one page
// are written through their kernel view.
func (task *Task) storeInt32(ptr mm.VirtAddr, v int32) error {
	const size = 4
	if ptr.PageOffset()+size > mm.PageSize {
		return task.copyOut(ptr, v)
	}
	err := task.memSet.CheckRange(ptr, size, hostarch.Write)
	if err != nil {
		return err
	}
	ref, err := task.kern.mem.TranslatedRef(task.Token(), ptr, size,
		hostarch.Write)
	if err != nil {
		return err
	}
	bo.PutUint32(ref, uint32(v))
	return nil
}

// userString reads the NUL-terminated string from user space.
func (task *Task) userString(ptr mm.VirtAddr) (string, error) {
	err := task.memSet.CheckRange(ptr, 1, hostarch.Read)
	if err != nil {
		return "", err
	}
	return task.kern.mem.TranslatedStr(task.Token(), ptr)
}
