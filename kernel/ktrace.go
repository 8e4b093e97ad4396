//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/markkurossi/rvos/mm"
	"github.com/markkurossi/rvos/ramfs"
)

func (kern *Kernel) ktraceOut() io.Writer {
	return kern.params.TraceOut
}

func (kern *Kernel) ktracePrefix(task *Task) {
	fmt.Fprintf(kern.ktraceOut(), "%7s %-10s ", task.pid, task.name)
}

func (kern *Kernel) ktraceString(task *Task, arg uint64) string {
	str, err := kern.mem.TranslatedStr(task.Token(), mm.VirtAddr(arg))
	if err != nil {
		return fmt.Sprintf("%#x", arg)
	}
	return fmt.Sprintf("%q", str)
}

func (kern *Kernel) ktraceCall(task *Task, sys *syscall) {
	if !kern.params.Trace {
		return
	}
	out := kern.ktraceOut()

	kern.ktracePrefix(task)
	fmt.Fprintf(out, "CALL %s", sys.call)
	switch sys.call {
	case SysExit, SysClose, SysSbrk:
		fmt.Fprintf(out, "(%d)", int64(sys.arg0))

	case SysExec, SysSpawn, SysUnlinkat:
		fmt.Fprintf(out, "(%s)", kern.ktraceString(task, sys.arg0))

	case SysOpen:
		fmt.Fprintf(out, "(%s, %s)", kern.ktraceString(task, sys.arg0),
			ramfs.OpenFlag(sys.arg1))

	case SysLinkat:
		fmt.Fprintf(out, "(%s, %s)", kern.ktraceString(task, sys.arg0),
			kern.ktraceString(task, sys.arg1))

	case SysRead, SysWrite:
		fmt.Fprintf(out, "(%d, %#x, %d)", int64(sys.arg0), sys.arg1, sys.arg2)

	case SysMmap:
		fmt.Fprintf(out, "(%#x, %d, %#x)", sys.arg0, sys.arg1, sys.arg2)

	case SysMunmap:
		fmt.Fprintf(out, "(%#x, %d)", sys.arg0, sys.arg1)

	case SysWaitpid:
		fmt.Fprintf(out, "(%d, %#x)", int64(sys.arg0), sys.arg1)

	case SysFstat:
		fmt.Fprintf(out, "(%d, %#x)", int64(sys.arg0), sys.arg1)

	case SysGetTime, SysTaskInfo:
		fmt.Fprintf(out, "(%#x)", sys.arg0)
	}
	fmt.Fprintln(out)
}

func (kern *Kernel) ktraceRet(task *Task, sys *syscall) {
	if !kern.params.Trace {
		return
	}
	out := kern.ktraceOut()

	kern.ktracePrefix(task)
	fmt.Fprintf(out, "RET  %s ", sys.call)
	if sys.err != nil {
		errno := mapError(sys.err)
		fmt.Fprintf(out, "%d %s", sys.ret, errno)
		if kern.params.Verbose {
			fmt.Fprintf(out, " (%v)", sys.err)
		}
	} else {
		switch sys.call {
		case SysFork, SysSpawn, SysWaitpid:
			if sys.ret >= 0 {
				fmt.Fprintf(out, "%s", PID(sys.ret))
			} else {
				fmt.Fprintf(out, "%d", sys.ret)
			}

		case SysSbrk:
			fmt.Fprintf(out, "%#x", sys.ret)

		default:
			fmt.Fprintf(out, "%d", sys.ret)
		}
		if kern.params.Verbose {
			kern.ktraceResult(task, sys)
		}
	}
	fmt.Fprintln(out)
}

// ktraceResult prints the record the syscall stored to user space.
func (kern *Kernel) ktraceResult(task *Task, sys *syscall) {
	out := kern.ktraceOut()

	switch sys.call {
	case SysGetTime:
		var tv TimeVal
		if kern.ktraceRecord(task, sys.arg0, &tv) {
			fmt.Fprintf(out, " {sec=%d, usec=%d}", tv.Sec, tv.Usec)
		}

	case SysTaskInfo:
		var info TaskInfo
		if kern.ktraceRecord(task, sys.arg0, &info) {
			fmt.Fprintf(out, " {status=%v, time=%dms}", info.Status, info.Time)
		}

	case SysFstat:
		var st Stat
		if kern.ktraceRecord(task, sys.arg1, &st) {
			fmt.Fprintf(out, " {ino=%d, mode=%#o, nlink=%d, size=%d}",
				st.Ino, st.Mode, st.Nlink, st.Size)
		}
	}
}

func (kern *Kernel) ktraceRecord(task *Task, ptr uint64, v any) bool {
	data, err := kern.mem.CopyIn(task.Token(), mm.VirtAddr(ptr),
		uint64(binary.Size(v)))
	if err != nil {
		return false
	}
	return Unmarshal(data, v) == nil
}

func (kern *Kernel) ktraceExit(task *Task) {
	if !kern.params.Trace {
		return
	}
	out := kern.ktraceOut()

	kern.ktracePrefix(task)
	fmt.Fprintf(out, "EXIT %v\n", task.exitCode)

	kern.ktracePrefix(task)
	fmt.Fprintf(out, "RUSG %v\n", task.rusage)
}

func (kern *Kernel) ktraceReap(task, child *Task) {
	if !kern.params.Trace {
		return
	}
	kern.ktracePrefix(task)
	fmt.Fprintf(kern.ktraceOut(), "REAP %s %v\n", child.pid, child.exitCode)
}
