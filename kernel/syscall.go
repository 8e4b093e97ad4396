//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
)

// Syscall defines system calls.
type Syscall uint64

func (call Syscall) String() string {
	name, ok := syscallNames[call]
	if ok {
		return name
	}
	return fmt.Sprintf("{Syscall %d}", call)
}

// MaxSyscallNum bounds the syscall ids counted in the task's syscall
// table.
const MaxSyscallNum = 500

// System calls.
const (
	SysOpen     Syscall = 56
	SysClose    Syscall = 57
	SysRead     Syscall = 63
	SysWrite    Syscall = 64
	SysExit     Syscall = 93
	SysYield    Syscall = 124
	SysGetTime  Syscall = 169
	SysGetpid   Syscall = 172
	SysMunmap   Syscall = 215
	SysSbrk     Syscall = 214
	SysFork     Syscall = 220
	SysExec     Syscall = 221
	SysMmap     Syscall = 222
	SysWaitpid  Syscall = 260
	SysTaskInfo Syscall = 410
	SysSpawn    Syscall = 1000
	SysFstat    Syscall = 1001
	SysLinkat   Syscall = 1002
	SysUnlinkat Syscall = 1003
)

var syscallNames = map[Syscall]string{
	SysOpen:     "open",
	SysClose:    "close",
	SysRead:     "read",
	SysWrite:    "write",
	SysExit:     "exit",
	SysYield:    "yield",
	SysGetTime:  "get_time",
	SysGetpid:   "getpid",
	SysMunmap:   "munmap",
	SysSbrk:     "sbrk",
	SysFork:     "fork",
	SysExec:     "exec",
	SysMmap:     "mmap",
	SysWaitpid:  "waitpid",
	SysTaskInfo: "task_info",
	SysSpawn:    "spawn",
	SysFstat:    "fstat",
	SysLinkat:   "linkat",
	SysUnlinkat: "unlinkat",
}
