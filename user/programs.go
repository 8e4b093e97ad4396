//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package user

import (
	"encoding/binary"

	"github.com/markkurossi/rvos/asm"
)

// Open flags of the user ABI.
const (
	oRdonly = 0x000
	oWronly = 0x001
	oCreate = 0x200
)

// mmapBase is the address the memory mapping programs use.
const mmapBase = 0x10000000

// InitProc forks the user shell and reaps orphaned tasks until it has
// no children left.
func InitProc() *Program {
	p := newProgram("initproc")

	p.Syscall(sysFork)
	p.Bnez(asm.A0, "reap")

	p.La(asm.A0, "shell")
	p.Syscall(sysExec)
	p.Exit(-4)

	p.Label("reap")
	p.Li(asm.A0, -1)
	p.La(asm.A1, "code")
	p.Syscall(sysWaitpid)
	p.Li(asm.T0, -1)
	p.Beq(asm.A0, asm.T0, "done")
	p.Li(asm.T0, -2)
	p.Bne(asm.A0, asm.T0, "reap")
	p.Syscall(sysYield)
	p.J("reap")

	p.Label("done")
	p.Exit(0)

	p.Asciz("shell", "usershell")
	p.Space("code", 8)

	return p
}

// UserShell reads command lines from stdin and spawns them. It exits
// when stdin is closed.
func UserShell() *Program {
	p := newProgram("usershell")

	p.Puts("prompt")
	p.La(asm.S0, "line")
	p.Li(asm.S1, 0)

	p.Label("read")
	p.Li(asm.A0, 0)
	p.La(asm.A1, "ch")
	p.Li(asm.A2, 1)
	p.Syscall(sysRead)
	p.Beqz(asm.A0, "eof")
	p.Bltz(asm.A0, "eof")
	p.La(asm.T0, "ch")
	p.Lbu(asm.S2, asm.T0, 0)
	p.Li(asm.T0, '\n')
	p.Beq(asm.S2, asm.T0, "enter")
	p.Li(asm.T0, '\r')
	p.Beq(asm.S2, asm.T0, "enter")
	p.Li(asm.T0, 0x7f)
	p.Beq(asm.S2, asm.T0, "backspace")
	p.Li(asm.T0, 0x08)
	p.Beq(asm.S2, asm.T0, "backspace")
	p.Li(asm.T0, 126)
	p.Bge(asm.S1, asm.T0, "read")
	p.Add(asm.T0, asm.S0, asm.S1)
	p.Sb(asm.S2, asm.T0, 0)
	p.Addi(asm.S1, asm.S1, 1)
	p.Mv(asm.A0, asm.S2)
	p.Call("putchar")
	p.J("read")

	p.Label("backspace")
	p.Beqz(asm.S1, "read")
	p.Addi(asm.S1, asm.S1, -1)
	p.Puts("erase")
	p.J("read")

	p.Label("enter")
	p.Puts("newline")
	p.Beqz(asm.S1, "again")
	p.Add(asm.T0, asm.S0, asm.S1)
	p.Sb(asm.Zero, asm.T0, 0)
	p.Mv(asm.A0, asm.S0)
	p.Syscall(sysSpawn)
	p.Bltz(asm.A0, "notfound")
	p.Mv(asm.S3, asm.A0)
	p.Wait(asm.S3, "code")
	p.Puts("msg1")
	p.Mv(asm.A0, asm.S3)
	p.Call("putnum")
	p.Puts("msg2")
	p.La(asm.T0, "code")
	p.Lw(asm.A0, asm.T0, 0)
	p.Call("putnum")
	p.Puts("newline")
	p.J("reset")

	p.Label("notfound")
	p.Puts("nfmsg")

	p.Label("reset")
	p.Li(asm.S1, 0)

	p.Label("again")
	p.Puts("prompt")
	p.J("read")

	p.Label("eof")
	p.Exit(0)

	p.Asciz("prompt", ">> ")
	p.Asciz("newline", "\n")
	p.Asciz("erase", "\b \b")
	p.Asciz("msg1", "Shell: Process ")
	p.Asciz("msg2", " exited with code ")
	p.Asciz("nfmsg", "Shell: command not found\n")
	p.Space("ch", 8)
	p.Space("code", 8)
	p.Space("line", 128)

	return p
}

// Hello prints a greeting.
func Hello() *Program {
	p := newProgram("hello")
	p.Puts("msg")
	p.Exit(0)
	p.Asciz("msg", "Hello, world!\n")
	return p
}

// Exit7 exits with code 7.
func Exit7() *Program {
	p := newProgram("exit7")
	p.Exit(7)
	return p
}

// Illegal executes a breakpoint.
func Illegal() *Program {
	p := newProgram("illegal")
	p.Ebreak()
	p.Exit(0)
	return p
}

// MmapFault stores to a read-only mapping.
func MmapFault() *Program {
	p := newProgram("mmapfault")
	p.Li(asm.A0, mmapBase)
	p.Li(asm.A1, 4096)
	p.Li(asm.A2, 1)
	p.Syscall(sysMmap)
	p.ExpectEq(asm.A0, 0, 1)

	p.Li(asm.S0, mmapBase)
	p.Ld(asm.T0, asm.S0, 0)
	p.ExpectEq(asm.T0, 0, 2)
	p.Sd(asm.T0, asm.S0, 0)
	p.Exit(3)
	return p
}

// ForkTest waits for a forked child that exits with code 7.
func ForkTest() *Program {
	p := newProgram("forktest")

	p.Syscall(sysFork)
	p.Mv(asm.S0, asm.A0)
	p.Beqz(asm.A0, "child")

	p.Mv(asm.A0, asm.S0)
	p.La(asm.A1, "code")
	p.Syscall(sysWaitpid)
	p.ExpectEq(asm.A0, -2, 1)

	p.Wait(asm.S0, "code")
	p.ExpectEqReg(asm.A0, asm.S0, 2)
	p.La(asm.T0, "code")
	p.Lw(asm.T1, asm.T0, 0)
	p.ExpectEq(asm.T1, 7, 3)

	p.Li(asm.A0, -1)
	p.Li(asm.A1, 0)
	p.Syscall(sysWaitpid)
	p.ExpectEq(asm.A0, -1, 4)

	p.Mv(asm.A0, asm.S0)
	p.Li(asm.A1, 0)
	p.Syscall(sysWaitpid)
	p.ExpectEq(asm.A0, -1, 5)
	p.Exit(0)

	p.Label("child")
	p.Syscall(sysGetpid)
	p.ExpectNonNeg(asm.A0, 8)
	p.Exit(7)

	p.Space("code", 8)
	return p
}

// ForkMem verifies that the forked child has a private copy of the
// parent's memory.
func ForkMem() *Program {
	p := newProgram("forkmem")

	p.La(asm.S0, "value")
	p.Syscall(sysFork)
	p.Mv(asm.S1, asm.A0)
	p.Beqz(asm.A0, "child")

	p.Wait(asm.S1, "code")
	p.ExpectEqReg(asm.A0, asm.S1, 1)
	p.La(asm.T0, "code")
	p.Lw(asm.T1, asm.T0, 0)
	p.ExpectEq(asm.T1, 2, 2)
	p.Ld(asm.T1, asm.S0, 0)
	p.ExpectEq(asm.T1, 1, 3)
	p.Exit(0)

	p.Label("child")
	p.Ld(asm.T1, asm.S0, 0)
	p.ExpectEq(asm.T1, 1, 4)
	p.Li(asm.T0, 2)
	p.Sd(asm.T0, asm.S0, 0)
	p.Ld(asm.A0, asm.S0, 0)
	p.Syscall(sysExit)

	p.Data("value", binary.LittleEndian.AppendUint64(nil, 1))
	p.Space("code", 8)
	return p
}

// Reparent forks a child that forks three grandchildren and exits.
// The grandchildren are reparented to init, which reaps all four
// tasks.
func Reparent() *Program {
	p := newProgram("reparent")

	p.Syscall(sysFork)
	p.Beqz(asm.A0, "middle")

	p.Li(asm.S1, 0)
	p.Label("reap")
	p.Li(asm.A0, -1)
	p.Li(asm.A1, 0)
	p.Syscall(sysWaitpid)
	p.Li(asm.T0, -1)
	p.Beq(asm.A0, asm.T0, "done")
	p.Li(asm.T0, -2)
	p.Bne(asm.A0, asm.T0, "reaped")
	p.Syscall(sysYield)
	p.J("reap")
	p.Label("reaped")
	p.Addi(asm.S1, asm.S1, 1)
	p.J("reap")
	p.Label("done")
	p.ExpectEq(asm.S1, 4, 1)
	p.Exit(0)

	p.Label("middle")
	p.Li(asm.S2, 3)
	p.Label("spawn")
	p.Syscall(sysFork)
	p.Beqz(asm.A0, "grandchild")
	p.Addi(asm.S2, asm.S2, -1)
	p.Bnez(asm.S2, "spawn")
	p.Exit(0)

	p.Label("grandchild")
	p.Li(asm.S3, 5)
	p.Label("yield")
	p.Syscall(sysYield)
	p.Addi(asm.S3, asm.S3, -1)
	p.Bnez(asm.S3, "yield")
	p.Exit(0)

	return p
}

// Preempt busy-waits for a child that spins. The tasks only make
// progress if the timer preempts them.
func Preempt() *Program {
	p := newProgram("preempt")

	p.Syscall(sysFork)
	p.Mv(asm.S0, asm.A0)
	p.Beqz(asm.A0, "child")

	p.Label("poll")
	p.Mv(asm.A0, asm.S0)
	p.La(asm.A1, "code")
	p.Syscall(sysWaitpid)
	p.Li(asm.T0, -2)
	p.Beq(asm.A0, asm.T0, "poll")
	p.ExpectEqReg(asm.A0, asm.S0, 1)
	p.La(asm.T0, "code")
	p.Lw(asm.T1, asm.T0, 0)
	p.ExpectEq(asm.T1, 3, 2)
	p.Exit(0)

	p.Label("child")
	p.Li(asm.S1, 100000)
	p.Label("spin")
	p.Addi(asm.S1, asm.S1, -1)
	p.Bnez(asm.S1, "spin")
	p.Exit(3)

	p.Space("code", 8)
	return p
}

// ExecTest replaces itself with the hello program.
func ExecTest() *Program {
	p := newProgram("exectest")

	p.La(asm.A0, "missing")
	p.Syscall(sysExec)
	p.ExpectEq(asm.A0, -1, 1)

	p.La(asm.A0, "hello")
	p.Syscall(sysExec)
	p.Exit(2)

	p.Asciz("missing", "nonexistent")
	p.Asciz("hello", "hello")
	return p
}

// SpawnTest spawns a child and collects its exit code.
func SpawnTest() *Program {
	p := newProgram("spawntest")

	p.La(asm.A0, "missing")
	p.Syscall(sysSpawn)
	p.ExpectEq(asm.A0, -1, 1)

	p.La(asm.A0, "exit7")
	p.Syscall(sysSpawn)
	p.Mv(asm.S0, asm.A0)
	p.ExpectNonNeg(asm.S0, 2)

	p.Wait(asm.S0, "code")
	p.ExpectEqReg(asm.A0, asm.S0, 3)
	p.La(asm.T0, "code")
	p.Lw(asm.T1, asm.T0, 0)
	p.ExpectEq(asm.T1, 7, 4)
	p.Exit(0)

	p.Asciz("missing", "nonexistent")
	p.Asciz("exit7", "exit7")
	p.Space("code", 8)
	return p
}

// WaitTest checks waitpid without children and with an invalid exit
// code pointer.
func WaitTest() *Program {
	p := newProgram("waittest")

	p.Li(asm.A0, -1)
	p.Li(asm.A1, 0)
	p.Syscall(sysWaitpid)
	p.ExpectEq(asm.A0, -1, 1)

	p.La(asm.A0, "exit7")
	p.Syscall(sysSpawn)
	p.Mv(asm.S0, asm.A0)
	p.ExpectNonNeg(asm.S0, 2)

	p.Li(asm.A0, 12345)
	p.Li(asm.A1, 0)
	p.Syscall(sysWaitpid)
	p.ExpectEq(asm.A0, -1, 3)

	// The exit code pointer is validated before the child is reaped.
	p.Label("retry")
	p.Mv(asm.A0, asm.S0)
	p.Li(asm.A1, 8)
	p.Syscall(sysWaitpid)
	p.Li(asm.T0, -2)
	p.Bne(asm.A0, asm.T0, "invalid")
	p.Syscall(sysYield)
	p.J("retry")
	p.Label("invalid")
	p.ExpectEq(asm.A0, -1, 4)

	p.Wait(asm.S0, "code")
	p.ExpectEqReg(asm.A0, asm.S0, 5)
	p.Exit(0)

	p.Asciz("exit7", "exit7")
	p.Space("code", 8)
	return p
}

// FaultTest spawns programs that the kernel kills and checks their
// exit codes.
func FaultTest() *Program {
	p := newProgram("faulttest")

	p.La(asm.A0, "mmapfault")
	p.Syscall(sysSpawn)
	p.Mv(asm.S0, asm.A0)
	p.ExpectNonNeg(asm.S0, 1)
	p.Wait(asm.S0, "code")
	p.La(asm.T0, "code")
	p.Lw(asm.T1, asm.T0, 0)
	p.ExpectEq(asm.T1, -2, 2)

	p.La(asm.A0, "illegal")
	p.Syscall(sysSpawn)
	p.Mv(asm.S0, asm.A0)
	p.ExpectNonNeg(asm.S0, 3)
	p.Wait(asm.S0, "code")
	p.La(asm.T0, "code")
	p.Lw(asm.T1, asm.T0, 0)
	p.ExpectEq(asm.T1, -3, 4)
	p.Exit(0)

	p.Asciz("mmapfault", "mmapfault")
	p.Asciz("illegal", "illegal")
	p.Space("code", 8)
	return p
}

// SbrkTest grows and shrinks the heap.
func SbrkTest() *Program {
	p := newProgram("sbrktest")

	p.Li(asm.A0, 0)
	p.Syscall(sysSbrk)
	p.Mv(asm.S0, asm.A0)
	p.ExpectNonNeg(asm.S0, 1)

	p.Li(asm.A0, 4096)
	p.Syscall(sysSbrk)
	p.ExpectEqReg(asm.A0, asm.S0, 2)

	p.Li(asm.T0, 42)
	p.Sd(asm.T0, asm.S0, 0)
	p.Ld(asm.T1, asm.S0, 0)
	p.ExpectEq(asm.T1, 42, 3)

	// Heap pages cannot be unmapped and the heap still grows.
	p.Mv(asm.A0, asm.S0)
	p.Li(asm.A1, 4096)
	p.Syscall(sysMunmap)
	p.ExpectEq(asm.A0, -1, 7)
	p.Ld(asm.T1, asm.S0, 0)
	p.ExpectEq(asm.T1, 42, 8)
	p.Li(asm.A0, 4096)
	p.Syscall(sysSbrk)
	p.Li(asm.T0, 4096)
	p.Add(asm.S1, asm.S0, asm.T0)
	p.ExpectEqReg(asm.A0, asm.S1, 9)
	p.Li(asm.A0, -4096)
	p.Syscall(sysSbrk)
	p.Li(asm.T0, 8192)
	p.Add(asm.S1, asm.S0, asm.T0)
	p.ExpectEqReg(asm.A0, asm.S1, 10)

	p.Li(asm.A0, -4096)
	p.Syscall(sysSbrk)
	p.Li(asm.T0, 4096)
	p.Add(asm.S1, asm.S0, asm.T0)
	p.ExpectEqReg(asm.A0, asm.S1, 4)

	p.Li(asm.A0, 0)
	p.Syscall(sysSbrk)
	p.ExpectEqReg(asm.A0, asm.S0, 5)

	p.Li(asm.A0, -4096)
	p.Syscall(sysSbrk)
	p.ExpectEq(asm.A0, -1, 6)
	p.Exit(0)

	return p
}

// MmapTest maps and unmaps memory.
func MmapTest() *Program {
	p := newProgram("mmaptest")

	mmap := func(start, length, prot, expected, code int64) {
		p.Li(asm.A0, start)
		p.Li(asm.A1, length)
		p.Li(asm.A2, prot)
		p.Syscall(sysMmap)
		p.ExpectEq(asm.A0, expected, code)
	}
	munmap := func(start, length, expected, code int64) {
		p.Li(asm.A0, start)
		p.Li(asm.A1, length)
		p.Syscall(sysMunmap)
		p.ExpectEq(asm.A0, expected, code)
	}

	mmap(mmapBase, 8192, 3, 0, 1)

	p.Li(asm.S0, mmapBase)
	p.Li(asm.T0, 0x1234)
	p.Sd(asm.T0, asm.S0, 0)
	p.Ld(asm.T1, asm.S0, 0)
	p.ExpectEq(asm.T1, 0x1234, 2)
	p.Li(asm.S1, mmapBase+8192-8)
	p.Sd(asm.T0, asm.S1, 0)
	p.Ld(asm.T1, asm.S1, 0)
	p.ExpectEq(asm.T1, 0x1234, 3)

	mmap(mmapBase, 8192, 3, -1, 4)
	mmap(mmapBase+4096, 8192, 3, -1, 5)
	mmap(mmapBase+16384, 4096, 0, -1, 6)
	mmap(mmapBase+16384, 4096, 8, -1, 7)
	mmap(mmapBase+16385, 4096, 3, -1, 8)

	munmap(mmapBase, 8192, 0, 9)
	munmap(mmapBase, 4096, -1, 10)
	munmap(mmapBase+1, 4096, -1, 11)

	mmap(mmapBase, 4096, 1, 0, 12)
	p.Li(asm.S0, mmapBase)
	p.Ld(asm.T1, asm.S0, 0)
	p.ExpectEq(asm.T1, 0, 13)
	munmap(mmapBase, 4096, 0, 14)
	p.Exit(0)

	return p
}

// Offsets of the TaskInfo record fields.
const (
	taskInfoStatus       = 0
	taskInfoSyscallTimes = 4
	taskInfoTime         = 2008
	taskInfoSize         = 2016
)

// TaskInfo checks the syscall counts and the running time reported by
// task_info. The time is bracketed by get_time samples t1, t2, and t3:
// t2-t1 <= time+1 and time < t3-t1+100.
func TaskInfo() *Program {
	p := newProgram("taskinfo")

	p.Millis(asm.S1, "tv")
	p.Syscall(sysGetpid)

	p.Label("spin")
	p.Syscall(sysYield)
	p.Millis(asm.S2, "tv")
	p.Sub(asm.T0, asm.S2, asm.S1)
	p.Li(asm.T1, 20)
	p.Blt(asm.T0, asm.T1, "spin")

	p.La(asm.A0, "info")
	p.Syscall(sysTaskInfo)
	p.ExpectEq(asm.A0, 0, 1)
	p.La(asm.A0, "info")
	p.Syscall(sysTaskInfo)
	p.ExpectEq(asm.A0, 0, 2)
	p.Millis(asm.S3, "tv")

	p.La(asm.S0, "info")
	p.Lw(asm.T0, asm.S0, taskInfoStatus)
	p.ExpectEq(asm.T0, 2, 3)
	p.Lw(asm.T0, asm.S0, taskInfoSyscallTimes+sysTaskInfo*4)
	p.ExpectEq(asm.T0, 2, 4)
	p.Lw(asm.T0, asm.S0, taskInfoSyscallTimes+sysGetpid*4)
	p.ExpectEq(asm.T0, 1, 5)
	p.Lw(asm.T0, asm.S0, taskInfoSyscallTimes+sysFork*4)
	p.ExpectEq(asm.T0, 0, 6)

	// get_time count >= 2
	p.Lw(asm.T0, asm.S0, taskInfoSyscallTimes+sysGetTime*4)
	p.Addi(asm.T0, asm.T0, -2)
	p.ExpectNonNeg(asm.T0, 7)
	// yield count >= 1
	p.Lw(asm.T0, asm.S0, taskInfoSyscallTimes+sysYield*4)
	p.Addi(asm.T0, asm.T0, -1)
	p.ExpectNonNeg(asm.T0, 8)

	p.Ld(asm.T2, asm.S0, taskInfoTime)

	// time+1 - (t2-t1) >= 0
	p.Sub(asm.T0, asm.S2, asm.S1)
	p.Addi(asm.T1, asm.T2, 1)
	p.Sub(asm.T0, asm.T1, asm.T0)
	p.ExpectNonNeg(asm.T0, 9)

	// t3-t1+100 - time - 1 >= 0
	p.Sub(asm.T0, asm.S3, asm.S1)
	p.Addi(asm.T0, asm.T0, 99)
	p.Sub(asm.T0, asm.T0, asm.T2)
	p.ExpectNonNeg(asm.T0, 10)
	p.Exit(0)

	p.Space("info", taskInfoSize)
	p.Space("tv", 16)
	return p
}

// BadPtr passes invalid pointers and file descriptors to system calls.
func BadPtr() *Program {
	p := newProgram("badptr")

	call := func(id int64, args []int64, code int64) {
		for i, arg := range args {
			p.Li(asm.A0+asm.Reg(i), arg)
		}
		p.Syscall(id)
		p.ExpectEq(asm.A0, -1, code)
	}

	call(sysWrite, []int64{1, 0, 10}, 1)
	call(sysWrite, []int64{1, 0x3fffff000, 10}, 2)
	call(sysGetTime, []int64{0, 0}, 3)
	call(sysTaskInfo, []int64{0}, 4)
	call(sysExec, []int64{0}, 5)
	call(sysWrite, []int64{99, asm.TextBase, 1}, 6)
	call(sysWrite, []int64{0, asm.TextBase, 1}, 7)
	call(sysRead, []int64{1, asm.TextBase, 1}, 8)
	call(sysRead, []int64{0, asm.TextBase, 1}, 9)
	call(sysClose, []int64{99}, 10)
	call(sysFstat, []int64{-1, 0}, 11)
	call(9999, nil, 12)

	p.Li(asm.A0, 1)
	p.La(asm.A1, "msg")
	p.Li(asm.A2, 3)
	p.Syscall(sysWrite)
	p.ExpectEq(asm.A0, 3, 13)
	p.Exit(0)

	p.Asciz("msg", "ok\n")
	return p
}

// Offsets of the Stat record fields.
const (
	statMode       = 16
	statNlink      = 20
	statSize       = 24
	statRecordSize = 80
)

// FSTest exercises the file system calls.
func FSTest() *Program {
	p := newProgram("fstest")

	const msgLen = 13

	p.La(asm.A0, "name")
	p.Li(asm.A1, oCreate|oWronly)
	p.Syscall(sysOpen)
	p.Mv(asm.S0, asm.A0)
	p.ExpectEq(asm.S0, 3, 1)

	p.Mv(asm.A0, asm.S0)
	p.La(asm.A1, "msg")
	p.Li(asm.A2, msgLen)
	p.Syscall(sysWrite)
	p.ExpectEq(asm.A0, msgLen, 2)

	p.Mv(asm.A0, asm.S0)
	p.Syscall(sysClose)
	p.ExpectEq(asm.A0, 0, 3)
	p.Mv(asm.A0, asm.S0)
	p.Syscall(sysClose)
	p.ExpectEq(asm.A0, -1, 4)

	p.La(asm.A0, "name")
	p.Li(asm.A1, oRdonly)
	p.Syscall(sysOpen)
	p.Mv(asm.S0, asm.A0)
	p.ExpectEq(asm.S0, 3, 5)

	p.Mv(asm.A0, asm.S0)
	p.La(asm.A1, "buf")
	p.Li(asm.A2, 64)
	p.Syscall(sysRead)
	p.ExpectEq(asm.A0, msgLen, 6)
	p.La(asm.T0, "buf")
	p.Lbu(asm.T1, asm.T0, 0)
	p.ExpectEq(asm.T1, 'H', 7)

	p.Mv(asm.A0, asm.S0)
	p.La(asm.A1, "buf")
	p.Li(asm.A2, 64)
	p.Syscall(sysRead)
	p.ExpectEq(asm.A0, 0, 8)

	p.La(asm.S1, "stat")
	p.Mv(asm.A0, asm.S0)
	p.Mv(asm.A1, asm.S1)
	p.Syscall(sysFstat)
	p.ExpectEq(asm.A0, 0, 9)
	p.Lw(asm.T0, asm.S1, statNlink)
	p.ExpectEq(asm.T0, 1, 10)
	p.Ld(asm.T0, asm.S1, statSize)
	p.ExpectEq(asm.T0, msgLen, 11)
	p.Lwu(asm.T0, asm.S1, statMode)
	p.ExpectEq(asm.T0, 0o100000, 12)

	p.La(asm.A0, "name")
	p.La(asm.A1, "name2")
	p.Syscall(sysLinkat)
	p.ExpectEq(asm.A0, 0, 13)

	p.Mv(asm.A0, asm.S0)
	p.Mv(asm.A1, asm.S1)
	p.Syscall(sysFstat)
	p.Lw(asm.T0, asm.S1, statNlink)
	p.ExpectEq(asm.T0, 2, 14)

	p.La(asm.A0, "name")
	p.La(asm.A1, "name2")
	p.Syscall(sysLinkat)
	p.ExpectEq(asm.A0, -1, 15)

	p.La(asm.A0, "name2")
	p.Syscall(sysUnlinkat)
	p.ExpectEq(asm.A0, 0, 16)
	p.La(asm.A0, "name2")
	p.Syscall(sysUnlinkat)
	p.ExpectEq(asm.A0, -1, 17)

	p.Mv(asm.A0, asm.S0)
	p.La(asm.A1, "msg")
	p.Li(asm.A2, 1)
	p.Syscall(sysWrite)
	p.ExpectEq(asm.A0, -1, 18)

	p.Li(asm.A0, 1)
	p.Mv(asm.A1, asm.S1)
	p.Syscall(sysFstat)
	p.ExpectEq(asm.A0, -1, 19)

	p.Mv(asm.A0, asm.S0)
	p.Syscall(sysClose)
	p.ExpectEq(asm.A0, 0, 20)
	p.Exit(0)

	p.Asciz("name", "fstest.txt")
	p.Asciz("name2", "fstest-link.txt")
	p.Asciz("msg", "Hello, file!\n")
	p.Space("buf", 64)
	p.Space("stat", statRecordSize)
	return p
}

// Sleep yields until 100 milliseconds have passed.
func Sleep() *Program {
	p := newProgram("sleep")

	p.La(asm.A0, "tv")
	p.Syscall(sysGetTime)
	p.ExpectEq(asm.A0, 0, 1)
	p.La(asm.A0, "tv")
	p.Call("millis")
	p.Mv(asm.S1, asm.A0)

	p.Label("loop")
	p.Millis(asm.T3, "tv")
	p.Sub(asm.T0, asm.T3, asm.S1)
	p.Li(asm.T1, 100)
	p.Bge(asm.T0, asm.T1, "done")
	p.Syscall(sysYield)
	p.J("loop")

	p.Label("done")
	p.Exit(0)

	p.Space("tv", 16)
	return p
}
