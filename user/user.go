//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package user implements the user programs bundled with the kernel.
// The programs are assembled with the asm package and installed into
// the kernel filesystem as ELF executables.
package user

import (
	"fmt"

	"github.com/markkurossi/rvos/asm"
	"github.com/markkurossi/rvos/ramfs"
)

// System call numbers of the user ABI.
const (
	sysOpen     = 56
	sysClose    = 57
	sysRead     = 63
	sysWrite    = 64
	sysExit     = 93
	sysYield    = 124
	sysGetTime  = 169
	sysGetpid   = 172
	sysSbrk     = 214
	sysMunmap   = 215
	sysFork     = 220
	sysExec     = 221
	sysMmap     = 222
	sysWaitpid  = 260
	sysTaskInfo = 410
	sysSpawn    = 1000
	sysFstat    = 1001
	sysLinkat   = 1002
	sysUnlinkat = 1003
)

// Program builds a user program. Execution starts from the main
// label and programs terminate with the exit system call. Register
// t6 is reserved as the scratch register of the builder macros.
type Program struct {
	*asm.Program
	Name string
	seq  int
}

func newProgram(name string) *Program {
	p := &Program{
		Program: asm.NewProgram(),
		Name:    name,
	}
	p.J("main")
	p.library()
	p.Label("main")
	return p
}

func (p *Program) newLabel(prefix string) string {
	p.seq++
	return fmt.Sprintf(".%s%d", prefix, p.seq)
}

// Syscall issues the system call. The arguments are in a0-a2 and the
// result is returned in a0.
func (p *Program) Syscall(id int64) {
	p.Li(asm.A7, id)
	p.Ecall()
}

// Exit terminates the program with the exit code.
func (p *Program) Exit(code int64) {
	p.Li(asm.A0, code)
	p.Syscall(sysExit)
}

// Puts writes the NUL-terminated string of the data label to stdout.
func (p *Program) Puts(label string) {
	p.La(asm.A0, label)
	p.Call("puts")
}

// ExpectEq exits with the code if reg does not hold the value.
func (p *Program) ExpectEq(reg asm.Reg, value, code int64) {
	ok := p.newLabel("ok")
	p.Li(asm.T6, value)
	p.Beq(reg, asm.T6, ok)
	p.Exit(code)
	p.Label(ok)
}

// ExpectEqReg exits with the code if the registers differ.
func (p *Program) ExpectEqReg(a, b asm.Reg, code int64) {
	ok := p.newLabel("ok")
	p.Beq(a, b, ok)
	p.Exit(code)
	p.Label(ok)
}

// ExpectNonNeg exits with the code if reg is negative.
func (p *Program) ExpectNonNeg(reg asm.Reg, code int64) {
	ok := p.newLabel("ok")
	p.Bge(reg, asm.Zero, ok)
	p.Exit(code)
	p.Label(ok)
}

// Wait waits until the child in the pid register exits. The exit code
// is stored at the code label unless it is empty. The result of
// waitpid is returned in a0.
func (p *Program) Wait(pid asm.Reg, code string) {
	loop := p.newLabel("wait")
	done := p.newLabel("waited")

	p.Label(loop)
	p.Mv(asm.A0, pid)
	if len(code) > 0 {
		p.La(asm.A1, code)
	} else {
		p.Li(asm.A1, 0)
	}
	p.Syscall(sysWaitpid)
	p.Li(asm.T6, -2)
	p.Bne(asm.A0, asm.T6, done)
	p.Syscall(sysYield)
	p.J(loop)
	p.Label(done)
}

// library emits the library routines. They clobber t0-t5 and a0-a7.
func (p *Program) library() {
	// strlen(a0 str) a0 length
	p.Label("strlen")
	p.Mv(asm.T0, asm.A0)
	p.Label("strlen.loop")
	p.Lbu(asm.T1, asm.T0, 0)
	p.Beqz(asm.T1, "strlen.done")
	p.Addi(asm.T0, asm.T0, 1)
	p.J("strlen.loop")
	p.Label("strlen.done")
	p.Sub(asm.A0, asm.T0, asm.A0)
	p.Ret()

	// puts(a0 str)
	p.Label("puts")
	p.Addi(asm.SP, asm.SP, -16)
	p.Sd(asm.RA, asm.SP, 8)
	p.Sd(asm.A0, asm.SP, 0)
	p.Call("strlen")
	p.Mv(asm.A2, asm.A0)
	p.Ld(asm.A1, asm.SP, 0)
	p.Li(asm.A0, 1)
	p.Syscall(sysWrite)
	p.Ld(asm.RA, asm.SP, 8)
	p.Addi(asm.SP, asm.SP, 16)
	p.Ret()

	// putchar(a0 ch)
	p.Label("putchar")
	p.Addi(asm.SP, asm.SP, -16)
	p.Sb(asm.A0, asm.SP, 0)
	p.Li(asm.A0, 1)
	p.Mv(asm.A1, asm.SP)
	p.Li(asm.A2, 1)
	p.Syscall(sysWrite)
	p.Addi(asm.SP, asm.SP, 16)
	p.Ret()

	// putnum(a0 signed) prints the number in decimal.
	p.Label("putnum")
	p.Addi(asm.SP, asm.SP, -48)
	p.Addi(asm.T0, asm.SP, 32)
	p.Mv(asm.T1, asm.A0)
	p.Li(asm.T3, 0)
	p.Bge(asm.T1, asm.Zero, "putnum.digits")
	p.Li(asm.T3, 1)
	p.Sub(asm.T1, asm.Zero, asm.T1)
	p.Label("putnum.digits")
	p.Li(asm.T2, 10)
	p.Label("putnum.loop")
	p.Remu(asm.T4, asm.T1, asm.T2)
	p.Addi(asm.T4, asm.T4, '0')
	p.Addi(asm.T0, asm.T0, -1)
	p.Sb(asm.T4, asm.T0, 0)
	p.Divu(asm.T1, asm.T1, asm.T2)
	p.Bnez(asm.T1, "putnum.loop")
	p.Beqz(asm.T3, "putnum.out")
	p.Li(asm.T4, '-')
	p.Addi(asm.T0, asm.T0, -1)
	p.Sb(asm.T4, asm.T0, 0)
	p.Label("putnum.out")
	p.Li(asm.A0, 1)
	p.Mv(asm.A1, asm.T0)
	p.Addi(asm.A2, asm.SP, 32)
	p.Sub(asm.A2, asm.A2, asm.T0)
	p.Syscall(sysWrite)
	p.Addi(asm.SP, asm.SP, 48)
	p.Ret()

	// millis(a0 timeval) a0 milliseconds
	p.Label("millis")
	p.Ld(asm.T0, asm.A0, 0)
	p.Li(asm.T1, 1000)
	p.Mul(asm.T0, asm.T0, asm.T1)
	p.Ld(asm.T2, asm.A0, 8)
	p.Divu(asm.T2, asm.T2, asm.T1)
	p.Add(asm.A0, asm.T0, asm.T2)
	p.Ret()
}

// Millis stores the current time in milliseconds to the dst register.
// The time value is read into the 16 byte data label tv.
func (p *Program) Millis(dst asm.Reg, tv string) {
	p.La(asm.A0, tv)
	p.Syscall(sysGetTime)
	p.La(asm.A0, tv)
	p.Call("millis")
	p.Mv(dst, asm.A0)
}

// Programs lists the bundled programs by name.
var Programs = map[string]func() *Program{
	"initproc":  InitProc,
	"usershell": UserShell,
	"hello":     Hello,
	"exit7":     Exit7,
	"illegal":   Illegal,
	"mmapfault": MmapFault,
	"forktest":  ForkTest,
	"forkmem":   ForkMem,
	"reparent":  Reparent,
	"preempt":   Preempt,
	"exectest":  ExecTest,
	"spawntest": SpawnTest,
	"waittest":  WaitTest,
	"faulttest": FaultTest,
	"sbrktest":  SbrkTest,
	"mmaptest":  MmapTest,
	"taskinfo":  TaskInfo,
	"badptr":    BadPtr,
	"fstest":    FSTest,
	"sleep":     Sleep,
}

// Build assembles the named program into an ELF executable.
func Build(name string) ([]byte, error) {
	ctor, ok := Programs[name]
	if !ok {
		return nil, fmt.Errorf("unknown program %s", name)
	}
	data, err := ctor().ELF()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

// Install writes all bundled programs into the filesystem.
func Install(fsys *ramfs.FS) error {
	for name := range Programs {
		data, err := Build(name)
		if err != nil {
			return err
		}
		err = fsys.WriteFile(name, data)
		if err != nil {
			return err
		}
	}
	return nil
}
