//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package hart implements a RISC-V RV64IM user mode hart and the trap
// context saved when it enters the kernel.
package hart

import (
	"encoding/binary"
)

var bo = binary.LittleEndian

// Register numbers of the calling convention.
const (
	RegRA = 1
	RegSP = 2
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA7 = 17
)

// SstatusSPP is the previous privilege bit of sstatus. It is cleared
// for traps taken from user mode.
const SstatusSPP = 1 << 8

// TrapContextSize is the size of the serialized trap context.
const TrapContextSize = 37 * 8

// TrapContext holds the user register state saved on trap entry and
// the kernel values the trampoline needs to switch into the kernel.
type TrapContext struct {
	X           [32]uint64
	Sstatus     uint64
	Sepc        uint64
	KernelSatp  uint64
	KernelSP    uint64
	TrapHandler uint64
}

// AppInitContext creates the initial trap context of a user program
// starting at entry with the stack pointer sp.
func AppInitContext(entry, sp, kernelSatp, kernelSP,
	trapHandler uint64) *TrapContext {

	tc := &TrapContext{
		Sstatus:     0,
		Sepc:        entry,
		KernelSatp:  kernelSatp,
		KernelSP:    kernelSP,
		TrapHandler: trapHandler,
	}
	tc.Sstatus &^= SstatusSPP
	tc.X[RegSP] = sp
	return tc
}

// Load reads the trap context from its serialized form.
func (tc *TrapContext) Load(buf []byte) {
	for i := range tc.X {
		tc.X[i] = bo.Uint64(buf[i*8:])
	}
	tc.Sstatus = bo.Uint64(buf[32*8:])
	tc.Sepc = bo.Uint64(buf[33*8:])
	tc.KernelSatp = bo.Uint64(buf[34*8:])
	tc.KernelSP = bo.Uint64(buf[35*8:])
	tc.TrapHandler = bo.Uint64(buf[36*8:])
}

// Store writes the trap context into its serialized form.
func (tc *TrapContext) Store(buf []byte) {
	for i, x := range tc.X {
		bo.PutUint64(buf[i*8:], x)
	}
	bo.PutUint64(buf[32*8:], tc.Sstatus)
	bo.PutUint64(buf[33*8:], tc.Sepc)
	bo.PutUint64(buf[34*8:], tc.KernelSatp)
	bo.PutUint64(buf[35*8:], tc.KernelSP)
	bo.PutUint64(buf[36*8:], tc.TrapHandler)
}
