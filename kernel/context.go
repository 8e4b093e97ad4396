//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"sync"

	"github.com/markkurossi/rvos/mm"
)

// Kernel text addresses of the control transfer targets.
const (
	kernelEntry      = uint64(mm.PhysBase)
	idleEntry        = kernelEntry + 0x1000
	trapReturnEntry  = kernelEntry + 0x2000
	trapHandlerEntry = kernelEntry + 0x3000
)

// TaskContext holds the callee-saved registers of a suspended kernel
// execution. The return address selects where the execution resumes.
type TaskContext struct {
	RA uint64
	SP uint64
	S  [12]uint64
}

// GotoTrapReturn creates a context that resumes into user mode on the
// kernel stack.
func GotoTrapReturn(kstackTop mm.VirtAddr) TaskContext {
	return TaskContext{
		RA: trapReturnEntry,
		SP: uint64(kstackTop),
	}
}

func (cx TaskContext) String() string {
	var name string
	switch cx.RA {
	case idleEntry:
		name = "idle"
	case trapReturnEntry:
		name = "trap_return"
	default:
		name = fmt.Sprintf("%#x", cx.RA)
	}
	return fmt.Sprintf("ra=%s sp=%#x", name, cx.SP)
}

// exclusive implements exclusive access to kernel state on a single
// hart. A second acquisition is a kernel bug.
type exclusive struct {
	m sync.Mutex
}

func (e *exclusive) Lock() {
	if !e.m.TryLock() {
		panic("exclusive: already borrowed")
	}
}

func (e *exclusive) Unlock() {
	e.m.Unlock()
}
