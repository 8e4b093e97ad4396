//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package hart

import (
	"fmt"
)

// Cause defines scause values.
type Cause uint64

// Interrupt is the scause interrupt bit.
const Interrupt Cause = 1 << 63

// Trap causes.
const (
	InstructionMisaligned Cause = 0
	InstructionFault      Cause = 1
	IllegalInstruction    Cause = 2
	Breakpoint            Cause = 3
	LoadFault             Cause = 5
	StoreFault            Cause = 7
	UserEnvCall           Cause = 8
	InstructionPageFault  Cause = 12
	LoadPageFault         Cause = 13
	StorePageFault        Cause = 15
	SupervisorTimer             = Interrupt | 5
)

var causeNames = map[Cause]string{
	InstructionMisaligned: "InstructionMisaligned",
	InstructionFault:      "InstructionFault",
	IllegalInstruction:    "IllegalInstruction",
	Breakpoint:            "Breakpoint",
	LoadFault:             "LoadFault",
	StoreFault:            "StoreFault",
	UserEnvCall:           "UserEnvCall",
	InstructionPageFault:  "InstructionPageFault",
	LoadPageFault:         "LoadPageFault",
	StorePageFault:        "StorePageFault",
	SupervisorTimer:       "SupervisorTimer",
}

func (c Cause) String() string {
	name, ok := causeNames[c]
	if ok {
		return name
	}
	if c&Interrupt != 0 {
		return fmt.Sprintf("{Interrupt %d}", uint64(c&^Interrupt))
	}
	return fmt.Sprintf("{Exception %d}", uint64(c))
}

// IsPageFault tests if the cause is a memory access fault.
func (c Cause) IsPageFault() bool {
	switch c {
	case InstructionFault, LoadFault, StoreFault,
		InstructionPageFault, LoadPageFault, StorePageFault:
		return true
	default:
		return false
	}
}

// Trap describes why the hart stopped executing user code.
type Trap struct {
	Cause Cause
	Tval  uint64

	// Retired is the number of instructions completed before the
	// trap.
	Retired int
}

func (t Trap) String() string {
	return fmt.Sprintf("%v stval=%#x", t.Cause, t.Tval)
}
