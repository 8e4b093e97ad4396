//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package hart

import (
	"math"
	"math/bits"
)

// Bus implements user mode memory access. The access functions return
// false if the address is not accessible for the operation.
type Bus interface {
	Fetch(va uint64) (uint32, bool)
	Load(va uint64, size int) (uint64, bool)
	Store(va uint64, size int, val uint64) bool
}

// Opcodes.
const (
	OpLoad    = 0x03
	OpMiscMem = 0x0f
	OpImm     = 0x13
	OpAuipc   = 0x17
	OpImm32   = 0x1b
	OpStore   = 0x23
	OpOp      = 0x33
	OpLui     = 0x37
	OpOp32    = 0x3b
	OpBranch  = 0x63
	OpJalr    = 0x67
	OpJal     = 0x6f
	OpSystem  = 0x73
)

// Instruction words of the SYSTEM opcode.
const (
	InstEcall  = 0x00000073
	InstEbreak = 0x00100073
)

func immI(inst uint32) uint64 {
	return uint64(int64(int32(inst) >> 20))
}

func immS(inst uint32) uint64 {
	return uint64(int64(int32(inst&0xfe000000)>>20) | int64((inst>>7)&0x1f))
}

func immB(inst uint32) uint64 {
	return uint64(int64(int32(inst&0x80000000)>>19) |
		int64((inst&0x80)<<4) |
		int64((inst>>20)&0x7e0) |
		int64((inst>>7)&0x1e))
}

func immU(inst uint32) uint64 {
	return uint64(int64(int32(inst & 0xfffff000)))
}

func immJ(inst uint32) uint64 {
	return uint64(int64(int32(inst&0x80000000)>>11) |
		int64(inst&0xff000) |
		int64((inst>>9)&0x800) |
		int64((inst>>20)&0x7fe))
}

func sext32(v uint64) uint64 {
	return uint64(int64(int32(v)))
}

// Run executes user instructions starting at tc.Sepc until the hart
// traps or the budget of instructions is consumed. On return tc.Sepc
// holds the address of the trapping instruction, or the next
// instruction to execute for the timer interrupt.
func Run(tc *TrapContext, bus Bus, budget int) (trap Trap) {
	limit := budget
	defer func() {
		trap.Retired = limit - budget
	}()

	x := &tc.X
	for ; budget > 0; budget-- {
		pc := tc.Sepc
		inst, ok := bus.Fetch(pc)
		if !ok {
			return Trap{Cause: InstructionPageFault, Tval: pc}
		}
		next := pc + 4

		rd := (inst >> 7) & 31
		funct3 := (inst >> 12) & 7
		rs1 := x[(inst>>15)&31]
		rs2 := x[(inst>>20)&31]
		funct7 := inst >> 25

		var val uint64
		write := true

		switch inst & 0x7f {
		case OpLui:
			val = immU(inst)

		case OpAuipc:
			val = pc + immU(inst)

		case OpJal:
			val = next
			next = pc + immJ(inst)

		case OpJalr:
			if funct3 != 0 {
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}
			val = next
			next = (rs1 + immI(inst)) &^ 1

		case OpBranch:
			write = false
			var taken bool
			switch funct3 {
			case 0:
				taken = rs1 == rs2
			case 1:
				taken = rs1 != rs2
			case 4:
				taken = int64(rs1) < int64(rs2)
			case 5:
				taken = int64(rs1) >= int64(rs2)
			case 6:
				taken = rs1 < rs2
			case 7:
				taken = rs1 >= rs2
			default:
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}
			if taken {
				next = pc + immB(inst)
			}

		case OpLoad:
			addr := rs1 + immI(inst)
			size := 1 << (funct3 & 3)
			if funct3 == 7 {
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}
			v, ok := bus.Load(addr, size)
			if !ok {
				return Trap{Cause: LoadPageFault, Tval: addr}
			}
			switch funct3 {
			case 0:
				val = uint64(int64(int8(v)))
			case 1:
				val = uint64(int64(int16(v)))
			case 2:
				val = sext32(v)
			default:
				val = v
			}

		case OpStore:
			write = false
			if funct3 > 3 {
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}
			addr := rs1 + immS(inst)
			if !bus.Store(addr, 1<<funct3, rs2) {
				return Trap{Cause: StorePageFault, Tval: addr}
			}

		case OpImm:
			imm := immI(inst)
			shamt := imm & 63
			switch funct3 {
			case 0:
				val = rs1 + imm
			case 1:
				if imm>>6 != 0 {
					return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
				}
				val = rs1 << shamt
			case 2:
				val = b2u(int64(rs1) < int64(imm))
			case 3:
				val = b2u(rs1 < imm)
			case 4:
				val = rs1 ^ imm
			case 5:
				switch (imm >> 6) & 0x3f {
				case 0:
					val = rs1 >> shamt
				case 0x10:
					val = uint64(int64(rs1) >> shamt)
				default:
					return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
				}
			case 6:
				val = rs1 | imm
			case 7:
				val = rs1 & imm
			}

		case OpImm32:
			imm := immI(inst)
			shamt := imm & 31
			switch {
			case funct3 == 0:
				val = sext32(rs1 + imm)
			case funct3 == 1 && funct7 == 0:
				val = sext32(rs1 << shamt)
			case funct3 == 5 && funct7 == 0:
				val = sext32(uint64(uint32(rs1) >> shamt))
			case funct3 == 5 && funct7 == 0x20:
				val = uint64(int64(int32(rs1) >> shamt))
			default:
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}

		case OpOp:
			v, ok := alu(funct7, funct3, rs1, rs2)
			if !ok {
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}
			val = v

		case OpOp32:
			v, ok := alu32(funct7, funct3, uint32(rs1), uint32(rs2))
			if !ok {
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}
			val = v

		case OpMiscMem:
			// Fences are no-ops on a single hart.
			write = false

		case OpSystem:
			switch inst {
			case InstEcall:
				return Trap{Cause: UserEnvCall}
			case InstEbreak:
				return Trap{Cause: Breakpoint, Tval: pc}
			default:
				return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
			}

		default:
			return Trap{Cause: IllegalInstruction, Tval: uint64(inst)}
		}

		if next&3 != 0 {
			return Trap{Cause: InstructionMisaligned, Tval: next}
		}
		if write && rd != 0 {
			x[rd] = val
		}
		tc.Sepc = next
	}
	return Trap{Cause: SupervisorTimer}
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func alu(funct7, funct3 uint32, a, b uint64) (uint64, bool) {
	shamt := b & 63
	switch funct7 {
	case 0:
		switch funct3 {
		case 0:
			return a + b, true
		case 1:
			return a << shamt, true
		case 2:
			return b2u(int64(a) < int64(b)), true
		case 3:
			return b2u(a < b), true
		case 4:
			return a ^ b, true
		case 5:
			return a >> shamt, true
		case 6:
			return a | b, true
		case 7:
			return a & b, true
		}
	case 0x20:
		switch funct3 {
		case 0:
			return a - b, true
		case 5:
			return uint64(int64(a) >> shamt), true
		}
	case 1:
		return muldiv(funct3, a, b), true
	}
	return 0, false
}

func muldiv(funct3 uint32, a, b uint64) uint64 {
	sa := int64(a)
	sb := int64(b)

	switch funct3 {
	case 0:
		return a * b
	case 1:
		hi, _ := bits.Mul64(a, b)
		if sa < 0 {
			hi -= b
		}
		if sb < 0 {
			hi -= a
		}
		return hi
	case 2:
		hi, _ := bits.Mul64(a, b)
		if sa < 0 {
			hi -= b
		}
		return hi
	case 3:
		hi, _ := bits.Mul64(a, b)
		return hi
	case 4:
		if b == 0 {
			return math.MaxUint64
		}
		if sa == math.MinInt64 && sb == -1 {
			return a
		}
		return uint64(sa / sb)
	case 5:
		if b == 0 {
			return math.MaxUint64
		}
		return a / b
	case 6:
		if b == 0 {
			return a
		}
		if sa == math.MinInt64 && sb == -1 {
			return 0
		}
		return uint64(sa % sb)
	default:
		if b == 0 {
			return a
		}
		return a % b
	}
}

func alu32(funct7, funct3 uint32, a, b uint32) (uint64, bool) {
	shamt := b & 31
	sa := int32(a)
	sb := int32(b)

	switch {
	case funct7 == 0 && funct3 == 0:
		return sext32(uint64(a + b)), true
	case funct7 == 0x20 && funct3 == 0:
		return sext32(uint64(a - b)), true
	case funct7 == 0 && funct3 == 1:
		return sext32(uint64(a << shamt)), true
	case funct7 == 0 && funct3 == 5:
		return sext32(uint64(a >> shamt)), true
	case funct7 == 0x20 && funct3 == 5:
		return uint64(int64(sa >> shamt)), true
	case funct7 == 1 && funct3 == 0:
		return sext32(uint64(a * b)), true
	case funct7 == 1 && funct3 == 4:
		switch {
		case b == 0:
			return math.MaxUint64, true
		case sa == math.MinInt32 && sb == -1:
			return uint64(int64(sa)), true
		default:
			return uint64(int64(sa / sb)), true
		}
	case funct7 == 1 && funct3 == 5:
		if b == 0 {
			return math.MaxUint64, true
		}
		return sext32(uint64(a / b)), true
	case funct7 == 1 && funct3 == 6:
		switch {
		case b == 0:
			return uint64(int64(sa)), true
		case sa == math.MinInt32 && sb == -1:
			return 0, true
		default:
			return uint64(int64(sa % sb)), true
		}
	case funct7 == 1 && funct3 == 7:
		if b == 0 {
			return sext32(uint64(a)), true
		}
		return sext32(uint64(a % b)), true
	}
	return 0, false
}
