//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package asm implements a small RV64IM assembler producing
// executable images for the kernel.
package asm

import (
	"debug/elf"
	"fmt"

	"github.com/markkurossi/rvos/hart"
	"github.com/markkurossi/rvos/image"
)

// TextBase is the load address of the text segment.
const TextBase = 0x10000

const pageSize = 4096

// Reg defines integer registers.
type Reg uint32

// Integer registers by their ABI names.
const (
	Zero Reg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

var regNames = [...]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("{Reg %d}", uint32(r))
}

type section int

const (
	secText section = iota
	secData
	secBss
)

type label struct {
	sec section
	off uint64
}

type fixupKind int

const (
	fixBranch fixupKind = iota
	fixJal
	fixLa
)

type fixup struct {
	idx   int
	kind  fixupKind
	label string
}

// Program implements an assembler program with text, data, and bss
// sections. Labels can be referenced before they are defined.
type Program struct {
	text   []uint32
	data   []byte
	bss    uint64
	labels map[string]label
	fixups []fixup
	err    error
}

// NewProgram creates a new empty program.
func NewProgram() *Program {
	return &Program{
		labels: make(map[string]label),
	}
}

func (p *Program) define(name string, l label) {
	if _, ok := p.labels[name]; ok {
		if p.err == nil {
			p.err = fmt.Errorf("label %s redefined", name)
		}
		return
	}
	p.labels[name] = l
}

// Label defines a text label at the current position.
func (p *Program) Label(name string) {
	p.define(name, label{
		sec: secText,
		off: uint64(len(p.text)) * 4,
	})
}

// Data defines a data label holding the bytes.
func (p *Program) Data(name string, data []byte) {
	for len(p.data)%8 != 0 {
		p.data = append(p.data, 0)
	}
	p.define(name, label{
		sec: secData,
		off: uint64(len(p.data)),
	})
	p.data = append(p.data, data...)
}

// Asciz defines a data label holding the NUL-terminated string.
func (p *Program) Asciz(name, s string) {
	p.Data(name, append([]byte(s), 0))
}

// Space defines a bss label of size zero-initialized bytes.
func (p *Program) Space(name string, size uint64) {
	p.bss = (p.bss + 7) &^ 7
	p.define(name, label{
		sec: secBss,
		off: p.bss,
	})
	p.bss += size
}

// Word emits a raw instruction word.
func (p *Program) Word(inst uint32) {
	p.text = append(p.text, inst)
}

func (p *Program) ref(kind fixupKind, name string) {
	p.fixups = append(p.fixups, fixup{
		idx:   len(p.text),
		kind:  kind,
		label: name,
	})
}

// Layout returns the segment addresses of the program.
func (p *Program) layout() (text, data, bss uint64) {
	text = TextBase
	data = (text + uint64(len(p.text))*4 + pageSize - 1) &^ (pageSize - 1)
	bss = data + uint64(len(p.data))
	return
}

// Addr returns the address of the label.
func (p *Program) Addr(name string) (uint64, error) {
	l, ok := p.labels[name]
	if !ok {
		return 0, fmt.Errorf("undefined label %s", name)
	}
	text, data, bss := p.layout()
	switch l.sec {
	case secText:
		return text + l.off, nil
	case secData:
		return data + l.off, nil
	default:
		return bss + l.off, nil
	}
}

// Link resolves label references and creates the program image.
// Execution starts from the first instruction.
func (p *Program) Link() (*image.Image, error) {
	if p.err != nil {
		return nil, p.err
	}
	text, data, _ := p.layout()
	for _, f := range p.fixups {
		target, err := p.Addr(f.label)
		if err != nil {
			return nil, err
		}
		pc := text + uint64(f.idx)*4
		rel := int64(target - pc)

		switch f.kind {
		case fixBranch:
			if rel < -4096 || rel >= 4096 {
				return nil, fmt.Errorf("branch to %s out of range", f.label)
			}
			p.text[f.idx] |= encB(0, 0, 0, rel)
		case fixJal:
			if rel < -(1<<20) || rel >= 1<<20 {
				return nil, fmt.Errorf("jump to %s out of range", f.label)
			}
			p.text[f.idx] |= encJ(0, rel)
		case fixLa:
			hi := (rel + 0x800) >> 12
			lo := rel - hi<<12
			p.text[f.idx] |= encU(0, 0, hi)
			p.text[f.idx+1] |= encI(0, 0, 0, 0, lo)
		}
	}
	p.fixups = nil

	code := make([]byte, len(p.text)*4)
	for i, inst := range p.text {
		code[i*4] = byte(inst)
		code[i*4+1] = byte(inst >> 8)
		code[i*4+2] = byte(inst >> 16)
		code[i*4+3] = byte(inst >> 24)
	}
	img := &image.Image{
		Entry: text,
		Segments: []*image.Segment{
			{
				Vaddr: text,
				Memsz: uint64(len(code)),
				Data:  code,
				Flags: elf.PF_R | elf.PF_X,
			},
		},
	}
	if len(p.data) > 0 || p.bss > 0 {
		img.Segments = append(img.Segments, &image.Segment{
			Vaddr: data,
			Memsz: uint64(len(p.data)) + p.bss,
			Data:  p.data,
			Flags: elf.PF_R | elf.PF_W,
		})
	}
	return img, nil
}

// ELF links the program and returns it as an ELF executable.
func (p *Program) ELF() ([]byte, error) {
	img, err := p.Link()
	if err != nil {
		return nil, err
	}
	return img.Build(), nil
}

func encR(op, f3, f7 uint32, rd, rs1, rs2 Reg) uint32 {
	return f7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | f3<<12 |
		uint32(rd)<<7 | op
}

func encI(op, f3 uint32, rd, rs1 Reg, imm int64) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | f3<<12 |
		uint32(rd)<<7 | op
}

func encS(op, f3 uint32, rs1, rs2 Reg, imm int64) uint32 {
	return uint32((imm>>5)&0x7f)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		f3<<12 | uint32(imm&0x1f)<<7 | op
}

func encB(f3 uint32, rs1, rs2 Reg, imm int64) uint32 {
	return uint32((imm>>12)&1)<<31 | uint32((imm>>5)&0x3f)<<25 |
		uint32(rs2)<<20 | uint32(rs1)<<15 | f3<<12 |
		uint32((imm>>1)&0xf)<<8 | uint32((imm>>11)&1)<<7
}

func encU(op uint32, rd Reg, imm int64) uint32 {
	return uint32(imm&0xfffff)<<12 | uint32(rd)<<7 | op
}

func encJ(rd Reg, imm int64) uint32 {
	return uint32((imm>>20)&1)<<31 | uint32((imm>>1)&0x3ff)<<21 |
		uint32((imm>>11)&1)<<20 | uint32((imm>>12)&0xff)<<12 |
		uint32(rd)<<7
}

func (p *Program) checkImm(name string, imm int64) {
	if (imm < -2048 || imm > 2047) && p.err == nil {
		p.err = fmt.Errorf("%s: immediate %d out of range", name, imm)
	}
}

func (p *Program) opImm(name string, f3 uint32, rd, rs1 Reg, imm int64) {
	p.checkImm(name, imm)
	p.Word(encI(hart.OpImm, f3, rd, rs1, imm))
}

// Addi emits rd = rs1 + imm.
func (p *Program) Addi(rd, rs1 Reg, imm int64) {
	p.opImm("addi", 0, rd, rs1, imm)
}

// Slti emits rd = rs1 < imm (signed).
func (p *Program) Slti(rd, rs1 Reg, imm int64) {
	p.opImm("slti", 2, rd, rs1, imm)
}

// Sltiu emits rd = rs1 < imm (unsigned).
func (p *Program) Sltiu(rd, rs1 Reg, imm int64) {
	p.opImm("sltiu", 3, rd, rs1, imm)
}

// Xori emits rd = rs1 ^ imm.
func (p *Program) Xori(rd, rs1 Reg, imm int64) {
	p.opImm("xori", 4, rd, rs1, imm)
}

// Ori emits rd = rs1 | imm.
func (p *Program) Ori(rd, rs1 Reg, imm int64) {
	p.opImm("ori", 6, rd, rs1, imm)
}

// Andi emits rd = rs1 & imm.
func (p *Program) Andi(rd, rs1 Reg, imm int64) {
	p.opImm("andi", 7, rd, rs1, imm)
}

// Slli emits rd = rs1 << shamt.
func (p *Program) Slli(rd, rs1 Reg, shamt uint) {
	p.Word(encI(hart.OpImm, 1, rd, rs1, int64(shamt&63)))
}

// Srli emits rd = rs1 >> shamt (logical).
func (p *Program) Srli(rd, rs1 Reg, shamt uint) {
	p.Word(encI(hart.OpImm, 5, rd, rs1, int64(shamt&63)))
}

// Srai emits rd = rs1 >> shamt (arithmetic).
func (p *Program) Srai(rd, rs1 Reg, shamt uint) {
	p.Word(encI(hart.OpImm, 5, rd, rs1, 0x400|int64(shamt&63)))
}

// Addiw emits rd = sext32(rs1 + imm).
func (p *Program) Addiw(rd, rs1 Reg, imm int64) {
	p.checkImm("addiw", imm)
	p.Word(encI(hart.OpImm32, 0, rd, rs1, imm))
}

// Add emits rd = rs1 + rs2.
func (p *Program) Add(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 0, 0, rd, rs1, rs2))
}

// Sub emits rd = rs1 - rs2.
func (p *Program) Sub(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 0, 0x20, rd, rs1, rs2))
}

// Sll emits rd = rs1 << rs2.
func (p *Program) Sll(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 1, 0, rd, rs1, rs2))
}

// Slt emits rd = rs1 < rs2 (signed).
func (p *Program) Slt(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 2, 0, rd, rs1, rs2))
}

// Sltu emits rd = rs1 < rs2 (unsigned).
func (p *Program) Sltu(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 3, 0, rd, rs1, rs2))
}

// Xor emits rd = rs1 ^ rs2.
func (p *Program) Xor(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 4, 0, rd, rs1, rs2))
}

// Srl emits rd = rs1 >> rs2 (logical).
func (p *Program) Srl(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 5, 0, rd, rs1, rs2))
}

// Sra emits rd = rs1 >> rs2 (arithmetic).
func (p *Program) Sra(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 5, 0x20, rd, rs1, rs2))
}

// Or emits rd = rs1 | rs2.
func (p *Program) Or(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 6, 0, rd, rs1, rs2))
}

// And emits rd = rs1 & rs2.
func (p *Program) And(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 7, 0, rd, rs1, rs2))
}

// Mul emits rd = rs1 * rs2.
func (p *Program) Mul(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 0, 1, rd, rs1, rs2))
}

// Div emits rd = rs1 / rs2 (signed).
func (p *Program) Div(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 4, 1, rd, rs1, rs2))
}

// Divu emits rd = rs1 / rs2 (unsigned).
func (p *Program) Divu(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 5, 1, rd, rs1, rs2))
}

// Rem emits rd = rs1 % rs2 (signed).
func (p *Program) Rem(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 6, 1, rd, rs1, rs2))
}

// Remu emits rd = rs1 % rs2 (unsigned).
func (p *Program) Remu(rd, rs1, rs2 Reg) {
	p.Word(encR(hart.OpOp, 7, 1, rd, rs1, rs2))
}

// Lui emits rd = imm << 12.
func (p *Program) Lui(rd Reg, imm int64) {
	p.Word(encU(hart.OpLui, rd, imm))
}

// Auipc emits rd = pc + imm << 12.
func (p *Program) Auipc(rd Reg, imm int64) {
	p.Word(encU(hart.OpAuipc, rd, imm))
}

func (p *Program) load(name string, f3 uint32, rd, rs1 Reg, off int64) {
	p.checkImm(name, off)
	p.Word(encI(hart.OpLoad, f3, rd, rs1, off))
}

// Lb emits a sign-extending byte load.
func (p *Program) Lb(rd, rs1 Reg, off int64) {
	p.load("lb", 0, rd, rs1, off)
}

// Lh emits a sign-extending halfword load.
func (p *Program) Lh(rd, rs1 Reg, off int64) {
	p.load("lh", 1, rd, rs1, off)
}

// Lw emits a sign-extending word load.
func (p *Program) Lw(rd, rs1 Reg, off int64) {
	p.load("lw", 2, rd, rs1, off)
}

// Ld emits a doubleword load.
func (p *Program) Ld(rd, rs1 Reg, off int64) {
	p.load("ld", 3, rd, rs1, off)
}

// Lbu emits a zero-extending byte load.
func (p *Program) Lbu(rd, rs1 Reg, off int64) {
	p.load("lbu", 4, rd, rs1, off)
}

// Lhu emits a zero-extending halfword load.
func (p *Program) Lhu(rd, rs1 Reg, off int64) {
	p.load("lhu", 5, rd, rs1, off)
}

// Lwu emits a zero-extending word load.
func (p *Program) Lwu(rd, rs1 Reg, off int64) {
	p.load("lwu", 6, rd, rs1, off)
}

func (p *Program) store(name string, f3 uint32, rs2, rs1 Reg, off int64) {
	p.checkImm(name, off)
	p.Word(encS(hart.OpStore, f3, rs1, rs2, off))
}

// Sb stores the low byte of rs2 to off(rs1).
func (p *Program) Sb(rs2, rs1 Reg, off int64) {
	p.store("sb", 0, rs2, rs1, off)
}

// Sh stores the low halfword of rs2 to off(rs1).
func (p *Program) Sh(rs2, rs1 Reg, off int64) {
	p.store("sh", 1, rs2, rs1, off)
}

// Sw stores the low word of rs2 to off(rs1).
func (p *Program) Sw(rs2, rs1 Reg, off int64) {
	p.store("sw", 2, rs2, rs1, off)
}

// Sd stores rs2 to off(rs1).
func (p *Program) Sd(rs2, rs1 Reg, off int64) {
	p.store("sd", 3, rs2, rs1, off)
}

func (p *Program) branch(f3 uint32, rs1, rs2 Reg, target string) {
	p.ref(fixBranch, target)
	p.Word(encB(f3, rs1, rs2, 0) | hart.OpBranch)
}

// Beq branches to target if rs1 == rs2.
func (p *Program) Beq(rs1, rs2 Reg, target string) {
	p.branch(0, rs1, rs2, target)
}

// Bne branches to target if rs1 != rs2.
func (p *Program) Bne(rs1, rs2 Reg, target string) {
	p.branch(1, rs1, rs2, target)
}

// Blt branches to target if rs1 < rs2 (signed).
func (p *Program) Blt(rs1, rs2 Reg, target string) {
	p.branch(4, rs1, rs2, target)
}

// Bge branches to target if rs1 >= rs2 (signed).
func (p *Program) Bge(rs1, rs2 Reg, target string) {
	p.branch(5, rs1, rs2, target)
}

// Bltu branches to target if rs1 < rs2 (unsigned).
func (p *Program) Bltu(rs1, rs2 Reg, target string) {
	p.branch(6, rs1, rs2, target)
}

// Bgeu branches to target if rs1 >= rs2 (unsigned).
func (p *Program) Bgeu(rs1, rs2 Reg, target string) {
	p.branch(7, rs1, rs2, target)
}

// Beqz branches to target if rs == 0.
func (p *Program) Beqz(rs Reg, target string) {
	p.Beq(rs, Zero, target)
}

// Bnez branches to target if rs != 0.
func (p *Program) Bnez(rs Reg, target string) {
	p.Bne(rs, Zero, target)
}

// Bltz branches to target if rs < 0.
func (p *Program) Bltz(rs Reg, target string) {
	p.Blt(rs, Zero, target)
}

// Jal jumps to target and stores the return address to rd.
func (p *Program) Jal(rd Reg, target string) {
	p.ref(fixJal, target)
	p.Word(encJ(rd, 0) | hart.OpJal)
}

// J jumps to target.
func (p *Program) J(target string) {
	p.Jal(Zero, target)
}

// Call calls the function at target.
func (p *Program) Call(target string) {
	p.Jal(RA, target)
}

// Jalr jumps to rs1 + off and stores the return address to rd.
func (p *Program) Jalr(rd, rs1 Reg, off int64) {
	p.checkImm("jalr", off)
	p.Word(encI(hart.OpJalr, 0, rd, rs1, off))
}

// Ret returns from a function.
func (p *Program) Ret() {
	p.Jalr(Zero, RA, 0)
}

// Ecall emits an environment call.
func (p *Program) Ecall() {
	p.Word(hart.InstEcall)
}

// Ebreak emits a breakpoint.
func (p *Program) Ebreak() {
	p.Word(hart.InstEbreak)
}

// Nop emits a no-op.
func (p *Program) Nop() {
	p.Addi(Zero, Zero, 0)
}

// Mv emits rd = rs.
func (p *Program) Mv(rd, rs Reg) {
	p.Addi(rd, rs, 0)
}

// Li loads the constant to rd.
func (p *Program) Li(rd Reg, v int64) {
	if v >= -2048 && v < 2048 {
		p.Addi(rd, Zero, v)
		return
	}
	if v == int64(int32(v)) {
		hi := (v + 0x800) >> 12
		lo := v - hi<<12
		p.Lui(rd, hi)
		if lo != 0 {
			p.Addiw(rd, rd, lo)
		}
		return
	}
	lo := v << 52 >> 52
	p.Li(rd, (v-lo)>>12)
	p.Slli(rd, rd, 12)
	if lo != 0 {
		p.Addi(rd, rd, lo)
	}
}

// La loads the address of the label to rd.
func (p *Program) La(rd Reg, name string) {
	p.ref(fixLa, name)
	p.Word(encU(hart.OpAuipc, rd, 0))
	p.Word(encI(hart.OpImm, 0, rd, rd, 0))
}
