//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package hart_test

import (
	"testing"

	"github.com/markkurossi/rvos/asm"
	"github.com/markkurossi/rvos/hart"
)

// flatBus implements a bus over a flat memory region starting at
// asm.TextBase.
type flatBus struct {
	mem []byte
}

func (b *flatBus) ok(va uint64, size int) bool {
	return va >= asm.TextBase && va+uint64(size) <= asm.TextBase+uint64(len(b.mem))
}

func (b *flatBus) Fetch(va uint64) (uint32, bool) {
	v, ok := b.Load(va, 4)
	return uint32(v), ok
}

func (b *flatBus) Load(va uint64, size int) (uint64, bool) {
	if !b.ok(va, size) {
		return 0, false
	}
	var v uint64
	for i := 0; i < size; i++ {
		v |= uint64(b.mem[va-asm.TextBase+uint64(i)]) << (i * 8)
	}
	return v, true
}

func (b *flatBus) Store(va uint64, size int, val uint64) bool {
	if !b.ok(va, size) {
		return false
	}
	for i := 0; i < size; i++ {
		b.mem[va-asm.TextBase+uint64(i)] = byte(val >> (i * 8))
	}
	return true
}

func run(t *testing.T, p *asm.Program, budget int) (*hart.TrapContext,
	hart.Trap, *flatBus) {

	img, err := p.Link()
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	bus := &flatBus{
		mem: make([]byte, 0x3000),
	}
	for _, seg := range img.Segments {
		copy(bus.mem[seg.Vaddr-asm.TextBase:], seg.Data)
	}
	tc := hart.AppInitContext(img.Entry, asm.TextBase+0x3000, 0, 0, 0)
	trap := hart.Run(tc, bus, budget)
	return tc, trap, bus
}

var aluTests = []struct {
	name   string
	emit   func(p *asm.Program)
	expect uint64
}{
	{
		name: "li 64-bit",
		emit: func(p *asm.Program) {
			p.Li(asm.A0, 0x123456789abcdef0)
		},
		expect: 0x123456789abcdef0,
	},
	{
		name: "li negative",
		emit: func(p *asm.Program) {
			p.Li(asm.A0, -5000)
		},
		expect: 0xffffffffffffec78,
	},
	{
		name: "li 0x7fffffff",
		emit: func(p *asm.Program) {
			p.Li(asm.A0, 0x7fffffff)
		},
		expect: 0x7fffffff,
	},
	{
		name: "sub",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, 3)
			p.Li(asm.A2, 5)
			p.Sub(asm.A0, asm.A1, asm.A2)
		},
		expect: 0xfffffffffffffffe,
	},
	{
		name: "mul",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, 1234)
			p.Li(asm.A2, -1000)
			p.Mul(asm.A0, asm.A1, asm.A2)
		},
		expect: uint64(1<<64 - 1234000),
	},
	{
		name: "div by zero",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, 42)
			p.Div(asm.A0, asm.A1, asm.Zero)
		},
		expect: 0xffffffffffffffff,
	},
	{
		name: "rem",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, -7)
			p.Li(asm.A2, 3)
			p.Rem(asm.A0, asm.A1, asm.A2)
		},
		expect: 0xffffffffffffffff,
	},
	{
		name: "divu",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, 1000000)
			p.Li(asm.A2, 1000)
			p.Divu(asm.A0, asm.A1, asm.A2)
		},
		expect: 1000,
	},
	{
		name: "srai",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, -256)
			p.Srai(asm.A0, asm.A1, 4)
		},
		expect: 0xfffffffffffffff0,
	},
	{
		name: "srli",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, -1)
			p.Srli(asm.A0, asm.A1, 60)
		},
		expect: 0xf,
	},
	{
		name: "sltu",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, -1)
			p.Sltu(asm.A0, asm.Zero, asm.A1)
		},
		expect: 1,
	},
	{
		name: "loop",
		emit: func(p *asm.Program) {
			p.Li(asm.A1, 10)
			p.Li(asm.A0, 0)
			p.Label("loop")
			p.Add(asm.A0, asm.A0, asm.A1)
			p.Addi(asm.A1, asm.A1, -1)
			p.Bnez(asm.A1, "loop")
		},
		expect: 55,
	},
	{
		name: "call",
		emit: func(p *asm.Program) {
			p.Li(asm.A0, 20)
			p.Call("double")
			p.J("end")
			p.Label("double")
			p.Add(asm.A0, asm.A0, asm.A0)
			p.Ret()
			p.Label("end")
		},
		expect: 40,
	},
	{
		name: "memory",
		emit: func(p *asm.Program) {
			p.La(asm.T0, "buf")
			p.Li(asm.T1, -2)
			p.Sw(asm.T1, asm.T0, 0)
			p.Lwu(asm.A0, asm.T0, 0)
		},
		expect: 0xfffffffe,
	},
	{
		name: "data",
		emit: func(p *asm.Program) {
			p.La(asm.T0, "msg")
			p.Lbu(asm.A0, asm.T0, 1)
			p.Asciz("msg", "hi")
			p.Space("buf", 8)
		},
		expect: 'i',
	},
}

func TestALU(t *testing.T) {
	for idx, test := range aluTests {
		p := asm.NewProgram()
		test.emit(p)
		p.Ecall()
		if test.name == "memory" {
			p.Space("buf", 8)
		}
		tc, trap, _ := run(t, p, 1000)
		if trap.Cause != hart.UserEnvCall {
			t.Errorf("test-%v: %s: unexpected trap %v", idx, test.name, trap)
			continue
		}
		if tc.X[asm.A0] != test.expect {
			t.Errorf("test-%v: %s: got %#x, expected %#x",
				idx, test.name, tc.X[asm.A0], test.expect)
		}
	}
}

func TestTraps(t *testing.T) {
	p := asm.NewProgram()
	p.Li(asm.A7, 93)
	p.Ecall()
	tc, trap, _ := run(t, p, 100)
	if trap.Cause != hart.UserEnvCall {
		t.Fatalf("expected ecall, got %v", trap)
	}
	if tc.Sepc != asm.TextBase+4 {
		t.Errorf("sepc %#x, expected ecall address", tc.Sepc)
	}
	if trap.Retired != 1 {
		t.Errorf("retired %v, expected 1", trap.Retired)
	}

	p = asm.NewProgram()
	p.Sd(asm.Zero, asm.Zero, 0)
	_, trap, _ = run(t, p, 100)
	if trap.Cause != hart.StorePageFault || trap.Tval != 0 {
		t.Errorf("expected store page fault at 0, got %v", trap)
	}

	p = asm.NewProgram()
	p.Word(0xffffffff)
	_, trap, _ = run(t, p, 100)
	if trap.Cause != hart.IllegalInstruction {
		t.Errorf("expected illegal instruction, got %v", trap)
	}

	p = asm.NewProgram()
	p.Label("spin")
	p.J("spin")
	tc, trap, _ = run(t, p, 100)
	if trap.Cause != hart.SupervisorTimer {
		t.Errorf("expected timer, got %v", trap)
	}
	if tc.Sepc != asm.TextBase {
		t.Errorf("timer sepc %#x", tc.Sepc)
	}
	if trap.Retired != 100 {
		t.Errorf("retired %v, expected 100", trap.Retired)
	}
}

func TestTrapContext(t *testing.T) {
	tc := hart.AppInitContext(0x10000, 0x20000, 0x8000000000080400,
		0x7fffff000, 0x80000000)
	tc.X[hart.RegA0] = 42

	var buf [hart.TrapContextSize]byte
	tc.Store(buf[:])

	var loaded hart.TrapContext
	loaded.Load(buf[:])
	if loaded != *tc {
		t.Errorf("trap context mismatch: %v != %v", loaded, *tc)
	}
	if loaded.X[hart.RegSP] != 0x20000 {
		t.Errorf("sp %#x", loaded.X[hart.RegSP])
	}
	if loaded.Sstatus&hart.SstatusSPP != 0 {
		t.Errorf("SPP set for user context")
	}
}
