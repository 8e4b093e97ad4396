//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package asm

import (
	"testing"
)

var encodingTests = []struct {
	name  string
	emit  func(p *Program)
	words []uint32
}{
	{
		name:  "addi a0,zero,1",
		emit:  func(p *Program) { p.Addi(A0, Zero, 1) },
		words: []uint32{0x00100513},
	},
	{
		name:  "li a7,93",
		emit:  func(p *Program) { p.Li(A7, 93) },
		words: []uint32{0x05d00893},
	},
	{
		name:  "ecall",
		emit:  func(p *Program) { p.Ecall() },
		words: []uint32{0x00000073},
	},
	{
		name:  "ret",
		emit:  func(p *Program) { p.Ret() },
		words: []uint32{0x00008067},
	},
	{
		name:  "add a0,a1,a2",
		emit:  func(p *Program) { p.Add(A0, A1, A2) },
		words: []uint32{0x00c58533},
	},
	{
		name:  "sd ra,8(sp)",
		emit:  func(p *Program) { p.Sd(RA, SP, 8) },
		words: []uint32{0x00113423},
	},
	{
		name:  "ld ra,8(sp)",
		emit:  func(p *Program) { p.Ld(RA, SP, 8) },
		words: []uint32{0x00813083},
	},
	{
		name:  "lui a0,0x12345",
		emit:  func(p *Program) { p.Lui(A0, 0x12345) },
		words: []uint32{0x12345537},
	},
	{
		name:  "li a0,0x12345678",
		emit:  func(p *Program) { p.Li(A0, 0x12345678) },
		words: []uint32{0x12345537, 0x6785051b},
	},
	{
		name:  "mul a0,a0,a1",
		emit:  func(p *Program) { p.Mul(A0, A0, A1) },
		words: []uint32{0x02b50533},
	},
}

func TestEncoding(t *testing.T) {
	for idx, test := range encodingTests {
		p := NewProgram()
		test.emit(p)
		if len(p.text) != len(test.words) {
			t.Fatalf("test-%v: %s: got %d words, expected %d",
				idx, test.name, len(p.text), len(test.words))
		}
		for i, w := range test.words {
			if p.text[i] != w {
				t.Errorf("test-%v: %s: word %d: got %#08x, expected %#08x",
					idx, test.name, i, p.text[i], w)
			}
		}
	}
}

func TestBranchFixup(t *testing.T) {
	p := NewProgram()
	p.Label("loop")
	p.Addi(A0, A0, -1)
	p.Bnez(A0, "loop")
	p.J("done")
	p.Nop()
	p.Label("done")
	p.Ret()

	_, err := p.Link()
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	// bnez a0,-4
	if p.text[1] != 0xfe051ee3 {
		t.Errorf("bnez: got %#08x", p.text[1])
	}
	// j +8
	if p.text[2] != 0x0080006f {
		t.Errorf("j: got %#08x", p.text[2])
	}
}

func TestLayout(t *testing.T) {
	p := NewProgram()
	p.La(A0, "msg")
	p.La(A1, "buf")
	p.Ret()
	p.Asciz("msg", "hello")
	p.Space("buf", 100)

	img, err := p.Link()
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if img.Entry != TextBase {
		t.Errorf("entry %#x, expected %#x", img.Entry, TextBase)
	}
	if len(img.Segments) != 2 {
		t.Fatalf("got %d segments, expected 2", len(img.Segments))
	}
	data := img.Segments[1]
	if data.Vaddr != TextBase+pageSize {
		t.Errorf("data at %#x", data.Vaddr)
	}
	if data.Memsz != 6+100 {
		t.Errorf("data memsz %d", data.Memsz)
	}
	addr, err := p.Addr("buf")
	if err != nil {
		t.Fatal(err)
	}
	if addr != TextBase+pageSize+6 {
		t.Errorf("buf at %#x", addr)
	}
}

func TestErrors(t *testing.T) {
	p := NewProgram()
	p.J("nowhere")
	if _, err := p.Link(); err == nil {
		t.Errorf("undefined label not detected")
	}

	p = NewProgram()
	p.Label("a")
	p.Label("a")
	if _, err := p.Link(); err == nil {
		t.Errorf("label redefinition not detected")
	}

	p = NewProgram()
	p.Addi(A0, A0, 4096)
	if _, err := p.Link(); err == nil {
		t.Errorf("immediate overflow not detected")
	}
}
