//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"errors"
	"testing"

	"github.com/markkurossi/rvos/asm"
	"gvisor.dev/gvisor/pkg/hostarch"
)

func testProgram(t *testing.T) []byte {
	p := asm.NewProgram()
	p.La(asm.A0, "msg")
	p.Li(asm.A7, 93)
	p.Ecall()
	p.Asciz("msg", "hello, world")
	p.Space("bss", 2*PageSize)
	data, err := p.ELF()
	if err != nil {
		t.Fatalf("ELF failed: %v", err)
	}
	return data
}

func TestKernelSpace(t *testing.T) {
	mem := NewMemory(2 << 20)
	ks, err := NewKernel(mem)
	if err != nil {
		t.Fatal(err)
	}
	pte, ok := ks.Translate(Floor(Trampoline))
	if !ok || pte.PPN() != mem.Start() || !pte.Executable() || pte.User() {
		t.Errorf("trampoline %v", pte)
	}
	pte, ok = ks.Translate(VirtPageNum(mem.KernelEnd()))
	if !ok || pte.PPN() != mem.KernelEnd() || !pte.Writable() {
		t.Errorf("identity mapping %v", pte)
	}
	ks.Release()
}

func TestFromELF(t *testing.T) {
	mem := NewMemory(2 << 20)
	free := mem.FreeFrames()

	ms, sp, entry, err := FromELF(mem, testProgram(t))
	if err != nil {
		t.Fatalf("FromELF failed: %v", err)
	}
	if entry != asm.TextBase {
		t.Errorf("entry %#x", entry)
	}
	// text, data+bss (3 pages), guard, stack.
	expectSP := VirtAddr(asm.TextBase + 4*PageSize + PageSize + UserStackSize)
	if sp != expectSP {
		t.Errorf("sp %#x, expected %#x", uint64(sp), uint64(expectSP))
	}
	if ms.HeapBottom() != sp {
		t.Errorf("heap bottom %#x", uint64(ms.HeapBottom()))
	}

	text, ok := ms.Translate(Floor(asm.TextBase))
	if !ok || !text.Executable() || text.Writable() || !text.User() {
		t.Errorf("text %v", text)
	}
	if _, ok := ms.Translate(Floor(sp - UserStackSize - 1)); ok {
		t.Errorf("guard page mapped")
	}
	tc, ok := ms.Translate(Floor(TrapContextBase))
	if !ok || tc.User() || !tc.Writable() {
		t.Errorf("trap context %v", tc)
	}

	msg, err := mem.TranslatedStr(ms.Token(), asm.TextBase+PageSize)
	if err != nil || msg != "hello, world" {
		t.Errorf("TranslatedStr: %q, %v", msg, err)
	}

	err = ms.CheckRange(asm.TextBase, 4, hostarch.Write)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("write to text allowed: %v", err)
	}
	err = ms.CheckRange(sp-16, 16, hostarch.ReadWrite)
	if err != nil {
		t.Errorf("stack access denied: %v", err)
	}
	err = ms.CheckRange(TrapContextBase, 8, hostarch.Read)
	if err == nil {
		t.Errorf("trap context accessible from user")
	}

	ms.Release()
	if mem.FreeFrames() != free {
		t.Errorf("leaked %d frames", free-mem.FreeFrames())
	}
}

func TestFromELFInvalid(t *testing.T) {
	mem := NewMemory(2 << 20)
	free := mem.FreeFrames()
	_, _, _, err := FromELF(mem, []byte("not an executable"))
	if err == nil {
		t.Errorf("FromELF accepted garbage")
	}
	if mem.FreeFrames() != free {
		t.Errorf("leaked %d frames", free-mem.FreeFrames())
	}
}

func TestFromExistedUser(t *testing.T) {
	mem := NewMemory(2 << 20)
	free := mem.FreeFrames()

	parent, sp, _, err := FromELF(mem, testProgram(t))
	if err != nil {
		t.Fatal(err)
	}
	err = mem.CopyOut(parent.Token(), sp-8, []byte("parent!\x00"))
	if err != nil {
		t.Fatal(err)
	}
	child, err := FromExistedUser(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(child.Areas()) != len(parent.Areas()) {
		t.Errorf("child has %d areas, parent %d",
			len(child.Areas()), len(parent.Areas()))
	}
	err = mem.CopyOut(parent.Token(), sp-8, []byte("changed\x00"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := mem.TranslatedStr(child.Token(), sp-8)
	if err != nil || s != "parent!" {
		t.Errorf("child stack %q, %v", s, err)
	}
	if child.HeapBottom() != parent.HeapBottom() {
		t.Errorf("child heap %#x", uint64(child.HeapBottom()))
	}

	child.RecycleDataPages()
	if len(child.Areas()) != 1 {
		t.Errorf("recycled child has %d areas", len(child.Areas()))
	}
	child.Release()
	parent.Release()
	if mem.FreeFrames() != free {
		t.Errorf("leaked %d frames", free-mem.FreeFrames())
	}
}

func TestMapUnmap(t *testing.T) {
	mem := NewMemory(2 << 20)
	ms, err := NewBare(mem)
	if err != nil {
		t.Fatal(err)
	}
	free := mem.FreeFrames()

	const base = 0x10000000
	err = ms.InsertFramedArea(base, base+4*PageSize, PermR|PermW|PermU)
	if err != nil {
		t.Fatal(err)
	}
	err = ms.InsertFramedArea(base+3*PageSize, base+5*PageSize,
		PermR|PermU)
	if !errors.Is(err, ErrAlreadyMapped) {
		t.Errorf("overlapping insert: %v", err)
	}

	// Unmap the middle two pages.
	err = ms.UnmapRange(NewVPNRange(base+PageSize, base+3*PageSize))
	if err != nil {
		t.Fatalf("UnmapRange failed: %v", err)
	}
	if len(ms.Areas()) != 2 {
		t.Errorf("got %d areas after split, expected 2", len(ms.Areas()))
	}
	if !ms.RangeMapped(NewVPNRange(base, base+PageSize)) ||
		!ms.RangeMapped(NewVPNRange(base+3*PageSize, base+4*PageSize)) {
		t.Errorf("split areas not mapped")
	}
	if !ms.RangeUnmapped(NewVPNRange(base+PageSize, base+3*PageSize)) {
		t.Errorf("unmapped range still mapped")
	}

	// Unmapping a hole fails without changes.
	err = ms.UnmapRange(NewVPNRange(base, base+2*PageSize))
	if !errors.Is(err, ErrInvalidUnmap) {
		t.Errorf("unmap of hole: %v", err)
	}
	if !ms.RangeMapped(NewVPNRange(base, base+PageSize)) {
		t.Errorf("failed unmap modified mappings")
	}

	err = ms.UnmapRange(NewVPNRange(base, base+PageSize))
	if err != nil {
		t.Fatal(err)
	}
	if !ms.RemoveAreaWithStartVPN(Floor(base + 3*PageSize)) {
		t.Errorf("RemoveAreaWithStartVPN failed")
	}
	if len(ms.Areas()) != 0 {
		t.Errorf("%d areas left", len(ms.Areas()))
	}
	// Only the page table frames remain.
	if mem.FreeFrames() != free-2 {
		t.Errorf("free frames %d, expected %d", mem.FreeFrames(), free-2)
	}
	ms.Release()
}

func TestResizeHeap(t *testing.T) {
	mem := NewMemory(2 << 20)
	ms, _, _, err := FromELF(mem, testProgram(t))
	if err != nil {
		t.Fatal(err)
	}
	bottom := ms.HeapBottom()

	err = ms.ResizeHeap(bottom + 100)
	if err != nil {
		t.Fatal(err)
	}
	err = ms.CheckRange(bottom, 100, hostarch.ReadWrite)
	if err != nil {
		t.Errorf("heap not accessible: %v", err)
	}
	err = ms.ResizeHeap(bottom + 3*PageSize)
	if err != nil {
		t.Fatal(err)
	}
	if !ms.RangeMapped(NewVPNRange(bottom, bottom+3*PageSize)) {
		t.Errorf("heap not mapped")
	}

	// Heap pages are not unmapped with UnmapRange.
	err = ms.UnmapRange(NewVPNRange(bottom+PageSize, bottom+2*PageSize))
	if !errors.Is(err, ErrInvalidUnmap) {
		t.Errorf("unmap of heap pages: %v", err)
	}
	if !ms.RangeMapped(NewVPNRange(bottom, bottom+3*PageSize)) {
		t.Errorf("failed heap unmap modified mappings")
	}
	err = ms.ResizeHeap(bottom + 4*PageSize)
	if err != nil {
		t.Errorf("heap growth after failed unmap: %v", err)
	}
	err = ms.ResizeHeap(bottom + 3*PageSize)
	if err != nil {
		t.Fatal(err)
	}
	err = ms.ResizeHeap(bottom + PageSize)
	if err != nil {
		t.Fatal(err)
	}
	if !ms.RangeUnmapped(NewVPNRange(bottom+PageSize, bottom+3*PageSize)) {
		t.Errorf("heap not shrunk")
	}
	err = ms.ResizeHeap(bottom - 1)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("heap below bottom: %v", err)
	}

	// Growing into an existing mapping fails.
	err = ms.InsertFramedArea(bottom+2*PageSize, bottom+3*PageSize,
		PermR|PermU)
	if err != nil {
		t.Fatal(err)
	}
	err = ms.ResizeHeap(bottom + 3*PageSize)
	if !errors.Is(err, ErrAlreadyMapped) {
		t.Errorf("heap growth into mapping: %v", err)
	}
	ms.Release()
}
