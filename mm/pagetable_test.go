//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"errors"
	"testing"
)

var addressTests = []struct {
	va    VirtAddr
	floor VirtPageNum
	ceil  VirtPageNum
}{
	{0, 0, 0},
	{1, 0, 1},
	{PageSize, 1, 1},
	{PageSize + 1, 1, 2},
	{Trampoline, 0x7ffffff, 0x7ffffff},
	{TrapContextBase, 0x7fffffe, 0x7fffffe},
}

func TestAddress(t *testing.T) {
	for idx, test := range addressTests {
		if f := Floor(test.va); f != test.floor {
			t.Errorf("test-%v: Floor(%#x)=%v, expected %v",
				idx, uint64(test.va), f, test.floor)
		}
		if c := Ceil(test.va); c != test.ceil {
			t.Errorf("test-%v: Ceil(%#x)=%v, expected %v",
				idx, uint64(test.va), c, test.ceil)
		}
	}
	if Floor(Trampoline).Addr() != Trampoline {
		t.Errorf("trampoline page address %#x", uint64(Floor(Trampoline).Addr()))
	}
	idx := Floor(Trampoline).Indexes()
	if idx != [3]int{511, 511, 511} {
		t.Errorf("trampoline indexes %v", idx)
	}
}

func TestPageTable(t *testing.T) {
	mem := NewMemory(2 << 20)
	free := mem.FreeFrames()

	pt, err := NewPageTable(mem)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := mem.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	vpn := Floor(0x10000)

	if _, ok := pt.Translate(vpn); ok {
		t.Errorf("unmapped page translated")
	}
	err = pt.Map(vpn, frame, PTERead|PTEUser)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	pte, ok := pt.Translate(vpn)
	if !ok || pte.PPN() != frame || !pte.Readable() || pte.Writable() ||
		!pte.User() {
		t.Errorf("invalid pte %v", pte)
	}
	err = pt.Map(vpn, frame, PTERead)
	if !errors.Is(err, ErrAlreadyMapped) {
		t.Errorf("double map: %v", err)
	}

	view := mem.FromToken(pt.Token())
	if pte2, ok := view.Translate(vpn); !ok || pte2 != pte {
		t.Errorf("token view translated %v", pte2)
	}

	if err = pt.Unmap(vpn); err != nil {
		t.Errorf("Unmap failed: %v", err)
	}
	if err = pt.Unmap(vpn); !errors.Is(err, ErrInvalidUnmap) {
		t.Errorf("double unmap: %v", err)
	}

	mem.Dealloc(frame)
	pt.Release()
	if mem.FreeFrames() != free {
		t.Errorf("leaked %d frames", free-mem.FreeFrames())
	}
}
