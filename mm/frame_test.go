//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"testing"
)

func TestFrameAllocator(t *testing.T) {
	fa := NewFrameAllocator(10, 13)
	var frames []PhysPageNum
	for i := 0; i < 3; i++ {
		ppn, ok := fa.Alloc()
		if !ok {
			t.Fatalf("Alloc %d failed", i)
		}
		frames = append(frames, ppn)
	}
	if _, ok := fa.Alloc(); ok {
		t.Errorf("Alloc succeeded on exhausted allocator")
	}
	fa.Dealloc(frames[1])
	if fa.Free() != 1 {
		t.Errorf("Free: got %v, expected 1", fa.Free())
	}
	ppn, ok := fa.Alloc()
	if !ok || ppn != frames[1] {
		t.Errorf("recycled frame: got %v, expected %v", ppn, frames[1])
	}
}

func TestFrameDoubleFree(t *testing.T) {
	fa := NewFrameAllocator(10, 13)
	ppn, _ := fa.Alloc()
	fa.Dealloc(ppn)
	defer func() {
		if recover() == nil {
			t.Errorf("double free did not panic")
		}
	}()
	fa.Dealloc(ppn)
}

func TestMemory(t *testing.T) {
	mem := NewMemory(2 << 20)
	if mem.Start() != PhysBase.Floor() {
		t.Errorf("start %v", mem.Start())
	}
	free := mem.FreeFrames()
	if free != (2<<20-KernelImageSize)/PageSize {
		t.Errorf("free frames %v", free)
	}
	ppn, err := mem.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	if ppn < mem.KernelEnd() {
		t.Errorf("frame %v allocated from kernel image", ppn)
	}
	mem.Page(ppn)[0] = 42
	mem.Dealloc(ppn)

	ppn, err = mem.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	if mem.Page(ppn)[0] != 0 {
		t.Errorf("allocated frame not zeroed")
	}
	for {
		_, err = mem.Alloc()
		if err != nil {
			break
		}
	}
	if err != ErrOutOfMemory {
		t.Errorf("expected ErrOutOfMemory, got %v", err)
	}
}
