//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"fmt"
	"slices"
)

// FrameAllocator allocates physical frames. It hands out frames
// sequentially and reuses recycled frames first.
type FrameAllocator struct {
	current  PhysPageNum
	end      PhysPageNum
	recycled []PhysPageNum
}

// NewFrameAllocator creates an allocator for the frames [start,end).
func NewFrameAllocator(start, end PhysPageNum) *FrameAllocator {
	return &FrameAllocator{
		current: start,
		end:     end,
	}
}

// Alloc allocates a frame.
func (fa *FrameAllocator) Alloc() (PhysPageNum, bool) {
	if n := len(fa.recycled); n > 0 {
		ppn := fa.recycled[n-1]
		fa.recycled = fa.recycled[:n-1]
		return ppn, true
	}
	if fa.current == fa.end {
		return 0, false
	}
	fa.current++
	return fa.current - 1, true
}

// Dealloc returns the frame to the allocator. Freeing a frame that is
// not allocated is a kernel bug.
func (fa *FrameAllocator) Dealloc(ppn PhysPageNum) {
	if ppn >= fa.current || slices.Contains(fa.recycled, ppn) {
		panic(fmt.Sprintf("frame %v has not been allocated", ppn))
	}
	fa.recycled = append(fa.recycled, ppn)
}

// Free returns the number of frames available for allocation.
func (fa *FrameAllocator) Free() int {
	return int(fa.end-fa.current) + len(fa.recycled)
}

// Memory implements the machine's physical memory. Frame contents are
// materialized on first access.
type Memory struct {
	base   PhysPageNum
	frames []*[PageSize]byte
	alloc  *FrameAllocator
}

// NewMemory creates physical memory of the argument size. The first
// KernelImageSize bytes are reserved for the kernel image.
func NewMemory(size uint64) *Memory {
	if size <= KernelImageSize {
		size = DefaultMemorySize
	}
	n := size / PageSize
	base := PhysBase.Floor()
	return &Memory{
		base:   base,
		frames: make([]*[PageSize]byte, n),
		alloc: NewFrameAllocator(base+KernelImageSize/PageSize,
			base+PhysPageNum(n)),
	}
}

// Start returns the first physical page.
func (mem *Memory) Start() PhysPageNum {
	return mem.base
}

// End returns the page past the last physical page.
func (mem *Memory) End() PhysPageNum {
	return mem.base + PhysPageNum(len(mem.frames))
}

// KernelEnd returns the first page after the kernel image.
func (mem *Memory) KernelEnd() PhysPageNum {
	return mem.base + KernelImageSize/PageSize
}

// Page returns the contents of the physical page.
func (mem *Memory) Page(ppn PhysPageNum) []byte {
	if ppn < mem.base || ppn >= mem.End() {
		panic(fmt.Sprintf("physical page %v out of range", ppn))
	}
	idx := ppn - mem.base
	page := mem.frames[idx]
	if page == nil {
		page = new([PageSize]byte)
		mem.frames[idx] = page
	}
	return page[:]
}

// Alloc allocates a zeroed frame.
func (mem *Memory) Alloc() (PhysPageNum, error) {
	ppn, ok := mem.alloc.Alloc()
	if !ok {
		return 0, ErrOutOfMemory
	}
	clear(mem.Page(ppn))
	return ppn, nil
}

// Dealloc frees the frame.
func (mem *Memory) Dealloc(ppn PhysPageNum) {
	mem.alloc.Dealloc(ppn)
}

// FreeFrames returns the number of unallocated frames.
func (mem *Memory) FreeFrames() int {
	return mem.alloc.Free()
}
