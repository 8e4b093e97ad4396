//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"slices"

	"github.com/markkurossi/rvos/mm"
)

// PID defines process IDs.
type PID int

func (pid PID) String() string {
	return fmt.Sprintf("%d", int(pid))
}

// RecycleAllocator allocates IDs sequentially and reuses released IDs
// first.
type RecycleAllocator struct {
	current  int
	recycled []int
}

// Alloc allocates an ID.
func (a *RecycleAllocator) Alloc() int {
	if n := len(a.recycled); n > 0 {
		id := a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
		return id
	}
	a.current++
	return a.current - 1
}

// Dealloc releases the ID.
func (a *RecycleAllocator) Dealloc(id int) {
	if id >= a.current || slices.Contains(a.recycled, id) {
		panic(fmt.Sprintf("id %d has not been allocated", id))
	}
	a.recycled = append(a.recycled, id)
}

// KernelStack defines a task's kernel stack in the kernel address
// space.
type KernelStack struct {
	space *mm.MemorySet
	pid   PID
}

// KernelStackPosition returns the bottom and top addresses of the
// kernel stack of the process. Stacks are separated by guard pages.
func KernelStackPosition(pid PID) (bottom, top mm.VirtAddr) {
	top = mm.Trampoline - mm.VirtAddr(pid)*(mm.KernelStackSize+mm.PageSize)
	bottom = top - mm.KernelStackSize
	return
}

func newKernelStack(space *mm.MemorySet, pid PID) (*KernelStack, error) {
	bottom, top := KernelStackPosition(pid)
	err := space.InsertFramedArea(bottom, top, mm.PermR|mm.PermW)
	if err != nil {
		return nil, err
	}
	return &KernelStack{
		space: space,
		pid:   pid,
	}, nil
}

// Top returns the initial stack pointer of the kernel stack.
func (ks *KernelStack) Top() mm.VirtAddr {
	_, top := KernelStackPosition(ks.pid)
	return top
}

func (ks *KernelStack) release() {
	bottom, _ := KernelStackPosition(ks.pid)
	ks.space.RemoveAreaWithStartVPN(mm.Floor(bottom))
}
