//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"github.com/markkurossi/rvos/mm"
)

// Protection bits of mmap.
const (
	ProtRead  = 1 << 0
	ProtWrite = 1 << 1
	ProtExec  = 1 << 2
	protMask  = ProtRead | ProtWrite | ProtExec
)

// sysSbrk moves the program break by delta bytes and returns the old
// break.
func (kern *Kernel) sysSbrk(task *Task, sys *syscall) (int64, error) {
	delta := int64(sys.arg0)
	old := task.programBrk

	brk := int64(old) + delta
	if brk < int64(task.heapBottom) {
		return -1, EINVAL
	}
	err := task.memSet.ResizeHeap(mm.VirtAddr(brk))
	if err != nil {
		return -1, err
	}
	task.programBrk = mm.VirtAddr(brk)

	return int64(old), nil
}

func (kern *Kernel) sysMmap(task *Task, sys *syscall) (int64, error) {
	start := mm.VirtAddr(sys.arg0)
	length := sys.arg1
	prot := sys.arg2

	if start.PageOffset() != 0 || prot&^protMask != 0 || prot&protMask == 0 {
		return -1, EINVAL
	}
	if length == 0 {
		return 0, nil
	}
	end, ok := start.AddLength(length)
	if !ok || end > mm.UserSpaceTop {
		return -1, EINVAL
	}
	perm := mm.MapPermission(prot<<1) | mm.PermU
	err := task.memSet.InsertFramedArea(start, end, perm)
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (kern *Kernel) sysMunmap(task *Task, sys *syscall) (int64, error) {
	start := mm.VirtAddr(sys.arg0)
	length := sys.arg1

	if start.PageOffset() != 0 {
		return -1, EINVAL
	}
	if length == 0 {
		return 0, nil
	}
	end, ok := start.AddLength(length)
	if !ok || end > mm.UserSpaceTop {
		return -1, EINVAL
	}
	err := task.memSet.UnmapRange(mm.NewVPNRange(start, end))
	if err != nil {
		return -1, err
	}
	return 0, nil
}
