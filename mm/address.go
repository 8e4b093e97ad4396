//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"fmt"

	"gvisor.dev/gvisor/pkg/hostarch"
)

// PhysAddr defines physical addresses.
type PhysAddr uint64

// PhysPageNum defines physical page numbers.
type PhysPageNum uint64

// VirtAddr defines virtual addresses.
type VirtAddr = hostarch.Addr

// VirtPageNum defines virtual page numbers.
type VirtPageNum uint64

// Floor returns the page containing the address.
func (pa PhysAddr) Floor() PhysPageNum {
	return PhysPageNum(pa / PageSize)
}

// Addr returns the physical address of the first byte of the page.
func (ppn PhysPageNum) Addr() PhysAddr {
	return PhysAddr(ppn << PageSizeBits)
}

func (ppn PhysPageNum) String() string {
	return fmt.Sprintf("ppn:%#x", uint64(ppn))
}

func canonical(va VirtAddr) uint64 {
	return uint64(va) & (1<<vaWidth - 1)
}

// Floor returns the virtual page containing the address.
func Floor(va VirtAddr) VirtPageNum {
	return VirtPageNum(canonical(va) >> PageSizeBits)
}

// Ceil returns the first virtual page starting at or above the
// address.
func Ceil(va VirtAddr) VirtPageNum {
	v := canonical(va)
	if v == 0 {
		return 0
	}
	return VirtPageNum((v - 1 + PageSize) >> PageSizeBits)
}

// Addr returns the sign-extended virtual address of the first byte of
// the page.
func (vpn VirtPageNum) Addr() VirtAddr {
	v := uint64(vpn) << PageSizeBits
	if v&(1<<(vaWidth-1)) != 0 {
		v |= ^uint64(1<<vaWidth - 1)
	}
	return VirtAddr(v)
}

// Indexes returns the page table indexes for the page, root level
// first.
func (vpn VirtPageNum) Indexes() [3]int {
	var idx [3]int
	v := uint64(vpn)
	for i := 2; i >= 0; i-- {
		idx[i] = int(v & 511)
		v >>= 9
	}
	return idx
}

func (vpn VirtPageNum) String() string {
	return fmt.Sprintf("vpn:%#x", uint64(vpn))
}

// VPNRange defines a half-open range of virtual pages.
type VPNRange struct {
	Start VirtPageNum
	End   VirtPageNum
}

// NewVPNRange creates a range from the start and end addresses. The
// start is rounded down and the end up to page boundaries.
func NewVPNRange(start, end VirtAddr) VPNRange {
	return VPNRange{
		Start: Floor(start),
		End:   Ceil(end),
	}
}

// Len returns the number of pages in the range.
func (r VPNRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

// Empty tests if the range is empty.
func (r VPNRange) Empty() bool {
	return r.End <= r.Start
}

// Contains tests if the page is in the range.
func (r VPNRange) Contains(vpn VirtPageNum) bool {
	return r.Start <= vpn && vpn < r.End
}

// Overlaps tests if the ranges share any page.
func (r VPNRange) Overlaps(o VPNRange) bool {
	return r.Start < o.End && o.Start < r.End && !r.Empty() && !o.Empty()
}

// All iterates the pages of the range.
func (r VPNRange) All(yield func(VirtPageNum) bool) {
	for vpn := r.Start; vpn < r.End; vpn++ {
		if !yield(vpn) {
			return
		}
	}
}

func (r VPNRange) String() string {
	return fmt.Sprintf("[%#x,%#x)", uint64(r.Start), uint64(r.End))
}
