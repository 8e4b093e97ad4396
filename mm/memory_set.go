//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"debug/elf"
	"fmt"
	"slices"

	"github.com/markkurossi/rvos/image"
	"gvisor.dev/gvisor/pkg/hostarch"
)

// MapType defines how virtual pages are backed.
type MapType int

// Map types.
const (
	Identical MapType = iota
	Framed
)

func (t MapType) String() string {
	switch t {
	case Identical:
		return "identical"
	case Framed:
		return "framed"
	default:
		return fmt.Sprintf("{MapType %d}", int(t))
	}
}

// MapPermission defines the access permissions of a mapped area. The
// bits match the page table entry flags.
type MapPermission uint8

// Map permissions.
const (
	PermR = MapPermission(PTERead)
	PermW = MapPermission(PTEWrite)
	PermX = MapPermission(PTEExec)
	PermU = MapPermission(PTEUser)
)

// Access returns the access type the permission grants.
func (p MapPermission) Access() hostarch.AccessType {
	return hostarch.AccessType{
		Read:    p&PermR != 0,
		Write:   p&PermW != 0,
		Execute: p&PermX != 0,
	}
}

func (p MapPermission) String() string {
	return PTEFlags(p).String()[1:5]
}

// MapArea defines a contiguous range of mapped virtual pages.
type MapArea struct {
	vpns   VPNRange
	frames map[VirtPageNum]PhysPageNum
	typ    MapType
	perm   MapPermission
}

// NewMapArea creates a new area for the virtual address range.
func NewMapArea(start, end VirtAddr, typ MapType,
	perm MapPermission) *MapArea {

	return &MapArea{
		vpns:   NewVPNRange(start, end),
		frames: make(map[VirtPageNum]PhysPageNum),
		typ:    typ,
		perm:   perm,
	}
}

// Range returns the page range of the area.
func (a *MapArea) Range() VPNRange {
	return a.vpns
}

// Permission returns the area's permission.
func (a *MapArea) Permission() MapPermission {
	return a.perm
}

func (a *MapArea) mapOne(pt *PageTable, vpn VirtPageNum) error {
	var ppn PhysPageNum
	var err error

	switch a.typ {
	case Identical:
		ppn = PhysPageNum(vpn)
	case Framed:
		ppn, err = pt.mem.Alloc()
		if err != nil {
			return err
		}
	}
	err = pt.Map(vpn, ppn, PTEFlags(a.perm))
	if err != nil {
		if a.typ == Framed {
			pt.mem.Dealloc(ppn)
		}
		return err
	}
	if a.typ == Framed {
		a.frames[vpn] = ppn
	}
	return nil
}

func (a *MapArea) unmapOne(pt *PageTable, vpn VirtPageNum) error {
	if a.typ == Framed {
		ppn, ok := a.frames[vpn]
		if ok {
			pt.mem.Dealloc(ppn)
			delete(a.frames, vpn)
		}
	}
	return pt.Unmap(vpn)
}

func (a *MapArea) mapRange(pt *PageTable, r VPNRange) error {
	for vpn := range r.All {
		err := a.mapOne(pt, vpn)
		if err != nil {
			for v := r.Start; v < vpn; v++ {
				a.unmapOne(pt, v)
			}
			return err
		}
	}
	return nil
}

func (a *MapArea) unmapAll(pt *PageTable) {
	for vpn := range a.vpns.All {
		a.unmapOne(pt, vpn)
	}
}

// MemorySet implements an address space: a page table and the areas
// mapped into it.
type MemorySet struct {
	mem   *Memory
	pt    *PageTable
	areas []*MapArea
	heap  *MapArea
}

// NewBare creates an empty address space.
func NewBare(mem *Memory) (*MemorySet, error) {
	pt, err := NewPageTable(mem)
	if err != nil {
		return nil, err
	}
	return &MemorySet{
		mem: mem,
		pt:  pt,
	}, nil
}

// NewKernel creates the kernel address space: the trampoline and
// identity mappings of the kernel image and the physical memory.
func NewKernel(mem *Memory) (*MemorySet, error) {
	ms, err := NewBare(mem)
	if err != nil {
		return nil, err
	}
	err = ms.mapTrampoline()
	if err == nil {
		err = ms.push(NewMapArea(VirtAddr(mem.Start().Addr()),
			VirtAddr(mem.KernelEnd().Addr()), Identical, PermR|PermX), nil, 0)
	}
	if err == nil {
		err = ms.push(NewMapArea(VirtAddr(mem.KernelEnd().Addr()),
			VirtAddr(mem.End().Addr()), Identical, PermR|PermW), nil, 0)
	}
	if err != nil {
		ms.Release()
		return nil, err
	}
	return ms, nil
}

// FromELF creates a user address space from the ELF image. It returns
// the address space, the user stack top, and the program entry point.
func FromELF(mem *Memory, data []byte) (*MemorySet, VirtAddr, uint64, error) {
	img, err := image.Parse(data)
	if err != nil {
		return nil, 0, 0, err
	}
	ms, err := NewBare(mem)
	if err != nil {
		return nil, 0, 0, err
	}
	sp, err := ms.loadImage(img)
	if err != nil {
		ms.Release()
		return nil, 0, 0, err
	}
	return ms, sp, img.Entry, nil
}

func (ms *MemorySet) loadImage(img *image.Image) (VirtAddr, error) {
	err := ms.mapTrampoline()
	if err != nil {
		return 0, err
	}
	var maxEnd VirtPageNum
	for _, seg := range img.Segments {
		start := VirtAddr(seg.Vaddr)
		end, ok := start.AddLength(seg.Memsz)
		if !ok || end > UserSpaceTop {
			return 0, fmt.Errorf("segment %#x+%#x: %w", seg.Vaddr, seg.Memsz,
				ErrInvalidAddress)
		}
		perm := PermU
		if seg.Flags&elf.PF_R != 0 {
			perm |= PermR
		}
		if seg.Flags&elf.PF_W != 0 {
			perm |= PermW
		}
		if seg.Flags&elf.PF_X != 0 {
			perm |= PermX
		}
		area := NewMapArea(start, end, Framed, perm)
		err = ms.push(area, seg.Data, start.PageOffset())
		if err != nil {
			return 0, err
		}
		if area.vpns.End > maxEnd {
			maxEnd = area.vpns.End
		}
	}

	// Guard page, user stack, and an empty heap above the stack.
	stackBottom := maxEnd.Addr() + PageSize
	stackTop := stackBottom + UserStackSize
	err = ms.push(NewMapArea(stackBottom, stackTop, Framed,
		PermR|PermW|PermU), nil, 0)
	if err != nil {
		return 0, err
	}
	ms.heap = NewMapArea(stackTop, stackTop, Framed, PermR|PermW|PermU)
	err = ms.push(ms.heap, nil, 0)
	if err != nil {
		return 0, err
	}

	err = ms.push(NewMapArea(TrapContextBase, Trampoline, Framed,
		PermR|PermW), nil, 0)
	if err != nil {
		return 0, err
	}
	return stackTop, nil
}

// FromExistedUser creates a copy of the user address space. All areas
// are duplicated and their contents copied.
func FromExistedUser(parent *MemorySet) (*MemorySet, error) {
	ms, err := NewBare(parent.mem)
	if err != nil {
		return nil, err
	}
	err = ms.copyFrom(parent)
	if err != nil {
		ms.Release()
		return nil, err
	}
	return ms, nil
}

func (ms *MemorySet) copyFrom(parent *MemorySet) error {
	err := ms.mapTrampoline()
	if err != nil {
		return err
	}
	for _, area := range parent.areas {
		n := &MapArea{
			vpns:   area.vpns,
			frames: make(map[VirtPageNum]PhysPageNum),
			typ:    area.typ,
			perm:   area.perm,
		}
		err = ms.push(n, nil, 0)
		if err != nil {
			return err
		}
		if area == parent.heap {
			ms.heap = n
		}
		for vpn := range area.vpns.All {
			src, _ := parent.pt.Translate(vpn)
			dst, _ := ms.pt.Translate(vpn)
			copy(ms.mem.Page(dst.PPN()), parent.mem.Page(src.PPN()))
		}
	}
	return nil
}

func (ms *MemorySet) mapTrampoline() error {
	return ms.pt.Map(Floor(Trampoline), ms.mem.Start(), PTERead|PTEExec)
}

// Token returns the page table token of the address space.
func (ms *MemorySet) Token() uint64 {
	return ms.pt.Token()
}

// Memory returns the physical memory of the address space.
func (ms *MemorySet) Memory() *Memory {
	return ms.mem
}

// Translate returns the page table entry of the virtual page.
func (ms *MemorySet) Translate(vpn VirtPageNum) (PageTableEntry, bool) {
	return ms.pt.Translate(vpn)
}

// Areas returns the mapped areas ordered by their start page.
func (ms *MemorySet) Areas() []*MapArea {
	return ms.areas
}

func (ms *MemorySet) push(area *MapArea, data []byte, offset uint64) error {
	if !ms.RangeUnmapped(area.vpns) {
		return fmt.Errorf("area %v: %w", area.vpns, ErrAlreadyMapped)
	}
	err := area.mapRange(ms.pt, area.vpns)
	if err != nil {
		return err
	}
	vpn := area.vpns.Start
	for len(data) > 0 {
		pte, _ := ms.pt.Translate(vpn)
		n := copy(ms.mem.Page(pte.PPN())[offset:], data)
		data = data[n:]
		offset = 0
		vpn++
	}
	ms.areas = append(ms.areas, area)
	slices.SortStableFunc(ms.areas, func(a, b *MapArea) int {
		return int(a.vpns.Start) - int(b.vpns.Start)
	})
	return nil
}

// InsertFramedArea maps the virtual address range with newly
// allocated frames. It fails without changes if any page in the range
// is already mapped.
func (ms *MemorySet) InsertFramedArea(start, end VirtAddr,
	perm MapPermission) error {

	return ms.push(NewMapArea(start, end, Framed, perm), nil, 0)
}

// RemoveAreaWithStartVPN unmaps the area starting at the page.
func (ms *MemorySet) RemoveAreaWithStartVPN(vpn VirtPageNum) bool {
	for idx, area := range ms.areas {
		if area.vpns.Start == vpn && !area.vpns.Empty() {
			area.unmapAll(ms.pt)
			ms.areas = slices.Delete(ms.areas, idx, idx+1)
			return true
		}
	}
	return false
}

func (ms *MemorySet) findArea(vpn VirtPageNum) *MapArea {
	for _, area := range ms.areas {
		if area.vpns.Contains(vpn) {
			return area
		}
	}
	return nil
}

// RangeMapped tests if all pages of the range are mapped.
func (ms *MemorySet) RangeMapped(r VPNRange) bool {
	for vpn := range r.All {
		if _, ok := ms.pt.Translate(vpn); !ok {
			return false
		}
	}
	return true
}

// RangeUnmapped tests if none of the pages of the range are mapped.
func (ms *MemorySet) RangeUnmapped(r VPNRange) bool {
	for vpn := range r.All {
		if _, ok := ms.pt.Translate(vpn); ok {
			return false
		}
	}
	return true
}

// CheckRange verifies that the user address range is covered by user
// areas granting the access.
func (ms *MemorySet) CheckRange(start VirtAddr, length uint64,
	access hostarch.AccessType) error {

	if length == 0 {
		return nil
	}
	end, ok := start.AddLength(length)
	if !ok || end > UserSpaceTop {
		return fmt.Errorf("range %#x+%#x: %w", uint64(start), length,
			ErrInvalidAddress)
	}
	for vpn := range NewVPNRange(start, end).All {
		area := ms.findArea(vpn)
		if area == nil || area.perm&PermU == 0 ||
			!area.perm.Access().SupersetOf(access) {
			return fmt.Errorf("%v %v: %w", vpn, access, ErrInvalidAddress)
		}
	}
	return nil
}

// UnmapRange unmaps the pages of the range from the user areas
// holding them. Areas are split as needed. It fails without changes
// if any page of the range is not mapped by a user area. The heap
// pages are released only with ResizeHeap.
func (ms *MemorySet) UnmapRange(r VPNRange) error {
	if !ms.RangeMapped(r) {
		return fmt.Errorf("unmap %#x-%#x: %w", uint64(r.Start.Addr()),
			uint64(r.End.Addr()), ErrInvalidUnmap)
	}
	for vpn := range r.All {
		area := ms.findArea(vpn)
		if area == nil || area == ms.heap || area.typ != Framed ||
			area.perm&PermU == 0 {
			return fmt.Errorf("unmap %v: %w", vpn, ErrInvalidUnmap)
		}
	}
	var areas []*MapArea
	for _, area := range ms.areas {
		if !area.vpns.Overlaps(r) {
			areas = append(areas, area)
			continue
		}
		areas = append(areas, ms.split(area, r)...)
	}
	ms.areas = areas
	return nil
}

// split unmaps the pages of the range from the area and returns the
// areas remaining below and above the range.
func (ms *MemorySet) split(area *MapArea, r VPNRange) []*MapArea {
	lo := max(area.vpns.Start, r.Start)
	hi := min(area.vpns.End, r.End)
	for vpn := lo; vpn < hi; vpn++ {
		area.unmapOne(ms.pt, vpn)
	}
	var result []*MapArea
	if hi < area.vpns.End {
		tail := &MapArea{
			vpns:   VPNRange{Start: hi, End: area.vpns.End},
			frames: make(map[VirtPageNum]PhysPageNum),
			typ:    area.typ,
			perm:   area.perm,
		}
		for vpn := range tail.vpns.All {
			tail.frames[vpn] = area.frames[vpn]
			delete(area.frames, vpn)
		}
		result = append(result, tail)
	}
	area.vpns.End = lo
	if !area.vpns.Empty() {
		result = append([]*MapArea{area}, result...)
	}
	return result
}

// HeapBottom returns the start address of the heap area.
func (ms *MemorySet) HeapBottom() VirtAddr {
	if ms.heap == nil {
		return 0
	}
	return ms.heap.vpns.Start.Addr()
}

// ResizeHeap grows or shrinks the heap area to cover the addresses
// [HeapBottom, brk). Growing into an existing mapping fails without
// changes.
func (ms *MemorySet) ResizeHeap(brk VirtAddr) error {
	if ms.heap == nil || brk < ms.HeapBottom() || brk > UserSpaceTop {
		return fmt.Errorf("brk %#x: %w", uint64(brk), ErrInvalidAddress)
	}
	end := Ceil(brk)
	heap := ms.heap
	if end > heap.vpns.End {
		grow := VPNRange{Start: heap.vpns.End, End: end}
		if !ms.RangeUnmapped(grow) {
			return fmt.Errorf("brk %#x: %w", uint64(brk), ErrAlreadyMapped)
		}
		err := heap.mapRange(ms.pt, grow)
		if err != nil {
			return err
		}
	} else {
		for vpn := end; vpn < heap.vpns.End; vpn++ {
			heap.unmapOne(ms.pt, vpn)
		}
	}
	heap.vpns.End = end
	return nil
}

// RecycleDataPages frees all areas except the trap context.
func (ms *MemorySet) RecycleDataPages() {
	trapCx := Floor(TrapContextBase)
	var kept []*MapArea
	for _, area := range ms.areas {
		if area.vpns.Start == trapCx {
			kept = append(kept, area)
			continue
		}
		area.unmapAll(ms.pt)
	}
	ms.areas = kept
	ms.heap = nil
}

// Release frees all frames of the address space, including the page
// table.
func (ms *MemorySet) Release() {
	for _, area := range ms.areas {
		area.unmapAll(ms.pt)
	}
	ms.areas = nil
	ms.heap = nil
	ms.pt.Release()
}
