//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"encoding/binary"
	"fmt"
)

var bo = binary.LittleEndian

// PTEFlags define page table entry flags.
type PTEFlags uint8

// Page table entry flags.
const (
	PTEValid PTEFlags = 1 << iota
	PTERead
	PTEWrite
	PTEExec
	PTEUser
	PTEGlobal
	PTEAccessed
	PTEDirty
)

func (f PTEFlags) String() string {
	const names = "VRWXUGAD"
	var result [8]byte
	for i := 0; i < 8; i++ {
		if f&(1<<i) != 0 {
			result[i] = names[i]
		} else {
			result[i] = '-'
		}
	}
	return string(result[:])
}

// PageTableEntry implements Sv39 page table entries.
type PageTableEntry uint64

// NewPTE creates a page table entry.
func NewPTE(ppn PhysPageNum, flags PTEFlags) PageTableEntry {
	return PageTableEntry(uint64(ppn)<<10 | uint64(flags))
}

// PPN returns the physical page number of the entry.
func (pte PageTableEntry) PPN() PhysPageNum {
	return PhysPageNum((uint64(pte) >> 10) & (1<<ppnWidth - 1))
}

// Flags returns the entry flags.
func (pte PageTableEntry) Flags() PTEFlags {
	return PTEFlags(pte)
}

// IsValid tests if the entry is valid.
func (pte PageTableEntry) IsValid() bool {
	return pte.Flags()&PTEValid != 0
}

// Readable tests if the entry grants read access.
func (pte PageTableEntry) Readable() bool {
	return pte.Flags()&PTERead != 0
}

// Writable tests if the entry grants write access.
func (pte PageTableEntry) Writable() bool {
	return pte.Flags()&PTEWrite != 0
}

// Executable tests if the entry grants execute access.
func (pte PageTableEntry) Executable() bool {
	return pte.Flags()&PTEExec != 0
}

// User tests if the entry is accessible from user mode.
func (pte PageTableEntry) User() bool {
	return pte.Flags()&PTEUser != 0
}

func (pte PageTableEntry) String() string {
	return fmt.Sprintf("%v %v", pte.PPN(), pte.Flags())
}

type pteRef struct {
	ppn PhysPageNum
	idx int
}

// PageTable implements Sv39 three-level page tables.
type PageTable struct {
	mem    *Memory
	root   PhysPageNum
	frames []PhysPageNum
}

// NewPageTable creates an empty page table.
func NewPageTable(mem *Memory) (*PageTable, error) {
	root, err := mem.Alloc()
	if err != nil {
		return nil, err
	}
	return &PageTable{
		mem:    mem,
		root:   root,
		frames: []PhysPageNum{root},
	}, nil
}

// FromToken creates a temporary view of the page table identified by
// the token. The view does not own any frames.
func (mem *Memory) FromToken(token uint64) *PageTable {
	return &PageTable{
		mem:  mem,
		root: PhysPageNum(token & (1<<ppnWidth - 1)),
	}
}

// Token returns the satp value selecting the page table.
func (pt *PageTable) Token() uint64 {
	return 8<<60 | uint64(pt.root)
}

func (pt *PageTable) get(ref pteRef) PageTableEntry {
	return PageTableEntry(bo.Uint64(pt.mem.Page(ref.ppn)[ref.idx*8:]))
}

func (pt *PageTable) set(ref pteRef, pte PageTableEntry) {
	bo.PutUint64(pt.mem.Page(ref.ppn)[ref.idx*8:], uint64(pte))
}

func (pt *PageTable) findPTECreate(vpn VirtPageNum) (pteRef, error) {
	idxs := vpn.Indexes()
	ppn := pt.root
	for level, idx := range idxs {
		ref := pteRef{ppn: ppn, idx: idx}
		if level == 2 {
			return ref, nil
		}
		pte := pt.get(ref)
		if !pte.IsValid() {
			frame, err := pt.mem.Alloc()
			if err != nil {
				return ref, err
			}
			pt.frames = append(pt.frames, frame)
			pte = NewPTE(frame, PTEValid)
			pt.set(ref, pte)
		}
		ppn = pte.PPN()
	}
	panic("unreachable")
}

func (pt *PageTable) findPTE(vpn VirtPageNum) (pteRef, bool) {
	idxs := vpn.Indexes()
	ppn := pt.root
	for level, idx := range idxs {
		ref := pteRef{ppn: ppn, idx: idx}
		if level == 2 {
			return ref, true
		}
		pte := pt.get(ref)
		if !pte.IsValid() {
			return ref, false
		}
		ppn = pte.PPN()
	}
	panic("unreachable")
}

// Map maps the virtual page to the physical page.
func (pt *PageTable) Map(vpn VirtPageNum, ppn PhysPageNum,
	flags PTEFlags) error {

	ref, err := pt.findPTECreate(vpn)
	if err != nil {
		return err
	}
	if pt.get(ref).IsValid() {
		return fmt.Errorf("map %v: %w", vpn, ErrAlreadyMapped)
	}
	pt.set(ref, NewPTE(ppn, flags|PTEValid))
	return nil
}

// Unmap removes the mapping of the virtual page.
func (pt *PageTable) Unmap(vpn VirtPageNum) error {
	ref, ok := pt.findPTE(vpn)
	if !ok || !pt.get(ref).IsValid() {
		return fmt.Errorf("unmap %v: %w", vpn, ErrInvalidUnmap)
	}
	pt.set(ref, 0)
	return nil
}

// Translate returns the valid page table entry of the virtual page.
func (pt *PageTable) Translate(vpn VirtPageNum) (PageTableEntry, bool) {
	ref, ok := pt.findPTE(vpn)
	if !ok {
		return 0, false
	}
	pte := pt.get(ref)
	if !pte.IsValid() {
		return 0, false
	}
	return pte, true
}

// Release frees the page table frames.
func (pt *PageTable) Release() {
	for _, frame := range pt.frames {
		pt.mem.Dealloc(frame)
	}
	pt.frames = nil
}
