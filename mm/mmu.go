//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

// MMU implements user mode memory access through a page table. All
// accesses require the user bit and the permission of the access.
type MMU struct {
	mem *Memory
	pt  *PageTable
}

// MMU creates a memory management unit for the page table token.
func (mem *Memory) MMU(token uint64) *MMU {
	return &MMU{
		mem: mem,
		pt:  mem.FromToken(token),
	}
}

func (m *MMU) byteAt(va uint64, need PTEFlags) (*byte, bool) {
	// Sv39 addresses must have bits 63-39 equal to bit 38.
	if hi := int64(va) >> (vaWidth - 1); hi != 0 && hi != -1 {
		return nil, false
	}
	pte, ok := m.pt.Translate(Floor(VirtAddr(va)))
	need |= PTEUser
	if !ok || pte.Flags()&need != need {
		return nil, false
	}
	return &m.mem.Page(pte.PPN())[va&(PageSize-1)], true
}

// Fetch reads an instruction word from the executable address.
func (m *MMU) Fetch(va uint64) (uint32, bool) {
	var result uint32
	for i := 0; i < 4; i++ {
		b, ok := m.byteAt(va+uint64(i), PTEExec)
		if !ok {
			return 0, false
		}
		result |= uint32(*b) << (i * 8)
	}
	return result, true
}

// Load reads a size byte little-endian value from the readable
// address.
func (m *MMU) Load(va uint64, size int) (uint64, bool) {
	var result uint64
	for i := 0; i < size; i++ {
		b, ok := m.byteAt(va+uint64(i), PTERead)
		if !ok {
			return 0, false
		}
		result |= uint64(*b) << (i * 8)
	}
	return result, true
}

// Store writes a size byte little-endian value to the writable
// address. Nothing is written if any byte of the value is not
// writable.
func (m *MMU) Store(va uint64, size int, val uint64) bool {
	var ptrs [8]*byte
	for i := 0; i < size; i++ {
		b, ok := m.byteAt(va+uint64(i), PTEWrite)
		if !ok {
			return false
		}
		ptrs[i] = b
	}
	for i := 0; i < size; i++ {
		*ptrs[i] = byte(val >> (i * 8))
	}
	return true
}
