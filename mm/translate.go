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

func permits(pte PageTableEntry, access hostarch.AccessType) bool {
	if !pte.User() {
		return false
	}
	if access.Read && !pte.Readable() {
		return false
	}
	if access.Write && !pte.Writable() {
		return false
	}
	if access.Execute && !pte.Executable() {
		return false
	}
	return true
}

// TranslatedByteBuffer returns the kernel views of the user buffer
// [ptr, ptr+length) in the address space identified by the token,
// one slice per page. Every page must be mapped for the access.
func (mem *Memory) TranslatedByteBuffer(token uint64, ptr VirtAddr,
	length uint64, access hostarch.AccessType) ([][]byte, error) {

	if length == 0 {
		return nil, nil
	}
	end, ok := ptr.AddLength(length)
	if !ok || end > UserSpaceTop {
		return nil, fmt.Errorf("buffer %#x+%#x: %w", uint64(ptr), length,
			ErrInvalidAddress)
	}
	pt := mem.FromToken(token)

	var result [][]byte
	for start := ptr; start < end; {
		pte, ok := pt.Translate(Floor(start))
		if !ok || !permits(pte, access) {
			return nil, fmt.Errorf("buffer %#x %v: %w", uint64(start), access,
				ErrInvalidAddress)
		}
		next := start.RoundDown() + PageSize
		limit := min(next, end)
		page := mem.Page(pte.PPN())
		result = append(result,
			page[start.PageOffset():start.PageOffset()+uint64(limit-start)])
		start = next
	}
	return result, nil
}

// TranslatedStr reads the NUL-terminated string from user space.
func (mem *Memory) TranslatedStr(token uint64, ptr VirtAddr) (string, error) {
	pt := mem.FromToken(token)
	var result []byte
	for {
		if ptr >= UserSpaceTop {
			return "", fmt.Errorf("string %#x: %w", uint64(ptr),
				ErrInvalidAddress)
		}
		pte, ok := pt.Translate(Floor(ptr))
		if !ok || !permits(pte, hostarch.Read) {
			return "", fmt.Errorf("string %#x: %w", uint64(ptr),
				ErrInvalidAddress)
		}
		page := mem.Page(pte.PPN())
		for off := ptr.PageOffset(); off < PageSize; off++ {
			if page[off] == 0 {
				return string(result), nil
			}
			if len(result) >= MaxStrLen {
				return "", ErrNameTooLong
			}
			result = append(result, page[off])
		}
		ptr = ptr.RoundDown() + PageSize
	}
}

// TranslatedRef returns the kernel view of the size byte user value
// at ptr. The value must not cross a page boundary.
func (mem *Memory) TranslatedRef(token uint64, ptr VirtAddr, size uint64,
	access hostarch.AccessType) ([]byte, error) {

	if size == 0 || ptr.PageOffset()+size > PageSize {
		return nil, fmt.Errorf("value %#x+%d: %w", uint64(ptr), size,
			ErrCrossesPage)
	}
	bufs, err := mem.TranslatedByteBuffer(token, ptr, size, access)
	if err != nil {
		return nil, err
	}
	return bufs[0], nil
}

// CopyOut copies data to user space.
func (mem *Memory) CopyOut(token uint64, ptr VirtAddr, data []byte) error {
	bufs, err := mem.TranslatedByteBuffer(token, ptr, uint64(len(data)),
		hostarch.Write)
	if err != nil {
		return err
	}
	NewUserBuffer(bufs).CopyFrom(data)
	return nil
}

// CopyIn copies length bytes from user space.
func (mem *Memory) CopyIn(token uint64, ptr VirtAddr,
	length uint64) ([]byte, error) {

	bufs, err := mem.TranslatedByteBuffer(token, ptr, length, hostarch.Read)
	if err != nil {
		return nil, err
	}
	return NewUserBuffer(bufs).Bytes(), nil
}

// UserBuffer holds kernel views of a user buffer spanning pages.
type UserBuffer struct {
	Buffers [][]byte
}

// NewUserBuffer creates a user buffer from page slices.
func NewUserBuffer(bufs [][]byte) *UserBuffer {
	return &UserBuffer{
		Buffers: bufs,
	}
}

// Len returns the total length of the buffer.
func (ub *UserBuffer) Len() int {
	var n int
	for _, b := range ub.Buffers {
		n += len(b)
	}
	return n
}

// CopyFrom copies data into the buffer and returns the number of
// bytes copied.
func (ub *UserBuffer) CopyFrom(data []byte) int {
	var n int
	for _, b := range ub.Buffers {
		if len(data) == 0 {
			break
		}
		c := copy(b, data)
		data = data[c:]
		n += c
	}
	return n
}

// Bytes returns the buffer contents.
func (ub *UserBuffer) Bytes() []byte {
	result := make([]byte, 0, ub.Len())
	for _, b := range ub.Buffers {
		result = append(result, b...)
	}
	return result
}
