//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gvisor.dev/gvisor/pkg/hostarch"
)

func testSpace(t *testing.T) (*Memory, *MemorySet) {
	mem := NewMemory(2 << 20)
	ms, err := NewBare(mem)
	if err != nil {
		t.Fatal(err)
	}
	err = ms.InsertFramedArea(0x10000, 0x13000, PermR|PermW|PermU)
	if err != nil {
		t.Fatal(err)
	}
	err = ms.InsertFramedArea(0x13000, 0x14000, PermR|PermU)
	if err != nil {
		t.Fatal(err)
	}
	return mem, ms
}

func TestTranslatedByteBuffer(t *testing.T) {
	mem, ms := testSpace(t)
	token := ms.Token()

	data := bytes.Repeat([]byte("0123456789abcdef"), 512)
	err := mem.CopyOut(token, 0x10800, data[:PageSize*2])
	if err != nil {
		t.Fatal(err)
	}
	bufs, err := mem.TranslatedByteBuffer(token, 0x10800, PageSize*2,
		hostarch.Read)
	if err != nil {
		t.Fatal(err)
	}
	if len(bufs) != 3 {
		t.Errorf("got %d slices, expected 3", len(bufs))
	}
	ub := NewUserBuffer(bufs)
	if ub.Len() != PageSize*2 {
		t.Errorf("Len %d", ub.Len())
	}
	if !bytes.Equal(ub.Bytes(), data[:PageSize*2]) {
		t.Errorf("buffer contents mismatch")
	}

	_, err = mem.TranslatedByteBuffer(token, 0x12f00, 0x200, hostarch.Write)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("write to read-only page: %v", err)
	}
	_, err = mem.TranslatedByteBuffer(token, 0x13f00, 0x200, hostarch.Read)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("read of unmapped page: %v", err)
	}
	_, err = mem.TranslatedByteBuffer(token, Trampoline, 8, hostarch.Read)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("read of kernel page: %v", err)
	}
	bufs, err = mem.TranslatedByteBuffer(token, 0, 0, hostarch.Read)
	if err != nil || len(bufs) != 0 {
		t.Errorf("empty buffer: %v, %v", bufs, err)
	}
}

func TestTranslatedStr(t *testing.T) {
	mem, ms := testSpace(t)
	token := ms.Token()

	// String crossing a page boundary.
	err := mem.CopyOut(token, 0x10ffc, []byte("crossing\x00"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := mem.TranslatedStr(token, 0x10ffc)
	if err != nil || s != "crossing" {
		t.Errorf("TranslatedStr: %q, %v", s, err)
	}

	long := []byte(strings.Repeat("x", MaxStrLen+1))
	err = mem.CopyOut(token, 0x10000, long)
	if err != nil {
		t.Fatal(err)
	}
	_, err = mem.TranslatedStr(token, 0x10000)
	if !errors.Is(err, ErrNameTooLong) {
		t.Errorf("long string: %v", err)
	}

	// Unterminated string running into unmapped memory.
	_, err = mem.TranslatedStr(token, 0x14000)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("unmapped string: %v", err)
	}
}

func TestTranslatedRef(t *testing.T) {
	mem, ms := testSpace(t)
	token := ms.Token()

	ref, err := mem.TranslatedRef(token, 0x10ff8, 8, hostarch.Write)
	if err != nil {
		t.Fatal(err)
	}
	bo.PutUint64(ref, 0x1122334455667788)
	data, err := mem.CopyIn(token, 0x10ff8, 8)
	if err != nil || bo.Uint64(data) != 0x1122334455667788 {
		t.Errorf("CopyIn: %x, %v", data, err)
	}
	_, err = mem.TranslatedRef(token, 0x10ffc, 8, hostarch.Write)
	if !errors.Is(err, ErrCrossesPage) {
		t.Errorf("crossing value: %v", err)
	}
}

func TestMMU(t *testing.T) {
	mem, ms := testSpace(t)
	mmu := mem.MMU(ms.Token())

	if !mmu.Store(0x10ffe, 4, 0xdeadbeef) {
		t.Fatalf("Store failed")
	}
	v, ok := mmu.Load(0x10ffe, 4)
	if !ok || v != 0xdeadbeef {
		t.Errorf("Load: %#x, %v", v, ok)
	}
	if mmu.Store(0x13000, 1, 0) {
		t.Errorf("store to read-only page succeeded")
	}
	if _, ok := mmu.Fetch(0x10000); ok {
		t.Errorf("fetch from non-executable page succeeded")
	}
	if _, ok := mmu.Load(0xffff_0000_0001_0000, 1); ok {
		t.Errorf("non-canonical load succeeded")
	}
}
