//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package image

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"testing"
)

func TestBuildParse(t *testing.T) {
	img := &Image{
		Entry: 0x10000,
		Segments: []*Segment{
			{
				Vaddr: 0x10000,
				Memsz: 8,
				Data:  []byte{0x13, 0x05, 0x10, 0x00, 0x73, 0x00, 0x00, 0x00},
				Flags: elf.PF_R | elf.PF_X,
			},
			{
				Vaddr: 0x11000,
				Memsz: 0x2000,
				Data:  []byte("hello\x00"),
				Flags: elf.PF_R | elf.PF_W,
			},
		},
	}
	parsed, err := Parse(img.Build())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Entry != img.Entry {
		t.Errorf("entry: got %#x, expected %#x", parsed.Entry, img.Entry)
	}
	if len(parsed.Segments) != len(img.Segments) {
		t.Fatalf("got %d segments, expected %d",
			len(parsed.Segments), len(img.Segments))
	}
	for idx, seg := range img.Segments {
		p := parsed.Segments[idx]
		if p.Vaddr != seg.Vaddr || p.Memsz != seg.Memsz ||
			p.Flags != seg.Flags || !bytes.Equal(p.Data, seg.Data) {
			t.Errorf("segment-%v: got %v, expected %v", idx, p, seg)
		}
	}
}

var parseErrorTests = []struct {
	name string
	data []byte
}{
	{
		name: "empty",
	},
	{
		name: "garbage",
		data: []byte("#!/bin/sh\necho hello\n"),
	},
	{
		name: "no segments",
		data: (&Image{Entry: 0x1000}).Build(),
	},
}

func TestParseErrors(t *testing.T) {
	for _, test := range parseErrorTests {
		_, err := Parse(test.data)
		if !errors.Is(err, ErrFormat) {
			t.Errorf("%v: expected ErrFormat, got %v", test.name, err)
		}
	}
}

func TestParseMachine(t *testing.T) {
	data := (&Image{
		Entry: 0x1000,
		Segments: []*Segment{
			{
				Vaddr: 0x1000,
				Memsz: 4,
				Data:  []byte{0, 0, 0, 0},
				Flags: elf.PF_R | elf.PF_X,
			},
		},
	}).Build()

	// e_machine is at offset 18.
	data[18] = byte(elf.EM_X86_64)
	_, err := Parse(data)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat for x86-64 image, got %v", err)
	}
}

func testImage() []byte {
	return (&Image{
		Entry: 0x10000,
		Segments: []*Segment{
			{
				Vaddr: 0x10000,
				Memsz: 0x80,
				Data:  make([]byte, 0x80),
				Flags: elf.PF_R | elf.PF_X,
			},
		},
	}).Build()
}

// Offsets of the first program header fields.
const (
	phOff    = 64 + 8
	phVaddr  = 64 + 16
	phFilesz = 64 + 32
	phMemsz  = 64 + 40
)

var segmentBoundsTests = []struct {
	patch map[int]uint64
}{
	{
		patch: map[int]uint64{
			phFilesz: 1 << 40,
			phMemsz:  1 << 40,
		},
	},
	{
		patch: map[int]uint64{
			phFilesz: 0x81,
			phMemsz:  0x100,
		},
	},
	{
		patch: map[int]uint64{
			phOff: ^uint64(0) - 0x10,
		},
	},
	{
		patch: map[int]uint64{
			phMemsz: 1 << 40,
		},
	},
	{
		patch: map[int]uint64{
			phVaddr: ^uint64(0) - 0x10,
		},
	},
	{
		patch: map[int]uint64{
			phVaddr: MaxAddr - 0x40,
		},
	},
}

func TestParseSegmentBounds(t *testing.T) {
	_, err := Parse(testImage())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for idx, test := range segmentBoundsTests {
		data := testImage()
		for off, val := range test.patch {
			binary.LittleEndian.PutUint64(data[off:], val)
		}
		_, err := Parse(data)
		if !errors.Is(err, ErrFormat) {
			t.Errorf("test-%v: expected ErrFormat, got %v", idx, err)
		}
	}
}
