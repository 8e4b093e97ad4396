//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package image implements loading and building of RISC-V ELF64
// executable images.
package image

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var bo = binary.LittleEndian

// ErrFormat is returned for malformed or unsupported images.
var ErrFormat = errors.New("invalid executable image")

// MaxAddr bounds the segment addresses: the lower half of the Sv39
// address space.
const MaxAddr = 1 << 38

// Segment defines a loadable program segment.
type Segment struct {
	Vaddr uint64
	Memsz uint64
	Data  []byte
	Flags elf.ProgFlag
}

func (seg *Segment) String() string {
	var perm [3]byte
	for i, f := range []elf.ProgFlag{elf.PF_R, elf.PF_W, elf.PF_X} {
		if seg.Flags&f != 0 {
			perm[i] = "rwx"[i]
		} else {
			perm[i] = '-'
		}
	}
	return fmt.Sprintf("%#08x %#06x %#06x %s",
		seg.Vaddr, len(seg.Data), seg.Memsz, perm[:])
}

// Image defines an executable image.
type Image struct {
	Entry    uint64
	Segments []*Segment
}

// Parse parses the ELF64 RISC-V executable.
func Parse(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("%w: class %v", ErrFormat, f.Class)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: machine %v", ErrFormat, f.Machine)
	}
	img := &Image{
		Entry: f.Entry,
	}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return nil, fmt.Errorf("%w: segment %#x: filesz %d > memsz %d",
				ErrFormat, prog.Vaddr, prog.Filesz, prog.Memsz)
		}
		end := prog.Off + prog.Filesz
		if end < prog.Off || end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: segment %#x: filesz %d beyond file",
				ErrFormat, prog.Vaddr, prog.Filesz)
		}
		vend := prog.Vaddr + prog.Memsz
		if vend < prog.Vaddr || vend > MaxAddr {
			return nil, fmt.Errorf("%w: segment %#x: memsz %#x too large",
				ErrFormat, prog.Vaddr, prog.Memsz)
		}
		seg := &Segment{
			Vaddr: prog.Vaddr,
			Memsz: prog.Memsz,
			Data:  make([]byte, prog.Filesz),
			Flags: prog.Flags,
		}
		_, err = io.ReadFull(prog.Open(), seg.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %#x: %v", ErrFormat,
				prog.Vaddr, err)
		}
		img.Segments = append(img.Segments, seg)
	}
	if len(img.Segments) == 0 {
		return nil, fmt.Errorf("%w: no loadable segments", ErrFormat)
	}
	return img, nil
}

// Build creates an ELF64 executable from the image.
func (img *Image) Build() []byte {
	const ehsize = 64
	const phentsize = 56

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     img.Entry,
		Phoff:     ehsize,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(len(img.Segments)),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr.Ident[elf.EI_OSABI] = byte(elf.ELFOSABI_NONE)

	offset := uint64(ehsize + phentsize*len(img.Segments))

	var buf bytes.Buffer
	binary.Write(&buf, bo, &hdr)
	for _, seg := range img.Segments {
		binary.Write(&buf, bo, &elf.Prog64{
			Type:   uint32(elf.PT_LOAD),
			Flags:  uint32(seg.Flags),
			Off:    offset,
			Vaddr:  seg.Vaddr,
			Paddr:  seg.Vaddr,
			Filesz: uint64(len(seg.Data)),
			Memsz:  max(seg.Memsz, uint64(len(seg.Data))),
			Align:  4096,
		})
		offset += uint64(len(seg.Data))
	}
	for _, seg := range img.Segments {
		buf.Write(seg.Data)
	}
	return buf.Bytes()
}
