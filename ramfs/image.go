//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package ramfs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
)

var bo = binary.LittleEndian

// ImageMagic starts filesystem images.
const ImageMagic uint32 = 0x52564653

// ErrImage is returned for malformed filesystem images.
var ErrImage = errors.New("invalid filesystem image")

// Save writes the filesystem image to w. Hard links are preserved.
func (fsys *FS) Save(w io.Writer) error {
	fsys.m.Lock()
	names := make(map[*Inode][]string)
	var inodes []*Inode
	for name, inode := range fsys.root {
		if _, ok := names[inode]; !ok {
			inodes = append(inodes, inode)
		}
		names[inode] = append(names[inode], name)
	}
	fsys.m.Unlock()

	slices.SortFunc(inodes, func(a, b *Inode) int {
		return int(a.ino) - int(b.ino)
	})

	bw := bufio.NewWriter(w)
	var hdr [8]byte
	bo.PutUint32(hdr[0:], ImageMagic)
	bo.PutUint32(hdr[4:], uint32(len(inodes)))
	bw.Write(hdr[:])

	for _, inode := range inodes {
		n := names[inode]
		slices.Sort(n)
		bo.PutUint32(hdr[0:], uint32(len(n)))
		bw.Write(hdr[:4])
		for _, name := range n {
			bo.PutUint16(hdr[0:], uint16(len(name)))
			bw.Write(hdr[:2])
			bw.WriteString(name)
		}
		inode.m.Lock()
		bo.PutUint32(hdr[0:], uint32(len(inode.data)))
		bw.Write(hdr[:4])
		bw.Write(inode.data)
		inode.m.Unlock()
	}
	return bw.Flush()
}

// Load reads a filesystem image from r.
func Load(r io.Reader) (*FS, error) {
	br := bufio.NewReader(r)
	var hdr [8]byte

	_, err := io.ReadFull(br, hdr[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImage, err)
	}
	if magic := bo.Uint32(hdr[0:]); magic != ImageMagic {
		return nil, fmt.Errorf("%w: magic %08x", ErrImage, magic)
	}
	count := bo.Uint32(hdr[4:])

	fsys := New()
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(br, hdr[:4]); err != nil {
			return nil, fmt.Errorf("%w: inode %d: %v", ErrImage, i, err)
		}
		nnames := bo.Uint32(hdr[0:])
		inode := fsys.newInode()
		for j := uint32(0); j < nnames; j++ {
			if _, err := io.ReadFull(br, hdr[:2]); err != nil {
				return nil, fmt.Errorf("%w: inode %d: %v", ErrImage, i, err)
			}
			buf := make([]byte, bo.Uint16(hdr[0:]))
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, fmt.Errorf("%w: inode %d: %v", ErrImage, i, err)
			}
			name, err := cleanName("load", string(buf))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrImage, err)
			}
			if _, ok := fsys.root[name]; ok {
				return nil, fmt.Errorf("%w: duplicate name %s", ErrImage, name)
			}
			fsys.root[name] = inode
			inode.nlink++
		}
		if _, err := io.ReadFull(br, hdr[:4]); err != nil {
			return nil, fmt.Errorf("%w: inode %d: %v", ErrImage, i, err)
		}
		inode.data = make([]byte, bo.Uint32(hdr[0:]))
		if _, err := io.ReadFull(br, inode.data); err != nil {
			return nil, fmt.Errorf("%w: inode %d: %v", ErrImage, i, err)
		}
	}
	return fsys, nil
}
