//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"errors"
	"io"

	"github.com/markkurossi/rvos/mm"
	"github.com/markkurossi/rvos/ramfs"
)

// FDFile implements file FDs.
type FDFile struct {
	readable bool
	writable bool
	offset   int64
	inode    *ramfs.Inode
}

// NewFileFD creates a new file FD. The FD holds an open reference to
// the inode until it is closed.
func NewFileFD(inode *ramfs.Inode, flags ramfs.OpenFlag) *FD {
	readable, writable := flags.Access()
	inode.Acquire()
	return NewFD(&FDFile{
		readable: readable,
		writable: writable,
		inode:    inode,
	})
}

// Readable implements File.Readable.
func (fd *FDFile) Readable() bool {
	return fd.readable
}

// Writable implements File.Writable.
func (fd *FDFile) Writable() bool {
	return fd.writable
}

// Close implements File.Close.
func (fd *FDFile) Close() error {
	return fd.inode.Release()
}

// Read implements File.Read.
func (fd *FDFile) Read(buf *mm.UserBuffer) (int, error) {
	var total int
	for _, b := range buf.Buffers {
		n, err := fd.inode.ReadAt(b, fd.offset)
		fd.offset += int64(n)
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return total, err
		}
	}
	return total, nil
}

// Write implements File.Write.
func (fd *FDFile) Write(buf *mm.UserBuffer) (int, error) {
	var total int
	for _, b := range buf.Buffers {
		n, err := fd.inode.WriteAt(b, fd.offset)
		fd.offset += int64(n)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Stat implements Stater.Stat.
func (fd *FDFile) Stat() ramfs.Stat {
	return fd.inode.Stat()
}
