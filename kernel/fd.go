//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"github.com/markkurossi/rvos/mm"
	"github.com/markkurossi/rvos/ramfs"
)

// File implements the open file behind file descriptors.
type File interface {
	Readable() bool
	Writable() bool
	Read(buf *mm.UserBuffer) (int, error)
	Write(buf *mm.UserBuffer) (int, error)
	Close() error
}

// Stater is implemented by files that have file status.
type Stater interface {
	Stat() ramfs.Stat
}

var (
	_ File   = &FDDevNull{}
	_ File   = &FDStdin{}
	_ File   = &FDStdout{}
	_ File   = &FDFile{}
	_ Stater = &FDFile{}
)

// FD implements a reference counted file descriptor. Forked tasks
// share their parent's FDs.
type FD struct {
	refcount int
	Impl     File
}

// NewFD creates a new FD for the file.
func NewFD(impl File) *FD {
	return &FD{
		refcount: 1,
		Impl:     impl,
	}
}

// Copy adds a reference to the FD.
func (fd *FD) Copy() *FD {
	fd.refcount++
	return fd
}

// Close drops a reference. The file is closed when the last reference
// is dropped.
func (fd *FD) Close() error {
	fd.refcount--
	if fd.refcount > 0 {
		return nil
	}
	if fd.refcount < 0 {
		return EBADF
	}
	return fd.Impl.Close()
}
