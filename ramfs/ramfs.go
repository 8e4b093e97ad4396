//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package ramfs implements an in-memory filesystem with a single flat
// root directory.
package ramfs

import (
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"
	"sync"
)

// OpenFlag defines the flags for opening files.
type OpenFlag uint32

// Flags for opening files.
const (
	ReadOnly  OpenFlag = 0x00000000
	WriteOnly OpenFlag = 0x00000001
	ReadWrite OpenFlag = 0x00000002
	Create    OpenFlag = 0x00000200
	Truncate  OpenFlag = 0x00000400
)

var oflags = map[OpenFlag]string{
	WriteOnly: "O_WRONLY",
	ReadWrite: "O_RDWR",
	Create:    "O_CREAT",
	Truncate:  "O_TRUNC",
}

func (f OpenFlag) String() string {
	if f == 0 {
		return "O_RDONLY"
	}
	var result string
	for i := 0; i < 32; i++ {
		flag := OpenFlag(1 << i)
		if f&flag != 0 {
			if len(result) > 0 {
				result += "|"
			}
			name, ok := oflags[flag]
			if !ok {
				name = "?"
			}
			result += name
		}
	}
	return result
}

// Access returns the read and write permissions the flags request.
func (f OpenFlag) Access() (readable, writable bool) {
	switch {
	case f&WriteOnly != 0:
		return false, true
	case f&ReadWrite != 0:
		return true, true
	default:
		return true, false
	}
}

// Mode defines file types.
type Mode uint32

// File types.
const (
	ModeDir  Mode = 0o040000
	ModeFile Mode = 0o100000
)

// Stat defines file status.
type Stat struct {
	Ino   uint64
	Mode  Mode
	Nlink uint32
	Size  uint64
}

// Inode implements a file. The inode is reclaimed when it has
// neither names nor open references.
type Inode struct {
	m     sync.Mutex
	ino   uint64
	nlink uint32
	opens int
	data  []byte
}

// Ino returns the inode number.
func (inode *Inode) Ino() uint64 {
	return inode.ino
}

// Size returns the file size.
func (inode *Inode) Size() uint64 {
	inode.m.Lock()
	defer inode.m.Unlock()
	return uint64(len(inode.data))
}

// Stat returns the file status.
func (inode *Inode) Stat() Stat {
	inode.m.Lock()
	defer inode.m.Unlock()
	return Stat{
		Ino:   inode.ino,
		Mode:  ModeFile,
		Nlink: inode.nlink,
		Size:  uint64(len(inode.data)),
	}
}

// ReadAt implements io.ReaderAt.
func (inode *Inode) ReadAt(p []byte, off int64) (int, error) {
	inode.m.Lock()
	defer inode.m.Unlock()
	if off < 0 {
		return 0, fs.ErrInvalid
	}
	if off >= int64(len(inode.data)) {
		return 0, io.EOF
	}
	n := copy(p, inode.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writing past the end of the file
// extends it.
func (inode *Inode) WriteAt(p []byte, off int64) (int, error) {
	inode.m.Lock()
	defer inode.m.Unlock()
	if off < 0 {
		return 0, fs.ErrInvalid
	}
	end := int(off) + len(p)
	if end > len(inode.data) {
		inode.data = slices.Grow(inode.data, end-len(inode.data))
		inode.data = inode.data[:end]
	}
	return copy(inode.data[off:], p), nil
}

// Acquire adds an open reference to the inode.
func (inode *Inode) Acquire() {
	inode.m.Lock()
	inode.opens++
	inode.m.Unlock()
}

// Release drops an open reference. It returns fs.ErrClosed if the
// inode has no open references.
func (inode *Inode) Release() error {
	inode.m.Lock()
	defer inode.m.Unlock()
	if inode.opens <= 0 {
		return &fs.PathError{
			Op:   "close",
			Path: fmt.Sprintf("inode %d", inode.ino),
			Err:  fs.ErrClosed,
		}
	}
	inode.opens--
	inode.reclaim()
	return nil
}

func (inode *Inode) reclaim() {
	if inode.nlink == 0 && inode.opens == 0 {
		inode.data = nil
	}
}

// Clear truncates the file to zero length.
func (inode *Inode) Clear() {
	inode.m.Lock()
	inode.data = nil
	inode.m.Unlock()
}

// FS implements the filesystem.
type FS struct {
	m       sync.Mutex
	nextIno uint64
	root    map[string]*Inode
}

// New creates an empty filesystem.
func New() *FS {
	return &FS{
		nextIno: 1,
		root:    make(map[string]*Inode),
	}
}

func cleanName(op, name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if len(name) == 0 || strings.IndexByte(name, '/') >= 0 ||
		name == "." || name == ".." {
		return "", &fs.PathError{
			Op:   op,
			Path: name,
			Err:  fs.ErrInvalid,
		}
	}
	return name, nil
}

func (fsys *FS) newInode() *Inode {
	inode := &Inode{
		ino: fsys.nextIno,
	}
	fsys.nextIno++
	return inode
}

// Open opens the named file. With Create, a missing file is created
// and an existing file cleared. With Truncate, an existing file is
// cleared.
func (fsys *FS) Open(name string, flags OpenFlag) (*Inode, error) {
	name, err := cleanName("open", name)
	if err != nil {
		return nil, err
	}
	fsys.m.Lock()
	defer fsys.m.Unlock()

	inode, ok := fsys.root[name]
	if ok {
		if flags&(Create|Truncate) != 0 {
			inode.Clear()
		}
		return inode, nil
	}
	if flags&Create == 0 {
		return nil, &fs.PathError{
			Op:   "open",
			Path: name,
			Err:  fs.ErrNotExist,
		}
	}
	inode = fsys.newInode()
	inode.nlink = 1
	fsys.root[name] = inode
	return inode, nil
}

// Link creates the name newName for the file oldName.
func (fsys *FS) Link(oldName, newName string) error {
	oldName, err := cleanName("link", oldName)
	if err != nil {
		return err
	}
	newName, err = cleanName("link", newName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return &fs.PathError{
			Op:   "link",
			Path: newName,
			Err:  fs.ErrInvalid,
		}
	}
	fsys.m.Lock()
	defer fsys.m.Unlock()

	inode, ok := fsys.root[oldName]
	if !ok {
		return &fs.PathError{
			Op:   "link",
			Path: oldName,
			Err:  fs.ErrNotExist,
		}
	}
	if _, ok := fsys.root[newName]; ok {
		return &fs.PathError{
			Op:   "link",
			Path: newName,
			Err:  fs.ErrExist,
		}
	}
	inode.m.Lock()
	inode.nlink++
	inode.m.Unlock()
	fsys.root[newName] = inode
	return nil
}

// Unlink removes the name. The file is removed when its last name is
// unlinked and it has no open references.
func (fsys *FS) Unlink(name string) error {
	name, err := cleanName("unlink", name)
	if err != nil {
		return err
	}
	fsys.m.Lock()
	defer fsys.m.Unlock()

	inode, ok := fsys.root[name]
	if !ok {
		return &fs.PathError{
			Op:   "unlink",
			Path: name,
			Err:  fs.ErrNotExist,
		}
	}
	delete(fsys.root, name)

	inode.m.Lock()
	inode.nlink--
	inode.reclaim()
	inode.m.Unlock()
	return nil
}

// List returns the file names in sorted order.
func (fsys *FS) List() []string {
	fsys.m.Lock()
	defer fsys.m.Unlock()

	var names []string
	for name := range fsys.root {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ReadFile returns the contents of the named file.
func (fsys *FS) ReadFile(name string) ([]byte, error) {
	inode, err := fsys.Open(name, ReadOnly)
	if err != nil {
		return nil, err
	}
	inode.m.Lock()
	defer inode.m.Unlock()
	return slices.Clone(inode.data), nil
}

// WriteFile creates or replaces the named file with data.
func (fsys *FS) WriteFile(name string, data []byte) error {
	inode, err := fsys.Open(name, Create|WriteOnly)
	if err != nil {
		return err
	}
	_, err = inode.WriteAt(data, 0)
	return err
}
