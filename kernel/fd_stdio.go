//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"errors"
	"io"

	"github.com/markkurossi/rvos/mm"
)

// errRestart requests the syscall to be restarted after the task has
// yielded.
var errRestart = errors.New("restart syscall")

// FDStdin implements console input.
type FDStdin struct {
	console Console
}

// Readable implements File.Readable.
func (fd *FDStdin) Readable() bool {
	return true
}

// Writable implements File.Writable.
func (fd *FDStdin) Writable() bool {
	return false
}

// Close implements File.Close.
func (fd *FDStdin) Close() error {
	return nil
}

// Read reads one character from the console. If no input is
// available, the read is restarted after other tasks have run.
func (fd *FDStdin) Read(buf *mm.UserBuffer) (int, error) {
	if buf.Len() == 0 {
		return 0, nil
	}
	ch, err := fd.console.Getchar()
	if err != nil {
		if errors.Is(err, ErrNoInput) {
			return 0, errRestart
		}
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}
	buf.CopyFrom([]byte{ch})
	return 1, nil
}

// Write implements File.Write.
func (fd *FDStdin) Write(buf *mm.UserBuffer) (int, error) {
	return 0, EBADF
}

// FDStdout implements console output.
type FDStdout struct {
	console Console
}

// Readable implements File.Readable.
func (fd *FDStdout) Readable() bool {
	return false
}

// Writable implements File.Writable.
func (fd *FDStdout) Writable() bool {
	return true
}

// Close implements File.Close.
func (fd *FDStdout) Close() error {
	return nil
}

// Read implements File.Read.
func (fd *FDStdout) Read(buf *mm.UserBuffer) (int, error) {
	return 0, EBADF
}

// Write writes the buffer to the console.
func (fd *FDStdout) Write(buf *mm.UserBuffer) (int, error) {
	var n int
	for _, b := range buf.Buffers {
		l, err := fd.console.Write(b)
		n += l
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
