//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/markkurossi/rvos/image"
	"github.com/markkurossi/rvos/mm"
)

var mapErrorTests = []struct {
	err   error
	errno Errno
}{
	{
		err:   nil,
		errno: 0,
	},
	{
		err:   EBADF,
		errno: EBADF,
	},
	{
		err:   fmt.Errorf("waitpid: %w", ECHILD),
		errno: ECHILD,
	},
	{
		err: &fs.PathError{
			Op:   "open",
			Path: "missing",
			Err:  fs.ErrNotExist,
		},
		errno: ENOENT,
	},
	{
		err: &fs.PathError{
			Op:   "close",
			Path: "inode 3",
			Err:  fs.ErrClosed,
		},
		errno: EBADF,
	},
	{
		err:   fmt.Errorf("buffer: %w", mm.ErrInvalidAddress),
		errno: EFAULT,
	},
	{
		err:   mm.ErrNameTooLong,
		errno: ENAMETOOLONG,
	},
	{
		err:   mm.ErrOutOfMemory,
		errno: ENOMEM,
	},
	{
		err:   fmt.Errorf("%w: no loadable segments", image.ErrFormat),
		errno: ENOEXEC,
	},
	{
		err:   mm.ErrAlreadyMapped,
		errno: EINVAL,
	},
}

func TestMapError(t *testing.T) {
	for i, test := range mapErrorTests {
		mapped := mapError(test.err)
		if mapped != test.errno {
			t.Errorf("test-%v: mapError(%v)=%v, expected %v\n",
				i, test.err, mapped, test.errno)
		}
	}
}

func TestErrnoString(t *testing.T) {
	if s := ENOSYS.String(); s != "ENOSYS Function not implemented" {
		t.Errorf("ENOSYS.String()=%q", s)
	}
	if s := Errno(999).String(); s != "{Errno 999}" {
		t.Errorf("Errno(999).String()=%q", s)
	}
}
