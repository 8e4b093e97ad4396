//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/markkurossi/rvos/image"
	"github.com/markkurossi/rvos/mm"
)

// Errno defines error numbers.
type Errno int32

// Error numbers.
const (
	EPERM        Errno = 1
	ENOENT       Errno = 2
	ESRCH        Errno = 3
	ENOEXEC      Errno = 8
	EBADF        Errno = 9
	ECHILD       Errno = 10
	ENOMEM       Errno = 12
	EFAULT       Errno = 14
	EEXIST       Errno = 17
	EINVAL       Errno = 22
	ERANGE       Errno = 34
	ENAMETOOLONG Errno = 36
	ENOSYS       Errno = 38
)

func (err Errno) Error() string {
	return err.String()
}

func (err Errno) String() string {
	name, ok := errnoNames[err]
	if ok {
		desc, ok := errnoDescriptions[err]
		if ok {
			return name + " " + desc
		}
		return name
	}
	return fmt.Sprintf("{Errno %d}", err)
}

// Description returns a short description about the error code.
func (err Errno) Description() string {
	desc, ok := errnoDescriptions[err]
	if ok {
		return desc
	}
	return fmt.Sprintf("{Errno %d}", err)
}

var errnoNames = map[Errno]string{
	EPERM:        "EPERM",
	ENOENT:       "ENOENT",
	ESRCH:        "ESRCH",
	ENOEXEC:      "ENOEXEC",
	EBADF:        "EBADF",
	ECHILD:       "ECHILD",
	ENOMEM:       "ENOMEM",
	EFAULT:       "EFAULT",
	EEXIST:       "EEXIST",
	EINVAL:       "EINVAL",
	ERANGE:       "ERANGE",
	ENAMETOOLONG: "ENAMETOOLONG",
	ENOSYS:       "ENOSYS",
}

var errnoDescriptions = map[Errno]string{
	EPERM:        "Operation not permitted",
	ENOENT:       "No such file or directory",
	ESRCH:        "No such process",
	ENOEXEC:      "Exec format error",
	EBADF:        "Bad file descriptor",
	ECHILD:       "No child processes",
	ENOMEM:       "Cannot allocate memory",
	EFAULT:       "Bad address",
	EEXIST:       "File exists",
	EINVAL:       "Invalid argument",
	ERANGE:       "Numerical result out of range",
	ENAMETOOLONG: "File name too long",
	ENOSYS:       "Function not implemented",
}

func mapError(err error) Errno {
	if err == nil {
		return 0
	}
	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ENOENT
	case errors.Is(err, fs.ErrExist):
		return EEXIST
	case errors.Is(err, fs.ErrClosed):
		return EBADF
	case errors.Is(err, mm.ErrInvalidAddress),
		errors.Is(err, mm.ErrCrossesPage):
		return EFAULT
	case errors.Is(err, mm.ErrNameTooLong):
		return ENAMETOOLONG
	case errors.Is(err, mm.ErrOutOfMemory):
		return ENOMEM
	case errors.Is(err, image.ErrFormat):
		return ENOEXEC
	default:
		return EINVAL
	}
}
