//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

import (
	"errors"
)

// Memory management errors.
var (
	ErrOutOfMemory    = errors.New("out of physical memory")
	ErrAlreadyMapped  = errors.New("page already mapped")
	ErrInvalidUnmap   = errors.New("page not mapped")
	ErrInvalidAddress = errors.New("invalid user address")
	ErrCrossesPage    = errors.New("value crosses page boundary")
	ErrNameTooLong    = errors.New("string too long")
)
