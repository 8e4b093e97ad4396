//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"github.com/markkurossi/rvos/mm"
)

// FDDevNull implements null FDs.
type FDDevNull struct {
}

// NewDevNullFD creates a null FD.
func NewDevNullFD() *FD {
	return NewFD(&FDDevNull{})
}

// Readable implements File.Readable.
func (fd *FDDevNull) Readable() bool {
	return true
}

// Writable implements File.Writable.
func (fd *FDDevNull) Writable() bool {
	return true
}

// Close implements File.Close.
func (fd *FDDevNull) Close() error {
	return nil
}

// Read implements File.Read.
func (fd *FDDevNull) Read(buf *mm.UserBuffer) (int, error) {
	return 0, nil
}

// Write implements File.Write.
func (fd *FDDevNull) Write(buf *mm.UserBuffer) (int, error) {
	return buf.Len(), nil
}
