//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package mm

// Memory layout parameters.
const (
	PageSize     = 4096
	PageSizeBits = 12

	// PhysBase is the physical address of the first RAM frame.
	PhysBase PhysAddr = 0x80000000

	// KernelImageSize is the amount of RAM reserved for the kernel
	// image. It is identity mapped into the kernel space and never
	// handed out by the frame allocator.
	KernelImageSize = 1 << 20

	// DefaultMemorySize is the default amount of physical RAM.
	DefaultMemorySize = 8 << 20

	UserStackSize   = PageSize * 2
	KernelStackSize = PageSize * 2

	// Trampoline is the highest virtual page, shared by all address
	// spaces.
	Trampoline VirtAddr = ^VirtAddr(0) - PageSize + 1

	// TrapContextBase is the page below the trampoline holding the
	// task's trap context.
	TrapContextBase VirtAddr = Trampoline - PageSize

	// UserSpaceTop bounds the addresses user programs may map with
	// mmap and sbrk.
	UserSpaceTop VirtAddr = 1 << (vaWidth - 1)

	// MaxStrLen bounds strings read from user space.
	MaxStrLen = PageSize
)

const (
	vaWidth  = 39
	paWidth  = 56
	ppnWidth = paWidth - PageSizeBits
	vpnWidth = vaWidth - PageSizeBits
)
