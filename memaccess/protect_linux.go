//go:build linux

package memaccess

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"memengine/memcore"
)

// protect re-applies page protection over [base, base+length) using
// mprotect, the same toggle primitive used by self-modifying-code patchers.
func protect(base memcore.Address, length memcore.Size, readable, writable, executable bool) error {
	page := pageAlign(uintptr(base))
	end := uintptr(base) + uintptr(length)
	span := end - page

	var prot int
	if readable {
		prot |= unix.PROT_READ
	}
	if writable {
		prot |= unix.PROT_WRITE
	}
	if executable {
		prot |= unix.PROT_EXEC
	}

	b := unsafe.Slice((*byte)(unsafe.Pointer(page)), int(span))
	return unix.Mprotect(b, prot)
}

func pageAlign(p uintptr) uintptr {
	pageSize := uintptr(unix.Getpagesize())
	return p &^ (pageSize - 1)
}
