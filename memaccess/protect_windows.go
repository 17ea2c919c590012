//go:build windows

package memaccess

import (
	"syscall"
	"unsafe"

	"memengine/memcore"
)

var (
	modkernel32        = syscall.NewLazyDLL("kernel32.dll")
	procVirtualProtect = modkernel32.NewProc("VirtualProtect")
)

const (
	pageNoAccess         = 0x01
	pageReadonly         = 0x02
	pageReadwrite        = 0x04
	pageExecute          = 0x10
	pageExecuteRead      = 0x20
	pageExecuteReadwrite = 0x40
)

// protect re-applies page protection over [base, base+length) using
// VirtualProtect.
func protect(base memcore.Address, length memcore.Size, readable, writable, executable bool) error {
	newProtect := encodeProtect(readable, writable, executable)
	var oldProtect uint32
	ret, _, err := procVirtualProtect.Call(
		uintptr(base),
		uintptr(length),
		uintptr(newProtect),
		uintptr(unsafe.Pointer(&oldProtect)),
	)
	if ret == 0 {
		return err
	}
	return nil
}

func encodeProtect(readable, writable, executable bool) uint32 {
	switch {
	case executable && writable:
		return pageExecuteReadwrite
	case executable && readable:
		return pageExecuteRead
	case executable:
		return pageExecute
	case writable:
		return pageReadwrite
	case readable:
		return pageReadonly
	default:
		return pageNoAccess
	}
}
