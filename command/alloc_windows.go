//go:build windows

package command

import (
	"fmt"
	"syscall"
	"unsafe"

	"memengine/memcore"
)

var (
	modkernel32Alloc = syscall.NewLazyDLL("kernel32.dll")
	procVirtualAllocCmd = modkernel32Alloc.NewProc("VirtualAlloc")
	procVirtualFreeCmd  = modkernel32Alloc.NewProc("VirtualFree")
)

const (
	memCommitCmd  = 0x1000
	memReserveCmd = 0x2000
	memReleaseCmd = 0x8000
	pageReadwriteCmd = 0x04
)

func allocRegion(size memcore.Size) ([]byte, error) {
	addr, _, err := procVirtualAllocCmd.Call(0, uintptr(size), uintptr(memCommitCmd|memReserveCmd), uintptr(pageReadwriteCmd))
	if addr == 0 {
		return nil, fmt.Errorf("allocate region: %w", err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size)), nil
}

func freeRegion(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	ret, _, err := procVirtualFreeCmd.Call(uintptr(unsafe.Pointer(&b[0])), 0, uintptr(memReleaseCmd))
	if ret == 0 {
		return err
	}
	return nil
}
