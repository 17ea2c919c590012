//go:build windows

package detour

import (
	"fmt"
	"syscall"
	"unsafe"
)

var (
	modkernel32     = syscall.NewLazyDLL("kernel32.dll")
	procVirtualAlloc = modkernel32.NewProc("VirtualAlloc")
	procVirtualFree  = modkernel32.NewProc("VirtualFree")
)

const (
	memCommit            = 0x1000
	memReserve           = 0x2000
	memRelease           = 0x8000
	pageExecuteReadwrite = 0x40
)

// allocExecutable reserves an executable region, mirroring
// DetoursLite::CreateTrampoline's VirtualAlloc call.
func allocExecutable(size int) ([]byte, error) {
	addr, _, err := procVirtualAlloc.Call(
		0,
		uintptr(size),
		uintptr(memCommit|memReserve),
		uintptr(pageExecuteReadwrite),
	)
	if addr == 0 {
		return nil, fmt.Errorf("VirtualAlloc executable region: %w", err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// freeExecutable releases a region obtained from allocExecutable.
func freeExecutable(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	ret, _, err := procVirtualFree.Call(addr, 0, uintptr(memRelease))
	if ret == 0 {
		return err
	}
	return nil
}
