package detour

import "unsafe"

// sliceAddr returns the address of a byte slice's backing array, used to
// report the address of an allocated trampoline.
func sliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
