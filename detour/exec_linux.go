//go:build linux

package detour

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allocExecutable reserves an anonymous, executable page-backed region of
// at least size bytes, the in-process stand-in for VirtualAlloc(..., MEM_COMMIT
// |MEM_RESERVE, PAGE_EXECUTE_READWRITE) in DetoursLite::CreateTrampoline.
func allocExecutable(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap executable region: %w", err)
	}
	return b, nil
}

// freeExecutable releases a region obtained from allocExecutable.
func freeExecutable(b []byte) error {
	if b == nil {
		return nil
	}
	return unix.Munmap(b)
}
