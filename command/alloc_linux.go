//go:build linux

package command

import (
	"fmt"

	"golang.org/x/sys/unix"

	"memengine/memcore"
)

// allocRegion reserves an anonymous read-write region, the general-purpose
// counterpart of detour's executable allocator, backing memory.allocate.
func allocRegion(size memcore.Size) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("allocate region: %w", err)
	}
	return b, nil
}

func freeRegion(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munmap(b)
}
