//go:build linux

package introspect

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"memengine/memcore"
)

// LinuxSource reads /proc/self/maps to enumerate the current process's
// own regions, the in-process analogue of gomem's process_linux memory map
// reader pointed at the running program's own address space.
type LinuxSource struct{}

// NewSource returns the platform region source.
func NewSource() Source {
	return LinuxSource{}
}

func (LinuxSource) Regions() ([]memcore.Region, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var regions []memcore.Region
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}
		start, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil {
			continue
		}

		perms := fields[1]
		name := ""
		if len(fields) >= 6 {
			name = fields[5]
		}

		regions = append(regions, memcore.Region{
			Base:   memcore.Address(start),
			Length: memcore.Size(end - start),
			Protection: memcore.Protection{
				Readable:    len(perms) > 0 && perms[0] == 'r',
				Writable:    len(perms) > 1 && perms[1] == 'w',
				Executable:  len(perms) > 2 && perms[2] == 'x',
				CopyOnWrite: len(perms) > 3 && perms[3] == 'p',
			},
			Module: name,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sortRegions(regions)
	return regions, nil
}
