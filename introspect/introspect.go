// Package introspect enumerates the host process's own virtual memory
// regions and loaded modules. It never reaches outside the current
// process: there is no PID, no handle, nothing to open or close.
package introspect

import (
	"sort"

	"memengine/memcore"
)

// Source produces a fresh region snapshot for the current process.
// Each platform ships exactly one implementation, selected by build tag.
type Source interface {
	Regions() ([]memcore.Region, error)
}

// sortRegions sorts regions ascending by base address, the
// precondition IsValidAddress2-style binary search requires.
func sortRegions(regions []memcore.Region) {
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Base < regions[j].Base
	})
}

// Lookup binary-searches a sorted region slice for the region containing
// addr, mirroring gomem's memory_map.IsValidAddress2.
func Lookup(addr memcore.Address, regions []memcore.Region) *memcore.Region {
	i := sort.Search(len(regions), func(i int) bool {
		return uint64(regions[i].Base)+uint64(regions[i].Length) > uint64(addr)
	})
	if i < len(regions) && regions[i].Base <= addr {
		return &regions[i]
	}
	return nil
}

// DeriveModules groups regions by their Module field into a minimal
// module list: one entry per distinct name, spanning the lowest base to
// the highest end address observed among that name's regions.
func DeriveModules(regions []memcore.Region) []memcore.Module {
	type span struct {
		base, end uint64
	}
	spans := make(map[string]span)
	order := make([]string, 0)
	for _, r := range regions {
		if r.Module == "" {
			continue
		}
		end := uint64(r.Base) + uint64(r.Length)
		s, ok := spans[r.Module]
		if !ok {
			spans[r.Module] = span{uint64(r.Base), end}
			order = append(order, r.Module)
			continue
		}
		if uint64(r.Base) < s.base {
			s.base = uint64(r.Base)
		}
		if end > s.end {
			s.end = end
		}
		spans[r.Module] = s
	}

	modules := make([]memcore.Module, 0, len(order))
	for _, name := range order {
		s := spans[name]
		modules = append(modules, memcore.Module{
			Name: name,
			Base: memcore.Address(s.base),
			Size: memcore.Size(s.end - s.base),
		})
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].Base < modules[j].Base })
	return modules
}

// Executable returns the subset of regions with the executable bit set.
func Executable(regions []memcore.Region) []memcore.Region {
	return filterRegions(regions, func(r memcore.Region) bool { return r.Protection.Executable })
}

// Writable returns the subset of regions with the writable bit set.
func Writable(regions []memcore.Region) []memcore.Region {
	return filterRegions(regions, func(r memcore.Region) bool { return r.Protection.Writable })
}

func filterRegions(regions []memcore.Region, keep func(memcore.Region) bool) []memcore.Region {
	out := make([]memcore.Region, 0, len(regions))
	for _, r := range regions {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
