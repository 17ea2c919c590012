package memcore

import "fmt"

// TriState is a three-valued filter: match any, require yes, or require no.
type TriState int

const (
	Any TriState = iota
	Yes
	No
)

// Matches reports whether flag satisfies the tri-state filter.
func (t TriState) Matches(flag bool) bool {
	switch t {
	case Yes:
		return flag
	case No:
		return !flag
	default:
		return true
	}
}

// Protection is the readable/writable/executable/copy-on-write flag set
// derived from a raw OS protection bitmask.
type Protection struct {
	Readable     bool
	Writable     bool
	Executable   bool
	CopyOnWrite  bool
}

// Region is an immutable snapshot of one committed virtual-memory region.
type Region struct {
	Base       Address
	Length     Size
	Raw        uint32 // raw OS protection bitmask, platform-specific
	Protection Protection
	Module     string // owning module name, or "" if anonymous
}

// Contains reports whether [addr, addr+size) lies entirely within the region.
func (r Region) Contains(addr Address, size Size) bool {
	if addr < r.Base {
		return false
	}
	end := uint64(r.Base) + uint64(r.Length)
	return uint64(addr)+uint64(size) <= end
}

func (r Region) String() string {
	return fmt.Sprintf("%s-%s %s", r.Base, Address(uint64(r.Base)+uint64(r.Length)), permString(r.Protection))
}

func permString(p Protection) string {
	b := []byte("----")
	if p.Readable {
		b[0] = 'r'
	}
	if p.Writable {
		b[1] = 'w'
	}
	if p.Executable {
		b[2] = 'x'
	}
	if p.CopyOnWrite {
		b[3] = 'c'
	}
	return string(b)
}

// Module describes one loaded image.
type Module struct {
	Name string
	Base Address
	Size Size
}

// Contains reports whether addr falls within the module's image.
func (m Module) Contains(addr Address) bool {
	return uint64(addr) >= uint64(m.Base) && uint64(addr) < uint64(m.Base)+uint64(m.Size)
}

// FormatAddress resolves addr to "module+0xoffset" given the loaded modules,
// or "" if no module contains it. Mirrors spec §4.2's GetModuleInfoForAddress.
func FormatAddress(addr Address, modules []Module) string {
	for _, m := range modules {
		if m.Contains(addr) {
			offset := uint64(addr) - uint64(m.Base)
			return fmt.Sprintf("%s+0x%x", m.Name, offset)
		}
	}
	return ""
}
