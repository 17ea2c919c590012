//go:build windows

package introspect

import (
	"syscall"
	"unsafe"

	"memengine/memcore"
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procVirtualQuery = modkernel32.NewProc("VirtualQuery")
)

const (
	memCommit    = 0x1000
	pageNoAccess = 0x01
	pageReadonly = 0x02
	pageReadwrite = 0x04
	pageWritecopy = 0x08
	pageExecute  = 0x10
	pageExecuteRead = 0x20
	pageExecuteReadwrite = 0x40
	pageExecuteWritecopy = 0x80
)

// memoryBasicInformation mirrors MEMORY_BASIC_INFORMATION for 64-bit Windows.
type memoryBasicInformation struct {
	BaseAddress       uintptr
	AllocationBase    uintptr
	AllocationProtect uint32
	partitionID       uint16
	_                 uint16 // alignment padding
	RegionSize        uintptr
	State             uint32
	Protect           uint32
	Type              uint32
}

// WindowsSource walks the current process's address space with a
// VirtualQuery loop, the in-process counterpart of gomem's unfinished
// VirtualQueryEx plumbing in process_windows/process.go.
type WindowsSource struct{}

// NewSource returns the platform region source.
func NewSource() Source {
	return WindowsSource{}
}

func (WindowsSource) Regions() ([]memcore.Region, error) {
	var regions []memcore.Region
	var addr uintptr

	for {
		var mbi memoryBasicInformation
		ret, _, _ := procVirtualQuery.Call(
			addr,
			uintptr(unsafe.Pointer(&mbi)),
			unsafe.Sizeof(mbi),
		)
		if ret == 0 {
			break
		}

		if mbi.State == memCommit {
			regions = append(regions, memcore.Region{
				Base:       memcore.Address(mbi.BaseAddress),
				Length:     memcore.Size(mbi.RegionSize),
				Raw:        mbi.Protect,
				Protection: decodeProtect(mbi.Protect),
			})
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	sortRegions(regions)
	return regions, nil
}

func decodeProtect(protect uint32) memcore.Protection {
	base := protect &^ 0x100 // strip PAGE_GUARD
	p := memcore.Protection{}
	switch base {
	case pageReadonly:
		p.Readable = true
	case pageReadwrite:
		p.Readable, p.Writable = true, true
	case pageWritecopy:
		p.Readable, p.Writable, p.CopyOnWrite = true, true, true
	case pageExecute:
		p.Executable = true
	case pageExecuteRead:
		p.Readable, p.Executable = true, true
	case pageExecuteReadwrite:
		p.Readable, p.Writable, p.Executable = true, true, true
	case pageExecuteWritecopy:
		p.Readable, p.Writable, p.Executable, p.CopyOnWrite = true, true, true, true
	case pageNoAccess:
	}
	return p
}
