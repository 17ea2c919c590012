// Package memaccess performs fault-guarded reads and writes against the
// host process's own address space. A candidate address is checked
// against the region cache before any copy is attempted, and the copy
// itself runs under runtime/debug.SetPanicOnFault so a stray access
// violation becomes a returned error instead of a crash.
package memaccess

import (
	"fmt"
	"runtime/debug"
	"unsafe"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memengine/introspect"
	"memengine/memcore"
)

// Accessor is the single entry point for safe memory access, holding the
// region cache it consults before every copy.
type Accessor struct {
	cache *introspect.Cache
	log   *logger.Logger
}

// New builds an Accessor around cache.
func New(cache *introspect.Cache) *Accessor {
	return &Accessor{
		cache: cache,
		log:   logger.NewLogger(coloransi.Color(coloransi.Green, coloransi.ColorOrange, "memaccess")),
	}
}

// Read copies size bytes starting at addr, failing with ErrAddressNotMapped
// or ErrNotReadable before ever attempting the copy, and with
// ErrAccessFault if the guarded copy itself faults.
func (a *Accessor) Read(addr memcore.Address, size memcore.Size) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	region, err := a.cache.Lookup(addr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}
	if region == nil {
		return nil, fmt.Errorf("read %s: %w", addr, memcore.ErrAddressNotMapped)
	}
	if !region.Contains(addr, size) {
		return nil, fmt.Errorf("read %s (%d bytes): %w", addr, size, memcore.ErrAddressNotMapped)
	}
	if !region.Protection.Readable {
		return nil, fmt.Errorf("read %s: %w", addr, memcore.ErrNotReadable)
	}

	out := make([]byte, size)
	if err := guardedCopy(out, addr); err != nil {
		a.log.Debugln("guarded read faulted at ", addr.String())
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}
	return out, nil
}

// Write copies data into addr, toggling the region to writable for the
// duration of the copy if it is not already, then restoring its original
// protection. Mirrors the mprotect toggle-copy-restore idiom used for
// self-modifying code.
func (a *Accessor) Write(addr memcore.Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	size := memcore.Size(len(data))

	region, err := a.cache.Lookup(addr)
	if err != nil {
		return fmt.Errorf("write %s: %w", addr, err)
	}
	if region == nil {
		return fmt.Errorf("write %s: %w", addr, memcore.ErrAddressNotMapped)
	}
	if !region.Contains(addr, size) {
		return fmt.Errorf("write %s (%d bytes): %w", addr, size, memcore.ErrAddressNotMapped)
	}

	needsToggle := !region.Protection.Writable
	if needsToggle {
		if err := protect(region.Base, region.Length, region.Protection.Readable, true, region.Protection.Executable); err != nil {
			return fmt.Errorf("write %s: %w: %v", addr, memcore.ErrNotWritable, err)
		}
		defer func() {
			if err := protect(region.Base, region.Length, region.Protection.Readable, false, region.Protection.Executable); err != nil {
				a.log.Warn("failed to restore protection after write: ", err)
			}
			a.cache.Invalidate()
		}()
	}

	if err := guardedWrite(addr, data); err != nil {
		a.log.Debugln("guarded write faulted at ", addr.String())
		return fmt.Errorf("write %s: %w", addr, err)
	}
	return nil
}

// ReadTyped reads and parses a typed value from addr. For variable-width
// tags (string, bytes) hint gives the byte count to read.
func (a *Accessor) ReadTyped(addr memcore.Address, tag memcore.TypeTag, hint memcore.Size) (memcore.TypedValue, error) {
	size := hint
	if w, fixed := tag.FixedWidth(); fixed {
		size = w
	}
	if tag == memcore.TagString && size == 0 {
		size = memcore.MaxStringLength
	}

	raw, err := a.Read(addr, size)
	if err != nil {
		return memcore.TypedValue{}, err
	}
	return memcore.TypedValue{Tag: tag, Bytes: raw}, nil
}

// WriteTyped writes v's raw bytes to addr.
func (a *Accessor) WriteTyped(addr memcore.Address, v memcore.TypedValue) error {
	return a.Write(addr, v.Bytes)
}

// guardedCopy copies len(out) bytes from addr into out under a fault guard.
func guardedCopy(out []byte, addr memcore.Address) (err error) {
	debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(false)
	defer func() {
		if r := recover(); r != nil {
			err = memcore.ErrAccessFault
		}
	}()

	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(out))
	copy(out, src)
	return nil
}

// guardedWrite copies data into addr under a fault guard.
func guardedWrite(addr memcore.Address, data []byte) (err error) {
	debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(false)
	defer func() {
		if r := recover(); r != nil {
			err = memcore.ErrAccessFault
		}
	}()

	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(data))
	copy(dst, data)
	return nil
}
