// Package memcore defines the shared data model for the memory engine:
// addresses, sizes, the tagged typed-value variant, region/module
// descriptors, scan options and results, byte patterns, and hook types.
// Nothing in this package touches the host process directly.
package memcore

import (
	"errors"
	"fmt"
)

// Address is an absolute address in the host process's virtual address space.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Size is a byte length or byte count.
type Size uint64

func (s Size) String() string {
	return fmt.Sprintf("%d bytes", uint64(s))
}

var (
	// ErrAddressNotMapped is returned when an address does not fall within
	// any region known to the introspection layer.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrNotReadable is returned when a region exists but lacks read permission.
	ErrNotReadable = errors.New("region not readable")

	// ErrNotWritable is returned when a write could not obtain write access
	// even after a protection toggle.
	ErrNotWritable = errors.New("region not writable")

	// ErrAccessFault is returned when the fault guard caught an access
	// violation during a copy.
	ErrAccessFault = errors.New("access fault during memory copy")

	// ErrDecodeFailure is returned when the length-disassembler could not
	// classify an instruction needed to size a hook prologue.
	ErrDecodeFailure = errors.New("instruction decode failure")

	// ErrAlreadyHooked is returned by hook install against a target address
	// that already has a registry entry, whether enabled or disabled.
	ErrAlreadyHooked = errors.New("address already hooked")

	// ErrDuplicateName is returned by hook install when the name is already
	// registered.
	ErrDuplicateName = errors.New("hook name already in use")

	// ErrNoSuchHook is returned by operations referencing an unknown hook name.
	ErrNoSuchHook = errors.New("no such hook")

	// ErrUnsupportedHookType is returned for a hook type invalid on the
	// running host's bitness (e.g. push_ret on 64-bit).
	ErrUnsupportedHookType = errors.New("hook type unsupported on this host")

	// ErrResourceExhausted is returned when an allocation fails: a hook's
	// executable trampoline, or a memory.allocate region.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrUnrelocatableInstruction is returned when a hook prologue contains a
	// short-form relative branch (rel8) that cannot be safely rewritten to
	// point at its original target once moved into a trampoline.
	ErrUnrelocatableInstruction = errors.New("prologue contains a short-form relative branch that cannot be relocated")
)
