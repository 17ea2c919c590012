// Package detour implements an inline x86/x64 detour (trampoline) hook:
// copy the target's prologue into freshly allocated executable memory,
// relocate the rel32 CALL/JMP/Jcc instructions it contains (RIP-relative
// memory operands are copied unchanged), append a jump back
// past the hijacked bytes, then overwrite the prologue itself with a jump
// to the detour function. Grounded on the original engine's
// DetoursLite.{hpp,cpp}.
package detour

import (
	"encoding/binary"
	"fmt"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memengine/disasm"
	"memengine/memaccess"
	"memengine/memcore"
)

var log = logger.NewLogger(coloransi.Color(coloransi.Magenta, coloransi.ColorOrange, "detour"))

// jumpBackReserve is the size reserved at the tail of every trampoline for
// the jump back into the original function, sized for the worst case
// (64-bit absolute jump).
const jumpBackReserve = 14

// Hook is one installed detour, holding everything needed to disable,
// re-enable, or remove it.
type Hook struct {
	Target         memcore.Address
	Detour         memcore.Address
	Trampoline     memcore.Address
	Type           memcore.HookType
	Bits           int
	originalBytes  []byte
	trampolineMem  []byte
	pointerSlot    memcore.Address // jmp_absolute/32-bit only: holds the detour address
	active         bool
}

// Info returns a snapshot of the hook's current state.
func (h *Hook) Info(name string) memcore.HookInfo {
	return memcore.HookInfo{
		Name:              name,
		TargetAddress:     h.Target,
		DetourAddress:     h.Detour,
		TrampolineAddress: h.Trampoline,
		Type:              h.Type,
		Active:            h.active,
		PrologueLength:    len(h.originalBytes),
	}
}

// Active reports whether the hook currently redirects the target.
func (h *Hook) Active() bool { return h.active }

// hookSize returns how many bytes at the target get overwritten for type,
// per DetoursLite::CalculateHookSize.
func hookSize(t memcore.HookType, bits int) (int, error) {
	switch t {
	case memcore.HookJumpRelative:
		return 5, nil
	case memcore.HookJumpAbsolute:
		if bits == 64 {
			return 14, nil
		}
		return 6, nil
	case memcore.HookPushRet:
		if bits == 64 {
			return 0, fmt.Errorf("push_ret: %w", memcore.ErrUnsupportedHookType)
		}
		return 6, nil
	default:
		return 0, fmt.Errorf("hook type %q: %w", t, memcore.ErrUnsupportedHookType)
	}
}

func resolveAuto(t memcore.HookType, bits int) memcore.HookType {
	if t != memcore.HookAuto {
		return t
	}
	if bits == 64 {
		return memcore.HookJumpAbsolute
	}
	return memcore.HookJumpRelative
}

// Install hijacks target so control transfers to detour, returning a Hook
// whose Trampoline address still runs the original prologue followed by a
// jump back to the unhijacked remainder of target. bits is the processor
// mode (32 or 64) the target code was compiled for.
func Install(acc *memaccess.Accessor, target, detourAddr memcore.Address, hookType memcore.HookType, bits int) (*Hook, error) {
	resolved := resolveAuto(hookType, bits)
	size, err := hookSize(resolved, bits)
	if err != nil {
		return nil, err
	}

	// Read enough of the target to find a whole-instruction boundary at
	// or past size, the same walk as DetoursLite::InstallHook.
	probe, err := acc.Read(target, memcore.Size(size+16))
	if err != nil {
		return nil, fmt.Errorf("install hook at %s: %w", target, err)
	}

	bytesToCopy := 0
	for bytesToCopy < size {
		instLen := disasm.Length(probe[bytesToCopy:], bits)
		if instLen == 0 {
			return nil, fmt.Errorf("install hook at %s: %w", target, memcore.ErrDecodeFailure)
		}
		bytesToCopy += instLen
	}

	original, err := acc.Read(target, memcore.Size(bytesToCopy))
	if err != nil {
		return nil, fmt.Errorf("install hook at %s: %w", target, err)
	}

	// jmp_absolute on 32-bit needs a pointer slot holding the literal
	// target address; FF 25's disp32 is an absolute address of that slot
	// on 32-bit (unlike 64-bit, where it is RIP-relative and the address
	// can follow inline). That slot lives in the trampoline's own
	// executable memory block, never on the stack.
	needsPointerSlot := resolved == memcore.HookJumpAbsolute && bits != 64
	allocSize := bytesToCopy + jumpBackReserve
	if needsPointerSlot {
		allocSize += 4
	}

	trampolineMem, err := allocExecutable(allocSize)
	if err != nil {
		return nil, fmt.Errorf("install hook at %s: %w: %v", target, memcore.ErrResourceExhausted, err)
	}
	trampolineAddr := memcore.Address(sliceAddr(trampolineMem))

	if err := buildTrampoline(trampolineMem, original, target, trampolineAddr, bits); err != nil {
		freeExecutable(trampolineMem)
		return nil, fmt.Errorf("install hook at %s: %w", target, err)
	}
	writeJumpRelative(trampolineMem[bytesToCopy:], trampolineAddr+memcore.Address(bytesToCopy), target+memcore.Address(bytesToCopy))

	var pointerSlot memcore.Address
	if needsPointerSlot {
		pointerSlot = trampolineAddr + memcore.Address(bytesToCopy+jumpBackReserve)
		binary.LittleEndian.PutUint32(trampolineMem[bytesToCopy+jumpBackReserve:], uint32(detourAddr))
	}

	hookBytes, err := encodeHook(resolved, target, detourAddr, bits, pointerSlot)
	if err != nil {
		freeExecutable(trampolineMem)
		return nil, err
	}
	if len(hookBytes) > bytesToCopy {
		freeExecutable(trampolineMem)
		return nil, fmt.Errorf("install hook at %s: hook encoding longer than copied prologue", target)
	}
	for len(hookBytes) < bytesToCopy {
		hookBytes = append(hookBytes, 0x90) // NOP pad, per DetoursLite::InstallHook
	}

	if err := acc.Write(target, hookBytes); err != nil {
		freeExecutable(trampolineMem)
		return nil, fmt.Errorf("install hook at %s: %w", target, err)
	}

	log.Infoln("hook installed at ", target.String(), " -> ", detourAddr.String())

	return &Hook{
		Target:        target,
		Detour:        detourAddr,
		Trampoline:    trampolineAddr,
		Type:          resolved,
		Bits:          bits,
		originalBytes: original,
		trampolineMem: trampolineMem,
		pointerSlot:   pointerSlot,
		active:        true,
	}, nil
}

// Remove restores the target's original bytes and releases the trampoline.
func (h *Hook) Remove(acc *memaccess.Accessor) error {
	if err := acc.Write(h.Target, h.originalBytes); err != nil {
		return fmt.Errorf("remove hook at %s: %w", h.Target, err)
	}
	if err := freeExecutable(h.trampolineMem); err != nil {
		log.Warn("failed to release trampoline memory: ", err)
	}
	h.active = false
	log.Infoln("hook removed at ", h.Target.String())
	return nil
}

// Disable restores the target's original bytes while keeping the
// trampoline allocated, so Enable can re-install without rebuilding it.
func (h *Hook) Disable(acc *memaccess.Accessor) error {
	if !h.active {
		return nil
	}
	if err := acc.Write(h.Target, h.originalBytes); err != nil {
		return fmt.Errorf("disable hook at %s: %w", h.Target, err)
	}
	h.active = false
	log.Infoln("hook disabled at ", h.Target.String())
	return nil
}

// Enable re-writes the hook bytes at the target. Unlike the original
// engine's EnableHook (which only flips a flag and leaves the target
// bytes untouched), this actually restores the redirect.
func (h *Hook) Enable(acc *memaccess.Accessor) error {
	if h.active {
		return nil
	}
	hookBytes, err := encodeHook(h.Type, h.Target, h.Detour, h.Bits, h.pointerSlot)
	if err != nil {
		return err
	}
	for len(hookBytes) < len(h.originalBytes) {
		hookBytes = append(hookBytes, 0x90)
	}
	if err := acc.Write(h.Target, hookBytes); err != nil {
		return fmt.Errorf("enable hook at %s: %w", h.Target, err)
	}
	h.active = true
	log.Infoln("hook enabled at ", h.Target.String())
	return nil
}

// encodeHook renders the byte patch for the given hook type, per
// DetoursLite's WriteJumpRelative/WriteJumpAbsolute/WritePushRet.
// pointerSlot is only consulted for jmp_absolute on 32-bit hosts, where it
// must name a pre-allocated memory cell holding the literal target address.
func encodeHook(t memcore.HookType, from, to memcore.Address, bits int, pointerSlot memcore.Address) ([]byte, error) {
	switch t {
	case memcore.HookJumpRelative:
		buf := make([]byte, 5)
		writeJumpRelative(buf, from, to)
		return buf, nil
	case memcore.HookJumpAbsolute:
		if bits == 64 {
			buf := make([]byte, 14)
			buf[0] = 0xFF
			buf[1] = 0x25
			// disp32 of 0 means the 8-byte absolute address immediately follows.
			binary.LittleEndian.PutUint32(buf[2:6], 0)
			binary.LittleEndian.PutUint64(buf[6:14], uint64(to))
			return buf, nil
		}
		// 32-bit FF 25 disp32 dereferences an absolute memory address
		// (no RIP-relative addressing exists in 32-bit mode), so disp32
		// names pointerSlot rather than embedding the target inline.
		buf := make([]byte, 6)
		buf[0] = 0xFF
		buf[1] = 0x25
		binary.LittleEndian.PutUint32(buf[2:6], uint32(pointerSlot))
		return buf, nil
	case memcore.HookPushRet:
		if bits == 64 {
			return nil, fmt.Errorf("push_ret: %w", memcore.ErrUnsupportedHookType)
		}
		buf := make([]byte, 6)
		buf[0] = 0x68 // PUSH imm32
		binary.LittleEndian.PutUint32(buf[1:5], uint32(to))
		buf[5] = 0xC3 // RET
		return buf, nil
	default:
		return nil, fmt.Errorf("hook type %q: %w", t, memcore.ErrUnsupportedHookType)
	}
}

// writeJumpRelative encodes a JMP rel32 at dst such that executing it from
// address from transfers control to to, and returns the encoded length (5).
func writeJumpRelative(dst []byte, from, to memcore.Address) int {
	dst[0] = 0xE9
	offset := int32(int64(to) - int64(from) - 5)
	binary.LittleEndian.PutUint32(dst[1:5], uint32(offset))
	return 5
}

// buildTrampoline copies original into trampolineMem and relocates the rel32
// CALL/JMP/Jcc instructions it contains, per DetoursLite::BuildTrampoline;
// RIP-relative memory operands are left as copied. It
// fails if the prologue contains a short-form relative branch (rel8), which
// cannot be relocated to an arbitrary trampoline address.
func buildTrampoline(trampolineMem, original []byte, originalAddr, trampolineAddr memcore.Address, bits int) error {
	copy(trampolineMem, original)

	for i := 0; i < len(original); {
		instLen := disasm.Length(trampolineMem[i:], bits)
		if instLen == 0 {
			break
		}
		if isShortRelativeBranch(trampolineMem[i]) {
			return fmt.Errorf("relocate instruction at offset %d: %w", i, memcore.ErrUnrelocatableInstruction)
		}
		relocateInstruction(trampolineMem[i:i+instLen], originalAddr+memcore.Address(i), trampolineAddr+memcore.Address(i))
		i += instLen
	}
	return nil
}

// isShortRelativeBranch reports whether opcode is a short-form (rel8)
// relative branch: JMP rel8 (EB), Jcc rel8 (70-7F), or JCXZ/JECXZ/JRCXZ rel8
// (E3). These carry only a single signed byte of displacement, not enough
// range to retarget after being moved into a trampoline.
func isShortRelativeBranch(opcode byte) bool {
	return opcode == 0xEB || opcode == 0xE3 || (opcode >= 0x70 && opcode <= 0x7F)
}

// relocateInstruction rewrites a CALL/JMP rel32 or a two-byte conditional
// near jump's displacement so it still points at the same absolute target
// after being moved from oldAddr to newAddr, per
// DetoursLite::RelocateInstruction.
func relocateInstruction(inst []byte, oldAddr, newAddr memcore.Address) {
	if len(inst) >= 5 && (inst[0] == 0xE8 || inst[0] == 0xE9) {
		disp := int32(binary.LittleEndian.Uint32(inst[1:5]))
		target := int64(oldAddr) + 5 + int64(disp)
		newDisp := int32(target - (int64(newAddr) + 5))
		binary.LittleEndian.PutUint32(inst[1:5], uint32(newDisp))
		return
	}
	if len(inst) >= 6 && inst[0] == 0x0F && (inst[1]&0xF0) == 0x80 {
		disp := int32(binary.LittleEndian.Uint32(inst[2:6]))
		target := int64(oldAddr) + 6 + int64(disp)
		newDisp := int32(target - (int64(newAddr) + 6))
		binary.LittleEndian.PutUint32(inst[2:6], uint32(newDisp))
		return
	}
}
