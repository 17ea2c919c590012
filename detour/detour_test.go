package detour

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"memengine/introspect"
	"memengine/memaccess"
	"memengine/memcore"
)

func TestHookSizePerType(t *testing.T) {
	cases := []struct {
		t    memcore.HookType
		bits int
		want int
	}{
		{memcore.HookJumpRelative, 64, 5},
		{memcore.HookJumpAbsolute, 64, 14},
		{memcore.HookJumpAbsolute, 32, 6},
		{memcore.HookPushRet, 32, 6},
	}
	for _, c := range cases {
		got, err := hookSize(c.t, c.bits)
		if err != nil {
			t.Fatalf("%s/%d: %s", c.t, c.bits, err)
		}
		if got != c.want {
			t.Fatalf("%s/%d: expected size %d, got %d", c.t, c.bits, c.want, got)
		}
	}
}

func TestHookSizeRejectsPushRetOn64Bit(t *testing.T) {
	if _, err := hookSize(memcore.HookPushRet, 64); err == nil {
		t.Fatal("expected push_ret to be rejected on a 64-bit host")
	}
}

func TestRelocateInstructionRel32Call(t *testing.T) {
	// call rel32 at old address 0x1000 targeting 0x2000.
	inst := []byte{0xE8, 0, 0, 0, 0}
	oldAddr := memcore.Address(0x1000)
	disp := int32(0x2000 - (int64(oldAddr) + 5))
	inst[1] = byte(disp)
	inst[2] = byte(disp >> 8)
	inst[3] = byte(disp >> 16)
	inst[4] = byte(disp >> 24)

	newAddr := memcore.Address(0x5000)
	relocateInstruction(inst, oldAddr, newAddr)

	newDisp := int32(uint32(inst[1]) | uint32(inst[2])<<8 | uint32(inst[3])<<16 | uint32(inst[4])<<24)
	resolved := int64(newAddr) + 5 + int64(newDisp)
	if resolved != 0x2000 {
		t.Fatalf("expected relocated call to still target 0x2000, resolved to 0x%x", resolved)
	}
}

func TestWriteJumpRelative(t *testing.T) {
	dst := make([]byte, 5)
	from := memcore.Address(0x1000)
	to := memcore.Address(0x2000)
	n := writeJumpRelative(dst, from, to)
	if n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}
	if dst[0] != 0xE9 {
		t.Fatalf("expected opcode 0xE9, got 0x%x", dst[0])
	}
	disp := int32(uint32(dst[1]) | uint32(dst[2])<<8 | uint32(dst[3])<<16 | uint32(dst[4])<<24)
	resolved := int64(from) + 5 + int64(disp)
	if resolved != int64(to) {
		t.Fatalf("expected encoded jump to resolve to 0x%x, got 0x%x", to, resolved)
	}
}

func TestEncodeHookJumpAbsolute32UsesPointerSlot(t *testing.T) {
	slot := memcore.Address(0x9000)
	buf, err := encodeHook(memcore.HookJumpAbsolute, 0x1000, 0x2000, 32, slot)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 6 || buf[0] != 0xFF || buf[1] != 0x25 {
		t.Fatalf("expected a 6-byte FF 25 encoding, got % x", buf)
	}
	disp := uint32(buf[2]) | uint32(buf[3])<<8 | uint32(buf[4])<<16 | uint32(buf[5])<<24
	if memcore.Address(disp) != slot {
		t.Fatalf("expected disp32 to name the pointer slot 0x%x, got 0x%x", slot, disp)
	}
}

func TestBuildTrampolineRejectsShortRelativeBranch(t *testing.T) {
	// EB 02 is a short (rel8) JMP, which cannot be relocated to an
	// arbitrary trampoline address.
	original := []byte{0xEB, 0x02, 0x90, 0x90, 0x90}
	trampolineMem := make([]byte, len(original))

	err := buildTrampoline(trampolineMem, original, 0x1000, 0x5000, 64)
	if err == nil {
		t.Fatal("expected buildTrampoline to reject a short-form relative branch")
	}
	if !errors.Is(err, memcore.ErrUnrelocatableInstruction) {
		t.Fatalf("expected ErrUnrelocatableInstruction, got %s", err)
	}
}

func TestInstallFailsOnShortRelativeBranchInPrologue(t *testing.T) {
	cache := introspect.NewCache(introspect.NewSource())
	acc := memaccess.New(cache)

	target := []byte{0xEB, 0x02, 0x90, 0x90, 0x90, 0xC3}
	targetAddr := memcore.Address(uintptr(unsafe.Pointer(&target[0])))

	detourFn := make([]byte, 8)
	detourAddr := memcore.Address(uintptr(unsafe.Pointer(&detourFn[0])))

	_, err := Install(acc, targetAddr, detourAddr, memcore.HookJumpRelative, 64)
	if err == nil {
		t.Fatal("expected Install to fail when the prologue contains a short-form relative branch")
	}
	if !errors.Is(err, memcore.ErrUnrelocatableInstruction) {
		t.Fatalf("expected ErrUnrelocatableInstruction, got %s", err)
	}
}

func TestInstallRemoveLifecycle(t *testing.T) {
	cache := introspect.NewCache(introspect.NewSource())
	acc := memaccess.New(cache)

	target := make([]byte, 32)
	for i := range target {
		target[i] = 0x90 // NOP
	}
	target[31] = 0xC3 // RET, so the tail is a real instruction boundary too
	targetAddr := memcore.Address(uintptr(unsafe.Pointer(&target[0])))

	detourFn := make([]byte, 8)
	detourAddr := memcore.Address(uintptr(unsafe.Pointer(&detourFn[0])))

	h, err := Install(acc, targetAddr, detourAddr, memcore.HookJumpRelative, 64)
	if err != nil {
		t.Fatalf("install failed: %s", err)
	}
	if !h.Active() {
		t.Fatal("expected a freshly installed hook to be active")
	}

	patched, err := acc.Read(targetAddr, 5)
	if err != nil {
		t.Fatal(err)
	}
	if patched[0] != 0xE9 {
		t.Fatalf("expected the target's first byte to become E9 (jmp rel32), got 0x%x", patched[0])
	}
	if bytes.Equal(patched, target[:5]) {
		t.Fatal("expected the target prologue to differ from its original bytes after install")
	}

	if err := h.Disable(acc); err != nil {
		t.Fatalf("disable failed: %s", err)
	}
	if h.Active() {
		t.Fatal("expected hook to be inactive after Disable")
	}
	restored, err := acc.Read(targetAddr, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(restored, target[:5]) {
		t.Fatal("expected Disable to restore the original bytes")
	}

	if err := h.Enable(acc); err != nil {
		t.Fatalf("enable failed: %s", err)
	}
	if !h.Active() {
		t.Fatal("expected hook to be active after Enable")
	}
	rePatched, err := acc.Read(targetAddr, 5)
	if err != nil {
		t.Fatal(err)
	}
	if rePatched[0] != 0xE9 {
		t.Fatal("expected Enable to re-write the hook bytes")
	}

	if err := h.Remove(acc); err != nil {
		t.Fatalf("remove failed: %s", err)
	}
	final, err := acc.Read(targetAddr, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(final, target[:5]) {
		t.Fatal("expected Remove to leave the target's original bytes in place")
	}
}
