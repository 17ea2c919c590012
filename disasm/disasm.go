// Package disasm implements the length-disassembler and display-disassembler
// by wrapping golang.org/x/arch/x86/x86asm, the pack's only real x86 decoder
// dependency, rather than hand-rolling a second ModR/M table.
package disasm

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Length returns the byte length of the single instruction starting at
// data, decoded for the given processor mode (16, 32, or 64 bits), or 0
// if data does not begin with a decodable instruction. This is the
// length-disassembler: it never guesses a width for input it cannot
// classify.
func Length(data []byte, bits int) int {
	inst, err := x86asm.Decode(data, bits)
	if err != nil {
		return 0
	}
	return inst.Len
}

// Instruction is one decoded instruction, positioned at Address, as
// produced by the display-disassembler.
type Instruction struct {
	Address  uint64
	Bytes    []byte
	Mnemonic string
	Operands string
	Len      int
	IsJump   bool
	IsCall   bool
	IsRet    bool
	// HasTarget reports whether Target holds a resolved absolute
	// branch/call destination (only meaningful for direct near/short
	// jumps and calls with a PC-relative operand).
	HasTarget bool
	Target    uint64
}

// Disassemble decodes up to max instructions (0 means unlimited) starting
// at data, reporting each one's mnemonic, Intel-syntax operand text, and
// control-flow classification. addr is the virtual address data[0] would
// occupy, used to resolve PC-relative jump/call targets and to render
// syntax that embeds addresses.
func Disassemble(data []byte, addr uint64, bits int, max int) []Instruction {
	var out []Instruction
	offset := 0
	for offset < len(data) {
		if max > 0 && len(out) >= max {
			break
		}

		remaining := data[offset:]
		inst, err := x86asm.Decode(remaining, bits)
		if err != nil || inst.Len == 0 {
			out = append(out, Instruction{
				Address:  addr + uint64(offset),
				Bytes:    []byte{remaining[0]},
				Mnemonic: "db",
				Operands: fmt.Sprintf("0x%02x", remaining[0]),
				Len:      1,
			})
			offset++
			continue
		}

		instAddr := addr + uint64(offset)
		text := x86asm.IntelSyntax(inst, instAddr, nil)
		mnemonic, operands := splitSyntax(text)

		classified := Instruction{
			Address:  instAddr,
			Bytes:    append([]byte(nil), remaining[:inst.Len]...),
			Mnemonic: mnemonic,
			Operands: operands,
			Len:      inst.Len,
			IsJump:   isJump(inst.Op),
			IsCall:   inst.Op == x86asm.CALL,
			IsRet:    inst.Op == x86asm.RET,
		}

		if target, ok := pcRelTarget(inst, instAddr); ok {
			classified.HasTarget = true
			classified.Target = target
		}

		out = append(out, classified)
		offset += inst.Len
	}
	return out
}

func splitSyntax(text string) (mnemonic, operands string) {
	for i, r := range text {
		if r == ' ' {
			return text[:i], text[i+1:]
		}
	}
	return text, ""
}

func isJump(op x86asm.Op) bool {
	switch op {
	case x86asm.JMP, x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE,
		x86asm.JCXZ, x86asm.JE, x86asm.JECXZ, x86asm.JG, x86asm.JGE,
		x86asm.JL, x86asm.JLE, x86asm.JNE, x86asm.JNO, x86asm.JNP,
		x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ, x86asm.JS:
		return true
	default:
		return false
	}
}

// pcRelTarget resolves the absolute destination of a direct PC-relative
// jump or call, i.e. one whose sole operand is an x86asm.Rel.
func pcRelTarget(inst x86asm.Inst, instAddr uint64) (uint64, bool) {
	if !isJump(inst.Op) && inst.Op != x86asm.CALL {
		return 0, false
	}
	if len(inst.Args) == 0 {
		return 0, false
	}
	rel, ok := inst.Args[0].(x86asm.Rel)
	if !ok {
		return 0, false
	}
	return uint64(int64(instAddr) + int64(inst.Len) + int64(rel)), true
}
