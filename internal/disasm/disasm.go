// Package disasm defines a common instruction representation used
// across architecture-specific disassemblers, renders it in the
// objdump text layout, and normalizes such text for comparison.
package disasm

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

var ErrUnsupportedMachine = errors.New("unsupported machine")

// Inst is a simplified decoded instruction.
type Inst struct {
	VA   uint64 // virtual address of instruction
	Text string // formatted disassembly string
	Op   string // mnemonic in lowercase
	Raw  []byte // raw encoding
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Label names an address inside a stream.
type Label struct {
	Addr uint64
	Name string
}

// Decode disassembles code located at va for the given machine.
// Words that do not decode are emitted as .word pseudo instructions.
func Decode(machine elf.Machine, code []byte, va uint64) (Stream, error) {
	switch machine {
	case elf.EM_AARCH64:
		return decodeFixed(code, va, func(b []byte) (string, bool) {
			inst, err := arm64asm.Decode(b)
			if err != nil {
				return "", false
			}
			return arm64asm.GNUSyntax(inst), true
		}), nil
	case elf.EM_ARM:
		return decodeFixed(code, va, func(b []byte) (string, bool) {
			inst, err := armasm.Decode(b, armasm.ModeARM)
			if err != nil {
				return "", false
			}
			return armasm.GNUSyntax(inst), true
		}), nil
	case elf.EM_X86_64:
		return decodeX86(code, va, 64), nil
	case elf.EM_386:
		return decodeX86(code, va, 32), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMachine, machine)
}

func decodeFixed(code []byte, va uint64, dec func([]byte) (string, bool)) Stream {
	var out Stream
	for off := 0; off+4 <= len(code); off += 4 {
		raw := code[off : off+4]
		text, ok := dec(raw)
		if !ok {
			text = fmt.Sprintf(".word\t0x%08x", binary.LittleEndian.Uint32(raw))
		}
		out = append(out, newInst(va+uint64(off), raw, text))
	}
	return out
}

func decodeX86(code []byte, va uint64, mode int) Stream {
	var out Stream
	for off := 0; off < len(code); {
		pc := va + uint64(off)
		inst, err := x86asm.Decode(code[off:], mode)
		if err != nil || inst.Len == 0 {
			out = append(out, newInst(pc, code[off:off+1], "(bad)"))
			off++
			continue
		}
		out = append(out, newInst(pc, code[off:off+inst.Len], x86asm.GNUSyntax(inst, pc, nil)))
		off += inst.Len
	}
	return out
}

func newInst(va uint64, raw []byte, text string) Inst {
	op := text
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		op = text[:i]
	}
	return Inst{VA: va, Text: text, Op: strings.ToLower(op), Raw: raw}
}

// Format renders the stream the way objdump -d prints one section:
// a section banner, then each labelled run of instructions.
func Format(section string, stream Stream, labels []Label) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nDisassembly of section %s:\n", section)

	next := 0
	for _, inst := range stream {
		for next < len(labels) && labels[next].Addr <= inst.VA {
			if labels[next].Addr == inst.VA {
				fmt.Fprintf(&b, "\n%08x <%s>:\n", labels[next].Addr, labels[next].Name)
			}
			next++
		}
		fmt.Fprintf(&b, "%8x:\t% x \t%s\n", inst.VA, inst.Raw, inst.Text)
	}
	return b.String()
}
