package vm

import (
	"fmt"
	"strings"
)

// Disassemble converts a program image back to assembly source. Each
// word becomes one line. Words whose opcode is undefined, and defined
// opcodes carrying junk in their unused bits, are emitted as raw hex so
// the output reassembles to the identical image.
func Disassemble(words []uint32) string {
	var buf strings.Builder
	for _, w := range words {
		buf.WriteString(disassembleWord(Instruction(w)))
		buf.WriteByte('\n')
	}
	return buf.String()
}

func disassembleWord(inst Instruction) string {
	op := inst.Opcode()

	if op == OpLdi {
		imm := inst.LdiImm()
		if imm >= 0x20 && imm < 0x7F {
			return fmt.Sprintf("ldi %d, 0x%02x ; '%c'", inst.LdiReg(), imm, rune(imm))
		}
		return fmt.Sprintf("ldi %d, 0x%02x", inst.LdiReg(), imm)
	}

	if !op.Valid() {
		return fmt.Sprintf("0x%08x ; invalid opcode", uint32(inst))
	}

	line := op.String()
	if n := op.RegArgs(); n > 0 {
		regs := []uint32{inst.A(), inst.B(), inst.C()}[3-n:]
		args := make([]string, n)
		for i, r := range regs {
			args[i] = fmt.Sprintf("%d", r)
		}
		line += " " + strings.Join(args, ", ")
	}
	if !inst.Canonical() {
		return fmt.Sprintf("0x%08x ; %s", uint32(inst), line)
	}
	return line
}
