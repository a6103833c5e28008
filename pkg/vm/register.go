package vm

// NumRegs is the number of general-purpose registers (R0-R7).
const NumRegs = 8

// RegisterFile holds the eight 32-bit registers. All arithmetic on
// register values is modulo 2^32.
type RegisterFile struct {
	R [NumRegs]uint32
}

// Reset clears all registers to zero.
func (rf *RegisterFile) Reset() {
	for i := range rf.R {
		rf.R[i] = 0
	}
}
