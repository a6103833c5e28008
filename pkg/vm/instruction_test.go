package vm

import "testing"

func TestInstruction_Fields(t *testing.T) {
	inst := Encode(OpAdd, 1, 2, 3)

	if inst.Opcode() != OpAdd {
		t.Errorf("expected opcode add, got %v", inst.Opcode())
	}
	if inst.A() != 1 {
		t.Errorf("expected A=1, got %d", inst.A())
	}
	if inst.B() != 2 {
		t.Errorf("expected B=2, got %d", inst.B())
	}
	if inst.C() != 3 {
		t.Errorf("expected C=3, got %d", inst.C())
	}
}

func TestInstruction_FieldMasking(t *testing.T) {
	// Register fields above 7 must be truncated to 3 bits.
	inst := Encode(OpMov, 9, 10, 11)
	if inst.A() != 1 || inst.B() != 2 || inst.C() != 3 {
		t.Errorf("expected masked fields 1,2,3, got %d,%d,%d", inst.A(), inst.B(), inst.C())
	}
}

func TestInstruction_KnownEncodings(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		want uint32
	}{
		{"hlt", Encode(OpHlt, 0, 0, 0), 0x70000000},
		{"out 0", Encode(OpOut, 0, 0, 0), 0xA0000000},
		{"ldi 0 0x41", EncodeLdi(0, 0x41), 0xD0000041},
		{"add 2 0 1", Encode(OpAdd, 2, 0, 1), 0x30000081},
	}
	for _, tt := range tests {
		if uint32(tt.inst) != tt.want {
			t.Errorf("%s: expected 0x%08x, got 0x%08x", tt.name, tt.want, uint32(tt.inst))
		}
	}
}

func TestInstruction_Ldi(t *testing.T) {
	inst := EncodeLdi(5, 0x123456)

	if inst.Opcode() != OpLdi {
		t.Errorf("expected opcode ldi, got %v", inst.Opcode())
	}
	if inst.LdiReg() != 5 {
		t.Errorf("expected reg 5, got %d", inst.LdiReg())
	}
	if inst.LdiImm() != 0x123456 {
		t.Errorf("expected imm 0x123456, got 0x%x", inst.LdiImm())
	}
}

func TestInstruction_LdiImmMasking(t *testing.T) {
	inst := EncodeLdi(0, 0xFFFFFFFF)
	if inst.LdiImm() != MaxImm {
		t.Errorf("expected imm truncated to 0x%x, got 0x%x", uint32(MaxImm), inst.LdiImm())
	}
	if inst.Opcode() != OpLdi {
		t.Errorf("immediate overflow corrupted the opcode: %v", inst.Opcode())
	}
}

func TestInstruction_Canonical(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		want bool
	}{
		{"clean hlt", 0x70000000, true},
		{"hlt with junk", 0x70000001, false},
		{"clean add", 0x300001FF, true},
		{"add with junk", 0x300201FF, false},
		{"ldi always canonical", 0xD1FFFFFF, true},
		{"invalid opcode", 0xE0000000, false},
	}
	for _, tt := range tests {
		if got := Instruction(tt.word).Canonical(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestInstruction_String(t *testing.T) {
	tests := []struct {
		inst Instruction
		want string
	}{
		{Encode(OpHlt, 0, 0, 0), "hlt"},
		{Encode(OpOut, 0, 0, 5), "out 5"},
		{Encode(OpNew, 0, 1, 2), "new 1, 2"},
		{Encode(OpAdd, 1, 2, 3), "add 1, 2, 3"},
		{EncodeLdi(7, 0x41), "ldi 7, 0x41"},
		{Instruction(0xE0000000), "0xe0000000"},
	}
	for _, tt := range tests {
		if got := tt.inst.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
