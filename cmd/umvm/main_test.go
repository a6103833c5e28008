package main

import (
	"path/filepath"
	"testing"

	"github.com/akhildatla/umvm/internal/testutil"
	"github.com/akhildatla/umvm/pkg/vm"
)

func TestExecute_ExitCodes(t *testing.T) {
	halt := testutil.TempImage(t, []uint32{0x70000000})
	if _, code := execute(halt, false, 0, false); code != 0 {
		t.Errorf("halt: expected exit 0, got %d", code)
	}

	divZero := testutil.TempImage(t, []uint32{
		uint32(vm.EncodeLdi(0, 1)),
		uint32(vm.Encode(vm.OpDiv, 2, 0, 1)), // r1 = 0
	})
	if _, code := execute(divZero, false, 0, false); code != 4 {
		t.Errorf("division fault: expected exit 4, got %d", code)
	}

	missing := filepath.Join(t.TempDir(), "nope.um")
	if _, code := execute(missing, false, 0, false); code != 1 {
		t.Errorf("missing file: expected exit 1, got %d", code)
	}
}

func TestExecute_StepLimit(t *testing.T) {
	loop := testutil.TempImage(t, []uint32{uint32(vm.Encode(vm.OpPrg, 0, 0, 0))})
	if _, code := execute(loop, false, 10, false); code != 1 {
		t.Errorf("step limit: expected exit 1, got %d", code)
	}
}

func TestStatsFrame(t *testing.T) {
	stats := &vm.ExecutionStats{
		StepsExecuted: 10,
		OpCounts:      map[string]int{"ldi": 6, "out": 3, "hlt": 1},
	}

	df := statsFrame(stats)
	if len(df.Series) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(df.Series))
	}
	rows := df.NRows()
	if rows != 3 {
		t.Fatalf("expected 3 rows, got %d", rows)
	}

	// Sorted by count, descending.
	if op := df.Series[0].Value(0); op != "ldi" {
		t.Errorf("expected first opcode ldi, got %v", op)
	}
	if n := df.Series[1].Value(0); n != int64(6) {
		t.Errorf("expected count 6, got %v", n)
	}
	if share := df.Series[2].Value(0); share != 0.6 {
		t.Errorf("expected share 0.6, got %v", share)
	}
	if op := df.Series[0].Value(2); op != "hlt" {
		t.Errorf("expected last opcode hlt, got %v", op)
	}
}
