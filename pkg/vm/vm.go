// Package vm implements the UMVM virtual machine.
//
// The VM is a register-based interpreter over a flat sequence of 32-bit
// instruction words with:
//   - 8 general-purpose 32-bit registers (R0-R7)
//   - a dynamically growing table of identifier-addressed arrays
//   - byte-granular standard input and output
//
// Basic usage:
//
//	v := vm.New()
//	v.Load(words)
//	err := v.Execute()
//
// With resource limits and tracing:
//
//	v := vm.New()
//	v.SetMaxSteps(10000)
//	v.SetContext(ctx)
//	v.SetLogger(logger)
//	v.Load(words)
//	err := v.Execute()
package vm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// Fault definitions. Every fault is fatal: execution ends immediately
// and the error propagates out of Execute.
var (
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrInactiveArray       = errors.New("inactive array identifier")
	ErrBadDelete           = errors.New("deleted 0 or inactive array")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrProgramFromInactive = errors.New("loaded program from inactive array")
	ErrCharacterRange      = errors.New("printed character outside of [0, 255]")
	ErrPCOutOfBounds       = errors.New("PC out of bounds")

	// Resource limit errors (not faults of the machine itself)
	ErrInstructionLimit = errors.New("instruction limit exceeded")
)

// FaultCode maps an execution error to its stable process exit code.
// The mapping follows the original fault enum; errors outside the
// fault taxonomy map to 1.
func FaultCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidInstruction):
		return 1
	case errors.Is(err, ErrInactiveArray):
		return 2
	case errors.Is(err, ErrBadDelete):
		return 3
	case errors.Is(err, ErrDivisionByZero):
		return 4
	case errors.Is(err, ErrProgramFromInactive):
		return 5
	case errors.Is(err, ErrCharacterRange):
		return 6
	case errors.Is(err, ErrPCOutOfBounds):
		return 7
	default:
		return 1
	}
}

// ExecutionStats contains metrics about VM execution for observability.
type ExecutionStats struct {
	StepsExecuted    int64          // Total instructions executed
	ExecutionTimeNs  int64          // Execution time in nanoseconds
	OpCounts         map[string]int // Count of each opcode executed
	ArraysAllocated  int64          // NEW instructions executed
	ArraysFreed      int64          // DEL instructions executed
	PeakActiveArrays int            // High-water mark of active identifiers
	BytesRead        int64          // Bytes consumed by INP
	BytesWritten     int64          // Bytes emitted by OUT
}

// VM represents the virtual machine.
type VM struct {
	registers RegisterFile
	mem       *Memory
	prog      []uint32 // cached program image, aliases mem slot 0
	pc        uint32

	// I/O adapter
	in  *bufio.Reader
	out io.Writer

	// Resource limits
	maxSteps  int64
	stepCount int64

	// Context for cancellation
	ctx context.Context

	// Tracing
	logger  *zap.Logger
	tracing bool

	// Observability - execution statistics
	stats        ExecutionStats
	statsEnabled bool
}

// New creates a new VM instance reading from stdin and writing to
// stdout.
func New() *VM {
	return &VM{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		logger: zap.NewNop(),
	}
}

// Load installs a program image into the VM and resets all execution
// state. The VM takes ownership of words.
func (vm *VM) Load(words []uint32) error {
	vm.mem = NewMemory(words)
	vm.prog = vm.mem.Program()
	vm.pc = 0
	vm.stepCount = 0
	vm.registers.Reset()
	if vm.statsEnabled {
		vm.stats = ExecutionStats{OpCounts: make(map[string]int)}
	}
	return nil
}

// SetInput sets the reader INP consumes bytes from.
func (vm *VM) SetInput(r io.Reader) {
	vm.in = bufio.NewReader(r)
}

// SetOutput sets the writer OUT emits bytes to.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetMaxSteps sets the maximum number of execution steps.
func (vm *VM) SetMaxSteps(n int64) {
	vm.maxSteps = n
}

// SetContext sets the context for cancellation/timeout.
func (vm *VM) SetContext(ctx context.Context) {
	vm.ctx = ctx
}

// SetLogger sets the logger used for per-instruction trace output.
// Tracing is active while the logger's Debug level is enabled.
func (vm *VM) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	vm.logger = l
	vm.tracing = l.Core().Enabled(zap.DebugLevel)
}

// EnableStats enables execution statistics collection.
func (vm *VM) EnableStats() {
	vm.statsEnabled = true
	vm.stats = ExecutionStats{
		OpCounts: make(map[string]int),
	}
}

// Stats returns the execution statistics from the last Execute() call.
// Returns nil if stats were not enabled via EnableStats().
func (vm *VM) Stats() *ExecutionStats {
	if !vm.statsEnabled {
		return nil
	}
	return &vm.stats
}

// Registers returns a copy of the register file. Registers are private
// to the running machine; this is for tests and diagnostics only.
func (vm *VM) Registers() RegisterFile {
	return vm.registers
}

// Memory returns the VM's array store. Nil until Load is called.
func (vm *VM) Memory() *Memory {
	return vm.mem
}

// Execute runs the loaded program until HLT or a fault.
func (vm *VM) Execute() error {
	if vm.mem == nil {
		return errors.New("no program loaded")
	}

	var startTime time.Time
	if vm.statsEnabled {
		startTime = time.Now()
	}
	err := vm.run()
	if vm.statsEnabled {
		vm.stats.ExecutionTimeNs = time.Since(startTime).Nanoseconds()
		vm.stats.StepsExecuted = vm.stepCount
		if peak := vm.mem.ActiveCount(); peak > vm.stats.PeakActiveArrays {
			vm.stats.PeakActiveArrays = peak
		}
	}
	return err
}

func (vm *VM) run() error {
	r := &vm.registers.R
	for {
		// Context cancellation check
		if vm.ctx != nil {
			select {
			case <-vm.ctx.Done():
				return vm.ctx.Err()
			default:
			}
		}

		// Resource limit check
		vm.stepCount++
		if vm.maxSteps > 0 && vm.stepCount > vm.maxSteps {
			return ErrInstructionLimit
		}

		if vm.pc >= uint32(len(vm.prog)) {
			return fmt.Errorf("%w: pc %d (program length %d)", ErrPCOutOfBounds, vm.pc, len(vm.prog))
		}
		inst := Instruction(vm.prog[vm.pc])
		at := vm.pc
		vm.pc++

		op := inst.Opcode()

		if vm.statsEnabled {
			vm.stats.OpCounts[op.String()]++
		}
		if vm.tracing {
			vm.logger.Debug("exec",
				zap.Uint32("pc", at),
				zap.Stringer("op", op),
				zap.Uint32("word", uint32(inst)),
			)
		}

		switch op {
		case OpMov:
			if r[inst.C()] != 0 {
				r[inst.A()] = r[inst.B()]
			}

		case OpLda:
			v, err := vm.mem.Read(r[inst.B()], r[inst.C()])
			if err != nil {
				return fmt.Errorf("lda at pc %d: %w", at, err)
			}
			r[inst.A()] = v

		case OpSta:
			if err := vm.mem.Write(r[inst.A()], r[inst.B()], r[inst.C()]); err != nil {
				return fmt.Errorf("sta at pc %d: %w", at, err)
			}

		case OpAdd:
			r[inst.A()] = r[inst.B()] + r[inst.C()]

		case OpMul:
			r[inst.A()] = r[inst.B()] * r[inst.C()]

		case OpDiv:
			c := r[inst.C()]
			if c == 0 {
				return fmt.Errorf("div at pc %d: %w", at, ErrDivisionByZero)
			}
			r[inst.A()] = r[inst.B()] / c

		case OpNan:
			r[inst.A()] = ^(r[inst.B()] & r[inst.C()])

		case OpHlt:
			return nil

		case OpNew:
			id := vm.mem.Allocate(r[inst.C()])
			r[inst.B()] = id
			if vm.statsEnabled {
				vm.stats.ArraysAllocated++
				if n := vm.mem.ActiveCount(); n > vm.stats.PeakActiveArrays {
					vm.stats.PeakActiveArrays = n
				}
			}

		case OpDel:
			if err := vm.mem.Free(r[inst.C()]); err != nil {
				return fmt.Errorf("del at pc %d: %w", at, err)
			}
			if vm.statsEnabled {
				vm.stats.ArraysFreed++
			}

		case OpOut:
			c := r[inst.C()]
			if c > 0xFF {
				return fmt.Errorf("out at pc %d: %w: %d", at, ErrCharacterRange, c)
			}
			if err := vm.outputByte(byte(c)); err != nil {
				return fmt.Errorf("out at pc %d: %w", at, err)
			}

		case OpInp:
			r[inst.C()] = vm.inputByte()

		case OpPrg:
			// A zero source keeps the current image, so prg doubles
			// as an absolute jump.
			if id := r[inst.B()]; id != 0 {
				prog, err := vm.mem.LoadProgram(id)
				if err != nil {
					return fmt.Errorf("prg at pc %d: %w", at, err)
				}
				vm.prog = prog
			}
			vm.pc = r[inst.C()]

		case OpLdi:
			r[inst.LdiReg()] = inst.LdiImm()

		default:
			return fmt.Errorf("%w: opcode %d at pc %d", ErrInvalidInstruction, op, at)
		}
	}
}
