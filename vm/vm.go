// Package vm implements the compita virtual machine: a tagged-word
// register/stack interpreter for a small three-operand assembly language.
package vm

import (
	"bufio"
	"io"
	"os"
)

// Engine owns a State and an immutable, already-decoded Program, and
// drives fetch-decode-dispatch against them. One Engine executes exactly
// one program to completion or failure; nothing about it is safe for
// concurrent use by more than one goroutine, matching the distilled
// spec's single-threaded, no-concurrency-across-programs model.
type Engine struct {
	state   *State
	program []Instruction

	stdout *bufio.Writer
	stdin  *bufio.Reader
}

// NewEngine constructs the state exactly once for program, the way the
// distilled spec's Lifecycle section requires: registers and RAM
// initialized per §3, program array fixed and never mutated afterward.
func NewEngine(program []Instruction) *Engine {
	return &Engine{
		state:   NewState(),
		program: program,
		stdout:  bufio.NewWriter(os.Stdout),
		stdin:   bufio.NewReader(os.Stdin),
	}
}

// NewEngineWithIO is NewEngine but lets tests and the debug console supply
// their own standard streams instead of the process's.
func NewEngineWithIO(program []Instruction, stdout io.Writer, stdin io.Reader) *Engine {
	return &Engine{
		state:   NewState(),
		program: program,
		stdout:  bufio.NewWriter(stdout),
		stdin:   bufio.NewReader(stdin),
	}
}

// Halted reports whether HALT has executed.
func (e *Engine) Halted() bool { return e.state.Halted }

// EIP exposes the instruction pointer for diagnostics and the debug
// console; it is not writable from outside the engine.
func (e *Engine) EIP() int { return e.state.EIP() }

// ProgramLength is the number of decoded instructions.
func (e *Engine) ProgramLength() int { return len(e.program) }

// InstructionAt returns the decoded instruction at index i, for
// disassembly and diagnostics.
func (e *Engine) InstructionAt(i int) (Instruction, bool) {
	if i < 0 || i >= len(e.program) {
		return Instruction{}, false
	}
	return e.program[i], true
}

// Register returns the live Word stored at the given register index, for
// diagnostics (the debug console's `regs` command).
func (e *Engine) Register(idx int) Word { return e.state.Registers[idx] }

// RAMWord returns the live Word stored at the given RAM address, for
// diagnostics (the debug console's `stack` command). It does not bounds
// check; callers inspecting arbitrary addresses are expected to clamp to
// [0, RAMSize) themselves.
func (e *Engine) RAMWord(addr int) Word { return e.state.RAM[addr] }

// resolve maps an operand to a pointer at a live Word, per §4.2. The
// engine never copies the resolved Word when an operand is written to:
// every write goes through this pointer directly, which is what lets
// ADD R0 R0 R0 read both inputs into locals before a single write-through
// mutates the shared destination.
func (e *Engine) resolve(op Operand) (*Word, error) {
	switch op.Kind {
	case OperandRegister:
		if op.Register < 0 || op.Register >= NumRegisterSlots {
			return nil, ErrSegmentationFault
		}
		return &e.state.Registers[op.Register], nil
	case OperandAbsoluteAddress:
		return e.ramCell(op.Address)
	case OperandRelativeAddress:
		base := e.state.Registers[op.RelativeTo].Read().AsInt64()
		return e.ramCell(int(base) + op.Displacement)
	case OperandImmediate:
		imm := op.Immediate
		return &imm, nil
	default:
		return nil, ErrIllegalOperand
	}
}

func (e *Engine) ramCell(addr int) (*Word, error) {
	if addr < 0 || addr >= RAMSize {
		return nil, ErrSegmentationFault
	}
	return &e.state.RAM[addr], nil
}
