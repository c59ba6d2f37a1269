package vm

import (
	"fmt"
	"strings"
)

// OperandKind tags an Operand's addressing mode.
type OperandKind uint8

const (
	OperandEmpty OperandKind = iota
	OperandImmediate
	OperandRegister
	OperandAbsoluteAddress
	OperandRelativeAddress
)

// Operand is one of Immediate(Word), Register(index), AbsoluteAddress(int),
// RelativeAddress(register_index, displacement) or Empty. Only the fields
// relevant to Kind are meaningful.
type Operand struct {
	Kind         OperandKind
	Immediate    Word
	Register     int
	Address      int
	RelativeTo   int
	Displacement int
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandImmediate:
		switch o.Immediate.Kind() {
		case KindInt:
			return fmt.Sprintf("<int>%d", int32(o.Immediate.Bits()))
		case KindChar:
			return fmt.Sprintf("<char>%d", int32(o.Immediate.Bits()))
		case KindFloat:
			return fmt.Sprintf("<float>%v", o.Immediate.Read().F)
		case KindLogic:
			if o.Immediate.Read().NonZero() {
				return "<logic>1"
			}
			return "<logic>0"
		}
		return "<?>"
	case OperandRegister:
		return registerName(o.Register)
	case OperandAbsoluteAddress:
		return fmt.Sprintf("M[%d]", o.Address)
	case OperandRelativeAddress:
		if o.Displacement == 0 {
			return fmt.Sprintf("M[%s]", registerName(o.RelativeTo))
		}
		sign := "+"
		disp := o.Displacement
		if disp < 0 {
			sign = "-"
			disp = -disp
		}
		return fmt.Sprintf("M[%s %s %d]", registerName(o.RelativeTo), sign, disp)
	default:
		return ""
	}
}

// Instruction is an opcode plus exactly three operand slots, unused ones
// tagged Empty. Line is the 1-based source line the instruction was
// decoded from, kept only for diagnostics (parse errors quote it; the
// debug console's `program` command echoes it).
type Instruction struct {
	Op      Opcode
	A, B, C Operand
	Line    int
}

// String renders an Instruction back to its canonical textual form, e.g.
// "ADD <int>2 <int>3 R0". This is the disassembly-echo behavior the
// original interpreter's main loop performs on every parsed line.
func (in Instruction) String() string {
	parts := []string{in.Op.String()}
	for _, operand := range []Operand{in.A, in.B, in.C} {
		if operand.Kind == OperandEmpty {
			break
		}
		parts = append(parts, operand.String())
	}
	return strings.Join(parts, " ")
}
