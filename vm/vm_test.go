package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func mustParse(t *testing.T, source string) []Instruction {
	t.Helper()
	instrs, err := Parse(strings.NewReader(source))
	assert(t, err == nil, "unexpected parse error: %v", err)
	return instrs
}

func runProgram(t *testing.T, source string) (string, error) {
	t.Helper()
	instrs := mustParse(t, source)
	var out bytes.Buffer
	engine := NewEngineWithIO(instrs, &out, strings.NewReader(""))
	err := engine.Run()
	return out.String(), err
}

func TestHashMnemonicOpcodesDistinct(t *testing.T) {
	seen := make(map[int]string, len(mnemonicToOpcode))
	for mnemonic, op := range mnemonicToOpcode {
		if prior, ok := seen[int(op)]; ok {
			t.Fatalf("digest collision between %q and %q", mnemonic, prior)
		}
		seen[int(op)] = mnemonic
	}
}

func TestHashMnemonicRegistersDistinct(t *testing.T) {
	seen := make(map[int]string, len(registerMnemonics))
	for mnemonic, idx := range registerMnemonics {
		if prior, ok := seen[idx]; ok {
			t.Fatalf("digest collision between %q and %q", mnemonic, prior)
		}
		seen[idx] = mnemonic
	}
}

func TestWordReadWriteCoercion(t *testing.T) {
	w := NewInt(5)
	w.WriteNumeric(Number{F: 3.9})
	assert(t, w.Read().AsInt64() == 3, "expected write-coercion to truncate toward zero, got %d", w.Read().AsInt64())

	b := NewLogic(false)
	b.WriteNumeric(Number{F: 2})
	assert(t, b.Read().NonZero(), "expected nonzero write to coerce Logic to true")
}

func TestWordCastReinterpretsBits(t *testing.T) {
	w := NewFloat(1.5)
	w.SetKind(KindInt)
	assert(t, w.Kind() == KindInt, "expected CAST-style retag to change kind")
	assert(t, w.Bits() == NewFloat(1.5).Bits(), "expected CAST to leave bit pattern untouched")
}

func TestGeneralizeKindSelection(t *testing.T) {
	assert(t, Generalize(NewInt(1), NewFloat(2)) == KindFloat, "either operand float generalizes to float")
	assert(t, Generalize(NewLogic(true), NewLogic(false)) == KindLogic, "both logic generalizes to logic")
	assert(t, Generalize(NewInt(1), NewChar(2)) == KindInt, "int/char generalizes to int")
}

func TestParseRejectsMalformedLines(t *testing.T) {
	_, err := Parse(strings.NewReader("add R0 R1"))
	assert(t, err != nil, "expected unknown-lowercase mnemonic add to fail to parse")

	var perr *ParseError
	assert(t, errors.As(err, &perr), "expected a *ParseError, got %T", err)
}

func TestParseRelativeAddressDisplacement(t *testing.T) {
	instrs := mustParse(t, "PUSH M[ESP + 4]")
	assert(t, instrs[0].A.Kind == OperandRelativeAddress, "expected relative address operand")
	assert(t, instrs[0].A.Displacement == 4, "expected displacement 4, got %d", instrs[0].A.Displacement)
}

func TestScenarioAddAndWrite(t *testing.T) {
	out, err := runProgram(t, "ADD <int>2 <int>3 R0\nWRITE R0\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "5", "expected stdout %q, got %q", "5", out)
}

func TestScenarioGeneralizeToFloat(t *testing.T) {
	out, err := runProgram(t, "ASS <float>1.5 R0\nASS <int>2 R1\nADD R0 R1 R2\nWRITE R2\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "3.5", "expected stdout %q, got %q", "3.5", out)
}

func TestScenarioStackPushPop(t *testing.T) {
	out, err := runProgram(t, "PUSH <int>7\nPUSH <int>8\nPOP R0\nPOP R1\nWRITE R0\nWRITE R1\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "87", "expected stdout %q, got %q", "87", out)
}

func TestScenarioJumpOnZero(t *testing.T) {
	out, err := runProgram(t, "ASS <int>0 R0\nJEQ R0 <int>4\nWRITE <int>1\nHALT\nWRITE <int>2\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "2", "expected stdout %q, got %q", "2", out)
}

func TestScenarioCallAndReturn(t *testing.T) {
	out, err := runProgram(t, "ASS <int>3 R0\nCALL <int>3\nHALT\nMULT R0 R0 R0\nWRITE R0\nRET\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "9", "expected stdout %q, got %q", "9", out)
}

func TestScenarioLogicalAnd(t *testing.T) {
	out, err := runProgram(t, "ASS <logic>1 R0\nASS <logic>0 R1\nAND R0 R1 R2\nWRITE R2\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "0", "expected stdout %q, got %q", "0", out)
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, err := runProgram(t, "DIV <int>1 <int>0 R0\nHALT\n")
	var rerr *RuntimeError
	assert(t, errors.As(err, &rerr), "expected a *RuntimeError, got %T", err)
	assert(t, errors.Is(rerr, ErrDivisionByZero), "expected ErrDivisionByZero, got %v", rerr)
}

func TestStackUnderflowIsRuntimeError(t *testing.T) {
	// ESP starts at RAMSize-1 (the topmost occupied cell is still in
	// range), so the first POP succeeds and only bumps ESP to RAMSize;
	// the second POP is the one that actually underflows.
	_, err := runProgram(t, "POP R0\nPOP R0\nHALT\n")
	var rerr *RuntimeError
	assert(t, errors.As(err, &rerr), "expected a *RuntimeError, got %T", err)
	assert(t, errors.Is(rerr, ErrStackUnderflow), "expected ErrStackUnderflow, got %v", rerr)
}

func TestSelfReferentialAddDoesNotCorruptOperands(t *testing.T) {
	out, err := runProgram(t, "ASS <int>4 R0\nADD R0 R0 R0\nWRITE R0\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "8", "expected stdout %q, got %q", "8", out)
}

func TestCoercionConsistencyGeneralizeBeforeWrite(t *testing.T) {
	out, err := runProgram(t, "ADD <int>2 <float>3.5 R0\nWRITE R0\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "5.5", "expected stdout %q, got %q", "5.5", out)
}

func TestCastReinterpretsRawBitsThroughMove(t *testing.T) {
	// MOV raw-copies the Float kind and bits into R0 (ASS would
	// write-coerce the immediate into R0's pre-existing Int kind instead).
	// CAST then retags R0 as Int without touching a single bit, so WRITE
	// prints the float's IEEE-754 bit pattern as an integer.
	out, err := runProgram(t, "MOV <float>2.0 R0\nCAST R2 R0\nWRITE R0\nHALT\n")
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, out == "1073741824", "expected stdout %q, got %q", "1073741824", out)
}
