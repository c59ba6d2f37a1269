package vm

import "fmt"

// Opcode identifies an instruction's operation. Values are not assigned by
// hand the way the teacher assigns its Bytecode constants; instead each one
// is the polynomial digest of its mnemonic (see hashMnemonic below), the
// scheme the original interpreter this system was distilled from uses to
// index its instruction handler table. The distilled spec permits replacing
// this with a plain string-keyed map; this implementation keeps the digest
// because it is the one piece of the original's character worth carrying
// forward, with the collision self-check the design notes call for.
type Opcode int

const opcodeModulus = 83

// hashMnemonic computes Σ (char_i × (length − i)) mod m for i in
// [0, length), the polynomial digest used for both opcodes (mod 83) and
// registers (mod 21).
func hashMnemonic(s string, modulus int) int {
	sum := 0
	length := len(s)
	for i := 0; i < length; i++ {
		sum += int(s[i]) * (length - i)
	}
	return sum % modulus
}

var (
	OpADD   = Opcode(hashMnemonic("ADD", opcodeModulus))
	OpSUB   = Opcode(hashMnemonic("SUB", opcodeModulus))
	OpMULT  = Opcode(hashMnemonic("MULT", opcodeModulus))
	OpDIV   = Opcode(hashMnemonic("DIV", opcodeModulus))
	OpMOD   = Opcode(hashMnemonic("MOD", opcodeModulus))
	OpAND   = Opcode(hashMnemonic("AND", opcodeModulus))
	OpOR    = Opcode(hashMnemonic("OR", opcodeModulus))
	OpNOT   = Opcode(hashMnemonic("NOT", opcodeModulus))
	OpNEG   = Opcode(hashMnemonic("NEG", opcodeModulus))
	OpINV   = Opcode(hashMnemonic("INV", opcodeModulus))
	OpCEQ   = Opcode(hashMnemonic("CEQ", opcodeModulus))
	OpCNE   = Opcode(hashMnemonic("CNE", opcodeModulus))
	OpCGT   = Opcode(hashMnemonic("CGT", opcodeModulus))
	OpCGE   = Opcode(hashMnemonic("CGE", opcodeModulus))
	OpCLT   = Opcode(hashMnemonic("CLT", opcodeModulus))
	OpCLE   = Opcode(hashMnemonic("CLE", opcodeModulus))
	OpASS   = Opcode(hashMnemonic("ASS", opcodeModulus))
	OpMOV   = Opcode(hashMnemonic("MOV", opcodeModulus))
	OpCAST  = Opcode(hashMnemonic("CAST", opcodeModulus))
	OpPUSH  = Opcode(hashMnemonic("PUSH", opcodeModulus))
	OpPOP   = Opcode(hashMnemonic("POP", opcodeModulus))
	OpCALL  = Opcode(hashMnemonic("CALL", opcodeModulus))
	OpRET   = Opcode(hashMnemonic("RET", opcodeModulus))
	OpJMP   = Opcode(hashMnemonic("JMP", opcodeModulus))
	OpJEQ   = Opcode(hashMnemonic("JEQ", opcodeModulus))
	OpJNE   = Opcode(hashMnemonic("JNE", opcodeModulus))
	OpREAD  = Opcode(hashMnemonic("READ", opcodeModulus))
	OpWRITE = Opcode(hashMnemonic("WRITE", opcodeModulus))
	OpHALT  = Opcode(hashMnemonic("HALT", opcodeModulus))
)

// mnemonicToOpcode maps every recognized opcode mnemonic to its digest.
// Parsing a program computes the digest of *any* opcode token, known or
// not (mirroring the original: the hash doesn't know about validity); the
// parser looks a mnemonic up here first and hashes it only when it is not
// listed. Rejecting a first token that isn't an uppercase 1..9 character
// mnemonic at all is validateOpcodeMnemonic's job; whether the mnemonic is
// one dispatch actually recognizes is a runtime concern (see dispatch's
// default case).
var mnemonicToOpcode = map[string]Opcode{
	"ADD": OpADD, "SUB": OpSUB, "MULT": OpMULT, "DIV": OpDIV, "MOD": OpMOD,
	"AND": OpAND, "OR": OpOR, "NOT": OpNOT, "NEG": OpNEG, "INV": OpINV,
	"CEQ": OpCEQ, "CNE": OpCNE, "CGT": OpCGT, "CGE": OpCGE, "CLT": OpCLT, "CLE": OpCLE,
	"ASS": OpASS, "MOV": OpMOV, "CAST": OpCAST,
	"PUSH": OpPUSH, "POP": OpPOP,
	"CALL": OpCALL, "RET": OpRET,
	"JMP": OpJMP, "JEQ": OpJEQ, "JNE": OpJNE,
	"READ": OpREAD, "WRITE": OpWRITE, "HALT": OpHALT,
}

var opcodeToMnemonic map[Opcode]string

func init() {
	opcodeToMnemonic = make(map[Opcode]string, len(mnemonicToOpcode))
	for mnemonic, op := range mnemonicToOpcode {
		if prior, collided := opcodeToMnemonic[op]; collided {
			panic(fmt.Sprintf("compita: opcode digest collision between %q and %q (both hash to %d) — opcodeModulus must change", mnemonic, prior, op))
		}
		opcodeToMnemonic[op] = mnemonic
	}
	checkRegisterDigestsDistinct()
}

// String renders an Opcode back to its mnemonic, used by Instruction's
// disassembly form and by diagnostics quoting the current instruction.
func (op Opcode) String() string {
	if s, ok := opcodeToMnemonic[op]; ok {
		return s
	}
	return "?opcode?"
}

// arity reports how many of an instruction's three operand slots this
// opcode's dispatch code actually reads. Dispatch itself does not call it
// (dispatch reads exactly the operands each case needs).
func (op Opcode) arity() int {
	switch op {
	case OpNOT, OpNEG, OpINV, OpASS, OpMOV, OpCAST, OpJEQ, OpJNE:
		return 2
	case OpPUSH, OpPOP, OpCALL, OpJMP, OpREAD, OpWRITE:
		return 1
	case OpRET, OpHALT:
		return 0
	default:
		return 3
	}
}
