package vm

import "fmt"

const registerModulus = 21

// NumRegisterSlots sizes the register file: the original interpreter
// indexes its register array directly by digest mod 21, leaving most
// slots unused — this implementation keeps that sparse-array shape rather
// than a tighter map, since it's the one place the teacher's "address by
// small integer into a fixed array" idiom and the original's hash-indexed
// register file agree.
const NumRegisterSlots = registerModulus

var (
	RegEIP = hashMnemonic("EIP", registerModulus)
	RegESP = hashMnemonic("ESP", registerModulus)
	RegEBP = hashMnemonic("EBP", registerModulus)
	RegEHM = hashMnemonic("EHM", registerModulus)
	RegERV = hashMnemonic("ERV", registerModulus)
	RegR0  = hashMnemonic("R0", registerModulus)
	RegR1  = hashMnemonic("R1", registerModulus)
	RegR2  = hashMnemonic("R2", registerModulus)
)

var registerMnemonics = map[string]int{
	"EIP": RegEIP, "ESP": RegESP, "EBP": RegEBP, "EHM": RegEHM,
	"ERV": RegERV, "R0": RegR0, "R1": RegR1, "R2": RegR2,
}

var registerIndexToMnemonic map[int]string

func checkRegisterDigestsDistinct() {
	registerIndexToMnemonic = make(map[int]string, len(registerMnemonics))
	for mnemonic, idx := range registerMnemonics {
		if prior, collided := registerIndexToMnemonic[idx]; collided {
			panic(fmt.Sprintf("compita: register digest collision between %q and %q (both hash to %d) — registerModulus must change", mnemonic, prior, idx))
		}
		registerIndexToMnemonic[idx] = mnemonic
	}
}

// RegisterIndex computes the digest a register mnemonic resolves to,
// whether or not the mnemonic is one of the 8 recognized ones — a program
// may legally name any mnemonic that happens to land on an unused slot,
// per the distilled spec; it simply has no startup semantics.
func RegisterIndex(mnemonic string) int {
	return hashMnemonic(mnemonic, registerModulus)
}

// registerName renders a register index back to its mnemonic for
// diagnostics, when the index corresponds to one of the named registers.
func registerName(idx int) string {
	if name, ok := registerIndexToMnemonic[idx]; ok {
		return name
	}
	return fmt.Sprintf("reg(%d)", idx)
}
