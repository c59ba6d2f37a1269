package vm_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"compita/vm"
)

func runSource(source string) (string, error) {
	instrs, err := vm.Parse(strings.NewReader(source))
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	engine := vm.NewEngineWithIO(instrs, &out, strings.NewReader(""))
	err = engine.Run()
	return out.String(), err
}

var _ = Describe("end-to-end scenarios", func() {
	It("adds two immediates and writes the result", func() {
		out, err := runSource("ADD <int>2 <int>3 R0\nWRITE R0\nHALT\n")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("5"))
	})

	It("generalizes to Float when either operand is Float", func() {
		out, err := runSource("ASS <float>1.5 R0\nASS <int>2 R1\nADD R0 R1 R2\nWRITE R2\nHALT\n")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("3.5"))
	})

	It("pushes and pops in last-in-first-out order", func() {
		out, err := runSource("PUSH <int>7\nPUSH <int>8\nPOP R0\nPOP R1\nWRITE R0\nWRITE R1\nHALT\n")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("87"))
	})

	It("jumps to the target instruction when the condition holds", func() {
		out, err := runSource("ASS <int>0 R0\nJEQ R0 <int>4\nWRITE <int>1\nHALT\nWRITE <int>2\nHALT\n")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("2"))
	})

	It("pushes the post-increment EIP as the return address for CALL", func() {
		out, err := runSource("ASS <int>3 R0\nCALL <int>3\nHALT\nMULT R0 R0 R0\nWRITE R0\nRET\n")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("9"))
	})

	It("evaluates logical AND over two Logic operands", func() {
		out, err := runSource("ASS <logic>1 R0\nASS <logic>0 R1\nAND R0 R1 R2\nWRITE R2\nHALT\n")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("0"))
	})

	DescribeTable("runtime errors abort the engine",
		func(source string, wantSentinel error) {
			_, err := runSource(source)
			Expect(err).NotTo(BeNil())
			var rerr *vm.RuntimeError
			Expect(err).To(BeAssignableToTypeOf(rerr))
			Expect(err).To(MatchError(wantSentinel))
		},
		Entry("division by zero", "DIV <int>1 <int>0 R0\nHALT\n", vm.ErrDivisionByZero),
		Entry("modulo by zero", "MOD <int>1 <int>0 R0\nHALT\n", vm.ErrDivisionByZero),
		Entry("stack underflow", "POP R0\nPOP R0\nHALT\n", vm.ErrStackUnderflow),
		Entry("unknown opcode at dispatch", "XQZ R0 R1 R2\nHALT\n", vm.ErrUnknownOpcode),
	)

	It("rejects a malformed source line at parse time", func() {
		_, err := vm.Parse(strings.NewReader("add R0 R1\n"))
		Expect(err).NotTo(BeNil())
		var perr *vm.ParseError
		Expect(err).To(BeAssignableToTypeOf(perr))
	})

	It("CAST retags a Word and reinterprets its existing bits, leaving them untouched", func() {
		// MOV raw-copies float 2.0's kind and bits (0x40000000 =
		// 1073741824) into R0 untouched (ASS would write-coerce the
		// immediate into R0's pre-existing Int kind instead). CAST then
		// retags R0 as Int (R2 supplies the Int kind) without altering a
		// single bit, so reading R0 now yields the float's raw bit
		// pattern as an integer.
		out, err := runSource("MOV <float>2.0 R0\nCAST R2 R0\nWRITE R0\nHALT\n")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("1073741824"))
	})
})
