package vm

import (
	"fmt"
	"strings"
)

// read implements READ A: one whitespace-delimited value of A's current
// kind is consumed from standard input and stored into A, preserving its
// kind. Int and Logic read a decimal integer, Float a decimal number, Char
// a single character with no quoting.
func (e *Engine) read(instr Instruction) error {
	wa, err := e.resolve(instr.A)
	if err != nil {
		return err
	}

	switch wa.Kind() {
	case KindChar:
		r, _, err := e.stdin.ReadRune()
		for err == nil && isSpace(r) {
			r, _, err = e.stdin.ReadRune()
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		wa.WriteNumeric(Number{F: float64(r)})
	case KindFloat:
		tok, err := e.readToken()
		if err != nil {
			return err
		}
		var f float64
		if _, scanErr := fmt.Sscanf(tok, "%g", &f); scanErr != nil {
			return fmt.Errorf("%w: malformed float input %q", ErrIO, tok)
		}
		wa.WriteNumeric(Number{F: f, IsFloat: true})
	default: // KindInt, KindLogic
		tok, err := e.readToken()
		if err != nil {
			return err
		}
		var n int64
		if _, scanErr := fmt.Sscanf(tok, "%d", &n); scanErr != nil {
			return fmt.Errorf("%w: malformed integer input %q", ErrIO, tok)
		}
		wa.WriteNumeric(Number{F: float64(n)})
	}
	return nil
}

// readToken consumes and discards leading whitespace, then reads a
// contiguous run of non-whitespace bytes as one whitespace-delimited token.
func (e *Engine) readToken() (string, error) {
	for {
		r, _, err := e.stdin.ReadRune()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrIO, err)
		}
		if !isSpace(r) {
			if err := e.stdin.UnreadRune(); err != nil {
				return "", fmt.Errorf("%w: %v", ErrIO, err)
			}
			break
		}
	}

	var sb strings.Builder
	for {
		r, _, err := e.stdin.ReadRune()
		if err != nil {
			if sb.Len() > 0 {
				break
			}
			return "", fmt.Errorf("%w: %v", ErrIO, err)
		}
		if isSpace(r) {
			break
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// write implements WRITE A: A's content is formatted to standard output
// per its kind — decimal for Int/Logic, default-precision decimal for
// Float, a single raw byte for Char.
func (e *Engine) write(instr Instruction) error {
	wa, err := e.resolve(instr.A)
	if err != nil {
		return err
	}

	var writeErr error
	switch wa.Kind() {
	case KindChar:
		writeErr = e.stdout.WriteByte(byte(wa.Bits()))
	case KindFloat:
		_, writeErr = fmt.Fprintf(e.stdout, "%v", float32(wa.Read().F))
	case KindLogic:
		n := int64(0)
		if wa.Read().NonZero() {
			n = 1
		}
		_, writeErr = fmt.Fprintf(e.stdout, "%d", n)
	default: // KindInt
		_, writeErr = fmt.Fprintf(e.stdout, "%d", int32(wa.Bits()))
	}
	if writeErr != nil {
		return fmt.Errorf("%w: %v", ErrIO, writeErr)
	}
	return e.stdout.Flush()
}
