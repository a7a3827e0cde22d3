package opcode

import (
	"github.com/ezrec/sfbc/translate"
)

var f = translate.From

// ErrUnknown is returned for a mnemonic not in the opcode table.
type ErrUnknown string

func (err ErrUnknown) Error() string {
	return f("opcode %v unknown", string(err))
}

// ErrArity is returned when an instruction has the wrong operand count.
type ErrArity struct {
	Opcode Opcode
	Want   int
	Got    int
}

func (err *ErrArity) Error() string {
	return f("%v requires %d operands, %d given", err.Opcode.String(), err.Want, err.Got)
}

// ErrTruncated is returned when an instruction runs past the end of the code.
type ErrTruncated int

func (err ErrTruncated) Error() string {
	return f("instruction at offset %#04x truncated", int(err))
}
