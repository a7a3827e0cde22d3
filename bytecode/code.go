// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package bytecode

import (
	"bytes"
	"iter"
	"slices"

	"github.com/ezrec/sfbc/internal"
)

// Code is a compiled or decoded code object.
type Code struct {
	StackSize    uint32     // Stack size hint.
	Instructions []byte     // Instruction stream.
	Constants    []Constant // Constant pool, in index order.
	Identifiers  []string   // Identifier pool, in index order.
	LinenoOffset uint32     // Source line of the first instruction.
	Lineno       []byte     // Encoded line number table.
}

// Equal compares two code objects structurally, including nested code.
func (code *Code) Equal(other *Code) bool {
	if code == nil || other == nil {
		return code == other
	}

	if code.StackSize != other.StackSize ||
		code.LinenoOffset != other.LinenoOffset ||
		!bytes.Equal(code.Instructions, other.Instructions) ||
		!bytes.Equal(code.Lineno, other.Lineno) ||
		!slices.Equal(code.Identifiers, other.Identifiers) {
		return false
	}

	return slices.EqualFunc(code.Constants, other.Constants, Constant.Equal)
}

// Children returns the code objects nested in the constant pool.
func (code *Code) Children() iter.Seq[*Code] {
	return func(yield func(*Code) bool) {
		for _, c := range code.Constants {
			if c.Kind != CONST_CODE || c.Code == nil {
				continue
			}
			if !yield(c.Code) {
				return
			}
		}
	}
}

// Walk visits the code object and every nested code object, depth first,
// with the nesting depth of each.
func (code *Code) Walk() iter.Seq2[int, *Code] {
	return internal.IterTree(code, (*Code).Children)
}

// Lines decodes the line number table.
func (code *Code) Lines() ([]LineEntry, error) {
	return DecodeLineTable(code.LinenoOffset, code.Lineno)
}
