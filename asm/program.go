package asm

import (
	"fmt"
	"io"
	"iter"

	"github.com/ezrec/sfbc/bytecode"
)

// Program is the result of an assembly: its frames, in declaration order.
type Program struct {
	Frames []*Frame
}

// Main returns the main frame.
func (prog *Program) Main() *Frame {
	return prog.Frame(MAIN_FRAME)
}

// Code returns the code object of the main frame. Other frames are
// reachable through its code constants.
func (prog *Program) Code() *bytecode.Code {
	main := prog.Main()
	if main == nil {
		return nil
	}
	return main.Code
}

// Frame returns a frame by name, or nil if there is none.
func (prog *Program) Frame(name string) *Frame {
	for _, frame := range prog.Frames {
		if frame.Name == name {
			return frame
		}
	}
	return nil
}

// Debug locates the instruction containing a byte offset.
type Debug struct {
	*Opcode
	Frame string // Frame name.
	Index int    // Byte index within the instruction.
}

// Debug returns the instruction of a frame containing offset. The Opcode
// is nil if no instruction contains it.
func (prog *Program) Debug(name string, offset int) (dbg Debug) {
	frame := prog.Frame(name)
	if frame == nil {
		return
	}

	for n, op := range frame.Opcodes {
		if offset >= op.Offset && offset < op.Offset+len(op.Bytes) {
			dbg = Debug{
				Opcode: &frame.Opcodes[n],
				Frame:  name,
				Index:  offset - op.Offset,
			}
			break
		}
	}

	return
}

// Listing iterates over every assembled instruction, by frame.
func (prog *Program) Listing() iter.Seq2[*Frame, *Opcode] {
	return func(yield func(*Frame, *Opcode) bool) {
		for _, frame := range prog.Frames {
			for n := range frame.Opcodes {
				if !yield(frame, &frame.Opcodes[n]) {
					return
				}
			}
		}
	}
}

// WriteListing writes the assembly listing: one row per instruction, with
// its frame, offset, bytes, source line and source words.
func (prog *Program) WriteListing(w io.Writer) (err error) {
	for frame, op := range prog.Listing() {
		_, err = fmt.Fprintf(w, "%-8s %04X  %-15s %5d  %s\n",
			frame.Name, op.Offset, fmt.Sprintf("% X", op.Bytes), op.LineNo, joinWords(op.Words))
		if err != nil {
			return
		}
	}

	return
}
