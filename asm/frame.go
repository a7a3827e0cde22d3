// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"encoding/binary"
	"slices"

	"github.com/ezrec/sfbc/bytecode"
	"github.com/ezrec/sfbc/opcode"
)

// MAIN_FRAME is the name of the implicit first frame.
const MAIN_FRAME = "main"

// DEFAULT_STACK_SIZE is the stack size hint used when none is given.
const DEFAULT_STACK_SIZE = 42

// Opcode is a line of assembled code with its source location and the
// bytes generated for it.
type Opcode struct {
	LineNo    int
	Offset    int
	Words     []string
	Bytes     []byte
	LinkLabel string
}

// fixup is a label operand patched once the frame is complete.
type fixup struct {
	opcode  int // Index into Frame.Opcodes.
	operand int // Offset of the operand bytes.
	label   string
}

// link is a code constant bound to a frame once all frames are complete.
type link struct {
	opcode int // Index into Frame.Opcodes.
	index  int // Constant pool index.
	frame  string
}

// Frame is a named, independently assembled unit of instructions.
type Frame struct {
	Name      string
	LineNo    int // Line of the frame marker, 0 for the implicit main frame.
	StackSize uint32
	Label     map[string]int // Map of labels to instruction offsets.
	Opcodes   []Opcode       // Assembled instructions, in order.
	Code      *bytecode.Code // Filled once the frame is complete.

	constants   bytecode.ConstantPool
	identifiers bytecode.IdentifierPool
	code        []byte
	fixups      []fixup
	links       []link
}

func newFrame(name string, lineno int) *Frame {
	return &Frame{
		Name:   name,
		LineNo: lineno,
		Label:  make(map[string]int, 16),
		Code:   &bytecode.Code{},
	}
}

// currentIp gets the offset of the next instruction.
func (frame *Frame) currentIp() int {
	return len(frame.code)
}

// empty returns true if nothing has been assembled into the frame.
func (frame *Frame) empty() bool {
	return len(frame.Opcodes) == 0 && len(frame.Label) == 0 && frame.StackSize == 0
}

// emit appends an instruction.
func (frame *Frame) emit(op Opcode) {
	frame.code = append(frame.code, op.Bytes...)
	frame.Opcodes = append(frame.Opcodes, op)
}

// fail locates an error at one of the frame opcodes.
func (frame *Frame) fail(index int, err error) error {
	op := &frame.Opcodes[index]
	return &ErrSyntax{LineNo: op.LineNo, Line: joinWords(op.Words), Err: err}
}

// finish resolves the label fixups and builds the code object.
func (frame *Frame) finish(stackSize uint32) (err error) {
	for _, fx := range frame.fixups {
		op := &frame.Opcodes[fx.opcode]

		target, ok := frame.Label[fx.label]
		if !ok {
			err = frame.fail(fx.opcode, ErrLabelMissing(fx.label))
			return
		}

		code := opcode.Opcode(frame.code[op.Offset])
		value := target
		low, high := 0, 0xffff
		if code.Addressing() == opcode.ADDR_RELATIVE {
			// Relative to the byte after the instruction.
			value = target - (op.Offset + code.Size())
			low, high = -0x8000, 0x7fff
		}
		if value < low || value > high {
			err = frame.fail(fx.opcode, ErrOperandRange)
			return
		}

		binary.LittleEndian.PutUint16(frame.code[fx.operand:], uint16(value))
		op.Bytes = slices.Clone(frame.code[op.Offset : op.Offset+code.Size()])
	}

	if frame.StackSize != 0 {
		stackSize = frame.StackSize
	}

	lines := make([]bytecode.LineEntry, 0, len(frame.Opcodes))
	for _, op := range frame.Opcodes {
		lines = append(lines, bytecode.LineEntry{Offset: op.Offset, LineNo: op.LineNo})
	}
	start, table := bytecode.EncodeLineTable(lines)

	*frame.Code = bytecode.Code{
		StackSize:    stackSize,
		Instructions: slices.Clone(frame.code),
		Constants:    frame.constants.Constants(),
		Identifiers:  frame.identifiers.Identifiers(),
		LinenoOffset: start,
		Lineno:       table,
	}

	return
}

// reference binds a code constant to a frame, by name.
func (frame *Frame) reference(name string, index int) (pool int, err error) {
	if len(name) == 0 {
		err = ErrFrameSyntax
		return
	}

	pool = frame.constants.Defer(name)
	frame.links = append(frame.links, link{opcode: index, index: pool, frame: name})
	return
}
