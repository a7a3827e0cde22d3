// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package opcode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Opcode is a single bytecode instruction byte.
type Opcode byte

const (
	STOP      = Opcode(0x00)
	POP_TOP   = Opcode(0x01)
	ROT_TWO   = Opcode(0x02)
	ROT_THREE = Opcode(0x03)
	DUP_TOP   = Opcode(0x04)
	ROT_FOUR  = Opcode(0x05)
	NOP       = Opcode(0x09)

	BINARY_ADD = Opcode(0x17)
	BINARY_SUB = Opcode(0x18)
	BINARY_MUL = Opcode(0x19)
	BINARY_DIV = Opcode(0x1a)
	BINARY_SHL = Opcode(0x1b)
	BINARY_SHR = Opcode(0x1c)
	BINARY_AND = Opcode(0x1d)
	BINARY_OR  = Opcode(0x1e)
	BINARY_XOR = Opcode(0x1f)

	INPLACE_ADD = Opcode(0x20)
	INPLACE_SUB = Opcode(0x21)
	INPLACE_MUL = Opcode(0x22)
	INPLACE_DIV = Opcode(0x23)
	INPLACE_SHL = Opcode(0x24)
	INPLACE_SHR = Opcode(0x25)
	INPLACE_AND = Opcode(0x26)
	INPLACE_OR  = Opcode(0x27)
	INPLACE_XOR = Opcode(0x28)

	PRINT = Opcode(0x59)

	BUILD_CLASS    = Opcode(0x70)
	MAKE_METHOD    = Opcode(0x71)
	POP_BLOCK      = Opcode(0x72)
	RETURN_VALUE   = Opcode(0x73)
	BREAK_LOOP     = Opcode(0x74)
	BREAKELSE_LOOP = Opcode(0x75)
	USE            = Opcode(0x7e)
	IMPORT         = Opcode(0x7f)

	// One operand.
	STORE_ID      = Opcode(0x80)
	LOAD_CONST    = Opcode(0x81)
	LOAD_ID       = Opcode(0x82)
	JUMP_FORWARD  = Opcode(0x83)
	JUMP_IF_TRUE  = Opcode(0x84)
	JUMP_IF_FALSE = Opcode(0x85)
	JUMP_ABSOLUTE = Opcode(0x86)
	DUP_TOPX      = Opcode(0x87)
	LOAD_GLOBAL   = Opcode(0x88)
	STORE_GLOBAL  = Opcode(0x89)
	DELETE_GLOBAL = Opcode(0x8a)
	SETUP_LOOP    = Opcode(0x90)
	CONTINUE_LOOP = Opcode(0x92)
	COMPARE_OP    = Opcode(0x95)
	SETUP_FINALLY = Opcode(0x96)
	SETUP_EXCEPT  = Opcode(0x97)
	END_FINALLY   = Opcode(0x98)

	// Two operands.
	CALL_METHOD = Opcode(0xc0)
	RESERVED    = Opcode(0xff)
)

// OPERAND_SIZE is the encoded size of a single operand.
const OPERAND_SIZE = 2

// Addressing is the way a label operand is resolved.
type Addressing int

const (
	ADDR_NONE     = Addressing(0) // Does not take a label.
	ADDR_RELATIVE = Addressing(1) // Distance from the end of the instruction.
	ADDR_ABSOLUTE = Addressing(2) // Offset from the start of the frame.
)

func (ad Addressing) String() string {
	switch ad {
	case ADDR_RELATIVE:
		return "relative"
	case ADDR_ABSOLUTE:
		return "absolute"
	default:
		return "none"
	}
}

// names maps each opcode to its mnemonic.
var names = map[Opcode]string{
	STOP:           "STOP",
	POP_TOP:        "POP_TOP",
	ROT_TWO:        "ROT_TWO",
	ROT_THREE:      "ROT_THREE",
	DUP_TOP:        "DUP_TOP",
	ROT_FOUR:       "ROT_FOUR",
	NOP:            "NOP",
	BINARY_ADD:     "BINARY_ADD",
	BINARY_SUB:     "BINARY_SUB",
	BINARY_MUL:     "BINARY_MUL",
	BINARY_DIV:     "BINARY_DIV",
	BINARY_SHL:     "BINARY_SHL",
	BINARY_SHR:     "BINARY_SHR",
	BINARY_AND:     "BINARY_AND",
	BINARY_OR:      "BINARY_OR",
	BINARY_XOR:     "BINARY_XOR",
	INPLACE_ADD:    "INPLACE_ADD",
	INPLACE_SUB:    "INPLACE_SUB",
	INPLACE_MUL:    "INPLACE_MUL",
	INPLACE_DIV:    "INPLACE_DIV",
	INPLACE_SHL:    "INPLACE_SHL",
	INPLACE_SHR:    "INPLACE_SHR",
	INPLACE_AND:    "INPLACE_AND",
	INPLACE_OR:     "INPLACE_OR",
	INPLACE_XOR:    "INPLACE_XOR",
	PRINT:          "PRINT",
	BUILD_CLASS:    "BUILD_CLASS",
	MAKE_METHOD:    "MAKE_METHOD",
	POP_BLOCK:      "POP_BLOCK",
	RETURN_VALUE:   "RETURN_VALUE",
	BREAK_LOOP:     "BREAK_LOOP",
	BREAKELSE_LOOP: "BREAKELSE_LOOP",
	USE:            "USE",
	IMPORT:         "IMPORT",
	STORE_ID:       "STORE_ID",
	LOAD_CONST:     "LOAD_CONST",
	LOAD_ID:        "LOAD_ID",
	JUMP_FORWARD:   "JUMP_FORWARD",
	JUMP_IF_TRUE:   "JUMP_IF_TRUE",
	JUMP_IF_FALSE:  "JUMP_IF_FALSE",
	JUMP_ABSOLUTE:  "JUMP_ABSOLUTE",
	DUP_TOPX:       "DUP_TOPX",
	LOAD_GLOBAL:    "LOAD_GLOBAL",
	STORE_GLOBAL:   "STORE_GLOBAL",
	DELETE_GLOBAL:  "DELETE_GLOBAL",
	SETUP_LOOP:     "SETUP_LOOP",
	CONTINUE_LOOP:  "CONTINUE_LOOP",
	COMPARE_OP:     "COMPARE_OP",
	SETUP_FINALLY:  "SETUP_FINALLY",
	SETUP_EXCEPT:   "SETUP_EXCEPT",
	END_FINALLY:    "END_FINALLY",
	CALL_METHOD:    "CALL_METHOD",
	RESERVED:       "RESERVED",
}

// aliases are short alternate mnemonics.
var aliases = map[string]Opcode{
	"PUSH":  LOAD_CONST,
	"POP":   POP_TOP,
	"DUP":   DUP_TOP,
	"ADD":   BINARY_ADD,
	"SUB":   BINARY_SUB,
	"MUL":   BINARY_MUL,
	"DIV":   BINARY_DIV,
	"LOAD":  LOAD_ID,
	"STORE": STORE_ID,
	"CMP":   COMPARE_OP,
	"JMP":   JUMP_ABSOLUTE,
	"JT":    JUMP_IF_TRUE,
	"JF":    JUMP_IF_FALSE,
	"RET":   RETURN_VALUE,
}

// mnemonics is the reverse of names plus the aliases, built once at startup.
var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(names)+len(aliases))
	for op, name := range names {
		m[name] = op
	}
	for alias, op := range aliases {
		m[alias] = op
	}
	return m
}()

// addressing lists the opcodes that accept a label operand.
var addressing = map[Opcode]Addressing{
	JUMP_FORWARD:  ADDR_RELATIVE,
	JUMP_IF_TRUE:  ADDR_RELATIVE,
	JUMP_IF_FALSE: ADDR_RELATIVE,
	SETUP_LOOP:    ADDR_RELATIVE,
	SETUP_FINALLY: ADDR_RELATIVE,
	SETUP_EXCEPT:  ADDR_RELATIVE,
	JUMP_ABSOLUTE: ADDR_ABSOLUTE,
	CONTINUE_LOOP: ADDR_ABSOLUTE,
}

// Comparison maps the comparison mode keywords to their operand values.
var Comparison = map[string]uint16{
	"EQ":  0,
	"NE":  1,
	"LT":  2,
	"GT":  3,
	"LE":  4,
	"GE":  5,
	"IN":  6,
	"NI":  7,
	"EX":  8,
	"RE":  9,
	"NRE": 10,
}

// LookupComparison finds a comparison keyword without regard to case. An
// OP_ prefix is accepted, so OP_EQ is EQ.
func LookupComparison(word string) (value uint16, ok bool) {
	value, ok = Comparison[strings.TrimPrefix(strings.ToUpper(word), "OP_")]
	return
}

// Lookup finds the opcode and operand count for a mnemonic.
// Mnemonics are matched without regard to case.
func Lookup(mnemonic string) (op Opcode, count int, err error) {
	op, ok := mnemonics[strings.ToUpper(mnemonic)]
	if !ok {
		err = ErrUnknown(mnemonic)
		return
	}

	count = op.Operands()
	return
}

// Operands returns the number of operands, derived from the high bits.
func (op Opcode) Operands() int {
	switch {
	case op&0xc0 == 0xc0:
		return 2
	case op&0x80 == 0x80:
		return 1
	default:
		return 0
	}
}

// Size returns the encoded size of the instruction, in bytes.
func (op Opcode) Size() int {
	return 1 + op.Operands()*OPERAND_SIZE
}

// Addressing returns how a label operand of this opcode is resolved.
func (op Opcode) Addressing() Addressing {
	return addressing[op]
}

// Known returns true if the opcode is in the opcode table.
func (op Opcode) Known() bool {
	_, ok := names[op]
	return ok
}

func (op Opcode) String() string {
	name, ok := names[op]
	if !ok {
		return fmt.Sprintf("OP_%02X", byte(op))
	}
	return name
}

// Encode an instruction. The operand count must match the opcode arity.
func Encode(op Opcode, operands ...uint16) (code []byte, err error) {
	if len(operands) != op.Operands() {
		err = &ErrArity{Opcode: op, Want: op.Operands(), Got: len(operands)}
		return
	}

	code = make([]byte, 1, op.Size())
	code[0] = byte(op)
	for _, opr := range operands {
		code = binary.LittleEndian.AppendUint16(code, opr)
	}

	return
}

// Instruction is a single decoded instruction.
type Instruction struct {
	Offset   int      // Offset of the opcode byte.
	Opcode   Opcode   // Instruction opcode.
	Operands []uint16 // Operand values, in order.
}

// Size returns the encoded size of the instruction.
func (in Instruction) Size() int {
	return in.Opcode.Size()
}

// Next returns the offset of the byte following the instruction.
func (in Instruction) Next() int {
	return in.Offset + in.Size()
}

// Decode the instruction at offset in code.
func Decode(code []byte, offset int) (in Instruction, err error) {
	if offset < 0 || offset >= len(code) {
		err = ErrTruncated(offset)
		return
	}

	in.Offset = offset
	in.Opcode = Opcode(code[offset])
	if in.Next() > len(code) {
		err = ErrTruncated(offset)
		return
	}

	pos := offset + 1
	for range in.Opcode.Operands() {
		in.Operands = append(in.Operands, binary.LittleEndian.Uint16(code[pos:]))
		pos += OPERAND_SIZE
	}

	return
}
