// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package dump

import (
	"fmt"
	"strconv"

	"github.com/ezrec/sfbc/bytecode"
	"github.com/ezrec/sfbc/opcode"
)

// Instruction is a disassembled instruction.
type Instruction struct {
	Offset   int      `json:"offset" cbor:"offset"`
	LineNo   int      `json:"lineno,omitempty" cbor:"lineno,omitempty"`
	Mnemonic string   `json:"mnemonic" cbor:"mnemonic"`
	Operands []uint16 `json:"operands,omitempty" cbor:"operands,omitempty"`
	Comment  string   `json:"comment,omitempty" cbor:"comment,omitempty"`
}

// identifierOps take an identifier pool index as their first operand.
var identifierOps = map[opcode.Opcode]bool{
	opcode.STORE_ID:      true,
	opcode.LOAD_ID:       true,
	opcode.LOAD_GLOBAL:   true,
	opcode.STORE_GLOBAL:  true,
	opcode.DELETE_GLOBAL: true,
	opcode.CALL_METHOD:   true,
}

// comparisonName returns the keyword of a comparison operand.
func comparisonName(value uint16) string {
	for name, cmp := range opcode.Comparison {
		if cmp == value {
			return name
		}
	}
	return ""
}

// ConstantString renders a constant on a single line.
func ConstantString(c bytecode.Constant) string {
	switch c.Kind {
	case bytecode.CONST_STRING:
		return strconv.Quote(string(c.String))
	case bytecode.CONST_NUMERICAL:
		return strconv.FormatInt(int64(c.Number), 10)
	case bytecode.CONST_CODE:
		if c.Code == nil {
			return "<code>"
		}
		return fmt.Sprintf("<code %d bytes>", len(c.Code.Instructions))
	default:
		return c.Kind.String()
	}
}

// annotate describes what the first operand of an instruction refers to.
func annotate(code *bytecode.Code, in opcode.Instruction) string {
	if len(in.Operands) == 0 {
		return ""
	}

	value := int(in.Operands[0])

	switch {
	case in.Opcode == opcode.LOAD_CONST:
		if value >= len(code.Constants) {
			return f("constant %d missing", value)
		}
		return ConstantString(code.Constants[value])
	case identifierOps[in.Opcode]:
		if value >= len(code.Identifiers) {
			return f("identifier %d missing", value)
		}
		return code.Identifiers[value]
	case in.Opcode == opcode.COMPARE_OP:
		return comparisonName(in.Operands[0])
	}

	switch in.Opcode.Addressing() {
	case opcode.ADDR_RELATIVE:
		return fmt.Sprintf("-> %04X", in.Next()+int(int16(in.Operands[0])))
	case opcode.ADDR_ABSOLUTE:
		return fmt.Sprintf("-> %04X", value)
	}

	return ""
}

// Disassemble decodes the instruction stream of a code object. A truncated
// final instruction is listed with its error as the comment.
func Disassemble(code *bytecode.Code) (listing []Instruction) {
	lines, _ := code.Lines()

	lineno := 0
	for offset := 0; offset < len(code.Instructions); {
		for len(lines) > 0 && lines[0].Offset <= offset {
			lineno = lines[0].LineNo
			lines = lines[1:]
		}

		in, err := opcode.Decode(code.Instructions, offset)
		if err != nil {
			listing = append(listing, Instruction{
				Offset:   offset,
				LineNo:   lineno,
				Mnemonic: in.Opcode.String(),
				Comment:  err.Error(),
			})
			break
		}

		listing = append(listing, Instruction{
			Offset:   offset,
			LineNo:   lineno,
			Mnemonic: in.Opcode.String(),
			Operands: in.Operands,
			Comment:  annotate(code, in),
		})

		offset = in.Next()
	}

	return
}
