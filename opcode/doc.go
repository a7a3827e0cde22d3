// Package opcode is the opcode table of the stack bytecode.
//
// The operand count of an instruction is not stored in the table; it is
// derived from the two high bits of the opcode byte. An opcode with bit 0x80
// set takes one operand, and one with both 0xC0 bits set takes two. Every
// operand is a 16-bit little-endian value, so moving a mnemonic to another
// opcode byte changes the number of operands it accepts.
package opcode
