// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package dump

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ezrec/sfbc/bytecode"
)

// PADDING indents each level of nested code.
const PADDING = "      "

// WIDTH is the width of section rules.
const WIDTH = 79

// TIME_LAYOUT formats the header timestamp, in UTC.
const TIME_LAYOUT = "02-01-2006 15:04:05"

// printer writes indented lines, keeping the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// line writes a formatted line at a nesting level.
func (p *printer) line(level int, format string, args ...any) {
	p.write(strings.Repeat(PADDING, level) + fmt.Sprintf(format, args...) + "\n")
}

func (p *printer) blank() {
	p.write("\n")
}

// section writes a titled rule.
func (p *printer) section(level int, title string) {
	head := "-- " + title + " "
	p.line(level, "%s%s", head, strings.Repeat("-", max(WIDTH-len(head), 0)))
}

// end writes a closing rule and a blank line.
func (p *printer) end(level int) {
	p.line(level, "%s", strings.Repeat("-", WIDTH))
	p.blank()
}

// hexdump writes 16 bytes per row, with the row offset and an ASCII column.
func (p *printer) hexdump(level int, data []byte) {
	p.rows(strings.Repeat(PADDING, level)+"  ", data)
}

func (p *printer) rows(prefix string, data []byte) {
	for row := 0; row < len(data); row += 16 {
		chunk := data[row:min(row+16, len(data))]

		var hex, ascii strings.Builder
		for n, b := range chunk {
			fmt.Fprintf(&hex, "%02X ", b)
			if n == 3 || n == 7 || n == 11 {
				hex.WriteByte(' ')
			}
			if b >= 0x20 && b < 0x7f {
				ascii.WriteByte(b)
			} else {
				ascii.WriteByte('.')
			}
		}

		p.write(fmt.Sprintf("%s%04X  %-51s  %s\n", prefix, row, hex.String(), ascii.String()))
	}
}

// Hexdump writes data as rows of 16 bytes, each row prefixed by prefix.
func Hexdump(w io.Writer, data []byte, prefix string) error {
	p := &printer{w: w}
	p.rows(prefix, data)
	return p.err
}

func (p *printer) header(hdr *bytecode.Header) {
	stamp := time.Unix(int64(hdr.Timestamp), 0).UTC().Format(TIME_LAYOUT)

	p.section(0, "Header")
	p.line(0, "  Magic                : 0x%08X", hdr.Magic)
	p.line(0, "  Sourcefile timestamp : %s", stamp)
	p.line(0, "  Flags                : 0x%08X", hdr.Flags)
	p.blank()
	p.line(0, "  Bytecode len         : %5d  (0x%08X)", hdr.PayloadLength, hdr.PayloadLength)
	p.line(0, "  Bytecode uncomp len  : %5d  (0x%08X)", hdr.PayloadLengthUncompressed, hdr.PayloadLengthUncompressed)
	p.line(0, "  Bytecode off         : %5d  (0x%08X)", hdr.PayloadOffset, hdr.PayloadOffset)
	p.line(0, "  Signature len        : %5d  (0x%08X)", hdr.SignatureLength, hdr.SignatureLength)
	p.line(0, "  Signature off        : %5d  (0x%08X)", hdr.SignatureOffset, hdr.SignatureOffset)
	p.end(0)
}

func (p *printer) code(code *bytecode.Code, level int, listing bool) {
	p.section(level, "Bytecode info")
	p.line(level, "  Stack size          : %5d (0x%08X)", code.StackSize, code.StackSize)
	p.line(level, "  Code size           : %5d (0x%08X)", len(code.Instructions), len(code.Instructions))
	p.line(level, "  Constant count      : %5d", len(code.Constants))
	p.line(level, "  Identifier count    : %5d", len(code.Identifiers))
	p.line(level, "  Lineno start        : %5d (0x%08X)", code.LinenoOffset, code.LinenoOffset)
	p.line(level, "  Lineno size         : %5d (0x%08X)", len(code.Lineno), len(code.Lineno))
	p.end(level)

	p.section(level, "Uncompressed bytecode")
	p.hexdump(level, code.Instructions)
	p.end(level)

	if listing {
		p.section(level, "Disassembly")
		for _, in := range Disassemble(code) {
			operands := make([]string, len(in.Operands))
			for n, opr := range in.Operands {
				operands[n] = fmt.Sprintf("%d", opr)
			}
			text := fmt.Sprintf("  %04X %5d  %-14s %-12s", in.Offset, in.LineNo, in.Mnemonic, strings.Join(operands, ", "))
			if len(in.Comment) != 0 {
				text += " ; " + in.Comment
			}
			p.line(level, "%s", strings.TrimRight(text, " "))
		}
		p.end(level)
	}

	p.section(level, "Constants")
	for n, c := range code.Constants {
		switch c.Kind {
		case bytecode.CONST_STRING:
			p.line(level, "  %d: String: %s", n, c.String)
		case bytecode.CONST_NUMERICAL:
			p.line(level, "  %d: Numerical: %d (0x%08X)", n, c.Number, uint32(c.Number))
		case bytecode.CONST_CODE:
			p.line(level, "  %d: Code:", n)
			if c.Code != nil {
				p.code(c.Code, level+1, listing)
			}
		default:
			p.line(level, "  %d: %v", n, c.Kind)
		}
	}
	p.end(level)

	p.section(level, "Identifiers")
	for n, name := range code.Identifiers {
		p.line(level, "  %d: %s", n, name)
	}
	p.end(level)

	p.section(level, "Linenos")
	p.hexdump(level, code.Lineno)
	p.end(level)

	if listing {
		p.section(level, "Line table")
		lines, err := code.Lines()
		for _, entry := range lines {
			p.line(level, "  %04X  line %d", entry.Offset, entry.LineNo)
		}
		if err != nil {
			p.line(level, "  %v", err)
		}
		p.end(level)
	}
}

// Dumper renders containers and code objects.
type Dumper struct {
	Format  Format // Output format.
	Listing bool   // If set, adds disassembly and decoded line tables.
}

// Container renders a decoded container.
func (dm *Dumper) Container(w io.Writer, ct *bytecode.Container) (err error) {
	switch dm.Format {
	case FORMAT_JSON:
		err = encodeJSON(w, NewContainerView(ct, dm.Listing))
	case FORMAT_CBOR:
		err = encodeCBOR(w, NewContainerView(ct, dm.Listing))
	default:
		p := &printer{w: w}
		p.header(&ct.Header)
		if ct.Code != nil {
			p.code(ct.Code, 0, dm.Listing)
		}
		if ct.Signature != nil {
			p.section(0, "Signature")
			p.hexdump(0, ct.Signature)
			p.end(0)
		}
		err = p.err
	}

	return
}

// Code renders a code object, and all nested code objects.
func (dm *Dumper) Code(w io.Writer, code *bytecode.Code) (err error) {
	switch dm.Format {
	case FORMAT_JSON:
		err = encodeJSON(w, NewCodeView(code, dm.Listing))
	case FORMAT_CBOR:
		err = encodeCBOR(w, NewCodeView(code, dm.Listing))
	default:
		p := &printer{w: w}
		p.code(code, 0, dm.Listing)
		err = p.err
	}

	return
}
