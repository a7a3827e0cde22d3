// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package bytecode

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// ConstKind is the kind tag of a constant.
type ConstKind uint8

//go:generate go tool stringer -linecomment -type=ConstKind
const (
	CONST_STRING    = ConstKind(0) // string
	CONST_NUMERICAL = ConstKind(1) // numerical
	CONST_CODE      = ConstKind(2) // code
)

// Constant is a tagged constant pool entry. Only the field selected by
// Kind is meaningful.
type Constant struct {
	Kind   ConstKind
	String []byte // CONST_STRING
	Number int32  // CONST_NUMERICAL
	Code   *Code  // CONST_CODE
}

// StringConstant returns a string constant.
func StringConstant(s []byte) Constant {
	return Constant{Kind: CONST_STRING, String: s}
}

// NumberConstant returns a numerical constant.
func NumberConstant(n int32) Constant {
	return Constant{Kind: CONST_NUMERICAL, Number: n}
}

// CodeConstant returns a nested code constant.
func CodeConstant(code *Code) Constant {
	return Constant{Kind: CONST_CODE, Code: code}
}

// Equal compares two constants by kind and value. Code constants are
// compared structurally.
func (c Constant) Equal(other Constant) bool {
	if c.Kind != other.Kind {
		return false
	}

	switch c.Kind {
	case CONST_STRING:
		return bytes.Equal(c.String, other.String)
	case CONST_NUMERICAL:
		return c.Number == other.Number
	case CONST_CODE:
		return c.Code.Equal(other.Code)
	default:
		return false
	}
}

// key returns the deduplication key of the constant.
func (c Constant) key() string {
	var buf []byte

	buf = append(buf, byte(c.Kind))
	switch c.Kind {
	case CONST_STRING:
		buf = append(buf, c.String...)
	case CONST_NUMERICAL:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Number))
	case CONST_CODE:
		buf = appendCode(buf, c.Code)
	default:
		buf = strconv.AppendInt(buf, int64(c.Kind), 10)
	}

	return string(buf)
}

// payload returns the encoded payload of the constant.
func (c Constant) payload() []byte {
	switch c.Kind {
	case CONST_STRING:
		return c.String
	case CONST_NUMERICAL:
		return binary.LittleEndian.AppendUint32(nil, uint32(c.Number))
	case CONST_CODE:
		return appendCode(nil, c.Code)
	default:
		return nil
	}
}
