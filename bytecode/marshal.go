// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package bytecode

import (
	"encoding/binary"
)

// MAX_DEPTH limits code object nesting.
const MAX_DEPTH = 256

var le = binary.LittleEndian

// MarshalBinary encodes the code object, and all nested code objects.
func (code *Code) MarshalBinary() ([]byte, error) {
	return code.AppendBinary(nil)
}

// AppendBinary appends the encoded code object to b. Nesting deeper than
// MAX_DEPTH is refused, as the decoder would refuse it.
func (code *Code) AppendBinary(b []byte) ([]byte, error) {
	if code != nil {
		for depth := range code.Walk() {
			if depth > MAX_DEPTH {
				return nil, ErrTooDeep
			}
		}
	}

	return appendCode(b, code), nil
}

func appendBytes(buf []byte, data []byte) []byte {
	buf = le.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func appendCode(buf []byte, code *Code) []byte {
	if code == nil {
		code = &Code{}
	}

	buf = le.AppendUint32(buf, code.StackSize)
	buf = appendBytes(buf, code.Instructions)

	buf = le.AppendUint32(buf, uint32(len(code.Constants)))
	for _, c := range code.Constants {
		buf = append(buf, byte(c.Kind))
		buf = appendBytes(buf, c.payload())
	}

	buf = le.AppendUint32(buf, uint32(len(code.Identifiers)))
	for _, name := range code.Identifiers {
		buf = appendBytes(buf, []byte(name))
	}

	buf = le.AppendUint32(buf, code.LinenoOffset)
	buf = appendBytes(buf, code.Lineno)

	return buf
}

// UnmarshalBinary decodes a code object, replacing the receiver contents.
func (code *Code) UnmarshalBinary(data []byte) (err error) {
	decoded, err := Unmarshal(data)
	if err != nil {
		return
	}

	*code = *decoded
	return
}

// Unmarshal decodes a code object that spans all of data.
func Unmarshal(data []byte) (code *Code, err error) {
	dec := &decoder{data: data}

	code, err = dec.code()
	if err != nil {
		return
	}

	if dec.pos != len(dec.data) {
		err = dec.fail(ErrCorruptPayload)
		code = nil
		return
	}

	return
}

// decoder reads a code object from a bounded span of the payload.
type decoder struct {
	data  []byte
	pos   int
	base  int // Offset of data within the payload.
	depth int
}

func (dec *decoder) fail(err error) error {
	return &ErrDecode{Section: SECTION_CODE, Offset: dec.base + dec.pos, Err: err}
}

func (dec *decoder) read(size uint64) (data []byte, err error) {
	if size > uint64(len(dec.data)-dec.pos) {
		err = dec.fail(ErrTruncatedRead)
		return
	}

	data = dec.data[dec.pos : dec.pos+int(size)]
	dec.pos += int(size)
	return
}

func (dec *decoder) readUint32() (value uint32, err error) {
	data, err := dec.read(4)
	if err != nil {
		return
	}

	value = le.Uint32(data)
	return
}

func (dec *decoder) readByte() (value byte, err error) {
	data, err := dec.read(1)
	if err != nil {
		return
	}

	value = data[0]
	return
}

func (dec *decoder) readBytes() (data []byte, err error) {
	size, err := dec.readUint32()
	if err != nil {
		return
	}

	data, err = dec.read(uint64(size))
	if err != nil {
		return
	}

	data = append([]byte{}, data...)
	return
}

func (dec *decoder) code() (code *Code, err error) {
	if dec.depth > MAX_DEPTH {
		err = dec.fail(ErrCorruptPayload)
		return
	}

	out := &Code{}

	out.StackSize, err = dec.readUint32()
	if err != nil {
		return
	}

	out.Instructions, err = dec.readBytes()
	if err != nil {
		return
	}

	count, err := dec.readUint32()
	if err != nil {
		return
	}

	for range count {
		var c Constant
		c, err = dec.constant()
		if err != nil {
			return
		}
		out.Constants = append(out.Constants, c)
	}

	count, err = dec.readUint32()
	if err != nil {
		return
	}

	for range count {
		var name []byte
		name, err = dec.readBytes()
		if err != nil {
			return
		}
		out.Identifiers = append(out.Identifiers, string(name))
	}

	out.LinenoOffset, err = dec.readUint32()
	if err != nil {
		return
	}

	out.Lineno, err = dec.readBytes()
	if err != nil {
		return
	}

	code = out
	return
}

func (dec *decoder) constant() (c Constant, err error) {
	start := dec.pos

	kind, err := dec.readByte()
	if err != nil {
		return
	}

	size, err := dec.readUint32()
	if err != nil {
		return
	}

	offset := dec.pos
	data, err := dec.read(uint64(size))
	if err != nil {
		return
	}

	c.Kind = ConstKind(kind)
	switch c.Kind {
	case CONST_STRING:
		c.String = append([]byte{}, data...)
	case CONST_NUMERICAL:
		if len(data) != 4 {
			dec.pos = offset
			err = dec.fail(ErrCorruptPayload)
			return
		}
		c.Number = int32(le.Uint32(data))
	case CONST_CODE:
		sub := &decoder{data: data, base: dec.base + offset, depth: dec.depth + 1}
		c.Code, err = sub.code()
		if err != nil {
			return
		}
		if sub.pos != len(sub.data) {
			err = sub.fail(ErrCorruptPayload)
			return
		}
	default:
		dec.pos = start
		err = dec.fail(ErrCorruptPayload)
		return
	}

	return
}
