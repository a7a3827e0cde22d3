package dump

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/encoding/json"

	"github.com/ezrec/sfbc/bytecode"
)

// ConstantView is the structured view of a constant. Exactly one of String,
// Bytes, Number or Code is set, according to Kind. String constants that
// are not valid UTF-8 are kept as Bytes.
type ConstantView struct {
	Kind   string    `json:"kind" cbor:"kind"`
	String *string   `json:"string,omitempty" cbor:"string,omitempty"`
	Bytes  []byte    `json:"bytes,omitempty" cbor:"bytes,omitempty"`
	Number *int32    `json:"number,omitempty" cbor:"number,omitempty"`
	Code   *CodeView `json:"code,omitempty" cbor:"code,omitempty"`
}

// CodeView is the structured view of a code object.
type CodeView struct {
	StackSize    uint32               `json:"stack_size" cbor:"stack_size"`
	Instructions []byte               `json:"instructions" cbor:"instructions"`
	Constants    []ConstantView       `json:"constants" cbor:"constants"`
	Identifiers  []string             `json:"identifiers" cbor:"identifiers"`
	LinenoOffset uint32               `json:"lineno_offset" cbor:"lineno_offset"`
	Lineno       []byte               `json:"lineno" cbor:"lineno"`
	Lines        []bytecode.LineEntry `json:"lines,omitempty" cbor:"lines,omitempty"`
	Listing      []Instruction        `json:"listing,omitempty" cbor:"listing,omitempty"`
}

// ContainerView is the structured view of a container.
type ContainerView struct {
	Header    bytecode.Header `json:"header" cbor:"header"`
	Code      *CodeView       `json:"code" cbor:"code"`
	Signature []byte          `json:"signature,omitempty" cbor:"signature,omitempty"`
}

// NewCodeView builds the view of a code object and its nested code. With
// listing set, the disassembly and decoded line table are included.
func NewCodeView(code *bytecode.Code, listing bool) *CodeView {
	if code == nil {
		return nil
	}

	view := &CodeView{
		StackSize:    code.StackSize,
		Instructions: code.Instructions,
		Identifiers:  code.Identifiers,
		LinenoOffset: code.LinenoOffset,
		Lineno:       code.Lineno,
	}

	for _, c := range code.Constants {
		cv := ConstantView{Kind: c.Kind.String()}
		switch c.Kind {
		case bytecode.CONST_STRING:
			if !utf8.Valid(c.String) {
				cv.Bytes = c.String
				break
			}
			str := string(c.String)
			cv.String = &str
		case bytecode.CONST_NUMERICAL:
			num := c.Number
			cv.Number = &num
		case bytecode.CONST_CODE:
			cv.Code = NewCodeView(c.Code, listing)
		}
		view.Constants = append(view.Constants, cv)
	}

	if listing {
		view.Lines, _ = code.Lines()
		view.Listing = Disassemble(code)
	}

	return view
}

// NewContainerView builds the view of a decoded container.
func NewContainerView(ct *bytecode.Container, listing bool) *ContainerView {
	return &ContainerView{
		Header:    ct.Header,
		Code:      NewCodeView(ct.Code, listing),
		Signature: ct.Signature,
	}
}

func encodeJSON(w io.Writer, view any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// cborEncMode encodes deterministically.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

func encodeCBOR(w io.Writer, view any) (err error) {
	data, err := cborEncMode.Marshal(view)
	if err != nil {
		return
	}

	_, err = w.Write(data)
	return
}
