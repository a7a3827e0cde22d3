package bytecode

import (
	"errors"

	"github.com/ezrec/sfbc/translate"
)

var f = translate.From

var (
	// Decode errors
	ErrBadMagic       = errors.New(f("bad magic"))
	ErrCorruptPayload = errors.New(f("corrupt payload"))
	ErrTruncatedRead  = errors.New(f("truncated read"))
	ErrLineTable      = errors.New(f("line table corrupt"))

	// Encode errors
	ErrTooDeep = errors.New(f("code nesting too deep"))
)

// Sections of a container, for error reporting.
const (
	SECTION_HEADER    = "header"
	SECTION_PAYLOAD   = "payload"
	SECTION_SIGNATURE = "signature"
	SECTION_CODE      = "code"
)

// ErrMagic is returned when a container does not start with MAGIC.
type ErrMagic uint32

func (err ErrMagic) Error() string {
	return f("magic %#08x is not %#08x", uint32(err), MAGIC)
}

func (err ErrMagic) Is(target error) bool {
	return target == ErrBadMagic
}

// ErrDecode locates a decode failure. Code section offsets are relative to
// the start of the uncompressed payload; all others are file offsets.
type ErrDecode struct {
	Section string
	Offset  int
	Err     error
}

func (err *ErrDecode) Error() string {
	return f("%v offset %#x %v", err.Section, err.Offset, err.Err)
}

func (err *ErrDecode) Unwrap() error {
	return err.Err
}
