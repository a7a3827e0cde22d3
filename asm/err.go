package asm

import (
	"errors"

	"github.com/ezrec/sfbc/translate"
)

var f = translate.From

var (
	// Assembler errors
	ErrLineSyntax      = errors.New(f("syntax error"))
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrStackSyntax     = errors.New(f(".stack syntax"))
	ErrFrameSyntax     = errors.New(f("frame syntax"))
	ErrLabelSyntax     = errors.New(f("label syntax"))
	ErrLabelDuplicate  = errors.New(f("label duplicated"))
	ErrOperandRange    = errors.New(f("operand out of range"))
	ErrPoolOverflow    = errors.New(f("pool overflow"))
)

// ErrLabelMissing is returned for a reference to an undefined label.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrFrameMissing is returned for a reference to an undefined frame.
type ErrFrameMissing string

func (ef ErrFrameMissing) Error() string {
	return f("frame %v missing", string(ef))
}

// ErrFrameDuplicate is returned when a frame name is declared twice.
type ErrFrameDuplicate string

func (ef ErrFrameDuplicate) Error() string {
	return f("frame %v duplicated", string(ef))
}

// ErrFrameCycle is returned when a frame references itself, directly or
// through other frames.
type ErrFrameCycle string

func (ef ErrFrameCycle) Error() string {
	return f("frame %v references itself", string(ef))
}

// ErrSyntax locates an assembly error in the source.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseString string

func (err ErrParseString) Error() string {
	return f("%v is not a valid string", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
