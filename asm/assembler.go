// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"go.uber.org/zap"

	"github.com/ezrec/sfbc/bytecode"
	"github.com/ezrec/sfbc/opcode"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a two pass, multiple frame assembler for stack bytecode.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Logger    *zap.Logger // Destination of verbose logs. May be nil.
	StackSize uint32      // Stack size of frames without a .stack directive.

	predefine map[string]string // Predefines
	Equate    map[string]string // Map of equates.

	frames []*Frame
	frame  *Frame // Frame being assembled.
	byName map[string]*Frame
	log    *zap.Logger
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

func joinWords(words []string) string {
	return strings.Join(words, " ")
}

// splitWords splits a line into words at white space and commas. Quoted
// strings and parenthesized expressions are kept whole. A ';' outside of
// them starts a comment.
func splitWords(line string) (words []string, err error) {
	var word strings.Builder
	quoted := false
	escaped := false
	depth := 0

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

scan:
	for _, r := range line {
		switch {
		case quoted:
			word.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				quoted = false
			}
		case depth > 0:
			word.WriteRune(r)
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
		case r == ';':
			break scan
		case r == ',' || unicode.IsSpace(r):
			flush()
		case r == '"':
			quoted = true
			word.WriteRune(r)
		case r == '(':
			depth++
			word.WriteRune(r)
		default:
			word.WriteRune(r)
		}
	}

	if quoted || depth > 0 {
		err = ErrLineSyntax
		words = nil
		return
	}

	flush()

	return
}

// reNumber matches words that are numerical constants.
var reNumber = regexp.MustCompile(`^[-+]?[0-9]`)

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, perr := strconv.ParseInt(strings.TrimPrefix(str, "$"), 0, 64)
		if perr != nil {
			// Ignore non-integer equates. They may be strings
			// or identifiers.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrParseExpression(expr), err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseNumber parses a signed decimal number, or a hexadecimal number with
// a 0x prefix. Leading zeros are decimal, not octal.
func parseNumber(text string, bitSize int) (int64, error) {
	sign, digits := "", text
	if len(digits) != 0 && (digits[0] == '-' || digits[0] == '+') {
		sign, digits = digits[:1], digits[1:]
	}

	base := 10
	if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		base, digits = 16, digits[2:]
	}

	return strconv.ParseInt(sign+digits, base, bitSize)
}

// valueOf returns the value of a number, a $number or a $(expression).
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		value, err = asm.parenEval(word[2 : len(word)-1])
		return
	}

	value, err = parseNumber(strings.TrimPrefix(word, "$"), 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// rawValue returns the value of a raw operand, which bypasses the pools.
func (asm *Assembler) rawValue(word string) (value uint16, err error) {
	v64, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v64 < 0 || v64 > 0xffff {
		err = ErrOperandRange
		return
	}

	value = uint16(v64)
	return
}

// operand encodes a single instruction operand. Pool entries are added to
// the current frame, and label and frame references are deferred.
func (asm *Assembler) operand(op opcode.Opcode, word string, index int, offset int) (value uint16, label string, err error) {
	frame := asm.frame

	var pool int
	switch {
	case word[0] == '"':
		var str string
		str, err = strconv.Unquote(word)
		if err != nil {
			err = ErrParseString(word)
			return
		}
		pool = frame.constants.Add(bytecode.StringConstant([]byte(str)))
	case word[0] == '$':
		value, err = asm.rawValue(word)
		return
	case word[0] == '@':
		pool, err = frame.reference(word[1:], index)
	case word[0] == '#' && op.Addressing() == opcode.ADDR_NONE:
		pool, err = frame.reference(word[1:], index)
	case word[0] == '#':
		label = word[1:]
		if len(label) == 0 {
			err = ErrLabelSyntax
			return
		}
		frame.fixups = append(frame.fixups, fixup{opcode: index, operand: offset, label: label})
		value = 0xffff
		return
	default:
		cmp, ok := opcode.Comparison[word]
		if op == opcode.COMPARE_OP {
			cmp, ok = opcode.LookupComparison(word)
		}
		if ok {
			value = cmp
			return
		}
		if reNumber.MatchString(word) {
			var v64 int64
			v64, err = parseNumber(word, 32)
			if err != nil {
				err = ErrParseNumber(word)
				return
			}
			pool = frame.constants.Add(bytecode.NumberConstant(int32(v64)))
		} else {
			pool = frame.identifiers.Add(word)
		}
	}
	if err != nil {
		return
	}

	if pool >= bytecode.MAX_POOL {
		err = ErrPoolOverflow
		return
	}

	value = uint16(pool)
	return
}

// parseInstruction assembles an instruction into the current frame.
func (asm *Assembler) parseInstruction(words []string, lineno int) (err error) {
	frame := asm.frame

	op, count, err := opcode.Lookup(words[0])
	if err != nil {
		return
	}

	args := words[1:]
	if len(args) != count {
		err = &opcode.ErrArity{Opcode: op, Want: count, Got: len(args)}
		return
	}

	index := len(frame.Opcodes)
	ip := frame.currentIp()

	var linkLabel string
	operands := make([]uint16, count)
	for n, word := range args {
		var label string
		offset := ip + 1 + n*opcode.OPERAND_SIZE
		operands[n], label, err = asm.operand(op, word, index, offset)
		if err != nil {
			return
		}
		if len(label) != 0 {
			linkLabel = label
		}
	}

	code, err := opcode.Encode(op, operands...)
	if err != nil {
		return
	}

	frame.emit(Opcode{LineNo: lineno, Offset: ip, Words: words, Bytes: code, LinkLabel: linkLabel})

	if asm.Verbose {
		asm.log.Debug("emit",
			zap.String("frame", frame.Name),
			zap.Int("offset", ip),
			zap.Stringer("opcode", op),
			zap.Binary("bytes", code))
	}

	return
}

// startFrame ends the current frame and begins a new one.
func (asm *Assembler) startFrame(name string, lineno int) (err error) {
	if len(name) == 0 {
		err = ErrFrameSyntax
		return
	}

	// The implicit main frame may be named, if nothing is in it yet.
	if name == MAIN_FRAME && len(asm.frames) == 1 && asm.frame.LineNo == 0 && asm.frame.empty() {
		asm.frame.LineNo = lineno
		return
	}

	_, ok := asm.byName[name]
	if ok {
		err = ErrFrameDuplicate(name)
		return
	}

	asm.frame = newFrame(name, lineno)
	asm.frames = append(asm.frames, asm.frame)
	asm.byName[name] = asm.frame

	if asm.Verbose {
		asm.log.Debug("frame", zap.String("name", name), zap.Int("lineno", lineno))
	}

	return
}

// parseLine evaluates the words of a line of assembly text.
func (asm *Assembler) parseLine(words []string, lineno int) (err error) {
	// Set line number.
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// .frame NAME
	if words[0] == ".frame" {
		if len(words) != 2 {
			err = ErrFrameSyntax
			return
		}
		err = asm.startFrame(words[1], lineno)
		return
	}

	// @NAME:
	if strings.HasPrefix(words[0], "@") && strings.HasSuffix(words[0], ":") {
		if len(words) != 1 {
			err = ErrFrameSyntax
			return
		}
		err = asm.startFrame(words[0][1:len(words[0])-1], lineno)
		return
	}

	// .stack SIZE
	if words[0] == ".stack" {
		if len(words) != 2 {
			err = ErrStackSyntax
			return
		}
		var size int64
		size, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if size <= 0 || size > 0xffffffff {
			err = ErrStackSyntax
			return
		}
		asm.frame.StackSize = uint32(size)
		return
	}

	for strings.HasSuffix(words[0], ":") {
		if !strings.HasPrefix(words[0], "#") || len(words[0]) < 3 {
			err = ErrLabelSyntax
			return
		}
		label := words[0][1 : len(words[0])-1]
		_, ok := asm.frame.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.frame.Label[label] = asm.frame.currentIp()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	if strings.HasPrefix(words[0], ".") {
		err = ErrLineSyntax
		return
	}

	err = asm.parseInstruction(words, lineno)
	return
}

// link binds the frame references of every frame.
func (asm *Assembler) link() (err error) {
	for _, frame := range asm.frames {
		for _, lk := range frame.links {
			target, ok := asm.byName[lk.frame]
			if !ok {
				err = frame.fail(lk.opcode, ErrFrameMissing(lk.frame))
				return
			}
			frame.constants.Resolve(lk.index, target.Code)
		}
	}

	return
}

// checkCycles verifies that no frame references itself, directly or
// through other frames.
func (asm *Assembler) checkCycles() (err error) {
	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(asm.frames))

	var visit func(frame *Frame) error
	visit = func(frame *Frame) error {
		state[frame.Name] = visiting
		for _, lk := range frame.links {
			switch state[lk.frame] {
			case visiting:
				return frame.fail(lk.opcode, ErrFrameCycle(lk.frame))
			case unvisited:
				err := visit(asm.byName[lk.frame])
				if err != nil {
					return err
				}
			}
		}
		state[frame.Name] = visited
		return nil
	}

	for _, frame := range asm.frames {
		if state[frame.Name] != unvisited {
			continue
		}
		err = visit(frame)
		if err != nil {
			return
		}
	}

	return
}

// Parse parses an input stream into a Program of assembled frames.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		var located *ErrSyntax
		if err != nil && !errors.As(err, &located) {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.log = asm.Logger
	if asm.log == nil {
		asm.log = zap.NewNop()
	}

	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	asm.frame = newFrame(MAIN_FRAME, 0)
	asm.frames = []*Frame{asm.frame}
	asm.byName = map[string]*Frame{MAIN_FRAME: asm.frame}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			asm.log.Debug("line", zap.Int("lineno", lineno), zap.String("text", text))
		}

		line = strings.TrimSpace(text)

		var words []string
		words, err = splitWords(line)
		if err != nil {
			return
		}

		err = asm.parseLine(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	err = asm.link()
	if err != nil {
		return
	}

	err = asm.checkCycles()
	if err != nil {
		return
	}

	stackSize := asm.StackSize
	if stackSize == 0 {
		stackSize = DEFAULT_STACK_SIZE
	}

	for _, frame := range asm.frames {
		err = frame.finish(stackSize)
		if err != nil {
			return
		}
	}

	prog = &Program{
		Frames: asm.frames,
	}

	return
}
