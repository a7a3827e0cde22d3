package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ezrec/sfbc/bytecode"
	"github.com/ezrec/sfbc/opcode"
)

func assemble(t *testing.T, asm *Assembler, program ...string) *Program {
	t.Helper()

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return prog
}

func assembleError(asm *Assembler, program ...string) error {
	_, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	return err
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(1, len(prog.Frames))
	assert.Equal(MAIN_FRAME, prog.Main().Name)
	assert.Equal(0, len(prog.Code().Instructions))
	assert.Equal(uint32(DEFAULT_STACK_SIZE), prog.Code().StackSize)
	assert.Equal("0", asm.Equate["LINENO"])
}

func TestAssemblerPush(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		"push 5",
		"push 1",
		"add",
		"print",
	)

	main := prog.Main()
	expected := []Opcode{
		{1, 0, []string{"push", "5"}, []byte{0x81, 0x00, 0x00}, ""},
		{2, 3, []string{"push", "1"}, []byte{0x81, 0x01, 0x00}, ""},
		{3, 6, []string{"add"}, []byte{0x17}, ""},
		{4, 7, []string{"print"}, []byte{0x59}, ""},
	}
	assert.Equal(expected, main.Opcodes)

	code := prog.Code()
	assert.Equal([]byte{0x81, 0x00, 0x00, 0x81, 0x01, 0x00, 0x17, 0x59}, code.Instructions)
	assert.Equal([]bytecode.Constant{
		bytecode.NumberConstant(5),
		bytecode.NumberConstant(1),
	}, code.Constants)
	assert.Equal(0, len(code.Identifiers))
	assert.Equal(uint32(1), code.LinenoOffset)
	assert.Equal([]byte{3, 1, 3, 1, 1, 1, 0}, code.Lineno)

	data, err := code.MarshalBinary()
	assert.NoError(err)

	decoded, err := bytecode.Unmarshal(data)
	assert.NoError(err)
	assert.True(code.Equal(decoded))
	assert.Equal(int32(5), decoded.Constants[0].Number)
	assert.Equal(int32(1), decoded.Constants[1].Number)
}

func TestAssemblerForwardLabel(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		"jmp #loop",
		"push 1",
		"#loop:",
		"print",
	)

	main := prog.Main()
	assert.Equal(6, main.Label["loop"])
	assert.Equal([]byte{0x86, 0x06, 0x00}, main.Opcodes[0].Bytes)
	assert.Equal("loop", main.Opcodes[0].LinkLabel)
	assert.Equal([]byte{0x86, 0x06, 0x00, 0x81, 0x00, 0x00, 0x59}, main.Code.Instructions)
	assert.Equal([]byte{3, 1, 3, 2, 0}, main.Code.Lineno)

	lines, err := main.Code.Lines()
	assert.NoError(err)
	assert.Equal([]bytecode.LineEntry{
		{Offset: 0, LineNo: 1},
		{Offset: 3, LineNo: 2},
		{Offset: 6, LineNo: 4},
	}, lines)
}

func TestAssemblerRelativeLabel(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		"#top: NOP",
		"JUMP_IF_TRUE #top",
		"JUMP_FORWARD #done",
		"push 1",
		"#done:",
		"SETUP_LOOP #top",
		"CONTINUE_LOOP #done",
	)

	code := prog.Code()
	assert.Equal([]byte{
		0x09,             // 0: NOP
		0x84, 0xfc, 0xff, // 1: JUMP_IF_TRUE -4
		0x83, 0x03, 0x00, // 4: JUMP_FORWARD +3
		0x81, 0x00, 0x00, // 7: LOAD_CONST 1
		0x90, 0xf3, 0xff, // 10: SETUP_LOOP -13
		0x92, 0x0a, 0x00, // 13: CONTINUE_LOOP 10
	}, code.Instructions)
}

func TestAssemblerOperands(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		`LOAD_CONST "hi, there" ; comment`,
		`LOAD_CONST "a;b"`,
		`LOAD_CONST "hi, there"`,
		"LOAD_CONST -5",
		"LOAD_CONST 0x10",
		"STORE_ID counter",
		"LOAD_ID counter",
		"COMPARE_OP LT",
		"DUP_TOPX $3",
		"CALL_METHOD method, $2",
	)

	code := prog.Code()
	assert.Equal([]byte{
		0x81, 0x00, 0x00,
		0x81, 0x01, 0x00,
		0x81, 0x00, 0x00,
		0x81, 0x02, 0x00,
		0x81, 0x03, 0x00,
		0x80, 0x00, 0x00,
		0x82, 0x00, 0x00,
		0x95, 0x02, 0x00,
		0x87, 0x03, 0x00,
		0xc0, 0x01, 0x00, 0x02, 0x00,
	}, code.Instructions)
	assert.Equal([]bytecode.Constant{
		bytecode.StringConstant([]byte("hi, there")),
		bytecode.StringConstant([]byte("a;b")),
		bytecode.NumberConstant(-5),
		bytecode.NumberConstant(16),
	}, code.Constants)
	assert.Equal([]string{"counter", "method"}, code.Identifiers)
}

func TestAssemblerNumbers(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		"DUP_TOPX $010",
		"push 010",
		"push 08",
		"DUP_TOPX $09",
		"DUP_TOPX $0x10",
		"push -007",
	)

	code := prog.Code()
	assert.Equal([]byte{
		0x87, 0x0a, 0x00,
		0x81, 0x00, 0x00,
		0x81, 0x01, 0x00,
		0x87, 0x09, 0x00,
		0x87, 0x10, 0x00,
		0x81, 0x02, 0x00,
	}, code.Instructions)
	assert.Equal([]bytecode.Constant{
		bytecode.NumberConstant(10),
		bytecode.NumberConstant(8),
		bytecode.NumberConstant(-7),
	}, code.Constants)
}

func TestAssemblerComparison(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		"COMPARE_OP eq",
		"COMPARE_OP OP_GT",
		"cmp op_nre",
		"LOAD_ID eq",
	)

	code := prog.Code()
	assert.Equal([]byte{
		0x95, 0x00, 0x00,
		0x95, 0x03, 0x00,
		0x95, 0x0a, 0x00,
		0x82, 0x00, 0x00,
	}, code.Instructions)
	assert.Equal([]string{"eq"}, code.Identifiers)
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SEVEN", "7")

	prog := assemble(t, asm,
		".equ TEN 10",
		"push TEN",
		"DUP_TOPX $(TEN * 2)",
		".equ GREETING \"hello\"",
		"push GREETING",
		"push SEVEN",
		"DUP_TOPX $(LINENO)",
	)

	code := prog.Code()
	assert.Equal([]byte{
		0x81, 0x00, 0x00,
		0x87, 0x14, 0x00,
		0x81, 0x01, 0x00,
		0x81, 0x02, 0x00,
		0x87, 0x07, 0x00,
	}, code.Instructions)
	assert.Equal([]bytecode.Constant{
		bytecode.NumberConstant(10),
		bytecode.StringConstant([]byte("hello")),
		bytecode.NumberConstant(7),
	}, code.Constants)
	assert.Equal("10", asm.Equate["TEN"])
}

func TestAssemblerStack(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{StackSize: 8},
		"NOP",
		"@deep:",
		".stack 100",
		"RET",
	)

	assert.Equal(uint32(8), prog.Main().Code.StackSize)
	assert.Equal(uint32(100), prog.Frame("deep").Code.StackSize)

	err := assembleError(&Assembler{}, ".stack 0")
	assert.ErrorIs(err, ErrStackSyntax)

	err = assembleError(&Assembler{}, ".stack")
	assert.ErrorIs(err, ErrStackSyntax)
}

func TestAssemblerFrames(t *testing.T) {
	assert := assert.New(t)

	source := []string{
		"push @helper",
		"push #helper",
		"RET",
		"@helper:",
		`push "help"`,
		"RET",
	}

	prog := assemble(t, &Assembler{}, source...)
	assert.Equal(2, len(prog.Frames))

	main := prog.Main()
	helper := prog.Frame("helper")
	assert.NotNil(helper)
	assert.Equal(4, helper.LineNo)

	code := main.Code
	assert.Equal([]byte{0x81, 0x00, 0x00, 0x81, 0x00, 0x00, 0x73}, code.Instructions)
	assert.Equal(1, len(code.Constants))
	assert.Equal(bytecode.CONST_CODE, code.Constants[0].Kind)
	assert.Same(helper.Code, code.Constants[0].Code)

	// The same frame, assembled on its own at the same source lines.
	alone := assemble(t, &Assembler{},
		"", "", "", "",
		`push "help"`,
		"RET",
	)
	assert.True(alone.Code().Equal(code.Constants[0].Code))

	var depths []int
	for depth := range code.Walk() {
		depths = append(depths, depth)
	}
	assert.Equal([]int{0, 1}, depths)
}

func TestAssemblerFrameMain(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, &Assembler{},
		".frame main",
		"NOP",
		".frame other",
		"NOP",
	)
	assert.Equal(2, len(prog.Frames))
	assert.Equal(1, prog.Main().LineNo)
	assert.Equal(3, prog.Frame("other").LineNo)

	err := assembleError(&Assembler{},
		"NOP",
		"@main:",
	)
	assert.ErrorIs(err, ErrFrameDuplicate("main"))
}

func TestAssemblerErrors(t *testing.T) {
	table := [](struct {
		name   string
		source []string
		lineno int
		err    error
	}){
		{"unknown", []string{"NOP", "FROB"}, 2, opcode.ErrUnknown("FROB")},
		{"label-dup", []string{"#a:", "#a: NOP"}, 2, ErrLabelDuplicate},
		{"label-missing", []string{"NOP", "jmp #nowhere"}, 2, ErrLabelMissing("nowhere")},
		{"label-syntax", []string{"loop: NOP"}, 1, ErrLabelSyntax},
		{"label-empty", []string{"jmp #"}, 1, ErrLabelSyntax},
		{"frame-missing", []string{"NOP", "push @nope"}, 2, ErrFrameMissing("nope")},
		{"frame-dup", []string{"@a:", "@a:"}, 2, ErrFrameDuplicate("a")},
		{"frame-syntax", []string{"@a: NOP"}, 1, ErrFrameSyntax},
		{"frame-empty", []string{".frame"}, 1, ErrFrameSyntax},
		{"frame-self", []string{"@x:", "push @x"}, 2, ErrFrameCycle("x")},
		{"frame-cycle", []string{"push @a", "@a:", "push @b", "@b:", "push @a"}, 5, ErrFrameCycle("a")},
		{"equ-syntax", []string{".equ A"}, 1, ErrEquateSyntax},
		{"equ-dup", []string{".equ A 1", ".equ A 2"}, 2, ErrEquateDuplicate},
		{"raw-range", []string{"DUP_TOPX $70000"}, 1, ErrOperandRange},
		{"raw-negative", []string{"DUP_TOPX $-1"}, 1, ErrOperandRange},
		{"raw-number", []string{"DUP_TOPX $zz"}, 1, ErrParseNumber("$zz")},
		{"expression", []string{"DUP_TOPX $(1 +)"}, 1, ErrParseExpression("1 +")},
		{"number", []string{"push 0x100000000"}, 1, ErrParseNumber("0x100000000")},
		{"number-octal", []string{"push 0o17"}, 1, ErrParseNumber("0o17")},
		{"number-hex", []string{"DUP_TOPX $0x"}, 1, ErrParseNumber("$0x")},
		{"string", []string{`push "\q"`}, 1, ErrParseString(`"\q"`)},
		{"unterminated", []string{`push "oops`}, 1, ErrLineSyntax},
		{"directive", []string{".org 100"}, 1, ErrLineSyntax},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			err := assembleError(&Assembler{}, entry.source...)
			assert.ErrorIs(err, entry.err)

			var syn *ErrSyntax
			if assert.True(errors.As(err, &syn)) {
				assert.Equal(entry.lineno, syn.LineNo)
			}
		})
	}
}

func TestAssemblerArity(t *testing.T) {
	assert := assert.New(t)

	err := assembleError(&Assembler{}, "NOP", "LOAD_CONST")

	var arity *opcode.ErrArity
	assert.True(errors.As(err, &arity))
	assert.Equal(&opcode.ErrArity{Opcode: opcode.LOAD_CONST, Want: 1, Got: 0}, arity)

	var syn *ErrSyntax
	assert.True(errors.As(err, &syn))
	assert.Equal(2, syn.LineNo)
	assert.Equal("LOAD_CONST", syn.Line)

	err = assembleError(&Assembler{}, "RET 1")
	assert.True(errors.As(err, &arity))
	assert.Equal(0, arity.Want)
	assert.Equal(1, arity.Got)

	err = assembleError(&Assembler{}, "CALL_METHOD x")
	assert.True(errors.As(err, &arity))
	assert.Equal(2, arity.Want)
}

func TestAssemblerVerbose(t *testing.T) {
	assert := assert.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	asm := &Assembler{Verbose: true, Logger: zap.New(core)}

	assemble(t, asm,
		"NOP",
		"@other:",
		"RET",
	)

	assert.Equal(3, logs.FilterMessage("line").Len())
	assert.Equal(2, logs.FilterMessage("emit").Len())
	assert.Equal(1, logs.FilterMessage("frame").Len())
}

func TestSplitWords(t *testing.T) {
	table := [](struct {
		line  string
		words []string
	}){
		{"", nil},
		{"  ; only a comment", nil},
		{"NOP", []string{"NOP"}},
		{"CALL_METHOD a,b ; call", []string{"CALL_METHOD", "a", "b"}},
		{`push "a, b; c"`, []string{"push", `"a, b; c"`}},
		{`push "say \"hi\""`, []string{"push", `"say \"hi\""`}},
		{"DUP_TOPX $(1 + (2 * 3))", []string{"DUP_TOPX", "$(1 + (2 * 3))"}},
	}

	for _, entry := range table {
		t.Run(entry.line, func(t *testing.T) {
			assert := assert.New(t)

			words, err := splitWords(entry.line)
			assert.NoError(err)
			assert.Equal(entry.words, words)
		})
	}
}
