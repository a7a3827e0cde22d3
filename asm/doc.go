// Package asm assembles mnemonic source text into bytecode code objects.
//
// Each line holds at most one instruction, optionally preceded by labels:
//
//	; comment to the end of the line
//	.equ LIMIT 10          ; textual equate
//	.stack 16              ; stack size of the current frame
//	#loop:                 ; label, at the current offset
//	    LOAD_CONST "text"  ; string constant
//	    LOAD_CONST -5      ; numerical constant
//	    LOAD_ID counter    ; identifier
//	    COMPARE_OP LT      ; comparison keyword
//	    DUP_TOPX $2        ; raw operand
//	    DUP_TOPX $(LIMIT-8)
//	    JUMP_IF_FALSE #done
//	    JUMP_ABSOLUTE #loop
//	#done:
//	    LOAD_CONST @helper ; code constant of another frame
//	    RETURN_VALUE
//	@helper:               ; or: .frame helper
//	    RETURN_VALUE
//
// Source starts in the implicit "main" frame. Each frame is assembled into
// its own code object; labels are local to a frame, and may be used before
// they are defined. Frame references are bound once all frames have been
// assembled, and must not form a cycle.
package asm
