package amd64

import (
	"fmt"

	"github.com/lightjit/lightjit/internal/asm"
)

// Flag conditions left by CMPQ. See https://www.felixcloutier.com/x86/setcc
const (
	// ConditionalRegisterStateE is ZF set: the operands compared equal.
	ConditionalRegisterStateE = asm.ConditionalRegisterStateUnset + 1 + iota
	// ConditionalRegisterStateNE is ZF clear.
	ConditionalRegisterStateNE
)

// Instructions emitted by the compiler, named as in the Go assembler.
const (
	NONE asm.Instruction = iota
	ADDQ
	ANDQ
	CMPQ
	JEQ
	JNE
	JMP
	MOVB
	MOVQ
	NOP
	RET
	SETEQ
	SETNE
)

var instructionNames = [...]string{
	NONE: "NONE", ADDQ: "ADDQ", ANDQ: "ANDQ", CMPQ: "CMPQ", JEQ: "JEQ", JNE: "JNE", JMP: "JMP",
	MOVB: "MOVB", MOVQ: "MOVQ", NOP: "NOP", RET: "RET", SETEQ: "SETEQ", SETNE: "SETNE",
}

// InstructionName returns the Go assembler mnemonic of instruction.
func InstructionName(instruction asm.Instruction) string {
	if int(instruction) < len(instructionNames) {
		return instructionNames[instruction]
	}
	return fmt.Sprintf("UNKNOWN(%d)", instruction)
}

// General purpose registers in encoding order, named as in the Go assembler.
const (
	REG_AX asm.Register = asm.NilRegister + 1 + iota
	REG_CX
	REG_DX
	REG_BX
	REG_SP
	REG_BP
	REG_SI
	REG_DI
	REG_R8
	REG_R9
	REG_R10
	REG_R11
	REG_R12
	REG_R13
	REG_R14
	REG_R15
)

var registerNames = [...]string{
	asm.NilRegister: "nil",
	REG_AX:          "AX", REG_CX: "CX", REG_DX: "DX", REG_BX: "BX",
	REG_SP: "SP", REG_BP: "BP", REG_SI: "SI", REG_DI: "DI",
	REG_R8: "R8", REG_R9: "R9", REG_R10: "R10", REG_R11: "R11",
	REG_R12: "R12", REG_R13: "R13", REG_R14: "R14", REG_R15: "R15",
}

// RegisterName returns the Go assembler name of reg, or "nil" when it isn't a general purpose register.
func RegisterName(reg asm.Register) string {
	if int(reg) < len(registerNames) {
		return registerNames[reg]
	}
	return "nil"
}
