package amd64

import (
	"github.com/lightjit/lightjit/internal/asm"
)

// Assembler is the interface used by amd64 compiler.
type Assembler interface {
	asm.AssemblerBase

	// CompileRegisterToConst adds an instruction where source operand is the register `srcRegister`,
	// and the destination is the const `value`.
	CompileRegisterToConst(instruction asm.Instruction, srcRegister asm.Register, value int64) asm.Node

	// CompileConstToMemory adds an instruction where source operand is the constant, and
	// the destination is the memory address specified by `destinationBaseRegister+destinationOffsetConst`.
	CompileConstToMemory(instruction asm.Instruction, value int64, destinationBaseRegister asm.Register, destinationOffsetConst int64) asm.Node

	// CompileNoneToRegister adds an instruction where source operand is nil, and the destination is the register `register`.
	CompileNoneToRegister(instruction asm.Instruction, register asm.Register)
}

// NewAssembler returns the amd64 Assembler backed by golang-asm.
func NewAssembler() (Assembler, error) {
	return newGolangAsmAssembler()
}
