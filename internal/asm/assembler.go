// Package asm is the architecture-neutral surface of the assemblers the JIT emits native code with.
package asm

import "fmt"

// Register is an architecture-specific register number. Zero is reserved for NilRegister.
type Register byte

// NilRegister means "no register", e.g. for a value which lives on the value stack.
const NilRegister Register = 0

// Instruction is an architecture-specific mnemonic.
type Instruction byte

// ConditionalRegisterState is the flag condition a comparison left behind, such as "equal" on amd64.
// Zero is reserved for ConditionalRegisterStateUnset.
type ConditionalRegisterState byte

// ConditionalRegisterStateUnset means the value is not held in the flags register.
const ConditionalRegisterStateUnset ConditionalRegisterState = 0

// Node is one emitted instruction. Nodes are kept so that jumps can be pointed at labels after both exist.
type Node interface {
	fmt.Stringer
	// AssignJumpTarget makes this jump instruction branch to target.
	AssignJumpTarget(target Node)
	// OffsetInBinary is the byte offset of the instruction in the output of Assemble.
	// It is zero until Assemble is called.
	OffsetInBinary() int64
}

// AssemblerBase holds the operand shapes every architecture supports.
type AssemblerBase interface {
	// Assemble encodes every added instruction and resolves jump targets.
	Assemble() ([]byte, error)
	// CompileStandAlone adds an instruction with no operands, such as RET or a NOP used as a label.
	CompileStandAlone(instruction Instruction) Node
	// CompileConstToRegister adds "instruction $value, dst".
	CompileConstToRegister(instruction Instruction, value int64, dst Register) Node
	// CompileRegisterToRegister adds "instruction src, dst".
	CompileRegisterToRegister(instruction Instruction, src, dst Register)
	// CompileMemoryToRegister adds "instruction offset(base), dst".
	CompileMemoryToRegister(instruction Instruction, base Register, offset int64, dst Register)
	// CompileRegisterToMemory adds "instruction src, offset(base)".
	CompileRegisterToMemory(instruction Instruction, src Register, base Register, offset int64)
	// CompileJump adds a jump whose target is set later with Node.AssignJumpTarget.
	CompileJump(jmpInstruction Instruction) Node
}
