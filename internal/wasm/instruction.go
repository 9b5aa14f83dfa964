package wasm

import (
	"bytes"
	"fmt"

	"github.com/lightjit/lightjit/internal/leb128"
)

// Opcode is the binary Opcode of an instruction. See also InstructionName
type Opcode = byte

const (
	// OpcodeUnreachable causes an unconditional trap.
	OpcodeUnreachable Opcode = 0x00
	// OpcodeBlock brackets a sequence of instructions. A branch instruction on a block label breaks out to after its
	// OpcodeEnd.
	OpcodeBlock Opcode = 0x02
	// OpcodeIf brackets a sequence of instructions. When the top of the stack is non-zero, the block is executed.
	// Zero jumps to the optional OpcodeElse. A branch instruction on an if label breaks out to after its OpcodeEnd.
	OpcodeIf Opcode = 0x04
	// OpcodeElse brackets a sequence of instructions enclosed by an OpcodeIf.
	OpcodeElse Opcode = 0x05
	// OpcodeEnd terminates a control instruction OpcodeBlock or OpcodeIf, or the function body.
	OpcodeEnd Opcode = 0x0b
	// OpcodeBr performs an unconditional branch to the end of the enclosing construct at the given depth, carrying
	// the values declared by that construct's block type.
	OpcodeBr Opcode = 0x0c
	// OpcodeBrIf pops a condition and performs OpcodeBr if it is non-zero.
	OpcodeBrIf Opcode = 0x0d

	OpcodeLocalGet Opcode = 0x20

	OpcodeI32Eq  Opcode = 0x46
	OpcodeI32Add Opcode = 0x6a
)

// InstructionName returns the instruction corresponding to this binary Opcode.
// See https://www.w3.org/TR/wasm-core-1/#a7-index-of-instructions
func InstructionName(oc Opcode) string {
	switch oc {
	case OpcodeUnreachable:
		return "unreachable"
	case OpcodeBlock:
		return "block"
	case OpcodeIf:
		return "if"
	case OpcodeElse:
		return "else"
	case OpcodeEnd:
		return "end"
	case OpcodeBr:
		return "br"
	case OpcodeBrIf:
		return "br_if"
	case OpcodeLocalGet:
		return "local.get"
	case OpcodeI32Eq:
		return "i32.eq"
	case OpcodeI32Add:
		return "i32.add"
	}
	return fmt.Sprintf("0x%02x", oc)
}

// InstructionKind tags an Instruction. The set is closed: DecodeInstruction never returns a kind outside it.
type InstructionKind byte

const (
	InstructionKindLocalGet InstructionKind = iota
	InstructionKindI32Add
	InstructionKindI32Eq
	InstructionKindBlock
	InstructionKindIf
	InstructionKindElse
	// InstructionKindEnd exits a block, an if or the function body depending on the innermost construct.
	InstructionKindEnd
	InstructionKindBr
	InstructionKindBrIf
	InstructionKindUnreachable
)

// String implements fmt.Stringer
func (k InstructionKind) String() string {
	switch k {
	case InstructionKindLocalGet:
		return "local.get"
	case InstructionKindI32Add:
		return "i32.add"
	case InstructionKindI32Eq:
		return "i32.eq"
	case InstructionKindBlock:
		return "block"
	case InstructionKindIf:
		return "if"
	case InstructionKindElse:
		return "else"
	case InstructionKindEnd:
		return "end"
	case InstructionKindBr:
		return "br"
	case InstructionKindBrIf:
		return "br_if"
	case InstructionKindUnreachable:
		return "unreachable"
	}
	return fmt.Sprintf("unknown(%d)", k)
}

// Instruction is one decoded instruction.
type Instruction struct {
	Kind InstructionKind
	// Index is the local index of InstructionKindLocalGet or the relative depth of InstructionKindBr and
	// InstructionKindBrIf.
	Index uint32
	// Arity is the result count declared by the block type of InstructionKindBlock and InstructionKindIf.
	Arity int
}

// String implements fmt.Stringer with the text format notation.
func (i Instruction) String() string {
	switch i.Kind {
	case InstructionKindLocalGet, InstructionKindBr, InstructionKindBrIf:
		return fmt.Sprintf("%s %d", i.Kind, i.Index)
	case InstructionKindBlock, InstructionKindIf:
		if i.Arity == 1 {
			return fmt.Sprintf("%s (result i32)", i.Kind)
		}
	}
	return i.Kind.String()
}

// DecodeInstruction decodes the instruction at body[pc:] and returns it with the count of bytes it spans.
//
// Opcodes outside the supported set fail with ErrUnsupportedOpcode, block types other than empty or i32 fail with
// ErrUnsupportedFeature and truncated immediates fail with ErrMalformedInput.
func DecodeInstruction(body []byte, pc uint64) (inst Instruction, n uint64, err error) {
	if pc >= uint64(len(body)) {
		return Instruction{}, 0, fmt.Errorf("%w: unexpected end of function body at %#x", ErrMalformedInput, pc)
	}
	op := body[pc]
	switch op {
	case OpcodeUnreachable:
		return Instruction{Kind: InstructionKindUnreachable}, 1, nil
	case OpcodeElse:
		return Instruction{Kind: InstructionKindElse}, 1, nil
	case OpcodeEnd:
		return Instruction{Kind: InstructionKindEnd}, 1, nil
	case OpcodeI32Add:
		return Instruction{Kind: InstructionKindI32Add}, 1, nil
	case OpcodeI32Eq:
		return Instruction{Kind: InstructionKindI32Eq}, 1, nil
	case OpcodeBlock, OpcodeIf:
		arity, num, err := decodeBlockType(body[pc+1:])
		if err != nil {
			return Instruction{}, 0, fmt.Errorf("read block type of %s at %#x: %w", InstructionName(op), pc, err)
		}
		inst.Kind = InstructionKindBlock
		if op == OpcodeIf {
			inst.Kind = InstructionKindIf
		}
		inst.Arity = arity
		return inst, 1 + num, nil
	case OpcodeLocalGet, OpcodeBr, OpcodeBrIf:
		index, num, err := leb128.LoadUint32(body[pc+1:])
		if err != nil {
			return Instruction{}, 0, fmt.Errorf("%w: read immediate of %s at %#x: %v",
				ErrMalformedInput, InstructionName(op), pc, err)
		}
		switch op {
		case OpcodeLocalGet:
			inst.Kind = InstructionKindLocalGet
		case OpcodeBr:
			inst.Kind = InstructionKindBr
		default:
			inst.Kind = InstructionKindBrIf
		}
		inst.Index = index
		return inst, 1 + num, nil
	}
	return Instruction{}, 0, fmt.Errorf("%w: %s at %#x", ErrUnsupportedOpcode, InstructionName(op), pc)
}

// decodeBlockType returns the result count of the block type at the head of buf.
// See https://www.w3.org/TR/wasm-core-1/#binary-blocktype
func decodeBlockType(buf []byte) (arity int, num uint64, err error) {
	raw, num, err := leb128.DecodeInt33AsInt64(bytes.NewReader(buf))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	switch raw {
	case -64: // 0x40 in original byte = nil
		return 0, num, nil
	case -1: // 0x7f in original byte = i32
		return 1, num, nil
	case -2, -3, -4: // i64, f32, f64
		return 0, 0, fmt.Errorf("%w: block type %s", ErrUnsupportedFeature, ValueTypeName(buf[0]))
	}
	if raw >= 0 {
		// Only valid with multi-value, which refers to a type by index.
		return 0, 0, fmt.Errorf("%w: block type index %d", ErrUnsupportedFeature, raw)
	}
	return 0, 0, fmt.Errorf("%w: invalid block type %d", ErrMalformedInput, raw)
}
