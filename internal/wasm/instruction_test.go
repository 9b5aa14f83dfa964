package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeInstruction(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected Instruction
		expLen   uint64
	}{
		{name: "unreachable", body: []byte{OpcodeUnreachable}, expected: Instruction{Kind: InstructionKindUnreachable}, expLen: 1},
		{name: "end", body: []byte{OpcodeEnd}, expected: Instruction{Kind: InstructionKindEnd}, expLen: 1},
		{name: "else", body: []byte{OpcodeElse}, expected: Instruction{Kind: InstructionKindElse}, expLen: 1},
		{name: "i32.add", body: []byte{OpcodeI32Add}, expected: Instruction{Kind: InstructionKindI32Add}, expLen: 1},
		{name: "i32.eq", body: []byte{OpcodeI32Eq}, expected: Instruction{Kind: InstructionKindI32Eq}, expLen: 1},
		{
			name:     "local.get 1",
			body:     []byte{OpcodeLocalGet, 1},
			expected: Instruction{Kind: InstructionKindLocalGet, Index: 1},
			expLen:   2,
		},
		{
			name:     "local.get 128",
			body:     []byte{OpcodeLocalGet, 0x80, 0x01},
			expected: Instruction{Kind: InstructionKindLocalGet, Index: 128},
			expLen:   3,
		},
		{
			name:     "br 0",
			body:     []byte{OpcodeBr, 0},
			expected: Instruction{Kind: InstructionKindBr},
			expLen:   2,
		},
		{
			name:     "br_if 2",
			body:     []byte{OpcodeBrIf, 2},
			expected: Instruction{Kind: InstructionKindBrIf, Index: 2},
			expLen:   2,
		},
		{
			name:     "block",
			body:     []byte{OpcodeBlock, 0x40},
			expected: Instruction{Kind: InstructionKindBlock},
			expLen:   2,
		},
		{
			name:     "block (result i32)",
			body:     []byte{OpcodeBlock, ValueTypeI32},
			expected: Instruction{Kind: InstructionKindBlock, Arity: 1},
			expLen:   2,
		},
		{
			name:     "if (result i32)",
			body:     []byte{OpcodeIf, ValueTypeI32},
			expected: Instruction{Kind: InstructionKindIf, Arity: 1},
			expLen:   2,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			// Decode from a non-zero pc to ensure the offset is honored.
			body := append([]byte{OpcodeEnd}, tc.body...)
			actual, n, err := DecodeInstruction(body, 1)
			require.NoError(t, err)
			require.Equal(t, tc.expected, actual)
			require.Equal(t, tc.expLen, n)
			require.Equal(t, tc.name, actual.String())
		})
	}
}

func TestDecodeInstruction_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected error
	}{
		{name: "empty", body: []byte{}, expected: ErrMalformedInput},
		{name: "nop", body: []byte{0x01}, expected: ErrUnsupportedOpcode},
		{name: "loop", body: []byte{0x03, 0x40}, expected: ErrUnsupportedOpcode},
		{name: "call", body: []byte{0x10, 0x00}, expected: ErrUnsupportedOpcode},
		{name: "i32.const", body: []byte{0x41, 0x01}, expected: ErrUnsupportedOpcode},
		{name: "i32.load", body: []byte{0x28, 0x02, 0x00}, expected: ErrUnsupportedOpcode},
		{name: "f32.add", body: []byte{0x92}, expected: ErrUnsupportedOpcode},
		{name: "local.get without index", body: []byte{OpcodeLocalGet}, expected: ErrMalformedInput},
		{name: "br truncated index", body: []byte{OpcodeBr, 0x80}, expected: ErrMalformedInput},
		{name: "block without type", body: []byte{OpcodeBlock}, expected: ErrMalformedInput},
		{name: "block i64", body: []byte{OpcodeBlock, ValueTypeI64}, expected: ErrUnsupportedFeature},
		{name: "if f64", body: []byte{OpcodeIf, ValueTypeF64}, expected: ErrUnsupportedFeature},
		{name: "block type index", body: []byte{OpcodeBlock, 0x01}, expected: ErrUnsupportedFeature},
		{name: "block invalid type", body: []byte{OpcodeBlock, 0x50}, expected: ErrMalformedInput},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeInstruction(tc.body, 0)
			require.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestInstructionName(t *testing.T) {
	require.Equal(t, "local.get", InstructionName(OpcodeLocalGet))
	require.Equal(t, "br_if", InstructionName(OpcodeBrIf))
	require.Equal(t, "0x41", InstructionName(0x41))
}
