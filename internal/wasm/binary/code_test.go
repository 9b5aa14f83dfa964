package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightjit/lightjit/internal/wasm"
)

func TestDecodeCode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected *wasm.Code
	}{
		{
			name:     "smallest function body",
			input:    []byte{0x02, 0x00, wasm.OpcodeEnd},
			expected: &wasm.Code{Body: []byte{wasm.OpcodeEnd}},
		},
		{
			name: "locals in two declarations",
			input: []byte{
				0x08,                    // 8 bytes of locals and body
				0x02,                    // two local declarations
				0x01, wasm.ValueTypeI32, // one i32
				0x02, wasm.ValueTypeI32, // two i32
				wasm.OpcodeLocalGet, 3, wasm.OpcodeEnd,
			},
			expected: &wasm.Code{NumLocals: 3, Body: []byte{wasm.OpcodeLocalGet, 3, wasm.OpcodeEnd}},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			r := bytes.NewReader(tc.input)
			actual, err := decodeCode(r)
			require.NoError(t, err)
			require.Equal(t, tc.expected, actual)
			require.Zero(t, r.Len())
		})
	}
}

func TestDecodeCode_Errors(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		expectedErr error
	}{
		{name: "empty", input: []byte{}, expectedErr: wasm.ErrMalformedInput},
		{name: "size exceeds input", input: []byte{0x05, 0x00, wasm.OpcodeEnd}, expectedErr: wasm.ErrMalformedInput},
		{name: "missing local declaration count", input: []byte{0x00}, expectedErr: wasm.ErrMalformedInput},
		{name: "truncated local declaration", input: []byte{0x02, 0x01, 0x01}, expectedErr: wasm.ErrMalformedInput},
		{name: "no body", input: []byte{0x01, 0x00}, expectedErr: wasm.ErrMalformedInput},
		{name: "body does not end with end", input: []byte{0x03, 0x00, wasm.OpcodeLocalGet, 0}, expectedErr: wasm.ErrMalformedInput},
		{name: "i64 local", input: []byte{0x04, 0x01, 0x01, wasm.ValueTypeI64, wasm.OpcodeEnd}, expectedErr: wasm.ErrUnsupportedFeature},
		{name: "invalid local type", input: []byte{0x04, 0x01, 0x01, 0x50, wasm.OpcodeEnd}, expectedErr: wasm.ErrMalformedInput},
		{
			name:        "too many locals",
			input:       []byte{0x06, 0x01, 0x81, 0x80, 0x04, wasm.ValueTypeI32, wasm.OpcodeEnd},
			expectedErr: wasm.ErrUnsupportedFeature,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeCode(bytes.NewReader(tc.input))
			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
