package wasm

import (
	"bytes"
	"fmt"
	"strings"
)

// Index is a position in an index space. Imports aren't supported, so a function Index is also its position in
// Module.FunctionSection.
type Index = uint32

// ValueType is the byte encoding a value type. Only ValueTypeI32 is translated; the other MVP types are named so
// that they are reported as unsupported rather than malformed.
// See https://www.w3.org/TR/wasm-core-1/#binary-valtype
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the text format keyword of t.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return fmt.Sprintf("unknown(0x%x)", t)
}

// FunctionType is a signature. Results has at most one element as multi-value isn't supported.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// String implements fmt.Stringer with the text format notation, ex. "(i32, i32) -> i32".
func (t *FunctionType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = ValueTypeName(p)
	}
	results := make([]string, len(t.Results))
	for i, r := range t.Results {
		results[i] = ValueTypeName(r)
	}
	return fmt.Sprintf("(%s) -> (%s)", strings.Join(params, ", "), strings.Join(results, ", "))
}

// EqualsSignature returns true if the function type has the same parameters and results.
func (t *FunctionType) EqualsSignature(params []ValueType, results []ValueType) bool {
	return bytes.Equal(t.Params, params) && bytes.Equal(t.Results, results)
}

// Code is one entry of the code section.
type Code struct {
	// NumLocals counts the zeroed i32 locals declared after the parameters.
	NumLocals uint32
	// Body is the raw instruction stream, terminated by OpcodeEnd.
	Body []byte
}

// Module holds the sections lightjit translates. Function i has signature TypeSection[FunctionSection[i]] and
// body CodeSection[i]; Functions joins them.
type Module struct {
	TypeSection     []*FunctionType
	FunctionSection []Index
	CodeSection     []*Code
}

// Function pairs a signature with the locals and body of one function defined in a Module.
// Functions are immutable once built by Module.Functions.
type Function struct {
	// Index is the position of this function in the function index namespace.
	Index Index
	// Type is the signature of this function.
	Type *FunctionType
	// NumLocals is the count of zero-initialized locals following the parameters.
	NumLocals uint32
	// Body is the raw instruction stream, consumed linearly by the translator.
	Body []byte
}

// Functions returns the functions defined in this module in declaration order. The result is dense: the function
// at position i has Index i.
func (m *Module) Functions() ([]*Function, error) {
	if len(m.FunctionSection) != len(m.CodeSection) {
		return nil, fmt.Errorf("%w: function and code section have inconsistent lengths", ErrMalformedInput)
	}
	ret := make([]*Function, len(m.FunctionSection))
	for i, typeIndex := range m.FunctionSection {
		if typeIndex >= uint32(len(m.TypeSection)) {
			return nil, fmt.Errorf("%w: function[%d] has invalid type index %d", ErrMalformedInput, i, typeIndex)
		}
		code := m.CodeSection[i]
		ret[i] = &Function{
			Index:     Index(i),
			Type:      m.TypeSection[typeIndex],
			NumLocals: code.NumLocals,
			Body:      code.Body,
		}
	}
	return ret, nil
}
