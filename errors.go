package lightjit

import (
	"errors"

	"github.com/lightjit/lightjit/internal/wasm"
)

// Errors returned by Translate. These are wrapped with the position they were found at, so compare them with
// errors.Is.
var (
	// ErrMalformedInput means the binary framing or lengths are inconsistent, or the function bodies do not
	// respect the structure of their constructs.
	ErrMalformedInput = wasm.ErrMalformedInput
	// ErrUnsupportedFeature means a section or type kind outside the supported surface, ex. imports, memories or
	// i64 values.
	ErrUnsupportedFeature = wasm.ErrUnsupportedFeature
	// ErrUnsupportedOpcode means an instruction outside of local.get, i32.add, i32.eq, block, if, else, end, br,
	// br_if and unreachable.
	ErrUnsupportedOpcode = wasm.ErrUnsupportedOpcode
	// ErrStackUnderflow means an instruction or construct requires more operands than are on the stack.
	ErrStackUnderflow = wasm.ErrStackUnderflow
)

// Errors returned by TranslatedModule.Execute.
var (
	// ErrInvalidFunctionIndex means the function index is out of range of the module's functions.
	ErrInvalidFunctionIndex = wasm.ErrInvalidFunctionIndex
	// ErrSignatureMismatch means the function isn't "(i32, i32) -> i32".
	ErrSignatureMismatch = wasm.ErrSignatureMismatch
	// ErrRuntimeUnreachable means the function reached an "unreachable" instruction.
	ErrRuntimeUnreachable = wasm.ErrRuntimeUnreachable
	// ErrModuleClosed means TranslatedModule.Close was already called.
	ErrModuleClosed = errors.New("module closed")
)
