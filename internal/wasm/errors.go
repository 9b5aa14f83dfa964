package wasm

import "errors"

// Errors returned while decoding or translating a module. Callers match them with errors.Is as they are usually
// wrapped with the position they were found at.
var (
	// ErrMalformedInput means the binary framing or lengths are inconsistent.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnsupportedFeature means a section or type kind outside the supported surface, such as imports,
	// memories or multi-value results.
	ErrUnsupportedFeature = errors.New("unsupported feature")
	// ErrUnsupportedOpcode means an instruction outside the supported opcode set.
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	// ErrStackUnderflow means an instruction requires more operands than are statically on the stack.
	ErrStackUnderflow = errors.New("stack underflow")
)

// Errors returned when executing a translated module.
var (
	// ErrInvalidFunctionIndex means execution was requested on an out-of-range function index.
	ErrInvalidFunctionIndex = errors.New("invalid function index")
	// ErrSignatureMismatch means the function's signature isn't the one the caller assumed.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrRuntimeUnreachable means "unreachable" instruction was executed by the program.
	ErrRuntimeUnreachable = errors.New("unreachable")
)
