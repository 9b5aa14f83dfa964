package jit

import (
	"fmt"
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/lightjit/lightjit/internal/wasm"
)

type (
	// callEngine holds the state of one function call. Each call has its own,
	// so the native code of a function can be executed concurrently.
	callEngine struct {
		// The following fields are read or written by native code.
		// See the callEngine*Offset constants.

		// valueStackElement0Address is &callEngine.valueStack[0] as uintptr.
		valueStackElement0Address uintptr
		// statusCode is set by native code right before returning to Go.
		statusCode jitCallStatusCode

		// valueStack is the Go-allocated stack holding the locals, followed by the operand stack.
		// Note: We NEVER edit len or cap in native code so we won't get screwed when GC comes in.
		valueStack []uint64
	}

	compiledFunction struct {
		// machineCode is the assembled code until it is placed into the module's code segment.
		machineCode []byte
		// codeSegment is this function's part of the module's executable code segment.
		codeSegment []byte
		// Pre-calculated pointer pointing to the initial byte of .codeSegment slice.
		// That mean codeInitialAddress always equals uintptr(unsafe.Pointer(&.codeSegment[0]))
		// and we cache the value to this field so we don't need to repeat the calculation on each call.
		codeInitialAddress uintptr
		// stackPointerCeil is the max of the stack pointer this function can reach.
		stackPointerCeil uint64
		// source is the function this is compiled from.
		source *wasm.Function
		// numLocals is the count of parameters and declared locals, which also is the slot of the result.
		numLocals uint64
	}
)

// Native code reads/writes Go's structs with the following constants.
// See TestVerifyOffsetValue for how to derive these values.
const (
	callEngineValueStackElement0AddressOffset = 0
	callEngineStatusCodeOffset                = 8
)

// jitCallStatusCode represents the result of `jitcall`.
// This is set by the native code.
type jitCallStatusCode byte

const (
	// jitCallStatusCodeReturned means the jitcall reaches the end of function, and returns successfully.
	jitCallStatusCodeReturned jitCallStatusCode = iota
	// jitCallStatusCodeUnreachable means the function invocation reaches "unreachable" instruction.
	jitCallStatusCodeUnreachable
)

// causePanic causes a panic with the corresponding error to the status code.
func (s jitCallStatusCode) causePanic() {
	var err error
	switch s {
	case jitCallStatusCodeUnreachable:
		err = wasm.ErrRuntimeUnreachable
	default:
		err = fmt.Errorf("BUG: unknown status %s", s)
	}
	panic(err)
}

func (s jitCallStatusCode) String() (ret string) {
	switch s {
	case jitCallStatusCodeReturned:
		ret = "returned"
	case jitCallStatusCodeUnreachable:
		ret = "unreachable"
	default:
		ret = fmt.Sprintf("unknown(%d)", s)
	}
	return
}

func newCompiledFunction(f *wasm.Function, machineCode []byte, stackPointerCeil uint64) *compiledFunction {
	return &compiledFunction{
		machineCode:      machineCode,
		stackPointerCeil: stackPointerCeil,
		source:           f,
		numLocals:        uint64(len(f.Type.Params)) + uint64(f.NumLocals),
	}
}

// functionAlignment is the boundary each function starts at within a code segment.
const functionAlignment = 16

func alignFunction(offset int) int {
	return (offset + functionAlignment - 1) &^ (functionAlignment - 1)
}

// mapCodeSegment lays out the machine code of fns back to back in a single executable mapping, which is sized
// once every function is translated. It returns nil when there is no code.
func mapCodeSegment(fns []*compiledFunction) ([]byte, error) {
	offsets := make([]int, len(fns))
	size := 0
	for i, f := range fns {
		offsets[i] = alignFunction(size)
		size = offsets[i] + len(f.machineCode)
	}
	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	for i, f := range fns {
		copy(buf[offsets[i]:], f.machineCode)
	}
	seg, err := mmapCodeSegment(buf)
	if err != nil {
		return nil, err
	}

	for i, f := range fns {
		f.codeSegment = seg[offsets[i] : offsets[i]+len(f.machineCode) : offsets[i]+len(f.machineCode)]
		f.codeInitialAddress = uintptr(unsafe.Pointer(&f.codeSegment[0]))
		f.machineCode = nil
	}
	return seg, nil
}

func newCallEngine(f *compiledFunction) *callEngine {
	size := f.stackPointerCeil
	if size <= f.numLocals {
		// Functions without results may never push anything, but the slot of results must exist.
		size = f.numLocals + 1
	}
	ce := &callEngine{valueStack: make([]uint64, size)}
	ce.valueStackElement0Address = uintptr(unsafe.Pointer(&ce.valueStack[0]))
	return ce
}

func (ce *callEngine) execWasmFunction(f *compiledFunction) {
	jitcall(f.codeInitialAddress, uintptr(unsafe.Pointer(ce)))
	// The native code only holds ce as uintptr.
	runtime.KeepAlive(ce)

	if status := ce.statusCode; status != jitCallStatusCodeReturned {
		status.causePanic()
	}
}

// CompiledModule holds the native code of every function of a module in one code segment.
type CompiledModule struct {
	functions   []*compiledFunction
	codeSegment []byte
	logger      *zap.Logger
}

// Compile translates every function of m, then maps their native code at once.
func Compile(m *wasm.Module, logger *zap.Logger) (*CompiledModule, error) {
	fns, err := m.Functions()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	compiled := make([]*compiledFunction, 0, len(fns))
	for _, f := range fns {
		cf, err := compileFunction(f, logger.With(zap.Uint32("function", f.Index)))
		if err != nil {
			return nil, fmt.Errorf("function[%d]: %w", f.Index, err)
		}
		compiled = append(compiled, cf)
	}
	return newCompiledModule(compiled, logger)
}

func newCompiledModule(fns []*compiledFunction, logger *zap.Logger) (*CompiledModule, error) {
	seg, err := mapCodeSegment(fns)
	if err != nil {
		return nil, fmt.Errorf("map native code: %w", err)
	}
	logger.Debug("mapped native code", zap.Int("functions", len(fns)), zap.Int("size", len(seg)))
	return &CompiledModule{functions: fns, codeSegment: seg, logger: logger}, nil
}

// NumFunctions returns the count of the compiled functions.
func (m *CompiledModule) NumFunctions() int {
	return len(m.functions)
}

// FunctionType returns the signature of the function at index, or nil if out of range.
func (m *CompiledModule) FunctionType(index wasm.Index) *wasm.FunctionType {
	if int(index) >= len(m.functions) {
		return nil
	}
	return m.functions[index].source.Type
}

// Call executes the function at index with the given params, and returns its results.
//
// Runtime faults such as reaching "unreachable" are returned as errors wrapping the
// corresponding wasm.ErrRuntime* error. They never affect other calls.
func (m *CompiledModule) Call(index wasm.Index, params ...uint64) (results []uint64, err error) {
	if int(index) >= len(m.functions) {
		return nil, fmt.Errorf("%w: %d out of range of %d functions", wasm.ErrInvalidFunctionIndex, index, len(m.functions))
	}
	f := m.functions[index]
	if len(params) != len(f.source.Type.Params) {
		return nil, fmt.Errorf("%w: expected %d params, but passed %d", wasm.ErrSignatureMismatch,
			len(f.source.Type.Params), len(params))
	}

	// We ensure that this Call method never panics, and all the runtime errors are captured as errors.
	defer func() {
		if v := recover(); v != nil {
			runtimeErr, ok := v.(error)
			if ok {
				err = fmt.Errorf("wasm runtime error: %w", runtimeErr)
			} else {
				err = fmt.Errorf("wasm runtime error: %v", v)
			}
			results = nil
			m.logger.Debug("function faulted", zap.Uint32("function", index), zap.Error(err))
		}
	}()

	ce := newCallEngine(f)
	copy(ce.valueStack, params)
	ce.execWasmFunction(f)

	results = make([]uint64, len(f.source.Type.Results))
	copy(results, ce.valueStack[f.numLocals:])
	return
}

// Close releases the native code. The caller must ensure no Call is in flight.
func (m *CompiledModule) Close() (err error) {
	for _, f := range m.functions {
		f.codeSegment = nil
		f.codeInitialAddress = 0
	}
	m.functions = nil
	if m.codeSegment != nil {
		err = munmapCodeSegment(m.codeSegment)
		m.codeSegment = nil
	}
	return
}
