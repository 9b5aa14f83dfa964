// Package lightjit translates WebAssembly modules restricted to a minimal instruction set into native code and
// executes their functions.
//
// The supported instructions are local.get, i32.add, i32.eq, block, if, else, end, br, br_if and unreachable.
// Values are the native integer width, so i32.add wraps at 2^64 on amd64.
package lightjit

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/lightjit/lightjit/internal/jit"
	"github.com/lightjit/lightjit/internal/wasm"
	"github.com/lightjit/lightjit/internal/wasm/binary"
)

// executableSignature is the only signature TranslatedModule.Execute accepts.
var executableSignature = struct{ params, results []wasm.ValueType }{
	params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
	results: []wasm.ValueType{wasm.ValueTypeI32},
}

// Translate decodes the WebAssembly 1.0 (20191205) Binary Format and translates every function into native code.
// This is the same as TranslateWithConfig with NewRuntimeConfig.
//
// Note: Either all functions are translated or none: native code translated before an error is released.
func Translate(source []byte) (*TranslatedModule, error) {
	return TranslateWithConfig(source, NewRuntimeConfig())
}

// TranslateWithConfig is like Translate, but uses the given RuntimeConfig.
func TranslateWithConfig(source []byte, config *RuntimeConfig) (*TranslatedModule, error) {
	if config == nil {
		config = NewRuntimeConfig()
	}
	logger := config.logger

	m, err := binary.DecodeModule(source)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	compiled, err := jit.Compile(m, logger)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	logger.Debug("translated module", zap.Int("functions", compiled.NumFunctions()), zap.Int("size", len(source)))

	ret := &TranslatedModule{compiled: compiled, logger: logger}
	// The native code lives outside the Go heap, so release it if the caller forgets to Close.
	runtime.SetFinalizer(ret, func(m *TranslatedModule) { _ = m.Close() })
	return ret, nil
}

// TranslatedModule is the native code of a module's functions. It is safe for concurrent use.
//
// Note: Close releases the native code. Until then, Execute can be called any number of times.
type TranslatedModule struct {
	// mux guards compiled: Execute holds the read lock so Close never unmaps code while it runs.
	mux      sync.RWMutex
	compiled *jit.CompiledModule
	closed   bool
	logger   *zap.Logger
}

// NumFunctions returns the count of functions defined in the module. Indexes passed to Execute are below this.
func (m *TranslatedModule) NumFunctions() int {
	m.mux.RLock()
	defer m.mux.RUnlock()
	if m.closed {
		return 0
	}
	return m.compiled.NumFunctions()
}

// FunctionType returns the signature of the function at index in text format notation, ex. "(i32, i32) -> (i32)".
// This returns false if the index is out of range or the module is closed.
func (m *TranslatedModule) FunctionType(index uint32) (string, bool) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	if m.closed {
		return "", false
	}
	ft := m.compiled.FunctionType(index)
	if ft == nil {
		return "", false
	}
	return ft.String(), true
}

// Execute calls the function at functionIndex with the two arguments, and returns its result.
//
// Errors are returned when:
// * ErrModuleClosed: Close was called.
// * ErrInvalidFunctionIndex: functionIndex is not below NumFunctions.
// * ErrSignatureMismatch: the function is not "(i32, i32) -> i32".
// * ErrRuntimeUnreachable: the function reached an "unreachable" instruction. The module remains usable.
func (m *TranslatedModule) Execute(functionIndex uint32, arg0, arg1 uint64) (uint64, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	if m.closed {
		return 0, ErrModuleClosed
	}

	ft := m.compiled.FunctionType(functionIndex)
	if ft == nil {
		return 0, fmt.Errorf("%w: %d out of range of %d functions", ErrInvalidFunctionIndex,
			functionIndex, m.compiled.NumFunctions())
	}
	if !ft.EqualsSignature(executableSignature.params, executableSignature.results) {
		return 0, fmt.Errorf("%w: function[%d] is %s", ErrSignatureMismatch, functionIndex, ft)
	}

	results, err := m.compiled.Call(functionIndex, arg0, arg1)
	if err != nil {
		return 0, err
	}
	return results[0], nil
}

// Close releases the native code. Subsequent calls to Execute return ErrModuleClosed, and closing again is a
// no-op.
func (m *TranslatedModule) Close() error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	runtime.SetFinalizer(m, nil)
	if err := m.compiled.Close(); err != nil {
		m.logger.Warn("failed to release native code", zap.Error(err))
		return err
	}
	return nil
}
