package jit

import (
	"github.com/lightjit/lightjit/internal/wasm"
)

func init() {
	unreservedGeneralPurposeIntRegisters = amd64AllocatableRegisters
}

// jitcall is used by callEngine.execWasmFunction to enter the native code.
// codeSegment is the pointer to the initial instruction of the compiled native code.
// ce is "*callEngine" as uintptr.
//
// Note: this is implemented in arch_amd64.s. The native code returns with RET straight to the caller of jitcall.
func jitcall(codeSegment, ce uintptr)

// newCompiler returns a new compiler interface which can be used to compile the given function.
func newCompiler(f *wasm.Function) (compiler, error) {
	return newAmd64Compiler(f)
}
