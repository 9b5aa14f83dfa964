//go:build !amd64

package jit

import (
	"fmt"
	"runtime"

	"github.com/lightjit/lightjit/internal/wasm"
)

func jitcall(codeSegment, ce uintptr) {
	panic("unsupported GOARCH")
}

func newCompiler(*wasm.Function) (compiler, error) {
	return nil, fmt.Errorf("%w: native code generation for GOARCH %s", wasm.ErrUnsupportedFeature, runtime.GOARCH)
}
