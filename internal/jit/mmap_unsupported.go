//go:build !(linux || darwin || freebsd)

package jit

import (
	"fmt"
	"runtime"

	"github.com/lightjit/lightjit/internal/wasm"
)

func mmapCodeSegment([]byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: executable memory on GOOS %s", wasm.ErrUnsupportedFeature, runtime.GOOS)
}

func munmapCodeSegment([]byte) error {
	return fmt.Errorf("%w: executable memory on GOOS %s", wasm.ErrUnsupportedFeature, runtime.GOOS)
}
