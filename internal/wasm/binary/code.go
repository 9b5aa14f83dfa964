package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lightjit/lightjit/internal/leb128"
	"github.com/lightjit/lightjit/internal/wasm"
)

// MaximumLocals bounds the locals a function may declare beyond its parameters. Each local occupies a slot of the
// value stack allocated per call.
const MaximumLocals = 1 << 16

func decodeCode(r *bytes.Reader) (*wasm.Code, error) {
	ss, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read code size: %v", wasm.ErrMalformedInput, err)
	}
	if int64(ss) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: code size %d exceeds remaining %d bytes", wasm.ErrMalformedInput, ss, r.Len())
	}
	content := make([]byte, ss)
	_, _ = r.Read(content)
	cr := bytes.NewReader(content)

	// parse locals
	ls, _, err := leb128.DecodeUint32(cr)
	if err != nil {
		return nil, fmt.Errorf("%w: read local declaration count: %v", wasm.ErrMalformedInput, err)
	}

	var sum uint64
	for i := uint32(0); i < ls; i++ {
		n, _, err := leb128.DecodeUint32(cr)
		if err != nil {
			return nil, fmt.Errorf("%w: read count of local declaration[%d]: %v", wasm.ErrMalformedInput, i, err)
		}
		sum += uint64(n)

		b, err := cr.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: read type of local declaration[%d]: %v", wasm.ErrMalformedInput, i, err)
		}
		if err = checkValueType(b); err != nil {
			return nil, fmt.Errorf("local type: %w", err)
		}
		if sum > MaximumLocals {
			return nil, fmt.Errorf("%w: too many locals: %d", wasm.ErrUnsupportedFeature, sum)
		}
	}

	body, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", wasm.ErrMalformedInput, err)
	}

	if len(body) == 0 || body[len(body)-1] != wasm.OpcodeEnd {
		return nil, fmt.Errorf("%w: body does not end with end", wasm.ErrMalformedInput)
	}

	return &wasm.Code{
		NumLocals: uint32(sum),
		Body:      body,
	}, nil
}

// encodeCode returns the wasm.Code encoded in WebAssembly 1.0 (MVP) Binary Format.
// Locals are encoded as a single i32 declaration.
//
// See https://www.w3.org/TR/wasm-core-1/#binary-code
func encodeCode(c *wasm.Code) []byte {
	var locals []byte
	if c.NumLocals == 0 {
		locals = []byte{0}
	} else {
		locals = append([]byte{1}, leb128.EncodeUint32(c.NumLocals)...)
		locals = append(locals, wasm.ValueTypeI32)
	}
	code := append(locals, c.Body...)
	return append(leb128EncodeLen(len(code)), code...)
}
