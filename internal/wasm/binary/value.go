package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lightjit/lightjit/internal/wasm"
)

func decodeValueTypes(r *bytes.Reader, num uint32) ([]wasm.ValueType, error) {
	if num == 0 {
		return nil, nil
	}
	if int64(num) > int64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]wasm.ValueType, num)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	for _, v := range buf {
		if err := checkValueType(v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// checkValueType returns nil for wasm.ValueTypeI32, wasm.ErrUnsupportedFeature for other known value types and
// wasm.ErrMalformedInput otherwise.
func checkValueType(v wasm.ValueType) error {
	switch v {
	case wasm.ValueTypeI32:
		return nil
	case wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return fmt.Errorf("%w: value type %s", wasm.ErrUnsupportedFeature, wasm.ValueTypeName(v))
	}
	return fmt.Errorf("%w: invalid value type: %#x", wasm.ErrMalformedInput, v)
}

var noValType = []byte{0}

// encodeValTypes encodes a size prefixed vector of value types.
func encodeValTypes(vt []wasm.ValueType) []byte {
	if len(vt) == 0 {
		return noValType
	}
	return append(leb128EncodeLen(len(vt)), vt...)
}
