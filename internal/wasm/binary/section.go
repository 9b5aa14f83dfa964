package binary

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/lightjit/lightjit/internal/leb128"
	"github.com/lightjit/lightjit/internal/wasm"
)

// functionTypeForm prefixes every entry of the type section.
const functionTypeForm = 0x60

// decodeCustomSection checks the name of a custom section and discards the rest. Custom sections, "name"
// included, never affect translation.
// See https://www.w3.org/TR/wasm-core-1/#custom-section%E2%91%A0
func decodeCustomSection(r *bytes.Reader) error {
	size, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("read name size: %v", err)
	}
	if int64(size) > int64(r.Len()) {
		return fmt.Errorf("name size %d exceeds section", size)
	}
	name := make([]byte, size)
	if _, err = io.ReadFull(r, name); err != nil {
		return fmt.Errorf("read name: %v", err)
	}
	if !utf8.Valid(name) {
		return fmt.Errorf("name is not valid utf8")
	}
	_, err = r.Seek(0, io.SeekEnd)
	return err
}

// decodeVector reads a count followed by that many elements decoded by decodeElem.
// See https://www.w3.org/TR/wasm-core-1/#vectors%E2%91%A0
func decodeVector[T any](r *bytes.Reader, what string, decodeElem func(*bytes.Reader) (T, error)) ([]T, error) {
	count, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read %s count: %w", what, err)
	}
	// Every element takes at least a byte, so the remaining length caps the preallocation.
	capacity := int(count)
	if remaining := r.Len(); int64(count) > int64(remaining) {
		capacity = remaining
	}
	ret := make([]T, 0, capacity)
	for i := uint32(0); i < count; i++ {
		elem, err := decodeElem(r)
		if err != nil {
			return nil, fmt.Errorf("read %s[%d]: %w", what, i, err)
		}
		ret = append(ret, elem)
	}
	return ret, nil
}

func decodeTypeSection(r *bytes.Reader) ([]*wasm.FunctionType, error) {
	return decodeVector(r, "type", decodeFunctionType)
}

func decodeFunctionSection(r *bytes.Reader) ([]wasm.Index, error) {
	return decodeVector(r, "type index", func(r *bytes.Reader) (wasm.Index, error) {
		idx, _, err := leb128.DecodeUint32(r)
		return idx, err
	})
}

func decodeCodeSection(r *bytes.Reader) ([]*wasm.Code, error) {
	return decodeVector(r, "code", decodeCode)
}

// decodeFunctionType reads "0x60 params results". Only zero or one result is supported.
func decodeFunctionType(r *bytes.Reader) (*wasm.FunctionType, error) {
	form, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read form: %w", err)
	}
	if form != functionTypeForm {
		return nil, fmt.Errorf("%w: invalid byte %#x != %#x", wasm.ErrMalformedInput, form, functionTypeForm)
	}

	numParams, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read param count: %w", err)
	}
	params, err := decodeValueTypes(r, numParams)
	if err != nil {
		return nil, fmt.Errorf("read param types: %w", err)
	}

	numResults, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read result count: %w", err)
	}
	if numResults > 1 {
		return nil, fmt.Errorf("%w: multiple result types", wasm.ErrUnsupportedFeature)
	}
	results, err := decodeValueTypes(r, numResults)
	if err != nil {
		return nil, fmt.Errorf("read result types: %w", err)
	}
	return &wasm.FunctionType{Params: params, Results: results}, nil
}
