package binary

import (
	"github.com/lightjit/lightjit/internal/leb128"
	"github.com/lightjit/lightjit/internal/wasm"
)

// EncodeModule encodes the module in the WebAssembly 1.0 (MVP) Binary Format. It is the inverse of DecodeModule.
// Note: If saving to a file, the conventional extension is wasm
// See https://www.w3.org/TR/wasm-core-1/#binary-format%E2%91%A0
func EncodeModule(m *wasm.Module) (bytes []byte) {
	bytes = append(append([]byte{}, Magic...), version...)
	if len(m.TypeSection) > 0 {
		bytes = append(bytes, EncodeTypeSection(m.TypeSection)...)
	}
	if len(m.FunctionSection) > 0 {
		bytes = append(bytes, EncodeFunctionSection(m.FunctionSection)...)
	}
	if len(m.CodeSection) > 0 {
		bytes = append(bytes, EncodeCodeSection(m.CodeSection)...)
	}
	return
}

// EncodeSection encodes the sectionID, the size of its contents in bytes, followed by the contents.
// See https://www.w3.org/TR/wasm-core-1/#sections%E2%91%A0
func EncodeSection(sectionID wasm.SectionID, contents []byte) []byte {
	return append(append([]byte{sectionID}, leb128EncodeLen(len(contents))...), contents...)
}

// EncodeTypeSection encodes a wasm.SectionIDType for the given function types.
// See https://www.w3.org/TR/wasm-core-1/#type-section%E2%91%A0
func EncodeTypeSection(types []*wasm.FunctionType) []byte {
	contents := leb128EncodeLen(len(types))
	for _, t := range types {
		contents = append(contents, encodeFunctionType(t)...)
	}
	return EncodeSection(wasm.SectionIDType, contents)
}

// encodeFunctionType returns the wasm.FunctionType encoded in WebAssembly 1.0 (MVP) Binary Format.
// See https://www.w3.org/TR/wasm-core-1/#binary-functype
func encodeFunctionType(t *wasm.FunctionType) []byte {
	ret := append([]byte{0x60}, encodeValTypes(t.Params)...)
	return append(ret, encodeValTypes(t.Results)...)
}

// EncodeFunctionSection encodes a wasm.SectionIDFunction for the type indices of the functions defined in the module.
// See https://www.w3.org/TR/wasm-core-1/#function-section%E2%91%A0
func EncodeFunctionSection(typeIndices []wasm.Index) []byte {
	contents := leb128EncodeLen(len(typeIndices))
	for _, index := range typeIndices {
		contents = append(contents, leb128.EncodeUint32(index)...)
	}
	return EncodeSection(wasm.SectionIDFunction, contents)
}

// EncodeCodeSection encodes a wasm.SectionIDCode for the function bodies defined in the module.
// See https://www.w3.org/TR/wasm-core-1/#code-section%E2%91%A0
func EncodeCodeSection(code []*wasm.Code) []byte {
	contents := leb128EncodeLen(len(code))
	for _, c := range code {
		contents = append(contents, encodeCode(c)...)
	}
	return EncodeSection(wasm.SectionIDCode, contents)
}

func leb128EncodeLen(n int) []byte {
	return leb128.EncodeUint32(uint32(n))
}
