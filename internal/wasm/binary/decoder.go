package binary

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/lightjit/lightjit/internal/leb128"
	"github.com/lightjit/lightjit/internal/wasm"
)

var (
	// Magic is the 4 byte preamble (literally "\0asm") of the binary format
	// See https://www.w3.org/TR/wasm-core-1/#binary-magic
	Magic = []byte{0x00, 0x61, 0x73, 0x6D}
	// version is the only format version accepted.
	// See https://www.w3.org/TR/wasm-core-1/#binary-version
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// DecodeModule decodes the WebAssembly 1.0 (MVP) Binary Format restricted to the type, function, code and custom
// sections. Any other known section fails with wasm.ErrUnsupportedFeature and inconsistent framing fails with
// wasm.ErrMalformedInput.
//
// See https://www.w3.org/TR/wasm-core-1/#binary-format%E2%91%A0
func DecodeModule(binary []byte) (*wasm.Module, error) {
	r := bytes.NewReader(binary)

	// Magic number.
	buf := make([]byte, 4)
	if n, _ := r.Read(buf); n != 4 || !bytes.Equal(buf, Magic) {
		return nil, fmt.Errorf("%w: invalid magic number", wasm.ErrMalformedInput)
	}

	// Version.
	if n, _ := r.Read(buf); n != 4 || !bytes.Equal(buf, version) {
		return nil, fmt.Errorf("%w: invalid version header", wasm.ErrMalformedInput)
	}

	m := &wasm.Module{}
	var lastSectionID wasm.SectionID
	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			break // EOF between sections is the end of the module.
		}

		sectionSize, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: get size of section %s: %v",
				wasm.ErrMalformedInput, wasm.SectionIDName(sectionID), err)
		}
		if int64(sectionSize) > int64(r.Len()) {
			return nil, fmt.Errorf("%w: section %s size %d exceeds remaining %d bytes",
				wasm.ErrMalformedInput, wasm.SectionIDName(sectionID), sectionSize, r.Len())
		}

		if sectionID != wasm.SectionIDCustom {
			if sectionID <= lastSectionID {
				return nil, fmt.Errorf("%w: section %s is out of order or duplicated",
					wasm.ErrMalformedInput, wasm.SectionIDName(sectionID))
			}
			lastSectionID = sectionID
		}

		// Each section decodes from its own reader so that its length can be verified exactly.
		content := make([]byte, sectionSize)
		_, _ = r.Read(content)
		sr := bytes.NewReader(content)

		switch sectionID {
		case wasm.SectionIDCustom:
			err = decodeCustomSection(sr)
		case wasm.SectionIDType:
			m.TypeSection, err = decodeTypeSection(sr)
		case wasm.SectionIDFunction:
			m.FunctionSection, err = decodeFunctionSection(sr)
		case wasm.SectionIDCode:
			m.CodeSection, err = decodeCodeSection(sr)
		case wasm.SectionIDImport, wasm.SectionIDTable, wasm.SectionIDMemory, wasm.SectionIDGlobal,
			wasm.SectionIDExport, wasm.SectionIDStart, wasm.SectionIDElement, wasm.SectionIDData,
			wasm.SectionIDDataCount:
			err = fmt.Errorf("%w: %s section", wasm.ErrUnsupportedFeature, wasm.SectionIDName(sectionID))
		default:
			err = fmt.Errorf("%w: invalid section id %d", wasm.ErrMalformedInput, sectionID)
		}

		if err == nil && sr.Len() != 0 {
			err = fmt.Errorf("invalid section length: expected to be %d but got %d", sectionSize, int(sectionSize)-sr.Len())
		}

		if err != nil {
			return nil, sectionError(sectionID, err)
		}
	}

	if _, err := m.Functions(); err != nil {
		return nil, err
	}
	return m, nil
}

// sectionError classifies errors from section decoders. Anything not already classified is a framing error.
func sectionError(sectionID wasm.SectionID, err error) error {
	if errors.Is(err, wasm.ErrUnsupportedFeature) || errors.Is(err, wasm.ErrMalformedInput) {
		return fmt.Errorf("section %s: %w", wasm.SectionIDName(sectionID), err)
	}
	return fmt.Errorf("%w: section %s: %v", wasm.ErrMalformedInput, wasm.SectionIDName(sectionID), err)
}
