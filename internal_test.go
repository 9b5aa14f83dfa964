package lightjit

import (
	"github.com/lightjit/lightjit/internal/leb128"
	"github.com/lightjit/lightjit/internal/wasm"
	"github.com/lightjit/lightjit/internal/wasm/binary"
)

var (
	i32    = wasm.ValueTypeI32
	i32i32 = &wasm.FunctionType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}}
)

// newModule encodes a module whose functions are all "(i32, i32) -> i32" with the given bodies.
func newModule(bodies ...[]byte) []byte {
	return binary.EncodeModule(binaryModule(bodies...))
}

func binaryModule(bodies ...[]byte) *wasm.Module {
	m := &wasm.Module{TypeSection: []*wasm.FunctionType{i32i32}}
	for _, body := range bodies {
		m.FunctionSection = append(m.FunctionSection, 0)
		m.CodeSection = append(m.CodeSection, &wasm.Code{Body: body})
	}
	return m
}

// newExportedModule is like newModule, but exports each function as its index, ex. "0", so other runtimes can
// call it.
func newExportedModule(bodies ...[]byte) []byte {
	m := binaryModule(bodies...)
	code := m.CodeSection
	m.CodeSection = nil

	exports := leb128.EncodeUint32(uint32(len(bodies)))
	for i := range bodies {
		name := exportName(uint32(i))
		exports = append(exports, leb128.EncodeUint32(uint32(len(name)))...)
		exports = append(exports, name...)
		exports = append(exports, 0x00) // func
		exports = append(exports, leb128.EncodeUint32(uint32(i))...)
	}

	ret := binary.EncodeModule(m)
	ret = append(ret, binary.EncodeSection(wasm.SectionIDExport, exports)...)
	return append(ret, binary.EncodeCodeSection(code)...)
}

func exportName(index uint32) string {
	return string(rune('a' + index))
}

const (
	localGet    = wasm.OpcodeLocalGet
	i32Add      = wasm.OpcodeI32Add
	i32Eq       = wasm.OpcodeI32Eq
	block       = wasm.OpcodeBlock
	if_         = wasm.OpcodeIf
	else_       = wasm.OpcodeElse
	end         = wasm.OpcodeEnd
	br          = wasm.OpcodeBr
	brIf        = wasm.OpcodeBrIf
	unreachable = wasm.OpcodeUnreachable

	blockI32   = wasm.ValueTypeI32
	blockEmpty = 0x40
)

var (
	addBody = []byte{localGet, 0, localGet, 1, i32Add, end}
	eqBody  = []byte{localGet, 0, localGet, 1, i32Eq, end}
	// ifThenElseBody is "if a == b then a else b".
	ifThenElseBody = []byte{
		localGet, 0, localGet, 1, i32Eq,
		if_, blockI32,
		localGet, 0,
		else_,
		localGet, 1,
		end,
		end,
	}
	blockBody = []byte{block, blockI32, localGet, 0, end, end}
	// ifWithoutResultBody traps when a == b, otherwise returns a.
	ifWithoutResultBody = []byte{
		localGet, 0, localGet, 1, i32Eq,
		if_, blockEmpty,
		unreachable,
		end,
		localGet, 0,
		end,
	}
	brBlockBody = []byte{
		localGet, 1,
		block, blockI32,
		localGet, 0, localGet, 0,
		br, 0,
		unreachable,
		end,
		i32Add,
		end,
	}
	brIfBlockBody = []byte{
		localGet, 1,
		block, blockI32,
		localGet, 0, localGet, 0,
		brIf, 0,
		unreachable,
		end,
		i32Add,
		end,
	}
	brIfBlockPassthruBody = []byte{
		block, blockI32,
		localGet, 1,
		localGet, 0,
		brIf, 0,
		localGet, 1,
		i32Add,
		end,
		end,
	}
)
