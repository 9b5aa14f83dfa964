package jit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/lightjit/lightjit/internal/wasm"
)

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
)

type call struct {
	a, b, exp uint64
}

// compileTestModule maps f as the only function of a module, which is closed when the test ends.
func compileTestModule(t *testing.T, f *wasm.Function) *CompiledModule {
	cf, err := compileFunction(f, zaptest.NewLogger(t))
	require.NoError(t, err)
	cm, err := newCompiledModule([]*compiledFunction{cf}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cm.Close()) })
	return cm
}

// repeat returns n copies of seq followed by suffix.
func repeat(n int, seq []byte, suffix ...byte) (ret []byte) {
	for i := 0; i < n; i++ {
		ret = append(ret, seq...)
	}
	return append(ret, suffix...)
}

func TestCompileFunction(t *testing.T) {
	tests := []struct {
		name  string
		body  []byte
		calls []call
	}{
		{
			name: "adds",
			body: []byte{localGet, 0, localGet, 1, i32Add, end},
			calls: []call{
				{a: 5, b: 3, exp: 8},
				{a: 0, b: 228, exp: 228},
				{a: math.MaxUint64, b: 1, exp: 0},
			},
		},
		{
			name: "eq",
			body: []byte{localGet, 0, localGet, 1, i32Eq, end},
			calls: []call{
				{a: 0, b: 0, exp: 1},
				{a: 0, b: 1, exp: 0},
				{a: 1, b: 0, exp: 0},
				{a: 1, b: 1, exp: 1},
				{a: 1312, b: 1, exp: 0},
				{a: 1312, b: 1312, exp: 1},
			},
		},
		{
			name:  "block",
			body:  []byte{block, blockI32, localGet, 0, end, end},
			calls: []call{{a: 10, b: 20, exp: 10}},
		},
		{
			name: "if on local",
			body: []byte{
				localGet, 1,
				if_, blockI32,
				localGet, 0,
				else_,
				localGet, 1,
				end,
				end,
			},
			calls: []call{
				{a: 0, b: 1, exp: 0},
				{a: 0, b: 0, exp: 0},
				{a: 1, b: 0, exp: 0},
				{a: 1, b: 1, exp: 1},
				{a: 1312, b: 1, exp: 1312},
				{a: 1312, b: 1312, exp: 1312},
			},
		},
		{
			name: "if then else",
			body: []byte{
				localGet, 0, localGet, 1, i32Eq,
				if_, blockI32,
				localGet, 0,
				else_,
				localGet, 1,
				end,
				end,
			},
			calls: []call{
				{a: 0, b: 1, exp: 1},
				{a: 0, b: 0, exp: 0},
				{a: 1, b: 0, exp: 0},
				{a: 1, b: 1, exp: 1},
				{a: 1312, b: 1, exp: 1},
				{a: 1312, b: 1312, exp: 1312},
			},
		},
		{
			name: "if without result",
			body: []byte{
				localGet, 0, localGet, 1, i32Eq,
				if_, blockEmpty,
				unreachable,
				end,
				localGet, 0,
				end,
			},
			calls: []call{{a: 2, b: 3, exp: 2}, {a: 0, b: 1, exp: 0}},
		},
		{
			name: "br block",
			body: []byte{
				localGet, 1,
				block, blockI32,
				localGet, 0, localGet, 0,
				br, 0,
				unreachable,
				end,
				i32Add,
				end,
			},
			calls: []call{{a: 5, b: 7, exp: 12}},
		},
		{
			name: "br_if block",
			body: []byte{
				localGet, 1,
				block, blockI32,
				localGet, 0, localGet, 0,
				brIf, 0,
				unreachable,
				end,
				i32Add,
				end,
			},
			calls: []call{{a: 5, b: 7, exp: 12}},
		},
		{
			name: "br_if block passthru",
			body: []byte{
				block, blockI32,
				localGet, 1,
				localGet, 0,
				brIf, 0,
				localGet, 1,
				i32Add,
				end,
				end,
			},
			calls: []call{
				{a: 0, b: 3, exp: 6},
				{a: 1, b: 3, exp: 3},
			},
		},
		{
			name: "br_if on eq",
			body: []byte{
				block, blockI32,
				localGet, 0,
				localGet, 0, localGet, 1, i32Eq,
				brIf, 0,
				localGet, 1,
				i32Add,
				end,
				end,
			},
			calls: []call{
				{a: 4, b: 4, exp: 4},
				{a: 4, b: 5, exp: 9},
			},
		},
		{
			name: "br out of nested blocks",
			body: []byte{
				block, blockI32,
				block, blockEmpty,
				localGet, 0,
				br, 1,
				end,
				localGet, 1,
				end,
				end,
			},
			calls: []call{{a: 3, b: 4, exp: 3}},
		},
		{
			name: "br to function",
			body: []byte{
				localGet, 1,
				localGet, 0,
				br, 0,
				end,
			},
			calls: []call{{a: 3, b: 4, exp: 3}},
		},
		{
			name: "br_if to function",
			body: []byte{
				localGet, 0,
				localGet, 1,
				brIf, 0,
				localGet, 1,
				i32Add,
				end,
			},
			calls: []call{
				{a: 3, b: 4, exp: 3},
				{a: 3, b: 0, exp: 3},
			},
		},
		{
			name: "nested ifs",
			body: []byte{
				localGet, 0,
				if_, blockI32,
				localGet, 1,
				if_, blockI32,
				localGet, 0, localGet, 1, i32Add,
				else_,
				localGet, 0,
				end,
				else_,
				localGet, 1,
				end,
				end,
			},
			calls: []call{
				{a: 1, b: 2, exp: 3},
				{a: 1, b: 0, exp: 1},
				{a: 0, b: 2, exp: 2},
				{a: 0, b: 0, exp: 0},
			},
		},
		{
			name: "unreachable else arm",
			body: []byte{
				localGet, 0,
				if_, blockI32,
				localGet, 1,
				else_,
				unreachable,
				block, blockEmpty,
				end,
				end,
				end,
			},
			calls: []call{{a: 1, b: 9, exp: 9}},
		},
		{
			// Keeps more values on registers than the registers available.
			name:  "register pressure",
			body:  repeat(12, []byte{localGet, 0, localGet, 1, i32Add}, repeat(11, []byte{i32Add}, end)...),
			calls: []call{{a: 1, b: 2, exp: 36}, {a: 0, b: 0, exp: 0}},
		},
		{
			// Conditional flags are saved on registers before the next value is pushed.
			name: "chained eq",
			body: []byte{
				localGet, 0, localGet, 1, i32Eq,
				localGet, 0, localGet, 1, i32Eq,
				i32Eq,
				localGet, 0, localGet, 0, i32Eq,
				i32Add,
				end,
			},
			calls: []call{{a: 1, b: 1, exp: 2}, {a: 1, b: 2, exp: 2}},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			cm := compileTestModule(t, newBinaryFunction(tc.body...))
			for _, c := range tc.calls {
				results, err := cm.Call(0, c.a, c.b)
				require.NoError(t, err)
				require.Equal(t, []uint64{c.exp}, results, "(%d, %d)", c.a, c.b)
			}
		})
	}
}

func TestCompileFunction_Locals(t *testing.T) {
	// Declared locals are zero.
	f := &wasm.Function{Type: i32i32, NumLocals: 1, Body: []byte{localGet, 0, localGet, 2, i32Add, end}}
	cm := compileTestModule(t, f)
	results, err := cm.Call(0, 5, 6)
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, results)
}

func TestCompileFunction_NoResults(t *testing.T) {
	cm := compileTestModule(t, &wasm.Function{Type: i32_v, Body: []byte{
		localGet, 0,
		if_, blockEmpty,
		unreachable,
		end,
		end,
	}})
	results, err := cm.Call(0, 0, 1)
	require.NoError(t, err)
	require.Empty(t, results)

	_, err = cm.Call(0, 1, 1)
	require.ErrorIs(t, err, wasm.ErrRuntimeUnreachable)
}

func TestCompileFunction_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		expErr error
	}{
		{name: "add on one operand", body: []byte{localGet, 0, i32Add, end}, expErr: wasm.ErrStackUnderflow},
		{name: "eq on empty", body: []byte{i32Eq, end}, expErr: wasm.ErrStackUnderflow},
		{name: "if without condition", body: []byte{if_, blockEmpty, end, localGet, 0, end}, expErr: wasm.ErrStackUnderflow},
		{name: "missing result", body: []byte{end}, expErr: wasm.ErrStackUnderflow},
		{name: "extra result", body: []byte{localGet, 0, localGet, 1, end}, expErr: wasm.ErrMalformedInput},
		{
			name:   "block missing result",
			body:   []byte{block, blockI32, end, end},
			expErr: wasm.ErrStackUnderflow,
		},
		{
			name:   "block operands are not visible",
			body:   []byte{localGet, 0, localGet, 1, block, blockI32, i32Add, end, end},
			expErr: wasm.ErrStackUnderflow,
		},
		{
			name:   "br missing result",
			body:   []byte{block, blockI32, br, 0, end, end},
			expErr: wasm.ErrStackUnderflow,
		},
		{
			name:   "br_if missing result",
			body:   []byte{block, blockI32, localGet, 0, brIf, 0, end, end},
			expErr: wasm.ErrStackUnderflow,
		},
		{
			name:   "invalid branch depth",
			body:   []byte{localGet, 0, br, 1, end},
			expErr: wasm.ErrMalformedInput,
		},
		{
			name:   "invalid local index",
			body:   []byte{localGet, 2, end},
			expErr: wasm.ErrMalformedInput,
		},
		{
			name:   "if without else with result",
			body:   []byte{localGet, 0, if_, blockI32, localGet, 1, end, end},
			expErr: wasm.ErrMalformedInput,
		},
		{
			name:   "else in block",
			body:   []byte{block, blockI32, localGet, 0, else_, end, end},
			expErr: wasm.ErrMalformedInput,
		},
		{
			name:   "else twice",
			body:   []byte{localGet, 0, if_, blockI32, localGet, 0, else_, localGet, 1, else_, end, end},
			expErr: wasm.ErrMalformedInput,
		},
		{name: "trailing bytes", body: []byte{localGet, 0, end, end}, expErr: wasm.ErrMalformedInput},
		{name: "no end", body: []byte{localGet, 0}, expErr: wasm.ErrMalformedInput},
		{name: "unclosed block", body: []byte{block, blockEmpty, localGet, 0, end}, expErr: wasm.ErrMalformedInput},
		{name: "unsupported opcode", body: []byte{0x41, 0x01, end}, expErr: wasm.ErrUnsupportedOpcode},
		{
			name:   "unsupported opcode in unreachable code",
			body:   []byte{unreachable, 0x10, 0x00, end},
			expErr: wasm.ErrUnsupportedOpcode,
		},
		{name: "unsupported block type", body: []byte{block, wasm.ValueTypeF32, end, end}, expErr: wasm.ErrUnsupportedFeature},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := compileFunction(newBinaryFunction(tc.body...), zap.NewNop())
			require.ErrorIs(t, err, tc.expErr)
		})
	}
}
