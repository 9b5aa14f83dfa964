package jit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightjit/lightjit/internal/asm"
)

// mockNode records the jump target assigned to it.
type mockNode struct {
	name   string
	target asm.Node
}

func (n *mockNode) String() string               { return n.name }
func (n *mockNode) AssignJumpTarget(t asm.Node) { n.target = t }
func (n *mockNode) OffsetInBinary() int64        { return 0 }

func TestJumpKind_String(t *testing.T) {
	require.Equal(t, "unconditional", jumpKindUnconditional.String())
	require.Equal(t, "if_zero", jumpKindIfZero.String())
}

func TestFixups(t *testing.T) {
	var fs fixups
	jmp, jeq := &mockNode{name: "JMP"}, &mockNode{name: "JEQ"}
	label := &mockNode{name: "NOP"}

	f1 := fs.add(jumpKindUnconditional, jmp)
	f2 := fs.add(jumpKindIfZero, jeq)
	require.Len(t, fs, 2)

	err := fs.checkPatched()
	require.EqualError(t, err, "BUG: unpatched unconditional jump JMP (patched=false)\n"+
		"BUG: unpatched if_zero jump JEQ (patched=false)")

	require.NoError(t, f1.patch(label))
	require.Equal(t, label, jmp.target)
	require.NoError(t, f2.patch(label))
	require.NoError(t, fs.checkPatched())

	require.EqualError(t, f1.patch(label), "BUG: unconditional jump JMP (patched=true) patched twice")
}
