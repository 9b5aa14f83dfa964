package jit

import (
	"errors"
	"fmt"

	"github.com/lightjit/lightjit/internal/asm"
)

// compiler is the interface of architecture-specific native code compiler,
// and this is responsible for emitting native code for each instruction the translator walks.
type compiler interface {
	// String is for debugging purpose.
	String() string
	// valueLocationStack returns the operand stack simulated by this compiler.
	valueLocationStack() *valueLocationStack
	// compilePreamble is called before compiling any instruction.
	// This is used, for example, to initialize the reserved registers, etc.
	compilePreamble() error
	// compile generates the byte slice of native code.
	// stackPointerCeil is the max stack pointer that the target function would reach.
	// This fails when any fixup returned by this compiler is left unpatched.
	compile() (code []byte, stackPointerCeil uint64, err error)
	// compileLocalGet pushes the value of the local at index.
	// See wasm.OpcodeLocalGet
	compileLocalGet(index uint32) error
	// compileAdd pops two values and pushes their sum.
	// See wasm.OpcodeI32Add
	compileAdd() error
	// compileEq pops two values and pushes 1 if they are equal, 0 otherwise.
	// See wasm.OpcodeI32Eq
	compileEq() error
	// compileJumpIfZero pops the condition, releases all the values on registers to the stack
	// and adds the jump taken when the condition equals zero.
	compileJumpIfZero() (*fixup, error)
	// compileJump adds an unconditional jump whose target is resolved later.
	compileJump() *fixup
	// compileLabel returns the position of the next instruction so fixups can target it.
	compileLabel() asm.Node
	// compileCarry moves the top arity values into the slots starting at entryHeight,
	// after releasing all the values on registers to the stack. The operand stack is left intact.
	compileCarry(entryHeight uint64, arity int) error
	// compileUnreachable adds instructions to return to the engine with jitCallStatusCodeUnreachable status.
	// See wasm.OpcodeUnreachable
	compileUnreachable() error
	// compileReturn adds instructions to return to the engine with jitCallStatusCodeReturned status.
	compileReturn() error
}

// jumpKind is the kind of a jump a fixup stands for.
type jumpKind byte

const (
	jumpKindUnconditional jumpKind = iota
	jumpKindIfZero
)

func (k jumpKind) String() (ret string) {
	switch k {
	case jumpKindUnconditional:
		ret = "unconditional"
	case jumpKindIfZero:
		ret = "if_zero"
	}
	return
}

// fixup is a forward jump emitted before its target is known.
// Every fixup must be patched exactly once before the function is compiled.
type fixup struct {
	kind    jumpKind
	jump    asm.Node
	patched bool
}

func (f *fixup) String() string {
	return fmt.Sprintf("%s jump %s (patched=%v)", f.kind, f.jump, f.patched)
}

// patch makes the jump of this fixup target the given label.
func (f *fixup) patch(label asm.Node) error {
	if f.patched {
		return fmt.Errorf("BUG: %s patched twice", f)
	}
	f.jump.AssignJumpTarget(label)
	f.patched = true
	return nil
}

// fixups tracks every fixup of a function so compile can detect the ones left unpatched.
type fixups []*fixup

func (fs *fixups) add(kind jumpKind, jump asm.Node) *fixup {
	f := &fixup{kind: kind, jump: jump}
	*fs = append(*fs, f)
	return f
}

func (fs fixups) checkPatched() error {
	var errs []error
	for _, f := range fs {
		if !f.patched {
			errs = append(errs, fmt.Errorf("BUG: unpatched %s", f))
		}
	}
	return errors.Join(errs...)
}
