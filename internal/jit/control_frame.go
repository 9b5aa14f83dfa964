package jit

import (
	"fmt"

	"github.com/lightjit/lightjit/internal/wasm"
)

type controlFrameKind byte

const (
	controlFrameKindFunction controlFrameKind = iota
	controlFrameKindBlock
	controlFrameKindIfWithoutElse
	controlFrameKindIfWithElse
)

func (k controlFrameKind) String() (ret string) {
	switch k {
	case controlFrameKindFunction:
		ret = "function"
	case controlFrameKindBlock:
		ret = "block"
	case controlFrameKindIfWithoutElse:
		ret = "if"
	case controlFrameKindIfWithElse:
		ret = "if_with_else"
	}
	return
}

// controlFrame is a structured construct (the function body, a block or an if) being translated.
type controlFrame struct {
	kind controlFrameKind
	// arity is the number of values this construct leaves on the stack when it exits.
	arity int
	// entryHeight is the height of the operand stack when entering this construct.
	// The construct's results live in the slots starting at entryHeight on every exit.
	entryHeight uint64
	// exits are the jumps to the end of this construct.
	exits []*fixup
	// elseFixup is the jump taken when the condition of an if is zero, until the else or end is reached.
	elseFixup *fixup
}

func (f *controlFrame) String() string {
	return fmt.Sprintf("%s (arity=%d, entry=%d, exits=%d)", f.kind, f.arity, f.entryHeight, len(f.exits))
}

// checkExit verifies the construct exit contract: exactly arity values above entryHeight.
func (f *controlFrame) checkExit(height uint64) error {
	n := height - f.entryHeight
	if n < uint64(f.arity) {
		return fmt.Errorf("%w: %s must exit with %d values but has %d", wasm.ErrStackUnderflow, f.kind, f.arity, n)
	} else if n > uint64(f.arity) {
		return fmt.Errorf("%w: %s must exit with %d values but has %d", wasm.ErrMalformedInput, f.kind, f.arity, n)
	}
	return nil
}

// controlFrames is the stack of constructs enclosing the instruction being translated.
type controlFrames struct {
	frames []*controlFrame
}

func (s *controlFrames) empty() bool {
	return len(s.frames) == 0
}

func (s *controlFrames) push(frame *controlFrame) {
	s.frames = append(s.frames, frame)
}

func (s *controlFrames) pop() (frame *controlFrame) {
	frame = s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return
}

func (s *controlFrames) top() *controlFrame {
	return s.frames[len(s.frames)-1]
}

// target returns the construct a branch with the given relative depth exits.
func (s *controlFrames) target(depth uint32) (*controlFrame, error) {
	if uint64(depth) >= uint64(len(s.frames)) {
		return nil, fmt.Errorf("%w: branch depth %d exceeds the %d enclosing constructs",
			wasm.ErrMalformedInput, depth, len(s.frames))
	}
	return s.frames[len(s.frames)-1-int(depth)], nil
}
