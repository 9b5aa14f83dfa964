package jit

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lightjit/lightjit/internal/asm"
	"github.com/lightjit/lightjit/internal/wasm"
)

// translator walks the body of one function in a single pass, simulating the control frames
// while the compiler simulates the operand stack and emits native code.
type translator struct {
	f      *wasm.Function
	c      compiler
	frames controlFrames
	// numLocals is the count of parameters plus declared locals.
	numLocals uint64
	// unreachableState is true while skipping the code after br or unreachable
	// until the else or end of the construct they appear in.
	unreachableState bool
	// unreachableDepth is the count of constructs opened while in unreachableState.
	unreachableDepth int
}

// compileFunction translates f into machine code. The code becomes executable once mapCodeSegment places it.
func compileFunction(f *wasm.Function, logger *zap.Logger) (*compiledFunction, error) {
	c, err := newCompiler(f)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assembly builder: %w", err)
	}

	t := &translator{f: f, c: c, numLocals: uint64(len(f.Type.Params)) + uint64(f.NumLocals)}
	if err = c.compilePreamble(); err != nil {
		return nil, fmt.Errorf("failed to emit preamble: %w", err)
	}
	t.frames.push(&controlFrame{
		kind:        controlFrameKindFunction,
		arity:       len(f.Type.Results),
		entryHeight: t.numLocals,
	})

	body := f.Body
	var pc uint64
	for pc < uint64(len(body)) {
		if t.frames.empty() {
			return nil, fmt.Errorf("%w: %d bytes after the end of the function body", wasm.ErrMalformedInput, uint64(len(body))-pc)
		}
		inst, n, err := wasm.DecodeInstruction(body, pc)
		if err != nil {
			return nil, err
		}
		if logger.Core().Enabled(zap.DebugLevel) {
			logger.Debug("compiling instruction", zap.Uint64("pc", pc), zap.Stringer("instruction", inst),
				zap.Bool("unreachable", t.unreachableState), zap.Stringer("stack", c.valueLocationStack()))
		}
		if err = t.translate(inst); err != nil {
			return nil, fmt.Errorf("failed to compile %s at %#x: %w", inst, pc, err)
		}
		pc += n
	}
	if !t.frames.empty() {
		return nil, fmt.Errorf("%w: function body ended inside %d constructs", wasm.ErrMalformedInput, len(t.frames.frames))
	}

	code, stackPointerCeil, err := c.compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile: %w", err)
	}
	logger.Debug("compiled function", zap.Uint32("index", f.Index), zap.Int("code_size", len(code)),
		zap.Uint64("stack_pointer_ceil", stackPointerCeil))
	return newCompiledFunction(f, code, stackPointerCeil), nil
}

func (t *translator) translate(inst wasm.Instruction) error {
	if t.unreachableState {
		return t.translateUnreachable(inst)
	}

	switch inst.Kind {
	case wasm.InstructionKindLocalGet:
		if uint64(inst.Index) >= t.numLocals {
			return fmt.Errorf("%w: local index %d out of range of %d locals", wasm.ErrMalformedInput, inst.Index, t.numLocals)
		}
		return t.c.compileLocalGet(inst.Index)
	case wasm.InstructionKindI32Add:
		if err := t.requireOperands(2); err != nil {
			return err
		}
		return t.c.compileAdd()
	case wasm.InstructionKindI32Eq:
		if err := t.requireOperands(2); err != nil {
			return err
		}
		return t.c.compileEq()
	case wasm.InstructionKindBlock:
		t.frames.push(&controlFrame{
			kind:        controlFrameKindBlock,
			arity:       inst.Arity,
			entryHeight: t.c.valueLocationStack().sp,
		})
	case wasm.InstructionKindIf:
		if err := t.requireOperands(1); err != nil {
			return err
		}
		elseFixup, err := t.c.compileJumpIfZero()
		if err != nil {
			return err
		}
		t.frames.push(&controlFrame{
			kind:        controlFrameKindIfWithoutElse,
			arity:       inst.Arity,
			entryHeight: t.c.valueLocationStack().sp,
			elseFixup:   elseFixup,
		})
	case wasm.InstructionKindElse:
		frame := t.frames.top()
		if frame.kind != controlFrameKindIfWithoutElse {
			return fmt.Errorf("%w: else inside %s", wasm.ErrMalformedInput, frame.kind)
		}
		if err := frame.checkExit(t.c.valueLocationStack().sp); err != nil {
			return err
		}
		if err := t.c.compileCarry(frame.entryHeight, frame.arity); err != nil {
			return err
		}
		frame.exits = append(frame.exits, t.c.compileJump())
		return t.enterElse(frame)
	case wasm.InstructionKindEnd:
		frame := t.frames.top()
		if err := frame.checkExit(t.c.valueLocationStack().sp); err != nil {
			return err
		}
		if err := t.c.compileCarry(frame.entryHeight, frame.arity); err != nil {
			return err
		}
		return t.exitFrame()
	case wasm.InstructionKindBr:
		target, err := t.frames.target(inst.Index)
		if err != nil {
			return err
		}
		if err = t.requireOperands(target.arity); err != nil {
			return err
		}
		if err = t.branchInto(target); err != nil {
			return err
		}
		t.enterUnreachableState()
	case wasm.InstructionKindBrIf:
		target, err := t.frames.target(inst.Index)
		if err != nil {
			return err
		}
		if err = t.requireOperands(1 + target.arity); err != nil {
			return err
		}
		// jump_if_zero -> carry -> jmp (target) -> skip: ...
		skip, err := t.c.compileJumpIfZero()
		if err != nil {
			return err
		}
		if err = t.branchInto(target); err != nil {
			return err
		}
		return skip.patch(t.c.compileLabel())
	case wasm.InstructionKindUnreachable:
		if err := t.c.compileUnreachable(); err != nil {
			return err
		}
		t.enterUnreachableState()
	default:
		return fmt.Errorf("%w: %s", wasm.ErrUnsupportedOpcode, inst.Kind)
	}
	return nil
}

// translateUnreachable only tracks the construct nesting, as no code is emitted until the
// else or end of the construct which became unreachable.
func (t *translator) translateUnreachable(inst wasm.Instruction) error {
	switch inst.Kind {
	case wasm.InstructionKindBlock, wasm.InstructionKindIf:
		t.unreachableDepth++
	case wasm.InstructionKindElse:
		if t.unreachableDepth > 0 {
			return nil
		}
		frame := t.frames.top()
		if frame.kind != controlFrameKindIfWithoutElse {
			return fmt.Errorf("%w: else inside %s", wasm.ErrMalformedInput, frame.kind)
		}
		t.unreachableState = false
		return t.enterElse(frame)
	case wasm.InstructionKindEnd:
		if t.unreachableDepth > 0 {
			t.unreachableDepth--
			return nil
		}
		t.unreachableState = false
		return t.exitFrame()
	}
	return nil
}

func (t *translator) enterUnreachableState() {
	t.unreachableState = true
	t.unreachableDepth = 0
}

// requireOperands fails unless n values are above the entry height of the innermost construct.
func (t *translator) requireOperands(n int) error {
	height, floor := t.c.valueLocationStack().sp, t.frames.top().entryHeight
	if height-floor < uint64(n) {
		return fmt.Errorf("%w: requires %d operands but %d available", wasm.ErrStackUnderflow, n, height-floor)
	}
	return nil
}

// branchInto carries the target's results into its result slots and jumps to its end.
func (t *translator) branchInto(target *controlFrame) error {
	if err := t.c.compileCarry(target.entryHeight, target.arity); err != nil {
		return err
	}
	target.exits = append(target.exits, t.c.compileJump())
	return nil
}

// enterElse starts the else arm from the same stack shape the then arm started with.
func (t *translator) enterElse(frame *controlFrame) error {
	if err := frame.elseFixup.patch(t.c.compileLabel()); err != nil {
		return err
	}
	frame.elseFixup = nil
	frame.kind = controlFrameKindIfWithElse
	t.c.valueLocationStack().truncate(frame.entryHeight)
	return nil
}

// exitFrame resolves every jump to the end of the innermost construct and leaves exactly its results on the
// stack. The values must already be carried into the result slots on the fall-through path.
func (t *translator) exitFrame() error {
	frame := t.frames.pop()
	if frame.kind == controlFrameKindIfWithoutElse && frame.arity > 0 {
		return fmt.Errorf("%w: if without else must not have results", wasm.ErrMalformedInput)
	}

	var label asm.Node
	if len(frame.exits) > 0 || frame.elseFixup != nil {
		label = t.c.compileLabel()
	}
	for _, exit := range frame.exits {
		if err := exit.patch(label); err != nil {
			return err
		}
	}
	if frame.elseFixup != nil {
		if err := frame.elseFixup.patch(label); err != nil {
			return err
		}
	}

	stack := t.c.valueLocationStack()
	stack.truncate(frame.entryHeight)
	for i := 0; i < frame.arity; i++ {
		stack.pushValueLocationOnStack()
	}

	if frame.kind == controlFrameKindFunction {
		return t.c.compileReturn()
	}
	return nil
}
