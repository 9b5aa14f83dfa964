package jit

// amd64 code generation. Instruction reference: https://www.felixcloutier.com/x86/index.html

import (
	"fmt"

	"github.com/lightjit/lightjit/internal/asm"
	"github.com/lightjit/lightjit/internal/asm/amd64"
	"github.com/lightjit/lightjit/internal/wasm"
)

const (
	// amd64CallEngineRegister holds the *callEngine for the whole call. jitcall loads it.
	amd64CallEngineRegister = amd64.REG_R13
	// amd64ValueStackRegister holds &valueStack[0], so slot i is at i*8 from it.
	amd64ValueStackRegister = amd64.REG_R12
)

// amd64AllocatableRegisters are handed out to operands. Generated code never calls out, so no register needs
// saving. R14 (current goroutine) and R15 (GOT) belong to the Go ABI and SP/BP to the frame.
var amd64AllocatableRegisters = []asm.Register{
	amd64.REG_AX, amd64.REG_CX, amd64.REG_DX, amd64.REG_BX,
	amd64.REG_SI, amd64.REG_DI, amd64.REG_R8, amd64.REG_R9,
	amd64.REG_R10, amd64.REG_R11,
}

type amd64Compiler struct {
	assembler amd64.Assembler
	f         *wasm.Function
	// locationStack tracks where each operand currently lives.
	locationStack *valueLocationStack
	fixups        fixups
}

func newAmd64Compiler(f *wasm.Function) (compiler, error) {
	a, err := amd64.NewAssembler()
	if err != nil {
		return nil, err
	}
	return &amd64Compiler{
		assembler:     a,
		f:             f,
		locationStack: newValueLocationStack(),
	}, nil
}

func (c *amd64Compiler) String() string {
	return c.locationStack.String()
}

// valueLocationStack implements compiler.
func (c *amd64Compiler) valueLocationStack() *valueLocationStack {
	return c.locationStack
}

// compile implements compiler. The code is not executable until mapCodeSegment places it.
func (c *amd64Compiler) compile() (code []byte, stackPointerCeil uint64, err error) {
	if err = c.fixups.checkPatched(); err != nil {
		return
	}
	if code, err = c.assembler.Assemble(); err != nil {
		return
	}
	return code, c.locationStack.stackPointerCeil, nil
}

// compilePreamble implements compiler.
//
// The caller has written the arguments to the first slots and zeroed the declared locals.
func (c *amd64Compiler) compilePreamble() error {
	c.pushFunctionLocals()
	c.assembler.CompileMemoryToRegister(amd64.MOVQ,
		amd64CallEngineRegister, callEngineValueStackElement0AddressOffset, amd64ValueStackRegister)
	return nil
}

func (c *amd64Compiler) pushFunctionLocals() {
	if c.f == nil || c.f.Type == nil {
		return
	}
	for i := 0; i < len(c.f.Type.Params)+int(c.f.NumLocals); i++ {
		c.locationStack.pushValueLocationOnStack()
	}
}

// compileLocalGet implements compiler.
//
// Locals are immutable here, so the slot is read when the value is consumed and nothing is emitted now.
func (c *amd64Compiler) compileLocalGet(index uint32) error {
	c.maybeCompileMoveTopConditionalToFreeGeneralPurposeRegister()
	c.locationStack.pushValueLocationOnLocal(uint64(index))
	return nil
}

// compileAdd implements compiler. The sum replaces the lower operand in place.
func (c *amd64Compiler) compileAdd() error {
	rhs := c.locationStack.pop()
	if err := c.compileEnsureOnGeneralPurposeRegister(rhs); err != nil {
		return err
	}
	lhs := c.locationStack.peek()
	if err := c.compileEnsureOnGeneralPurposeRegister(lhs); err != nil {
		return err
	}
	c.assembler.CompileRegisterToRegister(amd64.ADDQ, rhs.register, lhs.register)
	c.locationStack.releaseRegister(rhs)
	return nil
}

// compileEq implements compiler. The result stays in the flags until something needs it as an integer.
func (c *amd64Compiler) compileEq() error {
	rhs := c.locationStack.pop()
	if err := c.compileEnsureOnGeneralPurposeRegister(rhs); err != nil {
		return err
	}
	lhs := c.locationStack.pop()
	if err := c.compileEnsureOnGeneralPurposeRegister(lhs); err != nil {
		return err
	}
	c.assembler.CompileRegisterToRegister(amd64.CMPQ, rhs.register, lhs.register)
	c.locationStack.releaseRegister(lhs)
	c.locationStack.releaseRegister(rhs)
	c.locationStack.pushValueLocationOnConditionalRegister(amd64.ConditionalRegisterStateE)
	return nil
}

// compileJumpIfZero implements compiler.
func (c *amd64Compiler) compileJumpIfZero() (*fixup, error) {
	cond := c.locationStack.pop()

	var inst asm.Instruction
	if cond.onConditionalRegister() {
		// Branch on the inverted condition. The spills emitted in between are MOVQ, which keep the flags.
		switch cond.conditionalRegister {
		case amd64.ConditionalRegisterStateE:
			inst = amd64.JNE
		case amd64.ConditionalRegisterStateNE:
			inst = amd64.JEQ
		default:
			return nil, fmt.Errorf("BUG: unknown conditional register state %d", cond.conditionalRegister)
		}
		c.compileReleaseAllRegistersToStack()
	} else {
		if err := c.compileEnsureOnGeneralPurposeRegister(cond); err != nil {
			return nil, err
		}
		// Both successors must agree on where every value lives.
		c.compileReleaseAllRegistersToStack()
		c.assembler.CompileRegisterToConst(amd64.CMPQ, cond.register, 0)
		c.locationStack.releaseRegister(cond)
		inst = amd64.JEQ
	}

	return c.fixups.add(jumpKindIfZero, c.assembler.CompileJump(inst)), nil
}

// compileJump implements compiler.
func (c *amd64Compiler) compileJump() *fixup {
	return c.fixups.add(jumpKindUnconditional, c.assembler.CompileJump(amd64.JMP))
}

// compileLabel implements compiler. A NOP gives the label a node to jump to.
func (c *amd64Compiler) compileLabel() asm.Node {
	return c.assembler.CompileStandAlone(amd64.NOP)
}

// compileCarry implements compiler.
func (c *amd64Compiler) compileCarry(entryHeight uint64, arity int) error {
	c.compileReleaseAllRegistersToStack()
	if arity == 0 {
		return nil
	}
	tmp, ok := c.locationStack.takeFreeRegister()
	if !ok {
		return fmt.Errorf("BUG: no free register to carry results")
	}
	// Destinations never lie above their sources, so copying upwards never clobbers a pending result.
	for i := 0; i < arity; i++ {
		loc := c.locationStack.stack[c.locationStack.sp-uint64(arity)+uint64(i)]
		src, dst := loc.sourceSlot(), entryHeight+uint64(i)
		if src == dst {
			continue
		}
		c.assembler.CompileMemoryToRegister(amd64.MOVQ, amd64ValueStackRegister, int64(src)*8, tmp)
		c.assembler.CompileRegisterToMemory(amd64.MOVQ, tmp, amd64ValueStackRegister, int64(dst)*8)
	}
	return nil
}

// compileUnreachable implements compiler.
func (c *amd64Compiler) compileUnreachable() error {
	c.compileExitFromNativeCode(jitCallStatusCodeUnreachable)
	return nil
}

// compileReturn implements compiler.
func (c *amd64Compiler) compileReturn() error {
	c.compileExitFromNativeCode(jitCallStatusCodeReturned)
	return nil
}

// compileExitFromNativeCode records status on the callEngine and returns to jitcall's caller.
func (c *amd64Compiler) compileExitFromNativeCode(status jitCallStatusCode) {
	c.assembler.CompileConstToMemory(amd64.MOVB, int64(status), amd64CallEngineRegister, callEngineStatusCodeOffset)
	c.assembler.CompileStandAlone(amd64.RET)
}

// maybeCompileMoveTopConditionalToFreeGeneralPurposeRegister materializes a flag result on top of the stack.
// Called before every push, which keeps the flags holding at most the top value.
func (c *amd64Compiler) maybeCompileMoveTopConditionalToFreeGeneralPurposeRegister() {
	if c.locationStack.sp > 0 {
		if loc := c.locationStack.peek(); loc.onConditionalRegister() {
			c.compileLoadConditionalRegisterToGeneralPurposeRegister(loc)
		}
	}
}

func (c *amd64Compiler) compileLoadConditionalRegisterToGeneralPurposeRegister(loc *valueLocation) {
	reg, ok := c.locationStack.takeFreeRegister()
	if !ok {
		// The spill is a MOVQ, so the flags survive it.
		victim, _ := c.locationStack.takeStealTargetFromUsedRegister()
		reg = victim.register
		c.compileReleaseRegisterToStack(victim)
	}
	c.compileMoveConditionalToGeneralPurposeRegister(loc, reg)
}

func (c *amd64Compiler) compileMoveConditionalToGeneralPurposeRegister(loc *valueLocation, reg asm.Register) {
	// SETcc writes only the low byte. See https://www.felixcloutier.com/x86/setcc
	var inst asm.Instruction
	switch loc.conditionalRegister {
	case amd64.ConditionalRegisterStateE:
		inst = amd64.SETEQ
	case amd64.ConditionalRegisterStateNE:
		inst = amd64.SETNE
	}

	c.assembler.CompileNoneToRegister(inst, reg)
	c.assembler.CompileConstToRegister(amd64.ANDQ, 0x1, reg)
	loc.setRegister(reg)
	c.locationStack.markRegisterUsed(reg)
}

// allocateRegister returns a free register, spilling the deepest register-held value when none is left.
// The caller marks the result used.
func (c *amd64Compiler) allocateRegister() (asm.Register, error) {
	if reg, ok := c.locationStack.takeFreeRegister(); ok {
		return reg, nil
	}
	victim, ok := c.locationStack.takeStealTargetFromUsedRegister()
	if !ok {
		return asm.NilRegister, fmt.Errorf("BUG: no register to spill in %s", c.locationStack)
	}
	reg := victim.register
	c.compileReleaseRegisterToStack(victim)
	return reg, nil
}

// compileReleaseAllRegistersToStack spills every operand so that it lives in its own slot.
func (c *amd64Compiler) compileReleaseAllRegistersToStack() {
	for i := uint64(0); i < c.locationStack.sp; i++ {
		if loc := c.locationStack.stack[i]; loc.onRegister() {
			c.compileReleaseRegisterToStack(loc)
		} else if loc.onConditionalRegister() {
			c.compileLoadConditionalRegisterToGeneralPurposeRegister(loc)
			c.compileReleaseRegisterToStack(loc)
		}
	}
}

func (c *amd64Compiler) compileReleaseRegisterToStack(loc *valueLocation) {
	c.assembler.CompileRegisterToMemory(amd64.MOVQ, loc.register,
		amd64ValueStackRegister, int64(loc.stackPointer)*8)
	c.locationStack.releaseRegister(loc)
}

// compileEnsureOnGeneralPurposeRegister loads loc into a register unless it already is in one.
func (c *amd64Compiler) compileEnsureOnGeneralPurposeRegister(loc *valueLocation) error {
	if loc.onStack() || loc.onLocal() {
		reg, err := c.allocateRegister()
		if err != nil {
			return err
		}
		// sourceSlot must be read before setRegister clears the local alias.
		c.assembler.CompileMemoryToRegister(amd64.MOVQ,
			amd64ValueStackRegister, int64(loc.sourceSlot())*8, reg)
		loc.setRegister(reg)
		c.locationStack.markRegisterUsed(reg)
	} else if loc.onConditionalRegister() {
		c.compileLoadConditionalRegisterToGeneralPurposeRegister(loc)
	}
	return nil
}
