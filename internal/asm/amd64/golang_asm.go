package amd64

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/lightjit/lightjit/internal/asm"
	"github.com/lightjit/lightjit/internal/asm/golang_asm"
)

// goAsm implements Assembler on top of golang-asm.
type goAsm struct {
	*golang_asm.BaseAssembler
}

var _ Assembler = (*goAsm)(nil)

func newGolangAsmAssembler() (*goAsm, error) {
	base, err := golang_asm.NewBaseAssembler("amd64")
	if err != nil {
		return nil, err
	}
	return &goAsm{base}, nil
}

func (a *goAsm) String() string {
	return "amd64 assembler (golang-asm)"
}

func regOperand(r asm.Register) obj.Addr {
	return obj.Addr{Type: obj.TYPE_REG, Reg: golangAsmRegisters[r]}
}

func memOperand(base asm.Register, offset int64) obj.Addr {
	return obj.Addr{Type: obj.TYPE_MEM, Reg: golangAsmRegisters[base], Offset: offset}
}

func constOperand(v int64) obj.Addr {
	return obj.Addr{Type: obj.TYPE_CONST, Offset: v}
}

// emit adds "inst from, to" and returns its node.
func (a *goAsm) emit(inst asm.Instruction, from, to obj.Addr) asm.Node {
	p := a.NewProg()
	p.As = golangAsmInstructions[inst]
	p.From = from
	p.To = to
	a.AddInstruction(p)
	return golang_asm.NewNode(p)
}

// CompileStandAlone implements asm.AssemblerBase.
func (a *goAsm) CompileStandAlone(inst asm.Instruction) asm.Node {
	return a.emit(inst, obj.Addr{}, obj.Addr{})
}

// CompileRegisterToRegister implements asm.AssemblerBase.
func (a *goAsm) CompileRegisterToRegister(inst asm.Instruction, src, dst asm.Register) {
	a.emit(inst, regOperand(src), regOperand(dst))
}

// CompileMemoryToRegister implements asm.AssemblerBase.
func (a *goAsm) CompileMemoryToRegister(inst asm.Instruction, base asm.Register, offset int64, dst asm.Register) {
	a.emit(inst, memOperand(base, offset), regOperand(dst))
}

// CompileRegisterToMemory implements asm.AssemblerBase.
func (a *goAsm) CompileRegisterToMemory(inst asm.Instruction, src asm.Register, base asm.Register, offset int64) {
	a.emit(inst, regOperand(src), memOperand(base, offset))
}

// CompileConstToRegister implements asm.AssemblerBase.
func (a *goAsm) CompileConstToRegister(inst asm.Instruction, v int64, dst asm.Register) asm.Node {
	return a.emit(inst, constOperand(v), regOperand(dst))
}

// CompileRegisterToConst implements Assembler.
func (a *goAsm) CompileRegisterToConst(inst asm.Instruction, src asm.Register, v int64) asm.Node {
	return a.emit(inst, regOperand(src), constOperand(v))
}

// CompileConstToMemory implements Assembler.
func (a *goAsm) CompileConstToMemory(inst asm.Instruction, v int64, base asm.Register, offset int64) asm.Node {
	return a.emit(inst, constOperand(v), memOperand(base, offset))
}

// CompileNoneToRegister implements Assembler.
func (a *goAsm) CompileNoneToRegister(inst asm.Instruction, dst asm.Register) {
	a.emit(inst, obj.Addr{}, regOperand(dst))
}

// CompileJump implements asm.AssemblerBase.
func (a *goAsm) CompileJump(inst asm.Instruction) asm.Node {
	return a.emit(inst, obj.Addr{}, obj.Addr{Type: obj.TYPE_BRANCH})
}

var golangAsmInstructions = [...]obj.As{
	NONE:  obj.AXXX,
	ADDQ:  x86.AADDQ,
	ANDQ:  x86.AANDQ,
	CMPQ:  x86.ACMPQ,
	JEQ:   x86.AJEQ,
	JNE:   x86.AJNE,
	JMP:   obj.AJMP,
	MOVB:  x86.AMOVB,
	MOVQ:  x86.AMOVQ,
	NOP:   obj.ANOP,
	RET:   obj.ARET,
	SETEQ: x86.ASETEQ,
	SETNE: x86.ASETNE,
}

var golangAsmRegisters = [...]int16{
	asm.NilRegister: obj.REG_NONE,
	REG_AX:          x86.REG_AX,
	REG_CX:          x86.REG_CX,
	REG_DX:          x86.REG_DX,
	REG_BX:          x86.REG_BX,
	REG_SP:          x86.REG_SP,
	REG_BP:          x86.REG_BP,
	REG_SI:          x86.REG_SI,
	REG_DI:          x86.REG_DI,
	REG_R8:          x86.REG_R8,
	REG_R9:          x86.REG_R9,
	REG_R10:         x86.REG_R10,
	REG_R11:         x86.REG_R11,
	REG_R12:         x86.REG_R12,
	REG_R13:         x86.REG_R13,
	REG_R14:         x86.REG_R14,
	REG_R15:         x86.REG_R15,
}
