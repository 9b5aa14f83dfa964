// Package golang_asm adapts github.com/twitchyliquid64/golang-asm, a fork of the Go toolchain assembler, to the
// asm interfaces.
package golang_asm

import (
	"errors"
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"

	"github.com/lightjit/lightjit/internal/asm"
)

// progNode wraps an obj.Prog as asm.Node.
type progNode struct {
	prog *obj.Prog
}

// NewNode returns the asm.Node of p.
func NewNode(p *obj.Prog) asm.Node {
	return &progNode{prog: p}
}

func (n *progNode) String() string {
	return n.prog.String()
}

// OffsetInBinary implements asm.Node.
func (n *progNode) OffsetInBinary() int64 {
	return n.prog.Pc
}

// AssignJumpTarget implements asm.Node. target must come from the same builder.
func (n *progNode) AssignJumpTarget(target asm.Node) {
	n.prog.To.SetTarget(target.(*progNode).prog)
}

// BaseAssembler owns the golang-asm builder. Architecture packages embed it and fill in the operands.
type BaseAssembler struct {
	builder *goasm.Builder
	count   int
}

// NewBaseAssembler returns a BaseAssembler for arch in GOARCH notation, e.g. "amd64".
func NewBaseAssembler(arch string) (*BaseAssembler, error) {
	b, err := goasm.NewBuilder(arch, 64)
	if err != nil {
		return nil, fmt.Errorf("new %s builder: %w", arch, err)
	}
	return &BaseAssembler{builder: b}, nil
}

// Assemble implements asm.AssemblerBase.
func (a *BaseAssembler) Assemble() ([]byte, error) {
	if a.count == 0 {
		return nil, errors.New("nothing to assemble")
	}
	if code := a.builder.Assemble(); len(code) > 0 {
		return code, nil
	}
	return nil, errors.New("assembler produced no code")
}

// NewProg allocates an instruction which is emitted once passed to AddInstruction.
func (a *BaseAssembler) NewProg() *obj.Prog {
	return a.builder.NewProg()
}

// AddInstruction appends p to the output.
func (a *BaseAssembler) AddInstruction(p *obj.Prog) {
	a.builder.AddInstruction(p)
	a.count++
}
