package jit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lightjit/lightjit/internal/asm"
)

// unreservedGeneralPurposeIntRegisters is the allocation pool, set by the init of the arch_*.go file.
var unreservedGeneralPurposeIntRegisters []asm.Register

func isIntRegister(r asm.Register) bool {
	for _, candidate := range unreservedGeneralPurposeIntRegisters {
		if candidate == r {
			return true
		}
	}
	return false
}

// valueLocation is the compile-time record of one operand: which register, flag condition or slot holds it at
// runtime. Exactly one of the four placements applies.
type valueLocation struct {
	register            asm.Register
	conditionalRegister asm.ConditionalRegisterState
	// local marks an unloaded copy of local localIndex. Its slot is read directly when the value is needed.
	local      bool
	localIndex uint64
	// stackPointer is the slot reserved for this operand. It is only written when the operand is spilled.
	stackPointer uint64
}

func (v *valueLocation) setRegister(reg asm.Register) {
	v.register = reg
	v.conditionalRegister = asm.ConditionalRegisterStateUnset
	v.local = false
}

func (v *valueLocation) onRegister() bool {
	return v.register != asm.NilRegister && v.conditionalRegister == asm.ConditionalRegisterStateUnset
}

func (v *valueLocation) onStack() bool {
	return v.register == asm.NilRegister && v.conditionalRegister == asm.ConditionalRegisterStateUnset && !v.local
}

func (v *valueLocation) onConditionalRegister() bool {
	return v.conditionalRegister != asm.ConditionalRegisterStateUnset
}

func (v *valueLocation) onLocal() bool {
	return v.local && v.register == asm.NilRegister
}

// sourceSlot is the slot to load from when the value is in memory.
func (v *valueLocation) sourceSlot() uint64 {
	if v.onLocal() {
		return v.localIndex
	}
	return v.stackPointer
}

func (v *valueLocation) String() string {
	var where string
	switch {
	case v.onLocal():
		where = fmt.Sprintf("local(%d)", v.localIndex)
	case v.onStack():
		where = fmt.Sprintf("stack(%d)", v.stackPointer)
	case v.onConditionalRegister():
		where = fmt.Sprintf("conditional(%d)", v.conditionalRegister)
	case v.onRegister():
		where = fmt.Sprintf("register(%d)", v.register)
	}
	return fmt.Sprintf("{sp=%d,location=%s}", v.stackPointer, where)
}

func newValueLocationStack() *valueLocationStack {
	return &valueLocationStack{usedRegisters: map[asm.Register]struct{}{}}
}

// valueLocationStack mirrors the operand stack while a function is compiled. Each instruction updates it, so the
// compiler knows which operands must be loaded or spilled before it emits code.
type valueLocationStack struct {
	// stack[:sp] are live. Entries above sp are reused by later pushes.
	stack         []*valueLocation
	sp            uint64
	usedRegisters map[asm.Register]struct{}
	// stackPointerCeil is the highest sp seen, which sizes the runtime value stack.
	stackPointerCeil uint64
}

func (s *valueLocationStack) String() string {
	items := make([]string, 0, s.sp)
	for _, loc := range s.stack[:s.sp] {
		items = append(items, loc.String())
	}
	regs := make([]string, 0, len(s.usedRegisters))
	for reg := range s.usedRegisters {
		regs = append(regs, fmt.Sprintf("%d", reg))
	}
	sort.Strings(regs)
	return fmt.Sprintf("sp=%d, stack=[%s], used_registers=[%s]", s.sp, strings.Join(items, ","), strings.Join(regs, ","))
}

func (s *valueLocationStack) pushValueLocationOnRegister(reg asm.Register) (loc *valueLocation) {
	loc = &valueLocation{register: reg}
	s.markRegisterUsed(reg)
	s.push(loc)
	return
}

func (s *valueLocationStack) pushValueLocationOnStack() (loc *valueLocation) {
	loc = &valueLocation{register: asm.NilRegister}
	s.push(loc)
	return
}

func (s *valueLocationStack) pushValueLocationOnConditionalRegister(state asm.ConditionalRegisterState) (loc *valueLocation) {
	loc = &valueLocation{register: asm.NilRegister, conditionalRegister: state}
	s.push(loc)
	return
}

func (s *valueLocationStack) pushValueLocationOnLocal(index uint64) (loc *valueLocation) {
	loc = &valueLocation{register: asm.NilRegister, local: true, localIndex: index}
	s.push(loc)
	return
}

func (s *valueLocationStack) push(loc *valueLocation) {
	loc.stackPointer = s.sp
	if s.sp < uint64(len(s.stack)) {
		s.stack[s.sp] = loc
	} else {
		s.stack = append(s.stack, loc)
	}
	s.sp++
	if s.sp > s.stackPointerCeil {
		s.stackPointerCeil = s.sp
	}
}

func (s *valueLocationStack) pop() (loc *valueLocation) {
	s.sp--
	loc = s.stack[s.sp]
	return
}

func (s *valueLocationStack) peek() (loc *valueLocation) {
	loc = s.stack[s.sp-1]
	return
}

// truncate drops the values above height, freeing the registers they hold.
func (s *valueLocationStack) truncate(height uint64) {
	for s.sp > height {
		if loc := s.pop(); loc.onRegister() {
			s.releaseRegister(loc)
		}
	}
}

func (s *valueLocationStack) releaseRegister(loc *valueLocation) {
	s.markRegisterUnused(loc.register)
	loc.register = asm.NilRegister
	loc.conditionalRegister = asm.ConditionalRegisterStateUnset
}

func (s *valueLocationStack) markRegisterUnused(regs ...asm.Register) {
	for _, reg := range regs {
		delete(s.usedRegisters, reg)
	}
}

func (s *valueLocationStack) markRegisterUsed(regs ...asm.Register) {
	for _, reg := range regs {
		s.usedRegisters[reg] = struct{}{}
	}
}

// takeFreeRegister returns the first unused register of the pool without marking it used.
func (s *valueLocationStack) takeFreeRegister() (reg asm.Register, found bool) {
	for _, candidate := range unreservedGeneralPurposeIntRegisters {
		if _, ok := s.usedRegisters[candidate]; ok {
			continue
		}
		return candidate, true
	}
	return 0, false
}

// takeStealTargetFromUsedRegister picks the deepest operand held in a register. Deep operands are the last to be
// consumed, so spilling them costs the fewest reloads.
func (s *valueLocationStack) takeStealTargetFromUsedRegister() (*valueLocation, bool) {
	for i := uint64(0); i < s.sp; i++ {
		loc := s.stack[i]
		if loc.onRegister() && isIntRegister(loc.register) {
			return loc, true
		}
	}
	return nil, false
}
