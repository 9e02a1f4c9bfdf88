package compiler

import (
	"github.com/mna/panda/lang/machine"
	"github.com/mna/panda/lang/token"
)

// identifierConstant turns name into a constant-pool ObjString, reusing
// the slot from an earlier identical reference within the same function
// body when one exists (see parser.constIdx).
func (p *parser) identifierConstant(name token.Token) byte {
	s := p.vm.InternString(name.Lexeme)
	if idx, ok := p.fr.constIdx.Get(s); ok {
		return idx
	}
	idx := p.makeConstant(machine.Object(s))
	p.fr.constIdx.Put(s, idx)
	return idx
}

func identifiersEqual(a, b token.Token) bool { return a.Lexeme == b.Lexeme }

// resolveLocal searches fr's locals innermost-first for name, the same
// shadowing rule spec.md 4.3 describes: the most recently declared local
// with that name wins.
func (p *parser) resolveLocal(fr *frame, name token.Token) (int, bool) {
	for i := fr.localCount - 1; i >= 0; i-- {
		l := &fr.locals[i]
		if identifiersEqual(name, l.name) {
			if l.depth == -1 {
				p.error("can't read local variable in its own initializer")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue implements spec.md 4.3's "Closure & upvalue resolution":
// if name is a local of the immediately enclosing frame, it is captured
// directly; otherwise resolveUpvalue recurses outward, and if found,
// forwards it as an upvalue-of-an-upvalue through every intermediate
// frame. A local captured this way is marked isCaptured so its scope exit
// emits OP_CLOSE_UPVALUE instead of OP_POP.
func (p *parser) resolveUpvalue(fr *frame, name token.Token) (int, bool) {
	if fr.enclosing == nil {
		return 0, false
	}
	if idx, ok := p.resolveLocal(fr.enclosing, name); ok {
		fr.enclosing.locals[idx].isCaptured = true
		return p.addUpvalue(fr, uint8(idx), true), true
	}
	if idx, ok := p.resolveUpvalue(fr.enclosing, name); ok {
		return p.addUpvalue(fr, uint8(idx), false), true
	}
	return 0, false
}

// addUpvalue records one upvalue slot of fr, reusing an existing slot that
// already closes over the same index/isLocal pair rather than duplicating
// it (spec.md invariant 5: len(Upvalues) == Function.UpvalueCount, each
// slot distinct).
func (p *parser) addUpvalue(fr *frame, index uint8, isLocal bool) int {
	for i := 0; i < fr.fn.UpvalueCount; i++ {
		uv := &fr.upvalues[i]
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if fr.fn.UpvalueCount == maxLocals {
		p.error("too many closure variables in function")
		return 0
	}
	fr.upvalues[fr.fn.UpvalueCount] = upvalueRef{index: index, isLocal: isLocal}
	fr.fn.UpvalueCount++
	return fr.fn.UpvalueCount - 1
}

func (p *parser) addLocal(name token.Token) {
	if p.fr.localCount == maxLocals {
		p.error("too many local variables in function")
		return
	}
	p.fr.locals[p.fr.localCount] = local{name: name, depth: -1}
	p.fr.localCount++
}

// declareVariable adds the variable just parsed to the current scope's
// local pool (global variables are declared implicitly: at scope depth 0
// this function returns without doing anything, spec.md 4.3). It is a
// compile error to redeclare a name
// already local to the exact same scope.
func (p *parser) declareVariable() {
	if p.fr.scopeDepth == 0 {
		return
	}
	name := p.previous
	for i := p.fr.localCount - 1; i >= 0; i-- {
		l := &p.fr.locals[i]
		if l.depth != -1 && l.depth < p.fr.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			p.error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

// parseVariable consumes an identifier token, declares it, and returns the
// constant-pool index to use if it turns out to be global (0 is returned,
// and ignored, for a local).
func (p *parser) parseVariable(errMessage string) byte {
	p.consume(token.IDENT, errMessage)
	p.declareVariable()
	if p.fr.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *parser) markInitialized() {
	if p.fr.scopeDepth == 0 {
		return
	}
	p.fr.locals[p.fr.localCount-1].depth = p.fr.scopeDepth
}

// defineVariable finishes declaring global, emitting OP_DEFINE_GLOBAL; a
// local needs no runtime action beyond marking it initialized, since its
// value is already sitting in the right stack slot.
func (p *parser) defineVariable(global byte) {
	if p.fr.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(machine.OpDefineGlobal, global)
}
