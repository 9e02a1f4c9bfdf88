// Package compiler implements Panda's single-pass compiler: a Pratt
// expression parser combined with straight-line recursive-descent
// statement parsing, emitting bytecode directly into a machine.Chunk as it
// goes (spec.md 4.3). There is no intermediate parse tree.
package compiler

import (
	"fmt"

	"github.com/mna/panda/lang/machine"
	"github.com/mna/panda/lang/scanner"
	"github.com/mna/panda/lang/token"
)

// parser holds every piece of state a single compilation needs: the token
// stream (one token of lookahead), error bookkeeping, and the chain of
// function/class frames the recursive descent is currently nested inside.
type parser struct {
	vm  *machine.VM
	scn scanner.Scanner

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errs      []string

	fr  *frame
	cls *classFrame
}

// Compile compiles src into a top-level ObjFunction ready to run as a
// script (spec.md 4.5 calls this "the implicit top-level function"). ok is
// false if any compile error was reported, in which case the returned
// function must not be executed (spec.md 7: exit code 65).
func Compile(vm *machine.VM, src string) (fn *machine.ObjFunction, errs []string, ok bool) {
	p := &parser{vm: vm}
	p.scn.Init(src)

	topLevel := vm.NewFunction()
	// Registered as a root immediately: nothing else reaches topLevel yet,
	// so a GC the very next heap allocation (interning the first identifier
	// or string literal, or a nested function's NewFunction) triggers must
	// not sweep it.
	vm.PushCompilerRoot(topLevel)
	defer vm.PopCompilerRoot()
	p.fr = newFrame(nil, topLevel, typeScript)

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn = p.endCompiler()
	return fn, p.errorLines(), !p.hadError
}

// --- token stream -----------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scn.Next()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, message string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

// --- error reporting ----------------------------------------------------

func (p *parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *parser) error(message string)          { p.errorAt(p.previous, message) }

// errorAt reports a compile error at tok, formatted the way spec.md 7
// prescribes: "[line N] Error at 'lexeme': message" (or "at end" for
// EOF). Once panicMode is set, further errors are suppressed until
// synchronize() clears it, so one mistake does not cascade into a wall of
// misleading follow-on errors.
func (p *parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	where := fmt.Sprintf(" at '%s'", tok.Lexeme)
	if tok.Kind == token.EOF {
		where = " at end"
	}
	p.errs = append(p.errs, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, message))
	p.hadError = true
}

// errorLines returns every compile error collected so far, formatted one per
// line (spec.md 7).
func (p *parser) errorLines() []string { return p.errs }

// --- bytecode emission --------------------------------------------------

func (p *parser) chunk() *machine.Chunk { return &p.fr.fn.Chunk }

func (p *parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *parser) emitOp(op machine.Opcode) { p.emitByte(byte(op)) }

func (p *parser) emitOpByte(op machine.Opcode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

// emitJump writes a two-byte placeholder operand after op and returns its
// offset, to be filled in later by patchJump once the jump target is
// known.
func (p *parser) emitJump(op machine.Opcode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

// patchJump backfills the two-byte operand at offset with the distance
// from just past it to the current end of the chunk.
func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("too much code to jump over")
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump)
}

// emitLoop writes OP_LOOP with the backward distance to loopStart.
func (p *parser) emitLoop(loopStart int) {
	p.emitOp(machine.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("loop body too large")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// emitReturn emits the implicit return every function body falls through
// to: an initializer returns its own instance (slot 0), everything else
// returns nil (spec.md 4.3 "Class compilation").
func (p *parser) emitReturn() {
	if p.fr.typ == typeInitializer {
		p.emitOpByte(machine.OpGetLocal, 0)
	} else {
		p.emitOp(machine.OpNil)
	}
	p.emitOp(machine.OpReturn)
}

func (p *parser) makeConstant(v machine.Value) byte {
	idx, ok := p.chunk().AddConstant(v)
	if !ok {
		p.error("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v machine.Value) {
	p.emitOpByte(machine.OpConstant, p.makeConstant(v))
}

// endCompiler closes out the frame being compiled, emits its implicit
// return, and restores the enclosing frame (nil at the top level).
func (p *parser) endCompiler() *machine.ObjFunction {
	p.emitReturn()
	fn := p.fr.fn
	p.fr = p.fr.enclosing
	return fn
}

func (p *parser) beginScope() { p.fr.scopeDepth++ }

// endScope pops every local declared in the scope just closed, emitting
// OP_CLOSE_UPVALUE for any that some nested closure captured and a plain
// OP_POP otherwise (spec.md 4.3/4.5's "Upvalue capture").
func (p *parser) endScope() {
	p.fr.scopeDepth--
	for p.fr.localCount > 0 && p.fr.locals[p.fr.localCount-1].depth > p.fr.scopeDepth {
		if p.fr.locals[p.fr.localCount-1].isCaptured {
			p.emitOp(machine.OpCloseUpvalue)
		} else {
			p.emitOp(machine.OpPop)
		}
		p.fr.localCount--
	}
}
