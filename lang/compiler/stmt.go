package compiler

import (
	"github.com/mna/panda/lang/machine"
	"github.com/mna/panda/lang/token"
)

// declaration is the entry point for one top-level or block-level item: a
// class, function or variable declaration, or a plain statement. After a
// compile error it resynchronizes at the next statement boundary so a
// single mistake does not cascade (spec.md 4.3 "Error recovery").
func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

// synchronize skips tokens until it finds one that plausibly begins a new
// statement, clearing panicMode so compilation can continue past a
// syntax error (spec.md 4.3 "Error recovery").
func (p *parser) synchronize() {
	p.panicMode = false

	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "expect '}' after block")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after value")
	p.emitOp(machine.OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after expression")
	p.emitOp(machine.OpPop)
}

// ifStatement mirrors spec.md 4.4's backpatched jump pattern: a
// JUMP_IF_FALSE over the then-branch, with a POP on each side to discard
// the condition value whichever branch is taken, and a JUMP at the end of
// the then-branch over the else side (its POP, plus the else-branch when
// there is one). The JUMP is emitted whether or not an else-branch exists.
func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "expect '(' after 'if'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	thenJump := p.emitJump(machine.OpJumpIfFalse)
	p.emitOp(machine.OpPop)
	p.statement()

	elseJump := p.emitJump(machine.OpJump)
	p.patchJump(thenJump)
	p.emitOp(machine.OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)

	p.consume(token.LPAREN, "expect '(' after 'while'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	exitJump := p.emitJump(machine.OpJumpIfFalse)
	p.emitOp(machine.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(machine.OpPop)
}

// forStatement desugars entirely into while-loop-shaped bytecode (spec.md
// 4.3): its own scope holds the optional initializer, the condition
// (defaulting to always-true) gates a JUMP_IF_FALSE exit, and the
// increment clause — if present — is compiled once but spliced to run
// after the body and before the next condition check via a pair of extra
// jumps.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "expect '(' after 'for'")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "expect ';' after loop condition")
		exitJump = p.emitJump(machine.OpJumpIfFalse)
		p.emitOp(machine.OpPop)
	}

	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(machine.OpJump)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(machine.OpPop)
		p.consume(token.RPAREN, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(machine.OpPop)
	}
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.fr.typ == typeScript {
		p.error("can't return from top-level code")
	}
	switch {
	case p.match(token.SEMICOLON):
		p.emitReturn()
	default:
		if p.fr.typ == typeInitializer {
			p.error("can't return a value from an initializer")
		}
		p.expression()
		p.consume(token.SEMICOLON, "expect ';' after return value")
		p.emitOp(machine.OpReturn)
	}
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("expect variable name")
	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(machine.OpNil)
	}
	p.consume(token.SEMICOLON, "expect ';' after variable declaration")
	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("expect function name")
	p.markInitialized()
	p.function(typeFunction)
	p.defineVariable(global)
}

// function compiles one function body (top-level fun, or a method's body
// reused by classDeclaration) into its own frame and chunk, then emits the
// enclosing OP_CLOSURE plus the isLocal/index pair for each upvalue it
// captured (spec.md 4.3/4.4 "Closure construction").
func (p *parser) function(typ functionType) {
	fn := p.vm.NewFunction()
	p.vm.PushCompilerRoot(fn)
	if p.previous.Lexeme != "" {
		fn.Name = p.vm.InternString(p.previous.Lexeme)
	}
	p.fr = newFrame(p.fr, fn, typ)
	p.beginScope()

	p.consume(token.LPAREN, "expect '(' after function name")
	if !p.check(token.RPAREN) {
		for {
			p.fr.fn.Arity++
			if p.fr.fn.Arity > 255 {
				p.errorAtCurrent("can't have more than 255 parameters")
			}
			constant := p.parseVariable("expect parameter name")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after parameters")
	p.consume(token.LBRACE, "expect '{' before function body")
	p.block()

	finished := p.fr // endCompiler restores p.fr to the enclosing frame, so
	// grab the upvalue records we need to emit before that happens.
	compiled := p.endCompiler()
	p.vm.PopCompilerRoot()
	p.emitOpByte(machine.OpClosure, p.makeConstant(machine.Object(compiled)))

	for i := 0; i < compiled.UpvalueCount; i++ {
		uv := finished.upvalues[i]
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

// classDeclaration compiles a class body (spec.md 4.3 "Class
// compilation"): OP_CLASS creates the (initially empty) class object,
// bound to its name as a variable before any method bodies compile so
// they can refer to the class recursively; an optional "< Superclass"
// clause opens a hidden scope holding "super" and emits OP_INHERIT; each
// method compiles as a function whose type is typeInitializer for "init"
// and typeMethod otherwise, followed by OP_METHOD to install it.
func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "expect class name")
	nameTok := p.previous
	nameConstant := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitOpByte(machine.OpClass, nameConstant)
	p.defineVariable(nameConstant)

	cls := &classFrame{enclosing: p.cls}
	p.cls = cls

	if p.match(token.LT) {
		p.consume(token.IDENT, "expect superclass name")
		variable(p, false)
		if identifiersEqual(nameTok, p.previous) {
			p.error("a class can't inherit from itself")
		}

		p.beginScope()
		p.addLocal(superTok)
		p.defineVariable(0)

		p.namedVariable(nameTok, false)
		p.emitOp(machine.OpInherit)
		cls.hasSuperclass = true
	}

	p.namedVariable(nameTok, false)
	p.consume(token.LBRACE, "expect '{' before class body")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "expect '}' after class body")
	p.emitOp(machine.OpPop) // the class, pushed by namedVariable above

	if cls.hasSuperclass {
		p.endScope()
	}
	p.cls = cls.enclosing
}

func (p *parser) method() {
	p.consume(token.IDENT, "expect method name")
	name := p.previous
	constant := p.identifierConstant(name)

	typ := typeMethod
	if name.Lexeme == "init" {
		typ = typeInitializer
	}
	p.function(typ)
	p.emitOpByte(machine.OpMethod, constant)
}
