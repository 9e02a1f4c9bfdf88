package compiler

import (
	"strconv"

	"github.com/mna/panda/lang/machine"
	"github.com/mna/panda/lang/token"
)

func number(p *parser, _ bool) {
	v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("invalid number literal")
		return
	}
	p.emitConstant(machine.Number(v))
}

// stringLit strips the surrounding quotes before interning; Panda has no
// escape sequences (spec.md 3 "Object model").
func stringLit(p *parser, _ bool) {
	lit := p.previous.Lexeme
	s := p.vm.InternString(lit[1 : len(lit)-1])
	p.emitConstant(machine.Object(s))
}

func literal(p *parser, _ bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(machine.OpFalse)
	case token.NIL:
		p.emitOp(machine.OpNil)
	case token.TRUE:
		p.emitOp(machine.OpTrue)
	}
}

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(token.RPAREN, "expect ')' after expression")
}

func unary(p *parser, _ bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.BANG:
		p.emitOp(machine.OpNot)
	case token.MINUS:
		p.emitOp(machine.OpNegate)
	}
}

func binary(p *parser, _ bool) {
	opKind := p.previous.Kind
	r := getRule(opKind)
	p.parsePrecedence(r.precedence + 1)

	switch opKind {
	case token.BANG_EQ:
		p.emitOp(machine.OpEqual)
		p.emitOp(machine.OpNot)
	case token.EQ_EQ:
		p.emitOp(machine.OpEqual)
	case token.GT:
		p.emitOp(machine.OpGreater)
	case token.GT_EQ:
		p.emitOp(machine.OpLess)
		p.emitOp(machine.OpNot)
	case token.LT:
		p.emitOp(machine.OpLess)
	case token.LT_EQ:
		p.emitOp(machine.OpGreater)
		p.emitOp(machine.OpNot)
	case token.PLUS:
		p.emitOp(machine.OpAdd)
	case token.MINUS:
		p.emitOp(machine.OpSubtract)
	case token.STAR:
		p.emitOp(machine.OpMultiply)
	case token.SLASH:
		p.emitOp(machine.OpDivide)
	}
}

func and_(p *parser, _ bool) {
	endJump := p.emitJump(machine.OpJumpIfFalse)
	p.emitOp(machine.OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func or_(p *parser, _ bool) {
	elseJump := p.emitJump(machine.OpJumpIfFalse)
	endJump := p.emitJump(machine.OpJump)

	p.patchJump(elseJump)
	p.emitOp(machine.OpPop)

	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

// argumentList parses a parenthesized, comma-separated call argument list
// and returns its length, capped at 255 since OP_CALL encodes it in one
// byte.
func (p *parser) argumentList() byte {
	var argCount int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if argCount == 255 {
				p.error("can't have more than 255 arguments")
			}
			argCount++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after arguments")
	return byte(argCount)
}

func call(p *parser, _ bool) {
	argCount := p.argumentList()
	p.emitOpByte(machine.OpCall, argCount)
}

// dot compiles a `.` access: a plain GET_PROPERTY/SET_PROPERTY, or the
// OP_INVOKE fast path when the property is immediately called (spec.md
// 4.4's "Call dispatch").
func dot(p *parser, canAssign bool) {
	p.consume(token.IDENT, "expect property name after '.'")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitOpByte(machine.OpSetProperty, name)
	case p.match(token.LPAREN):
		argCount := p.argumentList()
		p.emitOpByte(machine.OpInvoke, name)
		p.emitByte(argCount)
	default:
		p.emitOpByte(machine.OpGetProperty, name)
	}
}

// namedVariable resolves name as a local, an upvalue, or (failing both) a
// global, and emits the matching GET/SET pair (spec.md 4.3 "Scope
// resolution").
func (p *parser) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp machine.Opcode
	arg, ok := p.resolveLocal(p.fr, name)
	switch {
	case ok:
		getOp, setOp = machine.OpGetLocal, machine.OpSetLocal
	default:
		if idx, ok := p.resolveUpvalue(p.fr, name); ok {
			arg = idx
			getOp, setOp = machine.OpGetUpvalue, machine.OpSetUpvalue
		} else {
			arg = int(p.identifierConstant(name))
			getOp, setOp = machine.OpGetGlobal, machine.OpSetGlobal
		}
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func variable(p *parser, canAssign bool) { p.namedVariable(p.previous, canAssign) }

// this_ treats "this" as a read-only local named "this" bound in slot 0 of
// every method (spec.md 4.3 "Class compilation"); outside a method it is a
// compile error.
func this_(p *parser, _ bool) {
	if p.cls == nil {
		p.error("can't use 'this' outside of a class")
		return
	}
	variable(p, false)
}

// super_ compiles `super.method` (spec.md 4.3): it looks up "this" and the
// hidden "super" local to push the receiver and the superclass, then
// either an OP_SUPER_INVOKE fast path or a plain OP_GET_SUPER.
func super_(p *parser, _ bool) {
	switch {
	case p.cls == nil:
		p.error("can't use 'super' outside of a class")
	case !p.cls.hasSuperclass:
		p.error("can't use 'super' in a class with no superclass")
	}

	p.consume(token.DOT, "expect '.' after 'super'")
	p.consume(token.IDENT, "expect superclass method name")
	name := p.identifierConstant(p.previous)

	p.namedVariable(thisTok, false)
	if p.match(token.LPAREN) {
		argCount := p.argumentList()
		p.namedVariable(superTok, false)
		p.emitOpByte(machine.OpSuperInvoke, name)
		p.emitByte(argCount)
	} else {
		p.namedVariable(superTok, false)
		p.emitOpByte(machine.OpGetSuper, name)
	}
}

var (
	thisTok  = token.Token{Kind: token.THIS, Lexeme: "this"}
	superTok = token.Token{Kind: token.SUPER, Lexeme: "super"}
)
