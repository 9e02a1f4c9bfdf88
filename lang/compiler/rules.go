package compiler

import "github.com/mna/panda/lang/token"

// precedence orders Panda's binary operators from loosest- to
// tightest-binding (spec.md 4.3 "Pratt parsing"). Each level parses
// itself and everything tighter, so parsePrecedence(p) consumes operators
// of precedence >= p.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

// parseFn is either a prefix or an infix parser for one token kind.
// canAssign is threaded through so a prefix parser that also doubles as an
// assignment target (a bare identifier, a property access) can tell
// whether "=" is legal here — spec.md 4.3 rejects `a + b = c`.
type parseFn func(p *parser, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is the Pratt table: for every token kind, its prefix parser (if it
// can start an expression), its infix parser (if it can continue one) and
// the precedence used to decide when an infix parser's operand parsing
// should stop and yield back to an enclosing, looser-binding call.
var rules = map[token.Kind]rule{
	token.LPAREN:    {grouping, call, precCall},
	token.DOT:       {nil, dot, precCall},
	token.MINUS:     {unary, binary, precTerm},
	token.PLUS:      {nil, binary, precTerm},
	token.SLASH:     {nil, binary, precFactor},
	token.STAR:      {nil, binary, precFactor},
	token.BANG:      {unary, nil, precNone},
	token.BANG_EQ:   {nil, binary, precEquality},
	token.EQ_EQ:     {nil, binary, precEquality},
	token.GT:        {nil, binary, precComparison},
	token.GT_EQ:     {nil, binary, precComparison},
	token.LT:        {nil, binary, precComparison},
	token.LT_EQ:     {nil, binary, precComparison},
	token.IDENT:     {variable, nil, precNone},
	token.STRING:    {stringLit, nil, precNone},
	token.NUMBER:    {number, nil, precNone},
	token.AND:       {nil, and_, precAnd},
	token.OR:        {nil, or_, precOr},
	token.FALSE:     {literal, nil, precNone},
	token.NIL:       {literal, nil, precNone},
	token.TRUE:      {literal, nil, precNone},
	token.SUPER:     {super_, nil, precNone},
	token.THIS:      {this_, nil, precNone},
}

func getRule(k token.Kind) rule {
	if r, ok := rules[k]; ok {
		return r
	}
	return rule{}
}

// parsePrecedence is the heart of the Pratt parser: it parses one prefix
// expression, then keeps folding in infix operators as long as they bind
// at least as tightly as minPrec.
func (p *parser) parsePrecedence(minPrec precedence) {
	p.advance()
	prefix := getRule(p.previous.Kind).prefix
	if prefix == nil {
		p.error("expect expression")
		return
	}

	canAssign := minPrec <= precAssignment
	prefix(p, canAssign)

	for minPrec <= getRule(p.current.Kind).precedence {
		p.advance()
		infix := getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("invalid assignment target")
	}
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }
