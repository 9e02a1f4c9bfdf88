package compiler

import (
	"github.com/dolthub/swiss"
	"github.com/mna/panda/lang/machine"
	"github.com/mna/panda/lang/token"
)

// maxLocals bounds the number of local variables (and, separately,
// upvalues) a single function body may declare: both the GET_LOCAL/
// SET_LOCAL and GET_UPVALUE/SET_UPVALUE opcodes encode their operand in a
// single byte.
const maxLocals = 256

// functionType distinguishes what kind of body a frame is compiling, since
// that changes a handful of rules: top-level code may not return a value,
// "this" only resolves inside a method, and an initializer implicitly
// returns the instance rather than nil.
type functionType int

const (
	typeFunction functionType = iota
	typeInitializer
	typeMethod
	typeScript
)

// local is one entry of a frame's local-variable pool. depth is -1 between
// the variable's declaration and the point its initializer has fully
// evaluated (spec.md 4.3's "declared but not yet defined" window, which
// rejects `var a = a;`). isCaptured marks a local that some nested
// function has closed over, so OP_CLOSE_UPVALUE must run for it at scope
// exit instead of a plain OP_POP.
type local struct {
	name       token.Token
	depth      int
	isCaptured bool
}

// upvalueRef records, for one upvalue slot of the function being compiled,
// either the enclosing frame's local slot it closes over directly
// (isLocal true) or the enclosing frame's own upvalue slot it forwards
// (isLocal false) — spec.md 4.3's "Closure & upvalue resolution".
type upvalueRef struct {
	index   uint8
	isLocal bool
}

// frame is the compiler's per-function-body compilation state, the direct
// analogue of the book's Compiler struct: a chain (via enclosing) mirrors
// the lexical nesting of function declarations, and is walked by
// resolveUpvalue to thread a closed-over variable down through every
// intermediate function.
type frame struct {
	enclosing *frame

	fn     *machine.ObjFunction
	typ    functionType
	source string

	locals     [maxLocals]local
	localCount int
	upvalues   [maxLocals]upvalueRef
	scopeDepth int

	// constIdx deduplicates identifier constants within this one function
	// body's chunk: a variable referenced many times would otherwise claim
	// a fresh constant-pool slot (capped at 256) on every reference. It is
	// per-frame, never shared, since constant-pool indices are only
	// meaningful within their own chunk.
	constIdx *swiss.Map[*machine.ObjString, uint8]
}

func newFrame(enclosing *frame, fn *machine.ObjFunction, typ functionType) *frame {
	fr := &frame{enclosing: enclosing, fn: fn, typ: typ, constIdx: swiss.NewMap[*machine.ObjString, uint8](8)}
	// Slot 0 is reserved: an unnamed, unreachable placeholder for a plain
	// function, and named "this" for every other frame type (the receiver
	// of a method/initializer; the top-level script frame gets the name too)
	// (spec.md invariant 8's "slot 0 reserved").
	slot0 := local{depth: 0}
	if typ != typeFunction {
		slot0.name = token.Token{Kind: token.IDENT, Lexeme: "this"}
	}
	fr.locals[0] = slot0
	fr.localCount = 1
	return fr
}
