package machine

import "strconv"

// A Kind tags the discriminant of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is Panda's tagged union of the four kinds a runtime value can take:
// nil, boolean, double-precision number, or a reference to a heap object.
// Value is small and copied by value, the way clox represents it as a C
// union; in Go that means only one of the payload fields is ever
// meaningful, selected by kind.
type Value struct {
	kind Kind
	b    bool
	n    float64
	o    HeapObject
}

// Nil, True and False are the three non-numeric, non-object values. They
// are safe to share since Value is immutable once constructed.
var (
	Nil   = Value{kind: KindNil}
	True  = Value{kind: KindBool, b: true}
	False = Value{kind: KindBool, b: false}
)

// Bool returns the canonical True or False value for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number returns a Value wrapping the float64 n.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Object returns a Value wrapping the heap object o. o must not be nil.
func Object(o HeapObject) Value { return Value{kind: KindObject, o: o} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNil() bool     { return v.kind == KindNil }
func (v Value) IsBool() bool    { return v.kind == KindBool }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsObject() bool  { return v.kind == KindObject }

// AsBool returns the boolean payload. The result is meaningless unless
// IsBool reports true; callers are expected to check the kind first, the
// same contract the book's AS_BOOL macro has.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the numeric payload. See AsBool's caveat.
func (v Value) AsNumber() float64 { return v.n }

// AsObject returns the heap object payload. See AsBool's caveat.
func (v Value) AsObject() HeapObject { return v.o }

// IsObjKind reports whether v is an object of the given kind.
func (v Value) IsObjKind(k ObjKind) bool {
	return v.kind == KindObject && v.o.Header().Kind == k
}

// IsFalsey implements Panda's truthiness rule: nil and false are falsey,
// everything else (including 0 and the empty string) is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// valuesEqual implements valuesEqual from spec.md 4.1: numbers compare by
// IEEE equality (so NaN != NaN), objects compare by reference identity
// (which, thanks to string interning, also gives string value equality),
// and values of different kinds are never equal.
func valuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindObject:
		return a.o == b.o
	default:
		return false
	}
}

// printValue renders v the way the PRINT opcode and REPL auto-print do.
func printValue(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindObject:
		return v.o.String()
	default:
		return "<invalid value>"
	}
}
