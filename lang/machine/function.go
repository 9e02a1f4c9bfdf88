package machine

import "fmt"

// ObjFunction is a compiled function body: its arity, the number of
// upvalues it closes over, its own Chunk of bytecode, and an optional name
// (nil/empty for the implicit top-level script function).
type ObjFunction struct {
	Obj
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString
}

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is the Go function signature behind an ObjNative: it receives
// the slice of argument Values and returns a result or an error (reported
// as a runtime error by the CALL opcode).
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a Go function so it can be called from Panda code, e.g.
// the built-in clock().
type ObjNative struct {
	Obj
	Name string
	Fn   NativeFn
}

func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// ObjUpvalue is the indirection that lets a closure reach a variable owned
// by an enclosing, still-live call frame. While open, Location points into
// the VM's value stack (whose backing array is allocated once and never
// moved, so the pointer stays valid) and stackIndex records that same slot
// as a plain integer, used only to keep the open-upvalue list ordered;
// once the owning frame returns (or its scope exits), the value is copied
// into Closed and Location is redirected to point at it (spec.md invariant
// 3). nextOpen threads the VM's open-upvalue list, kept sorted by
// descending stack location (invariant 4).
type ObjUpvalue struct {
	Obj
	Location   *Value
	stackIndex int
	Closed     Value
	nextOpen   *ObjUpvalue
}

func (u *ObjUpvalue) String() string { return "upvalue" }

func (u *ObjUpvalue) isOpen() bool { return u.Location != &u.Closed }

// ObjClosure is the runtime function value produced by the CLOSURE opcode:
// a reference to the compiled ObjFunction it wraps, plus the upvalues it
// captured. len(Upvalues) always equals Function.UpvalueCount (invariant
// 5).
type ObjClosure struct {
	Obj
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) String() string { return c.Function.String() }

func (c *ObjClosure) Name() string {
	if c.Function.Name == nil {
		return "script"
	}
	return c.Function.Name.Chars
}
