package machine

import "fmt"

// ObjClass is a class value: its name and its method table, a Table
// mapping method-name ObjStrings to ObjClosure values only (invariant 6).
type ObjClass struct {
	Obj
	Name    *ObjString
	Methods Table
}

func (c *ObjClass) String() string { return c.Name.Chars }

// ObjInstance is an instance of a class: a reference to its class and a
// Table of its own fields, keyed by field name.
type ObjInstance struct {
	Obj
	Class  *ObjClass
	Fields Table
}

func (i *ObjInstance) String() string { return fmt.Sprintf("%s instance", i.Class.Name.Chars) }

// ObjBoundMethod pairs a receiver value with the method Closure looked up
// on its class, the value produced by a GET_PROPERTY that resolves to a
// method rather than a field.
type ObjBoundMethod struct {
	Obj
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) String() string { return b.Method.String() }
