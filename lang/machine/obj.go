// Package machine implements the Panda bytecode virtual machine: the value
// representation, the heap object hierarchy, the runtime hash table, the
// call-frame/value-stack execution loop, and the tracing mark-sweep
// collector that manages every heap allocation. It is the runtime
// counterpart to package compiler, which emits the bytecode this package
// executes.
package machine

// An ObjKind tags the concrete runtime representation of a heap object.
type ObjKind uint8

const (
	ObjStringKind ObjKind = iota
	ObjFunctionKind
	ObjNativeKind
	ObjClosureKind
	ObjUpvalueKind
	ObjClassKind
	ObjInstanceKind
	ObjBoundMethodKind
)

func (k ObjKind) String() string {
	switch k {
	case ObjStringKind:
		return "string"
	case ObjFunctionKind:
		return "function"
	case ObjNativeKind:
		return "native"
	case ObjClosureKind:
		return "closure"
	case ObjUpvalueKind:
		return "upvalue"
	case ObjClassKind:
		return "class"
	case ObjInstanceKind:
		return "instance"
	case ObjBoundMethodKind:
		return "bound method"
	default:
		return "unknown"
	}
}

// Obj is the header every heap object embeds. It carries the GC mark bit
// and the intrusive link into the VM's object chain (invariant: every
// allocated heap object is on that chain exactly once until freed). Obj is
// never allocated on its own; it is always the first field of a concrete
// object type such as *ObjString or *ObjClosure.
type Obj struct {
	Kind   ObjKind
	marked bool
	next   HeapObject
	size   int // bytes charged to vm.bytesAllocated at allocation, refunded on sweep
}

// Header returns the Obj embedded in the receiver. Promoted to every
// concrete heap object type, it lets the collector manipulate the mark bit
// and chain link without knowing the concrete type.
func (o *Obj) Header() *Obj { return o }

// HeapObject is implemented by every concrete heap object type (always via
// a pointer receiver, since object identity is pointer identity).
type HeapObject interface {
	Header() *Obj
	String() string
}
