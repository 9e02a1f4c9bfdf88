package machine

import (
	"io"
	"os"
	"time"

	"github.com/mna/panda/internal/config"
)

// VM is the single VM-global instance holding everything the bytecode
// execution loop and the collector need: the value stack, the call-frame
// stack, the globals table, the string-intern table, the open-upvalue
// list, and the GC's own bookkeeping. Exactly one VM exists per program
// run; there is no concurrency within it (spec.md 5).
type VM struct {
	// stack is allocated once, at capacity, and never reallocated: ObjUpvalue
	// locations are raw pointers into it, and those must stay valid for the
	// life of the VM. sp is the index one past the top live value.
	stack []Value
	sp    int

	frames []callFrame

	Globals Table
	strings Table // the intern table; see spec.md invariant 2

	initString *ObjString // interned "init", used to find constructors

	openUpvalues *ObjUpvalue // head of the open-upvalue list, sorted by descending Location

	objects        HeapObject // head of the intrusive object chain
	bytesAllocated int
	nextGC         int
	grayStack      []HeapObject
	stress         bool

	cfg config.VM

	// trace enables the per-instruction and per-GC-cycle diagnostic lines
	// written to Stderr (-trace / PANDA_TRACE).
	trace bool

	Stdout io.Writer
	Stderr io.Writer

	startTime time.Time

	// compilerRoots lets an in-progress compilation register the
	// ObjFunctions it is still building as GC roots (spec.md 4.6:
	// markRoots walks "every function in the active compiler chain").
	compilerRoots []*ObjFunction
}

// New creates a VM configured by cfg, with natives registered and the
// string-intern table seeded with "init".
func New(cfg config.VM) *VM {
	vm := &VM{
		cfg:       cfg,
		stack:     make([]Value, cfg.FramesMax*cfg.StackSlotsPerFrame),
		frames:    make([]callFrame, 0, cfg.FramesMax),
		stress:    cfg.StressGC,
		nextGC:    cfg.InitialGCThreshold,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		startTime: time.Now(),
	}
	vm.initString = vm.InternString("init")
	vm.defineNatives()
	return vm
}

// push and pop manipulate the value stack directly; both panic on misuse
// since stack discipline is guaranteed by the compiler and run loop, never
// by untrusted input. The backing array is sized once in New and never
// grown, so a *Value taken at some index (an open ObjUpvalue's Location)
// stays valid for as long as that slot is live.
func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}

// track records o's size on its own header (so sweep can later refund it)
// and updates the GC's allocation counter, running a collection if the new
// total crosses nextGC (or always, in stress mode). It must be called for
// every heap allocation so the collector's budget stays accurate, and
// always before the new object is linked onto the object chain: sweep only
// ever frees objects already on that chain, so a collection triggered by
// track has nothing to free yet, the same ordering clox's reallocate/
// allocateObject pair relies on.
func (vm *VM) track(o HeapObject, size int) {
	o.Header().size = size
	vm.bytesAllocated += size
	if vm.stress || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
}

// link adds o to the head of the object chain, the single place every heap
// object is registered (spec.md invariant 1).
func (vm *VM) link(o HeapObject) {
	o.Header().next = vm.objects
	vm.objects = o
}

// InternString returns the canonical ObjString for the byte content of s,
// allocating a new one only if no equal string has been interned yet
// (spec.md invariant 2). The freshly allocated string is pushed onto the
// value stack around its insertion into the intern table (spec.md 4.6
// "Safety"); the table's own growth does not go through track, so that
// insertion never triggers a collection by itself.
func (vm *VM) InternString(s string) *ObjString {
	hash := fnv1a(s)
	if interned := vm.strings.FindString(s, hash); interned != nil {
		return interned
	}

	str := &ObjString{Chars: s, hash: hash}
	str.Kind = ObjStringKind
	vm.track(str, len(s))
	vm.link(str)

	vm.push(Object(str))
	vm.strings.Set(str, Bool(true))
	vm.pop()
	return str
}

// NewFunction allocates a fresh, empty ObjFunction for the compiler to
// populate.
func (vm *VM) NewFunction() *ObjFunction {
	fn := &ObjFunction{}
	fn.Kind = ObjFunctionKind
	vm.track(fn, 64)
	vm.link(fn)
	return fn
}

// NewNative allocates a native function value.
func (vm *VM) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	n.Kind = ObjNativeKind
	vm.track(n, 32)
	vm.link(n)
	return n
}

// NewClosure allocates a closure over fn with nil upvalue slots ready to
// be filled in by the CLOSURE opcode.
func (vm *VM) NewClosure(fn *ObjFunction) *ObjClosure {
	cl := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	cl.Kind = ObjClosureKind
	vm.track(cl, 16+8*fn.UpvalueCount)
	vm.link(cl)
	return cl
}

// NewClass allocates a class named name.
func (vm *VM) NewClass(name *ObjString) *ObjClass {
	c := &ObjClass{Name: name}
	c.Kind = ObjClassKind
	vm.track(c, 48)
	vm.link(c)
	return c
}

// NewInstance allocates an instance of class.
func (vm *VM) NewInstance(class *ObjClass) *ObjInstance {
	inst := &ObjInstance{Class: class}
	inst.Kind = ObjInstanceKind
	vm.track(inst, 48)
	vm.link(inst)
	return inst
}

// NewBoundMethod allocates the bound-method value GET_PROPERTY produces
// when a property name resolves to a method rather than a field.
func (vm *VM) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	b.Kind = ObjBoundMethodKind
	vm.track(b, 32)
	vm.link(b)
	return b
}

// captureUpvalue finds or creates the open upvalue for the stack slot at
// index idx, keeping the open-upvalue list sorted by descending stackIndex
// with no duplicates (spec.md invariant 4 and 4.5's "Upvalue capture").
// Go pointers support only equality, not ordering, so the list is ordered
// by the plain integer stackIndex rather than by comparing Location values
// directly.
func (vm *VM) captureUpvalue(idx int) *ObjUpvalue {
	var prev *ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && cur.stackIndex > idx {
		prev = cur
		cur = cur.nextOpen
	}
	if cur != nil && cur.stackIndex == idx {
		return cur
	}

	created := &ObjUpvalue{Location: &vm.stack[idx], stackIndex: idx}
	created.Kind = ObjUpvalueKind
	vm.track(created, 24)
	vm.link(created)

	created.nextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.nextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose stackIndex is at or above
// lastIdx, copying the pointed-to stack value into the upvalue's own
// Closed slot and redirecting Location to it (spec.md 4.5 "Upvalue
// capture").
func (vm *VM) closeUpvalues(lastIdx int) {
	for vm.openUpvalues != nil && vm.openUpvalues.stackIndex >= lastIdx {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.nextOpen
		uv.nextOpen = nil
	}
}

// clockSeconds backs the clock() native (spec.md 6): seconds elapsed since
// the VM was created.
func (vm *VM) clockSeconds() float64 {
	return time.Since(vm.startTime).Seconds()
}

// SetTrace turns the per-instruction/per-GC-cycle diagnostic lines on Stderr
// on or off (spec.md 4.7's -trace / PANDA_TRACE).
func (vm *VM) SetTrace(on bool) { vm.trace = on }

// PushCompilerRoot registers fn as a GC root for the duration of its own
// compilation (spec.md 4.6 "Roots": "every function in the active
// compiler chain"), needed because a function under construction is
// reachable only from the compiler's own frame chain, not yet from any
// Value on the VM stack.
func (vm *VM) PushCompilerRoot(fn *ObjFunction) {
	vm.compilerRoots = append(vm.compilerRoots, fn)
}

// PopCompilerRoot unregisters the most recently pushed compiler root, once
// its ObjFunction has been emitted as a constant into its enclosing
// function and so is reachable that way instead.
func (vm *VM) PopCompilerRoot() {
	vm.compilerRoots = vm.compilerRoots[:len(vm.compilerRoots)-1]
}
