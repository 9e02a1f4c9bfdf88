package machine

import (
	"fmt"
	"reflect"

	"golang.org/x/exp/slices"
)

// collectGarbage runs one full tracing mark-sweep cycle (spec.md 4.6):
// mark every root, process the gray stack until it is empty (blackening
// each object by marking what it references), drop unmarked keys from the
// string-intern table, sweep every unmarked object off the object chain,
// then grow nextGC by the configured factor.
func (vm *VM) collectGarbage() {
	before := vm.bytesAllocated
	beforeObjs := vm.countObjects()

	vm.markRoots()
	vm.traceReferences()
	vm.strings.deleteUnmarked()
	vm.sweep()

	vm.nextGC = int(float64(vm.bytesAllocated) * vm.cfg.GCGrowthFactor)
	if vm.nextGC < vm.cfg.InitialGCThreshold {
		vm.nextGC = vm.cfg.InitialGCThreshold
	}

	if vm.tracingGC() {
		fmt.Fprintf(vm.Stderr, "-- gc collected %d objects (%d -> %d), %d -> %d bytes, next at %d\n",
			beforeObjs-vm.countObjects(), beforeObjs, vm.countObjects(), before, vm.bytesAllocated, vm.nextGC)
	}
}

func (vm *VM) countObjects() int {
	n := 0
	for o := vm.objects; o != nil; o = o.Header().next {
		n++
	}
	return n
}

// markRoots marks every value directly reachable from outside the heap:
// the value stack, the call-frame closures, the open-upvalue list, the
// globals table, the interned "init" string, and every ObjFunction still
// owned by an in-progress compilation (spec.md 4.6 "Roots").
func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := range vm.frames {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.nextOpen {
		vm.markObject(uv)
	}
	vm.markTable(&vm.Globals)
	vm.markObject(vm.initString)
	for _, fn := range vm.compilerRoots {
		vm.markObject(fn)
	}
}

func (vm *VM) markValue(v Value) {
	if v.IsObject() {
		vm.markObject(v.AsObject())
	}
}

func (vm *VM) markTable(t *Table) {
	for _, e := range t.entries {
		if e.key != nil {
			vm.markObject(e.key)
			vm.markValue(e.value)
		}
	}
}

// markObject flips an object's mark bit and, unless it is already marked
// (cycles and shared references are common: classes, closures, instances),
// pushes it onto the gray stack to have its own references traced later.
// A nil object is a no-op, matching clox's NULL-check on markObject. That
// includes an interface holding a nil concrete pointer, which is what
// callers pass for typed fields that may be nil (a script function's Name,
// a closure upvalue slot not yet filled in, initString while New seeds it).
func (vm *VM) markObject(o HeapObject) {
	if o == nil || reflect.ValueOf(o).IsNil() {
		return
	}
	hdr := o.Header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	vm.grayStack = slices.Grow(vm.grayStack, 1)
	vm.grayStack = append(vm.grayStack, o)
}

// traceReferences drains the gray stack, blackening one object per
// iteration until none remain gray.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		o := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blacken(o)
	}
}

// blacken marks every object directly referenced by o, turning o from
// gray to black (it stays marked, but nothing it reaches is still
// unmarked). Each heap object kind traces exactly the fields spec.md 4.1
// lists as that kind's reachable references.
func (vm *VM) blacken(o HeapObject) {
	switch v := o.(type) {
	case *ObjString, *ObjNative:
		// leaf objects: no outgoing references.
	case *ObjUpvalue:
		vm.markValue(v.Closed)
	case *ObjFunction:
		vm.markObject(v.Name)
		for _, c := range v.Chunk.Constants {
			vm.markValue(c)
		}
	case *ObjClosure:
		vm.markObject(v.Function)
		for _, uv := range v.Upvalues {
			vm.markObject(uv)
		}
	case *ObjClass:
		vm.markObject(v.Name)
		vm.markTable(&v.Methods)
	case *ObjInstance:
		vm.markObject(v.Class)
		vm.markTable(&v.Fields)
	case *ObjBoundMethod:
		vm.markValue(v.Receiver)
		vm.markObject(v.Method)
	}
}

// sweep walks the object chain, freeing (unlinking) every object that
// survived markRoots/traceReferences unmarked, and clears the mark bit on
// every survivor so the next cycle starts fresh.
func (vm *VM) sweep() {
	var prev HeapObject
	cur := vm.objects
	for cur != nil {
		hdr := cur.Header()
		if hdr.marked {
			hdr.marked = false
			prev = cur
			cur = hdr.next
			continue
		}
		unreached := cur
		cur = hdr.next
		if prev != nil {
			prev.Header().next = cur
		} else {
			vm.objects = cur
		}
		vm.bytesAllocated -= unreached.Header().size
	}
}

func (vm *VM) tracingGC() bool { return vm.trace }
