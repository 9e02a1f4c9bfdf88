package machine

import (
	"testing"

	"github.com/mna/panda/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countLinked walks the intrusive object chain and counts how many objects
// are reachable from it, independent of mark state.
func countLinked(vm *VM) int {
	n := 0
	for o := vm.objects; o != nil; o = o.Header().next {
		n++
	}
	return n
}

func TestCollectGarbageSweepsUnreachableString(t *testing.T) {
	vm := New(config.Default())

	kept := vm.InternString("kept")
	vm.push(Object(kept)) // keep it reachable via the value stack

	vm.InternString("garbage")
	before := countLinked(vm)

	vm.collectGarbage()

	after := countLinked(vm)
	assert.Less(t, after, before, "unreachable string should have been swept")

	// the intern table's weak reference to the collected string must also be
	// gone, or a later lookup would return a dangling *ObjString.
	assert.Nil(t, vm.strings.FindString("garbage", fnv1a("garbage")))
	assert.Same(t, kept, vm.strings.FindString("kept", fnv1a("kept")))

	vm.pop()
}

func TestCollectGarbageKeepsGlobalRoots(t *testing.T) {
	vm := New(config.Default())

	name := vm.InternString("g")
	str := vm.InternString("reachable via global")
	vm.Globals.Set(name, Object(str))

	vm.collectGarbage()

	v, ok := vm.Globals.Get(name)
	require.True(t, ok)
	assert.Same(t, str, v.AsObject())
}

func TestCollectGarbageKeepsOpenUpvalueTarget(t *testing.T) {
	vm := New(config.Default())

	vm.push(Number(1))
	vm.push(Number(2))
	closure := vm.NewClosure(vm.NewFunction())
	vm.frames = append(vm.frames, callFrame{closure: closure, base: 0})

	uv := vm.captureUpvalue(1)
	str := vm.InternString("captured")
	*uv.Location = Object(str)

	vm.collectGarbage()

	assert.Same(t, str, uv.Location.AsObject(), "an open upvalue is a GC root via the stack slot it points into")
}

func TestCollectGarbageKeepsCompilerRoot(t *testing.T) {
	vm := New(config.Default())

	fn := vm.NewFunction()
	vm.PushCompilerRoot(fn)

	before := countLinked(vm)
	vm.collectGarbage()
	after := countLinked(vm)

	assert.Equal(t, before, after, "a registered compiler root must survive collection")
	vm.PopCompilerRoot()
}

func TestCollectGarbageGrowsThreshold(t *testing.T) {
	vm := New(config.Default())
	before := vm.nextGC

	vm.bytesAllocated = before + 1
	vm.collectGarbage()

	assert.Greater(t, vm.nextGC, before)
}

func TestStressGCCollectsOnEveryAllocation(t *testing.T) {
	cfg := config.Default()
	cfg.StressGC = true
	vm := New(cfg)

	kept := vm.InternString("stays alive")
	vm.push(Object(kept))

	for i := 0; i < 50; i++ {
		vm.InternString("throwaway")
	}

	assert.Same(t, kept, vm.strings.FindString("stays alive", fnv1a("stays alive")))
	vm.pop()
}
