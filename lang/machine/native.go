package machine

import "fmt"

// defineNatives installs the VM's built-in global functions (spec.md 6).
// Called once from New.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", func(args []Value) (Value, error) {
		if len(args) != 0 {
			return Nil, fmt.Errorf("expected 0 arguments but got %d", len(args))
		}
		return Number(vm.clockSeconds()), nil
	})
}

func (vm *VM) defineNative(name string, fn NativeFn) {
	// The name is interned and pushed first, so the collection NewNative's
	// allocation may trigger cannot sweep it; the native is then pushed
	// too, keeping both rooted until the Globals entry holds them (spec.md
	// 4.6 "Safety"). Table.Set itself never allocates, so it is not what
	// either push is guarding against.
	vm.push(Object(vm.InternString(name)))
	vm.push(Object(vm.NewNative(name, fn)))
	vm.Globals.Set(vm.peek(1).AsObject().(*ObjString), vm.peek(0))
	vm.pop()
	vm.pop()
}
