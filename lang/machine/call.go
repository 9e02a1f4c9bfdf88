package machine

// callValue dispatches a CALL opcode by the kind of the callee (spec.md
// 4.5 "Call dispatch"): a closure pushes a new call frame, a native calls
// straight through to Go, a class constructs an instance (and optionally
// runs init()), and a bound method rebinds the receiver before calling
// through to its underlying closure. Anything else is a runtime error.
func (vm *VM) callValue(callee Value, argCount int) error {
	if !callee.IsObject() {
		return vm.runtimeErrorf("can only call functions and classes")
	}
	switch obj := callee.AsObject().(type) {
	case *ObjClosure:
		return vm.call(obj, argCount)
	case *ObjNative:
		args := make([]Value, argCount)
		copy(args, vm.stack[vm.sp-argCount:vm.sp])
		result, err := obj.Fn(args)
		if err != nil {
			return vm.runtimeErrorf("%s", err.Error())
		}
		vm.sp -= argCount + 1
		vm.push(result)
		return nil
	case *ObjClass:
		inst := vm.NewInstance(obj)
		vm.stack[vm.sp-argCount-1] = Object(inst)
		if initializer, ok := obj.Methods.Get(vm.initString); ok {
			return vm.call(initializer.AsObject().(*ObjClosure), argCount)
		}
		if argCount != 0 {
			return vm.runtimeErrorf("expected 0 arguments but got %d", argCount)
		}
		return nil
	case *ObjBoundMethod:
		vm.stack[vm.sp-argCount-1] = obj.Receiver
		return vm.call(obj.Method, argCount)
	default:
		return vm.runtimeErrorf("can only call functions and classes")
	}
}

// call pushes a new call frame for closure, bound to the argCount
// arguments already sitting on top of the value stack (spec.md invariant
// 8: depth is bounded by vm.cfg.FramesMax).
func (vm *VM) call(closure *ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeErrorf("expected %d arguments but got %d", closure.Function.Arity, argCount)
	}
	if len(vm.frames) >= vm.cfg.FramesMax {
		return vm.runtimeErrorf("stack overflow")
	}
	vm.frames = append(vm.frames, callFrame{
		closure: closure,
		base:    vm.sp - argCount - 1,
	})
	return nil
}

// invoke is the fast path for obj.method(args): instead of materializing a
// bound method object, it looks the method up on the receiver's class and
// calls it directly (spec.md 4.4's OP_INVOKE), falling back to a plain
// field lookup first since a field may itself hold a callable value.
func (vm *VM) invoke(name *ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsObjKind(ObjInstanceKind) {
		return vm.runtimeErrorf("only instances have methods")
	}
	inst := receiver.AsObject().(*ObjInstance)

	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeErrorf("undefined property '%s'", name.Chars)
	}
	return vm.call(method.AsObject().(*ObjClosure), argCount)
}

// getProperty implements OP_GET_PROPERTY: a field lookup on the instance
// takes priority, falling back to binding a method from its class into an
// ObjBoundMethod.
func (vm *VM) getProperty(fr *callFrame) error {
	if !vm.peek(0).IsObjKind(ObjInstanceKind) {
		return vm.runtimeErrorf("only instances have properties")
	}
	inst := vm.peek(0).AsObject().(*ObjInstance)
	name := vm.readConstant(fr).AsObject().(*ObjString)

	if v, ok := inst.Fields.Get(name); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	return vm.bindMethod(inst.Class, name)
}

func (vm *VM) bindMethod(class *ObjClass, name *ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeErrorf("undefined property '%s'", name.Chars)
	}
	bound := vm.NewBoundMethod(vm.peek(0), method.AsObject().(*ObjClosure))
	vm.pop()
	vm.push(Object(bound))
	return nil
}

// setProperty implements OP_SET_PROPERTY: fields may be created freely on
// assignment (spec.md 4.1), there is no fixed field set to validate
// against.
func (vm *VM) setProperty(fr *callFrame) error {
	if !vm.peek(1).IsObjKind(ObjInstanceKind) {
		return vm.runtimeErrorf("only instances have fields")
	}
	inst := vm.peek(1).AsObject().(*ObjInstance)
	name := vm.readConstant(fr).AsObject().(*ObjString)

	inst.Fields.Set(name, vm.peek(0))
	value := vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

// getSuper implements OP_GET_SUPER: resolves name on the superclass sitting
// on top of the stack, binding it to the receiver just beneath it.
func (vm *VM) getSuper(fr *callFrame) error {
	name := vm.readConstant(fr).AsObject().(*ObjString)
	super := vm.pop().AsObject().(*ObjClass)
	return vm.bindMethod(super, name)
}

// defineMethod implements OP_METHOD: pops a closure off the stack and
// installs it under name in the method table of the class just beneath it
// (spec.md 4.4).
func (vm *VM) defineMethod(name *ObjString) {
	method := vm.pop()
	class := vm.peek(0).AsObject().(*ObjClass)
	class.Methods.Set(name, method)
}
