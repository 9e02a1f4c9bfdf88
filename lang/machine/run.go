package machine

import "fmt"

// Run executes fn, an already compiled ObjFunction (spec.md 4.5 calls it
// "the top-level script function"): it wraps fn in a closure, calls it,
// and drives the fetch-decode-dispatch loop to completion or failure.
// Compilation is not done here, so Run returns only OK or RuntimeError.
func (vm *VM) Run(fn *ObjFunction) Result {
	// fn is pushed before NewClosure runs so that a GC the closure
	// allocation triggers still finds fn reachable from the stack, not just
	// from the compiler root that PopCompilerRoot already released.
	vm.push(Object(fn))
	closure := vm.NewClosure(fn)
	vm.pop()
	vm.push(Object(closure))
	vm.call(closure, 0)

	if err := vm.run(); err != nil {
		fmt.Fprintln(vm.Stderr, err.Error())
		vm.resetStack()
		return RuntimeError
	}
	return OK
}

// run is the bytecode dispatch loop proper: it executes instructions from
// the current (innermost) call frame until either an OP_RETURN unwinds the
// last frame or a runtime error occurs.
func (vm *VM) run() error {
	fr := &vm.frames[len(vm.frames)-1]

	for {
		if vm.trace {
			vm.traceInstruction(fr)
		}

		op := Opcode(vm.readByte(fr))
		switch op {
		case OpConstant:
			vm.push(vm.readConstant(fr))

		case OpNil:
			vm.push(Nil)
		case OpTrue:
			vm.push(True)
		case OpFalse:
			vm.push(False)
		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := int(vm.readByte(fr))
			vm.push(vm.stack[fr.base+slot])
		case OpSetLocal:
			slot := int(vm.readByte(fr))
			vm.stack[fr.base+slot] = vm.peek(0)

		case OpGetGlobal:
			name := vm.readConstant(fr).AsObject().(*ObjString)
			v, ok := vm.Globals.Get(name)
			if !ok {
				return vm.runtimeErrorf("undefined variable '%s'", name.Chars)
			}
			vm.push(v)
		case OpDefineGlobal:
			name := vm.readConstant(fr).AsObject().(*ObjString)
			vm.Globals.Set(name, vm.peek(0))
			vm.pop()
		case OpSetGlobal:
			name := vm.readConstant(fr).AsObject().(*ObjString)
			if vm.Globals.Set(name, vm.peek(0)) {
				vm.Globals.Delete(name)
				return vm.runtimeErrorf("undefined variable '%s'", name.Chars)
			}

		case OpGetUpvalue:
			slot := int(vm.readByte(fr))
			vm.push(*fr.closure.Upvalues[slot].Location)
		case OpSetUpvalue:
			slot := int(vm.readByte(fr))
			*fr.closure.Upvalues[slot].Location = vm.peek(0)

		case OpGetProperty:
			if err := vm.getProperty(fr); err != nil {
				return err
			}
		case OpSetProperty:
			if err := vm.setProperty(fr); err != nil {
				return err
			}
		case OpGetSuper:
			if err := vm.getSuper(fr); err != nil {
				return err
			}

		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(valuesEqual(a, b)))
		case OpGreater:
			if err := vm.binaryNumber(func(a, b float64) Value { return Bool(a > b) }); err != nil {
				return err
			}
		case OpLess:
			if err := vm.binaryNumber(func(a, b float64) Value { return Bool(a < b) }); err != nil {
				return err
			}

		case OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case OpSubtract:
			if err := vm.binaryNumber(func(a, b float64) Value { return Number(a - b) }); err != nil {
				return err
			}
		case OpMultiply:
			if err := vm.binaryNumber(func(a, b float64) Value { return Number(a * b) }); err != nil {
				return err
			}
		case OpDivide:
			if err := vm.binaryNumber(func(a, b float64) Value { return Number(a / b) }); err != nil {
				return err
			}
		case OpNot:
			vm.push(Bool(vm.pop().IsFalsey()))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeErrorf("operand must be a number")
			}
			vm.push(Number(-vm.pop().AsNumber()))

		case OpPrint:
			fmt.Fprintln(vm.Stdout, printValue(vm.pop()))

		case OpJump:
			offset := vm.readShort(fr)
			fr.ip += int(offset)
		case OpJumpIfFalse:
			offset := vm.readShort(fr)
			if vm.peek(0).IsFalsey() {
				fr.ip += int(offset)
			}
		case OpLoop:
			offset := vm.readShort(fr)
			fr.ip -= int(offset)

		case OpCall:
			argCount := int(vm.readByte(fr))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			fr = &vm.frames[len(vm.frames)-1]

		case OpInvoke:
			name := vm.readConstant(fr).AsObject().(*ObjString)
			argCount := int(vm.readByte(fr))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			fr = &vm.frames[len(vm.frames)-1]

		case OpSuperInvoke:
			name := vm.readConstant(fr).AsObject().(*ObjString)
			argCount := int(vm.readByte(fr))
			super := vm.pop().AsObject().(*ObjClass)
			if err := vm.invokeFromClass(super, name, argCount); err != nil {
				return err
			}
			fr = &vm.frames[len(vm.frames)-1]

		case OpClosure:
			fn := vm.readConstant(fr).AsObject().(*ObjFunction)
			closure := vm.NewClosure(fn)
			vm.push(Object(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(fr)
				index := int(vm.readByte(fr))
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(fr.base + index)
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}

		case OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(fr.base)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop()
				return nil
			}
			vm.sp = fr.base
			vm.push(result)
			fr = &vm.frames[len(vm.frames)-1]

		case OpClass:
			name := vm.readConstant(fr).AsObject().(*ObjString)
			vm.push(Object(vm.NewClass(name)))

		case OpInherit:
			super := vm.peek(1)
			if !super.IsObjKind(ObjClassKind) {
				return vm.runtimeErrorf("superclass must be a class")
			}
			sub := vm.peek(0).AsObject().(*ObjClass)
			sub.Methods.AddAll(&super.AsObject().(*ObjClass).Methods)
			vm.pop() // the subclass

		case OpMethod:
			name := vm.readConstant(fr).AsObject().(*ObjString)
			vm.defineMethod(name)

		default:
			return vm.runtimeErrorf("illegal opcode %d", op)
		}
	}
}

func (vm *VM) readByte(fr *callFrame) byte {
	b := fr.closure.Function.Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readShort(fr *callFrame) uint16 {
	hi := vm.readByte(fr)
	lo := vm.readByte(fr)
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant(fr *callFrame) Value {
	idx := vm.readByte(fr)
	return fr.closure.Function.Chunk.Constants[idx]
}

// binaryNumber implements the comparison and arithmetic opcodes that
// require both operands to be numbers (everything except OP_ADD, which
// also accepts two strings).
func (vm *VM) binaryNumber(op func(a, b float64) Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("operands must be numbers")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

// add implements OP_ADD's dual contract (spec.md 4.4): number + number, or
// string + string via concatenation into a freshly interned ObjString.
func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(Number(a.AsNumber() + b.AsNumber()))
	case a.IsObjKind(ObjStringKind) && b.IsObjKind(ObjStringKind):
		vm.pop()
		vm.pop()
		as := a.AsObject().(*ObjString)
		bs := b.AsObject().(*ObjString)
		vm.push(Object(vm.InternString(as.Chars + bs.Chars)))
	default:
		return vm.runtimeErrorf("operands must be two numbers or two strings")
	}
	return nil
}
