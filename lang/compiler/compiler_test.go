package compiler_test

import (
	"io"
	"testing"

	"github.com/mna/panda/internal/config"
	"github.com/mna/panda/lang/compiler"
	"github.com/mna/panda/lang/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileOK(t *testing.T, src string) *machine.ObjFunction {
	t.Helper()
	vm := machine.New(config.Default())
	fn, errs, ok := compiler.Compile(vm, src)
	require.Truef(t, ok, "expected %q to compile, got errors: %v", src, errs)
	require.Empty(t, errs)
	return fn
}

func TestCompileEmptyScriptYieldsImplicitReturn(t *testing.T) {
	fn := compileOK(t, "")
	assert.Equal(t, 0, fn.Arity)
	assert.NotEmpty(t, fn.Chunk.Code)
	assert.Equal(t, machine.OpReturn, machine.Opcode(fn.Chunk.Code[len(fn.Chunk.Code)-1]))
}

func TestCompileArithmeticEmitsExpectedOpcodes(t *testing.T) {
	fn := compileOK(t, "1 + 2 * 3;")
	ops := opcodesOf(&fn.Chunk)
	assert.Contains(t, ops, machine.OpConstant)
	assert.Contains(t, ops, machine.OpMultiply)
	assert.Contains(t, ops, machine.OpAdd)
	assert.Contains(t, ops, machine.OpPop)
}

func TestCompileFunctionDeclarationProducesClosure(t *testing.T) {
	fn := compileOK(t, `
fun greet(name) {
	return "hi " + name;
}
`)
	var found bool
	for _, c := range fn.Chunk.Constants {
		if c.IsObjKind(machine.ObjFunctionKind) {
			found = true
			inner := c.AsObject().(*machine.ObjFunction)
			assert.Equal(t, 1, inner.Arity)
			assert.Equal(t, "greet", inner.Name.Chars)
		}
	}
	assert.True(t, found, "expected the compiled function to be in the constant pool")
}

func TestCompileClosureRecordsUpvalue(t *testing.T) {
	fn := compileOK(t, `
fun outer() {
	var x = 1;
	fun inner() {
		return x;
	}
	return inner;
}
`)
	var outer *machine.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if c.IsObjKind(machine.ObjFunctionKind) {
			if f := c.AsObject().(*machine.ObjFunction); f.Name != nil && f.Name.Chars == "outer" {
				outer = f
			}
		}
	}
	require.NotNil(t, outer)

	var inner *machine.ObjFunction
	for _, c := range outer.Chunk.Constants {
		if c.IsObjKind(machine.ObjFunctionKind) {
			inner = c.AsObject().(*machine.ObjFunction)
		}
	}
	require.NotNil(t, inner)
	assert.Equal(t, 1, inner.UpvalueCount)
}

func TestCompileDuplicateLocalIsError(t *testing.T) {
	vm := machine.New(config.Default())
	_, errs, ok := compiler.Compile(vm, `
{
	var a = 1;
	var a = 2;
}
`)
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "already a variable with this name in this scope")
}

func TestCompileReturnOutsideFunctionIsError(t *testing.T) {
	vm := machine.New(config.Default())
	_, errs, ok := compiler.Compile(vm, `return 1;`)
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "can't return from top-level code")
}

func TestCompileThisOutsideClassIsError(t *testing.T) {
	vm := machine.New(config.Default())
	_, errs, ok := compiler.Compile(vm, `print this;`)
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "can't use 'this' outside of a class")
}

func TestCompileSuperWithoutSuperclassIsError(t *testing.T) {
	vm := machine.New(config.Default())
	_, errs, ok := compiler.Compile(vm, `
class A {
	method() {
		super.method();
	}
}
`)
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "can't use 'super' in a class with no superclass")
}

func TestCompileInvalidAssignmentTargetIsError(t *testing.T) {
	vm := machine.New(config.Default())
	_, errs, ok := compiler.Compile(vm, `1 + 2 = 3;`)
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "invalid assignment target")
}

func TestCompileSynchronizesAfterError(t *testing.T) {
	vm := machine.New(config.Default())
	_, errs, ok := compiler.Compile(vm, `
var ;
print "still compiled";
`)
	assert.False(t, ok)
	// one error for the missing identifier, nothing cascading from it
	require.Len(t, errs, 1)
}

func TestCompileClassWithMethodAndInit(t *testing.T) {
	fn := compileOK(t, `
class Point {
	init(x, y) {
		this.x = x;
		this.y = y;
	}
	sum() {
		return this.x + this.y;
	}
}
`)
	ops := opcodesOf(&fn.Chunk)
	assert.Contains(t, ops, machine.OpClass)
	assert.Contains(t, ops, machine.OpMethod)
}

// opcodesOf walks chunk via the real disassembler (discarding its text
// output) just to get each instruction's correct width, so variable-length
// operands (OP_CLOSURE's trailing upvalue bytes) don't get misread as
// opcodes of their own.
func opcodesOf(chunk *machine.Chunk) []machine.Opcode {
	var ops []machine.Opcode
	for offset := 0; offset < len(chunk.Code); {
		ops = append(ops, machine.Opcode(chunk.Code[offset]))
		offset = machine.DisassembleInstruction(io.Discard, chunk, offset)
	}
	return ops
}
