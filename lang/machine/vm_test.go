package machine_test

import (
	"bytes"
	"testing"

	"github.com/mna/panda/internal/config"
	"github.com/mna/panda/lang/compiler"
	"github.com/mna/panda/lang/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSrc compiles and runs src against a fresh VM, returning everything
// written to stdout/stderr and the final Result.
func runSrc(t *testing.T, src string) (stdout, stderr string, result machine.Result) {
	t.Helper()
	vm := machine.New(config.Default())
	var out, errOut bytes.Buffer
	vm.Stdout = &out
	vm.Stderr = &errOut

	fn, errs, ok := compiler.Compile(vm, src)
	if !ok {
		return out.String(), errOut.String(), machine.CompileError
	}
	require.Empty(t, errs)
	return out.String(), errOut.String(), vm.Run(fn)
}

func TestArithmeticAndPrecedence(t *testing.T) {
	out, _, result := runSrc(t, `print 1 + 2 * 3 - (4 / 2);`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "5\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, _, result := runSrc(t, `print "foo" + "bar";`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "foobar\n", out)
}

func TestTruthinessAndComparison(t *testing.T) {
	out, _, result := runSrc(t, `print nil == false; print 1 < 2; print "a" == "a";`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "false\ntrue\ntrue\n", out)
}

func TestGlobalVariables(t *testing.T) {
	out, _, result := runSrc(t, `
var x = 10;
x = x + 5;
print x;
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "15\n", out)
}

func TestLocalScoping(t *testing.T) {
	out, _, result := runSrc(t, `
var x = "global";
{
	var x = "local";
	print x;
}
print x;
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "local\nglobal\n", out)
}

func TestForLoop(t *testing.T) {
	out, _, result := runSrc(t, `
var sum = 0;
for (var i = 0; i < 5; i = i + 1) {
	sum = sum + i;
}
print sum;
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "10\n", out)
}

func TestWhileLoopAndLogicalOperators(t *testing.T) {
	out, _, result := runSrc(t, `
var i = 0;
var hits = 0;
while (i < 10) {
	if (i > 2 and i < 6 or i == 9) hits = hits + 1;
	i = i + 1;
}
print hits;
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "4\n", out)
}

func TestFunctionCallAndRecursion(t *testing.T) {
	out, _, result := runSrc(t, `
fun fib(n) {
	if (n < 2) return n;
	return fib(n - 1) + fib(n - 2);
}
print fib(10);
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "55\n", out)
}

func TestClosureCapturesUpvalue(t *testing.T) {
	out, _, result := runSrc(t, `
fun makeCounter() {
	var count = 0;
	fun counter() {
		count = count + 1;
		return count;
	}
	return counter;
}
var c1 = makeCounter();
var c2 = makeCounter();
print c1();
print c1();
print c2();
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "1\n2\n1\n", out)
}

func TestClassesFieldsAndMethods(t *testing.T) {
	out, _, result := runSrc(t, `
class Counter {
	init(start) {
		this.value = start;
	}
	increment() {
		this.value = this.value + 1;
		return this.value;
	}
}
var c = Counter(10);
print c.increment();
print c.increment();
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "11\n12\n", out)
}

func TestInheritanceAndSuper(t *testing.T) {
	out, _, result := runSrc(t, `
class Animal {
	speak() {
		return "...";
	}
	describe() {
		return "an animal that says " + this.speak();
	}
}
class Dog < Animal {
	speak() {
		return "woof";
	}
	describe() {
		return super.describe() + "!";
	}
}
print Dog().describe();
`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "an animal that says woof!\n", out)
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	_, stderr, result := runSrc(t, `print undefinedThing;`)
	assert.Equal(t, machine.RuntimeError, result)
	assert.Contains(t, stderr, "undefined variable 'undefinedThing'")
}

func TestRuntimeErrorTypeMismatch(t *testing.T) {
	_, stderr, result := runSrc(t, `print 1 + "two";`)
	assert.Equal(t, machine.RuntimeError, result)
	assert.Contains(t, stderr, "operands must be two numbers or two strings")
}

func TestCompileErrorReportsAllMistakes(t *testing.T) {
	vm := machine.New(config.Default())
	var out, errOut bytes.Buffer
	vm.Stdout, vm.Stderr = &out, &errOut

	_, errs, ok := compiler.Compile(vm, `
print ;
var = 1;
`)
	assert.False(t, ok)
	assert.Len(t, errs, 2)
}

func TestNativeClockReturnsNumber(t *testing.T) {
	out, _, result := runSrc(t, `print clock() >= 0;`)
	assert.Equal(t, machine.OK, result)
	assert.Equal(t, "true\n", out)
}

func TestStressGCDoesNotCorruptState(t *testing.T) {
	cfg := config.Default()
	cfg.StressGC = true
	vm := machine.New(cfg)
	var out bytes.Buffer
	vm.Stdout = &out

	fn, _, ok := compiler.Compile(vm, `
class Node {
	init(value) {
		this.value = value;
	}
}
fun makeChain(n) {
	var head = nil;
	for (var i = 0; i < n; i = i + 1) {
		var node = Node(i);
		head = node;
	}
	return head;
}
var last = makeChain(200);
print last.value;
`)
	require.True(t, ok)
	assert.Equal(t, machine.OK, vm.Run(fn))
	assert.Equal(t, "199\n", out.String())
}
