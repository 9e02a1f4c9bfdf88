package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/panda/internal/config"
	"github.com/mna/panda/lang/compiler"
	"github.com/mna/panda/lang/machine"
)

// runFile compiles and runs the script at path, returning the exit code
// spec.md 6/7 prescribes: 74 if the file cannot be read, 65 on a compile
// error, 70 on a runtime error, 0 otherwise.
func runFile(_ context.Context, stdio mainer.Stdio, cfg config.VM, trace bool, path string) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "can't read file '%s': %s\n", path, err)
		return ExitIOError
	}

	vm := machine.New(cfg)
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	vm.SetTrace(trace)

	return interpret(vm, string(src), stdio)
}

// interpret compiles and runs one chunk of source against vm, reporting
// compile errors the way spec.md 7 specifies (one line per error, all of
// them, not just the first).
func interpret(vm *machine.VM, src string, stdio mainer.Stdio) mainer.ExitCode {
	fn, errs, ok := compiler.Compile(vm, src)
	if !ok {
		for _, line := range errs {
			fmt.Fprintln(stdio.Stderr, line)
		}
		return ExitCompileError
	}

	if result := vm.Run(fn); result == machine.RuntimeError {
		return ExitRuntimeError
	}
	return ExitOK
}
