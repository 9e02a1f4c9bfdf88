package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"
	"github.com/mna/panda/internal/config"
	"github.com/mna/panda/lang/machine"
)

// runREPL drives spec.md 6's interactive shell: one line of source
// compiled and run per iteration against a single persistent VM, so
// globals and classes declared on one line are visible to the next. A
// compile or runtime error on one line is reported but does not exit the
// shell (exit codes only apply to -reading a script file or reaching EOF
// here, which always exits 0).
//
// stdin is taken as an explicit parameter rather than read off mainer.Stdio:
// every teacher subcommand reads its input from file arguments, never from
// stdio, so mainer.Stdio carries no confirmed Stdin field to reuse here.
func runREPL(_ context.Context, stdio mainer.Stdio, stdin io.Reader, cfg config.VM, trace bool) mainer.ExitCode {
	vm := machine.New(cfg)
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	vm.SetTrace(trace)

	interactive := isTerminal(stdin)

	scanner := bufio.NewScanner(stdin)
	for {
		if interactive {
			fmt.Fprint(stdio.Stdout, "> ")
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(stdio.Stdout)
			}
			return ExitOK
		}
		interpret(vm, scanner.Text(), stdio)
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
