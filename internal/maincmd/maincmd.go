// Package maincmd implements Panda's CLI/REPL shell: the external
// collaborator spec.md 1 and 6 describe as owning argument parsing, file
// loading, and the exact process exit-code contract, leaving the
// compiler/VM/GC triangle itself free of any process-level concerns.
package maincmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/mna/mainer"
	"github.com/mna/panda/internal/config"
)

const binName = "panda"

// Exit codes, spec.md 6: 0 success, 64 CLI misuse, 65 compile error, 70
// runtime error, 74 I/O error (the same codes sysexits.h assigns to
// EX_USAGE, EX_DATAERR and EX_IOERR, which is where the book's own
// interpreter borrows them from).
const (
	ExitOK           mainer.ExitCode = 0
	ExitUsage        mainer.ExitCode = 64
	ExitCompileError mainer.ExitCode = 65
	ExitRuntimeError mainer.ExitCode = 70
	ExitIOError      mainer.ExitCode = 74
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<script>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<script>]
       %[1]s -h|--help
       %[1]s -v|--version

The Panda scripting language: a bytecode compiler and virtual machine.
With no <script> argument, starts an interactive REPL.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --trace                   Trace every executed instruction and GC
                                 cycle to stderr (also: PANDA_TRACE=1).
       --config <path>           Load VM/GC tuning from a YAML file
                                 (default: ./panda.yaml if present).
`, binName)
)

// Cmd is the mainer.Parser-bound flag/argument target for the panda
// binary.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Trace      bool   `flag:"trace"`
	ConfigPath string `flag:"config"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool)     {}

// Validate enforces spec.md 6's CLI contract: at most one positional
// argument, the script path.
func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("too many arguments: expected at most one script path")
	}
	return nil
}

// Main is the binary's entry point logic, split out from main() so tests
// can drive it with an in-memory mainer.Stdio.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return ExitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return ExitOK
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return ExitOK
	}

	cfgPath := c.ConfigPath
	if cfgPath == "" {
		cfgPath = "panda.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return ExitIOError
	}

	trace := c.Trace || envTrace()

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if len(c.args) == 1 {
		return runFile(ctx, stdio, cfg, trace, c.args[0])
	}
	return runREPL(ctx, stdio, os.Stdin, cfg, trace)
}

func envTrace() bool {
	v, ok := os.LookupEnv("PANDA_TRACE")
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
