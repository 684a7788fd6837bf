// Package interp wires the lexer, parser, compiler, vm, and runio
// packages into one program run: it owns the special globals §6
// describes (FS/OFS/ORS/RS/SUBSEP, NR/NF/FNR/FILENAME, RSTART/RLENGTH,
// ENVIRON, ARGV/ARGC), applies -v pre-assignments before BEGIN runs,
// and reports a fatal parse or runtime error to stderr the way the
// teacher's main.go reports a compile failure.
package interp

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/calmh/patternrun/compiler"
	"github.com/calmh/patternrun/lexer"
	"github.com/calmh/patternrun/parser"
	"github.com/calmh/patternrun/runio"
	"github.com/calmh/patternrun/value"
	"github.com/calmh/patternrun/vm"
)

// Assignment is one -v name=value pre-assignment.
type Assignment struct {
	Name  string
	Value string
}

// Options configures one program run, built by main from the §6 CLI
// contract.
type Options struct {
	ProgName string       // ARGV[0]
	Args     []string     // remaining positional args: the input file list
	Assigns  []Assignment // -v assignments, applied in order before BEGIN
	FS       string       // -F override; "" means use the default " "
}

// Run parses and compiles source, then executes it against opts,
// returning the process exit status. A parse or compile error is
// reported to stderr and reported back as status 1, matching a fatal
// runtime error (§7); it never returns a Go error itself, since by the
// time this returns there is nothing left for a caller to do but exit
// with the status.
func Run(source string, opts Options, stdin io.Reader, stdout, stderr io.Writer) int {
	l := lexer.New(source)
	p := parser.New(l)
	prog, err := p.Parse()
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", opts.ProgName, err)
		return 1
	}

	compiled, err := compiler.Compile(prog)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", opts.ProgName, err)
		return 1
	}

	globals := defaultGlobals(opts)
	iomgr := runio.New(opts.Args, stdin, stdout, stderr)
	machine := vm.New(compiled.Functions, iomgr, globals)

	status, runErr := machine.Run(compiled)
	if runErr != nil {
		fmt.Fprintf(stderr, "%s: %v\n", opts.ProgName, runErr)
		return 1
	}
	return status
}

// defaultGlobals seeds the special variables §6 requires before any
// user code runs: the separator/lifecycle defaults, ENVIRON snapshot
// from os.Environ(), ARGV/ARGC built from opts.Args, and -v's
// pre-assignments layered on top (so a -v can override FS, NR, or any
// other special the program would otherwise see as the default).
func defaultGlobals(opts Options) map[string]value.Value {
	fs := " "
	if opts.FS != "" {
		fs = opts.FS
	}
	g := map[string]value.Value{
		"FS":       value.NewString(fs),
		"OFS":      value.NewString(" "),
		"ORS":      value.NewString("\n"),
		"RS":       value.NewString("\n"),
		"SUBSEP":   value.NewString("\x1c"),
		"NR":       value.NewNumber(0),
		"NF":       value.NewNumber(0),
		"FNR":      value.NewNumber(0),
		"FILENAME": value.NewString(""),
		"RSTART":   value.NewNumber(0),
		"RLENGTH":  value.NewNumber(-1),
	}

	env := value.NewArray()
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env.Set(parts[0], value.NewString(parts[1]))
		}
	}
	g["ENVIRON"] = env

	argv := value.NewArray()
	argv.Set("0", value.NewString(opts.ProgName))
	for i, a := range opts.Args {
		argv.Set(strconv.Itoa(i+1), value.NewString(a))
	}
	g["ARGV"] = argv
	g["ARGC"] = value.NewNumber(int64(len(opts.Args) + 1))

	for _, a := range opts.Assigns {
		g[a.Name] = value.NewString(a.Value)
	}
	return g
}
