// This is the main-driver for our interpreter.
//
// Usage follows the classic form:
//
//	prog [-F sep] [-v var=value]* [-f file]* ['program'] [file ...]
//
// -v and -f may each be given more than once. With no -f, the first
// non-flag argument is the program text instead of an input file; -f
// files' contents are concatenated (newline-separated) to form the
// program instead. Whatever positional arguments remain become the
// list of input files ("-" or an absent list both mean standard
// input).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/calmh/patternrun/interp"
)

// multiFlag collects a repeatable flag's values in the order given,
// the same shape as flag.Value needs for -v/-f to be passed more than
// once on one command line.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var assigns, progFiles multiFlag
	fs := flag.String("F", "", "input field separator")
	flag.Var(&assigns, "v", "predefine var=value before BEGIN (repeatable)")
	flag.Var(&progFiles, "f", "read program text from file (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-F sep] [-v var=value]... [-f progfile]... ['program'] [file ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	rest := flag.Args()

	var source string
	if len(progFiles) > 0 {
		var parts []string
		for _, f := range progFiles {
			data, err := os.ReadFile(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "patternrun: %v\n", err)
				os.Exit(2)
			}
			parts = append(parts, string(data))
		}
		source = strings.Join(parts, "\n")
	} else {
		if len(rest) == 0 {
			flag.Usage()
			os.Exit(2)
		}
		source = rest[0]
		rest = rest[1:]
	}

	var assignments []interp.Assignment
	for _, a := range assigns {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "patternrun: malformed -v assignment %q, want name=value\n", a)
			os.Exit(2)
		}
		assignments = append(assignments, interp.Assignment{Name: name, Value: value})
	}

	opts := interp.Options{
		ProgName: "patternrun",
		Args:     rest,
		Assigns:  assignments,
		FS:       *fs,
	}

	status := interp.Run(source, opts, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(status)
}
