// Package vm executes a *compiler.Program: one stack machine per run,
// dispatching each instruction stream (BEGIN, END, a rule's condition
// and action, a function body) through execStream, with Go's own call
// stack standing in for the frame stack original_source/vm.rs keeps
// explicitly. A single operand stack.Stack is shared across every
// nested call, matching §4.4's "one operand stack" model; only the
// parameter-scoped locals differ per call frame.
package vm

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/calmh/patternrun/compiler"
	"github.com/calmh/patternrun/runio"
	"github.com/calmh/patternrun/stack"
	"github.com/calmh/patternrun/value"
)

// VM holds everything one interpreter run needs: globals, the shared
// operand stack, the current record's fields, the I/O collaborator,
// and the rand/srand generator state.
type VM struct {
	globals   map[string]value.Value
	functions map[string]*compiler.Function
	io        *runio.Manager
	stack     *stack.Stack

	fields []string // 1-indexed: fields[i-1] == $i
	record string

	rng  *rand.Rand
	seed float64

	exitStatus int
}

// Frame scopes local variables to a function call's declared
// parameters; any identifier not in Params falls through to globals,
// matching classic awk's "parameters are the only locals" rule.
type Frame struct {
	params map[string]bool
	locals map[string]value.Value
}

func (f *Frame) isParam(name string) bool {
	return f != nil && f.params[name]
}

// New builds a VM ready to run prog's functions against globals, which
// the caller (interp) has already seeded with FS/OFS/ORS/RS/SUBSEP and
// friends.
func New(functions map[string]*compiler.Function, iomgr *runio.Manager, globals map[string]value.Value) *VM {
	return &VM{
		globals:   globals,
		functions: functions,
		io:        iomgr,
		stack:     stack.New(),
		rng:       rand.New(rand.NewSource(1)),
		seed:      1,
	}
}

// Run drives the full program lifecycle: BEGIN, the main per-record
// loop (skipped when the program has neither ordinary rules nor an
// END block, per classic awk), and END, returning the process exit
// status. A fatal *RuntimeError still gives END a chance to run first,
// unless the error itself came from within END.
func (vm *VM) Run(prog *compiler.Program) (int, error) {
	if _, err := vm.execStream(prog.Begin, nil); err != nil {
		if sig, ok := err.(exitSignal); ok {
			vm.applyExit(sig)
			return vm.finish(prog)
		}
		vm.finish(prog)
		return 1, fmt.Errorf("BEGIN: %w", err)
	}

	mainLoopNeeded := len(prog.Rules) > 0 || len(prog.End) > 0
	if mainLoopNeeded {
		if err := vm.mainLoop(prog); err != nil {
			if sig, ok := err.(exitSignal); ok {
				vm.applyExit(sig)
				return vm.finish(prog)
			}
			vm.finish(prog)
			return 1, err
		}
	}
	return vm.finish(prog)
}

func (vm *VM) applyExit(sig exitSignal) {
	if sig.hasStatus {
		vm.exitStatus = sig.status
	}
}

// finish runs END (if not already consumed by an exit inside it) and
// releases every open stream.
func (vm *VM) finish(prog *compiler.Program) (int, error) {
	defer vm.io.CloseAll()
	if _, err := vm.execStream(prog.End, nil); err != nil {
		if sig, ok := err.(exitSignal); ok {
			vm.applyExit(sig)
			return vm.exitStatus, nil
		}
		return 1, fmt.Errorf("END: %w", err)
	}
	vm.io.Flush()
	return vm.exitStatus, nil
}

func (vm *VM) mainLoop(prog *compiler.Program) error {
	for {
		rec, filename, newFile, ok, err := vm.io.NextMainRecord(vm.globalStr("RS"))
		if err != nil {
			return &RuntimeError{Msg: fmt.Sprintf("reading input: %v", err)}
		}
		if !ok {
			return nil
		}
		vm.globals["NR"] = value.NewNumber(vm.globals["NR"].ToInt() + 1)
		if newFile {
			vm.globals["FNR"] = value.NewNumber(1)
			vm.globals["FILENAME"] = value.NewString(filename)
		} else {
			vm.globals["FNR"] = value.NewNumber(vm.globals["FNR"].ToInt() + 1)
		}
		if err := vm.setRecord(rec); err != nil {
			return err
		}

		switch err := vm.runRules(prog.Rules); err.(type) {
		case nil:
		case next:
			continue
		case nextFile:
			vm.io.SkipMainFile()
			continue
		default:
			return err
		}
	}
}

func (vm *VM) runRules(rules []compiler.Rule) error {
	for i := range rules {
		r := &rules[i]
		matched := r.Cond == nil
		if !matched {
			v, err := vm.execStream(r.Cond, nil)
			if err != nil {
				return err
			}
			matched = v.Truthy()
		}
		if !matched {
			continue
		}
		if _, err := vm.execStream(r.Action, nil); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) globalStr(name string) string {
	if v, ok := vm.globals[name]; ok {
		return v.ToString()
	}
	return ""
}

// setRecord assigns $0, re-splitting it into fields on FS and updating
// NF (the "assigning to $0" case of §4.4's field rebuild rule).
func (vm *VM) setRecord(rec string) error {
	fields, err := runio.SplitFields(rec, vm.globalStr("FS"))
	if err != nil {
		return &RuntimeError{Msg: err.Error()}
	}
	vm.record = rec
	vm.fields = fields
	vm.globals["NF"] = value.NewNumber(int64(len(fields)))
	return nil
}

func (vm *VM) field(i int) string {
	if i == 0 {
		return vm.record
	}
	if i < 0 || i > len(vm.fields) {
		return ""
	}
	return vm.fields[i-1]
}

// setField assigns $i for i > 0, growing the field slice with empty
// strings as needed, then rebuilds $0 by joining on OFS (the other
// half of §4.4's field rebuild rule).
func (vm *VM) setField(i int, val string) error {
	if i == 0 {
		return vm.setRecord(val)
	}
	if i < 0 {
		return &RuntimeError{Msg: fmt.Sprintf("field index %d is negative", i)}
	}
	for len(vm.fields) < i {
		vm.fields = append(vm.fields, "")
	}
	vm.fields[i-1] = val
	vm.globals["NF"] = value.NewNumber(int64(len(vm.fields)))
	vm.record = runio.JoinFields(vm.fields, vm.globalStr("OFS"))
	return nil
}

// seedRand reseeds the generator, returning the previous seed, per
// SPEC_FULL.md §3's "srand returns the previous seed" rule (a
// deliberate departure from the teacher's era of code, grounded on
// original_source/value.rs's srand semantics).
func (vm *VM) seedRand(newSeed float64, explicit bool) float64 {
	prev := vm.seed
	if !explicit {
		newSeed = float64(time.Now().UnixNano())
	}
	vm.seed = newSeed
	vm.rng = rand.New(rand.NewSource(int64(newSeed)))
	return prev
}
