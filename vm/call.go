package vm

import (
	"fmt"

	"github.com/calmh/patternrun/runio"
	"github.com/calmh/patternrun/value"
)

// callFunction binds args to fn's declared parameters (extra
// parameters default to the empty scalar, and args beyond the declared
// parameters are ignored) and recurses into
// execStream with a fresh Frame. Go's own call stack is the frame
// stack; a recursive user function just means execStream calling
// itself, each with its own locals map.
func (vm *VM) callFunction(name string, args []value.Value) (value.Value, error) {
	fn, ok := vm.functions[name]
	if !ok {
		return value.Value{}, &RuntimeError{Msg: fmt.Sprintf("call to undefined function %q", name)}
	}
	frame := &Frame{
		params: make(map[string]bool, len(fn.Params)),
		locals: make(map[string]value.Value, len(args)),
	}
	for _, p := range fn.Params {
		frame.params[p] = true
	}
	for i, p := range fn.Params {
		if i < len(args) {
			frame.locals[p] = args[i]
		}
	}
	return vm.execStream(fn.Body, frame)
}

// loadVar reads a variable: a frame-local parameter if frame declares
// it, otherwise a global, defaulting to the empty string per §3's
// "unknown variables read as the empty string" rule.
func (vm *VM) loadVar(frame *Frame, name string) value.Value {
	if frame.isParam(name) {
		if v, ok := frame.locals[name]; ok {
			return v
		}
		return value.NewString("")
	}
	if v, ok := vm.globals[name]; ok {
		return v
	}
	return value.NewString("")
}

// storeVar writes a scalar into a variable, erroring if the variable
// already holds an array (classic awk's "can't assign to array"
// type error). Assigning NF truncates or extends the field list and
// rebuilds $0, mirroring the built-in field-count semantics a plain
// globals map can't express on its own.
func (vm *VM) storeVar(frame *Frame, name string, v value.Value) error {
	if name == "NF" && !frame.isParam(name) {
		return vm.setNF(int(v.ToInt()))
	}
	if frame.isParam(name) {
		if existing, ok := frame.locals[name]; ok && existing.Kind == value.Array && v.Kind != value.Array {
			return fmt.Errorf("cannot assign a scalar to array parameter %q", name)
		}
		frame.locals[name] = v
		return nil
	}
	if existing, ok := vm.globals[name]; ok && existing.Kind == value.Array && v.Kind != value.Array {
		return fmt.Errorf("cannot assign a scalar to array %q", name)
	}
	vm.globals[name] = v
	return nil
}

func (vm *VM) setNF(n int) error {
	if n < 0 {
		n = 0
	}
	if n < len(vm.fields) {
		vm.fields = vm.fields[:n]
	}
	for len(vm.fields) < n {
		vm.fields = append(vm.fields, "")
	}
	vm.globals["NF"] = value.NewNumber(int64(n))
	vm.record = runio.JoinFields(vm.fields, vm.globalStr("OFS"))
	return nil
}

// arrayRef resolves name to its Array value, vivifying an empty array
// on first use (auto-creation is implicit in classic awk: referencing
// an unset name as an array just makes it one). It errors if name
// already holds a scalar.
func (vm *VM) arrayRef(frame *Frame, name string) (value.Value, error) {
	if frame.isParam(name) {
		if existing, ok := frame.locals[name]; ok {
			if existing.Kind != value.Array {
				return value.Value{}, fmt.Errorf("cannot use scalar %q as an array", name)
			}
			return existing, nil
		}
		arr := value.NewArray()
		frame.locals[name] = arr
		return arr, nil
	}
	if existing, ok := vm.globals[name]; ok {
		if existing.Kind != value.Array {
			return value.Value{}, fmt.Errorf("cannot use scalar %q as an array", name)
		}
		return existing, nil
	}
	arr := value.NewArray()
	vm.globals[name] = arr
	return arr, nil
}
