package vm

import (
	"github.com/calmh/patternrun/instructions"
	"github.com/calmh/patternrun/runio"
	"github.com/calmh/patternrun/value"
)

// execPrint implements the Print/Printf opcodes. The compiler pushes,
// in order, an optional format string, the argument list, and an
// optional redirection destination, so everything is popped back off
// in reverse.
func (vm *VM) execPrint(ins *instructions.Instruction) error {
	var dest value.Value
	if ins.Redirect != instructions.RedirectNone {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		dest = v
	}
	args, err := vm.popArgs(ins.Argc)
	if err != nil {
		return err
	}
	var line string
	if ins.Op == instructions.Printf {
		format, err := vm.pop()
		if err != nil {
			return err
		}
		line = value.Sprintf(format.ToString(), args)
	} else {
		ofs := vm.globalStr("OFS")
		for i, a := range args {
			if i > 0 {
				line += ofs
			}
			line += a.ToString()
		}
		line += vm.globalStr("ORS")
	}
	return vm.io.Write(dest.ToString(), toRunioMode(ins.Redirect), line)
}

func toRunioMode(m instructions.RedirectMode) runio.RedirectMode {
	switch m {
	case instructions.RedirectFile:
		return runio.RedirectFile
	case instructions.RedirectAppend:
		return runio.RedirectAppend
	case instructions.RedirectPipe:
		return runio.RedirectPipe
	default:
		return runio.RedirectNone
	}
}

// execGetline implements all six getline forms (§6). Forms reading
// from the main input sequence advance NR/FNR/FILENAME; forms reading
// from a named file or pipe stream only ever touch NR/FNR when they
// also update $0 (i.e. never — named-stream getline updates only $0
// or the target, per the forms table). A target may be a plain
// variable, an array element, or a field, in which case its subscript
// values or field index were pushed by the compiler right after the
// source (if any) and are popped here, before the source itself.
func (vm *VM) execGetline(ins *instructions.Instruction, frame *Frame) error {
	var keys []string
	var fieldIdx value.Value
	switch ins.GetlineTarget {
	case instructions.GetlineTargetArr:
		ks, err := vm.popKeys(ins.Argc)
		if err != nil {
			return err
		}
		keys = ks
	case instructions.GetlineTargetField:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		fieldIdx = v
	}

	var source string
	needsSource := ins.GetlineMode == instructions.GetlineFile || ins.GetlineMode == instructions.GetlineVarFile ||
		ins.GetlineMode == instructions.GetlinePipe || ins.GetlineMode == instructions.GetlinePipeVar
	if needsSource {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		source = v.ToString()
	}

	rs := vm.globalStr("RS")
	var record string
	var status int
	var err error

	switch ins.GetlineMode {
	case instructions.GetlineSimple, instructions.GetlineVar:
		var filename string
		var newFile, ok bool
		record, filename, newFile, ok, err = vm.io.NextMainRecord(rs)
		if err != nil {
			status = -1
		} else if !ok {
			status = 0
		} else {
			status = 1
			vm.globals["NR"] = value.NewNumber(vm.globals["NR"].ToInt() + 1)
			if newFile {
				vm.globals["FNR"] = value.NewNumber(1)
				vm.globals["FILENAME"] = value.NewString(filename)
			} else {
				vm.globals["FNR"] = value.NewNumber(vm.globals["FNR"].ToInt() + 1)
			}
		}
	case instructions.GetlineFile, instructions.GetlineVarFile:
		record, status, err = vm.io.ReadFile(source, rs)
	case instructions.GetlinePipe, instructions.GetlinePipeVar:
		record, status, err = vm.io.ReadPipe(source, rs)
	}
	if err != nil {
		status = -1
	}

	if status == 1 {
		switch ins.GetlineTarget {
		case instructions.GetlineTargetNone:
			if err := vm.setRecord(record); err != nil {
				return err
			}
		case instructions.GetlineTargetVar:
			if err := vm.storeVar(frame, ins.Name, value.NewString(record)); err != nil {
				return err
			}
		case instructions.GetlineTargetArr:
			arr, err := vm.arrayRef(frame, ins.Name)
			if err != nil {
				return err
			}
			arr.Set(joinSubsep(keys, vm.globalStr("SUBSEP")), value.NewString(record))
		case instructions.GetlineTargetField:
			if err := vm.setField(int(fieldIdx.ToInt()), record); err != nil {
				return err
			}
		}
	}
	vm.stack.Push(value.NewNumber(int64(status)))
	return nil
}
