package vm

import (
	"fmt"
	"math"

	"github.com/calmh/patternrun/instructions"
	"github.com/calmh/patternrun/value"
)

// execStream runs one compiled instruction stream to completion,
// returning whatever value.Value its final PushValue/expression leaves
// on the shared stack (meaningful only for condition streams, which
// the compiler never follows with a Pop) and any control-flow signal
// or fatal error to propagate to the caller.
func (vm *VM) execStream(code []instructions.Instruction, frame *Frame) (value.Value, error) {
	iters := map[int]*forIter{}
	pc := 0
	for pc < len(code) {
		ins := &code[pc]
		switch ins.Op {

		case instructions.PushValue:
			vm.stack.Push(operandToValue(ins.Value))
			pc++

		case instructions.Pop:
			if _, err := vm.pop(); err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			pc++

		case instructions.Dup:
			top, err := vm.stack.Peek()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(top)
			pc++

		case instructions.Swap:
			b, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(b)
			vm.stack.Push(a)
			pc++

		case instructions.Jump:
			pc = ins.Target

		case instructions.JumpIfTrue:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			if v.Truthy() {
				pc = ins.Target
			} else {
				pc++
			}

		case instructions.JumpIfFalse:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			if !v.Truthy() {
				pc = ins.Target
			} else {
				pc++
			}

		case instructions.Call:
			args, err := vm.popArgs(ins.Argc)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			ret, err := vm.callFunction(ins.Name, args)
			if err != nil {
				return value.Value{}, err
			}
			vm.stack.Push(ret)
			pc++

		case instructions.Return:
			if ins.Argc == 1 {
				v, err := vm.pop()
				if err != nil {
					return value.Value{}, vm.rtErr(ins, err)
				}
				return v, nil
			}
			return value.NewString(""), nil

		case instructions.LoadVar:
			vm.stack.Push(vm.loadVar(frame, ins.Name))
			pc++

		case instructions.StoreVar:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			if err := vm.storeVar(frame, ins.Name, v); err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			pc++

		case instructions.LoadArr:
			keys, err := vm.popKeys(ins.Argc)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			arr, err := vm.arrayRef(frame, ins.Name)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(arr.Get(joinSubsep(keys, vm.globalStr("SUBSEP"))))
			pc++

		case instructions.StoreArr:
			keys, err := vm.popKeys(ins.Argc)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			val, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			arr, err := vm.arrayRef(frame, ins.Name)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			arr.Set(joinSubsep(keys, vm.globalStr("SUBSEP")), val)
			pc++

		case instructions.DeleteArr:
			arr, err := vm.arrayRef(frame, ins.Name)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			if ins.Argc == 0 {
				arr.Clear()
			} else {
				keys, err := vm.popKeys(ins.Argc)
				if err != nil {
					return value.Value{}, vm.rtErr(ins, err)
				}
				arr.Delete(joinSubsep(keys, vm.globalStr("SUBSEP")))
			}
			pc++

		case instructions.InArr:
			keys, err := vm.popKeys(ins.Argc)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			arr, err := vm.arrayRef(frame, ins.Name)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewBool(arr.Has(joinSubsep(keys, vm.globalStr("SUBSEP")))))
			pc++

		case instructions.ForInInit:
			arr, err := vm.arrayRef(frame, ins.Name)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			iters[pc] = &forIter{keys: arr.Keys()}
			pc++

		case instructions.ForInNext:
			it := iters[pc-1]
			if it == nil || it.idx >= len(it.keys) {
				delete(iters, pc-1)
				pc = ins.Target
			} else {
				key := it.keys[it.idx]
				it.idx++
				if err := vm.storeVar(frame, ins.Name, value.NewString(key)); err != nil {
					return value.Value{}, vm.rtErr(ins, err)
				}
				pc++
			}

		case instructions.LoadField:
			idx, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewString(vm.field(int(idx.ToInt()))))
			pc++

		case instructions.StoreField:
			idx, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			val, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			if err := vm.setField(int(idx.ToInt()), val.ToString()); err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			pc++

		case instructions.Add, instructions.Sub, instructions.Mul, instructions.Div, instructions.Rem, instructions.Exp,
			instructions.BitAnd, instructions.BitOr, instructions.BitXor, instructions.Shl, instructions.Shr:
			b, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			res, err := vm.binArith(ins.Op, a, b)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(res)
			pc++

		case instructions.Neg:
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			res, err := value.Neg(a)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(res)
			pc++

		case instructions.Pos:
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			res, err := value.Pos(a)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(res)
			pc++

		case instructions.BitNot:
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			res, _ := value.BitNot(a)
			vm.stack.Push(res)
			pc++

		case instructions.Eq, instructions.Ne, instructions.Lt, instructions.Le, instructions.Gt, instructions.Ge:
			b, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(vm.compareOp(ins.Op, a, b))
			pc++

		case instructions.Not:
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewBool(!a.Truthy()))
			pc++

		case instructions.Concat:
			b, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.Concat(a, b))
			pc++

		case instructions.Match:
			pattern, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			target, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			res, err := value.Match(target, pattern)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(res)
			pc++

		case instructions.NotMatch:
			pattern, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			target, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			res, err := value.NotMatch(target, pattern)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(res)
			pc++

		case instructions.MatchFn:
			pattern, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			s, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			m, err := value.MatchFunc(s, pattern)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.globals["RSTART"] = value.NewNumber(int64(m.Start))
			vm.globals["RLENGTH"] = value.NewNumber(int64(m.Length))
			vm.stack.Push(value.NewNumber(int64(m.Start)))
			pc++

		case instructions.StrSub, instructions.StrGsub:
			target, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			repl, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			pattern, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			s := target.ToString()
			var count int
			if ins.Op == instructions.StrSub {
				count, err = value.ReplaceFirst(pattern, repl, &s)
			} else {
				count, err = value.ReplaceAll(pattern, repl, &s)
			}
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewString(s))
			vm.stack.Push(value.NewNumber(int64(count)))
			pc++

		case instructions.Split:
			sep, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			s, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			arr, err := vm.arrayRef(frame, ins.Name)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			n, err := value.Split(s.ToString(), arr, sep.ToString())
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewNumber(int64(n)))
			pc++

		case instructions.Length:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			var n int
			if v.Kind == value.Array {
				n = v.Len()
			} else {
				n = len([]rune(v.ToString()))
			}
			vm.stack.Push(value.NewNumber(int64(n)))
			pc++

		case instructions.Substr:
			var s, m, n value.Value
			var err error
			hasN := ins.Argc >= 3
			if hasN {
				n, err = vm.pop()
				if err != nil {
					return value.Value{}, vm.rtErr(ins, err)
				}
			}
			m, err = vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			s, err = vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewString(value.Substr(s.ToString(), int(m.ToInt()), hasN, int(n.ToInt()))))
			pc++

		case instructions.Index:
			t, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			s, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewNumber(int64(value.IndexOf(s.ToString(), t.ToString()))))
			pc++

		case instructions.Sprintf:
			args, err := vm.popArgs(ins.Argc)
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			format, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewString(value.Sprintf(format.ToString(), args)))
			pc++

		case instructions.ToLower:
			s, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewString(value.ToLower(s.ToString())))
			pc++

		case instructions.ToUpper:
			s, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewString(value.ToUpper(s.ToString())))
			pc++

		case instructions.Sin, instructions.Cos, instructions.Sqrt, instructions.MathExp, instructions.Log, instructions.ToIntFn:
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(vm.mathUnary(ins.Op, a))
			pc++

		case instructions.Atan2:
			b, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			a, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewFloat(math.Atan2(a.ToFloat(), b.ToFloat())))
			pc++

		case instructions.Rand:
			vm.stack.Push(value.NewFloat(vm.rng.Float64()))
			pc++

		case instructions.Srand:
			var seed float64
			explicit := ins.Argc == 1
			if explicit {
				v, err := vm.pop()
				if err != nil {
					return value.Value{}, vm.rtErr(ins, err)
				}
				seed = v.ToFloat()
			}
			prev := vm.seedRand(seed, explicit)
			vm.stack.Push(value.NewFloat(prev))
			pc++

		case instructions.Print, instructions.Printf:
			if err := vm.execPrint(ins); err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			pc++

		case instructions.Getline:
			if err := vm.execGetline(ins, frame); err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			pc++

		case instructions.Close:
			name, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewNumber(int64(vm.io.Close(name.ToString()))))
			pc++

		case instructions.System:
			cmd, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.rtErr(ins, err)
			}
			vm.stack.Push(value.NewNumber(int64(vm.io.System(cmd.ToString()))))
			pc++

		case instructions.Exit:
			sig := exitSignal{}
			if ins.Argc == 1 {
				v, err := vm.pop()
				if err != nil {
					return value.Value{}, vm.rtErr(ins, err)
				}
				sig.status = int(v.ToInt())
				sig.hasStatus = true
			}
			return value.Value{}, sig

		case instructions.Next:
			return value.Value{}, next{}

		case instructions.NextFile:
			return value.Value{}, nextFile{}

		default:
			return value.Value{}, vm.rtErr(ins, fmt.Errorf("unimplemented opcode %d", ins.Op))
		}
	}

	if !vm.stack.Empty() {
		v, _ := vm.pop()
		return v, nil
	}
	return value.Value{}, nil
}

type forIter struct {
	keys []string
	idx  int
}

func (vm *VM) pop() (value.Value, error) {
	return vm.stack.Pop()
}

// popArgs pops n values and restores their original left-to-right
// push order (Call/Sprintf/Print push arguments in source order, so
// the last one pushed is popped first).
func (vm *VM) popArgs(n int) ([]value.Value, error) {
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (vm *VM) popKeys(n int) ([]string, error) {
	vals, err := vm.popArgs(n)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(vals))
	for i, v := range vals {
		keys[i] = v.ToString()
	}
	return keys, nil
}

func joinSubsep(keys []string, subsep string) string {
	if len(keys) == 1 {
		return keys[0]
	}
	s := keys[0]
	for _, k := range keys[1:] {
		s += subsep + k
	}
	return s
}

func operandToValue(op instructions.Operand) value.Value {
	switch op.Kind {
	case instructions.OperandNumber:
		return value.NewNumber(op.Num)
	case instructions.OperandFloat:
		return value.NewFloat(op.Flt)
	case instructions.OperandString:
		return value.NewString(op.Str)
	case instructions.OperandRegex:
		return value.NewRegex(op.Str)
	default:
		return value.NewString("")
	}
}

func (vm *VM) rtErr(ins *instructions.Instruction, err error) error {
	if err == nil {
		return nil
	}
	return &RuntimeError{Msg: err.Error(), Line: ins.Line}
}

func (vm *VM) binArith(op instructions.Op, a, b value.Value) (value.Value, error) {
	switch op {
	case instructions.Add:
		return value.Add(a, b)
	case instructions.Sub:
		return value.Sub(a, b)
	case instructions.Mul:
		return value.Mul(a, b)
	case instructions.Div:
		return value.Div(a, b)
	case instructions.Rem:
		return value.Rem(a, b)
	case instructions.Exp:
		return value.Exp(a, b)
	case instructions.BitAnd:
		return value.BitAnd(a, b)
	case instructions.BitOr:
		return value.BitOr(a, b)
	case instructions.BitXor:
		return value.BitXor(a, b)
	case instructions.Shl:
		return value.Shl(a, b)
	case instructions.Shr:
		return value.Shr(a, b)
	default:
		return value.Value{}, fmt.Errorf("not an arithmetic opcode: %d", op)
	}
}

func (vm *VM) compareOp(op instructions.Op, a, b value.Value) value.Value {
	switch op {
	case instructions.Eq:
		return value.Eq(a, b)
	case instructions.Ne:
		return value.Ne(a, b)
	case instructions.Lt:
		return value.Lt(a, b)
	case instructions.Le:
		return value.Le(a, b)
	case instructions.Gt:
		return value.Gt(a, b)
	default:
		return value.Ge(a, b)
	}
}

func (vm *VM) mathUnary(op instructions.Op, a value.Value) value.Value {
	f := a.ToFloat()
	switch op {
	case instructions.Sin:
		return value.NewFloat(math.Sin(f))
	case instructions.Cos:
		return value.NewFloat(math.Cos(f))
	case instructions.Sqrt:
		return value.NewFloat(math.Sqrt(f))
	case instructions.MathExp:
		return value.NewFloat(math.Exp(f))
	case instructions.Log:
		return value.NewFloat(math.Log(f))
	default: // ToIntFn
		return value.NewNumber(int64(f))
	}
}
