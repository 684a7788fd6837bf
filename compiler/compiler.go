// Package compiler lowers an *ast.Program into the flat instruction
// streams the vm package executes: one per BEGIN/END block, one pair
// of condition/action streams per pattern-action rule, and one body
// per user-defined function.
//
// The lowering itself (walking the tree once, switching on node type,
// appending instructions.Instruction values to a growing slice, and
// patching jump targets after the fact) follows the shape of the
// teacher's compiler.makeinternalform/output pair, generalized from a
// single flat token-to-assembly pass into a recursive AST walk with
// real control flow.
package compiler

import (
	"fmt"

	"github.com/calmh/patternrun/ast"
	"github.com/calmh/patternrun/instructions"
)

// Rule is one compiled pattern-action rule.
type Rule struct {
	Kind    ast.PatternKind
	Cond    []instructions.Instruction // nil for a SoloAction (Kind is PatternExpr with Cond == nil in that case); BEGIN/END go to Program.Begin/End
	RangeID int                        // hidden flag name suffix, for PatternRange
	Action  []instructions.Instruction
}

// Function is one compiled user-defined function body.
type Function struct {
	Params []string
	Body   []instructions.Instruction
}

// Program is the compiler's output: independently addressed
// instruction streams, ready for the vm to execute.
type Program struct {
	Begin     []instructions.Instruction
	End       []instructions.Instruction
	Rules     []Rule
	Functions map[string]*Function
}

// RangeFlagName returns the hidden global variable name backing range
// pattern id's "currently active" flag (§4.3).
func RangeFlagName(id int) string {
	return fmt.Sprintf("__range%d_active__", id)
}

// Compiler walks one ast.Program, producing a Program.
type Compiler struct {
	prog    *Program
	errors  []string
	funcs   map[string]*ast.Function
	inFunc  bool
	loops   []loopCtx
}

// loopCtx tracks the jump-patch list for break/continue inside the
// loop currently being compiled.
type loopCtx struct {
	breaks    []int
	continues []int
}

// builder accumulates one instruction stream with jump-patching help.
type builder struct {
	code []instructions.Instruction
}

func (b *builder) emit(ins instructions.Instruction) int {
	b.code = append(b.code, ins)
	return len(b.code) - 1
}

func (b *builder) here() int { return len(b.code) }

func (b *builder) patch(idx int) {
	b.code[idx].Target = len(b.code)
}

func (b *builder) patchTo(idx, target int) {
	b.code[idx].Target = target
}

// Compile lowers prog into a Program, or returns the first lowering
// error encountered (e.g. an assignment to a non-lvalue the parser
// let through, or a getline target the compiler cannot address).
func Compile(prog *ast.Program) (*Program, error) {
	c := &Compiler{
		prog:  &Program{Functions: map[string]*Function{}},
		funcs: map[string]*ast.Function{},
	}
	for _, item := range prog.Items {
		if fn, ok := item.(*ast.Function); ok {
			c.funcs[fn.Name] = fn
		}
	}

	beginB := &builder{}
	endB := &builder{}

	for _, item := range prog.Items {
		switch it := item.(type) {
		case *ast.PatternAction:
			switch it.Pattern.Kind {
			case ast.PatternBegin:
				c.compileStmt(it.Action, beginB, nil)
			case ast.PatternEnd:
				c.compileStmt(it.Action, endB, nil)
			default:
				c.compileRule(it)
			}
		case *ast.SoloAction:
			actionB := &builder{}
			c.compileStmt(it.Action, actionB, nil)
			c.prog.Rules = append(c.prog.Rules, Rule{Kind: ast.PatternExpr, Action: actionB.code})
		case *ast.Function:
			bodyB := &builder{}
			c.compileStmt(it.Body, bodyB, nil)
			// Every function body falls off the end returning the
			// uninitialized scalar, if no explicit return was hit.
			bodyB.emit(instructions.Instruction{Op: instructions.Return, Argc: 0})
			c.prog.Functions[it.Name] = &Function{Params: it.Params, Body: bodyB.code}
		}
	}

	c.prog.Begin = beginB.code
	c.prog.End = endB.code

	if len(c.errors) > 0 {
		return c.prog, fmt.Errorf("%d compile error(s); first: %s", len(c.errors), c.errors[0])
	}
	return c.prog, nil
}

func (c *Compiler) errorf(format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *Compiler) compileRule(pa *ast.PatternAction) {
	condB := &builder{}
	switch pa.Pattern.Kind {
	case ast.PatternExpr:
		c.compileExpr(pa.Pattern.Expr, condB)
	case ast.PatternRange:
		c.compileRangeCond(pa, condB)
	}
	actionB := &builder{}
	c.compileStmt(pa.Action, actionB, nil)
	c.prog.Rules = append(c.prog.Rules, Rule{
		Kind:    pa.Pattern.Kind,
		Cond:    condB.code,
		RangeID: pa.RangeID,
		Action:  actionB.code,
	})
}

// compileRangeCond lowers a line1,line2 range pattern into a condition
// stream that both decides whether to run this record and maintains
// the rule's hidden "currently active" flag (§4.3).
//
//	if not active:
//	    if not start-expr: push false; done
//	    active = true
//	if end-expr: active = false
//	push true
func (c *Compiler) compileRangeCond(pa *ast.PatternAction, b *builder) {
	flag := RangeFlagName(pa.RangeID)

	b.emit(instructions.Instruction{Op: instructions.LoadVar, Name: flag})
	activeJump := b.emit(instructions.Instruction{Op: instructions.JumpIfTrue})

	c.compileExpr(pa.Pattern.Expr, b)
	noStartJump := b.emit(instructions.Instruction{Op: instructions.JumpIfFalse})

	b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 1}})
	b.emit(instructions.Instruction{Op: instructions.StoreVar, Name: flag})
	checkEnd := b.emit(instructions.Instruction{Op: instructions.Jump})

	b.patch(noStartJump)
	b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 0}})
	doneJump := b.emit(instructions.Instruction{Op: instructions.Jump})

	b.patch(activeJump)
	b.patchTo(checkEnd, b.here())

	c.compileExpr(pa.Pattern.Expr2, b)
	notEndJump := b.emit(instructions.Instruction{Op: instructions.JumpIfFalse})
	b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 0}})
	b.emit(instructions.Instruction{Op: instructions.StoreVar, Name: flag})
	b.patch(notEndJump)

	b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 1}})
	b.patch(doneJump)
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (c *Compiler) compileStmt(s ast.Statement, b *builder, loop *loopCtx) {
	switch st := s.(type) {
	case nil:
		return
	case *ast.Block:
		for _, inner := range st.Statements {
			c.compileStmt(inner, b, loop)
		}
	case *ast.ExprStatement:
		c.compileExpr(st.X, b)
		b.emit(instructions.Instruction{Op: instructions.Pop})
	case *ast.Print:
		c.compilePrint(st.Args, nil, st.Redirect, b)
	case *ast.Printf:
		c.compilePrint(st.Args, st.Format, st.Redirect, b)
	case *ast.If:
		c.compileIf(st, b, loop)
	case *ast.While:
		c.compileWhile(st, b)
	case *ast.DoWhile:
		c.compileDoWhile(st, b)
	case *ast.For:
		c.compileFor(st, b)
	case *ast.ForIn:
		c.compileForIn(st, b)
	case *ast.Break:
		if loop == nil {
			c.errorf("break outside of a loop")
			return
		}
		loop.breaks = append(loop.breaks, b.emit(instructions.Instruction{Op: instructions.Jump}))
	case *ast.Continue:
		if loop == nil {
			c.errorf("continue outside of a loop")
			return
		}
		loop.continues = append(loop.continues, b.emit(instructions.Instruction{Op: instructions.Jump}))
	case *ast.Next:
		b.emit(instructions.Instruction{Op: instructions.Next})
	case *ast.NextFile:
		b.emit(instructions.Instruction{Op: instructions.NextFile})
	case *ast.Exit:
		if st.Status != nil {
			c.compileExpr(st.Status, b)
			b.emit(instructions.Instruction{Op: instructions.Exit, Argc: 1})
		} else {
			b.emit(instructions.Instruction{Op: instructions.Exit, Argc: 0})
		}
	case *ast.Return:
		if st.Value != nil {
			c.compileExpr(st.Value, b)
			b.emit(instructions.Instruction{Op: instructions.Return, Argc: 1})
		} else {
			b.emit(instructions.Instruction{Op: instructions.Return, Argc: 0})
		}
	case *ast.Delete:
		for _, k := range st.Keys {
			c.compileExpr(k, b)
		}
		b.emit(instructions.Instruction{Op: instructions.DeleteArr, Name: st.Array, Argc: len(st.Keys)})
	default:
		c.errorf("compiler: unhandled statement type %T", s)
	}
}

func (c *Compiler) compilePrint(args []ast.Expr, format ast.Expr, redir *ast.Redirect, b *builder) {
	if format != nil {
		c.compileExpr(format, b)
	} else if len(args) == 0 {
		args = []ast.Expr{&ast.FieldExpr{Index: &ast.NumberLit{Value: 0}}}
	}
	for _, a := range args {
		c.compileExpr(a, b)
	}
	mode := instructions.RedirectNone
	if redir != nil {
		switch redir.Mode {
		case ast.RedirectFile:
			mode = instructions.RedirectFile
		case ast.RedirectAppend:
			mode = instructions.RedirectAppend
		case ast.RedirectPipe:
			mode = instructions.RedirectPipe
		}
		c.compileExpr(redir.Dest, b)
	}
	op := instructions.Print
	if format != nil {
		op = instructions.Printf
	}
	b.emit(instructions.Instruction{Op: op, Argc: len(args), Redirect: mode})
}

func (c *Compiler) compileIf(st *ast.If, b *builder, loop *loopCtx) {
	c.compileExpr(st.Cond, b)
	elseJump := b.emit(instructions.Instruction{Op: instructions.JumpIfFalse})
	c.compileStmt(st.Then, b, loop)
	if st.Else == nil {
		b.patch(elseJump)
		return
	}
	endJump := b.emit(instructions.Instruction{Op: instructions.Jump})
	b.patch(elseJump)
	c.compileStmt(st.Else, b, loop)
	b.patch(endJump)
}

func (c *Compiler) compileWhile(st *ast.While, b *builder) {
	top := b.here()
	c.compileExpr(st.Cond, b)
	exitJump := b.emit(instructions.Instruction{Op: instructions.JumpIfFalse})
	lc := loopCtx{}
	c.compileStmt(st.Body, b, &lc)
	for _, idx := range lc.continues {
		b.patchTo(idx, top)
	}
	b.emit(instructions.Instruction{Op: instructions.Jump, Target: top})
	b.patch(exitJump)
	for _, idx := range lc.breaks {
		b.patchTo(idx, b.here())
	}
}

func (c *Compiler) compileDoWhile(st *ast.DoWhile, b *builder) {
	top := b.here()
	lc := loopCtx{}
	c.compileStmt(st.Body, b, &lc)
	contTarget := b.here()
	for _, idx := range lc.continues {
		b.patchTo(idx, contTarget)
	}
	c.compileExpr(st.Cond, b)
	b.emit(instructions.Instruction{Op: instructions.JumpIfTrue, Target: top})
	for _, idx := range lc.breaks {
		b.patchTo(idx, b.here())
	}
}

func (c *Compiler) compileFor(st *ast.For, b *builder) {
	if st.Init != nil {
		c.compileStmt(st.Init, b, nil)
	}
	top := b.here()
	var exitJump int
	hasCond := st.Cond != nil
	if hasCond {
		c.compileExpr(st.Cond, b)
		exitJump = b.emit(instructions.Instruction{Op: instructions.JumpIfFalse})
	}
	lc := loopCtx{}
	c.compileStmt(st.Body, b, &lc)
	stepTarget := b.here()
	for _, idx := range lc.continues {
		b.patchTo(idx, stepTarget)
	}
	if st.Step != nil {
		c.compileStmt(st.Step, b, nil)
	}
	b.emit(instructions.Instruction{Op: instructions.Jump, Target: top})
	if hasCond {
		b.patch(exitJump)
	}
	for _, idx := range lc.breaks {
		b.patchTo(idx, b.here())
	}
}

func (c *Compiler) compileForIn(st *ast.ForIn, b *builder) {
	b.emit(instructions.Instruction{Op: instructions.ForInInit, Name: st.Array})
	top := b.here()
	nextIdx := b.emit(instructions.Instruction{Op: instructions.ForInNext, Name: st.Var})
	lc := loopCtx{}
	c.compileStmt(st.Body, b, &lc)
	contTarget := b.here()
	for _, idx := range lc.continues {
		b.patchTo(idx, contTarget)
	}
	b.emit(instructions.Instruction{Op: instructions.Jump, Target: top})
	b.patchTo(nextIdx, b.here())
	for _, idx := range lc.breaks {
		b.patchTo(idx, b.here())
	}
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

func (c *Compiler) compileExpr(e ast.Expr, b *builder) {
	switch x := e.(type) {
	case *ast.NumberLit:
		b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: x.Value}})
	case *ast.FloatLit:
		b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandFloat, Flt: x.Value}})
	case *ast.StringLit:
		b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandString, Str: x.Value}})
	case *ast.RegexLit:
		// A standalone regex matches against $0.
		b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 0}})
		b.emit(instructions.Instruction{Op: instructions.LoadField})
		b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandRegex, Str: x.Pattern}})
		b.emit(instructions.Instruction{Op: instructions.Match})
	case *ast.Ident:
		b.emit(instructions.Instruction{Op: instructions.LoadVar, Name: x.Name})
	case *ast.IndexExpr:
		for _, k := range x.Keys {
			c.compileExpr(k, b)
		}
		b.emit(instructions.Instruction{Op: instructions.LoadArr, Name: x.Array, Argc: len(x.Keys)})
	case *ast.FieldExpr:
		c.compileExpr(x.Index, b)
		b.emit(instructions.Instruction{Op: instructions.LoadField})
	case *ast.UnaryExpr:
		c.compileUnary(x, b)
	case *ast.PostfixExpr:
		c.compilePostfix(x, b)
	case *ast.BinaryExpr:
		c.compileBinary(x, b)
	case *ast.Ternary:
		c.compileExpr(x.Cond, b)
		elseJump := b.emit(instructions.Instruction{Op: instructions.JumpIfFalse})
		c.compileExpr(x.Then, b)
		endJump := b.emit(instructions.Instruction{Op: instructions.Jump})
		b.patch(elseJump)
		c.compileExpr(x.Else, b)
		b.patch(endJump)
	case *ast.Assignment:
		c.compileAssignment(x, b)
	case *ast.Call:
		c.compileCall(x, b)
	case *ast.Getline:
		c.compileGetline(x, b)
	default:
		c.errorf("compiler: unhandled expression type %T", e)
	}
}

func (c *Compiler) compileUnary(x *ast.UnaryExpr, b *builder) {
	switch x.Op {
	case ast.UnaryNeg:
		c.compileExpr(x.X, b)
		b.emit(instructions.Instruction{Op: instructions.Neg})
	case ast.UnaryPos:
		c.compileExpr(x.X, b)
		b.emit(instructions.Instruction{Op: instructions.Pos})
	case ast.UnaryNot:
		c.compileExpr(x.X, b)
		b.emit(instructions.Instruction{Op: instructions.Not})
	case ast.UnaryBitNot:
		c.compileExpr(x.X, b)
		b.emit(instructions.Instruction{Op: instructions.BitNot})
	case ast.UnaryPreIncr, ast.UnaryPreDecr:
		c.compileIncrDecr(x.X, x.Op == ast.UnaryPreIncr, true, b)
	}
}

func (c *Compiler) compilePostfix(x *ast.PostfixExpr, b *builder) {
	c.compileIncrDecr(x.X, x.Op == ast.PostfixIncr, false, b)
}

// compileIncrDecr loads target, adds/subtracts one, stores the new
// value back, and leaves either the new value (prefix) or the old
// value (postfix) as the expression's result.
func (c *Compiler) compileIncrDecr(target ast.Expr, incr, prefix bool, b *builder) {
	if !isLvalueExpr(target) {
		c.errorf("++/-- requires an lvalue operand")
		return
	}
	c.compileLvalueLoad(target, b)
	if !prefix {
		b.emit(instructions.Instruction{Op: instructions.Dup})
	}
	b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 1}})
	if incr {
		b.emit(instructions.Instruction{Op: instructions.Add})
	} else {
		b.emit(instructions.Instruction{Op: instructions.Sub})
	}
	if prefix {
		b.emit(instructions.Instruction{Op: instructions.Dup})
	}
	c.compileLvalueStore(target, b)
}

func isLvalueExpr(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Ident, *ast.IndexExpr, *ast.FieldExpr:
		return true
	default:
		return false
	}
}

// compileLvalueLoad pushes target's current value.
func (c *Compiler) compileLvalueLoad(target ast.Expr, b *builder) {
	switch t := target.(type) {
	case *ast.Ident:
		b.emit(instructions.Instruction{Op: instructions.LoadVar, Name: t.Name})
	case *ast.IndexExpr:
		for _, k := range t.Keys {
			c.compileExpr(k, b)
		}
		b.emit(instructions.Instruction{Op: instructions.LoadArr, Name: t.Array, Argc: len(t.Keys)})
	case *ast.FieldExpr:
		c.compileExpr(t.Index, b)
		b.emit(instructions.Instruction{Op: instructions.LoadField})
	default:
		c.errorf("compiler: %T is not an lvalue", target)
	}
}

// compileLvalueStore stores the value already sitting on top of the
// stack into target, pushing any subscript/index operands afterward
// so they land above the value, matching StoreArr/StoreField's order.
func (c *Compiler) compileLvalueStore(target ast.Expr, b *builder) {
	switch t := target.(type) {
	case *ast.Ident:
		b.emit(instructions.Instruction{Op: instructions.StoreVar, Name: t.Name})
	case *ast.IndexExpr:
		for _, k := range t.Keys {
			c.compileExpr(k, b)
		}
		b.emit(instructions.Instruction{Op: instructions.StoreArr, Name: t.Array, Argc: len(t.Keys)})
	case *ast.FieldExpr:
		c.compileExpr(t.Index, b)
		b.emit(instructions.Instruction{Op: instructions.StoreField})
	default:
		c.errorf("compiler: %T is not an lvalue", target)
	}
}

func (c *Compiler) compileAssignment(x *ast.Assignment, b *builder) {
	if !isLvalueExpr(x.Target) {
		c.errorf("invalid assignment target %T", x.Target)
		return
	}
	if x.Op == ast.AssignSet {
		c.compileExpr(x.Value, b)
		b.emit(instructions.Instruction{Op: instructions.Dup})
		c.compileLvalueStore(x.Target, b)
		return
	}
	c.compileLvalueLoad(x.Target, b)
	c.compileExpr(x.Value, b)
	switch x.Op {
	case ast.AssignAdd:
		b.emit(instructions.Instruction{Op: instructions.Add})
	case ast.AssignSub:
		b.emit(instructions.Instruction{Op: instructions.Sub})
	case ast.AssignMul:
		b.emit(instructions.Instruction{Op: instructions.Mul})
	case ast.AssignDiv:
		b.emit(instructions.Instruction{Op: instructions.Div})
	case ast.AssignRem:
		b.emit(instructions.Instruction{Op: instructions.Rem})
	case ast.AssignExp:
		b.emit(instructions.Instruction{Op: instructions.Exp})
	}
	b.emit(instructions.Instruction{Op: instructions.Dup})
	c.compileLvalueStore(x.Target, b)
}

func (c *Compiler) compileBinary(x *ast.BinaryExpr, b *builder) {
	switch x.Op {
	case ast.BinAnd:
		c.compileExpr(x.Left, b)
		falseJump := b.emit(instructions.Instruction{Op: instructions.JumpIfFalse})
		c.compileExpr(x.Right, b)
		b.emit(instructions.Instruction{Op: instructions.Not})
		b.emit(instructions.Instruction{Op: instructions.Not})
		endJump := b.emit(instructions.Instruction{Op: instructions.Jump})
		b.patch(falseJump)
		b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 0}})
		b.patch(endJump)
		return
	case ast.BinOr:
		c.compileExpr(x.Left, b)
		trueJump := b.emit(instructions.Instruction{Op: instructions.JumpIfTrue})
		c.compileExpr(x.Right, b)
		b.emit(instructions.Instruction{Op: instructions.Not})
		b.emit(instructions.Instruction{Op: instructions.Not})
		endJump := b.emit(instructions.Instruction{Op: instructions.Jump})
		b.patch(trueJump)
		b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 1}})
		b.patch(endJump)
		return
	case ast.BinMatch, ast.BinNotMatch:
		c.compileExpr(x.Left, b)
		if re, ok := x.Right.(*ast.RegexLit); ok {
			b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandRegex, Str: re.Pattern}})
		} else {
			c.compileExpr(x.Right, b)
		}
		if x.Op == ast.BinMatch {
			b.emit(instructions.Instruction{Op: instructions.Match})
		} else {
			b.emit(instructions.Instruction{Op: instructions.NotMatch})
		}
		return
	}

	c.compileExpr(x.Left, b)
	c.compileExpr(x.Right, b)
	switch x.Op {
	case ast.BinAdd:
		b.emit(instructions.Instruction{Op: instructions.Add})
	case ast.BinSub:
		b.emit(instructions.Instruction{Op: instructions.Sub})
	case ast.BinMul:
		b.emit(instructions.Instruction{Op: instructions.Mul})
	case ast.BinDiv:
		b.emit(instructions.Instruction{Op: instructions.Div})
	case ast.BinRem:
		b.emit(instructions.Instruction{Op: instructions.Rem})
	case ast.BinExp:
		b.emit(instructions.Instruction{Op: instructions.Exp})
	case ast.BinConcat:
		b.emit(instructions.Instruction{Op: instructions.Concat})
	case ast.BinLt:
		b.emit(instructions.Instruction{Op: instructions.Lt})
	case ast.BinLe:
		b.emit(instructions.Instruction{Op: instructions.Le})
	case ast.BinGt:
		b.emit(instructions.Instruction{Op: instructions.Gt})
	case ast.BinGe:
		b.emit(instructions.Instruction{Op: instructions.Ge})
	case ast.BinEq:
		b.emit(instructions.Instruction{Op: instructions.Eq})
	case ast.BinNe:
		b.emit(instructions.Instruction{Op: instructions.Ne})
	case ast.BinBitAnd:
		b.emit(instructions.Instruction{Op: instructions.BitAnd})
	case ast.BinBitOr:
		b.emit(instructions.Instruction{Op: instructions.BitOr})
	case ast.BinBitXor:
		b.emit(instructions.Instruction{Op: instructions.BitXor})
	case ast.BinShl:
		b.emit(instructions.Instruction{Op: instructions.Shl})
	case ast.BinShr:
		b.emit(instructions.Instruction{Op: instructions.Shr})
	default:
		c.errorf("compiler: unhandled binary operator %v", x.Op)
	}
}

// builtins is the set of function names resolved at compile time
// rather than dispatched as user calls. Arity is checked loosely: the
// parser does not distinguish optional arguments, so variable-arity
// builtins (substr, split, sub, gsub, srand) just consume however many
// argument expressions were actually written.
var builtins = map[string]bool{
	"length": true, "substr": true, "index": true, "split": true,
	"sub": true, "gsub": true, "match": true, "sprintf": true,
	"sin": true, "cos": true, "atan2": true, "exp": true, "log": true,
	"sqrt": true, "int": true, "rand": true, "srand": true,
	"tolower": true, "toupper": true, "system": true, "close": true,
	"__in__": true,
}

func (c *Compiler) compileCall(x *ast.Call, b *builder) {
	if !builtins[x.Name] {
		c.compileUserCall(x, b)
		return
	}
	switch x.Name {
	case "__in__":
		key, arr := x.Args[0], x.Args[1].(*ast.Ident)
		c.compileExpr(key, b)
		b.emit(instructions.Instruction{Op: instructions.InArr, Name: arr.Name, Argc: 1})
	case "length":
		if len(x.Args) == 0 {
			b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandNumber, Num: 0}})
			b.emit(instructions.Instruction{Op: instructions.LoadField})
			b.emit(instructions.Instruction{Op: instructions.Length, Argc: 0})
		} else {
			c.compileExpr(x.Args[0], b)
			b.emit(instructions.Instruction{Op: instructions.Length, Argc: 1})
		}
	case "substr":
		for _, a := range x.Args {
			c.compileExpr(a, b)
		}
		b.emit(instructions.Instruction{Op: instructions.Substr, Argc: len(x.Args)})
	case "index":
		c.compileExpr(x.Args[0], b)
		c.compileExpr(x.Args[1], b)
		b.emit(instructions.Instruction{Op: instructions.Index})
	case "match":
		c.compileExpr(x.Args[0], b)
		if re, ok := x.Args[1].(*ast.RegexLit); ok {
			b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandRegex, Str: re.Pattern}})
		} else {
			c.compileExpr(x.Args[1], b)
		}
		b.emit(instructions.Instruction{Op: instructions.MatchFn})
	case "sprintf":
		for _, a := range x.Args {
			c.compileExpr(a, b)
		}
		b.emit(instructions.Instruction{Op: instructions.Sprintf, Argc: len(x.Args)})
	case "sub", "gsub":
		pattern, repl := x.Args[0], x.Args[1]
		var target ast.Expr
		if len(x.Args) >= 3 {
			target = x.Args[2]
		} else {
			target = &ast.FieldExpr{Index: &ast.NumberLit{Value: 0}}
		}
		if re, ok := pattern.(*ast.RegexLit); ok {
			b.emit(instructions.Instruction{Op: instructions.PushValue, Value: instructions.Operand{Kind: instructions.OperandRegex, Str: re.Pattern}})
		} else {
			c.compileExpr(pattern, b)
		}
		c.compileExpr(repl, b)
		c.compileLvalueLoad(target, b)
		if x.Name == "sub" {
			b.emit(instructions.Instruction{Op: instructions.StrSub})
		} else {
			b.emit(instructions.Instruction{Op: instructions.StrGsub})
		}
		// StrSub/StrGsub leave [newTargetValue, count] (count on top); swap
		// so compileLvalueStore's value-then-subscripts convention finds
		// the new target value on top, leaving count as the call's result.
		b.emit(instructions.Instruction{Op: instructions.Swap})
		c.compileLvalueStore(target, b)
	case "split":
		arrIdent, ok := x.Args[1].(*ast.Ident)
		if !ok {
			c.errorf("split's second argument must be an array name")
			return
		}
		c.compileExpr(x.Args[0], b)
		if len(x.Args) >= 3 {
			c.compileExpr(x.Args[2], b)
		} else {
			b.emit(instructions.Instruction{Op: instructions.LoadVar, Name: "FS"})
		}
		b.emit(instructions.Instruction{Op: instructions.Split, Name: arrIdent.Name})
	case "sin":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.Sin})
	case "cos":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.Cos})
	case "atan2":
		c.compileExpr(x.Args[0], b)
		c.compileExpr(x.Args[1], b)
		b.emit(instructions.Instruction{Op: instructions.Atan2})
	case "exp":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.MathExp})
	case "log":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.Log})
	case "sqrt":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.Sqrt})
	case "int":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.ToIntFn})
	case "rand":
		b.emit(instructions.Instruction{Op: instructions.Rand})
	case "srand":
		if len(x.Args) == 1 {
			c.compileExpr(x.Args[0], b)
			b.emit(instructions.Instruction{Op: instructions.Srand, Argc: 1})
		} else {
			b.emit(instructions.Instruction{Op: instructions.Srand, Argc: 0})
		}
	case "tolower":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.ToLower})
	case "toupper":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.ToUpper})
	case "system":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.System})
	case "close":
		c.compileExpr(x.Args[0], b)
		b.emit(instructions.Instruction{Op: instructions.Close})
	}
}

// compileUserCall pushes arguments left to right and emits Call; the
// vm looks the function body up by name at call time, which also
// naturally supports functions called before their definition is
// reached lexically.
func (c *Compiler) compileUserCall(x *ast.Call, b *builder) {
	for _, a := range x.Args {
		c.compileExpr(a, b)
	}
	b.emit(instructions.Instruction{Op: instructions.Call, Name: x.Name, Argc: len(x.Args)})
}

// compileGetline compiles a getline expression. Its source (file/pipe
// text) is pushed first when the mode needs one, then, for a targeted
// form, the target's subscript values or field index; the Getline
// opcode pops them back off (before the source) and stores the record
// into whichever lvalue kind they describe, but only once it knows the
// read actually succeeded.
func (c *Compiler) compileGetline(g *ast.Getline, b *builder) {
	if g.Source != nil {
		c.compileExpr(g.Source, b)
	}
	var mode instructions.GetlineMode
	switch g.Mode {
	case ast.GetlineSimple:
		mode = instructions.GetlineSimple
	case ast.GetlineVar:
		mode = instructions.GetlineVar
	case ast.GetlineFile:
		mode = instructions.GetlineFile
	case ast.GetlineVarFile:
		mode = instructions.GetlineVarFile
	case ast.GetlinePipe:
		mode = instructions.GetlinePipe
	case ast.GetlinePipeVar:
		mode = instructions.GetlinePipeVar
	}
	ins := instructions.Instruction{Op: instructions.Getline, GetlineMode: mode}
	if g.Target != nil {
		switch t := g.Target.(type) {
		case *ast.Ident:
			ins.GetlineTarget = instructions.GetlineTargetVar
			ins.Name = t.Name
		case *ast.IndexExpr:
			for _, k := range t.Keys {
				c.compileExpr(k, b)
			}
			ins.GetlineTarget = instructions.GetlineTargetArr
			ins.Name = t.Array
			ins.Argc = len(t.Keys)
		case *ast.FieldExpr:
			c.compileExpr(t.Index, b)
			ins.GetlineTarget = instructions.GetlineTargetField
		default:
			c.errorf("getline target must be a variable, array element, or field")
			return
		}
	}
	b.emit(ins)
}
