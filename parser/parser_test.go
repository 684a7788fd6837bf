package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmh/patternrun/ast"
	"github.com/calmh/patternrun/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	prog, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())
	return prog
}

func TestBeginEndBlocks(t *testing.T) {
	prog := parseProgram(t, `BEGIN { x = 1 } END { print x }`)
	require.Len(t, prog.Items, 2)

	begin, ok := prog.Items[0].(*ast.PatternAction)
	require.True(t, ok)
	assert.Equal(t, ast.PatternBegin, begin.Pattern.Kind)
	require.Len(t, begin.Action.Statements, 1)

	end, ok := prog.Items[1].(*ast.PatternAction)
	require.True(t, ok)
	assert.Equal(t, ast.PatternEnd, end.Pattern.Kind)
}

func TestDefaultActionIsPrintDollarZero(t *testing.T) {
	prog := parseProgram(t, `/foo/`)
	require.Len(t, prog.Items, 1)
	pa := prog.Items[0].(*ast.PatternAction)
	assert.Equal(t, ast.PatternExpr, pa.Pattern.Kind)
	require.Len(t, pa.Action.Statements, 1)
	pr, ok := pa.Action.Statements[0].(*ast.Print)
	require.True(t, ok)
	require.Len(t, pr.Args, 1)
	fe, ok := pr.Args[0].(*ast.FieldExpr)
	require.True(t, ok)
	nl, ok := fe.Index.(*ast.NumberLit)
	require.True(t, ok)
	assert.EqualValues(t, 0, nl.Value)
}

func TestRangePattern(t *testing.T) {
	prog := parseProgram(t, `/start/,/stop/ { print }`)
	pa := prog.Items[0].(*ast.PatternAction)
	assert.Equal(t, ast.PatternRange, pa.Pattern.Kind)
	assert.Equal(t, 1, pa.RangeID)
}

func TestFunctionDefinition(t *testing.T) {
	prog := parseProgram(t, "function add(a, b) {\n  return a + b\n}")
	fn, ok := prog.Items[0].(*ast.Function)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	require.Len(t, fn.Body.Statements, 1)
	ret, ok := fn.Body.Statements[0].(*ast.Return)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, bin.Op)
}

func TestArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 ** 2 should parse as 1 + (2 * (3 ** 2))
	prog := parseProgram(t, `BEGIN { x = 1 + 2 * 3 ** 2 }`)
	assign := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	add, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, add.Op)
	_, ok = add.Left.(*ast.NumberLit)
	require.True(t, ok)
	mul, ok := add.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinMul, mul.Op)
	exp, ok := mul.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinExp, exp.Op)
}

func TestExponentRightAssociative(t *testing.T) {
	prog := parseProgram(t, `BEGIN { x = 2 ** 3 ** 2 }`)
	assign := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	outer := assign.Value.(*ast.BinaryExpr)
	assert.Equal(t, ast.BinExp, outer.Op)
	_, ok := outer.Left.(*ast.NumberLit)
	require.True(t, ok)
	inner, ok := outer.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinExp, inner.Op)
}

func TestConcatenation(t *testing.T) {
	prog := parseProgram(t, `BEGIN { x = "a" "b" }`)
	assign := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinConcat, bin.Op)
}

func TestConcatDoesNotSwallowMatchOperator(t *testing.T) {
	// "a" "b" ~ /x/ must parse as ("a" "b") ~ /x/, not stop concatenation
	// prematurely nor eat the '~' as another concat operand.
	prog := parseProgram(t, `BEGIN { x = "a" "b" ~ /x/ }`)
	assign := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	match, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinMatch, match.Op)
	concat, ok := match.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinConcat, concat.Op)
}

func TestFieldAndArrayIndex(t *testing.T) {
	prog := parseProgram(t, `BEGIN { print $1, a[1,2] }`)
	pr := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.Print)
	require.Len(t, pr.Args, 2)
	_, ok := pr.Args[0].(*ast.FieldExpr)
	require.True(t, ok)
	idx, ok := pr.Args[1].(*ast.IndexExpr)
	require.True(t, ok)
	assert.Equal(t, "a", idx.Array)
	assert.Len(t, idx.Keys, 2)
}

func TestPrintRedirection(t *testing.T) {
	prog := parseProgram(t, `BEGIN { print "hi" > "out.txt" }`)
	pr := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.Print)
	require.NotNil(t, pr.Redirect)
	assert.Equal(t, ast.RedirectFile, pr.Redirect.Mode)
}

func TestPrintAppendRedirection(t *testing.T) {
	prog := parseProgram(t, `BEGIN { print "hi" >> "out.txt" }`)
	pr := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.Print)
	require.NotNil(t, pr.Redirect)
	assert.Equal(t, ast.RedirectAppend, pr.Redirect.Mode)
}

func TestPrintPipeRedirection(t *testing.T) {
	prog := parseProgram(t, `BEGIN { print "hi" | "sort" }`)
	pr := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.Print)
	require.NotNil(t, pr.Redirect)
	assert.Equal(t, ast.RedirectPipe, pr.Redirect.Mode)
}

func TestComparisonInsideParensStillWorksNextToPrint(t *testing.T) {
	prog := parseProgram(t, `BEGIN { if (1 > 2) print "x" }`)
	ifst := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.If)
	bin, ok := ifst.Cond.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinGt, bin.Op)
}

func TestGetlineSimple(t *testing.T) {
	prog := parseProgram(t, `BEGIN { getline }`)
	g := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Getline)
	assert.Equal(t, ast.GetlineSimple, g.Mode)
}

func TestGetlineVarFromFile(t *testing.T) {
	prog := parseProgram(t, `BEGIN { getline line < "f.txt" }`)
	g := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Getline)
	assert.Equal(t, ast.GetlineVarFile, g.Mode)
	require.NotNil(t, g.Target)
	require.NotNil(t, g.Source)
}

func TestGetlineFromPipe(t *testing.T) {
	prog := parseProgram(t, `BEGIN { "ls" | getline line }`)
	g := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Getline)
	assert.Equal(t, ast.GetlinePipeVar, g.Mode)
}

func TestForInStatement(t *testing.T) {
	prog := parseProgram(t, `BEGIN { for (k in arr) print k }`)
	fi, ok := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ForIn)
	require.True(t, ok)
	assert.Equal(t, "k", fi.Var)
	assert.Equal(t, "arr", fi.Array)
}

func TestCStyleForStatement(t *testing.T) {
	prog := parseProgram(t, `BEGIN { for (i = 0; i < 10; i++) print i }`)
	fo, ok := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.For)
	require.True(t, ok)
	require.NotNil(t, fo.Init)
	require.NotNil(t, fo.Cond)
	require.NotNil(t, fo.Step)
}

func TestDeleteWholeArrayAndElement(t *testing.T) {
	prog := parseProgram(t, `BEGIN { delete arr; delete arr[1] }`)
	d1 := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.Delete)
	assert.Empty(t, d1.Keys)
	d2 := prog.Items[0].(*ast.PatternAction).Action.Statements[1].(*ast.Delete)
	require.Len(t, d2.Keys, 1)
}

func TestTernaryAndAssignmentAreRightAssociative(t *testing.T) {
	prog := parseProgram(t, `BEGIN { x = y = 1 ? 2 : 3 }`)
	outer := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	assert.Equal(t, "x", outer.Target.(*ast.Ident).Name)
	inner, ok := outer.Value.(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, "y", inner.Target.(*ast.Ident).Name)
	_, ok = inner.Value.(*ast.Ternary)
	require.True(t, ok)
}

func TestCompoundAssignmentOperators(t *testing.T) {
	prog := parseProgram(t, `BEGIN { x += 1 }`)
	assign := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	assert.Equal(t, ast.AssignAdd, assign.Op)
}

func TestInOperator(t *testing.T) {
	prog := parseProgram(t, `BEGIN { if ("k" in arr) print "yes" }`)
	ifst := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.If)
	call, ok := ifst.Cond.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "__in__", call.Name)
}

func TestUnaryAndPostfix(t *testing.T) {
	prog := parseProgram(t, `BEGIN { x = -y++ }`)
	assign := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	neg, ok := assign.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.UnaryNeg, neg.Op)
	post, ok := neg.X.(*ast.PostfixExpr)
	require.True(t, ok)
	assert.Equal(t, ast.PostfixIncr, post.Op)
}

func TestFunctionCallExpression(t *testing.T) {
	prog := parseProgram(t, `BEGIN { x = length(s) }`)
	assign := prog.Items[0].(*ast.PatternAction).Action.Statements[0].(*ast.ExprStatement).X.(*ast.Assignment)
	call, ok := assign.Value.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "length", call.Name)
	require.Len(t, call.Args, 1)
}
