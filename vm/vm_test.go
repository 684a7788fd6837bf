package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmh/patternrun/compiler"
	"github.com/calmh/patternrun/lexer"
	"github.com/calmh/patternrun/parser"
	"github.com/calmh/patternrun/runio"
	"github.com/calmh/patternrun/value"
	"github.com/calmh/patternrun/vm"
)

// run compiles source and executes it against stdin, returning stdout
// and the exit status, the same way a real invocation of the
// interpreter would behave.
func run(t *testing.T, source, stdin string) (string, int) {
	t.Helper()
	p := parser.New(lexer.New(source))
	prog, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())
	compiled, err := compiler.Compile(prog)
	require.NoError(t, err)

	var out bytes.Buffer
	globals := map[string]value.Value{
		"FS":       value.NewString(" "),
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
		"ENVIRON":  value.NewArray(),
	}
	iomgr := runio.New(nil, strings.NewReader(stdin), &out, &out)
	machine := vm.New(compiled.Functions, iomgr, globals)
	status, runErr := machine.Run(compiled)
	require.NoError(t, runErr)
	return out.String(), status
}

func TestBeginPrint(t *testing.T) {
	out, status := run(t, `BEGIN { print "hello" }`, "")
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, 0, status)
}

func TestFieldSplittingAndPrint(t *testing.T) {
	out, _ := run(t, `{ print $2, $1 }`, "one two\nthree four\n")
	assert.Equal(t, "two one\nfour three\n", out)
}

func TestPatternMatchesRegex(t *testing.T) {
	out, _ := run(t, `/two/ { print }`, "one\ntwo\nthree\n")
	assert.Equal(t, "two\n", out)
}

func TestFieldAssignmentRebuildsRecord(t *testing.T) {
	out, _ := run(t, `{ $2 = "X"; print }`, "a b c\n")
	assert.Equal(t, "a X c\n", out)
}

func TestRangePatternSpansLines(t *testing.T) {
	out, _ := run(t, `/start/,/stop/`, "x\nstart\na\nb\nstop\ny\n")
	assert.Equal(t, "start\na\nb\nstop\n", out)
}

func TestUserFunctionRecursion(t *testing.T) {
	out, _ := run(t, `
function fact(n) {
	if (n <= 1) return 1
	return n * fact(n - 1)
}
BEGIN { print fact(5) }`, "")
	assert.Equal(t, "120\n", out)
}

func TestArrayByReferenceScalarByValue(t *testing.T) {
	out, _ := run(t, `
function addone(arr, scalar) {
	arr["k"] = arr["k"] + 1
	scalar = scalar + 1
}
BEGIN {
	a["k"] = 1
	s = 1
	addone(a, s)
	print a["k"], s
}`, "")
	assert.Equal(t, "2 1\n", out)
}

func TestForInVisitsAllKeys(t *testing.T) {
	out, _ := run(t, `
BEGIN {
	a["x"] = 1
	a["y"] = 2
	n = 0
	for (k in a) n++
	print n
}`, "")
	assert.Equal(t, "2\n", out)
}

func TestNestedForInOverSameArrayName(t *testing.T) {
	out, _ := run(t, `
BEGIN {
	a["x"] = 1
	a["y"] = 2
	count = 0
	for (k in a) {
		for (j in a) {
			count++
		}
	}
	print count
}`, "")
	assert.Equal(t, "4\n", out)
}

func TestNextSkipsRemainingRules(t *testing.T) {
	out, _ := run(t, `
/skip/ { next }
{ print }`, "keep\nskip\nkeep2\n")
	assert.Equal(t, "keep\nkeep2\n", out)
}

func TestExitRunsEndBlock(t *testing.T) {
	out, status := run(t, `
{ if ($1 == "stop") exit 3 }
END { print "done" }`, "go\nstop\ngo\n")
	assert.Equal(t, "done\n", out)
	assert.Equal(t, 3, status)
}

func TestSubReturnsCountAndMutatesTarget(t *testing.T) {
	out, _ := run(t, `BEGIN { s = "foo bar foo"; n = sub(/foo/, "baz", s); print n, s }`, "")
	assert.Equal(t, "1 baz bar foo\n", out)
}

func TestGsubReturnsCountAndMutatesTarget(t *testing.T) {
	out, _ := run(t, `BEGIN { s = "foo bar foo"; n = gsub(/foo/, "baz", s); print n, s }`, "")
	assert.Equal(t, "2 baz bar baz\n", out)
}

func TestMatchSetsRstartRlength(t *testing.T) {
	out, _ := run(t, `BEGIN { n = match("hello world", /wor/); print n, RSTART, RLENGTH }`, "")
	assert.Equal(t, "7 7 3\n", out)
}

func TestGetlineFromStdin(t *testing.T) {
	out, _ := run(t, `BEGIN { getline; print $0, NR }`, "first\nsecond\n")
	assert.Equal(t, "first 1\n", out)
}

func TestGetlineIntoArrayElement(t *testing.T) {
	out, _ := run(t, `BEGIN { getline a[1]; print a[1] }`, "first\nsecond\n")
	assert.Equal(t, "first\n", out)
}

func TestGetlineIntoField(t *testing.T) {
	out, _ := run(t, `BEGIN { getline $2; print }`, "first\nsecond\n")
	assert.Equal(t, " first\n", out)
}

func TestSplitBuiltinAndArrayAccess(t *testing.T) {
	out, _ := run(t, `BEGIN { n = split("a:b:c", arr, ":"); print n, arr[1], arr[3] }`, "")
	assert.Equal(t, "3 a c\n", out)
}

func TestPrintfFormatting(t *testing.T) {
	out, _ := run(t, `BEGIN { printf "%d-%s\n", 3, "x" }`, "")
	assert.Equal(t, "3-x\n", out)
}

func TestLogicalOrYieldsBooleanNotOperand(t *testing.T) {
	out, _ := run(t, `BEGIN { print (5 || 0) }`, "")
	assert.Equal(t, "1\n", out)
}

func TestLogicalOrShortCircuitsOnTruthyLeft(t *testing.T) {
	out, _ := run(t, `BEGIN { print (1 || bogus()) }`, "")
	assert.Equal(t, "1\n", out)
}

func TestLogicalOrFalseWhenBothFalse(t *testing.T) {
	out, _ := run(t, `BEGIN { print (0 || "") }`, "")
	assert.Equal(t, "0\n", out)
}

func TestDeleteArrayElement(t *testing.T) {
	out, _ := run(t, `BEGIN { a[1] = "x"; delete a[1]; print (1 in a) }`, "")
	assert.Equal(t, "0\n", out)
}

func TestIncrementDecrementPrePost(t *testing.T) {
	out, _ := run(t, `BEGIN { i = 5; print i++, i, ++i, i }`, "")
	assert.Equal(t, "5 6 7 7\n", out)
}

func TestWhileAndBreakContinue(t *testing.T) {
	out, _ := run(t, `
BEGIN {
	i = 0
	sum = 0
	while (i < 10) {
		i++
		if (i == 5) continue
		if (i == 8) break
		sum += i
	}
	print sum
}`, "")
	assert.Equal(t, "23\n", out)
}
