package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToStringFormatsNumbersAndFloats(t *testing.T) {
	assert.Equal(t, "42", NewNumber(42).ToString())
	assert.Equal(t, "3.5", NewFloat(3.5).ToString())
	assert.Equal(t, "3", NewFloat(3.0).ToString())
}

func TestTruthiness(t *testing.T) {
	assert.False(t, NewNumber(0).Truthy())
	assert.True(t, NewNumber(1).Truthy())
	assert.False(t, NewString("").Truthy())
	assert.True(t, NewString("0").Truthy()) // strings are truthy unless empty, unlike AWK's $0 special-case
	assert.False(t, NewBool(false).Truthy())
}

func TestArithmeticPromotesToFloatWhenEitherOperandIsFloat(t *testing.T) {
	sum, err := Add(NewNumber(1), NewFloat(2.5))
	require.NoError(t, err)
	assert.Equal(t, Float, sum.Kind)
	assert.Equal(t, 3.5, sum.ToFloat())

	sum2, err := Add(NewNumber(1), NewNumber(2))
	require.NoError(t, err)
	assert.Equal(t, Number, sum2.Kind)
}

func TestDivisionByZero(t *testing.T) {
	_, err := Div(NewNumber(1), NewNumber(0))
	assert.Error(t, err)

	f, err := Div(NewFloat(1), NewFloat(0))
	require.NoError(t, err)
	assert.True(t, math.IsInf(f.ToFloat(), 1))
}

func TestComparisonNumericVsString(t *testing.T) {
	// both operands look numeric: compared numerically.
	assert.True(t, Lt(NewString("9"), NewString("10")).Truthy())
	// non-numeric string forces lexical comparison: "9" sorts after "10x".
	assert.True(t, Gt(NewString("9"), NewString("10x")).Truthy())
}

func TestArraySetGetDelete(t *testing.T) {
	a := NewArray()
	a.Set("1", NewString("one"))
	a.Set("2", NewString("two"))
	assert.True(t, a.Has("1"))
	assert.Equal(t, "one", a.Get("1").ToString())
	assert.Equal(t, []string{"1", "2"}, a.Keys())
	a.Delete("1")
	assert.False(t, a.Has("1"))
	assert.Equal(t, 1, a.Len())
}

func TestMatchAgainstArrayElement(t *testing.T) {
	a := NewArray()
	a.Set("1", NewString("hello"))
	a.Set("2", NewString("world"))
	m, err := Match(a, NewRegex("^wor"))
	require.NoError(t, err)
	assert.True(t, m.Truthy())

	m2, err := Match(a, NewRegex("^zzz"))
	require.NoError(t, err)
	assert.False(t, m2.Truthy())
}

func TestReplaceFirstAndReplaceAll(t *testing.T) {
	s := "foo bar foo"
	n, err := ReplaceFirst(NewRegex("foo"), NewString("baz"), &s)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "baz bar foo", s)

	s2 := "foo bar foo"
	n2, err := ReplaceAll(NewRegex("foo"), NewString("baz"), &s2)
	require.NoError(t, err)
	assert.Equal(t, 2, n2)
	assert.Equal(t, "baz bar baz", s2)
}

func TestReplaceExpandsAmpersand(t *testing.T) {
	s := "hello"
	_, err := ReplaceFirst(NewRegex("ell"), NewString("[&]"), &s)
	require.NoError(t, err)
	assert.Equal(t, "h[ell]o", s)
}

func TestSplitOnWhitespace(t *testing.T) {
	arr := NewArray()
	n, err := Split("  a  b c ", arr, " ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "a", arr.Get("1").ToString())
	assert.Equal(t, "b", arr.Get("2").ToString())
	assert.Equal(t, "c", arr.Get("3").ToString())
}

func TestSplitOnRegex(t *testing.T) {
	arr := NewArray()
	n, err := Split("a1b22c", arr, "[0-9]+")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "a", arr.Get("1").ToString())
	assert.Equal(t, "b", arr.Get("2").ToString())
	assert.Equal(t, "c", arr.Get("3").ToString())
}

func TestSubstr(t *testing.T) {
	assert.Equal(t, "ell", Substr("hello", 2, true, 3))
	assert.Equal(t, "llo", Substr("hello", 3, false, 0))
	assert.Equal(t, "", Substr("hello", 10, false, 0))
	assert.Equal(t, "he", Substr("hello", -1, true, 4))
}

func TestIndexOf(t *testing.T) {
	assert.Equal(t, 3, IndexOf("hello", "ll"))
	assert.Equal(t, 0, IndexOf("hello", "zz"))
}

func TestSprintfConversions(t *testing.T) {
	assert.Equal(t, "42", Sprintf("%d", []Value{NewNumber(42)}))
	assert.Equal(t, "2a", Sprintf("%x", []Value{NewNumber(42)}))
	assert.Equal(t, "  42", Sprintf("%4d", []Value{NewNumber(42)}))
	assert.Equal(t, "hi there", Sprintf("%s there", []Value{NewString("hi")}))
	assert.Equal(t, "3.14", Sprintf("%.2f", []Value{NewFloat(3.14159)}))
}

func TestRegexCompileIsMemoized(t *testing.T) {
	re1, err := Compile("a+b")
	require.NoError(t, err)
	re2, err := Compile("a+b")
	require.NoError(t, err)
	assert.Same(t, re1, re2)
}
