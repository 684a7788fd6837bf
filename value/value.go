// Package value implements the dynamically-typed value model shared by
// the compiler and the virtual machine: a tagged union of scalars,
// associative arrays, regex sources, and the handful of compile-time-only
// operands (identifiers, array-index pairs, code addresses) that travel
// through the operand stack alongside real runtime data.
//
// There is no reflection-based dispatch here: every operation below
// switches explicitly on the Kind tag, exactly as the reference source
// this model is grounded on (original_source/value.rs) switches on its
// Value enum's variants.
package value

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant of Value is populated.
type Kind int

// Value variants, matching the value model in §3 of the specification.
const (
	Number Kind = iota
	Float
	Bool
	String
	Regex
	Array
	Identifier
	ArrayIndex
	CodeAddr
	Command
	ExecResult
)

// Value is a tagged union: exactly the fields relevant to Kind are
// meaningful, the rest are zero.
type Value struct {
	Kind Kind

	num int64
	flt float64
	b   bool
	str string

	arr map[string]*Value

	// Identifier / ArrayIndex
	name string
	key  string

	addr int

	// Command
	prog string
	args []string

	// ExecResult
	status int
}

// Constructors.

// NewNumber builds an integer Value.
func NewNumber(n int64) Value { return Value{Kind: Number, num: n} }

// NewFloat builds a floating-point Value.
func NewFloat(f float64) Value { return Value{Kind: Float, flt: f} }

// NewBool builds a truth Value.
func NewBool(b bool) Value { return Value{Kind: Bool, b: b} }

// NewString builds a text Value.
func NewString(s string) Value { return Value{Kind: String, str: s} }

// NewRegex builds a Value holding unevaluated regex source.
func NewRegex(pattern string) Value { return Value{Kind: Regex, str: pattern} }

// NewArray builds an empty associative array.
func NewArray() Value { return Value{Kind: Array, arr: make(map[string]*Value)} }

// NewIdentifier builds a compile-time symbolic reference operand.
func NewIdentifier(name string) Value { return Value{Kind: Identifier, name: name} }

// NewArrayIndex builds a compile-time operand naming array[key].
func NewArrayIndex(name, key string) Value { return Value{Kind: ArrayIndex, name: name, key: key} }

// NewCodeAddr builds a jump-target operand.
func NewCodeAddr(i int) Value { return Value{Kind: CodeAddr, addr: i} }

// NewCommand builds a subprocess descriptor awaiting execution.
func NewCommand(prog string, args []string) Value {
	return Value{Kind: Command, prog: prog, args: args}
}

// NewExecResult builds a captured subprocess result.
func NewExecResult(output string, status int) Value {
	return Value{Kind: ExecResult, str: output, status: status}
}

// Accessors.

// Name returns the Identifier/ArrayIndex name.
func (v Value) Name() string { return v.name }

// Key returns the ArrayIndex key.
func (v Value) Key() string { return v.key }

// Addr returns the CodeAddr jump target.
func (v Value) Addr() int { return v.addr }

// Command returns the program and arguments of a Command value.
func (v Value) Command() (string, []string) { return v.prog, v.args }

// ExecStatus returns the captured exit status of an ExecResult value.
func (v Value) ExecStatus() int { return v.status }

// RawArray exposes the underlying map for the Array kind. Callers
// outside this package use it through Array-kind helpers, never by
// storing a second reference to Value itself (arrays are reference
// types by design, matching Array(map) semantics in §3).
func (v Value) RawArray() map[string]*Value { return v.arr }

// Get reads array[key], returning the empty string Value if absent.
func (v Value) Get(key string) Value {
	if v.arr == nil {
		return NewString("")
	}
	if existing, ok := v.arr[key]; ok {
		return *existing
	}
	return NewString("")
}

// Has reports whether key is present in the array.
func (v Value) Has(key string) bool {
	if v.arr == nil {
		return false
	}
	_, ok := v.arr[key]
	return ok
}

// Set stores val at array[key].
func (v Value) Set(key string, val Value) {
	cp := val
	v.arr[key] = &cp
}

// Delete removes array[key].
func (v Value) Delete(key string) {
	delete(v.arr, key)
}

// Clear empties the array in place.
func (v Value) Clear() {
	for k := range v.arr {
		delete(v.arr, k)
	}
}

// Keys returns the array's keys in a deterministic (sorted) order.
// §4.4 leaves visitation order unspecified but requires it to be
// deterministic within a single execution; sorting the snapshot gives
// us that for free and makes tests reproducible.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.arr))
	for k := range v.arr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries in an Array.
func (v Value) Len() int { return len(v.arr) }

// Coercions.

// numericPrefix parses the leading optional-sign optional-decimal
// numeric prefix of s (with an optional e/E exponent), returning ""
// when none is present; callers read "" as 0. It mirrors the String→Number / String→Float
// coercion law of §3.
func numericPrefix(s string) string {
	s = strings.TrimLeft(s, " \t\n")
	i := 0
	n := len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i == start || (i == start+1 && s[start] == '.') {
		return ""
	}
	// optional exponent
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < n && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

// ToFloat coerces the value to a float64 per the coercion laws in §3.
func (v Value) ToFloat() float64 {
	switch v.Kind {
	case Number:
		return float64(v.num)
	case Float:
		return v.flt
	case Bool:
		if v.b {
			return 1
		}
		return 0
	case String, Regex:
		prefix := numericPrefix(v.str)
		if prefix == "" {
			return 0
		}
		f, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return 0
		}
		return f
	case ExecResult:
		return float64(v.status)
	default:
		return 0
	}
}

// ToInt coerces the value to an int64, truncating any fractional part.
func (v Value) ToInt() int64 {
	switch v.Kind {
	case Number:
		return v.num
	default:
		return int64(v.ToFloat())
	}
}

// IsFloatish reports whether the value's numeric coercion should be
// treated as floating point (i.e. it is already a Float, or a string
// whose numeric prefix has a fractional/exponent part).
func (v Value) IsFloatish() bool {
	switch v.Kind {
	case Float:
		return true
	case String, Regex:
		prefix := numericPrefix(v.str)
		return strings.ContainsAny(prefix, ".eE")
	default:
		return false
	}
}

// formatFloat renders a float the way the interpreter's default output
// conversion does: an integral value below 1e15 prints with no
// fractional part, anything else in %g style with 6 significant digits
// and trailing zeroes trimmed, so it need not round-trip exactly.
func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', 6, 64)
	return s
}

// ToString coerces the value to its textual representation.
func (v Value) ToString() string {
	switch v.Kind {
	case Number:
		return strconv.FormatInt(v.num, 10)
	case Float:
		return formatFloat(v.flt)
	case Bool:
		if v.b {
			return "1"
		}
		return "0"
	case String, Regex:
		return v.str
	case ExecResult:
		return v.str
	case Identifier:
		return v.name
	default:
		return ""
	}
}

// Truthy implements the truthiness rule of §3: zero numbers, false,
// empty strings, and empty arrays are falsy; everything else is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Number:
		return v.num != 0
	case Float:
		return v.flt != 0
	case Bool:
		return v.b
	case String, Regex:
		return v.str != ""
	case Array:
		return len(v.arr) != 0
	default:
		return true
	}
}

// numeric coerces v into either a Number or Float Value, for use as an
// arithmetic operand. Arrays cannot participate in arithmetic.
func numeric(v Value) (Value, error) {
	switch v.Kind {
	case Number, Float:
		return v, nil
	case Array:
		return Value{}, fmt.Errorf("type error: cannot use an array in a numeric context")
	default:
		if v.IsFloatish() {
			return NewFloat(v.ToFloat()), nil
		}
		return NewNumber(v.ToInt()), nil
	}
}

// promote returns the two operands coerced to a common numeric kind:
// if either is Float the pair is promoted to Float/Float, otherwise
// both remain Number/Number.
func promote(a, b Value) (Value, Value, error) {
	na, err := numeric(a)
	if err != nil {
		return Value{}, Value{}, err
	}
	nb, err := numeric(b)
	if err != nil {
		return Value{}, Value{}, err
	}
	if na.Kind == Float || nb.Kind == Float {
		return NewFloat(na.ToFloat()), NewFloat(nb.ToFloat()), nil
	}
	return na, nb, nil
}

// Arithmetic.

// Add implements the binary + operator. It always performs numeric
// addition; string concatenation is the dedicated Concat op.
func Add(a, b Value) (Value, error) { return arith(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y }) }

// Sub implements the binary - operator.
func Sub(a, b Value) (Value, error) { return arith(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }

// Mul implements the binary * operator.
func Mul(a, b Value) (Value, error) { return arith(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }) }

func arith(a, b Value, fi func(int64, int64) int64, ff func(float64, float64) float64) (Value, error) {
	x, y, err := promote(a, b)
	if err != nil {
		return Value{}, err
	}
	if x.Kind == Float {
		return NewFloat(ff(x.flt, y.flt)), nil
	}
	return NewNumber(fi(x.num, y.num)), nil
}

// Div implements the binary / operator. Integer division by zero is a
// fatal ArithmeticError (§7); float division by zero follows IEEE 754
// and yields +/-Inf or NaN.
func Div(a, b Value) (Value, error) {
	x, y, err := promote(a, b)
	if err != nil {
		return Value{}, err
	}
	if x.Kind == Float {
		return NewFloat(x.flt / y.flt), nil
	}
	if y.num == 0 {
		return Value{}, fmt.Errorf("division by zero")
	}
	return NewNumber(x.num / y.num), nil
}

// Rem implements the binary % operator, with the same zero-divisor
// rules as Div.
func Rem(a, b Value) (Value, error) {
	x, y, err := promote(a, b)
	if err != nil {
		return Value{}, err
	}
	if x.Kind == Float {
		return NewFloat(math.Mod(x.flt, y.flt)), nil
	}
	if y.num == 0 {
		return Value{}, fmt.Errorf("division by zero in modulus")
	}
	return NewNumber(x.num % y.num), nil
}

// Exp implements the binary ** (exponentiation) operator. A negative
// integer base with a non-integer exponent promotes to float, per §4.3.
func Exp(a, b Value) (Value, error) {
	x, y, err := promote(a, b)
	if err != nil {
		return Value{}, err
	}
	if x.Kind == Number && y.Kind == Number && y.num >= 0 {
		result := int64(1)
		base := x.num
		for i := int64(0); i < y.num; i++ {
			result *= base
		}
		return NewNumber(result), nil
	}
	return NewFloat(math.Pow(x.ToFloat(), y.ToFloat())), nil
}

// Neg implements unary minus.
func Neg(a Value) (Value, error) {
	x, err := numeric(a)
	if err != nil {
		return Value{}, err
	}
	if x.Kind == Float {
		return NewFloat(-x.flt), nil
	}
	return NewNumber(-x.num), nil
}

// Pos implements unary plus (numeric coercion with no sign change).
func Pos(a Value) (Value, error) { return numeric(a) }

// Bitwise operators operate on the integer coercion of their operands.

// BitAnd implements the & operator.
func BitAnd(a, b Value) (Value, error) { return NewNumber(a.ToInt() & b.ToInt()), nil }

// BitOr implements the | operator.
func BitOr(a, b Value) (Value, error) { return NewNumber(a.ToInt() | b.ToInt()), nil }

// BitXor implements the ^ operator (distinct from ** exponentiation).
func BitXor(a, b Value) (Value, error) { return NewNumber(a.ToInt() ^ b.ToInt()), nil }

// BitNot implements the unary ~ operator.
func BitNot(a Value) (Value, error) { return NewNumber(^a.ToInt()), nil }

// Shl implements the << operator.
func Shl(a, b Value) (Value, error) { return NewNumber(a.ToInt() << uint(b.ToInt())), nil }

// Shr implements the >> operator.
func Shr(a, b Value) (Value, error) { return NewNumber(a.ToInt() >> uint(b.ToInt())), nil }

// Comparison.

// numericish reports whether a value should participate in a numeric
// (rather than string) comparison: numbers, floats, and bools always
// do; strings do only when their entire text is a syntactically valid
// number (not just a numeric prefix), matching the classic language's
// "looks like a number" comparison rule.
func numericish(v Value) bool {
	switch v.Kind {
	case Number, Float, Bool:
		return true
	case String:
		t := strings.TrimSpace(v.str)
		if t == "" {
			return false
		}
		_, err := strconv.ParseFloat(t, 64)
		return err == nil
	default:
		return false
	}
}

// compare returns -1, 0, or 1 comparing a and b either numerically or
// lexically, per numericish above.
func compare(a, b Value) int {
	if numericish(a) && numericish(b) {
		fa, fb := a.ToFloat(), b.ToFloat()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	sa, sb := a.ToString(), b.ToString()
	return strings.Compare(sa, sb)
}

// Eq implements ==.
func Eq(a, b Value) Value { return NewBool(compare(a, b) == 0) }

// Ne implements !=.
func Ne(a, b Value) Value { return NewBool(compare(a, b) != 0) }

// Lt implements <.
func Lt(a, b Value) Value { return NewBool(compare(a, b) < 0) }

// Le implements <=.
func Le(a, b Value) Value { return NewBool(compare(a, b) <= 0) }

// Gt implements >.
func Gt(a, b Value) Value { return NewBool(compare(a, b) > 0) }

// Ge implements >=.
func Ge(a, b Value) Value { return NewBool(compare(a, b) >= 0) }

// Concat implements string concatenation by juxtaposition.
func Concat(a, b Value) Value { return NewString(a.ToString() + b.ToString()) }

// regex cache.

var regexCache = map[string]*regexp.Regexp{}

// Compile returns the compiled form of pattern, memoized by pattern
// source text for the lifetime of the process (§3 Lifecycle, §9
// "Memoizing regex compilations"). Value never stores the compiled
// object itself, only the source text — this cache is the sole owner.
func Compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression %q: %w", pattern, err)
	}
	regexCache[pattern] = re
	return re, nil
}

// Match implements the ~ operator. When target is an Array, the match
// succeeds if any element's string form matches (§3 of SPEC_FULL.md,
// grounded on original_source/value.rs's match_array).
func Match(target, pattern Value) (Value, error) {
	re, err := Compile(pattern.ToString())
	if err != nil {
		return Value{}, err
	}
	if target.Kind == Array {
		for _, k := range target.Keys() {
			if re.MatchString(target.Get(k).ToString()) {
				return NewBool(true), nil
			}
		}
		return NewBool(false), nil
	}
	return NewBool(re.MatchString(target.ToString())), nil
}

// NotMatch implements the !~ operator.
func NotMatch(target, pattern Value) (Value, error) {
	m, err := Match(target, pattern)
	if err != nil {
		return Value{}, err
	}
	return NewBool(!m.Truthy()), nil
}

// MatchResult holds the RSTART/RLENGTH pair produced by match().
type MatchResult struct {
	Start  int // 1-based, 0 if no match
	Length int // -1 if no match
}

// MatchFunc implements the match(s, re) built-in.
func MatchFunc(s, pattern Value) (MatchResult, error) {
	re, err := Compile(pattern.ToString())
	if err != nil {
		return MatchResult{}, err
	}
	loc := re.FindStringIndex(s.ToString())
	if loc == nil {
		return MatchResult{Start: 0, Length: -1}, nil
	}
	return MatchResult{Start: loc[0] + 1, Length: loc[1] - loc[0]}, nil
}

// expandAmpersand replaces unescaped '&' in repl with the matched text,
// and "\&" with a literal '&', per §4.5's sub/gsub semantics.
func expandAmpersand(repl, matched string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		switch repl[i] {
		case '&':
			b.WriteString(matched)
		case '\\':
			if i+1 < len(repl) && (repl[i+1] == '&' || repl[i+1] == '\\') {
				b.WriteByte(repl[i+1])
				i++
			} else {
				b.WriteByte('\\')
			}
		default:
			b.WriteByte(repl[i])
		}
	}
	return b.String()
}

// ReplaceFirst implements sub(re, repl, target): replaces the first
// match of re in *target with repl, returning 1 if a substitution was
// made, 0 otherwise.
func ReplaceFirst(pattern, repl Value, target *string) (int, error) {
	re, err := Compile(pattern.ToString())
	if err != nil {
		return 0, err
	}
	loc := re.FindStringIndex(*target)
	if loc == nil {
		return 0, nil
	}
	matched := (*target)[loc[0]:loc[1]]
	replacement := expandAmpersand(repl.ToString(), matched)
	*target = (*target)[:loc[0]] + replacement + (*target)[loc[1]:]
	return 1, nil
}

// ReplaceAll implements gsub(re, repl, target): replaces every
// non-overlapping match of re in *target, left to right, returning the
// count.
func ReplaceAll(pattern, repl Value, target *string) (int, error) {
	re, err := Compile(pattern.ToString())
	if err != nil {
		return 0, err
	}
	count := 0
	var b strings.Builder
	rest := *target
	for {
		loc := re.FindStringIndex(rest)
		if loc == nil {
			b.WriteString(rest)
			break
		}
		if loc[0] == loc[1] {
			// zero-width match: copy one byte forward to avoid looping forever.
			b.WriteString(rest[:loc[0]])
			matched := rest[loc[0]:loc[1]]
			b.WriteString(expandAmpersand(repl.ToString(), matched))
			count++
			if loc[1] >= len(rest) {
				rest = ""
				break
			}
			b.WriteByte(rest[loc[1]])
			rest = rest[loc[1]+1:]
			continue
		}
		b.WriteString(rest[:loc[0]])
		matched := rest[loc[0]:loc[1]]
		b.WriteString(expandAmpersand(repl.ToString(), matched))
		count++
		rest = rest[loc[1]:]
	}
	*target = b.String()
	return count, nil
}

// Split implements split(s, a, sep): populates array with 1-indexed
// string keys and returns the count. sep == " " splits on runs of
// whitespace (trimming leading/trailing runs), any other single rune
// (a regex metacharacter included) splits literally, and anything else
// is treated as a regex.
func Split(s string, array Value, sep string) (int, error) {
	array.Clear()

	var parts []string
	switch {
	case s == "":
		parts = nil
	case sep == " ":
		parts = strings.Fields(s)
	case len([]rune(sep)) == 1:
		parts = strings.Split(s, sep)
	default:
		re, err := Compile(sep)
		if err != nil {
			return 0, err
		}
		parts = re.Split(s, -1)
	}

	for i, p := range parts {
		array.Set(strconv.Itoa(i+1), NewString(p))
	}
	return len(parts), nil
}

// Substr implements substr(s, m, n): 1-indexed, n defaults to the
// remainder of the string when omitted; a negative n is clamped to 0
// (an empty result) and the end to the string's length.
func Substr(s string, m int, hasN bool, n int) string {
	runes := []rune(s)
	length := len(runes)

	if m < 1 {
		if hasN {
			n += m - 1
		}
		m = 1
	}
	if m > length {
		return ""
	}
	start := m - 1

	end := length
	if hasN {
		if n < 0 {
			n = 0
		}
		if start+n < end {
			end = start + n
		}
	}
	if end < start {
		end = start
	}
	return string(runes[start:end])
}

// IndexOf implements index(s, t): 1-indexed, 0 if t is absent from s.
func IndexOf(s, t string) int {
	idx := strings.Index(s, t)
	if idx < 0 {
		return 0
	}
	return len([]rune(s[:idx])) + 1
}

// ToLower implements tolower(s).
func ToLower(s string) string { return strings.ToLower(s) }

// ToUpper implements toupper(s).
func ToUpper(s string) string { return strings.ToUpper(s) }

// Sprintf implements the sprintf/printf conversion, translating the
// classic %c/%d/%i/%o/%x/%e/%f/%g/%s conversions (with their width,
// precision, and flag modifiers) into the equivalent Go fmt verbs.
func Sprintf(format string, args []Value) string {
	var out strings.Builder
	argi := 0
	next := func() Value {
		if argi < len(args) {
			v := args[argi]
			argi++
			return v
		}
		return NewString("")
	}

	i := 0
	for i < len(format) {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		start := i
		i++
		if i < len(format) && format[i] == '%' {
			out.WriteByte('%')
			i++
			continue
		}
		for i < len(format) && strings.ContainsRune("-+ 0#", rune(format[i])) {
			i++
		}
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		if i < len(format) && format[i] == '.' {
			i++
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
		}
		if i >= len(format) {
			out.WriteString(format[start:i])
			break
		}
		verb := format[i]
		spec := format[start:i]
		i++

		switch verb {
		case 'd', 'i':
			out.WriteString(fmt.Sprintf(spec+"d", next().ToInt()))
		case 'o':
			out.WriteString(fmt.Sprintf(spec+"o", next().ToInt()))
		case 'x':
			out.WriteString(fmt.Sprintf(spec+"x", next().ToInt()))
		case 'X':
			out.WriteString(fmt.Sprintf(spec+"X", next().ToInt()))
		case 'e', 'E', 'f', 'F', 'g', 'G':
			out.WriteString(fmt.Sprintf(spec+string(verb), next().ToFloat()))
		case 'c':
			v := next()
			if v.Kind == String && v.str != "" {
				out.WriteString(fmt.Sprintf(spec+"c", []rune(v.str)[0]))
			} else {
				out.WriteString(fmt.Sprintf(spec+"c", rune(v.ToInt())))
			}
		case 's':
			out.WriteString(fmt.Sprintf(spec+"s", next().ToString()))
		default:
			out.WriteString(spec + string(verb))
		}
	}
	return out.String()
}
