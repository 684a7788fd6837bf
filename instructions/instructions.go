// Package instructions contains the opcode set understood by the vm
// package: a flat list of these is what the compiler produces from an
// AST, and what the vm executes.
//
// The opcode names and their stack semantics follow the Instruction
// enum in original_source/machine.rs, adapted from a process-exiting
// Rust VM into one where operand errors are returned, so a caller can
// still run any END rules before reporting failure.
package instructions

// Op identifies the operation a single Instruction performs.
type Op byte

// Opcodes. Grouped roughly as original_source/machine.rs groups them:
// stack/control flow, variable and array access, field access,
// arithmetic, bitwise, logical/comparison, string/regex builtins, and
// I/O.
const (
	// PushValue pushes Instruction.Value onto the operand stack.
	PushValue Op = iota
	// Pop discards the top of the operand stack.
	Pop
	// Dup duplicates the top of the operand stack.
	Dup
	// Swap exchanges the top two operand-stack entries.
	Swap

	// Jump sets pc to Instruction.Target unconditionally.
	Jump
	// JumpIfTrue pops a value; if truthy, sets pc to Instruction.Target.
	JumpIfTrue
	// JumpIfFalse pops a value; if falsy, sets pc to Instruction.Target.
	JumpIfFalse

	// Call invokes the user function named Instruction.Name with
	// Instruction.Argc arguments taken from the operand stack.
	Call
	// Return pops a value and returns it from the current call frame;
	// with Instruction.Argc == 0 it returns the uninitialized scalar.
	Return

	// LoadVar pushes the value of global/local variable Instruction.Name.
	LoadVar
	// StoreVar pops a value and stores it into variable Instruction.Name.
	StoreVar
	// LoadArr pops Instruction.Argc subscript values (pushed in
	// left-to-right order, so popped right-to-left), joins them with
	// SUBSEP, and pushes array Instruction.Name's element.
	LoadArr
	// StoreArr pops Instruction.Argc subscript values, then pops the
	// value beneath them, and stores it into array Instruction.Name at
	// the SUBSEP-joined key. The compiler always pushes the value
	// first and the subscripts afterward, so the subscript expressions
	// are evaluated right next to the store rather than held across
	// the value's computation.
	StoreArr
	// DeleteArr deletes one element (Instruction.Argc subscripts popped)
	// or, with Argc == 0, every element of array Instruction.Name.
	DeleteArr
	// InArr pops Instruction.Argc subscript values, joins them with
	// SUBSEP, and pushes whether array Instruction.Name already
	// contains that key, without creating the element (the `in`
	// operator must not auto-vivify).
	InArr
	// ForInInit pops and pushes nothing; it snapshots array
	// Instruction.Name's current keys into an iterator the vm keeps
	// keyed by this instruction's pc.
	ForInInit
	// ForInNext advances the iterator of the ForInInit just before it:
	// if keys remain it stores the next key into variable
	// Instruction.Name and falls through into the loop body, otherwise
	// it drops the iterator and jumps to Instruction.Target.
	ForInNext

	// LoadField pops an index and pushes that field of the current
	// record (index 0 is the whole record).
	LoadField
	// StoreField pops an index, then pops the value beneath it, and
	// sets that field, rebuilding $0 from OFS (or, for index 0,
	// re-splitting on FS). As with StoreArr, the compiler pushes the
	// value first and the index afterward.
	StoreField

	// Add, Sub, Mul, Div, Rem, Exp perform the arithmetic binary ops.
	// The compiler also uses Add/Sub to lower ++/-- against a loaded
	// operand, rather than dedicating separate opcodes to increment.
	Add
	Sub
	Mul
	Div
	Rem
	Exp
	// Neg, Pos are the unary arithmetic ops.
	Neg
	Pos

	// BitAnd, BitOr, BitXor, Shl, Shr are the bitwise binary ops.
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	// BitNot is the unary bitwise complement.
	BitNot

	// Eq, Ne, Lt, Le, Gt, Ge are the comparison ops.
	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	// Not is the unary logical negation.
	Not

	// Concat pops two values and pushes their string concatenation.
	Concat

	// Match pops a pattern and a target and pushes whether it matches.
	Match
	// NotMatch is Match negated.
	NotMatch
	// MatchFn performs the match(s, ere) builtin: it pops a pattern and a
	// target, sets RSTART/RLENGTH, and pushes the 1-based match start (0
	// on no match), distinct from Match's boolean result for ~/!~.
	MatchFn

	// StrSub performs sub(ere, repl, target); the target's current value
	// is pushed before this opcode, which leaves the new target value
	// with the substitution count above it. The compiler follows it with
	// Swap and re-stores the new value into the target lvalue, leaving
	// the count as the expression's result.
	StrSub
	// StrGsub performs gsub(ere, repl, target) the same way.
	StrGsub
	// Split performs split(s, array, fs).
	Split
	// Length pushes the length of the top-of-stack value (string length,
	// array element count, or with Instruction.Argc == 0, len($0)).
	Length
	// Substr performs substr(s, m[, n]).
	Substr
	// Index performs index(s, t).
	Index
	// Sprintf performs sprintf(fmt, args...).
	Sprintf
	// ToLower, ToUpper perform tolower/toupper.
	ToLower
	ToUpper

	// Sin, Cos, Sqrt, MathExp, Log are the single-argument math builtins;
	// Atan2 is the two-argument one.
	Sin
	Cos
	Sqrt
	MathExp
	Log
	Atan2
	// ToIntFn truncates its argument toward zero (the int() builtin,
	// distinct from the arithmetic opcodes above).
	ToIntFn
	// Rand pushes a pseudo-random Float in [0, 1).
	Rand
	// Srand reseeds the generator from Instruction.Argc == 1's popped
	// argument, or the current time when Argc == 0, pushing the
	// previous seed.
	Srand

	// Print writes Instruction.Argc popped values, OFS-joined, plus ORS,
	// to the stream named by the value Instruction.Redirect pops when
	// its mode is not RedirectNone.
	Print
	// Printf formats and writes like Print but via a format string.
	Printf
	// Getline reads a record per Instruction.GetlineMode. When
	// Instruction.GetlineTarget is not GetlineTargetNone, the subscript
	// values (GetlineTargetArr) or field index (GetlineTargetField) are
	// popped first, in the same order compileLvalueStore expects them.
	// Modes other than Simple/Var then pop the file name or command text
	// beneath them, which runio opens (or reuses) as a keyed stream.
	Getline
	// Close closes the stream named by the popped value.
	Close
	// System runs the popped command string and pushes its exit status.
	System

	// Exit unwinds execution to the END rules (or program exit if
	// already running them), optionally setting the exit status from a
	// popped value when Instruction.Argc == 1.
	Exit
	// Next abandons the current record and resumes the main read loop.
	Next
	// NextFile abandons the current input file and advances to the
	// next one.
	NextFile
)

// GetlineMode distinguishes getline's six source/target combinations
// (§6), mirrored from ast.GetlineMode so the vm need not import ast.
type GetlineMode int

// Getline modes.
const (
	GetlineSimple GetlineMode = iota
	GetlineVar
	GetlineFile
	GetlineVarFile
	GetlinePipe
	GetlinePipeVar
)

// GetlineTarget distinguishes the lvalue kind a targeted getline form
// (Var/VarFile/PipeVar) stores its record into: a plain variable, an
// array element, or a field, the same three lvalue kinds
// compileLvalueStore already handles for ordinary assignment.
type GetlineTarget int

// Getline target kinds.
const (
	// GetlineTargetNone means the read record replaces $0 instead of
	// being stored into any variable.
	GetlineTargetNone GetlineTarget = iota
	GetlineTargetVar
	GetlineTargetArr
	GetlineTargetField
)

// RedirectMode distinguishes Print/Printf's output destinations,
// mirrored from ast.RedirectMode so the vm need not import ast.
type RedirectMode int

// Redirect modes.
const (
	RedirectNone RedirectMode = iota
	RedirectFile
	RedirectAppend
	RedirectPipe
)

// Instruction is one opcode plus whatever operand data it needs. Only
// the fields relevant to Op are meaningful; the rest are zero.
type Instruction struct {
	Op Op

	// Value is the literal operand for PushValue: a number, float,
	// string, or regex value depending on Operand.Kind.
	Value Operand

	// Target is the jump destination for Jump/JumpIfTrue/JumpIfFalse/
	// ForInNext, an index into the enclosing program's instruction
	// slice.
	Target int

	// Name is the variable, array, or function name operand for
	// LoadVar/StoreVar/LoadArr/StoreArr/DeleteArr/InArr/ForInInit/
	// ForInNext/Call/Split, and, when GetlineTarget is
	// GetlineTargetVar/GetlineTargetArr, Getline's target name.
	Name string

	// Argc is an opcode-specific count: Call's argument count, an
	// array access's subscript count, Print/Printf's argument count, a
	// flag for Length/Srand/Exit's optional operand, or, for
	// Getline/GetlineTargetArr, the target array's subscript count.
	Argc int

	// GetlineMode selects one of Getline's six forms.
	GetlineMode GetlineMode

	// GetlineTarget selects the lvalue kind Getline stores a
	// successfully-read record into.
	GetlineTarget GetlineTarget

	// Redirect selects Print/Printf's output destination. When it is
	// not RedirectNone, the destination text is popped from the
	// operand stack (pushed by the compiler after the print
	// arguments).
	Redirect RedirectMode

	// Line is copied into a RuntimeError raised by this instruction and
	// printed when positive. The compiler does not set it, so it is 0.
	Line int
}

// OperandKind distinguishes the literal kinds a PushValue instruction
// can carry.
type OperandKind int

// Operand kinds.
const (
	OperandNumber OperandKind = iota
	OperandFloat
	OperandString
	OperandRegex
)

// Operand is a PushValue instruction's literal payload.
type Operand struct {
	Kind OperandKind
	Num  int64
	Flt  float64
	Str  string
}
