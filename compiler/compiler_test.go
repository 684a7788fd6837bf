package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmh/patternrun/ast"
	"github.com/calmh/patternrun/instructions"
	"github.com/calmh/patternrun/lexer"
	"github.com/calmh/patternrun/parser"
)

func compileSource(t *testing.T, src string) *Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())
	compiled, err := Compile(prog)
	require.NoError(t, err)
	return compiled
}

func TestCompileBeginEmitsPrint(t *testing.T) {
	prog := compileSource(t, `BEGIN { print "hi" }`)
	require.NotEmpty(t, prog.Begin)
	last := prog.Begin[len(prog.Begin)-1]
	assert.Equal(t, instructions.Print, last.Op)
}

func TestCompileRuleWithoutConditionHasNilCond(t *testing.T) {
	prog := compileSource(t, `{ print }`)
	require.Len(t, prog.Rules, 1)
	assert.Nil(t, prog.Rules[0].Cond)
}

func TestCompilePatternExprProducesNonEmptyCond(t *testing.T) {
	prog := compileSource(t, `/foo/ { print }`)
	require.Len(t, prog.Rules, 1)
	assert.NotEmpty(t, prog.Rules[0].Cond)
}

func TestCompileRangePatternAssignsID(t *testing.T) {
	prog := compileSource(t, `/start/,/stop/ { print }`)
	require.Len(t, prog.Rules, 1)
	assert.Equal(t, ast.PatternRange, prog.Rules[0].Kind)
	assert.Equal(t, 1, prog.Rules[0].RangeID)
	assert.Equal(t, "__range1_active__", RangeFlagName(prog.Rules[0].RangeID))
}

func TestCompileFunctionAppendsImplicitReturn(t *testing.T) {
	prog := compileSource(t, "function noop() {\n  x = 1\n}")
	fn, ok := prog.Functions["noop"]
	require.True(t, ok)
	last := fn.Body[len(fn.Body)-1]
	assert.Equal(t, instructions.Return, last.Op)
	assert.Equal(t, 0, last.Argc)
}

func TestCompileSubEmitsSwapBeforeStore(t *testing.T) {
	prog := compileSource(t, `BEGIN { n = sub(/x/, "y", s) }`)
	var sawStrSub, sawSwapAfter bool
	for i, ins := range prog.Begin {
		if ins.Op == instructions.StrSub {
			sawStrSub = true
			require.Less(t, i+1, len(prog.Begin))
			sawSwapAfter = prog.Begin[i+1].Op == instructions.Swap
		}
	}
	assert.True(t, sawStrSub)
	assert.True(t, sawSwapAfter, "StrSub must be followed by Swap so the match count, not the new target value, is the expression's result")
}

func TestCompileMatchBuiltinUsesMatchFn(t *testing.T) {
	prog := compileSource(t, `BEGIN { n = match("s", /p/) }`)
	var found bool
	for _, ins := range prog.Begin {
		if ins.Op == instructions.MatchFn {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompileTildeOperatorUsesMatchNotMatchFn(t *testing.T) {
	prog := compileSource(t, `BEGIN { n = ("s" ~ /p/) }`)
	var sawMatch, sawMatchFn bool
	for _, ins := range prog.Begin {
		if ins.Op == instructions.Match {
			sawMatch = true
		}
		if ins.Op == instructions.MatchFn {
			sawMatchFn = true
		}
	}
	assert.True(t, sawMatch)
	assert.False(t, sawMatchFn)
}

func TestCompileForInEmitsInitNextAdjacent(t *testing.T) {
	prog := compileSource(t, `BEGIN { for (k in a) print k }`)
	var initIdx = -1
	for i, ins := range prog.Begin {
		if ins.Op == instructions.ForInInit {
			initIdx = i
		}
	}
	require.GreaterOrEqual(t, initIdx, 0)
	require.Less(t, initIdx+1, len(prog.Begin))
	assert.Equal(t, instructions.ForInNext, prog.Begin[initIdx+1].Op)
}

func TestCompileShiftLeftOpcode(t *testing.T) {
	prog := compileSource(t, `BEGIN { x = 1 << 2 }`)
	var found bool
	for _, ins := range prog.Begin {
		if ins.Op == instructions.Shl {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompileLogicalOrCoercesTruthyBranchToOne(t *testing.T) {
	prog := compileSource(t, `BEGIN { x = 5 || 0 }`)
	var trueJumpIdx = -1
	for i, ins := range prog.Begin {
		if ins.Op == instructions.JumpIfTrue {
			trueJumpIdx = i
		}
	}
	require.GreaterOrEqual(t, trueJumpIdx, 0)
	// the truthy branch must land on a pushed 1, not leave the raw
	// operand on the stack.
	target := prog.Begin[trueJumpIdx].Target
	require.Less(t, target, len(prog.Begin))
	assert.Equal(t, instructions.PushValue, prog.Begin[target].Op)
	assert.Equal(t, int64(1), prog.Begin[target].Value.Num)
}

func TestCompileGetlineIntoArrayElementUsesArrTarget(t *testing.T) {
	prog := compileSource(t, `BEGIN { getline a[1] }`)
	var found *instructions.Instruction
	for i := range prog.Begin {
		if prog.Begin[i].Op == instructions.Getline {
			found = &prog.Begin[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, instructions.GetlineTargetArr, found.GetlineTarget)
	assert.Equal(t, "a", found.Name)
	assert.Equal(t, 1, found.Argc)
}

func TestCompileGetlineIntoFieldUsesFieldTarget(t *testing.T) {
	prog := compileSource(t, `BEGIN { getline $2 }`)
	var found *instructions.Instruction
	for i := range prog.Begin {
		if prog.Begin[i].Op == instructions.Getline {
			found = &prog.Begin[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, instructions.GetlineTargetField, found.GetlineTarget)
}

func TestCompileShiftRightOpcode(t *testing.T) {
	prog := compileSource(t, `BEGIN { x = 8 >> 2 }`)
	var found bool
	for _, ins := range prog.Begin {
		if ins.Op == instructions.Shr {
			found = true
		}
	}
	assert.True(t, found)
}
