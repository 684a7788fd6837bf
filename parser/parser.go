// Package parser implements a recursive-descent, precedence-climbing
// parser that turns a token stream from the lexer into an *ast.Program.
//
// The grammar shape follows original_source/parser.rs; the Go coding
// style (two-token lookahead, a parser struct holding cur/peek, a
// table of per-level parse functions) follows the precedence-climbing
// parsers in conneroisu-gix/pkg/parser and akashmaji946-go-mix/parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/calmh/patternrun/ast"
	"github.com/calmh/patternrun/lexer"
	"github.com/calmh/patternrun/token"
)

// Parser consumes tokens from a Lexer and builds an *ast.Program.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	errors []string

	// noGT suppresses treating a bare '>' as the relational operator,
	// '>>' as a shift and '|' as bitwise-or, so that an unparenthesized
	// print/printf argument list can use them for output redirection
	// instead. Set while parsing such a list; cleared again inside
	// parentheses, subscripts and call arguments.
	noGT bool

	// rangeCounter allocates a distinct RangeID to each range pattern
	// encountered, so the compiler can give each one its own hidden
	// "currently active" flag (§4.3).
	rangeCounter int
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.errorf("expected %s, got %s (%q) at line %d", t, p.cur.Type, p.cur.Literal, p.cur.Line)
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

// skipNewlines consumes any run of NEWLINE tokens. It is called at
// points in the grammar where a line break is never significant: right
// after opening punctuation, after binary/logical operators, and after
// do/else.
func (p *Parser) skipNewlines() {
	for p.curIs(token.NEWLINE) {
		p.next()
	}
}

// skipTerminators consumes a run of NEWLINE and SEMI tokens, the
// statement-list separators.
func (p *Parser) skipTerminators() {
	for p.curIs(token.NEWLINE) || p.curIs(token.SEMI) {
		p.next()
	}
}

// Parse parses an entire program, resynchronizing after an erroneous
// item so the caller receives as complete an error list as possible.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipTerminators()
	for !p.curIs(token.EOF) {
		item := p.parseItem()
		if item != nil {
			prog.Items = append(prog.Items, item)
		}
		p.skipTerminators()
	}
	if len(p.errors) > 0 {
		return prog, fmt.Errorf("%d parse error(s); first: %s", len(p.errors), p.errors[0])
	}
	return prog, nil
}

// resync skips tokens until a plausible item boundary, after a parse
// error, so parsing can continue and collect further diagnostics.
func (p *Parser) resync() {
	for !p.curIs(token.NEWLINE) && !p.curIs(token.SEMI) && !p.curIs(token.EOF) &&
		!p.curIs(token.BEGIN) && !p.curIs(token.END) && !p.curIs(token.FUNCTION) {
		p.next()
	}
}

func (p *Parser) parseItem() ast.Item {
	switch p.cur.Type {
	case token.BEGIN:
		p.next()
		p.skipNewlines()
		body := p.parseBlock()
		return &ast.PatternAction{Pattern: ast.Pattern{Kind: ast.PatternBegin}, Action: body}
	case token.END:
		p.next()
		p.skipNewlines()
		body := p.parseBlock()
		return &ast.PatternAction{Pattern: ast.Pattern{Kind: ast.PatternEnd}, Action: body}
	case token.FUNCTION:
		return p.parseFunction()
	case token.LBRACE:
		body := p.parseBlock()
		return &ast.SoloAction{Action: body}
	default:
		return p.parsePatternAction()
	}
}

func (p *Parser) parseFunction() ast.Item {
	p.next() // consume 'function'
	if !p.curIs(token.IDENT) {
		p.errorf("expected function name, got %s at line %d", p.cur.Type, p.cur.Line)
		p.resync()
		return nil
	}
	name := p.cur.Literal
	p.next()
	if !p.expect(token.LPAREN) {
		p.resync()
		return nil
	}
	var params []string
	for !p.curIs(token.RPAREN) {
		if !p.curIs(token.IDENT) {
			p.errorf("expected parameter name, got %s at line %d", p.cur.Type, p.cur.Line)
			p.resync()
			return nil
		}
		params = append(params, p.cur.Literal)
		p.next()
		if p.curIs(token.COMMA) {
			p.next()
			p.skipNewlines()
		}
	}
	p.next() // consume ')'
	p.skipNewlines()
	body := p.parseBlock()
	return &ast.Function{Name: name, Params: params, Body: body}
}

func (p *Parser) parsePatternAction() ast.Item {
	first := p.parseExpr()
	var pat ast.Pattern
	if p.curIs(token.COMMA) {
		p.next()
		p.skipNewlines()
		second := p.parseExpr()
		p.rangeCounter++
		pat = ast.Pattern{Kind: ast.PatternRange, Expr: first, Expr2: second}
	} else {
		pat = ast.Pattern{Kind: ast.PatternExpr, Expr: first}
	}

	var action *ast.Block
	if p.curIs(token.LBRACE) {
		action = p.parseBlock()
	} else {
		// no explicit action: default action is `print $0`.
		action = &ast.Block{Statements: []ast.Statement{
			&ast.Print{Args: []ast.Expr{&ast.FieldExpr{Index: &ast.NumberLit{Value: 0}}}},
		}}
	}
	pa := &ast.PatternAction{Pattern: pat, Action: action}
	if pat.Kind == ast.PatternRange {
		pa.RangeID = p.rangeCounter
	}
	return pa
}

// parseBlock parses a brace-delimited statement list.
func (p *Parser) parseBlock() *ast.Block {
	blk := &ast.Block{}
	if !p.expect(token.LBRACE) {
		p.resync()
		return blk
	}
	p.skipTerminators()
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			blk.Statements = append(blk.Statements, stmt)
		}
		p.skipTerminators()
	}
	p.expect(token.RBRACE)
	return blk
}

// parseStatementOrBlock parses either a brace-delimited block or a
// single statement, for use as the body of if/while/for/for-in.
func (p *Parser) parseStatementOrBlock() ast.Statement {
	if p.curIs(token.LBRACE) {
		return p.parseBlock()
	}
	return p.parseStatement()
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.BREAK:
		p.next()
		return &ast.Break{}
	case token.CONTINUE:
		p.next()
		return &ast.Continue{}
	case token.NEXT:
		p.next()
		return &ast.Next{}
	case token.NEXTFILE:
		p.next()
		return &ast.NextFile{}
	case token.EXIT:
		p.next()
		st := &ast.Exit{}
		if p.startsExpr() {
			st.Status = p.parseExpr()
		}
		return st
	case token.RETURN:
		p.next()
		st := &ast.Return{}
		if p.startsExpr() {
			st.Value = p.parseExpr()
		}
		return st
	case token.DELETE:
		return p.parseDelete()
	case token.PRINT:
		return p.parsePrint()
	case token.PRINTF:
		return p.parsePrintf()
	case token.SEMI:
		return nil
	default:
		x := p.parseExpr()
		return &ast.ExprStatement{X: x}
	}
}

// startsExpr reports whether the current token can begin an
// expression, used to tell `exit`/`return` with no operand from one
// with an operand.
func (p *Parser) startsExpr() bool {
	switch p.cur.Type {
	case token.NEWLINE, token.SEMI, token.RBRACE, token.EOF:
		return false
	default:
		return true
	}
}

func (p *Parser) parseIf() ast.Statement {
	p.next() // 'if'
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	p.skipNewlines()
	then := p.parseStatementOrBlock()
	st := &ast.If{Cond: cond, Then: then}

	// An else clause may follow any number of statement terminators;
	// skipping them here is safe even when no else follows, since the
	// enclosing statement-list loop skips terminators between
	// statements anyway.
	p.skipTerminators()
	if p.curIs(token.ELSE) {
		p.next()
		p.skipNewlines()
		st.Else = p.parseStatementOrBlock()
	}
	return st
}

func (p *Parser) parseWhile() ast.Statement {
	p.next() // 'while'
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	p.skipNewlines()
	body := p.parseStatementOrBlock()
	return &ast.While{Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Statement {
	p.next() // 'do'
	p.skipNewlines()
	body := p.parseStatementOrBlock()
	p.skipTerminators()
	p.expect(token.WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpr()
	p.expect(token.RPAREN)
	return &ast.DoWhile{Body: body, Cond: cond}
}

// parseFor handles both the C-style for(init;cond;step) and the
// for (k in arr) forms, distinguishing them via the two-token buffer:
// IDENT IN is unambiguous lookahead once inside the parens.
func (p *Parser) parseFor() ast.Statement {
	p.next() // 'for'
	p.expect(token.LPAREN)

	if p.curIs(token.IDENT) && p.peekIs(token.IN) {
		varName := p.cur.Literal
		p.next() // ident
		p.next() // 'in'
		if !p.curIs(token.IDENT) {
			p.errorf("expected array name in for-in, got %s at line %d", p.cur.Type, p.cur.Line)
			p.resync()
			return &ast.ForIn{Var: varName}
		}
		arrName := p.cur.Literal
		p.next()
		p.expect(token.RPAREN)
		p.skipNewlines()
		body := p.parseStatementOrBlock()
		return &ast.ForIn{Var: varName, Array: arrName, Body: body}
	}

	var init ast.Statement
	if !p.curIs(token.SEMI) {
		init = p.parseStatement()
	}
	p.expect(token.SEMI)
	var cond ast.Expr
	if !p.curIs(token.SEMI) {
		cond = p.parseExpr()
	}
	p.expect(token.SEMI)
	var step ast.Statement
	if !p.curIs(token.RPAREN) {
		step = p.parseStatement()
	}
	p.expect(token.RPAREN)
	p.skipNewlines()
	body := p.parseStatementOrBlock()
	return &ast.For{Init: init, Cond: cond, Step: step, Body: body}
}

func (p *Parser) parseDelete() ast.Statement {
	p.next() // 'delete'
	if !p.curIs(token.IDENT) {
		p.errorf("expected array name after delete, got %s at line %d", p.cur.Type, p.cur.Line)
		p.resync()
		return &ast.Delete{}
	}
	name := p.cur.Literal
	p.next()
	del := &ast.Delete{Array: name}
	if p.curIs(token.LBRACKET) {
		p.next()
		del.Keys = p.parseExprList(token.RBRACKET)
		p.expect(token.RBRACKET)
	}
	return del
}

// parsePrintArgs parses the comma-separated argument list shared by
// print and printf, followed by an optional output redirection clause.
// A parenthesized argument is parsed as an ordinary parenthesized
// expression, so a parenthesized comma-separated list such as
// `print (a, b)` is not accepted. While scanning the argument list itself
// (outside of any nested parens/brackets) a bare '>' must not be
// consumed as the relational operator, since it instead introduces
// redirection; p.noGT suppresses that level of the grammar for the
// duration.
func (p *Parser) parsePrintArgs() ([]ast.Expr, *ast.Redirect) {
	var args []ast.Expr
	if p.startsExpr() {
		save := p.noGT
		p.noGT = true
		args = append(args, p.parseTernary())
		for p.curIs(token.COMMA) {
			p.next()
			p.skipNewlines()
			args = append(args, p.parseTernary())
		}
		p.noGT = save
	}
	var redir *ast.Redirect
	switch p.cur.Type {
	case token.GT:
		p.next()
		redir = &ast.Redirect{Mode: ast.RedirectFile, Dest: p.parseTernary()}
	case token.SHR:
		p.next()
		redir = &ast.Redirect{Mode: ast.RedirectAppend, Dest: p.parseTernary()}
	case token.PIPE:
		p.next()
		redir = &ast.Redirect{Mode: ast.RedirectPipe, Dest: p.parseTernary()}
	}
	return args, redir
}

func (p *Parser) parsePrint() ast.Statement {
	p.next() // 'print'
	args, redir := p.parsePrintArgs()
	return &ast.Print{Args: args, Redirect: redir}
}

func (p *Parser) parsePrintf() ast.Statement {
	p.next() // 'printf'
	args, redir := p.parsePrintArgs()
	if len(args) == 0 {
		p.errorf("printf requires a format argument at line %d", p.cur.Line)
		return &ast.Printf{Redirect: redir}
	}
	return &ast.Printf{Format: args[0], Args: args[1:], Redirect: redir}
}

// parseExprList parses a comma-separated list of expressions up to
// (but not consuming) the closing token.
func (p *Parser) parseExprList(closeTok token.Type) []ast.Expr {
	var list []ast.Expr
	p.skipNewlines()
	if p.curIs(closeTok) {
		return list
	}
	list = append(list, p.parseExpr())
	for p.curIs(token.COMMA) {
		p.next()
		p.skipNewlines()
		list = append(list, p.parseExpr())
	}
	p.skipNewlines()
	return list
}

// ---------------------------------------------------------------------
// Expression grammar, precedence-climbing top to bottom exactly
// following the spec's 16-row table. Each parseX calls the next
// tighter-binding level for its operands.
// ---------------------------------------------------------------------

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseTernary()

	var op ast.AssignOp
	switch p.cur.Type {
	case token.ASSIGN:
		op = ast.AssignSet
	case token.PLUSASSIGN:
		op = ast.AssignAdd
	case token.MINUSASSIGN:
		op = ast.AssignSub
	case token.STARASSIGN:
		op = ast.AssignMul
	case token.SLASHASSIGN:
		op = ast.AssignDiv
	case token.PERCENTASSIGN:
		op = ast.AssignRem
	case token.POWERASSIGN:
		op = ast.AssignExp
	default:
		return left
	}
	if !isLvalue(left) {
		p.errorf("invalid assignment target at line %d", p.cur.Line)
	}
	p.next()
	p.skipNewlines()
	value := p.parseAssignment() // right-associative
	return &ast.Assignment{Op: op, Target: left, Value: value}
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Ident, *ast.IndexExpr, *ast.FieldExpr:
		return true
	default:
		return false
	}
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseOr()
	if !p.curIs(token.QUESTION) {
		return cond
	}
	p.next()
	p.skipNewlines()
	then := p.parseTernary()
	p.expect(token.COLON)
	p.skipNewlines()
	els := p.parseTernary()
	return &ast.Ternary{Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.curIs(token.OR) {
		p.next()
		p.skipNewlines()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Op: ast.BinOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseIn()
	for p.curIs(token.AND) {
		p.next()
		p.skipNewlines()
		right := p.parseIn()
		left = &ast.BinaryExpr{Op: ast.BinAnd, Left: left, Right: right}
	}
	return left
}

// parseIn handles `expr in array`, which binds looser than bitwise-or
// and tighter than &&, mirroring where membership tests sit in the
// reference grammar.
func (p *Parser) parseIn() ast.Expr {
	left := p.parseBitOr()
	for p.curIs(token.IN) {
		p.next()
		if !p.curIs(token.IDENT) {
			p.errorf("expected array name after 'in', got %s at line %d", p.cur.Type, p.cur.Line)
			break
		}
		arr := p.cur.Literal
		p.next()
		left = &ast.Call{Name: "__in__", Args: []ast.Expr{left, &ast.Ident{Name: arr}}}
	}
	return left
}

// parseBitOr also intercepts `cmd | getline [var]`, since '|' is how
// that form is introduced in the grammar.
func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for {
		if p.curIs(token.PIPE) && p.peekIs(token.GETLINE) {
			p.next() // '|'
			p.next() // 'getline'
			g := &ast.Getline{Mode: ast.GetlinePipe, Source: left}
			if p.curIs(token.IDENT) || p.curIs(token.DOLLAR) {
				g.Target = p.parseLvalueOnly()
				g.Mode = ast.GetlinePipeVar
			}
			left = g
			continue
		}
		if p.curIs(token.PIPE) && !p.noGT {
			p.next()
			p.skipNewlines()
			right := p.parseBitXor()
			left = &ast.BinaryExpr{Op: ast.BinBitOr, Left: left, Right: right}
			continue
		}
		return left
	}
}

func (p *Parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.curIs(token.CARET) {
		p.next()
		p.skipNewlines()
		right := p.parseBitAnd()
		left = &ast.BinaryExpr{Op: ast.BinBitXor, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseEqMatch()
	for p.curIs(token.AMP) {
		p.next()
		p.skipNewlines()
		right := p.parseEqMatch()
		left = &ast.BinaryExpr{Op: ast.BinBitAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEqMatch() ast.Expr {
	left := p.parseRelational()
	for {
		var op ast.BinaryOp
		switch p.cur.Type {
		case token.EQ:
			op = ast.BinEq
		case token.NE:
			op = ast.BinNe
		case token.MATCH:
			op = ast.BinMatch
		case token.NOTMATCH:
			op = ast.BinNotMatch
		default:
			return left
		}
		p.next()
		p.skipNewlines()
		right := p.parseRelational()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseShift()
	var op ast.BinaryOp
	switch p.cur.Type {
	case token.LT:
		op = ast.BinLt
	case token.LE:
		op = ast.BinLe
	case token.GE:
		op = ast.BinGe
	case token.GT:
		if p.noGT {
			return left
		}
		op = ast.BinGt
	default:
		return left
	}
	p.next()
	p.skipNewlines()
	right := p.parseShift()
	// Relational operators are non-associative in the reference
	// grammar: a single comparison per expression.
	return &ast.BinaryExpr{Op: op, Left: left, Right: right}
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseConcat()
	for p.curIs(token.SHL) || (p.curIs(token.SHR) && !p.noGT) {
		var op ast.BinaryOp
		if p.curIs(token.SHL) {
			op = ast.BinShl
		} else {
			op = ast.BinShr
		}
		p.next()
		p.skipNewlines()
		right := p.parseConcat()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left
}

// parseConcat implements string concatenation by juxtaposition: two
// additive-level expressions placed side by side with no operator
// between them concatenate. canStartConcatOperand reports whether the
// current token could begin another operand at this level, so that
// tokens belonging to a weaker-binding operator (e.g. '~', '==', '<')
// are correctly left for the caller above to consume.
func (p *Parser) parseConcat() ast.Expr {
	left := p.parseAdditive()
	for p.canStartConcatOperand() {
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Op: ast.BinConcat, Left: left, Right: right}
	}
	return left
}

func (p *Parser) canStartConcatOperand() bool {
	switch p.cur.Type {
	case token.NUMBER, token.FLOAT, token.STRING, token.REGEX, token.IDENT,
		token.DOLLAR, token.LPAREN, token.NOT, token.MINUS, token.PLUS,
		token.INCR, token.DECR:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.curIs(token.PLUS) || p.curIs(token.MINUS) {
		op := ast.BinAdd
		if p.curIs(token.MINUS) {
			op = ast.BinSub
		}
		p.next()
		p.skipNewlines()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseExponent()
	for p.curIs(token.ASTERISK) || p.curIs(token.SLASH) || p.curIs(token.PERCENT) {
		var op ast.BinaryOp
		switch p.cur.Type {
		case token.ASTERISK:
			op = ast.BinMul
		case token.SLASH:
			op = ast.BinDiv
		case token.PERCENT:
			op = ast.BinRem
		}
		p.next()
		p.skipNewlines()
		right := p.parseExponent()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left
}

// parseExponent is right-associative: a ** b ** c == a ** (b ** c).
func (p *Parser) parseExponent() ast.Expr {
	left := p.parseUnary()
	if p.curIs(token.POWER) {
		p.next()
		p.skipNewlines()
		right := p.parseExponent()
		return &ast.BinaryExpr{Op: ast.BinExp, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Type {
	case token.MINUS:
		p.next()
		return &ast.UnaryExpr{Op: ast.UnaryNeg, X: p.parseUnary()}
	case token.PLUS:
		p.next()
		return &ast.UnaryExpr{Op: ast.UnaryPos, X: p.parseUnary()}
	case token.NOT:
		p.next()
		return &ast.UnaryExpr{Op: ast.UnaryNot, X: p.parseUnary()}
	case token.INCR:
		p.next()
		return &ast.UnaryExpr{Op: ast.UnaryPreIncr, X: p.parseUnary()}
	case token.DECR:
		p.next()
		return &ast.UnaryExpr{Op: ast.UnaryPreDecr, X: p.parseUnary()}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.cur.Type {
		case token.INCR:
			if !isLvalue(x) {
				return x
			}
			p.next()
			x = &ast.PostfixExpr{Op: ast.PostfixIncr, X: x}
		case token.DECR:
			if !isLvalue(x) {
				return x
			}
			p.next()
			x = &ast.PostfixExpr{Op: ast.PostfixDecr, X: x}
		default:
			return x
		}
	}
}

// parseLvalueOnly parses a restricted lvalue (identifier, optionally
// subscripted, or a field reference), used for getline targets which
// must not themselves be full expressions.
func (p *Parser) parseLvalueOnly() ast.Expr {
	if p.curIs(token.DOLLAR) {
		p.next()
		return &ast.FieldExpr{Index: p.parsePrimary()}
	}
	name := p.cur.Literal
	p.next()
	if p.curIs(token.LBRACKET) {
		p.next()
		keys := p.parseExprList(token.RBRACKET)
		p.expect(token.RBRACKET)
		return &ast.IndexExpr{Array: name, Keys: keys}
	}
	return &ast.Ident{Name: name}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur.Type {
	case token.NUMBER:
		lit := p.cur.Literal
		p.next()
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", lit)
		}
		return &ast.NumberLit{Value: n}
	case token.FLOAT:
		lit := p.cur.Literal
		p.next()
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorf("invalid float literal %q", lit)
		}
		return &ast.FloatLit{Value: f}
	case token.STRING:
		lit := p.cur.Literal
		p.next()
		return &ast.StringLit{Value: lit}
	case token.REGEX:
		lit := p.cur.Literal
		p.next()
		return &ast.RegexLit{Pattern: lit}
	case token.DOLLAR:
		p.next()
		return &ast.FieldExpr{Index: p.parsePrimary()}
	case token.LPAREN:
		p.next()
		save := p.noGT
		p.noGT = false
		p.skipNewlines()
		x := p.parseExpr()
		p.skipNewlines()
		p.noGT = save
		p.expect(token.RPAREN)
		return x
	case token.GETLINE:
		return p.parseGetlinePrefix()
	case token.IDENT:
		save := p.noGT
		p.noGT = false
		x := p.parseIdentOrCall()
		p.noGT = save
		return x
	case token.NOT, token.MINUS, token.PLUS, token.INCR, token.DECR:
		return p.parseUnary()
	default:
		p.errorf("unexpected token %s (%q) at line %d", p.cur.Type, p.cur.Literal, p.cur.Line)
		tok := p.cur
		p.next()
		return &ast.StringLit{Value: tok.Literal}
	}
}

// parseGetlinePrefix parses the getline, getline var, getline < file,
// and getline var < file forms. The cmd | getline [var] forms are
// instead recognized in parseBitOr, since there getline follows a
// pipe expression rather than beginning one.
func (p *Parser) parseGetlinePrefix() ast.Expr {
	p.next() // 'getline'
	g := &ast.Getline{Mode: ast.GetlineSimple}
	if p.curIs(token.IDENT) || p.curIs(token.DOLLAR) {
		g.Target = p.parseLvalueOnly()
		g.Mode = ast.GetlineVar
	}
	if p.curIs(token.LT) {
		p.next()
		g.Source = p.parseConcat()
		if g.Mode == ast.GetlineVar {
			g.Mode = ast.GetlineVarFile
		} else {
			g.Mode = ast.GetlineFile
		}
	}
	return g
}

// parseIdentOrCall handles a bare identifier, array[subscript], or a
// function call foo(args).
func (p *Parser) parseIdentOrCall() ast.Expr {
	name := p.cur.Literal
	p.next()
	switch {
	case p.curIs(token.LBRACKET):
		p.next()
		keys := p.parseExprList(token.RBRACKET)
		p.expect(token.RBRACKET)
		return &ast.IndexExpr{Array: name, Keys: keys}
	case p.curIs(token.LPAREN):
		p.next()
		args := p.parseExprList(token.RPAREN)
		p.expect(token.RPAREN)
		return &ast.Call{Name: name, Args: args}
	default:
		return &ast.Ident{Name: name}
	}
}
