package lexer

import (
	"testing"

	"github.com/calmh/patternrun/token"
)

func collect(input string) []token.Token {
	l := New(input)
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return out
}

func TestNumbers(t *testing.T) {
	input := `3 43 3.14 2.5e10 1E-3`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.NUMBER, "3"},
		{token.NUMBER, "43"},
		{token.FLOAT, "3.14"},
		{token.FLOAT, "2.5e10"},
		{token.FLOAT, "1E-3"},
		{token.EOF, ""},
	}
	toks := collect(input)
	for i, tt := range tests {
		if toks[i].Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong, expected=%q, got=%q", i, tt.expectedType, toks[i].Type)
		}
		if toks[i].Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - Literal wrong, expected=%q, got=%q", i, tt.expectedLiteral, toks[i].Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	// '/' follows an identifier so it lexes as division, not a regex
	input := `+ - * x / % ** == != <= >= << >> && || !`

	tests := []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.IDENT, token.SLASH, token.PERCENT,
		token.POWER, token.EQ, token.NE, token.LE, token.GE, token.SHL, token.SHR,
		token.AND, token.OR, token.NOT, token.EOF,
	}
	toks := collect(input)
	for i, tt := range tests {
		if toks[i].Type != tt {
			t.Fatalf("tests[%d] - tokentype wrong, expected=%q, got=%q", i, tt, toks[i].Type)
		}
	}
}

func TestStringLiteral(t *testing.T) {
	toks := collect(`"hello\nworld"`)
	if toks[0].Type != token.STRING {
		t.Fatalf("expected STRING, got %q", toks[0].Type)
	}
	if toks[0].Literal != "hello\nworld" {
		t.Fatalf("expected escaped literal, got %q", toks[0].Literal)
	}
}

func TestRegexVsDivision(t *testing.T) {
	// after '(' a '/' starts a regex
	toks := collect(`/abc/`)
	if toks[0].Type != token.REGEX || toks[0].Literal != "abc" {
		t.Fatalf("expected regex literal 'abc', got %v", toks[0])
	}

	// after an identifier a '/' is division
	toks = collect(`x / 2`)
	if toks[0].Type != token.IDENT {
		t.Fatalf("expected IDENT, got %q", toks[0].Type)
	}
	if toks[1].Type != token.SLASH {
		t.Fatalf("expected division SLASH, got %q", toks[1].Type)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := collect(`BEGIN END function if else while for foo_bar`)
	expected := []token.Type{
		token.BEGIN, token.END, token.FUNCTION, token.IF, token.ELSE,
		token.WHILE, token.FOR, token.IDENT, token.EOF,
	}
	for i, tt := range expected {
		if toks[i].Type != tt {
			t.Fatalf("tests[%d] - tokentype wrong, expected=%q, got=%q", i, tt, toks[i].Type)
		}
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := New(`"unterminated`)
	tok := l.NextToken()
	if tok.Type != token.ERROR {
		t.Fatalf("expected ERROR, got %q", tok.Type)
	}
	if l.Err == nil {
		t.Fatalf("expected l.Err to be set")
	}
}

func TestComment(t *testing.T) {
	toks := collect("1 # a comment\n2")
	if toks[0].Type != token.NUMBER || toks[0].Literal != "1" {
		t.Fatalf("unexpected first token: %v", toks[0])
	}
	if toks[1].Type != token.NEWLINE {
		t.Fatalf("expected NEWLINE after comment, got %v", toks[1])
	}
	if toks[2].Type != token.NUMBER || toks[2].Literal != "2" {
		t.Fatalf("unexpected third token: %v", toks[2])
	}
}
