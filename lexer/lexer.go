// Package lexer turns program source text into a stream of tokens.
package lexer

import (
	"fmt"
	"strings"

	"github.com/calmh/patternrun/token"
)

// Lexer holds our object-state.
type Lexer struct {
	position     int    // current character position
	readPosition int    // next character position
	ch           rune   // current character
	characters   []rune // rune slice of input string

	line   int
	column int

	// lastType records the previous significant token's type, used to
	// disambiguate a leading '/' as division vs. the start of a regex
	// literal.
	lastType token.Type

	// Err holds the first lexical error encountered, if any. The
	// parser checks this after receiving an ERROR token.
	Err error
}

// New creates a Lexer instance from string input.
func New(input string) *Lexer {
	l := &Lexer{characters: []rune(input), line: 1, column: 0}
	l.readChar()
	return l
}

// read one forward character
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.characters) {
		l.ch = rune(0)
	} else {
		l.ch = l.characters[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// NextToken returns the next token, skipping whitespace and comments.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.column
	tok := l.lex()
	tok.Line, tok.Column = line, col

	if tok.Type != token.NEWLINE {
		l.lastType = tok.Type
	}
	return tok
}

func (l *Lexer) lex() token.Token {
	switch l.ch {
	case '\n':
		l.readChar()
		return token.Token{Type: token.NEWLINE, Literal: "\n"}
	case '{':
		return l.single(token.LBRACE)
	case '}':
		return l.single(token.RBRACE)
	case '(':
		return l.single(token.LPAREN)
	case ')':
		return l.single(token.RPAREN)
	case '[':
		return l.single(token.LBRACKET)
	case ']':
		return l.single(token.RBRACKET)
	case ',':
		return l.single(token.COMMA)
	case ';':
		return l.single(token.SEMI)
	case '$':
		return l.single(token.DOLLAR)
	case '?':
		return l.single(token.QUESTION)
	case ':':
		return l.single(token.COLON)
	case '"':
		return l.readString()
	case '~':
		return l.single(token.MATCH)
	case '^':
		return l.single(token.CARET)
	case '+':
		if l.peekChar() == '+' {
			return l.double(token.INCR)
		}
		if l.peekChar() == '=' {
			return l.double(token.PLUSASSIGN)
		}
		return l.single(token.PLUS)
	case '-':
		if l.peekChar() == '-' {
			return l.double(token.DECR)
		}
		if l.peekChar() == '=' {
			return l.double(token.MINUSASSIGN)
		}
		return l.single(token.MINUS)
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			if l.peekChar() == '=' {
				return l.double(token.POWERASSIGN)
			}
			return l.single(token.POWER)
		}
		if l.peekChar() == '=' {
			return l.double(token.STARASSIGN)
		}
		return l.single(token.ASTERISK)
	case '%':
		if l.peekChar() == '=' {
			return l.double(token.PERCENTASSIGN)
		}
		return l.single(token.PERCENT)
	case '&':
		if l.peekChar() == '&' {
			return l.double(token.AND)
		}
		return l.single(token.AMP)
	case '|':
		if l.peekChar() == '|' {
			return l.double(token.OR)
		}
		return l.single(token.PIPE)
	case '!':
		if l.peekChar() == '=' {
			return l.double(token.NE)
		}
		if l.peekChar() == '~' {
			return l.double(token.NOTMATCH)
		}
		return l.single(token.NOT)
	case '=':
		if l.peekChar() == '=' {
			return l.double(token.EQ)
		}
		return l.single(token.ASSIGN)
	case '<':
		if l.peekChar() == '=' {
			return l.double(token.LE)
		}
		if l.peekChar() == '<' {
			return l.double(token.SHL)
		}
		return l.single(token.LT)
	case '>':
		if l.peekChar() == '=' {
			return l.double(token.GE)
		}
		if l.peekChar() == '>' {
			return l.double(token.SHR)
		}
		return l.single(token.GT)
	case '/':
		if l.regexAllowed() {
			return l.readRegex()
		}
		if l.peekChar() == '=' {
			return l.double(token.SLASHASSIGN)
		}
		return l.single(token.SLASH)
	case rune(0):
		return token.Token{Type: token.EOF, Literal: ""}
	default:
		if isDigit(l.ch) {
			return l.readNumberToken()
		}
		if isIdentStart(l.ch) {
			lit := l.readIdentifier()
			return token.Token{Type: token.LookupIdentifier(lit), Literal: lit}
		}
		bad := string(l.ch)
		l.readChar()
		return token.Token{Type: token.ERROR, Literal: "unexpected character " + bad}
	}
}

// regexAllowed reports whether a '/' at the current position begins a
// regex literal (true) or is the division operator (false), based on
// the previous significant token.
func (l *Lexer) regexAllowed() bool {
	switch l.lastType {
	case token.IDENT, token.NUMBER, token.FLOAT, token.STRING, token.RPAREN, token.RBRACKET, token.DOLLAR, token.INCR, token.DECR:
		return false
	default:
		return true
	}
}

func (l *Lexer) single(t token.Type) token.Token {
	lit := string(l.ch)
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

func (l *Lexer) double(t token.Type) token.Token {
	lit := string(l.ch)
	l.readChar()
	lit += string(l.ch)
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

// skipWhitespaceAndComments skips spaces/tabs/carriage-returns and
// '#' line comments. Newlines are significant and are returned as
// tokens by the caller, so they are not skipped here.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for isHorizontalSpace(l.ch) {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != rune(0) {
				l.readChar()
			}
			continue
		}
		// a backslash immediately before a newline is a line
		// continuation: swallow both.
		if l.ch == '\\' && l.peekChar() == '\n' {
			l.readChar()
			l.readChar()
			continue
		}
		break
	}
}

// readNumberToken reads an integer or floating literal, with an
// optional fractional part and an optional e/E exponent.
func (l *Lexer) readNumberToken() token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := l.position
		saveRead := l.readPosition
		saveCh := l.ch
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if isDigit(l.ch) {
			isFloat = true
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			// not an exponent after all; rewind
			l.position, l.readPosition, l.ch = save, saveRead, saveCh
		}
	}
	lit := string(l.characters[start:l.position])
	if isFloat {
		return token.Token{Type: token.FLOAT, Literal: lit}
	}
	return token.Token{Type: token.NUMBER, Literal: lit}
}

// readString reads a double-quoted string literal, processing
// backslash escapes \n \t \\ \" \/.
func (l *Lexer) readString() token.Token {
	l.readChar() // consume opening quote
	var b strings.Builder
	for l.ch != '"' {
		if l.ch == rune(0) {
			l.Err = fmt.Errorf("unterminated string literal at line %d", l.line)
			return token.Token{Type: token.ERROR, Literal: l.Err.Error()}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case '\\':
				b.WriteRune('\\')
			case '"':
				b.WriteRune('"')
			case '/':
				b.WriteRune('/')
			default:
				l.Err = fmt.Errorf("invalid escape sequence \\%c at line %d", l.ch, l.line)
				return token.Token{Type: token.ERROR, Literal: l.Err.Error()}
			}
			l.readChar()
			continue
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return token.Token{Type: token.STRING, Literal: b.String()}
}

// readRegex reads a /.../ regex literal. A backslash escapes the
// following character, most importantly an embedded '/'.
func (l *Lexer) readRegex() token.Token {
	l.readChar() // consume opening slash
	var b strings.Builder
	for l.ch != '/' {
		if l.ch == rune(0) || l.ch == '\n' {
			l.Err = fmt.Errorf("unterminated regex literal at line %d", l.line)
			return token.Token{Type: token.ERROR, Literal: l.Err.Error()}
		}
		if l.ch == '\\' {
			b.WriteRune(l.ch)
			l.readChar()
			b.WriteRune(l.ch)
			l.readChar()
			continue
		}
		b.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing slash
	return token.Token{Type: token.REGEX, Literal: b.String()}
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.characters) {
		return rune(0)
	}
	return l.characters[l.readPosition]
}

func isHorizontalSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\r'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// readIdentifier reads a run of identifier characters.
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return string(l.characters[start:l.position])
}
