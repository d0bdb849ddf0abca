package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/goformula/pkg/types"
)

const eof = -1

// Token size limits, in characters.
const (
	MaxFieldNameLength  = 256
	MaxStringLength     = 8192
	MaxIdentifierLength = 256
	MaxNumberLength     = 64
)

// Lexer converts a formula into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
//
// Byte offsets index the input; token positions are reported in characters.
type Lexer struct {
	input     string // Input string being scanned
	length    int    // Length of input string
	start     int    // Start byte of current token
	current   int    // Current byte in input
	startChar int    // Start character of current token
	char      int    // Current character in input
	width     int    // Width of last rune read
	err       error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string. A single
// leading '=' is skipped; positions still refer to the full input.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		length: len(input),
	}
	if l.acceptRune('=') {
		l.ignore()
	}
	return l
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all
// subsequent calls. After an error, Next returns TokenError.
func (l *Lexer) Next() Token {
	if l.err != nil {
		return Token{Type: TokenError, Position: l.startChar}
	}

	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	switch {
	case ch == '"' || ch == '\'':
		return l.scanDelimited(TokenString, ch, MaxStringLength, "string literal")
	case ch == '[':
		return l.scanDelimited(TokenField, ']', MaxFieldNameLength, "field name")
	case ch == '-' || ch == '.' || isDigit(ch):
		l.backup()
		return l.scanNumber()
	case unicode.IsLetter(ch):
		l.backup()
		return l.scanIdent()
	}

	return l.errorf(l.startChar, "unexpected character %q", ch)
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanDelimited reads a string literal or a field name. The opening
// delimiter has already been consumed. There are no escape sequences:
// the content runs up to the first closing delimiter.
func (l *Lexer) scanDelimited(tt TokenType, closing rune, limit int, what string) Token {
	open := l.startChar
	l.ignore()

	n := 0
	for {
		ch := l.nextRune()
		if ch == closing {
			break
		}
		if ch == eof {
			return l.errorf(open, "unterminated %s", what)
		}
		n++
		if n > limit {
			return l.errorf(open+1+limit, "%s exceeds %d characters", what, limit)
		}
	}

	l.backup()
	t := l.newToken(tt)
	t.Position = open
	l.acceptRune(closing)
	l.ignore()

	if tt == TokenField && t.Value == "" {
		return l.errorf(open, "empty field name")
	}
	return t
}

// scanNumber reads a number literal from the current position.
// Format: -?[0-9.]+ with ',' thousands separators before the decimal point.
// A comma belongs to the number only when exactly three digits and then a
// non-digit follow it. Malformed tokens such as "1.2.3" are returned as is
// and rejected by the parser.
func (l *Lexer) scanNumber() Token {
	l.acceptRune('-')

	seenDot := false
Loop:
	for {
		ch := l.nextRune()
		switch {
		case isDigit(ch):
		case ch == '.':
			seenDot = true
		case ch == ',' && !seenDot && l.digitGroupFollows():
		default:
			l.backup()
			break Loop
		}
		if l.char-l.startChar > MaxNumberLength {
			return l.errorf(l.startChar+MaxNumberLength, "number exceeds %d characters", MaxNumberLength)
		}
	}

	return l.newToken(TokenNumber)
}

// digitGroupFollows reports whether the input at the current position is
// exactly three digits followed by a non-digit or the end of the input.
func (l *Lexer) digitGroupFollows() bool {
	rest := l.input[l.current:]
	if len(rest) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if !isDigit(rune(rest[i])) {
			return false
		}
	}
	return len(rest) == 3 || !isDigit(rune(rest[3]))
}

// scanIdent reads a function name: a letter followed by letters, digits,
// '_' or '.'.
func (l *Lexer) scanIdent() Token {
	for l.accept(isIdentRune) {
		if l.char-l.startChar > MaxIdentifierLength {
			return l.errorf(l.startChar+MaxIdentifierLength, "identifier exceeds %d characters", MaxIdentifierLength)
		}
	}
	return l.newToken(TokenIdent)
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.char,
	}
}

func (l *Lexer) errorf(pos int, format string, args ...any) Token {
	t := l.newToken(TokenError)
	t.Position = pos
	l.err = types.NewError(types.ErrInvalidFormula, fmt.Sprintf(format, args...), pos).WithToken(t.Value)
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.startChar,
	}
	l.width = 0
	l.start = l.current
	l.startChar = l.char
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	l.char++
	return r
}

func (l *Lexer) backup() {
	if l.width == 0 {
		return
	}
	l.current -= l.width
	l.char--
	l.width = 0
}

func (l *Lexer) ignore() {
	l.start = l.current
	l.startChar = l.char
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) skipWhitespace() {
	l.acceptAll(unicode.IsSpace)
	l.ignore()
}

// Character classification functions

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}
