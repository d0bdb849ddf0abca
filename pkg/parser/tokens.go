package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString // "hello" or 'hello'
	TokenNumber // 123, -1,234.5
	TokenField  // [Field Name]
	TokenIdent  // function name

	// Grouping symbols
	TokenParenOpen  // (
	TokenParenClose // )

	// Basic symbols
	TokenComma // ,

	// Operators
	TokenConcat // &
	TokenEqual  // =
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenString:
		return "(string)"
	case TokenNumber:
		return "(number)"
	case TokenField:
		return "(field)"
	case TokenIdent:
		return "(identifier)"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenComma:
		return ","
	case TokenConcat:
		return "&"
	case TokenEqual:
		return "="
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token in a formula.
type Token struct {
	Type  TokenType // Type of the token
	Value string    // Literal value of the token, without delimiters
	// Position is the character offset of the token's first character,
	// including any opening delimiter.
	Position int
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'(': TokenParenOpen,
	')': TokenParenClose,
	',': TokenComma,
	'&': TokenConcat,
	'=': TokenEqual,
}

const symbol1Count = rune(len(symbols1))

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// isOperator reports whether tt joins two terms.
func isOperator(tt TokenType) bool {
	return tt == TokenConcat || tt == TokenEqual
}
