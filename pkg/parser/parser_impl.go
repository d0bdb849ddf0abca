package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/types"
)

// Parser implements a recursive descent parser for formulas.
//
// A Parser holds the cursor and depth state of a single parse and is not
// reentrant; Parse creates a fresh one per call.
type Parser struct {
	lexer   *Lexer
	input   string
	current Token
	prev    Token
	depth   int
	opts    CompileOptions
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth:  DefaultMaxDepth,
		MaxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Parser{
		lexer: NewLexer(input),
		input: input,
		opts:  options,
	}
}

// Parse parses the entire formula and returns it ready for evaluation.
func (p *Parser) Parse() (*evaluator.Formula, error) {
	if n := utf8.RuneCountInString(p.input); p.opts.MaxLength > 0 && n > p.opts.MaxLength {
		return nil, p.errorAt(p.opts.MaxLength, "formula exceeds %d characters", p.opts.MaxLength)
	}

	// Read the first token
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.current.Type == TokenEOF {
		return nil, p.errorf("empty formula")
	}

	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.current.Type != TokenEOF {
		return nil, p.unexpected()
	}

	return evaluator.NewFormula(node, p.input), nil
}

// advance moves to the next token. Lexer errors are returned as is.
func (p *Parser) advance() error {
	p.prev = p.current
	p.current = p.lexer.Next()
	if p.current.Type == TokenError {
		return p.lexer.Error()
	}
	return nil
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType, format string, args ...any) error {
	if p.current.Type != tt {
		return p.errorf(format, args...)
	}
	return p.advance()
}

// errorf creates a parser error at the current token.
func (p *Parser) errorf(format string, args ...any) error {
	return p.errorAt(p.current.Position, format, args...)
}

// errorAt creates a parser error at the given character offset.
func (p *Parser) errorAt(pos int, format string, args ...any) error {
	return types.NewError(types.ErrInvalidFormula, fmt.Sprintf(format, args...), pos).
		WithToken(p.current.Value)
}

// unexpected reports the current token as out of place.
func (p *Parser) unexpected() error {
	if p.current.Type == TokenEOF {
		return p.errorf("unexpected end of formula")
	}
	return p.errorf("unexpected token %s", describe(p.current))
}

// parseExpression parses a term optionally followed by a chain of one
// binary operator kind:
//
//	expression := term ( ('&' term)* | ('=' term)* )
func (p *Parser) parseExpression() (evaluator.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.opts.MaxDepth {
		return nil, p.errorf("formula nesting exceeds %d levels", p.opts.MaxDepth)
	}

	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if !isOperator(p.current.Type) {
		return first, nil
	}

	op := p.current.Type
	operands := []evaluator.Node{first}
	for p.current.Type == op {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}

	// Mixing operators requires parentheses.
	if isOperator(p.current.Type) {
		return nil, p.unexpected()
	}

	if op == TokenConcat {
		return evaluator.NewConcat(operands, first.Pos()), nil
	}
	return evaluator.NewEquals(operands, first.Pos()), nil
}

// parseTerm parses a single operand.
func (p *Parser) parseTerm() (evaluator.Node, error) {
	tok := p.current

	switch tok.Type {
	case TokenParenOpen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose, "missing ')' for '(' at position %d", tok.Position); err != nil {
			return nil, err
		}
		return node, nil

	case TokenField:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return evaluator.NewFieldRef(tok.Value, tok.Position), nil

	case TokenString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return evaluator.NewLiteral(tok.Value, tok.Position), nil

	case TokenNumber:
		value, err := p.parseNumber(tok)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return evaluator.NewLiteral(value, tok.Position), nil

	case TokenIdent:
		return p.parseCall()

	default:
		return nil, p.unexpected()
	}
}

// parseNumber converts a number token. Whole numbers become int64, the
// rest float64.
func (p *Parser) parseNumber(tok Token) (any, error) {
	s := strings.ReplaceAll(tok.Value, ",", "")
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, "0123456789") {
		return f, nil
	}
	return nil, p.errorAt(tok.Position, "malformed number %q", tok.Value)
}

// parseCall parses a function call:
//
//	identifier '(' ( expression (',' expression)* )? ')'
func (p *Parser) parseCall() (evaluator.Node, error) {
	name := p.current
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenOpen, "expected '(' after %s", name.Value); err != nil {
		return nil, err
	}

	var args []evaluator.Node
	if p.current.Type == TokenParenClose {
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.current.Type == TokenComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			if err := p.expect(TokenParenClose, "expected ',' or ')' in call to %s", name.Value); err != nil {
				return nil, err
			}
			break
		}
	}

	if def, ok := evaluator.LookupFunction(name.Value); ok && def.Check != nil {
		if err := def.Check(args); err != nil {
			pos := name.Position
			if ae, ok := evaluator.AsArgumentError(err); ok && ae.Arg != nil {
				pos = ae.Arg.Pos()
			}
			return nil, types.NewError(types.ErrInvalidFormula, err.Error(), pos).WithCause(err)
		}
	}

	return evaluator.NewCall(name.Value, args, name.Position), nil
}

func describe(t Token) string {
	switch t.Type {
	case TokenString, TokenNumber, TokenIdent:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	case TokenField:
		return fmt.Sprintf("[%s]", t.Value)
	default:
		return fmt.Sprintf("%q", t.Type.String())
	}
}
