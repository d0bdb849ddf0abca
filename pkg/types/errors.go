package types

import "fmt"

// ErrorKind is the closed set of formula error categories.
type ErrorKind uint8

// Error kinds. ErrNone marks a successful result.
const (
	ErrNone ErrorKind = iota
	// ErrInvalidFormula covers arity, required-argument and unresolvable-name
	// problems, found either while parsing or while a function checks its
	// own arguments.
	ErrInvalidFormula
	ErrNotANumber
	ErrDivisionByZero
	// ErrRecursion is reserved for cyclic formula detection.
	ErrRecursion
	// ErrInvalidValue means a value was present but failed semantic
	// validation, e.g. an unparsable date or an unsupported option.
	ErrInvalidValue
)

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrInvalidFormula:
		return "invalid formula"
	case ErrNotANumber:
		return "not a number"
	case ErrDivisionByZero:
		return "division by zero"
	case ErrRecursion:
		return "recursion"
	case ErrInvalidValue:
		return "invalid value"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Token returns the short spreadsheet-style token shown when a failed
// result is rendered as text.
func (k ErrorKind) Token() string {
	switch k {
	case ErrNone:
		return ""
	case ErrInvalidFormula:
		return "#NAME?"
	case ErrNotANumber:
		return "#NUM!"
	case ErrDivisionByZero:
		return "#DIV/0!"
	case ErrRecursion:
		return "#CIRC!"
	case ErrInvalidValue:
		return "#VALUE!"
	default:
		return "#ERROR!"
	}
}

// Error is a positioned formula error. The parser returns it for every
// parse failure.
type Error struct {
	Kind     ErrorKind
	Message  string
	Position int // character offset in the formula text, -1 if unknown
	Token    string
	Err      error
}

// NewError creates a new formula error.
func NewError(kind ErrorKind, message string, position int) *Error {
	return &Error{
		Kind:     kind,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Result converts the error into a failed evaluation result.
func (e *Error) Result() Result {
	return Failure(e.Kind, e.Message)
}
