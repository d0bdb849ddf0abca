package evaluator

import (
	"hash/fnv"
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// Node is an expression tree node. Evaluate must be free of side effects:
// the result depends only on the node and the environment.
type Node interface {
	// Evaluate computes the node's value against env.
	Evaluate(env *Environment) types.Result
	// Pos returns the character offset of the node in the formula text.
	Pos() int
	// String renders the node back to formula syntax.
	String() string
}

// parent is implemented by nodes that own child nodes.
type parent interface {
	children() []Node
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if p, ok := n.(parent); ok {
		for _, c := range p.children() {
			Walk(c, fn)
		}
	}
}

// --- Literal ---

// Literal is a constant captured at parse time: nil, string, int64 or
// float64.
type Literal struct {
	value any
	pos   int
}

// NewLiteral creates a literal node. Go numeric values are widened to
// int64 or float64.
func NewLiteral(value any, pos int) *Literal {
	return &Literal{value: types.Normalize(value), pos: pos}
}

// Value returns the constant.
func (l *Literal) Value() any {
	return l.value
}

// Evaluate returns the constant as a successful result.
func (l *Literal) Evaluate(*Environment) types.Result {
	return types.Success(l.value)
}

// Pos returns the literal's offset.
func (l *Literal) Pos() int {
	return l.pos
}

// Equal reports whether both literals wrap equal, non-absent constants.
// Two absent literals are never equal.
func (l *Literal) Equal(other *Literal) bool {
	if l == nil || other == nil {
		return false
	}
	return types.ValuesEqual(l.value, other.value)
}

// Hash returns a hash of the wrapped constant consistent with Equal.
// Absent literals hash to zero.
func (l *Literal) Hash() uint64 {
	if l.value == nil {
		return 0
	}
	v := l.value
	h := fnv.New64a()
	switch x := v.(type) {
	case string:
		h.Write([]byte{'s'})
	case int64:
		h.Write([]byte{'i'})
	case float64:
		h.Write([]byte{'f'})
		// -0 equals 0.
		if x == 0 {
			v = 0.0
		}
	default:
		h.Write([]byte{'?'})
	}
	h.Write([]byte(types.FormatValue(v)))
	return h.Sum64()
}

// String renders the literal in formula syntax.
func (l *Literal) String() string {
	switch v := l.value.(type) {
	case nil:
		return "NULL()"
	case string:
		if strings.ContainsRune(v, '"') {
			return "'" + v + "'"
		}
		return `"` + v + `"`
	default:
		return types.FormatValue(v)
	}
}

// --- FieldRef ---

// FieldRef reads a field from the environment.
type FieldRef struct {
	name string
	key  string
	pos  int
}

// NewFieldRef creates a field reference node.
func NewFieldRef(name string, pos int) *FieldRef {
	return &FieldRef{name: name, key: normalizeName(name), pos: pos}
}

// Name returns the field name as written.
func (f *FieldRef) Name() string {
	return f.name
}

// Evaluate returns the environment entry verbatim, or an invalid-formula
// failure when the field is unknown.
func (f *FieldRef) Evaluate(env *Environment) types.Result {
	return env.Lookup(f.name)
}

// Pos returns the reference's offset.
func (f *FieldRef) Pos() int {
	return f.pos
}

// String renders the reference in formula syntax.
func (f *FieldRef) String() string {
	return "[" + f.name + "]"
}

// --- Call ---

// Call invokes a registered function. Arguments are passed to the function
// unevaluated.
type Call struct {
	name string
	args []Node
	pos  int
}

// NewCall creates a function call node. The call takes ownership of args.
func NewCall(name string, args []Node, pos int) *Call {
	return &Call{name: name, args: args, pos: pos}
}

// Name returns the function name as written.
func (c *Call) Name() string {
	return c.name
}

// Args returns the argument nodes. Callers must not modify the slice.
func (c *Call) Args() []Node {
	return c.args
}

// Evaluate resolves the function and applies it to the raw arguments.
func (c *Call) Evaluate(env *Environment) types.Result {
	def, ok := LookupFunction(c.name)
	if !ok {
		return types.Failuref(types.ErrInvalidFormula, "unknown function %q", c.name)
	}
	return def.Impl(env, c.args)
}

// Pos returns the call's offset.
func (c *Call) Pos() int {
	return c.pos
}

// String renders the call in formula syntax.
func (c *Call) String() string {
	var b strings.Builder
	b.WriteString(c.name)
	b.WriteByte('(')
	for i, a := range c.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (c *Call) children() []Node {
	return c.args
}

// --- Concat ---

// Concat joins the textual forms of its operands (the & operator).
type Concat struct {
	operands []Node
	pos      int
}

// NewConcat creates a concatenation node. The node takes ownership of
// operands.
func NewConcat(operands []Node, pos int) *Concat {
	return &Concat{operands: operands, pos: pos}
}

// Operands returns the operand nodes.
func (c *Concat) Operands() []Node {
	return c.operands
}

// Evaluate concatenates the operands. The first failed operand is
// returned; absent operands contribute nothing.
func (c *Concat) Evaluate(env *Environment) types.Result {
	return concatenate(env, c.operands)
}

// Pos returns the node's offset.
func (c *Concat) Pos() int {
	return c.pos
}

// String renders the node in formula syntax.
func (c *Concat) String() string {
	return joinOperands(c.operands, " & ")
}

func (c *Concat) children() []Node {
	return c.operands
}

func concatenate(env *Environment, operands []Node) types.Result {
	var b strings.Builder
	for _, op := range operands {
		r := op.Evaluate(env)
		if !r.OK() {
			return r
		}
		if r.IsAbsent() {
			continue
		}
		s, _ := types.ToText(r)
		b.WriteString(s)
	}
	return types.Success(b.String())
}

// --- Equals ---

// Equals compares its operands (the = operator). It is true when every
// operand equals the first.
type Equals struct {
	operands []Node
	pos      int
}

// NewEquals creates an equality node. The node takes ownership of operands.
func NewEquals(operands []Node, pos int) *Equals {
	return &Equals{operands: operands, pos: pos}
}

// Operands returns the operand nodes.
func (e *Equals) Operands() []Node {
	return e.operands
}

// Evaluate compares the operands after coercion. The first failed operand
// is returned.
func (e *Equals) Evaluate(env *Environment) types.Result {
	if len(e.operands) == 0 {
		return types.Failure(types.ErrInvalidFormula, "comparison without operands")
	}
	first := e.operands[0].Evaluate(env)
	if !first.OK() {
		return first
	}
	equal := true
	for _, op := range e.operands[1:] {
		r := op.Evaluate(env)
		if !r.OK() {
			return r
		}
		if equal && !compareEqual(first, r) {
			equal = false
		}
	}
	return types.Success(equal)
}

// Pos returns the node's offset.
func (e *Equals) Pos() int {
	return e.pos
}

// String renders the node in formula syntax.
func (e *Equals) String() string {
	return joinOperands(e.operands, " = ")
}

func (e *Equals) children() []Node {
	return e.operands
}

// compareEqual compares two successful results using the function coercion
// rules. Absent values never compare equal.
func compareEqual(a, b types.Result) bool {
	if a.IsAbsent() || b.IsAbsent() {
		return false
	}
	av, bv := a.Value(), b.Value()

	if isNumber(av) || isNumber(bv) {
		x, okA := types.ToNumber(a)
		y, okB := types.ToNumber(b)
		if okA && okB {
			return x == y
		}
	}
	if _, ok := av.(bool); ok {
		return compareBools(a, b)
	}
	if _, ok := bv.(bool); ok {
		return compareBools(a, b)
	}
	if isTime(av) || isTime(bv) {
		x, okA := types.ToTime(a)
		y, okB := types.ToTime(b)
		return okA && okB && x.Equal(y)
	}

	x, okA := types.ToText(a)
	y, okB := types.ToText(b)
	return okA && okB && x == y
}

func compareBools(a, b types.Result) bool {
	x, okA := types.ToBool(a)
	y, okB := types.ToBool(b)
	return okA && okB && x == y
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func joinOperands(operands []Node, sep string) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
