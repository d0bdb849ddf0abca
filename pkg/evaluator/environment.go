package evaluator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// ErrDuplicateKey is returned by FromValues when two keys differ only in case.
var ErrDuplicateKey = errors.New("duplicate field name")

// Environment is the case-insensitive name to result lookup a formula is
// evaluated against. Names are lower-cased on insertion and lookup.
//
// An Environment is seeded before evaluation (constructors and AddIfAbsent)
// and only read afterwards; it is safe for concurrent reads.
type Environment struct {
	values map[string]types.Result
	clock  func() time.Time
	logger *slog.Logger
}

// EnvOptions configures environment construction.
type EnvOptions struct {
	// Clock supplies the current time to TODAY, NOW and date placeholders.
	// Defaults to time.Now.
	Clock func() time.Time
	// Logger receives construction diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// EnvOption configures environment construction.
type EnvOption func(*EnvOptions)

// WithClock sets the clock used by date functions.
func WithClock(clock func() time.Time) EnvOption {
	return func(opts *EnvOptions) {
		opts.Clock = clock
	}
}

// WithFixedTime makes the clock always return t.
func WithFixedTime(t time.Time) EnvOption {
	return WithClock(func() time.Time { return t })
}

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(logger *slog.Logger) EnvOption {
	return func(opts *EnvOptions) {
		opts.Logger = logger
	}
}

// NewEnvironment creates an empty environment, for formulas that reference
// no fields.
func NewEnvironment(opts ...EnvOption) *Environment {
	options := EnvOptions{
		Clock: time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Environment{
		values: make(map[string]types.Result),
		clock:  options.Clock,
		logger: options.Logger,
	}
}

// FromValues creates an environment from arbitrary key/value input. Keys
// must be unique case-insensitively. Values that are already a
// types.Result are stored as is; anything else is stored as a success.
func FromValues(values map[string]any, opts ...EnvOption) (*Environment, error) {
	env := NewEnvironment(opts...)

	originals := make(map[string]string, len(values))
	for name, v := range values {
		key := normalizeName(name)
		if prev, dup := originals[key]; dup {
			a, b := prev, name
			if b < a {
				a, b = b, a
			}
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateKey, a, b)
		}
		originals[key] = name

		if r, ok := v.(types.Result); ok {
			env.values[key] = r
		} else {
			env.values[key] = types.Success(v)
		}
	}
	return env, nil
}

// AddIfAbsent stores r under name unless the name is already present.
// It reports whether r was stored.
func (e *Environment) AddIfAbsent(name string, r types.Result) bool {
	key := normalizeName(name)
	if _, ok := e.values[key]; ok {
		return false
	}
	e.values[key] = r
	return true
}

// set stores r under name, replacing any existing entry.
func (e *Environment) set(name string, r types.Result) {
	e.values[normalizeName(name)] = r
}

// Lookup returns the result stored under name. Unknown names yield an
// invalid-formula failure.
func (e *Environment) Lookup(name string) types.Result {
	if r, ok := e.values[normalizeName(name)]; ok {
		return r
	}
	return types.Failuref(types.ErrInvalidFormula, "unknown field %q", name)
}

// Has reports whether name is present.
func (e *Environment) Has(name string) bool {
	_, ok := e.values[normalizeName(name)]
	return ok
}

// Names returns the normalized names in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (e *Environment) Len() int {
	return len(e.values)
}

// Now returns the current time according to the environment's clock.
func (e *Environment) Now() time.Time {
	return e.clock()
}

// String returns a short description of the environment.
func (e *Environment) String() string {
	return fmt.Sprintf("Environment{fields=%d}", len(e.values))
}

func normalizeName(name string) string {
	return strings.ToLower(name)
}
