package goformula

import (
	"log/slog"
	"time"

	"github.com/sandrolain/goformula/pkg/cache"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/record"
	"github.com/sandrolain/goformula/pkg/schema"
	"github.com/sandrolain/goformula/pkg/types"
)

// DefaultCacheSize is the number of parsed formulas an Engine keeps.
const DefaultCacheSize = 256

// Engine parses formulas through an LRU cache and evaluates them against
// plain values, schemas and records.
//
// Safe for concurrent use by multiple goroutines.
type Engine struct {
	cache      *cache.Cache
	logger     *slog.Logger
	clock      func() time.Time
	parserOpts []parser.CompileOption
}

// Options configures an Engine.
type Options struct {
	// CacheSize is the parsed-formula cache capacity.
	CacheSize int
	// Logger receives debug diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Clock supplies the current time to TODAY, NOW and placeholders.
	Clock func() time.Time
	// ParserOptions are applied to every parse.
	ParserOptions []parser.CompileOption
}

// Option configures an Engine.
type Option func(*Options)

// WithCacheSize sets the parsed-formula cache capacity.
func WithCacheSize(n int) Option {
	return func(opts *Options) {
		opts.CacheSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithClock sets the clock handed to every environment.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithParserOptions sets parser limits used for every parse.
func WithParserOptions(opts ...parser.CompileOption) Option {
	return func(o *Options) {
		o.ParserOptions = append(o.ParserOptions, opts...)
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	options := Options{
		CacheSize: DefaultCacheSize,
		Clock:     time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}

	return &Engine{
		cache:      cache.New(options.CacheSize),
		logger:     options.Logger,
		clock:      options.Clock,
		parserOpts: options.ParserOptions,
	}
}

// Compile returns the parsed formula for text, parsing it on a cache miss.
// Parse failures are not cached.
func (e *Engine) Compile(text string) (*evaluator.Formula, error) {
	return e.cache.GetOrCompile(text, func() (*evaluator.Formula, error) {
		f, err := parser.Parse(text, e.parserOpts...)
		if err != nil {
			e.logger.Debug("formula rejected", "formula", text, "error", err)
			return nil, err
		}
		e.logger.Debug("formula compiled", "formula", text, "fields", f.Fields())
		return f, nil
	})
}

// Evaluate parses text (cached) and evaluates it against values.
func (e *Engine) Evaluate(text string, values map[string]any) (types.Result, error) {
	f, err := e.Compile(text)
	if err != nil {
		return types.Result{}, err
	}
	env, err := evaluator.FromValues(values, e.envOptions()...)
	if err != nil {
		return types.Result{}, err
	}
	return f.Evaluate(env), nil
}

// Validate checks a formula against a schema without live data. It parses
// text and evaluates it against placeholder values for every declared
// field. A formula that references an undeclared field, calls an unknown
// function or mixes incompatible types yields a failed result.
func (e *Engine) Validate(text string, s *schema.Schema) (types.Result, error) {
	f, err := e.Compile(text)
	if err != nil {
		return types.Result{}, err
	}
	if s == nil {
		return f.Evaluate(evaluator.NewEnvironment(e.envOptions()...)), nil
	}
	return f.Evaluate(evaluator.FromSchema(s, e.envOptions()...)), nil
}

// Compute evaluates every formula field of s against t and returns the
// results keyed by field name. Formula fields see other formula fields as
// unset. A formula that does not parse yields an invalid-formula failure.
func (e *Engine) Compute(s *schema.Schema, t *record.Thing) map[string]types.Result {
	if s == nil || t == nil {
		return map[string]types.Result{}
	}
	fields := s.FormulaFields()
	out := make(map[string]types.Result, len(fields))
	if len(fields) == 0 {
		return out
	}

	env := evaluator.FromRecord(s, t, e.envOptions()...)
	for _, field := range fields {
		f, err := e.Compile(field.Formula)
		if err != nil {
			e.logger.Warn("formula field does not parse",
				"schema", s.Name,
				"field", field.Name,
				"error", err,
			)
			out[field.Name] = types.Failure(types.ErrInvalidFormula, err.Error())
			continue
		}
		out[field.Name] = f.Evaluate(env)
	}
	return out
}

// CacheStats returns the parsed-formula cache hits and misses.
func (e *Engine) CacheStats() (hits, misses uint64) {
	return e.cache.Stats()
}

func (e *Engine) envOptions() []evaluator.EnvOption {
	return []evaluator.EnvOption{
		evaluator.WithClock(e.clock),
		evaluator.WithLogger(e.logger),
	}
}
