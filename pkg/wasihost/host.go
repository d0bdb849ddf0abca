// Package wasihost runs the goformula WASI module (cmd/wasm/wasi) inside a
// wazero runtime, so that the sandboxed build can be driven from Go and
// checked against the native engine.
//
// The module is compiled once. Every Eval instantiates it afresh with the
// request on stdin and decodes the response from stdout, which keeps calls
// independent of each other.
//
// # Example
//
//	wasm, _ := os.ReadFile("goformula.wasm")
//	h, err := wasihost.New(ctx, wasm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//	resp, err := h.Eval(ctx, goformula.Request{Formula: `=LEN("Sean")`})
package wasihost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/sandrolain/goformula"
)

// Host evaluates formulas through a compiled WASI module.
//
// Safe for concurrent use by multiple goroutines.
type Host struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	logger   *slog.Logger
}

// Options configures a Host.
type Options struct {
	// RuntimeConfig is the wazero runtime configuration. Defaults to
	// wazero.NewRuntimeConfig().
	RuntimeConfig wazero.RuntimeConfig
	// Logger receives module stderr and call diagnostics.
	Logger *slog.Logger
}

// Option configures a Host.
type Option func(*Options)

// WithRuntimeConfig sets a custom wazero runtime configuration.
func WithRuntimeConfig(cfg wazero.RuntimeConfig) Option {
	return func(opts *Options) {
		opts.RuntimeConfig = cfg
	}
}

// WithCompilationCache shares compiled code between hosts.
func WithCompilationCache(cache wazero.CompilationCache) Option {
	return func(opts *Options) {
		if opts.RuntimeConfig == nil {
			opts.RuntimeConfig = wazero.NewRuntimeConfig()
		}
		opts.RuntimeConfig = opts.RuntimeConfig.WithCompilationCache(cache)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// New compiles wasm and prepares a runtime with WASI preview 1.
func New(ctx context.Context, wasm []byte, opts ...Option) (*Host, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if options.RuntimeConfig == nil {
		options.RuntimeConfig = wazero.NewRuntimeConfig()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	r := wazero.NewRuntimeWithConfig(ctx, options.RuntimeConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiating WASI: %w", err)
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("compiling module: %w", err)
	}

	return &Host{
		runtime:  r,
		compiled: compiled,
		logger:   options.Logger,
	}, nil
}

// Eval runs one request through the module. The error is non-nil only when
// the module could not be run or its output could not be decoded;
// formula problems are reported in the response.
func (h *Host) Eval(ctx context.Context, req goformula.Request) (goformula.Response, error) {
	in, err := json.Marshal(req)
	if err != nil {
		return goformula.Response{}, fmt.Errorf("encoding request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStdin(bytes.NewReader(in)).
		WithStdout(&stdout).
		WithStderr(&stderr)

	mod, err := h.runtime.InstantiateModule(ctx, h.compiled, cfg)
	if mod != nil {
		defer mod.Close(ctx)
	}
	if stderr.Len() > 0 {
		h.logger.Debug("module stderr", "output", stderr.String())
	}
	if err != nil {
		// The module exits non-zero when it reports an error response.
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || stdout.Len() == 0 {
			return goformula.Response{}, fmt.Errorf("running module: %w", err)
		}
		h.logger.Debug("module exited", "code", exitErr.ExitCode())
	}

	var resp goformula.Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return goformula.Response{}, fmt.Errorf("decoding response: %w", err)
	}
	return resp, nil
}

// Close releases the runtime and everything compiled in it.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}
