package wasihost_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/logging"
	"github.com/sandrolain/goformula/pkg/wasihost"
)

var (
	buildOnce sync.Once
	wasmBytes []byte
	buildErr  string
)

// loadModule returns the WASI build of cmd/wasm/wasi. GOFORMULA_WASM may
// point at a prebuilt module; otherwise it is built with the local go tool.
func loadModule(t *testing.T) []byte {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping WASI module build in short mode")
	}

	buildOnce.Do(func() {
		if path := os.Getenv("GOFORMULA_WASM"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				buildErr = err.Error()
				return
			}
			wasmBytes = data
			return
		}

		goBin, err := exec.LookPath("go")
		if err != nil {
			buildErr = "go tool not found"
			return
		}
		dir, err := os.MkdirTemp("", "goformula-wasm")
		if err != nil {
			buildErr = err.Error()
			return
		}
		defer os.RemoveAll(dir)

		out := filepath.Join(dir, "goformula.wasm")
		cmd := exec.Command(goBin, "build", "-o", out, "github.com/sandrolain/goformula/cmd/wasm/wasi")
		cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
		if output, err := cmd.CombinedOutput(); err != nil {
			buildErr = err.Error() + ": " + string(output)
			return
		}
		wasmBytes, err = os.ReadFile(out)
		if err != nil {
			buildErr = err.Error()
		}
	})

	if wasmBytes == nil {
		t.Skipf("WASI module not available: %s", buildErr)
	}
	return wasmBytes
}

// native runs req through the in-process engine and passes the response
// through JSON, as the module does.
func native(t *testing.T, req goformula.Request) goformula.Response {
	t.Helper()
	data, err := json.Marshal(goformula.Handle(req))
	require.NoError(t, err)
	var resp goformula.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestHostMatchesNative(t *testing.T) {
	wasm := loadModule(t)
	ctx := context.Background()

	h, err := wasihost.New(ctx, wasm,
		wasihost.WithCompilationCache(wazero.NewCompilationCache()),
		wasihost.WithLogger(logging.Discard()),
	)
	require.NoError(t, err)
	defer h.Close(ctx)

	now := time.Date(2025, 1, 26, 15, 30, 0, 0, time.UTC)
	requests := []goformula.Request{
		{Formula: `=LEN([Name])`, Values: map[string]any{"name": "Sean"}},
		{Formula: `=IF([Age] = 18, "adult", "minor")`, Values: map[string]any{"age": 18}},
		{Formula: `=DATEDIFF("yyyy", "1981-01-26", TODAY())`, Now: now},
		{Formula: `=UPPER("straße") & " " & LOWER("ÀB")`},
		{Formula: `=IF([flag], "yes", "no")`, Values: map[string]any{"flag": 1}},
		{Formula: `=FLOOR(1,234,567.89)`},
		{Formula: `=LEN(NULL())`},
		{Formula: `=LEN([nosuchfield])`},
		{Formula: `=TRIM(1.4)`},
		{Formula: `="unterminated`},
	}

	for _, req := range requests {
		t.Run(req.Formula, func(t *testing.T) {
			got, err := h.Eval(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, native(t, req), got)
		})
	}
}

func TestHostConcurrentCalls(t *testing.T) {
	wasm := loadModule(t)
	ctx := context.Background()

	h, err := wasihost.New(ctx, wasm, wasihost.WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer h.Close(ctx)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.Eval(ctx, goformula.Request{
				Formula: `=[n] & ""`,
				Values:  map[string]any{"n": i},
			})
			if err != nil {
				errs <- err
				return
			}
			if !resp.OK() {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestNewRejectsInvalidModule(t *testing.T) {
	t.Parallel()

	_, err := wasihost.New(context.Background(), []byte("not wasm"))
	assert.Error(t, err)
}
