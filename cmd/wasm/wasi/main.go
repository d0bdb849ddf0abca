//go:build wasip1

// Command goformula-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin, single JSON object on stdout.
//
//	stdin:  { "formula": "<formula>", "values": { "<field>": <value>, ... }, "now": "<RFC3339>" }
//	stdout: { "result": <value>, "display": "<text>" }                                  on success
//	        { "result": null, "display": "#VALUE!", "kind": "...", "message": "..." }   on evaluation failure
//	        { "result": null, "error": "<message>" }                                    on a rejected request (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o goformula.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"formula":"=LEN([Name])","values":{"name":"Sean"}}' | wasmtime goformula.wasm
//
// From Go, see package github.com/sandrolain/goformula/pkg/wasihost.
package main

import (
	"encoding/json"
	"os"

	"github.com/sandrolain/goformula"
)

func writeResponse(r goformula.Response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func main() {
	var req goformula.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(goformula.Response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	resp := goformula.Handle(req)
	if resp.Error != "" {
		writeResponse(resp, 1)
	}
	writeResponse(resp, 0)
}
