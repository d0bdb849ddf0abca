//go:build js && wasm

// Command goformula-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `goformula` object with the following API:
//
//	goformula.version()                    → string
//	goformula.eval(formula, valuesJSON)    → responseJSON  (throws on a rejected formula)
//	goformula.parse(formula)               → { fields, functions, eval(valuesJSON) → responseJSON }
//
// The response JSON has the same shape as the WASI protocol
// (see cmd/wasm/wasi).
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o goformula.wasm ./cmd/wasm/js/
//
// Usage in browser:
//
//	<script src="wasm_exec.js"></script>
//	<script type="module">
//	  const r = JSON.parse(goformula.eval('=LEN([Name])', JSON.stringify({name: 'Sean'})))
//	  console.log(r.display) // 4
//	</script>
package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/evaluator"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	js.Global().Get("Error").New(msg)
	panic(msg)
}

func decodeValues(fn, valuesJSON string) map[string]any {
	if valuesJSON == "" {
		return nil
	}
	values, err := goformula.DecodeValues([]byte(valuesJSON))
	if err != nil {
		jsThrow(fmt.Sprintf("%s: invalid values JSON: %v", fn, err))
	}
	return values
}

func encodeResponse(fn string, resp goformula.Response) string {
	out, err := json.Marshal(resp)
	if err != nil {
		jsThrow(fmt.Sprintf("%s: marshal response: %v", fn, err))
	}
	return string(out)
}

// jsEval implements goformula.eval(formula, valuesJSON) → responseJSON.
func jsEval(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("goformula.eval requires a formula (string) and optional values (JSON string)")
	}
	req := goformula.Request{Formula: args[0].String()}
	if len(args) > 1 {
		req.Values = decodeValues("goformula.eval", args[1].String())
	}

	resp := goformula.Handle(req)
	if resp.Error != "" {
		jsThrow("goformula.eval: " + resp.Error)
	}
	return encodeResponse("goformula.eval", resp)
}

// jsParse implements goformula.parse(formula) → { fields, functions, eval(valuesJSON) }.
func jsParse(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("goformula.parse requires 1 argument: formula (string)")
	}

	f, err := goformula.Parse(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("goformula.parse: %v", err))
	}

	evalFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) interface{} {
		var values map[string]any
		if len(innerArgs) > 0 {
			values = decodeValues("parsed.eval", innerArgs[0].String())
		}
		env, err := evaluator.FromValues(values)
		if err != nil {
			jsThrow(fmt.Sprintf("parsed.eval: %v", err))
		}
		return encodeResponse("parsed.eval", goformula.NewResponse(f.Evaluate(env)))
	})

	return js.ValueOf(map[string]interface{}{
		"fields":    toJSArray(f.Fields()),
		"functions": toJSArray(f.Functions()),
		"eval":      evalFn,
	})
}

func toJSArray(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func main() {
	api := map[string]interface{}{
		"eval":  js.FuncOf(jsEval),
		"parse": js.FuncOf(jsParse),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
			return goformula.Version()
		}),
	}
	js.Global().Set("goformula", js.ValueOf(api))

	// Block forever; the JS event loop owns execution from here.
	select {}
}
