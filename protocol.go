package goformula

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/types"
)

// Request is one evaluation in the JSON protocol spoken by the WASI
// module (cmd/wasm/wasi) and the wasihost package.
//
//	{ "formula": "=LEN([Name])", "values": { "name": "Sean" } }
type Request struct {
	Formula string         `json:"formula"`
	Values  map[string]any `json:"values,omitempty"`
	// Now fixes the clock used by TODAY and NOW. Zero means the wall
	// clock.
	Now time.Time `json:"now,omitzero"`
}

// UnmarshalJSON decodes a request, keeping numbers in values as
// json.Number so that whole numbers reach the formula as integers.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return err
	}
	*r = Request(p)
	return nil
}

// DecodeValues decodes a JSON object of field values. Whole numbers become
// int64 and other numbers float64, matching values passed from Go.
func DecodeValues(data []byte) (map[string]any, error) {
	var values map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return fromWire(values), nil
}

// Response is the answer to a Request. The result member is always
// written, null for absent values and failures.
//
//	{ "result": 4, "display": "4" }                                        success
//	{ "result": null, "kind": "invalid value", "display": "#VALUE!", ... }  evaluation failure
//	{ "result": null, "error": "invalid formula at position 5: ..." }       rejected request
type Response struct {
	Result  any    `json:"result"`
	Display string `json:"display,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the formula evaluated to a value.
func (r Response) OK() bool {
	return r.Error == "" && r.Kind == ""
}

// Handle evaluates a protocol request. Parse failures and bad input are
// reported in Error; evaluation failures in Kind and Message.
func Handle(req Request) Response {
	f, err := Parse(req.Formula)
	if err != nil {
		return Response{Error: err.Error()}
	}

	var opts []evaluator.EnvOption
	if !req.Now.IsZero() {
		opts = append(opts, evaluator.WithFixedTime(req.Now))
	}
	env, err := evaluator.FromValues(fromWire(req.Values), opts...)
	if err != nil {
		return Response{Error: err.Error()}
	}
	return NewResponse(f.Evaluate(env))
}

// NewResponse converts an evaluation result to its protocol form.
func NewResponse(r types.Result) Response {
	if !r.OK() {
		return Response{
			Display: r.String(),
			Kind:    r.Kind().String(),
			Message: r.Message(),
		}
	}
	return Response{
		Result:  wireValue(r.Value()),
		Display: r.String(),
	}
}

// wireValue maps payloads without a natural JSON form to text.
func wireValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case uuid.UUID:
		return x.String()
	default:
		return v
	}
}

// fromWire replaces json.Number values, including nested ones, by int64
// when whole and float64 otherwise.
func fromWire(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = wireNumber(v)
	}
	return out
}

func wireNumber(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		return fromWire(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = wireNumber(item)
		}
		return out
	default:
		return v
	}
}
