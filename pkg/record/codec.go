package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// storedValue is the JSON form of a property value. The kind tag keeps
// integers, timestamps and references apart, which plain JSON cannot.
type storedValue struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v,omitempty"`
}

const (
	kindNull  = "null"
	kindText  = "text"
	kindInt   = "int"
	kindFloat = "float"
	kindBool  = "bool"
	kindTime  = "time"
	kindUUID  = "uuid"
	kindList  = "list"
)

func encodeProperties(props map[string]any) ([]byte, error) {
	out := make(map[string]storedValue, len(props))
	for name, v := range props {
		sv, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = sv
	}
	return json.Marshal(out)
}

func decodeProperties(data []byte) (map[string]any, error) {
	var in map[string]storedValue
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(in))
	for name, sv := range in {
		v, err := decodeValue(sv)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func encodeValue(v any) (storedValue, error) {
	var kind string
	var payload any
	switch x := v.(type) {
	case nil:
		return storedValue{Kind: kindNull}, nil
	case string:
		kind, payload = kindText, x
	case int64:
		kind, payload = kindInt, x
	case float64:
		kind, payload = kindFloat, x
	case bool:
		kind, payload = kindBool, x
	case time.Time:
		kind, payload = kindTime, x.Format(time.RFC3339Nano)
	case uuid.UUID:
		kind, payload = kindUUID, x.String()
	case []any:
		items := make([]storedValue, len(x))
		for i, item := range x {
			sv, err := encodeValue(item)
			if err != nil {
				return storedValue{}, err
			}
			items[i] = sv
		}
		kind, payload = kindList, items
	default:
		return storedValue{}, fmt.Errorf("unsupported value type %T", v)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return storedValue{}, err
	}
	return storedValue{Kind: kind, Value: raw}, nil
}

func decodeValue(sv storedValue) (any, error) {
	switch sv.Kind {
	case kindNull:
		return nil, nil
	case kindText:
		var s string
		err := json.Unmarshal(sv.Value, &s)
		return s, err
	case kindInt:
		dec := json.NewDecoder(bytes.NewReader(sv.Value))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, err
		}
		return n.Int64()
	case kindFloat:
		var f float64
		err := json.Unmarshal(sv.Value, &f)
		return f, err
	case kindBool:
		var b bool
		err := json.Unmarshal(sv.Value, &b)
		return b, err
	case kindTime:
		var s string
		if err := json.Unmarshal(sv.Value, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case kindUUID:
		var s string
		if err := json.Unmarshal(sv.Value, &s); err != nil {
			return nil, err
		}
		return uuid.Parse(s)
	case kindList:
		var items []storedValue
		if err := json.Unmarshal(sv.Value, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", sv.Kind)
	}
}
