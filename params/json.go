package params

import (
	"fmt"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
)

type jsonValue struct {
	Kind  Kind              `json:"kind"`
	Value gojson.RawMessage `json:"value"`
}

// MarshalJSON encodes p as {"name": {"kind": ..., "value": ...}}.
func (p Params) MarshalJSON() ([]byte, error) {
	out := make(map[string]jsonValue, len(p))
	for name, v := range p.normalized() {
		raw, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("params: %q: %w", name, err)
		}
		out[name] = jsonValue{Kind: v.Kind(), Value: raw}
	}
	return gojson.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw map[string]jsonValue
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Params, len(raw))
	for name, jv := range raw {
		v, err := unmarshalValue(jv)
		if err != nil {
			return fmt.Errorf("params: %q: %w", name, err)
		}
		out[name] = v
	}
	*p = out
	return nil
}

func marshalValue(v Value) ([]byte, error) {
	switch x := v.(type) {
	case String:
		return gojson.Marshal(x.String())
	case Int:
		return gojson.Marshal(int64(x))
	case Float:
		return marshalFloat(float64(x))
	case Bool:
		return gojson.Marshal(bool(x))
	case Floats:
		elems := make([]gojson.RawMessage, len(x))
		for i, f := range x {
			b, err := marshalFloat(f)
			if err != nil {
				return nil, err
			}
			elems[i] = b
		}
		return gojson.Marshal(elems)
	case Func:
		return gojson.Marshal(string(x))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// Non-finite floats are written as strings ("NaN", "+Inf", "-Inf").
func marshalFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return gojson.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func unmarshalFloat(raw []byte) (float64, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := gojson.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseFloat(s, 64)
	}
	return strconv.ParseFloat(string(raw), 64)
}

func unmarshalValue(jv jsonValue) (Value, error) {
	switch jv.Kind {
	case KindString:
		var s string
		err := gojson.Unmarshal(jv.Value, &s)
		return String(s), err
	case KindInt:
		n, err := strconv.ParseInt(string(jv.Value), 10, 64)
		return Int(n), err
	case KindFloat:
		f, err := unmarshalFloat(jv.Value)
		return Float(f), err
	case KindBool:
		var b bool
		err := gojson.Unmarshal(jv.Value, &b)
		return Bool(b), err
	case KindFloats:
		var elems []gojson.RawMessage
		if err := gojson.Unmarshal(jv.Value, &elems); err != nil {
			return nil, err
		}
		out := make(Floats, len(elems))
		for i, e := range elems {
			f, err := unmarshalFloat(e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case KindFunc:
		var s string
		err := gojson.Unmarshal(jv.Value, &s)
		return Func(s), err
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupported, jv.Kind)
	}
}
