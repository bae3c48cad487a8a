package params

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator joins rendered parameters in a canonical key.
const Separator = "__"

// ErrUnsupported is returned when a Go value has no parameter kind.
var ErrUnsupported = errors.New("params: unsupported value type")

// Params is an unordered set of named parameter values.
// The zero value is an empty set.
type Params map[string]Value

// New converts plain Go values into Params. Supported values are strings,
// signed and unsigned integers, floats, bools, []float64, []float32, []int,
// Tagged implementations and Value.
func New(m map[string]any) (Params, error) {
	p := make(Params, len(m))
	for name, raw := range m {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("params: %q: %w", name, err)
		}
		p[norm.NFC.String(name)] = v
	}
	return p, nil
}

// MustNew is like New but panics on error.
func MustNew(m map[string]any) Params {
	p, err := New(m)
	if err != nil {
		panic(err)
	}
	return p
}

// ValueOf converts a single Go value.
func ValueOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case Value:
		return v, nil
	case Tagged:
		return Func(v.Tag()), nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(v), nil
	case int8:
		return Int(v), nil
	case int16:
		return Int(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return Int(v), nil
	case uint:
		return Int(v), nil
	case uint8:
		return Int(v), nil
	case uint16:
		return Int(v), nil
	case uint32:
		return Int(v), nil
	case float32:
		return Float(v), nil
	case float64:
		return Float(v), nil
	case []float64:
		return Floats(slices.Clone(v)), nil
	case []float32:
		out := make(Floats, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	case []int:
		out := make(Floats, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, raw)
	}
}

// Names returns the NFC-normalized parameter names in canonical order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, norm.NFC.String(name))
	}
	slices.Sort(names)
	return names
}

// Get returns the value for name.
func (p Params) Get(name string) (Value, bool) {
	if v, ok := p[name]; ok {
		return v, true
	}
	v, ok := p[norm.NFC.String(name)]
	return v, ok
}

// Key renders the canonical key: names sorted, each rendered name_value,
// joined by Separator.
func (p Params) Key() string {
	names := p.normalized()
	var sb strings.Builder
	for i, name := range names.Names() {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(name)
		sb.WriteByte('_')
		sb.WriteString(names[name].String())
	}
	return sb.String()
}

// String returns Key.
func (p Params) String() string { return p.Key() }

// Equal reports whether both sets have the same names and pairwise equal values.
func (p Params) Equal(q Params) bool {
	a, b := p.normalized(), q.normalized()
	if len(a) != len(b) {
		return false
	}
	for name, v := range a {
		w, ok := b[name]
		if !ok || !v.equal(w) {
			return false
		}
	}
	return true
}

// With returns a copy of p with name set to v.
func (p Params) With(name string, v Value) Params {
	out := p.Clone()
	out[norm.NFC.String(name)] = v
	return out
}

// Merge returns a copy of p with every entry of q added, q winning on conflicts.
func (p Params) Merge(q Params) Params {
	out := p.Clone()
	for name, v := range q {
		out[norm.NFC.String(name)] = v
	}
	return out
}

// Prefixed returns a copy of p with every name prefixed by prefix.
func (p Params) Prefixed(prefix string) Params {
	out := make(Params, len(p))
	for name, v := range p {
		out[prefix+norm.NFC.String(name)] = v
	}
	return out
}

// Clone returns a shallow copy. Values are immutable except Floats, which are copied.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for name, v := range p {
		if f, ok := v.(Floats); ok {
			v = Floats(slices.Clone(f))
		}
		out[name] = v
	}
	return out
}

func (p Params) normalized() Params {
	for name := range p {
		if !norm.NFC.IsNormalString(name) {
			out := make(Params, len(p))
			for n, v := range p {
				out[norm.NFC.String(n)] = v
			}
			return out
		}
	}
	return p
}

// Float returns a numeric parameter as float64.
func (p Params) Float(name string) (float64, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case Float:
		return float64(n), true
	case Int:
		return float64(n), true
	}
	return 0, false
}

// Int returns an integer parameter. Integral floats are accepted.
func (p Params) Int(name string) (int64, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case Int:
		return int64(n), true
	case Float:
		return n.integral()
	}
	return 0, false
}

// Text returns a String or Func parameter as a string.
func (p Params) Text(name string) (string, bool) {
	v, ok := p.Get(name)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case String:
		return s.String(), true
	case Func:
		return string(s), true
	}
	return "", false
}
