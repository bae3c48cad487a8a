package params

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind names the type of a parameter value in its JSON form.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindFloats Kind = "floats"
	KindFunc   Kind = "func"
)

// Value is a sealed interface over the supported parameter kinds.
// Only String, Int, Float, Bool, Floats and Func implement it.
type Value interface {
	Kind() Kind
	// String renders the value as it appears in a canonical key.
	String() string
	equal(other Value) bool
}

// String is a text parameter.
type String string

func (String) Kind() Kind       { return KindString }
func (v String) String() string { return norm.NFC.String(string(v)) }
func (v String) equal(o Value) bool {
	w, ok := o.(String)
	return ok && norm.NFC.String(string(v)) == norm.NFC.String(string(w))
}

// Int is an integer parameter. It equals a Float of the same numeric value.
type Int int64

func (Int) Kind() Kind       { return KindInt }
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }
func (v Int) equal(o Value) bool {
	switch w := o.(type) {
	case Int:
		return v == w
	case Float:
		i, ok := w.integral()
		return ok && i == int64(v)
	}
	return false
}

// Float is a floating point parameter.
type Float float64

func (Float) Kind() Kind       { return KindFloat }
func (v Float) String() string { return formatFloat(float64(v)) }
func (v Float) equal(o Value) bool {
	switch w := o.(type) {
	case Float:
		return floatEqual(float64(v), float64(w))
	case Int:
		return w.equal(v)
	}
	return false
}

// integral reports the int64 value of v when it has no fractional part.
func (v Float) integral() (int64, bool) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// Bool is a boolean parameter.
type Bool bool

func (Bool) Kind() Kind       { return KindBool }
func (v Bool) String() string { return strconv.FormatBool(bool(v)) }
func (v Bool) equal(o Value) bool {
	w, ok := o.(Bool)
	return ok && v == w
}

// Floats is a numeric array parameter compared elementwise.
type Floats []float64

func (Floats) Kind() Kind { return KindFloats }

func (v Floats) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(formatFloat(f))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (v Floats) equal(o Value) bool {
	w, ok := o.(Floats)
	if !ok || len(v) != len(w) {
		return false
	}
	for i := range v {
		if !floatEqual(v[i], w[i]) {
			return false
		}
	}
	return true
}

// Func is a function-valued parameter identified by its stable tag.
type Func string

func (Func) Kind() Kind       { return KindFunc }
func (v Func) String() string { return string(v) }
func (v Func) equal(o Value) bool {
	w, ok := o.(Func)
	return ok && v == w
}

// Tagged is implemented by function-like configuration (metrics, strategies)
// that can be used as a parameter value.
type Tagged interface {
	Tag() string
}

// formatFloat renders integral values as integers so that 9 and 9.0 share a key.
func formatFloat(f float64) string {
	if i, ok := Float(f).integral(); ok {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// NaN compares equal to NaN so that a NaN parameter can still hit the cache.
func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
