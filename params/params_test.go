package params

import (
	"math"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gaussian struct{}

func (gaussian) Tag() string { return "gaussian" }

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestKey_OrderIndependent(t *testing.T) {
	a := MustNew(map[string]any{"rcut": 5.0, "nmax": 9, "lmax": 9})
	b := Params{"nmax": Int(9), "lmax": Int(9), "rcut": Float(5.0)}

	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	newGolden(t).Assert(t, "soap_key", []byte(a.Key()))
}

func TestKey_AllKinds(t *testing.T) {
	p := MustNew(map[string]any{
		"metric":   gaussian{},
		"seed":     []float64{0, 0.5, -1.25},
		"gamma":    0.1,
		"name":     "soap",
		"periodic": true,
		"n":        int64(-3),
	})

	newGolden(t).Assert(t, "all_kinds_key", []byte(p.Key()))
}

func TestKey_Empty(t *testing.T) {
	assert.Equal(t, "", Params{}.Key())
	assert.Equal(t, "", Params(nil).Key())
	assert.True(t, Params(nil).Equal(Params{}))
}

func TestFloatRendering(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{9, "9"},
		{5.0, "5"},
		{0.1, "0.1"},
		{-0.0, "0"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-07"},
		{math.Inf(1), "+Inf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Float(tt.in).String())
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Params
		want bool
	}{
		{
			name: "IntMatchesIntegralFloat",
			a:    Params{"rcut": Int(9)},
			b:    Params{"rcut": Float(9.0)},
			want: true,
		},
		{
			name: "IntDiffersFromFractionalFloat",
			a:    Params{"rcut": Int(9)},
			b:    Params{"rcut": Float(9.5)},
		},
		{
			name: "FloatsElementwise",
			a:    Params{"seed": Floats{0, 0, 1}},
			b:    Params{"seed": Floats{0, 0, 1}},
			want: true,
		},
		{
			name: "FloatsDifferentLength",
			a:    Params{"seed": Floats{0, 0}},
			b:    Params{"seed": Floats{0, 0, 0}},
		},
		{
			name: "FuncByTag",
			a:    Params{"metric": Func("gaussian")},
			b:    MustNew(map[string]any{"metric": gaussian{}}),
			want: true,
		},
		{
			name: "FuncVersusString",
			a:    Params{"metric": Func("gaussian")},
			b:    Params{"metric": String("gaussian")},
		},
		{
			name: "MissingKey",
			a:    Params{"a": Int(1), "b": Int(2)},
			b:    Params{"a": Int(1)},
		},
		{
			name: "ExtraKey",
			a:    Params{"a": Int(1)},
			b:    Params{"a": Int(1), "c": Int(2)},
		},
		{
			name: "NFCNames",
			a:    Params{"é": Int(1)},
			b:    Params{"é": Int(1)},
			want: true,
		},
		{
			name: "NaN",
			a:    Params{"x": Float(math.NaN())},
			b:    Params{"x": Float(math.NaN())},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
			if tt.want {
				assert.Equal(t, tt.a.Key(), tt.b.Key(), "equal params share a key")
			}
		})
	}
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(map[string]any{"f": func() {}})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestJSON(t *testing.T) {
	in := MustNew(map[string]any{
		"rcut":   5.0,
		"nmax":   9,
		"metric": gaussian{},
		"seed":   []float64{0, 1.5},
		"name":   "soap",
		"flag":   false,
		"inf":    math.Inf(-1),
	})

	data, err := gojson.Marshal(in)
	require.NoError(t, err)

	var out Params
	require.NoError(t, gojson.Unmarshal(data, &out))

	assert.True(t, in.Equal(out))
	assert.Equal(t, in.Key(), out.Key())

	// Kinds survive the round trip.
	v, ok := out.Get("rcut")
	require.True(t, ok)
	assert.Equal(t, KindFloat, v.Kind())
	v, ok = out.Get("nmax")
	require.True(t, ok)
	assert.Equal(t, KindInt, v.Kind())
}

func TestAccessors(t *testing.T) {
	p := Params{"eps": Float(0.3), "m": Int(16), "metric": Func("gaussian"), "k": Float(4)}

	f, ok := p.Float("eps")
	require.True(t, ok)
	assert.Equal(t, 0.3, f)

	f, ok = p.Float("m")
	require.True(t, ok)
	assert.Equal(t, 16.0, f)

	n, ok := p.Int("k")
	require.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = p.Int("eps")
	assert.False(t, ok)

	s, ok := p.Text("metric")
	require.True(t, ok)
	assert.Equal(t, "gaussian", s)
}

func TestWithMergePrefixed(t *testing.T) {
	base := Params{"a": Int(1)}

	w := base.With("b", Int(2))
	assert.Len(t, base, 1, "With copies")
	assert.Len(t, w, 2)

	m := base.Merge(Params{"a": Int(3), "c": Int(4)})
	v, _ := m.Get("a")
	assert.Equal(t, Int(3), v)

	pre := Params{"rcut": Float(5)}.Prefixed("based_on.")
	assert.Equal(t, []string{"based_on.rcut"}, pre.Names())
}

func TestClone_CopiesFloats(t *testing.T) {
	seed := Floats{1, 2}
	p := Params{"seed": seed}
	c := p.Clone()
	seed[0] = 99

	v, _ := c.Get("seed")
	assert.Equal(t, Floats{1, 2}, v)
}
