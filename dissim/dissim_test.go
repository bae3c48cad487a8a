package dissim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/relate/params"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"Simple", []float64{1, 2, 3}, []float64{4, 5, 6}, 27},
		{"Zero", []float64{0, 0, 0}, []float64{0, 0, 0}, 0},
		{"Identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"Mixed", []float64{1, -1}, []float64{-1, 1}, 8},
		{"Empty", []float64{}, []float64{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-12)
		})
	}
}

func TestFuncs(t *testing.T) {
	a, b := []float64{1, 0, 1}, []float64{0, 0, 0}

	tests := []struct {
		fn       Func
		expected float64
	}{
		{Euclidean{}, math.Sqrt2},
		{SquaredEuclidean{}, 2},
		{Gaussian{Gamma: 0.1}, 1 - math.Exp(-0.2)},
		{Cosine{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.fn.Tag(), func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.fn.Dissimilarity(a, b), 1e-12)
			assert.Zero(t, tt.fn.Dissimilarity(a, a))
		})
	}
}

func TestGaussianThreshold(t *testing.T) {
	g := Gaussian{Gamma: 0.1}

	// d² = 2 is inside 0.3, d² = 48 is not.
	assert.Less(t, g.Dissimilarity([]float64{4, 4, 4}, []float64{5, 4, 5}), 0.3)
	assert.Greater(t, g.Dissimilarity([]float64{0, 0, 0}, []float64{4, 4, 4}), 0.3)
}

func TestCosine(t *testing.T) {
	c := Cosine{}
	assert.InDelta(t, 0, c.Dissimilarity([]float64{1, 2}, []float64{2, 4}), 1e-12)
	assert.InDelta(t, 1, c.Dissimilarity([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.InDelta(t, 2, c.Dissimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-12)
	assert.Zero(t, c.Dissimilarity([]float64{0, 0}, []float64{0, 0}))
}

func TestByTag(t *testing.T) {
	for _, fn := range []Func{Euclidean{}, SquaredEuclidean{}, Cosine{}, Gaussian{Gamma: 0.25}} {
		got, err := ByTag(fn.Tag())
		require.NoError(t, err)
		assert.Equal(t, fn, got)
	}

	got, err := ByTag("gaussian")
	require.NoError(t, err)
	assert.Equal(t, Gaussian{Gamma: DefaultGamma}, got)

	for _, tag := range []string{"manhattan", "gaussian(gamma=x)", "gaussian(gamma=-1)", "gaussian(gamma=0)"} {
		_, err := ByTag(tag)
		assert.Error(t, err, tag)
	}
}

func TestTagIsCacheIdentity(t *testing.T) {
	a, err := params.New(map[string]any{"metric": Gaussian{Gamma: 0.1}})
	require.NoError(t, err)
	b, err := params.New(map[string]any{"metric": FuncOf("gaussian(gamma=0.1)", nil)})
	require.NoError(t, err)
	c, err := params.New(map[string]any{"metric": Gaussian{Gamma: 0.2}})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "metric_gaussian(gamma=0.1)", a.Key())
}
