package dissim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Func is a dissimilarity with a stable tag.
//
// Dissimilarity must be non-negative and zero for identical vectors.
// Implementations must be safe for concurrent use.
type Func interface {
	Dissimilarity(a, b []float64) float64
	Tag() string
}

// Euclidean is the L2 distance. It is the default dissimilarity.
type Euclidean struct{}

// Dissimilarity implements Func.
func (Euclidean) Dissimilarity(a, b []float64) float64 {
	return math.Sqrt(SquaredL2(a, b))
}

// Tag implements Func.
func (Euclidean) Tag() string { return "euclidean" }

// SquaredEuclidean is the squared L2 distance.
type SquaredEuclidean struct{}

// Dissimilarity implements Func.
func (SquaredEuclidean) Dissimilarity(a, b []float64) float64 {
	return SquaredL2(a, b)
}

// Tag implements Func.
func (SquaredEuclidean) Tag() string { return "sqeuclidean" }

// Gaussian is the bounded form 1 - exp(-Gamma·d²), in [0, 1).
type Gaussian struct {
	Gamma float64
}

// DefaultGamma is the Gaussian width used when none is configured.
const DefaultGamma = 0.1

// Dissimilarity implements Func.
func (g Gaussian) Dissimilarity(a, b []float64) float64 {
	return 1 - math.Exp(-g.Gamma*SquaredL2(a, b))
}

// Tag implements Func. The width is part of the tag.
func (g Gaussian) Tag() string {
	return "gaussian(gamma=" + strconv.FormatFloat(g.Gamma, 'g', -1, 64) + ")"
}

// Cosine is 1 minus the cosine similarity. A zero vector is at
// dissimilarity 1 from everything except another zero vector.
type Cosine struct{}

// Dissimilarity implements Func.
func (Cosine) Dissimilarity(a, b []float64) float64 {
	na, nb := Dot(a, a), Dot(b, b)
	switch {
	case na == 0 && nb == 0:
		return 0
	case na == 0 || nb == 0:
		return 1
	}
	d := 1 - Dot(a, b)/math.Sqrt(na*nb)
	if d < 0 {
		// Rounding on parallel vectors.
		return 0
	}
	return d
}

// Tag implements Func.
func (Cosine) Tag() string { return "cosine" }

type tagged struct {
	tag string
	fn  func(a, b []float64) float64
}

func (t tagged) Dissimilarity(a, b []float64) float64 { return t.fn(a, b) }
func (t tagged) Tag() string                          { return t.tag }

// FuncOf wraps a plain function with an explicit tag. Two FuncOf values
// with the same tag are treated as the same function by the cache, so the
// tag must change whenever fn's behavior does.
func FuncOf(tag string, fn func(a, b []float64) float64) Func {
	return tagged{tag: tag, fn: fn}
}

// ByTag resolves a tag written by one of the built-in functions. A bare
// "gaussian" uses DefaultGamma.
func ByTag(tag string) (Func, error) {
	switch tag {
	case "", "euclidean":
		return Euclidean{}, nil
	case "sqeuclidean":
		return SquaredEuclidean{}, nil
	case "cosine":
		return Cosine{}, nil
	case "gaussian":
		return Gaussian{Gamma: DefaultGamma}, nil
	}

	if rest, ok := strings.CutPrefix(tag, "gaussian(gamma="); ok {
		if raw, ok := strings.CutSuffix(rest, ")"); ok {
			gamma, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("dissim: gaussian width %q: %w", raw, err)
			}
			return NewGaussian(gamma)
		}
	}

	return nil, fmt.Errorf("dissim: unknown function %q", tag)
}

// NewGaussian validates gamma and returns the Gaussian dissimilarity.
func NewGaussian(gamma float64) (Gaussian, error) {
	if !(gamma > 0) || math.IsInf(gamma, 0) {
		return Gaussian{}, fmt.Errorf("dissim: gaussian gamma must be positive and finite, got %v", gamma)
	}
	return Gaussian{Gamma: gamma}, nil
}

// Dot returns the dot product of a and b.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
