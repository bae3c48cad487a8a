package ann

import (
	"errors"
	"fmt"

	"github.com/hupe1980/relate/dissim"
	"github.com/hupe1980/relate/internal/queue"
	"github.com/hupe1980/relate/params"
)

// ErrEmptyIndex is returned when building or searching an index without vectors.
var ErrEmptyIndex = errors.New("ann: index has no vectors")

// DimensionMismatchError reports a vector of the wrong length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("ann: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Result is a neighbor position in the indexed set and its dissimilarity to
// the query.
type Result = queue.Item

// Index answers nearest-neighbor queries over the vectors it was built from.
type Index interface {
	// Search returns up to k neighbors of q, closest first.
	Search(q []float64, k int) ([]Result, error)
	// Len returns the number of indexed vectors.
	Len() int
}

// Strategy builds an Index.
type Strategy interface {
	Build(vectors [][]float64, d dissim.Func) (Index, error)
	// Params describes the strategy for cache keys.
	Params() params.Params
}

// Nearest returns the position of q's nearest neighbor in idx.
func Nearest(idx Index, q []float64) (int, error) {
	res, err := idx.Search(q, 1)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, ErrEmptyIndex
	}
	return res[0].Node, nil
}

func checkVectors(vectors [][]float64) (int, error) {
	if len(vectors) == 0 {
		return 0, ErrEmptyIndex
	}
	dim := len(vectors[0])
	for _, v := range vectors[1:] {
		if len(v) != dim {
			return 0, &DimensionMismatchError{Expected: dim, Actual: len(v)}
		}
	}
	return dim, nil
}

// ByName returns a strategy with default settings: "exact" or "hnsw".
func ByName(name string) (Strategy, error) {
	switch name {
	case "", "hnsw":
		return DefaultHNSW, nil
	case "exact":
		return Exact{}, nil
	default:
		return nil, fmt.Errorf("ann: unknown strategy %q", name)
	}
}
