package ann

import (
	"github.com/hupe1980/relate/dissim"
	"github.com/hupe1980/relate/internal/queue"
	"github.com/hupe1980/relate/params"
)

// Exact is the brute-force strategy.
type Exact struct{}

// Build implements Strategy.
func (Exact) Build(vectors [][]float64, d dissim.Func) (Index, error) {
	dim, err := checkVectors(vectors)
	if err != nil {
		return nil, err
	}
	return &flat{vectors: vectors, dim: dim, dissim: d}, nil
}

// Params implements Strategy.
func (Exact) Params() params.Params {
	return params.Params{"index": params.String("exact")}
}

type flat struct {
	vectors [][]float64
	dim     int
	dissim  dissim.Func
}

func (f *flat) Len() int { return len(f.vectors) }

func (f *flat) Search(q []float64, k int) ([]Result, error) {
	if len(q) != f.dim {
		return nil, &DimensionMismatchError{Expected: f.dim, Actual: len(q)}
	}
	if k <= 0 {
		return nil, nil
	}

	top := queue.NewMax(k + 1)
	for i, v := range f.vectors {
		d := f.dissim.Dissimilarity(q, v)
		if top.Len() < k {
			top.Push(Result{Node: i, Distance: d})
			continue
		}
		// Strictly closer only, so earlier positions win ties.
		if worst, _ := top.Top(); d < worst.Distance {
			top.Pop()
			top.Push(Result{Node: i, Distance: d})
		}
	}

	return drain(top), nil
}

// drain empties a max-heap into a slice ordered closest first.
func drain(top *queue.PriorityQueue) []Result {
	out := make([]Result, top.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = top.Pop()
	}
	return out
}
