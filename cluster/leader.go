package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/relate/dissim"
)

// ErrInvalidEpsilon is returned for a threshold that is not positive and finite.
var ErrInvalidEpsilon = errors.New("cluster: epsilon must be positive and finite")

// Entity is a named sequence of vectors.
type Entity struct {
	ID      string
	Vectors [][]float64
}

// Leader is the greedy single-pass clusterer.
type Leader struct {
	// Dissim defaults to dissim.Euclidean.
	Dissim dissim.Func
	// Epsilon is the strict acceptance threshold.
	Epsilon float64
}

func (l Leader) dissim() dissim.Func {
	if l.Dissim == nil {
		return dissim.Euclidean{}
	}
	return l.Dissim
}

// Validate checks the threshold.
func (l Leader) Validate() error {
	if !(l.Epsilon > 0) || math.IsInf(l.Epsilon, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidEpsilon, l.Epsilon)
	}
	return nil
}

// Observe assigns v to the first prototype within epsilon or inserts it as a
// new prototype under id. It returns the prototype position and whether v
// was inserted.
func (l Leader) Observe(set *PrototypeSet, id PrototypeID, v []float64) (int, bool, error) {
	if err := set.check(id.Entity, id.Index, v); err != nil {
		return 0, false, err
	}

	d := l.dissim()
	for i, p := range set.protos {
		if d.Dissimilarity(v, p.Vector) < l.Epsilon {
			return i, false, nil
		}
	}

	if _, dup := set.index[id]; dup {
		return 0, false, fmt.Errorf("cluster: duplicate prototype %s", id)
	}
	return set.add(id, v), true, nil
}

// Stats summarizes one clustering pass.
type Stats struct {
	Vectors  int
	Inserted int
}

// Cluster visits entities in the given order and grows set. ctx is checked
// between entities.
func (l Leader) Cluster(ctx context.Context, set *PrototypeSet, entities []Entity) (Stats, error) {
	var stats Stats
	if err := l.Validate(); err != nil {
		return stats, err
	}

	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for i, v := range e.Vectors {
			_, inserted, err := l.Observe(set, PrototypeID{Entity: e.ID, Index: i}, v)
			if err != nil {
				return stats, err
			}
			stats.Vectors++
			if inserted {
				stats.Inserted++
			}
		}
	}
	return stats, nil
}
