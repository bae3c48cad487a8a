package cluster

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// ErrInvalidVector is returned for empty vectors or vectors with NaN or
// infinite components.
var ErrInvalidVector = errors.New("cluster: invalid vector")

// DimensionMismatchError reports a vector whose length differs from the seed.
type DimensionMismatchError struct {
	Entity   string
	Index    int
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("cluster: %s[%d]: dimension mismatch: expected %d, got %d", e.Entity, e.Index, e.Expected, e.Actual)
}

// PrototypeID identifies a prototype by the vector that founded it. The seed
// has Seed set and no entity.
type PrototypeID struct {
	Entity string `json:"entity,omitempty"`
	Index  int    `json:"index"`
	Seed   bool   `json:"seed,omitempty"`
}

// SeedID is the identifier of the seed prototype.
var SeedID = PrototypeID{Seed: true}

func (id PrototypeID) String() string {
	if id.Seed {
		return "seed"
	}
	return id.Entity + "[" + strconv.Itoa(id.Index) + "]"
}

// Prototype is a representative vector.
type Prototype struct {
	ID     PrototypeID `json:"id"`
	Vector []float64   `json:"vector"`
}

// PrototypeSet is an insertion-ordered set of prototypes. It only grows.
type PrototypeSet struct {
	protos []Prototype
	index  map[PrototypeID]int
	dim    int
}

// NewPrototypeSet creates a set holding the seed.
func NewPrototypeSet(seed []float64) (*PrototypeSet, error) {
	if err := checkVector(seed); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	s := &PrototypeSet{index: make(map[PrototypeID]int), dim: len(seed)}
	s.add(SeedID, seed)
	return s, nil
}

// FromPrototypes rebuilds a set, e.g. after decoding a stored result. The
// first prototype must be the seed.
func FromPrototypes(protos []Prototype) (*PrototypeSet, error) {
	if len(protos) == 0 || !protos[0].ID.Seed {
		return nil, errors.New("cluster: first prototype must be the seed")
	}

	s, err := NewPrototypeSet(protos[0].Vector)
	if err != nil {
		return nil, err
	}
	for i, p := range protos[1:] {
		if err := s.check(p.ID.Entity, i+1, p.Vector); err != nil {
			return nil, err
		}
		if _, dup := s.index[p.ID]; dup || p.ID.Seed {
			return nil, fmt.Errorf("cluster: duplicate prototype %s", p.ID)
		}
		s.add(p.ID, p.Vector)
	}
	return s, nil
}

func (s *PrototypeSet) add(id PrototypeID, v []float64) int {
	i := len(s.protos)
	s.protos = append(s.protos, Prototype{ID: id, Vector: slices.Clone(v)})
	s.index[id] = i
	return i
}

func (s *PrototypeSet) check(entity string, i int, v []float64) error {
	if len(v) != s.dim {
		return &DimensionMismatchError{Entity: entity, Index: i, Expected: s.dim, Actual: len(v)}
	}
	return checkVector(v)
}

func checkVector(v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidVector)
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite component %v", ErrInvalidVector, x)
		}
	}
	return nil
}

// Len returns the number of prototypes, seed included.
func (s *PrototypeSet) Len() int { return len(s.protos) }

// Dim returns the vector dimension.
func (s *PrototypeSet) Dim() int { return s.dim }

// At returns the i-th prototype in insertion order.
func (s *PrototypeSet) At(i int) Prototype { return s.protos[i] }

// Index returns the insertion position of id.
func (s *PrototypeSet) Index(id PrototypeID) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// IDs returns the prototype ids in insertion order.
func (s *PrototypeSet) IDs() []PrototypeID {
	ids := make([]PrototypeID, len(s.protos))
	for i, p := range s.protos {
		ids[i] = p.ID
	}
	return ids
}

// Vectors returns the prototype vectors in insertion order. The slices are
// shared with the set and must not be modified.
func (s *PrototypeSet) Vectors() [][]float64 {
	out := make([][]float64, len(s.protos))
	for i, p := range s.protos {
		out[i] = p.Vector
	}
	return out
}

// Prototypes returns a copy of the prototypes in insertion order.
func (s *PrototypeSet) Prototypes() []Prototype {
	return slices.Clone(s.protos)
}
