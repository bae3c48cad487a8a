package seed

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/relate/params"
)

// ErrNoSeed is returned when a provider cannot produce a vector.
var ErrNoSeed = errors.New("seed: no seed vector")

// Provider produces the seed vector.
type Provider interface {
	Seed(ctx context.Context) ([]float64, error)
	// Params identifies the seed for cache keys. Every input that can change
	// the vector must be reflected here.
	Params() params.Params
	// Validate reports a provider whose identity is incomplete.
	Validate() error
}

// Static is a fixed seed vector.
type Static []float64

// Seed implements Provider.
func (s Static) Seed(context.Context) ([]float64, error) {
	if len(s) == 0 {
		return nil, ErrNoSeed
	}
	return slices.Clone(s), nil
}

// Validate implements Provider.
func (s Static) Validate() error {
	if len(s) == 0 {
		return ErrNoSeed
	}
	return nil
}

// Params implements Provider. The vector itself is the identity.
func (s Static) Params() params.Params {
	return params.Params{"seed": params.Floats(slices.Clone(s))}
}

// DescribeFunc computes per-atom vectors for a structure with the given
// descriptor parameters.
type DescribeFunc func(ctx context.Context, s Structure, p params.Params) ([][]float64, error)

// Reference seeds with the description of a perfect crystal of Element.
type Reference struct {
	Element string
	// Descriptor tags Describe. Required, since the function itself cannot
	// be compared across runs.
	Descriptor string
	// DescriptorParams are handed to Describe and enter the cache key.
	DescriptorParams params.Params
	Describe         DescribeFunc
}

// Validate implements Provider.
func (r Reference) Validate() error {
	if r.Describe == nil {
		return fmt.Errorf("%w: no descriptor for reference %s", ErrNoSeed, r.Element)
	}
	if r.Descriptor == "" {
		return fmt.Errorf("%w: reference %s descriptor has no tag", ErrNoSeed, r.Element)
	}
	if _, ok := Lookup(r.Element); !ok {
		return fmt.Errorf("%w: no reference crystal for element %q", ErrNoSeed, r.Element)
	}
	return nil
}

// Seed implements Provider. It returns the vector of the first basis atom.
func (r Reference) Seed(ctx context.Context) ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	el, _ := Lookup(r.Element)

	s, err := el.Crystal()
	if err != nil {
		return nil, err
	}

	vecs, err := r.Describe(ctx, s, r.DescriptorParams.Clone())
	if err != nil {
		return nil, fmt.Errorf("seed: describe %s crystal: %w", el.Symbol, err)
	}

	i := el.Basis[0]
	if i >= len(vecs) || len(vecs[i]) == 0 {
		return nil, fmt.Errorf("%w: descriptor returned %d vectors for %s", ErrNoSeed, len(vecs), el.Symbol)
	}
	return slices.Clone(vecs[i]), nil
}

// Params implements Provider: the element, the descriptor tag and the
// descriptor parameters under "seed.".
func (r Reference) Params() params.Params {
	p := params.Params{
		"seed":            params.String("reference:" + r.Element),
		"seed_descriptor": params.Func(r.Descriptor),
	}
	return p.Merge(r.DescriptorParams.Prefixed("seed."))
}
