package ler

import (
	"encoding/hex"
	"slices"

	"github.com/cespare/xxhash/v2"
	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/relate/ann"
	"github.com/hupe1980/relate/cluster"
	"github.com/hupe1980/relate/dissim"
	"github.com/hupe1980/relate/params"
	"github.com/hupe1980/relate/seed"
)

// DefaultMethod is the method name results are stored under.
const DefaultMethod = "ler"

// Config holds the parameters of one LER computation.
type Config struct {
	// Epsilon is the clustering threshold.
	Epsilon float64
	// Dissim defaults to dissim.Euclidean.
	Dissim dissim.Func
	// Index defaults to ann.DefaultHNSW.
	Index ann.Strategy
	// Seed provides the initial prototype. Required.
	Seed seed.Provider
	// Order, if set, is the explicit traversal order and must list exactly
	// the collection's entities. Otherwise entities are traversed sorted.
	Order []string
	// Method defaults to DefaultMethod.
	Method string
}

func (c Config) withDefaults() Config {
	if c.Dissim == nil {
		c.Dissim = dissim.Euclidean{}
	}
	if c.Index == nil {
		c.Index = ann.DefaultHNSW
	}
	if c.Method == "" {
		c.Method = DefaultMethod
	}
	return c
}

func (c Config) leader() cluster.Leader {
	return cluster.Leader{Dissim: c.Dissim, Epsilon: c.Epsilon}
}

// Params returns the canonical parameters identifying a computation over
// the given entities.
func (c Config) Params(entities []string) (params.Params, error) {
	c = c.withDefaults()
	if c.Seed == nil {
		return nil, invalid("seed", "a seed provider is required")
	}
	if err := c.Seed.Validate(); err != nil {
		return nil, invalid("seed", "%v", err)
	}

	order := "sorted"
	if c.Order != nil {
		raw, err := gojson.Marshal(c.Order)
		if err != nil {
			return nil, err
		}
		order = string(raw)
	}

	p := params.Params{
		"epsilon": params.Float(c.Epsilon),
		"metric":  params.Func(c.Dissim.Tag()),
		"order":   params.String(order),
		"members": params.String(membersDigest(entities)),
	}
	return p.Merge(c.Index.Params()).Merge(c.Seed.Params()), nil
}

// membersDigest fingerprints the collection membership independent of order.
func membersDigest(entities []string) string {
	sorted := slices.Clone(entities)
	slices.Sort(sorted)

	h := xxhash.New()
	for _, id := range sorted {
		_, _ = h.WriteString(id)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// traversal returns the entities in traversal order.
func (c Config) traversal(entities []string) ([]string, error) {
	seen := make(map[string]struct{}, len(entities))
	for _, id := range entities {
		if id == "" {
			return nil, invalid("entities", "empty entity id")
		}
		if _, dup := seen[id]; dup {
			return nil, invalid("entities", "duplicate entity %q", id)
		}
		seen[id] = struct{}{}
	}

	if c.Order == nil {
		sorted := slices.Clone(entities)
		slices.Sort(sorted)
		return sorted, nil
	}

	if len(c.Order) != len(entities) {
		return nil, invalid("order", "lists %d entities, collection has %d", len(c.Order), len(entities))
	}
	listed := make(map[string]struct{}, len(c.Order))
	for _, id := range c.Order {
		if _, ok := seen[id]; !ok {
			return nil, invalid("order", "entity %q is not in the collection", id)
		}
		if _, dup := listed[id]; dup {
			return nil, invalid("order", "duplicate entity %q", id)
		}
		listed[id] = struct{}{}
	}
	return slices.Clone(c.Order), nil
}
