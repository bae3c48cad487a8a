package ler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/relate/ann"
	"github.com/hupe1980/relate/cluster"
	"github.com/hupe1980/relate/params"
	"github.com/hupe1980/relate/resource"
	"github.com/hupe1980/relate/store"
)

// Options configures an Orchestrator.
type Options struct {
	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Resources bounds classification workers. May be nil.
	Resources *resource.Controller

	// Workers caps concurrent entity shards. Defaults to GOMAXPROCS, or the
	// controller's worker limit when smaller.
	Workers int

	// SkipDescriptions disables storing each entity's histogram as a
	// description named after the method.
	SkipDescriptions bool
}

// Orchestrator runs LER computations against a store.
type Orchestrator struct {
	store  *store.Store
	opts   Options
	logger *slog.Logger
}

// New creates an Orchestrator.
func New(st *store.Store, optFns ...func(o *Options)) *Orchestrator {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if limit := int(opts.Resources.Config().MaxWorkers); limit > 0 && limit < opts.Workers {
		opts.Workers = limit
	}

	return &Orchestrator{
		store:  st,
		opts:   opts,
		logger: opts.Logger.With("component", "ler"),
	}
}

// Request describes one computation.
type Request struct {
	Collection string
	// Entities is the collection membership.
	Entities []string
	// BasedOn names the stored description providing the vectors.
	BasedOn store.Reference
	Config
	// Override recomputes even when a matching result is stored.
	Override bool
}

func (req Request) query(p params.Params) store.Query {
	ref := req.BasedOn
	return store.CollectionQuery(req.Collection, req.Config.withDefaults().Method, &ref, p)
}

// Params returns the canonical parameters of req.
func (req Request) Params() (params.Params, error) {
	return req.Config.Params(req.Entities)
}

// Run returns the LER result for req, computing and storing it on a miss.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	req.Config = req.Config.withDefaults()

	order, err := o.validate(req)
	if err != nil {
		return nil, err
	}

	p, err := req.Params()
	if err != nil {
		return nil, err
	}
	q := req.query(p)
	log := o.logger.With("collection", req.Collection, "method", req.Method, "params", p.Key())

	if !req.Override {
		res, err := o.cached(ctx, q, log)
		if err != nil || res != nil {
			return res, err
		}
	}

	start := time.Now()
	res, err := o.compute(ctx, req, order)
	if err != nil {
		log.Error("compute failed", "error", err)
		return nil, err
	}

	if _, err := o.store.Put(ctx, q, res, res.info(p.Key())); err != nil {
		return nil, err
	}

	if !o.opts.SkipDescriptions {
		if err := o.storeDescriptions(ctx, req, p, res); err != nil {
			return nil, err
		}
	}

	log.Info("computed",
		"entities", len(res.Entities),
		"vectors", res.Offsets[len(res.Offsets)-1],
		"prototypes", len(res.Prototypes),
		"duration", time.Since(start))
	return res, nil
}

// Get returns a stored result without computing.
func (o *Orchestrator) Get(ctx context.Context, req Request) (*Result, error) {
	req.Config = req.Config.withDefaults()
	p, err := req.Params()
	if err != nil {
		return nil, err
	}

	res := new(Result)
	if _, err := o.store.Get(ctx, req.query(p), res); err != nil {
		return nil, err
	}
	return res, nil
}

// Exists reports whether a result for req is stored.
func (o *Orchestrator) Exists(ctx context.Context, req Request) (bool, error) {
	req.Config = req.Config.withDefaults()
	p, err := req.Params()
	if err != nil {
		return false, err
	}
	return o.store.Exists(ctx, req.query(p))
}

// Clear removes the stored result for req and its per-entity descriptions.
func (o *Orchestrator) Clear(ctx context.Context, req Request) error {
	req.Config = req.Config.withDefaults()
	p, err := req.Params()
	if err != nil {
		return err
	}

	if err := o.store.Clear(ctx, req.query(p)); err != nil {
		return err
	}

	dp := descriptionParams(req, p)
	for _, id := range req.Entities {
		if err := o.store.ClearDescription(ctx, id, req.Method, dp); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// cached returns the stored result, nil on a miss. Undecodable records are
// removed so the caller recomputes.
func (o *Orchestrator) cached(ctx context.Context, q store.Query, log *slog.Logger) (*Result, error) {
	res := new(Result)
	_, err := o.store.Get(ctx, q, res)
	switch {
	case err == nil:
		log.Debug("cache hit")
		return res, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case errors.Is(err, store.ErrDeserialization):
		log.Warn("discarding undecodable result", "error", err)
		if cerr := o.store.Clear(ctx, q); cerr != nil && !errors.Is(cerr, store.ErrNotFound) {
			return nil, cerr
		}
		return nil, nil
	default:
		return nil, err
	}
}

func (o *Orchestrator) validate(req Request) ([]string, error) {
	if req.Collection == "" {
		return nil, invalid("collection", "must not be empty")
	}
	if req.BasedOn.Name == "" {
		return nil, invalid("based_on", "a descriptor name is required")
	}
	if len(req.Entities) == 0 {
		return nil, invalid("entities", "collection %q has no entities", req.Collection)
	}
	if req.Seed == nil {
		return nil, invalid("seed", "a seed provider is required")
	}
	if err := req.Seed.Validate(); err != nil {
		return nil, invalid("seed", "%v", err)
	}
	if err := req.leader().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, err)
	}
	return req.traversal(req.Entities)
}

func (o *Orchestrator) compute(ctx context.Context, req Request, order []string) (*Result, error) {
	entities, err := o.load(ctx, req.BasedOn, order)
	if err != nil {
		return nil, err
	}

	seedVec, err := req.Seed.Seed(ctx)
	if err != nil {
		return nil, err
	}

	set, err := cluster.NewPrototypeSet(seedVec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, err)
	}
	stats, err := req.leader().Cluster(ctx, set, entities)
	if err != nil {
		if errors.Is(err, cluster.ErrInvalidVector) || errors.As(err, new(*cluster.DimensionMismatchError)) {
			return nil, fmt.Errorf("%w: %w", store.ErrInvalidArgument, err)
		}
		return nil, err
	}
	o.logger.Debug("clustered", "collection", req.Collection, "vectors", stats.Vectors, "prototypes", set.Len())

	// The index holds the prototype vectors for the classification phase.
	footprint := int64(set.Len()) * int64(set.Dim()) * 8
	if err := o.opts.Resources.AcquireMemory(ctx, footprint); err != nil {
		return nil, err
	}
	defer o.opts.Resources.ReleaseMemory(footprint)

	idx, err := req.Index.Build(set.Vectors(), req.Dissim)
	if err != nil {
		return nil, err
	}

	labels, err := o.classify(ctx, idx, entities)
	if err != nil {
		return nil, err
	}

	return histogram(req.Collection, set, entities, labels), nil
}

// load reads every entity's vectors. All missing entities are reported
// together.
func (o *Orchestrator) load(ctx context.Context, ref store.Reference, order []string) ([]cluster.Entity, error) {
	entities := make([]cluster.Entity, len(order))
	missing := make([]bool, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, id := range order {
		g.Go(func() error {
			var vecs [][]float64
			_, err := o.store.GetDescription(gctx, id, ref.Name, ref.Params, &vecs)
			if errors.Is(err, store.ErrNotFound) {
				missing[i] = true
				return nil
			}
			if err != nil {
				return err
			}
			entities[i] = cluster.Entity{ID: id, Vectors: vecs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var absent []string
	for i, id := range order {
		if missing[i] {
			absent = append(absent, id)
		}
	}
	if len(absent) > 0 {
		return nil, &MissingDescriptionError{Descriptor: ref.Name, Entities: absent}
	}

	for _, e := range entities {
		if len(e.Vectors) == 0 {
			return nil, &EmptyEntityError{Entity: e.ID}
		}
	}
	return entities, nil
}

// classify assigns every vector to its nearest prototype, one shard per entity.
func (o *Orchestrator) classify(ctx context.Context, idx ann.Index, entities []cluster.Entity) ([][]int, error) {
	labels := make([][]int, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, e := range entities {
		g.Go(func() error {
			if err := o.opts.Resources.AcquireWorker(gctx); err != nil {
				return err
			}
			defer o.opts.Resources.ReleaseWorker()

			out := make([]int, len(e.Vectors))
			for j, v := range e.Vectors {
				nn, err := ann.Nearest(idx, v)
				if err != nil {
					return fmt.Errorf("ler: classify %s[%d]: %w", e.ID, j, err)
				}
				out[j] = nn
			}
			labels[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return labels, nil
}

// histogram builds the first-assignment axis, counts and membership bitmaps.
func histogram(collection string, set *cluster.PrototypeSet, entities []cluster.Entity, labels [][]int) *Result {
	axis := make([]int, set.Len()) // prototype position -> axis position + 1
	var alphabet []int
	for _, ls := range labels {
		for _, l := range ls {
			if axis[l] == 0 {
				alphabet = append(alphabet, l)
				axis[l] = len(alphabet)
			}
		}
	}
	for p := range axis {
		if axis[p] == 0 {
			alphabet = append(alphabet, p)
			axis[p] = len(alphabet)
		}
	}

	res := &Result{
		Collection: collection,
		Entities:   make([]string, len(entities)),
		Offsets:    make([]int, len(entities)+1),
		Prototypes: set.Prototypes(),
		Alphabet:   alphabet,
		Counts:     make([][]int, len(entities)),
		Histograms: make([][]float64, len(entities)),
		Members:    make(Membership, len(alphabet)),
	}
	for j := range res.Members {
		res.Members[j] = roaring.New()
	}

	ordinal := 0
	for i, e := range entities {
		res.Entities[i] = e.ID
		res.Offsets[i] = ordinal

		counts := make([]int, len(alphabet))
		for _, l := range labels[i] {
			j := axis[l] - 1
			counts[j]++
			res.Members[j].Add(uint32(ordinal))
			ordinal++
		}

		hist := make([]float64, len(alphabet))
		n := float64(len(labels[i]))
		for j, c := range counts {
			hist[j] = float64(c) / n
		}
		res.Counts[i] = counts
		res.Histograms[i] = hist
	}
	res.Offsets[len(entities)] = ordinal

	for _, m := range res.Members {
		m.RunOptimize()
	}
	return res
}

// descriptionParams are the parameters per-entity LER descriptions are
// stored under.
func descriptionParams(req Request, p params.Params) params.Params {
	return p.Merge(req.BasedOn.Params.Prefixed("based_on.")).
		With("based_on", params.String(req.BasedOn.Name)).
		With("collection", params.String(req.Collection))
}

func (o *Orchestrator) storeDescriptions(ctx context.Context, req Request, p params.Params, res *Result) error {
	dp := descriptionParams(req, p)
	for i, id := range res.Entities {
		info := DescriptionInfo{Collection: req.Collection, Counts: res.Counts[i]}
		if _, err := o.store.StoreDescription(ctx, res.Histograms[i], info, id, req.Method, dp); err != nil {
			return err
		}
	}
	return nil
}

// Describe returns the stored LER vector of one entity.
func (o *Orchestrator) Describe(ctx context.Context, req Request, entityID string) ([]float64, error) {
	req.Config = req.Config.withDefaults()
	p, err := req.Params()
	if err != nil {
		return nil, err
	}

	var hist []float64
	if _, err := o.store.GetDescription(ctx, entityID, req.Method, descriptionParams(req, p), &hist); err != nil {
		return nil, err
	}
	return hist, nil
}
