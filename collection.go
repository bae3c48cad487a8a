package relate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/relate/ler"
	"github.com/hupe1980/relate/params"
	"github.com/hupe1980/relate/store"
)

// Entity is one atomic system. Data is handed to descriptors unchanged.
type Entity struct {
	ID   string
	Data any
}

// Descriptor computes the per-atom vectors of one entity. A nil vector
// slice with a nil error means nothing is stored for the entity.
type Descriptor interface {
	Describe(ctx context.Context, e Entity, p params.Params) (vectors [][]float64, info any, err error)
}

// DescriptorFunc adapts a function to Descriptor.
type DescriptorFunc func(ctx context.Context, e Entity, p params.Params) ([][]float64, any, error)

// Describe implements Descriptor.
func (f DescriptorFunc) Describe(ctx context.Context, e Entity, p params.Params) ([][]float64, any, error) {
	return f(ctx, e, p)
}

// StoreDescriptorFunc is a descriptor that reads other stored results, for
// example to derive a description from an upstream one.
type StoreDescriptorFunc func(ctx context.Context, st *store.Store, e Entity, p params.Params) ([][]float64, any, error)

func (f StoreDescriptorFunc) bind(st *store.Store) Descriptor {
	return DescriptorFunc(func(ctx context.Context, e Entity, p params.Params) ([][]float64, any, error) {
		return f(ctx, st, e, p)
	})
}

// Describe implements Descriptor without store access.
func (f StoreDescriptorFunc) Describe(ctx context.Context, e Entity, p params.Params) ([][]float64, any, error) {
	return f(ctx, nil, e, p)
}

// ProcessFunc computes a collection-wide result from the descriptions named
// by basedOn.
type ProcessFunc func(ctx context.Context, c *Collection, basedOn store.Reference, p params.Params) (result any, info any, err error)

// Report lists what a Describe call did per entity.
type Report struct {
	Computed []string
	Cached   []string
	// Skipped entities returned no vectors.
	Skipped []string
}

// Collection is a named set of entities sharing a store.
type Collection struct {
	name     string
	ids      []string
	entities map[string]Entity

	store  *store.Store
	ler    *ler.Orchestrator
	opts   options
	logger *Logger
}

// NewCollection creates a collection over entities.
func NewCollection(name string, st *store.Store, entities []Entity, optFns ...Option) (*Collection, error) {
	if name == "" {
		return nil, &store.InvalidArgumentError{Field: "collection", Reason: "must not be empty"}
	}
	if st == nil {
		return nil, &store.InvalidArgumentError{Field: "store", Reason: "must not be nil"}
	}

	opts := applyOptions(optFns)
	c := &Collection{
		name:     name,
		entities: make(map[string]Entity, len(entities)),
		store:    st,
		opts:     opts,
		logger:   opts.logger.WithCollection(name),
	}
	c.ler = ler.New(st, func(o *ler.Options) {
		o.Logger = c.logger.Logger
		o.Resources = opts.resources
		o.SkipDescriptions = opts.skipLERDescribe
	})

	for _, e := range entities {
		if err := c.Add(e); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Store returns the underlying store.
func (c *Collection) Store() *store.Store { return c.store }

// Len returns the number of entities.
func (c *Collection) Len() int { return len(c.ids) }

// IDs returns the entity ids in sorted order.
func (c *Collection) IDs() []string { return slices.Clone(c.ids) }

// Entity returns the entity with the given id.
func (c *Collection) Entity(id string) (Entity, bool) {
	e, ok := c.entities[id]
	return e, ok
}

// Add adds an entity.
func (c *Collection) Add(e Entity) error {
	if e.ID == "" {
		return &store.InvalidArgumentError{Field: "entity", Reason: "empty id"}
	}
	if _, dup := c.entities[e.ID]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateEntity, e.ID)
	}
	c.entities[e.ID] = e
	i, _ := slices.BinarySearch(c.ids, e.ID)
	c.ids = slices.Insert(c.ids, i, e.ID)
	return nil
}

// Describe computes descriptor for every entity that has no stored result
// with parameters p. A failing entity does not stop the others; failures are
// returned joined as *ErrEntity values.
func (c *Collection) Describe(ctx context.Context, descriptor string, d Descriptor, p params.Params, optFns ...CallOption) (*Report, error) {
	if d == nil {
		return nil, ErrNilFunc
	}
	if sd, ok := d.(StoreDescriptorFunc); ok {
		d = sd.bind(c.store)
	}
	co := applyCallOptions(optFns)

	var (
		mu     sync.Mutex
		report Report
		errs   []error
	)

	var g errgroup.Group
	g.SetLimit(c.opts.workers)
	for _, id := range c.ids {
		g.Go(func() error {
			start := time.Now()
			outcome, err := c.describeOne(ctx, c.entities[id], descriptor, d, p, co)
			cached := outcome == outcomeCached

			c.opts.metricsCollector.RecordDescribe(descriptor, cached, time.Since(start), err)
			c.logger.LogDescribe(ctx, id, descriptor, cached, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, &ErrEntity{Entity: id, Descriptor: descriptor, cause: err})
				return nil
			}
			switch outcome {
			case outcomeCached:
				report.Cached = append(report.Cached, id)
			case outcomeComputed:
				report.Computed = append(report.Computed, id)
			case outcomeSkipped:
				report.Skipped = append(report.Skipped, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(report.Computed)
	slices.Sort(report.Cached)
	slices.Sort(report.Skipped)
	return &report, errors.Join(errs...)
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeCached
	outcomeComputed
	outcomeSkipped
)

func (c *Collection) describeOne(ctx context.Context, e Entity, descriptor string, d Descriptor, p params.Params, co callOptions) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcomeFailed, err
	}

	if !co.override {
		ok, err := c.readable(ctx, store.DescriptionQuery(e.ID, descriptor, p))
		if err != nil {
			return outcomeFailed, err
		}
		if ok {
			return outcomeCached, nil
		}
	}

	vectors, info, err := d.Describe(ctx, e, p)
	if err != nil {
		return outcomeFailed, err
	}
	if vectors == nil {
		return outcomeSkipped, nil
	}

	if _, err := c.store.StoreDescription(ctx, vectors, info, e.ID, descriptor, p); err != nil {
		return outcomeFailed, err
	}
	return outcomeComputed, nil
}

// readable reports whether a description matching q is stored and decodes.
// An undecodable one is removed so the caller recomputes it.
func (c *Collection) readable(ctx context.Context, q store.Query) (bool, error) {
	var payload any
	_, err := c.store.Get(ctx, q, &payload)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case errors.Is(err, store.ErrDeserialization):
		c.logger.WarnContext(ctx, "discarding undecodable description", "entity", q.Key1, "descriptor", q.Key2, "error", err)
		if cerr := c.store.Clear(ctx, q); cerr != nil && !errors.Is(cerr, store.ErrNotFound) {
			return false, cerr
		}
		return false, nil
	default:
		return false, err
	}
}

// Description returns the stored vectors of one entity.
func (c *Collection) Description(ctx context.Context, entityID, descriptor string, p params.Params) ([][]float64, error) {
	var vectors [][]float64
	if _, err := c.store.GetDescription(ctx, entityID, descriptor, p, &vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Descriptions returns the stored vectors of every entity. Entities without
// a stored result are reported joined.
func (c *Collection) Descriptions(ctx context.Context, descriptor string, p params.Params) (map[string][][]float64, error) {
	out := make(map[string][][]float64, len(c.ids))
	var errs []error
	for _, id := range c.ids {
		vectors, err := c.Description(ctx, id, descriptor, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[id] = vectors
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Process runs fn unless a result for (method, basedOn, p) is stored, and
// decodes the stored result into out. Undecodable results are discarded and
// recomputed.
func (c *Collection) Process(ctx context.Context, method string, fn ProcessFunc, basedOn store.Reference, p params.Params, out any, optFns ...CallOption) (err error) {
	if fn == nil {
		return ErrNilFunc
	}
	co := applyCallOptions(optFns)
	q := store.CollectionQuery(c.name, method, &basedOn, p)

	start := time.Now()
	cached := false
	defer func() {
		c.opts.metricsCollector.RecordProcess(method, cached, time.Since(start), err)
		c.logger.LogProcess(ctx, method, basedOn.Key(), cached, err)
	}()

	if !co.override {
		_, err := c.store.Get(ctx, q, out)
		switch {
		case err == nil:
			cached = true
			return nil
		case errors.Is(err, store.ErrDeserialization):
			c.logger.WarnContext(ctx, "discarding undecodable result", "method", method, "error", err)
			if cerr := c.store.Clear(ctx, q); cerr != nil && !errors.Is(cerr, store.ErrNotFound) {
				return cerr
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}

	result, info, err := fn(ctx, c, basedOn, p)
	if err != nil {
		return err
	}
	rec, err := c.store.Put(ctx, q, result, info)
	if err != nil {
		return err
	}
	return c.store.Load(ctx, rec, out)
}

// Result decodes the stored result of method into out.
func (c *Collection) Result(ctx context.Context, method string, basedOn store.Reference, p params.Params, out any) (*store.Record, error) {
	return c.store.GetCollectionResult(ctx, c.name, method, &basedOn, p, out)
}

func (c *Collection) lerRequest(basedOn store.Reference, cfg ler.Config, co callOptions) ler.Request {
	return ler.Request{
		Collection: c.name,
		Entities:   c.IDs(),
		BasedOn:    basedOn,
		Config:     cfg,
		Override:   co.override,
	}
}

// LER computes, or loads, the Local Environment Representation of every
// entity from the descriptions named by basedOn.
func (c *Collection) LER(ctx context.Context, basedOn store.Reference, cfg ler.Config, optFns ...CallOption) (res *ler.Result, err error) {
	req := c.lerRequest(basedOn, cfg, applyCallOptions(optFns))
	method := req.Method
	if method == "" {
		method = ler.DefaultMethod
	}

	start := time.Now()
	cached := false
	defer func() {
		cached = cached && err == nil
		c.opts.metricsCollector.RecordProcess(method, cached, time.Since(start), err)
		c.logger.LogProcess(ctx, method, basedOn.Key(), cached, err)
	}()

	if !req.Override {
		// A failed probe falls through to Run, which reports the cause.
		cached, _ = c.ler.Exists(ctx, req)
	}
	return c.ler.Run(ctx, req)
}

// GetLER returns a stored LER result without computing.
func (c *Collection) GetLER(ctx context.Context, basedOn store.Reference, cfg ler.Config) (*ler.Result, error) {
	return c.ler.Get(ctx, c.lerRequest(basedOn, cfg, callOptions{}))
}

// EntityLER returns the stored LER vector of one entity.
func (c *Collection) EntityLER(ctx context.Context, entityID string, basedOn store.Reference, cfg ler.Config) ([]float64, error) {
	return c.ler.Describe(ctx, c.lerRequest(basedOn, cfg, callOptions{}), entityID)
}

// ClearLER removes a stored LER result and its per-entity descriptions.
func (c *Collection) ClearLER(ctx context.Context, basedOn store.Reference, cfg ler.Config) error {
	err := c.ler.Clear(ctx, c.lerRequest(basedOn, cfg, callOptions{}))
	c.logger.LogClear(ctx, "ler", err)
	return err
}

// ClearDescription removes one entity's description with parameters p.
func (c *Collection) ClearDescription(ctx context.Context, entityID, descriptor string, p params.Params) error {
	err := c.store.ClearDescription(ctx, entityID, descriptor, p)
	c.logger.LogClear(ctx, entityID+"/"+descriptor, err)
	return err
}

// ClearDescriptions removes the descriptions with parameters p of every
// entity in the collection. Entities without one are ignored.
func (c *Collection) ClearDescriptions(ctx context.Context, descriptor string, p params.Params) error {
	for _, id := range c.ids {
		if err := c.store.ClearDescription(ctx, id, descriptor, p); err != nil && !errors.Is(err, store.ErrNotFound) {
			c.logger.LogClear(ctx, descriptor, err)
			return err
		}
	}
	c.logger.LogClear(ctx, descriptor, nil)
	return nil
}

// ClearDescriptor removes every stored result of descriptor, for all
// entities and parameters.
func (c *Collection) ClearDescriptor(ctx context.Context, descriptor string) error {
	err := c.store.ClearDescriptor(ctx, descriptor)
	c.logger.LogClear(ctx, descriptor, err)
	return err
}

// ClearResult removes the stored result of method for basedOn and p.
func (c *Collection) ClearResult(ctx context.Context, method string, basedOn store.Reference, p params.Params) error {
	err := c.store.ClearCollectionResult(ctx, c.name, method, &basedOn, p)
	c.logger.LogClear(ctx, c.name+"/"+method, err)
	return err
}

// ClearMethod removes every stored result of method for this collection.
func (c *Collection) ClearMethod(ctx context.Context, method string) error {
	err := c.store.ClearMethod(ctx, c.name, method)
	c.logger.LogClear(ctx, c.name+"/"+method, err)
	return err
}

// ClearAll removes everything from the store.
func (c *Collection) ClearAll(ctx context.Context) error {
	err := c.store.ClearAll(ctx)
	c.logger.LogClear(ctx, "all", err)
	return err
}
