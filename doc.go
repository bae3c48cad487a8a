// Package relate memoizes per-entity descriptions and collection-wide results
// of atomic-environment analyses, and computes Local Environment
// Representations (LER) over them.
//
// # Quick Start
//
//	ctx := context.Background()
//	st, _ := relate.OpenStore(ctx, config.StoreConfig{Backend: "local", Root: "./store"})
//	defer st.Close()
//
//	col, _ := relate.NewCollection("alloys", st, entities)
//
//	soap := params.MustNew(map[string]any{"rcut": 5.0, "nmax": 9, "lmax": 9})
//	_, err := col.Describe(ctx, "soap", relate.DescriptorFunc(computeSOAP), soap)
//
//	res, err := col.LER(ctx, store.Reference{Name: "soap", Params: soap}, ler.Config{
//	    Epsilon: 0.025,
//	    Seed:    seed.Static(reference),
//	})
//
// # Caching
//
// Every Describe, Process and LER call first consults the store. Parameters
// are compared with params.Equal, so {rcut: 5.0, nmax: 9} and {nmax: 9,
// rcut: 5} resolve to the same record. WithOverride recomputes and replaces
// the stored record.
//
// # Traversal Order
//
// LER clusters prototypes in a single greedy pass. Entities are traversed in
// sorted id order unless ler.Config.Order lists them explicitly; different
// orders yield different but equally valid alphabets, and the order is part
// of the cache key.
//
// # Errors
//
// Cache misses surface as ErrNotFound, corrupt records as
// ErrDeserialization, and malformed input as ErrInvalidArgument. All are
// matchable with errors.Is.
package relate
