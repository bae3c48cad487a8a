// Package ann provides nearest-neighbor search strategies over a static set
// of vectors.
//
// Two strategies are available:
//
//   - Exact: brute-force scan. Ties resolve to the lowest index.
//   - HNSW: a Hierarchical Navigable Small World graph. Search is
//     approximate; M, EF and EFSearch trade recall for speed. Construction
//     draws node levels from a seeded RNG, so a given seed and insertion
//     order always produce the same graph.
//
// Built indexes are read-only and safe for concurrent search.
package ann
