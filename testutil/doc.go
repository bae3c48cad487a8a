// Package testutil provides testing utilities for relate.
//
// This package is intended for use in tests only. It provides seeded vector
// generators, exact nearest neighbors and recall verification.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.ClusteredVectors(200, 8, 5, 0.05)
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.BruteForceSearch(vecs, query, k, dissim.Euclidean{})
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, approx)
package testutil
