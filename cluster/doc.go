// Package cluster implements single-pass leader clustering.
//
// A PrototypeSet starts from one seed vector. Vectors are visited in a fixed
// traversal order; each joins the first prototype, in insertion order, whose
// dissimilarity is strictly below epsilon, and otherwise becomes a new
// prototype identified by its entity and local index.
//
// The result depends on traversal order: different orders yield different
// but equally valid prototype sets. Fixing the order and the dissimilarity
// makes the result reproducible. Clustering is sequential by nature, since
// each decision depends on the prototypes inserted before it.
package cluster
