// Package ler computes Local Environment Representations.
//
// For a collection of entities whose descriptions are already stored, Run
//
//  1. loads every entity's vectors from the Descriptions namespace,
//  2. clusters all vectors in traversal order into a prototype set grown
//     from a seed (package cluster),
//  3. builds a nearest-neighbor index over the prototypes (package ann),
//  4. classifies every vector, sharded per entity, and
//  5. counts assignments per entity and normalizes them into histograms.
//
// The histogram axis lists prototypes in the order they first receive an
// assignment while traversing entities in order and vectors in local order.
// Prototypes that receive none are appended in insertion order with zero
// counts.
//
// The result is stored as one Collections record keyed by the LER
// parameters and a based-on reference to the description. Every input that
// affects the result is part of those parameters: epsilon, dissimilarity,
// index settings, seed identity, traversal order and collection membership.
package ler
