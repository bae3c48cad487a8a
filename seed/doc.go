// Package seed provides the initial prototype for leader clustering.
//
// A Provider either returns a fixed vector (Static) or describes a perfect
// reference crystal of an element with an injected descriptor (Reference).
// Providers report identifying parameters, which become part of the cache
// key of every result clustered from their seed.
package seed
