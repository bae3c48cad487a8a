// Package dissim provides dissimilarity functions over float64 vectors.
//
// Every function carries a stable textual tag. The tag, not the function
// value, identifies the function in canonical parameter sets, so a Func can
// be stored as a params.Func and compared across runs.
//
// Functions assume both vectors have the same length; callers validate
// dimensions up front.
package dissim
