// Package params canonicalizes open-ended named parameter sets.
//
// A Params value has two identities:
//
//   - Key: an order-independent string used to narrow candidate records.
//   - Equal: the type-aware comparison that decides cache hits.
//
// Key equality is necessary for Equal but not sufficient; stores compare
// candidates with Equal. Functions never appear by identity: any
// function-valued parameter is a Func carrying a stable textual tag.
//
// Parameter names and string values are NFC normalized so that visually
// identical names address the same record.
package params
