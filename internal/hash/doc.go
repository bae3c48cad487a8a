// Package hash provides the checksum used to detect corrupted store records.
//
// Every record envelope written by the result store carries one
// CRC32-Castagnoli checksum over its codec name, compression tag and body. A
// mismatch on read is reported as a deserialization failure rather than a
// cache miss, so callers can delete and recompute.
//
//	sum := hash.Extend(hash.CRC32C(header), body)
//	ok := hash.Verify(sum, header, body)
package hash
