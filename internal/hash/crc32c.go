package hash

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Extend continues sum over data, so a header and a body written apart can
// share one checksum.
func Extend(sum uint32, data []byte) uint32 {
	return crc32.Update(sum, castagnoli, data)
}

// Verify reports whether the concatenation of parts matches want.
func Verify(want uint32, parts ...[]byte) bool {
	var sum uint32
	for _, p := range parts {
		sum = Extend(sum, p)
	}
	return sum == want
}
