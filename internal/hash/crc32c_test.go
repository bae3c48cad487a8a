package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	header := []byte("go-json\x02")
	body := []byte("Descriptions/aid1/soap")

	sum := Extend(CRC32C(header), body)
	assert.Equal(t, CRC32C(append(append([]byte(nil), header...), body...)), sum)
	assert.True(t, Verify(sum, header, body))
	assert.True(t, Verify(CRC32C(body), body))

	corrupted := append([]byte(nil), body...)
	corrupted[0] ^= 0xff
	assert.False(t, Verify(sum, header, corrupted))

	header[len(header)-1] = 0x01
	assert.False(t, Verify(sum, header, body))
}
