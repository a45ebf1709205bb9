package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kenneth/apack"
)

func TestCRC32(t *testing.T) {
	c := CRC32{}
	assert.Equal(t, apack.ChecksumCRC32, c.ID())
	assert.Equal(t, c.Sum([]byte("hello")), c.Sum([]byte("hello")))
	assert.NotEqual(t, c.Sum([]byte("hello")), c.Sum([]byte("world")))
	assert.Equal(t, uint64(0), c.Sum(nil))
}

func TestXXH3_64(t *testing.T) {
	c := XXH3_64{}
	assert.Equal(t, apack.ChecksumXXH3_64, c.ID())
	assert.Equal(t, c.Sum([]byte("hello")), c.Sum([]byte("hello")))
	assert.NotEqual(t, c.Sum([]byte("hello")), c.Sum([]byte("world")))
}

func TestXXH3_128(t *testing.T) {
	c := XXH3_128{}
	assert.Equal(t, apack.ChecksumXXH3_128, c.ID())
	assert.Equal(t, c.Sum([]byte("hello")), c.Sum([]byte("hello")))
	assert.NotEqual(t, c.Sum([]byte("hello")), c.Sum([]byte("world")))
}

func TestAllChecksumsDetectSingleBitFlip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	tampered := append([]byte(nil), data...)
	tampered[3] ^= 0x01

	for _, c := range []interface {
		Sum([]byte) uint64
	}{CRC32{}, XXH3_64{}, XXH3_128{}} {
		assert.NotEqual(t, c.Sum(data), c.Sum(tampered))
	}
}
