package apack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack/apackerr"
)

func TestChunkHeaderRoundTrip(t *testing.T) {
	c := &ChunkHeader{
		Index:        3,
		StoredLen:    900,
		OriginalLen:  1024,
		Checksum:     0xDEADBEEF,
		ECCParity:    true,
		Uncompressed: false,
	}
	encoded := c.Encode()
	require.Len(t, encoded, ChunkHeaderSize)

	decoded, err := DecodeChunkHeader(bytes.NewReader(encoded), 1<<20, 100, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, c.Index, decoded.Index)
	assert.Equal(t, c.StoredLen, decoded.StoredLen)
	assert.Equal(t, c.OriginalLen, decoded.OriginalLen)
	assert.Equal(t, c.Checksum, decoded.Checksum)
	assert.True(t, decoded.ECCParity)
	assert.False(t, decoded.Uncompressed)
}

func TestChunkHeaderBombGuard(t *testing.T) {
	c := &ChunkHeader{OriginalLen: 1 << 30, StoredLen: 10}
	encoded := c.Encode()

	_, err := DecodeChunkHeader(bytes.NewReader(encoded), 1<<16, 4, 1<<20)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindBomb))
}

func TestChunkHeaderExceedsConfiguredChunkSize(t *testing.T) {
	// Within the ratio limit, but larger than the chunk size itself.
	c := &ChunkHeader{OriginalLen: 1 << 16, StoredLen: 10}
	encoded := c.Encode()

	_, err := DecodeChunkHeader(bytes.NewReader(encoded), 1<<10, 1<<10, 1<<20)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindFormat))
}

func TestChunkHeaderStoredLenBombGuard(t *testing.T) {
	// original_len is tiny and well within the ratio limit, but
	// stored_len — the field that drives the decode-side allocation — is
	// huge, as a corrupted or adversarial header might claim.
	c := &ChunkHeader{OriginalLen: 10, StoredLen: 1 << 28}
	encoded := c.Encode()

	_, err := DecodeChunkHeader(bytes.NewReader(encoded), 1<<20, 100, 1<<20)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindBomb))
}

func TestChunkHeaderShortRead(t *testing.T) {
	_, err := DecodeChunkHeader(bytes.NewReader([]byte{1, 2, 3}), 1<<20, 100, 1<<20)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindIO))
}
