package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/providers/aead"
	"github.com/kenneth/apack/providers/checksum"
	"github.com/kenneth/apack/providers/compress"
)

func plainOptions() Options {
	return Options{ChunkSize: 1 << 16, MaxRatio: 100, Checksum: checksum.XXH3_64{}}
}

func TestEncodeDecodeChunkPlain(t *testing.T) {
	opts := plainOptions()
	plaintext := []byte("hello, chunk pipeline")

	header, stored, err := EncodeChunk(opts, 1, 0, plaintext)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(plaintext)), header.OriginalLen)

	decoded, err := DecodeChunk(opts, 1, header, stored)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestEncodeDecodeChunkWithCompression(t *testing.T) {
	opts := plainOptions()
	opts.Compressor = compress.NewZstd(3)
	plaintext := []byte(`{"repeated":"data","repeated":"data","repeated":"data"}`)

	header, stored, err := EncodeChunk(opts, 1, 0, plaintext)
	require.NoError(t, err)
	assert.False(t, header.Uncompressed)
	assert.Less(t, len(stored), len(plaintext))

	decoded, err := DecodeChunk(opts, 1, header, stored)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestEncodeChunkSkipsCompressionWhenNotSmaller(t *testing.T) {
	opts := plainOptions()
	opts.Compressor = compress.NewZstd(3)
	plaintext := []byte("x") // too small to benefit from compression

	header, stored, err := EncodeChunk(opts, 1, 0, plaintext)
	require.NoError(t, err)
	assert.True(t, header.Uncompressed)
	assert.Equal(t, plaintext, stored)
}

func TestEncodeDecodeChunkWithEncryption(t *testing.T) {
	opts := plainOptions()
	opts.AEAD = aead.AESGCM{}
	opts.Key = make([]byte, opts.AEAD.KeySize())

	plaintext := []byte("secret payload")
	header, stored, err := EncodeChunk(opts, 7, 3, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, stored)

	decoded, err := DecodeChunk(opts, 7, header, stored)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestDecodeChunkWrongEntryIDFailsAEAD(t *testing.T) {
	opts := plainOptions()
	opts.AEAD = aead.AESGCM{}
	opts.Key = make([]byte, opts.AEAD.KeySize())

	header, stored, err := EncodeChunk(opts, 7, 3, []byte("secret payload"))
	require.NoError(t, err)

	_, err = DecodeChunk(opts, 8, header, stored) // different entry id changes the AAD
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindAEAD))
}

func TestDecodeChunkTamperedChecksumDetected(t *testing.T) {
	opts := plainOptions()
	plaintext := []byte("hello, chunk pipeline")
	header, stored, err := EncodeChunk(opts, 1, 0, plaintext)
	require.NoError(t, err)
	header.Checksum ^= 0xFF

	_, err = DecodeChunk(opts, 1, header, stored)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindIntegrity))
}

func TestFullPipelineChecksumCompressEncrypt(t *testing.T) {
	opts := Options{
		ChunkSize:  1 << 16,
		MaxRatio:   100,
		Checksum:   checksum.XXH3_128{},
		Compressor: compress.LZ4{},
		AEAD:       aead.ChaCha20Poly1305{},
		Key:        make([]byte, aead.ChaCha20Poly1305{}.KeySize()),
	}
	plaintext := []byte("a chunk that goes through every stage of the pipeline, repeated, repeated, repeated")

	header, stored, err := EncodeChunk(opts, 42, 5, plaintext)
	require.NoError(t, err)
	decoded, err := DecodeChunk(opts, 42, header, stored)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}
