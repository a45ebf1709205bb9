package pipeline

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack/apackerr"
	"github.com/kenneth/apack/providers/aead"
	"github.com/kenneth/apack/providers/checksum"
	"github.com/kenneth/apack/providers/compress"
)

func TestEncodeDecodeEntryNoECC(t *testing.T) {
	opts := Options{ChunkSize: 16, MaxRatio: 100, MaxStoredChunkLen: 1 << 20, Checksum: checksum.XXH3_64{}}
	src := strings.NewReader(strings.Repeat("0123456789abcdef", 5)) // exactly 5 chunks

	var buf bytes.Buffer
	result, err := EncodeEntry(&buf, opts, 1, src, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), result.ChunkCount)
	assert.Equal(t, uint64(80), result.OriginalSize)
	assert.Equal(t, 0, result.ParityShards)

	var out bytes.Buffer
	require.NoError(t, DecodeEntry(&buf, opts, 1, result.ChunkCount, 0, &out))
	assert.Equal(t, strings.Repeat("0123456789abcdef", 5), out.String())
}

func TestEncodeDecodeEntryWithCompressionAndEncryption(t *testing.T) {
	opts := Options{
		ChunkSize:         32,
		MaxRatio:          100,
		MaxStoredChunkLen: 1 << 20,
		Checksum:          checksum.XXH3_64{},
		Compressor:        compress.NewZstd(3),
		AEAD:              aead.AESGCM{},
		Key:               make([]byte, aead.AESGCM{}.KeySize()),
	}
	content := strings.Repeat("the quick brown fox jumps over the lazy dog ", 10)
	src := strings.NewReader(content)

	var buf bytes.Buffer
	result, err := EncodeEntry(&buf, opts, 9, src, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, DecodeEntry(&buf, opts, 9, result.ChunkCount, 0, &out))
	assert.Equal(t, content, out.String())
}

func TestEncodeDecodeEntryWithECCReconstructsCorruptedChunk(t *testing.T) {
	opts := Options{ChunkSize: 16, MaxRatio: 100, MaxStoredChunkLen: 1 << 20, Checksum: checksum.XXH3_64{}}
	content := strings.Repeat("0123456789abcdef", 4)
	src := strings.NewReader(content)

	var buf bytes.Buffer
	result, err := EncodeEntry(&buf, opts, 3, src, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ParityShards)

	// Corrupt the first data chunk's stored bytes in place so its
	// checksum verification fails and DecodeEntry must reconstruct it.
	encoded := buf.Bytes()
	chunkHeaderSize := 24
	encoded[chunkHeaderSize] ^= 0xFF

	var out bytes.Buffer
	require.NoError(t, DecodeEntry(bytes.NewReader(encoded), opts, 3, result.ChunkCount, 2, &out))
	assert.Equal(t, content, out.String())
}

func TestDecodeEntryFailsWithoutECCWhenChunkCorrupted(t *testing.T) {
	opts := Options{ChunkSize: 16, MaxRatio: 100, MaxStoredChunkLen: 1 << 20, Checksum: checksum.XXH3_64{}}
	content := strings.Repeat("0123456789abcdef", 4)
	src := strings.NewReader(content)

	var buf bytes.Buffer
	result, err := EncodeEntry(&buf, opts, 3, src, 0)
	require.NoError(t, err)

	encoded := buf.Bytes()
	chunkHeaderSize := 24
	encoded[chunkHeaderSize] ^= 0xFF

	var out bytes.Buffer
	err = DecodeEntry(bytes.NewReader(encoded), opts, 3, result.ChunkCount, 0, &out)
	assert.Error(t, err)
}

func TestEncodeEntryEmptySource(t *testing.T) {
	opts := Options{ChunkSize: 16, MaxRatio: 100, MaxStoredChunkLen: 1 << 20, Checksum: checksum.XXH3_64{}}
	var buf bytes.Buffer
	result, err := EncodeEntry(&buf, opts, 1, strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), result.ChunkCount)

	var out bytes.Buffer
	require.NoError(t, DecodeEntry(&buf, opts, 1, 0, 0, &out))
	assert.Equal(t, 0, out.Len())
}

func TestDecodeEntryRejectsChunkCountSmallerThanParity(t *testing.T) {
	opts := Options{ChunkSize: 16, MaxRatio: 100, MaxStoredChunkLen: 1 << 20, Checksum: checksum.XXH3_64{}}
	err := DecodeEntry(bytes.NewReader(nil), opts, 1, 1, 2, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDecodeEntryRejectsChunkHeaderClaimingOversizedStoredLen(t *testing.T) {
	opts := Options{ChunkSize: 16, MaxRatio: 100, MaxStoredChunkLen: 64, Checksum: checksum.XXH3_64{}}
	content := strings.Repeat("0123456789abcdef", 2)
	src := strings.NewReader(content)

	var buf bytes.Buffer
	result, err := EncodeEntry(&buf, opts, 1, src, 0)
	require.NoError(t, err)

	encoded := buf.Bytes()
	binary.LittleEndian.PutUint32(encoded[4:8], 1<<28) // stored_len, within the ChunkHeader layout

	err = DecodeEntry(bytes.NewReader(encoded), opts, 1, result.ChunkCount, 0, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindBomb))
}
