package apack

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack/apackerr"
)

func crcSum(data []byte) uint64 { return uint64(crc32.ChecksumIEEE(data)) }

func TestFileHeaderRoundTrip(t *testing.T) {
	h := NewFileHeader(1<<20, ChecksumCRC32, true, false, false)
	h.EntryCount = 7
	h.TrailerOffset = 12345

	encoded, err := h.Encode(crcSum)
	require.NoError(t, err)
	require.Len(t, encoded, FileHeaderSize)

	decoded, err := DecodeFileHeader(bytes.NewReader(encoded), crcSum)
	require.NoError(t, err)
	assert.Equal(t, h.VersionMajor, decoded.VersionMajor)
	assert.Equal(t, h.VersionMinor, decoded.VersionMinor)
	assert.Equal(t, h.Flags, decoded.Flags)
	assert.Equal(t, h.DefaultChunkSize, decoded.DefaultChunkSize)
	assert.Equal(t, h.ChecksumAlgo, decoded.ChecksumAlgo)
	assert.Equal(t, h.EntryCount, decoded.EntryCount)
	assert.Equal(t, h.TrailerOffset, decoded.TrailerOffset)
	assert.True(t, decoded.RandomAccess())
	assert.False(t, decoded.Encrypted())
	assert.False(t, decoded.StreamMode())
}

func TestFileHeaderBadMagic(t *testing.T) {
	h := NewFileHeader(1<<20, ChecksumCRC32, true, false, false)
	encoded, err := h.Encode(crcSum)
	require.NoError(t, err)
	encoded[0] = 'X'

	_, err = DecodeFileHeader(bytes.NewReader(encoded), crcSum)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindFormat))
}

func TestFileHeaderTamperedChecksum(t *testing.T) {
	h := NewFileHeader(1<<20, ChecksumCRC32, true, false, false)
	h.EntryCount = 3
	encoded, err := h.Encode(crcSum)
	require.NoError(t, err)
	encoded[32] ^= 0xFF // flip a byte inside EntryCount, before the checksum field

	_, err = DecodeFileHeader(bytes.NewReader(encoded), crcSum)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindFormat))
}

func TestFileHeaderRandomAccessRequiresTrailerOffset(t *testing.T) {
	h := NewFileHeader(1<<20, ChecksumCRC32, true, false, false)
	h.TrailerOffset = 0
	encoded, err := h.Encode(crcSum)
	require.NoError(t, err)

	_, err = DecodeFileHeader(bytes.NewReader(encoded), crcSum)
	require.Error(t, err)
}

func TestFileHeaderUnknownChecksumID(t *testing.T) {
	h := NewFileHeader(1<<20, ChecksumID(99), true, false, false)
	// Encode doesn't validate the checksum id, only Decode does.
	encoded, err := h.Encode(crcSum)
	require.NoError(t, err)

	_, err = DecodeFileHeader(bytes.NewReader(encoded), crcSum)
	require.Error(t, err)
}
