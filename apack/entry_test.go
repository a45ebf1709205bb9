package apack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack/apackerr"
)

func sampleEntryHeader() *EntryHeader {
	return &EntryHeader{
		HeaderVersion: 1,
		ID:            42,
		OriginalSize:  1024,
		StoredSize:    900,
		ChunkCount:    1,
		CompressionID: CompressionZstd,
		EncryptionID:  EncryptionAES256GCM,
		HasECC:        true,
		Attributes: []Attribute{
			{Key: "mode", Kind: AttrInt64, Int: 0o644},
			{Key: "executable", Kind: AttrBool, Bool: false},
			{Key: "comment", Kind: AttrString, Str: "hello"},
			{Key: "blob", Kind: AttrBytes, Bytes: []byte{1, 2, 3}},
		},
		Name:     "dir/file.txt",
		MIMEType: "text/plain",
	}
}

func TestEntryHeaderRoundTrip(t *testing.T) {
	e := sampleEntryHeader()
	encoded, err := e.Encode(true, crcSum)
	require.NoError(t, err)

	decoded, err := DecodeEntryHeader(bytes.NewReader(encoded), true, crcSum)
	require.NoError(t, err)
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, e.OriginalSize, decoded.OriginalSize)
	assert.Equal(t, e.StoredSize, decoded.StoredSize)
	assert.Equal(t, e.CompressionID, decoded.CompressionID)
	assert.Equal(t, e.EncryptionID, decoded.EncryptionID)
	assert.True(t, decoded.HasECC)
	assert.Equal(t, e.Name, decoded.Name)
	assert.Equal(t, e.MIMEType, decoded.MIMEType)
	require.Len(t, decoded.Attributes, len(e.Attributes))
	for i, a := range e.Attributes {
		assert.Equal(t, a, decoded.Attributes[i])
	}
}

func TestEntryHeaderEmptyNameRejected(t *testing.T) {
	e := sampleEntryHeader()
	e.Name = ""
	_, err := e.Encode(true, crcSum)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindFormat))
}

func TestEntryHeaderBackslashNameRejected(t *testing.T) {
	e := sampleEntryHeader()
	e.Name = `dir\file.txt`
	_, err := e.Encode(true, crcSum)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindFormat))
}

func TestEntryHeaderEncryptedWithoutArchiveEncryption(t *testing.T) {
	e := sampleEntryHeader()
	_, err := e.Encode(false, crcSum)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindConfiguration))
}

func TestEntryHeaderTamperedChecksum(t *testing.T) {
	e := sampleEntryHeader()
	encoded, err := e.Encode(true, crcSum)
	require.NoError(t, err)
	encoded[len(encoded)-1] ^= 0xFF

	_, err = DecodeEntryHeader(bytes.NewReader(encoded), true, crcSum)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindFormat))
}

func TestEntryHeaderNoAttributes(t *testing.T) {
	e := sampleEntryHeader()
	e.Attributes = nil
	encoded, err := e.Encode(true, crcSum)
	require.NoError(t, err)

	decoded, err := DecodeEntryHeader(bytes.NewReader(encoded), true, crcSum)
	require.NoError(t, err)
	assert.Empty(t, decoded.Attributes)
}
