package apack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack/apackerr"
)

func sampleEncryptionBlock() *EncryptionBlock {
	return &EncryptionBlock{
		KDFAlgo:        KDFArgon2id,
		CipherAlgo:     EncryptionAES256GCM,
		KDFIterations:  2,
		KDFMemoryKiB:   65536,
		KDFParallelism: 4,
		Salt:           bytes.Repeat([]byte{0xAA}, 16),
		WrappedKey:     bytes.Repeat([]byte{0xBB}, 32),
		WrappedKeyTag:  bytes.Repeat([]byte{0xCC}, 16),
	}
}

func TestEncryptionBlockRoundTrip(t *testing.T) {
	b := sampleEncryptionBlock()
	var buf bytes.Buffer
	require.NoError(t, b.Encode(&buf))

	decoded, err := DecodeEncryptionBlock(&buf)
	require.NoError(t, err)
	assert.Equal(t, b.KDFAlgo, decoded.KDFAlgo)
	assert.Equal(t, b.CipherAlgo, decoded.CipherAlgo)
	assert.Equal(t, b.KDFIterations, decoded.KDFIterations)
	assert.Equal(t, b.KDFMemoryKiB, decoded.KDFMemoryKiB)
	assert.Equal(t, b.KDFParallelism, decoded.KDFParallelism)
	assert.Equal(t, b.Salt, decoded.Salt)
	assert.Equal(t, b.WrappedKey, decoded.WrappedKey)
	assert.Equal(t, b.WrappedKeyTag, decoded.WrappedKeyTag)
}

func TestEncryptionBlockSaltTooShort(t *testing.T) {
	b := sampleEncryptionBlock()
	b.Salt = []byte{1, 2, 3}
	var buf bytes.Buffer
	err := b.Encode(&buf)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindConfiguration))
}

func TestEncryptionBlockRejectsPlaintextCipher(t *testing.T) {
	b := sampleEncryptionBlock()
	b.CipherAlgo = EncryptionNone
	var buf bytes.Buffer
	err := b.Encode(&buf)
	require.Error(t, err)
	assert.True(t, apackerr.Is(err, apackerr.KindFormat))
}
