package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/apack"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultChunkSize), c.ChunkSize)
	assert.Equal(t, apack.ChecksumXXH3_64, c.Checksum)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apack.yaml")
	contents := `
chunk_size_bytes: 65536
max_ratio: 50
max_stored_chunk_bytes: 1048576
checksum: xxh3-128
compression: zstd
encryption: aes-256-gcm
kdf: pbkdf2-sha256
random_access: false
ecc_parity_shards: 3
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(65536), c.ChunkSize)
	assert.Equal(t, uint32(50), c.MaxRatio)
	assert.Equal(t, uint32(1048576), c.MaxStoredChunkLen)
	assert.Equal(t, apack.ChecksumXXH3_128, c.Checksum)
	assert.Equal(t, apack.CompressionZstd, c.Compression)
	assert.Equal(t, apack.EncryptionAES256GCM, c.Encryption)
	assert.Equal(t, apack.KDFPBKDF2SHA256, c.KDF)
	assert.False(t, c.RandomAccess)
	assert.Equal(t, 3, c.ECCParity)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression: none\n"), 0o600))

	t.Setenv("APACK_COMPRESSION", "lz4")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, apack.CompressionLZ4, c.Compression)
}

func TestLoadRejectsUnknownAlgorithmName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checksum: not-a-real-checksum\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
