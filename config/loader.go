package config

import (
	"fmt"
	"strings"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
	"github.com/spf13/viper"
)

// FileConfig is the on-disk/env representation a Loader parses before
// translating it into Options for New. Field names use the same
// vocabulary as the wire algorithm names (spec-level, not Go-level), so
// operators can write "checksum: xxh3-64" in YAML without knowing the
// internal ChecksumID.
type FileConfig struct {
	ChunkSizeBytes    uint32 `mapstructure:"chunk_size_bytes"`
	MaxRatio          uint32 `mapstructure:"max_ratio"`
	MaxStoredChunkLen uint32 `mapstructure:"max_stored_chunk_bytes"`
	Checksum          string `mapstructure:"checksum"`
	Compression       string `mapstructure:"compression"`
	Encryption        string `mapstructure:"encryption"`
	KDF               string `mapstructure:"kdf"`
	RandomAccess      bool   `mapstructure:"random_access"`
	ECCParity         int    `mapstructure:"ecc_parity_shards"`
}

// Load reads configuration from an optional file at path plus
// APACK_-prefixed environment variables (env always wins), returning a
// validated Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("apack")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("chunk_size_bytes", DefaultChunkSize)
	v.SetDefault("max_ratio", DefaultMaxRatio)
	v.SetDefault("max_stored_chunk_bytes", DefaultMaxStoredChunkLen)
	v.SetDefault("checksum", "xxh3-64")
	v.SetDefault("compression", "none")
	v.SetDefault("encryption", "none")
	v.SetDefault("kdf", "argon2id")
	v.SetDefault("random_access", true)
	v.SetDefault("ecc_parity_shards", 0)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apackerr.New(apackerr.KindConfiguration, "config-load", err)
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, apackerr.New(apackerr.KindConfiguration, "config-load", err)
	}
	return fromFileConfig(fc)
}

func fromFileConfig(fc FileConfig) (*Config, error) {
	checksum, err := parseChecksum(fc.Checksum)
	if err != nil {
		return nil, err
	}
	compression, err := parseCompression(fc.Compression)
	if err != nil {
		return nil, err
	}
	encryption, err := parseEncryption(fc.Encryption)
	if err != nil {
		return nil, err
	}
	kdfID, err := parseKDF(fc.KDF)
	if err != nil {
		return nil, err
	}
	return New(
		WithChunkSize(fc.ChunkSizeBytes),
		WithMaxRatio(fc.MaxRatio),
		WithMaxStoredChunkLen(fc.MaxStoredChunkLen),
		WithChecksum(checksum),
		WithCompression(compression),
		WithEncryption(encryption),
		WithKDF(kdfID),
		WithRandomAccess(fc.RandomAccess),
		WithECCParity(fc.ECCParity),
	)
}

func parseChecksum(s string) (apack.ChecksumID, error) {
	switch strings.ToLower(s) {
	case "crc32":
		return apack.ChecksumCRC32, nil
	case "xxh3-64", "xxh3_64", "":
		return apack.ChecksumXXH3_64, nil
	case "xxh3-128", "xxh3_128":
		return apack.ChecksumXXH3_128, nil
	default:
		return 0, apackerr.New(apackerr.KindConfiguration, "parse-checksum", fmt.Errorf("unknown checksum %q", s))
	}
}

func parseCompression(s string) (apack.CompressionID, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return apack.CompressionNone, nil
	case "zstd":
		return apack.CompressionZstd, nil
	case "lz4":
		return apack.CompressionLZ4, nil
	default:
		return 0, apackerr.New(apackerr.KindConfiguration, "parse-compression", fmt.Errorf("unknown compression %q", s))
	}
}

func parseEncryption(s string) (apack.EncryptionID, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return apack.EncryptionNone, nil
	case "aes-256-gcm", "aes256gcm":
		return apack.EncryptionAES256GCM, nil
	case "chacha20-poly1305", "chacha20poly1305":
		return apack.EncryptionChaCha20Poly1305, nil
	default:
		return 0, apackerr.New(apackerr.KindConfiguration, "parse-encryption", fmt.Errorf("unknown encryption %q", s))
	}
}

func parseKDF(s string) (apack.KDFID, error) {
	switch strings.ToLower(s) {
	case "argon2id", "":
		return apack.KDFArgon2id, nil
	case "pbkdf2-sha256", "pbkdf2sha256":
		return apack.KDFPBKDF2SHA256, nil
	default:
		return 0, apackerr.New(apackerr.KindConfiguration, "parse-kdf", fmt.Errorf("unknown kdf %q", s))
	}
}
